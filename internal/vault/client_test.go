package vault

import (
	"context"
	"testing"

	"neurallempire-signal-engine/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(config.VaultConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestDisabledModeRoundTrip(t *testing.T) {
	c := disabledClient(t)
	ctx := context.Background()

	creds := DatastoreCredentials{Username: "signals", Password: "s3cret"}
	if err := c.StoreCredentials(ctx, "postgres", creds); err != nil {
		t.Fatalf("StoreCredentials: %v", err)
	}

	got, err := c.GetCredentials(ctx, "postgres")
	if err != nil {
		t.Fatalf("GetCredentials: %v", err)
	}
	if got.Username != "signals" || got.Password != "s3cret" {
		t.Errorf("unexpected credentials: %+v", got)
	}
}

func TestDisabledModeMissingCredentials(t *testing.T) {
	c := disabledClient(t)

	if _, err := c.GetCredentials(context.Background(), "redis"); err == nil {
		t.Error("expected error for missing credentials")
	}
}

func TestDeleteRemovesFromCache(t *testing.T) {
	c := disabledClient(t)
	ctx := context.Background()

	if err := c.StoreCredentials(ctx, "redis", DatastoreCredentials{Password: "p"}); err != nil {
		t.Fatalf("StoreCredentials: %v", err)
	}
	if err := c.DeleteCredentials(ctx, "redis"); err != nil {
		t.Fatalf("DeleteCredentials: %v", err)
	}
	if _, err := c.GetCredentials(ctx, "redis"); err == nil {
		t.Error("expected error after delete")
	}
}

func TestHealthWhenDisabled(t *testing.T) {
	c := disabledClient(t)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("expected nil health when disabled, got %v", err)
	}
	if c.IsEnabled() {
		t.Error("expected IsEnabled false")
	}
}
