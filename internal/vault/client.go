// Package vault resolves datastore credentials from HashiCorp Vault so they
// never live in config files. With Vault disabled the client degrades to an
// in-memory store fed by environment defaults, which keeps local development
// working without a Vault server.
package vault

import (
	"context"
	"fmt"
	"sync"

	"neurallempire-signal-engine/config"

	"github.com/hashicorp/vault/api"
)

// DatastoreCredentials holds one datastore's login stored in Vault.
type DatastoreCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Client wraps the HashiCorp Vault client
type Client struct {
	client       *api.Client
	config       config.VaultConfig
	mu           sync.RWMutex
	cache        map[string]*DatastoreCredentials // datastore name -> credentials
	cacheEnabled bool
}

// NewClient creates a new Vault client
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{
			config:       cfg,
			cache:        make(map[string]*DatastoreCredentials),
			cacheEnabled: true,
		}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{
			CACert: cfg.CACert,
		}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)

	return &Client{
		client:       client,
		config:       cfg,
		cache:        make(map[string]*DatastoreCredentials),
		cacheEnabled: true,
	}, nil
}

// StoreCredentials stores one datastore's credentials in Vault.
func (c *Client) StoreCredentials(ctx context.Context, name string, creds DatastoreCredentials) error {
	if !c.config.Enabled {
		// Store in local cache only (for development/testing)
		c.mu.Lock()
		c.cache[name] = &creds
		c.mu.Unlock()
		return nil
	}

	path := c.secretPath(name)

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"username": creds.Username,
			"password": creds.Password,
		},
	}

	_, err := c.client.Logical().WriteWithContext(ctx, path, secretData)
	if err != nil {
		return fmt.Errorf("failed to store credentials in vault: %w", err)
	}

	if c.cacheEnabled {
		c.mu.Lock()
		c.cache[name] = &creds
		c.mu.Unlock()
	}

	return nil
}

// GetCredentials retrieves one datastore's credentials from Vault.
func (c *Client) GetCredentials(ctx context.Context, name string) (*DatastoreCredentials, error) {
	// Check cache first
	if c.cacheEnabled {
		c.mu.RLock()
		if cached, ok := c.cache[name]; ok {
			c.mu.RUnlock()
			return cached, nil
		}
		c.mu.RUnlock()
	}

	if !c.config.Enabled {
		return nil, fmt.Errorf("credentials for %q not found and vault is disabled", name)
	}

	path := c.secretPath(name)

	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from vault: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("credentials for %q not found", name)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}

	creds := &DatastoreCredentials{
		Username: getString(data, "username"),
		Password: getString(data, "password"),
	}

	if c.cacheEnabled {
		c.mu.Lock()
		c.cache[name] = creds
		c.mu.Unlock()
	}

	return creds, nil
}

// DeleteCredentials removes one datastore's credentials.
func (c *Client) DeleteCredentials(ctx context.Context, name string) error {
	c.mu.Lock()
	delete(c.cache, name)
	c.mu.Unlock()

	if !c.config.Enabled {
		return nil
	}

	path := c.metadataPath(name)

	_, err := c.client.Logical().DeleteWithContext(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to delete credentials from vault: %w", err)
	}

	return nil
}

// ClearCache clears the in-memory cache
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]*DatastoreCredentials)
	c.mu.Unlock()
}

// SetCacheEnabled enables or disables caching
func (c *Client) SetCacheEnabled(enabled bool) {
	c.mu.Lock()
	c.cacheEnabled = enabled
	c.mu.Unlock()
}

// IsEnabled returns whether Vault is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}

// secretPath returns the KV v2 data path for a datastore's credentials
func (c *Client) secretPath(name string) string {
	return fmt.Sprintf("%s/data/%s/%s", c.config.MountPath, c.config.SecretPath, name)
}

// metadataPath returns the KV v2 metadata path for a datastore's credentials
func (c *Client) metadataPath(name string) string {
	return fmt.Sprintf("%s/metadata/%s/%s", c.config.MountPath, c.config.SecretPath, name)
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
