package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"neurallempire-signal-engine/internal/auth"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		fmt.Println("AUTH_JWT_SECRET must be set (environment or .env)")
		os.Exit(1)
	}

	fmt.Println("========================================")
	fmt.Println(" Service Token Administration Tool")
	fmt.Println("========================================")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\nOptions:")
		fmt.Println("  1. Generate service token")
		fmt.Println("  2. Inspect a token")
		fmt.Println("  3. Exit")
		fmt.Print("\nSelect option: ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch input {
		case "1":
			generateToken(reader, secret)
		case "2":
			inspectToken(reader, secret)
		case "3":
			fmt.Println("Goodbye!")
			os.Exit(0)
		default:
			fmt.Println("Invalid option")
		}
	}
}

func generateToken(reader *bufio.Reader, secret string) {
	fmt.Println("\n--- Generate Service Token ---")
	fmt.Print("Service name: ")

	service, _ := reader.ReadString('\n')
	service = strings.TrimSpace(service)
	if service == "" {
		fmt.Println("Service name is required")
		return
	}

	fmt.Println("Roles:")
	fmt.Println("  1. evaluator (submit evaluation requests)")
	fmt.Println("  2. reader    (read verdicts only)")
	fmt.Print("Select role (1-2): ")

	roleInput, _ := reader.ReadString('\n')
	role := "reader"
	if strings.TrimSpace(roleInput) == "1" {
		role = "evaluator"
	}

	fmt.Print("Validity (Go duration, e.g. 24h or 720h, blank for 24h): ")
	durInput, _ := reader.ReadString('\n')
	duration := 24 * time.Hour
	if trimmed := strings.TrimSpace(durInput); trimmed != "" {
		d, err := time.ParseDuration(trimmed)
		if err != nil || d <= 0 {
			fmt.Println("Invalid duration, using 24h")
		} else {
			duration = d
		}
	}

	manager := auth.NewTokenManager(secret, duration)
	token, err := manager.GenerateToken(auth.ServiceClaims{Service: service, Role: role})
	if err != nil {
		fmt.Printf("Failed to generate token: %v\n", err)
		return
	}

	fmt.Println("\n========================================")
	fmt.Printf("  Service:  %s\n", service)
	fmt.Printf("  Role:     %s\n", role)
	fmt.Printf("  Expires:  %s\n", time.Now().Add(duration).Format("2006-01-02 15:04:05"))
	fmt.Printf("  Token:\n\n%s\n", token)
	fmt.Println("========================================")

	// Optionally save to file
	fmt.Print("\nSave to file? (y/n): ")
	save, _ := reader.ReadString('\n')
	if strings.TrimSpace(strings.ToLower(save)) == "y" {
		filename := fmt.Sprintf("token_%s_%s.txt", service, time.Now().Format("20060102_150405"))
		content := fmt.Sprintf("Service: %s\nRole: %s\nExpires: %s\nToken: %s\n",
			service, role, time.Now().Add(duration).Format("2006-01-02 15:04:05"), token)
		os.WriteFile(filename, []byte(content), 0600)
		fmt.Printf("Saved to: %s\n", filename)
	}
}

func inspectToken(reader *bufio.Reader, secret string) {
	fmt.Println("\n--- Inspect Token ---")
	fmt.Print("Paste token: ")

	token, _ := reader.ReadString('\n')
	token = strings.TrimSpace(token)

	manager := auth.NewTokenManager(secret, 24*time.Hour)
	claims, err := manager.ValidateToken(token)

	fmt.Println("\n========================================")
	if err != nil {
		fmt.Printf("  Status:  INVALID\n")
		fmt.Printf("  Error:   %s\n", err)
	} else {
		fmt.Printf("  Status:  VALID\n")
		fmt.Printf("  Service: %s\n", claims.Service)
		fmt.Printf("  Role:    %s\n", claims.Role)
	}
	fmt.Println("========================================")
}
