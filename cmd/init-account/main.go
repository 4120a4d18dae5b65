package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/toreyjames/TokenMeter/internal/config"
	"github.com/toreyjames/TokenMeter/internal/models"
	"github.com/toreyjames/TokenMeter/internal/storage"
)

// init-account creates the first dashboard account. Intended for
// deployment bootstrap; additional accounts come later through the API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	email := strings.ToLower(strings.TrimSpace(os.Getenv("ACCOUNT_BOOTSTRAP_EMAIL")))
	password := os.Getenv("ACCOUNT_BOOTSTRAP_PASSWORD")

	if email == "" || password == "" {
		fmt.Fprintf(os.Stderr, "ERROR: ACCOUNT_BOOTSTRAP_EMAIL and ACCOUNT_BOOTSTRAP_PASSWORD must be set\n")
		os.Exit(1)
	}
	if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		fmt.Fprintf(os.Stderr, "ERROR: Invalid email format: %s\n", email)
		os.Exit(1)
	}
	if len(password) < 8 {
		fmt.Fprintf(os.Stderr, "ERROR: Password must be at least 8 characters long\n")
		os.Exit(1)
	}

	fmt.Println("Connecting to database...")
	db, err := storage.NewDB(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := db.NewAccountRepository()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	existing, err := repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, storage.ErrAccountNotFound) {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to check for existing account: %v\n", err)
		os.Exit(1)
	}
	if existing != nil {
		fmt.Printf("INFO: Account with email %s already exists\n", email)
		fmt.Println("Exiting successfully (no action taken)")
		os.Exit(0)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	account := &models.Account{
		Email:        email,
		PasswordHash: string(passwordHash),
		Enabled:      true,
	}
	if err := repo.Create(ctx, account); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to create account: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("SUCCESS: Bootstrap account created")
	fmt.Printf("Email: %s\n", account.Email)
	fmt.Printf("ID: %s\n", account.ID)
	fmt.Println("\nUnset ACCOUNT_BOOTSTRAP_EMAIL and ACCOUNT_BOOTSTRAP_PASSWORD once you have logged in.")
}
