// Command seedadmin creates or resets an administrator account. The API does
// not expose admin registration, so operators run this once against a fresh
// database and again whenever an admin password must be rotated offline.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ndthanh/qltv-api/pkg/config"
	"github.com/ndthanh/qltv-api/pkg/database"
)

func main() {
	var (
		username string
		password string
		fullname string
		email    string
		timeout  time.Duration
	)

	flag.StringVar(&username, "username", "admin", "Login name for the admin account")
	flag.StringVar(&password, "password", "", "Plaintext password to hash and store (required)")
	flag.StringVar(&fullname, "fullname", "Administrator", "Display name")
	flag.StringVar(&email, "email", "", "Contact email")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Database operation timeout")
	flag.Parse()

	if password == "" {
		log.Fatal("-password is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	const query = `INSERT INTO admins (username, password_hash, fullname, email, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, TRUE, $5, $5)
        ON CONFLICT (username)
        DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at`

	if _, err := db.ExecContext(ctx, query, username, string(hash), fullname, email, time.Now().UTC()); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	log.Printf("admin account %q is ready", username)
}
