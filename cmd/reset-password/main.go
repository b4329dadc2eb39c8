package main

import (
	"context"
	"flag"
	"log"

	"go-fulfillment-ws/internal/config"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/pkg/database"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	email := flag.String("email", "", "account to reset")
	password := flag.String("password", "", "new password (min 6 characters)")
	flag.Parse()

	if *email == "" || len(*password) < 6 {
		log.Fatal("usage: reset-password -email admin@example.com -password <new password>")
	}

	// 1. Load Env
	cfg := config.Load()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	// 3. Find user
	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("User %s not found in database: %v", *email, err)
	}

	// 4. Hash new password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	// 5. Update and end any open session
	if err := users.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		log.Fatalf("Failed to update password in DB: %v", err)
	}
	if err := users.UpdateTokenVersion(ctx, user.ID, uuid.NewString()); err != nil {
		log.Fatalf("Failed to revoke sessions: %v", err)
	}

	log.Printf("Password for %s has been reset", user.Email)
}
