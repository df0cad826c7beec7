package main

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/grahaedukasi/graha-cbt/internal/config"
)

// Prints an ADMIN_PASSWORD_HASH line for .env.
func main() {
	cfg := config.Load()

	fmt.Println("=== Generate Admin Password Hash ===")

	password, err := prompt("Enter Password: ")
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		os.Exit(1)
	}

	confirm, err := prompt("Confirm Password: ")
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	if confirm != password {
		fmt.Println("Error: Passwords do not match")
		os.Exit(1)
	}

	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		fmt.Printf("Error hashing password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nADMIN_EMAIL=%s\n", cfg.AdminEmail)
	fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", hash)
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
