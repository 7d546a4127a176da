package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/intervue-backend/internal/config"
	"github.com/stemsi/intervue-backend/internal/database"
	"github.com/stemsi/intervue-backend/internal/logger"
	"github.com/stemsi/intervue-backend/internal/model"
	"github.com/stemsi/intervue-backend/internal/repository"
	"github.com/stemsi/intervue-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	var reset bool
	flag.BoolVar(&reset, "reset-password", false, "Reset the password of an existing candidate instead of creating one")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "")

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	// Hashing needs no Redis; tokens are never issued here.
	authService := service.NewAuthService(cfg, nil)
	candidateRepo := repository.NewCandidateRepository(pool)
	candidateService := service.NewCandidateService(candidateRepo, authService)

	reader := bufio.NewReader(os.Stdin)

	if reset {
		fmt.Println("=== Reset Candidate Password ===")
		email := prompt(reader, "Enter Email: ")
		if email == "" {
			fmt.Println("Error: Email is required")
			return
		}
		c, err := candidateRepo.GetByEmail(ctx, email)
		if err != nil {
			fmt.Printf("Error: no candidate with email %s\n", email)
			return
		}
		password, ok := promptPassword()
		if !ok {
			return
		}
		hash, err := authService.HashPassword(password)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		if err := candidateRepo.UpdatePassword(ctx, c.ID, hash); err != nil {
			log.Fatal().Err(err).Msg("Failed to update password")
		}
		fmt.Printf("\nPassword updated for '%s' (%s)\n", c.Name, c.Email)
		return
	}

	fmt.Println("=== Create New Candidate ===")

	name := prompt(reader, "Enter Name: ")
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	email := prompt(reader, "Enter Email: ")
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	password, ok := promptPassword()
	if !ok {
		return
	}

	candidate, err := candidateService.Register(ctx, model.RegisterRequest{
		Name:            name,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	if errors.Is(err, service.ErrEmailTaken) {
		fmt.Printf("Error: %s is already registered\n", email)
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create candidate")
	}

	if target := prompt(reader, "Enter Target Position (optional): "); target != "" {
		if _, err := candidateService.UpdateProfile(ctx, candidate.ID, model.UpdateProfileRequest{TargetPosition: target}); err != nil {
			log.Warn().Err(err).Msg("Failed to store target position")
		}
	}

	fmt.Printf("\nSuccess! Candidate '%s' (%s) created with ID: %d\n", candidate.Name, candidate.Email, candidate.ID)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword() (string, bool) {
	fmt.Print("Enter Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		return "", false
	}
	if len(raw) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return "", false
	}
	return string(raw), true
}
