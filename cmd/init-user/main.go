package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/simple-dashboard/pkg/directory"
)

type Config struct {
	UserDataDir string `env:"USER_DATA_DIR" env-default:"./data"`
}

func main() {
	// Parse command line arguments
	email := flag.String("email", "", "Email for the new user (required)")
	firstName := flag.String("first-name", "", "First name for the new user (required)")
	lastName := flag.String("last-name", "", "Last name for the new user (required)")
	roleName := flag.String("role", "user", "Role to assign to the user")
	flag.Parse()

	if *email == "" || *firstName == "" || *lastName == "" {
		fmt.Fprintf(os.Stderr, "Error: -email, -first-name and -last-name are required\n")
		flag.Usage()
		os.Exit(1)
	}

	config := Config{}
	cleanenv.ReadEnv(&config)

	userRepo, err := directory.NewFileUserRepository(config.UserDataDir)
	if err != nil {
		slog.Error("Failed creating user repository", "err", err)
		os.Exit(-1)
	}

	ctx := context.Background()
	if existing, err := userRepo.GetUserByEmail(ctx, *email); err == nil {
		slog.Error("User already exists", "email", *email, "id", existing.ID)
		os.Exit(1)
	}

	user, err := userRepo.AddUser(ctx, directory.User{
		Email:     *email,
		FirstName: *firstName,
		LastName:  *lastName,
		Role:      *roleName,
	})
	if err != nil {
		slog.Error("Failed creating user", "email", *email, "err", err)
		os.Exit(1)
	}

	slog.Info("User created", "id", user.ID, "email", user.Email, "role", user.Role)
}
