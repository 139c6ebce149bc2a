// Command devtoken prints an access token for a user id, signed with the
// configured JWT secret, for calling the API locally.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"example.com/budget-tracker/internal/auth"
	"example.com/budget-tracker/internal/config"
)

func main() {
	user := flag.String("user", "", "user id (uuid) to issue the token for")
	flag.Parse()

	userID, err := uuid.Parse(*user)
	if err != nil {
		slog.Error("invalid -user", slog.String("error", err.Error()))
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	manager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	token, expiresAt, err := manager.NewAccessToken(userID)
	if err != nil {
		slog.Error("failed to sign token", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println(token)
	slog.Info("token issued", slog.String("user_id", userID.String()), slog.Time("expires_at", expiresAt))
}
