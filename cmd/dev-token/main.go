// Command dev-token mints an access token for calling the API locally.
// It reads the signing secret the same way the server does, from
// NUTRI_AUTH_JWT_SECRET or config.yaml.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/phrazzld/nutritrack-api/internal/config"
	"github.com/phrazzld/nutritrack-api/internal/service/auth"
	"github.com/spf13/pflag"
)

func main() {
	owner := pflag.StringP("owner", "o", "", "owner ID to place in the token subject")
	lifetime := pflag.DurationP("lifetime", "l", 0, "token lifetime, e.g. 2h (defaults to the configured lifetime)")
	pflag.Parse()

	if err := run(context.Background(), os.Stdout, *owner, *lifetime); err != nil {
		fmt.Fprintf(os.Stderr, "dev-token: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, ownerID string, lifetime time.Duration) error {
	if ownerID == "" {
		return errors.New("--owner is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	authCfg := cfg.Auth
	if lifetime > 0 {
		minutes := int(lifetime / time.Minute)
		if minutes < 1 {
			return errors.New("lifetime must be at least one minute")
		}
		authCfg.TokenLifetimeMinutes = minutes
	}

	svc, err := auth.NewJWTService(authCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	token, err := svc.GenerateToken(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	_, err = fmt.Fprintln(w, token)
	return err
}
