package main

import (
	"fmt"
	"os"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/spf13/cobra"

	"github.com/Notifuse/mailblocks/config"
	"github.com/Notifuse/mailblocks/internal/domain"
	"github.com/Notifuse/mailblocks/internal/service"
	"github.com/Notifuse/mailblocks/pkg/logger"
)

// loadConfig is swapped in tests
var loadConfig = config.Load

func newRootCmd() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for the Mailblocks API",
		Long: `Issue an HS256 bearer token signed with JWT_SECRET.

The token carries the user id as subject and is accepted by every
authenticated /api route.`,
		Example: `  JWT_SECRET=... token --user-id 42 --email dev@example.com
  token --user-id 42 --email dev@example.com --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user-id is required")
			}
			if !govalidator.IsEmail(email) {
				return fmt.Errorf("--email must be a valid email address")
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			if ttl > 0 {
				cfg.Security.TokenTTL = ttl
			}

			authService, err := service.NewAuthService(service.AuthServiceConfig{
				Secret:   cfg.Security.JWTSecret,
				Issuer:   cfg.Security.JWTIssuer,
				Audience: cfg.Security.JWTAudience,
				TokenTTL: cfg.Security.TokenTTL,
				Logger:   logger.NewLoggerWithLevel("error"),
			})
			if err != nil {
				return err
			}

			auth, err := authService.IssueToken(&domain.User{ID: userID, Email: email})
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, auth.Token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", auth.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "subject of the token")
	cmd.Flags().StringVar(&email, "email", "", "email claim of the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "lifetime of the token, defaults to JWT_TTL")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
