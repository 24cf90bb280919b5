package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sonna-ai/sonna/internal/config"
	"github.com/sonna-ai/sonna/internal/database"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all stored configuration",
		Long:  "Show the scheduler policy, rate limit, and CORS settings stored in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			ctx := context.Background()

			policy, err := database.NewPolicyConfigRepository(db).Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to get policy: %w", err)
			}
			if policy == nil {
				fmt.Println("Scheduler policy: not stored (environment defaults apply)")
			} else {
				fmt.Println("Scheduler policy:")
				fmt.Printf("  Snooze duration:      %s\n", policy.SnoozeDuration)
				fmt.Printf("  Ack timeout:          %s\n", policy.AckTimeout)
				fmt.Printf("  Max snoozes:          %d\n", policy.MaxSnoozes)
				fmt.Printf("  Grace window:         %s\n", policy.GraceWindow)
				fmt.Printf("  Max dispatch retries: %d\n", policy.MaxDispatchRetries)
				fmt.Printf("  Workers:              %d\n", policy.Workers)
			}
			fmt.Println()

			ratelimit, err := database.NewRatelimitConfigRepository(db).Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to get ratelimit config: %w", err)
			}
			if ratelimit == nil {
				fmt.Println("Rate limit: not stored")
			} else {
				fmt.Printf("Rate limit: %s\n", ratelimit.Rate)
			}
			fmt.Println()

			cors, err := database.NewCorsConfigRepository(db).Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to get cors config: %w", err)
			}
			if cors == nil {
				fmt.Println("CORS: not stored")
			} else {
				fmt.Printf("CORS origins: %s (credentials: %v, max-age: %d)\n",
					cors.AllowedOrigins, cors.AllowCredentials, cors.MaxAge)
			}

			return nil
		},
	}

	return cmd
}
