package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"

	"github.com/sonna-ai/sonna/internal/database"
	"github.com/sonna-ai/sonna/internal/models"
)

// NewRatelimitCmd creates the ratelimit configuration command with get and
// set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage the stored API rate limit",
		Long:  "Get or update the per-client request rate. The server hot-reloads changes.",
	}
	cmd.AddCommand(newRatelimitGetCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the stored rate limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closer, err := openDB()
			if err != nil {
				return err
			}
			defer closer()

			c, err := database.NewRatelimitConfigRepository(db).Get(context.Background())
			if err != nil {
				return fmt.Errorf("get rate limit: %w", err)
			}
			if c == nil {
				fmt.Println("No stored rate limit; the server falls back to its built-in default.")
				return nil
			}

			rate, err := limiter.NewRateFromFormatted(c.Rate)
			if err != nil {
				fmt.Printf("Stored rate %q is invalid (%v); the server ignores it.\n", c.Rate, err)
				return nil
			}
			fmt.Printf("Rate limit: %d requests per %s (%s)\n", rate.Limit, rate.Period, c.Rate)
			return nil
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var rate string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the stored rate limit",
		Long:  "Update the per-client rate in limit-period form: 5-S, 100-M or 1000-H.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if rate == "" {
				return fmt.Errorf("--rate is required, in limit-period form (5-S, 100-M, 1000-H)")
			}
			if _, err := limiter.NewRateFromFormatted(rate); err != nil {
				return fmt.Errorf("invalid rate %q: %w", rate, err)
			}

			db, closer, err := openDB()
			if err != nil {
				return err
			}
			defer closer()

			c := &models.RatelimitConfig{Rate: rate}
			if err := database.NewRatelimitConfigRepository(db).Set(context.Background(), c); err != nil {
				return fmt.Errorf("set rate limit: %w", err)
			}

			fmt.Println("Rate limit updated. The server picks it up on the next reload.")
			return nil
		},
	}

	cmd.Flags().StringVar(&rate, "rate", "", "Rate in limit-period form (5-S, 100-M, 1000-H)")
	return cmd
}
