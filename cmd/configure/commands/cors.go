package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonna-ai/sonna/internal/database"
	"github.com/sonna-ai/sonna/internal/models"
)

// NewCorsCmd creates the cors configuration command with get and set
// subcommands.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage the stored CORS policy",
		Long:  "Get or update the allowed origins the API serves cross-origin requests for. The server hot-reloads changes.",
	}
	cmd.AddCommand(newCorsGetCmd())
	cmd.AddCommand(newCorsSetCmd())
	return cmd
}

func newCorsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the stored CORS policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closer, err := openDB()
			if err != nil {
				return err
			}
			defer closer()

			c, err := database.NewCorsConfigRepository(db).Get(context.Background())
			if err != nil {
				return fmt.Errorf("get cors policy: %w", err)
			}
			if c == nil {
				fmt.Println("No stored CORS policy; the server falls back to its built-in default.")
				return nil
			}

			fmt.Println("CORS policy:")
			fmt.Printf("  Allowed origins:   %s\n", c.AllowedOrigins)
			fmt.Printf("  Allow credentials: %v\n", c.AllowCredentials)
			fmt.Printf("  Max age:           %ds\n", c.MaxAge)
			return nil
		},
	}
}

func newCorsSetCmd() *cobra.Command {
	var (
		origins    []string
		allowCreds bool
		maxAge     int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the stored CORS policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cleaned []string
			for _, o := range origins {
				o = strings.TrimSpace(o)
				if o == "" {
					continue
				}
				if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
					return fmt.Errorf("origin %q must be * or start with http:// or https://", o)
				}
				cleaned = append(cleaned, o)
			}
			if len(cleaned) == 0 {
				return fmt.Errorf("at least one --origin is required")
			}

			db, closer, err := openDB()
			if err != nil {
				return err
			}
			defer closer()

			c := &models.CorsConfig{
				AllowedOrigins:   strings.Join(cleaned, ","),
				AllowCredentials: allowCreds,
				MaxAge:           maxAge,
			}
			if err := database.NewCorsConfigRepository(db).Set(context.Background(), c); err != nil {
				return fmt.Errorf("set cors policy: %w", err)
			}

			fmt.Println("CORS policy updated. The server picks it up on the next reload.")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&origins, "origin", nil, "Allowed origin (repeatable)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", true, "Allow credentialed requests")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Preflight cache lifetime in seconds")
	return cmd
}
