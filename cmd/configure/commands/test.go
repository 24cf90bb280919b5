package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sonna-ai/sonna/internal/config"
	"github.com/sonna-ai/sonna/internal/database"
	"github.com/sonna-ai/sonna/internal/queue"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test infrastructure connectivity",
		Long:  "Verify the database, RabbitMQ, Redis, and JWKS endpoint are reachable with the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			fmt.Println("Testing database connection...")
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("database ping failed: %w", err)
			}
			fmt.Println("✓ Database is reachable")

			fmt.Println("\nTesting RabbitMQ connection...")
			bus, err := queue.NewRabbitMQBus(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				if err := bus.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close RabbitMQ connection: %v\n", err)
				}
			}()
			if err := bus.HealthCheck(ctx); err != nil {
				return fmt.Errorf("RabbitMQ health check failed: %w", err)
			}
			fmt.Println("✓ RabbitMQ is reachable")

			fmt.Println("\nTesting Redis connection...")
			redisOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("invalid Redis URL: %w", err)
			}
			redisClient := redis.NewClient(redisOpts)
			defer func() {
				if err := redisClient.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close Redis connection: %v\n", err)
				}
			}()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("Redis ping failed: %w", err)
			}
			fmt.Println("✓ Redis is reachable")

			if cfg.JWKSURL != "" {
				fmt.Printf("\nTesting JWKS endpoint: %s\n", cfg.JWKSURL)
				client := &http.Client{Timeout: 10 * time.Second}
				resp, err := client.Get(cfg.JWKSURL)
				if err != nil {
					return fmt.Errorf("failed to reach JWKS endpoint: %w", err)
				}
				defer func() {
					if err := resp.Body.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
					}
				}()
				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("JWKS endpoint returned status: %d", resp.StatusCode)
				}
				fmt.Println("✓ JWKS endpoint is accessible")
			}

			fmt.Println("\n✓ All connectivity tests passed")
			return nil
		},
	}

	return cmd
}
