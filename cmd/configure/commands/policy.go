package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sonna-ai/sonna/internal/config"
	"github.com/sonna-ai/sonna/internal/database"
	"github.com/sonna-ai/sonna/internal/models"
)

// NewPolicyCmd creates the policy configuration command with get and set
// subcommands.
func NewPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage scheduler policy",
		Long:  "Get or update the stored scheduler policy (snooze, ack timeout, retries, workers).",
	}
	cmd.AddCommand(newPolicyGetCmd())
	cmd.AddCommand(newPolicySetCmd())
	return cmd
}

func newPolicyGetCmd() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the effective scheduler policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closer, err := openDB()
			if err != nil {
				return err
			}
			defer closer()
			repo := database.NewPolicyConfigRepository(db)

			p, err := repo.Get(context.Background())
			if err != nil {
				return fmt.Errorf("get policy: %w", err)
			}
			if p == nil {
				fmt.Println("No stored policy; the engine runs on environment defaults.")
				p = models.DefaultSchedulerPolicy()
			}

			if asYAML {
				out, err := yaml.Marshal(p)
				if err != nil {
					return fmt.Errorf("marshal policy: %w", err)
				}
				fmt.Print(string(out))
				return nil
			}

			fmt.Println("Scheduler policy:")
			fmt.Printf("  Snooze duration:      %s\n", p.SnoozeDuration)
			fmt.Printf("  Ack timeout:          %s\n", p.AckTimeout)
			fmt.Printf("  Max snoozes:          %d\n", p.MaxSnoozes)
			fmt.Printf("  Grace window:         %s\n", p.GraceWindow)
			fmt.Printf("  Max dispatch retries: %d\n", p.MaxDispatchRetries)
			fmt.Printf("  Backoff base:         %s\n", p.BackoffBase)
			fmt.Printf("  Backoff cap:          %s\n", p.BackoffCap)
			fmt.Printf("  Workers:              %d\n", p.Workers)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the policy as YAML")
	return cmd
}

func newPolicySetCmd() *cobra.Command {
	var (
		file       string
		snooze     time.Duration
		ackTimeout time.Duration
		maxSnoozes int
		grace      time.Duration
		retries    int
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the stored scheduler policy",
		Long:  "Update individual policy fields, or replace the whole policy from a YAML file with --file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closer, err := openDB()
			if err != nil {
				return err
			}
			defer closer()
			repo := database.NewPolicyConfigRepository(db)

			ctx := context.Background()

			p, err := repo.Get(ctx)
			if err != nil {
				return fmt.Errorf("get policy: %w", err)
			}
			if p == nil {
				p = models.DefaultSchedulerPolicy()
			}

			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read policy file: %w", err)
				}
				if err := yaml.Unmarshal(data, p); err != nil {
					return fmt.Errorf("parse policy file: %w", err)
				}
			}

			if cmd.Flags().Changed("snooze") {
				p.SnoozeDuration = snooze
			}
			if cmd.Flags().Changed("ack-timeout") {
				p.AckTimeout = ackTimeout
			}
			if cmd.Flags().Changed("max-snoozes") {
				p.MaxSnoozes = maxSnoozes
			}
			if cmd.Flags().Changed("grace-window") {
				p.GraceWindow = grace
			}
			if cmd.Flags().Changed("max-retries") {
				p.MaxDispatchRetries = retries
			}
			if cmd.Flags().Changed("workers") {
				p.Workers = workers
			}

			if err := repo.Set(ctx, p); err != nil {
				return fmt.Errorf("set policy: %w", err)
			}

			fmt.Println("Scheduler policy updated. Restart the server to apply it.")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML file to load the policy from")
	cmd.Flags().DurationVar(&snooze, "snooze", 10*time.Minute, "Default snooze duration")
	cmd.Flags().DurationVar(&ackTimeout, "ack-timeout", 30*time.Minute, "Acknowledgement timeout")
	cmd.Flags().IntVar(&maxSnoozes, "max-snoozes", 5, "Maximum snoozes per reminder")
	cmd.Flags().DurationVar(&grace, "grace-window", 2*time.Minute, "Grace window for past fire times")
	cmd.Flags().IntVar(&retries, "max-retries", 5, "Maximum dispatch attempts")
	cmd.Flags().IntVar(&workers, "workers", 4, "Dispatch worker count")
	return cmd
}

// openDB connects to the configured database and returns it with a close
// function. Shared by the configuration subcommands.
func openDB() (*database.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	closer := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
	return db, closer, nil
}
