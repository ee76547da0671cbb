// Command mprctl runs maintenance tasks against the MPR database
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/config"
	"github.com/xelth-com/mprgo/internal/database"
	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/logging"
	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository"
	"github.com/xelth-com/mprgo/internal/services/accounting"
	"github.com/xelth-com/mprgo/internal/utils"
)

// env is the shared state every subcommand opens
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *database.DB
}

func open() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) close() {
	if err := e.db.Close(); err != nil {
		e.log.Error("database close error", zap.Error(err))
	}
	_ = e.log.Sync()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "mprctl",
		Short:         "Maintenance tasks for the MPR backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(), createUserCmd(), syncCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mprctl: %v\n", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.db.Migrate(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			e.log.Info("schema synchronized")
			return nil
		},
	}
}

func createUserCmd() *cobra.Command {
	var (
		password  string
		name      string
		role      string
		managerID string
	)
	cmd := &cobra.Command{
		Use:   "create-user <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := identity.ParseRole(role)
			if err != nil {
				return err
			}
			if parsed == identity.RoleAgent && managerID == "" {
				return fmt.Errorf("--manager-id is required for role %s", parsed)
			}
			if password == "" {
				password = os.Getenv("MPR_PASSWORD")
			}
			if err := utils.ValidateValue(password, "min=8,max=72"); err != nil {
				return fmt.Errorf("password: %w", err)
			}

			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			hash, err := utils.HashPassword(password)
			if err != nil {
				return err
			}
			user := &models.UserAuth{
				Username: strings.TrimSpace(args[0]),
				Password: hash,
				Name:     name,
				Role:     parsed.String(),
				IsActive: true,
			}
			if managerID != "" {
				user.ManagerID = &managerID
			}

			store := repository.New(e.db.DB)
			if err := store.CreateUser(cmd.Context(), user); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return fmt.Errorf("username or manager id already taken")
				}
				return err
			}
			e.log.Info("user created", zap.String("user", user.Username), zap.String("role", user.Role), zap.String("id", user.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password (default $MPR_PASSWORD)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(identity.RoleAgent), "MPR, OFFICE or 1S")
	cmd.Flags().StringVar(&managerID, "manager-id", "", "external manager id, required for MPR")
	return cmd
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one accounting catalog sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			if !e.cfg.Accounting.Enabled() {
				return fmt.Errorf("accounting gateway is not configured (ACCOUNTING_URL, ACCOUNTING_USER)")
			}

			store := repository.New(e.db.DB)
			svc := accounting.NewSyncService(accounting.NewClient(e.cfg.Accounting), store, 0, e.log)
			run, err := svc.RunOnce(cmd.Context(), accounting.TriggerCLI)
			if err != nil {
				return err
			}

			fmt.Printf("status:   %s\nclients:  %d\nproducts: %d\nprices:   %d\n",
				run.Status, run.Clients, run.Products, run.Prices)
			if run.Status == accounting.StatusError {
				return fmt.Errorf("sync failed")
			}
			return nil
		},
	}
}
