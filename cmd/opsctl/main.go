package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"order-service/config"
	"order-service/internal/app"
	"order-service/internal/migrate"
	"order-service/internal/token"
	"order-service/pkg/database"
	"order-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := newRootCmd(logger.L()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(log *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Операционные команды order-service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newMigrateCmd(log),
		newReconcileCmd(log),
		newSweepCmd(log),
		newSyncCmd(log),
		newTokenCmd(log),
	)
	return root
}

// withApp поднимает БД и граф сервисов на время одной команды.
func withApp(log *zap.Logger, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	a, err := app.Build(cfg, db, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return fn(ctx, a)
}

func newMigrateCmd(log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить схему БД",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(log)
			db := database.ConnectDBForMigration(&cfg.DB.Config, log)
			defer database.CloseDB(db, log)
			return migrate.MigrateOrderDB(cmd.Context(), db, log, migrate.DefaultMigrateOptions())
		},
	}
}

func newReconcileCmd(log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Один проход опроса шлюзов по pending-платежам",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(log, func(ctx context.Context, a *app.App) error {
				st, err := a.Reconciler.PollPending(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "checked=%d paid=%d failed=%d pending=%d errors=%d\n",
					st.Checked, st.Paid, st.Failed, st.Pending, st.Errors)
				return nil
			})
		},
	}
}

func newSweepCmd(log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Перевести в shipped заказы, все позиции которых отгружены",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(log, func(ctx context.Context, a *app.App) error {
				n, err := a.Sync.Sweep(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "orders promoted: %d\n", n)
				return nil
			})
		},
	}
}

func newSyncCmd(log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <order-id>",
		Short: "Пересчитать статус одного заказа",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid order id: %w", err)
			}
			return withApp(log, func(ctx context.Context, a *app.App) error {
				changed, err := a.Sync.Sync(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "changed: %t\n", changed)
				return nil
			})
		},
	}
}

func newTokenCmd(log *zap.Logger) *cobra.Command {
	var (
		userID string
		role   string
		email  string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить access-токен для локальной отладки",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(log)
			uid := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}
				uid = parsed
			}
			p := token.NewHSProvider(cfg.JWT.AccessSecret, cfg.JWT.Issuer, cfg.JWT.Audience)
			tok, exp, err := p.SignAccess(cmd.Context(), uid, role, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user_id=%s expires=%s\n%s\n", uid, exp.Format(time.RFC3339), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (по умолчанию случайный)")
	cmd.Flags().StringVar(&role, "role", "ROLE_CUSTOMER", "ROLE_CUSTOMER | ROLE_VENDOR | ROLE_ADMIN")
	cmd.Flags().StringVar(&email, "email", "", "email покупателя для письма-подтверждения")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "срок жизни токена")
	return cmd
}
