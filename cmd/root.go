package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cartCmd "github.com/Alturino/storefront/cart/cmd"
	"github.com/Alturino/storefront/internal/constants"
	notificationCmd "github.com/Alturino/storefront/notification/cmd"
	orderCmd "github.com/Alturino/storefront/order/cmd"
)

func Start() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Str(constants.KEY_APP_NAME, constants.APP_STOREFRONT).
		Str(constants.KEY_TAG, "main Start").
		Logger()

	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c = logger.WithContext(c)

	rootCmd := &cobra.Command{
		Use:          constants.APP_STOREFRONT,
		Short:        "Plantation storefront order intake and cart",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		orderCommand(),
		&cobra.Command{
			Use:   "notification",
			Short: "Run notification service",
			Run: func(cmd *cobra.Command, args []string) {
				notificationCmd.RunNotificationService(cmd.Context())
			},
		},
		cartCmd.NewCartCommand(),
	)
	if err := rootCmd.ExecuteContext(c); err != nil {
		stop()
		os.Exit(1)
	}
}

func orderCommand() *cobra.Command {
	order := &cobra.Command{
		Use:   "order",
		Short: "Run order service",
		Run: func(cmd *cobra.Command, args []string) {
			orderCmd.RunOrderService(cmd.Context())
		},
	}

	var (
		subject string
		ttl     time.Duration
	)
	token := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for GET /orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return orderCmd.IssueOperatorToken(cmd.Context(), cmd.OutOrStdout(), subject, ttl)
		},
	}
	token.Flags().StringVar(&subject, "subject", "operator", "token subject")
	token.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	order.AddCommand(token)

	return order
}
