package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/cart/internal/client"
	"github.com/Alturino/storefront/cart/internal/render"
	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/cart/internal/storage"
	"github.com/Alturino/storefront/cart/pkg/model"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
)

type cartApp struct {
	service  *service.CartService
	shutdown []func()
	verbose  bool
	html     bool
	yes      bool
}

func (app *cartApp) close() {
	for i := len(app.shutdown) - 1; i >= 0; i-- {
		app.shutdown[i]()
	}
}

// NewCartCommand builds the terminal front end of the cart. Every subcommand works on the cart of
// the configured session.
func NewCartCommand() *cobra.Command {
	app := &cartApp{}

	root := &cobra.Command{
		Use:   "cart",
		Short: "Manage the storefront cart",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "write logs to stderr")
	root.PersistentFlags().BoolVar(&app.html, "html", false, "render the cart as html")

	root.AddCommand(
		showCommand(app),
		addCommand(app),
		setCommand(app),
		stepCommand(app, "inc", "Increase the quantity of a line by 1 kg", 1),
		stepCommand(app, "dec", "Decrease the quantity of a line by 1 kg", -1),
		removeCommand(app),
		clearCommand(app),
		checkoutCommand(app),
		shareCommand(app),
		pendingCommand(app),
		watchCommand(app),
	)
	return root
}

func (app *cartApp) init(cmd *cobra.Command) error {
	c := cmd.Context()
	cfg := config.Get(c, constants.APP_CART)

	console := io.Writer(io.Discard)
	if app.verbose {
		console = zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}
	}
	logger := log.Get(filepath.Join(cfg.Application.LogDir, constants.APP_CART+".log"), cfg.Application, console).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_CART).
		Str(constants.KEY_SESSION, cfg.Storefront.Session).
		Logger()
	c = logger.WithContext(c)

	shutdownFuncs, err := inOtel.InitOtelSdk(c, constants.APP_CART, cfg.Otel)
	if err != nil {
		return fmt.Errorf("failed initializing otel sdk with error=%w", err)
	}
	app.shutdown = append(app.shutdown, func() {
		if err := inOtel.ShutdownOtel(context.WithoutCancel(c), shutdownFuncs); err != nil {
			logger.Error().Err(err).Msg("failed shutting down otel")
		}
	})

	origin := uuid.NewString()
	store, err := app.newStore(c, cfg, origin)
	if err != nil {
		return err
	}

	var view service.View = render.NewTextView(cmd.OutOrStdout())
	if app.html {
		view = render.NewHTMLView(cmd.OutOrStdout())
	}

	app.service = service.NewCartService(
		repository.NewCartRepository(store, origin),
		view,
		client.NewOrderClient(cfg.Storefront.OrderURL, cfg.Storefront.RequestTimeout),
		cfg.Storefront.ShareNumber,
	)
	cmd.SetContext(c)
	return nil
}

func (app *cartApp) newStore(c context.Context, cfg *config.Config, origin string) (storage.Store, error) {
	switch cfg.Storefront.Store {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "redis":
		cache, err := infra.NewCacheClient(c, cfg.Cache)
		if err != nil {
			return nil, err
		}
		app.shutdown = append(app.shutdown, func() { _ = cache.Close() })
		return storage.NewRedisStore(cache, cfg.Storefront.Session), nil
	default:
		return storage.NewFileStore(cfg.Storefront.StorePath, origin)
	}
}

func showCommand(app *cartApp) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cart and its totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.Render(cmd.Context())
		},
	}
}

func addCommand(app *cartApp) *cobra.Command {
	line := model.CartLine{}
	var qty string
	cmd := &cobra.Command{
		Use:   "add <sku>",
		Short: "Add a product to the cart or increase its quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line.Sku = args[0]
			if line.Name == "" {
				line.Name = strings.TrimSpace(args[0])
			}
			line.QtyKg = float64(model.CoerceQuantity(qty))
			return app.service.Add(cmd.Context(), line)
		},
	}
	cmd.Flags().StringVar(&line.Name, "name", "", "display name")
	cmd.Flags().StringVar(&line.Img, "img", "", "image url")
	cmd.Flags().Float64Var(&line.Price, "price", 0, "price per kg")
	cmd.Flags().StringVar(&qty, "qty", "1", "quantity in kg")
	return cmd
}

func setCommand(app *cartApp) *cobra.Command {
	return &cobra.Command{
		Use:   "set <sku> <qty>",
		Short: "Set the quantity of a line, anything below 1 becomes 1",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.SetQuantity(cmd.Context(), args[0], args[1])
		},
	}
}

func stepCommand(app *cartApp, use string, short string, delta int) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <sku>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.IncrementQuantity(cmd.Context(), args[0], delta)
		},
	}
}

func removeCommand(app *cartApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <sku>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.confirm(cmd, "Remove this item?") {
				return nil
			}
			return app.service.Remove(cmd.Context(), args[0])
		},
	}
	cmd.Flags().BoolVarP(&app.yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func clearCommand(app *cartApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.confirm(cmd, "Clear cart?") {
				return nil
			}
			return app.service.Clear(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&app.yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func customerFlags(cmd *cobra.Command, details *service.CustomerDetails) {
	cmd.Flags().StringVar(&details.Name, "name", "", "customer name")
	cmd.Flags().StringVar(&details.Phone, "phone", "", "customer phone")
	cmd.Flags().StringVar(&details.Address, "address", "", "delivery address")
}

func checkoutCommand(app *cartApp) *cobra.Command {
	details := service.CustomerDetails{}
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Send the cart as an order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.service.Submit(cmd.Context(), details)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
	customerFlags(cmd, &details)
	return cmd
}

func shareCommand(app *cartApp) *cobra.Command {
	details := service.CustomerDetails{}
	var link bool
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print the order as text for a messaging app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if link {
				fmt.Fprintln(cmd.OutOrStdout(), app.service.ShareLink(cmd.Context(), details))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), app.service.BuildShareText(cmd.Context(), details))
			return nil
		},
	}
	customerFlags(cmd, &details)
	cmd.Flags().BoolVar(&link, "link", false, "print a deep link instead of the text")
	return cmd
}

func pendingCommand(app *cartApp) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Print orders that could not be submitted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pending, err := app.service.PendingOrders(cmd.Context())
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(pending)
		},
	}
}

func watchCommand(app *cartApp) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-render the cart whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.service.Render(cmd.Context()); err != nil {
				return err
			}
			err := app.service.Watch(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func (app *cartApp) confirm(cmd *cobra.Command, question string) bool {
	if app.yes {
		return true
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	ok, _ := strconv.ParseBool(answer)
	return ok || answer == "y" || answer == "yes"
}
