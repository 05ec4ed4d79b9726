package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sms-terminal/smsterm/internal/app"
	"github.com/sms-terminal/smsterm/internal/bus"
	"github.com/sms-terminal/smsterm/internal/cache"
	"github.com/sms-terminal/smsterm/internal/compose"
	"github.com/sms-terminal/smsterm/internal/config"
	"github.com/sms-terminal/smsterm/internal/notify"
	"github.com/sms-terminal/smsterm/internal/router"
	"github.com/sms-terminal/smsterm/internal/store"
	"github.com/sms-terminal/smsterm/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var flags struct {
	configPath     string
	host           string
	httpURI        string
	wsURI          string
	wsEnabled      bool
	auth           string
	sslCertificate string
	theme          string
}

var rootCmd = &cobra.Command{
	Use:   "smsterm",
	Short: "Terminal SMS client",
	Long:  "A terminal client for an SMS gateway: phonebook, conversations, compose, live delivery of incoming messages.",
}

func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runTUI(tui.ViewPhonebook, "")
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file path (default ~/.smsterm/config.toml)")
	pf.StringVar(&flags.host, "host", "", "server host for HTTP and WebSocket (e.g. localhost:3000)")
	pf.StringVar(&flags.httpURI, "http-uri", "", "HTTP URI, overrides the host if set")
	pf.StringVar(&flags.wsURI, "ws-uri", "", "WebSocket URI, overrides the host if set")
	pf.BoolVar(&flags.wsEnabled, "ws-enabled", false, "enable WebSocket support")
	pf.StringVar(&flags.auth, "auth", "", "authorization token for HTTP and WebSocket requests")
	pf.StringVar(&flags.sslCertificate, "ssl-certificate", "", "SSL certificate filepath")
	pf.StringVar(&flags.theme, "theme", "", "built-in theme to start with")
}

// resolveConfig loads the config file and applies CLI overrides, which
// always take priority over file values.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	path := flags.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flags.host != "" {
		cfg.Host = flags.host
	}
	if flags.httpURI != "" {
		cfg.HTTPURI = flags.httpURI
	}
	if flags.wsURI != "" {
		cfg.WSURI = flags.wsURI
	}
	if cmd.Flags().Changed("ws-enabled") {
		cfg.WSEnabled = flags.wsEnabled
	}
	if flags.auth != "" {
		cfg.Auth = flags.auth
	}
	if flags.sslCertificate != "" {
		if _, err := os.Stat(flags.sslCertificate); err != nil {
			return nil, fmt.Errorf("ssl certificate: %w", err)
		}
		cfg.SSLCertificate = flags.sslCertificate
	}
	if flags.theme != "" {
		cfg.Theme = flags.theme
	}
	return cfg, nil
}

func runTUI(view tui.StartView, phone string) error {
	cfg, err := resolveConfig(rootCmd)
	if err != nil {
		return err
	}

	var (
		rt     *router.Router
		c      *cache.Cache
		center *notify.Center
		db     *store.DB
		b      *bus.Bus
	)
	fxApp := fx.New(
		app.Module(app.Params{Config: cfg}),
		fx.Populate(&rt, &c, &center, &db, &b),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return err
	}

	ui := tui.NewApp(rt, c, center, db, b, tui.Options{
		StartView:   view,
		PhoneNumber: phone,
		Theme:       cfg.Theme,
		Limits:      compose.Limits{GSM7: cfg.PartLimitGSM7, UCS2: cfg.PartLimitUCS2},
	})
	runErr := ui.Run()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	if err := fxApp.Stop(stopCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
