package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/raigen/pkg/api"
	"github.com/harrisonrobin/raigen/pkg/auth"
	"github.com/harrisonrobin/raigen/pkg/config"
	"github.com/harrisonrobin/raigen/pkg/logging"
	"github.com/harrisonrobin/raigen/pkg/model"
	"github.com/harrisonrobin/raigen/pkg/push"
	"github.com/harrisonrobin/raigen/pkg/session"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	userID     string
	logLevel   string
	console    bool
}

// env is everything a command needs once configuration is loaded.
type env struct {
	cfg      *config.Config
	client   *api.Client
	orch     *session.Orchestrator
	identity model.Identity
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, session.UserMessage(err))
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "raigen",
		Short:         "Plan your day against your Google Calendar",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/raigen/config.json)")
	root.PersistentFlags().StringVar(&opts.userID, "user", "", "user id (overrides config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&opts.console, "log-console", false, "human-readable logs on stderr")

	root.AddCommand(
		newConnectCmd(opts),
		newPlanCmd(opts),
		newAgendaCmd(opts),
		newBlockCmd(opts),
		newPushCmd(opts),
		newBootstrapCmd(opts),
		newConfigCmd(opts),
		newUICmd(opts),
	)
	return root
}

func loadConfig(opts *globalOptions) (*config.Config, error) {
	if opts.configPath != "" {
		return config.LoadFile(opts.configPath)
	}
	return config.Load()
}

func saveConfig(opts *globalOptions, cfg *config.Config) error {
	if opts.configPath != "" {
		return config.SaveFile(opts.configPath, cfg)
	}
	return config.Save(cfg)
}

// setup loads configuration, configures logging and wires the orchestrator.
// Logs go to stderr.
func setup(opts *globalOptions) (*env, error) {
	return setupWithLog(opts, nil)
}

// setupWithLog is setup with logs written to logOut. Components capture their
// logger when built, so logging is configured before anything else.
func setupWithLog(opts *globalOptions, logOut io.Writer) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logging.Configure(logging.Config{Level: level, Output: logOut, Console: opts.console})

	identity := model.Identity(cfg.UserID)
	if opts.userID != "" {
		identity = model.Identity(opts.userID)
	}

	client := api.NewClient(cfg.APIURL, api.WithTimeout(cfg.Timeout()))

	registrar := push.NewRegistrar(push.StaticPlatform{Token: cfg.PushToken}, client)

	flow := &auth.Flow{
		ClientID:    cfg.GoogleClientID,
		RedirectURI: auth.RedirectURI(cfg.Scheme, cfg.AuthPort),
		Launcher:    auth.NewLauncher(cfg.Scheme, cfg.AuthPort, os.Stdin, os.Stdout),
		Backend:     client,
	}

	log := logging.WithComponent("main")
	log.Debug().
		Str("api_url", client.BaseURL()).
		Str("user_id", string(identity)).
		Msg("configured")

	return &env{
		cfg:      cfg,
		client:   client,
		orch:     session.New(client, registrar, flow),
		identity: identity,
	}, nil
}
