package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jask/modelhub/internal/config"
	"github.com/jask/modelhub/internal/journal"
	"github.com/jask/modelhub/internal/logging"
	"github.com/jask/modelhub/internal/registry"
	"github.com/jask/modelhub/internal/session"
	"github.com/jask/modelhub/internal/tui"
)

// env is what every command needs once configuration is resolved.
type env struct {
	cfgPath string
	cfg     config.Config
	log     *zap.SugaredLogger
	client  *registry.Client
}

func (e *env) explorer() registry.Explorer {
	return registry.Explorer{BaseURL: e.cfg.Explorer.BaseURL, Network: e.cfg.Explorer.Network}
}

// openJournal returns nil when the journal cannot be opened; history is
// optional and never blocks a submission.
func (e *env) openJournal() *journal.Journal {
	j, err := journal.Open(e.cfg.Journal.Path)
	if err != nil {
		e.log.Warnw("journal unavailable", "path", e.cfg.Journal.Path, "error", err)
		return nil
	}
	return j
}

func main() {
	v := config.New()
	var cfgPath string
	var e *env

	rootCmd := &cobra.Command{
		Use:   "modelhub",
		Short: "Console for a community-governed model registry",
		Long: `modelhub browses approved and pending models, uploads new models
for community voting, and requests aggregations of approved models.

Run without a subcommand for the interactive console.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			e, err = setup(v, cfgPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e != nil {
				_ = e.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd.Context(), e)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/modelhub/config.toml)")
	rootCmd.PersistentFlags().String("api-url", "", "registry base URL (overrides API_URL)")
	_ = v.BindPFlag("api.url", rootCmd.PersistentFlags().Lookup("api-url"))

	envFn := func() *env { return e }
	rootCmd.AddCommand(
		listCmd(envFn, session.Approved),
		listCmd(envFn, session.Pending),
		uploadCmd(envFn),
		aggregateCmd(envFn),
		fetchCmd(envFn),
		configCmd(envFn),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func setup(v *viper.Viper, cfgPath string) (*env, error) {
	cfg, err := config.Read(v, cfgPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	client, err := registry.NewClient(cfg.API.URL, cfg.API.Timeout, registry.WithUploadTimeout(cfg.API.UploadTimeout))
	if err != nil {
		return nil, err
	}
	log.Infow("modelhub starting", "api_url", client.BaseURL())
	return &env{cfgPath: cfgPath, cfg: cfg, log: log, client: client}, nil
}

func runConsole(ctx context.Context, e *env) error {
	dispatcher := session.NewAsyncDispatcher(e.client, e.cfg.API.Timeout, e.log.Named("dispatch"))
	opts := tui.Options{
		Backend:    e.client,
		Dispatcher: dispatcher,
		Explorer:   e.explorer(),
		Config:     e.cfg,
		Log:        e.log,
	}
	if j := e.openJournal(); j != nil {
		defer j.Close()
		opts.Journal = j
	}
	err := tui.Run(ctx, opts)
	dispatcher.Wait()
	return err
}
