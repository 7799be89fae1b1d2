package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrewwphillips/hackernews"
	"github.com/andrewwphillips/hackernews/internal/config"
	"github.com/andrewwphillips/hackernews/internal/server"
	"github.com/andrewwphillips/hackernews/internal/store"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hackernews",
		Short:         "GraphQL API of a Hacker News clone",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.Flags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the GraphQL server",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return serve(cmd) },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database tables",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return migrate(cmd) },
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Print the GraphQL schema",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprint(cmd.OutOrStdout(), hackernews.Schema)
			},
		},
	)
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.New(cmd.Flags())
	if err != nil {
		return nil, err
	}
	return config.Load(v)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(&store.Config{
		Driver:        cfg.DB.Driver,
		DSN:           cfg.DB.DSN,
		MaxOpen:       cfg.DB.MaxOpen,
		SlowThreshold: cfg.DB.SlowThreshold,
		Logger:        cfg.Logger(nil).With().Str("component", "store").Logger(),
	})
}

func migrate(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.Migrate(contextOf(cmd))
}

func serve(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := cfg.Logger(nil)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// SQLite databases are created on first use so make sure the tables exist
	if cfg.DB.Driver == store.DriverSQLite {
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	api := hackernews.New(st,
		hackernews.NoIntrospection(!cfg.Introspection),
		hackernews.NoConcurrency(!cfg.Concurrency),
		hackernews.Logger(log.With().Str("component", "graphql").Logger()),
	)
	h := server.New(api, st, &server.Config{
		Path:    cfg.Path,
		Timeout: cfg.Timeout,
		Logger:  log,
	})

	log.Info().Str("driver", cfg.DB.Driver).Str("path", cfg.Path).Msg("starting server")
	return server.Run(ctx, cfg.Addr, h, log)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
