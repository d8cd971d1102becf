// Command moodtune runs the MoodTune web application.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/justestif/moodtune/internal/auth"
	"github.com/justestif/moodtune/internal/config"
	"github.com/justestif/moodtune/internal/db"
	"github.com/justestif/moodtune/internal/logging"
	"github.com/justestif/moodtune/internal/mood"
	"github.com/justestif/moodtune/internal/session"
	"github.com/justestif/moodtune/internal/spotify"
	"github.com/justestif/moodtune/internal/web"
	webfs "github.com/justestif/moodtune/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "moodtune",
		Usage: "Turn a mood into a Spotify playlist",
		Commands: []*cli.Command{
			serveCommand(),
			moodsCommand(),
			migrateCommand(),
			pruneCommand(),
		},
	}
	return app.Run(ctx, os.Args)
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a TOML configuration file",
		Sources: cli.EnvVars("MOODTUNE_CONFIG"),
	}
}

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "PostgreSQL connection string",
		Sources:  cli.EnvVars("DATABASE_URL"),
		Required: true,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides the configured one",
			},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if addr := cmd.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)
	logging.SetGlobal(logger)

	sessions, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Create sub-filesystems for templates and static files
	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	timeout := cfg.HTTP.Timeout.Duration
	server, err := web.NewServer(web.ServerConfig{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Secure:         cfg.Server.Secure,
		TemplatesFS:    templates,
		StaticFS:       static,
		Logger:         logger,
		Auth:           auth.New(cfg.Spotify, timeout),
		Catalog:        spotify.NewCatalog(cfg.Spotify.APIBaseURL, timeout, cfg.HTTP.RateLimit),
		Sessions:       sessions,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info().Str("session_backend", cfg.Session.Backend).Msg("configured")
	return server.Run(ctx)
}

// newSessionStore builds the configured token store. The returned func
// releases whatever the store holds open.
func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	secure := cfg.Server.Secure

	switch cfg.Session.Backend {
	case config.BackendMemory:
		return session.NewMemoryStore(secure), func() {}, nil
	case config.BackendPostgres:
		sealer, err := session.NewSealer(cfg.Session.Secret)
		if err != nil {
			return nil, nil, fmt.Errorf("creating sealer: %w", err)
		}
		database, err := db.New(ctx, cfg.Session.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if _, err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("migrating database: %w", err)
		}
		return session.NewDBStore(database.Sessions(), sealer, secure), database.Close, nil
	default:
		return session.NewCookieStore(secure), func() {}, nil
	}
}

func moodsCommand() *cli.Command {
	return &cli.Command{
		Name:  "moods",
		Usage: "Print the mood table",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := os.Stdout
			for _, p := range mood.Profiles() {
				fmt.Fprintf(w, "%-10s valence=%.1f energy=%.1f  %-24s %q\n",
					p.Label, p.Valence, p.Energy, p.Vibe(), p.Query)
			}
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending session-store migrations",
		Flags: []cli.Flag{databaseFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			database, err := db.New(ctx, cmd.String("database-url"))
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer database.Close()

			applied, err := database.Migrate(ctx)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(os.Stdout, "Database is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(os.Stdout, "Applied migration %04d\n", v)
			}
			return nil
		},
	}
}

func pruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Delete expired server-side sessions",
		Flags: []cli.Flag{databaseFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			database, err := db.New(ctx, cmd.String("database-url"))
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer database.Close()

			n, err := database.Sessions().DeleteExpired(ctx)
			if err != nil {
				return fmt.Errorf("deleting expired sessions: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Deleted %d expired sessions\n", n)
			return nil
		},
	}
}
