// Command bifrostqld hosts one BifrostQL core.Engine behind an HTTP server.
// Structured as a cobra CLI the way the teacher's own cmd package is
// (one root command, one subcommand per verb), trimmed to the three
// operations this spec actually names: serve, reload-catalog, version.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/standardbeagle/BifrostQL-sub008/core"
	"github.com/standardbeagle/BifrostQL-sub008/serv"
)

// version/commit/date are set via -ldflags at build time (teacher's own
// cmd.go convention).
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "bifrostqld",
		Short: "BifrostQL — a zero-schema GraphQL-over-SQL gateway",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	rootCmd.AddCommand(serveCmd(), reloadCatalogCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	log, err := zap.NewProduction()
	if err != nil {
		log = zap.NewNop()
	}
	return log
}

// driverNameFor maps a dialect name to the database/sql driver name
// registered by this binary's imported drivers.
func driverNameFor(dialect string) (string, error) {
	switch dialect {
	case "postgres":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	case "sql-server":
		return "sqlserver", nil
	case "sqlite":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unknown dialect %q", dialect)
	}
}

func openEngine(log *zap.Logger) (*core.Engine, *sql.DB, core.Config, error) {
	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		return nil, nil, core.Config{}, fmt.Errorf("loading config: %w", err)
	}

	driverName, err := driverNameFor(cfg.Dialect)
	if err != nil {
		return nil, nil, core.Config{}, err
	}
	db, err := sql.Open(driverName, cfg.ConnectionString)
	if err != nil {
		return nil, nil, core.Config{}, fmt.Errorf("opening database: %w", err)
	}

	engine, err := core.New(cfg, db, log)
	if err != nil {
		db.Close()
		return nil, nil, core.Config{}, fmt.Errorf("starting engine: %w", err)
	}
	return engine, db, cfg, nil
}

func serveCmd() *cobra.Command {
	var hostPort string
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the BifrostQL HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			engine, db, cfg, err := openEngine(log)
			if err != nil {
				return err
			}
			defer db.Close()

			httpServer := serv.NewHTTPServer(hostPort, serv.NewRouter(engine, cfg, log))

			idleConnsClosed := make(chan struct{})
			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
				<-sigCh

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(ctx); err != nil {
					log.Warn("graceful shutdown failed", zap.Error(err))
				}
				close(idleConnsClosed)
			}()

			log.Info("serving", zap.String("addr", hostPort), zap.String("path", cfg.Path))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			<-idleConnsClosed
			return nil
		},
	}
	c.Flags().StringVar(&hostPort, "host-port", "0.0.0.0:8080", "address to listen on")
	return c
}

func reloadCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload-catalog",
		Short: "Re-read catalog structure from the database and report the table count",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			engine, db, _, err := openEngine(log)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := engine.Reload(context.Background()); err != nil {
				return fmt.Errorf("reloading catalog: %w", err)
			}
			fmt.Printf("catalog reloaded: %d tables\n", len(engine.Catalog().Tables()))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bifrostqld %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
