package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venu-sivanadham/moodle-to-azure-aks/config"
	"github.com/venu-sivanadham/moodle-to-azure-aks/db"
	"github.com/venu-sivanadham/moodle-to-azure-aks/health"
	"github.com/venu-sivanadham/moodle-to-azure-aks/internal/fswatcher"
	"github.com/venu-sivanadham/moodle-to-azure-aks/moodle"
	"github.com/venu-sivanadham/moodle-to-azure-aks/runner"
	"github.com/venu-sivanadham/moodle-to-azure-aks/scheduler"
)

// loadConfig assembles the configuration from the optional env file,
// the process environment and the optional YAML file. Validation
// failures are logged individually so a broken deployment manifest
// shows every problem at once.
func loadConfig() (*config.Config, error) {
	if rootOpt.EnvFile != "" {
		if err := godotenv.Load(rootOpt.EnvFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(rootOpt.Configuration)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		var errs config.Errors
		if errors.As(err, &errs) {
			for _, e := range errs.Errors() {
				zap.L().Error("configuration error", zap.Error(e))
			}
		}
		return nil, errors.New("invalid configuration")
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newBootstrapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Run the one-shot setup sequence and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := db.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer client.Close()

			m := moodle.New(cfg, runner.NewLocal(zap.L()), zap.L())
			return moodle.NewBootstrap(cfg, m, client, zap.L()).Run(ctx)
		},
	}
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Bootstrap, then serve health endpoints and the cron scheduler until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := db.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer client.Close()

			var hs *health.Server
			if !cfg.Health.Disabled {
				hs = health.New(cfg.Health.Address, zap.L())
				hs.Start()
			}

			m := moodle.New(cfg, runner.NewLocal(zap.L()), zap.L())
			if err := moodle.NewBootstrap(cfg, m, client, zap.L()).Run(ctx); err != nil {
				return err
			}
			if hs != nil {
				hs.SetReady(true)
			}

			sched := scheduler.New(zap.L())
			if !cfg.Cron.Disabled {
				if err := sched.Register(cfg.Cron.Spec(), "moodle-cron", m.CronOnce); err != nil {
					return err
				}
			}
			sched.Start()

			// config.php is occasionally rewritten from inside Moodle
			// (plugin installers, restored backups); re-apply the web
			// root patch when that happens.
			watcher, err := fswatcher.Watch(m.ConfigPath())
			if err != nil {
				return err
			}
			defer watcher.Close()

			zap.L().Info("setup complete, serving until terminated")
			for {
				select {
				case <-ctx.Done():
					zap.L().Info("received signal, shutting down")
					sched.Stop()
					if hs != nil {
						sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
						defer scancel()
						_ = hs.Shutdown(sctx)
					}
					return nil
				case path := <-watcher.Events():
					zap.L().Info("config file changed, re-applying web root patch", zap.String("path", path))
					if err := moodle.UpdateConfigFile(m.ConfigPath(), cfg.Site, cfg.Paths.DataDir); err != nil {
						zap.L().Error("cannot re-apply config patch", zap.Error(err))
					}
				}
			}
		},
	}
}

func newWaitDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wait-db",
		Short: "Block until the database accepts connections (for init containers)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			if rootOpt.EnvFile != "" {
				if err := godotenv.Load(rootOpt.EnvFile); err != nil {
					return err
				}
			}
			// Only the database section matters here, so full site
			// validation is skipped.
			cfg, err := config.Load(rootOpt.Configuration)
			if err != nil {
				return err
			}
			client, err := db.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer client.Close()

			return db.WaitUntilReady(ctx, client, db.WaitStrategy(cfg.Database.WaitTimeout.D), zap.L())
		},
	}
}
