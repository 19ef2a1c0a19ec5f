package moodle

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/venu-sivanadham/moodle-to-azure-aks/config"
	"github.com/venu-sivanadham/moodle-to-azure-aks/db"
)

// DatabaseProber is the database surface the bootstrap sequence
// needs: reachability and the reported server version.
type DatabaseProber interface {
	Ping(ctx context.Context) error
	Version(ctx context.Context) (string, error)
}

// Bootstrap runs the linear, idempotent setup sequence: ensure
// directories, wait for the database, relax the managed-database
// version check, install or upgrade, patch config.php, prime cron.
// Each step is guarded by the persisted state on disk so repeated
// container starts converge instead of redoing work.
type Bootstrap struct {
	cfg    *config.Config
	moodle *Moodle
	prober DatabaseProber
	log    *zap.Logger
}

func NewBootstrap(cfg *config.Config, m *Moodle, prober DatabaseProber, log *zap.Logger) *Bootstrap {
	return &Bootstrap{
		cfg:    cfg,
		moodle: m,
		prober: prober,
		log:    log,
	}
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

func (b *Bootstrap) steps() []step {
	return []step{
		{"ensure directories", b.ensureDirectories},
		{"wait for database", b.waitForDatabase},
		{"relax managed database check", b.relaxManagedCheck},
		{"install or upgrade", b.installOrUpgrade},
		{"patch config file", b.patchConfigFile},
		{"prime cron", b.primeCron},
	}
}

// Run executes the setup sequence, stopping at the first failure.
func (b *Bootstrap) Run(ctx context.Context) error {
	for _, s := range b.steps() {
		start := time.Now()
		b.log.Info("step starting", zap.String("step", s.name))
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		b.log.Info("step complete", zap.String("step", s.name), zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}

func (b *Bootstrap) ensureDirectories(ctx context.Context) error {
	if _, err := os.Stat(b.cfg.Paths.BaseDir); err != nil {
		return fmt.Errorf("moodle tree not found at %s: %w", b.cfg.Paths.BaseDir, err)
	}
	// Web server group needs write access to the data directory.
	return os.MkdirAll(b.cfg.Paths.DataDir, 0o775)
}

func (b *Bootstrap) waitForDatabase(ctx context.Context) error {
	return db.WaitUntilReady(ctx, b.prober, db.WaitStrategy(b.cfg.Database.WaitTimeout.D), b.log)
}

func (b *Bootstrap) relaxManagedCheck(ctx context.Context) error {
	if !b.cfg.Database.Managed {
		return nil
	}
	version, err := b.prober.Version(ctx)
	if err != nil {
		return err
	}
	changed, err := RelaxEnvironmentFile(b.moodle.EnvironmentXMLPath(), version)
	if err != nil {
		return err
	}
	if changed {
		b.log.Info("lowered database version requirement", zap.String("server_version", version))
	}
	return nil
}

func (b *Bootstrap) installOrUpgrade(ctx context.Context) error {
	if b.cfg.SkipBootstrap {
		b.log.Info("skipping installation", zap.String("reason", config.EnvSkipBootstrap+" is set"))
		return nil
	}
	state := b.moodle.State()
	b.log.Info("inspected persisted state", zap.Stringer("state", state))
	switch state {
	case Installed:
		if err := b.moodle.Upgrade(ctx); err != nil {
			return err
		}
	default:
		if err := b.moodle.Install(ctx); err != nil {
			return err
		}
		if err := b.moodle.ConfigureSMTP(ctx); err != nil {
			return err
		}
	}
	return b.moodle.MarkInstalled()
}

func (b *Bootstrap) patchConfigFile(ctx context.Context) error {
	return UpdateConfigFile(b.moodle.ConfigPath(), b.cfg.Site, b.cfg.Paths.DataDir)
}

func (b *Bootstrap) primeCron(ctx context.Context) error {
	if b.cfg.Cron.Disabled {
		return nil
	}
	return b.moodle.CronOnce(ctx)
}
