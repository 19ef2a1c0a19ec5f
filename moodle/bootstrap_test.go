package moodle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/venu-sivanadham/moodle-to-azure-aks/config"
	"github.com/venu-sivanadham/moodle-to-azure-aks/runner"
)

type fakeProber struct {
	pingErrs int
	pings    int
	version  string
}

func (f *fakeProber) Ping(ctx context.Context) error {
	f.pings++
	if f.pings <= f.pingErrs {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeProber) Version(ctx context.Context) (string, error) {
	return f.version, nil
}

// newBootstrapFixture builds a config, fake tree, recorder and prober
// wired together. The recorder simulates the installer writing
// config.php so the later patch step has something to rewrite.
func newBootstrapFixture(t *testing.T) (*config.Config, *Moodle, *recordingRunner, *fakeProber, *Bootstrap) {
	t.Helper()
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Paths.BaseDir, "admin"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(cfg.Paths.BaseDir, "admin", "environment.xml"),
		[]byte(sampleEnvironmentXML), 0o644))

	rec := &recordingRunner{}
	m := New(cfg, rec, zap.NewNop())
	rec.onRun = func(c runner.Command) error {
		if c.Name == "install" {
			return os.WriteFile(m.ConfigPath(), []byte(sampleConfigPHP), 0o644)
		}
		return nil
	}
	prober := &fakeProber{version: "10.6.12-MariaDB"}
	b := NewBootstrap(cfg, m, prober, zap.NewNop())
	return cfg, m, rec, prober, b
}

func TestBootstrapFreshInstall(t *testing.T) {
	cfg, m, rec, prober, b := newBootstrapFixture(t)

	require.NoError(t, b.Run(context.Background()))

	assert.Equal(t, []string{"install", "cron"}, rec.names())
	assert.Equal(t, Installed, m.State())
	assert.GreaterOrEqual(t, prober.pings, 1)

	data, err := os.ReadFile(m.ConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN moodle-init web root")
	assert.Contains(t, string(data), "$CFG->dataroot  = '"+cfg.Paths.DataDir+"';")
}

func TestBootstrapSecondRunUpgrades(t *testing.T) {
	_, m, rec, _, b := newBootstrapFixture(t)

	require.NoError(t, b.Run(context.Background()))
	rec.cmds = nil

	require.NoError(t, b.Run(context.Background()))
	assert.Equal(t, []string{"upgrade", "cron"}, rec.names())
	assert.Equal(t, Installed, m.State())
}

func TestBootstrapConfigOnlyInstallsDatabase(t *testing.T) {
	_, m, rec, _, b := newBootstrapFixture(t)
	require.NoError(t, os.WriteFile(m.ConfigPath(), []byte(sampleConfigPHP), 0o644))

	require.NoError(t, b.Run(context.Background()))
	assert.Equal(t, []string{"install-database", "cron"}, rec.names())
}

func TestBootstrapSkipBootstrap(t *testing.T) {
	cfg, m, rec, _, b := newBootstrapFixture(t)
	cfg.SkipBootstrap = true
	require.NoError(t, os.WriteFile(m.ConfigPath(), []byte(sampleConfigPHP), 0o644))

	require.NoError(t, b.Run(context.Background()))

	// No installer or upgrader ran, but the config file was still
	// patched and cron primed.
	assert.Equal(t, []string{"cron"}, rec.names())
	data, err := os.ReadFile(m.ConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN moodle-init web root")
}

func TestBootstrapManagedDatabaseRelaxesCheck(t *testing.T) {
	cfg, m, _, prober, b := newBootstrapFixture(t)
	cfg.Database.Managed = true
	prober.version = "5.7.29-log"

	require.NoError(t, b.Run(context.Background()))

	data, err := os.ReadFile(m.EnvironmentXMLPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `<VENDOR name="mysql" version="5.7.29" />`)
}

func TestBootstrapCronDisabled(t *testing.T) {
	cfg, _, rec, _, b := newBootstrapFixture(t)
	cfg.Cron.Disabled = true

	require.NoError(t, b.Run(context.Background()))
	assert.Equal(t, []string{"install"}, rec.names())
}

func TestBootstrapStepFailureStopsSequence(t *testing.T) {
	_, _, rec, _, b := newBootstrapFixture(t)
	rec.onRun = func(c runner.Command) error {
		return errors.New("installer blew up")
	}

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "install or upgrade")
	assert.Equal(t, []string{"install"}, rec.names())
}

func TestBootstrapMissingBaseDir(t *testing.T) {
	cfg, _, _, _, b := newBootstrapFixture(t)
	cfg.Paths.BaseDir = filepath.Join(cfg.Paths.BaseDir, "missing")

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure directories")
}
