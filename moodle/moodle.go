// Package moodle drives Moodle's own command line tooling: the
// installer, the upgrader, the cron entry point and the config.php
// patches a containerized deployment needs.
package moodle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/venu-sivanadham/moodle-to-azure-aks/config"
	"github.com/venu-sivanadham/moodle-to-azure-aks/runner"
)

// InstallState describes how far a persisted volume has been set up.
type InstallState int

const (
	// NotInstalled means config.php is absent; a full install is needed.
	NotInstalled InstallState = iota
	// ConfigOnly means config.php exists (e.g. baked into the image or
	// restored from a volume) but the database schema was never created.
	ConfigOnly
	// Installed means both config.php and the install marker exist.
	Installed
)

func (s InstallState) String() string {
	switch s {
	case NotInstalled:
		return "not installed"
	case ConfigOnly:
		return "config only"
	case Installed:
		return "installed"
	default:
		return fmt.Sprintf("InstallState(%d)", int(s))
	}
}

// installMarker is created on the persistent data volume once the
// database schema has been installed or upgraded, so subsequent
// container starts skip straight to the upgrade path.
const installMarker = ".schema-installed"

// Moodle wraps the PHP CLI scripts shipped with a Moodle tree.
type Moodle struct {
	cfg *config.Config
	run runner.Runner
	log *zap.Logger
}

func New(cfg *config.Config, run runner.Runner, log *zap.Logger) *Moodle {
	return &Moodle{cfg: cfg, run: run, log: log}
}

// ConfigPath returns the path of Moodle's config.php.
func (m *Moodle) ConfigPath() string {
	return filepath.Join(m.cfg.Paths.BaseDir, "config.php")
}

// EnvironmentXMLPath returns the path of the installer's environment
// requirements file.
func (m *Moodle) EnvironmentXMLPath() string {
	return filepath.Join(m.cfg.Paths.BaseDir, "admin", "environment.xml")
}

func (m *Moodle) markerPath() string {
	return filepath.Join(m.cfg.Paths.DataDir, installMarker)
}

// State inspects the filesystem to decide which setup path applies.
func (m *Moodle) State() InstallState {
	if !fileExists(m.ConfigPath()) {
		return NotInstalled
	}
	if !fileExists(m.markerPath()) {
		return ConfigOnly
	}
	return Installed
}

// MarkInstalled records on the data volume that the schema exists.
func (m *Moodle) MarkInstalled() error {
	return os.WriteFile(m.markerPath(), []byte("installed by moodle-init\n"), 0o644)
}

// Install runs the appropriate installer for the current state: the
// full CLI installer when config.php is absent, or the database-only
// installer when config.php already describes the site.
func (m *Moodle) Install(ctx context.Context) error {
	if m.State() == ConfigOnly {
		return m.php(ctx, "install-database", filepath.Join("admin", "cli", "install_database.php"),
			"--lang="+m.cfg.Site.Lang,
			"--adminuser="+m.cfg.Site.AdminUser,
			"--adminpass="+m.cfg.Site.AdminPassword,
			"--adminemail="+m.cfg.Site.AdminEmail,
			"--fullname="+m.cfg.Site.Name,
			"--shortname="+m.cfg.Site.Name,
			"--agree-license",
		)
	}
	return m.php(ctx, "install", filepath.Join("admin", "cli", "install.php"), m.installArgs()...)
}

func (m *Moodle) installArgs() []string {
	c := m.cfg
	args := []string{
		"--lang=" + c.Site.Lang,
		"--chmod=2775",
		"--wwwroot=" + c.Site.WWWRoot(),
		"--dataroot=" + c.Paths.DataDir,
		"--dbtype=" + c.Database.Type,
		"--dbhost=" + c.Database.Host,
		"--dbport=" + fmt.Sprint(c.Database.Port),
		"--dbname=" + c.Database.Name,
		"--dbuser=" + c.Database.User,
		"--dbpass=" + c.Database.Password,
		"--fullname=" + c.Site.Name,
		"--shortname=" + c.Site.Name,
		"--adminuser=" + c.Site.AdminUser,
		"--adminpass=" + c.Site.AdminPassword,
		"--adminemail=" + c.Site.AdminEmail,
		"--non-interactive",
		"--agree-license",
		"--allow-unstable",
	}
	return args
}

// Upgrade runs the non-interactive upgrader, used when a persisted
// volume already carries an installed site.
func (m *Moodle) Upgrade(ctx context.Context) error {
	return m.php(ctx, "upgrade", filepath.Join("admin", "cli", "upgrade.php"),
		"--non-interactive",
		"--allow-unstable",
	)
}

// CronOnce runs a single pass of Moodle's maintenance cron.
func (m *Moodle) CronOnce(ctx context.Context) error {
	return m.php(ctx, "cron", filepath.Join("admin", "cli", "cron.php"))
}

// ConfigureSMTP pushes the mail relay settings into Moodle's own
// configuration via admin/cli/cfg.php. The installer has no mail
// flags, so this runs as a separate post-install step.
func (m *Moodle) ConfigureSMTP(ctx context.Context) error {
	smtp := m.cfg.SMTP
	if !smtp.Enabled() {
		return nil
	}
	settings := [][2]string{
		{"smtphosts", fmt.Sprintf("%s:%d", smtp.Host, smtp.Port)},
		{"smtpuser", smtp.User},
		{"smtppass", smtp.Password},
		{"smtpsecure", smtp.Protocol},
		{"noreplyaddress", m.cfg.Site.AdminEmail},
	}
	for _, s := range settings {
		err := m.php(ctx, "cfg-"+s[0], filepath.Join("admin", "cli", "cfg.php"),
			"--name="+s[0], "--set="+s[1])
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Moodle) php(ctx context.Context, name, script string, args ...string) error {
	return m.run.Run(ctx, runner.Command{
		Name: name,
		Path: m.cfg.Paths.PHP,
		Args: append([]string{script}, args...),
		Dir:  m.cfg.Paths.BaseDir,
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
