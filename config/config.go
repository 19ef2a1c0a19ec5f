package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config holds everything the init tool needs to bring a Moodle
// instance up: site identity, database coordinates, mail relay,
// filesystem layout and the cron cadence. Values come from an
// optional YAML file overlaid by MOODLE_* environment variables;
// the environment always wins.
type Config struct {
	Site               Site     `yaml:"site"`
	Database           Database `yaml:"database"`
	SMTP               SMTP     `yaml:"smtp"`
	Paths              Paths    `yaml:"paths"`
	Cron               Cron     `yaml:"cron"`
	Health             Health   `yaml:"health"`
	SkipBootstrap      bool     `yaml:"skip_bootstrap"`
	AllowEmptyPassword bool     `yaml:"allow_empty_password"`
}

type Site struct {
	Name          string `yaml:"name" default:"New Site"`
	Host          string `yaml:"host"`
	Lang          string `yaml:"lang" default:"en"`
	AdminUser     string `yaml:"admin_user" default:"user"`
	AdminPassword string `yaml:"admin_password"`
	AdminEmail    string `yaml:"admin_email" default:"user@example.com"`
	ReverseProxy  bool   `yaml:"reverse_proxy"`
	SSLProxy      bool   `yaml:"ssl_proxy"`
}

// WWWRoot returns the public URL Moodle should consider canonical.
func (s Site) WWWRoot() string {
	scheme := "http"
	if s.SSLProxy {
		scheme = "https"
	}
	return scheme + "://" + s.Host
}

type Database struct {
	Type        string   `yaml:"type" default:"mariadb"`
	Host        string   `yaml:"host" default:"mariadb"`
	Port        int      `yaml:"port" default:"3306"`
	Name        string   `yaml:"name" default:"moodle"`
	User        string   `yaml:"user" default:"moodle"`
	Password    string   `yaml:"password"`
	Managed     bool     `yaml:"managed"`
	WaitTimeout Duration `yaml:"wait_timeout"`
}

// Addr returns the host:port the database listens on.
func (d Database) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Protocol string `yaml:"protocol"`
}

func (s SMTP) Enabled() bool {
	return s.Host != ""
}

type Paths struct {
	BaseDir string `yaml:"base_dir" default:"/opt/moodle"`
	DataDir string `yaml:"data_dir" default:"/var/moodledata"`
	PHP     string `yaml:"php" default:"php"`
}

type Cron struct {
	Minutes  int  `yaml:"minutes" default:"1"`
	Disabled bool `yaml:"disabled"`
}

// Spec returns the cron expression for the Moodle maintenance job.
func (c Cron) Spec() string {
	return fmt.Sprintf("@every %dm", c.Minutes)
}

type Health struct {
	Address  string `yaml:"address" default:":8090"`
	Disabled bool   `yaml:"disabled"`
}

// New returns a Config populated with defaults only.
func New() (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, err
	}
	cfg.applyFallbacks()
	return &cfg, nil
}

// Load reads the optional YAML configuration file, overlays the
// process environment on top of it and applies defaults to anything
// still unset. It does not validate; call Validate for that.
func Load(configFile string) (*Config, error) {
	var cfg Config
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("cannot parse configuration file %q: %w", configFile, err)
		}
	}
	if err := cfg.fromEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, err
	}
	cfg.applyFallbacks()
	return &cfg, nil
}

// applyFallbacks fills the few defaults that defaults.Set cannot
// express with struct tags.
func (c *Config) applyFallbacks() {
	if c.Database.WaitTimeout.D == 0 {
		c.Database.WaitTimeout.D = 5 * time.Minute
	}
}

// Duration wraps time.Duration so YAML configuration can use
// human-readable values like "90s".
type Duration struct {
	D time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.D = v
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.D.String(), nil
}
