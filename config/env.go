package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variables understood by the tool. The names follow the
// conventions of containerized Moodle images so an existing deployment
// manifest keeps working unchanged.
const (
	EnvSiteName      = "MOODLE_SITE_NAME"
	EnvHost          = "MOODLE_HOST"
	EnvLang          = "MOODLE_LANG"
	EnvUsername      = "MOODLE_USERNAME"
	EnvPassword      = "MOODLE_PASSWORD"
	EnvEmail         = "MOODLE_EMAIL"
	EnvSkipBootstrap = "MOODLE_SKIP_BOOTSTRAP"
	EnvReverseProxy  = "MOODLE_REVERSEPROXY"
	EnvSSLProxy      = "MOODLE_SSLPROXY"
	EnvCronMinutes   = "MOODLE_CRON_MINUTES"

	EnvDatabaseType       = "MOODLE_DATABASE_TYPE"
	EnvDatabaseHost       = "MOODLE_DATABASE_HOST"
	EnvDatabasePort       = "MOODLE_DATABASE_PORT_NUMBER"
	EnvDatabaseName       = "MOODLE_DATABASE_NAME"
	EnvDatabaseUser       = "MOODLE_DATABASE_USER"
	EnvDatabasePassword   = "MOODLE_DATABASE_PASSWORD"
	EnvDatabaseWaitTime   = "MOODLE_DATABASE_WAIT_TIMEOUT"
	EnvManagedDatabase    = "MOODLE_MANAGED_DATABASE"
	EnvAllowEmptyPassword = "ALLOW_EMPTY_PASSWORD"

	EnvSMTPHost     = "MOODLE_SMTP_HOST"
	EnvSMTPPort     = "MOODLE_SMTP_PORT_NUMBER"
	EnvSMTPUser     = "MOODLE_SMTP_USER"
	EnvSMTPPassword = "MOODLE_SMTP_PASSWORD"
	EnvSMTPProtocol = "MOODLE_SMTP_PROTOCOL"

	EnvBaseDir       = "MOODLE_BASE_DIR"
	EnvDataDir       = "MOODLE_DATA_DIR"
	EnvPHPExecutable = "PHP_EXECUTABLE"

	EnvHealthAddress = "MOODLE_HEALTH_ADDRESS"
)

// fromEnv overlays values from the environment onto c. The getenv
// function is injected so tests don't have to mutate the real process
// environment. Parse failures are collected so every bad variable is
// reported in one pass.
func (c *Config) fromEnv(getenv func(string) string) error {
	var errs Errors
	e := envReader{getenv: getenv, errs: &errs}

	e.str(EnvSiteName, &c.Site.Name)
	e.str(EnvHost, &c.Site.Host)
	e.str(EnvLang, &c.Site.Lang)
	e.str(EnvUsername, &c.Site.AdminUser)
	e.str(EnvPassword, &c.Site.AdminPassword)
	e.str(EnvEmail, &c.Site.AdminEmail)
	e.boolean(EnvSkipBootstrap, &c.SkipBootstrap)
	e.boolean(EnvReverseProxy, &c.Site.ReverseProxy)
	e.boolean(EnvSSLProxy, &c.Site.SSLProxy)
	e.integer(EnvCronMinutes, &c.Cron.Minutes)

	e.str(EnvDatabaseType, &c.Database.Type)
	e.str(EnvDatabaseHost, &c.Database.Host)
	e.integer(EnvDatabasePort, &c.Database.Port)
	e.str(EnvDatabaseName, &c.Database.Name)
	e.str(EnvDatabaseUser, &c.Database.User)
	e.str(EnvDatabasePassword, &c.Database.Password)
	e.duration(EnvDatabaseWaitTime, &c.Database.WaitTimeout)
	e.boolean(EnvManagedDatabase, &c.Database.Managed)
	e.boolean(EnvAllowEmptyPassword, &c.AllowEmptyPassword)

	e.str(EnvSMTPHost, &c.SMTP.Host)
	e.integer(EnvSMTPPort, &c.SMTP.Port)
	e.str(EnvSMTPUser, &c.SMTP.User)
	e.str(EnvSMTPPassword, &c.SMTP.Password)
	e.str(EnvSMTPProtocol, &c.SMTP.Protocol)

	e.str(EnvBaseDir, &c.Paths.BaseDir)
	e.str(EnvDataDir, &c.Paths.DataDir)
	e.str(EnvPHPExecutable, &c.Paths.PHP)

	e.str(EnvHealthAddress, &c.Health.Address)

	return errs.AsError()
}

type envReader struct {
	getenv func(string) string
	errs   *Errors
}

func (e envReader) str(name string, dst *string) {
	if v := e.getenv(name); v != "" {
		*dst = v
	}
}

// boolean accepts the yes/no convention used by container images as
// well as anything strconv.ParseBool understands.
func (e envReader) boolean(name string, dst *bool) {
	v := e.getenv(name)
	if v == "" {
		return
	}
	switch strings.ToLower(v) {
	case "yes", "y":
		*dst = true
	case "no", "n":
		*dst = false
	default:
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs.Add(fmt.Errorf("%s: invalid boolean %q (expected yes or no)", name, v))
			return
		}
		*dst = b
	}
}

func (e envReader) integer(name string, dst *int) {
	v := e.getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs.Add(fmt.Errorf("%s: invalid number %q", name, v))
		return
	}
	*dst = n
}

func (e envReader) duration(name string, dst *Duration) {
	v := e.getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs.Add(fmt.Errorf("%s: invalid duration %q", name, v))
		return
	}
	dst.D = d
}
