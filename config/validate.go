package config

import (
	"fmt"
	"strings"
)

var databaseTypes = map[string]bool{
	"mariadb":     true,
	"mysqli":      true,
	"auroramysql": true,
}

var smtpProtocols = map[string]bool{
	"":    true,
	"ssl": true,
	"tls": true,
}

// Validate checks the assembled configuration and returns an Errors
// value carrying every violation found, or nil when the configuration
// is usable.
func (c *Config) Validate() error {
	var errs Errors

	if c.Site.Host == "" {
		errs.Add(fmt.Errorf("%s must be set so the web root can be derived", EnvHost))
	}
	if !strings.Contains(c.Site.AdminEmail, "@") {
		errs.Add(fmt.Errorf("%s: %q is not a valid email address", EnvEmail, c.Site.AdminEmail))
	}
	if c.Site.AdminPassword == "" && !c.AllowEmptyPassword {
		errs.Add(fmt.Errorf("%s is empty; set it or set %s=yes (development only)", EnvPassword, EnvAllowEmptyPassword))
	}

	if !databaseTypes[c.Database.Type] {
		errs.Add(fmt.Errorf("%s: unsupported database type %q (mariadb, mysqli or auroramysql)", EnvDatabaseType, c.Database.Type))
	}
	if c.Database.Password == "" && !c.AllowEmptyPassword {
		errs.Add(fmt.Errorf("%s is empty; set it or set %s=yes (development only)", EnvDatabasePassword, EnvAllowEmptyPassword))
	}
	if err := validPort(c.Database.Port); err != nil {
		errs.Add(fmt.Errorf("%s: %w", EnvDatabasePort, err))
	}

	if c.SMTP.Enabled() {
		if c.SMTP.Port == 0 {
			errs.Add(fmt.Errorf("%s must be set when %s is set", EnvSMTPPort, EnvSMTPHost))
		} else if err := validPort(c.SMTP.Port); err != nil {
			errs.Add(fmt.Errorf("%s: %w", EnvSMTPPort, err))
		}
		if !smtpProtocols[c.SMTP.Protocol] {
			errs.Add(fmt.Errorf("%s: unsupported protocol %q (ssl or tls)", EnvSMTPProtocol, c.SMTP.Protocol))
		}
	} else if c.SMTP.User != "" || c.SMTP.Password != "" || c.SMTP.Port != 0 {
		errs.Add(fmt.Errorf("%s must be set when other MOODLE_SMTP_* variables are set", EnvSMTPHost))
	}

	if !c.Cron.Disabled && c.Cron.Minutes < 1 {
		errs.Add(fmt.Errorf("%s must be a positive number of minutes, got %d", EnvCronMinutes, c.Cron.Minutes))
	}
	if c.Database.WaitTimeout.D <= 0 {
		errs.Add(fmt.Errorf("%s must be a positive duration", EnvDatabaseWaitTime))
	}

	return errs.AsError()
}

func validPort(p int) error {
	if p < 1 || p > 65535 {
		return fmt.Errorf("port %d out of range", p)
	}
	return nil
}
