// Package db provides the MySQL/MariaDB reachability checks the
// setup sequence depends on. Moodle itself owns the schema; the only
// queries issued here are connection pings and a version probe.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/venu-sivanadham/moodle-to-azure-aks/config"
)

// DSN renders the driver DSN for the configured database.
func DSN(d config.Database) string {
	c := mysql.NewConfig()
	c.User = d.User
	c.Passwd = d.Password
	c.Net = "tcp"
	c.Addr = d.Addr()
	c.DBName = d.Name
	c.Timeout = 10 * time.Second
	return c.FormatDSN()
}

// Pinger is the minimal database surface the wait loop needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Client wraps a sql.DB opened against the Moodle database.
type Client struct {
	db *sql.DB
}

// Open prepares a client. The driver defers dialing, so errors here
// indicate a malformed configuration rather than an unreachable server.
func Open(d config.Database) (*Client, error) {
	sqldb, err := sql.Open("mysql", DSN(d))
	if err != nil {
		return nil, errors.Wrap(err, "cannot open database handle")
	}
	sqldb.SetMaxOpenConns(1)
	return &Client{db: sqldb}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Version reports the server version string, e.g. "8.0.32" or
// "5.7.32-log" on managed services.
func (c *Client) Version(ctx context.Context) (string, error) {
	var v string
	if err := c.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&v); err != nil {
		return "", errors.Wrap(err, "cannot query server version")
	}
	return v, nil
}
