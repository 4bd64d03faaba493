// SPDX-License-Identifier: MPL-2.0

// Package instance opens sessions against SQL Server instances. It is a
// thin layer over the go-mssqldb driver: connection URL construction,
// a version probe run on connect, and helpers for reading result sets
// into printable rows.
package instance

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"time"

	"mssqlops-cli/internal/config"
	"mssqlops-cli/internal/issue"

	"github.com/charmbracelet/log"
	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver
)

// Target is a fully resolved connection target for one instance.
type Target struct {
	// Name is the display name (registered name or host,port).
	Name string
	// Host is the server hostname or address.
	Host string
	// Port is the TCP port; zero means the default port.
	Port int
	// Database is the initial database (empty for the login default).
	Database string
	// User is the login for sql/ntlm auth; empty means integrated auth.
	User string
	// Password is resolved from the instance's password_env variable.
	Password string
	// Auth selects sql or ntlm authentication.
	Auth config.AuthMode
	// TrustServerCertificate skips TLS certificate validation.
	TrustServerCertificate bool
	// Timeout bounds every server call made through this target.
	Timeout time.Duration
}

// Conn is an open session against one instance.
type Conn struct {
	DB      *sql.DB
	Target  Target
	Version ServerVersion
}

// FromInstance builds a Target from a registered config instance,
// resolving the password from the configured environment variable.
func FromInstance(name string, inst config.Instance, timeout time.Duration) Target {
	t := Target{
		Name:                   name,
		Host:                   inst.Host,
		Port:                   inst.Port,
		User:                   inst.User,
		Auth:                   inst.Auth,
		TrustServerCertificate: inst.TrustServerCertificate,
		Timeout:                timeout,
	}
	if inst.PasswordEnv != "" {
		t.Password = os.Getenv(inst.PasswordEnv)
	}
	return t
}

// Addr returns the host,port form used in messages and script headers.
func (t Target) Addr() string {
	if t.Port == 0 || t.Port == config.DefaultPort {
		return t.Host
	}
	return fmt.Sprintf("%s,%d", t.Host, t.Port)
}

// URL builds the sqlserver:// connection URL for the driver.
func (t Target) URL() *url.URL {
	q := url.Values{}
	q.Set("app name", config.AppName)
	if t.Database != "" {
		q.Set("database", t.Database)
	}
	if t.TrustServerCertificate {
		q.Set("trustservercertificate", "true")
	}
	if t.Timeout > 0 {
		q.Set("dial timeout", fmt.Sprintf("%d", int(t.Timeout.Seconds())))
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     t.Host,
		RawQuery: q.Encode(),
	}
	if t.Port != 0 {
		u.Host = fmt.Sprintf("%s:%d", t.Host, t.Port)
	}
	if t.User != "" {
		user := t.User
		if t.Auth == config.AuthNTLM {
			q.Set("authenticator", "ntlm")
			u.RawQuery = q.Encode()
		}
		u.User = url.UserPassword(user, t.Password)
	}
	return u
}

// Connect opens a session and probes the server version. The caller
// owns the returned Conn and must Close it.
func Connect(ctx context.Context, t Target) (*Conn, error) {
	db, err := sql.Open("sqlserver", t.URL().String())
	if err != nil {
		return nil, issue.WrapWithContext(err, "open connection", t.Addr())
	}
	// One instance at a time; no pooling across commands.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, issue.NewErrorContext().
			WithOperation("connect to instance").
			WithResource(t.Addr()).
			WithSuggestion("Check that the instance is running and the port is reachable").
			WithSuggestion("Verify the login and the password environment variable").
			Wrap(err).
			BuildError()
	}

	ver, err := probeVersion(ctx, db)
	if err != nil {
		db.Close()
		return nil, issue.WrapWithContext(err, "probe server version", t.Addr())
	}
	if ver.Major < MinSupportedMajor {
		db.Close()
		return nil, issue.NewErrorContext().
			WithOperation("connect to instance").
			WithResource(t.Addr()).
			WithSuggestion("mssqlops supports SQL Server 2012 (11.x) and newer").
			Wrap(fmt.Errorf("unsupported server version %s", ver.Product)).
			BuildError()
	}

	log.Debug("connected", "instance", t.Addr(), "version", ver.Product, "edition", ver.Edition)

	return &Conn{DB: db, Target: t, Version: ver}, nil
}

// Close releases the session.
func (c *Conn) Close() error {
	return c.DB.Close()
}
