// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mssqlops-cli/internal/instance"
	"mssqlops-cli/internal/issue"
)

// parseHostSpec splits an ad-hoc "host[,port]" instance spec.
func parseHostSpec(spec string) (host string, port int, err error) {
	host, portStr, found := strings.Cut(spec, ",")
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, fmt.Errorf("empty host in instance spec %q", spec)
	}
	if !found {
		return host, 0, nil
	}
	port, err = strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in instance spec %q", spec)
	}
	return host, port, nil
}

// resolveTarget builds the connection target from the --instance flag
// and the loaded configuration. A registered name wins; anything else
// is treated as host[,port]. Flag overrides apply on top.
func resolveTarget() (instance.Target, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if flagTimeout > 0 {
		timeout = time.Duration(flagTimeout) * time.Second
	}

	var target instance.Target
	if inst, err := cfg.Resolve(flagInstance); err == nil {
		name := flagInstance
		if name == "" {
			name = cfg.DefaultInstance
		}
		target = instance.FromInstance(name, inst, timeout)
	} else if flagInstance == "" {
		return instance.Target{}, issue.NewErrorContext().
			WithOperation("resolve target instance").
			WithSuggestion("Pass --instance with a registered name or host[,port]").
			WithSuggestion("Or set default_instance in the config file").
			Wrap(err).
			BuildError()
	} else {
		host, port, perr := parseHostSpec(flagInstance)
		if perr != nil {
			return instance.Target{}, issue.NewErrorContext().
				WithOperation("resolve target instance").
				WithResource(flagInstance).
				WithSuggestion("Use a registered instance name or host[,port]").
				Wrap(perr).
				BuildError()
		}
		target = instance.Target{Name: flagInstance, Host: host, Port: port, Timeout: timeout}
	}

	if flagUser != "" {
		target.User = flagUser
	}
	if flagPasswordEnv != "" {
		target.Password = os.Getenv(flagPasswordEnv)
	}
	if flagDatabase != "" {
		target.Database = flagDatabase
	}
	return target, nil
}

// withConn resolves the target, opens a session bounded by the timeout,
// and hands it to fn. Connection failures terminate the command.
func withConn(fn func(ctx context.Context, conn *instance.Conn) error) error {
	target, err := resolveTarget()
	if err != nil {
		return err
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if target.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, target.Timeout)
		defer cancel()
	}

	conn, err := instance.Connect(ctx, target)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(ctx, conn)
}
