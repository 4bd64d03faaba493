// SPDX-License-Identifier: MPL-2.0

package instance

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// MinSupportedMajor is the oldest server major version the commands
// understand (11 = SQL Server 2012).
const MinSupportedMajor = 11

// ServerVersion describes the connected server.
type ServerVersion struct {
	// Product is the full product version, e.g. "15.0.2000.5".
	Product string
	// Level is the product level, e.g. "RTM" or "SP1".
	Level string
	// Edition is the server edition string.
	Edition string
	// ServerName is @@SERVERNAME.
	ServerName string
	// Major is the parsed major version (11, 12, 13, 14, 15, 16, ...).
	Major int
}

// String returns a one-line description for headers and verbose output.
func (v ServerVersion) String() string {
	return fmt.Sprintf("%s %s (%s)", v.Product, v.Level, v.Edition)
}

// ParseProductVersion extracts the major version from a ProductVersion
// string like "15.0.2000.5".
func ParseProductVersion(product string) (int, error) {
	head, _, _ := strings.Cut(product, ".")
	major, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, fmt.Errorf("malformed product version %q: %w", product, err)
	}
	return major, nil
}

const versionQuery = `SELECT
	CONVERT(sysname, SERVERPROPERTY('ProductVersion')),
	CONVERT(sysname, SERVERPROPERTY('ProductLevel')),
	CONVERT(sysname, SERVERPROPERTY('Edition')),
	@@SERVERNAME`

func probeVersion(ctx context.Context, db *sql.DB) (ServerVersion, error) {
	var v ServerVersion
	row := db.QueryRowContext(ctx, versionQuery)
	if err := row.Scan(&v.Product, &v.Level, &v.Edition, &v.ServerName); err != nil {
		return ServerVersion{}, fmt.Errorf("query server properties: %w", err)
	}
	major, err := ParseProductVersion(v.Product)
	if err != nil {
		return ServerVersion{}, err
	}
	v.Major = major
	return v, nil
}
