// SPDX-License-Identifier: MPL-2.0

package scripting

import (
	"context"
	"fmt"

	"mssqlops-cli/internal/instance"
)

const databasesQuery = `SELECT
	d.name,
	d.compatibility_level,
	ISNULL(d.collation_name, N''),
	d.recovery_model_desc,
	f.type,
	f.name,
	f.physical_name,
	f.size * 8 / 1024,
	CASE WHEN f.max_size = -1 THEN -1 ELSE f.max_size * 8 / 1024 END,
	f.growth,
	f.is_percent_growth
FROM sys.databases d
JOIN sys.master_files f ON f.database_id = d.database_id
WHERE d.database_id > 4
  AND d.state_desc = N'ONLINE'
ORDER BY d.name, f.type, f.file_id`

type dbFile struct {
	LogicalName  string
	PhysicalName string
	SizeMB       int64
	MaxSizeMB    int64
	Growth       int64
	GrowthPct    bool
	IsLog        bool
}

type database struct {
	Name          string
	CompatLevel   int
	Collation     string
	RecoveryModel string
	DataFiles     []dbFile
	LogFiles      []dbFile
}

func (f dbFile) clause() string {
	s := fmt.Sprintf("(NAME = %s, FILENAME = %s, SIZE = %dMB", QuoteName(f.LogicalName), QuoteLiteral(f.PhysicalName), f.SizeMB)
	if f.MaxSizeMB >= 0 {
		s += fmt.Sprintf(", MAXSIZE = %dMB", f.MaxSizeMB)
	}
	if f.GrowthPct {
		s += fmt.Sprintf(", FILEGROWTH = %d%%", f.Growth)
	} else if f.Growth > 0 {
		// growth is in 8 KB pages when absolute
		s += fmt.Sprintf(", FILEGROWTH = %dMB", f.Growth*8/1024)
	}
	return s + ")"
}

// scriptDatabases emits a CREATE DATABASE shell per user database: file
// layout, collation, compatibility level, and recovery model. Contents
// are out of scope; this restores the shape, backups restore the data.
func scriptDatabases(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, databasesQuery)
	if err != nil {
		return "", fmt.Errorf("query sys.databases: %w", err)
	}
	defer rows.Close()

	dbs := map[string]*database{}
	var order []string

	for rows.Next() {
		var (
			name, collation, recovery string
			compat                    int
			fileType                  int
			f                         dbFile
		)
		if err := rows.Scan(&name, &compat, &collation, &recovery,
			&fileType, &f.LogicalName, &f.PhysicalName, &f.SizeMB, &f.MaxSizeMB,
			&f.Growth, &f.GrowthPct); err != nil {
			return "", fmt.Errorf("scan database file row: %w", err)
		}
		db, ok := dbs[name]
		if !ok {
			db = &database{Name: name, CompatLevel: compat, Collation: collation, RecoveryModel: recovery}
			dbs[name] = db
			order = append(order, name)
		}
		f.IsLog = fileType == 1
		if f.IsLog {
			db.LogFiles = append(db.LogFiles, f)
		} else {
			db.DataFiles = append(db.DataFiles, f)
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	var out string
	for _, name := range order {
		db := dbs[name]
		out += fmt.Sprintf("CREATE DATABASE %s\nON", QuoteName(db.Name))
		for i, f := range db.DataFiles {
			if i > 0 {
				out += ","
			}
			out += "\n    " + f.clause()
		}
		if len(db.LogFiles) > 0 {
			out += "\nLOG ON"
			for i, f := range db.LogFiles {
				if i > 0 {
					out += ","
				}
				out += "\n    " + f.clause()
			}
		}
		if db.Collation != "" {
			out += "\nCOLLATE " + db.Collation
		}
		out += ";\nGO\n"
		out += fmt.Sprintf("ALTER DATABASE %s SET COMPATIBILITY_LEVEL = %d;\n", QuoteName(db.Name), db.CompatLevel)
		out += fmt.Sprintf("ALTER DATABASE %s SET RECOVERY %s;\nGO\n", QuoteName(db.Name), db.RecoveryModel)
	}
	return out, nil
}
