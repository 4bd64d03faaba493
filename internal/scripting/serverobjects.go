// SPDX-License-Identifier: MPL-2.0

package scripting

import (
	"context"
	"fmt"

	"mssqlops-cli/internal/instance"
)

const linkedServersQuery = `SELECT
	s.name,
	ISNULL(s.product, N''),
	ISNULL(s.provider, N''),
	ISNULL(s.data_source, N''),
	ISNULL(s.catalog, N'')
FROM sys.servers s
WHERE s.is_linked = 1
ORDER BY s.name`

// scriptLinkedServers emits sp_addlinkedserver calls. Remote login
// mappings carry placeholder secrets for the same reason credentials do.
func scriptLinkedServers(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, linkedServersQuery)
	if err != nil {
		return "", fmt.Errorf("query sys.servers: %w", err)
	}
	defer rows.Close()

	var out string
	for rows.Next() {
		var name, product, provider, dataSource, catalog string
		if err := rows.Scan(&name, &product, &provider, &dataSource, &catalog); err != nil {
			return "", fmt.Errorf("scan linked server row: %w", err)
		}
		out += fmt.Sprintf("EXEC master.dbo.sp_addlinkedserver @server = %s, @srvproduct = %s",
			QuoteLiteral(name), QuoteLiteral(product))
		if provider != "" {
			out += ", @provider = " + QuoteLiteral(provider)
		}
		if dataSource != "" {
			out += ", @datasrc = " + QuoteLiteral(dataSource)
		}
		if catalog != "" {
			out += ", @catalog = " + QuoteLiteral(catalog)
		}
		out += ";\n"
		out += fmt.Sprintf("-- Remote login mappings are not recoverable; review before running.\nEXEC master.dbo.sp_addlinkedsrvlogin @rmtsrvname = %s, @useself = N'True';\nGO\n",
			QuoteLiteral(name))
	}
	return out, rows.Err()
}

const endpointsQuery = `SELECT
	e.name,
	e.protocol_desc,
	e.type_desc,
	e.state_desc,
	ISNULL(t.port, 0)
FROM sys.endpoints e
LEFT JOIN sys.tcp_endpoints t ON t.endpoint_id = e.endpoint_id
WHERE e.endpoint_id > 65535
ORDER BY e.name`

// scriptEndpoints covers user-defined endpoints only; the system HTTP
// and TSQL endpoints below id 65536 always exist.
func scriptEndpoints(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, endpointsQuery)
	if err != nil {
		return "", fmt.Errorf("query sys.endpoints: %w", err)
	}
	defer rows.Close()

	var out string
	for rows.Next() {
		var name, protocol, typeDesc, state string
		var port int
		if err := rows.Scan(&name, &protocol, &typeDesc, &state, &port); err != nil {
			return "", fmt.Errorf("scan endpoint row: %w", err)
		}
		stateClause := "STARTED"
		if state != "STARTED" {
			stateClause = state
		}
		out += fmt.Sprintf("CREATE ENDPOINT %s\n    STATE = %s\n    AS %s (LISTENER_PORT = %d)\n    FOR %s ();\nGO\n",
			QuoteName(name), stateClause, protocol, port, typeDesc)
	}
	return out, rows.Err()
}

const serverTriggersQuery = `SELECT t.name, m.definition, t.is_disabled
FROM sys.server_triggers t
JOIN sys.server_sql_modules m ON m.object_id = t.object_id
WHERE t.is_ms_shipped = 0
ORDER BY t.name`

// scriptServerTriggers emits the stored module text verbatim; the
// definition already is a complete CREATE TRIGGER ... ON ALL SERVER.
func scriptServerTriggers(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, serverTriggersQuery)
	if err != nil {
		return "", fmt.Errorf("query sys.server_triggers: %w", err)
	}
	defer rows.Close()

	var out string
	for rows.Next() {
		var name, definition string
		var disabled bool
		if err := rows.Scan(&name, &definition, &disabled); err != nil {
			return "", fmt.Errorf("scan server trigger row: %w", err)
		}
		out += definition + "\nGO\n"
		if disabled {
			out += fmt.Sprintf("DISABLE TRIGGER %s ON ALL SERVER;\nGO\n", QuoteName(name))
		}
	}
	return out, rows.Err()
}

const auditsQuery = `SELECT
	a.name,
	a.type,
	ISNULL(f.log_file_path, N''),
	ISNULL(f.max_rollover_files, 0),
	ISNULL(f.max_file_size, 0),
	a.is_state_enabled,
	a.on_failure_desc
FROM sys.server_audits a
LEFT JOIN sys.server_file_audits f ON f.audit_id = a.audit_id
ORDER BY a.name`

type auditRow struct {
	Name             string
	Type             string
	FilePath         string
	MaxRolloverFiles int64
	MaxFileSizeMB    int64
	Enabled          bool
	OnFailure        string
}

const auditTemplate = `CREATE SERVER AUDIT {{qname .Name}}
{{- if .IsFile}}
    TO FILE (FILEPATH = {{qlit .FilePath}}{{if .MaxFileSizeMB}}, MAXSIZE = {{.MaxFileSizeMB}} MB{{end}}{{if .MaxRolloverFiles}}, MAX_ROLLOVER_FILES = {{.MaxRolloverFiles}}{{end}})
{{- else if eq .Type "SL"}}
    TO SECURITY_LOG
{{- else}}
    TO APPLICATION_LOG
{{- end}}
    WITH (ON_FAILURE = {{.OnFailure}});
GO
{{- if .Enabled}}
ALTER SERVER AUDIT {{qname .Name}} WITH (STATE = ON);
GO
{{- end}}
`

// IsFile reports whether the audit writes to a file target.
func (a auditRow) IsFile() bool { return a.Type == "FL" }

func scriptAudits(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, auditsQuery)
	if err != nil {
		return "", fmt.Errorf("query sys.server_audits: %w", err)
	}
	defer rows.Close()

	var out string
	for rows.Next() {
		var a auditRow
		if err := rows.Scan(&a.Name, &a.Type, &a.FilePath, &a.MaxRolloverFiles,
			&a.MaxFileSizeMB, &a.Enabled, &a.OnFailure); err != nil {
			return "", fmt.Errorf("scan audit row: %w", err)
		}
		stmt, err := render("audit", auditTemplate, a)
		if err != nil {
			return "", err
		}
		out += stmt
	}
	return out, rows.Err()
}

const auditSpecsQuery = `SELECT s.name, a.name, d.audit_action_name, s.is_state_enabled
FROM sys.server_audit_specifications s
JOIN sys.server_audits a ON a.audit_guid = s.audit_guid
JOIN sys.server_audit_specification_details d ON d.server_specification_id = s.server_specification_id
ORDER BY s.name, d.audit_action_name`

func scriptAuditSpecifications(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, auditSpecsQuery)
	if err != nil {
		return "", fmt.Errorf("query sys.server_audit_specifications: %w", err)
	}
	defer rows.Close()

	type spec struct {
		audit   string
		actions []string
		enabled bool
	}
	specs := map[string]*spec{}
	var order []string

	for rows.Next() {
		var name, audit, action string
		var enabled bool
		if err := rows.Scan(&name, &audit, &action, &enabled); err != nil {
			return "", fmt.Errorf("scan audit specification row: %w", err)
		}
		s, ok := specs[name]
		if !ok {
			s = &spec{audit: audit, enabled: enabled}
			specs[name] = s
			order = append(order, name)
		}
		s.actions = append(s.actions, action)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	var out string
	for _, name := range order {
		s := specs[name]
		out += fmt.Sprintf("CREATE SERVER AUDIT SPECIFICATION %s\n    FOR SERVER AUDIT %s", QuoteName(name), QuoteName(s.audit))
		for _, action := range s.actions {
			out += fmt.Sprintf("\n    ADD (%s)", action)
		}
		state := "OFF"
		if s.enabled {
			state = "ON"
		}
		out += fmt.Sprintf("\n    WITH (STATE = %s);\nGO\n", state)
	}
	return out, nil
}

const xeSessionsQuery = `SELECT s.name, ISNULL(e.name, N''), ISNULL(t.name, N'')
FROM sys.server_event_sessions s
LEFT JOIN sys.server_event_session_events e ON e.event_session_id = s.event_session_id
LEFT JOIN sys.server_event_session_targets t ON t.event_session_id = s.event_session_id
WHERE s.name NOT IN (N'system_health', N'AlwaysOn_health', N'telemetry_xevents')
ORDER BY s.name, e.name, t.name`

// scriptXESessions emits CREATE EVENT SESSION statements for
// user-defined sessions; shipped sessions are skipped.
func scriptXESessions(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, xeSessionsQuery)
	if err != nil {
		return "", fmt.Errorf("query sys.server_event_sessions: %w", err)
	}
	defer rows.Close()

	type session struct {
		events  []string
		targets []string
	}
	sessions := map[string]*session{}
	var order []string
	seenEvent := map[string]bool{}
	seenTarget := map[string]bool{}

	for rows.Next() {
		var name, event, target string
		if err := rows.Scan(&name, &event, &target); err != nil {
			return "", fmt.Errorf("scan event session row: %w", err)
		}
		s, ok := sessions[name]
		if !ok {
			s = &session{}
			sessions[name] = s
			order = append(order, name)
		}
		if event != "" && !seenEvent[name+"\x00"+event] {
			seenEvent[name+"\x00"+event] = true
			s.events = append(s.events, event)
		}
		if target != "" && !seenTarget[name+"\x00"+target] {
			seenTarget[name+"\x00"+target] = true
			s.targets = append(s.targets, target)
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	var out string
	for _, name := range order {
		s := sessions[name]
		out += fmt.Sprintf("CREATE EVENT SESSION %s ON SERVER", QuoteName(name))
		for _, e := range s.events {
			out += fmt.Sprintf("\n    ADD EVENT sqlserver.%s", e)
		}
		for _, t := range s.targets {
			out += fmt.Sprintf("\n    ADD TARGET package0.%s", t)
		}
		out += ";\nGO\n"
	}
	return out, nil
}
