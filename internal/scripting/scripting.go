// SPDX-License-Identifier: MPL-2.0

// Package scripting generates T-SQL scripts for server-level objects by
// reading catalog views and rendering CREATE statements. It is the Go
// counterpart of the vendor object model's scripter: read the metadata,
// emit DDL, write one file per object class.
package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"mssqlops-cli/internal/instance"
	"mssqlops-cli/internal/issue"
)

// Class is one scriptable object class. Script returns the full DDL
// body for the class, without the file header.
type Class struct {
	// Name is the class identifier used as subcommand and file name.
	Name string
	// Description is shown in help output.
	Description string
	// Script reads catalog metadata and renders the DDL body.
	Script func(ctx context.Context, conn *instance.Conn) (string, error)
}

// Classes returns all scriptable classes in the order `export instance`
// runs them. Security principals come first so later objects that
// reference them can be replayed in file order.
func Classes() []Class {
	return []Class{
		{Name: "configs", Description: "sp_configure options", Script: scriptConfigs},
		{Name: "logins", Description: "server logins", Script: scriptLogins},
		{Name: "roles", Description: "server roles and memberships", Script: scriptRoles},
		{Name: "credentials", Description: "server credentials", Script: scriptCredentials},
		{Name: "linked-servers", Description: "linked server definitions", Script: scriptLinkedServers},
		{Name: "endpoints", Description: "user-defined endpoints", Script: scriptEndpoints},
		{Name: "triggers", Description: "server DDL triggers", Script: scriptServerTriggers},
		{Name: "databases", Description: "database shells with file layout", Script: scriptDatabases},
		{Name: "jobs", Description: "SQL Agent jobs and steps", Script: scriptJobs},
		{Name: "audits", Description: "server audits", Script: scriptAudits},
		{Name: "audit-specifications", Description: "server audit specifications", Script: scriptAuditSpecifications},
		{Name: "xe-sessions", Description: "extended events sessions", Script: scriptXESessions},
	}
}

// Lookup finds a class by name.
func Lookup(name string) (Class, bool) {
	for _, c := range Classes() {
		if c.Name == name {
			return c, true
		}
	}
	return Class{}, false
}

// Writer places generated scripts under OutputDir/<instance>/<class>.sql.
type Writer struct {
	// OutputDir is the base directory for all instances.
	OutputDir string
	// AppendTimestamp suffixes the instance directory with a UTC timestamp.
	AppendTimestamp bool

	// now is overridable in tests.
	now func() time.Time
}

// NewWriter returns a Writer rooted at outputDir.
func NewWriter(outputDir string, appendTimestamp bool) *Writer {
	return &Writer{
		OutputDir:       outputDir,
		AppendTimestamp: appendTimestamp,
		now:             time.Now,
	}
}

// InstanceDir returns (and creates) the directory for one instance's scripts.
func (w *Writer) InstanceDir(instanceName string) (string, error) {
	name := sanitizeName(instanceName)
	if w.AppendTimestamp {
		name = name + "-" + w.now().UTC().Format("20060102T150405Z")
	}
	dir := filepath.Join(w.OutputDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", issue.WrapWithContext(err, "create export directory", dir)
	}
	return dir, nil
}

// Write renders one class file. Returns the written path.
func (w *Writer) Write(dir, class, header, body string) (string, error) {
	path := filepath.Join(dir, class+".sql")

	var content strings.Builder
	content.WriteString(header)
	content.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		content.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(content.String()), 0o644); err != nil {
		return "", issue.WrapWithContext(err, "write script file", path)
	}
	return path, nil
}

// Header returns the generated-script banner placed at the top of every file.
func Header(conn *instance.Conn, now time.Time) string {
	return fmt.Sprintf(
		"-- Generated by mssqlops\n-- Instance: %s (%s)\n-- Server version: %s\n-- Date: %s\n\n",
		conn.Target.Name, conn.Version.ServerName, conn.Version, now.UTC().Format(time.RFC3339))
}

// sanitizeName makes an instance name safe as a directory name.
func sanitizeName(name string) string {
	r := strings.NewReplacer("\\", "_", "/", "_", ",", "_", ":", "_", " ", "_")
	return r.Replace(name)
}

// QuoteName brackets an identifier, doubling closing brackets.
func QuoteName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QuoteLiteral wraps a string in N'...', doubling single quotes.
func QuoteLiteral(s string) string {
	return "N'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// render executes a template with the scripting helper funcs.
func render(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(template.FuncMap{
		"qname": QuoteName,
		"qlit":  QuoteLiteral,
	}).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}
	return b.String(), nil
}
