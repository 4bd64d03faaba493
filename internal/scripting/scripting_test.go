// SPDX-License-Identifier: MPL-2.0

package scripting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestQuoteName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Sales", "[Sales]"},
		{"odd]name", "[odd]]name]"},
		{"with space", "[with space]"},
	}
	for _, tt := range tests {
		if got := QuoteName(tt.in); got != tt.want {
			t.Errorf("QuoteName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuoteLiteral(t *testing.T) {
	t.Parallel()

	if got := QuoteLiteral("it's"); got != "N'it''s'" {
		t.Errorf("QuoteLiteral = %q", got)
	}
	if got := QuoteLiteral(""); got != "N''" {
		t.Errorf("QuoteLiteral empty = %q", got)
	}
}

func TestClasses_OrderAndLookup(t *testing.T) {
	t.Parallel()

	classes := Classes()
	if len(classes) != 12 {
		t.Fatalf("Classes() returned %d classes, want 12", len(classes))
	}
	// Principals must precede the objects that reference them.
	if classes[1].Name != "logins" || classes[2].Name != "roles" {
		t.Errorf("logins/roles must come right after configs, got %s/%s", classes[1].Name, classes[2].Name)
	}

	for _, c := range classes {
		got, ok := Lookup(c.Name)
		if !ok || got.Name != c.Name {
			t.Errorf("Lookup(%q) failed", c.Name)
		}
		if c.Script == nil {
			t.Errorf("class %q has no Script func", c.Name)
		}
		if c.Description == "" {
			t.Errorf("class %q has no description", c.Name)
		}
	}

	if _, ok := Lookup("nonsense"); ok {
		t.Error("Lookup(nonsense) should fail")
	}
}

func TestWriter_InstanceDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	w := NewWriter(base, false)

	dir, err := w.InstanceDir(`CORP\prod,1433`)
	if err != nil {
		t.Fatalf("InstanceDir error: %v", err)
	}
	if filepath.Base(dir) != "CORP_prod_1433" {
		t.Errorf("instance dir = %q, want sanitized name", filepath.Base(dir))
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("instance dir was not created: %v", err)
	}
}

func TestWriter_InstanceDir_Timestamp(t *testing.T) {
	t.Parallel()

	w := NewWriter(t.TempDir(), true)
	w.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 5, 0, time.UTC) }

	dir, err := w.InstanceDir("dev")
	if err != nil {
		t.Fatalf("InstanceDir error: %v", err)
	}
	if filepath.Base(dir) != "dev-20240301T123005Z" {
		t.Errorf("instance dir = %q, want timestamped name", filepath.Base(dir))
	}
}

func TestWriter_Write(t *testing.T) {
	t.Parallel()

	w := NewWriter(t.TempDir(), false)
	dir, err := w.InstanceDir("dev")
	if err != nil {
		t.Fatalf("InstanceDir error: %v", err)
	}

	path, err := w.Write(dir, "logins", "-- header\n\n", "CREATE LOGIN [x] FROM WINDOWS;")
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if filepath.Base(path) != "logins.sql" {
		t.Errorf("path = %q, want logins.sql", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	got := string(content)
	if !strings.HasPrefix(got, "-- header\n") {
		t.Errorf("file should start with header:\n%s", got)
	}
	if !strings.HasSuffix(got, ";\n") {
		t.Errorf("file should end with a newline:\n%q", got)
	}
}

func TestRender_LoginTemplate(t *testing.T) {
	t.Parallel()

	sqlLogin := loginRow{
		Name:          "app_user",
		Type:          "S",
		DefaultDB:     "AppDb",
		PasswordHash:  "0x0200AB",
		SID:           "0x01CD",
		Disabled:      true,
		PolicyChecked: true,
	}
	got, err := render("login", loginTemplate, sqlLogin)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	for _, want := range []string{
		"CREATE LOGIN [app_user] WITH PASSWORD = 0x0200AB HASHED",
		"SID = 0x01CD",
		"DEFAULT_DATABASE = [AppDb]",
		"CHECK_POLICY = ON",
		"CHECK_EXPIRATION = OFF",
		"ALTER LOGIN [app_user] DISABLE;",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("login script missing %q:\n%s", want, got)
		}
	}

	winLogin := loginRow{Name: `CORP\dba`, Type: "U", DefaultDB: "master"}
	got, err = render("login", loginTemplate, winLogin)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !strings.Contains(got, `CREATE LOGIN [CORP\dba] FROM WINDOWS`) {
		t.Errorf("windows login should use FROM WINDOWS:\n%s", got)
	}
	if strings.Contains(got, "HASHED") {
		t.Errorf("windows login must not carry a password hash:\n%s", got)
	}
}

func TestRender_AuditTemplate(t *testing.T) {
	t.Parallel()

	fileAudit := auditRow{
		Name:             "compliance",
		Type:             "FL",
		FilePath:         `D:\audits\`,
		MaxFileSizeMB:    100,
		MaxRolloverFiles: 10,
		Enabled:          true,
		OnFailure:        "CONTINUE",
	}
	got, err := render("audit", auditTemplate, fileAudit)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	for _, want := range []string{
		"CREATE SERVER AUDIT [compliance]",
		`TO FILE (FILEPATH = N'D:\audits\', MAXSIZE = 100 MB, MAX_ROLLOVER_FILES = 10)`,
		"WITH (ON_FAILURE = CONTINUE)",
		"ALTER SERVER AUDIT [compliance] WITH (STATE = ON);",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("audit script missing %q:\n%s", want, got)
		}
	}

	appLogAudit := auditRow{Name: "applog", Type: "AL", OnFailure: "CONTINUE"}
	got, err = render("audit", auditTemplate, appLogAudit)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !strings.Contains(got, "TO APPLICATION_LOG") {
		t.Errorf("application log audit target missing:\n%s", got)
	}
	if strings.Contains(got, "ALTER SERVER AUDIT") {
		t.Errorf("disabled audit should not be switched on:\n%s", got)
	}
}

func TestRender_JobTemplate(t *testing.T) {
	t.Parallel()

	job := &agentJob{
		Name:        "nightly backup",
		Description: "full backup of user databases",
		Enabled:     true,
		Category:    "Database Maintenance",
		Steps: []jobStep{
			{ID: 1, Name: "backup", Subsystem: "TSQL", Command: "EXEC dbo.backup_all;", Database: "master"},
			{ID: 2, Name: "verify", Subsystem: "TSQL", Command: "EXEC dbo.verify_backups;"},
		},
	}
	got, err := render("job", jobTemplate, job)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	for _, want := range []string{
		"@job_name = N'nightly backup'",
		"@enabled = 1",
		"@category_name = N'Database Maintenance'",
		"@step_id = 1",
		"@step_id = 2",
		"@database_name = N'master'",
		"sp_add_jobserver",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("job script missing %q:\n%s", want, got)
		}
	}
	// step 2 has no database, so only one @database_name clause
	if strings.Count(got, "@database_name") != 1 {
		t.Errorf("expected exactly one @database_name clause:\n%s", got)
	}
}

func TestDBFileClause(t *testing.T) {
	t.Parallel()

	f := dbFile{LogicalName: "Sales_data", PhysicalName: `E:\data\sales.mdf`, SizeMB: 512, MaxSizeMB: -1, Growth: 8192}
	got := f.clause()
	want := `(NAME = [Sales_data], FILENAME = N'E:\data\sales.mdf', SIZE = 512MB, FILEGROWTH = 64MB)`
	if got != want {
		t.Errorf("clause() =\n  %s\nwant\n  %s", got, want)
	}

	pct := dbFile{LogicalName: "Sales_log", PhysicalName: `F:\log\sales.ldf`, SizeMB: 128, MaxSizeMB: 1024, Growth: 10, GrowthPct: true}
	got = pct.clause()
	if !strings.Contains(got, "MAXSIZE = 1024MB") || !strings.Contains(got, "FILEGROWTH = 10%") {
		t.Errorf("percent growth clause wrong: %s", got)
	}
}
