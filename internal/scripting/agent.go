// SPDX-License-Identifier: MPL-2.0

package scripting

import (
	"context"
	"fmt"

	"mssqlops-cli/internal/instance"
)

const jobsQuery = `SELECT
	j.name,
	ISNULL(j.description, N''),
	j.enabled,
	ISNULL(c.name, N''),
	ISNULL(s.step_id, 0),
	ISNULL(s.step_name, N''),
	ISNULL(s.subsystem, N''),
	ISNULL(s.command, N''),
	ISNULL(s.database_name, N'')
FROM msdb.dbo.sysjobs j
LEFT JOIN msdb.dbo.syscategories c ON c.category_id = j.category_id
LEFT JOIN msdb.dbo.sysjobsteps s ON s.job_id = j.job_id
ORDER BY j.name, s.step_id`

type jobStep struct {
	ID        int
	Name      string
	Subsystem string
	Command   string
	Database  string
}

type agentJob struct {
	Name        string
	Description string
	Enabled     bool
	Category    string
	Steps       []jobStep
}

const jobTemplate = `EXEC msdb.dbo.sp_add_job
    @job_name = {{qlit .Name}},
    @enabled = {{if .Enabled}}1{{else}}0{{end}}{{if .Description}},
    @description = {{qlit .Description}}{{end}}{{if .Category}},
    @category_name = {{qlit .Category}}{{end}};
{{- range .Steps}}
EXEC msdb.dbo.sp_add_jobstep
    @job_name = {{qlit $.Name}},
    @step_id = {{.ID}},
    @step_name = {{qlit .Name}},
    @subsystem = {{qlit .Subsystem}},
    @command = {{qlit .Command}}{{if .Database}},
    @database_name = {{qlit .Database}}{{end}};
{{- end}}
EXEC msdb.dbo.sp_add_jobserver @job_name = {{qlit .Name}};
GO
`

// scriptJobs emits sp_add_job / sp_add_jobstep calls for every SQL
// Agent job. Schedules are attached to jobs server-side and travel with
// msdb backups; only the job and step definitions are scripted here.
func scriptJobs(ctx context.Context, conn *instance.Conn) (string, error) {
	rows, err := conn.DB.QueryContext(ctx, jobsQuery)
	if err != nil {
		return "", fmt.Errorf("query msdb.dbo.sysjobs: %w", err)
	}
	defer rows.Close()

	jobs := map[string]*agentJob{}
	var order []string

	for rows.Next() {
		var (
			j    agentJob
			step jobStep
		)
		if err := rows.Scan(&j.Name, &j.Description, &j.Enabled, &j.Category,
			&step.ID, &step.Name, &step.Subsystem, &step.Command, &step.Database); err != nil {
			return "", fmt.Errorf("scan job row: %w", err)
		}
		job, ok := jobs[j.Name]
		if !ok {
			copied := j
			copied.Steps = nil
			job = &copied
			jobs[j.Name] = job
			order = append(order, j.Name)
		}
		if step.ID > 0 {
			job.Steps = append(job.Steps, step)
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	var out string
	for _, name := range order {
		stmt, err := render("job", jobTemplate, jobs[name])
		if err != nil {
			return "", err
		}
		out += stmt
	}
	return out, nil
}
