package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapch/internal/cli/config"
	"github.com/leapstack-labs/leapch/internal/cli/output"
	"github.com/leapstack-labs/leapch/pkg/adapters/clickhouse"
	"github.com/leapstack-labs/leapch/pkg/schemamigration"
	"github.com/spf13/cobra"
)

// Check statuses.
const (
	statusPass = "pass"
	statusWarn = "warn"
	statusFail = "error"
)

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Target string        `json:"target"`
	Config string        `json:"config"`
	Checks []HealthCheck `json:"checks"`
	Failed int           `json:"failed"`
}

// HealthCheck is the result of one check.
type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check connectivity and server state of the target",
		Long: `Check that the configured ClickHouse target is reachable and usable.

Reports the config file in use, connection latency, server version and
timezone, the current database, the number of tables and the latest recorded
migration. Exits with an error when the target cannot be reached.`,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	ctx := cmd.Context()
	target := cmdCtx.Cfg.Target

	out := &DoctorOutput{
		Target: fmt.Sprintf("%s:%d", target.Host, target.Port),
		Config: config.GetConfigFileUsed(),
	}
	if out.Config == "" {
		out.Config = "(defaults)"
	}

	start := time.Now()
	ch, cleanup, err := cmdCtx.Connect(ctx)
	if err != nil {
		out.add("connection", statusFail, err.Error())
		_ = renderDoctor(r, out)
		return fmt.Errorf("target %s is unreachable", out.Target)
	}
	defer cleanup()
	out.add("connection", statusPass, time.Since(start).Round(time.Millisecond).String())

	for _, check := range doctorChecks(ctx, ch, cmdCtx) {
		out.Checks = append(out.Checks, check)
		if check.Status == statusFail {
			out.Failed++
		}
	}

	if err := renderDoctor(r, out); err != nil {
		return err
	}
	if out.Failed > 0 {
		return fmt.Errorf("%d checks failed", out.Failed)
	}
	return nil
}

func (o *DoctorOutput) add(name, status, detail string) {
	o.Checks = append(o.Checks, HealthCheck{Name: name, Status: status, Detail: detail})
	if status == statusFail {
		o.Failed++
	}
}

func doctorChecks(ctx context.Context, ch *clickhouse.Adapter, cmdCtx *CommandContext) []HealthCheck {
	var checks []HealthCheck

	res, err := ch.ExecSystem(ctx, "SELECT version(), timezone(), currentDatabase()")
	if err != nil || res.Len() == 0 {
		checks = append(checks, HealthCheck{Name: "server", Status: statusFail, Detail: errDetail(err)})
	} else {
		row := res.Rows[0]
		checks = append(checks,
			HealthCheck{Name: "server", Status: statusPass, Detail: fmt.Sprintf("ClickHouse %v (%v)", row[0], row[1])},
			HealthCheck{Name: "database", Status: statusPass, Detail: fmt.Sprint(row[2])},
		)
	}

	if tables, err := ch.Tables(ctx); err != nil {
		checks = append(checks, HealthCheck{Name: "tables", Status: statusFail, Detail: errDetail(err)})
	} else {
		checks = append(checks, HealthCheck{Name: "tables", Status: statusPass, Detail: fmt.Sprintf("%d", len(tables))})
	}

	latest, err := schemamigration.New(ch, cmdCtx.Logger).Latest(ctx)
	switch {
	case err != nil:
		checks = append(checks, HealthCheck{Name: "migrations", Status: statusWarn, Detail: "schema_migrations not readable"})
	case latest == "":
		checks = append(checks, HealthCheck{Name: "migrations", Status: statusWarn, Detail: "no versions recorded"})
	default:
		checks = append(checks, HealthCheck{Name: "migrations", Status: statusPass, Detail: "latest " + latest})
	}

	return checks
}

func errDetail(err error) string {
	if err == nil {
		return "no rows"
	}
	return err.Error()
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, out)
	default:
		return renderDoctorText(r, out)
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()
	titleCaser := cases.Title(language.English)

	r.Println(styles.Header.Render("leapch doctor"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 40)))
	r.Printf("   Target: %s\n", styles.ID.Render(out.Target))
	r.Printf("   Config: %s\n", out.Config)
	r.Println("")

	for _, check := range out.Checks {
		status := "success"
		switch check.Status {
		case statusWarn:
			status = "warning"
		case statusFail:
			status = "error"
		}
		r.StatusLine(titleCaser.String(check.Name), status, check.Detail)
	}
	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	titleCaser := cases.Title(language.English)

	r.Println(output.FormatHeader(1, "leapch doctor"))
	r.Println("")
	r.Println(output.FormatKeyValue("Target", out.Target))
	r.Println(output.FormatKeyValue("Config", out.Config))
	r.Println("")
	r.Println(output.FormatHeader(2, "Checks"))
	r.Println("")
	r.Println("| Check | Status | Detail |")
	r.Println("| --- | --- | --- |")
	for _, check := range out.Checks {
		r.Printf("| %s | %s | %s |\n", titleCaser.String(check.Name), check.Status, strings.ReplaceAll(check.Detail, "|", `\|`))
	}
	return nil
}
