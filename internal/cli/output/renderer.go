package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapch/pkg/core"
	"golang.org/x/term"
)

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	mode   OutputMode
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	return NewRendererWithTTY(out, errOut, IsTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	return &Renderer{
		out:    out,
		errOut: errOut,
		isTTY:  isTTY,
		mode:   mode,
		styles: NewStyles(out, isTTY),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves auto to text or markdown.
func (r *Renderer) EffectiveMode() OutputMode {
	if r.mode == ModeAuto || r.mode == "" {
		if r.isTTY {
			return ModeText
		}
		return ModeMarkdown
	}
	return r.mode
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Writer returns the standard output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Styles returns the renderer styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a section header.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		return
	}
	r.Println(r.styles.Header.Render(text))
}

// Success writes a success message.
func (r *Renderer) Success(msg string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println("**" + msg + "**")
		return
	}
	r.Println(r.styles.Success.Render("✓ " + msg))
}

// Warning writes a warning to the error stream.
func (r *Renderer) Warning(msg string) {
	if r.EffectiveMode() == ModeMarkdown || r.mode == ModeJSON {
		_, _ = fmt.Fprintln(r.errOut, "warning: "+msg)
		return
	}
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("! "+msg))
}

// Error writes an error to the error stream.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error: "+msg))
}

// Muted renders text in the muted style.
func (r *Renderer) Muted(text string) string {
	return r.styles.Muted.Render(text)
}

// StatusLine writes "<mark> name detail" for status success, warning or error.
func (r *Renderer) StatusLine(name, status, detail string) {
	mark, style := "✓", r.styles.Success
	switch status {
	case "warning":
		mark, style = "!", r.styles.Warning
	case "error":
		mark, style = "✗", r.styles.Error
	}
	line := name
	if detail != "" {
		line += " " + r.Muted(detail)
	}
	if r.EffectiveMode() == ModeMarkdown {
		r.Println("- " + name + " " + detail)
		return
	}
	r.Println(style.Render(mark) + " " + line)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders a result set. format overrides the renderer mode and may be
// table, csv, md/markdown or json; empty follows the effective mode.
func (r *Renderer) Table(res *core.TabularResult, format string) error {
	if format == "" {
		switch r.EffectiveMode() {
		case ModeJSON:
			format = "json"
		case ModeMarkdown:
			format = "md"
		default:
			format = "table"
		}
	}

	if format == "json" {
		return r.JSON(rowObjects(res))
	}

	if len(res.Rows) == 0 && format != "csv" {
		r.Println("(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c.Name
	}
	t.AppendHeader(header)
	for _, row := range res.Rows {
		out := make(table.Row, len(row))
		for i, v := range row {
			out[i] = FormatValue(v)
		}
		t.AppendRow(out)
	}

	switch format {
	case "csv":
		t.RenderCSV()
		return nil
	case "md", "markdown":
		t.RenderMarkdown()
	default:
		t.Render()
	}
	r.Printf("(%d rows)\n", len(res.Rows))
	return nil
}

// FormatValue renders a cell for display.
func FormatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	switch x := v.(type) {
	case time.Time:
		if x.Nanosecond() == 0 {
			return x.Format(time.DateTime)
		}
		return x.Format("2006-01-02 15:04:05.999999999")
	case []any, map[string]any:
		b, err := json.Marshal(x)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", v)
}

func rowObjects(res *core.TabularResult) []map[string]any {
	out := make([]map[string]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		obj := make(map[string]any, len(res.Columns))
		for i, c := range res.Columns {
			if i < len(row) {
				obj[c.Name] = row[i]
			}
		}
		out = append(out, obj)
	}
	return out
}
