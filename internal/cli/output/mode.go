// Package output renders CLI results for terminals, pipes and scripts.
//
// In auto mode a terminal gets styled text and anything else gets markdown,
// which reads well in logs and when pasted into issues.
package output

import "strings"

// OutputMode selects how results are rendered.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// Mode parses a mode name. Unknown names mean auto.
func Mode(s string) OutputMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ModeText
	case "markdown", "md":
		return ModeMarkdown
	case "json":
		return ModeJSON
	}
	return ModeAuto
}

// Modes lists the accepted mode names, for flag completion.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}
}
