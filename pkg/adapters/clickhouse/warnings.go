package clickhouse

import (
	"log/slog"
	"sync"
)

// Warning is a non-fatal condition observed while running a statement.
type Warning struct {
	// Code groups warnings of the same kind, e.g. "summary_header".
	Code    string
	Message string
	// Statement is filled in when the warning is delivered.
	Statement string
}

func (w Warning) signature() string {
	return w.Code + "\x00" + w.Message
}

// WarningSink receives each distinct warning once per connection.
type WarningSink func(Warning)

// warningLog accumulates warnings for one connection and drains them after
// each statement.
type warningLog struct {
	mu      sync.Mutex
	pending []Warning
	seen    map[string]struct{}
	sink    WarningSink
}

func newWarningLog(logger *slog.Logger) *warningLog {
	return &warningLog{
		seen: make(map[string]struct{}),
		sink: func(w Warning) {
			logger.Warn(w.Message, slog.String("code", w.Code), slog.String("sql", w.Statement))
		},
	}
}

func (l *warningLog) add(w Warning) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, w)
}

// drain delivers pending warnings tagged with stmt and clears them. A
// warning whose signature was already delivered is dropped.
func (l *warningLog) drain(stmt string) {
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	var deliver []Warning
	for _, w := range pending {
		sig := w.signature()
		if _, dup := l.seen[sig]; dup {
			continue
		}
		l.seen[sig] = struct{}{}
		w.Statement = stmt
		deliver = append(deliver, w)
	}
	sink := l.sink
	l.mu.Unlock()

	for _, w := range deliver {
		sink(w)
	}
}

func (l *warningLog) snapshot() []Warning {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Warning(nil), l.pending...)
}

func (l *warningLog) setSink(sink WarningSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// SetWarningSink replaces the default sink, which logs at Warn level.
func (a *Adapter) SetWarningSink(sink WarningSink) {
	if sink == nil {
		sink = func(Warning) {}
	}
	a.warnings.setSink(sink)
}

// AddWarning records a warning to be delivered after the current statement.
func (a *Adapter) AddWarning(w Warning) {
	a.warnings.add(w)
}

// PendingWarnings returns warnings recorded but not yet delivered.
func (a *Adapter) PendingWarnings() []Warning {
	return a.warnings.snapshot()
}
