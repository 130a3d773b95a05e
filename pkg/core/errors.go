package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDatabaseMissing is returned when the server reports UNKNOWN_DATABASE.
	ErrDatabaseMissing = errors.New("database does not exist")

	// ErrDatabaseAlreadyExists is returned when the server reports DATABASE_ALREADY_EXISTS.
	ErrDatabaseAlreadyExists = errors.New("database already exists")

	// ErrNotConnected is returned by adapters used before Connect.
	ErrNotConnected = errors.New("database connection not established")
)

// ConnectionError reports a transport failure: refused connections, DNS
// errors and timeouts. The statement never reached the server, or its
// outcome is unknown.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a transport timeout.
func (e *ConnectionError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// StatementError reports that the server rejected or failed a statement.
type StatementError struct {
	Statement  string
	StatusCode int
	Body       string
}

func (e *StatementError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "response code %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
	if e.Statement != "" {
		fmt.Fprintf(&b, "\nquery: %s", e.Statement)
	}
	return b.String()
}

// TableNotFoundError is returned when a table disappears between listing
// and describing it.
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("could not find table '%s'", e.Table)
}

// UnsupportedTypeError is returned when a column type cannot be classified
// into a renderable descriptor.
type UnsupportedTypeError struct {
	Column string
	Type   string
	Err    error
}

func (e *UnsupportedTypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unknown type '%s' for column '%s': %v", e.Type, e.Column, e.Err)
	}
	return fmt.Sprintf("unknown type '%s' for column '%s'", e.Type, e.Column)
}

func (e *UnsupportedTypeError) Unwrap() error { return e.Err }

// MalformedResponseError is returned when a body does not parse as the
// requested format. Raw keeps the undecoded body.
type MalformedResponseError struct {
	Format string
	Raw    string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Format, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
