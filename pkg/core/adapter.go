package core

import (
	"context"

	"github.com/leapstack-labs/leapch/pkg/chtype"
)

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database connection.
	Close() error

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sql string) (*TabularResult, error)

	// GetTableMetadata retrieves metadata for a table.
	GetTableMetadata(ctx context.Context, table string) (*TableMetadata, error)

	// LoadCSV loads data from a CSV file into a table.
	LoadCSV(ctx context.Context, tableName, filePath string) error
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
	Params   map[string]any
}

// ColumnMeta describes one column of a result set or DESCRIBE row.
type ColumnMeta struct {
	Name string
	// Type is the native type-name string, e.g. "Nullable(Array(UInt32))".
	Type       string
	Descriptor *chtype.Descriptor
	Nullable   bool
	// Default is the extracted literal default, nil when there is none or
	// when it cannot be represented as a literal.
	Default *string
	// DefaultFunction holds the default expression when it is a function
	// call such as now() or generateUUIDv4().
	DefaultFunction string
	PrimaryKey      bool
	Position        int
}

// TableMetadata holds metadata about a database table.
type TableMetadata struct {
	Database string
	Name     string
	Engine   string
	Columns  []ColumnMeta
	RowCount int64
}
