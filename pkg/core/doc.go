// Package core defines the shared language of the leapch system.
//
// This package contains:
//   - Connection and project configuration types (AdapterConfig, TargetConfig)
//   - Result types shared by the wire codec and the adapter (ColumnMeta, TabularResult)
//   - The error taxonomy surfaced to callers
//
// The Golden Rule: pkg/core imports ONLY pkg/chtype and stdlib.
// All other packages depend on core, not the reverse.
package core
