// Package adapter provides the database adapter contract and the shared
// HTTP plumbing used by concrete adapters.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves from init().
package adapter

import (
	"github.com/leapstack-labs/leapch/pkg/core"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.ColumnMeta.
	Column = core.ColumnMeta

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Result is an alias for core.TabularResult.
	Result = core.TabularResult

	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter
)
