// Package clickhouse provides a ClickHouse adapter speaking the HTTP
// interface.
//
// This file registers the adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapch/pkg/adapters/clickhouse"
package clickhouse

import (
	"log/slog"

	"github.com/leapstack-labs/leapch/pkg/adapter"
)

func init() {
	adapter.Register("clickhouse", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
