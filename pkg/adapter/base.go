package adapter

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapch/pkg/core"
)

// DefaultTimeout bounds a single HTTP round trip when the config sets none.
const DefaultTimeout = 30 * time.Second

// BaseHTTPAdapter provides common functionality for adapters that talk to a
// server over HTTP. Embed it in concrete adapters.
type BaseHTTPAdapter struct {
	Client  *http.Client
	BaseURL *url.URL
	Cfg     core.AdapterConfig
	Logger  *slog.Logger
}

// Open builds the HTTP client and endpoint URL for cfg. Nothing is sent to
// the server.
func (b *BaseHTTPAdapter) Open(cfg core.AdapterConfig, scheme string, defaultPort int, timeout time.Duration) error {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	u, err := url.Parse(fmt.Sprintf("%s://%s/", scheme, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))))
	if err != nil {
		return fmt.Errorf("failed to build endpoint URL: %w", err)
	}

	b.Cfg = cfg
	b.BaseURL = u
	b.Client = &http.Client{Timeout: timeout}
	if b.Logger != nil {
		b.Logger.Debug("configured http endpoint", slog.String("url", u.String()), slog.Duration("timeout", timeout))
	}
	return nil
}

// Close releases idle connections held by the client.
func (b *BaseHTTPAdapter) Close() error {
	if b.Client != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing http client")
		}
		b.Client.CloseIdleConnections()
		b.Client = nil
	}
	return nil
}

// IsConnected returns true once Open has succeeded and Close has not been
// called.
func (b *BaseHTTPAdapter) IsConnected() bool {
	return b.Client != nil && b.BaseURL != nil
}

// Endpoint returns the base URL with the given query parameters.
func (b *BaseHTTPAdapter) Endpoint(params url.Values) string {
	u := *b.BaseURL
	u.RawQuery = params.Encode()
	return u.String()
}

// ParseQualifiedName splits a table reference into database and name.
// Falls back to defaultDatabase when the reference is unqualified. A
// backtick-quoted identifier is never split, so `events.v2` is one table.
func ParseQualifiedName(table, defaultDatabase string) (database, name string) {
	first, rest := cutIdentifier(table)
	if !strings.HasPrefix(rest, ".") {
		return defaultDatabase, first
	}
	rest = rest[1:]
	if !strings.HasPrefix(rest, "`") {
		return first, rest
	}
	second, _ := cutIdentifier(rest)
	return first, second
}

// cutIdentifier reads one bare or backtick-quoted identifier from the front
// of s and returns it unquoted along with the remainder.
func cutIdentifier(s string) (ident, rest string) {
	if !strings.HasPrefix(s, "`") {
		if i := strings.IndexByte(s, '.'); i >= 0 {
			return s[:i], s[i:]
		}
		return s, ""
	}
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == '`':
			return b.String(), s[i+1:]
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), ""
}
