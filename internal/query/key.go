package query

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Key addresses one cache entry. It is an ordered tuple of parts; two keys
// are equal iff their parts are equal after NFC normalization.
type Key struct {
	parts []string
}

// NewKey builds a key from parts, normalizing each to NFC so that
// visually identical ids address the same entry.
func NewKey(parts ...string) Key {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = norm.NFC.String(p)
	}
	return Key{parts: out}
}

// Parts returns a copy of the key parts.
func (k Key) Parts() []string {
	return append([]string(nil), k.parts...)
}

// String joins the escaped parts with "/". The result is unique per key
// and is used as the map and singleflight identity.
func (k Key) String() string {
	escaped := make([]string, len(k.parts))
	for i, p := range k.parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, "/")
}

// Equal reports whether k and o address the same entry.
func (k Key) Equal(o Key) bool {
	if len(k.parts) != len(o.parts) {
		return false
	}
	for i := range k.parts {
		if k.parts[i] != o.parts[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether the leading parts of k equal prefix.
// Matching is part-wise: "dashboard" is not a prefix of "dashboards".
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix.parts) > len(k.parts) {
		return false
	}
	for i := range prefix.parts {
		if k.parts[i] != prefix.parts[i] {
			return false
		}
	}
	return true
}

// Keys holds the builders for every resource the bindings cache.
var Keys keyBuilder

type keyBuilder struct{}

func (keyBuilder) User() Key { return NewKey("user") }
func (keyBuilder) Organizations() Key { return NewKey("organizations") }
func (keyBuilder) Datasets() Key { return NewKey("datasets") }
func (keyBuilder) Dataset(id string) Key { return NewKey("dataset", id) }
func (keyBuilder) Dashboards() Key { return NewKey("dashboards") }
func (keyBuilder) Dashboard(id string) Key { return NewKey("dashboard", id) }
func (keyBuilder) Analysis(id string) Key { return NewKey("analysis", id) }
func (keyBuilder) History() Key { return NewKey("history") }
func (keyBuilder) Admin() Key { return NewKey("admin") }
func (keyBuilder) Users() Key { return NewKey("admin", "users") }
func (keyBuilder) AuditLogs() Key { return NewKey("admin", "audit-logs") }
