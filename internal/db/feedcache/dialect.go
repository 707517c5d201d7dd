// Package feedcache is the SQL implementation of feeds.CacheStore shared by the
// Postgres and SQLite backends. Queries are written with '?' placeholders and rebound
// per dialect.
package feedcache

import (
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported backends
type Dialect struct {
	// Name is used in log lines only
	Name string
	// LockPartition is executed first in every write transaction with the feed name as
	// its only argument. Empty when the backend already serializes writers.
	LockPartition string
	// ForUpdate is appended to reads inside a write transaction
	ForUpdate string
	// Numbered placeholders ($1, $2, ...) instead of '?'
	Numbered bool
}

// Postgres serializes partition writers with a transaction-scoped advisory lock
var Postgres = Dialect{
	Name:          "postgres",
	LockPartition: "SELECT pg_advisory_xact_lock(hashtext(?))",
	ForUpdate:     " FOR UPDATE",
	Numbered:      true,
}

// SQLite relies on the single connection of the pool to serialize writers
var SQLite = Dialect{
	Name: "sqlite3",
}

// Rebind converts '?' placeholders into the dialect's form
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
