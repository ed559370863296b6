// Package store defines the graph-store connection the core consumes
// (pkg/engine, pkg/serializer) and hosts a Postgres-backed adapter that
// stands in for the backing graph database spec.md treats as external.
package store

import "context"

// Row is one result row from a Query/QueryOne call. Get supports dotted
// paths, e.g. "_module.filename", mirroring nested-shape access against a
// graph-query result object.
type Row interface {
	Get(path string) (any, bool)
}

// Connection executes rendered graph-query text and manages transactions.
// pkg/engine, pkg/serializer, and pkg/compiler depend only on this
// interface, never on a concrete driver.
type Connection interface {
	Query(ctx context.Context, text string, vars map[string]any) ([]Row, error)
	QueryOne(ctx context.Context, text string, vars map[string]any) (Row, error)
	Transaction(ctx context.Context, fn func(Tx) error) error
}

// Tx is a Connection scoped to one transaction.
type Tx interface {
	Connection
}
