package sensor

import "context"

// Source abstracts a remote sensor that yields one Reading per fetch.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Reading, error)
}

// Store is the contract the bounded in-memory history must satisfy.
// Append is only ever called from the writer loop.
type Store interface {
	Append(rec Record)
	Snapshot() []Record
	Len() int
}

// Persister rewrites the persisted history in full.
type Persister interface {
	Save(records []Record) error
}
