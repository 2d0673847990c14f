package store

// Client is the cell store surface the graph layer runs on. Read/Write/
// Remove act on single cells with the cell's own atomicity; Transaction
// runs a closure against one consistent snapshot and commits its writes
// atomically, re-running the whole closure on optimistic-concurrency
// conflict. The closure may therefore run more than once and must be
// free of non-idempotent external side effects.
type Client interface {
	ReadCell(id Id) (*Cell, error)
	WriteCell(c *Cell) (uint64, error)
	RemoveCell(id Id) error

	Transaction(fn func(txn *Txn) error) error

	Close() error
}
