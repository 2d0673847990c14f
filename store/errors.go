package store

import "github.com/pkg/errors"

// Store error taxonomy. Callers branch with IsRetryable: a retryable
// error means "re-run the whole transactional closure", anything else
// is terminal and must surface to the caller untouched.
var (
	ErrCellNotFound = errors.New("cell does not exist")
	ErrTxnConflict  = errors.New("transaction conflicted at commit")
	ErrTxnAborted   = errors.New("transaction aborted, retry budget exhausted")
	ErrTxnClosed    = errors.New("transaction already committed or discarded")
	ErrStoreClosed  = errors.New("store closed")
	ErrBadCellData  = errors.New("malformed cell payload")
)

// IsRetryable reports whether err is an optimistic-concurrency conflict
// worth re-running the enclosing transaction for.
func IsRetryable(err error) bool {
	return errors.Cause(err) == ErrTxnConflict
}
