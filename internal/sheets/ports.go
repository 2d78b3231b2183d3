package sheets

import (
	"context"

	"spendable/internal/core"
)

// Ports for outbound ledger export adapters.
type (
	// LedgerWriter appends rows to an external ledger. The export is
	// best-effort and append-only: SQLite stays the source of truth.
	LedgerWriter interface {
		// AppendTransaction writes a recorded ledger entry and returns a
		// reference to the appended row.
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)

		// AppendRollover writes a committed period advancement.
		AppendRollover(ctx context.Context, entity string, p core.Period) (rowRef string, err error)
	}
)
