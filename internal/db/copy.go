package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Table parses "schema.table" or "table" into a pgx identifier.
func Table(name string) pgx.Identifier {
	return pgx.Identifier(strings.Split(name, "."))
}

// CopyFrom bulk-inserts rows into table using the COPY protocol.
func CopyFrom(ctx context.Context, c Copier, table pgx.Identifier, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := c.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table.Sanitize())
	}
	return n, nil
}

// Batches yields row slices of at most size rows each.
type Batches func(yield func([][]any) bool) error

// ReplaceTable truncates table and COPYs every batch into it inside one
// transaction, mirroring a WRITE_TRUNCATE load job. Nothing is visible to
// readers until every batch has loaded.
func ReplaceTable(ctx context.Context, pool Pool, table pgx.Identifier, columns []string, batches Batches) (int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: replace: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+table.Sanitize()); err != nil {
		return 0, eris.Wrapf(err, "db: replace: truncate %s", table.Sanitize())
	}

	var total int64
	var copyErr error
	iterErr := batches(func(rows [][]any) bool {
		n, err := CopyFrom(ctx, tx, table, columns, rows)
		if err != nil {
			copyErr = err
			return false
		}
		total += n
		return true
	})
	if copyErr != nil {
		return 0, copyErr
	}
	if iterErr != nil {
		return 0, eris.Wrapf(iterErr, "db: replace: read rows for %s", table.Sanitize())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: replace: commit")
	}
	return total, nil
}
