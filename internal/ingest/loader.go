package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lineage-cli/internal/db"
)

const defaultBatchSize = 5000

// Loader loads one extract file into a warehouse table.
type Loader interface {
	Load(ctx context.Context, r io.Reader, fam Family, table pgx.Identifier) (int64, error)
}

// WarehouseLoader replaces the target table's contents with the CSV rows,
// all columns loaded as text.
type WarehouseLoader struct {
	pool      db.Pool
	batchSize int
}

// NewWarehouseLoader creates a loader over pool. batchSize <= 0 uses 5000.
func NewWarehouseLoader(pool db.Pool, batchSize int) *WarehouseLoader {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &WarehouseLoader{pool: pool, batchSize: batchSize}
}

// Load streams r into table in batches inside one transaction.
func (l *WarehouseLoader) Load(ctx context.Context, r io.Reader, fam Family, table pgx.Identifier) (int64, error) {
	reader := csv.NewReader(r)
	reader.Comma = fam.delimiter()
	reader.FieldsPerRecord = len(fam.Columns)
	reader.ReuseRecord = true

	if fam.HasHeader {
		if _, err := reader.Read(); err != nil && !errors.Is(err, io.EOF) {
			return 0, eris.Wrap(err, "ingest: read header")
		}
	}

	batches := func(yield func([][]any) bool) error {
		batch := make([][]any, 0, l.batchSize)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return eris.Wrap(err, "ingest: read row")
			}

			row := make([]any, len(record))
			for i, v := range record {
				row[i] = v
			}
			batch = append(batch, row)

			if len(batch) == l.batchSize {
				if !yield(batch) {
					return nil
				}
				batch = make([][]any, 0, l.batchSize)
			}
		}
		if len(batch) > 0 {
			yield(batch)
		}
		return nil
	}

	return db.ReplaceTable(ctx, l.pool, table, fam.Columns, batches)
}
