package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lineage-cli/internal/lineage"
	"github.com/sells-group/lineage-cli/internal/storage"
	"github.com/sells-group/lineage-cli/pkg/datalineage"
)

// Process names recorded for ingest lineage.
const (
	LoadProcess     = "Load Job"
	DownloadProcess = "Data Download"
)

// Options configures a Runner.
type Options struct {
	// Location owns the lineage resources.
	Location datalineage.Location
	// Project qualifies table names recorded as lineage targets.
	Project string
	// TargetPrefix is prepended to project.schema.table, e.g. "bigquery:".
	TargetPrefix string
	// Upstream, when set, is recorded as the source every file was downloaded from.
	Upstream string
	// Concurrency bounds files loaded at once. Default: 4.
	Concurrency int
	// Recorder options applied to each per-file recorder.
	RecorderOptions []lineage.Option
}

// Summary counts the outcome of one Run.
type Summary struct {
	BatchID string `json:"batch_id" yaml:"batch_id"`
	Listed  int64  `json:"listed" yaml:"listed"`
	Skipped int64  `json:"skipped" yaml:"skipped"`
	Loaded  int64  `json:"loaded" yaml:"loaded"`
	Failed  int64  `json:"failed" yaml:"failed"`
	Rows    int64  `json:"rows" yaml:"rows"`
}

// Runner lists extract files, loads each into the warehouse, and records
// lineage for every successful load.
type Runner struct {
	store    storage.Store
	loader   Loader
	lineage  datalineage.Client
	families []Family
	opts     Options
	now      func() time.Time
}

// NewRunner validates families and creates a Runner.
func NewRunner(store storage.Store, loader Loader, client datalineage.Client, families []Family, opts Options) (*Runner, error) {
	if len(families) == 0 {
		return nil, eris.New("ingest: at least one family is required")
	}
	for _, f := range families {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Runner{
		store:    store,
		loader:   loader,
		lineage:  client,
		families: families,
		opts:     opts,
		now:      time.Now,
	}, nil
}

// Run processes every object under prefix. A failed file is logged and
// counted without stopping the others; only listing errors fail the run.
func (r *Runner) Run(ctx context.Context, prefix string) (*Summary, error) {
	sum := &Summary{BatchID: uuid.NewString()}
	log := zap.L().With(zap.String("batch_id", sum.BatchID), zap.String("prefix", prefix))

	objects, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: list objects")
	}
	sum.Listed = int64(len(objects))
	log.Info("listed objects", zap.Int("count", len(objects)))

	var skipped, loaded, failed, rows atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for _, obj := range objects {
		fam, ok := Match(r.families, obj.Key)
		if !ok {
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			n, err := r.processFile(gctx, sum.BatchID, obj, fam)
			if err != nil {
				failed.Add(1)
				log.Error("ingest file failed", zap.String("key", obj.Key), zap.String("family", fam.Name), zap.Error(err))
				return nil
			}
			loaded.Add(1)
			rows.Add(n)
			return nil
		})
	}
	_ = g.Wait()

	sum.Skipped = skipped.Load()
	sum.Loaded = loaded.Load()
	sum.Failed = failed.Load()
	sum.Rows = rows.Load()

	if err := ctx.Err(); err != nil {
		return sum, eris.Wrap(err, "ingest: run interrupted")
	}

	log.Info("ingest complete",
		zap.Int64("loaded", sum.Loaded),
		zap.Int64("failed", sum.Failed),
		zap.Int64("skipped", sum.Skipped),
		zap.Int64("rows", sum.Rows),
	)
	return sum, nil
}

func (r *Runner) processFile(ctx context.Context, batchID string, obj storage.Object, fam Family) (int64, error) {
	table := fam.TableFor(obj.Key)
	uri := r.store.URI(obj.Key)
	start := r.now().UTC()

	body, err := r.store.Open(ctx, obj.Key)
	if err != nil {
		return 0, err
	}
	n, err := r.loader.Load(ctx, body, fam, pgx.Identifier{fam.Schema, table})
	_ = body.Close()
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: load %s", obj.Key)
	}
	end := r.now().UTC()

	zap.L().Info("loaded file",
		zap.String("batch_id", batchID),
		zap.String("key", obj.Key),
		zap.String("table", fam.Schema+"."+table),
		zap.Int64("rows", n),
	)

	if r.opts.Upstream != "" {
		if err := r.record(ctx, DownloadProcess, fam.Origin, batchID, start, end, r.opts.Upstream, uri); err != nil {
			return n, err
		}
	}
	if err := r.record(ctx, LoadProcess, fam.Origin, batchID, start, end, uri, r.tableName(fam.Schema, table)); err != nil {
		return n, err
	}
	return n, nil
}

func (r *Runner) record(ctx context.Context, process, origin, jobID string, start, end time.Time, source, target string) error {
	rec := lineage.NewRecorder(r.lineage, lineage.Movement{
		Location:    r.opts.Location,
		ProcessName: process,
		Origin:      origin,
		JobID:       jobID,
		Start:       start,
		End:         end,
		Source:      source,
		Target:      target,
	}, r.opts.RecorderOptions...)
	_, err := rec.CreateLineage(ctx)
	return err
}

func (r *Runner) tableName(schema, table string) string {
	name := schema + "." + table
	if r.opts.Project != "" {
		name = r.opts.Project + "." + name
	}
	return r.opts.TargetPrefix + name
}
