// Package lineage records data movements as lineage events and walks the
// lineage graph around a node.
package lineage

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lineage-cli/pkg/datalineage"
)

const (
	// ManualRun is the run display name when no job id is supplied.
	ManualRun = "Manual"

	originPrefix = "data_ingestion/"

	defaultMaxDepth   = 64
	defaultMaxQueries = 10000
)

// Step names one link of the process → run → event creation chain.
type Step string

const (
	StepProcess Step = "process"
	StepRun     Step = "run"
	StepEvent   Step = "event"
)

// StepError reports the creation step that aborted CreateLineage.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return "lineage: create " + string(e.Step) + " failed: " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Recording holds the identifiers assigned by the lineage service.
type Recording struct {
	Process string `json:"process" yaml:"process"`
	Run     string `json:"run" yaml:"run"`
	Event   string `json:"event" yaml:"event"`
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMaxDepth caps how many edges a traversal follows away from its seed.
func WithMaxDepth(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// WithMaxQueries caps the number of search-links calls one traversal may make.
func WithMaxQueries(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxQueries = n
		}
	}
}

// Recorder records one Movement and traverses the graph around its endpoints.
type Recorder struct {
	client     datalineage.Client
	m          Movement
	maxDepth   int
	maxQueries int
}

// NewRecorder creates a Recorder for m. m is copied and never modified.
func NewRecorder(client datalineage.Client, m Movement, opts ...Option) *Recorder {
	r := &Recorder{
		client:     client,
		m:          m,
		maxDepth:   defaultMaxDepth,
		maxQueries: defaultMaxQueries,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Movement returns the movement this recorder was built for.
func (r *Recorder) Movement() Movement {
	return r.m
}

// CreateLineage creates a process, a run of it and a lineage event carrying
// the source → target edge. The first failed step aborts the chain and is
// returned as a *StepError. Calling it twice records two independent triples.
func (r *Recorder) CreateLineage(ctx context.Context) (*Recording, error) {
	if err := r.m.Validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("source", r.m.Source),
		zap.String("target", r.m.Target),
	)
	log.Info("creating lineage", zap.String("process", r.m.ProcessName))

	fail := func(step Step, err error) (*Recording, error) {
		log.Error("create lineage step failed", zap.String("step", string(step)), zap.Error(err))
		return nil, &StepError{Step: step, Err: err}
	}

	var rec Recording
	var err error

	rec.Process, err = r.client.CreateProcess(ctx, r.m.Location, datalineage.Process{
		DisplayName: r.m.ProcessName,
		Origin: datalineage.Origin{
			SourceType: datalineage.SourceTypeCustom,
			Name:       originPrefix + r.m.Origin,
		},
	})
	if err != nil {
		return fail(StepProcess, err)
	}

	rec.Run, err = r.client.CreateRun(ctx, rec.Process, datalineage.Run{
		DisplayName: r.m.RunName(),
		StartTime:   datalineage.Timestamp(r.m.Start),
		EndTime:     datalineage.Timestamp(r.m.end()),
		State:       datalineage.StateCompleted,
	})
	if err != nil {
		return fail(StepRun, err)
	}

	rec.Event, err = r.client.CreateLineageEvent(ctx, rec.Run, datalineage.Event{
		Links: []datalineage.EventLink{{
			Source: datalineage.EntityReference{FullyQualifiedName: r.m.Source},
			Target: datalineage.EntityReference{FullyQualifiedName: r.m.Target},
		}},
		StartTime: datalineage.Timestamp(r.m.Start),
	})
	if err != nil {
		return fail(StepEvent, err)
	}

	log.Info("lineage created",
		zap.String("process_id", rec.Process),
		zap.String("run_id", rec.Run),
		zap.String("event_id", rec.Event),
	)
	return &rec, nil
}

// Lineage is the graph reachable from a movement's endpoints.
type Lineage struct {
	// Downstream holds edges reachable forward from the source.
	Downstream []Edge `json:"downstream" yaml:"downstream"`
	// Upstream holds edges reachable backward from the target.
	Upstream []Edge `json:"upstream" yaml:"upstream"`
}

// RetrieveLineage walks forward from the movement's source and backward from
// its target. The two walks run concurrently; each is depth-first.
func (r *Recorder) RetrieveLineage(ctx context.Context) (*Lineage, error) {
	if r.m.Source == "" || r.m.Target == "" {
		return nil, eris.New("lineage: source and target are required")
	}

	var out Lineage
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		edges, err := Collect(r.Forward(gctx, r.m.Source), func(e Edge) {
			zap.L().Info("downstream link", zap.String("source", e.Source), zap.String("target", e.Target))
		})
		out.Downstream = edges
		if err != nil {
			return eris.Wrap(err, "lineage: forward traversal")
		}
		return nil
	})
	g.Go(func() error {
		edges, err := Collect(r.Backward(gctx, r.m.Target), func(e Edge) {
			zap.L().Info("upstream link", zap.String("target", e.Target), zap.String("source", e.Source))
		})
		out.Upstream = edges
		if err != nil {
			return eris.Wrap(err, "lineage: backward traversal")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
