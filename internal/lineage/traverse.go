package lineage

import (
	"context"
	"iter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lineage-cli/pkg/datalineage"
)

// ErrTraversalLimit is yielded when a traversal reaches its query cap.
var ErrTraversalLimit = eris.New("lineage: traversal query limit reached")

// Edge is a directed source → target lineage assertion.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Direction selects which end of an edge a traversal follows.
type Direction int

const (
	// Downstream follows edges from source to target.
	Downstream Direction = iota
	// Upstream follows edges from target to source.
	Upstream
)

func (d Direction) String() string {
	if d == Upstream {
		return "upstream"
	}
	return "downstream"
}

func (d Direction) query(node string) datalineage.LinkQuery {
	if d == Upstream {
		return datalineage.LinkQuery{Target: node}
	}
	return datalineage.LinkQuery{Source: node}
}

func (d Direction) next(e Edge) string {
	if d == Upstream {
		return e.Source
	}
	return e.Target
}

// Forward yields every edge reachable downstream of node.
func (r *Recorder) Forward(ctx context.Context, node string) iter.Seq2[Edge, error] {
	return r.Walk(ctx, node, Downstream)
}

// Backward yields every edge reachable upstream of node.
func (r *Recorder) Backward(ctx context.Context, node string) iter.Seq2[Edge, error] {
	return r.Walk(ctx, node, Upstream)
}

type frame struct {
	links []datalineage.Link
	next  int
	depth int
}

// Walk lazily yields edges reachable from seed in depth-first pre-order: an
// edge is yielded, then the subgraph beyond it, then its siblings. Each node
// is queried at most once, so cycles terminate; edges into an already
// visited node are still yielded. A failed query yields its error and ends
// the sequence.
func (r *Recorder) Walk(ctx context.Context, seed string, dir Direction) iter.Seq2[Edge, error] {
	return func(yield func(Edge, error) bool) {
		visited := map[string]bool{seed: true}
		queries := 0

		expand := func(node string, depth int) (*frame, error) {
			if queries >= r.maxQueries {
				return nil, ErrTraversalLimit
			}
			queries++
			res, err := r.client.SearchLinks(ctx, r.m.Location, dir.query(node))
			if err != nil {
				return nil, eris.Wrapf(err, "lineage: search %s links of %s", dir, node)
			}
			if res.Empty() {
				return &frame{depth: depth}, nil
			}
			return &frame{links: res.Links, depth: depth}, nil
		}

		root, err := expand(seed, 1)
		if err != nil {
			yield(Edge{}, err)
			return
		}

		stack := []*frame{root}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				yield(Edge{}, err)
				return
			}

			top := stack[len(stack)-1]
			if top.next >= len(top.links) {
				stack = stack[:len(stack)-1]
				continue
			}
			link := top.links[top.next]
			top.next++

			e := Edge{Source: link.Source.FullyQualifiedName, Target: link.Target.FullyQualifiedName}
			if !yield(e, nil) {
				return
			}

			node := dir.next(e)
			if node == "" || visited[node] || top.depth >= r.maxDepth {
				continue
			}
			visited[node] = true

			child, err := expand(node, top.depth+1)
			if err != nil {
				yield(Edge{}, err)
				return
			}
			stack = append(stack, child)
		}
	}
}

// Collect drains seq into a slice, calling each (if non-nil) per edge. It
// returns the edges gathered before the first error.
func Collect(seq iter.Seq2[Edge, error], each func(Edge)) ([]Edge, error) {
	var edges []Edge
	for e, err := range seq {
		if err != nil {
			return edges, err
		}
		if each != nil {
			each(e)
		}
		edges = append(edges, e)
	}
	return edges, nil
}
