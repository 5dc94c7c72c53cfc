package lineage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lineage-cli/internal/resilience"
	"github.com/sells-group/lineage-cli/pkg/datalineage"
)

// chainServer counts create POSTs by resource and answers process creation
// with processStatus.
type chainServer struct {
	processes, runs, events atomic.Int32
}

func (s *chainServer) handler(processStatus int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/processes"):
			s.processes.Add(1)
			if processStatus != http.StatusOK {
				w.WriteHeader(processStatus)
				return
			}
			_, _ = w.Write([]byte(`{"name":"projects/123456/locations/us-central1/processes/p1"}`))
		case strings.HasSuffix(r.URL.Path, "/runs"):
			s.runs.Add(1)
			_, _ = w.Write([]byte(`{"name":"projects/123456/locations/us-central1/processes/p1/runs/r1"}`))
		case strings.HasSuffix(r.URL.Path, "/lineageEvents"):
			s.events.Add(1)
			_, _ = w.Write([]byte(`{"name":"projects/123456/locations/us-central1/processes/p1/runs/r1/lineageEvents/e1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func liveClient(srv *httptest.Server) datalineage.Client {
	return datalineage.NewClient(testLoc.Region,
		datalineage.WithBaseURL(srv.URL),
		datalineage.WithRetry(resilience.RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}),
	)
}

func TestCreateLineage_UnavailableProcessFailsFast(t *testing.T) {
	for _, status := range []int{http.StatusServiceUnavailable, http.StatusTooManyRequests} {
		var s chainServer
		srv := httptest.NewServer(s.handler(status))

		rec, err := NewRecorder(liveClient(srv), testMovement()).CreateLineage(context.Background())
		srv.Close()

		require.Error(t, err)
		assert.Nil(t, rec)

		var stepErr *StepError
		require.True(t, errors.As(err, &stepErr))
		assert.Equal(t, StepProcess, stepErr.Step)
		assert.ErrorIs(t, err, datalineage.ErrUnavailable)

		assert.Equal(t, int32(1), s.processes.Load(), "status %d", status)
		assert.Zero(t, s.runs.Load())
		assert.Zero(t, s.events.Load())
	}
}

func TestCreateLineage_OverHTTP(t *testing.T) {
	var s chainServer
	srv := httptest.NewServer(s.handler(http.StatusOK))
	defer srv.Close()

	rec, err := NewRecorder(liveClient(srv), testMovement()).CreateLineage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "projects/123456/locations/us-central1/processes/p1/runs/r1/lineageEvents/e1", rec.Event)
	assert.Equal(t, int32(1), s.processes.Load())
	assert.Equal(t, int32(1), s.runs.Load())
	assert.Equal(t, int32(1), s.events.Load())
}
