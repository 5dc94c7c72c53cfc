package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lineage-cli/internal/lineage"
	"github.com/sells-group/lineage-cli/pkg/datalineage"
)

func TestTokenSource_ReusedAcrossLineageChain(t *testing.T) {
	var (
		mu    sync.Mutex
		auths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"name":"` + strings.TrimPrefix(r.URL.Path, "/") + `/x"}`))
	}))
	defer srv.Close()

	broker := &countingBroker{out: "ya29.chain\n"}
	client := datalineage.NewClient("us-central1",
		datalineage.WithBaseURL(srv.URL),
		datalineage.WithTokenSource(newTokenSource(Options{}, broker.run)),
	)

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec, err := lineage.NewRecorder(client, lineage.Movement{
		Location:    datalineage.Location{Project: "123456", Region: "us-central1"},
		ProcessName: "Load Job",
		Origin:      "load_finwire.py",
		Start:       start,
		End:         start.Add(time.Minute),
		Source:      "gs://tpcdi/staging/finwire/FINWIRE1967Q1_SEC.csv",
		Target:      "bigquery:proj.finwire.FINWIRE1967Q1_SEC",
	}).CreateLineage(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, []string{"Bearer ya29.chain", "Bearer ya29.chain", "Bearer ya29.chain"}, auths)
	assert.Equal(t, 1, broker.calls, "one brokered token should serve the whole chain")
}
