package lineage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lineage-cli/pkg/datalineage"
	"github.com/sells-group/lineage-cli/pkg/datalineage/mocks"
)

func links(edges ...Edge) *datalineage.SearchResult {
	res := &datalineage.SearchResult{}
	for _, e := range edges {
		res.Links = append(res.Links, datalineage.Link{
			Source: datalineage.EntityReference{FullyQualifiedName: e.Source},
			Target: datalineage.EntityReference{FullyQualifiedName: e.Target},
		})
	}
	return res
}

func expectDown(client *mocks.MockClient, node string, edges ...Edge) {
	client.On("SearchLinks", mock.Anything, testLoc, datalineage.LinkQuery{Source: node}).Return(links(edges...), nil).Once()
}

func expectUp(client *mocks.MockClient, node string, edges ...Edge) {
	client.On("SearchLinks", mock.Anything, testLoc, datalineage.LinkQuery{Target: node}).Return(links(edges...), nil).Once()
}

func TestForward_Chain(t *testing.T) {
	client := mocks.NewMockClient(t)
	expectDown(client, "A", Edge{"A", "B"})
	expectDown(client, "B", Edge{"B", "C"})
	expectDown(client, "C")

	edges, err := Collect(NewRecorder(client, testMovement()).Forward(context.Background(), "A"), nil)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{"A", "B"}, {"B", "C"}}, edges)
	client.AssertNumberOfCalls(t, "SearchLinks", 3)
}

func TestForward_CycleTerminates(t *testing.T) {
	client := mocks.NewMockClient(t)
	expectDown(client, "A", Edge{"A", "B"})
	expectDown(client, "B", Edge{"B", "A"})

	edges, err := Collect(NewRecorder(client, testMovement()).Forward(context.Background(), "A"), nil)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{"A", "B"}, {"B", "A"}}, edges)
	client.AssertNumberOfCalls(t, "SearchLinks", 2)
}

func TestForward_SelfLoop(t *testing.T) {
	client := mocks.NewMockClient(t)
	expectDown(client, "A", Edge{"A", "A"})

	edges, err := Collect(NewRecorder(client, testMovement()).Forward(context.Background(), "A"), nil)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{"A", "A"}}, edges)
	client.AssertNumberOfCalls(t, "SearchLinks", 1)
}

func TestForward_DepthFirstPreOrder(t *testing.T) {
	client := mocks.NewMockClient(t)
	expectDown(client, "A", Edge{"A", "B"}, Edge{"A", "C"})
	expectDown(client, "B", Edge{"B", "D"})
	expectDown(client, "D")
	expectDown(client, "C")

	edges, err := Collect(NewRecorder(client, testMovement()).Forward(context.Background(), "A"), nil)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{"A", "B"}, {"B", "D"}, {"A", "C"}}, edges)
}

func TestForward_DiamondQueriesEachNodeOnce(t *testing.T) {
	client := mocks.NewMockClient(t)
	expectDown(client, "A", Edge{"A", "B"}, Edge{"A", "C"})
	expectDown(client, "B", Edge{"B", "D"})
	expectDown(client, "D", Edge{"D", "E"})
	expectDown(client, "E")
	expectDown(client, "C", Edge{"C", "D"})

	edges, err := Collect(NewRecorder(client, testMovement()).Forward(context.Background(), "A"), nil)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{"A", "B"}, {"B", "D"}, {"D", "E"}, {"A", "C"}, {"C", "D"}}, edges)
	client.AssertNumberOfCalls(t, "SearchLinks", 5)
}

func TestBackward_Chain(t *testing.T) {
	client := mocks.NewMockClient(t)
	expectUp(client, "C", Edge{"B", "C"})
	expectUp(client, "B", Edge{"A", "B"})
	expectUp(client, "A")

	edges, err := Collect(NewRecorder(client, testMovement()).Backward(context.Background(), "C"), nil)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{"B", "C"}, {"A", "B"}}, edges)
}

func TestWalk_MaxDepth(t *testing.T) {
	client := mocks.NewMockClient(t)
	expectDown(client, "A", Edge{"A", "B"})
	expectDown(client, "B", Edge{"B", "C"})

	r := NewRecorder(client, testMovement(), WithMaxDepth(2))
	edges, err := Collect(r.Forward(context.Background(), "A"), nil)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{"A", "B"}, {"B", "C"}}, edges)
	client.AssertNumberOfCalls(t, "SearchLinks", 2)
}

func TestWalk_MaxQueries(t *testing.T) {
	client := mocks.NewMockClient(t)
	expectDown(client, "A", Edge{"A", "B"})
	expectDown(client, "B", Edge{"B", "C"})

	r := NewRecorder(client, testMovement(), WithMaxQueries(2))
	edges, err := Collect(r.Forward(context.Background(), "A"), nil)
	require.ErrorIs(t, err, ErrTraversalLimit)
	assert.Equal(t, []Edge{{"A", "B"}, {"B", "C"}}, edges)
	client.AssertNumberOfCalls(t, "SearchLinks", 2)
}

func TestWalk_QueryErrorEndsSequence(t *testing.T) {
	client := mocks.NewMockClient(t)
	expectDown(client, "A", Edge{"A", "B"})
	client.On("SearchLinks", mock.Anything, testLoc, datalineage.LinkQuery{Source: "B"}).
		Return(nil, &datalineage.Error{Kind: datalineage.KindUnavailable, StatusCode: 503}).Once()

	edges, err := Collect(NewRecorder(client, testMovement()).Forward(context.Background(), "A"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search downstream links of B")
	assert.Equal(t, []Edge{{"A", "B"}}, edges)
}

func TestWalk_StopsWhenConsumerBreaks(t *testing.T) {
	client := mocks.NewMockClient(t)
	expectDown(client, "A", Edge{"A", "B"}, Edge{"A", "C"})

	var got []Edge
	for e, err := range NewRecorder(client, testMovement()).Forward(context.Background(), "A") {
		require.NoError(t, err)
		got = append(got, e)
		break
	}
	assert.Equal(t, []Edge{{"A", "B"}}, got)
	client.AssertNumberOfCalls(t, "SearchLinks", 1)
}

func TestWalk_ContextCanceled(t *testing.T) {
	client := mocks.NewMockClient(t)
	expectDown(client, "A", Edge{"A", "B"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(NewRecorder(client, testMovement()).Forward(ctx, "A"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrieveLineage_BothDirections(t *testing.T) {
	client := mocks.NewMockClient(t)
	m := testMovement()
	m.Source = "src"
	m.Target = "dst"

	expectDown(client, "src", Edge{"src", "dst"})
	expectDown(client, "dst", Edge{"dst", "report"})
	expectDown(client, "report")
	expectUp(client, "dst", Edge{"src", "dst"})
	expectUp(client, "src", Edge{"https://www.tpc.org/", "src"})
	expectUp(client, "https://www.tpc.org/")

	got, err := NewRecorder(client, m).RetrieveLineage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Edge{{"src", "dst"}, {"dst", "report"}}, got.Downstream)
	assert.Equal(t, []Edge{{"src", "dst"}, {"https://www.tpc.org/", "src"}}, got.Upstream)
}

func TestRetrieveLineage_PropagatesError(t *testing.T) {
	client := mocks.NewMockClient(t)
	m := testMovement()
	m.Source = "src"
	m.Target = "dst"

	client.On("SearchLinks", mock.Anything, testLoc, datalineage.LinkQuery{Source: "src"}).
		Return(nil, &datalineage.Error{Kind: datalineage.KindAuth, StatusCode: 401}).Maybe()
	client.On("SearchLinks", mock.Anything, testLoc, datalineage.LinkQuery{Target: "dst"}).
		Return(links(), nil).Maybe()

	_, err := NewRecorder(client, m).RetrieveLineage(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forward traversal")
}
