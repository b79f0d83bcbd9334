package neo4j

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/retry"
	"github.com/ajitpratap0/nebula-ingest/pkg/source"
)

var likesRule = config.RelationshipRule{
	SourceField:      "likes",
	TargetLabel:      "Item",
	TargetField:      "name",
	RelationshipType: "LIKES",
}

func testPolicy() retry.Policy {
	return retry.DefaultPolicy().WithInterval(time.Millisecond, 2*time.Millisecond).WithMaxElapsed(time.Second)
}

func newTestAdapter(rules ...config.RelationshipRule) (*Adapter, *memoryGraph) {
	g := newMemoryGraph()
	cfg := &config.IngestorConfig{DatabaseURL: "bolt://localhost:7687", Relationships: rules}
	return newAdapter(cfg, g, testPolicy()), g
}

func TestQueries(t *testing.T) {
	assert.Equal(t,
		"MERGE (n:`IngestedData` {_id: $id}) SET n += $props, n.data = $data",
		nodeQuery("IngestedData"))
	assert.Equal(t,
		"MATCH (a:`User` {_id: $source_id}) MERGE (b:`Item` {_id: $target_id}) SET b.`name` = $target_id MERGE (a)-[:`LIKES`]->(b)",
		edgeQuery("User", likesRule))
	assert.Equal(t, "`we``ird`", quoteIdent("we`ird"))
}

func TestIngestIsIdempotent(t *testing.T) {
	a, g := newTestAdapter()
	ctx := context.Background()

	unit := func() source.Unit { return source.StreamOf(map[string]any{"id": int64(42), "name": "x"}) }
	require.NoError(t, a.Ingest(ctx, unit()))
	require.NoError(t, a.Ingest(ctx, unit()))

	assert.Equal(t, 1, g.countLabel("IngestedData"))
	node := g.nodes[nodeKey{"IngestedData", "42"}]
	require.NotNil(t, node)
	assert.Equal(t, "x", node["name"])
	assert.Equal(t, `{"id":42,"name":"x"}`, node["data"])
}

func TestLikesRule(t *testing.T) {
	a, g := newTestAdapter(likesRule)

	unit := &source.Tabular{Rows: []map[string]any{{"id": "u1", "likes": "apple"}}}
	require.NoError(t, a.Ingest(context.Background(), unit))

	item := g.nodes[nodeKey{"Item", "apple"}]
	require.NotNil(t, item)
	assert.Equal(t, "apple", item["name"])
	assert.Contains(t, g.edges, edgeKey{
		from: nodeKey{"IngestedData", "u1"},
		typ:  "LIKES",
		to:   nodeKey{"Item", "apple"},
	})
}

func TestRuleSkipsNullAndMissing(t *testing.T) {
	a, g := newTestAdapter(likesRule)

	unit := &source.Tabular{Rows: []map[string]any{
		{"id": "u1", "likes": nil},
		{"id": "u2"},
	}}
	require.NoError(t, a.Ingest(context.Background(), unit))

	assert.Equal(t, 0, g.edgeCalls)
	assert.Empty(t, g.edges)
	assert.Equal(t, 0, g.countLabel("Item"))
	assert.Equal(t, 2, g.countLabel("IngestedData"))
}

func TestIdentity(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]any
		want   string
	}{
		{"integer id", map[string]any{"id": int64(42)}, "42"},
		{"string id", map[string]any{"id": "abc"}, "abc"},
		{"upper ID", map[string]any{"ID": "X1"}, "X1"},
		{"uuid", map[string]any{"uuid": "123e4567"}, "123e4567"},
		{"id wins over uuid", map[string]any{"id": int64(1), "uuid": "u"}, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := identity(tt.record, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("hash fallback", func(t *testing.T) {
		serialized := `{"name":"x"}`
		got, err := identity(map[string]any{"name": "x"}, serialized)
		require.NoError(t, err)
		assert.Equal(t, strconv.FormatUint(xxh3.HashString(serialized), 10), got)
	})
}

func TestProperties(t *testing.T) {
	props, err := properties(map[string]any{
		"s":      "x",
		"n":      int64(1),
		"f":      1.5,
		"b":      true,
		"null":   nil,
		"list":   []any{int64(1), int64(2)},
		"mixed":  []any{int64(1), "a"},
		"nested": map[string]any{"k": "v"},
		"deep":   []any{map[string]any{"k": int64(1)}},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"s":      "x",
		"n":      int64(1),
		"f":      1.5,
		"b":      true,
		"list":   []any{int64(1), int64(2)},
		"mixed":  `[1,"a"]`,
		"nested": `{"k":"v"}`,
		"deep":   `[{"k":1}]`,
	}, props)
}

func TestNonObjectRecordIsPermanent(t *testing.T) {
	a, g := newTestAdapter()

	err := a.Ingest(context.Background(), source.StreamOf("just a string"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIngestion))
	assert.False(t, errors.IsTransient(err))
	assert.Equal(t, 0, g.nodeCalls)
}

func TestOpaqueUnitMergedAsEnvelope(t *testing.T) {
	a, g := newTestAdapter()

	require.NoError(t, a.Ingest(context.Background(), &source.Opaque{Value: "hello"}))
	assert.Equal(t, 1, g.countLabel("IngestedData"))
}

func TestMergeRetriedOnTransientError(t *testing.T) {
	a, g := newTestAdapter()
	g.failNext = []error{errors.New(errors.ErrorTypeConnection, "connection refused")}

	require.NoError(t, a.Ingest(context.Background(), source.StreamOf(map[string]any{"id": int64(1)})))
	assert.Equal(t, 2, g.nodeCalls)
}

func TestCustomLabel(t *testing.T) {
	g := newMemoryGraph()
	a := newAdapter(&config.IngestorConfig{DatabaseURL: "bolt://x:7687", CollectionName: "User"}, g, testPolicy())

	require.NoError(t, a.Ingest(context.Background(), source.StreamOf(map[string]any{"id": int64(7)})))
	assert.Equal(t, 1, g.countLabel("User"))
}

func TestNewDriverWriterRejectsBadURI(t *testing.T) {
	_, err := newDriverWriter("not a uri")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestClose(t *testing.T) {
	a, g := newTestAdapter()
	require.NoError(t, a.Close(context.Background()))
	assert.True(t, g.closed)
}
