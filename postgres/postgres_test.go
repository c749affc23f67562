package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/paramgraph"
)

// newStore connects to DATABASE_URL and recreates the schema. Tests are
// skipped when no database is configured.
func newStore(t *testing.T) *PGStore {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))
	t.Cleanup(func() { _ = s.DropSchema(context.Background()) })
	return s
}

func TestGraphRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	g := paramgraph.NewGraph()
	in := g.AddInput(paramgraph.NewVariable(paramgraph.TypeParameterMap, "Map"), paramgraph.InputParameter)
	set := g.AddParameterMapSet(paramgraph.NewVariable(paramgraph.TypeFloat, "Particles.Lifetime"))
	out := g.AddOutput(paramgraph.UsageParticleSpawn, 0,
		paramgraph.NewVariable(paramgraph.TypeParameterMap, "Map"),
		paramgraph.NewVariable(paramgraph.TypeVec3, "Particles.Position"),
	)
	require.NoError(t, g.Link(g.NodePins(in, paramgraph.DirOutput)[0].ID, g.MapInputPin(set).ID))
	require.NoError(t, g.Link(g.MapOutputPin(set).ID, g.MapInputPin(out).ID))
	lifetime := g.NodePins(set, paramgraph.DirInput)[1]
	require.NoError(t, g.SetPinDefault(lifetime.ID, []byte{0, 0, 0x80, 0x3f}))

	require.NoError(t, s.SaveGraph(ctx, g))
	// Saving again replaces the stored rows.
	require.NoError(t, s.SaveGraph(ctx, g))

	got, err := s.GetGraph(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, g.ChangeID, got.ChangeID)
	assert.Equal(t, g.NodeCount(), got.NodeCount())
	for _, n := range g.LiveNodes() {
		m := got.Node(n.ID)
		require.NotNil(t, m)
		assert.Equal(t, n.Kind(), m.Kind())
		assert.Equal(t, n.Pins, m.Pins)
	}
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, got.Pin(lifetime.ID).Default)
	assert.True(t, got.MapInputPin(got.Node(out.ID)).IsLinked())

	h := paramgraph.NewHistoryBuilder().Build(got, out.ID)
	assert.GreaterOrEqual(t, h.FindVariable("Particles.Lifetime", paramgraph.TypeFloat), 0)

	infos, err := s.ListGraphs(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 3, infos[0].NodeCount)

	missing, err := s.GetGraph(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestScripts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	g := paramgraph.NewGraph()
	g.AddOutput(paramgraph.UsageParticleUpdate, 0, paramgraph.NewVariable(paramgraph.TypeParameterMap, "Map"))
	require.NoError(t, s.SaveGraph(ctx, g))

	sc := paramgraph.NewScript("Update", paramgraph.UsageParticleUpdate, paramgraph.NewSourceFromGraph(g))
	sc.SetChangeID(g.ChangeID)
	rec := sc.Record()
	require.NoError(t, s.SaveScript(ctx, &rec))

	got, err := s.GetScript(ctx, sc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)

	list, err := s.ListScripts(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []paramgraph.ScriptRecord{rec}, list)

	require.NoError(t, s.DeleteGraph(ctx, g.ID))
	got, err = s.GetScript(ctx, sc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
