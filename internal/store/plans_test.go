package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gplan/internal/compiler"
	"github.com/roach88/gplan/internal/plan"
	"github.com/roach88/gplan/internal/traversal"
)

func compileAgainst(t *testing.T, s *Store, tr *traversal.Traversal) *plan.LogicalPlan {
	t.Helper()
	opts := compiler.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	lp, err := compiler.Compile(context.Background(), tr, s, opts)
	require.NoError(t, err)
	return lp
}

func TestWritePlan(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportSchema(ctx, testSchema()))

	tr := traversal.V().HasLabel("person").Out("knows").Values("name")
	lp := compileAgainst(t, s, tr)

	rec, err := s.WritePlan(ctx, "friends", tr.String(), lp)
	require.NoError(t, err)

	fp, err := lp.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp, rec.ID)
	assert.Equal(t, "friends", rec.Name)
	assert.Equal(t, tr.String(), rec.Traversal)
	assert.Equal(t, lp.Explain(), rec.Explain)
	assert.Equal(t, lp.CountVertices(), rec.Vertices)
	assert.Equal(t, int64(1), rec.Seq)
	assert.True(t, json.Valid([]byte(rec.Plan)))
}

func TestWritePlanIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportSchema(ctx, testSchema()))

	tr := traversal.V().Out("knows")
	first, err := s.WritePlan(ctx, "a", tr.String(), compileAgainst(t, s, tr))
	require.NoError(t, err)
	again, err := s.WritePlan(ctx, "b", tr.String(), compileAgainst(t, s, tr))
	require.NoError(t, err)

	assert.Equal(t, first, again, "the first write wins")

	plans, err := s.ReadPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestReadPlansOrdered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportSchema(ctx, testSchema()))

	trs := []*traversal.Traversal{
		traversal.V().Out("knows"),
		traversal.V().Limit(3),
		traversal.V().HasLabel("software").Count(),
	}
	names := []string{"x", "y", "x"}
	for i, tr := range trs {
		_, err := s.WritePlan(ctx, names[i], tr.String(), compileAgainst(t, s, tr))
		require.NoError(t, err)
	}

	plans, err := s.ReadPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	for i, rec := range plans {
		assert.Equal(t, int64(i+1), rec.Seq)
		assert.Equal(t, trs[i].String(), rec.Traversal)
	}

	byName, err := s.ReadPlansByName(ctx, "x")
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, int64(1), byName[0].Seq)
	assert.Equal(t, int64(3), byName[1].Seq)
}

func TestReadPlanNotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadPlan(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrPlanNotFound))
}
