package join

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/coordnet/internal/store"
)

type fakeSource struct {
	rows []store.Row
	err  error
}

func (f fakeSource) StreamEvents(ctx context.Context, kind store.NetworkKind, useResolvedURLs bool) (<-chan store.Row, <-chan error) {
	rows := make(chan store.Row, len(f.rows))
	errc := make(chan error, 1)
	for _, r := range f.rows {
		rows <- r
	}
	close(rows)
	if f.err != nil {
		errc <- f.err
	}
	close(errc)
	return rows, errc
}

func edgeMap(edges []store.EdgeCount) map[[2]string]int {
	m := make(map[[2]string]int, len(edges))
	for _, e := range edges {
		m[[2]string{e.UserA, e.UserB}] = e.Weight
	}
	return m
}

func TestSlidingWindowEmitsBothDirectionsAndSelfLoop(t *testing.T) {
	src := fakeSource{rows: []store.Row{
		{Key: "g1", UserID: "U", Timestamp: 0, MessageID: "m1"},
		{Key: "g1", UserID: "V", Timestamp: 30, MessageID: "m2"},
		{Key: "g1", UserID: "V", Timestamp: 90, MessageID: "m3"},
	}}

	eng := New(Config{Kind: store.CoRetweet, Window: 60, Workers: 1})
	edges, err := eng.Compute(context.Background(), src)
	require.NoError(t, err)

	got := edgeMap(edges)
	assert.Equal(t, 1, got[[2]string{"U", "V"}])
	assert.Equal(t, 1, got[[2]string{"V", "U"}])
	assert.Equal(t, 2, got[[2]string{"V", "V"}])
	assert.Len(t, got, 3)
}

func TestSlidingWindowExcludesEventsOutsideWindow(t *testing.T) {
	src := fakeSource{rows: []store.Row{
		{Key: "g1", UserID: "U", Timestamp: 0, MessageID: "m1"},
		{Key: "g1", UserID: "V", Timestamp: 1000, MessageID: "m2"},
	}}

	eng := New(Config{Kind: store.CoRetweet, Window: 60, Workers: 1})
	edges, err := eng.Compute(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestGroupsAreIndependentAcrossKeys(t *testing.T) {
	src := fakeSource{rows: []store.Row{
		{Key: "g1", UserID: "A", Timestamp: 0, MessageID: "m1"},
		{Key: "g1", UserID: "B", Timestamp: 5, MessageID: "m2"},
		{Key: "g2", UserID: "C", Timestamp: 0, MessageID: "m3"},
		{Key: "g2", UserID: "D", Timestamp: 5, MessageID: "m4"},
	}}

	eng := New(Config{Kind: store.CoReply, Window: 60, Workers: 4})
	edges, err := eng.Compute(context.Background(), src)
	require.NoError(t, err)

	got := edgeMap(edges)
	assert.Equal(t, 1, got[[2]string{"A", "B"}])
	assert.Equal(t, 1, got[[2]string{"C", "D"}])
	assert.NotContains(t, got, [2]string{"A", "D"})
}

func TestCoSimilarityFiltersByJaccardThreshold(t *testing.T) {
	src := fakeSource{rows: []store.Row{
		{Key: "b1", UserID: "A", Timestamp: 0, MessageID: "m1", Message: "the cat sat on mat"},
		{Key: "b1", UserID: "B", Timestamp: 5, MessageID: "m2", Message: "the cat sat on mat slowly"},
		{Key: "b1", UserID: "C", Timestamp: 10, MessageID: "m3", Message: "completely unrelated text here"},
	}}

	eng := New(Config{Kind: store.CoSimilarity, Window: 60, SimilarityThreshold: 0.7, Workers: 1})
	edges, err := eng.Compute(context.Background(), src)
	require.NoError(t, err)

	got := edgeMap(edges)
	assert.Equal(t, 1, got[[2]string{"A", "B"}])
	assert.NotContains(t, got, [2]string{"A", "C"})
	assert.NotContains(t, got, [2]string{"B", "C"})
}

func TestComputePropagatesSourceError(t *testing.T) {
	sentinel := assert.AnError
	src := fakeSource{err: sentinel}

	eng := New(Config{Kind: store.CoPost, Window: 60, Workers: 1})
	_, err := eng.Compute(context.Background(), src)
	require.Error(t, err)
}
