package network

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/coordnet/internal/store"
)

type fakeCorpus struct {
	edges     []store.EdgeCount
	users     []string
	snapshots map[string]store.UserSnapshot
}

func (f fakeCorpus) NetworkEdges(ctx context.Context, kind store.NetworkKind, minWeight int, includeSelfLoops bool) ([]store.EdgeCount, error) {
	return f.edges, nil
}

func (f fakeCorpus) NetworkUsers(ctx context.Context, kind store.NetworkKind, minWeight int, includeSelfLoops bool) ([]string, error) {
	return f.users, nil
}

func (f fakeCorpus) UserSnapshots(ctx context.Context, userIDs []string, n int) (map[string]store.UserSnapshot, error) {
	return f.snapshots, nil
}

func testCorpus() fakeCorpus {
	return fakeCorpus{
		edges: []store.EdgeCount{{UserA: "u1", UserB: "u2", Weight: 3}},
		users: []string{"u1", "u2"},
		snapshots: map[string]store.UserSnapshot{
			"u1": {UserID: "u1", Username: "alice", Messages: []store.Message{{Text: "hello"}}},
			"u2": {UserID: "u2", Username: "bob", Messages: []store.Message{{Text: "world"}}},
		},
	}
}

func TestWriteGraphMLIncludesNodesAndEdges(t *testing.T) {
	m := New(testCorpus())
	var buf bytes.Buffer
	err := m.WriteGraphML(context.Background(), &buf, store.CoRetweet, Options{})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `<graphml`)
	assert.Contains(t, out, `id="u1"`)
	assert.Contains(t, out, `source="u1"`)
	assert.Contains(t, out, `target="u2"`)
	assert.Contains(t, out, `attr.name="user_id"`)
	assert.Contains(t, out, `attr.name="message_1"`)
	assert.Contains(t, out, `attr.name="edge_type"`)
	assert.Contains(t, out, "co_retweet")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "hello")
}

func TestWriteCSVProducesEdgeList(t *testing.T) {
	m := New(testCorpus())
	var buf bytes.Buffer
	err := m.WriteCSV(context.Background(), &buf, store.CoRetweet, Options{})
	require.NoError(t, err)

	assert.Equal(t, "user_a,user_b,edge_type,weight\nu1,u2,co_retweet,3\n", buf.String())
}

func TestWriteUserSnapshotsCSVProducesPerMessageRows(t *testing.T) {
	m := New(testCorpus())
	var buf bytes.Buffer
	err := m.WriteUserSnapshotsCSV(context.Background(), &buf, store.CoRetweet, Options{})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "u1,alice,hello,0")
	assert.Contains(t, out, "u2,bob,world,0")
}
