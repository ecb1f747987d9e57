// Package network implements the Network Materializer: turning a stored
// coordination network's edges and per-user message snapshots into the
// GraphML and CSV export formats.
package network

import (
	"context"

	"github.com/kittclouds/coordnet/internal/store"
)

// DefaultSnapshotSize is the number of most-recent messages embedded per
// user node when a caller doesn't specify one.
const DefaultSnapshotSize = 10

// Options configures one export.
type Options struct {
	// MinWeight drops edges below this weight. Zero means no filtering
	// beyond what was already applied when the network was written.
	MinWeight int
	// IncludeSelfLoops controls whether same-user edges are exported.
	IncludeSelfLoops bool
	// SnapshotSize is how many of each user's most recent messages to
	// embed in GraphML node data and to list in the snapshots CSV; values
	// <= 0 mean DefaultSnapshotSize. Unused by the edge-list CSV.
	SnapshotSize int
}

func (o Options) snapshotSize() int {
	if o.SnapshotSize > 0 {
		return o.SnapshotSize
	}
	return DefaultSnapshotSize
}

// corpus is the narrow read surface the Materializer needs from the
// Normalized Store.
type corpus interface {
	NetworkEdges(ctx context.Context, kind store.NetworkKind, minWeight int, includeSelfLoops bool) ([]store.EdgeCount, error)
	NetworkUsers(ctx context.Context, kind store.NetworkKind, minWeight int, includeSelfLoops bool) ([]string, error)
	UserSnapshots(ctx context.Context, userIDs []string, n int) (map[string]store.UserSnapshot, error)
}

// Materializer exports a materialized network in the external formats §4.5
// defines.
type Materializer struct {
	src corpus
}

// New builds a Materializer reading from src.
func New(src corpus) *Materializer {
	return &Materializer{src: src}
}

// networkView gathers everything one export pass needs: the edge set, the
// touched users, and their message snapshots.
type networkView struct {
	edges     []store.EdgeCount
	users     []string
	snapshots map[string]store.UserSnapshot
}

func (m *Materializer) gather(ctx context.Context, kind store.NetworkKind, opts Options) (networkView, error) {
	edges, err := m.src.NetworkEdges(ctx, kind, opts.MinWeight, opts.IncludeSelfLoops)
	if err != nil {
		return networkView{}, err
	}
	users, err := m.src.NetworkUsers(ctx, kind, opts.MinWeight, opts.IncludeSelfLoops)
	if err != nil {
		return networkView{}, err
	}
	snapshots, err := m.src.UserSnapshots(ctx, users, opts.snapshotSize())
	if err != nil {
		return networkView{}, err
	}
	return networkView{edges: edges, users: users, snapshots: snapshots}, nil
}
