package network

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/kittclouds/coordnet/internal/store"
)

// WriteCSV exports kind's current network as a flat edge list: one
// (user_a, user_b, edge_type, weight) row per retained edge, header first.
func (m *Materializer) WriteCSV(ctx context.Context, w io.Writer, kind store.NetworkKind, opts Options) error {
	view, err := m.gather(ctx, kind, opts)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"user_a", "user_b", "edge_type", "weight"}); err != nil {
		return err
	}
	for _, e := range view.edges {
		if err := cw.Write([]string{e.UserA, e.UserB, string(kind), strconv.Itoa(e.Weight)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteUserSnapshotsCSV exports one row per (user, message) pair for every
// user touched by kind's network, newest message first — the per-user
// message-snapshot export §4.5 calls out separately from the edge list.
func (m *Materializer) WriteUserSnapshotsCSV(ctx context.Context, w io.Writer, kind store.NetworkKind, opts Options) error {
	view, err := m.gather(ctx, kind, opts)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"user_id", "username", "message", "timestamp"}); err != nil {
		return err
	}
	for _, uid := range view.users {
		snap := view.snapshots[uid]
		for _, msg := range snap.Messages {
			if err := cw.Write([]string{uid, snap.Username, msg.Text, strconv.FormatFloat(msg.Timestamp, 'f', -1, 64)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
