package network

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/kittclouds/coordnet/internal/store"
)

const (
	keyUserID   = "d_user_id"
	keyUsername = "d_username"
	keyWeight   = "d_weight"
	keyEdgeType = "d_edge_type"
)

// messageKeyID is the key id for the i'th (1-indexed) recent-message slot.
func messageKeyID(i int) string {
	return fmt.Sprintf("d_message_%d", i)
}

type graphmlKey struct {
	XMLName  xml.Name `xml:"key"`
	ID       string   `xml:"id,attr"`
	For      string   `xml:"for,attr"`
	AttrName string   `xml:"attr.name,attr"`
	AttrType string   `xml:"attr.type,attr"`
}

type graphmlData struct {
	XMLName xml.Name `xml:"data"`
	Key     string   `xml:"key,attr"`
	Value   string   `xml:",chardata"`
}

type graphmlNode struct {
	XMLName xml.Name      `xml:"node"`
	ID      string        `xml:"id,attr"`
	Data    []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	XMLName xml.Name      `xml:"edge"`
	Source  string        `xml:"source,attr"`
	Target  string        `xml:"target,attr"`
	Data    []graphmlData `xml:"data"`
}

type graphmlGraph struct {
	XMLName     xml.Name      `xml:"graph"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlRoot struct {
	XMLName xml.Name     `xml:"graphml"`
	XMLNS   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

// WriteGraphML exports kind's current network as directed GraphML: one node
// per touched user carrying its user_id, username, and up to SnapshotSize
// recent messages (one message_N key per slot, absent where fewer messages
// exist) as node data, one edge per retained (user_a, user_b) pair carrying
// its edge_type and weight.
func (m *Materializer) WriteGraphML(ctx context.Context, w io.Writer, kind store.NetworkKind, opts Options) error {
	view, err := m.gather(ctx, kind, opts)
	if err != nil {
		return err
	}
	n := opts.snapshotSize()

	root := graphmlRoot{
		XMLNS: "http://graphml.graphdrawing.org/xmlns",
		Keys: []graphmlKey{
			{ID: keyUserID, For: "node", AttrName: "user_id", AttrType: "string"},
			{ID: keyUsername, For: "node", AttrName: "username", AttrType: "string"},
			{ID: keyEdgeType, For: "edge", AttrName: "edge_type", AttrType: "string"},
			{ID: keyWeight, For: "edge", AttrName: "weight", AttrType: "int"},
		},
		Graph: graphmlGraph{EdgeDefault: "directed"},
	}
	for i := 1; i <= n; i++ {
		root.Keys = append(root.Keys, graphmlKey{
			ID: messageKeyID(i), For: "node",
			AttrName: fmt.Sprintf("message_%d", i), AttrType: "string",
		})
	}

	for _, uid := range view.users {
		snap := view.snapshots[uid]
		data := []graphmlData{
			{Key: keyUserID, Value: uid},
			{Key: keyUsername, Value: snap.Username},
		}
		for i, msg := range snap.Messages {
			if i >= n {
				break
			}
			data = append(data, graphmlData{Key: messageKeyID(i + 1), Value: msg.Text})
		}
		root.Graph.Nodes = append(root.Graph.Nodes, graphmlNode{ID: uid, Data: data})
	}

	for _, e := range view.edges {
		root.Graph.Edges = append(root.Graph.Edges, graphmlEdge{
			Source: e.UserA,
			Target: e.UserB,
			Data: []graphmlData{
				{Key: keyEdgeType, Value: string(kind)},
				{Key: keyWeight, Value: fmt.Sprintf("%d", e.Weight)},
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(root)
}
