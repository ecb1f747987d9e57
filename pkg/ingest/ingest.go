// Package ingest provides reference Adapters that turn external corpus
// formats into store.Message rows. The Ingest Adapter boundary itself is
// out of scope; these are example implementations of that boundary used by
// the preprocess CLI command and its tests.
package ingest

import "github.com/kittclouds/coordnet/internal/store"

// Adapter produces a batch of messages from one source document. Real
// corpora are large enough that an Adapter is expected to be called once
// per shard of input, not once per message.
type Adapter interface {
	Parse(data []byte) ([]store.Message, error)
}
