// Package corpus provides the durable append-only store of ingested signal
// items, backed by SQLite. Items are immutable once stored; rows older than
// the retention window are purged at the start of each run.
package corpus

import (
	"encoding/binary"
	"math"
	"time"
)

// Item is one ingested news/signal record.
type Item struct {
	// ID uniquely identifies the item across runs (typically a hash or GUID
	// derived from the source entry).
	ID string

	// Source names the connector that produced the item.
	Source string

	// Title is the headline text.
	Title string

	// Description is the snippet or summary text, possibly empty.
	Description string

	// URL points at the original article, possibly empty.
	URL string

	// Keyword is the search keyword that surfaced the item, possibly empty.
	Keyword string

	// Published is the source-reported publication time.
	Published time.Time

	// IngestedAt is when the item was appended to the store.
	IngestedAt time.Time

	// Embedding is the item's vector embedding, nil until computed.
	Embedding []float32
}

// Text returns the item's textual content used for embedding and clustering.
func (it *Item) Text() string {
	if it.Description == "" {
		return it.Title
	}
	return it.Title + " — " + it.Description
}

// encodeEmbedding packs a float32 vector into a little-endian blob for storage.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks a stored blob back into a float32 vector.
func decodeEmbedding(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}
