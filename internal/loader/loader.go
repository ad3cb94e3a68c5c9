// Package loader reads indexer exports and reduces them to unique transactions.
package loader

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cheqd-ledger/internal/chain"
	"github.com/dvloznov/cheqd-ledger/internal/gcsuploader"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotArray is returned when the input document is not a JSON array.
var ErrNotArray = errors.New("input is not a JSON array of transaction envelopes")

// Stats describes what happened to the envelopes of one input document.
type Stats struct {
	Total      int // envelopes in the input
	Unique     int // transactions kept
	Duplicates int // envelopes whose hash was already seen
	Dropped    int // envelopes without a decodable transaction or hash
}

// Loader reads an input document from a local path or a gs:// URI.
type Loader struct {
	store gcsuploader.ObjectStore
	log   zerolog.Logger
}

func New(store gcsuploader.ObjectStore, log zerolog.Logger) *Loader {
	return &Loader{store: store, log: log}
}

// Load reads, decodes and deduplicates the document at location.
func (l *Loader) Load(ctx context.Context, location string) ([]*chain.Transaction, Stats, error) {
	data, err := gcsuploader.ReadLocation(ctx, l.store, location)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("Load: reading %s: %w", location, err)
	}

	envelopes, undecodable, err := Decode(data)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("Load: %s: %w", location, err)
	}

	txs, stats := Dedupe(envelopes)
	stats.Total += undecodable
	stats.Dropped += undecodable

	l.log.Info().
		Int("loaded", stats.Total).
		Int("unique", stats.Unique).
		Int("duplicates", stats.Duplicates).
		Int("dropped", stats.Dropped).
		Msgf("Loaded %d transactions, %d unique", stats.Total, stats.Unique)
	return txs, stats, nil
}

// Decode parses a JSON array of envelopes. Elements that fail to decode are
// skipped and counted; a document that is not an array is an error.
func Decode(data []byte) ([]chain.Envelope, int, error) {
	var raw []jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNotArray, err)
	}

	envelopes := make([]chain.Envelope, 0, len(raw))
	undecodable := 0
	for _, item := range raw {
		var env chain.Envelope
		if err := json.Unmarshal(item, &env); err != nil {
			undecodable++
			continue
		}
		envelopes = append(envelopes, env)
	}
	return envelopes, undecodable, nil
}

// Dedupe keeps the first occurrence of each transaction hash, preserving input
// order. Envelopes with no transaction body or an empty hash are dropped.
func Dedupe(envelopes []chain.Envelope) ([]*chain.Transaction, Stats) {
	stats := Stats{Total: len(envelopes)}
	seen := make(map[string]struct{}, len(envelopes))
	out := make([]*chain.Transaction, 0, len(envelopes))

	for _, env := range envelopes {
		tx := env.Transaction
		if tx == nil || tx.Hash == "" {
			stats.Dropped++
			continue
		}
		if _, dup := seen[tx.Hash]; dup {
			stats.Duplicates++
			continue
		}
		seen[tx.Hash] = struct{}{}
		out = append(out, tx)
	}
	stats.Unique = len(out)
	return out, stats
}
