package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cheqd-ledger/internal/chain"
	"github.com/dvloznov/cheqd-ledger/internal/gcsuploader"
)

const jsonContentType = "application/json"

// Observer receives fetch statistics. metrics.Recorder implements it.
type Observer interface {
	ObserveFetched(n int)
	ObserveRetry()
}

type Options struct {
	BatchSize       int
	MaxTransactions int
	MaxRetries      int
	RetryDelay      time.Duration
	PageDelay       time.Duration
	CheckpointEvery int
}

// Result summarises a completed fetch.
type Result struct {
	Output       string
	Transactions int
	ResumedFrom  int // offset of the saved progress, 0 for a fresh fetch
}

// Fetcher pages through a BatchSource and writes every envelope to one JSON
// array. Progress and Observer are optional.
type Fetcher struct {
	Source   BatchSource
	Progress ProgressStore
	Store    gcsuploader.ObjectStore
	Observer Observer
	Options  Options

	log zerolog.Logger
}

func NewFetcher(source BatchSource, progress ProgressStore, store gcsuploader.ObjectStore, opts Options, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		Source:   source,
		Progress: progress,
		Store:    store,
		Options:  opts,
		log:      log,
	}
}

// DefaultOutput names the output file after the time the fetch started.
func DefaultOutput(now time.Time) string {
	return fmt.Sprintf("transactions_%s.json", now.Format("20060102_150405"))
}

// FetchAll downloads up to MaxTransactions envelopes and writes them to output.
// On failure the progress made so far is saved and the error returned, so a
// later call resumes where this one stopped.
func (f *Fetcher) FetchAll(ctx context.Context, output string) (*Result, error) {
	if output == "" {
		output = DefaultOutput(time.Now())
	}

	progress, err := f.loadProgress(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{Output: output, ResumedFrom: progress.Offset}

	offset := progress.Offset
	all := progress.Envelopes
	lastSave := len(all)

	fail := func(err error) (*Result, error) {
		f.saveProgress(ctx, Progress{Offset: offset, Envelopes: all})
		f.log.Error().Err(err).Int("offset", offset).Msg("Fetch interrupted, progress saved; run again to resume")
		return nil, err
	}

	for len(all) < f.Options.MaxTransactions {
		f.log.Info().Int("offset", offset).Msgf("Fetching batch starting at offset %d", offset)

		batch, err := f.fetchBatch(ctx, offset)
		if err != nil {
			return fail(err)
		}
		if len(batch) == 0 {
			break
		}
		full := len(batch) >= f.Options.BatchSize

		if remaining := f.Options.MaxTransactions - len(all); len(batch) > remaining {
			batch = batch[:remaining]
		}
		all = append(all, batch...)
		offset += len(batch)
		if f.Observer != nil {
			f.Observer.ObserveFetched(len(batch))
		}

		f.log.Info().
			Int("fetched", len(batch)).
			Int64("height", lastHeight(batch)).
			Int("total", len(all)).
			Int("max", f.Options.MaxTransactions).
			Msgf("Fetched %d transactions, total %d/%d", len(batch), len(all), f.Options.MaxTransactions)

		if f.Options.CheckpointEvery > 0 && len(all)-lastSave >= f.Options.CheckpointEvery {
			f.saveProgress(ctx, Progress{Offset: offset, Envelopes: all})
			lastSave = len(all)
		}

		if !full || len(all) >= f.Options.MaxTransactions {
			break
		}

		select {
		case <-time.After(f.Options.PageDelay):
		case <-ctx.Done():
			return fail(ctx.Err())
		}
	}

	if all == nil {
		all = []jsoniter.RawMessage{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fail(fmt.Errorf("FetchAll: encoding output: %w", err))
	}
	if err := gcsuploader.WriteLocation(ctx, f.Store, output, data, jsonContentType); err != nil {
		return fail(fmt.Errorf("FetchAll: writing %s: %w", output, err))
	}

	if f.Progress != nil {
		if err := f.Progress.Clear(ctx); err != nil {
			f.log.Warn().Err(err).Msg("Failed to clear fetch progress")
		}
	}

	result.Transactions = len(all)
	f.log.Info().
		Int("transactions", len(all)).
		Str("output", output).
		Str("file", gcsuploader.ExtractFilename(output)).
		Msgf("Saved %d transactions to %s", len(all), output)
	return result, nil
}

func (f *Fetcher) fetchBatch(ctx context.Context, offset int) ([]jsoniter.RawMessage, error) {
	var batch []jsoniter.RawMessage
	onRetry := func(attempt int, err error) {
		if f.Observer != nil {
			f.Observer.ObserveRetry()
		}
		f.log.Warn().Err(err).Int("attempt", attempt).Msgf("Attempt %d failed, retrying", attempt)
	}
	err := Retry(ctx, f.Options.MaxRetries, f.Options.RetryDelay, onRetry, func() error {
		var err error
		batch, err = f.Source.FetchBatch(ctx, offset)
		return err
	})
	return batch, err
}

func (f *Fetcher) loadProgress(ctx context.Context) (Progress, error) {
	if f.Progress == nil {
		return Progress{}, nil
	}
	p, err := f.Progress.Load(ctx)
	if errors.Is(err, ErrNoProgress) {
		return Progress{}, nil
	}
	if err != nil {
		return Progress{}, fmt.Errorf("FetchAll: loading progress: %w", err)
	}
	f.log.Info().
		Int("offset", p.Offset).
		Int("transactions", len(p.Envelopes)).
		Msgf("Found saved progress at offset %d with %d transactions", p.Offset, len(p.Envelopes))
	return p, nil
}

func (f *Fetcher) saveProgress(ctx context.Context, p Progress) {
	if f.Progress == nil {
		return
	}
	// ctx may already be cancelled when saving after an interruption.
	if err := f.Progress.Save(context.WithoutCancel(ctx), p); err != nil {
		f.log.Error().Err(err).Msg("Failed to save fetch progress")
		return
	}
	f.log.Info().
		Int("offset", p.Offset).
		Int("transactions", len(p.Envelopes)).
		Msgf("Progress saved at offset %d", p.Offset)
}

// lastHeight reports the block height of the final envelope, 0 if unknown.
func lastHeight(batch []jsoniter.RawMessage) int64 {
	if len(batch) == 0 {
		return 0
	}
	var env chain.Envelope
	if err := json.Unmarshal(batch[len(batch)-1], &env); err != nil || env.Transaction == nil {
		return 0
	}
	return int64(env.Transaction.Block.Height)
}
