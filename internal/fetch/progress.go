package fetch

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

// ErrNoProgress is returned by ProgressStore.Load when nothing was saved.
var ErrNoProgress = errors.New("no saved fetch progress")

// Progress is an interrupted fetch: the next offset to request and every
// envelope downloaded before it.
type Progress struct {
	Offset    int
	Envelopes []jsoniter.RawMessage
}

type ProgressStore interface {
	Load(ctx context.Context) (Progress, error)
	Save(ctx context.Context, p Progress) error
	Clear(ctx context.Context) error
}
