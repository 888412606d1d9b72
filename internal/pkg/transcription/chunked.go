package transcription

import (
	"context"
	"os"
	"strings"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const defaultMaxSizeBytes = 25 * 1024 * 1024

type transcriber interface {
	Transcribe(ctx context.Context, filePath string) (*Data, error)
}

type splitter interface {
	Split(ctx context.Context, filePath string) ([]string, error)
}

// ChunkedTranscriber transcribes audio of any size against an API with a
// per request size ceiling. Small files go in one request, large ones are
// segmented, transcribed concurrently and merged in chronological order.
type ChunkedTranscriber struct {
	transcriber transcriber
	splitter    splitter
	maxSize     int64
}

//NewChunkedTranscriber creates a ChunkedTranscriber instance
func NewChunkedTranscriber(t transcriber, s splitter) (*ChunkedTranscriber, error) {
	if t == nil {
		return nil, errors.New("no transcriber provided")
	}
	if s == nil {
		return nil, errors.New("no splitter provided")
	}
	res := &ChunkedTranscriber{transcriber: t, splitter: s, maxSize: defaultMaxSizeBytes}
	if v := cmdapp.Config.GetInt64("transcriber.maxSizeBytes"); v > 0 {
		res.maxSize = v
	}
	return res, nil
}

// Transcribe returns the full text with total duration.
// Merge order follows segment index, not completion time. Any failed
// segment fails the whole operation, no partial results.
func (ct *ChunkedTranscriber) Transcribe(ctx context.Context, filePath string) (*Data, error) {
	fi, err := os.Stat(filePath)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrTranscription, "can't stat %s: %v", filePath, err)
	}
	cmdapp.Log.Infof("Audio size %.2f MB, limit %.2f MB", float64(fi.Size())/(1024*1024),
		float64(ct.maxSize)/(1024*1024))
	if fi.Size() <= ct.maxSize {
		return ct.transcriber.Transcribe(ctx, filePath)
	}

	chunks, err := ct.splitter.Split(ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer cleanUp(chunks)

	results := make([]*Data, len(chunks))
	g, gCtx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			data, err := ct.transcriber.Transcribe(gCtx, chunk)
			if err != nil {
				return errors.Wrapf(err, "segment %d failed", i)
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	texts := make([]string, len(results))
	duration := 0.0
	for i, r := range results {
		texts[i] = r.Text
		duration += r.DurationSec
	}
	return &Data{Text: strings.Join(texts, " "), DurationSec: duration}, nil
}

func cleanUp(files []string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			cmdapp.Log.Warnf("Can't delete %s: %v", f, err)
		}
	}
}
