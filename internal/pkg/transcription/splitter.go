package transcription

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/pkg/errors"
)

const (
	defaultChunkMinutes = 10
	minChunkMinutes     = 1
	maxChunkMinutes     = 30
)

// Splitter cuts an audio file into fixed duration segments with ffmpeg.
// Segments are stream-copied, timestamps reset per segment, named with
// zero-padded indices so a lexicographic sort is the chronological order.
type Splitter struct {
	chunkMinutes int
	runCmd       func(cmd *exec.Cmd) error
}

//NewSplitter creates a Splitter, chunk duration is taken from the config
func NewSplitter() *Splitter {
	return &Splitter{chunkMinutes: chunkMinutes(cmdapp.Config.GetInt("transcriber.chunkMinutes")),
		runCmd: func(cmd *exec.Cmd) error { return cmd.Run() }}
}

func chunkMinutes(value int) int {
	if value < minChunkMinutes || value > maxChunkMinutes {
		if value != 0 {
			cmdapp.Log.Warnf("Chunk duration %d out of range [%d, %d], using default %d",
				value, minChunkMinutes, maxChunkMinutes, defaultChunkMinutes)
		}
		return defaultChunkMinutes
	}
	return value
}

// Split segments the file next to the original as <base>_chunk_000<ext>, ...
// Returns segment paths in chronological order.
func (s *Splitter) Split(ctx context.Context, filePath string) ([]string, error) {
	ext := filepath.Ext(filePath)
	base := strings.TrimSuffix(filePath, ext)
	pattern := fmt.Sprintf("%s_chunk_%%03d%s", base, ext)
	glob := base + "_chunk_*" + ext
	cmdapp.Log.Infof("Splitting %s into %d min segments", filePath, s.chunkMinutes)

	// segments left by an interrupted run must not leak into this result
	stale, err := filepath.Glob(glob)
	if err != nil {
		return nil, errors.Wrap(err, "can't list segments")
	}
	for _, f := range stale {
		cmdapp.Log.Warnf("Removing stale segment %s", f)
		if err := os.Remove(f); err != nil {
			return nil, errors.Wrapf(errs.ErrTranscription, "can't remove stale segment %s: %v", f, err)
		}
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", filePath,
		"-f", "segment", "-segment_time", fmt.Sprintf("%d", s.chunkMinutes*60),
		"-reset_timestamps", "1", "-c", "copy", pattern)
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	if err := s.runCmd(cmd); err != nil {
		return nil, errors.Wrapf(errs.ErrTranscription, "ffmpeg segmenter failed: %v: %s",
			err, tail(errBuf.String(), 500))
	}

	chunks, err := filepath.Glob(glob)
	if err != nil {
		return nil, errors.Wrap(err, "can't list segments")
	}
	if len(chunks) == 0 {
		return nil, errors.Wrap(errs.ErrTranscription, "segmenter produced no files")
	}
	sort.Strings(chunks)
	cmdapp.Log.Infof("Split into %d segments", len(chunks))
	return chunks, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
