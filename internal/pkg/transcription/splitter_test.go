package transcription

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestChunkMinutes(t *testing.T) {
	assert.Equal(t, 10, chunkMinutes(0))
	assert.Equal(t, 1, chunkMinutes(1))
	assert.Equal(t, 5, chunkMinutes(5))
	assert.Equal(t, 30, chunkMinutes(30))
	assert.Equal(t, 10, chunkMinutes(45))
	assert.Equal(t, 10, chunkMinutes(-1))
	assert.Equal(t, 10, chunkMinutes(31))
}

func TestSplit(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "audio.m4a")
	assert.Nil(t, os.WriteFile(file, []byte("audio"), 0644))
	s := &Splitter{chunkMinutes: 10, runCmd: func(cmd *exec.Cmd) error {
		assert.Contains(t, cmd.Args, "-segment_time")
		assert.Contains(t, cmd.Args, "600")
		assert.Contains(t, cmd.Args, "-reset_timestamps")
		for i := 0; i < 4; i++ {
			name := filepath.Join(dir, fmt.Sprintf("audio_chunk_%03d.m4a", i))
			if err := os.WriteFile(name, []byte("chunk"), 0644); err != nil {
				return err
			}
		}
		return nil
	}}

	chunks, err := s.Split(context.Background(), file)

	assert.Nil(t, err)
	assert.Equal(t, 4, len(chunks))
	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("audio_chunk_%03d.m4a", i), filepath.Base(c))
	}
}

func TestSplit_DropsStaleChunks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "audio.m4a")
	assert.Nil(t, os.WriteFile(file, []byte("audio"), 0644))
	stale := filepath.Join(dir, "audio_chunk_007.m4a")
	assert.Nil(t, os.WriteFile(stale, []byte("old chunk"), 0644))
	s := &Splitter{chunkMinutes: 10, runCmd: func(cmd *exec.Cmd) error {
		for i := 0; i < 2; i++ {
			name := filepath.Join(dir, fmt.Sprintf("audio_chunk_%03d.m4a", i))
			if err := os.WriteFile(name, []byte("chunk"), 0644); err != nil {
				return err
			}
		}
		return nil
	}}

	chunks, err := s.Split(context.Background(), file)

	assert.Nil(t, err)
	assert.Equal(t, 2, len(chunks))
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestSplit_CmdFails(t *testing.T) {
	file := filepath.Join(t.TempDir(), "audio.m4a")
	s := &Splitter{chunkMinutes: 10, runCmd: func(cmd *exec.Cmd) error {
		cmd.Stderr.Write([]byte("segmenter error"))
		return errors.New("exit status 1")
	}}

	chunks, err := s.Split(context.Background(), file)

	assert.NotNil(t, err)
	assert.Nil(t, chunks)
	assert.Equal(t, "TRANSCRIPTION_ERROR", errs.Code(err))
	assert.Contains(t, err.Error(), "segmenter error")
}

func TestSplit_NoOutput_Fails(t *testing.T) {
	file := filepath.Join(t.TempDir(), "audio.m4a")
	s := &Splitter{chunkMinutes: 10, runCmd: func(cmd *exec.Cmd) error { return nil }}

	chunks, err := s.Split(context.Background(), file)

	assert.NotNil(t, err)
	assert.Nil(t, chunks)
	assert.Equal(t, "TRANSCRIPTION_ERROR", errs.Code(err))
}
