package twitter

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/pkg/errors"
)

// Downloader saves a HLS stream to a local audio file with ffmpeg
type Downloader struct {
	runCmd func(cmd *exec.Cmd) error
}

// NewDownloader creates a Downloader instance
func NewDownloader() *Downloader {
	return &Downloader{runCmd: func(cmd *exec.Cmd) error { return cmd.Run() }}
}

// Download copies the stream without reencoding, fixing the AAC bitstream
// for the mp4 container. The output file must exist and be non empty.
func (d *Downloader) Download(ctx context.Context, hlsURL string, outputPath string) error {
	cmdapp.Log.Infof("Downloading stream to %s", outputPath)
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", hlsURL,
		"-c", "copy", "-bsf:a", "aac_adtstoasc", outputPath)
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	if err := d.runCmd(cmd); err != nil {
		return errors.Wrapf(errs.ErrDownload, "ffmpeg failed: %v: %s", err, tail(errBuf.String(), 500))
	}
	fi, err := os.Stat(outputPath)
	if err != nil {
		return errors.Wrapf(errs.ErrDownload, "no output file: %v", err)
	}
	if fi.Size() == 0 {
		return errors.Wrap(errs.ErrDownload, "output file is empty")
	}
	cmdapp.Log.Infof("Downloaded %.2f MB", float64(fi.Size())/(1024*1024))
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
