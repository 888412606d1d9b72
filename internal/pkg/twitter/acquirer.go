package twitter

import (
	"context"
	"os"
	"path/filepath"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/airenas/spacego/internal/pkg/spaceurl"
	"github.com/pkg/errors"
)

// AudioData is the result of the acquisition stage
type AudioData struct {
	SpaceID   string
	AudioPath string
	Title     string
	CreatorID string
}

type infoProvider interface {
	GetSpace(ID string) (*SpaceInfo, error)
	GetStreamURL(mediaKey string) (string, error)
}

type streamDownloader interface {
	Download(ctx context.Context, hlsURL string, outputPath string) error
}

// Acquirer turns a space URL into a local audio file plus metadata
type Acquirer struct {
	client      infoProvider
	downloader  streamDownloader
	storagePath string
}

// NewAcquirer creates an Acquirer instance
func NewAcquirer(client infoProvider, downloader streamDownloader, storagePath string) (*Acquirer, error) {
	if client == nil {
		return nil, errors.New("no twitter client provided")
	}
	if downloader == nil {
		return nil, errors.New("no downloader provided")
	}
	if storagePath == "" {
		return nil, errors.New("no storage path provided")
	}
	return &Acquirer{client: client, downloader: downloader, storagePath: storagePath}, nil
}

// Acquire downloads the space recording into <storagePath>/<spaceID>/audio.m4a
func (a *Acquirer) Acquire(ctx context.Context, url string) (*AudioData, error) {
	id, err := spaceurl.ExtractID(url)
	if err != nil {
		return nil, err
	}
	info, err := a.client.GetSpace(id)
	if err != nil {
		return nil, err
	}
	cmdapp.Log.Infof("Space '%s', state %s, replay %t", info.Title, info.State, info.AvailableForReplay)
	if !info.AvailableForReplay {
		return nil, errors.Wrap(errs.ErrNotAvailable, "space has no replay, it may be deleted or private")
	}
	if info.MediaKey == "" {
		return nil, errors.Wrap(errs.ErrStreamUnavailable, "space has no media key")
	}
	hlsURL, err := a.client.GetStreamURL(info.MediaKey)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(a.storagePath, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "can't create dir "+dir)
	}
	outputPath := filepath.Join(dir, "audio.m4a")
	if err := a.downloader.Download(ctx, hlsURL, outputPath); err != nil {
		return nil, err
	}
	return &AudioData{SpaceID: id, AudioPath: outputPath, Title: info.Title, CreatorID: info.CreatorID}, nil
}
