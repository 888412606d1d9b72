package saver

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/airenas/spacego/internal/pkg/persistence"
	"github.com/pkg/errors"
)

const transcriptFile = "transcript.md"

//WriterCloser keeps Writer interface and close function
type WriterCloser interface {
	io.Writer
	Close() error
}

//OpenFileFunc declares function to open file by name and return Writer
type OpenFileFunc func(fileName string) (WriterCloser, error)

// TranscriptData is everything that goes into the transcript of record
type TranscriptData struct {
	SpaceID         string
	Title           string
	URL             string
	Participants    []string
	SpeakerProfiles []persistence.SpeakerProfile
	FormattedText   string
}

// TranscriptSaver writes the markdown transcript of record into a
// directory per space on local disk
type TranscriptSaver struct {
	// StoragePath is the main folder to save into
	StoragePath  string
	OpenFileFunc OpenFileFunc
	mkDirFunc    func(dir string) error
	nowFunc      func() time.Time
}

//NewTranscriptSaver creates TranscriptSaver instance
func NewTranscriptSaver(storagePath string) (*TranscriptSaver, error) {
	if storagePath == "" {
		return nil, errors.New("no storage path provided")
	}
	return &TranscriptSaver{StoragePath: storagePath, OpenFileFunc: openFile,
		mkDirFunc: func(dir string) error { return os.MkdirAll(dir, 0755) },
		nowFunc:   time.Now}, nil
}

// Save renders and writes <storagePath>/<spaceID>/transcript.md,
// returns the file path
func (fs *TranscriptSaver) Save(data *TranscriptData) (string, error) {
	dir := filepath.Join(fs.StoragePath, data.SpaceID)
	if err := fs.mkDirFunc(dir); err != nil {
		return "", errors.Wrapf(errs.ErrStorage, "can't create dir %s: %v", dir, err)
	}
	fileName := filepath.Join(dir, transcriptFile)
	f, err := fs.OpenFileFunc(fileName)
	if err != nil {
		return "", errors.Wrapf(errs.ErrStorage, "can't create file %s: %v", fileName, err)
	}
	defer f.Close()
	if _, err := io.WriteString(f, fs.render(data)); err != nil {
		return "", errors.Wrapf(errs.ErrStorage, "can't save file %s: %v", fileName, err)
	}
	cmdapp.Log.Infof("Saved transcript %s", fileName)
	return fileName, nil
}

// Load reads the transcript of record of the space
func (fs *TranscriptSaver) Load(spaceID string) (string, error) {
	fileName := filepath.Join(fs.StoragePath, spaceID, transcriptFile)
	data, err := os.ReadFile(fileName)
	if err != nil {
		return "", errors.Wrapf(errs.ErrStorage, "can't read %s: %v", fileName, err)
	}
	return string(data), nil
}

func (fs *TranscriptSaver) render(data *TranscriptData) string {
	sb := strings.Builder{}
	sb.WriteString("# Twitter Space Transcript\n\n")
	if data.Title != "" {
		sb.WriteString("## " + data.Title + "\n\n")
	}
	if data.URL != "" {
		sb.WriteString("**Space URL:** " + data.URL + "\n\n")
	}
	sb.WriteString("**Participants:** " + strings.Join(data.Participants, ", ") + "\n\n")
	if len(data.SpeakerProfiles) > 0 {
		sb.WriteString("## Speaker Profiles\n\n")
		for _, sp := range data.SpeakerProfiles {
			sb.WriteString("### " + sp.Name + "\n\n")
			if sp.Background != "" {
				sb.WriteString(sp.Background + "\n")
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("---\n\n")
	sb.WriteString(data.FormattedText)
	sb.WriteString("\n\n---\n*Formatted on " + fs.nowFunc().UTC().Format(time.RFC3339) + "*\n")
	return sb.String()
}

func openFile(fileName string) (WriterCloser, error) {
	return os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
}
