package clean

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/pkg/errors"
)

type localFile struct {
	StoragePath string

	removeFunc func(name string) error
}

func newLocalFile(storagePath string) (*localFile, error) {
	cmdapp.Log.Infof("Init Local File Storage Clean at: %s", storagePath)
	if storagePath == "" {
		return nil, errors.New("No storage path provided")
	}
	return &localFile{StoragePath: storagePath, removeFunc: os.Remove}, nil
}

//Clean removes the audio file
//Only paths under the configured storage dir are accepted
func (fs *localFile) Clean(path string) error {
	if path == "" {
		return errors.New("No path provided")
	}
	fp, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	sp, err := filepath.Abs(fs.StoragePath)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(fp, sp+string(filepath.Separator)) {
		return errors.Errorf("Path %s is outside storage dir", fp)
	}
	cmdapp.Log.Infof("Removing %s", fp)
	err = fs.removeFunc(fp)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
