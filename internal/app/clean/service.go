package clean

import (
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/persistence"
	"github.com/pkg/errors"
)

type spaceStore interface {
	ListAudioForCleanup(before time.Time) ([]persistence.Space, error)
	ClearAudioPath(id string) error
}

// Cleaner deletes the audio artifact by path
type Cleaner interface {
	Clean(path string) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	Spaces    spaceStore
	Cleaner   Cleaner
	RunEvery  time.Duration
	KeepAudio time.Duration

	qChan        chan struct{}
	workWaitChan chan struct{}
}

//StartCleanTimer starts the periodic audio retention loop
func StartCleanTimer(data *ServiceData) error {
	if data.Spaces == nil {
		return errors.New("No space store")
	}
	if data.Cleaner == nil {
		return errors.New("No cleaner")
	}
	if data.RunEvery <= 0 {
		return errors.New("No positive runEvery duration")
	}
	if data.KeepAudio <= 0 {
		return errors.New("No positive keepAudio duration")
	}
	data.qChan = make(chan struct{})
	data.workWaitChan = make(chan struct{})
	cmdapp.Log.Infof("Starting timer service every %v", data.RunEvery)
	go serviceLoop(data)
	return nil
}

//Stop terminates the loop and waits for the current run to finish
func (data *ServiceData) Stop() {
	close(data.qChan)
	<-data.workWaitChan
}

func serviceLoop(data *ServiceData) {
	ticker := time.NewTicker(data.RunEvery)
	// run on startup
	doClean(data)
mainloop:
	for {
		select {
		case <-ticker.C:
			doClean(data)
		case <-data.qChan:
			ticker.Stop()
			break mainloop
		}
	}
	cmdapp.Log.Infof("Stopped timer service")
	close(data.workWaitChan)
}

func doClean(data *ServiceData) {
	cmdapp.Log.Info("Running audio cleaning")
	before := time.Now().Add(-data.KeepAudio)
	spaces, err := data.Spaces.ListAudioForCleanup(before)
	if err != nil {
		cmdapp.Log.Error(err)
		return
	}
	cmdapp.Log.Infof("Got %d spaces to clean", len(spaces))
	for _, sp := range spaces {
		if err := data.Cleaner.Clean(sp.AudioFilePath); err != nil {
			cmdapp.Log.Error(err)
			continue
		}
		if err := data.Spaces.ClearAudioPath(sp.ID); err != nil {
			cmdapp.Log.Error(err)
		}
	}
}
