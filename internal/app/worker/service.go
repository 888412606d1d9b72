package worker

import (
	"context"
	"os"
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/airenas/spacego/internal/pkg/format"
	"github.com/airenas/spacego/internal/pkg/messages"
	"github.com/airenas/spacego/internal/pkg/persistence"
	"github.com/airenas/spacego/internal/pkg/saver"
	"github.com/airenas/spacego/internal/pkg/status"
	"github.com/airenas/spacego/internal/pkg/transcription"
	"github.com/airenas/spacego/internal/pkg/twitter"
	"github.com/airenas/spacego/internal/pkg/utils"
	"github.com/pkg/errors"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultCooldown     = 5 * time.Second
)

type jobQueue interface {
	DequeueNext() (*persistence.Job, error)
	MarkCompleted(jobID string) error
	MarkFailed(jobID string, errMsg string) error
	MarkFailedPermanent(jobID string, errMsg string) error
}

type spaceStore interface {
	GetBySpaceID(id string) (*persistence.Space, error)
	UpdateStatus(id string, st status.Status, errMsg string, errCode string) error
	SaveResult(id string, res *persistence.Result) error
}

type acquirer interface {
	Acquire(ctx context.Context, url string) (*twitter.AudioData, error)
}

type transcriber interface {
	Transcribe(ctx context.Context, filePath string) (*transcription.Data, error)
}

type formatter interface {
	Format(ctx context.Context, rawText string, title string, participantHints []string) (*format.Data, error)
}

type transcriptSaver interface {
	Save(data *saver.TranscriptData) (string, error)
}

type fileSizer func(path string) (int64, error)

// ServiceData keeps data required for the worker
type ServiceData struct {
	Queue       jobQueue
	Spaces      spaceStore
	Acquirer    acquirer
	Transcriber transcriber
	Formatter   formatter
	Saver       transcriptSaver
	// MessageSender is optional, state change events are fire and forget
	MessageSender messages.Sender

	PollInterval time.Duration
	Cooldown     time.Duration
	// JobTimeout bounds one pipeline run, 0 means no limit
	JobTimeout time.Duration
	FileSize   fileSizer

	fc           *utils.MultiCloseChannel
	workWaitChan chan struct{}
}

//StartWorkerService starts the polling loop over the job queue
// return channel to track the finish event
//
// to wait sync for the service to finish:
// fc, err := StartWorkerService(data)
// handle err
// <-fc.C // waits for finish
func StartWorkerService(data *ServiceData) (*utils.MultiCloseChannel, error) {
	if data.Queue == nil {
		return nil, errors.New("no job queue")
	}
	if data.Spaces == nil {
		return nil, errors.New("no space store")
	}
	if data.Acquirer == nil {
		return nil, errors.New("no acquirer")
	}
	if data.Transcriber == nil {
		return nil, errors.New("no transcriber")
	}
	if data.Formatter == nil {
		return nil, errors.New("no formatter")
	}
	if data.Saver == nil {
		return nil, errors.New("no saver")
	}
	if data.PollInterval <= 0 {
		data.PollInterval = defaultPollInterval
	}
	if data.Cooldown <= 0 {
		data.Cooldown = defaultCooldown
	}
	if data.FileSize == nil {
		data.FileSize = fileSize
	}
	data.fc = utils.NewMultiCloseChannel()
	data.workWaitChan = make(chan struct{})
	cmdapp.Log.Infof("Starting worker, poll every %v", data.PollInterval)

	go pollLoop(data)
	return data.fc, nil
}

//Wait blocks until the polling loop exits
// the loop checks the close channel only between jobs, so an in-flight job finishes first
func (data *ServiceData) Wait() {
	<-data.workWaitChan
}

func pollLoop(data *ServiceData) {
	defer close(data.workWaitChan)
	for {
		job, err := data.Queue.DequeueNext()
		if err != nil {
			cmdapp.Log.Error(err)
		}
		wait := data.PollInterval
		if job != nil {
			processJob(data, job)
			wait = data.Cooldown
		}
		select {
		case <-data.fc.C:
			cmdapp.Log.Infof("Stopped polling queue")
			data.fc.Close()
			return
		case <-time.After(wait):
		}
	}
}

// processJob runs the whole pipeline for one claimed job. Any stage error
// aborts the attempt, the queue retry counter decides if the job comes back.
func processJob(data *ServiceData, job *persistence.Job) {
	cmdapp.Log.Infof("Processing job %s, space %s, attempt %d", job.ID, job.SpaceID, job.RetryCount+1)
	start := time.Now()
	err := runPipeline(data, job)
	jobDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		cmdapp.Log.Error(err)
		failJob(data, job, err)
		return
	}
	jobsDone.Inc()
	cmdapp.LogIf(data.Queue.MarkCompleted(job.ID))
	sendStatus(data, job.SpaceID, status.Name(status.Completed), "")
}

func runPipeline(data *ServiceData, job *persistence.Job) error {
	space, err := data.Spaces.GetBySpaceID(job.SpaceID)
	if err != nil {
		return err
	}
	if space == nil {
		return errors.Errorf("no space record for %s", job.SpaceID)
	}
	if err := data.Spaces.UpdateStatus(job.SpaceID, status.Processing, "", ""); err != nil {
		return err
	}
	sendStatus(data, job.SpaceID, status.Name(status.Processing), "")

	ctx := context.Background()
	if data.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, data.JobTimeout)
		defer cancel()
	}

	audio, err := data.Acquirer.Acquire(ctx, space.URL)
	if err != nil {
		return err
	}
	trData, err := data.Transcriber.Transcribe(ctx, audio.AudioPath)
	if err != nil {
		return err
	}
	fData, err := data.Formatter.Format(ctx, trData.Text, audio.Title, nil)
	if err != nil {
		return err
	}
	trPath, err := data.Saver.Save(&saver.TranscriptData{SpaceID: job.SpaceID, Title: audio.Title,
		URL: space.URL, Participants: fData.Participants, SpeakerProfiles: fData.SpeakerProfiles,
		FormattedText: fData.FormattedText})
	if err != nil {
		return err
	}
	size, err := data.FileSize(audio.AudioPath)
	if err != nil {
		cmdapp.Log.Warn(err)
	}
	return data.Spaces.SaveResult(job.SpaceID, &persistence.Result{
		AudioFilePath:      audio.AudioPath,
		TranscriptFilePath: trPath,
		AudioDurationSec:   trData.DurationSec,
		AudioSizeMB:        float64(size) / (1024 * 1024),
		TranscriptLength:   len(fData.FormattedText),
		Title:              audio.Title,
		Creator:            audio.CreatorID,
		Participants:       fData.Participants,
		SpeakerProfiles:    fData.SpeakerProfiles,
	})
}

func failJob(data *ServiceData, job *persistence.Job, err error) {
	jobsFailed.Inc()
	code := errs.Code(err)
	if errs.IsTerminal(err) {
		cmdapp.Log.Infof("Terminal failure %s for job %s, no retries", code, job.ID)
		cmdapp.LogIf(data.Queue.MarkFailedPermanent(job.ID, err.Error()))
	} else {
		cmdapp.LogIf(data.Queue.MarkFailed(job.ID, err.Error()))
	}
	cmdapp.LogIf(data.Spaces.UpdateStatus(job.SpaceID, status.Failed, err.Error(), code))
	sendStatus(data, job.SpaceID, status.Name(status.Failed), err.Error())
}

func sendStatus(data *ServiceData, id string, st string, errMsg string) {
	if data.MessageSender == nil {
		return
	}
	var msg *messages.StatusMessage
	if errMsg != "" {
		msg = messages.NewStatusMsgWithError(id, st, errMsg)
	} else {
		msg = messages.NewStatusMessage(id, st)
	}
	if err := data.MessageSender.Send(msg, messages.StatusChange, ""); err != nil {
		cmdapp.Log.Warnf("Can't send status event: %v", err)
	}
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrap(err, "can't stat "+path)
	}
	return fi.Size(), nil
}
