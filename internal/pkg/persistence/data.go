package persistence

import "time"

const (
	//JobQueued - job waits for a worker
	JobQueued = "queued"
	//JobProcessing - job is claimed by a worker
	JobProcessing = "processing"
	//JobCompleted - job finished successfully
	JobCompleted = "completed"
	//JobFailed - job exhausted its retry budget
	JobFailed = "failed"
)

type (
	//SpeakerProfile keeps name and inferred background of one speaker
	SpeakerProfile struct {
		Name       string `bson:"name" json:"name"`
		Background string `bson:"background,omitempty" json:"background,omitempty"`
	}

	//Space represents one external audio recording and its processing state
	Space struct {
		ID      string `bson:"ID" json:"id"`
		URL     string `bson:"url" json:"url"`
		Title   string `bson:"title,omitempty" json:"title,omitempty"`
		Creator string `bson:"creator,omitempty" json:"creator,omitempty"`
		Email   string `bson:"email,omitempty" json:"-"`
		// payment fields are recorded as opaque trusted inputs
		Wallet string `bson:"wallet,omitempty" json:"-"`
		TxHash string `bson:"txHash,omitempty" json:"-"`

		Status    string `bson:"status" json:"status"`
		Error     string `bson:"error,omitempty" json:"error,omitempty"`
		ErrorCode string `bson:"errorCode,omitempty" json:"errorCode,omitempty"`

		AudioFilePath      string           `bson:"audioFilePath,omitempty" json:"audioFilePath,omitempty"`
		TranscriptFilePath string           `bson:"transcriptFilePath,omitempty" json:"transcriptFilePath,omitempty"`
		AudioDurationSec   float64          `bson:"audioDurationSec,omitempty" json:"audioDurationSec,omitempty"`
		AudioSizeMB        float64          `bson:"audioSizeMB,omitempty" json:"audioSizeMB,omitempty"`
		TranscriptLength   int              `bson:"transcriptLength,omitempty" json:"transcriptLength,omitempty"`
		Participants       []string         `bson:"participants,omitempty" json:"participants,omitempty"`
		SpeakerProfiles    []SpeakerProfile `bson:"speakerProfiles,omitempty" json:"speakerProfiles,omitempty"`

		FirstRequestedAt    time.Time `bson:"firstRequestedAt,omitempty" json:"firstRequestedAt,omitempty"`
		ProcessingStartedAt time.Time `bson:"processingStartedAt,omitempty" json:"processingStartedAt,omitempty"`
		CompletedAt         time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`

		TranscriptionCount int `bson:"trCount,omitempty" json:"-"`
		ChatUnlockCount    int `bson:"chatCount,omitempty" json:"-"`
	}

	//Job is one queued unit of work to process a space
	Job struct {
		ID      string `bson:"ID" json:"id"`
		SpaceID string `bson:"spaceID" json:"spaceId"`

		Status     string `bson:"status" json:"status"`
		Priority   int    `bson:"priority" json:"priority"`
		RetryCount int    `bson:"retryCount" json:"retryCount"`
		MaxRetries int    `bson:"maxRetries" json:"maxRetries"`

		ErrorMessage string    `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
		LastErrorAt  time.Time `bson:"lastErrorAt,omitempty" json:"lastErrorAt,omitempty"`

		QueuedAt    time.Time `bson:"queuedAt" json:"queuedAt"`
		StartedAt   time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
		CompletedAt time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	}

	//Result keeps artifacts of one completed pipeline run
	Result struct {
		AudioFilePath      string
		TranscriptFilePath string
		AudioDurationSec   float64
		AudioSizeMB        float64
		TranscriptLength   int
		Title              string
		Creator            string
		Participants       []string
		SpeakerProfiles    []SpeakerProfile
	}
)
