package mongo

import (
	"context"
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/persistence"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultStaleAfter = 2 * time.Hour

// JobQueue is a durable priority/FIFO queue of transcription jobs in mongo db.
// The dequeue claim is a single conditional update, safe for concurrent workers.
type JobQueue struct {
	SessionProvider *SessionProvider
	maxRetries      int
	staleAfter      time.Duration
}

//NewJobQueue creates JobQueue instance
func NewJobQueue(sessionProvider *SessionProvider, maxRetries int) (*JobQueue, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &JobQueue{SessionProvider: sessionProvider, maxRetries: maxRetries,
		staleAfter: defaultStaleAfter}, nil
}

// Enqueue inserts a new queued job for the space
func (jq *JobQueue) Enqueue(spaceID string, priority int) (*persistence.Job, error) {
	job := &persistence.Job{ID: uuid.New().String(), SpaceID: spaceID,
		Status: persistence.JobQueued, Priority: priority,
		RetryCount: 0, MaxRetries: jq.maxRetries, QueuedAt: time.Now()}
	cmdapp.Log.Infof("Enqueue job %s for space %s", job.ID, spaceID)

	ctx, cancel := mongoContext()
	defer cancel()

	session, err := jq.SessionProvider.NewSession()
	if err != nil {
		return nil, storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(jobTable)
	_, err = c.InsertOne(ctx, job)
	if err != nil {
		return nil, storageErr(err, "can't insert job")
	}
	return job, nil
}

// DequeueNext atomically claims the highest-priority oldest queued job.
// Jobs left in processing longer than staleAfter were abandoned by a dead
// worker and are claimed again. Returns nil if no eligible job exists.
func (jq *JobQueue) DequeueNext() (*persistence.Job, error) {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := jq.SessionProvider.NewSession()
	if err != nil {
		return nil, storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(jobTable)
	var res persistence.Job
	now := time.Now()
	err = c.FindOneAndUpdate(ctx,
		bson.M{"$or": bson.A{
			bson.M{"status": persistence.JobQueued},
			bson.M{"status": persistence.JobProcessing,
				"startedAt": bson.M{"$lt": now.Add(-jq.staleAfter)}}},
			"$expr": bson.M{"$lt": bson.A{"$retryCount", "$maxRetries"}}},
		bson.M{"$set": bson.M{"status": persistence.JobProcessing, "startedAt": now}},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "queuedAt", Value: 1}}).
			SetReturnDocument(options.After)).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "can't dequeue job")
	}
	return &res, nil
}

// MarkCompleted finishes the job, missing job is logged and ignored
func (jq *JobQueue) MarkCompleted(jobID string) error {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := jq.SessionProvider.NewSession()
	if err != nil {
		return storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(jobTable)
	r, err := c.UpdateOne(ctx, bson.M{"ID": sanitize(jobID)},
		bson.M{"$set": bson.M{"status": persistence.JobCompleted, "completedAt": time.Now()}})
	if err != nil {
		return storageErr(err, "can't mark job completed "+jobID)
	}
	if r.MatchedCount == 0 {
		cmdapp.Log.Warnf("Job not found %s", jobID)
	}
	return nil
}

// MarkFailed records the error and requeues the job, or fails it terminally
// after the retry budget is exhausted
func (jq *JobQueue) MarkFailed(jobID string, errMsg string) error {
	return jq.markFailed(jobID, errMsg, false)
}

// MarkFailedPermanent fails the job with no further retries.
// Used for terminal errors - a deleted space does not come back.
func (jq *JobQueue) MarkFailedPermanent(jobID string, errMsg string) error {
	return jq.markFailed(jobID, errMsg, true)
}

func (jq *JobQueue) markFailed(jobID string, errMsg string, permanent bool) error {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := jq.SessionProvider.NewSession()
	if err != nil {
		return storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(jobTable)
	var job persistence.Job
	err = c.FindOne(ctx, bson.M{"ID": sanitize(jobID)}).Decode(&job)
	if err == mongo.ErrNoDocuments {
		cmdapp.Log.Warnf("Job not found %s", jobID)
		return nil
	}
	if err != nil {
		return storageErr(err, "can't get job "+jobID)
	}

	newStatus, newRetryCount := nextRetryState(job.RetryCount, job.MaxRetries, permanent)
	cmdapp.Log.Infof("Mark job %s failed, retry %d/%d, status %s", jobID, newRetryCount, job.MaxRetries, newStatus)

	_, err = c.UpdateOne(ctx, bson.M{"ID": sanitize(jobID)},
		bson.M{"$set": bson.M{"status": newStatus, "retryCount": newRetryCount,
			"errorMessage": errMsg, "lastErrorAt": time.Now()}})
	if err != nil {
		return storageErr(err, "can't mark job failed "+jobID)
	}
	return nil
}

// nextRetryState computes the job transition after a failed attempt.
// Once the retry budget is spent the job stays failed for good.
func nextRetryState(retryCount int, maxRetries int, permanent bool) (string, int) {
	newCount := retryCount + 1
	if permanent {
		newCount = maxRetries
	}
	if newCount >= maxRetries {
		return persistence.JobFailed, newCount
	}
	return persistence.JobQueued, newCount
}

// ActiveJob returns the latest queued or processing job of the space, nil if none
func (jq *JobQueue) ActiveJob(spaceID string) (*persistence.Job, error) {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := jq.SessionProvider.NewSession()
	if err != nil {
		return nil, storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(jobTable)
	var res persistence.Job
	err = c.FindOne(ctx, bson.M{"spaceID": sanitize(spaceID),
		"status": bson.M{"$in": bson.A{persistence.JobQueued, persistence.JobProcessing}}},
		options.FindOne().SetSort(bson.D{{Key: "queuedAt", Value: -1}})).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "can't get active job for "+spaceID)
	}
	return &res, nil
}
