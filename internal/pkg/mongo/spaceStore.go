package mongo

import (
	"context"
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/airenas/spacego/internal/pkg/persistence"
	"github.com/airenas/spacego/internal/pkg/status"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SpaceStore is the sole writer of space processing state in mongo db
type SpaceStore struct {
	SessionProvider *SessionProvider
}

//NewSpaceStore creates SpaceStore instance
func NewSpaceStore(sessionProvider *SessionProvider) (*SpaceStore, error) {
	return &SpaceStore{SessionProvider: sessionProvider}, nil
}

// GetOrCreate returns the space record, inserting an idle pending one on first request
func (ss *SpaceStore) GetOrCreate(id string, url string, title string) (*persistence.Space, error) {
	cmdapp.Log.Infof("Get or create space %s", id)

	ctx, cancel := mongoContext()
	defer cancel()

	session, err := ss.SessionProvider.NewSession()
	if err != nil {
		return nil, storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(spaceTable)

	var res persistence.Space
	err = c.FindOneAndUpdate(ctx, bson.M{"ID": sanitize(id)},
		bson.M{"$setOnInsert": bson.M{"ID": sanitize(id), "url": url, "title": title,
			"status": status.Name(status.Pending), "firstRequestedAt": time.Now()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&res)
	if err != nil {
		return nil, storageErr(err, "can't get or create space "+id)
	}
	return &res, nil
}

// GetBySpaceID retrieves the space record, nil if not found
func (ss *SpaceStore) GetBySpaceID(id string) (*persistence.Space, error) {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := ss.SessionProvider.NewSession()
	if err != nil {
		return nil, storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(spaceTable)
	var res persistence.Space
	err = c.FindOne(ctx, bson.M{"ID": sanitize(id)}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err, "can't get space "+id)
	}
	return &res, nil
}

// SaveRequestInfo records contact and payment fields of the latest paid request
func (ss *SpaceStore) SaveRequestInfo(id string, email string, wallet string, txHash string) error {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := ss.SessionProvider.NewSession()
	if err != nil {
		return storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(spaceTable)
	set := bson.M{}
	if email != "" {
		set["email"] = email
	}
	if wallet != "" {
		set["wallet"] = wallet
	}
	if txHash != "" {
		set["txHash"] = txHash
	}
	if len(set) == 0 {
		return nil
	}
	_, err = c.UpdateOne(ctx, bson.M{"ID": sanitize(id)}, bson.M{"$set": set})
	if err != nil {
		return storageErr(err, "can't save request info "+id)
	}
	return nil
}

// UpdateStatus moves the space through the state machine
func (ss *SpaceStore) UpdateStatus(id string, st status.Status, errMsg string, errCode string) error {
	cmdapp.Log.Infof("Saving space status %s: %s", id, status.Name(st))

	ctx, cancel := mongoContext()
	defer cancel()

	session, err := ss.SessionProvider.NewSession()
	if err != nil {
		return storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(spaceTable)
	set := bson.M{"status": status.Name(st)}
	if st == status.Processing {
		set["processingStartedAt"] = time.Now()
	}
	update := bson.M{"$set": set}
	if errMsg != "" {
		set["error"] = errMsg
		set["errorCode"] = errCode
	} else {
		update["$unset"] = bson.M{"error": "", "errorCode": ""}
	}
	_, err = c.UpdateOne(ctx, bson.M{"ID": sanitize(id)}, update)
	if err != nil {
		return storageErr(err, "can't update status "+id)
	}
	return nil
}

// SaveResult persists pipeline artifacts and completes the space
func (ss *SpaceStore) SaveResult(id string, res *persistence.Result) error {
	cmdapp.Log.Infof("Saving result for %s", id)

	ctx, cancel := mongoContext()
	defer cancel()

	session, err := ss.SessionProvider.NewSession()
	if err != nil {
		return storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(spaceTable)
	set := bson.M{
		"status":             status.Name(status.Completed),
		"completedAt":        time.Now(),
		"audioFilePath":      res.AudioFilePath,
		"transcriptFilePath": res.TranscriptFilePath,
		"audioDurationSec":   res.AudioDurationSec,
		"audioSizeMB":        res.AudioSizeMB,
		"transcriptLength":   res.TranscriptLength,
		"participants":       res.Participants,
		"speakerProfiles":    res.SpeakerProfiles,
	}
	if res.Title != "" {
		set["title"] = res.Title
	}
	if res.Creator != "" {
		set["creator"] = res.Creator
	}
	_, err = c.UpdateOne(ctx, bson.M{"ID": sanitize(id)},
		bson.M{"$set": set, "$unset": bson.M{"error": "", "errorCode": ""}})
	if err != nil {
		return storageErr(err, "can't save result "+id)
	}
	return nil
}

// IncTranscriptionCount bumps the analytics purchase counter
func (ss *SpaceStore) IncTranscriptionCount(id string) error {
	return ss.inc(id, "trCount")
}

// IncChatUnlockCount bumps the analytics chat counter
func (ss *SpaceStore) IncChatUnlockCount(id string) error {
	return ss.inc(id, "chatCount")
}

func (ss *SpaceStore) inc(id string, field string) error {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := ss.SessionProvider.NewSession()
	if err != nil {
		return storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(spaceTable)
	_, err = c.UpdateOne(ctx, bson.M{"ID": sanitize(id)}, bson.M{"$inc": bson.M{field: 1}})
	if err != nil {
		return storageErr(err, "can't inc "+field+" for "+id)
	}
	return nil
}

// ListAudioForCleanup returns completed spaces older than the given time that still keep audio
func (ss *SpaceStore) ListAudioForCleanup(before time.Time) ([]persistence.Space, error) {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := ss.SessionProvider.NewSession()
	if err != nil {
		return nil, storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(spaceTable)
	cursor, err := c.Find(ctx, bson.M{"status": status.Name(status.Completed),
		"completedAt":   bson.M{"$lt": before},
		"audioFilePath": bson.M{"$exists": true, "$ne": ""}})
	if err != nil {
		return nil, storageErr(err, "can't list spaces for cleanup")
	}
	defer cursor.Close(ctx)
	var res []persistence.Space
	if err := cursor.All(ctx, &res); err != nil {
		return nil, storageErr(err, "can't decode spaces")
	}
	return res, nil
}

// ClearAudioPath drops the audio artifact reference after cleanup
func (ss *SpaceStore) ClearAudioPath(id string) error {
	ctx, cancel := mongoContext()
	defer cancel()

	session, err := ss.SessionProvider.NewSession()
	if err != nil {
		return storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(spaceTable)
	_, err = c.UpdateOne(ctx, bson.M{"ID": sanitize(id)}, bson.M{"$unset": bson.M{"audioFilePath": ""}})
	if err != nil {
		return storageErr(err, "can't clear audio path "+id)
	}
	return nil
}

func storageErr(err error, msg string) error {
	return errors.Wrapf(errs.ErrStorage, "%s: %v", msg, err)
}
