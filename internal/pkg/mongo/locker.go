package mongo

import (
	"context"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Locker acquires lock in db
type Locker struct {
	SessionProvider *SessionProvider
}

//NewLocker creates Locker instance
func NewLocker(sessionProvider *SessionProvider) (*Locker, error) {
	return &Locker{SessionProvider: sessionProvider}, nil
}

//Lock locks record for sending notification
func (ss *Locker) Lock(id string, lockKey string) error {
	cmdapp.Log.Infof("Locking %s: %s", id, lockKey)

	ctx, cancel := mongoContext()
	defer cancel()

	session, err := ss.SessionProvider.NewSession()
	if err != nil {
		return storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(lockTable)

	// make sure we have the record
	_, err = c.UpdateOne(ctx, bson.M{"ID": sanitize(id), "key": lockKey},
		bson.M{"$setOnInsert": bson.M{"status": 0}}, options.Update().SetUpsert(true))
	if err != nil {
		return storageErr(err, "can't upsert lock record")
	}

	var lockRecord bson.M
	err = c.FindOneAndUpdate(ctx, bson.M{"ID": sanitize(id), "key": lockKey, "status": 0},
		bson.M{"$set": bson.M{"status": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&lockRecord)
	if err != nil {
		return storageErr(err, "can't lock record")
	}
	return nil
}

//UnLock marks record with specific value
func (ss *Locker) UnLock(id string, lockKey string, value *int) error {
	cmdapp.Log.Infof("Unlocking %s: %s", id, lockKey)

	ctx, cancel := mongoContext()
	defer cancel()

	session, err := ss.SessionProvider.NewSession()
	if err != nil {
		return storageErr(err, "can't init session")
	}
	defer session.EndSession(context.Background())

	c := session.Client().Database(store).Collection(lockTable)

	var lockRecord bson.M
	err = c.FindOneAndUpdate(ctx, bson.M{"ID": sanitize(id), "key": lockKey, "status": 1},
		bson.M{"$set": bson.M{"status": *value}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&lockRecord)
	cmdapp.LogIf(err)
	return err
}
