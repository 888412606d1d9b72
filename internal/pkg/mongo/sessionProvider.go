package mongo

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

//IndexData keeps index creation data
type IndexData struct {
	Table  string
	Field  string
	Unique bool
}

func newIndexData(table string, field string, unique bool) IndexData {
	return IndexData{Table: table, Field: field, Unique: unique}
}

//SessionProvider connects and provides session for mongo DB
type SessionProvider struct {
	client  *mongo.Client
	URL     string
	indexes []IndexData
	m       sync.Mutex // struct field mutex
}

//NewSessionProvider creates Mongo session provider
func NewSessionProvider() (*SessionProvider, error) {
	url := cmdapp.Config.GetString("mongo.url")
	if url == "" {
		return nil, errors.New("No Mongo url provided")
	}
	return &SessionProvider{URL: url, indexes: indexData}, nil
}

//Close closes mongo client
func (sp *SessionProvider) Close() {
	if sp.client != nil {
		ctx, cancel := mongoContext()
		defer cancel()
		cmdapp.LogIf(sp.client.Disconnect(ctx))
	}
}

//NewSession creates mongo session
func (sp *SessionProvider) NewSession() (mongo.Session, error) {
	sp.m.Lock()
	defer sp.m.Unlock()

	if sp.client == nil {
		cmdapp.Log.Info("Dial mongo: " + hidePass(sp.URL))
		ctx, cancel := mongoContext()
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(sp.URL))
		if err != nil {
			return nil, errors.Wrap(err, "Can't dial to mongo")
		}
		err = client.Ping(ctx, nil)
		if err != nil {
			return nil, errors.Wrap(err, "Can't ping mongo")
		}
		err = checkIndexes(client, sp.indexes)
		if err != nil {
			return nil, errors.Wrap(err, "Can't create indexes")
		}
		sp.client = client
	}
	return sp.client.StartSession()
}

//Healthy checks the mongo connection
func (sp *SessionProvider) Healthy() error {
	session, err := sp.NewSession()
	if err != nil {
		return err
	}
	defer session.EndSession(context.Background())
	ctx, cancel := mongoContext()
	defer cancel()
	return session.Client().Ping(ctx, nil)
}

func checkIndexes(client *mongo.Client, indexes []IndexData) error {
	ctx, cancel := mongoContext()
	defer cancel()
	for _, index := range indexes {
		c := client.Database(store).Collection(index.Table)
		_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: index.Field, Value: 1}},
			Options: options.Index().SetUnique(index.Unique).SetSparse(true),
		})
		if err != nil {
			return errors.Wrap(err, "Can't create index: "+index.Table+":"+index.Field)
		}
	}
	return nil
}

func mongoContext() (context.Context, func()) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '$' || r == 0 {
			return -1
		}
		return r
	}, s)
}

func hidePass(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		cmdapp.Log.Warn("Can't parse mongo url.")
		return ""
	}
	_, ps := u.User.Password()
	if ps {
		u.User = url.UserPassword(u.User.Username(), "----")
	}
	return u.String()
}
