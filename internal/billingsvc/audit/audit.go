package audit

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelError    = "error"
	LevelCritical = "critical"

	collectionName = "audit_events"
	retention      = 90 * 24 * time.Hour
)

// Event is one audit record: a billing decision or a ledger mutation.
type Event struct {
	Level     string    `bson:"level"`
	Origin    string    `bson:"origin"` // component.operation, set by the caller
	Message   string    `bson:"message"`
	UserID    string    `bson:"user_id,omitempty"`
	GameID    string    `bson:"game_id,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// Trail writes audit events to mongo. Writes are fire-and-forget: the
// billing decision must never block or fail on audit reporting.
type Trail struct {
	coll *mongo.Collection
}

func Connect() (*mongo.Database, context.CancelFunc, error) {
	mongoURI := os.Getenv("MONGODB_URI")

	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, nil, err
	}

	dbName := strings.TrimPrefix(uri.Path, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		cancel()
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		cancel()
		return nil, nil, err
	}

	return client.Database(dbName), cancel, nil
}

// NewTrail sets up the audit collection with a TTL index so old events age
// out on their own.
func NewTrail(db *mongo.Database) *Trail {
	coll := db.Collection(collectionName)

	indexModel := mongo.IndexModel{
		Keys:    bson.M{"expires_at": 1},
		Options: options.Index().SetExpireAfterSeconds(0),
	}

	_, err := coll.Indexes().CreateOne(context.TODO(), indexModel)
	if err != nil {
		log.Warnf("unable to create TTL index for %s: %v", collectionName, err)
	}

	return &Trail{coll: coll}
}

// Record persists one event in the background. A nil or disconnected trail
// degrades to the service log only.
func (t *Trail) Record(level, origin, message, userID, gameID string) {
	entry := log.WithFields(log.Fields{"origin": origin, "user": userID, "game": gameID})
	switch level {
	case LevelWarning:
		entry.Warn(message)
	case LevelError, LevelCritical:
		entry.Error(message)
	default:
		entry.Info(message)
	}

	if t == nil || t.coll == nil {
		return
	}

	now := time.Now().UTC()
	event := Event{
		Level:     level,
		Origin:    origin,
		Message:   message,
		UserID:    userID,
		GameID:    gameID,
		CreatedAt: now,
		ExpiresAt: now.Add(retention),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if _, err := t.coll.InsertOne(ctx, event); err != nil {
			log.Warnf("audit write failed for %s: %v", origin, err)
		}
	}()
}
