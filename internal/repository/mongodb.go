// internal/repository/mongodb.go
//
// MongoDB backend: "users" and "games" collections.
// Record creation runs in a multi-document transaction, so the server must
// be a replica set (a single-node replica set is enough for development).
// Stats use $inc/$max so concurrent creates never lose an increment.

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/forestclash/go-server/internal/apperr"
	"github.com/forestclash/go-server/internal/models"
)

// Mongo implements Repository on a MongoDB database.
type Mongo struct {
	client *mongo.Client
	users  *mongo.Collection
	games  *mongo.Collection
}

// OpenMongo connects, pings the primary and ensures indexes.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if database == "" {
		database = "forestclash"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	m := &Mongo{client: client, users: db.Collection("users"), games: db.Collection("games")}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info().Str("database", database).Msg("connected to MongoDB")
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "stats.gamesWon", Value: -1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	_, err = m.games.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("games indexes: %w", err)
	}
	return nil
}

/* ------------------------------ accounts ------------------------------- */

func (m *Mongo) CreateAccount(ctx context.Context, a *models.Account) error {
	_, err := m.users.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflict(msgDuplicateAccount)
	}
	return apperr.Wrap(err, "insert user")
}

func (m *Mongo) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	return m.findAccount(ctx, bson.M{"_id": id})
}

func (m *Mongo) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return m.findAccount(ctx, bson.M{"email": email})
}

func (m *Mongo) findAccount(ctx context.Context, filter bson.M) (*models.Account, error) {
	var a models.Account
	err := m.users.FindOne(ctx, filter).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound(msgAccountNotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "find user")
	}
	return &a, nil
}

func (m *Mongo) TopAccounts(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	opts := options.Find().
		SetProjection(bson.M{"username": 1, "stats": 1}).
		SetSort(bson.D{{Key: "stats.gamesWon", Value: -1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := m.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperr.Wrap(err, "query leaderboard")
	}
	out := make([]models.LeaderboardEntry, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Wrap(err, "decode leaderboard")
	}
	return out, nil
}

/* ---------------------------- game records ----------------------------- */

// CreateRecord bumps stats and inserts the game in one transaction.
// The transaction is not retried; a transient failure surfaces to the caller.
func (m *Mongo) CreateRecord(ctx context.Context, r *models.GameRecord) (models.Stats, error) {
	sess, err := m.client.StartSession()
	if err != nil {
		return models.Stats{}, apperr.Wrap(err, "start session")
	}
	defer sess.EndSession(context.Background())

	doc := *r
	doc.Moves = nonNilMoves(doc.Moves)
	delta := models.Stats{}.Record(r.Winner, r.PlayerScore)

	var stats models.Stats
	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(); err != nil {
			return apperr.Wrap(err, "start transaction")
		}
		abort := func(err error) error {
			_ = sess.AbortTransaction(context.Background())
			return err
		}

		var acc models.Account
		err := m.users.FindOneAndUpdate(sc,
			bson.M{"_id": r.UserID},
			bson.M{
				"$inc": bson.M{
					"stats.gamesPlayed": 1,
					"stats.gamesWon":    delta.GamesWon,
					"stats.gamesLost":   delta.GamesLost,
				},
				"$max": bson.M{"stats.highestScore": r.PlayerScore},
			},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&acc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return abort(apperr.NotFound(msgAccountNotFound))
		}
		if err != nil {
			return abort(apperr.Wrap(err, "update stats"))
		}
		if _, err := m.games.InsertOne(sc, doc); err != nil {
			return abort(apperr.Wrap(err, "insert game"))
		}
		if err := sess.CommitTransaction(sc); err != nil {
			return apperr.Wrap(err, "commit game")
		}
		stats = acc.Stats
		return nil
	})
	if err != nil {
		return models.Stats{}, err
	}
	return stats, nil
}

func (m *Mongo) ListRecords(ctx context.Context, userID string, limit int) ([]models.GameRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := m.games.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, apperr.Wrap(err, "query games")
	}
	out := []models.GameRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Wrap(err, "decode games")
	}
	for i := range out {
		out[i].Moves = nonNilMoves(out[i].Moves)
	}
	return out, nil
}

func (m *Mongo) GetRecord(ctx context.Context, userID, id string) (*models.GameRecord, error) {
	var r models.GameRecord
	err := m.games.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound(msgGameNotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "find game")
	}
	r.Moves = nonNilMoves(r.Moves)
	return &r, nil
}

func (m *Mongo) UpdateRecord(ctx context.Context, userID, id string, p models.RecordPatch, now time.Time) (*models.GameRecord, error) {
	set := bson.M{"updatedAt": now}
	if p.PlayerScore != nil {
		set["playerScore"] = *p.PlayerScore
	}
	if p.BotScore != nil {
		set["botScore"] = *p.BotScore
	}
	if p.Winner != nil {
		set["winner"] = *p.Winner
	}
	if p.Duration != nil {
		set["duration"] = *p.Duration
	}
	if p.Moves != nil {
		set["moves"] = nonNilMoves(*p.Moves)
	}

	var r models.GameRecord
	err := m.games.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound(msgGameNotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "update game")
	}
	r.Moves = nonNilMoves(r.Moves)
	return &r, nil
}

func (m *Mongo) DeleteRecord(ctx context.Context, userID, id string) error {
	res, err := m.games.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return apperr.Wrap(err, "delete game")
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound(msgGameNotFound)
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
