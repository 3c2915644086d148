package store

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultCollectionPrefix = "tasks"

// MongoStore keeps games and sessions in two collections. Participants are
// stored as one comma separated string to stay readable by existing data.
type MongoStore struct {
	games     *mongo.Collection
	sessions  *mongo.Collection
	client    *mongo.Client
	closeOnce sync.Once
	closeErr  error
}

type gameDoc struct {
	ID          any    `bson:"_id,omitempty"`
	Name        string `bson:"name"`
	Description string `bson:"description"`
	Category    string `bson:"category"`
	MinPlayers  int    `bson:"minPlayers"`
	MaxPlayers  int    `bson:"maxPlayers"`
	AverageTime int    `bson:"averageTime"`
}

type sessionDoc struct {
	ID       any       `bson:"_id,omitempty"`
	GameID   string    `bson:"gameId"`
	GameName string    `bson:"gameName"`
	Date     time.Time `bson:"date"`
	Players  string    `bson:"players"`
	Winner   string    `bson:"winner"`
	Status   string    `bson:"status,omitempty"`
}

func NewMongoStore(db *mongo.Database, prefix string) *MongoStore {
	if prefix == "" {
		prefix = defaultCollectionPrefix
	}
	return &MongoStore{
		games:    db.Collection(prefix + "_games"),
		sessions: db.Collection(prefix + "_sessions"),
		client:   db.Client(),
	}
}

func (s *MongoStore) ListGames(ctx context.Context) ([]models.Game, error) {
	cur, err := s.games.Find(ctx, bson.M{})
	if err != nil {
		return nil, &StorageError{Op: "find games", Err: err}
	}

	var docs []gameDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, &StorageError{Op: "decode games", Err: err}
	}

	games := make([]models.Game, 0, len(docs))
	for _, d := range docs {
		games = append(games, d.toGame())
	}
	return games, nil
}

func (s *MongoStore) AddGame(ctx context.Context, game models.Game) (models.Game, error) {
	if err := validateGame(game); err != nil {
		return models.Game{}, err
	}

	id, docID := newDocID(game.ID)
	game.ID = id

	doc := gameDoc{
		ID:          docID,
		Name:        game.Name,
		Description: game.Description,
		Category:    game.Category,
		MinPlayers:  game.MinPlayers,
		MaxPlayers:  game.MaxPlayers,
		AverageTime: game.AverageTime,
	}
	if _, err := s.games.InsertOne(ctx, doc); err != nil {
		return models.Game{}, &StorageError{Op: "insert game", Err: err}
	}
	return game, nil
}

func (s *MongoStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.sessions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, &StorageError{Op: "find sessions", Err: err}
	}

	var docs []sessionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, &StorageError{Op: "decode sessions", Err: err}
	}

	sessions := make([]models.Session, 0, len(docs))
	for _, d := range docs {
		sessions = append(sessions, d.toSession())
	}
	// _id order is type dependent for mixed ObjectID and string ids
	sortNewestFirst(sessions)
	return sessions, nil
}

func (s *MongoStore) AddSession(ctx context.Context, session models.Session) (models.Session, error) {
	id, docID := newDocID(session.ID)
	session.ID = id

	doc := sessionDoc{
		ID:       docID,
		GameID:   session.GameID,
		GameName: session.GameName,
		Date:     session.PlayedAt,
		Players:  session.PlayersString(),
		Winner:   session.Winner,
		Status:   string(session.Status),
	}
	if _, err := s.sessions.InsertOne(ctx, doc); err != nil {
		return models.Session{}, &StorageError{Op: "insert session", Err: err}
	}
	return session, nil
}

func (s *MongoStore) UpdateSessionStatus(ctx context.Context, session models.Session) error {
	update := bson.M{"$set": bson.M{"status": string(session.Status)}}

	res, err := s.sessions.UpdateOne(ctx, idFilter(session.ID), update)
	if err != nil {
		return &StorageError{Op: "update session status", Err: err}
	}
	if res.MatchedCount == 0 {
		return &NotFoundError{Kind: "session", ID: session.ID}
	}
	return nil
}

// WinStatistics runs the aggregation server side. It is not transactional
// with concurrent session writes.
func (s *MongoStore) WinStatistics(ctx context.Context, gameName string) ([]models.PlayerStat, error) {
	pattern := "^" + regexp.QuoteMeta(gameName) + "$"

	// "A, B" -> distinct trimmed names per session
	players := bson.M{"$setUnion": bson.A{
		bson.M{"$filter": bson.M{
			"input": bson.M{"$map": bson.M{
				"input": bson.M{"$split": bson.A{"$players", ","}},
				"as":    "p",
				"in":    bson.M{"$trim": bson.M{"input": "$$p"}},
			}},
			"as":   "p",
			"cond": bson.M{"$ne": bson.A{"$$p", ""}},
		}},
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"gameName": primitive.Regex{Pattern: pattern, Options: "i"}}}},
		{{Key: "$project", Value: bson.M{"winner": 1, "players": players}}},
		{{Key: "$facet", Value: bson.M{
			"total": bson.A{bson.M{"$count": "n"}},
			"players": bson.A{
				bson.M{"$unwind": "$players"},
				bson.M{"$group": bson.M{
					"_id":  "$players",
					"wins": bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$players", "$winner"}}, 1, 0}}},
				}},
			},
		}}},
	}

	cur, err := s.sessions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &StorageError{Op: "aggregate win statistics", Err: err}
	}

	var out []struct {
		Total []struct {
			N int `bson:"n"`
		} `bson:"total"`
		Players []struct {
			Player string `bson:"_id"`
			Wins   int    `bson:"wins"`
		} `bson:"players"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return nil, &StorageError{Op: "decode win statistics", Err: err}
	}
	if len(out) == 0 || len(out[0].Total) == 0 {
		return nil, nil
	}

	total := out[0].Total[0].N
	stats := make([]models.PlayerStat, 0, len(out[0].Players))
	for _, p := range out[0].Players {
		stats = append(stats, models.PlayerStat{
			Player:        p.Player,
			Wins:          p.Wins,
			TotalGames:    total,
			WinPercentage: models.Percentage(p.Wins, total),
		})
	}
	return stats, nil
}

func (s *MongoStore) Close() error {
	s.closeOnce.Do(func() {
		if s.client != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.closeErr = s.client.Disconnect(ctx)
		}
	})
	return s.closeErr
}

func (d gameDoc) toGame() models.Game {
	g := models.Game{
		ID:          docIDString(d.ID),
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		MinPlayers:  d.MinPlayers,
		MaxPlayers:  d.MaxPlayers,
		AverageTime: d.AverageTime,
	}
	// older documents may miss the numeric fields
	if g.MinPlayers == 0 {
		g.MinPlayers = 2
	}
	if g.MaxPlayers == 0 {
		g.MaxPlayers = 4
	}
	if g.AverageTime == 0 {
		g.AverageTime = 30
	}
	return g
}

func (d sessionDoc) toSession() models.Session {
	status := models.SessionStatus(d.Status)
	if !status.Valid() {
		status = models.StatusClosed
	}
	return models.Session{
		ID:       docIDString(d.ID),
		GameID:   d.GameID,
		GameName: d.GameName,
		PlayedAt: d.Date,
		Players:  models.SplitPlayers(d.Players),
		Winner:   d.Winner,
		Status:   status,
	}
}

// newDocID returns the public id and the value stored in _id. New ids are
// ObjectIDs; caller supplied ids are kept as ObjectIDs when they parse as one.
func newDocID(id string) (string, any) {
	if id == "" {
		oid := primitive.NewObjectID()
		return oid.Hex(), oid
	}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return id, oid
	}
	return id, id
}

func docIDString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}
