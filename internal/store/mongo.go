package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements SessionStore over a MongoDB collection.
type MongoStore struct {
	sessions *mongo.Collection
}

// Compile-time interface check.
var _ SessionStore = (*MongoStore)(nil)

// NewMongoStore connects to MongoDB and prepares the sessions collection.
// The connection is verified with a ping so a bad URI fails at startup
// instead of on the first request.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	sessions := client.Database(dbName).Collection(SessionCollection)

	// Status updates arrive keyed by kickoff id, not session id.
	idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = sessions.Indexes().CreateOne(idxCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "kickoff_id", Value: 1}},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create kickoff_id index")
	}

	return &MongoStore{sessions: sessions}, nil
}

// Close disconnects the underlying MongoDB client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.sessions.Database().Client().Disconnect(ctx)
}

func (s *MongoStore) PutSession(ctx context.Context, session *Session) error {
	session.UpdatedAt = time.Now().UTC()
	opts := options.Replace().SetUpsert(true)
	_, err := s.sessions.ReplaceOne(ctx, bson.M{"_id": session.ID}, session, opts)
	if err != nil {
		return fmt.Errorf("put session %s: %w", session.ID, err)
	}
	return nil
}

func (s *MongoStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	err := s.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return &session, nil
}

func (s *MongoStore) UpdateStatusByKickoffID(ctx context.Context, kickoffID, status string) error {
	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}}
	_, err := s.sessions.UpdateOne(ctx, bson.M{"kickoff_id": kickoffID}, update)
	if err != nil {
		return fmt.Errorf("update status for kickoff %s: %w", kickoffID, err)
	}
	return nil
}

func (s *MongoStore) SetResultByKickoffID(ctx context.Context, kickoffID, status string, result map[string]any) error {
	update := bson.M{"$set": bson.M{
		"status":     status,
		"result":     result,
		"updated_at": time.Now().UTC(),
	}}
	_, err := s.sessions.UpdateOne(ctx, bson.M{"kickoff_id": kickoffID}, update)
	if err != nil {
		return fmt.Errorf("set result for kickoff %s: %w", kickoffID, err)
	}
	return nil
}

func (s *MongoStore) SetErrorByKickoffID(ctx context.Context, kickoffID, errMsg string) error {
	update := bson.M{"$set": bson.M{
		"status":     "FAILED",
		"error":      errMsg,
		"updated_at": time.Now().UTC(),
	}}
	_, err := s.sessions.UpdateOne(ctx, bson.M{"kickoff_id": kickoffID}, update)
	if err != nil {
		return fmt.Errorf("set error for kickoff %s: %w", kickoffID, err)
	}
	return nil
}

func (s *MongoStore) ListSessions(ctx context.Context, limit int64) ([]*Session, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := s.sessions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}
