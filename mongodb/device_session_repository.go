package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/gamelink/domain"
)

// DeviceSessionRepository implements domain.DeviceSessionRepository using
// MongoDB. Sessions are write-once; there is no update path.
type DeviceSessionRepository struct {
	sessions *mongo.Collection
}

// NewDeviceSessionRepository creates the repository and ensures its indexes.
func NewDeviceSessionRepository(ctx context.Context, db *mongo.Database) (domain.DeviceSessionRepository, error) {
	repo := &DeviceSessionRepository{
		sessions: db.Collection(DeviceSessionsCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := repo.sessions.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for device_sessions collection (might already exist)")
	}

	return repo, nil
}

// Store persists a new device session.
func (r *DeviceSessionRepository) Store(ctx context.Context, session *domain.DeviceSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	_, err := r.sessions.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("device session with this token already exists")
		}
		log.Error().Err(err).Msg("Error storing device session in MongoDB")
		return err
	}
	return nil
}

// GetByToken retrieves a session by its token value.
func (r *DeviceSessionRepository) GetByToken(ctx context.Context, sessionToken string) (*domain.DeviceSession, error) {
	var session domain.DeviceSession
	err := r.sessions.FindOne(ctx, bson.M{"_id": sessionToken}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		log.Error().Err(err).Msg("Error getting device session from MongoDB")
		return nil, err
	}
	return &session, nil
}

// DeleteExpired removes expired sessions eagerly.
func (r *DeviceSessionRepository) DeleteExpired(ctx context.Context) error {
	_, err := r.sessions.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	return err
}

var _ domain.DeviceSessionRepository = (*DeviceSessionRepository)(nil)
