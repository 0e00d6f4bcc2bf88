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

// PairingTokenRepository implements domain.PairingTokenRepository using
// MongoDB. The read-check-write transitions (LinkUser, Consume) are single
// FindOneAndUpdate calls whose filters carry the usability predicate, so two
// racing writers serialize on the token document and at most one can win.
type PairingTokenRepository struct {
	tokens *mongo.Collection
}

// NewPairingTokenRepository creates the repository and ensures its indexes.
func NewPairingTokenRepository(ctx context.Context, db *mongo.Database) (domain.PairingTokenRepository, error) {
	repo := &PairingTokenRepository{
		tokens: db.Collection(PairingTokensCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			// TTL index: Mongo removes expired tokens on its own. The
			// usability filters never rely on it because the reaper only
			// runs periodically.
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "device_id", Value: 1}},
			Options: options.Index(),
		},
	}
	if _, err := repo.tokens.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for pairing_tokens collection (might already exist)")
	}

	return repo, nil
}

// Create persists a freshly minted pairing token.
func (r *PairingTokenRepository) Create(ctx context.Context, token *domain.PairingToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	_, err := r.tokens.InsertOne(ctx, token)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// A collision on a fresh random token means the generator is
			// broken, not that the caller raced.
			return errors.New("pairing token collision")
		}
		log.Error().Err(err).Msg("Error storing pairing token in MongoDB")
		return err
	}
	return nil
}

// FindByToken looks a token up by its value.
func (r *PairingTokenRepository) FindByToken(ctx context.Context, token string) (*domain.PairingToken, error) {
	var result domain.PairingToken
	err := r.tokens.FindOne(ctx, bson.M{"_id": token}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenInvalid
		}
		log.Error().Err(err).Msg("Error getting pairing token from MongoDB")
		return nil, err
	}
	return &result, nil
}

// LinkUser attaches userID to a live, unconsumed token. The expiry and
// consumed checks are part of the update filter, so a token a concurrent
// Consume has just flipped can never be re-linked.
func (r *PairingTokenRepository) LinkUser(ctx context.Context, token, userID string) error {
	filter := bson.M{
		"_id":        token,
		"consumed":   false,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}
	update := bson.M{"$set": bson.M{"linked_user_id": userID}}
	opt := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var prev domain.PairingToken
	err := r.tokens.FindOneAndUpdate(ctx, filter, update, opt).Decode(&prev)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrTokenInvalid
		}
		log.Error().Err(err).Msg("Error linking user to pairing token in MongoDB")
		return err
	}

	if prev.LinkedUserID != "" && prev.LinkedUserID != userID {
		log.Warn().
			Str("previous_user_id", prev.LinkedUserID).
			Str("user_id", userID).
			Msg("Pairing token re-linked to a different user before consumption")
	}
	return nil
}

// Consume flips the consumed flag on a linked, live token owned by deviceID.
// The flip is the single linearization point of the handshake: across any
// number of concurrent calls exactly one returns the token, the rest get
// ErrTokenInvalid or ErrPairingNotReady.
func (r *PairingTokenRepository) Consume(ctx context.Context, token, deviceID string) (*domain.PairingToken, error) {
	filter := bson.M{
		"_id":            token,
		"device_id":      deviceID,
		"consumed":       false,
		"expires_at":     bson.M{"$gt": time.Now().UTC()},
		"linked_user_id": bson.M{"$exists": true, "$ne": ""},
	}
	update := bson.M{"$set": bson.M{"consumed": true}}
	opt := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var consumed domain.PairingToken
	err := r.tokens.FindOneAndUpdate(ctx, filter, update, opt).Decode(&consumed)
	if err == nil {
		return &consumed, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		log.Error().Err(err).Msg("Error consuming pairing token in MongoDB")
		return nil, err
	}

	// The CAS missed. A plain read tells the final rejections apart from
	// pending. The consumed flag only flips false to true, so a token a
	// concurrent Consume spent shows up as unusable here and cannot be
	// mistaken for a live one.
	return nil, r.classifyConsumeMiss(ctx, token, deviceID)
}

func (r *PairingTokenRepository) classifyConsumeMiss(ctx context.Context, token, deviceID string) error {
	current, err := r.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return domain.ErrTokenInvalid
		}
		return err
	}
	if current.DeviceID != deviceID || !current.Usable(time.Now().UTC()) {
		return domain.ErrTokenInvalid
	}
	// Live, unconsumed and device-matched: the token is still waiting to be
	// spent. It may even be linked by now, when a LinkUser landed between
	// the failed CAS and this read; that is still poll-again, and the next
	// Consume picks the link up.
	return domain.ErrPairingNotReady
}

// DeleteExpired removes expired tokens eagerly. The TTL index does this too,
// just not promptly.
func (r *PairingTokenRepository) DeleteExpired(ctx context.Context) error {
	_, err := r.tokens.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	return err
}

var _ domain.PairingTokenRepository = (*PairingTokenRepository)(nil)
