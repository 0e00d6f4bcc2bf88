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

// UserOAuthRepository implements domain.UserOAuthRepository using MongoDB.
type UserOAuthRepository struct {
	links *mongo.Collection
}

// NewUserOAuthRepository creates the repository and ensures its indexes.
func NewUserOAuthRepository(ctx context.Context, db *mongo.Database) (domain.UserOAuthRepository, error) {
	repo := &UserOAuthRepository{
		links: db.Collection(OAuthLinksCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			// One external account can only ever be linked once.
			Keys: bson.D{
				{Key: "provider_name", Value: 1},
				{Key: "provider_user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index(),
		},
	}
	if _, err := repo.links.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for user_oauth_links collection (might already exist)")
	}

	return repo, nil
}

// Create inserts a new provider link.
func (r *UserOAuthRepository) Create(ctx context.Context, link *domain.UserOAuthLink) error {
	if link.ID == "" {
		link.ID = NewObjectID()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}

	_, err := r.links.InsertOne(ctx, link)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("this external account is already linked")
		}
		log.Error().Err(err).Str("provider", link.ProviderName).Msg("Error creating oauth link in MongoDB")
		return err
	}
	return nil
}

// GetByProviderKey looks a link up by the external provider identity.
func (r *UserOAuthRepository) GetByProviderKey(ctx context.Context, providerName, providerUserID string) (*domain.UserOAuthLink, error) {
	filter := bson.M{
		"provider_name":    providerName,
		"provider_user_id": providerUserID,
	}
	var link domain.UserOAuthLink
	err := r.links.FindOne(ctx, filter).Decode(&link)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOAuthLinkNotFound
		}
		log.Error().Err(err).Str("provider", providerName).Msg("Error getting oauth link from MongoDB")
		return nil, err
	}
	return &link, nil
}

var _ domain.UserOAuthRepository = (*UserOAuthRepository)(nil)
