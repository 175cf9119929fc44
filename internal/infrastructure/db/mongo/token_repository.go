package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/placequest/placequest-api/internal/core/domain"
)

const collectionTokens = "personal_access_tokens"

// TokenRepository stores session tokens. The unique index on user_id holds
// the single-session slot: a second row for a user cannot be inserted until
// the first is deleted.
type TokenRepository struct {
	col *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{col: db.Collection(collectionTokens)}
}

type tokenDocument struct {
	ID         string     `bson:"_id"`
	UserID     string     `bson:"user_id"`
	Name       string     `bson:"name"`
	Digest     string     `bson:"token"`
	Abilities  []string   `bson:"abilities"`
	CreatedAt  time.Time  `bson:"created_at"`
	LastUsedAt time.Time  `bson:"last_used_at"`
	ExpiresAt  *time.Time `bson:"expires_at,omitempty"`
}

func (d *tokenDocument) toDomain() *domain.AccessToken {
	return &domain.AccessToken{
		ID:         d.ID,
		UserID:     d.UserID,
		Name:       d.Name,
		Digest:     d.Digest,
		Abilities:  d.Abilities,
		CreatedAt:  d.CreatedAt,
		LastUsedAt: d.LastUsedAt,
		ExpiresAt:  d.ExpiresAt,
	}
}

// Create inserts a token row. A unique index violation maps to domain.ErrDuplicateToken.
func (r *TokenRepository) Create(ctx context.Context, t *domain.AccessToken) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	doc := tokenDocument{
		ID:         t.ID,
		UserID:     t.UserID,
		Name:       t.Name,
		Digest:     t.Digest,
		Abilities:  t.Abilities,
		CreatedAt:  t.CreatedAt,
		LastUsedAt: t.LastUsedAt,
		ExpiresAt:  t.ExpiresAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateToken
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *TokenRepository) FindByDigest(ctx context.Context, digest string) (*domain.AccessToken, error) {
	return r.findOne(ctx, bson.M{"token": digest})
}

func (r *TokenRepository) FindByID(ctx context.Context, id string) (*domain.AccessToken, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByUser returns the token row held by userID, live or not.
func (r *TokenRepository) FindByUser(ctx context.Context, userID string) (*domain.AccessToken, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *TokenRepository) findOne(ctx context.Context, filter bson.M) (*domain.AccessToken, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc tokenDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return doc.toDomain(), nil
}

// Touch stamps last_used_at. A missing row is ignored.
func (r *TokenRepository) Touch(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_used_at": at}}); err != nil {
		return fmt.Errorf("touch token: %w", err)
	}
	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// EnsureIndexes creates the token lookup index and the per-user slot index.
func (r *TokenRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
