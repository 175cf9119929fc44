package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/placequest/placequest-api/internal/core/domain"
)

const collectionUsers = "users"

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

// userDocument stores the email twice: as entered and case-folded. Lookups
// and the unique index use the folded copy.
type userDocument struct {
	ID          string         `bson:"_id"`
	Name        string         `bson:"name"`
	Username    string         `bson:"username"`
	Email       string         `bson:"email"`
	EmailLower  string         `bson:"email_lower"`
	AvatarURL   string         `bson:"avatar,omitempty"`
	Preferences map[string]any `bson:"preferences,omitempty"`
	Active      bool           `bson:"is_active"`
	LastLoginAt *time.Time     `bson:"last_login_at,omitempty"`
	CreatedAt   time.Time      `bson:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at"`
}

func toUserDocument(u *domain.User) userDocument {
	return userDocument{
		ID:          u.ID,
		Name:        u.Name,
		Username:    u.Username,
		Email:       u.Email,
		EmailLower:  domain.NormalizeEmail(u.Email),
		AvatarURL:   u.AvatarURL,
		Preferences: u.Preferences,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (d *userDocument) toDomain() *domain.User {
	prefs, _ := plainValue(d.Preferences).(map[string]any)
	return &domain.User{
		ID:          d.ID,
		Name:        d.Name,
		Username:    d.Username,
		Email:       d.Email,
		AvatarURL:   d.AvatarURL,
		Preferences: prefs,
		Active:      d.Active,
		LastLoginAt: d.LastLoginAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// Create inserts a new user. A unique index violation maps to domain.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email_lower": domain.NormalizeEmail(email)})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

// Exists reports which of email and username already belong to a user.
func (r *UserRepository) Exists(ctx context.Context, email, username string) (bool, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	email = domain.NormalizeEmail(email)
	filter := bson.M{"$or": bson.A{
		bson.M{"email_lower": email},
		bson.M{"username": username},
	}}
	opts := options.Find().
		SetProjection(bson.M{"email_lower": 1, "username": 1}).
		SetLimit(2)

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return false, false, fmt.Errorf("find users: %w", err)
	}
	defer cur.Close(ctx)

	var emailTaken, usernameTaken bool
	for cur.Next(ctx) {
		var doc userDocument
		if err := cur.Decode(&doc); err != nil {
			return false, false, fmt.Errorf("decode user: %w", err)
		}
		emailTaken = emailTaken || doc.EmailLower == email
		usernameTaken = usernameTaken || doc.Username == username
	}
	if err := cur.Err(); err != nil {
		return false, false, fmt.Errorf("iterate users: %w", err)
	}
	return emailTaken, usernameTaken, nil
}

// Update overwrites the mutable profile fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	set := bson.M{
		"name":        user.Name,
		"avatar":      user.AvatarURL,
		"preferences": user.Preferences,
		"is_active":   user.Active,
		"updated_at":  user.UpdatedAt,
	}
	if user.LastLoginAt != nil {
		set["last_login_at"] = *user.LastLoginAt
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureIndexes creates the uniqueness constraints on the users collection.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email_lower", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// plainValue converts driver container types into plain maps and slices.
func plainValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = plainValue(item)
		}
		return out
	case primitive.M:
		return plainValue(map[string]any(t))
	case primitive.D:
		return plainValue(map[string]any(t.Map()))
	case primitive.A:
		return plainValue([]any(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}
