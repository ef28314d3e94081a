package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"referral_server/core/domain"
	"referral_server/core/port/out"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionUsers = "users"

// UserAdapter implements out.UserRepository using MongoDB.
type UserAdapter struct {
	collection *mongo.Collection
}

var _ out.UserRepository = (*UserAdapter)(nil)

func NewUserAdapter(db *mongo.Database) *UserAdapter {
	return &UserAdapter{collection: db.Collection(collectionUsers)}
}

func (a *UserAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_unique"),
		},
	}
	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

type educationDocument struct {
	Degree      string `bson:"degree"`
	Institution string `bson:"institution"`
}

type employmentDocument struct {
	Company    string  `bson:"company"`
	Role       string  `bson:"role"`
	Experience float64 `bson:"experience"`
}

type userDocument struct {
	ID           string               `bson:"id"`
	Name         string               `bson:"name"`
	Email        string               `bson:"email"`
	PasswordHash string               `bson:"password_hash"`
	Phone        string               `bson:"phone,omitempty"`
	Education    []educationDocument  `bson:"education"`
	Employment   []employmentDocument `bson:"employment"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func toUserDocument(u *domain.User) *userDocument {
	doc := &userDocument{
		ID:           u.ID.String(),
		Name:         u.Name,
		Email:        domain.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Phone:        u.Phone,
		Education:    make([]educationDocument, 0, len(u.Education)),
		Employment:   make([]employmentDocument, 0, len(u.Employment)),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	for _, e := range u.Education {
		doc.Education = append(doc.Education, educationDocument(e))
	}
	for _, e := range u.Employment {
		doc.Employment = append(doc.Employment, employmentDocument(e))
	}
	return doc
}

func (d *userDocument) toDomain() (*domain.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.ID, err)
	}
	u := &domain.User{
		ID:           id,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Phone:        d.Phone,
		Education:    make([]domain.Education, 0, len(d.Education)),
		Employment:   make([]domain.Employment, 0, len(d.Employment)),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	for _, e := range d.Education {
		u.Education = append(u.Education, domain.Education(e))
	}
	for _, e := range d.Employment {
		u.Employment = append(u.Employment, domain.Employment(e))
	}
	return u, nil
}

func (a *UserAdapter) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return a.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (a *UserAdapter) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return a.findOne(ctx, bson.M{"id": id.String()})
}

func (a *UserAdapter) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := a.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toDomain()
}

func (a *UserAdapter) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.User, error) {
	result := make(map[uuid.UUID]*domain.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	cursor, err := a.collection.Find(ctx, bson.M{"id": bson.M{"$in": keys}})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		u, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		result[u.ID] = u
	}
	return result, cursor.Err()
}

func (a *UserAdapter) Create(ctx context.Context, user *domain.User) error {
	if _, err := a.collection.InsertOne(ctx, toUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return out.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (a *UserAdapter) Save(ctx context.Context, user *domain.User) error {
	doc := toUserDocument(user)
	update := bson.M{"$set": bson.M{
		"name":       doc.Name,
		"phone":      doc.Phone,
		"education":  doc.Education,
		"employment": doc.Employment,
		"updated_at": doc.UpdatedAt,
	}}

	res, err := a.collection.UpdateOne(ctx, bson.M{"id": doc.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return out.ErrNotFound
	}
	return nil
}
