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

const collectionReferrals = "referrals"

// ReferralAdapter implements out.ReferralRepository using MongoDB.
type ReferralAdapter struct {
	collection *mongo.Collection
}

var _ out.ReferralRepository = (*ReferralAdapter)(nil)

func NewReferralAdapter(db *mongo.Database) *ReferralAdapter {
	return &ReferralAdapter{collection: db.Collection(collectionReferrals)}
}

func (a *ReferralAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}
	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

type referralDocument struct {
	ID          string    `bson:"id"`
	UserID      string    `bson:"user_id"`
	Title       string    `bson:"title"`
	Company     string    `bson:"company"`
	Description string    `bson:"description"`
	Status      string    `bson:"status"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toReferralDocument(r *domain.Referral) *referralDocument {
	return &referralDocument{
		ID:          r.ID.String(),
		UserID:      r.UserID.String(),
		Title:       r.Title,
		Company:     r.Company,
		Description: r.Description,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (d *referralDocument) toDomain() (*domain.Referral, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid referral id %q: %w", d.ID, err)
	}
	owner, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", d.UserID, err)
	}
	return &domain.Referral{
		ID:          id,
		UserID:      owner,
		Title:       d.Title,
		Company:     d.Company,
		Description: d.Description,
		Status:      domain.ReferralStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func (a *ReferralAdapter) Create(ctx context.Context, referral *domain.Referral) error {
	if _, err := a.collection.InsertOne(ctx, toReferralDocument(referral)); err != nil {
		return fmt.Errorf("failed to insert referral: %w", err)
	}
	return nil
}

func (a *ReferralAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.Referral, error) {
	var doc referralDocument
	if err := a.collection.FindOne(ctx, bson.M{"id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get referral: %w", err)
	}
	return doc.toDomain()
}

// Update is a single $set on one document, so it either fully applies or
// not at all. user_id is never part of the update.
func (a *ReferralAdapter) Update(ctx context.Context, referral *domain.Referral) error {
	update := bson.M{"$set": bson.M{
		"title":       referral.Title,
		"company":     referral.Company,
		"description": referral.Description,
		"status":      string(referral.Status),
		"updated_at":  referral.UpdatedAt,
	}}

	res, err := a.collection.UpdateOne(ctx, bson.M{"id": referral.ID.String()}, update)
	if err != nil {
		return fmt.Errorf("failed to update referral: %w", err)
	}
	if res.MatchedCount == 0 {
		return out.ErrNotFound
	}
	return nil
}

func (a *ReferralAdapter) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := a.collection.DeleteOne(ctx, bson.M{"id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete referral: %w", err)
	}
	if res.DeletedCount == 0 {
		return out.ErrNotFound
	}
	return nil
}

func (a *ReferralAdapter) ListAll(ctx context.Context, page *domain.Page) ([]*domain.Referral, error) {
	return a.list(ctx, bson.M{}, page)
}

func (a *ReferralAdapter) ListByOwner(ctx context.Context, ownerID uuid.UUID, page *domain.Page) ([]*domain.Referral, error) {
	return a.list(ctx, bson.M{"user_id": ownerID.String()}, page)
}

func (a *ReferralAdapter) list(ctx context.Context, filter bson.M, page *domain.Page) ([]*domain.Referral, error) {
	findOpts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "id", Value: -1},
	})
	if page != nil {
		if page.Offset > 0 {
			findOpts.SetSkip(int64(page.Offset))
		}
		if page.Limit > 0 {
			findOpts.SetLimit(int64(page.Limit))
		}
	}

	cursor, err := a.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer cursor.Close(ctx)

	referrals := make([]*domain.Referral, 0)
	for cursor.Next(ctx) {
		var doc referralDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode referral: %w", err)
		}
		r, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		referrals = append(referrals, r)
	}
	return referrals, cursor.Err()
}
