package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"referral_server/core/domain"
	"referral_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ReferralAdapter implements out.ReferralRepository using PostgreSQL.
type ReferralAdapter struct {
	db *sqlx.DB
}

var _ out.ReferralRepository = (*ReferralAdapter)(nil)

func NewReferralAdapter(db *sqlx.DB) *ReferralAdapter {
	return &ReferralAdapter{db: db}
}

type referralRow struct {
	ID          uuid.UUID `db:"id"`
	UserID      uuid.UUID `db:"user_id"`
	Title       string    `db:"title"`
	Company     string    `db:"company"`
	Description string    `db:"description"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

const referralColumns = `id, user_id, title, company, description, status, created_at, updated_at`

func (r *referralRow) toDomain() *domain.Referral {
	return &domain.Referral{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Company:     r.Company,
		Description: r.Description,
		Status:      domain.ReferralStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (a *ReferralAdapter) Create(ctx context.Context, referral *domain.Referral) error {
	query := `
		INSERT INTO referrals (` + referralColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := a.db.ExecContext(ctx, query,
		referral.ID,
		referral.UserID,
		referral.Title,
		referral.Company,
		referral.Description,
		string(referral.Status),
		referral.CreatedAt,
		referral.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert referral: %w", err)
	}
	return nil
}

func (a *ReferralAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.Referral, error) {
	var row referralRow
	err := a.db.GetContext(ctx, &row, `SELECT `+referralColumns+` FROM referrals WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query referral: %w", err)
	}
	return row.toDomain(), nil
}

// Update never touches user_id.
func (a *ReferralAdapter) Update(ctx context.Context, referral *domain.Referral) error {
	query := `
		UPDATE referrals
		SET title = $2, company = $3, description = $4, status = $5, updated_at = $6
		WHERE id = $1`

	res, err := a.db.ExecContext(ctx, query,
		referral.ID,
		referral.Title,
		referral.Company,
		referral.Description,
		string(referral.Status),
		referral.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update referral: %w", err)
	}
	return requireAffected(res)
}

func (a *ReferralAdapter) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM referrals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete referral: %w", err)
	}
	return requireAffected(res)
}

func (a *ReferralAdapter) ListAll(ctx context.Context, page *domain.Page) ([]*domain.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals ORDER BY created_at DESC, id DESC`
	return a.list(ctx, query, page)
}

func (a *ReferralAdapter) ListByOwner(ctx context.Context, ownerID uuid.UUID, page *domain.Page) ([]*domain.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	return a.list(ctx, query, page, ownerID)
}

func (a *ReferralAdapter) list(ctx context.Context, query string, page *domain.Page, args ...any) ([]*domain.Referral, error) {
	if page != nil {
		n := len(args)
		query += fmt.Sprintf(" OFFSET $%d", n+1)
		args = append(args, page.Offset)
		if page.Limit > 0 {
			query += fmt.Sprintf(" LIMIT $%d", n+2)
			args = append(args, page.Limit)
		}
	}

	var rows []referralRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}

	result := make([]*domain.Referral, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toDomain())
	}
	return result, nil
}
