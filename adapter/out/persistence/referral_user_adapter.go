package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"referral_server/core/domain"
	"referral_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// UserAdapter implements out.UserRepository using PostgreSQL.
type UserAdapter struct {
	db *sqlx.DB
}

var _ out.UserRepository = (*UserAdapter)(nil)

func NewUserAdapter(db *sqlx.DB) *UserAdapter {
	return &UserAdapter{db: db}
}

type userRow struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Phone        string    `db:"phone"`
	Education    []byte    `db:"education"`
	Employment   []byte    `db:"employment"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const userColumns = `id, name, email, password_hash, phone, education, employment, created_at, updated_at`

func (r *userRow) toDomain() (*domain.User, error) {
	u := &domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Phone:        r.Phone,
		Education:    []domain.Education{},
		Employment:   []domain.Employment{},
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.Education) > 0 {
		if err := json.Unmarshal(r.Education, &u.Education); err != nil {
			return nil, fmt.Errorf("decode education: %w", err)
		}
	}
	if len(r.Employment) > 0 {
		if err := json.Unmarshal(r.Employment, &u.Employment); err != nil {
			return nil, fmt.Errorf("decode employment: %w", err)
		}
	}
	return u, nil
}

func (a *UserAdapter) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return a.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, domain.NormalizeEmail(email))
}

func (a *UserAdapter) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return a.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (a *UserAdapter) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var row userRow
	if err := a.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return row.toDomain()
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

	var rows []userRow
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[])`
	if err := a.db.SelectContext(ctx, &rows, query, pq.Array(keys)); err != nil {
		return nil, fmt.Errorf("query users by ids: %w", err)
	}

	for i := range rows {
		u, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		result[u.ID] = u
	}
	return result, nil
}

func (a *UserAdapter) Create(ctx context.Context, user *domain.User) error {
	education, employment, err := encodeProfile(user)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = a.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		domain.NormalizeEmail(user.Email),
		user.PasswordHash,
		user.Phone,
		education,
		employment,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return out.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (a *UserAdapter) Save(ctx context.Context, user *domain.User) error {
	education, employment, err := encodeProfile(user)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET name = $2, phone = $3, education = $4, employment = $5, updated_at = $6
		WHERE id = $1`

	res, err := a.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Phone, education, employment, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(res)
}

func encodeProfile(user *domain.User) (string, string, error) {
	education := user.Education
	if education == nil {
		education = []domain.Education{}
	}
	employment := user.Employment
	if employment == nil {
		employment = []domain.Employment{}
	}

	edu, err := json.Marshal(education)
	if err != nil {
		return "", "", fmt.Errorf("encode education: %w", err)
	}
	emp, err := json.Marshal(employment)
	if err != nil {
		return "", "", fmt.Errorf("encode employment: %w", err)
	}
	return string(edu), string(emp), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return out.ErrNotFound
	}
	return nil
}
