package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Phone        string       `json:"phone,omitempty"`
	Education    []Education  `json:"education"`
	Employment   []Employment `json:"employment"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
}

type Employment struct {
	Company    string  `json:"company"`
	Role       string  `json:"role"`
	Experience float64 `json:"experience"` // years
}

// UserSummary is the identity triple returned by register and login.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// OwnerView is the reduced user shape embedded in the public feed.
type OwnerView struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) OwnerView() OwnerView {
	return OwnerView{Name: u.Name, Email: u.Email}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail is applied before every store and lookup so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
