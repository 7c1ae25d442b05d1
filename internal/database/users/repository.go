// Package users provides database operations for the user directory.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, token, err := repo.CreateUser("reader", "reader@example.com", passwordHash)
package users

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bibliotek/backend/internal/auth"
	"github.com/bibliotek/backend/internal/entities"
)

// ErrNotFound is returned when the requested user does not exist. It is
// distinct from "user exists but has no reputation record yet".
var ErrNotFound = errors.New("user not found")

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user with a generated API token. The plaintext
// token is returned exactly once; only its hash is stored.
func (r *Repository) CreateUser(username, email, passwordHash string) (*entities.User, string, error) {
	token, tokenHash, err := auth.GenerateAPIToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		TokenHash:    tokenHash,
	}

	if err := r.db.Create(user).Error; err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// GetByID retrieves a user by internal ID.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByPublicID retrieves a user by their public UUID.
func (r *Repository) GetByPublicID(publicID string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("public_id = ?", publicID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByTokenHash retrieves a user by their API token hash. Satisfies
// auth.UserResolver.
func (r *Repository) GetByTokenHash(hash string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("token_hash = ? AND token_hash != ''", hash).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureDefaultUser creates the single-user-mode account (id 0) when it
// does not exist. With authentication disabled every request runs as this
// user, so it must be present before the first award or status lookup.
// Idempotent.
func (r *Repository) EnsureDefaultUser() error {
	return r.db.Exec(
		`INSERT OR IGNORE INTO users (id, public_id, username, email, password_hash, token_hash, created_at, updated_at)
		 VALUES (0, ?, 'default', 'default@localhost', '', '', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		uuid.NewString()).Error
}

// Exists reports whether a user with the given internal ID exists.
func (r *Repository) Exists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Delete removes the user row itself. Owned rows (reputation record,
// reading log) are removed by the caller before this, mirroring the account
// deletion flow.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
