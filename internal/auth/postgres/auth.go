package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/brpay/pix-gateway/internal/auth"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.RepositoryAPI {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetPasswordForEmail(email string) (string, string, error) {
	var passwordHash string
	var userID string
	query := `SELECT id, password_hash FROM users WHERE email = ? AND is_active = true`

	row := r.db.Raw(query, email).Row()
	if err := row.Scan(&userID, &passwordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", fmt.Errorf("user not found")
		}
		return "", "", err
	}
	return passwordHash, userID, nil
}

func (r *Repository) GetUserByID(userID int64) (*auth.User, error) {
	var user auth.User
	query := `SELECT id, email, pix_key FROM users WHERE id = ? AND is_active = true`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&user.ID, &user.Email, &user.PixKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}
	return &user, nil
}
