package postgres

import (
	"time"

	apperrors "github.com/brpay/pix-gateway/internal"
	userDatamodel "github.com/brpay/pix-gateway/internal/core/datamodel/user"
	userpkg "github.com/brpay/pix-gateway/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) userpkg.RepositoryAPI {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByID(id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.First(&u, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) UpdatePixKey(id int64, pixKey string) error {
	return r.db.Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pix_key":    pixKey,
			"updated_at": time.Now(),
		}).Error
}
