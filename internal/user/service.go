package user

import (
	"log/slog"

	errors "github.com/brpay/pix-gateway/internal"
	userDatamodel "github.com/brpay/pix-gateway/internal/core/datamodel/user"
)

type RepositoryAPI interface {
	GetByID(id int64) (*userDatamodel.User, error)
	UpdatePixKey(id int64, pixKey string) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetByID(id int64) (*User, error) {
	record, err := s.repo.GetByID(id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, errors.NewInternalError("failed to load user", err)
	}
	return FromDataModel(record), nil
}

func (s *Service) UpdatePixKey(id int64, dto *UpdatePixKeyDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("pix key validation failed", "error", err, "user_id", id)
		return nil, err
	}

	if err := s.repo.UpdatePixKey(id, dto.PixKey); err != nil {
		s.logger.Error("failed to update pix key", "error", err, "user_id", id)
		return nil, errors.NewInternalError("failed to update pix key", err)
	}

	s.logger.Info("pix key updated", "user_id", id)
	return s.GetByID(id)
}
