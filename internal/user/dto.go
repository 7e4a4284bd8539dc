package user

import (
	"regexp"
	"strings"

	errors "github.com/brpay/pix-gateway/internal"
)

// UpdatePixKeyDTO carries the PIX key a user registers as their settlement
// destination. Keys are either an email, a phone, a CPF/CNPJ digit string, or
// a random EVP key (UUID shape).
type UpdatePixKeyDTO struct {
	PixKey string `json:"pix_key"`
}

var (
	pixEmailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	pixPhonePattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	pixDigitPattern = regexp.MustCompile(`^[0-9]{11}$|^[0-9]{14}$`)
	pixEVPPattern   = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

func (d *UpdatePixKeyDTO) Validate() error {
	key := strings.TrimSpace(d.PixKey)
	if key == "" {
		return errors.NewValidationFieldError("pix_key", "pix_key is required", errors.ErrCodeValidationFailed)
	}

	if pixEmailPattern.MatchString(key) ||
		pixPhonePattern.MatchString(key) ||
		pixDigitPattern.MatchString(key) ||
		pixEVPPattern.MatchString(strings.ToLower(key)) {
		return nil
	}

	return errors.NewValidationFieldError("pix_key", "pix_key must be an email, phone, CPF/CNPJ or EVP key", errors.ErrCodeInvalidPixKey)
}
