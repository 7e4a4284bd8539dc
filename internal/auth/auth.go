package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type ServiceAPI interface {
	Authenticate(dto LoginDTO) (AuthTokens, error)
	RefreshTokens(refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	GetUser(userID int64) (*User, error)
	HashPassword(password string) (string, error)
}

type RepositoryAPI interface {
	GetPasswordForEmail(email string) (passwordHash string, userID string, err error)
	GetUserByID(userID int64) (*User, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID string, email string) (token string, err error)
	GenerateRefreshToken(userID string, email string) (token string, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// User is the authenticated principal placed into the request context.
type User struct {
	ID     int64   `json:"id"`
	Email  string  `json:"email"`
	PixKey *string `json:"pix_key,omitempty"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserInactive       = errors.New("user is inactive")
)

type ctxKey string

const ContextUserKey ctxKey = "authUser"

func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(ContextUserKey).(*User)
	return user, ok
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
