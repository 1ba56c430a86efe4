package jwt

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const TokenTypeAccess = "access"

var ErrInvalidExpiry = errors.New("invalid token expiry")

// Service issues and verifies operator bearer tokens.
type Service interface {
	GenerateAccessToken(subject string, isAdmin bool) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiry time.Duration
	tokenAuth         *jwtauth.JWTAuth
	now               func() time.Time
}

func NewJWTService(secretKey string, accessTokenExpiry time.Duration) Service {
	return &JWTService{
		accessTokenExpiry: accessTokenExpiry,
		tokenAuth:         jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:               time.Now,
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) GenerateAccessToken(subject string, isAdmin bool) (string, int64, error) {
	if j.accessTokenExpiry <= 0 {
		return "", 0, ErrInvalidExpiry
	}
	now := j.now()
	expiresAt := now.Add(j.accessTokenExpiry).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]any{
		"sub":      subject,
		"is_admin": isAdmin,
		"type":     TokenTypeAccess,
		"iat":      now.Unix(),
		"exp":      expiresAt,
	})
	return tokenString, expiresAt, err
}
