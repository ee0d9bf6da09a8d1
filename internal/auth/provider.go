package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/streamshare/streamshare/internal/config"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/types"
)

// Claims identify the caller of a user-facing request
type Claims struct {
	UserID    string
	AccountID string
	IsAdmin   bool
}

// Actor converts the claims into the actor the services authorize against
func (c *Claims) Actor() types.Actor {
	return types.Actor{
		UserID:    c.UserID,
		AccountID: c.AccountID,
		IsAdmin:   c.IsAdmin,
	}
}

type Provider interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
	GenerateToken(claims Claims, ttl time.Duration) (string, error)
}

type jwtProvider struct {
	secret []byte
}

// NewProvider returns a provider for HS256 tokens signed with the configured secret
func NewProvider(cfg *config.Configuration) Provider {
	return &jwtProvider{secret: []byte(cfg.Auth.Secret)}
}

func (p *jwtProvider) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ierr.NewError("unexpected signing method").
				WithHint(fmt.Sprintf("unexpected signing method: %v", token.Header["alg"])).
				Mark(ierr.ErrPermissionDenied)
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Token parse error").
			Mark(ierr.ErrPermissionDenied)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid token claims").
			Mark(ierr.ErrPermissionDenied)
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Token missing user ID").
			Mark(ierr.ErrPermissionDenied)
	}

	// the platform identity is reserved for scheduled jobs
	if userID == types.SystemUserID {
		return nil, ierr.NewError("reserved user ID in token").
			WithHint("Invalid token claims").
			Mark(ierr.ErrPermissionDenied)
	}

	accountID, _ := claims["account_id"].(string)
	isAdmin, _ := claims["is_admin"].(bool)

	return &Claims{
		UserID:    userID,
		AccountID: accountID,
		IsAdmin:   isAdmin && accountID != "",
	}, nil
}

func (p *jwtProvider) GenerateToken(c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    c.UserID,
		"account_id": c.AccountID,
		"is_admin":   c.IsAdmin,
		"exp":        now.Add(ttl).Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to generate token").
			Mark(ierr.ErrSystem)
	}
	return signed, nil
}

// ValidateCronSecret compares the secret sent by the cron caller with the configured one
func ValidateCronSecret(cfg *config.Configuration, provided string) bool {
	if provided == "" || cfg.Auth.CronSecret == "" {
		return false
	}
	a := sha256.Sum256([]byte(provided))
	b := sha256.Sum256([]byte(cfg.Auth.CronSecret))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
