package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/journal-submission-api/internal/lifecycle"
	"github.com/journal-submission-api/internal/models"
)

// ErrInvalidToken is returned for malformed, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid token")

// TokenService signs and verifies HS256 access tokens.
type TokenService struct {
	Secret   []byte
	Issuer   string
	Duration time.Duration

	now func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{Secret: []byte(secret), Issuer: issuer, Duration: ttl, now: time.Now}
}

// Claims carries the identity and role of the token holder.
type Claims struct {
	UserID   int64       `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts the claims into a lifecycle actor.
func (c *Claims) Actor() lifecycle.Actor {
	if c == nil {
		return lifecycle.Actor{}
	}
	return lifecycle.Actor{UserID: c.UserID, Role: c.Role}
}

func (ts *TokenService) clock() time.Time {
	if ts.now == nil {
		return time.Now()
	}
	return ts.now()
}

// Sign issues a token for u.
func (ts *TokenService) Sign(u *models.User) (string, time.Time, error) {
	now := ts.clock()
	exp := now.Add(ts.Duration)

	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp, nil
}

// Parse verifies tokenString and returns its claims.
func (ts *TokenService) Parse(tokenString string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.Secret, nil
	}, jwt.WithIssuer(ts.Issuer), jwt.WithTimeFunc(ts.clock))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.UserID == 0 || !models.ValidRoles[claims.Role] {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
