package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/dmehra2102/restaurant-order-system/internal/auth/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"

	issuer = "restaurant-service"
)

var ErrInvalidToken = fmt.Errorf("invalid token: %w", apperr.ErrUnauthorized)

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Kind  string `json:"kind"`
	gojwt.RegisteredClaims
}

type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

func (i *Issuer) IssueAccess(u domain.User) (string, error) {
	return i.sign(u, kindAccess, i.accessTTL)
}

func (i *Issuer) IssueRefresh(u domain.User) (string, error) {
	return i.sign(u, kindRefresh, i.refreshTTL)
}

func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// VerifyAccess returns the identity carried by a valid access token.
func (i *Issuer) VerifyAccess(token string) (domain.Identity, error) {
	return i.verify(token, kindAccess)
}

func (i *Issuer) VerifyRefresh(token string) (domain.Identity, error) {
	return i.verify(token, kindRefresh)
}

func (i *Issuer) sign(u domain.User, kind string, ttl time.Duration) (string, error) {
	now := i.now()
	c := claims{
		Email: u.Email,
		Role:  string(u.Role),
		Kind:  kind,
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (i *Issuer) verify(token, kind string) (domain.Identity, error) {
	var c claims
	_, err := gojwt.ParseWithClaims(token, &c, func(t *gojwt.Token) (any, error) {
		return i.secret, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(issuer),
		gojwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return domain.Identity{}, fmt.Errorf("token expired: %w", apperr.ErrUnauthorized)
		}
		return domain.Identity{}, ErrInvalidToken
	}
	if c.Kind != kind {
		return domain.Identity{}, ErrInvalidToken
	}
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return domain.Identity{}, ErrInvalidToken
	}
	return domain.Identity{UserID: c.Subject, Email: c.Email, Role: role}, nil
}
