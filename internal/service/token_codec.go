package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenCodec mints and parses signed HS256 tokens. It knows nothing about
// the refresh record store; type enforcement is left to callers so the
// lifecycle manager can read claims out of an expired access token during
// rotation.
type TokenCodec struct {
	secretKey []byte
	logger    *logrus.Logger
}

func NewTokenCodec(secretKey string, logger *logrus.Logger) (*TokenCodec, error) {
	key := []byte(secretKey)
	if len(key) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 bytes")
	}

	return &TokenCodec{
		secretKey: key,
		logger:    logger,
	}, nil
}

type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// SupplierID returns the subject claim as a supplier id.
func (c *Claims) SupplierID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim %q: %w", c.Subject, err)
	}
	return id, nil
}

// Mint produces a signed token for the given supplier. Every token gets a
// unique jti; iat and exp only have second resolution, so without it two
// tokens minted in the same second would be byte-identical.
func (c *TokenCodec) Mint(supplierID int64, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(supplierID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secretKey)
	if err != nil {
		c.logger.WithError(err).Error("Failed to sign token")
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// Parse verifies signature and structure and classifies failures into
// ErrTokenMissing, ErrTokenExpired and ErrTokenInvalid. On ErrTokenExpired
// the decoded claims are returned alongside the error: the signature was
// valid and only the expiry check failed, which the rotation flow relies on.
func (c *TokenCodec) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			if claims, ok := token.Claims.(*Claims); ok {
				return claims, ErrTokenExpired
			}
		}
		c.logger.WithError(err).Debug("Token parse failed")
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
