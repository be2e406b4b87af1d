package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/supplierhub/supplierhub/internal/config"
	"github.com/supplierhub/supplierhub/internal/models"
)

// SupplierFinder resolves a token subject to a live supplier. A nil supplier
// with a nil error means the supplier does not exist.
type SupplierFinder interface {
	GetByID(ctx context.Context, id int64) (*models.Supplier, error)
}

// TokenService orchestrates the token lifecycle: issuance of access/refresh
// pairs, validation and atomic rotation on refresh, and revocation on logout.
// Only the sha256 of the live refresh token is persisted, keyed by supplier
// id, so issuing a new pair invalidates any previous one (single session per
// supplier).
type TokenService struct {
	codec         *TokenCodec
	store         *RefreshTokenStore
	suppliers     SupplierFinder
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	logger        *logrus.Logger
}

func NewTokenService(
	codec *TokenCodec,
	store *RefreshTokenStore,
	suppliers SupplierFinder,
	cfg *config.JWTConfig,
	logger *logrus.Logger,
) *TokenService {
	return &TokenService{
		codec:         codec,
		store:         store,
		suppliers:     suppliers,
		accessExpiry:  cfg.AccessExpiry,
		refreshExpiry: cfg.RefreshExpiry,
		logger:        logger,
	}
}

func hashToken(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}

// Issue mints a fresh access/refresh pair for the supplier and stores the
// refresh token's hash, overwriting any record from a previous login.
func (s *TokenService) Issue(ctx context.Context, supplier *models.Supplier) (*models.TokenPair, error) {
	accessToken, err := s.codec.Mint(supplier.ID, TokenTypeAccess, s.accessExpiry)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.codec.Mint(supplier.ID, TokenTypeRefresh, s.refreshExpiry)
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, supplier.ID, hashToken(refreshToken), s.refreshExpiry); err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.accessExpiry.Seconds()),
		RefreshExpiresIn: int64(s.refreshExpiry.Seconds()),
	}, nil
}

// Rotate validates the presented pair and, if every check passes, consumes
// the stored refresh record and issues a new pair. The access token may be
// expired (that is the point of the refresh flow) but must be well-formed,
// of type access, and agree with the refresh token on the subject. The
// refresh token gets no expiry leniency and must hash to the stored record.
//
// Every rejection collapses to ErrRotationRejected; only store outages
// surface separately, as ErrStoreUnavailable.
func (s *TokenService) Rotate(ctx context.Context, accessToken, refreshToken string) (*models.TokenPair, *models.Supplier, error) {
	accessClaims, err := s.codec.Parse(accessToken)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		s.logger.WithError(err).Debug("Rotation rejected: access token unparsable")
		return nil, nil, ErrRotationRejected
	}

	if accessClaims.Type != TokenTypeAccess {
		s.logger.Debug("Rotation rejected: access token has wrong type")
		return nil, nil, ErrRotationRejected
	}

	supplierID, err := accessClaims.SupplierID()
	if err != nil {
		s.logger.WithError(err).Debug("Rotation rejected: bad subject claim")
		return nil, nil, ErrRotationRejected
	}

	supplier, err := s.suppliers.GetByID(ctx, supplierID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to resolve supplier during rotation")
		return nil, nil, fmt.Errorf("failed to resolve supplier: %w", err)
	}
	if supplier == nil {
		s.logger.WithField("supplier_id", supplierID).Debug("Rotation rejected: supplier not found")
		return nil, nil, ErrRotationRejected
	}

	refreshClaims, err := s.codec.Parse(refreshToken)
	if err != nil {
		s.logger.WithError(err).Debug("Rotation rejected: refresh token invalid")
		return nil, nil, ErrRotationRejected
	}

	if refreshClaims.Type != TokenTypeRefresh {
		s.logger.Debug("Rotation rejected: refresh token has wrong type")
		return nil, nil, ErrRotationRejected
	}

	if refreshClaims.Subject != accessClaims.Subject {
		s.logger.Debug("Rotation rejected: subject mismatch between tokens")
		return nil, nil, ErrRotationRejected
	}

	// Compare-and-delete consumes the record in one step. A miss, a hash
	// mismatch, and a replay of an already-rotated token all land here.
	consumed, err := s.store.DeleteIfMatch(ctx, supplierID, hashToken(refreshToken))
	if err != nil {
		return nil, nil, err
	}
	if !consumed {
		s.logger.WithField("supplier_id", supplierID).Warn("Rotation rejected: refresh record missing or mismatched")
		return nil, nil, ErrRotationRejected
	}

	pair, err := s.Issue(ctx, supplier)
	if err != nil {
		return nil, nil, err
	}

	return pair, supplier, nil
}

// Revoke deletes the supplier's refresh record. Revoking a supplier without
// a live record is a no-op.
func (s *TokenService) Revoke(ctx context.Context, supplierID int64) error {
	return s.store.Delete(ctx, supplierID)
}

// RevokeAll clears every refresh record, forcing all suppliers to log in
// again. Meant for administrative invalidation such as a key rotation.
func (s *TokenService) RevokeAll(ctx context.Context) error {
	return s.store.Clear(ctx)
}
