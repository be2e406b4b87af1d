package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplierhub/supplierhub/internal/config"
	"github.com/supplierhub/supplierhub/internal/models"
)

type fakeSupplierFinder struct {
	suppliers map[int64]*models.Supplier
}

func (f *fakeSupplierFinder) GetByID(_ context.Context, id int64) (*models.Supplier, error) {
	return f.suppliers[id], nil
}

func newTestTokenService(t *testing.T, suppliers ...*models.Supplier) (*TokenService, *RefreshTokenStore) {
	t.Helper()

	codec := newTestCodec(t)
	store, _ := newTestStore(t)

	finder := &fakeSupplierFinder{suppliers: make(map[int64]*models.Supplier)}
	for _, s := range suppliers {
		finder.suppliers[s.ID] = s
	}

	cfg := &config.JWTConfig{
		SecretKey:     testSecret,
		AccessExpiry:  30 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
	}

	return NewTokenService(codec, store, finder, cfg, testLogger()), store
}

func supplier42() *models.Supplier {
	return &models.Supplier{ID: 42, Name: "Acme Metals", Email: "acme@example.com"}
}

func TestIssueStoresRefreshHash(t *testing.T) {
	svc, store := newTestTokenService(t, supplier42())
	ctx := context.Background()

	pair, err := svc.Issue(ctx, supplier42())
	require.NoError(t, err)

	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(1800), pair.ExpiresIn)
	assert.Equal(t, int64(604800), pair.RefreshExpiresIn)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	hash, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, hashToken(pair.RefreshToken), hash)
}

func TestIssueOverwritesPreviousRecord(t *testing.T) {
	svc, store := newTestTokenService(t, supplier42())
	ctx := context.Background()

	first, err := svc.Issue(ctx, supplier42())
	require.NoError(t, err)
	second, err := svc.Issue(ctx, supplier42())
	require.NoError(t, err)

	hash, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, hashToken(second.RefreshToken), hash)

	// The first pair's refresh token is no longer rotatable.
	_, _, err = svc.Rotate(ctx, first.AccessToken, first.RefreshToken)
	require.ErrorIs(t, err, ErrRotationRejected)
}

func TestRotateLifecycle(t *testing.T) {
	svc, _ := newTestTokenService(t, supplier42())
	ctx := context.Background()

	pair1, err := svc.Issue(ctx, supplier42())
	require.NoError(t, err)

	pair2, supplier, err := svc.Rotate(ctx, pair1.AccessToken, pair1.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, supplier)
	assert.Equal(t, int64(42), supplier.ID)
	assert.NotEqual(t, pair1.AccessToken, pair2.AccessToken)
	assert.NotEqual(t, pair1.RefreshToken, pair2.RefreshToken)

	// Replaying the consumed pair must fail.
	_, _, err = svc.Rotate(ctx, pair1.AccessToken, pair1.RefreshToken)
	require.ErrorIs(t, err, ErrRotationRejected)

	// The new pair rotates exactly once.
	_, _, err = svc.Rotate(ctx, pair2.AccessToken, pair2.RefreshToken)
	require.NoError(t, err)
}

func TestRotateAcceptsExpiredAccessToken(t *testing.T) {
	svc, _ := newTestTokenService(t, supplier42())
	ctx := context.Background()

	pair, err := svc.Issue(ctx, supplier42())
	require.NoError(t, err)

	expiredAccess, err := svc.codec.Mint(42, TokenTypeAccess, -time.Second)
	require.NoError(t, err)

	_, _, err = svc.Rotate(ctx, expiredAccess, pair.RefreshToken)
	require.NoError(t, err, "expired access tokens are tolerated during rotation")
}

func TestRotateRejectsExpiredRefreshToken(t *testing.T) {
	svc, store := newTestTokenService(t, supplier42())
	ctx := context.Background()

	access, err := svc.codec.Mint(42, TokenTypeAccess, 30*time.Minute)
	require.NoError(t, err)
	expiredRefresh, err := svc.codec.Mint(42, TokenTypeRefresh, -time.Second)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, 42, hashToken(expiredRefresh), time.Hour))

	_, _, err = svc.Rotate(ctx, access, expiredRefresh)
	require.ErrorIs(t, err, ErrRotationRejected, "refresh tokens get no expiry leniency")
}

func TestRotateRejectsGarbageAccessToken(t *testing.T) {
	svc, _ := newTestTokenService(t, supplier42())
	ctx := context.Background()

	pair, err := svc.Issue(ctx, supplier42())
	require.NoError(t, err)

	_, _, err = svc.Rotate(ctx, "not.a.token", pair.RefreshToken)
	require.ErrorIs(t, err, ErrRotationRejected)
}

func TestRotateRejectsSwappedTokenTypes(t *testing.T) {
	svc, _ := newTestTokenService(t, supplier42())
	ctx := context.Background()

	pair, err := svc.Issue(ctx, supplier42())
	require.NoError(t, err)

	_, _, err = svc.Rotate(ctx, pair.RefreshToken, pair.RefreshToken)
	require.ErrorIs(t, err, ErrRotationRejected)

	_, _, err = svc.Rotate(ctx, pair.AccessToken, pair.AccessToken)
	require.ErrorIs(t, err, ErrRotationRejected)
}

func TestRotateRejectsCrossSubjectTokens(t *testing.T) {
	supplierA := supplier42()
	supplierB := &models.Supplier{ID: 7, Name: "Borealis Foods", Email: "borealis@example.com"}
	svc, _ := newTestTokenService(t, supplierA, supplierB)
	ctx := context.Background()

	pairA, err := svc.Issue(ctx, supplierA)
	require.NoError(t, err)
	pairB, err := svc.Issue(ctx, supplierB)
	require.NoError(t, err)

	_, _, err = svc.Rotate(ctx, pairA.AccessToken, pairB.RefreshToken)
	require.ErrorIs(t, err, ErrRotationRejected)
}

func TestRotateRejectsUnknownSupplier(t *testing.T) {
	svc, store := newTestTokenService(t)
	ctx := context.Background()

	access, err := svc.codec.Mint(99, TokenTypeAccess, 30*time.Minute)
	require.NoError(t, err)
	refresh, err := svc.codec.Mint(99, TokenTypeRefresh, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, 99, hashToken(refresh), time.Hour))

	_, _, err = svc.Rotate(ctx, access, refresh)
	require.ErrorIs(t, err, ErrRotationRejected)
}

func TestRevokeIsIdempotent(t *testing.T) {
	svc, _ := newTestTokenService(t, supplier42())
	ctx := context.Background()

	pair, err := svc.Issue(ctx, supplier42())
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, 42))
	require.NoError(t, svc.Revoke(ctx, 42), "revoking twice is a no-op")

	_, _, err = svc.Rotate(ctx, pair.AccessToken, pair.RefreshToken)
	require.ErrorIs(t, err, ErrRotationRejected)
}

func TestRevokeAllClearsEveryRecord(t *testing.T) {
	supplierA := supplier42()
	supplierB := &models.Supplier{ID: 7, Name: "Borealis Foods", Email: "borealis@example.com"}
	svc, _ := newTestTokenService(t, supplierA, supplierB)
	ctx := context.Background()

	pairA, err := svc.Issue(ctx, supplierA)
	require.NoError(t, err)
	pairB, err := svc.Issue(ctx, supplierB)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx))

	_, _, err = svc.Rotate(ctx, pairA.AccessToken, pairA.RefreshToken)
	require.ErrorIs(t, err, ErrRotationRejected)
	_, _, err = svc.Rotate(ctx, pairB.AccessToken, pairB.RefreshToken)
	require.ErrorIs(t, err, ErrRotationRejected)
}
