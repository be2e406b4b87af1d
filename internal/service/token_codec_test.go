package service

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(testSecret, testLogger())
	require.NoError(t, err)
	return codec
}

func TestNewTokenCodecRejectsShortSecret(t *testing.T) {
	_, err := NewTokenCodec("too-short", testLogger())
	require.Error(t, err)
}

func TestMintAndParseAccessToken(t *testing.T) {
	codec := newTestCodec(t)

	tokenString, err := codec.Mint(42, TokenTypeAccess, 30*time.Minute)
	require.NoError(t, err)

	claims, err := codec.Parse(tokenString)
	require.NoError(t, err)

	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	id, err := claims.SupplierID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestMintAccessTokensDifferWithinSameSecond(t *testing.T) {
	codec := newTestCodec(t)

	// iat and exp only resolve to whole seconds; the jti has to keep two
	// back-to-back tokens for the same supplier distinct.
	first, err := codec.Mint(42, TokenTypeAccess, 30*time.Minute)
	require.NoError(t, err)
	second, err := codec.Mint(42, TokenTypeAccess, 30*time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestMintRefreshTokenHasUniqueJTI(t *testing.T) {
	codec := newTestCodec(t)

	first, err := codec.Mint(42, TokenTypeRefresh, 7*24*time.Hour)
	require.NoError(t, err)
	second, err := codec.Mint(42, TokenTypeRefresh, 7*24*time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	firstClaims, err := codec.Parse(first)
	require.NoError(t, err)
	secondClaims, err := codec.Parse(second)
	require.NoError(t, err)

	assert.Equal(t, TokenTypeRefresh, firstClaims.Type)
	assert.NotEmpty(t, firstClaims.ID)
	assert.NotEqual(t, firstClaims.ID, secondClaims.ID)
}

func TestParseExpiredTokenReturnsClaims(t *testing.T) {
	codec := newTestCodec(t)

	tokenString, err := codec.Mint(42, TokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	claims, err := codec.Parse(tokenString)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.NotNil(t, claims, "expired tokens still expose their claims")
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.Type)
}

func TestParseEmptyToken(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Parse("")
	require.ErrorIs(t, err, ErrTokenMissing)
}

func TestParseGarbageToken(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Parse("not.a.token")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	codec := newTestCodec(t)

	other, err := NewTokenCodec("ffffffffffffffffffffffffffffffff", testLogger())
	require.NoError(t, err)

	tokenString, err := other.Mint(42, TokenTypeAccess, 30*time.Minute)
	require.NoError(t, err)

	_, err = codec.Parse(tokenString)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	codec := newTestCodec(t)

	tokenString, err := codec.Mint(42, TokenTypeAccess, 30*time.Minute)
	require.NoError(t, err)

	tampered := tokenString[:len(tokenString)-2] + "xx"
	_, err = codec.Parse(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
