package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
	"github.com/juggajay/RiskSure.AI-sub002/internal/procore"
)

type fakeConnStore struct {
	conn         *models.OAuthConnection
	findErr      error
	updateCalls  int
	updatedToken string
}

func (f *fakeConnStore) FindByCompany(ctx context.Context, companyID, provider string) (*models.OAuthConnection, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.conn == nil {
		return nil, nil
	}
	copied := *f.conn
	return &copied, nil
}

func (f *fakeConnStore) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	f.updateCalls++
	f.updatedToken = accessToken
	f.conn.AccessToken = accessToken
	f.conn.RefreshToken = refreshToken
	f.conn.ExpiresAt = expiresAt
	return nil
}

type fakeRefresher struct {
	resp  *TokenResponse
	err   error
	calls int
}

func (f *fakeRefresher) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func validConn() *models.OAuthConnection {
	return &models.OAuthConnection{
		ID:                "conn_1",
		CompanyID:         "company_001",
		Provider:          models.ProviderProcore,
		AccessToken:       "token-old",
		RefreshToken:      "refresh-old",
		ExternalCompanyID: "ext_co_1",
		ExpiresAt:         time.Now().Add(time.Hour),
	}
}

func TestConnectionNotConnected(t *testing.T) {
	c := NewTokenCoordinator(&fakeConnStore{}, &fakeRefresher{}, zap.NewNop())

	_, err := c.Connection(context.Background(), "company_001")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectionPendingCompanySelection(t *testing.T) {
	conn := validConn()
	conn.ExternalCompanyID = ""
	conn.PendingCompanySelection = true
	c := NewTokenCoordinator(&fakeConnStore{conn: conn}, &fakeRefresher{}, zap.NewNop())

	_, err := c.Connection(context.Background(), "company_001")
	assert.ErrorIs(t, err, ErrPendingCompanySelection)
}

func TestDoRetriesExactlyOnceOn401(t *testing.T) {
	store := &fakeConnStore{conn: validConn()}
	refresher := &fakeRefresher{resp: &TokenResponse{
		AccessToken:  "token-new",
		RefreshToken: "refresh-new",
		ExpiresIn:    3600,
	}}
	c := NewTokenCoordinator(store, refresher, zap.NewNop())

	conn, err := c.Connection(context.Background(), "company_001")
	require.NoError(t, err)

	var seen []string
	err = c.Do(context.Background(), conn, func(accessToken string) error {
		seen = append(seen, accessToken)
		if accessToken == "token-old" {
			return procore.ErrUnauthorized
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"token-old", "token-new"}, seen)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, 1, store.updateCalls)
	// The rotation is written back through the caller's connection.
	assert.Equal(t, "token-new", conn.AccessToken)
	assert.Equal(t, "refresh-new", conn.RefreshToken)
}

func TestDoPersistent401EscalatesAfterOneRetry(t *testing.T) {
	store := &fakeConnStore{conn: validConn()}
	refresher := &fakeRefresher{resp: &TokenResponse{AccessToken: "token-new", ExpiresIn: 3600}}
	c := NewTokenCoordinator(store, refresher, zap.NewNop())

	conn, err := c.Connection(context.Background(), "company_001")
	require.NoError(t, err)

	calls := 0
	err = c.Do(context.Background(), conn, func(accessToken string) error {
		calls++
		return procore.ErrUnauthorized
	})

	assert.ErrorIs(t, err, procore.ErrUnauthorized)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, refresher.calls)
}

func TestDoRefreshFailureLeavesTokensUntouched(t *testing.T) {
	store := &fakeConnStore{conn: validConn()}
	refresher := &fakeRefresher{err: errors.New("invalid_grant")}
	c := NewTokenCoordinator(store, refresher, zap.NewNop())

	conn, err := c.Connection(context.Background(), "company_001")
	require.NoError(t, err)

	err = c.Do(context.Background(), conn, func(accessToken string) error {
		return procore.ErrUnauthorized
	})

	assert.ErrorIs(t, err, ErrReauthorizationRequired)
	assert.Equal(t, 0, store.updateCalls)
	assert.Equal(t, "token-old", store.conn.AccessToken)
	assert.Equal(t, "refresh-old", store.conn.RefreshToken)
}

func TestDoNoRefreshTokenEscalatesImmediately(t *testing.T) {
	conn := validConn()
	conn.RefreshToken = ""
	store := &fakeConnStore{conn: conn}
	refresher := &fakeRefresher{}
	c := NewTokenCoordinator(store, refresher, zap.NewNop())

	loaded, err := c.Connection(context.Background(), "company_001")
	require.NoError(t, err)

	err = c.Do(context.Background(), loaded, func(accessToken string) error {
		return procore.ErrUnauthorized
	})

	assert.ErrorIs(t, err, ErrReauthorizationRequired)
	assert.Equal(t, 0, refresher.calls)
}

func TestDoReusesConcurrentlyRotatedToken(t *testing.T) {
	store := &fakeConnStore{conn: validConn()}
	refresher := &fakeRefresher{}
	c := NewTokenCoordinator(store, refresher, zap.NewNop())

	conn, err := c.Connection(context.Background(), "company_001")
	require.NoError(t, err)

	var seen []string
	err = c.Do(context.Background(), conn, func(accessToken string) error {
		seen = append(seen, accessToken)
		if accessToken == "token-old" {
			// Another worker rotated the pair while this call was in flight.
			store.conn.AccessToken = "token-rotated-elsewhere"
			return procore.ErrUnauthorized
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"token-old", "token-rotated-elsewhere"}, seen)
	// The stored pair was fresh, so no refresh round trip happened.
	assert.Equal(t, 0, refresher.calls)
	assert.Equal(t, 0, store.updateCalls)
}

func TestDoProactiveRefreshNearExpiry(t *testing.T) {
	conn := validConn()
	conn.ExpiresAt = time.Now().Add(time.Minute)
	store := &fakeConnStore{conn: conn}
	refresher := &fakeRefresher{resp: &TokenResponse{AccessToken: "token-new", ExpiresIn: 3600}}
	c := NewTokenCoordinator(store, refresher, zap.NewNop())

	loaded, err := c.Connection(context.Background(), "company_001")
	require.NoError(t, err)

	err = c.Do(context.Background(), loaded, func(accessToken string) error {
		assert.Equal(t, "token-new", accessToken)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, 1, store.updateCalls)
	// The provider kept the refresh token; the old one stays in place.
	assert.Equal(t, "refresh-old", loaded.RefreshToken)
}

func TestDoProactiveRefreshFailureContinuesWithCurrentToken(t *testing.T) {
	conn := validConn()
	conn.ExpiresAt = time.Now().Add(time.Minute)
	store := &fakeConnStore{conn: conn}
	refresher := &fakeRefresher{err: errors.New("temporarily unavailable")}
	c := NewTokenCoordinator(store, refresher, zap.NewNop())

	loaded, err := c.Connection(context.Background(), "company_001")
	require.NoError(t, err)

	err = c.Do(context.Background(), loaded, func(accessToken string) error {
		assert.Equal(t, "token-old", accessToken)
		return nil
	})

	require.NoError(t, err)
}
