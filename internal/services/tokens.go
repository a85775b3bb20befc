package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
	"github.com/juggajay/RiskSure.AI-sub002/internal/procore"
)

type connectionStore interface {
	FindByCompany(ctx context.Context, companyID, provider string) (*models.OAuthConnection, error)
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
}

type tokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// TokenCoordinator wraps every external API call. It keeps the access
// token alive across a long batch: proactive refresh near expiry, and a
// single refresh-and-retry on 401. Refresh failure escalates to
// ErrReauthorizationRequired without touching the stored pair.
type TokenCoordinator struct {
	conns connectionStore
	oauth tokenRefresher
	log   *zap.Logger
}

func NewTokenCoordinator(conns connectionStore, oauth tokenRefresher, log *zap.Logger) *TokenCoordinator {
	return &TokenCoordinator{conns: conns, oauth: oauth, log: log}
}

// Connection loads the company's connection, surfacing the not-connected
// and pending-selection conditions as typed errors.
func (c *TokenCoordinator) Connection(ctx context.Context, companyID string) (*models.OAuthConnection, error) {
	conn, err := c.conns.FindByCompany(ctx, companyID, models.ProviderProcore)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	if conn == nil {
		return nil, ErrNotConnected
	}
	if conn.PendingCompanySelection || conn.ExternalCompanyID == "" {
		return nil, ErrPendingCompanySelection
	}
	return conn, nil
}

// Do runs call with a valid access token. On 401 the stored connection is
// re-read first — a concurrent caller may already have rotated the pair —
// and the call is retried exactly once. Rotations observed along the way
// are written back through conn so the rest of the batch reuses them.
func (c *TokenCoordinator) Do(ctx context.Context, conn *models.OAuthConnection, call func(accessToken string) error) error {
	if conn.ShouldRefresh() && conn.RefreshToken != "" {
		refreshed, err := c.rotate(ctx, conn)
		if err != nil {
			// The current token may still be valid; let the call decide.
			c.log.Warn("proactive token refresh failed",
				zap.String("company_id", conn.CompanyID),
				zap.Error(err))
		} else {
			*conn = *refreshed
		}
	}

	err := call(conn.AccessToken)
	if !errors.Is(err, procore.ErrUnauthorized) {
		return err
	}

	stored, ferr := c.conns.FindByCompany(ctx, conn.CompanyID, conn.Provider)
	if ferr != nil {
		return fmt.Errorf("failed to reload connection after 401: %w", ferr)
	}
	if stored != nil && stored.AccessToken != conn.AccessToken {
		// Someone else rotated already; use the fresh pair.
		*conn = *stored
	} else {
		refreshed, rerr := c.rotate(ctx, conn)
		if rerr != nil {
			return rerr
		}
		*conn = *refreshed
	}

	return call(conn.AccessToken)
}

// rotate exchanges the refresh token and persists the new pair exactly
// once, keyed by connection id.
func (c *TokenCoordinator) rotate(ctx context.Context, conn *models.OAuthConnection) (*models.OAuthConnection, error) {
	if conn.RefreshToken == "" {
		return nil, ErrReauthorizationRequired
	}

	resp, err := c.oauth.RefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReauthorizationRequired, err)
	}

	refreshToken := conn.RefreshToken
	if resp.RefreshToken != "" {
		refreshToken = resp.RefreshToken
	}
	expiresAt := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)

	if err := c.conns.UpdateTokens(ctx, conn.ID, resp.AccessToken, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to persist rotated tokens: %w", err)
	}

	c.log.Info("access token rotated", zap.String("company_id", conn.CompanyID))

	rotated := *conn
	rotated.AccessToken = resp.AccessToken
	rotated.RefreshToken = refreshToken
	rotated.ExpiresAt = expiresAt
	return &rotated, nil
}
