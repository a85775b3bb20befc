package services

import (
	"context"
	"fmt"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
)

type trustedServiceStore interface {
	FindByAPIKey(ctx context.Context, apiKey string) (*models.TrustedService, error)
}

// AuthService authorizes broker-originated requests from trusted internal
// services.
type AuthService struct {
	repo trustedServiceStore
}

func NewAuthService(repo trustedServiceStore) *AuthService {
	return &AuthService{repo: repo}
}

// ValidateAPIKey validates an API key and returns the trusted service.
func (s *AuthService) ValidateAPIKey(ctx context.Context, apiKey string) (*models.TrustedService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing api_key")
	}

	service, err := s.repo.FindByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to validate api_key: %w", err)
	}

	if service == nil {
		return nil, fmt.Errorf("invalid api_key")
	}

	if !service.IsActive {
		return nil, fmt.Errorf("service is inactive")
	}

	return service, nil
}

// ValidateAction checks if the service can perform the action.
func (s *AuthService) ValidateAction(service *models.TrustedService, action string) error {
	if !service.CanPerformAction(action) {
		return fmt.Errorf("action '%s' not allowed for service '%s'", action, service.Name)
	}
	return nil
}
