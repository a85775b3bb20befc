package models

import "time"

// TrustedService is an internal caller allowed to issue requests over the
// broker, scoped to a set of actions.
type TrustedService struct {
	ID             string
	APIKey         string
	Name           string
	AllowedActions []string
	IsActive       bool
	CreatedAt      time.Time
}

func (s *TrustedService) CanPerformAction(action string) bool {
	if !s.IsActive {
		return false
	}
	for _, a := range s.AllowedActions {
		if a == action || a == "*" {
			return true
		}
	}
	return false
}
