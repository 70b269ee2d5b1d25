package users

import (
	"context"
	"errors"
	"strings"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertProfile persists the user identity so contracts and notifications can
// reference names rather than bare IDs.
func (s *Service) UpsertProfile(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	if strings.TrimSpace(user.ID) == "" {
		return errors.New("user id is required")
	}
	if _, ok := ParseRole(string(user.Role)); !ok {
		return errors.New("role must be employer or employee")
	}
	return s.Repo.Upsert(ctx, user)
}

// DisplayName resolves a user's full name, falling back to the bare ID for
// users who never completed a profile.
func (s *Service) DisplayName(ctx context.Context, userID string) string {
	user, err := s.GetByID(ctx, userID)
	if err != nil || strings.TrimSpace(user.FullName) == "" {
		return userID
	}
	return user.FullName
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}
