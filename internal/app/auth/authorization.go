package auth

import (
	"context"
	"fmt"

	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/logger"
)

// Roles answers community role questions
type Roles interface {
	IsMember(ctx context.Context, communityID, userID int64) (bool, error)
	IsModerator(ctx context.Context, communityID, userID int64) (bool, error)
}

// AuthorizationService handles authorization operations
type AuthorizationService struct {
	roles Roles
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(roles Roles) *AuthorizationService {
	return &AuthorizationService{roles: roles}
}

// ValidateMember returns ErrNotMember unless the user belongs to the community
func (s *AuthorizationService) ValidateMember(ctx context.Context, communityID, userID int64) error {
	ok, err := s.roles.IsMember(ctx, communityID, userID)
	if err != nil {
		logger.Error().Err(err).Int64("communityID", communityID).Int64("userID", userID).Msg("Error checking membership")
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return apperrors.ErrNotMember
	}
	return nil
}

// ValidateModerator returns a forbidden error unless the user moderates the community
func (s *AuthorizationService) ValidateModerator(ctx context.Context, communityID, userID int64) error {
	ok, err := s.roles.IsModerator(ctx, communityID, userID)
	if err != nil {
		logger.Error().Err(err).Int64("communityID", communityID).Int64("userID", userID).Msg("Error checking moderator role")
		return fmt.Errorf("failed to check moderator role: %w", err)
	}
	if !ok {
		return apperrors.NewForbiddenError("only moderators can perform this action")
	}
	return nil
}

// CanModerate reports whether the user moderates the community
func (s *AuthorizationService) CanModerate(ctx context.Context, communityID, userID int64) (bool, error) {
	return s.roles.IsModerator(ctx, communityID, userID)
}

// ValidateOwnerOrModerator allows the owner of the activity and the community moderators
func (s *AuthorizationService) ValidateOwnerOrModerator(ctx context.Context, a *models.Activity, userID int64) error {
	if a.IsOwner(userID) {
		return nil
	}
	return s.ValidateModerator(ctx, a.CommunityID, userID)
}

// ValidateOwner allows only the owner of the activity
func (s *AuthorizationService) ValidateOwner(a *models.Activity, userID int64) error {
	if !a.IsOwner(userID) {
		return apperrors.NewForbiddenError("only the owner can perform this action")
	}
	return nil
}
