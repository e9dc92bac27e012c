package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/app/repositories"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
)

// CommunityReader loads communities
type CommunityReader interface {
	GetByID(ctx context.Context, id int64) (*models.Community, error)
	List(ctx context.Context) ([]models.Community, error)
}

// CommunityService defines community operations
type CommunityService interface {
	Create(ctx context.Context, creatorID int64, c *models.Community) (*models.Community, error)
	Get(ctx context.Context, id int64) (*models.Community, error)
	List(ctx context.Context) ([]models.Community, error)
}

// communityServiceImpl implements CommunityService
type communityServiceImpl struct {
	store       SocialStore
	communities CommunityReader
	logger      zerolog.Logger
}

// NewCommunityService creates a new CommunityService
func NewCommunityService(store SocialStore, communities CommunityReader, logger zerolog.Logger) CommunityService {
	return &communityServiceImpl{store: store, communities: communities, logger: logger}
}

// Create stores the community and makes its creator the first admin
func (s *communityServiceImpl) Create(ctx context.Context, creatorID int64, c *models.Community) (*models.Community, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Domain = strings.ToLower(strings.TrimSpace(c.Domain))
	if c.Name == "" || c.Domain == "" {
		return nil, apperrors.NewBadRequestError("community name and domain are required")
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.SocialTx) error {
		if _, err := tx.CreateCommunity(ctx, c); err != nil {
			return err
		}
		_, err := tx.AddMember(ctx, c.ID, creatorID, models.RoleAdmin)
		return err
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("domain", c.Domain).Msg("Community creation failed")
		return nil, apperrors.NewStorageError(err)
	}
	s.logger.Info().Int64("communityID", c.ID).Int64("creatorID", creatorID).Msg("Community created")
	return c, nil
}

// Get returns one community
func (s *communityServiceImpl) Get(ctx context.Context, id int64) (*models.Community, error) {
	c, err := s.communities.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return c, nil
}

// List returns every community
func (s *communityServiceImpl) List(ctx context.Context) ([]models.Community, error) {
	cs, err := s.communities.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return cs, nil
}
