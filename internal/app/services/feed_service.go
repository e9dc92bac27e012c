package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/auth"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/app/repositories"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/feed"
	"github.com/yigit/communityhub/internal/pkg/metrics"
)

// Ordering fields shared by the activity streams
const (
	FieldPinned    = "is_pinned"
	FieldPublished = "published_at"
	FieldCreated   = "created_at"
	FieldRank      = "rank"
)

// FeedLimits bounds requested page sizes
type FeedLimits struct {
	DefaultPageSize int
	MaxPageSize     int
}

// FeedService defines the merged activity streams of a community
type FeedService interface {
	GetFeedPage(ctx context.Context, sources []feed.RecordSource, order feed.OrderSpec, page, size int) (*feed.Page, error)
	Stream(ctx context.Context, communityID, viewerID int64, following bool, page, size int) (*feed.Page, error)
	Timeline(ctx context.Context, communityID, viewerID int64, ascending bool, page, size int) (*feed.Page, error)
	Drafts(ctx context.Context, communityID, viewerID int64, page, size int) (*feed.Page, error)
	Search(ctx context.Context, communityID, viewerID int64, query string, page, size int) (*feed.Page, error)
	Comments(ctx context.Context, communityID, viewerID int64, page, size int) (*feed.Page, error)
	Profile(ctx context.Context, communityID, viewerID, ownerID int64, page, size int) (*feed.Page, error)
}

// feedServiceImpl implements FeedService
type feedServiceImpl struct {
	aggregator *feed.Aggregator
	authz      *auth.AuthorizationService
	limits     FeedLimits
	logger     zerolog.Logger
}

// NewFeedService creates a new FeedService
func NewFeedService(index feed.Index, hydrator *feed.Hydrator, authz *auth.AuthorizationService, limits FeedLimits, logger zerolog.Logger) FeedService {
	return &feedServiceImpl{
		aggregator: feed.NewAggregator(index, hydrator),
		authz:      authz,
		limits:     limits.normalized(),
		logger:     logger,
	}
}

func (l FeedLimits) normalized() FeedLimits {
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = feed.DefaultPageSize
	}
	if l.MaxPageSize < l.DefaultPageSize {
		l.MaxPageSize = l.DefaultPageSize
	}
	return l
}

// clamp applies the default to a missing size and caps the rest
func (l FeedLimits) clamp(size int) int {
	switch {
	case size <= 0:
		return l.DefaultPageSize
	case size > l.MaxPageSize:
		return l.MaxPageSize
	}
	return size
}

func (s *feedServiceImpl) pageSize(size int) int {
	return s.limits.clamp(size)
}

// GetFeedPage returns one hydrated page of the union of sources
func (s *feedServiceImpl) GetFeedPage(ctx context.Context, sources []feed.RecordSource, order feed.OrderSpec, page, size int) (*feed.Page, error) {
	return s.aggregator.Page(ctx, sources, order, feed.PageRequest{Number: page, Size: s.pageSize(size)})
}

func (s *feedServiceImpl) page(ctx context.Context, stream string, sources []feed.RecordSource, order feed.OrderSpec, page, size int) (*feed.Page, error) {
	done := metrics.ObserveFeedPage(stream)
	p, err := s.GetFeedPage(ctx, sources, order, page, size)
	if err != nil {
		s.logger.Error().Err(err).Str("stream", stream).Msg("Failed to build feed page")
		done(0)
		return nil, err
	}
	done(len(p.Items))
	return p, nil
}

// notBlockedWith drops rows whose author column names a user in a block
// relation with the viewer
func notBlockedWith(author string, viewerID int64) squirrel.Sqlizer {
	return squirrel.Expr(fmt.Sprintf(`NOT EXISTS (
			SELECT 1 FROM blocks b
			WHERE (b.blocker_id = ? AND b.blocked_id = %[1]s)
			   OR (b.blocker_id = %[1]s AND b.blocked_id = ?))`, author), viewerID, viewerID)
}

// visibleTo keeps published activities whose owner is not in a block relation with the viewer
func visibleTo(communityID, viewerID int64) squirrel.And {
	return squirrel.And{
		squirrel.Eq{"a.community_id": communityID},
		squirrel.Expr("a.published_at IS NOT NULL AND a.deleted_at IS NULL"),
		notBlockedWith("a.owner_id", viewerID),
	}
}

// visibleComments keeps comments still attached to an activity. Deleting an
// activity detaches its comments and only published activities take comments,
// so an attached comment always hangs off a published activity.
func visibleComments(communityID, viewerID int64) *repositories.SQLSource {
	return repositories.NewCommentSource().
		Where(squirrel.Eq{"a.community_id": communityID}).
		Where(squirrel.Expr("a.activity_id IS NOT NULL")).
		Where(notBlockedWith("a.owner_id", viewerID))
}

func activitySources(build func(kind models.ActivityType) *repositories.SQLSource) []feed.RecordSource {
	sources := make([]feed.RecordSource, 0, len(models.ActivityTypes))
	for _, kind := range models.ActivityTypes {
		sources = append(sources, build(kind))
	}
	return sources
}

// Stream is the community feed: pinned activity first, then newest first.
// With following set only the viewer's and followed users' activities are kept.
func (s *feedServiceImpl) Stream(ctx context.Context, communityID, viewerID int64, following bool, page, size int) (*feed.Page, error) {
	if err := s.authz.ValidateMember(ctx, communityID, viewerID); err != nil {
		return nil, err
	}

	sources := activitySources(func(kind models.ActivityType) *repositories.SQLSource {
		src := repositories.NewSQLSource(kind).Where(visibleTo(communityID, viewerID))
		if following {
			src = src.Where(squirrel.Expr(
				"(a.owner_id = ? OR a.owner_id IN (SELECT f.followed_id FROM follows f WHERE f.follower_id = ?))",
				viewerID, viewerID))
		}
		return src.OrderBy(FieldPinned, FieldPublished)
	})
	stream := "stream"
	if following {
		stream = "following"
	}
	return s.page(ctx, stream, sources, feed.OrderSpec{Fields: []string{FieldPinned, FieldPublished}}, page, size)
}

// Timeline lists published activities by publication time
func (s *feedServiceImpl) Timeline(ctx context.Context, communityID, viewerID int64, ascending bool, page, size int) (*feed.Page, error) {
	if err := s.authz.ValidateMember(ctx, communityID, viewerID); err != nil {
		return nil, err
	}

	sources := activitySources(func(kind models.ActivityType) *repositories.SQLSource {
		return repositories.NewSQLSource(kind).Where(visibleTo(communityID, viewerID)).OrderBy(FieldPublished)
	})
	order := feed.OrderSpec{Fields: []string{FieldPublished}, Ascending: ascending}
	return s.page(ctx, "timeline", sources, order, page, size)
}

// Drafts lists the viewer's unpublished activities, newest first
func (s *feedServiceImpl) Drafts(ctx context.Context, communityID, viewerID int64, page, size int) (*feed.Page, error) {
	if err := s.authz.ValidateMember(ctx, communityID, viewerID); err != nil {
		return nil, err
	}

	sources := activitySources(func(kind models.ActivityType) *repositories.SQLSource {
		return repositories.NewSQLSource(kind).
			Where(squirrel.Eq{"a.community_id": communityID, "a.owner_id": viewerID}).
			Where(squirrel.Expr("a.published_at IS NULL AND a.deleted_at IS NULL")).
			OrderBy(FieldCreated)
	})
	return s.page(ctx, "drafts", sources, feed.OrderSpec{Fields: []string{FieldCreated}}, page, size)
}

// Search ranks published activities matching query, ties broken by recency
func (s *feedServiceImpl) Search(ctx context.Context, communityID, viewerID int64, query string, page, size int) (*feed.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewBadRequestError("search query is required")
	}
	if err := s.authz.ValidateMember(ctx, communityID, viewerID); err != nil {
		return nil, err
	}

	sources := activitySources(func(kind models.ActivityType) *repositories.SQLSource {
		return repositories.NewSQLSource(kind).
			Where(visibleTo(communityID, viewerID)).
			Where(squirrel.Expr("a.search_document @@ plainto_tsquery('simple', ?)", query)).
			Annotate(FieldRank, "ts_rank(a.search_document, plainto_tsquery('simple', ?))", query).
			OrderBy(FieldPublished)
	})
	return s.page(ctx, "search", sources, feed.OrderSpec{Fields: []string{FieldRank, FieldPublished}}, page, size)
}

// Comments lists the latest comments of the community, newest first
func (s *feedServiceImpl) Comments(ctx context.Context, communityID, viewerID int64, page, size int) (*feed.Page, error) {
	if err := s.authz.ValidateMember(ctx, communityID, viewerID); err != nil {
		return nil, err
	}

	sources := []feed.RecordSource{visibleComments(communityID, viewerID).OrderBy(FieldCreated)}
	return s.page(ctx, "comments", sources, feed.OrderSpec{Fields: []string{FieldCreated}}, page, size)
}

// Profile merges the published activities and the comments of one member,
// newest first
func (s *feedServiceImpl) Profile(ctx context.Context, communityID, viewerID, ownerID int64, page, size int) (*feed.Page, error) {
	if err := s.authz.ValidateMember(ctx, communityID, viewerID); err != nil {
		return nil, err
	}
	if err := s.authz.ValidateMember(ctx, communityID, ownerID); err != nil {
		return nil, err
	}

	byOwner := squirrel.Eq{"a.owner_id": ownerID}
	sources := activitySources(func(kind models.ActivityType) *repositories.SQLSource {
		return repositories.NewSQLSource(kind).Where(visibleTo(communityID, viewerID)).Where(byOwner).OrderBy(FieldPublished)
	})
	sources = append(sources, visibleComments(communityID, viewerID).
		Where(byOwner).
		Annotate(FieldPublished, "a.created_at"))
	return s.page(ctx, "profile", sources, feed.OrderSpec{Fields: []string{FieldPublished}}, page, size)
}
