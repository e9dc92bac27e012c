package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/dberrors"
)

// MembershipRepository handles database operations for community members
type MembershipRepository struct {
	db DBTX
}

// NewMembershipRepository creates a new MembershipRepository
func NewMembershipRepository(db DBTX) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Members returns the user IDs of every member of a community
func (r *MembershipRepository) Members(ctx context.Context, communityID int64) ([]int64, error) {
	return r.userIDs(ctx, squirrel.Eq{"community_id": communityID})
}

// Moderators returns members with the moderator role
func (r *MembershipRepository) Moderators(ctx context.Context, communityID int64) ([]int64, error) {
	return r.userIDs(ctx, squirrel.Eq{"community_id": communityID, "role": string(models.RoleModerator)})
}

// Admins returns members with the admin role
func (r *MembershipRepository) Admins(ctx context.Context, communityID int64) ([]int64, error) {
	return r.userIDs(ctx, squirrel.Eq{"community_id": communityID, "role": string(models.RoleAdmin)})
}

func (r *MembershipRepository) userIDs(ctx context.Context, where squirrel.Eq) ([]int64, error) {
	query := squirrel.Select("user_id").
		From("community_members").
		Where(where).
		OrderBy("user_id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Role returns the role of a user in a community, or ErrNotMember
func (r *MembershipRepository) Role(ctx context.Context, communityID, userID int64) (models.MemberRole, error) {
	query := squirrel.Select("role").
		From("community_members").
		Where("community_id = ? AND user_id = ?", communityID, userID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return "", fmt.Errorf("error building SQL: %w", err)
	}

	var role string
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotMember
		}
		return "", fmt.Errorf("error executing query: %w", err)
	}
	return models.MemberRole(role), nil
}

// IsMember checks if a user is a member of a specific community
func (r *MembershipRepository) IsMember(ctx context.Context, communityID, userID int64) (bool, error) {
	_, err := r.Role(ctx, communityID, userID)
	if errors.Is(err, apperrors.ErrNotMember) {
		return false, nil
	}
	return err == nil, err
}

// IsModerator checks if a user moderates or administers a community
func (r *MembershipRepository) IsModerator(ctx context.Context, communityID, userID int64) (bool, error) {
	role, err := r.Role(ctx, communityID, userID)
	if errors.Is(err, apperrors.ErrNotMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role.CanModerate(), nil
}

// AddMember adds a user to a community with a role
func (r *MembershipRepository) AddMember(ctx context.Context, communityID, userID int64, role models.MemberRole) (*models.Membership, error) {
	query := squirrel.Insert("community_members").
		Columns("community_id", "user_id", "role").
		Values(communityID, userID, string(role)).
		Suffix("RETURNING id, joined_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	m := &models.Membership{CommunityID: communityID, UserID: userID, Role: role}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&m.ID, &m.JoinedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "community_members_unique") {
			return nil, apperrors.NewConflictError("user is already a member of this community")
		}
		if dberrors.IsForeignKeyViolation(err) {
			return nil, apperrors.ErrCommunityNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return m, nil
}

// RemoveMember removes a user from a community
func (r *MembershipRepository) RemoveMember(ctx context.Context, communityID, userID int64) error {
	query := squirrel.Delete("community_members").
		Where("community_id = ? AND user_id = ?", communityID, userID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotMember
	}
	return nil
}
