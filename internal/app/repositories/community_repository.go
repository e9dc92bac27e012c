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

// CommunityRepository handles database operations for communities
type CommunityRepository struct {
	db DBTX
}

// NewCommunityRepository creates a new CommunityRepository
func NewCommunityRepository(db DBTX) *CommunityRepository {
	return &CommunityRepository{db: db}
}

var communityColumns = []string{"id", "name", "domain", "description", "created_at", "updated_at"}

// Create inserts a community and sets its ID
func (r *CommunityRepository) Create(ctx context.Context, community *models.Community) (int64, error) {
	query := squirrel.Insert("communities").
		Columns("name", "domain", "description").
		Values(community.Name, community.Domain, community.Description).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&community.ID, &community.CreatedAt, &community.UpdatedAt)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return 0, apperrors.NewConflictError("a community with this domain already exists")
		}
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return community.ID, nil
}

// GetByID retrieves a community by its ID
func (r *CommunityRepository) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByDomain retrieves a community by the domain it is served on
func (r *CommunityRepository) GetByDomain(ctx context.Context, domain string) (*models.Community, error) {
	return r.getOne(ctx, squirrel.Eq{"domain": domain})
}

func (r *CommunityRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.Community, error) {
	sql, args, err := squirrel.Select(communityColumns...).
		From("communities").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var c models.Community
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.Name, &c.Domain, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommunityNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return &c, nil
}

// List returns communities ordered by name
func (r *CommunityRepository) List(ctx context.Context) ([]models.Community, error) {
	sql, args, err := squirrel.Select(communityColumns...).
		From("communities").
		OrderBy("name", "id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	communities := []models.Community{}
	for rows.Next() {
		var c models.Community
		if err := rows.Scan(&c.ID, &c.Name, &c.Domain, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		communities = append(communities, c)
	}
	return communities, rows.Err()
}
