package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/dberrors"
)

// UserRepository reads the identities referenced by activities
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

var userColumns = []string{"id", "username", "email", "name", "is_active", "created_at"}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a user and sets its ID
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	query := squirrel.Insert("users").
		Columns("username", "email", "name", "is_active").
		Values(user.Username, user.Email, user.Name, user.IsActive).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return 0, apperrors.NewConflictError("username already in use")
		}
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return user.ID, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	sql, args, err := squirrel.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	sql, args, err := squirrel.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"username": username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return user, nil
}

// GetUsersByIDs loads several users at once, keyed by ID. Unknown IDs are absent.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	users := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	sql, args, err := squirrel.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": ids}).
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

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		users[user.ID] = user
	}
	return users, rows.Err()
}

// UserIDsByUsername resolves active usernames to IDs, ignoring case. The result
// is keyed by lowercased username; unknown names are absent.
func (r *UserRepository) UserIDsByUsername(ctx context.Context, usernames []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(usernames))
	if len(usernames) == 0 {
		return ids, nil
	}
	lowered := make([]string, len(usernames))
	for i, name := range usernames {
		lowered[i] = strings.ToLower(name)
	}

	sql, args, err := squirrel.Select("LOWER(username)", "id").
		From("users").
		Where("LOWER(username) = ANY(?)", lowered).
		Where(squirrel.Eq{"is_active": true}).
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

	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		ids[name] = id
	}
	return ids, rows.Err()
}
