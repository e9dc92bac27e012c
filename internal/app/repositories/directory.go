package repositories

import (
	"context"
)

// Directory answers membership, graph and username questions from the
// membership, graph and user tables.
type Directory struct {
	*MembershipRepository
	*GraphRepository
	users *UserRepository
}

// NewDirectory creates a Directory over a pool or a transaction
func NewDirectory(db DBTX) *Directory {
	return &Directory{
		MembershipRepository: NewMembershipRepository(db),
		GraphRepository:      NewGraphRepository(db),
		users:                NewUserRepository(db),
	}
}

// UserIDsByUsername resolves mentioned usernames to active user IDs
func (d *Directory) UserIDsByUsername(ctx context.Context, usernames []string) (map[string]int64, error) {
	return d.users.UserIDsByUsername(ctx, usernames)
}
