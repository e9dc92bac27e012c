package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/communityhub/internal/app/models"
	appRepos "github.com/yigit/communityhub/internal/app/repositories"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
)

// DefaultDomain is the domain of the community created on an empty database
const DefaultDomain = "localhost"

var defaultUsers = []appModels.User{
	{Username: "admin", Email: "admin@communityhub.local", Name: "Hub Admin", IsActive: true},
	{Username: "moderator", Email: "moderator@communityhub.local", Name: "Hub Moderator", IsActive: true},
	{Username: "member", Email: "member@communityhub.local", Name: "Hub Member", IsActive: true},
}

var defaultRoles = map[string]appModels.MemberRole{
	"admin":     appModels.RoleAdmin,
	"moderator": appModels.RoleModerator,
	"member":    appModels.RoleMember,
}

// CreateDefaultData creates the default community and its staff if they don't exist.
// Errors are collected so one failing row does not stop the rest.
func CreateDefaultData(ctx context.Context, repos *appRepos.Repositories, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (community and users)...")
	var finalErr error

	community, err := repos.CommunityRepository.GetByDomain(ctx, DefaultDomain)
	if errors.Is(err, apperrors.ErrCommunityNotFound) {
		community = &appModels.Community{Name: "Community Hub", Domain: DefaultDomain, Description: "Default community"}
		_, err = repos.CommunityRepository.Create(ctx, community)
	}
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating default community")
		return err
	}

	for i := range defaultUsers {
		user := defaultUsers[i]
		if _, err := repos.UserRepository.CreateUser(ctx, &user); err != nil {
			if !errors.Is(err, apperrors.ErrConflict) {
				lgr.Error().Err(err).Str("username", user.Username).Msg("Error creating default user")
				finalErr = errors.Join(finalErr, err)
				continue
			}
			existing, errGet := repos.UserRepository.GetUserByUsername(ctx, user.Username)
			if errGet != nil {
				finalErr = errors.Join(finalErr, errGet)
				continue
			}
			user = *existing
		}

		_, err := repos.MembershipRepository.AddMember(ctx, community.ID, user.ID, defaultRoles[user.Username])
		if err != nil && !errors.Is(err, apperrors.ErrConflict) {
			lgr.Error().Err(err).Str("username", user.Username).Msg("Error adding default member")
			finalErr = errors.Join(finalErr, err)
		}
	}

	if finalErr == nil {
		lgr.Info().Int64("communityID", community.ID).Msg("Default data ready")
	}
	return finalErr
}
