package repositories

import (
	"github.com/yigit/communityhub/internal/db"
)

// Repositories holds all the repository instances
type Repositories struct {
	ActivityStore              *ActivityStore
	SocialStore                *SocialStore
	MessageStore               *MessageStore
	ActivityRepository         *ActivityRepository
	MessageRepository          *MessageRepository
	FeedRepository             *FeedRepository
	NotificationRepository     *NotificationRepository
	MembershipRepository       *MembershipRepository
	GraphRepository            *GraphRepository
	UserRepository             *UserRepository
	CommunityRepository        *CommunityRepository
	PushSubscriptionRepository *PushSubscriptionRepository
	Directory                  *Directory
}

// NewRepositories initializes all repositories
func NewRepositories(database *db.PostgresDB) *Repositories {
	pool := database.Pool
	return &Repositories{
		ActivityStore:              NewActivityStore(database),
		SocialStore:                NewSocialStore(database),
		MessageStore:               NewMessageStore(database),
		ActivityRepository:         NewActivityRepository(pool),
		MessageRepository:          NewMessageRepository(pool),
		FeedRepository:             NewFeedRepository(pool),
		NotificationRepository:     NewNotificationRepository(pool),
		MembershipRepository:       NewMembershipRepository(pool),
		GraphRepository:            NewGraphRepository(pool),
		UserRepository:             NewUserRepository(pool),
		CommunityRepository:        NewCommunityRepository(pool),
		PushSubscriptionRepository: NewPushSubscriptionRepository(pool),
		Directory:                  NewDirectory(pool),
	}
}
