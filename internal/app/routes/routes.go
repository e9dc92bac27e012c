package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/communityhub/internal/app/controllers"
	"github.com/yigit/communityhub/internal/middleware"
	"github.com/yigit/communityhub/internal/pkg/metrics"
)

// Controllers groups every HTTP handler set mounted by SetupRouter
type Controllers struct {
	Auth         *controllers.AuthController // nil in production
	Activity     *controllers.ActivityController
	Feed         *controllers.FeedController
	Notification *controllers.NotificationController
	Community    *controllers.CommunityController
	User         *controllers.UserController
	Message      *controllers.MessageController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/ping", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API version group
	api := router.Group("/api/v1")
	if c.Auth != nil {
		api.POST("/auth/dev-token", c.Auth.DevToken)
	}

	v1 := api.Group("")
	v1.Use(authMiddleware.JWTAuth())

	communities := v1.Group("/communities")
	{
		communities.GET("", c.Community.ListCommunities)
		communities.POST("", c.Community.CreateCommunity)
		communities.GET("/:communityId", c.Community.GetCommunity)
		communities.POST("/:communityId/join", c.Community.JoinCommunity)
		communities.DELETE("/:communityId/join", c.Community.LeaveCommunity)
		communities.POST("/:communityId/follow/:userId", c.Community.FollowUser)
		communities.DELETE("/:communityId/follow/:userId", c.Community.UnfollowUser)

		// Streams
		communities.GET("/:communityId/feed", c.Feed.Stream)
		communities.GET("/:communityId/timeline", c.Feed.Timeline)
		communities.GET("/:communityId/drafts", c.Feed.Drafts)
		communities.GET("/:communityId/search", c.Feed.Search)
		communities.GET("/:communityId/comments", c.Feed.Comments)
		communities.GET("/:communityId/members/:userId/stream", c.Feed.Profile)

		communities.POST("/:communityId/activities", c.Activity.CreateActivity)

		// Inbox
		communities.GET("/:communityId/notifications", c.Notification.ListNotifications)
		communities.GET("/:communityId/notifications/unread-count", c.Notification.UnreadCount)
		communities.POST("/:communityId/notifications/read", c.Notification.MarkAllRead)
		communities.DELETE("/:communityId/notifications", c.Notification.ClearNotifications)

		// Private messages
		communities.POST("/:communityId/messages", c.Message.SendMessage)
		communities.GET("/:communityId/messages/inbox", c.Message.Inbox)
		communities.GET("/:communityId/messages/outbox", c.Message.Outbox)
	}

	activities := v1.Group("/activities/:type/:id")
	{
		activities.GET("", c.Activity.GetActivity)
		activities.PUT("", c.Activity.UpdateActivity)
		activities.DELETE("", c.Activity.DeleteActivity)
		activities.POST("/publish", c.Activity.PublishActivity)
		activities.POST("/reshare", c.Activity.ReshareActivity)
		activities.POST("/pin", c.Activity.PinActivity)
		activities.DELETE("/pin", c.Activity.UnpinActivity)
		activities.POST("/like", c.Activity.LikeActivity)
		activities.POST("/bookmark", c.Activity.BookmarkActivity)
		activities.POST("/flag", c.Activity.FlagActivity)
		activities.GET("/comments", c.Activity.ListComments)
		activities.POST("/comments", c.Activity.AddComment)
	}

	v1.POST("/polls/:id/answers/:answerId/vote", c.Activity.Vote)
	v1.POST("/notifications/:id/read", c.Notification.MarkRead)

	v1.GET("/messages/:id", c.Message.GetMessage)
	v1.DELETE("/messages/:id", c.Message.DeleteMessage)
	v1.POST("/messages/:id/reply", c.Message.ReplyMessage)

	v1.POST("/tags/:tag/follow", c.User.FollowTag)
	v1.DELETE("/tags/:tag/follow", c.User.UnfollowTag)
	v1.POST("/users/:userId/block", c.User.BlockUser)
	v1.DELETE("/users/:userId/block", c.User.UnblockUser)
	v1.POST("/push-subscriptions", c.User.RegisterPushToken)
}
