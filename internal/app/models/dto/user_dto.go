package dto

// FollowTagRequest names a hashtag taken from the path
type FollowTagRequest struct {
	Tag string `uri:"tag" binding:"required,hashtag" example:"golang"`
}

// PushTokenRequest registers a device for push delivery
type PushTokenRequest struct {
	Token    string `json:"token" binding:"required,max=4096"`
	Platform string `json:"platform" binding:"required,oneof=android ios web" example:"android"`
}

// PushTokenResponse echoes a stored device registration
type PushTokenResponse struct {
	ID       int64  `json:"id" example:"1"`
	Platform string `json:"platform" example:"android"`
}
