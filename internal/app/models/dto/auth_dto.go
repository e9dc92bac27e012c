package dto

// DevTokenRequest names the account a development token is issued for
type DevTokenRequest struct {
	Username string `json:"username" binding:"required,max=100" example:"member"`
}

// TokenResponse carries a signed access token
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType" example:"Bearer"`
	ExpiresIn   int    `json:"expiresIn" example:"3600"`
}
