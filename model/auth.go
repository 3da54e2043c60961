package model

// Credentials of a login request
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	// Admin selects the root admin table instead of the party table
	Admin bool `json:"admin"`
}

// TokenPair is issued on a successful login
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
