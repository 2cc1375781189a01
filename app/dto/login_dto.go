package dto

// LoginRequest represents a customer login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthCustomerDTO represents the authenticated customer in login responses
type AuthCustomerDTO struct {
	ID              uint   `json:"id"`
	UUID            string `json:"uuid"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	IsActive        *bool  `json:"is_active"`
	IsEmailVerified *bool  `json:"is_email_verified"`
	CreatedAt       string `json:"created_at"`
}

// TokenDTO carries the issued token pair
type TokenDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResponse represents a successful customer login
type LoginResponse struct {
	Message  string          `json:"message"`
	Customer AuthCustomerDTO `json:"customer"`
	Tokens   TokenDTO        `json:"tokens"`
}

// AdminLoginRequest represents an admin login request
type AdminLoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

// AdminLoginResponse represents a successful admin login
type AdminLoginResponse struct {
	Message  string   `json:"message"`
	Username string   `json:"username"`
	Tokens   TokenDTO `json:"tokens"`
}
