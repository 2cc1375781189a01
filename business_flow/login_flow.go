package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/openmkt/campaignkit/app/dto"
	"github.com/openmkt/campaignkit/app/services"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/repository"
	"github.com/openmkt/campaignkit/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginFlow handles customer and admin authentication
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	AdminLogin(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*dto.TokenDTO, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	customerRepo repository.CustomerRepository
	adminRepo    repository.AdminRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	db           *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	customerRepo repository.CustomerRepository,
	adminRepo repository.AdminRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		customerRepo: customerRepo,
		adminRepo:    adminRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		db:           db,
	}
}

// Login authenticates a customer with email and password
func (s *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	customer, err := s.customerRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}
	if customer == nil {
		_ = createAuditLog(ctx, s.auditRepo, nil, models.AuditActionLoginFailed,
			fmt.Sprintf("Login failed for %s: customer not found", email), false, nil, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrCustomerNotFound)
	}

	if !customer.Active() {
		_ = createAuditLog(ctx, s.auditRepo, customer, models.AuditActionLoginFailed,
			"Login failed: account is inactive", false, nil, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrAccountInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)); err != nil {
		_ = createAuditLog(ctx, s.auditRepo, customer, models.AuditActionLoginFailed,
			"Login failed: incorrect password", false, nil, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrIncorrectPassword)
	}

	accessToken, refreshToken, err := s.tokenService.GenerateTokens(customer.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	if err := s.customerRepo.UpdateLastLogin(ctx, customer.ID, utils.UTCNow()); err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to record login", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, customer, models.AuditActionLoginSuccessful,
		"Customer logged in successfully", true, nil, metadata)

	return &dto.LoginResponse{
		Message:  "Login successful",
		Customer: ToAuthCustomerDTO(*customer),
		Tokens: dto.TokenDTO{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int(utils.AccessTokenTTL.Seconds()),
		},
	}, nil
}

// AdminLogin authenticates an admin with username and password
func (s *LoginFlowImpl) AdminLogin(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error) {
	admin, err := s.adminRepo.ByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup admin", err)
	}
	if admin == nil {
		_ = createAuditLog(ctx, s.auditRepo, nil, models.AuditActionLoginFailed,
			fmt.Sprintf("Admin login failed for %s: admin not found", req.Username), false, nil, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrAdminNotFound)
	}

	if !utils.IsTrue(admin.IsActive) {
		_ = createAuditLog(ctx, s.auditRepo, nil, models.AuditActionLoginFailed,
			"Admin login failed: account is inactive", false, nil, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrAdminInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		_ = createAuditLog(ctx, s.auditRepo, nil, models.AuditActionLoginFailed,
			"Admin login failed: incorrect password", false, nil, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrIncorrectPassword)
	}

	accessToken, refreshToken, err := s.tokenService.GenerateAdminTokens(admin.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, nil, models.AuditActionLoginSuccessful,
		fmt.Sprintf("Admin %s logged in successfully", admin.Username), true, nil, metadata)

	return &dto.AdminLoginResponse{
		Message:  "Login successful",
		Username: admin.Username,
		Tokens: dto.TokenDTO{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int(utils.AccessTokenTTL.Seconds()),
		},
	}, nil
}

// RefreshTokens rotates a customer token pair using a valid refresh token
func (s *LoginFlowImpl) RefreshTokens(ctx context.Context, refreshToken string) (*dto.TokenDTO, error) {
	accessToken, newRefreshToken, err := s.tokenService.RefreshToken(refreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Failed to refresh tokens", err)
	}

	return &dto.TokenDTO{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(utils.AccessTokenTTL.Seconds()),
	}, nil
}
