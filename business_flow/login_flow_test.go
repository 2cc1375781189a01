package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openmkt/campaignkit/app/dto"
	"github.com/openmkt/campaignkit/app/services"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestTokenService(t *testing.T) services.TokenService {
	t.Helper()

	ts, err := services.NewTokenService(
		time.Hour, 24*time.Hour,
		"campaignkit-test", "campaignkit-test-api",
		false, "", "", "test-secret-key-for-unit-tests",
	)
	require.NoError(t, err)
	return ts
}

func newLoginFixture(t *testing.T) (LoginFlow, *fakeCustomerRepo, *fakeAdminRepo, *fakeAuditRepo) {
	t.Helper()

	customers := newFakeCustomerRepo()
	admins := newFakeAdminRepo()
	audit := newFakeAuditRepo()

	flow := NewLoginFlow(customers, admins, audit, newTestTokenService(t), nil)
	return flow, customers, admins, audit
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginSuccess(t *testing.T) {
	flow, customers, _, audit := newLoginFixture(t)

	customer := customers.addCustomer(&models.Customer{
		FirstName:    "Dana",
		LastName:     "Miller",
		Email:        "dana@example.com",
		PasswordHash: hashPassword(t, "correct-horse-battery"),
	})

	resp, err := flow.Login(context.Background(), &dto.LoginRequest{
		Email:    "Dana@Example.com",
		Password: "correct-horse-battery",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, customer.Email, resp.Customer.Email)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
	assert.NotEmpty(t, resp.Tokens.RefreshToken)
	assert.Equal(t, "Bearer", resp.Tokens.TokenType)
	assert.Equal(t, models.AuditActionLoginSuccessful, audit.lastAction())
	assert.NotNil(t, customers.customers[customer.ID].LastLoginAt)
}

func TestLoginWrongPassword(t *testing.T) {
	flow, customers, _, audit := newLoginFixture(t)

	customers.addCustomer(&models.Customer{
		Email:        "dana@example.com",
		PasswordHash: hashPassword(t, "correct-horse-battery"),
	})

	_, err := flow.Login(context.Background(), &dto.LoginRequest{
		Email:    "dana@example.com",
		Password: "wrong-password-here",
	}, nil)
	require.Error(t, err)
	assert.True(t, IsIncorrectPassword(err))
	assert.Equal(t, models.AuditActionLoginFailed, audit.lastAction())
}

func TestLoginInactiveAccount(t *testing.T) {
	flow, customers, _, _ := newLoginFixture(t)

	customers.addCustomer(&models.Customer{
		Email:        "dana@example.com",
		PasswordHash: hashPassword(t, "correct-horse-battery"),
		IsActive:     utils.ToPtr(false),
	})

	_, err := flow.Login(context.Background(), &dto.LoginRequest{
		Email:    "dana@example.com",
		Password: "correct-horse-battery",
	}, nil)
	require.Error(t, err)
	assert.True(t, IsAccountInactive(err))
}

func TestLoginUnknownCustomer(t *testing.T) {
	flow, _, _, _ := newLoginFixture(t)

	_, err := flow.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	}, nil)
	require.Error(t, err)
	assert.True(t, IsCustomerNotFound(err))
}

func TestAdminLoginSuccess(t *testing.T) {
	flow, _, admins, _ := newLoginFixture(t)

	require.NoError(t, admins.Save(context.Background(), &models.Admin{
		ID:           1,
		UUID:         uuid.New(),
		Username:     "root",
		PasswordHash: hashPassword(t, "super-secret-admin"),
		IsActive:     utils.ToPtr(true),
	}))

	resp, err := flow.AdminLogin(context.Background(), &dto.AdminLoginRequest{
		Username: "root",
		Password: "super-secret-admin",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "root", resp.Username)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
}

func TestAdminLoginInactive(t *testing.T) {
	flow, _, admins, _ := newLoginFixture(t)

	require.NoError(t, admins.Save(context.Background(), &models.Admin{
		ID:           1,
		UUID:         uuid.New(),
		Username:     "root",
		PasswordHash: hashPassword(t, "super-secret-admin"),
		IsActive:     utils.ToPtr(false),
	}))

	_, err := flow.AdminLogin(context.Background(), &dto.AdminLoginRequest{
		Username: "root",
		Password: "super-secret-admin",
	}, nil)
	require.Error(t, err)
	assert.True(t, IsAdminInactive(err))
}

func TestRefreshTokensRejectsAccessToken(t *testing.T) {
	flow, customers, _, _ := newLoginFixture(t)

	customers.addCustomer(&models.Customer{
		Email:        "dana@example.com",
		PasswordHash: hashPassword(t, "correct-horse-battery"),
	})

	resp, err := flow.Login(context.Background(), &dto.LoginRequest{
		Email:    "dana@example.com",
		Password: "correct-horse-battery",
	}, nil)
	require.NoError(t, err)

	_, err = flow.RefreshTokens(context.Background(), resp.Tokens.AccessToken)
	require.Error(t, err)

	rotated, err := flow.RefreshTokens(context.Background(), resp.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, resp.Tokens.RefreshToken, rotated.RefreshToken)
}
