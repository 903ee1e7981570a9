package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplist/internal/core/apperror"
	appctx "shoplist/internal/core/context"
	"shoplist/internal/domain/auth"
	"shoplist/internal/infrastructure/storage/memory"
)

func newAuthService(t *testing.T) (*auth.Service, *auth.JWTService) {
	t.Helper()
	store := memory.NewStore()
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	return auth.NewService(store.Users(), store, jwtSvc, auth.DefaultServiceConfig()), jwtSvc
}

func TestRegisterAndLogin(t *testing.T) {
	svc, jwtSvc := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, auth.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	logged, token, err := svc.Login(ctx, auth.Credentials{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.Equal(t, "Bearer", token.TokenType)
	require.NotNil(t, logged.LastLoginAt)

	// token round trip restores the caller identity
	uc, err := jwtSvc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), uc.UserID)
	assert.Equal(t, "alice", uc.Username)
	assert.False(t, uc.IsAdmin)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterRequest{Username: "", Email: "a@b.c", Password: "long enough"})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Register(ctx, auth.RegisterRequest{Username: "bob", Email: "a@b.c", Password: "short"})
	assert.True(t, apperror.IsValidation(err))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "long enough"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, auth.RegisterRequest{Username: "alice", Email: "other@example.com", Password: "long enough"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "long enough"})
	require.NoError(t, err)

	// unknown user and wrong password are indistinguishable
	_, _, err1 := svc.Login(ctx, auth.Credentials{Username: "nobody", Password: "long enough"})
	_, _, err2 := svc.Login(ctx, auth.Credentials{Username: "alice", Password: "wrong"})
	for _, err := range []error{err1, err2} {
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
	}
	assert.Equal(t, err1.Error(), err2.Error())
}

func TestMe(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, auth.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "long enough"})
	require.NoError(t, err)

	_, err = svc.Me(ctx)
	require.Error(t, err)

	authed := appctx.WithUser(ctx, &appctx.UserContext{UserID: user.ID.String(), Username: user.Username})
	me, err := svc.Me(authed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "alice", me.Username)
}
