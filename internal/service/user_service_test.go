package service

import (
	"context"
	"errors"
	"testing"

	"teamtrack/internal/models"
	"teamtrack/internal/policy"
	"teamtrack/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newUserService(t *testing.T, verifier ResetVerifier) (*UserService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db), repository.NewTeamRepository(db), verifier).
		WithHashCost(bcrypt.MinCost)
	return svc, db
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	withCacheBackends(t, testRegisterAndAuthenticate)
}

func testRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newUserService(t, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{ID: " alice ", Password: "secret123", Name: "Alice", Cohort: "7"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.ID)
	assert.Equal(t, models.RoleMember, user.Role)
	assert.Equal(t, models.DefaultAvatar, user.Avatar)
	assert.NotEqual(t, "secret123", user.Password)

	got, err := svc.Authenticate(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.ID)

	// a profile read in between must not break the next login
	_, err = svc.GetUser(ctx, "alice")
	require.NoError(t, err)
	got, err = svc.Authenticate(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong-pass1")
	assertAppCode(t, err, models.CodeUnauthorized)

	_, err = svc.Authenticate(ctx, "nobody", "secret123")
	assertAppCode(t, err, models.CodeUnauthorized)
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc, db := newUserService(t, nil)
	ctx := context.Background()
	team := seedTeam(t, db, "Red")
	missing := team.ID + 100

	cases := []struct {
		name string
		in   RegisterInput
		code string
	}{
		{"bad id", RegisterInput{ID: "a/b", Password: "secret123", Name: "A"}, models.CodeValidation},
		{"weak password", RegisterInput{ID: "bob", Password: "short", Name: "Bob"}, models.CodeValidation},
		{"missing name", RegisterInput{ID: "bob", Password: "secret123"}, models.CodeValidation},
		{"unknown team", RegisterInput{ID: "bob", Password: "secret123", Name: "Bob", TeamID: &missing}, models.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.in)
			assertAppCode(t, err, tc.code)
		})
	}

	_, err := svc.Register(ctx, RegisterInput{ID: "bob", Password: "secret123", Name: "Bob", TeamID: &team.ID})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{ID: "bob", Password: "secret123", Name: "Bob"})
	assertAppCode(t, err, models.CodeConflict)
}

func TestUserService_CreateUserRequiresAdmin(t *testing.T) {
	svc, _ := newUserService(t, nil)
	ctx := context.Background()
	in := CreateUserInput{RegisterInput: RegisterInput{ID: "lead", Password: "secret123", Name: "Lead"}, Role: models.RoleLeader}

	_, err := svc.CreateUser(ctx, policy.Actor{ID: "x", Role: models.RoleMember}, in)
	assertAppCode(t, err, models.CodeForbidden)

	user, err := svc.CreateUser(ctx, adminActor(), in)
	require.NoError(t, err)
	assert.Equal(t, models.RoleLeader, user.Role)
}

func TestUserService_UpdateUserPermissions(t *testing.T) {
	svc, db := newUserService(t, nil)
	ctx := context.Background()
	team := seedTeam(t, db, "Blue")
	seedUser(t, db, "alice", nil, models.RoleMember)
	seedUser(t, db, "bob", nil, models.RoleMember)
	alice := policy.Actor{ID: "alice", Role: models.RoleMember}

	name := "Alice Kim"
	updated, err := svc.UpdateUser(ctx, alice, "alice", UpdateUserInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice Kim", updated.Name)

	_, err = svc.UpdateUser(ctx, alice, "bob", UpdateUserInput{Name: &name})
	assertAppCode(t, err, models.CodeForbidden)

	role := models.RoleAdmin
	_, err = svc.UpdateUser(ctx, alice, "alice", UpdateUserInput{Role: &role})
	assertAppCode(t, err, models.CodeForbidden)

	_, err = svc.UpdateUser(ctx, alice, "alice", UpdateUserInput{TeamSet: true, TeamID: &team.ID})
	assertAppCode(t, err, models.CodeForbidden)

	moved, err := svc.UpdateUser(ctx, adminActor(), "alice", UpdateUserInput{TeamSet: true, TeamID: &team.ID})
	require.NoError(t, err)
	require.NotNil(t, moved.TeamID)
	assert.Equal(t, team.ID, *moved.TeamID)

	cleared, err := svc.UpdateUser(ctx, adminActor(), "alice", UpdateUserInput{TeamSet: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.TeamID)

	_, err = svc.UpdateUser(ctx, adminActor(), "ghost", UpdateUserInput{Name: &name})
	assertAppCode(t, err, models.CodeNotFound)
}

func TestUserService_UpdatePasswordRehashes(t *testing.T) {
	svc, db := newUserService(t, nil)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.User{ID: "carol", Name: "Carol", Password: "x", Role: models.RoleMember, PasswordResetPending: true}).Error)

	pw := "newpass123"
	_, err := svc.UpdateUser(ctx, policy.Actor{ID: "carol", Role: models.RoleMember}, "carol", UpdateUserInput{Password: &pw})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "carol", "newpass123")
	require.NoError(t, err)
	assert.False(t, user.PasswordResetPending)
}

func TestUserService_ChangePassword(t *testing.T) {
	withCacheBackends(t, testChangePassword)
}

func testChangePassword(t *testing.T) {
	svc, _ := newUserService(t, nil)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{ID: "dave", Password: "secret123", Name: "Dave"})
	require.NoError(t, err)
	dave := policy.Actor{ID: "dave", Role: models.RoleMember}

	err = svc.ChangePassword(ctx, dave, "dave", "wrong-one1", "another123")
	assertAppCode(t, err, models.CodeUnauthorized)

	err = svc.ChangePassword(ctx, dave, "dave", "secret123", "weak")
	assertAppCode(t, err, models.CodeValidation)

	require.NoError(t, svc.ChangePassword(ctx, dave, "dave", "secret123", "another123"))
	_, err = svc.Authenticate(ctx, "dave", "another123")
	require.NoError(t, err)

	// admins reset someone else's password without the current one
	require.NoError(t, svc.ChangePassword(ctx, adminActor(), "dave", "", "byadmin123"))
	_, err = svc.Authenticate(ctx, "dave", "byadmin123")
	require.NoError(t, err)
}

func TestUserService_ResetPassword(t *testing.T) {
	svc, _ := newUserService(t, NewStaticVerifier("Kim Manager", "010-1234-5678"))
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{ID: "erin", Password: "secret123", Name: "Erin"})
	require.NoError(t, err)

	_, err = svc.ResetPassword(ctx, ResetPasswordInput{ID: "erin", Name: "Erin", VerifierName: "Kim Manager", VerifierPhone: "000"})
	assertAppCode(t, err, models.CodeForbidden)

	_, err = svc.ResetPassword(ctx, ResetPasswordInput{ID: "erin", Name: "Someone", VerifierName: "Kim Manager", VerifierPhone: "01012345678"})
	assertAppCode(t, err, models.CodeNotFound)

	temp, err := svc.ResetPassword(ctx, ResetPasswordInput{ID: "erin", Name: "Erin", VerifierName: "Kim Manager", VerifierPhone: "01012345678"})
	require.NoError(t, err)
	assert.Regexp(t, `^[a-z0-9]{8}$`, temp)

	user, err := svc.Authenticate(ctx, "erin", temp)
	require.NoError(t, err)
	assert.True(t, user.PasswordResetPending)
}

func TestUserService_IssueTempPassword(t *testing.T) {
	svc, db := newUserService(t, nil)
	ctx := context.Background()
	seedUser(t, db, "gina", nil, models.RoleMember)

	_, err := svc.IssueTempPassword(ctx, policy.Actor{ID: "gina", Role: models.RoleMember}, "gina")
	assertAppCode(t, err, models.CodeForbidden)

	_, err = svc.IssueTempPassword(ctx, adminActor(), "nobody")
	assertAppCode(t, err, models.CodeNotFound)

	temp, err := svc.IssueTempPassword(ctx, adminActor(), "gina")
	require.NoError(t, err)
	user, err := svc.Authenticate(ctx, "gina", temp)
	require.NoError(t, err)
	assert.True(t, user.PasswordResetPending)
}

func TestUserService_ResetPasswordChecksVerifierBeforeLookup(t *testing.T) {
	repo := noopUserRepo()
	repo.getByIDFn = func(context.Context, string) (*models.User, error) {
		t.Fatal("user lookup must not happen when verification fails")
		return nil, nil
	}
	reject := VerifierFunc(func(context.Context, string, string) bool { return false })
	svc := NewUserService(repo, nil, reject)

	_, err := svc.ResetPassword(context.Background(), ResetPasswordInput{ID: "x", Name: "X"})
	assertAppCode(t, err, models.CodeForbidden)
}

func TestUserService_AuthenticatePropagatesStorageErrors(t *testing.T) {
	repo := noopUserRepo()
	boom := models.NewInternalError(errors.New("db down"))
	repo.credentialsFn = func(context.Context, string) (*models.User, error) { return nil, boom }
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Authenticate(context.Background(), "alice", "secret123")
	assert.ErrorIs(t, err, boom)
}

func TestUserService_DeleteUser(t *testing.T) {
	svc, db := newUserService(t, nil)
	ctx := context.Background()
	seedUser(t, db, "frank", nil, models.RoleMember)

	err := svc.DeleteUser(ctx, policy.Actor{ID: "frank", Role: models.RoleMember}, "frank")
	assertAppCode(t, err, models.CodeForbidden)

	require.NoError(t, svc.DeleteUser(ctx, adminActor(), "frank"))
	_, err = svc.GetUser(ctx, "frank")
	assertAppCode(t, err, models.CodeNotFound)
}

func TestTempPassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		p, err := TempPassword()
		require.NoError(t, err)
		assert.Regexp(t, `^[a-z0-9]{8}$`, p)
		seen[p] = true
	}
	assert.Greater(t, len(seen), 1)
}
