// Package service provides application business logic for users, teams,
// progress, chat and avatars.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"unicode/utf8"

	"teamtrack/internal/models"
	"teamtrack/internal/observability"
	"teamtrack/internal/policy"
	"teamtrack/internal/repository"
	"teamtrack/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxNameLen    = 100
	maxCohortLen  = 50
	tempPassLen   = 8
	tempPassChars = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var errBadCredentials = models.NewUnauthorizedError("Invalid id or password")

// UserService owns registration, authentication and profile changes.
type UserService struct {
	userRepo repository.UserRepository
	teamRepo repository.TeamRepository
	verifier ResetVerifier
	hashCost int
}

// NewUserService returns a UserService. A nil verifier rejects every reset.
func NewUserService(userRepo repository.UserRepository, teamRepo repository.TeamRepository, verifier ResetVerifier) *UserService {
	if verifier == nil {
		verifier = NewStaticVerifier("", "")
	}
	return &UserService{
		userRepo: userRepo,
		teamRepo: teamRepo,
		verifier: verifier,
		hashCost: bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.hashCost = cost
	return s
}

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	ID       string
	Password string
	Name     string
	Cohort   string
	TeamID   *uint
}

// CreateUserInput is the admin create payload.
type CreateUserInput struct {
	RegisterInput
	Role models.Role
}

// UpdateUserInput carries optional profile fields. TeamSet distinguishes
// "clear the team" (TeamSet with nil TeamID) from "leave it alone".
type UpdateUserInput struct {
	Name     *string
	Cohort   *string
	Avatar   *string
	Password *string
	Role     *models.Role
	TeamSet  bool
	TeamID   *uint
}

// Register creates a member account with the default avatar.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, models.RoleMember)
}

// CreateUser lets an admin create an account with any role.
func (s *UserService) CreateUser(ctx context.Context, actor policy.Actor, in CreateUserInput) (*models.User, error) {
	if !policy.CanManageUsers(actor) {
		return nil, models.NewForbiddenError("Only admins can create users")
	}
	role := in.Role
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, models.NewValidationError("Invalid role")
	}
	return s.create(ctx, in.RegisterInput, role)
}

func (s *UserService) create(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Cohort = strings.TrimSpace(in.Cohort)

	if err := validation.ValidateUserID(in.ID); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validateProfileText(in.Name, in.Cohort); err != nil {
		return nil, err
	}
	if err := s.ensureTeam(ctx, in.TeamID); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:       in.ID,
		Password: hash,
		Name:     in.Name,
		Cohort:   in.Cohort,
		TeamID:   in.TeamID,
		Avatar:   models.DefaultAvatar,
		Role:     role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	observability.AuthEvents.WithLabelValues("register").Inc()
	return s.userRepo.GetByID(ctx, user.ID)
}

// Authenticate checks id and password. Unknown ids and wrong passwords return the same error.
func (s *UserService) Authenticate(ctx context.Context, id, password string) (*models.User, error) {
	user, err := s.userRepo.GetCredentials(ctx, strings.TrimSpace(id))
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			observability.AuthEvents.WithLabelValues("login_failed").Inc()
			return nil, errBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return nil, errBadCredentials
	}
	observability.AuthEvents.WithLabelValues("login").Inc()
	return user, nil
}

// GetUser returns one user with their team.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers returns every user ordered by id.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.List(ctx)
}

// ListByRole returns users holding role.
func (s *UserService) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	return s.userRepo.ListByRole(ctx, role)
}

// UpdateUser applies a partial update. Profile fields need self or admin;
// role and team changes need admin.
func (s *UserService) UpdateUser(ctx context.Context, actor policy.Actor, id string, in UpdateUserInput) (*models.User, error) {
	if !policy.CanEditProfile(actor, id) {
		return nil, models.NewForbiddenError("You can only edit your own profile")
	}
	if (in.Role != nil || in.TeamSet) && !policy.CanChangeRole(actor) {
		return nil, models.NewForbiddenError("Only admins can change roles or teams")
	}
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateProfileText(name, ""); err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if in.Cohort != nil {
		cohort := strings.TrimSpace(*in.Cohort)
		if utf8.RuneCountInString(cohort) > maxCohortLen {
			return nil, models.NewValidationError("cohort must be at most 50 characters")
		}
		fields["cohort"] = cohort
	}
	if in.Avatar != nil {
		fields["avatar"] = strings.TrimSpace(*in.Avatar)
	}
	if in.Password != nil {
		if err := validation.ValidatePassword(*in.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hash, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		fields["password"] = hash
		fields["password_reset_pending"] = false
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, models.NewValidationError("Invalid role")
		}
		fields["role"] = *in.Role
	}
	if in.TeamSet {
		if err := s.ensureTeam(ctx, in.TeamID); err != nil {
			return nil, err
		}
		fields["team_id"] = in.TeamID
	}

	if len(fields) == 0 {
		return s.userRepo.GetByID(ctx, id)
	}
	if err := s.userRepo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, id)
}

// ChangeRole sets a user's role. Admin only.
func (s *UserService) ChangeRole(ctx context.Context, actor policy.Actor, id string, role models.Role) (*models.User, error) {
	return s.UpdateUser(ctx, actor, id, UpdateUserInput{Role: &role})
}

// DeleteUser removes a user and their progress and chat history. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, actor policy.Actor, id string) error {
	if !policy.CanManageUsers(actor) {
		return models.NewForbiddenError("Only admins can delete users")
	}
	return s.userRepo.Delete(ctx, id)
}

// ChangePassword replaces a password and clears the pending-reset mark.
// Users changing their own password must present the current one.
func (s *UserService) ChangePassword(ctx context.Context, actor policy.Actor, id, current, next string) error {
	if !policy.CanEditProfile(actor, id) {
		return models.NewForbiddenError("You can only change your own password")
	}
	user, err := s.userRepo.GetCredentials(ctx, id)
	if err != nil {
		return err
	}
	if actor.ID == id {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
			return models.NewUnauthorizedError("Current password is incorrect")
		}
	}
	if err := validation.ValidatePassword(next); err != nil {
		return models.NewValidationError(err.Error())
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateFields(ctx, id, map[string]interface{}{
		"password":               hash,
		"password_reset_pending": false,
	})
}

// ResetPasswordInput is the public reset request.
type ResetPasswordInput struct {
	ID            string
	Name          string
	VerifierName  string
	VerifierPhone string
}

// ResetPassword issues a temporary password once the verifier accepts the
// request and the id and name match a user.
func (s *UserService) ResetPassword(ctx context.Context, in ResetPasswordInput) (string, error) {
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.Name) == "" {
		return "", models.NewValidationError("id and name are required")
	}
	if !s.verifier.Verify(ctx, in.VerifierName, in.VerifierPhone) {
		return "", models.NewForbiddenError("Verification failed")
	}

	user, err := s.userRepo.GetByID(ctx, strings.TrimSpace(in.ID))
	if err != nil {
		return "", err
	}
	if user.Name != strings.TrimSpace(in.Name) {
		return "", models.NewNotFoundError("User", in.ID)
	}

	return s.issueTempPassword(ctx, user.ID)
}

// IssueTempPassword replaces id's password with a temporary one and flags
// the account for a password change. Admin only.
func (s *UserService) IssueTempPassword(ctx context.Context, actor policy.Actor, id string) (string, error) {
	if !policy.CanManageUsers(actor) {
		return "", models.NewForbiddenError("Only admins can reset passwords")
	}
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return "", err
	}
	return s.issueTempPassword(ctx, id)
}

func (s *UserService) issueTempPassword(ctx context.Context, id string) (string, error) {
	temp, err := TempPassword()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	hash, err := s.hash(temp)
	if err != nil {
		return "", err
	}
	err = s.userRepo.UpdateFields(ctx, id, map[string]interface{}{
		"password":               hash,
		"password_reset_pending": true,
	})
	if err != nil {
		return "", err
	}
	observability.AuthEvents.WithLabelValues("password_reset").Inc()
	return temp, nil
}

// TempPassword returns 8 random characters from [a-z0-9].
func TempPassword() (string, error) {
	max := big.NewInt(int64(len(tempPassChars)))
	var b strings.Builder
	for i := 0; i < tempPassLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(tempPassChars[n.Int64()])
	}
	return b.String(), nil
}

func (s *UserService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", models.NewValidationError("password is too long")
		}
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}

func (s *UserService) ensureTeam(ctx context.Context, teamID *uint) error {
	if teamID == nil {
		return nil
	}
	if _, err := s.teamRepo.GetByID(ctx, *teamID); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewValidationError("team does not exist")
		}
		return err
	}
	return nil
}

func validateProfileText(name, cohort string) error {
	if name == "" {
		return models.NewValidationError("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return models.NewValidationError("name must be at most 100 characters")
	}
	if utf8.RuneCountInString(cohort) > maxCohortLen {
		return models.NewValidationError("cohort must be at most 50 characters")
	}
	return nil
}
