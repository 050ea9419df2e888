package server

import (
	"fmt"
	"time"

	"teamtrack/internal/cache"
	"teamtrack/internal/middleware"
	"teamtrack/internal/models"
	"teamtrack/internal/service"
	"teamtrack/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionTTL  = 24 * time.Hour
	rememberTTL = 30 * 24 * time.Hour
)

type registerRequest struct {
	ID       string `json:"id" validate:"required,userid"`
	Password string `json:"password" validate:"required,password"`
	Name     string `json:"name" validate:"required,max=100"`
	Cohort   string `json:"cohort" validate:"max=50"`
	TeamID   *uint  `json:"teamId"`
}

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create a member account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration"
// @Success 201 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		ID:       req.ID,
		Password: req.Password,
		Name:     req.Name,
		Cohort:   req.Cohort,
		TeamID:   req.TeamID,
	})
	if err != nil {
		return respondError(c, err)
	}

	token, _, err := s.generateToken(user.ID, sessionTTL)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

type loginRequest struct {
	ID         string `json:"id"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// Login handles POST /api/auth/login
// @Summary Login
// @Description Authenticate and return a bearer token; rememberMe also sets a 30-day cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} object{token=string,expiresAt=string,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.ID == "" || req.Password == "" {
		return badRequest(c, "id and password are required")
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.ID, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	ttl := sessionTTL
	if req.RememberMe {
		ttl = rememberTTL
	}
	token, expiresAt, err := s.generateToken(user.ID, ttl)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	if req.RememberMe {
		s.setAuthCookie(c, token, expiresAt)
	}

	return c.JSON(fiber.Map{
		"token":     token,
		"expiresAt": expiresAt,
		"user":      user,
	})
}

// AutoLogin handles GET /api/auth/auto-login
// @Summary Restore session
// @Description Return the user behind the auth cookie or bearer token
// @Tags auth
// @Produce json
// @Success 200 {object} object{user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/auto-login [get]
func (s *Server) AutoLogin(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), c.Locals("userID").(string))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// Logout handles DELETE /api/auth/auto-login
// @Summary Logout
// @Description Clear the auth cookie and revoke the presented token
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/auto-login [delete]
func (s *Server) Logout(c *fiber.Ctx) error {
	if tokenString, err := middleware.ExtractToken(c); err == nil {
		if claims, err := middleware.ParseToken(s.config.JWTSecret, tokenString); err == nil {
			ttl := time.Until(claims.ExpiresAt)
			if err := cache.Blacklist(c.UserContext(), claims.JTI, ttl); err != nil {
				middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token", "error", err)
			}
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"message": "Logged out"})
}

type changePasswordRequest struct {
	UserID          string `json:"userId"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword handles POST /api/auth/change-password
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body changePasswordRequest true "Passwords"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/change-password [post]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	actor := actorFrom(c)
	if req.UserID == "" {
		req.UserID = actor.ID
	}

	if err := s.userService.ChangePassword(c.UserContext(), actor, req.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password changed"})
}

type resetPasswordRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	VerifierName  string `json:"verifierName"`
	VerifierPhone string `json:"verifierPhone"`
}

// ResetPassword handles POST /api/auth/reset-password
// @Summary Reset password
// @Description Issue a temporary password after staff-contact verification
// @Tags auth
// @Accept json
// @Produce json
// @Param request body resetPasswordRequest true "Reset request"
// @Success 200 {object} object{tempPassword=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/reset-password [post]
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	temp, err := s.userService.ResetPassword(c.UserContext(), service.ResetPasswordInput{
		ID:            req.ID,
		Name:          req.Name,
		VerifierName:  req.VerifierName,
		VerifierPhone: req.VerifierPhone,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tempPassword": temp})
}

func (s *Server) setAuthCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// generateToken signs a token for userID valid for ttl.
func (s *Server) generateToken(userID string, ttl time.Duration) (string, time.Time, error) {
	if s.config.JWTSecret == "" {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": middleware.TokenIssuer,
		"aud": middleware.TokenAudience,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, time.Unix(expiresAt.Unix(), 0), nil
}
