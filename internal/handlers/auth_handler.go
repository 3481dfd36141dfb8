package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/internal/repositories"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"github.com/sociuslabs/socius/backend/pkg/mailer"
	"golang.org/x/crypto/bcrypt"
)

const tokenValidity = time.Hour

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebaseAuth   *firebaseauth.Client
	mailer         mailer.Mailer
	jwtSecret      string
	baseURL        string
}

// NewAuthHandler creates a new AuthHandler. firebaseAuthClient may be nil
// when the Firebase login path is not configured.
func NewAuthHandler(userRepo repositories.UserRepository, firebaseAuthClient *firebaseauth.Client, m mailer.Mailer, jwtSecret, baseURL string) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		firebaseAuth:   firebaseAuthClient,
		mailer:         m,
		jwtSecret:      jwtSecret,
		baseURL:        baseURL,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/forgot-password", h.ForgotPassword)
	g.PUT("/reset-password/:token", h.ResetPassword)
	if h.firebaseAuth != nil {
		g.POST("/firebase-login", h.FirebaseLogin)
	}
}

// RegisterMeRoute registers the authenticated self-lookup route.
func (h *AuthHandler) RegisterMeRoute(g *echo.Group) {
	g.GET("/auth/me", h.Me)
}

// Register handles user registration with email and password
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.Validation("please enter all the fields")
	}

	if _, err := h.userRepository.GetUserByEmail(c.Request().Context(), req.Email); err == nil {
		return apperrors.ErrEmailTaken
	}
	if _, err := h.userRepository.GetUserByUsername(c.Request().Context(), req.Username); err == nil {
		return apperrors.ErrUsernameTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Storage("failed to hash password", err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(c.Request().Context(), user); err != nil {
		return err
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return apperrors.Storage("failed to generate token", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data": echo.Map{
			"token": token,
			"user":  user.ToCompact(),
		},
	})
}

// Login handles user authentication with email and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.Validation("please enter all the fields")
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		return apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return apperrors.ErrAccountDeactivated
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return apperrors.Storage("failed to generate token", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"token": token,
			"user":  user.ToCompact(),
		},
	})
}

// Me returns the authenticated user's own profile.
func (h *AuthHandler) Me(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"user": user}})
}

// ForgotPassword issues a one-time reset token and mails it. The response
// never reveals whether the email exists. If mail delivery fails the
// token is rolled back so no orphaned token remains valid.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req models.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.Validation("please provide an email address")
	}

	neutral := echo.Map{
		"success": true,
		"data":    echo.Map{"message": "If an account with that email exists, a password reset link has been sent."},
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		return c.JSON(http.StatusOK, neutral)
	}

	rawToken := make([]byte, 20)
	if _, err := rand.Read(rawToken); err != nil {
		return apperrors.Storage("failed to generate reset token", err)
	}
	token := hex.EncodeToString(rawToken)
	tokenHash := hashResetToken(token)

	if err := h.userRepository.SetResetToken(c.Request().Context(), user.ID, tokenHash, time.Now().Add(tokenValidity)); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/api/v1/auth/reset-password/%s", h.baseURL, token)
	body := fmt.Sprintf(
		"You are receiving this email because a password reset was requested for your account.\n\n%s\n\nThis token is valid for 1 hour.",
		resetURL,
	)
	if err := h.mailer.Send(user.Email, "Password Reset Token", body); err != nil {
		if clearErr := h.userRepository.ClearResetToken(c.Request().Context(), user.ID); clearErr != nil {
			c.Logger().Errorf("failed to roll back reset token for %s: %v", user.ID.Hex(), clearErr)
		}
		return err
	}

	return c.JSON(http.StatusOK, neutral)
}

// ResetPassword consumes a reset token and sets a new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req models.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.Validation("password must be at least 8 characters")
	}

	tokenHash := hashResetToken(c.Param("token"))
	user, err := h.userRepository.GetUserByResetToken(c.Request().Context(), tokenHash)
	if err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Storage("failed to hash password", err)
	}

	if err := h.userRepository.UpdatePassword(c.Request().Context(), user.ID, string(hashedPassword)); err != nil {
		return err
	}
	if err := h.userRepository.ClearResetToken(c.Request().Context(), user.ID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"message": "password reset successfully"}})
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token, finds or creates the local
// account for its email, and issues a local JWT.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.Validation("idToken is required")
	}

	token, err := h.firebaseAuth.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return apperrors.Unauthorized("invalid Firebase ID token")
	}

	email, _ := token.Claims["email"].(string)
	if email == "" {
		return apperrors.Unauthorized("Firebase token carries no email")
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), email)
	if err != nil {
		name, _ := token.Claims["name"].(string)
		if name == "" {
			name = email
		}
		user = &models.User{
			Username: name,
			Email:    email,
			Password: "-", // no local credential for Firebase accounts
		}
		if err := h.userRepository.CreateUser(c.Request().Context(), user); err != nil {
			return err
		}
	}

	localToken, err := h.generateJWT(user)
	if err != nil {
		return apperrors.Storage("failed to generate token", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"token": localToken,
			"user":  user.ToCompact(),
		},
	})
}

func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID:   user.ID.Hex(),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenValidity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
