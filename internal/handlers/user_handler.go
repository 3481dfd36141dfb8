package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/internal/repositories"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"github.com/sociuslabs/socius/backend/pkg/blobstore"
	"go.mongodb.org/mongo-driver/bson"
)

// UserHandler handles profile and user-lookup HTTP requests
type UserHandler struct {
	userRepository repositories.UserRepository
	blobStore      *blobstore.Store
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, blobStore *blobstore.Store) *UserHandler {
	return &UserHandler{
		userRepository: userRepo,
		blobStore:      blobStore,
	}
}

// RegisterUserRoutes registers profile and user-lookup routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/username/:username", h.GetUserByUsername)
	g.GET("/users/:id", h.GetUser)
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.POST("/profile/picture", h.UploadProfilePicture)
	g.DELETE("/profile", h.DeactivateAccount)
}

// PublicProfile is the user document as exposed to other users: no email,
// follower/following reduced to counts.
type PublicProfile struct {
	ID             string            `json:"id"`
	Username       string            `json:"username"`
	Bio            string            `json:"bio,omitempty"`
	ProfilePicture string            `json:"profile_picture,omitempty"`
	SocialLinks    map[string]string `json:"social_links,omitempty"`
	FollowersCount int               `json:"followers_count"`
	FollowingCount int               `json:"following_count"`
	PostsCount     int               `json:"posts_count"`
}

func toPublicProfile(u *models.User) PublicProfile {
	return PublicProfile{
		ID:             u.ID.Hex(),
		Username:       u.Username,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		SocialLinks:    u.SocialLinks,
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
		PostsCount:     u.PostsCount,
	}
}

// GetUser returns another user's public profile.
func (h *UserHandler) GetUser(c echo.Context) error {
	userID, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return apperrors.ErrUserNotFound
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"user": toPublicProfile(user)}})
}

// GetUserByUsername returns a public profile looked up by exact username.
func (h *UserHandler) GetUserByUsername(c echo.Context) error {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return apperrors.Validation("username is required")
	}

	user, err := h.userRepository.GetUserByUsername(c.Request().Context(), username)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return apperrors.ErrUserNotFound
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"user": toPublicProfile(user)}})
}

// GetProfile returns the caller's own full profile.
func (h *UserHandler) GetProfile(c echo.Context) error {
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

// UpdateProfile applies a partial update to the caller's profile.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.Validation("invalid profile fields")
	}

	fields := bson.M{}
	if req.Username != "" {
		fields["username"] = req.Username
	}
	if req.Email != "" {
		fields["email"] = req.Email
	}
	if req.Bio != "" {
		fields["bio"] = req.Bio
	}
	if req.SocialLinks != nil {
		fields["social_links"] = req.SocialLinks
	}
	if len(fields) == 0 {
		return apperrors.Validation("nothing to update")
	}

	if err := h.userRepository.UpdateProfile(c.Request().Context(), currentUserID, fields); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"user": user}})
}

// UploadProfilePicture stores a new avatar through the blob store and
// removes the previous one.
func (h *UserHandler) UploadProfilePicture(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("picture")
	if err != nil {
		return apperrors.Validation("please attach a picture")
	}
	src, err := file.Open()
	if err != nil {
		return apperrors.Storage("failed to read uploaded file", err)
	}
	defer src.Close()

	path, err := h.blobStore.Save(file.Filename, file.Size, src)
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID)
	if err != nil {
		return err
	}

	if err := h.userRepository.UpdateProfile(c.Request().Context(), currentUserID, bson.M{"profile_picture": path}); err != nil {
		return err
	}

	if user.ProfilePicture != "" {
		if err := h.blobStore.Remove(user.ProfilePicture); err != nil {
			c.Logger().Warnf("failed to remove old profile picture for %s: %v", currentUserID.Hex(), err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"profile_picture": path}})
}

// DeactivateAccount soft-deactivates the caller's account. The documents
// stay in place so references from posts and messages keep resolving.
func (h *UserHandler) DeactivateAccount(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	if err := h.userRepository.Deactivate(c.Request().Context(), currentUserID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"message": "account deactivated"}})
}

// SearchUsers finds users by username or email fragment.
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return apperrors.Validation("search query is required")
	}

	users, err := h.userRepository.SearchUsers(c.Request().Context(), query)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"users": users}})
}
