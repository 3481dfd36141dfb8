package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/internal/notify"
	"github.com/sociuslabs/socius/backend/internal/repositories"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	userRepository repositories.UserRepository
	notifier       *notify.Notifier
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(userRepo repositories.UserRepository, notifier *notify.Notifier) *FollowHandler {
	return &FollowHandler{
		userRepository: userRepo,
		notifier:       notifier,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
}

// FollowUser follows a user. Both sides of the relationship are updated
// as one logical operation; the target is notified best-effort.
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	targetID, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	if currentUserID == targetID {
		return apperrors.SelfReference("you cannot follow yourself")
	}

	// Reject before any mutation when the target does not exist.
	if _, err := h.userRepository.GetUserByID(c.Request().Context(), targetID); err != nil {
		return err
	}

	if err := h.userRepository.Follow(c.Request().Context(), currentUserID, targetID); err != nil {
		return err
	}

	username, _ := c.Get("username").(string)
	h.notifier.Emit(notify.Event{
		RecipientID: targetID.Hex(),
		SenderID:    currentUserID.Hex(),
		Type:        models.NotificationTypeFollow,
		RefID:       currentUserID.Hex(),
		Message:     username + " has followed your account",
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
}

// UnfollowUser unfollows a user. No notification on unfollow.
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	targetID, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	if currentUserID == targetID {
		return apperrors.SelfReference("you cannot unfollow yourself")
	}

	if _, err := h.userRepository.GetUserByID(c.Request().Context(), targetID); err != nil {
		return err
	}

	if err := h.userRepository.Unfollow(c.Request().Context(), currentUserID, targetID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": false}})
}

// GetFollowers lists the compact profiles of a user's followers.
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	return h.listRelationSet(c, func(u *models.User) []primitive.ObjectID {
		return u.Followers
	})
}

// GetFollowing lists the compact profiles of the users someone follows.
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	return h.listRelationSet(c, func(u *models.User) []primitive.ObjectID {
		return u.Following
	})
}

func (h *FollowHandler) listRelationSet(c echo.Context, pick func(*models.User) []primitive.ObjectID) error {
	userID, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	memberIDs := pick(user)
	profiles, err := h.userRepository.GetCompactByIDs(c.Request().Context(), memberIDs)
	if err != nil {
		return err
	}

	users := make([]models.UserCompact, 0, len(memberIDs))
	for _, id := range memberIDs {
		if compact, ok := profiles[id]; ok {
			users = append(users, compact)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"users": users}})
}
