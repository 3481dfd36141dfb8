package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedHandler composes the home timeline from the caller's following set.
type FeedHandler struct {
	postRepository repositories.PostRepository
	userRepository repositories.UserRepository
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(postRepo repositories.PostRepository, userRepo repositories.UserRepository) *FeedHandler {
	return &FeedHandler{
		postRepository: postRepo,
		userRepository: userRepo,
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// EnrichedPost is a post with its author resolved
type EnrichedPost struct {
	models.Post
	Author models.UserCompact `json:"author"`
}

// GetFeed returns posts by followed users, newest first. An empty
// following set yields an empty page with an explanatory message, not an
// error.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID)
	if err != nil {
		return err
	}

	page, limit := parsePagination(c, 10, 50)

	if len(user.Following) == 0 {
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"data": echo.Map{
				"posts":   []EnrichedPost{},
				"message": "Follow people to see their posts in your feed.",
			},
			"meta": paginationMeta(page, limit, 0),
		})
	}

	skip := int64((page - 1) * limit)
	posts, total, err := h.postRepository.ListByAuthors(c.Request().Context(), user.Following, skip, int64(limit))
	if err != nil {
		return err
	}

	authorIDs := make([]primitive.ObjectID, 0, len(posts))
	seen := make(map[primitive.ObjectID]bool)
	for _, p := range posts {
		if !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}
	profiles, err := h.userRepository.GetCompactByIDs(c.Request().Context(), authorIDs)
	if err != nil {
		return err
	}

	enrichedPosts := make([]EnrichedPost, len(posts))
	for i, p := range posts {
		enrichedPosts[i] = EnrichedPost{Post: p, Author: profiles[p.AuthorID]}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"posts": enrichedPosts},
		"meta":    paginationMeta(page, limit, total),
	})
}
