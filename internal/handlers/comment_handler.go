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

// CommentHandler handles comment-related HTTP requests
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	userRepository    repositories.UserRepository
	notifier          *notify.Notifier
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	notifier *notify.Notifier,
) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		userRepository:    userRepo,
		notifier:          notifier,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:id/comments", h.AddComment)
	g.GET("/posts/:id/comments", h.GetComments)
}

// EnrichedComment is a comment with its author resolved
type EnrichedComment struct {
	models.Comment
	Author models.UserCompact `json:"author"`
}

// AddComment creates a comment and notifies the post author, unless they
// commented on their own post.
func (h *CommentHandler) AddComment(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	postID, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.Validation("comment content must be between 1 and 500 characters")
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: currentUserID,
		Content:  req.Content,
	}
	if err := h.commentRepository.CreateComment(c.Request().Context(), comment); err != nil {
		return err
	}

	username, _ := c.Get("username").(string)
	h.notifier.Emit(notify.Event{
		RecipientID: post.AuthorID.Hex(),
		SenderID:    currentUserID.Hex(),
		Type:        models.NotificationTypeComment,
		RefID:       postID.Hex(),
		Message:     username + " has commented on your post",
	})

	author, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID)
	view := EnrichedComment{Comment: *comment}
	if err == nil {
		view.Author = author.ToCompact()
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"comment": view}})
}

// GetComments returns a post's comments oldest first with authors resolved.
func (h *CommentHandler) GetComments(c echo.Context) error {
	postID, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.postRepository.GetPostByID(c.Request().Context(), postID); err != nil {
		return err
	}

	comments, err := h.commentRepository.ListByPost(c.Request().Context(), postID)
	if err != nil {
		return err
	}

	authorIDs := make([]primitive.ObjectID, 0, len(comments))
	seen := make(map[primitive.ObjectID]bool)
	for _, cm := range comments {
		if !seen[cm.AuthorID] {
			seen[cm.AuthorID] = true
			authorIDs = append(authorIDs, cm.AuthorID)
		}
	}
	profiles, err := h.userRepository.GetCompactByIDs(c.Request().Context(), authorIDs)
	if err != nil {
		return err
	}

	enriched := make([]EnrichedComment, len(comments))
	for i, cm := range comments {
		enriched[i] = EnrichedComment{Comment: cm, Author: profiles[cm.AuthorID]}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"comments": enriched}})
}
