package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/internal/notify"
	"github.com/sociuslabs/socius/backend/internal/repositories"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"github.com/sociuslabs/socius/backend/pkg/blobstore"
	"github.com/sociuslabs/socius/backend/pkg/hashtags"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostHandler handles post-related HTTP requests
type PostHandler struct {
	postRepository repositories.PostRepository
	userRepository repositories.UserRepository
	blobStore      *blobstore.Store
	notifier       *notify.Notifier
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	blobStore *blobstore.Store,
	notifier *notify.Notifier,
) *PostHandler {
	return &PostHandler{
		postRepository: postRepo,
		userRepository: userRepo,
		blobStore:      blobStore,
		notifier:       notifier,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/hashtag/:tag", h.GetPostsByHashtag)
	g.GET("/posts/user/:userId", h.GetPostsByAuthor)
	g.GET("/posts/:id", h.GetPost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.POST("/posts/:id/like", h.ToggleLike)
}

// CreatePost creates a post. Hashtags are derived from the content and an
// optional multipart image goes through the blob store.
func (h *PostHandler) CreatePost(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	// Multipart form fallback: Bind only covers JSON bodies.
	if req.Title == "" {
		req.Title = c.FormValue("title")
		req.Content = c.FormValue("content")
	}
	if req.Title == "" || req.Content == "" {
		return apperrors.Validation("please enter title and content to proceed")
	}

	imagePath := ""
	if file, err := c.FormFile("image"); err == nil {
		src, err := file.Open()
		if err != nil {
			return apperrors.Storage("failed to read uploaded file", err)
		}
		defer src.Close()
		imagePath, err = h.blobStore.Save(file.Filename, file.Size, src)
		if err != nil {
			return err
		}
	}

	post := &models.Post{
		AuthorID: currentUserID,
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Hashtags: hashtags.Extract(req.Content),
		Image:    imagePath,
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return err
	}

	if err := h.userRepository.IncrementPostsCount(c.Request().Context(), currentUserID, 1); err != nil {
		c.Logger().Warnf("failed to increment posts count for %s: %v", currentUserID.Hex(), err)
	}

	author, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID)
	view := EnrichedPost{Post: *post}
	if err == nil {
		view.Author = author.ToCompact()
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"post": view}})
}

// GetPosts returns posts newest first with an optional keyword filter
// over title, content and tags.
func (h *PostHandler) GetPosts(c echo.Context) error {
	page, limit := parsePagination(c, 10, 50)
	skip := int64((page - 1) * limit)

	posts, total, err := h.postRepository.ListPosts(c.Request().Context(), c.QueryParam("search"), skip, int64(limit))
	if err != nil {
		return err
	}

	enriched, err := h.enrichPosts(c, posts)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"posts": enriched},
		"meta":    paginationMeta(page, limit, total),
	})
}

// GetPostsByHashtag returns posts carrying a hashtag, newest first. A
// leading '#' on the parameter is tolerated.
func (h *PostHandler) GetPostsByHashtag(c echo.Context) error {
	tag := strings.TrimPrefix(strings.TrimSpace(c.Param("tag")), "#")
	if tag == "" {
		return apperrors.Validation("hashtag is required")
	}

	page, limit := parsePagination(c, 10, 50)
	skip := int64((page - 1) * limit)

	posts, total, err := h.postRepository.ListByHashtag(c.Request().Context(), tag, skip, int64(limit))
	if err != nil {
		return err
	}

	enriched, err := h.enrichPosts(c, posts)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"posts": enriched, "hashtag": strings.ToLower(tag)},
		"meta":    paginationMeta(page, limit, total),
	})
}

// GetPostsByAuthor returns a single user's posts, newest first.
func (h *PostHandler) GetPostsByAuthor(c echo.Context) error {
	authorID, err := parseObjectIDParam(c, "userId")
	if err != nil {
		return err
	}

	if _, err := h.userRepository.GetUserByID(c.Request().Context(), authorID); err != nil {
		return err
	}

	page, limit := parsePagination(c, 10, 50)
	skip := int64((page - 1) * limit)

	posts, total, err := h.postRepository.ListByAuthors(c.Request().Context(), []primitive.ObjectID{authorID}, skip, int64(limit))
	if err != nil {
		return err
	}

	enriched, err := h.enrichPosts(c, posts)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"posts": enriched},
		"meta":    paginationMeta(page, limit, total),
	})
}

// GetPost returns a single post and bumps its view counter.
func (h *PostHandler) GetPost(c echo.Context) error {
	postID, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return err
	}

	if err := h.postRepository.IncrementViews(c.Request().Context(), postID); err != nil {
		c.Logger().Warnf("failed to increment views for %s: %v", postID.Hex(), err)
	} else {
		post.Views++
	}

	enriched, err := h.enrichPosts(c, []models.Post{*post})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"post": enriched[0]}})
}

// UpdatePost updates a post. Only its author may do so; hashtags are
// recomputed when the content changes.
func (h *PostHandler) UpdatePost(c echo.Context) error {
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
	if post.AuthorID != currentUserID {
		return apperrors.NotAuthorized("not authorized to update this post")
	}

	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.Validation("invalid post fields")
	}

	fields := bson.M{}
	if req.Title != "" {
		fields["title"] = req.Title
	}
	if req.Content != "" {
		fields["content"] = req.Content
		fields["hashtags"] = hashtags.Extract(req.Content)
	}
	if req.Tags != nil {
		fields["tags"] = req.Tags
	}
	if len(fields) == 0 {
		return apperrors.Validation("nothing to update")
	}

	if err := h.postRepository.UpdatePost(c.Request().Context(), postID, fields); err != nil {
		return err
	}

	updated, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return err
	}
	enriched, err := h.enrichPosts(c, []models.Post{*updated})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"post": enriched[0]}})
}

// DeletePost removes a post. Only its author may do so.
func (h *PostHandler) DeletePost(c echo.Context) error {
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
	if post.AuthorID != currentUserID {
		return apperrors.NotAuthorized("not authorized to delete this post")
	}

	if err := h.postRepository.DeletePost(c.Request().Context(), postID); err != nil {
		return err
	}

	if err := h.userRepository.IncrementPostsCount(c.Request().Context(), currentUserID, -1); err != nil {
		c.Logger().Warnf("failed to decrement posts count for %s: %v", currentUserID.Hex(), err)
	}
	if post.Image != "" {
		if err := h.blobStore.Remove(post.Image); err != nil {
			c.Logger().Warnf("failed to remove image for %s: %v", postID.Hex(), err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"message": "post deleted successfully"}})
}

// ToggleLike likes the post, or unlikes it if the caller had already
// liked it. A like on someone else's post notifies the author; liking
// your own post never does.
func (h *PostHandler) ToggleLike(c echo.Context) error {
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

	added, err := h.postRepository.Like(c.Request().Context(), postID, currentUserID)
	if err != nil {
		return err
	}

	if !added {
		// Already liked: toggle off.
		if err := h.postRepository.Unlike(c.Request().Context(), postID, currentUserID); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": false}})
	}

	username, _ := c.Get("username").(string)
	h.notifier.Emit(notify.Event{
		RecipientID: post.AuthorID.Hex(),
		SenderID:    currentUserID.Hex(),
		Type:        models.NotificationTypeLike,
		RefID:       postID.Hex(),
		Message:     username + " has liked your post",
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": true}})
}

func (h *PostHandler) enrichPosts(c echo.Context, posts []models.Post) ([]EnrichedPost, error) {
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
		return nil, err
	}

	enriched := make([]EnrichedPost, len(posts))
	for i, p := range posts {
		enriched[i] = EnrichedPost{Post: p, Author: profiles[p.AuthorID]}
	}
	return enriched, nil
}
