package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"github.com/sociuslabs/socius/backend/validators"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. They reproduce the set semantics of the
// Mongo/Postgres implementations so handler behavior can be verified
// without a running database.

type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.User
	// when set, Follow/Unfollow fail after validation with this error
	failGraphWrite error
	// when set, the target document disappears between the two graph
	// writes; the first write is compensated and the graph stays intact
	vanishTarget bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) seed(username string) *models.User {
	u := &models.User{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Email:     username + "@example.com",
		IsActive:  true,
		Followers: []primitive.ObjectID{},
		Following: []primitive.ObjectID{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return apperrors.AlreadyExists("username or email already exists")
		}
	}
	user.ID = primitive.NewObjectID()
	user.IsActive = true
	user.Followers = []primitive.ObjectID{}
	user.Following = []primitive.ObjectID{}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, id primitive.ObjectID, fields bson.M) error {
	u, ok := r.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if v, ok := fields["username"].(string); ok {
		u.Username = v
	}
	if v, ok := fields["email"].(string); ok {
		u.Email = v
	}
	if v, ok := fields["bio"].(string); ok {
		u.Bio = v
	}
	if v, ok := fields["profile_picture"].(string); ok {
		u.ProfilePicture = v
	}
	if v, ok := fields["social_links"].(map[string]string); ok {
		u.SocialLinks = v
	}
	if v, ok := fields["is_active"].(bool); ok {
		u.IsActive = v
	}
	if v, ok := fields["password"].(string); ok {
		u.Password = v
	}
	return nil
}

func (r *fakeUserRepo) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	return r.UpdateProfile(ctx, id, bson.M{"is_active": false})
}

func (r *fakeUserRepo) SearchUsers(_ context.Context, query string) ([]models.UserCompact, error) {
	q := strings.ToLower(query)
	var out []models.UserCompact
	for _, u := range r.users {
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u.ToCompact())
		}
	}
	return out, nil
}

func (r *fakeUserRepo) GetCompactByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserCompact, error) {
	out := make(map[primitive.ObjectID]models.UserCompact, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u.ToCompact()
		}
	}
	return out, nil
}

func contains(set []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

func remove(set []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := set[:0]
	for _, s := range set {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}

func (r *fakeUserRepo) Follow(_ context.Context, actorID, targetID primitive.ObjectID) error {
	actor, ok := r.users[actorID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	target, ok := r.users[targetID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if contains(actor.Following, targetID) {
		return apperrors.ErrAlreadyFollowing
	}
	if r.failGraphWrite != nil {
		return r.failGraphWrite
	}
	if r.vanishTarget {
		return apperrors.ErrUserNotFound
	}
	actor.Following = append(actor.Following, targetID)
	target.Followers = append(target.Followers, actorID)
	return nil
}

func (r *fakeUserRepo) Unfollow(_ context.Context, actorID, targetID primitive.ObjectID) error {
	actor, ok := r.users[actorID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	target, ok := r.users[targetID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if !contains(actor.Following, targetID) {
		return apperrors.ErrNotFollowingUser
	}
	if r.failGraphWrite != nil {
		return r.failGraphWrite
	}
	if r.vanishTarget {
		return apperrors.ErrUserNotFound
	}
	actor.Following = remove(actor.Following, targetID)
	target.Followers = remove(target.Followers, actorID)
	return nil
}

func (r *fakeUserRepo) IncrementPostsCount(_ context.Context, id primitive.ObjectID, delta int) error {
	if u, ok := r.users[id]; ok {
		u.PostsCount += delta
	}
	return nil
}

func (r *fakeUserRepo) SetResetToken(_ context.Context, id primitive.ObjectID, tokenHash string, expire time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.ResetPasswordToken = tokenHash
	u.ResetPasswordExpire = expire
	return nil
}

func (r *fakeUserRepo) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	if u, ok := r.users[id]; ok {
		u.ResetPasswordToken = ""
		u.ResetPasswordExpire = time.Time{}
	}
	return nil
}

func (r *fakeUserRepo) GetUserByResetToken(_ context.Context, tokenHash string) (*models.User, error) {
	for _, u := range r.users {
		if u.ResetPasswordToken == tokenHash && u.ResetPasswordExpire.After(time.Now()) {
			return u, nil
		}
	}
	return nil, apperrors.ErrResetTokenInvalid
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	return r.UpdateProfile(ctx, id, bson.M{"password": passwordHash})
}

type fakeConversationRepo struct {
	conversations map[primitive.ObjectID]*models.Conversation
	clock         int64
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: make(map[primitive.ObjectID]*models.Conversation)}
}

func (r *fakeConversationRepo) tick() time.Time {
	r.clock++
	return time.Unix(1700000000+r.clock, 0)
}

func (r *fakeConversationRepo) FindOrCreate(_ context.Context, userA, userB primitive.ObjectID) (*models.Conversation, error) {
	pair := models.CanonicalPair(userA, userB)
	for _, conv := range r.conversations {
		if conv.Participants[0] == pair[0] && conv.Participants[1] == pair[1] {
			if conv.DeletedFor(userA) {
				conv.DeletedBy = remove(conv.DeletedBy, userA)
			}
			return conv, nil
		}
	}
	now := r.tick()
	conv := &models.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: pair,
		DeletedBy:    []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.conversations[conv.ID] = conv
	return conv, nil
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	conv, ok := r.conversations[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	return conv, nil
}

func (r *fakeConversationRepo) ListForUser(_ context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, conv := range r.conversations {
		if conv.HasParticipant(userID) && !conv.DeletedFor(userID) {
			out = append(out, *conv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeConversationRepo) SoftDelete(_ context.Context, userID, conversationID primitive.ObjectID) error {
	conv, ok := r.conversations[conversationID]
	if !ok {
		return apperrors.ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return apperrors.ErrNotParticipant
	}
	if !conv.DeletedFor(userID) {
		conv.DeletedBy = append(conv.DeletedBy, userID)
	}
	return nil
}

func (r *fakeConversationRepo) SetLastMessage(_ context.Context, conversationID, messageID primitive.ObjectID) error {
	conv, ok := r.conversations[conversationID]
	if !ok {
		return apperrors.ErrConversationNotFound
	}
	conv.LastMessage = &messageID
	conv.UpdatedAt = r.tick()
	return nil
}

type fakeMessageRepo struct {
	messages []*models.Message
	clock    int64
}

func newFakeMessageRepo() *fakeMessageRepo { return &fakeMessageRepo{} }

func (r *fakeMessageRepo) CreateMessage(_ context.Context, message *models.Message) error {
	r.clock++
	message.ID = primitive.NewObjectID()
	if message.ReadBy == nil {
		message.ReadBy = []primitive.ObjectID{}
	}
	message.CreatedAt = time.Unix(1700000000+r.clock, 0)
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, apperrors.NotFound("message not found")
}

func (r *fakeMessageRepo) ListByConversation(_ context.Context, conversationID primitive.ObjectID, skip, limit int64) ([]models.Message, error) {
	var all []models.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			all = append(all, *m)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.Hex() < all[j].ID.Hex()
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if skip >= int64(len(all)) {
		return nil, nil
	}
	all = all[skip:]
	if limit < int64(len(all)) {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeMessageRepo) CountByConversation(_ context.Context, conversationID primitive.ObjectID) (int64, error) {
	var n int64
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			n++
		}
	}
	return n, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, conversationID, readerID primitive.ObjectID) error {
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.SenderID != readerID && !m.ReadByUser(readerID) {
			m.ReadBy = append(m.ReadBy, readerID)
		}
	}
	return nil
}

type fakeNotificationRepo struct {
	notifications []*models.Notification
	nextID        uint
	failCreate    error
}

func newFakeNotificationRepo() *fakeNotificationRepo { return &fakeNotificationRepo{} }

func (r *fakeNotificationRepo) CreateNotification(notification *models.Notification) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.nextID++
	notification.ID = r.nextID
	notification.CreatedAt = time.Unix(1700000000+int64(r.nextID), 0)
	r.notifications = append(r.notifications, notification)
	return nil
}

func (r *fakeNotificationRepo) forRecipient(recipientID string) []*models.Notification {
	var out []*models.Notification
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

func (r *fakeNotificationRepo) GetByRecipientID(recipientID string, page, limit int) ([]models.Notification, int64, error) {
	mine := r.forRecipient(recipientID)
	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })

	total := int64(len(mine))
	offset := (page - 1) * limit
	if offset >= len(mine) {
		return nil, total, nil
	}
	mine = mine[offset:]
	if limit < len(mine) {
		mine = mine[:limit]
	}
	out := make([]models.Notification, len(mine))
	for i, n := range mine {
		out[i] = *n
	}
	return out, total, nil
}

func (r *fakeNotificationRepo) GetUnreadCount(recipientID string) (int64, error) {
	var n int64
	for _, notif := range r.forRecipient(recipientID) {
		if !notif.Read {
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) MarkAsRead(recipientID string, notificationID uint) error {
	for _, n := range r.notifications {
		if n.ID == notificationID && n.RecipientID == recipientID {
			n.Read = true
			return nil
		}
	}
	return apperrors.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) MarkAllAsRead(recipientID string) error {
	for _, n := range r.forRecipient(recipientID) {
		n.Read = true
	}
	return nil
}

type fakePostRepo struct {
	posts []*models.Post
	clock int64
}

func newFakePostRepo() *fakePostRepo { return &fakePostRepo{} }

func (r *fakePostRepo) CreatePost(_ context.Context, post *models.Post) error {
	r.clock++
	post.ID = primitive.NewObjectID()
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}
	post.Likes = []primitive.ObjectID{}
	post.CreatedAt = time.Unix(1700000000+r.clock, 0)
	post.UpdatedAt = post.CreatedAt
	r.posts = append(r.posts, post)
	return nil
}

func (r *fakePostRepo) GetPostByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	for _, p := range r.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperrors.ErrPostNotFound
}

func (r *fakePostRepo) listSorted(match func(*models.Post) bool, skip, limit int64) ([]models.Post, int64) {
	var all []models.Post
	for _, p := range r.posts {
		if match(p) {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if skip >= total {
		return nil, total
	}
	all = all[skip:]
	if limit < int64(len(all)) {
		all = all[:limit]
	}
	return all, total
}

func (r *fakePostRepo) ListPosts(_ context.Context, keyword string, skip, limit int64) ([]models.Post, int64, error) {
	kw := strings.ToLower(keyword)
	posts, total := r.listSorted(func(p *models.Post) bool {
		if kw == "" {
			return true
		}
		return strings.Contains(strings.ToLower(p.Title), kw) || strings.Contains(strings.ToLower(p.Content), kw)
	}, skip, limit)
	return posts, total, nil
}

func (r *fakePostRepo) ListByAuthors(_ context.Context, authorIDs []primitive.ObjectID, skip, limit int64) ([]models.Post, int64, error) {
	posts, total := r.listSorted(func(p *models.Post) bool {
		return contains(authorIDs, p.AuthorID)
	}, skip, limit)
	return posts, total, nil
}

func (r *fakePostRepo) ListByHashtag(_ context.Context, tag string, skip, limit int64) ([]models.Post, int64, error) {
	want := strings.ToLower(tag)
	posts, total := r.listSorted(func(p *models.Post) bool {
		for _, h := range p.Hashtags {
			if h == want {
				return true
			}
		}
		return false
	}, skip, limit)
	return posts, total, nil
}

func (r *fakePostRepo) UpdatePost(_ context.Context, id primitive.ObjectID, fields bson.M) error {
	for _, p := range r.posts {
		if p.ID == id {
			if v, ok := fields["title"].(string); ok {
				p.Title = v
			}
			if v, ok := fields["content"].(string); ok {
				p.Content = v
			}
			if v, ok := fields["hashtags"].([]string); ok {
				p.Hashtags = v
			}
			if v, ok := fields["tags"].([]string); ok {
				p.Tags = v
			}
			return nil
		}
	}
	return apperrors.ErrPostNotFound
}

func (r *fakePostRepo) DeletePost(_ context.Context, id primitive.ObjectID) error {
	for i, p := range r.posts {
		if p.ID == id {
			r.posts = append(r.posts[:i], r.posts[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrPostNotFound
}

func (r *fakePostRepo) IncrementViews(_ context.Context, id primitive.ObjectID) error {
	for _, p := range r.posts {
		if p.ID == id {
			p.Views++
			return nil
		}
	}
	return apperrors.ErrPostNotFound
}

func (r *fakePostRepo) Like(_ context.Context, postID, userID primitive.ObjectID) (bool, error) {
	for _, p := range r.posts {
		if p.ID == postID {
			if contains(p.Likes, userID) {
				return false, nil
			}
			p.Likes = append(p.Likes, userID)
			return true, nil
		}
	}
	return false, apperrors.ErrPostNotFound
}

func (r *fakePostRepo) Unlike(_ context.Context, postID, userID primitive.ObjectID) error {
	for _, p := range r.posts {
		if p.ID == postID {
			p.Likes = remove(p.Likes, userID)
			return nil
		}
	}
	return apperrors.ErrPostNotFound
}

type fakeCommentRepo struct {
	comments []*models.Comment
	clock    int64
}

func newFakeCommentRepo() *fakeCommentRepo { return &fakeCommentRepo{} }

func (r *fakeCommentRepo) CreateComment(_ context.Context, comment *models.Comment) error {
	r.clock++
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = time.Unix(1700000000+r.clock, 0)
	r.comments = append(r.comments, comment)
	return nil
}

func (r *fakeCommentRepo) ListByPost(_ context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// newTestContext builds an echo context for invoking a handler directly.
// A non-nil user is installed as the authenticated caller.
func newTestContext(t *testing.T, method, target string, body any, user *models.User) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = validators.NewValidator()

	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		req = httptest.NewRequest(method, target, strings.NewReader(string(payload)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set("userID", user.ID.Hex())
		c.Set("username", user.Username)
	}
	return c, rec
}

// decodeBody unmarshals a recorded JSON response.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return out
}
