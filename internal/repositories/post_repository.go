package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	ListPosts(ctx context.Context, keyword string, skip, limit int64) ([]models.Post, int64, error)
	ListByAuthors(ctx context.Context, authorIDs []primitive.ObjectID, skip, limit int64) ([]models.Post, int64, error)
	ListByHashtag(ctx context.Context, tag string, skip, limit int64) ([]models.Post, int64, error)
	UpdatePost(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	DeletePost(ctx context.Context, id primitive.ObjectID) error
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
	Like(ctx context.Context, postID, userID primitive.ObjectID) (bool, error)
	Unlike(ctx context.Context, postID, userID primitive.ObjectID) error
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}
	post.Likes = []primitive.ObjectID{}
	post.CreatedAt = time.Now()
	post.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, post)
	if err != nil {
		return apperrors.Storage("failed to create post", err)
	}
	return nil
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, apperrors.Storage("failed to fetch post", err)
	}
	return &post, nil
}

// ListPosts retrieves posts newest first, optionally filtered by a
// keyword over title, content and tags.
func (r *MongoPostRepository) ListPosts(ctx context.Context, keyword string, skip, limit int64) ([]models.Post, int64, error) {
	filter := bson.M{}
	if keyword != "" {
		filter = bson.M{"$or": bson.A{
			bson.M{"title": bson.M{"$regex": keyword, "$options": "i"}},
			bson.M{"content": bson.M{"$regex": keyword, "$options": "i"}},
			bson.M{"tags": bson.M{"$regex": keyword, "$options": "i"}},
		}}
	}
	return r.list(ctx, filter, skip, limit)
}

// ListByAuthors retrieves posts authored by any of authorIDs, newest first.
func (r *MongoPostRepository) ListByAuthors(ctx context.Context, authorIDs []primitive.ObjectID, skip, limit int64) ([]models.Post, int64, error) {
	return r.list(ctx, bson.M{"author_id": bson.M{"$in": authorIDs}}, skip, limit)
}

// ListByHashtag retrieves posts carrying the given hashtag, newest first.
// Hashtags are stored lowercase, so the filter lowercases its input.
func (r *MongoPostRepository) ListByHashtag(ctx context.Context, tag string, skip, limit int64) ([]models.Post, int64, error) {
	return r.list(ctx, bson.M{"hashtags": strings.ToLower(tag)}, skip, limit)
}

func (r *MongoPostRepository) list(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Post, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Storage("failed to count posts", err)
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, apperrors.Storage("failed to fetch posts", err)
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, apperrors.Storage("failed to decode posts", err)
	}
	return posts, total, nil
}

// UpdatePost applies a partial $set update to the post document.
func (r *MongoPostRepository) UpdatePost(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return apperrors.Storage("failed to update post", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrPostNotFound
	}
	return nil
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperrors.Storage("failed to delete post", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrPostNotFound
	}
	return nil
}

// IncrementViews bumps the monotonic view counter.
func (r *MongoPostRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return apperrors.Storage("failed to increment views", err)
	}
	return nil
}

// Like adds userID to the post's like set. Returns false when the user
// had already liked the post ($addToSet modified nothing).
func (r *MongoPostRepository) Like(ctx context.Context, postID, userID primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$addToSet": bson.M{"likes": userID}})
	if err != nil {
		return false, apperrors.Storage("failed to like post", err)
	}
	if res.MatchedCount == 0 {
		return false, apperrors.ErrPostNotFound
	}
	return res.ModifiedCount > 0, nil
}

// Unlike removes userID from the post's like set.
func (r *MongoPostRepository) Unlike(ctx context.Context, postID, userID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$pull": bson.M{"likes": userID}})
	if err != nil {
		return apperrors.Storage("failed to unlike post", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrPostNotFound
	}
	return nil
}
