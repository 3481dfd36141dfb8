package repositories

import (
	"context"
	"log"
	"time"

	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	SearchUsers(ctx context.Context, query string) ([]models.UserCompact, error)
	GetCompactByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserCompact, error)

	Follow(ctx context.Context, actorID, targetID primitive.ObjectID) error
	Unfollow(ctx context.Context, actorID, targetID primitive.ObjectID) error

	IncrementPostsCount(ctx context.Context, id primitive.ObjectID, delta int) error

	SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expire time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// EnsureIndexes creates the unique indexes on username and email.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

// CreateUser inserts a new user. Followers/following start empty and the
// account starts active.
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	user.IsActive = true
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists("username or email already exists")
		}
		return apperrors.Storage("failed to create user", err)
	}
	return nil
}

func (r *MongoUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Storage("failed to fetch user", err)
	}
	return &user, nil
}

// UpdateProfile applies a partial $set update to the user document.
func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists("username or email already exists")
		}
		return apperrors.Storage("failed to update profile", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	return r.UpdateProfile(ctx, id, bson.M{"is_active": false})
}

// SearchUsers filters by username or email, case-insensitive.
func (r *MongoUserRepository) SearchUsers(ctx context.Context, query string) ([]models.UserCompact, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"username": bson.M{"$regex": query, "$options": "i"}},
		bson.M{"email": bson.M{"$regex": query, "$options": "i"}},
	}}
	cursor, err := r.collection.Find(ctx, filter,
		options.Find().SetProjection(bson.M{"username": 1, "profile_picture": 1}).SetLimit(50))
	if err != nil {
		return nil, apperrors.Storage("failed to search users", err)
	}
	defer cursor.Close(ctx)

	var users []models.UserCompact
	if err := cursor.All(ctx, &users); err != nil {
		return nil, apperrors.Storage("failed to decode users", err)
	}
	return users, nil
}

// GetCompactByIDs resolves a batch of user references to compact profiles.
func (r *MongoUserRepository) GetCompactByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserCompact, error) {
	result := make(map[primitive.ObjectID]models.UserCompact, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"username": 1, "profile_picture": 1}))
	if err != nil {
		return nil, apperrors.Storage("failed to fetch users", err)
	}
	defer cursor.Close(ctx)

	var users []models.UserCompact
	if err := cursor.All(ctx, &users); err != nil {
		return nil, apperrors.Storage("failed to decode users", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// Follow adds target to actor.following and actor to target.followers.
// The first $addToSet doubles as the already-following check; if the
// second write fails the first is reversed so neither side is left
// half-applied.
func (r *MongoUserRepository) Follow(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": actorID},
		bson.M{"$addToSet": bson.M{"following": targetID}})
	if err != nil {
		return apperrors.Storage("failed to update following set", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	if res.ModifiedCount == 0 {
		return apperrors.ErrAlreadyFollowing
	}

	res, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": targetID},
		bson.M{"$addToSet": bson.M{"followers": actorID}})
	if err != nil || res.MatchedCount == 0 {
		// Compensate: reverse the first write rather than leaving the
		// graph asymmetric. Matching no document means the target
		// vanished between the two writes.
		if _, revErr := r.collection.UpdateOne(context.WithoutCancel(ctx),
			bson.M{"_id": actorID},
			bson.M{"$pull": bson.M{"following": targetID}}); revErr != nil {
			log.Printf("[SocialGraph] INCONSISTENT follow state for %s -> %s: %v", actorID.Hex(), targetID.Hex(), revErr)
		}
		if err != nil {
			return apperrors.Storage("failed to update followers set", err)
		}
		return apperrors.ErrUserNotFound
	}
	return nil
}

// Unfollow removes both sides of the relationship with the same
// compensation strategy as Follow.
func (r *MongoUserRepository) Unfollow(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": actorID},
		bson.M{"$pull": bson.M{"following": targetID}})
	if err != nil {
		return apperrors.Storage("failed to update following set", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	if res.ModifiedCount == 0 {
		return apperrors.ErrNotFollowingUser
	}

	res, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": targetID},
		bson.M{"$pull": bson.M{"followers": actorID}})
	if err != nil || res.MatchedCount == 0 {
		if _, revErr := r.collection.UpdateOne(context.WithoutCancel(ctx),
			bson.M{"_id": actorID},
			bson.M{"$addToSet": bson.M{"following": targetID}}); revErr != nil {
			log.Printf("[SocialGraph] INCONSISTENT unfollow state for %s -> %s: %v", actorID.Hex(), targetID.Hex(), revErr)
		}
		if err != nil {
			return apperrors.Storage("failed to update followers set", err)
		}
		return apperrors.ErrUserNotFound
	}
	return nil
}

// IncrementPostsCount adjusts the denormalized post counter.
func (r *MongoUserRepository) IncrementPostsCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"posts_count": delta}})
	if err != nil {
		return apperrors.Storage("failed to update posts count", err)
	}
	return nil
}

func (r *MongoUserRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expire time.Time) error {
	return r.UpdateProfile(ctx, id, bson.M{
		"reset_password_token":  tokenHash,
		"reset_password_expire": expire,
	})
}

func (r *MongoUserRepository) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$unset": bson.M{"reset_password_token": "", "reset_password_expire": ""},
	})
	if err != nil {
		return apperrors.Storage("failed to clear reset token", err)
	}
	return nil
}

// GetUserByResetToken looks up a user by the sha256 hash of a reset token
// that has not yet expired.
func (r *MongoUserRepository) GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{
		"reset_password_token":  tokenHash,
		"reset_password_expire": bson.M{"$gt": time.Now()},
	}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrResetTokenInvalid
		}
		return nil, apperrors.Storage("failed to fetch user", err)
	}
	return &user, nil
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	return r.UpdateProfile(ctx, id, bson.M{"password": passwordHash})
}
