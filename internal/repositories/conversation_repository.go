package repositories

import (
	"context"
	"time"

	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository defines the interface for conversation operations
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, userA, userB primitive.ObjectID) (*models.Conversation, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	SoftDelete(ctx context.Context, userID, conversationID primitive.ObjectID) error
	SetLastMessage(ctx context.Context, conversationID, messageID primitive.ObjectID) error
}

// MongoConversationRepository implements ConversationRepository for MongoDB
type MongoConversationRepository struct {
	collection *mongo.Collection
}

// NewMongoConversationRepository creates a new MongoConversationRepository
func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	return &MongoConversationRepository{collection: db.Collection("conversations")}
}

// EnsureIndexes creates the unique index over the canonical participant
// pair. This is what makes concurrent first-sends converge on a single
// conversation.
func (r *MongoConversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "participants", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// FindOrCreate canonicalizes the pair and returns the existing
// conversation, creating one if none exists. If the initiating user
// (userA) had archived an existing conversation it is un-archived for
// them. A duplicate-key error on insert means another request won the
// race, in which case the lookup is retried instead of failing.
func (r *MongoConversationRepository) FindOrCreate(ctx context.Context, userA, userB primitive.ObjectID) (*models.Conversation, error) {
	pair := models.CanonicalPair(userA, userB)
	filter := bson.M{"participants": pair}

	conv, err := r.findByPair(ctx, filter)
	if err == nil {
		return r.restoreIfDeleted(ctx, conv, userA)
	}
	if apperrors.From(err) == nil || apperrors.From(err).Code != apperrors.CodeNotFound {
		return nil, err
	}

	now := time.Now()
	newConv := &models.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: pair,
		DeletedBy:    []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = r.collection.InsertOne(ctx, newConv)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the race against a concurrent first-send; the winner's
			// document is the conversation for this pair.
			conv, err := r.findByPair(ctx, filter)
			if err != nil {
				return nil, err
			}
			return r.restoreIfDeleted(ctx, conv, userA)
		}
		return nil, apperrors.Storage("failed to create conversation", err)
	}
	return newConv, nil
}

func (r *MongoConversationRepository) findByPair(ctx context.Context, filter bson.M) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.collection.FindOne(ctx, filter).Decode(&conv)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrConversationNotFound
		}
		return nil, apperrors.Storage("failed to fetch conversation", err)
	}
	return &conv, nil
}

func (r *MongoConversationRepository) restoreIfDeleted(ctx context.Context, conv *models.Conversation, userID primitive.ObjectID) (*models.Conversation, error) {
	if !conv.DeletedFor(userID) {
		return conv, nil
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": conv.ID},
		bson.M{"$pull": bson.M{"deleted_by": userID}})
	if err != nil {
		return nil, apperrors.Storage("failed to restore conversation", err)
	}
	remaining := conv.DeletedBy[:0]
	for _, d := range conv.DeletedBy {
		if d != userID {
			remaining = append(remaining, d)
		}
	}
	conv.DeletedBy = remaining
	return conv, nil
}

// GetByID retrieves a conversation by ID from MongoDB
func (r *MongoConversationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	return r.findByPair(ctx, bson.M{"_id": id})
}

// ListForUser returns the conversations userID participates in and has
// not archived, most recently updated first.
func (r *MongoConversationRepository) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	filter := bson.M{
		"participants": userID,
		"deleted_by":   bson.M{"$ne": userID},
	}
	cursor, err := r.collection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, apperrors.Storage("failed to fetch conversations", err)
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, apperrors.Storage("failed to decode conversations", err)
	}
	return conversations, nil
}

// SoftDelete marks the conversation archived for userID. $addToSet makes
// a repeat call a no-op.
func (r *MongoConversationRepository) SoftDelete(ctx context.Context, userID, conversationID primitive.ObjectID) error {
	conv, err := r.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return apperrors.ErrNotParticipant
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$addToSet": bson.M{"deleted_by": userID}})
	if err != nil {
		return apperrors.Storage("failed to archive conversation", err)
	}
	return nil
}

// SetLastMessage points the conversation at its newest message and
// refreshes updated_at so the conversations list sorts correctly.
func (r *MongoConversationRepository) SetLastMessage(ctx context.Context, conversationID, messageID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"last_message": messageID, "updated_at": time.Now()}})
	if err != nil {
		return apperrors.Storage("failed to update last message", err)
	}
	return nil
}
