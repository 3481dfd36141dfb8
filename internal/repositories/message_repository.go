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

// MessageRepository defines the interface for message operations
type MessageRepository interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	ListByConversation(ctx context.Context, conversationID primitive.ObjectID, skip, limit int64) ([]models.Message, error)
	CountByConversation(ctx context.Context, conversationID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, conversationID, readerID primitive.ObjectID) error
}

// MongoMessageRepository implements MessageRepository for MongoDB
type MongoMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoMessageRepository creates a new MongoMessageRepository
func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{collection: db.Collection("messages")}
}

// EnsureIndexes creates the conversation/created_at index used by the
// paginated history queries.
func (r *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: 1},
		},
	})
	return err
}

// CreateMessage appends a new message. ReadBy starts empty; the sender is
// never auto-added.
func (r *MongoMessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	if message.ReadBy == nil {
		message.ReadBy = []primitive.ObjectID{}
	}
	message.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, message)
	if err != nil {
		return apperrors.Storage("failed to store message", err)
	}
	return nil
}

func (r *MongoMessageRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var msg models.Message
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NotFound("message not found")
		}
		return nil, apperrors.Storage("failed to fetch message", err)
	}
	return &msg, nil
}

// ListByConversation returns messages oldest first. The _id tiebreak
// keeps pagination stable when messages share a timestamp.
func (r *MongoMessageRepository) ListByConversation(ctx context.Context, conversationID primitive.ObjectID, skip, limit int64) ([]models.Message, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, findOptions)
	if err != nil {
		return nil, apperrors.Storage("failed to fetch messages", err)
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, apperrors.Storage("failed to decode messages", err)
	}
	return messages, nil
}

func (r *MongoMessageRepository) CountByConversation(ctx context.Context, conversationID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return 0, apperrors.Storage("failed to count messages", err)
	}
	return count, nil
}

// MarkRead adds readerID to readBy on every message in the conversation
// sent by the other participant and not yet seen. Re-invocation matches
// nothing and is a no-op.
func (r *MongoMessageRepository) MarkRead(ctx context.Context, conversationID, readerID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": readerID},
			"read_by":         bson.M{"$ne": readerID},
		},
		bson.M{"$addToSet": bson.M{"read_by": readerID}})
	if err != nil {
		return apperrors.Storage("failed to mark messages as read", err)
	}
	return nil
}
