package handlers

import (
	"math"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/internal/repositories"
	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageHandler handles conversation and direct-message HTTP requests
type MessageHandler struct {
	conversationRepository repositories.ConversationRepository
	messageRepository      repositories.MessageRepository
	userRepository         repositories.UserRepository
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(
	conversationRepo repositories.ConversationRepository,
	messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository,
) *MessageHandler {
	return &MessageHandler{
		conversationRepository: conversationRepo,
		messageRepository:      messageRepo,
		userRepository:         userRepo,
	}
}

// RegisterMessageRoutes registers conversation/message routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.GET("/conversations", h.GetConversations)
	g.POST("/conversations", h.SendMessage)
	g.GET("/conversations/:id/messages", h.GetConversationMessages)
	g.PUT("/conversations/:id/read", h.MarkMessagesAsRead)
	g.PUT("/conversations/:id/delete", h.SoftDeleteConversation)
}

// SendMessage resolves (or creates) the conversation for the pair,
// appends the message and advances the conversation's last-message
// pointer.
func (h *MessageHandler) SendMessage(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.Validation("recipient ID and message content are required")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return apperrors.Validation("message content cannot be empty")
	}
	if len(content) > models.MaxMessageLength {
		return apperrors.Validation("message content exceeds the 1000 character limit")
	}

	recipientID, err := primitive.ObjectIDFromHex(req.RecipientID)
	if err != nil {
		return apperrors.Validation("invalid recipient_id format")
	}
	if recipientID == currentUserID {
		return apperrors.SelfReference("you cannot send a message to yourself")
	}

	if _, err := h.userRepository.GetUserByID(c.Request().Context(), recipientID); err != nil {
		return err
	}

	conversation, err := h.conversationRepository.FindOrCreate(c.Request().Context(), currentUserID, recipientID)
	if err != nil {
		return err
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       currentUserID,
		Content:        content,
	}
	if err := h.messageRepository.CreateMessage(c.Request().Context(), message); err != nil {
		return err
	}

	if err := h.conversationRepository.SetLastMessage(c.Request().Context(), conversation.ID, message.ID); err != nil {
		return err
	}

	sender, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID)
	view := models.MessageView{Message: *message}
	if err == nil {
		view.Sender = sender.ToCompact()
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data": echo.Map{
			"conversation_id": conversation.ID,
			"message":         view,
		},
	})
}

// GetConversations returns the caller's active conversations, annotated
// with participant profiles and the last message, most recent first.
func (h *MessageHandler) GetConversations(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	conversations, err := h.conversationRepository.ListForUser(c.Request().Context(), currentUserID)
	if err != nil {
		return err
	}

	// Collect every user reference once: participants plus last-message senders.
	idSet := make(map[primitive.ObjectID]bool)
	lastMessages := make(map[primitive.ObjectID]*models.Message, len(conversations))
	for _, conv := range conversations {
		for _, p := range conv.Participants {
			idSet[p] = true
		}
		if conv.LastMessage != nil {
			msg, err := h.messageRepository.GetByID(c.Request().Context(), *conv.LastMessage)
			if err == nil {
				lastMessages[conv.ID] = msg
				idSet[msg.SenderID] = true
			}
		}
	}

	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	profiles, err := h.userRepository.GetCompactByIDs(c.Request().Context(), ids)
	if err != nil {
		return err
	}

	views := make([]models.ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		view := models.ConversationView{
			ID:        conv.ID,
			UpdatedAt: conv.UpdatedAt,
		}
		for _, p := range conv.Participants {
			view.Participants = append(view.Participants, profiles[p])
		}
		if msg, ok := lastMessages[conv.ID]; ok {
			view.LastMessage = &models.MessageView{
				Message: *msg,
				Sender:  profiles[msg.SenderID],
			}
		}
		views = append(views, view)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"conversations": views},
	})
}

// GetConversationMessages returns a page of messages in chronological
// order (oldest first).
func (h *MessageHandler) GetConversationMessages(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	conversation, err := h.authorizedConversation(c, currentUserID)
	if err != nil {
		return err
	}

	page, limit := parsePagination(c, 20, 100)
	skip := int64((page - 1) * limit)

	messages, err := h.messageRepository.ListByConversation(c.Request().Context(), conversation.ID, skip, int64(limit))
	if err != nil {
		return err
	}

	total, err := h.messageRepository.CountByConversation(c.Request().Context(), conversation.ID)
	if err != nil {
		return err
	}

	senderIDs := make([]primitive.ObjectID, 0, 2)
	seen := make(map[primitive.ObjectID]bool)
	for _, m := range messages {
		if !seen[m.SenderID] {
			seen[m.SenderID] = true
			senderIDs = append(senderIDs, m.SenderID)
		}
	}
	profiles, err := h.userRepository.GetCompactByIDs(c.Request().Context(), senderIDs)
	if err != nil {
		return err
	}

	views := make([]models.MessageView, len(messages))
	for i, m := range messages {
		views[i] = models.MessageView{Message: m, Sender: profiles[m.SenderID]}
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"messages": views},
		"meta": echo.Map{
			"currentPage":   page,
			"totalPages":    totalPages,
			"totalMessages": total,
		},
	})
}

// MarkMessagesAsRead marks every message from the other participant as
// read by the caller. Idempotent.
func (h *MessageHandler) MarkMessagesAsRead(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	conversation, err := h.authorizedConversation(c, currentUserID)
	if err != nil {
		return err
	}

	if err := h.messageRepository.MarkRead(c.Request().Context(), conversation.ID, currentUserID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"message": "messages marked as read"}})
}

// SoftDeleteConversation archives the conversation for the caller only.
func (h *MessageHandler) SoftDeleteConversation(c echo.Context) error {
	currentUserID, err := currentUserObjectID(c)
	if err != nil {
		return err
	}

	conversationID, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.conversationRepository.SoftDelete(c.Request().Context(), currentUserID, conversationID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"message": "conversation archived for this user"}})
}

func (h *MessageHandler) authorizedConversation(c echo.Context, userID primitive.ObjectID) (*models.Conversation, error) {
	conversationID, err := parseObjectIDParam(c, "id")
	if err != nil {
		return nil, err
	}

	conversation, err := h.conversationRepository.GetByID(c.Request().Context(), conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	return conversation, nil
}
