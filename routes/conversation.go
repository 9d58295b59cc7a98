package routes

import (
	"time"

	"staynest-server/models"
	"staynest-server/storage"
	"staynest-server/utils"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type StartConversationInput struct {
	HostID    uint   `json:"hostID" validate:"required"`
	ListingID uint   `json:"listingID" validate:"required"`
	Message   string `json:"message" validate:"max=5000"`
}

// StartConversation creates or reuses the guest-host thread for a listing
// and optionally sends an opening message.
func StartConversation(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input StartConversationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.HostID == claims.ID {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Cannot start a conversation with yourself", ctx)
		return
	}

	var listing models.Listing
	if err := storage.DB.First(&listing, input.ListingID).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Listing not found", ctx)
		return
	}
	if listing.HostID != input.HostID {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Host does not own this listing", ctx)
		return
	}

	var conversation models.Conversation
	storage.DB.
		Where("listing_id = ? AND guest_id = ? AND host_id = ?", input.ListingID, claims.ID, input.HostID).
		First(&conversation)

	if conversation.ID == 0 {
		conversation = models.Conversation{
			ListingID:     input.ListingID,
			GuestID:       claims.ID,
			HostID:        input.HostID,
			LastMessageAt: time.Now(),
		}
		if err := storage.DB.Create(&conversation).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	if input.Message != "" {
		msg := newOpeningMessage(conversation.ID, claims.ID, input.Message)
		if err := storage.DB.Create(&msg).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		storage.DB.Model(&conversation).Update("last_message_at", time.Now())
		publishMessage(msg)
	}

	ctx.JSON(iris.Map{"success": true, "conversationID": conversation.ID})
}

// GetConversation returns one thread with its participants and listing
func GetConversation(ctx iris.Context) {
	id := ctx.Params().Get("id")
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var conversation models.Conversation
	res := storage.DB.Preload("Listing").Preload("Guest").Preload("Host").
		First(&conversation, id)

	if res.Error != nil || res.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	if conversation.GuestID != claims.ID && conversation.HostID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	ctx.JSON(conversation)
}

// GetUserConversations lists the authenticated user's threads, most recent first
func GetUserConversations(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var conversations []models.Conversation
	res := storage.DB.Preload("Listing").Preload("Guest").Preload("Host").
		Where("guest_id = ? OR host_id = ?", claims.ID, claims.ID).
		Order("last_message_at DESC").
		Find(&conversations)

	if res.Error != nil {
		utils.CreateError(
			iris.StatusInternalServerError,
			"Error", res.Error.Error(), ctx)
		return
	}

	ctx.JSON(conversations)
}

// newOpeningMessage builds the first message of a thread. It carries its
// own client key: client_key has a unique index, so a keyless row would
// collide with every other keyless row in the table.
func newOpeningMessage(conversationID, senderID uint, content string) models.Message {
	return models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		ClientKey:      uuid.NewString(),
		Content:        content,
		State:          "sent",
	}
}

// isParticipant reports whether the user belongs to the conversation.
func isParticipant(conversationID, userID uint) (*models.Conversation, bool) {
	var conversation models.Conversation
	if err := storage.DB.First(&conversation, conversationID).Error; err != nil {
		return nil, false
	}
	if conversation.GuestID != userID && conversation.HostID != userID {
		return nil, false
	}
	return &conversation, true
}
