package routes

import (
	"fmt"
	"net/http"
	"time"

	"staynest-server/chatsync"
	"staynest-server/models"
	"staynest-server/realtime"
	"staynest-server/services"
	"staynest-server/storage"
	"staynest-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// Feed fans message inserts out to connected websocket sessions. Wired up
// once at startup.
var Feed *realtime.Hub

func publishMessage(m models.Message) {
	if Feed == nil {
		return
	}
	Feed.Publish(chatsync.Message{
		ID:             m.ID,
		ClientKey:      m.ClientKey,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		IsVerified:     m.IsVerified,
	})
}

type CreateMessageInput struct {
	ConversationID uint   `json:"conversationID" validate:"required"`
	ClientKey      string `json:"clientKey" validate:"required,max=64"`
	Content        string `json:"content" validate:"required,lt=5000"`
}

// CreateMessage persists a message. Retries carrying the same clientKey
// collapse into the original row instead of producing a duplicate.
func CreateMessage(ctx iris.Context) {
	var req CreateMessageInput

	err := ctx.ReadJSON(&req)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	conversation, ok := isParticipant(req.ConversationID, claims.ID)
	if !ok {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	// Idempotent create: a retry of a send that actually reached us before
	// returns the already-stored row
	var existing models.Message
	if err := storage.DB.
		Where("client_key = ? AND sender_id = ?", req.ClientKey, claims.ID).
		First(&existing).Error; err == nil {
		ctx.JSON(existing)
		return
	}

	var sender models.User
	if err := storage.DB.First(&sender, claims.ID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	isVerified := sender.IsVerified != nil && *sender.IsVerified

	message := models.Message{
		ConversationID: req.ConversationID,
		SenderID:       claims.ID,
		ClientKey:      req.ClientKey,
		Content:        req.Content,
		IsVerified:     isVerified,
		State:          "sent",
	}

	if err := storage.DB.Create(&message).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	storage.DB.Model(&models.Conversation{}).
		Where("id = ?", conversation.ID).
		Update("last_message_at", time.Now())

	publishMessage(message)

	// Notify the other party
	recipientID := conversation.HostID
	if claims.ID == conversation.HostID {
		recipientID = conversation.GuestID
	}
	listingTitle := ""
	var listing models.Listing
	if err := storage.DB.First(&listing, conversation.ListingID).Error; err == nil {
		listingTitle = listing.Title
	}
	senderName := fmt.Sprintf("%s %s", sender.FirstName, sender.LastName)
	notificationService := services.NewNotificationService()
	go notificationService.SendMessageNotification(recipientID, claims.ID, senderName, listingTitle)

	ctx.JSON(message)
}

// ListMessages: GET /api/messages?conversationID=...&cursor=...&limit=...
func ListMessages(ctx iris.Context) {
	convID, err := ctx.URLParamInt("conversationID")
	if err != nil || convID <= 0 {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if _, ok := isParticipant(uint(convID), claims.ID); !ok {
		ctx.StopWithStatus(http.StatusForbidden)
		return
	}

	limit, _ := ctx.URLParamInt("limit")
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	cursor, _ := ctx.URLParamInt("cursor")

	q := storage.DB.Where("conversation_id = ?", convID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var msgs []models.Message
	if err := q.Order("id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		ctx.StopWithStatus(http.StatusInternalServerError)
		return
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	nextCursor := 0
	if len(msgs) > 0 {
		nextCursor = int(msgs[0].ID)
	}
	ctx.JSON(iris.Map{"messages": msgs, "nextCursor": nextCursor})
}

type SetMessageStateInput struct {
	ConversationID uint   `json:"conversationID" validate:"required"`
	MessageIDs     []uint `json:"messageIDs" validate:"required"`
	State          string `json:"state" validate:"required,oneof=delivered seen"`
}

// SetMessageState: POST /api/messages/state
func SetMessageState(ctx iris.Context) {
	var req SetMessageStateInput
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if _, ok := isParticipant(req.ConversationID, claims.ID); !ok {
		ctx.StopWithStatus(http.StatusForbidden)
		return
	}

	updates := map[string]any{"state": req.State}
	now := time.Now()
	if req.State == "delivered" {
		updates["delivered_at"] = now
	}
	if req.State == "seen" {
		updates["seen_at"] = now
	}
	// Only the recipient's copy changes state; a sender cannot mark their
	// own messages seen
	if err := storage.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND id IN ? AND sender_id != ?", req.ConversationID, req.MessageIDs, claims.ID).
		Updates(updates).Error; err != nil {
		ctx.StopWithStatus(http.StatusInternalServerError)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

// Typing indicator: set a short-lived key in Redis for 5 seconds
func Typing(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	conversationID, err := ctx.Params().GetUint("conversationID")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}
	if _, ok := isParticipant(conversationID, claims.ID); !ok {
		ctx.StopWithStatus(http.StatusForbidden)
		return
	}
	key := typingKey(conversationID, claims.ID)
	storage.Redis.Set(ctx, key, "1", 5*time.Second)
	ctx.JSON(iris.Map{"success": true})
}

// ListTyping reports whether the other participant is typing
func ListTyping(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	conversationID, err := ctx.Params().GetUint("conversationID")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}
	conversation, ok := isParticipant(conversationID, claims.ID)
	if !ok {
		ctx.StopWithStatus(http.StatusForbidden)
		return
	}

	otherID := conversation.HostID
	if claims.ID == conversation.HostID {
		otherID = conversation.GuestID
	}

	typing := []iris.Map{}
	key := typingKey(conversationID, otherID)
	if val, err := storage.Redis.Get(ctx, key).Result(); err == nil && val == "1" {
		var other models.User
		if err := storage.DB.First(&other, otherID).Error; err == nil {
			typing = append(typing, iris.Map{
				"userID": otherID,
				"name":   other.FirstName + " " + other.LastName,
			})
		}
	}
	ctx.JSON(iris.Map{"success": true, "typing": typing})
}

func typingKey(conversationID uint, userID uint) string {
	return fmt.Sprintf("typing:conv:%d:user:%d", conversationID, userID)
}
