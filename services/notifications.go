package services

import (
	"encoding/json"
	"fmt"
	"log"

	"staynest-server/models"
	"staynest-server/storage"
	"staynest-server/utils"
)

// NotificationService handles all push notification logic
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotificationData is the data payload attached to a push for deep linking
type NotificationData struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	ListingID string `json:"listingId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	HostID    string `json:"hostId,omitempty"`
	Screen    string `json:"screen"`
	Params    string `json:"params"`
}

func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %v", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user has notifications disabled or no tokens")
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}
	return tokens, nil
}

// SendNotificationToUser sends a notification to every device of one user
func (ns *NotificationService) SendNotificationToUser(userID uint, title, body string, data NotificationData) error {
	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		log.Printf("Failed to get push tokens for user %d: %v", userID, err)
		return err
	}

	dataMap := map[string]string{
		"type":      data.Type,
		"id":        data.ID,
		"listingId": data.ListingID,
		"userId":    data.UserID,
		"hostId":    data.HostID,
		"screen":    data.Screen,
		"params":    data.Params,
	}

	var lastError error
	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, dataMap); err != nil {
			log.Printf("Failed to send notification to token %s: %v", token, err)
			lastError = err
		}
	}

	return lastError
}

// SendMessageNotification notifies the recipient of a new chat message
func (ns *NotificationService) SendMessageNotification(recipientID, senderID uint, senderName, listingTitle string) error {
	title := "New Message"
	body := fmt.Sprintf("%s sent you a message about %s", senderName, listingTitle)

	params := fmt.Sprintf(`{"senderId": %d, "senderName": "%s"}`, senderID, senderName)

	data := NotificationData{
		Type:   "message_received",
		UserID: fmt.Sprintf("%d", senderID),
		Screen: "Messages",
		Params: params,
	}

	return ns.SendNotificationToUser(recipientID, title, body, data)
}

// SendReservationNotificationToHost notifies a host of a new booking
func (ns *NotificationService) SendReservationNotificationToHost(reservationID, listingID, hostID, guestID uint, guestName, listingTitle string) error {
	title := "New Booking"
	body := fmt.Sprintf("%s booked %s", guestName, listingTitle)

	params := fmt.Sprintf(`{"reservationId": %d, "listingId": %d, "guestId": %d}`, reservationID, listingID, guestID)

	data := NotificationData{
		Type:      "reservation_created",
		ID:        fmt.Sprintf("%d", reservationID),
		ListingID: fmt.Sprintf("%d", listingID),
		UserID:    fmt.Sprintf("%d", guestID),
		HostID:    fmt.Sprintf("%d", hostID),
		Screen:    "HostReservations",
		Params:    params,
	}

	err := ns.SendNotificationToUser(hostID, title, body, data)
	if err != nil {
		log.Printf("Failed to send reservation notification: %v", err)
	}
	return err
}
