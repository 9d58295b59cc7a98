package models

import (
	"time"

	"gorm.io/gorm"
)

type Message struct {
	gorm.Model
	ConversationID uint `json:"conversationID" gorm:"not null;index"`
	SenderID       uint `json:"senderID" gorm:"not null;index"`
	// ClientKey is the sender-generated idempotency key. The unique index
	// makes retried sends collapse into one row, and the feed echoes the key
	// back so clients reconcile their optimistic entry by key.
	ClientKey  string `json:"clientKey" gorm:"size:64;uniqueIndex"`
	Content    string `json:"content" gorm:"type:text"`
	IsVerified bool   `json:"isVerified" gorm:"default:false"` // sender had a verified account at send time

	// Server-side delivery tracking, distinct from the client's local
	// sending/sent/failed view state
	State       string     `json:"state" gorm:"size:16;index"` // sent|delivered|seen
	DeliveredAt *time.Time `json:"deliveredAt"`
	SeenAt      *time.Time `json:"seenAt"`

	Sender *User `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
}
