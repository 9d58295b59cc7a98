package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is a direct guest-host thread, opened from a listing page.
type Conversation struct {
	gorm.Model
	ListingID     uint      `json:"listingID" gorm:"index"`
	GuestID       uint      `json:"guestID" gorm:"not null;index"`
	HostID        uint      `json:"hostID" gorm:"not null;index"`
	LastMessageAt time.Time `json:"lastMessageAt" gorm:"index"`

	Listing  *Listing  `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
	Guest    *User     `json:"guest,omitempty" gorm:"foreignKey:GuestID"`
	Host     *User     `json:"host,omitempty" gorm:"foreignKey:HostID"`
	Messages []Message `json:"messages,omitempty"`
}
