package models

import (
	"time"

	"gorm.io/gorm"
)

type Reservation struct {
	gorm.Model
	ListingID  uint      `json:"listingID"`
	GuestID    uint      `json:"guestID"`
	CheckIn    time.Time `json:"checkIn"`
	CheckOut   time.Time `json:"checkOut"`
	NumGuests  int       `json:"numGuests"`
	TotalPrice float64   `json:"totalPrice"`
	Status     string    `json:"status"` // pending, confirmed, cancelled, completed
	Note       string    `json:"note"`

	Listing *Listing `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
	Guest   *User    `json:"guest,omitempty" gorm:"foreignKey:GuestID"`
}
