package models

import "gorm.io/gorm"

type Review struct {
	gorm.Model
	UserID        uint         `json:"userID" gorm:"not null;index"`
	ListingID     uint         `json:"listingID" gorm:"not null;index"`
	ReservationID *uint        `json:"reservationID" gorm:"index"` // links the review to a specific stay
	Reservation   *Reservation `json:"reservation,omitempty" gorm:"foreignKey:ReservationID"`
	User          User         `json:"user" gorm:"foreignKey:UserID"`
	Title         string       `json:"title"`
	Body          string       `json:"body" gorm:"type:text"`
	Stars         int          `json:"stars" gorm:"not null;check:stars >= 1 AND stars <= 5"`
	IsVerified    bool         `json:"isVerified" gorm:"default:false"` // reviewer completed a stay
}
