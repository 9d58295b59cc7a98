package models

import "gorm.io/gorm"

type Listing struct {
	gorm.Model
	HostID             uint    `json:"hostID"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	ListingType        string  `json:"listingType"` // entire_place, private_room, shared_room
	AddressLine1       string  `json:"addressLine1"`
	AddressLine2       string  `json:"addressLine2"`
	City               string  `json:"city"`
	State              string  `json:"state"`
	Zip                string  `json:"zip"`
	Country            string  `json:"country"`
	Lat                float32 `json:"lat"`
	Lng                float32 `json:"lng"`
	Capacity           int     `json:"capacity"`
	Bedrooms           int     `json:"bedrooms"`
	Beds               int     `json:"beds"`
	Bathrooms          float32 `json:"bathrooms"`
	NightlyPrice       float32 `json:"nightlyPrice"`
	CleaningFee        float32 `json:"cleaningFee"`
	Currency           string  `json:"currency"`
	Amenities          string  `json:"amenities"` // JSON array of strings
	HouseRules         string  `json:"houseRules"`
	CancellationPolicy string  `json:"cancellationPolicy"`
	Images             string  `json:"images"` // JSON array of URLs
	IsActive           *bool   `json:"isActive"`
	Rating             float32 `json:"rating"`
	Status             string  `json:"status" gorm:"type:varchar(20);default:'live';index"` // live, paused, removed

	// Set when the listing was created through the import flow
	ImportID        *uint `json:"importID" gorm:"index"`
	DiscountPercent int   `json:"discountPercent"`

	Reviews      []Review      `json:"reviews"`
	Reservations []Reservation `json:"reservations"`
	Host         User          `json:"host" gorm:"foreignKey:HostID;references:ID"`
}
