package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListingImport holds a listing scraped from a competing platform while the
// host tunes the discount and decides whether to publish it here. The
// scraping itself happens elsewhere; this row stores the extracted result.
type ListingImport struct {
	gorm.Model
	HostID         uint           `json:"hostID" gorm:"not null;index"`
	SourcePlatform string         `json:"sourcePlatform" gorm:"size:32"`
	SourceURL      string         `json:"sourceURL" gorm:"size:512"`
	Title          string         `json:"title"`
	Description    string         `json:"description" gorm:"type:text"`
	City           string         `json:"city"`
	Country        string         `json:"country"`
	RawPrice       string         `json:"rawPrice" gorm:"size:64"` // as scraped, e.g. "₹1,000 night"
	ReferencePrice float64        `json:"referencePrice"`          // normalized nightly price
	Photos         datatypes.JSON `json:"photos"`
	Status         string         `json:"status" gorm:"type:varchar(20);default:'pending';index"` // pending, published, discarded
	ListingID      *uint          `json:"listingID" gorm:"index"`                                 // set once published

	Host User `json:"host" gorm:"foreignKey:HostID"`
}
