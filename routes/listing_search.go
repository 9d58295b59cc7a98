package routes

import (
	"strings"

	"staynest-server/models"
	"staynest-server/storage"
	"staynest-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// guestVisible scopes a query to listings guests can see. NULL is_active
// counts as active, the same on every search surface.
func guestVisible(db *gorm.DB) *gorm.DB {
	return db.Where("COALESCE(is_active, ?) = ?", true, true).
		Where("status = ?", "live")
}

// SearchListings handles listing search with multiple filters
func SearchListings(ctx iris.Context) {
	q := storage.DB.Model(&models.Listing{})

	// Text/location filters
	if city := strings.TrimSpace(ctx.URLParam("city")); city != "" {
		q = q.Where("LOWER(city) = LOWER(?)", city)
	}
	if state := strings.TrimSpace(ctx.URLParam("state")); state != "" {
		q = q.Where("LOWER(state) = LOWER(?)", state)
	}
	if country := strings.TrimSpace(ctx.URLParam("country")); country != "" {
		q = q.Where("LOWER(country) = LOWER(?)", country)
	}

	// Listing attributes
	if lType := strings.TrimSpace(ctx.URLParam("listingType")); lType != "" {
		q = q.Where("listing_type = ?", lType)
	}
	if minPrice, err := ctx.URLParamInt("minPrice"); err == nil && minPrice > 0 {
		q = q.Where("nightly_price >= ?", minPrice)
	}
	if maxPrice, err := ctx.URLParamInt("maxPrice"); err == nil && maxPrice > 0 {
		q = q.Where("nightly_price <= ?", maxPrice)
	}
	if guests, err := ctx.URLParamInt("guests"); err == nil && guests > 0 {
		q = q.Where("capacity >= ?", guests)
	}
	if minBeds, err := ctx.URLParamInt("minBeds"); err == nil && minBeds > 0 {
		q = q.Where("beds >= ?", minBeds)
	}
	if minBedrooms, err := ctx.URLParamInt("minBedrooms"); err == nil && minBedrooms > 0 {
		q = q.Where("bedrooms >= ?", minBedrooms)
	}
	if minBathrooms, err := ctx.URLParamInt("minBathrooms"); err == nil && minBathrooms > 0 {
		q = q.Where("bathrooms >= ?", minBathrooms)
	}
	if minRating, err := ctx.URLParamInt("minRating"); err == nil && minRating > 0 {
		q = q.Where("rating >= ?", minRating)
	}

	// Only live listings are ever searchable
	q = q.Scopes(guestVisible)

	// Sorting
	sort := strings.ToLower(strings.TrimSpace(ctx.URLParam("sort")))
	switch sort {
	case "price_low":
		q = q.Order("nightly_price ASC").Order("id DESC")
	case "price_high":
		q = q.Order("nightly_price DESC").Order("id DESC")
	case "rating":
		q = q.Order("rating DESC").Order("id DESC")
	default:
		q = q.Order("created_at DESC")
	}

	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("perPage", 20)
	if page < 1 || perPage < 1 {
		utils.JSONError(ctx, iris.StatusBadRequest, "invalid_page", "page and perPage must be positive")
		return
	}
	if perPage > 50 {
		perPage = 50
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var listings []models.Listing
	if err := q.Offset((page - 1) * perPage).Limit(perPage).Find(&listings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, listings, page, perPage, total)
}
