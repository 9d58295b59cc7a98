package routes

import (
	"errors"
	"time"

	"staynest-server/models"
	"staynest-server/storage"
	"staynest-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type CreateReviewRequest struct {
	Stars         int    `json:"stars" validate:"required,min=1,max=5"`
	Title         string `json:"title" validate:"max=100"`
	Body          string `json:"body" validate:"max=1000"`
	ReservationID uint   `json:"reservationID"`
}

type ReviewResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"userID"`
	Stars     int       `json:"stars"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	User      struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		AvatarURL string `json:"avatarURL"`
	} `json:"user"`
	IsVerified bool `json:"isVerified"`
}

// ListListingReviews returns reviews plus whether the current user can review
func ListListingReviews(ctx iris.Context) {
	listingID := ctx.Params().GetUintDefault("listingId", 0)
	if listingID == 0 {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid listing ID", ctx)
		return
	}

	var reviews []models.Review
	if err := storage.DB.Preload("User").
		Where("listing_id = ?", listingID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var totalStars float64
	for _, review := range reviews {
		totalStars += float64(review.Stars)
	}
	avgRating := 0.0
	if len(reviews) > 0 {
		avgRating = totalStars / float64(len(reviews))
	}

	canReview := false
	userReservationID := uint(0)
	hasExistingReview := false

	if v := ctx.Values().Get("userID"); v != nil {
		if userID, ok := v.(uint); ok {
			var reservation models.Reservation
			if err := storage.DB.Where("listing_id = ? AND guest_id = ? AND status = ?",
				listingID, userID, "completed").
				Order("check_out DESC").
				First(&reservation).Error; err == nil {
				canReview = true
				userReservationID = reservation.ID

				var existingReview models.Review
				if err := storage.DB.Where("listing_id = ? AND user_id = ?", listingID, userID).
					First(&existingReview).Error; err == nil {
					hasExistingReview = true
					canReview = false
				}
			}
		}
	}

	var reviewResponses []ReviewResponse
	for _, review := range reviews {
		reviewResponses = append(reviewResponses, ReviewResponse{
			ID:        review.ID,
			UserID:    review.UserID,
			Stars:     review.Stars,
			Title:     review.Title,
			Body:      review.Body,
			CreatedAt: review.CreatedAt,
			User: struct {
				FirstName string `json:"firstName"`
				LastName  string `json:"lastName"`
				AvatarURL string `json:"avatarURL"`
			}{
				FirstName: review.User.FirstName,
				LastName:  review.User.LastName,
				AvatarURL: review.User.AvatarURL,
			},
			IsVerified: review.IsVerified,
		})
	}

	ctx.JSON(iris.Map{
		"success": true,
		"data": iris.Map{
			"reviews":           reviewResponses,
			"canReview":         canReview,
			"hasExistingReview": hasExistingReview,
			"userReservationID": userReservationID,
			"averageRating":     avgRating,
			"reviewCount":       len(reviews),
		},
	})
}

// CreateListingReview creates a review if the user completed a stay and hasn't reviewed yet
func CreateListingReview(ctx iris.Context) {
	userIDValue := ctx.Values().Get("userID")
	if userIDValue == nil {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "User not authenticated", ctx)
		return
	}
	userID, ok := userIDValue.(uint)
	if !ok {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Invalid user ID", ctx)
		return
	}

	listingID := ctx.Params().GetUintDefault("listingId", 0)
	if listingID == 0 {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid listing ID", ctx)
		return
	}

	var req CreateReviewRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var reservation models.Reservation
	if err := storage.DB.Where("id = ? AND listing_id = ? AND guest_id = ? AND status = ?",
		req.ReservationID, listingID, userID, "completed").
		First(&reservation).Error; err != nil {
		utils.CreateError(iris.StatusForbidden, "Forbidden", "You can only review listings you have completed a stay at", ctx)
		return
	}

	var existing models.Review
	if err := storage.DB.Where("listing_id = ? AND user_id = ?", listingID, userID).
		First(&existing).Error; err == nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "You have already reviewed this listing", ctx)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.CreateInternalServerError(ctx)
		return
	}

	review := models.Review{
		UserID:        userID,
		ListingID:     listingID,
		ReservationID: &req.ReservationID,
		Title:         req.Title,
		Body:          req.Body,
		Stars:         req.Stars,
		IsVerified:    true,
	}

	if err := storage.DB.Create(&review).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Roll the new star count into the listing's cached rating
	var reviews []models.Review
	storage.DB.Where("listing_id = ?", listingID).Find(&reviews)

	var totalStars float64
	for _, r := range reviews {
		totalStars += float64(r.Stars)
	}
	avgRating := totalStars / float64(len(reviews))

	storage.DB.Model(&models.Listing{}).Where("id = ?", listingID).Update("rating", avgRating)

	ctx.JSON(iris.Map{"success": true, "data": review})
}
