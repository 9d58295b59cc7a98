package routes

import (
	"fmt"
	"strconv"
	"time"

	"staynest-server/models"
	"staynest-server/services"
	"staynest-server/storage"
	"staynest-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type CreateReservationInput struct {
	CheckIn   time.Time `json:"checkIn" validate:"required"`
	CheckOut  time.Time `json:"checkOut" validate:"required"`
	NumGuests int       `json:"numGuests" validate:"required,gte=1,lte=16"`
	Note      string    `json:"note"`
}

func CreateReservation(ctx iris.Context) {
	params := ctx.Params()
	listingID := params.Get("id")

	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateReservationInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !input.CheckIn.Before(input.CheckOut) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "checkIn must be before checkOut", ctx)
		return
	}

	var listing models.Listing
	if err := storage.DB.First(&listing, listingID).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Listing not found", ctx)
		return
	}

	if listing.HostID == claims.ID {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Hosts cannot reserve their own listing", ctx)
		return
	}
	if input.NumGuests > listing.Capacity {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Party exceeds listing capacity", ctx)
		return
	}

	// Reject overlapping confirmed stays
	var overlapping int64
	storage.DB.Model(&models.Reservation{}).
		Where("listing_id = ? AND status IN (?) AND check_in < ? AND check_out > ?",
			listing.ID, []string{"pending", "confirmed"}, input.CheckOut, input.CheckIn).
		Count(&overlapping)
	if overlapping > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict", "Listing is not available for those dates", ctx)
		return
	}

	nights := int(input.CheckOut.Sub(input.CheckIn).Hours() / 24)
	if nights < 1 {
		nights = 1
	}

	subtotal := float64(listing.NightlyPrice) * float64(nights)
	serviceFee := subtotal * 0.03
	totalPrice := subtotal + float64(listing.CleaningFee) + serviceFee

	var reservation models.Reservation
	parsedID, _ := strconv.ParseUint(listingID, 10, 64)
	reservation.ListingID = uint(parsedID)
	reservation.GuestID = claims.ID
	reservation.CheckIn = input.CheckIn
	reservation.CheckOut = input.CheckOut
	reservation.NumGuests = input.NumGuests
	reservation.TotalPrice = totalPrice
	reservation.Status = "pending"
	reservation.Note = input.Note

	createRes := storage.DB.Create(&reservation)
	if createRes.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	storage.DB.Preload("Listing").Preload("Guest").First(&reservation, reservation.ID)

	var guest models.User
	if err := storage.DB.First(&guest, claims.ID).Error; err == nil {
		guestName := fmt.Sprintf("%s %s", guest.FirstName, guest.LastName)
		notificationService := services.NewNotificationService()
		go notificationService.SendReservationNotificationToHost(
			reservation.ID,
			listing.ID,
			listing.HostID,
			claims.ID,
			guestName,
			listing.Title,
		)
	}

	ctx.JSON(reservation)
}

func GetReservationsByListingID(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var reservations []models.Reservation
	res := storage.DB.Preload("Listing").Preload("Guest").
		Where("listing_id = ?", id).Order("created_at DESC").Find(&reservations)

	if res.Error != nil {
		utils.CreateError(
			iris.StatusInternalServerError,
			"Error", res.Error.Error(), ctx)
		return
	}

	ctx.JSON(reservations)
}

// GetHostReservations returns reservations for all listings owned by the authenticated host
func GetHostReservations(ctx iris.Context) {
	tok := jwt.Get(ctx)
	if tok == nil {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Missing token", ctx)
		return
	}
	user := tok.(*utils.AccessToken)

	var reservations []models.Reservation
	res := storage.DB.
		Joins("JOIN listings l ON l.id = reservations.listing_id").
		Where("l.host_id = ?", user.ID).
		Preload("Listing").
		Preload("Listing.Host").
		Preload("Guest").
		Order("reservations.created_at DESC").
		Find(&reservations)

	if res.Error != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", res.Error.Error(), ctx)
		return
	}

	ctx.JSON(reservations)
}

func GetGuestReservations(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var reservations []models.Reservation
	res := storage.DB.Preload("Listing").Preload("Listing.Host").
		Where("guest_id = ?", claims.ID).Order("created_at DESC").Find(&reservations)

	if res.Error != nil {
		utils.CreateError(
			iris.StatusInternalServerError,
			"Error", res.Error.Error(), ctx)
		return
	}

	ctx.JSON(reservations)
}

type UpdateReservationStatusInput struct {
	Status string `json:"status" validate:"required,oneof=confirmed rejected completed"`
}

// UpdateReservationStatus is a host action: confirm, reject, or complete
func UpdateReservationStatus(ctx iris.Context) {
	id := ctx.Params().Get("id")
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input UpdateReservationStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var reservation models.Reservation
	if err := storage.DB.Preload("Listing").First(&reservation, id).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Reservation not found", ctx)
		return
	}

	if reservation.Listing == nil || reservation.Listing.HostID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	if reservation.Status == "cancelled" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Reservation is cancelled", ctx)
		return
	}

	reservation.Status = input.Status
	if err := storage.DB.Save(&reservation).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	notificationService := services.NewNotificationService()
	go notificationService.SendNotificationToUser(
		reservation.GuestID,
		"Reservation Updated",
		fmt.Sprintf("Your reservation for %s is now %s", reservation.Listing.Title, input.Status),
		services.NotificationData{
			Type:   "reservation_status",
			ID:     fmt.Sprintf("%d", reservation.ID),
			Screen: "ReservationDetail",
		},
	)

	ctx.JSON(reservation)
}

// CancelReservation is a guest action on a still-pending reservation
func CancelReservation(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	reservationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid reservation ID", ctx)
		return
	}

	var reservation models.Reservation
	if err := storage.DB.Preload("Listing").
		Where("id = ? AND guest_id = ?", reservationID, claims.ID).
		First(&reservation).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if reservation.Status == "completed" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Cannot cancel a completed stay", ctx)
		return
	}
	if reservation.Status == "cancelled" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Reservation is already cancelled", ctx)
		return
	}

	reservation.Status = "cancelled"
	if err := storage.DB.Save(&reservation).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(reservation)
}

// CompletedBookingCount counts paid-out stays for a host. The payout fee
// only applies after the host's first few completed bookings.
func CompletedBookingCount(hostID uint) int64 {
	var count int64
	storage.DB.Model(&models.Reservation{}).
		Joins("JOIN listings l ON l.id = reservations.listing_id").
		Where("l.host_id = ? AND reservations.status = ?", hostID, "completed").
		Count(&count)
	return count
}
