package routes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"staynest-server/models"
	"staynest-server/storage"
	"staynest-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm/clause"
)

func CreateListing(ctx iris.Context) {
	var input CreateListingInput

	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if input.HostID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	// Arrays are never stored as null
	amenities := input.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	amenitiesJSON, _ := json.Marshal(amenities)

	imagesArr := insertImages(insertImagesArgs{images: input.Images})
	if imagesArr == nil {
		imagesArr = []string{}
	}
	imagesJSON, _ := json.Marshal(imagesArr)

	listing := models.Listing{
		HostID:             input.HostID,
		Title:              input.Title,
		Description:        input.Description,
		ListingType:        input.ListingType,
		AddressLine1:       input.AddressLine1,
		AddressLine2:       input.AddressLine2,
		City:               input.City,
		State:              input.State,
		Zip:                input.Zip,
		Country:            input.Country,
		Lat:                input.Lat,
		Lng:                input.Lng,
		Capacity:           input.Capacity,
		Bedrooms:           input.Bedrooms,
		Beds:               input.Beds,
		Bathrooms:          input.Bathrooms,
		NightlyPrice:       input.NightlyPrice,
		CleaningFee:        input.CleaningFee,
		Currency:           input.Currency,
		Amenities:          string(amenitiesJSON),
		HouseRules:         input.HouseRules,
		CancellationPolicy: input.CancellationPolicy,
		Images:             string(imagesJSON),
		IsActive:           input.IsActive,
	}

	result := storage.DB.Create(&listing)
	if result.Error != nil {
		utils.CreateError(iris.StatusInternalServerError, "Error", "Failed to create listing", ctx)
		return
	}

	promoteToHost(claims.ID)

	ctx.JSON(listing)
}

func GetListing(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	listing := getListingAndAssociationsByID(id, ctx)
	if listing == nil {
		return
	}

	ctx.JSON(listing)
}

func GetListingsByUserID(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var listings []models.Listing
	listingsExist := storage.DB.Preload(clause.Associations).Where("host_id = ?", id).Find(&listings)

	if listingsExist.Error != nil {
		utils.CreateError(
			iris.StatusInternalServerError,
			"Error", listingsExist.Error.Error(), ctx)
		return
	}

	ctx.JSON(listings)
}

func DeleteListing(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var listing models.Listing
	listingExists := storage.DB.Find(&listing, id)

	if listingExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	if listing.HostID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	listingDeleted := storage.DB.Delete(&models.Listing{}, id)

	if listingDeleted.Error != nil {
		utils.CreateError(
			iris.StatusInternalServerError,
			"Error", listingDeleted.Error.Error(), ctx)
		return
	}

	storage.DB.Where("listing_id = ?", id).Delete(&models.Reservation{})
	ctx.StatusCode(iris.StatusNoContent)
}

func UpdateListing(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	listing := getListingAndAssociationsByID(id, ctx)
	if listing == nil {
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	if listing.HostID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	var input UpdateListingInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	amenities, _ := json.Marshal(input.Amenities)

	imagesArr := insertImages(insertImagesArgs{
		images:    input.Images,
		listingID: strconv.FormatUint(uint64(listing.ID), 10),
	})
	jsonImgs, _ := json.Marshal(imagesArr)

	listing.Title = input.Title
	listing.Description = input.Description
	listing.ListingType = input.ListingType
	listing.AddressLine1 = input.AddressLine1
	listing.AddressLine2 = input.AddressLine2
	listing.City = input.City
	listing.State = input.State
	listing.Zip = input.Zip
	listing.Country = input.Country
	listing.Lat = input.Lat
	listing.Lng = input.Lng
	listing.Capacity = input.Capacity
	listing.Bedrooms = input.Bedrooms
	listing.Beds = input.Beds
	listing.Bathrooms = input.Bathrooms
	listing.NightlyPrice = input.NightlyPrice
	listing.CleaningFee = input.CleaningFee
	listing.Currency = input.Currency
	listing.Amenities = string(amenities)
	listing.HouseRules = input.HouseRules
	listing.CancellationPolicy = input.CancellationPolicy
	listing.Images = string(jsonImgs)
	listing.IsActive = input.IsActive

	rowsUpdated := storage.DB.Model(&listing).Updates(listing)

	if rowsUpdated.Error != nil {
		utils.CreateError(
			iris.StatusInternalServerError,
			"Error", rowsUpdated.Error.Error(), ctx)
		return
	}

	ctx.StatusCode(iris.StatusNoContent)
}

func getListingAndAssociationsByID(id string, ctx iris.Context) *models.Listing {
	var listing models.Listing
	listingExists := storage.DB.Preload("Host").
		Preload("Reviews").
		Find(&listing, id)

	if listingExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}

	if listingExists.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}

	return &listing
}

func GetListingsByBoundingBox(ctx iris.Context) {
	var boundingBox BoundingBoxInput
	err := ctx.ReadJSON(&boundingBox)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var listings []models.Listing
	result := storage.DB.Preload("Host").
		Preload("Reviews").
		Scopes(guestVisible).
		Where("lat >= ? AND lat <= ? AND lng >= ? AND lng <= ?",
			boundingBox.LatLow, boundingBox.LatHigh, boundingBox.LngLow, boundingBox.LngHigh).
		Order("created_at DESC").
		Find(&listings)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(listings)
}

// promoteToHost flips a plain user to host on their first published listing.
// Host-only surfaces key off the role claim in later token pairs.
func promoteToHost(userID uint) {
	storage.DB.Model(&models.User{}).
		Where("id = ? AND role = ?", userID, "user").
		Update("role", "host")
}

// insertImages uploads base64 payloads and passes through already-hosted URLs
func insertImages(arg insertImagesArgs) []string {
	var imagesArr []string
	for i, image := range arg.images {
		if image == "" {
			continue
		}
		if !strings.Contains(image, "res.cloudinary.com") {
			timestamp := time.Now().UnixNano() / int64(time.Millisecond)
			publicID := fmt.Sprintf("listing_%d_%d", timestamp, i)

			if arg.listingID != "" {
				publicID = "listing/" + arg.listingID + "/" + publicID
			}

			urlMap := storage.UploadBase64Image(image, publicID)
			if urlMap != nil && urlMap["url"] != "" {
				imagesArr = append(imagesArr, urlMap["url"])
			} else {
				fmt.Printf("Failed to upload image with publicID: %s\n", publicID)
			}
		} else {
			imagesArr = append(imagesArr, image)
		}
	}
	return imagesArr
}

// DeleteListingImage removes a single image from a listing and from storage
func DeleteListingImage(ctx iris.Context) {
	var input DeleteImageInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	listing := getListingAndAssociationsByID(strconv.FormatUint(uint64(input.ListingID), 10), ctx)
	if listing == nil {
		return
	}

	userID := ctx.Values().Get("userID").(uint)
	if listing.HostID != userID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	var images []string
	if listing.Images != "" {
		if err := json.Unmarshal([]byte(listing.Images), &images); err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	kept := images[:0]
	for _, image := range images {
		if image != input.ImageURL {
			kept = append(kept, image)
		}
	}

	jsonImgs, _ := json.Marshal(kept)
	if err := storage.DB.Model(&listing).Update("images", string(jsonImgs)).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	storage.DeleteImage(input.ImageURL)

	ctx.StatusCode(iris.StatusNoContent)
}

type insertImagesArgs struct {
	images    []string
	listingID string
}

type CreateListingInput struct {
	HostID             uint     `json:"hostID" validate:"required"`
	Title              string   `json:"title" validate:"required,max=256"`
	Description        string   `json:"description"`
	ListingType        string   `json:"listingType" validate:"required,oneof=entire_place private_room shared_room"`
	AddressLine1       string   `json:"addressLine1"`
	AddressLine2       string   `json:"addressLine2"`
	City               string   `json:"city" validate:"required"`
	State              string   `json:"state"`
	Zip                string   `json:"zip"`
	Country            string   `json:"country" validate:"required"`
	Lat                float32  `json:"lat"`
	Lng                float32  `json:"lng"`
	Capacity           int      `json:"capacity" validate:"required,min=1,max=16"`
	Bedrooms           int      `json:"bedrooms"`
	Beds               int      `json:"beds"`
	Bathrooms          float32  `json:"bathrooms"`
	NightlyPrice       float32  `json:"nightlyPrice" validate:"required,gt=0"`
	CleaningFee        float32  `json:"cleaningFee"`
	Currency           string   `json:"currency"`
	Amenities          []string `json:"amenities"`
	HouseRules         string   `json:"houseRules"`
	CancellationPolicy string   `json:"cancellationPolicy"`
	Images             []string `json:"images"`
	IsActive           *bool    `json:"isActive"`
}

type UpdateListingInput struct {
	Title              string   `json:"title" validate:"required,max=256"`
	Description        string   `json:"description"`
	ListingType        string   `json:"listingType" validate:"required,oneof=entire_place private_room shared_room"`
	AddressLine1       string   `json:"addressLine1"`
	AddressLine2       string   `json:"addressLine2"`
	City               string   `json:"city" validate:"required"`
	State              string   `json:"state"`
	Zip                string   `json:"zip"`
	Country            string   `json:"country" validate:"required"`
	Lat                float32  `json:"lat"`
	Lng                float32  `json:"lng"`
	Capacity           int      `json:"capacity" validate:"required,min=1,max=16"`
	Bedrooms           int      `json:"bedrooms"`
	Beds               int      `json:"beds"`
	Bathrooms          float32  `json:"bathrooms"`
	NightlyPrice       float32  `json:"nightlyPrice" validate:"required,gt=0"`
	CleaningFee        float32  `json:"cleaningFee"`
	Currency           string   `json:"currency"`
	Amenities          []string `json:"amenities"`
	HouseRules         string   `json:"houseRules"`
	CancellationPolicy string   `json:"cancellationPolicy"`
	Images             []string `json:"images"`
	IsActive           *bool    `json:"isActive"`
}

type BoundingBoxInput struct {
	LatLow  float32 `json:"latLow" validate:"required_with=LatHigh LngLow LngHigh"`
	LatHigh float32 `json:"latHigh" validate:"required_with=LatLow LngLow LngHigh"`
	LngLow  float32 `json:"lngLow" validate:"required_with=LatLow LatHigh LngHigh"`
	LngHigh float32 `json:"lngHigh" validate:"required_with=LatLow LatHigh LngLow"`
}

type DeleteImageInput struct {
	ListingID uint   `json:"listingID" validate:"required"`
	ImageURL  string `json:"imageURL" validate:"required"`
}
