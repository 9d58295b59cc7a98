package routes

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"staynest-server/models"
	"staynest-server/pricing"
	"staynest-server/storage"
	"staynest-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/datatypes"
)

type SubmitImportInput struct {
	SourcePlatform string   `json:"sourcePlatform" validate:"required,oneof=airbnb booking other"`
	SourceURL      string   `json:"sourceURL" validate:"required,url,max=512"`
	Title          string   `json:"title" validate:"required,max=256"`
	Description    string   `json:"description"`
	City           string   `json:"city"`
	Country        string   `json:"country"`
	RawPrice       string   `json:"rawPrice" validate:"required,max=64"`
	Photos         []string `json:"photos"`
}

// SubmitImport stores a scraped listing so the host can tune the discount
// and compare take-homes before publishing.
func SubmitImport(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input SubmitImportInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	referencePrice, err := ParseScrapedPrice(input.RawPrice)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Could not read a nightly price from the scraped text", ctx)
		return
	}

	photos := input.Photos
	if photos == nil {
		photos = []string{}
	}
	photosJSON, _ := json.Marshal(photos)

	imp := models.ListingImport{
		HostID:         claims.ID,
		SourcePlatform: input.SourcePlatform,
		SourceURL:      input.SourceURL,
		Title:          input.Title,
		Description:    input.Description,
		City:           input.City,
		Country:        input.Country,
		RawPrice:       input.RawPrice,
		ReferencePrice: referencePrice,
		Photos:         datatypes.JSON(photosJSON),
		Status:         "pending",
	}

	if err := storage.DB.Create(&imp).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Cache the scrape so re-opening the import screen skips a refetch
	cacheKey := importCacheKey(input.SourceURL)
	if body, err := json.Marshal(imp); err == nil {
		storage.Redis.Set(ctx, cacheKey, body, 24*time.Hour)
	}

	ctx.JSON(imp)
}

// GetImport returns one pending import with a comparison at its stored price
func GetImport(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	id := ctx.Params().Get("id")

	imp := getOwnedImport(id, claims.ID, ctx)
	if imp == nil {
		return
	}

	discount := ctx.URLParamIntDefault("discount", 0)

	// The payout fee only bites after the host's free booking allowance is
	// used up, so the screen shows which take-home column applies
	completed := CompletedBookingCount(claims.ID)

	ctx.JSON(iris.Map{
		"import":            imp,
		"comparison":        pricing.Compare(imp.ReferencePrice, discount),
		"completedBookings": completed,
		"payoutFeeApplies":  completed >= pricing.FreeBookingThreshold,
	})
}

// CompareImport evaluates the comparison for a stored import at the given
// discount, folding in the host's payout-fee standing.
func CompareImport(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	id := ctx.Params().Get("id")

	imp := getOwnedImport(id, claims.ID, ctx)
	if imp == nil {
		return
	}

	discount := ctx.URLParamIntDefault("discount", 0)
	completed := CompletedBookingCount(claims.ID)

	ctx.JSON(iris.Map{
		"comparison":        pricing.Compare(imp.ReferencePrice, discount),
		"completedBookings": completed,
		"payoutFeeApplies":  completed >= pricing.FreeBookingThreshold,
	})
}

// GetHostImports lists the authenticated host's imports, newest first
func GetHostImports(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var imports []models.ListingImport
	res := storage.DB.Where("host_id = ?", claims.ID).
		Order("created_at DESC").Find(&imports)

	if res.Error != nil {
		utils.CreateError(
			iris.StatusInternalServerError,
			"Error", res.Error.Error(), ctx)
		return
	}

	ctx.JSON(imports)
}

type CompareInput struct {
	ReferencePrice  float64 `json:"referencePrice" validate:"required,gt=0"`
	DiscountPercent int     `json:"discountPercent" validate:"gte=0,lte=20"`
}

// ComparePricing evaluates the fee comparison for an arbitrary scraped price.
// Stateless; the import screen calls it on every discount slider change.
func ComparePricing(ctx iris.Context) {
	var input CompareInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	ctx.JSON(pricing.Compare(input.ReferencePrice, input.DiscountPercent))
}

type PublishImportInput struct {
	DiscountPercent int     `json:"discountPercent" validate:"gte=0,lte=20"`
	ListingType     string  `json:"listingType" validate:"required,oneof=entire_place private_room shared_room"`
	Capacity        int     `json:"capacity" validate:"required,min=1,max=16"`
	Bedrooms        int     `json:"bedrooms"`
	Beds            int     `json:"beds"`
	Bathrooms       float32 `json:"bathrooms"`
	Lat             float32 `json:"lat"`
	Lng             float32 `json:"lng"`
}

// PublishImport turns a pending import into a live listing priced by the
// comparison's host price.
func PublishImport(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	id := ctx.Params().Get("id")

	imp := getOwnedImport(id, claims.ID, ctx)
	if imp == nil {
		return
	}
	if imp.Status != "pending" {
		utils.CreateError(iris.StatusConflict, "Conflict", "Import was already "+imp.Status, ctx)
		return
	}

	var input PublishImportInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	comparison := pricing.Compare(imp.ReferencePrice, input.DiscountPercent)

	active := true
	importID := imp.ID
	listing := models.Listing{
		HostID:          claims.ID,
		Title:           imp.Title,
		Description:     imp.Description,
		ListingType:     input.ListingType,
		City:            imp.City,
		Country:         imp.Country,
		Lat:             input.Lat,
		Lng:             input.Lng,
		Capacity:        input.Capacity,
		Bedrooms:        input.Bedrooms,
		Beds:            input.Beds,
		Bathrooms:       input.Bathrooms,
		NightlyPrice:    float32(comparison.HostPrice),
		Currency:        "INR",
		Images:          string(imp.Photos),
		IsActive:        &active,
		Status:          "live",
		ImportID:        &importID,
		DiscountPercent: comparison.DiscountPercent,
	}

	if err := storage.DB.Create(&listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	imp.Status = "published"
	imp.ListingID = &listing.ID
	if err := storage.DB.Save(imp).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	promoteToHost(claims.ID)

	ctx.JSON(iris.Map{
		"listing":    listing,
		"comparison": comparison,
	})
}

// DiscardImport marks a pending import as discarded
func DiscardImport(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	id := ctx.Params().Get("id")

	imp := getOwnedImport(id, claims.ID, ctx)
	if imp == nil {
		return
	}
	if imp.Status != "pending" {
		utils.CreateError(iris.StatusConflict, "Conflict", "Import was already "+imp.Status, ctx)
		return
	}

	imp.Status = "discarded"
	if err := storage.DB.Save(imp).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusNoContent)
}

func getOwnedImport(id string, hostID uint, ctx iris.Context) *models.ListingImport {
	var imp models.ListingImport
	res := storage.DB.Find(&imp, id)
	if res.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}
	if res.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}
	if imp.HostID != hostID {
		ctx.StatusCode(iris.StatusForbidden)
		return nil
	}
	return &imp
}

func importCacheKey(sourceURL string) string {
	return fmt.Sprintf("import:scrape:%s", sourceURL)
}

var priceDigits = regexp.MustCompile(`[0-9][0-9,]*(\.[0-9]+)?`)

// ParseScrapedPrice pulls the first numeric amount out of scraped price text
// like "₹1,000 night" or "$85.50 per night".
func ParseScrapedPrice(raw string) (float64, error) {
	m := priceDigits.FindString(raw)
	if m == "" {
		return 0, fmt.Errorf("no amount in %q", raw)
	}
	m = strings.ReplaceAll(m, ",", "")
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("non-positive amount in %q", raw)
	}
	return v, nil
}
