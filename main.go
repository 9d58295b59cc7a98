package main

import (
	"os"

	"staynest-server/realtime"
	"staynest-server/routes"
	"staynest-server/storage"
	"staynest-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeRedis()

	routes.Feed = realtime.NewHub()

	app := iris.New()
	app.Validator = validator.New()

	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	resetTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("EMAIL_TOKEN_SECRET")))
	resetTokenVerifier.WithDefaultBlocklist()
	resetTokenVerifierMiddleware := resetTokenVerifier.Verify(func() interface{} {
		return new(utils.ForgotPasswordToken)
	})

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}

		return tokenInput.RefreshToken
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/google", routes.GoogleLoginOrSignUp)
		user.Post("/apple", routes.AppleLoginOrSignUp)
		user.Post("/forgotpassword", routes.ForgotPassword)
		user.Post("/resetpassword", resetTokenVerifierMiddleware, routes.ResetPassword)
		user.Get("/{id}/listings/saved", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.GetUserSavedListings)
		user.Patch("/{id}/listings/saved", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterUserSavedListings)
		user.Patch("/{id}/pushtoken", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterPushToken)
		user.Patch("/{id}/settings/notifications", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AllowsNotifications)
		user.Patch("/{id}/profile", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.UpdateUserProfile)
		user.Get("/{id}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetUser)
	}

	refresh := app.Party("/api/refresh")
	{
		refresh.Post("/", refreshTokenVerifierMiddleware, utils.RefreshToken)
	}

	listing := app.Party("/api/listing")
	{
		listing.Post("/", accessTokenVerifierMiddleware, routes.CreateListing)
		listing.Get("/search", routes.SearchListings)
		listing.Get("/{id}", routes.GetListing)
		listing.Get("/userid/{id}", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.GetListingsByUserID)
		listing.Delete("/{id}", accessTokenVerifierMiddleware, routes.DeleteListing)
		listing.Patch("/update/{id}", accessTokenVerifierMiddleware, routes.UpdateListing)
		listing.Post("/boundingbox", routes.GetListingsByBoundingBox)
		listing.Delete("/image", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.DeleteListingImage)
	}

	reservation := app.Party("/api/reservation")
	{
		reservation.Get("/listing/{id}", accessTokenVerifierMiddleware, routes.GetReservationsByListingID)
		reservation.Post("/listing/{id}", accessTokenVerifierMiddleware, routes.CreateReservation)
		reservation.Patch("/{id}/status", accessTokenVerifierMiddleware, routes.UpdateReservationStatus)
		reservation.Delete("/{id:uint}", accessTokenVerifierMiddleware, routes.CancelReservation)
		reservation.Get("/host", accessTokenVerifierMiddleware, utils.HostOnlyMiddleware, routes.GetHostReservations)
		reservation.Get("/guest", accessTokenVerifierMiddleware, routes.GetGuestReservations)
	}

	review := app.Party("/api/review")
	{
		review.Get("/listing/{listingId:uint}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.ListListingReviews)
		review.Post("/listing/{listingId:uint}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.CreateListingReview)
	}

	conversation := app.Party("/api/conversation")
	{
		conversation.Post("/", accessTokenVerifierMiddleware, routes.StartConversation)
		conversation.Get("/", accessTokenVerifierMiddleware, routes.GetUserConversations)
		conversation.Get("/{id}", accessTokenVerifierMiddleware, routes.GetConversation)
		conversation.Post("/{conversationID:uint}/typing", accessTokenVerifierMiddleware, routes.Typing)
		conversation.Get("/{conversationID:uint}/typing", accessTokenVerifierMiddleware, routes.ListTyping)
	}

	messages := app.Party("/api/messages")
	{
		messages.Post("/", accessTokenVerifierMiddleware, routes.CreateMessage)
		messages.Get("/", accessTokenVerifierMiddleware, routes.ListMessages)
		messages.Post("/state", accessTokenVerifierMiddleware, routes.SetMessageState)
		messages.Get("/feed", accessTokenVerifierMiddleware, routes.MessageFeed)
	}

	imports := app.Party("/api/import", accessTokenVerifierMiddleware)
	{
		imports.Post("/", routes.SubmitImport)
		imports.Get("/", routes.GetHostImports)
		imports.Post("/compare", routes.ComparePricing)
		imports.Get("/{id}", routes.GetImport)
		imports.Get("/{id}/compare", routes.CompareImport)
		imports.Post("/{id}/publish", routes.PublishImport)
		imports.Post("/{id}/discard", routes.DiscardImport)
	}

	app.Listen(":4000")
}
