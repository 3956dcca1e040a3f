package api

import (
	"fmt"
	"path/filepath"

	"natours/internal/config"
	"natours/internal/domain"
	"natours/internal/domain/models"
	h "natours/internal/http/handlers"
	"natours/internal/http/middleware"
	"natours/internal/repositories"
	"natours/internal/services"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// hppWhitelist lists the query keys that may repeat.
var hppWhitelist = []string{"duration", "ratingsQuantity", "ratingsAverage", "maxGroupSize", "difficulty", "price"}

// Deps is everything the routes need, built once in main.
type Deps struct {
	DB    h.DBPinger
	Redis *redis.Client

	Users    *repositories.UserRepository
	Tours    *repositories.TourRepository
	Reviews  *repositories.ReviewRepository
	Bookings *repositories.BookingRepository

	Auth        *services.AuthService
	TourService services.TourService
	Images      services.ImageService
	BookingSvc  services.BookingService
	Ratings     services.RatingService
}

func NewRouter(env config.Env, log zerolog.Logger, d Deps) (*gin.Engine, error) {
	prod := env.IsProduction()

	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		log.Warn().Err(err).Msg("failed to set trusted proxies")
	}
	r.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		h.ErrorHandler(log, prod),
		h.Recovery(),
		middleware.SecurityHeaders(prod),
		middleware.CORS(env.CORS.Origins()),
		gzip.Gzip(gzip.DefaultCompression),
	)

	tmpl, err := h.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	for _, dir := range []string{"img", "css", "js"} {
		r.Static("/"+dir, filepath.Join(env.App.PublicDir, dir))
	}
	r.NoRoute(h.NotFound)

	// resources
	userRes := h.NewResource[models.User](d.Users, log)
	tourRes := h.NewResource[models.Tour](d.Tours, log)
	tourRes.Populate = []string{repositories.PopulateReviews}
	reviewRes := h.NewResource[models.Review](d.Reviews, log)
	reviewRes.Hooks = d.Ratings
	bookingRes := h.NewResource[models.Booking](d.Bookings, log)

	auth := h.AuthHandler{Auth: d.Auth, CookieDays: env.Auth.CookieExpiresDays, Production: prod, PublicURL: env.App.PublicURL}
	users := h.UserHandler{Users: userRes, Auth: d.Auth, Images: d.Images}
	tours := h.TourHandler{Tours: tourRes, Service: d.TourService, Images: d.Images}
	reviews := h.ReviewHandler{Reviews: reviewRes, Purchases: d.BookingSvc}
	bookings := h.BookingHandler{Bookings: bookingRes, Service: d.BookingSvc, PublicURL: env.App.PublicURL}
	views := h.ViewHandler{Tours: d.Tours, Bookings: d.BookingSvc, Auth: d.Auth}
	system := h.SystemHandler{DB: d.DB, Engine: r}
	if d.Redis != nil {
		system.Redis = d.Redis
	}

	protect := middleware.Protect(d.Auth)
	staff := middleware.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide)

	// payment provider callback, raw body
	r.POST("/webhook-checkout", h.Handle(bookings.Webhook))

	api := r.Group("/api")
	api.GET("/health", system.Health)
	api.GET("/routes", system.Routes)

	v1 := api.Group("/v1",
		middleware.RateLimit(env.RateLimit.Requests, env.RateLimit.Window),
		middleware.ParseBody(middleware.DefaultBodyLimit),
		middleware.Sanitize(),
		middleware.HPP(hppWhitelist...),
	)

	// Users
	u := v1.Group("/users")
	u.POST("/signup", h.Handle(auth.Signup))
	u.POST("/login", h.Handle(auth.Login))
	u.GET("/logout", auth.Logout)
	u.POST("/forgotPassword", h.Handle(auth.ForgotPassword))
	u.PATCH("/resetPassword/:token", h.Handle(auth.ResetPassword))

	me := u.Group("", protect)
	me.PATCH("/updateMyPassword", h.Handle(auth.UpdatePassword))
	me.GET("/me", h.Handle(users.GetMe))
	me.PATCH("/updateMe", middleware.FilterBody("name", "email"), h.Handle(users.UpdateMe))
	me.DELETE("/deleteMe", h.Handle(users.DeleteMe))

	admin := me.Group("", middleware.RestrictTo(domain.RoleAdmin))
	admin.GET("", h.Handle(userRes.GetAll))
	admin.POST("", h.Handle(users.CreateUser))
	admin.GET("/:id", h.Handle(userRes.GetOne))
	admin.PATCH("/:id", h.Handle(userRes.UpdateOne))
	admin.DELETE("/:id", h.Handle(userRes.DeleteOne))

	// Tours
	t := v1.Group("/tours")
	t.GET("/top-5-cheap", middleware.Preset(h.TopCheapPreset), h.Handle(tourRes.GetAll))
	t.GET("/tour-stats", h.Handle(tours.Stats))
	t.GET("/monthly-plan/:year", protect,
		middleware.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide, domain.RoleGuide),
		h.Handle(tours.MonthlyPlan))
	t.GET("/tours-within/:distance/center/:latlng/unit/:unit", h.Handle(tours.Within))
	t.GET("/distances/:latlng/unit/:unit", h.Handle(tours.Distances))
	t.GET("", h.Handle(tourRes.GetAll))
	t.POST("", protect, staff, h.Handle(tourRes.CreateOne))
	t.GET("/:id", h.Handle(tourRes.GetOne))
	t.PATCH("/:id", protect, staff, h.Handle(tours.UploadImages), h.Handle(tourRes.UpdateOne))
	t.DELETE("/:id", protect, staff, h.Handle(tourRes.DeleteOne))

	// nested under a tour
	t.GET("/:id/reviews", middleware.InjectParentID("id", "tour"), h.Handle(reviewRes.GetAll))
	t.POST("/:id/reviews", protect, middleware.RestrictTo(domain.RoleUser),
		middleware.FilterBody("review", "rating", "tour"),
		middleware.InjectParentID("id", "tour"),
		middleware.InjectIdentity("user"),
		h.Handle(reviews.RequirePurchase),
		h.Handle(reviewRes.CreateOne))
	t.GET("/:id/bookings", protect, staff, middleware.InjectParentID("id", "tour"), h.Handle(bookingRes.GetAll))

	// Reviews
	rv := v1.Group("/reviews")
	rv.GET("", h.Handle(reviewRes.GetAll))
	rv.GET("/:id", h.Handle(reviewRes.GetOne))
	rv.POST("", protect, middleware.RestrictTo(domain.RoleUser),
		middleware.FilterBody("review", "rating", "tour"),
		middleware.InjectIdentity("user"),
		h.Handle(reviews.RequirePurchase),
		h.Handle(reviewRes.CreateOne))
	rv.PATCH("/:id", protect, middleware.RestrictTo(domain.RoleUser, domain.RoleAdmin),
		middleware.FilterBody("review", "rating"),
		h.Handle(reviewRes.UpdateOne))
	rv.DELETE("/:id", protect, middleware.RestrictTo(domain.RoleUser, domain.RoleAdmin), h.Handle(reviewRes.DeleteOne))

	// Bookings
	b := v1.Group("/bookings", protect)
	b.GET("/checkout-session/:tourId", h.Handle(bookings.CheckoutSession))
	b.GET("/:id/invoice", h.Handle(bookings.Invoice))
	bs := b.Group("", staff)
	bs.GET("", h.Handle(bookingRes.GetAll))
	bs.POST("", h.Handle(bookingRes.CreateOne))
	bs.GET("/:id", h.Handle(bookingRes.GetOne))
	bs.PATCH("/:id", h.Handle(bookingRes.UpdateOne))
	bs.DELETE("/:id", h.Handle(bookingRes.DeleteOne))

	// Pages
	optional := middleware.OptionalAuth(d.Auth)
	pages := r.Group("", h.PageErrors(), middleware.ParseBody(middleware.DefaultBodyLimit), middleware.Sanitize())
	pages.GET("/", optional, h.Handle(views.Overview))
	pages.GET("/tour/:slug", optional, h.Handle(views.Tour))
	pages.GET("/login", optional, views.Login)
	pages.GET("/me", protect, views.Account)
	pages.GET("/my-tours", protect, h.Handle(views.MyTours))
	pages.POST("/submit-user-data", protect, h.Handle(views.SubmitUserData))

	return r, nil
}
