package routes

import (
	"context"
	"net/http"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/controllers"
	"salonsync-backend/middleware"
	"salonsync-backend/services"
	"salonsync-backend/storage"
	"salonsync-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps are the collaborators handlers need beyond the database
type Deps struct {
	Settings    *config.Settings
	Notifier    services.Notifier
	Publisher   services.Publisher
	Store       storage.Store
	Captions    *services.CaptionGenerator
	RateLimiter *middleware.RateLimiter
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = 32 << 20

	origins := []string{"http://localhost:3000"}
	if deps.Settings != nil && len(deps.Settings.CORS.AllowedOrigins) > 0 {
		origins = deps.Settings.CORS.AllowedOrigins
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(config.PerformanceLogger())

	utils.RegisterValidators()

	if deps.Notifier == nil {
		deps.Notifier = services.LogNotifier{}
	}
	if deps.Store == nil {
		deps.Store, _ = storage.New(context.Background(), config.StorageSettings{Driver: "none"})
	}
	if deps.Publisher == nil {
		deps.Publisher = services.NewInstagramPublisher("https://graph.facebook.com/v19.0", nil)
	}
	if deps.Captions == nil {
		deps.Captions = services.NewCaptionGenerator()
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = middleware.NewRateLimiter(middleware.RateLimitConfig{})
	}

	r.GET("/health", healthCheck)

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
		auth.POST("/logout", controllers.Logout)
		auth.PUT("/password", controllers.ChangePassword)
	}

	giftCards := controllers.NewGiftCardController(deps.Notifier)
	waitlist := controllers.NewWaitlistController(deps.Notifier)
	mediaSets := controllers.NewMediaSetController(deps.Store, deps.Captions)
	posts := controllers.NewSocialPostController(deps.Publisher, deps.Captions)
	booking := controllers.NewBookingController(deps.Notifier)
	reports := controllers.ReportController{}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())

	salons := api.Group("/salons")
	{
		salons.POST("", controllers.CreateSalon)
		salons.GET("", controllers.GetSalons)
	}

	staffAccess := middleware.SalonAccess(middleware.AccessStaff)
	managerAccess := middleware.SalonAccess(middleware.AccessManager)
	ownerAccess := middleware.SalonAccess(middleware.AccessOwner)

	salon := salons.Group("/:salonId")
	{
		salon.GET("", staffAccess, controllers.GetSalon)
		salon.PUT("", managerAccess, controllers.UpdateSalon)
		salon.DELETE("", ownerAccess, controllers.DeleteSalon)

		salon.GET("/settings", staffAccess, controllers.GetSalonSettings)
		salon.PUT("/settings", managerAccess, controllers.UpdateSalonSettings)
		salon.GET("/reminder-templates", staffAccess, controllers.GetReminderTemplates)
		salon.PUT("/reminder-templates", managerAccess, controllers.UpsertReminderTemplate)
		salon.GET("/stats", staffAccess, controllers.GetSalonStats)

		salon.GET("/social", staffAccess, controllers.GetSocialStatus)
		salon.POST("/social/instagram", managerAccess, controllers.ConnectInstagram)
		salon.DELETE("/social/instagram", managerAccess, controllers.DisconnectInstagram)
	}

	staff := salon.Group("/staff")
	{
		staff.POST("", managerAccess, controllers.CreateStaff)
		staff.GET("", staffAccess, controllers.GetStaffList)
		staff.GET("/:id", staffAccess, controllers.GetStaff)
		staff.PUT("/:id", managerAccess, controllers.UpdateStaff)
		staff.DELETE("/:id", managerAccess, controllers.DeleteStaff)
		staff.GET("/:id/schedule", staffAccess, controllers.GetStaffSchedule)
		staff.PUT("/:id/schedule", managerAccess, controllers.UpdateStaffSchedule)
	}

	clients := salon.Group("/clients", staffAccess)
	{
		clients.POST("", controllers.CreateClient)
		clients.GET("", controllers.GetClients)
		clients.GET("/:id", controllers.GetClient)
		clients.PUT("/:id", controllers.UpdateClient)
		clients.DELETE("/:id", managerAccess, controllers.DeleteClient)
		clients.POST("/:id/notes", controllers.AddClientNote)
		clients.POST("/:id/tags", controllers.AddClientTags)
		clients.DELETE("/:id/tags/:tag", controllers.RemoveClientTag)
		clients.GET("/:id/consent", controllers.GetClientConsent)
		clients.PUT("/:id/consent", controllers.UpdateClientConsent)
		clients.GET("/:id/history", controllers.GetClientHistory)
	}

	svc := salon.Group("/services")
	{
		svc.POST("", managerAccess, controllers.CreateService)
		svc.GET("", staffAccess, controllers.GetServices)
		svc.GET("/categories", staffAccess, controllers.GetServiceCategories)
		svc.GET("/by-category", staffAccess, controllers.GetServicesByCategory)
		svc.PUT("/reorder", managerAccess, controllers.ReorderServices)
		svc.GET("/:id", staffAccess, controllers.GetService)
		svc.PUT("/:id", managerAccess, controllers.UpdateService)
		svc.DELETE("/:id", managerAccess, controllers.DeleteService)
		svc.POST("/:id/duplicate", managerAccess, controllers.DuplicateService)
	}

	appointments := salon.Group("/appointments", staffAccess)
	{
		appointments.POST("", controllers.CreateAppointment)
		appointments.GET("", controllers.GetAppointments)
		appointments.GET("/today", controllers.GetTodayAppointments)
		appointments.GET("/availability", controllers.GetAvailability)
		appointments.GET("/:id", controllers.GetAppointment)
		appointments.PUT("/:id", controllers.UpdateAppointment)
		appointments.POST("/:id/confirm", controllers.ConfirmAppointment)
		appointments.POST("/:id/check-in", controllers.CheckInAppointment)
		appointments.POST("/:id/start", controllers.StartAppointment)
		appointments.POST("/:id/complete", controllers.CompleteAppointment)
		appointments.POST("/:id/cancel", controllers.CancelAppointment)
		appointments.POST("/:id/no-show", controllers.NoShowAppointment)
		appointments.POST("/:id/reschedule", controllers.RescheduleAppointment)
	}

	sales := salon.Group("/sales", staffAccess)
	{
		sales.POST("", controllers.CreateSale)
		sales.GET("", controllers.GetSales)
		sales.GET("/today", controllers.GetTodaySales)
		sales.GET("/:id", controllers.GetSale)
		sales.POST("/:id/refund", managerAccess, controllers.RefundSale)
	}

	cards := salon.Group("/gift-cards", staffAccess)
	{
		cards.POST("", giftCards.CreateGiftCard)
		cards.GET("", giftCards.GetGiftCards)
		cards.GET("/:id", giftCards.GetGiftCard)
		cards.GET("/:id/transactions", giftCards.GetGiftCardTransactions)
		cards.POST("/:id/redeem", giftCards.RedeemGiftCard)
		cards.POST("/:id/cancel", managerAccess, giftCards.CancelGiftCard)
		cards.POST("/:id/resend", giftCards.ResendGiftCard)
	}

	wl := salon.Group("/waitlist", staffAccess)
	{
		wl.POST("", waitlist.CreateWaitlistEntry)
		wl.GET("", waitlist.GetWaitlist)
		wl.GET("/stats", waitlist.GetWaitlistStats)
		wl.GET("/for-date/:date", waitlist.GetWaitlistForDate)
		wl.GET("/:id", waitlist.GetWaitlistEntry)
		wl.PATCH("/:id", waitlist.UpdateWaitlistEntry)
		wl.DELETE("/:id", waitlist.DeleteWaitlistEntry)
		wl.POST("/:id/notify", waitlist.NotifyWaitlistEntry)
		wl.POST("/:id/book", waitlist.BookWaitlistEntry)
	}

	media := salon.Group("/media-sets", staffAccess)
	{
		media.POST("", mediaSets.CreateMediaSet)
		media.POST("/upload", mediaSets.UploadMediaSet)
		media.GET("", mediaSets.GetMediaSets)
		media.GET("/portfolio", mediaSets.GetPortfolio)
		media.GET("/formulas", mediaSets.GetFormulaHistory)
		media.GET("/:id", mediaSets.GetMediaSet)
		media.PATCH("/:id", mediaSets.UpdateMediaSet)
		media.DELETE("/:id", mediaSets.DeleteMediaSet)
		media.POST("/:id/photos", mediaSets.AddPhoto)
		media.POST("/:id/caption", mediaSets.GenerateCaption)
	}

	social := salon.Group("/social-posts", staffAccess)
	{
		social.POST("", posts.CreateSocialPost)
		social.POST("/from-media-set/:id", posts.CreateFromMediaSet)
		social.POST("/generate-caption", posts.GeneratePostCaption)
		social.GET("", posts.GetSocialPosts)
		social.GET("/analytics", posts.GetSocialAnalytics)
		social.GET("/:id", posts.GetSocialPost)
		social.PATCH("/:id", posts.UpdateSocialPost)
		social.DELETE("/:id", posts.DeleteSocialPost)
		social.POST("/:id/schedule", posts.SchedulePost)
		social.POST("/:id/publish", managerAccess, posts.PublishSocialPost)
		social.POST("/:id/retry", managerAccess, posts.RetrySocialPost)
		social.POST("/:id/metrics", posts.RefreshMetrics)
	}

	dashboard := salon.Group("/dashboard", staffAccess)
	{
		dashboard.GET("", controllers.GetDashboard)
		dashboard.GET("/upcoming", controllers.GetUpcomingAppointments)
		dashboard.GET("/revenue", managerAccess, controllers.GetRevenueSeries)
		dashboard.GET("/needs-attention", controllers.GetNeedsAttention)
		dashboard.GET("/analytics", managerAccess, reports.GetReportAnalytics)
	}

	public := r.Group("/public")
	public.Use(middleware.RateLimit(deps.RateLimiter))
	{
		book := public.Group("/book/:slug")
		book.GET("", booking.GetPublicSalon)
		book.POST("", booking.BookAppointment)
		book.GET("/services", booking.GetPublicServices)
		book.GET("/staff", booking.GetPublicStaff)
		book.GET("/availability", booking.GetPublicAvailability)
		book.GET("/lookup", booking.LookupBooking)
		book.POST("/cancel", booking.CancelBooking)
		book.GET("/portfolio", booking.GetPublicPortfolio)

		public.GET("/gift-cards/balance", giftCards.CheckGiftCardBalance)
	}

	return r
}

func healthCheck(c *gin.Context) {
	if err := config.PingDB(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "connected"})
}
