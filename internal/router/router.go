package router

import (
	"log"
	"time"

	"github.com/felicity-dev/felicity/internal/auth"
	"github.com/felicity-dev/felicity/internal/config"
	"github.com/felicity-dev/felicity/internal/handlers"
	"github.com/felicity-dev/felicity/internal/middleware"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, h *handlers.Handler, issuer *auth.Issuer, database *gorm.DB) *gin.Engine {
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := handlers.RegisterValidators(); err != nil {
		log.Printf("Failed to register validators: %v", err)
	}

	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authed := middleware.AuthMiddleware(issuer, database)
	participant := middleware.RequireRole(models.RoleParticipant)
	organizer := middleware.RequireRole(models.RoleOrganizer)
	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin)

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/ws/events/:id", authed, h.EventSocket)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", h.CreateUser)
			authRoutes.POST("/login", h.LoginUser)
			authRoutes.POST("/logout", h.LogoutUser)
			authRoutes.GET("/me", authed, h.Me)
			authRoutes.PATCH("/me", authed, h.UpdateUser)
			authRoutes.POST("/onboarding", authed, participant, h.CompleteOnboarding)
			authRoutes.POST("/password-reset-requests", authed, organizer, h.RequestPasswordReset)
		}

		organizers := api.Group("/organizers", authed)
		{
			organizers.GET("", h.ListOrganizers)
			organizers.POST("/:id/follow", participant, h.FollowOrganizer)
			organizers.DELETE("/:id/follow", participant, h.UnfollowOrganizer)
		}

		events := api.Group("/events", authed)
		{
			events.GET("", h.ListEvents)
			events.POST("", organizer, h.CreateEvent)
			events.GET("/:id", h.GetEvent)
			events.PATCH("/:id", organizer, h.UpdateEvent)
			events.POST("/:id/status", organizer, h.ChangeEventStatus)

			events.GET("/:id/registrations", staff, h.ListEventRegistrations)
			events.GET("/:id/registrations/export", staff, h.ExportRegistrations)
			events.GET("/:id/attendance", staff, h.AttendanceSummary)

			events.GET("/:id/messages", h.ListMessages)
			events.POST("/:id/messages", h.PostMessage)

			events.POST("/:id/teams", participant, h.CreateTeam)
			events.GET("/:id/teams", h.ListTeams)
			events.GET("/:id/teams/mine", participant, h.MyTeam)
			events.POST("/:id/teams/join", participant, h.JoinTeam)
		}

		api.GET("/organizer/events", authed, organizer, h.ListOrganizerEvents)

		registrations := api.Group("/registrations", authed)
		{
			registrations.POST("", participant, h.Register)
			registrations.GET("/me", participant, h.MyRegistrations)
			registrations.DELETE("/:eventId", participant, h.CancelRegistration)
			registrations.GET("/:ticketId/qr", participant, h.TicketQR)
			registrations.POST("/attendance/mark", organizer, h.MarkAttendance)
		}

		messages := api.Group("/messages", authed)
		{
			messages.DELETE("/:id", h.DeleteMessage)
			messages.POST("/:id/pin", organizer, h.PinMessage)
			messages.POST("/:id/reactions", h.ReactToMessage)
		}

		announcements := api.Group("/announcements", authed, participant)
		{
			announcements.GET("/unread", h.UnreadAnnouncements)
			announcements.POST("/read", h.MarkAnnouncementsRead)
		}

		api.POST("/teams/:id/invites", authed, participant, h.InviteToTeam)

		adminGroup := api.Group("/admin", authed, admin)
		{
			adminGroup.POST("/organizers", h.AdminCreateOrganizer)
			adminGroup.GET("/organizers", h.AdminListOrganizers)
			adminGroup.DELETE("/organizers/:id", h.AdminDeleteOrganizer)
			adminGroup.GET("/events", h.AdminListEvents)
			adminGroup.GET("/password-resets", h.AdminListPasswordResets)
			adminGroup.POST("/password-resets/:id/approve", h.AdminApprovePasswordReset)
			adminGroup.POST("/password-resets/:id/reject", h.AdminRejectPasswordReset)
		}
	}

	return r
}
