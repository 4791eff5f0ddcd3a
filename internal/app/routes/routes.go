package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/lingoschool/internal/app/controllers"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/middleware"
)

// Controllers groups every HTTP controller the router mounts
type Controllers struct {
	Auth        *controllers.AuthController
	User        *controllers.UserController
	Student     *controllers.StudentController
	Settings    *controllers.SettingsController
	Reservation *controllers.ReservationController
	Payment     *controllers.PaymentController
	Agreement   *controllers.AgreementController
	Memo        *controllers.MemoController
	Intake      *controllers.IntakeController
	Analytics   *controllers.AnalyticsController
	DashboardWS gin.HandlerFunc
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	v1 := router.Group("/api/v1")

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/login", c.Auth.Login)
		auth.POST("/refresh", c.Auth.RefreshToken)
	}

	public := v1.Group("/public")
	{
		public.POST("/contact", c.Intake.SubmitContact)
		public.POST("/trial-requests", c.Intake.SubmitTrial)
	}

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	backOffice := authMiddleware.BackOffice()
	adminOnly := authMiddleware.RoleRequired(models.RoleAdmin)
	lessonStaff := authMiddleware.RoleRequired(models.RoleAdmin, models.RoleStaff, models.RoleTeacher)

	session := authenticated.Group("/auth")
	{
		session.POST("/logout", c.Auth.Logout)
		session.GET("/me", c.Auth.Me)
		session.PUT("/password", c.Auth.ChangePassword)
	}

	users := authenticated.Group("/users", adminOnly)
	{
		users.POST("", c.User.CreateUser)
		users.GET("", c.User.ListUsers)
		users.GET("/:id", c.User.GetUserByID)
		users.PUT("/:id", c.User.UpdateUser)
		users.DELETE("/:id", c.User.DeleteUser)
	}
	authenticated.GET("/teachers", c.User.ListTeachers)

	// Students: scoped reads for everyone, writes for the back office
	students := authenticated.Group("/students")
	{
		students.GET("", c.Student.ListStudents)
		students.GET("/:id", c.Student.GetStudent)
		students.GET("/:id/balance", c.Payment.StudentBalance)
		students.GET("/:id/agreements", c.Agreement.ListStudentAgreements)
		students.GET("/:id/memos", c.Memo.ListStudentMemos)

		students.POST("", backOffice, c.Student.Register)
		students.PUT("/:id", backOffice, c.Student.UpdateStudent)
		students.DELETE("/:id", adminOnly, c.Student.DeleteStudent)
	}
	authenticated.GET("/me/students", c.Student.MyStudents)

	settings := authenticated.Group("/settings")
	{
		settings.GET("/lesson-durations", c.Settings.GetLessonDurations)
		settings.PUT("/lesson-durations", adminOnly, c.Settings.UpdateLessonDurations)
		settings.DELETE("/lesson-durations/:duration", adminOnly, c.Settings.DeleteLessonDuration)
	}

	reservations := authenticated.Group("/reservations")
	{
		reservations.GET("", c.Reservation.ListReservations)
		reservations.GET("/:id", c.Reservation.GetReservation)
		reservations.POST("", lessonStaff, c.Reservation.CreateReservation)
		reservations.PUT("/:id", lessonStaff, c.Reservation.RescheduleReservation)
		reservations.PATCH("/:id/status", lessonStaff, c.Reservation.UpdateReservationStatus)
		reservations.DELETE("/:id", adminOnly, c.Reservation.DeleteReservation)
	}

	payments := authenticated.Group("/payments")
	{
		payments.GET("", c.Payment.ListPayments)
		payments.GET("/:id", c.Payment.GetPayment)
		payments.POST("", backOffice, c.Payment.RecordPayment)
		payments.POST("/:id/refund", backOffice, c.Payment.RefundPayment)
	}

	agreements := authenticated.Group("/agreements")
	{
		agreements.POST("", authMiddleware.RoleRequired(models.RoleAdmin, models.RoleStaff, models.RoleStudent, models.RoleParent), c.Agreement.SignAgreement)
		agreements.GET("/:id", c.Agreement.GetAgreement)
		agreements.GET("/:id/pdf", c.Agreement.DownloadAgreementPDF)
	}

	memos := authenticated.Group("/memos", lessonStaff)
	{
		memos.POST("", c.Memo.CreateMemo)
		memos.PUT("/:id", c.Memo.UpdateMemo)
		memos.DELETE("/:id", c.Memo.DeleteMemo)
	}

	inquiries := authenticated.Group("/inquiries", backOffice)
	{
		inquiries.GET("/contact", c.Intake.ListContacts)
		inquiries.PATCH("/contact/:id/status", c.Intake.UpdateContactStatus)
		inquiries.GET("/trials", c.Intake.ListTrials)
		inquiries.PATCH("/trials/:id/status", c.Intake.UpdateTrialStatus)
	}

	admin := authenticated.Group("/admin", backOffice)
	{
		admin.GET("/analytics", c.Analytics.GetAnalytics)
		admin.GET("/registrations/offline", c.Student.ListOffline)
		admin.POST("/registrations/offline/import", c.Student.ImportOffline)
	}

	// Live feed for the staff dashboard; browsers send the session cookie on upgrade.
	if c.DashboardWS != nil {
		router.GET("/ws/dashboard", authMiddleware.JWTAuth(), backOffice, c.DashboardWS)
	}
}
