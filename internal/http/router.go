package api

import (
	stdhttp "net/http"

	intconfig "tourbooking/internal/config"
	"tourbooking/internal/domain"
	h "tourbooking/internal/http/handlers"
	"tourbooking/internal/http/middleware"
	"tourbooking/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(env intconfig.Env, deps h.Deps) *gin.Engine {
	h.Configure(deps)
	log := deps.Logger
	if log == nil {
		log = utils.L()
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(log), gin.Recovery(), middleware.Metrics(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Warn("failed to set trusted proxies", "error", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, h.ErrorResponse{
			Error:     "route not found",
			Code:      "not_found",
			Message:   c.Request.Method + " " + c.Request.URL.Path + " does not exist",
			RequestID: middleware.GetRequestID(c),
		})
	})

	tokens := h.AuthService("")
	authed := middleware.AuthRequired(tokens)
	optional := middleware.AuthOptional(tokens)
	staff := middleware.RequireRoles(domain.RoleStaff, domain.RoleAdmin)
	admin := middleware.RequireRoles(domain.RoleAdmin)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
	}

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/routes", authed, admin, h.Routes)

	v1 := api.Group("/v1")

	tours := v1.Group("/customer/tours")
	{
		tours.GET("/search", optional, h.SearchTours)
		tours.GET("/suggestions", h.TourSuggestions)
		tours.GET("/home", h.TourHome)
		tours.GET("/favorites", authed, h.FavoriteTours)
		tours.POST("/:routeId/favorite", authed, h.ToggleFavorite)
	}

	routes := v1.Group("/routes")
	{
		routes.GET("", h.ListRoutes)
		routes.GET("/:id", h.GetRoute)
		routes.GET("/:id/trips", h.RouteTrips)
		routes.POST("", authed, staff, h.CreateRoute)
		routes.PUT("/:id", authed, staff, h.UpdateRoute)
		routes.DELETE("/:id", authed, staff, h.DeleteRoute)
	}

	trips := v1.Group("/trips")
	{
		trips.GET("", h.ListTrips)
		trips.GET("/:id", h.GetTrip)
		trips.GET("/:id/availability", h.TripAvailability)
		trips.POST("", authed, staff, h.CreateTrip)
		trips.PUT("/:id", authed, staff, h.UpdateTrip)
		trips.DELETE("/:id", authed, staff, h.DeleteTrip)
		trips.PUT("/:id/status", authed, staff, h.ChangeTripStatus)
	}

	cart := v1.Group("/cart", authed)
	{
		cart.GET("", h.ListCart)
		cart.POST("", h.AddToCart)
		cart.DELETE("", h.RemoveCartItems)
		cart.GET("/exists", h.CartExists)
		cart.PUT("/:id", h.UpdateCartItem)
		cart.DELETE("/:id", h.DeleteCartItem)
		cart.POST("/:id/pending-booking", h.PromoteCartItem)
	}

	bookings := v1.Group("/tour-bookings", authed)
	{
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/confirm", h.ConfirmBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.PUT("/:id", staff, h.UpdateBooking)
		bookings.DELETE("/:id", staff, h.DeleteBooking)
		bookings.GET("/:id/travelers", h.ListTravelers)
		bookings.POST("/:id/travelers", h.AddTraveler)
		bookings.PUT("/:id/travelers/:travelerId", h.UpdateTraveler)
		bookings.DELETE("/:id/travelers/:travelerId", h.DeleteTraveler)
		bookings.GET("/:id/travelers/:travelerId/eticket", h.TravelerETicket)
	}

	invoices := v1.Group("/invoices", authed)
	{
		invoices.GET("", h.ListInvoices)
		invoices.GET("/:id", h.GetInvoice)
		invoices.GET("/:id/pdf", h.InvoicePDF)
		invoices.PUT("/:id/payment-method", h.ChangePaymentMethod)
		invoices.POST("/:id/mark-paid", staff, h.MarkInvoicePaid)
	}

	payment := v1.Group("/payment")
	{
		payment.POST("/webhook", h.PaymentWebhook)
		payment.POST("/links", authed, h.CreatePaymentLink)
		payment.GET("/links/:orderCode", authed, h.PaymentLinkStatus)
		payment.POST("/links/:orderCode/cancel", authed, h.CancelPaymentLink)
	}

	adm := r.Group("/admin", authed)
	{
		adm.GET("/staffs", admin, h.ListStaff)
		adm.POST("/staffs", admin, h.CreateStaff)
		adm.GET("/staffs/:id", admin, h.GetStaff)
		adm.PUT("/staffs/:id", admin, h.UpdateStaff)
		adm.PUT("/staffs/:id/lock", admin, h.LockStaff)

		adm.GET("/users", staff, h.ListCustomers)
		adm.GET("/users/:id", staff, h.GetCustomer)
		adm.PUT("/users/:id/lock", staff, h.LockCustomer)
	}

	h.SetRouter(r)
	return r
}
