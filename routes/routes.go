package routes

import (
	"net/http"

	"mandi/auth"
	"mandi/farms"
	"mandi/middleware"
	"mandi/orders"
	"mandi/ratelim"
	"mandi/subscriptions"

	"github.com/julienschmidt/httprouter"
)

func RoutesWrapper(router *httprouter.Router, rl *ratelim.RateLimiter) {
	AddAuthRoutes(router, rl)
	AddFarmRoutes(router, rl)
	AddOrderRoutes(router, rl)
	AddSubscriptionRoutes(router, rl)
}

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/farmpic/*filepath", http.Dir("static/farmpic"))
	router.ServeFiles("/static/croppic/*filepath", http.Dir("static/croppic"))
	router.ServeFiles("/static/orderpic/*filepath", http.Dir("static/orderpic"))
}

func AddAuthRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(auth.Register))
	router.POST("/api/auth/login", rl.Limit(auth.Login))
}

func AddFarmRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.GET("/api/farms", middleware.OptionalAuth(farms.GetPaginatedFarms))
	router.POST("/api/farms", rl.Limit(middleware.Authenticate(farms.CreateFarm)))
	router.GET("/api/farms/:id", middleware.OptionalAuth(farms.GetFarm))
	router.PUT("/api/farms/:id", rl.Limit(middleware.Authenticate(farms.EditFarm)))
	router.DELETE("/api/farms/:id", rl.Limit(middleware.Authenticate(farms.DeleteFarm)))

	router.GET("/api/farms/:id/crops", middleware.OptionalAuth(farms.GetFarmCrops))
	router.POST("/api/farms/:id/crops", rl.Limit(middleware.Authenticate(farms.AddCrop)))
	router.PUT("/api/farms/:id/crops/:cropid", rl.Limit(middleware.Authenticate(farms.EditCrop)))
	router.GET("/api/crops/:cropid/price", middleware.OptionalAuth(farms.GetCropPrice))
	router.POST("/api/crops/:cropid/buy", rl.Limit(middleware.Authenticate(farms.BuyCrop)))
}

func AddOrderRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/orders", rl.Limit(middleware.Authenticate(orders.CreateOrder)))
	router.GET("/api/orders", middleware.Authenticate(orders.FindOrdersForDeliveryWindow))
	router.GET("/api/tracking/:ref", middleware.Authenticate(orders.FindByTrackingReference))
	router.GET("/api/orders/:id", middleware.Authenticate(orders.GetOrder))
	router.POST("/api/orders/:id/tracking", rl.Limit(middleware.Authenticate(orders.TrackOrder)))
	router.POST("/api/orders/:id/cancel", rl.Limit(middleware.Authenticate(orders.CancelOrder)))
	router.POST("/api/orders/:id/rating", rl.Limit(middleware.Authenticate(orders.RateOrder)))
	router.GET("/api/orders/:id/eta", middleware.Authenticate(orders.GetEstimatedDelivery))
	router.GET("/api/orders/:id/receipt", middleware.Authenticate(orders.DownloadReceipt))
}

func AddSubscriptionRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/subscriptions", rl.Limit(middleware.Authenticate(subscriptions.CreateSubscription)))
	router.GET("/api/deliveries/due", middleware.Authenticate(subscriptions.GetDue))
	router.GET("/api/deliveries/upcoming", middleware.Authenticate(subscriptions.GetUpcoming))
	router.GET("/api/subscriptions/:id", middleware.Authenticate(subscriptions.GetSubscription))
	router.PATCH("/api/subscriptions/:id", rl.Limit(middleware.Authenticate(subscriptions.UpdateSubscription)))
	router.POST("/api/subscriptions/:id/pause", rl.Limit(middleware.Authenticate(subscriptions.PauseSubscription)))
	router.POST("/api/subscriptions/:id/resume", rl.Limit(middleware.Authenticate(subscriptions.ResumeSubscription)))
	router.POST("/api/subscriptions/:id/cancel", rl.Limit(middleware.Authenticate(subscriptions.CancelSubscriptionHandler)))
	router.POST("/api/subscriptions/:id/deliveries", rl.Limit(middleware.Authenticate(subscriptions.ProcessDelivery)))
	router.POST("/api/subscriptions/:id/rating", rl.Limit(middleware.Authenticate(subscriptions.RateDelivery)))
	router.GET("/api/subscriptions/:id/analytics", middleware.Authenticate(subscriptions.GetAnalytics))
}
