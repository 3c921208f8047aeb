// Package server assembles the service layer and the HTTP routes.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"splitledger/internal/events"
	"splitledger/internal/handlers"
	"splitledger/internal/metrics"
	"splitledger/internal/middleware"
	"splitledger/internal/services"
)

// Services bundles every service the routes depend on.
type Services struct {
	Audit        services.AuditServicer
	Notification services.NotificationServicer
	User         services.UserServicer
	Expense      services.ExpenseServicer
	Budget       services.BudgetServicer
	Group        services.GroupServicer
	Settlement   services.SettlementServicer
	Debt         services.DebtServicer
}

// NewServices wires the service layer over db. Stored notifications are
// fanned out through publisher; currency prefixes amounts in messages.
func NewServices(db *gorm.DB, publisher events.Publisher, currency string) Services {
	audit := services.NewAuditService(db)
	notification := services.NewNotificationService(db, publisher)
	return Services{
		Audit:        audit,
		Notification: notification,
		User:         services.NewUserService(db),
		Expense:      services.NewExpenseService(db, notification, audit, currency),
		Budget:       services.NewBudgetService(db),
		Group:        services.NewGroupService(db, audit),
		Settlement:   services.NewSettlementService(db, audit),
		Debt:         services.NewDebtService(db, audit),
	}
}

// NewRouter builds the gin engine with middleware and every API route.
func NewRouter(svc Services) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.User)
	expenseHandler := handlers.NewExpenseHandler(svc.Expense, svc.Debt)
	budgetHandler := handlers.NewBudgetHandler(svc.Budget, svc.Audit)
	groupHandler := handlers.NewGroupHandler(svc.Group, svc.Debt)
	settlementHandler := handlers.NewSettlementHandler(svc.Settlement)
	notificationHandler := handlers.NewNotificationHandler(svc.Notification)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	expenses := protected.Group("/expenses")
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("", expenseHandler.GetExpenses)
	expenses.GET("/debt-summary", expenseHandler.GetDebtSummary)
	expenses.GET("/export/csv", expenseHandler.ExportExpensesCSV)
	expenses.GET("/:id", expenseHandler.GetExpense)
	expenses.PATCH("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)
	expenses.PATCH("/:id/mark-paid", expenseHandler.MarkSharePaid)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/vs-actual", budgetHandler.GetBudgetVsActual)
	budgets.GET("/alerts", budgetHandler.GetBudgetAlerts)
	budgets.GET("/summary", budgetHandler.GetMonthlySummary)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	groups := protected.Group("/groups")
	groups.POST("", groupHandler.CreateGroup)
	groups.GET("", groupHandler.GetGroups)
	groups.POST("/join", groupHandler.JoinGroupByCode)
	groups.GET("/:id", groupHandler.GetGroup)
	groups.PUT("/:id", groupHandler.UpdateGroup)
	groups.DELETE("/:id", groupHandler.DeleteGroup)
	groups.POST("/:id/join", groupHandler.JoinGroup)
	groups.POST("/:id/leave", groupHandler.LeaveGroup)
	groups.POST("/:id/members", groupHandler.AddMember)
	groups.DELETE("/:id/members/:userId", groupHandler.RemoveMember)
	groups.GET("/:id/expenses", groupHandler.GetGroupExpenses)
	groups.GET("/:id/balances", groupHandler.GetGroupBalances)
	groups.GET("/:id/debts", groupHandler.GetGroupDebts)
	groups.GET("/:id/settlements", settlementHandler.GetGroupSettlements)

	settlements := protected.Group("/settlements")
	settlements.POST("", settlementHandler.CreateSettlement)
	settlements.GET("", settlementHandler.GetSettlements)
	settlements.PATCH("/:id/complete", settlementHandler.CompleteSettlement)

	notifications := protected.Group("/notifications")
	notifications.GET("", notificationHandler.GetNotifications)
	notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
	notifications.PATCH("/:id/read", notificationHandler.MarkAsRead)

	return router
}
