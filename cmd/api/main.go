package main

import (
	"context"
	"log"
	"os"

	_ "fuelops/api/swagger" // swagger docs
	"fuelops/internal/database"
	"fuelops/internal/handler"
	"fuelops/internal/middleware"
	"fuelops/internal/repository"
	"fuelops/internal/service"
	"fuelops/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Fuel Allocation API
// @version         1.0
// @description     Fuel request approval, issuance ledger and receipt reconciliation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	fuelTypeRepo := repository.NewFuelTypeRepository(db)
	requestRepo := repository.NewFuelRequestRepository(db)
	recordRepo := repository.NewFuelRecordRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	gate := service.NewPermissionGate(userRepo, roleRepo)

	userService := service.NewUserService(userRepo, db)
	roleService := service.NewRoleService(roleRepo, db)
	requestService := service.NewFuelRequestService(requestRepo, vehicleRepo, fuelTypeRepo, userRepo, auditRepo, txManager, gate, wsHub)
	recordService := service.NewFuelRecordService(recordRepo, requestRepo, vehicleRepo, fuelTypeRepo, userRepo, auditRepo, txManager, gate, wsHub)
	referenceService := service.NewReferenceService(fuelTypeRepo, vehicleRepo, userRepo, auditRepo, txManager)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(db)

	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Fatalf("Role seeding failed: %v", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, gate)
	roleHandler := handler.NewRoleHandler(roleService, gate)
	requestHandler := handler.NewFuelRequestHandler(requestService, gate)
	recordHandler := handler.NewFuelRecordHandler(recordService, statisticsService, gate)
	referenceHandler := handler.NewReferenceHandler(referenceService, gate)
	auditHandler := handler.NewAuditHandler(auditService, gate)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	requestHandler.RegisterRoutes(router.Group(""))
	recordHandler.RegisterRoutes(router.Group(""))
	referenceHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
