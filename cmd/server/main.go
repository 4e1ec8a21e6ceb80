package main

import (
	"log"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"wiyata.com/edurecords/internal/config"
	"wiyata.com/edurecords/internal/handler"
	"wiyata.com/edurecords/internal/middleware"
	"wiyata.com/edurecords/internal/model"
	"wiyata.com/edurecords/internal/repository"
	"wiyata.com/edurecords/internal/service"
	"wiyata.com/edurecords/pkg/database"
	"wiyata.com/edurecords/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := seedAdminUser(db); err != nil {
		log.Fatalf("failed to seed admin user: %v", err)
	}

	uowFactory := repository.NewFactory(db)

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
	} else {
		log.Println("REDIS_URL not set, statistics caching and rate limiting disabled")
	}

	var files storage.FileStorage
	if cfg.CloudinaryURL != "" {
		files, err = storage.NewCloudinaryStorage()
		if err != nil {
			log.Fatalf("failed to initialize cloudinary storage: %v", err)
		}
	} else {
		log.Println("CLOUDINARY_URL not set, file uploads disabled")
	}

	var searchSvc service.SearchService
	if cfg.MeiliMasterKey != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		searchSvc = service.NewSearchService(meiliClient)
	} else {
		log.Println("MEILI_MASTER_KEY not set, announcement search indexing disabled")
	}

	authSvc, err := service.NewAuthService(uowFactory)
	if err != nil {
		log.Fatalf("failed to build auth service: %v", err)
	}
	authHandler := handler.NewAuthHandler(authSvc)

	studentSvc, err := service.NewStudentService(uowFactory, rdb)
	if err != nil {
		log.Fatalf("failed to build student service: %v", err)
	}
	studentHandler := handler.NewStudentHandler(studentSvc, files, rdb)

	announcementSvc, err := service.NewAnnouncementService(uowFactory, files, searchSvc)
	if err != nil {
		log.Fatalf("failed to build announcement service: %v", err)
	}
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc, searchSvc)

	documentSvc, err := service.NewDocumentService(uowFactory, files)
	if err != nil {
		log.Fatalf("failed to build document service: %v", err)
	}
	documentHandler := handler.NewDocumentHandler(documentSvc)

	authMiddleware := middleware.NewAuthMiddleware(uowFactory)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/login", authHandler.Login)
	}

	api.Use(authMiddleware.RequireAuth())
	{
		students := api.Group("/students")
		{
			students.GET("", studentHandler.GetStudents)
			students.GET("/statistics", studentHandler.GetStatistics)
			students.GET("/export", studentHandler.ExportStudents)
			students.GET("/by-student-id/:studentId", studentHandler.GetStudentByStudentID)
			students.GET("/:id", studentHandler.GetStudent)
			students.POST("", studentHandler.CreateStudent)
			students.PUT("/:id", studentHandler.UpdateStudent)
			students.POST("/:id/avatar", studentHandler.UploadAvatar)
			students.DELETE("/:id", authMiddleware.RequireAdmin(), studentHandler.DeleteStudent)
		}

		announcements := api.Group("/announcements")
		{
			announcements.GET("", announcementHandler.GetAnnouncements)
			announcements.GET("/search-token", announcementHandler.GetSearchToken)
			announcements.GET("/:id", announcementHandler.GetAnnouncement)
			announcements.POST("", announcementHandler.CreateAnnouncement)
			announcements.PUT("/:id", announcementHandler.UpdateAnnouncement)
			announcements.DELETE("/:id", announcementHandler.DeleteAnnouncement)
			announcements.POST("/:id/attachments", announcementHandler.UploadAttachment)
			announcements.DELETE("/:id/attachments/:attachmentId", announcementHandler.RemoveAttachment)
		}

		documents := api.Group("/documents")
		{
			documents.GET("", documentHandler.GetDocuments)
			documents.GET("/:id", documentHandler.GetDocument)
			documents.POST("", documentHandler.CreateDocument)
			documents.PUT("/:id", documentHandler.UpdateDocument)
			documents.DELETE("/:id", documentHandler.DeleteDocument)
		}
	}

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Student{},
		&model.Announcement{},
		&model.AnnouncementAttachment{},
		&model.Document{},
	)
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).
		Where("username = ?", "admin").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := model.User{
		Username:     "admin",
		Email:        "admin@edurecords.local",
		PasswordHash: string(hashedPasswordBytes),
		Role:         model.RoleAdmin,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Println("Admin user seeded successfully")
	return nil
}
