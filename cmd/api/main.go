package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/brandlover88/brandlover-backend/internal/catalog"
	"github.com/brandlover88/brandlover-backend/internal/config"
	"github.com/brandlover88/brandlover-backend/internal/db"
	"github.com/brandlover88/brandlover-backend/internal/handlers"
	"github.com/brandlover88/brandlover-backend/internal/middleware"
	"github.com/brandlover88/brandlover-backend/internal/models"
	"github.com/brandlover88/brandlover-backend/internal/realtime"
	"github.com/brandlover88/brandlover-backend/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := gdb.AutoMigrate(&models.User{}, &models.Product{}); err != nil {
		log.Fatal(err)
	}
	if err := db.SeedAdmin(gdb, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal(err)
	}

	store, err := storage.NewDiskStore(cfg.UploadDir, cfg.AppBaseURL)
	if err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Println("Redis not reachable, product events stay local:", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	cache := catalog.NewCache()
	feed := realtime.NewFeed(rdb, hub, cache)
	go feed.Run(context.Background())

	svc := catalog.NewService(gdb, store, cache, feed)
	if err := svc.LoadProducts(context.Background()); err != nil {
		log.Fatal(err)
	}
	sessions := catalog.NewManager()

	app := fiber.New(fiber.Config{
		BodyLimit: 60 * 1024 * 1024, // a 50 MB image plus multipart overhead
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	// uploaded product images are served straight from disk
	app.Static("/uploads", cfg.UploadDir)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendURL,
	}
	productH := handlers.NewProductHandler(gdb)
	adminH := handlers.NewAdminHandler(gdb, svc, sessions)
	feedH := handlers.NewFeedHandler(hub, cfg.JWTSecret)

	api := app.Group("/api")

	// public
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/products", productH.ListPublic)
	api.Get("/products/:id", productH.GetDetail)
	api.Get("/brands", productH.GetBrands)
	api.Get("/locales/:lang", handlers.GetLocale)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	// protected (JWT cookie)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)
	protected.Get("/me", authH.Me)

	// admin only
	admin := protected.Group("/admin", middleware.RequireRoles("admin"))
	admin.Get("/products", adminH.ListCached)
	admin.Post("/products", adminH.Create)
	admin.Put("/products/:id", adminH.Update)
	admin.Delete("/products/:id", adminH.Delete)
	admin.Post("/products/:id/edit", adminH.StartEditing)
	admin.Get("/session", adminH.GetSession)
	admin.Patch("/session/draft", adminH.PatchDraft)
	admin.Post("/session/images", adminH.UploadImages)
	admin.Delete("/session/images/:index", adminH.RemoveImage)
	admin.Post("/session/reset", adminH.Reset)
	admin.Get("/stats", adminH.Stats)

	// product change feed (auth via query token)
	app.Get("/ws/products", websocket.New(feedH.WebSocketHandler))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
