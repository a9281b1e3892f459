package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/oakhurst-media/catalogbackend/config"
	"github.com/oakhurst-media/catalogbackend/database"
	"github.com/oakhurst-media/catalogbackend/handlers"
	"github.com/oakhurst-media/catalogbackend/imagecache"
	"github.com/oakhurst-media/catalogbackend/metadata"
	"github.com/oakhurst-media/catalogbackend/models"
	"github.com/oakhurst-media/catalogbackend/realtime"
	"github.com/oakhurst-media/catalogbackend/repository"
	"github.com/oakhurst-media/catalogbackend/services"
	"github.com/oakhurst-media/catalogbackend/workers"
	"github.com/rs/cors"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.ImagesPath, cfg.ImageCachePath, cfg.MetadataPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("FATAL: Failed to get underlying sql.DB: %v", err)
	}
	defer sqlDB.Close()

	hub := realtime.NewHub()
	go hub.Run()
	notifier := realtime.NewCatalogNotifier(hub)

	authorRepo := repository.NewAuthorRepository(db)
	edgeRepo := repository.NewAliasEdgeRepository(db)
	bookRepo := repository.NewBookRepository(db)
	libraryRepo := repository.NewLibraryRepository(db)
	userRepo := repository.NewUserRepository(db)

	imageCache, err := imagecache.NewCache(cfg.ImageCachePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize image cache: %v", err)
	}
	downloader, err := imagecache.NewDownloader(cfg.ImagesPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize image downloader: %v", err)
	}
	metadataWriter, err := metadata.NewWriter(cfg.MetadataPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize metadata writer: %v", err)
	}

	resolver := services.NewAliasResolver(db, authorRepo, edgeRepo, bookRepo, notifier)
	merger := services.NewIdentityMerger(db, authorRepo, edgeRepo, bookRepo, notifier, metadataWriter, imageCache)

	log.Printf("Initializing author image worker pool (Workers: %d, Queue Size: %d)...", cfg.NumImageWorkers, cfg.ImageQueueSize)
	imageProcessor := workers.NewAuthorImageProcessor(imageCache, cfg.ImageQueueSize, cfg.NumImageWorkers)
	defer imageProcessor.Stop()

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Storing author images in: %s", cfg.ImagesPath)
	log.Printf("Storing book metadata in: %s", cfg.MetadataPath)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	authorHandler := &handlers.AuthorHandler{
		Authors:    authorRepo,
		Books:      bookRepo,
		Resolver:   resolver,
		Merger:     merger,
		Cache:      imageCache,
		Downloader: downloader,
		Metadata:   metadataWriter,
		Notifier:   notifier,
		Prewarmer:  imageProcessor,
		SearchDB:   sqlDB,
	}
	bookHandler := &handlers.BookHandler{
		Books:    bookRepo,
		Authors:  authorRepo,
		Metadata: metadataWriter,
		Notifier: notifier,
	}
	libraryHandler := &handlers.LibraryHandler{Libraries: libraryRepo}

	authRequired := handlers.AuthMiddleware(userRepo, []byte(cfg.JWTSecret))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.With(authRequired).Get("/auth/me", authHandler.CurrentUser)

		r.Route("/authors", func(r chi.Router) {
			r.Get("/", authorHandler.ListAuthors)
			r.With(authRequired, handlers.RequirePermission(models.PermAuthorsUpdate)).Post("/", authorHandler.CreateAuthor)
			r.Route("/{author_id}", func(r chi.Router) {
				r.Get("/", authorHandler.GetAuthor)
				r.Get("/image", authorHandler.GetImage)
				r.Get("/alias", authorHandler.GetAliases)
				r.Get("/origin", authorHandler.GetOrigin)
				r.Get("/origins", authorHandler.GetOrigins)
				r.Get("/combined_alias", authorHandler.GetCombinedAliases)

				r.Group(func(r chi.Router) {
					r.Use(authRequired, handlers.RequirePermission(models.PermAuthorsUpdate))
					r.Patch("/", authorHandler.UpdateAuthor)
					r.Post("/alias", authorHandler.AddAliases)
					r.Delete("/alias", authorHandler.Unlink)
					r.Post("/make_alias", authorHandler.MakeAlias)
					r.Post("/combined_alias", authorHandler.SetOrigins)
				})
				r.Group(func(r chi.Router) {
					r.Use(authRequired, handlers.RequirePermission(models.PermAuthorsUpload))
					r.Post("/image", authorHandler.UploadImage)
					r.Delete("/image", authorHandler.DeleteImage)
				})
				r.With(authRequired, handlers.RequirePermission(models.PermAuthorsDelete)).Delete("/", authorHandler.DeleteAuthor)
			})
			r.With(authRequired, handlers.RequirePermission(models.PermAuthorsDelete)).Delete("/", authorHandler.DeleteAuthor)
		})

		r.Route("/books", func(r chi.Router) {
			r.Get("/", bookHandler.ListBooks)
			r.With(authRequired).Post("/", bookHandler.CreateBook)
			r.Route("/{book_id}", func(r chi.Router) {
				r.Get("/", bookHandler.GetBook)
				r.With(authRequired).Put("/authors", bookHandler.SetAuthors)
				r.With(authRequired).Delete("/", bookHandler.DeleteBook)
			})
		})

		r.Route("/libraries", func(r chi.Router) {
			r.Get("/", libraryHandler.ListLibraries)
			r.With(authRequired).Post("/", libraryHandler.CreateLibrary)
			r.Route("/{library_id}", func(r chi.Router) {
				r.Get("/", libraryHandler.GetLibrary)
				r.With(authRequired).Put("/", libraryHandler.UpdateLibrary)
				r.With(authRequired).Delete("/", libraryHandler.DeleteLibrary)
			})
		})
	})

	r.Get("/ws", hub.ServeWS)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
