package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"timebudget/internal/config"
	"timebudget/internal/handlers"
	"timebudget/internal/repository"
	"timebudget/internal/service/rollover"
	"timebudget/internal/service/sessions"
	"timebudget/internal/service/stats"
	"timebudget/internal/service/tasks"
	"timebudget/internal/service/users"
	"timebudget/internal/utils"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.MustLoad()

	conn, err := repository.NewConnection(ctx, cfg.PostgresConfig)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	userRepo := repository.NewUserRepository(conn)
	taskRepo := repository.NewTaskRepository(conn)
	sessionRepo := repository.NewSessionRepository(conn)
	authManager := utils.NewAuthManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.TokenTTL)

	userService := users.NewService(userRepo, authManager)
	taskService := tasks.NewService(taskRepo, sessionRepo)
	sessionService := sessions.NewService(sessionRepo)
	rolloverService := rollover.NewService(taskRepo, userRepo)
	statsService := stats.NewService(taskRepo, sessionRepo)

	if cfg.RolloverConfig.Enabled {
		scheduler, err := rollover.NewScheduler(cfg.RolloverConfig.Schedule, rolloverService, cfg.ServerConfig.TimeoutAPI)
		if err != nil {
			log.Fatalf("invalid rollover schedule: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	h := handlers.NewHandler(userService, taskService, sessionService, rolloverService, statsService, authManager)

	router := chi.NewRouter()
	router.Use(middleware.Logger)

	router.Post("/register", h.Register)
	router.Post("/login", h.Login)

	router.Route("/tasks", func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Post("/", h.CreateTask)
		r.Get("/", h.ListTasks)
		r.Put("/{id}", h.UpdateTask)
		r.Delete("/{id}", h.DeleteTask)
		r.Post("/rollover", h.Rollover)
	})

	router.Route("/work-sessions", func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Post("/", h.RecordSession)
		r.Get("/", h.ListSessions)
	})

	router.Route("/stats", func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Get("/", h.Stats)
	})

	log.Print("start listening")
	log.Fatal(http.ListenAndServe("[::]:"+cfg.ServerConfig.Port, router))
}
