package main

import (
	"net/http"

	"quizonomy/internal/auth"
	"quizonomy/pkg/middleware"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func (app *Application) routes() http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(app.logger))
	router.Use(auth.Middleware(app.authn, app.logger))

	protected := func(h http.HandlerFunc) http.Handler {
		return auth.RequireUser(h)
	}

	router.HandleFunc("/user", app.auth.Register).Methods(http.MethodPost)
	router.HandleFunc("/user", app.auth.ListUsers).Methods(http.MethodGet)

	router.HandleFunc("/session", app.auth.Login).Methods(http.MethodPost)
	router.Handle("/session", protected(app.auth.Me)).Methods(http.MethodGet)
	router.Handle("/session", protected(app.auth.Logout)).Methods(http.MethodDelete)

	// Fixed paths before /quiz/{id}.
	router.HandleFunc("/quiz/random", app.quiz.RandomQuiz).Methods(http.MethodGet)
	router.Handle("/quiz/daily", protected(app.quiz.DailyQuiz)).Methods(http.MethodGet)
	router.Handle("/quiz/submit", protected(app.quiz.SubmitAttempt)).Methods(http.MethodPost)
	router.HandleFunc("/quiz/{id:[0-9]+}", app.quiz.GetQuiz).Methods(http.MethodGet)
	router.HandleFunc("/quiz", app.quiz.SearchQuizzes).Methods(http.MethodGet)
	router.Handle("/quiz", protected(app.quiz.CreateQuiz)).Methods(http.MethodPost)

	router.HandleFunc("/leaderboard/{period}", app.quiz.Leaderboard).Methods(http.MethodGet)
	router.Handle("/ws/leaderboard", app.hub)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   app.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return corsMiddleware.Handler(router)
}
