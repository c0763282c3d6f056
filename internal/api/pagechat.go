package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/pagehub/go-pagechat/internal/auth"
	"github.com/pagehub/go-pagechat/internal/config"
	"github.com/pagehub/go-pagechat/internal/database"
	"github.com/pagehub/go-pagechat/internal/server"
)

type PageChatApp struct {
	log            *log.Logger
	db             database.PageChatRepository
	mux            *http.Server
	gw             *server.Gateway
	verifier       *auth.TokenVerifier
	allowedOrigins []string
}

func NewPageChatApp(mux *http.ServeMux, logger *log.Logger, gw *server.Gateway, db database.PageChatRepository, verifier *auth.TokenVerifier, cfg *config.Config) *PageChatApp {
	s := &PageChatApp{
		log:            logger,
		db:             db,
		gw:             gw,
		verifier:       verifier,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("GET /api/pages/{pageId}/messages", s.getMessages)
	mux.Handle("POST /api/pages/{pageId}/messages", s.optionalAuthMiddleware(s.createMessage))
	mux.Handle("DELETE /api/pages/{pageId}/messages", s.adminMiddleware(s.clearMessages))
	mux.HandleFunc("GET /api/pages/{pageId}/stats", s.getChatStats)
	mux.Handle("DELETE /api/messages/{id}", s.authMiddleware(s.deleteMessage))
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *PageChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *PageChatApp) Shutdown(ctx context.Context) error {
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
