package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JoeShih716/go-ledger-service/internal/app/core/usecase"
)

// Server 是 HTTP Adapter (Driving Adapter)
type Server struct {
	core     *usecase.CoreUseCase
	identity usecase.IdentityProvider
	router   chi.Router
}

// NewServer 建立 HTTP Server 並掛好路由
func NewServer(core *usecase.CoreUseCase, identity usecase.IdentityProvider) *Server {
	s := &Server{
		core:     core,
		identity: identity,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/", s.handleRoot)

	// 需要已驗證身分的路由
	r.Group(func(r chi.Router) {
		r.Use(s.withAuth)
		r.Post("/transfer", s.handleTransfer)
		r.Get("/user/me", s.handleMe)
	})

	s.router = r
	return s
}

// Handler 回傳掛好路由的 http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ledger service is up"))
}
