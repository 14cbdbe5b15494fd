// Package httpapi exposes the publishing backend over HTTP: JSON request
// handling, session-cookie authentication, and the mapping of domain errors
// onto client-visible status codes.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/avelichko/inkwell/internal/logging"
	"github.com/avelichko/inkwell/internal/models"
	"github.com/gorilla/mux"
)

// UserService is the authentication surface consumed by the handlers.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.Identity, string, error)
}

// PostService is the post surface consumed by the handlers.
type PostService interface {
	CreatePost(ctx context.Context, draft *models.PostPatch, authorID string) (*models.Post, error)
	UpdatePost(ctx context.Context, id string, patch *models.PostPatch, requesterID string) (*models.Post, error)
	ListPosts(ctx context.Context, limit int) ([]*models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
}

// AssetService stores cover images and resolves their keys into URLs.
type AssetService interface {
	Upload(ctx context.Context, ext string, body io.Reader) (string, error)
	ResolveURL(ctx context.Context, key string) (string, error)
}

type Server struct {
	address   string
	logger    logging.Logger
	users     UserService
	posts     PostService
	assets    AssetService
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewServer(a string, l logging.Logger, us UserService, ps PostService, as AssetService, secretKey string, tokenTTL time.Duration) *Server {
	return &Server{
		address:   a,
		logger:    l.With("module", "httpapi"),
		users:     us,
		posts:     ps,
		assets:    as,
		jwtSecret: []byte(secretKey),
		tokenTTL:  tokenTTL,
	}
}

// Routes builds the router: credential endpoints and reads are public,
// mutation endpoints sit behind the session-token middleware.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/post", s.handleListPosts).Methods(http.MethodGet)
	r.HandleFunc("/post/{id}", s.handleGetPost).Methods(http.MethodGet)

	r.Handle("/profile", s.withAuth(http.HandlerFunc(s.handleProfile))).Methods(http.MethodGet)
	r.Handle("/post", s.withAuth(http.HandlerFunc(s.handleCreatePost))).Methods(http.MethodPost)
	r.Handle("/post", s.withAuth(http.HandlerFunc(s.handleUpdatePost))).Methods(http.MethodPut)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
