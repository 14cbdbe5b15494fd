package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/avelichko/inkwell/internal/common"
	"github.com/avelichko/inkwell/internal/models"
	"github.com/gorilla/mux"
)

// maxUploadBytes bounds the in-memory part of a multipart upload.
const maxUploadBytes = 10 << 20

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type loginResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type authorView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type postView struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Summary    string     `json:"summary"`
	Content    string     `json:"content"`
	CoverImage string     `json:"coverImage,omitempty"`
	CoverURL   string     `json:"coverUrl,omitempty"`
	Author     authorView `json:"author"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func decodeCredentials(r *http.Request) (*credentialsRequest, error) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", errBadRequest)
	}
	return &req, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "registered", "username", user.Username)
	s.writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username, CreatedAt: user.CreatedAt})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	identity, token, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(s.tokenTTL),
	})
	s.writeJSON(w, http.StatusOK, loginResponse{ID: identity.UserID, Username: identity.Username, Token: token})
}

// handleLogout clears the client-held cookie. The server keeps no session
// table, so a token already issued stays valid until it expires.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	s.writeJSON(w, http.StatusOK, "ok")
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrorUnauthorized)
		return
	}
	s.writeJSON(w, http.StatusOK, identity)
}

// parsePostForm reads the multipart body shared by create and update:
// the text fields plus an optional cover image, which is stored
// immediately so the services only ever see the storage key.
func (s *Server) parsePostForm(r *http.Request) (*models.PostPatch, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("%w: expected multipart form", errBadRequest)
	}

	patch := &models.PostPatch{
		Title:   strings.TrimSpace(r.FormValue("title")),
		Summary: r.FormValue("summary"),
		Content: r.FormValue("content"),
	}
	if patch.Title == "" {
		return nil, fmt.Errorf("%w: title is required", errBadRequest)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return patch, nil
		}
		return nil, fmt.Errorf("%w: unreadable file part", errBadRequest)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	key, err := s.assets.Upload(r.Context(), ext, file)
	if err != nil {
		return nil, err
	}
	patch.CoverImage = key

	return patch, nil
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	draft, err := s.parsePostForm(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	post, err := s.posts.CreatePost(r.Context(), draft, identity.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if post.AuthorName == "" {
		post.AuthorName = identity.Username
	}

	s.logger.Info(r.Context(), "post created", "id", post.ID, "author", identity.Username)
	s.writeJSON(w, http.StatusOK, s.toPostView(r, post))
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	patch, err := s.parsePostForm(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := strings.TrimSpace(r.FormValue("id"))
	if id == "" {
		s.writeError(w, r, fmt.Errorf("%w: id is required", errBadRequest))
		return
	}

	post, err := s.posts.UpdatePost(r.Context(), id, patch, identity.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "post updated", "id", post.ID, "author", identity.Username)
	s.writeJSON(w, http.StatusOK, s.toPostView(r, post))
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: limit must be an integer", errBadRequest))
			return
		}
		limit = n
	}

	posts, err := s.posts.ListPosts(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		views = append(views, s.toPostView(r, p))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	post, err := s.posts.GetPost(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.toPostView(r, post))
}

// toPostView shapes a post for the wire, resolving the cover storage key
// into a downloadable URL. A resolver failure degrades to a view without a
// URL rather than failing the read.
func (s *Server) toPostView(r *http.Request, p *models.Post) postView {
	view := postView{
		ID:         p.ID,
		Title:      p.Title,
		Summary:    p.Summary,
		Content:    p.Content,
		CoverImage: p.CoverImage,
		Author:     authorView{ID: p.AuthorID, Username: p.AuthorName},
		CreatedAt:  p.CreatedAt,
	}
	if p.CoverImage != "" {
		url, err := s.assets.ResolveURL(r.Context(), p.CoverImage)
		if err != nil {
			s.logger.Warn(r.Context(), "cover url resolution failed", "key", p.CoverImage, "error", err.Error())
		} else {
			view.CoverURL = url
		}
	}
	return view
}
