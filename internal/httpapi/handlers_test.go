package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/inkwell/internal/auth"
	"github.com/avelichko/inkwell/internal/common"
	"github.com/avelichko/inkwell/internal/logging"
	"github.com/avelichko/inkwell/internal/models"
)

const testSecret = "test-secret"

// --- fakes ---

type fakeUsers struct {
	registerOut *models.User
	registerErr error

	loginIdentity *models.Identity
	loginToken    string
	loginErr      error
}

func (f *fakeUsers) Register(ctx context.Context, username, password string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	if f.registerOut != nil {
		return f.registerOut, nil
	}
	return &models.User{ID: "u-1", Username: username, PasswordHash: "$2a$10$x"}, nil
}

func (f *fakeUsers) Login(ctx context.Context, username, password string) (*models.Identity, string, error) {
	if f.loginErr != nil {
		return nil, "", f.loginErr
	}
	return f.loginIdentity, f.loginToken, nil
}

type fakePosts struct {
	createOut *models.Post
	createErr error

	updateOut *models.Post
	updateErr error
	updateID  string

	listOut []*models.Post
	listErr error

	getOut *models.Post
	getErr error
}

func (f *fakePosts) CreatePost(ctx context.Context, draft *models.PostPatch, authorID string) (*models.Post, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	return &models.Post{
		ID:         "p-1",
		Title:      draft.Title,
		Summary:    draft.Summary,
		Content:    draft.Content,
		CoverImage: draft.CoverImage,
		AuthorID:   authorID,
		CreatedAt:  time.Now(),
	}, nil
}

func (f *fakePosts) UpdatePost(ctx context.Context, id string, patch *models.PostPatch, requesterID string) (*models.Post, error) {
	f.updateID = id
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateOut, nil
}

func (f *fakePosts) ListPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func (f *fakePosts) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeAssets struct {
	uploadKey string
	uploadErr error
	uploaded  int
}

func (f *fakeAssets) Upload(ctx context.Context, ext string, body io.Reader) (string, error) {
	f.uploaded++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadKey, nil
}

func (f *fakeAssets) ResolveURL(ctx context.Context, key string) (string, error) {
	return "http://signed/" + key, nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestServer(us UserService, ps PostService, as AssetService) *Server {
	if us == nil {
		us = &fakeUsers{}
	}
	if ps == nil {
		ps = &fakePosts{}
	}
	if as == nil {
		as = &fakeAssets{uploadKey: "covers/2026/9/1/k.png"}
	}
	return NewServer(":0", testLogger(), us, ps, as, testSecret, time.Hour)
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Routes().ServeHTTP(rr, req)
	return rr
}

func validToken(t *testing.T, userID, username string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, username, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return tok
}

func multipartBody(t *testing.T, fields map[string]string, fileName string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// --- register / login / logout ---

func TestRegister_Success(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"username":"alice","password":"secret1"}`))
	rr := doRequest(s, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp userResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "u-1", resp.ID)
	assert.Equal(t, "alice", resp.Username)
	assert.NotContains(t, rr.Body.String(), "$2a$", "password hash must not leak")
}

func TestRegister_Duplicate(t *testing.T) {
	s := newTestServer(&fakeUsers{registerErr: common.ErrUsernameTaken}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"username":"alice","password":"secret2"}`))
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRegister_MissingFields(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	for _, body := range []string{
		`{"username":"alice"}`,
		`{"password":"secret1"}`,
		`{"username":"  ","password":"x"}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
		rr := doRequest(s, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "body: %s", body)
	}
}

func TestLogin_SetsCookie(t *testing.T) {
	tok := validToken(t, "u-1", "alice")
	s := newTestServer(&fakeUsers{
		loginIdentity: &models.Identity{UserID: "u-1", Username: "alice"},
		loginToken:    tok,
	}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"secret1"}`))
	rr := doRequest(s, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "u-1", resp.ID)
	assert.Equal(t, tok, resp.Token)

	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	var found bool
	for _, c := range cookies {
		if c.Name == common.TokenCookieName {
			found = true
			assert.Equal(t, tok, c.Value)
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found, "token cookie must be set")
}

func TestLogin_BadCredentials(t *testing.T) {
	s := newTestServer(&fakeUsers{loginErr: common.ErrorUnauthorized}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"wrong"}`))
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogout_ClearsCookie(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rr := doRequest(s, req)

	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, common.TokenCookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

// --- profile / middleware ---

func TestProfile_NoToken(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProfile_CookieToken(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: common.TokenCookieName, Value: validToken(t, "u-1", "alice")})
	rr := doRequest(s, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var identity models.Identity
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &identity))
	assert.Equal(t, "u-1", identity.UserID)
	assert.Equal(t, "alice", identity.Username)
}

func TestProfile_BearerToken(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set(common.AuthHeaderName, "Bearer "+validToken(t, "u-2", "bob"))
	rr := doRequest(s, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "bob")
}

func TestProfile_TamperedToken(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	tok := validToken(t, "u-1", "alice")
	b := []byte(tok)
	if b[len(b)-1] == 'A' {
		b[len(b)-1] = 'B'
	} else {
		b[len(b)-1] = 'A'
	}

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: common.TokenCookieName, Value: string(b)})
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProfile_ExpiredToken(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	tok, err := auth.GenerateToken("u-1", "alice", []byte(testSecret), -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: common.TokenCookieName, Value: tok})
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// --- posts ---

func TestCreatePost_RequiresAuth(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	body, contentType := multipartBody(t, map[string]string{"title": "Hi"}, "")
	req := httptest.NewRequest(http.MethodPost, "/post", body)
	req.Header.Set("Content-Type", contentType)
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreatePost_WithCover(t *testing.T) {
	assets := &fakeAssets{uploadKey: "covers/2026/9/1/k.jpg"}
	s := newTestServer(nil, nil, assets)

	body, contentType := multipartBody(t, map[string]string{
		"title":   "Hi",
		"summary": "sum",
		"content": "body",
	}, "cover.jpg")
	req := httptest.NewRequest(http.MethodPost, "/post", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(&http.Cookie{Name: common.TokenCookieName, Value: validToken(t, "u-1", "alice")})
	rr := doRequest(s, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, assets.uploaded)

	var view postView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, "Hi", view.Title)
	assert.Equal(t, "u-1", view.Author.ID)
	assert.Equal(t, "covers/2026/9/1/k.jpg", view.CoverImage)
	assert.Equal(t, "http://signed/covers/2026/9/1/k.jpg", view.CoverURL)
}

func TestCreatePost_MissingTitle(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	body, contentType := multipartBody(t, map[string]string{"summary": "s"}, "")
	req := httptest.NewRequest(http.MethodPost, "/post", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(&http.Cookie{Name: common.TokenCookieName, Value: validToken(t, "u-1", "alice")})
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdatePost_Forbidden(t *testing.T) {
	posts := &fakePosts{updateErr: common.ErrForbidden}
	s := newTestServer(nil, posts, nil)

	body, contentType := multipartBody(t, map[string]string{
		"id":    "p-1",
		"title": "Hacked",
	}, "")
	req := httptest.NewRequest(http.MethodPut, "/post", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(&http.Cookie{Name: common.TokenCookieName, Value: validToken(t, "u-2", "bob")})
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "p-1", posts.updateID)
}

func TestUpdatePost_NotFound(t *testing.T) {
	s := newTestServer(nil, &fakePosts{updateErr: common.ErrorNotFound}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"id":    "ghost",
		"title": "New",
	}, "")
	req := httptest.NewRequest(http.MethodPut, "/post", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(&http.Cookie{Name: common.TokenCookieName, Value: validToken(t, "u-1", "alice")})
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdatePost_MissingID(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	body, contentType := multipartBody(t, map[string]string{"title": "New"}, "")
	req := httptest.NewRequest(http.MethodPut, "/post", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(&http.Cookie{Name: common.TokenCookieName, Value: validToken(t, "u-1", "alice")})
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdatePost_Success(t *testing.T) {
	updated := &models.Post{ID: "p-1", Title: "New", AuthorID: "u-1", AuthorName: "alice", CreatedAt: time.Now()}
	s := newTestServer(nil, &fakePosts{updateOut: updated}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"id":    "p-1",
		"title": "New",
	}, "")
	req := httptest.NewRequest(http.MethodPut, "/post", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(&http.Cookie{Name: common.TokenCookieName, Value: validToken(t, "u-1", "alice")})
	rr := doRequest(s, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var view postView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, "New", view.Title)
	assert.Equal(t, "alice", view.Author.Username)
}

func TestListPosts_Public(t *testing.T) {
	now := time.Now()
	s := newTestServer(nil, &fakePosts{listOut: []*models.Post{
		{ID: "p-2", Title: "Newer", AuthorID: "u-1", AuthorName: "alice", CreatedAt: now},
		{ID: "p-1", Title: "Older", AuthorID: "u-1", AuthorName: "alice", CreatedAt: now.Add(-time.Hour)},
	}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/post", nil)
	rr := doRequest(s, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var views []postView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "Newer", views[0].Title)
	assert.Equal(t, "Older", views[1].Title)
}

func TestListPosts_BadLimit(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/post?limit=abc", nil)
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetPost_Found(t *testing.T) {
	s := newTestServer(nil, &fakePosts{getOut: &models.Post{
		ID: "p-1", Title: "Hi", AuthorID: "u-1", AuthorName: "alice", CreatedAt: time.Now(),
	}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/post/p-1", nil)
	rr := doRequest(s, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"title":"Hi"`)
}

func TestGetPost_NotFound(t *testing.T) {
	s := newTestServer(nil, &fakePosts{getErr: common.ErrorNotFound}, nil)

	req := httptest.NewRequest(http.MethodGet, "/post/ghost", nil)
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServiceFailure_Returns500(t *testing.T) {
	s := newTestServer(nil, &fakePosts{listErr: io.ErrUnexpectedEOF}, nil)

	req := httptest.NewRequest(http.MethodGet, "/post", nil)
	rr := doRequest(s, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "unexpected EOF", "internal detail must not leak")
}
