package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/contenthub/internal/config"
	"github.com/iliyamo/contenthub/internal/database/dbtest"
	"github.com/iliyamo/contenthub/internal/metrics"
	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
	"github.com/iliyamo/contenthub/internal/router"
	"github.com/iliyamo/contenthub/internal/service"
	"github.com/iliyamo/contenthub/internal/storage"
	"github.com/iliyamo/contenthub/internal/utils"
)

type server struct {
	e      *echo.Echo
	store  *repository.Store
	tokens *utils.TokenIssuer
}

func newServer(t *testing.T, rateLimit config.RateLimitConfig) *server {
	t.Helper()
	db := dbtest.Open(t)
	store := repository.NewStore(db)
	tokens := utils.NewTokenIssuer("test-secret", "contenthub", "contenthub-api", 15*time.Minute, 24*time.Hour)
	files := service.NewFileService(storage.NewMemoryStore(), nil)
	content := service.NewContentService(store, files, nil, nil)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	reg := prometheus.NewRegistry()
	metrics.RegisterMetrics(reg)

	e := router.New(router.Services{
		Auth:     service.NewAuthService(store, tokens, bcrypt.MinCost, nil),
		Users:    service.NewUserService(store, files, nil),
		Articles: service.NewArticleService(content),
		Books:    service.NewBookService(content),
		Recipes:  service.NewRecipeService(content),
		Comments: service.NewCommentService(store, nil),
		Likes:    service.NewLikeService(store),
		Taxa:     service.NewTaxonomyService(store, nil),
		Files:    files,
	}, router.Options{
		DB:        db,
		Tokens:    tokens,
		Redis:     rdb,
		RateLimit: rateLimit,
		Cache: config.CacheConfig{
			Enabled: true, Methods: map[string]bool{http.MethodGet: true},
			TTL: time.Minute, KeyStrategy: "route_query", Prefix: "test:cache", MaxBodyBytes: 1 << 20,
		},
		Gatherer: reg,
	})
	return &server{e: e, store: store, tokens: tokens}
}

func (s *server) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

type session struct {
	User struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func (s *server) register(t *testing.T, name string) session {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": name, "email": name + "@example.com", "password": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// adminToken promotes name and returns an access token carrying the role.
func (s *server) adminToken(t *testing.T, name string) string {
	t.Helper()
	sess := s.register(t, name)
	u, err := s.store.Users.GetByID(context.Background(), sess.User.ID)
	require.NoError(t, err)
	u.Role = model.RoleAdmin
	require.NoError(t, s.store.Users.Update(context.Background(), &u))
	at, err := s.tokens.IssueAccessToken(utils.Subject{ID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role)})
	require.NoError(t, err)
	return at.Token
}

// upload posts a single-file multipart form.
func (s *server) upload(t *testing.T, path, field, fileName, data, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	StatusCode int                 `json:"status_code"`
	Message    string              `json:"message"`
	Errors     map[string][]string `json:"errors"`
}

type item struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
	Name   string `json:"name"`
}

type list struct {
	Items []item `json:"items"`
	Total int64  `json:"total"`
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})

	rec := s.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "contenthub_http_requests_total")
}

func TestAuthRoutes(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	alice := s.register(t, "alice")
	assert.Equal(t, string(model.RoleUser), alice.User.Role)
	assert.NotEmpty(t, alice.Refresh.Token)

	t.Run("duplicate is a conflict", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "alice2", "email": "ALICE@example.com", "password": "secret123",
		}, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, http.StatusConflict, decode[errorBody](t, rec).StatusCode)
	})

	t.Run("validation errors carry fields", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "x", "email": "nope", "password": "1",
		}, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[errorBody](t, rec)
		assert.Contains(t, body.Errors, "email")
		assert.Contains(t, body.Errors, "username")
		assert.Contains(t, body.Errors, "password")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("me", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/auth/me", nil, "").Code)
		rec := s.do(t, http.MethodGet, "/api/auth/me", nil, alice.Access.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, alice.User.ID, decode[item](t, rec).ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"username_or_email": "alice", "password": "wrong-password",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh rotation and logout", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email": "alice@example.com", "password": "secret123",
		}, "")
		require.Equal(t, http.StatusOK, rec.Code)
		first := decode[session](t, rec)

		rec = s.do(t, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": first.Refresh.Token}, "")
		require.Equal(t, http.StatusOK, rec.Code)
		second := decode[session](t, rec)

		rec = s.do(t, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": first.Refresh.Token}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = s.do(t, http.MethodPost, "/api/auth/logout", map[string]string{"refresh_token": second.Refresh.Token}, second.Access.Token)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = s.do(t, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": second.Refresh.Token}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout all", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/logout-all", nil, alice.Access.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = s.do(t, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": alice.Refresh.Token}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthRateLimit(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip_route", Prefix: "test:rl",
	})
	creds := map[string]string{"username_or_email": "ghost", "password": "secret123"}
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/auth/login", creds, "").Code)
	}
	rec := s.do(t, http.MethodPost, "/api/auth/login", creds, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// the bucket is per route
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/genres", nil, "").Code)
}

func TestUserRoutes(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	admin := s.adminToken(t, "root")
	bob := s.register(t, "bob")

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/users", nil, bob.Access.Token).Code)
	rec := s.do(t, http.MethodGet, "/api/users", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[list](t, rec).Total)

	rec = s.do(t, http.MethodPut, "/api/users/"+bob.User.ID, map[string]string{"username": "bobby"}, bob.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/users/"+bob.User.ID, nil, bob.Access.Token).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/users/"+bob.User.ID, nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/users/"+bob.User.ID, nil, admin).Code)
}

func TestArticleRoutes(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	admin := s.adminToken(t, "root")
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/article-types", nil, alice.Access.Token).Code)
	rec := s.do(t, http.MethodPost, "/api/article-types", map[string]string{"name": "News"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	news := decode[item](t, rec)

	rec = s.do(t, http.MethodPost, "/api/articles", map[string]any{
		"title": "Hello World", "excerpt": "hi", "body": "text",
		"reading_time_minutes": 3, "article_type_id": news.ID,
	}, alice.Access.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	art := decode[item](t, rec)
	assert.Equal(t, "hello-world", art.Slug)
	assert.Equal(t, string(model.StatusDraft), art.Status)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/articles", map[string]any{"title": "x"}, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/articles/"+art.ID, nil, "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/articles/"+art.ID, nil, alice.Access.Token).Code)

	rec = s.do(t, http.MethodGet, "/api/articles/my", nil, alice.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[list](t, rec).Total)

	status := map[string]string{"status": "Published"}
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPatch, "/api/articles/"+art.ID+"/status", status, bob.Access.Token).Code)
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPatch, "/api/articles/"+art.ID+"/status", map[string]string{"status": "Gone"}, alice.Access.Token).Code)
	rec = s.do(t, http.MethodPatch, "/api/articles/"+art.ID+"/status", status, alice.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(model.StatusPublished), decode[item](t, rec).Status)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/articles/by-slug/hello-world", nil, "").Code)
	rec = s.do(t, http.MethodGet, "/api/articles", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[list](t, rec).Total)

	// comments and likes
	rec = s.do(t, http.MethodPost, "/api/comments", map[string]string{"content_id": art.ID, "text": "nice"}, bob.Access.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	comment := decode[item](t, rec)
	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPut, "/api/comments/"+comment.ID, map[string]string{"text": "edit"}, alice.Access.Token).Code)

	rec = s.do(t, http.MethodGet, "/api/articles/"+art.ID+"/comments", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[list](t, rec).Total)

	type likeState struct {
		Liked      bool  `json:"liked"`
		LikesCount int64 `json:"likes_count"`
	}
	rec = s.do(t, http.MethodPost, "/api/likes/content/"+art.ID+"/toggle", nil, bob.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, likeState{Liked: true, LikesCount: 1}, decode[likeState](t, rec))
	rec = s.do(t, http.MethodGet, "/api/likes/content/"+art.ID+"/check", nil, bob.Access.Token)
	assert.True(t, decode[likeState](t, rec).Liked)
	rec = s.do(t, http.MethodGet, "/api/articles/"+art.ID+"/likes", nil, "")
	assert.EqualValues(t, 1, decode[list](t, rec).Total)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/articles/"+art.ID, nil, bob.Access.Token).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/articles/"+art.ID, nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/articles/"+art.ID, nil, admin).Code)
}

func TestBookFiles(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	alice := s.register(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/books", map[string]any{
		"title": "Dune", "status": "Published", "author_name": "Frank Herbert",
		"page_amount": 412, "year_of_publish": 1965,
	}, alice.Access.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	book := decode[item](t, rec)

	rec = s.upload(t, "/api/books/"+book.ID+"/cover", "cover", "cover.png", "png-bytes", alice.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var withCover struct {
		CoverURL *string `json:"cover_url"`
		HasFile  bool    `json:"has_file"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &withCover))
	require.NotNil(t, withCover.CoverURL)
	assert.False(t, withCover.HasFile)

	rec = s.do(t, http.MethodGet, *withCover.CoverURL, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Equal(t, "png-bytes", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/books/"+book.ID+"/read", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/books/"+book.ID+"/file", nil, alice.Access.Token).Code)

	rec = s.upload(t, "/api/books/"+book.ID+"/file", "file", "dune.txt", "<script>x</script>", alice.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/books/"+book.ID+"/read", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))

	rec = s.do(t, http.MethodPatch, "/api/books/"+book.ID+"/status", map[string]any{"status": "Archived"}, alice.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/books/"+book.ID+"/read", nil, "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/books/"+book.ID+"/read", nil, alice.Access.Token).Code)
}

func TestGenreCache(t *testing.T) {
	s := newServer(t, config.RateLimitConfig{})
	admin := s.adminToken(t, "root")

	first := s.do(t, http.MethodGet, "/api/genres", nil, "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", s.do(t, http.MethodGet, "/api/genres", nil, "").Header().Get("X-Cache"))

	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPost, "/api/genres", map[string]string{"name": "Sci-Fi"}, s.register(t, "bob").Access.Token).Code)
	rec := s.do(t, http.MethodPost, "/api/genres", map[string]string{"name": "Sci-Fi"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusConflict,
		s.do(t, http.MethodPost, "/api/genres", map[string]string{"name": "sci-fi"}, admin).Code)

	after := s.do(t, http.MethodGet, "/api/genres", nil, "")
	assert.Equal(t, "MISS", after.Header().Get("X-Cache"))
	got := decode[list](t, after)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Sci-Fi", got.Items[0].Name)
}
