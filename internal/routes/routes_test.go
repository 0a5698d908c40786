package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/testutil"
)

type stubSigner struct {
	url string
	err error
}

func (s stubSigner) PresignUpload(context.Context) (string, error) { return s.url, s.err }

type stubVerifier struct {
	identity *services.FederatedIdentity
	err      error
}

func (s stubVerifier) Verify(context.Context, string) (*services.FederatedIdentity, error) {
	return s.identity, s.err
}

type testServer struct {
	app *fiber.App
	db  *gorm.DB
	reg *prometheus.Registry
}

func newTestServer(t *testing.T, signer services.UploadSigner, verifier services.IdentityVerifier) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{
		JWTSecret:           "route-secret",
		BcryptCost:          bcrypt.MinCost,
		UsernameMaxAttempts: 10,
		StoreTimeout:        5 * time.Second,
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	app := fiber.New()
	Setup(app, Handlers{
		Auth:   handlers.NewAuthHandler(services.NewAuthService(db, cfg, tokens, verifier), collector),
		Blog:   handlers.NewBlogHandler(services.NewBlogService(db, cfg, nil), collector),
		Upload: handlers.NewUploadHandler(signer),
		Health: handlers.NewHealthHandler(db),
	}, tokens, reg, nil)

	return &testServer{app: app, db: db, reg: reg}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func blogBody(draft bool) dto.CreateBlogRequest {
	return dto.CreateBlogRequest{
		Title:   "Hello World",
		Des:     "First post",
		Banner:  "https://cdn.example.com/b.jpeg",
		Tags:    []string{"A", "B"},
		Content: json.RawMessage(`{"blocks":[{"type":"paragraph","data":{"text":"hi"}}]}`),
		Draft:   draft,
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, stubSigner{}, stubVerifier{})
	signup := dto.SignupRequest{Fullname: "Jordan", Email: "jordan@x.com", Password: "Aa1!aaaa"}

	status, raw := s.do(t, http.MethodPost, "/signup", "", signup)
	require.Equal(t, http.StatusOK, status, string(raw))
	created := decode[dto.AuthResponse](t, raw)
	assert.Equal(t, "jordan", created.Username)
	assert.NotEmpty(t, created.AccessToken)

	status, raw = s.do(t, http.MethodPost, "/signup", "", signup)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Email already in use.", decode[dto.ErrorResponse](t, raw).Error)

	status, raw = s.do(t, http.MethodPost, "/signup", "", dto.SignupRequest{Fullname: "Jo", Email: "jo@x.com", Password: "Aa1!aaaa"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Full Name must be at least 3 letters long.", decode[dto.ErrorResponse](t, raw).Error)

	status, raw = s.do(t, http.MethodPost, "/signin", "", dto.SigninRequest{Email: "jordan@x.com", Password: "Aa1!aaaa"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.Username, decode[dto.AuthResponse](t, raw).Username)

	status, raw = s.do(t, http.MethodPost, "/signin", "", dto.SigninRequest{Email: "jordan@x.com", Password: "Bb1!bbbb"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Incorrect password.", decode[dto.ErrorResponse](t, raw).Error)

	status, raw = s.do(t, http.MethodPost, "/signin", "", dto.SigninRequest{Email: "ghost@x.com", Password: "Aa1!aaaa"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.JSONEq(t, `{"error":"Email not found."}`, string(raw))
}

func TestGoogleAuth(t *testing.T) {
	identity := &services.FederatedIdentity{Email: "sam@gmail.com", DisplayName: "Sam Lee"}
	s := newTestServer(t, stubSigner{}, stubVerifier{identity: identity})

	status, raw := s.do(t, http.MethodPost, "/google-auth", "", dto.GoogleAuthRequest{AccessToken: "id-token"})
	require.Equal(t, http.StatusOK, status, string(raw))
	resp := decode[dto.AuthResponse](t, raw)
	assert.Equal(t, "sam", resp.Username)
	assert.Contains(t, resp.ProfileImg, "dicebear")

	status, _ = s.do(t, http.MethodPost, "/google-auth", "", dto.GoogleAuthRequest{AccessToken: "id-token"})
	require.Equal(t, http.StatusOK, status)

	status, raw = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `blog_auth_signups_total{method="google"} 1`)
	assert.Contains(t, string(raw), `blog_auth_signins_total{method="google",result="success"} 2`)

	status, raw = s.do(t, http.MethodPost, "/signin", "", dto.SigninRequest{Email: "sam@gmail.com", Password: "Aa1!aaaa"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, decode[dto.ErrorResponse](t, raw).Error, "Google")

	failing := newTestServer(t, stubSigner{}, stubVerifier{err: errors.New("bad signature")})
	status, raw = failing.do(t, http.MethodPost, "/google-auth", "", dto.GoogleAuthRequest{AccessToken: "forged"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, string(raw), "bad signature")
}

func TestBlogFlow(t *testing.T) {
	s := newTestServer(t, stubSigner{}, stubVerifier{})
	status, raw := s.do(t, http.MethodPost, "/signup", "", dto.SignupRequest{Fullname: "Jordan", Email: "jordan@x.com", Password: "Aa1!aaaa"})
	require.Equal(t, http.StatusOK, status)
	token := decode[dto.AuthResponse](t, raw).AccessToken

	status, raw = s.do(t, http.MethodPost, "/create-blog", "", blogBody(false))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Access token missing.", decode[dto.ErrorResponse](t, raw).Error)

	status, raw = s.do(t, http.MethodPost, "/create-blog", "forged.token.value", blogBody(false))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Invalid access token.", decode[dto.ErrorResponse](t, raw).Error)

	status, raw = s.do(t, http.MethodPost, "/check-duplicate-title", token, dto.CheckDuplicateTitleRequest{Title: "Hello World"})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[dto.CheckDuplicateTitleResponse](t, raw).Duplicate)

	status, raw = s.do(t, http.MethodPost, "/create-blog", token, blogBody(false))
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Regexp(t, `^hello-world`, decode[dto.CreateBlogResponse](t, raw).ID)

	status, raw = s.do(t, http.MethodPost, "/check-duplicate-title", token, dto.CheckDuplicateTitleRequest{Title: "Hello World"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[dto.CheckDuplicateTitleResponse](t, raw).Duplicate)

	empty := blogBody(true)
	empty.Content = json.RawMessage(`{"blocks":[]}`)
	status, raw = s.do(t, http.MethodPost, "/create-blog", token, empty)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Blog content is required.", decode[dto.ErrorResponse](t, raw).Error)

	status, _ = s.do(t, http.MethodPost, "/create-blog", token, blogBody(true))
	require.Equal(t, http.StatusOK, status)

	var author models.User
	require.NoError(t, s.db.Where("email = ?", "jordan@x.com").First(&author).Error)
	assert.Equal(t, int64(1), author.TotalPosts)

	status, raw = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `blog_posts_created_total{state="published"} 1`)
	assert.Contains(t, string(raw), `blog_posts_created_total{state="draft"} 1`)
	assert.Contains(t, string(raw), `blog_auth_signups_total{method="password"} 1`)
}

func TestUploadURL(t *testing.T) {
	s := newTestServer(t, stubSigner{url: "https://bucket.s3.amazonaws.com/k.jpeg?X-Amz-Expires=1000"}, stubVerifier{})
	status, raw := s.do(t, http.MethodGet, "/get-upload-url", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/k.jpeg?X-Amz-Expires=1000", decode[dto.UploadURLResponse](t, raw).UploadURL)

	failing := newTestServer(t, stubSigner{err: services.ErrUploadSigning}, stubVerifier{})
	status, raw = failing.do(t, http.MethodGet, "/get-upload-url", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to generate upload URL.", decode[dto.ErrorResponse](t, raw).Error)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, stubSigner{}, stubVerifier{})
	status, raw := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	health := decode[dto.HealthResponse](t, raw)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.DB)
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, stubSigner{}, stubVerifier{})
	body := dto.SigninRequest{Email: "ghost@x.com", Password: "Aa1!aaaa"}

	for i := 0; i < 10; i++ {
		status, _ := s.do(t, http.MethodPost, "/signin", "", body)
		require.Equal(t, http.StatusForbidden, status)
	}
	status, _ := s.do(t, http.MethodPost, "/signin", "", body)
	assert.Equal(t, http.StatusTooManyRequests, status)
}
