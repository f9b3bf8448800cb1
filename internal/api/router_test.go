package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/personashop/internal/api/middleware"
	"github.com/timmy/personashop/internal/auth"
	"github.com/timmy/personashop/internal/domain"
	"github.com/timmy/personashop/internal/repository"
	"github.com/timmy/personashop/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const recommendReply = `EXPLANATION: Solid everyday choice.

PROS:
- Real meat first

CONS:
- Large kibble

MATCH_SCORE: 82`

// scriptedProvider answers comparison prompts and recommendation prompts
// with fixed, well-formed replies.
type scriptedProvider struct{}

func (scriptedProvider) Name() string { return "scripted" }

func (scriptedProvider) Complete(_ context.Context, _, userPrompt string, _ int, _ float32) (string, error) {
	if strings.Contains(userPrompt, "PRODUCT 1:") {
		return "Both are fine, the beef recipe edges ahead.\nBEST_CHOICE: Beef Feast", nil
	}
	return recommendReply, nil
}

type testServer struct {
	router   *gin.Engine
	products *repository.ProductRepository
}

func newTestServer(t *testing.T, verifier middleware.TokenVerifier) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.Migrate(db))

	profiles := repository.NewProfileRepository(db)
	products := repository.NewProductRepository(db)
	records := repository.NewRecommendationRepository(db)
	wishlist := repository.NewWishlistRepository(db)

	completer := service.NewCompletionClient(scriptedProvider{}, 0.7, nil)
	cache := service.NewCacheStore(profiles, records, completer, nil, nil, service.CacheConfig{})

	router := SetupRouter(Services{
		Profiles:        service.NewProfileService(profiles, cache),
		Products:        service.NewProductService(products, completer),
		Recommendations: service.NewRecommendationService(profiles, products, cache, completer, service.RecommendationConfig{}),
		Wishlist:        service.NewWishlistService(wishlist, products, profiles),
	}, RouterConfig{Mode: "test", Verifier: verifier, DB: sqlDB}, nil)

	return &testServer{router: router, products: products}
}

func (s *testServer) seed(t *testing.T, id, name string, allergens ...interface{}) {
	t.Helper()
	require.NoError(t, s.products.Create(context.Background(), &domain.Product{
		ID:              id,
		Name:            name,
		Brand:           "Acme",
		Price:           42.5,
		ProductCategory: "dog",
		Attributes: domain.Attributes{
			"primary_protein": strings.ToLower(strings.Fields(name)[0]),
			"ingredients":     map[string]interface{}{"allergens": allergens},
		},
		IsActive: true,
	}))
}

func (s *testServer) do(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.UserIDHeader, user)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func createProfile(t *testing.T, s *testServer, user string) domain.Profile {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/profiles", user, map[string]interface{}{
		"name":             "Rex",
		"profile_category": "dog",
		"age_years":        4,
		"weight_lbs":       55,
		"allergies":        []string{"Chicken"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var profile domain.Profile
	decode(t, w, &profile)
	return profile
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Templates(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/templates", http.StatusOK},
		{"/api/v1/templates/dog", http.StatusOK},
		{"/api/v1/templates/dog/small-puppy", http.StatusOK},
		{"/api/v1/templates/dragon", http.StatusNotFound},
		{"/api/v1/templates/dog/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := s.do(t, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRouter_ErrorMapping(t *testing.T) {
	s := newTestServer(t, nil)
	s.seed(t, "beef", "Beef Feast")
	profile := createProfile(t, s, "u1")

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   interface{}
		want   int
	}{
		{"missing identity", http.MethodGet, "/api/v1/profiles", "", nil, http.StatusUnauthorized},
		{"missing required field", http.MethodPost, "/api/v1/profiles", "u1", map[string]string{"name": "x"}, http.StatusBadRequest},
		{"foreign profile", http.MethodGet, "/api/v1/profiles/" + profile.ID, "u2", nil, http.StatusForbidden},
		{"unknown profile", http.MethodGet, "/api/v1/profiles/nope", "u1", nil, http.StatusNotFound},
		{"unknown product", http.MethodGet, "/api/v1/products/nope", "u1", nil, http.StatusNotFound},
		{"short search", http.MethodGet, "/api/v1/products/search?q=a", "u1", nil, http.StatusBadRequest},
		{"limit out of range", http.MethodPost, "/api/v1/recommendations", "u1",
			map[string]interface{}{"profile_id": profile.ID, "limit": 500}, http.StatusBadRequest},
		{"compare single product", http.MethodPost, "/api/v1/recommendations/compare", "u1",
			map[string]interface{}{"profile_id": profile.ID, "product_ids": []string{"beef"}}, http.StatusBadRequest},
		{"delete foreign profile", http.MethodDelete, "/api/v1/profiles/" + profile.ID, "u2", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRouter_RecommendationFlow(t *testing.T) {
	s := newTestServer(t, nil)
	s.seed(t, "beef", "Beef Feast", "beef")
	s.seed(t, "chicken", "Chicken Dinner", "chicken")
	s.seed(t, "lamb", "Lamb Supper")
	profile := createProfile(t, s, "u1")

	w := s.do(t, http.MethodPost, "/api/v1/recommendations", "u1", map[string]interface{}{"profile_id": profile.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp service.RecommendationResponse
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.TotalSafeProducts)
	assert.Equal(t, 1, resp.TotalFilteredOut)
	require.Len(t, resp.Recommendations, 2)
	for _, item := range resp.Recommendations {
		assert.NotEqual(t, "chicken", item.Product.ID)
		assert.Equal(t, 82, item.MatchScore)
		assert.Equal(t, []string{"Real meat first"}, item.Pros)
	}

	w = s.do(t, http.MethodGet, "/api/v1/profiles/"+profile.ID, "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored domain.Profile
	decode(t, w, &stored)
	assert.Len(t, stored.RecommendedProductIDs, 2)
	assert.NotNil(t, stored.RecommendationsGeneratedAt)

	w = s.do(t, http.MethodPost, "/api/v1/recommendations/compare", "u1", map[string]interface{}{
		"profile_id":  profile.ID,
		"product_ids": []string{"lamb", "beef", "chicken"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cmp service.ComparisonResponse
	decode(t, w, &cmp)
	assert.Equal(t, "beef", cmp.BestChoice)
	require.Len(t, cmp.Recommendations, 3)
	assert.Equal(t, "lamb", cmp.Recommendations[0].Product.ID)
	assert.False(t, cmp.Recommendations[2].IsSafe)
	assert.Zero(t, cmp.Recommendations[2].MatchScore)

	w = s.do(t, http.MethodPut, "/api/v1/profiles/"+profile.ID, "u1", map[string]interface{}{
		"allergies": []string{"chicken", "beef"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated domain.Profile
	decode(t, w, &updated)
	assert.Equal(t, 2, updated.RecommendationsCacheVersion)
	assert.Empty(t, updated.RecommendedProductIDs)
}

func TestRouter_KeyFeaturesAndWishlist(t *testing.T) {
	s := newTestServer(t, nil)
	s.seed(t, "beef", "Beef Feast")
	profile := createProfile(t, s, "u1")

	w := s.do(t, http.MethodGet, "/api/v1/products/beef/key-features", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var features struct {
		ProductID   string    `json:"product_id"`
		KeyFeatures [2]string `json:"key_features"`
	}
	decode(t, w, &features)
	assert.Equal(t, "beef", features.ProductID)
	assert.NotEmpty(t, features.KeyFeatures[0])

	add := map[string]interface{}{"product_id": "beef", "profile_id": profile.ID}
	w = s.do(t, http.MethodPost, "/api/v1/wishlist", "u1", add)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/wishlist", "u1", add)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/wishlist", "u2", add)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/wishlist", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []domain.WishlistItem
	decode(t, w, &items)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "Beef Feast", items[0].Product.Name)

	w = s.do(t, http.MethodDelete, "/api/v1/wishlist/product/beef", "u1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodDelete, "/api/v1/wishlist/product/beef", "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_BearerAuth(t *testing.T) {
	const secret = "test-secret"
	s := newTestServer(t, auth.NewVerifier(secret, "personashop"))

	sign := func(t *testing.T, subject string, exp time.Time) string {
		t.Helper()
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "personashop",
			ExpiresAt: jwt.NewNumericDate(exp),
		}})
		signed, err := tok.SignedString([]byte(secret))
		require.NoError(t, err)
		return signed
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"header identity without token", "", http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, "u1", time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"valid", "Bearer " + sign(t, "u1", time.Now().Add(time.Hour)), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			req.Header.Set(middleware.UserIDHeader, "u1")
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}
