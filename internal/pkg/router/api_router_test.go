package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/702ron/product-api-site-sub000/app/repository"
	apiv1 "github.com/702ron/product-api-site-sub000/internal/api/v1"
	"github.com/702ron/product-api-site-sub000/internal/pkg/amazon"
	"github.com/702ron/product-api-site-sub000/internal/pkg/credits"
	"github.com/702ron/product-api-site-sub000/internal/pkg/fnsku"
	"github.com/702ron/product-api-site-sub000/internal/testutil"
)

func newApp(t *testing.T, max int) *fiber.App {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	products := amazon.NewClient("http://127.0.0.1:0", "", 0)
	converter := fnsku.NewConverter(fnsku.NewCache(repos.ConversionCache), products)
	server := apiv1.NewAPIServer(credits.NewLedger(db, repos.CreditTransaction), converter, products)

	app := fiber.New()
	InstallRouter(app, NewApiRouter(server, repos.User, nil, max))
	return app
}

func get(t *testing.T, app *fiber.App, path, key string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestApiRouter_MountsV1(t *testing.T) {
	app := newApp(t, 0)
	assert.Equal(t, http.StatusOK, get(t, app, "/api/v1/ping", ""))
	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/api/v1/credits/balance", ""))
}

func TestApiRouter_RateLimitsPerKey(t *testing.T) {
	app := newApp(t, 2)

	assert.Equal(t, http.StatusOK, get(t, app, "/api/v1/ping", "pas_first"))
	assert.Equal(t, http.StatusOK, get(t, app, "/api/v1/ping", "pas_first"))
	assert.Equal(t, http.StatusTooManyRequests, get(t, app, "/api/v1/ping", "pas_first"))

	// a different key has its own window
	assert.Equal(t, http.StatusOK, get(t, app, "/api/v1/ping", "pas_second"))
}
