package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eaglebank/ledger/ledger-service/internal/config"
	"github.com/eaglebank/ledger/ledger-service/internal/repository"
	"github.com/eaglebank/ledger/shared/middleware"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.Setup(context.Background(), repository.SQLite, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.Config{JWTSecret: testSecret, TxMaxAttempts: 3, TxRetryBase: time.Millisecond}
	return newRouter(db, repository.SQLite, rdb, cfg, zap.NewNop())
}

func token(t *testing.T, ownerID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &middleware.Claims{
		UserID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func call(t *testing.T, router *gin.Engine, owner, method, url, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if body == "" {
		req = httptest.NewRequest(method, url, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, owner))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestHealth(t *testing.T) {
	router := newTestServer(t)
	code, body := call(t, router, "", http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestRequiresToken(t *testing.T) {
	router := newTestServer(t)
	code, _ := call(t, router, "", http.MethodGet, "/v1/accounts", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLedgerFlow(t *testing.T) {
	router := newTestServer(t)

	code, a := call(t, router, "usr-1", http.MethodPost, "/v1/accounts", "")
	require.Equal(t, http.StatusCreated, code)
	code, b := call(t, router, "usr-2", http.MethodPost, "/v1/accounts", "")
	require.Equal(t, http.StatusCreated, code)
	accA, accB := a["id"].(string), b["id"].(string)

	code, rpl := call(t, router, "usr-1", http.MethodPost, "/v1/replenishments", `{"account":"`+accA+`","amount":"100.00"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "100.00", rpl["amount"])

	code, rpl = call(t, router, "usr-1", http.MethodPost, "/v1/replenishments", `{"account":"`+accA+`","amount":"50.00"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "50.00", rpl["amount"])

	code, _ = call(t, router, "usr-2", http.MethodPost, "/v1/replenishments", `{"account":"`+accA+`","amount":"1.00"}`)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = call(t, router, "usr-1", http.MethodPost, "/v1/transfers", `{"fromAccount":"`+accA+`","toAccount":"`+accB+`","amount":"200.00"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = call(t, router, "usr-1", http.MethodPost, "/v1/transfers", `{"fromAccount":"`+accA+`","toAccount":"`+accA+`","amount":"10.00"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, trf := call(t, router, "usr-1", http.MethodPost, "/v1/transfers", `{"fromAccount":"`+accA+`","toAccount":"`+accB+`","amount":"150.00"}`)
	require.Equal(t, http.StatusCreated, code)

	code, got := call(t, router, "usr-1", http.MethodGet, "/v1/accounts/"+accA, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0.00", got["balance"])
	assert.Len(t, got["replenishments"], 2)
	assert.Contains(t, got["replenishments"], rpl["id"])

	code, got = call(t, router, "usr-2", http.MethodGet, "/v1/accounts/"+accB, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "150.00", got["balance"])

	// The receiving owner sees the incoming transfer.
	code, got = call(t, router, "usr-2", http.MethodGet, "/v1/transfers/"+trf["id"].(string), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, accA, got["fromAccount"])

	code, list := call(t, router, "usr-2", http.MethodGet, "/v1/transfers", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, list["transfers"], 1)

	code, _ = call(t, router, "usr-2", http.MethodGet, "/v1/replenishments/"+rpl["id"].(string), "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, router, "usr-2", http.MethodDelete, "/v1/accounts/"+accB, "")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, router, "usr-1", http.MethodDelete, "/v1/accounts/"+accA, "")
	assert.Equal(t, http.StatusNoContent, code)

	// History went with the account.
	code, list = call(t, router, "usr-2", http.MethodGet, "/v1/transfers", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, list["transfers"])
}

func TestCreateAccountCannotMintMoney(t *testing.T) {
	router := newTestServer(t)

	code, acc := call(t, router, "usr-1", http.MethodPost, "/v1/accounts", `{"balance":"99999999.99"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "0.00", acc["balance"])

	code, other := call(t, router, "usr-2", http.MethodPost, "/v1/accounts", "")
	require.Equal(t, http.StatusCreated, code)

	code, list := call(t, router, "usr-1", http.MethodGet, "/v1/replenishments", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, list["replenishments"])

	code, _ = call(t, router, "usr-1", http.MethodPost, "/v1/transfers", `{"fromAccount":"`+acc["id"].(string)+`","toAccount":"`+other["id"].(string)+`","amount":"1000000.00"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestCustomerFlow(t *testing.T) {
	router := newTestServer(t)

	code, _ := call(t, router, "usr-1", http.MethodGet, "/v1/customer", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, customer := call(t, router, "usr-1", http.MethodPut, "/v1/customer", `{"firstName":"Ada","lastName":"Lovelace","city":"London"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "London", customer["city"])

	code, customer = call(t, router, "usr-1", http.MethodGet, "/v1/customer", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Lovelace", customer["lastName"])

	code, _ = call(t, router, "usr-1", http.MethodDelete, "/v1/customer", "")
	assert.Equal(t, http.StatusNoContent, code)
}
