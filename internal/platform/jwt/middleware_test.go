package jwtmw

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

// TestMain はテスト実行前にGinをテストモードに設定します。
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const testSecret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func run(secret, authHeader string) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		c.Request.Header.Set("Authorization", authHeader)
	}
	AuthRequired(secret)(c)
	return w, c
}

// TestAuthRequired_MissingBearerToken はBearerトークンがない場合やプレフィックスが不正な場合に401が返されることを検証します。
func TestAuthRequired_MissingBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		authHeader string
	}{
		{"no header", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"bearer lowercase", "bearer token123"},
		{"no space after Bearer", "Bearertoken123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, c := run(testSecret, tt.authHeader)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.True(t, c.IsAborted())
			assert.JSONEq(t, `{"error":"missing bearer token"}`, w.Body.String())
		})
	}
}

// TestAuthRequired_MissingJWTSecret はシークレットが未設定の場合に500が返されることを検証します。
func TestAuthRequired_MissingJWTSecret(t *testing.T) {
	t.Parallel()

	w, c := run("", "Bearer sometoken")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, c.IsAborted())
}

// TestAuthRequired_InvalidToken は不正なトークン（改ざん・期限切れ等）で401が返されることを検証します。
func TestAuthRequired_InvalidToken(t *testing.T) {
	t.Parallel()

	now := time.Now()
	valid := jwt.MapClaims{"sub": "ops", "iss": Issuer, "exp": now.Add(time.Hour).Unix()}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", signed(t, valid, jwt.SigningMethodHS256, []byte("other-secret"))},
		{"expired", signed(t, jwt.MapClaims{"sub": "ops", "iss": Issuer, "exp": now.Add(-time.Hour).Unix()}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"missing exp", signed(t, jwt.MapClaims{"sub": "ops", "iss": Issuer}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"wrong issuer", signed(t, jwt.MapClaims{"sub": "ops", "iss": "someone-else", "exp": now.Add(time.Hour).Unix()}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"none algorithm", signed(t, valid, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, c := run(testSecret, "Bearer "+tt.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.True(t, c.IsAborted())
		})
	}
}

// TestAuthRequired_ValidToken は有効なトークンで次のハンドラーに進み、クレームがコンテキストに入ることを検証します。
func TestAuthRequired_ValidToken(t *testing.T) {
	t.Parallel()

	token, err := NewGenerator(testSecret, time.Hour).GenerateToken("ops@example.com", "operator")
	assert.NoError(t, err)

	w, c := run(testSecret, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, c.IsAborted())
	assert.Equal(t, "ops@example.com", c.GetString(ContextSubject))
	assert.Equal(t, "operator", c.GetString(ContextRole))
}
