package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string) string {
	t.Helper()
	claims := models.JWTClaims{
		UserID: "user-1",
		Role:   "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func runJWT(t *testing.T, authorization string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/periods", nil)
	require.NoError(t, err)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	c.Request = req
	JWT(testSecret)(c)
	return w, c
}

func TestJWTAcceptsValidToken(t *testing.T) {
	w, c := runJWT(t, "Bearer "+signToken(t, testSecret))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, c.IsAborted())

	value, ok := c.Get(ContextUserKey)
	require.True(t, ok)
	claims, ok := value.(*models.JWTClaims)
	require.True(t, ok)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	w, c := runJWT(t, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, c.IsAborted())
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	w, _ := runJWT(t, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	w, _ := runJWT(t, "Bearer "+signToken(t, "other-secret"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
