package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/journal-submission-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokens() *TokenService {
	return NewTokenService("test-secret-0123456789", "journal-test", time.Hour)
}

func TestSignAndParse(t *testing.T) {
	ts := testTokens()
	u := &models.User{ID: 42, Username: "nodira", Role: models.RoleEditor}

	token, exp, err := ts.Sign(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ts.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, models.RoleEditor, claims.Role)
	assert.Equal(t, "42", claims.Subject)

	actor := claims.Actor()
	assert.Equal(t, int64(42), actor.UserID)
	assert.True(t, actor.IsStaff())
}

func TestParse_Rejects(t *testing.T) {
	ts := testTokens()
	u := &models.User{ID: 1, Username: "a", Role: models.RoleAuthor}

	other := NewTokenService("another-secret-987654321", "journal-test", time.Hour)
	forged, _, err := other.Sign(u)
	require.NoError(t, err)
	_, err = ts.Parse(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewTokenService("test-secret-0123456789", "elsewhere", time.Hour)
	tok, _, err := wrongIssuer.Sign(u)
	require.NoError(t, err)
	_, err = ts.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := testTokens()
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err = expired.Sign(u)
	require.NoError(t, err)
	_, err = ts.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ts.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ts := testTokens()
	token, _, err := ts.Sign(&models.User{ID: 7, Username: "a", Role: models.RoleAdmin})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/open", OptionalAuth(ts), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": ActorFrom(c).UserID})
	})
	router.GET("/closed", RequireAuth(ts), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": MustGetClaims(c).Role})
	})

	tests := []struct {
		path   string
		header string
		status int
		body   string
	}{
		{"/open", "", http.StatusOK, `{"user":0}`},
		{"/open", "Bearer " + token, http.StatusOK, `{"user":7}`},
		{"/open", "Bearer junk", http.StatusUnauthorized, ""},
		{"/closed", "", http.StatusUnauthorized, ""},
		{"/closed", "Bearer " + token, http.StatusOK, `{"role":"admin"}`},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, tt.status, w.Code, "%s %q", tt.path, tt.header)
		if tt.body != "" {
			assert.JSONEq(t, tt.body, w.Body.String())
		}
	}
}
