package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"aigc_platform/internal/db/testutil"
	"aigc_platform/internal/domain"
	"aigc_platform/internal/utils"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(db *gorm.DB, guards ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append([]gin.HandlerFunc{JWTAuthMiddleware(testSecret), CurrentUserMiddleware(db)}, guards...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": CurrentUser(c).Username})
	})
	r.GET("/me", chain...)
	return r
}

func get(t *testing.T, r http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, u *domain.User) string {
	t.Helper()
	token, err := utils.GenerateJWT(u.ID, string(u.Role), testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func TestJWTAuthMiddleware(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	alice := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 0, 5))
	r := newRouter(db)

	assert.Equal(t, http.StatusUnauthorized, get(t, r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "garbage").Code)

	w := get(t, r, tokenFor(t, alice))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestCurrentUserMiddlewareRejectsDisabledAndMissing(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	carol := testutil.MustCreateUser(t, db, domain.User{Username: "carol", IsActive: false})
	r := newRouter(db)

	assert.Equal(t, http.StatusForbidden, get(t, r, tokenFor(t, carol)).Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, tokenFor(t, &domain.User{ID: 999, Role: domain.RoleUser})).Code)
}

func TestRoleMiddlewareUsesStoredRole(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	admin := testutil.ActiveUser("root", 0, 5)
	admin.Role = domain.RoleAdmin
	adminUser := testutil.MustCreateUser(t, db, admin)
	member := testutil.MustCreateUser(t, db, testutil.ActiveUser("alice", 0, 5))

	r := newRouter(db, AdminOnly())
	assert.Equal(t, http.StatusOK, get(t, r, tokenFor(t, adminUser)).Code)
	assert.Equal(t, http.StatusForbidden, get(t, r, tokenFor(t, member)).Code)

	// A token claiming admin does not help once the stored role says otherwise.
	forged, err := utils.GenerateJWT(member.ID, string(domain.RoleAdmin), testSecret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(t, r, forged).Code)

	r = newRouter(db, SuperAdminOnly())
	assert.Equal(t, http.StatusForbidden, get(t, r, tokenFor(t, adminUser)).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/ping", RateLimitMiddleware(NewKeyedLimiter(0.001, 2)), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	// Other clients have their own bucket.
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
