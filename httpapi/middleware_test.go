package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestLoginThrottleRejectionKeepsCapacity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := rate.NewLimiter(rate.Every(time.Minute), 1)
	if !limiter.Allow() {
		t.Fatal("burst slot should be free")
	}
	handler := loginThrottle(limiter)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/login", nil)
		handler(c)

		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("rejection %d: status %d", i, w.Code)
		}
		if w.Header().Get("Retry-After") == "" {
			t.Fatalf("rejection %d: missing Retry-After", i)
		}
	}

	// Rejected requests only peek at the wait; they must not pile up
	// reservations that push the advertised delay out further and further.
	if tokens := limiter.Tokens(); tokens < -1 {
		t.Fatalf("rejections consumed future capacity: tokens=%f", tokens)
	}
}
