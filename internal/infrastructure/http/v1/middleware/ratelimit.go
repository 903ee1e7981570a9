package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies per-client request limits. Auth endpoints get a much
// tighter budget than the rest of the API.
type RateLimiter struct {
	generalRPM int
	authRPM    int
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

// NewRateLimiter creates a rate limiter with requests-per-minute budgets.
func NewRateLimiter(generalRPM, authRPM int) *RateLimiter {
	if generalRPM <= 0 {
		generalRPM = 300
	}
	if authRPM <= 0 {
		authRPM = 10
	}
	return &RateLimiter{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		clients:    map[string]*clientLimiter{},
	}
}

// Handler returns the gin middleware.
func (m *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := m.getLimiter(c.ClientIP())

		target := limiter.general
		if strings.HasPrefix(strings.ToLower(c.Request.URL.Path), "/api/v1/auth") {
			target = limiter.auth
		}

		if !target.Allow() {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "RATE_LIMITED",
				"message": "Too many requests",
			})
			return
		}

		c.Next()
	}
}

func (m *RateLimiter) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = time.Now()
		m.gcLocked()
		return limiter
	}

	created := &clientLimiter{
		general:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.generalRPM)), m.generalRPM),
		auth:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.authRPM)), m.authRPM),
		lastSeen: time.Now(),
	}
	m.clients[clientIP] = created
	m.gcLocked()

	return created
}

func (m *RateLimiter) gcLocked() {
	if len(m.clients) < 1000 {
		return
	}
	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}
