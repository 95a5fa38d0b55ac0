package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/vaidarjogo/go-confirmation-service/internal/metrics"
	"golang.org/x/time/rate"
)

// GameRateLimiter manages rate limiters per game
type GameRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewGameRateLimiter creates a new game rate limiter
func NewGameRateLimiter(rps float64, burst int) *GameRateLimiter {
	return &GameRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// GetLimiter returns the rate limiter for a specific game
func (rl *GameRateLimiter) GetLimiter(gameID string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[gameID]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Double-check after acquiring write lock
		limiter, exists = rl.limiters[gameID]
		if !exists {
			limiter = rate.NewLimiter(rl.rate, rl.burst)
			rl.limiters[gameID] = limiter
		}
		rl.mu.Unlock()
	}

	return limiter
}

// RateLimitMiddleware creates a rate limiting middleware keyed by game id
func RateLimitMiddleware(rl *GameRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID := c.Param("game_id")

		if gameID == "" {
			gameID = c.Query("game_id")
		}

		// ShouldBindBodyWith allows binding without consuming the body
		if gameID == "" {
			var req struct {
				GameID string `json:"game_id"`
			}
			if err := c.ShouldBindBodyWith(&req, binding.JSON); err == nil {
				gameID = req.GameID
			}
		}

		// If still empty, allow through (will fail validation later)
		if gameID == "" {
			c.Next()
			return
		}

		limiter := rl.GetLimiter(gameID)

		if !limiter.Allow() {
			metrics.RateLimitExceeded.WithLabelValues(gameID).Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
