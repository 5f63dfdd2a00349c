package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const (
	queryRequestLocalKey = "query_request"

	queryLimiterIdleTTL  = 30 * time.Minute
	queryLimiterMaxKeys  = 10000
	defaultQueriesPerMin = 30
	defaultQueryBurst    = 10
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// queryLimiter hands out one token bucket per patient.
type queryLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	entries map[string]*limiterEntry
}

func newQueryLimiter(perMinute int, burst int) *queryLimiter {
	if perMinute <= 0 {
		perMinute = defaultQueriesPerMin
	}
	if burst <= 0 {
		burst = defaultQueryBurst
	}
	return &queryLimiter{
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
		entries: make(map[string]*limiterEntry),
	}
}

func (limiter *queryLimiter) allow(key string, now time.Time) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	entry, ok := limiter.entries[key]
	if !ok {
		if len(limiter.entries) >= queryLimiterMaxKeys {
			limiter.pruneLocked(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(limiter.limit, limiter.burst)}
		limiter.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (limiter *queryLimiter) pruneLocked(now time.Time) {
	threshold := now.Add(-queryLimiterIdleTTL)
	for key, entry := range limiter.entries {
		if entry.lastSeen.Before(threshold) {
			delete(limiter.entries, key)
		}
	}
}

func (limiter *queryLimiter) size() int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	return len(limiter.entries)
}

func queryLimiterKey(c *fiber.Ctx, patientID string) string {
	if key := strings.TrimSpace(patientID); key != "" {
		return "patient:" + key
	}
	key := strings.TrimSpace(c.IP())
	if key == "" {
		return "unknown"
	}
	return "ip:" + key
}

// QueryRateLimit validates the query body and throttles it per patient. The
// parsed request is passed on through Locals.
func (handler *Handler) QueryRateLimit(c *fiber.Ctx) error {
	request := naturalLanguageQueryRequest{}
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if err := handler.validate.Struct(request); err != nil {
		return apiError(c, fiber.StatusBadRequest, validationMessage(err))
	}

	if !handler.queryLimiter.allow(queryLimiterKey(c, request.PatientID), handler.now()) {
		c.Set(fiber.HeaderRetryAfter, "60")
		return apiError(c, fiber.StatusTooManyRequests, "Too many questions. Please wait a moment and try again.")
	}

	c.Locals(queryRequestLocalKey, request)
	return c.Next()
}
