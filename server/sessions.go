package server

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/churnboard/dashboard"
)

// ============================================================================
// SESSIONS — One dashboard session per client
// ============================================================================
// Clients identify themselves with the X-Session-ID header or the session
// cookie. Unknown or expired ids get a fresh session. Idle sessions are
// dropped lazily on lookup; nothing runs in the background.
// ============================================================================

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "churnboard_session"
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "churnboard_sessions_active",
	Help: "Dashboard sessions currently held in memory.",
})

type sessionEntry struct {
	session  *dashboard.Session
	lastSeen time.Time
}

// Registry maps session ids to dashboard sessions.
type Registry struct {
	mu      sync.Mutex
	src     dashboard.Source
	ttl     time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
	entries map[uuid.UUID]*sessionEntry
}

// NewRegistry creates an empty registry.
func NewRegistry(src dashboard.Source, ttl time.Duration, log logrus.FieldLogger) *Registry {
	return &Registry{
		src:     src,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
		entries: make(map[uuid.UUID]*sessionEntry),
	}
}

// Resolve returns the session for raw, creating one when raw is empty,
// malformed, unknown or expired. The returned id is the one to hand back.
func (r *Registry) Resolve(raw string) (uuid.UUID, *dashboard.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)

	if id, err := uuid.Parse(raw); err == nil {
		if e, ok := r.entries[id]; ok {
			e.lastSeen = now
			return id, e.session
		}
	}

	id := uuid.New()
	s := dashboard.NewSession(r.src, r.log.WithField("session", id.String()))
	r.entries[id] = &sessionEntry{session: s, lastSeen: now}
	activeSessions.Set(float64(len(r.entries)))
	r.log.WithField("session", id.String()).Debug("🆕 session created")
	return id, s
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) sweepLocked(now time.Time) {
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > r.ttl {
			delete(r.entries, id)
		}
	}
	activeSessions.Set(float64(len(r.entries)))
}

// session resolves the caller's session and echoes its id back.
func (s *Server) session(c *fiber.Ctx) *dashboard.Session {
	raw := c.Get(SessionHeader)
	if raw == "" {
		raw = c.Cookies(SessionCookie)
	}
	id, sess := s.sessions.Resolve(raw)
	c.Set(SessionHeader, id.String())
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    id.String(),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  s.sessions.now().Add(s.sessions.ttl),
	})
	return sess
}
