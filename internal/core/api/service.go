// Package api provides the gRPC builder service.
//
// Each session holds one builder.Builder. The service keeps sessions in a map
// guarded by its own mutex; edits on a session serialize on the session's mutex
// so one slow session never blocks another.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/solatis/rulebuilder/internal/builder"
	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/core/auth"
	"github.com/solatis/rulebuilder/internal/core/config"
	"github.com/solatis/rulebuilder/internal/rules"
	"github.com/solatis/rulebuilder/internal/types"
)

// CatalogSource supplies the catalog new sessions are opened against.
// Implemented by *db.CatalogStore.
type CatalogSource interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// StaticCatalog is a CatalogSource over a fixed catalog, e.g. one read from a file.
type StaticCatalog struct {
	Catalog *catalog.Catalog
}

// Load returns the fixed catalog.
func (s StaticCatalog) Load(context.Context) (*catalog.Catalog, error) {
	return s.Catalog, nil
}

type session struct {
	mu        sync.Mutex
	id        types.SessionID
	owner     string
	builder   *builder.Builder
	validator *rules.Validator
	lastUsed  time.Time
}

// BuilderAPIService implements BuilderAPIServer.
type BuilderAPIService struct {
	cfg     *config.BuilderAPIConfig
	catalog CatalogSource
	labels  builder.Labels
	log     *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[types.SessionID]*session
}

// NewBuilderAPIService creates service instance with dependencies.
func NewBuilderAPIService(cfg *config.BuilderAPIConfig, source CatalogSource, log *slog.Logger) (*BuilderAPIService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("catalog source cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &BuilderAPIService{
		cfg:      cfg,
		catalog:  source,
		labels:   builder.EnglishLabels,
		log:      log,
		now:      time.Now,
		sessions: make(map[types.SessionID]*session),
	}, nil
}

// open registers a new session for the caller in ctx.
func (s *BuilderAPIService) open(ctx context.Context, cat *catalog.Catalog, nodes []types.Node, errorIndicator string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.cfg.MaxSessions {
		s.expireLocked(ctx)
		if len(s.sessions) >= s.cfg.MaxSessions {
			return nil, types.ErrSessionLimit
		}
	}

	sess := &session{
		id:        types.NewSessionID(),
		owner:     ownerOf(ctx),
		builder:   builder.New(cat, nodes, builder.WithErrorIndicator(errorIndicator)),
		validator: rules.NewValidator(cat, dateLayouts(s.cfg)...),
		lastUsed:  s.now(),
	}
	s.sessions[sess.id] = sess
	return sess, nil
}

// acquire looks up a session and locks it. The caller must call release.
// Sessions belonging to another API key are reported as not found.
func (s *BuilderAPIService) acquire(ctx context.Context, raw string) (*session, error) {
	id, err := types.ParseSessionID(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", types.ErrSessionNotFound, raw)
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok && s.idle(sess) {
		delete(s.sessions, id)
		ok = false
		s.log.InfoContext(ctx, "session expired", "session", id)
	}
	s.mu.Unlock()

	if !ok || sess.owner != ownerOf(ctx) {
		return nil, fmt.Errorf("%w: %s", types.ErrSessionNotFound, id)
	}

	sess.mu.Lock()
	return sess, nil
}

func (s *BuilderAPIService) release(sess *session) {
	s.mu.Lock()
	sess.lastUsed = s.now()
	s.mu.Unlock()
	sess.mu.Unlock()
}

// close drops the session. Closing twice reports not found.
func (s *BuilderAPIService) close(ctx context.Context, raw string) error {
	sess, err := s.acquire(ctx, raw)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	return nil
}

// idle reports whether sess passed the idle timeout. Caller holds s.mu.
func (s *BuilderAPIService) idle(sess *session) bool {
	return s.now().Sub(sess.lastUsed) > s.cfg.SessionIdleTimeout
}

// Sweep drops every idle session and returns how many it dropped.
func (s *BuilderAPIService) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expireLocked(ctx)
}

func (s *BuilderAPIService) expireLocked(ctx context.Context) int {
	n := 0
	for id, sess := range s.sessions {
		if s.idle(sess) {
			delete(s.sessions, id)
			s.log.InfoContext(ctx, "session expired", "session", id)
			n++
		}
	}
	return n
}

// SessionCount returns the number of open sessions.
func (s *BuilderAPIService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run sweeps idle sessions until ctx is done.
func (s *BuilderAPIService) Run(ctx context.Context) {
	interval := s.cfg.SessionIdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx); n > 0 {
				s.log.DebugContext(ctx, "swept idle sessions", "count", n)
			}
		}
	}
}

func ownerOf(ctx context.Context) string {
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		return p.KeyID
	}
	return ""
}

func dateLayouts(cfg *config.BuilderAPIConfig) []string {
	if cfg.DateFormat == "" {
		return nil
	}
	return []string{cfg.DateFormat}
}
