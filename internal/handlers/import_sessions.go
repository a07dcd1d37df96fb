package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"storefront-service/internal/importer"
	"storefront-service/internal/models"
)

const (
	importSessionKeyPrefix = "storefront:import:session:"
	ImportSessionTTL       = 24 * time.Hour

	// Progress is mirrored every N rows and always on the last one
	mirrorEvery = 10

	sessionSweepInterval = 10 * time.Minute
)

// ImportSessions keeps the live import sessions of this replica and mirrors
// their status to Redis so any replica can answer a status poll.
type ImportSessions struct {
	store  importer.CatalogStore
	redis  *redis.Client
	logger *logrus.Entry

	mu       sync.RWMutex
	sessions map[uuid.UUID]*importer.Session

	// Commit loops outlive the request that started them
	baseCtx context.Context
	stop    context.CancelFunc
}

func NewImportSessions(store importer.CatalogStore, redisClient *redis.Client, logger *logrus.Logger) *ImportSessions {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, stop := context.WithCancel(context.Background())
	r := &ImportSessions{
		store:    store,
		redis:    redisClient,
		logger:   logger.WithField("component", "import-sessions"),
		sessions: make(map[uuid.UUID]*importer.Session),
		baseCtx:  ctx,
		stop:     stop,
	}
	go r.sweepLoop(sessionSweepInterval)
	return r
}

func (r *ImportSessions) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.baseCtx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// Sweep forgets sessions untouched for ImportSessionTTL. Sessions that are
// scanning or importing are kept whatever their age. The Redis mirror expires
// on its own after the same TTL.
func (r *ImportSessions) Sweep(now time.Time) int {
	cutoff := now.Add(-ImportSessionTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, session := range r.sessions {
		switch session.State() {
		case models.ImportStateScanning, models.ImportStateImporting:
			continue
		}
		if session.UpdatedAt().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.WithField("removed", removed).Info("Swept idle import sessions")
	}
	return removed
}

// Create registers a new idle session
func (r *ImportSessions) Create() *importer.Session {
	session := importer.NewSession(r.store, r.logger)
	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()
	return session
}

// Get returns a live session
func (r *ImportSessions) Get(id uuid.UUID) (*importer.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

// Remove cancels any running import and forgets the session
func (r *ImportSessions) Remove(ctx context.Context, id uuid.UUID) bool {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	session.Cancel()
	if r.redis != nil {
		if err := r.redis.Del(ctx, importSessionKey(id)).Err(); err != nil {
			r.logger.WithError(err).Warn("Failed to delete mirrored import session")
		}
	}
	return true
}

// Start launches the commit loop in the background. Progress is mirrored while it
// runs and onDone is called with the final counters.
func (r *ImportSessions) Start(session *importer.Session, onDone func(models.ImportResult)) error {
	onProgress := func(p models.ImportProgress) {
		if p.Current%mirrorEvery == 0 || p.Current == p.Total {
			r.Mirror(r.baseCtx, session)
		}
	}
	err := session.Start(r.baseCtx, onProgress, func(result models.ImportResult) {
		r.Mirror(context.Background(), session)
		if onDone != nil {
			onDone(result)
		}
	})
	if err != nil {
		return err
	}
	r.Mirror(r.baseCtx, session)
	return nil
}

// Mirror writes the session status (without candidates) to Redis
func (r *ImportSessions) Mirror(ctx context.Context, session *importer.Session) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(session.Summary(false))
	if err != nil {
		r.logger.WithError(err).Warn("Failed to encode import session")
		return
	}
	if err := r.redis.Set(ctx, importSessionKey(session.ID), data, ImportSessionTTL).Err(); err != nil {
		r.logger.WithError(err).Warn("Failed to mirror import session")
	}
}

// Lookup returns the mirrored status of a session that lives on another replica
func (r *ImportSessions) Lookup(ctx context.Context, id uuid.UUID) (*models.ImportSessionSummary, error) {
	if r.redis == nil {
		return nil, redis.Nil
	}
	data, err := r.redis.Get(ctx, importSessionKey(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var summary models.ImportSessionSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decode import session: %w", err)
	}
	return &summary, nil
}

// Shutdown cancels running imports and waits for their loops to settle
func (r *ImportSessions) Shutdown(ctx context.Context) {
	r.stop()
	r.mu.RLock()
	sessions := make([]*importer.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		if err := s.Wait(ctx); err != nil {
			r.logger.WithError(err).WithField("import_session", s.ID.String()).Warn("Import did not stop before shutdown")
		}
	}
}

func importSessionKey(id uuid.UUID) string {
	return importSessionKeyPrefix + id.String()
}
