package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/bc-solo/internal/game"
	"example.com/bc-solo/internal/metrics"
)

var ErrNotFound = errors.New("session not found")

// tombstoneTTL bounds how long a deleted id is refused by loads that were
// already reading storage when Delete ran.
const tombstoneTTL = 10 * time.Minute

// Persistence: абстракция "положить/достать snapshot" текущей игры сессии.
type Persistence interface {
	Save(ctx context.Context, id string, snap game.Snapshot) error
	Load(ctx context.Context, id string) (game.Snapshot, bool, error)
	Delete(ctx context.Context, id string) error
}

// Service отвечает за:
// - in-memory кэш живых сессий
// - восстановление сессий из persistent storage
type Service struct {
	mu      sync.Mutex
	live    map[string]*Session
	deleted map[string]time.Time // ids ended by Delete, kept for tombstoneTTL

	engine  *game.Engine
	persist Persistence
	log     *slog.Logger

	saveTimeout time.Duration
}

func NewService(engine *game.Engine, persist Persistence, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		live:        make(map[string]*Session),
		deleted:     make(map[string]time.Time),
		engine:      engine,
		persist:     persist,
		log:         log,
		saveTimeout: 5 * time.Second,
	}
}

func (s *Service) Create(ctx context.Context) (*Session, error) {
	sess := New(uuid.NewString(), s.engine)

	if err := s.persist.Save(ctx, sess.id, sess.State().Snapshot()); err != nil {
		return nil, fmt.Errorf("save new session: %w", err)
	}
	s.hook(sess)

	s.mu.Lock()
	s.live[sess.id] = sess
	s.mu.Unlock()

	metrics.GamesStarted.Inc()
	s.log.Info("session created", "session", sess.id)
	return sess, nil
}

func (s *Service) GetOrLoad(ctx context.Context, id string) (*Session, bool, error) {
	return s.load(ctx, id, false)
}

// Acquire is GetOrLoad that also pins the session in the cache: Sweep
// leaves it alone until release is called.
func (s *Service) Acquire(ctx context.Context, id string) (sess *Session, release func(), ok bool, err error) {
	sess, ok, err = s.load(ctx, id, true)
	if err != nil || !ok {
		return nil, func() {}, ok, err
	}
	var once sync.Once
	return sess, func() { once.Do(sess.unpin) }, true, nil
}

func (s *Service) load(ctx context.Context, id string, pin bool) (*Session, bool, error) {
	if sess := s.cached(id, pin); sess != nil {
		return sess, true, nil
	}

	snap, found, err := s.persist.Load(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("load session %s: %w", id, err)
	}
	if !found {
		return nil, false, nil
	}

	fresh := false
	st, err := game.Restore(snap)
	if err != nil {
		// битый snapshot: начинать заново лучше, чем падать
		s.log.Warn("discarding invalid snapshot", "session", id, "err", err)
		st = s.engine.Initialize()
		fresh = true
	}

	sess := Restored(id, s.engine, st)
	s.hook(sess)

	s.mu.Lock()
	if _, gone := s.deleted[id]; gone {
		// Delete ran while we were reading storage
		s.mu.Unlock()
		return nil, false, nil
	}
	// кто-то мог загрузить параллельно
	if existing, ok := s.live[id]; ok {
		sess = existing
		fresh = false
	} else {
		s.live[id] = sess
	}
	sess.touch(pin)
	s.mu.Unlock()

	if fresh {
		sess.persist()
	}
	return sess, true, nil
}

// cached returns the live session for id and marks it as just used.
func (s *Service) cached(id string, pin bool) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live[id]
	if !ok {
		return nil
	}
	sess.touch(pin)
	return sess
}

// Get is GetOrLoad that reports a missing session as ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	sess, ok, err := s.GetOrLoad(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete ends a session and removes its stored game.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.live[id]
	delete(s.live, id)
	s.deleted[id] = time.Now()
	s.mu.Unlock()

	if ok {
		sess.mu.Lock()
		sess.onPersist = nil
		if sess.conn != nil {
			sess.conn.Close()
			sess.conn = nil
		}
		sess.mu.Unlock()
	}

	if err := s.persist.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Sweep drops sessions that have no client, are not pinned by Acquire and
// have been idle longer than maxIdle from the in-memory cache. Their games
// stay in persistence. It also forgets old Delete tombstones.
func (s *Service) Sweep(maxIdle time.Duration) int {
	now := time.Now()
	cutoff := now.Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.live {
		seen, busy := sess.idleSince()
		if busy || seen.After(cutoff) {
			continue
		}
		delete(s.live, id)
		n++
	}
	for id, at := range s.deleted {
		if now.Sub(at) > tombstoneTTL {
			delete(s.deleted, id)
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := s.Sweep(maxIdle); n > 0 {
				s.log.Debug("evicted idle sessions", "count", n)
			}
		}
	}
}

func (s *Service) liveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// hook: любое изменение сессии сохраняет snapshot
func (s *Service) hook(sess *Session) {
	id := sess.id
	sess.mu.Lock()
	sess.onPersist = func(snap game.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
		defer cancel()
		if err := s.persist.Save(ctx, id, snap); err != nil {
			s.log.Error("persist session", "session", id, "err", err)
		}
	}
	sess.mu.Unlock()
}
