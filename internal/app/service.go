package app

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/jaminalder/codex-xo/internal/domain"
    "github.com/jaminalder/codex-xo/internal/history"
    "go.uber.org/zap"
)

// Config tunes sessions created by a Service.
type Config struct {
    HistorySlot    string
    Defaults       Settings
    AIDelay        time.Duration
    ReplayInterval time.Duration
    Scheduler      Scheduler
    // Rand seeds each session's planner; nil uses crypto randomness.
    Rand   domain.Rand
    Logger *zap.Logger
    Now    func() time.Time
}

type subscriber struct {
    ch        chan State
    closeOnce sync.Once
    // last is the highest Seq offered; guarded by Service.mu.
    last uint64
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// offer delivers st, replacing an unread older state if the buffer is full.
// States older than one already offered are dropped.
func (s *subscriber) offer(st State) {
    if st.Seq < s.last {
        return
    }
    s.last = st.Seq
    select {
    case s.ch <- st:
        return
    default:
    }
    select {
    case <-s.ch:
    default:
    }
    select {
    case s.ch <- st:
    default:
    }
}

// Service manages sessions and subscribers.
type Service struct {
    mu       sync.Mutex
    blobs    history.BlobStore
    cfg      Config
    log      *zap.Logger
    sessions map[string]*Session
    subs     map[string]map[*subscriber]struct{}
    closed   bool
}

// NewService creates a service persisting histories in blobs.
func NewService(blobs history.BlobStore, cfg Config) *Service {
    if cfg.HistorySlot == "" {
        cfg.HistorySlot = "gameHistory"
    }
    if cfg.Defaults == (Settings{}) {
        cfg.Defaults = DefaultSettings()
    }
    if cfg.Logger == nil {
        cfg.Logger = zap.NewNop()
    }
    return &Service{
        blobs:    blobs,
        cfg:      cfg,
        log:      cfg.Logger,
        sessions: make(map[string]*Session),
        subs:     make(map[string]map[*subscriber]struct{}),
    }
}

// NewID returns a fresh session identifier.
func (s *Service) NewID() string { return uuid.NewString() }

// SlotFor is the blob key holding a session's history.
func (s *Service) SlotFor(id string) string { return s.cfg.HistorySlot + "/" + id }

// Open returns the session for id, loading its history on first use.
func (s *Service) Open(ctx context.Context, id string) (*Session, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if sess, ok := s.sessions[id]; ok {
        return sess, nil
    }
    store := history.NewStore(s.blobs, s.SlotFor(id))
    if err := store.Load(ctx); err != nil {
        if !errors.Is(err, history.ErrParse) {
            return nil, err
        }
        s.log.Warn("discarding unreadable history", zap.String("slot", store.Key()), zap.Error(err))
    }
    sess, err := NewSession(id, store, SessionOptions{
        Settings:       s.cfg.Defaults,
        AIDelay:        s.cfg.AIDelay,
        ReplayInterval: s.cfg.ReplayInterval,
        Scheduler:      s.cfg.Scheduler,
        Planner:        domain.NewPlanner(s.cfg.Rand),
        Logger:         s.log,
        Now:            s.cfg.Now,
        OnChange:       func(st State) { s.broadcast(id, st) },
    })
    if err != nil {
        return nil, err
    }
    s.sessions[id] = sess
    s.log.Info("session opened", zap.String("session", id), zap.Int("history", store.Len()))
    return sess, nil
}

// Get returns an already opened session.
func (s *Service) Get(id string) (*Session, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    sess, ok := s.sessions[id]
    return sess, ok
}

// Subscribe registers a subscriber for a session. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan State, func()) {
    s.mu.Lock()
    defer s.mu.Unlock()
    sub := &subscriber{ch: make(chan State, 1)}
    if s.closed {
        sub.close()
        return sub.ch, func() {}
    }
    set := s.subs[id]
    if set == nil {
        set = make(map[*subscriber]struct{})
        s.subs[id] = set
    }
    set[sub] = struct{}{}

    unsubOnce := &sync.Once{}
    unsub := func() {
        unsubOnce.Do(func() {
            s.mu.Lock()
            if set, ok := s.subs[id]; ok {
                delete(set, sub)
                if len(set) == 0 {
                    delete(s.subs, id)
                }
            }
            s.mu.Unlock()
            sub.close()
        })
    }
    go func() {
        <-ctx.Done()
        unsub()
    }()
    return sub.ch, unsub
}

// broadcast runs under the lock so unsubscribe never closes a channel mid-send.
func (s *Service) broadcast(id string, st State) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for sub := range s.subs[id] {
        sub.offer(st)
    }
}

// Close stops every session timer and closes subscriber channels.
func (s *Service) Close() {
    s.mu.Lock()
    sessions := make([]*Session, 0, len(s.sessions))
    for _, sess := range s.sessions {
        sessions = append(sessions, sess)
    }
    var subs []*subscriber
    for _, set := range s.subs {
        for sub := range set {
            subs = append(subs, sub)
        }
    }
    s.subs = make(map[string]map[*subscriber]struct{})
    s.closed = true
    s.mu.Unlock()

    for _, sess := range sessions {
        sess.Close()
    }
    for _, sub := range subs {
        sub.close()
    }
}
