package app

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/jaminalder/codex-xo/internal/domain"
    "github.com/jaminalder/codex-xo/internal/history"
    "go.uber.org/zap"
)

// Errors exposed by sessions.
var (
    ErrIllegalMove  = errors.New("illegal move")
    ErrEmptyHistory = errors.New("no history to replay")
    ErrReplaying    = errors.New("replay in progress")
    ErrModeLocked   = errors.New("mode can only change before the first move")
)

const (
    DefaultAIDelay        = 500 * time.Millisecond
    DefaultReplayInterval = time.Second
)

// Settings are the player-chosen game parameters.
type Settings struct {
    Size       int
    Mode       domain.Mode
    Difficulty domain.Difficulty
}

// DefaultSettings matches a fresh page load.
func DefaultSettings() Settings {
    return Settings{Size: 3, Mode: domain.HumanVsHuman, Difficulty: domain.Medium}
}

// SessionOptions configures a Session. Zero values fall back to defaults.
type SessionOptions struct {
    Settings       Settings
    AIDelay        time.Duration
    ReplayInterval time.Duration
    Scheduler      Scheduler
    Planner        *domain.Planner
    Logger         *zap.Logger
    Now            func() time.Time
    // OnChange receives a copy of the state after every transition,
    // including ones driven by timers.
    OnChange func(State)
}

// State is a point-in-time copy of a session.
type State struct {
    ID          string
    Board       domain.Board
    Turn        domain.Cell
    Status      domain.Status
    Settings    Settings
    Replaying   bool
    ReplayIndex int
    ReplayTotal int
    HistoryLen  int
    AIThinking  bool
    // AIFailed is set while a deferred AI move could not be saved and is
    // being retried.
    AIFailed bool
    Updated  time.Time
    // Seq increases with every published state of a session.
    Seq uint64
}

// CurrentController is the controller of the side to move.
func (st State) CurrentController() domain.Controller {
    return st.Settings.Mode.ControllerFor(st.Turn)
}

type replayState struct {
    active  bool
    next    int
    shown   int
    entries []history.Snapshot
}

// Session owns one player's board, turn, history and replay. All transitions
// run under one mutex; deferred AI moves and replay ticks carry the
// generation they were scheduled at and do nothing if the board moved on.
type Session struct {
    mu       sync.Mutex
    id       string
    opts     SessionOptions
    log      *zap.Logger
    store    *history.Store
    settings Settings

    board  domain.Board
    turn   domain.Cell
    status domain.Status
    replay replayState

    gen       uint64
    seq       uint64
    pending   Timer
    aiPending bool
    aiFailed  bool
    updated   time.Time
}

// NewSession starts a session on an empty board.
func NewSession(id string, store *history.Store, opts SessionOptions) (*Session, error) {
    if opts.Settings == (Settings{}) {
        opts.Settings = DefaultSettings()
    }
    if _, err := domain.NewBoard(opts.Settings.Size); err != nil {
        return nil, err
    }
    if _, err := domain.ParseMode(string(opts.Settings.Mode)); err != nil {
        return nil, err
    }
    if _, err := domain.ParseDifficulty(string(opts.Settings.Difficulty)); err != nil {
        return nil, err
    }
    if opts.AIDelay <= 0 {
        opts.AIDelay = DefaultAIDelay
    }
    if opts.ReplayInterval <= 0 {
        opts.ReplayInterval = DefaultReplayInterval
    }
    if opts.Scheduler == nil {
        opts.Scheduler = WallClock
    }
    if opts.Planner == nil {
        opts.Planner = domain.NewPlanner(nil)
    }
    if opts.Logger == nil {
        opts.Logger = zap.NewNop()
    }
    if opts.Now == nil {
        opts.Now = time.Now
    }
    s := &Session{
        id:       id,
        opts:     opts,
        log:      opts.Logger.With(zap.String("session", id)),
        store:    store,
        settings: opts.Settings,
    }
    s.mu.Lock()
    s.resetLocked()
    s.scheduleAILocked()
    s.mu.Unlock()
    return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns a copy of the current state.
func (s *Session) State() State {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.stateLocked()
}

func (s *Session) stateLocked() State {
    st := State{
        ID:         s.id,
        Board:      s.board,
        Turn:       s.turn,
        Status:     s.status,
        Settings:   s.settings,
        Replaying:  s.replay.active,
        HistoryLen: s.store.Len(),
        AIThinking: s.aiPending,
        AIFailed:   s.aiFailed,
        Updated:    s.updated,
        Seq:        s.seq,
    }
    if s.replay.active {
        st.ReplayIndex = s.replay.shown
        st.ReplayTotal = len(s.replay.entries)
    }
    return st
}

// unlockAndNotify releases the lock and publishes the new state. The
// sequence number is taken under the lock so receivers can discard states
// that arrive out of order.
func (s *Session) unlockAndNotify() {
    s.seq++
    st := s.stateLocked()
    s.mu.Unlock()
    if s.opts.OnChange != nil {
        s.opts.OnChange(st)
    }
}

// Play applies a human move for the side to move.
func (s *Session) Play(ctx context.Context, r, c int) error {
    s.mu.Lock()
    ctrl := s.settings.Mode.ControllerFor(s.turn)
    if !domain.IsLegal(s.board, r, c, s.status, s.replay.active, ctrl) {
        s.mu.Unlock()
        return ErrIllegalMove
    }
    if err := s.applyLocked(ctx, r, c); err != nil {
        s.mu.Unlock()
        return err
    }
    s.scheduleAILocked()
    s.unlockAndNotify()
    return nil
}

// applyLocked writes the move, records a snapshot and advances the turn.
// The move is only committed once the snapshot is persisted.
func (s *Session) applyLocked(ctx context.Context, r, c int) error {
    next, err := s.board.Apply(r, c, s.turn)
    if err != nil {
        return err
    }
    status := domain.Evaluate(next)
    nextTurn := s.turn.Opponent()
    snap := history.Snapshot{
        Board:      next,
        Winner:     status.Winner,
        NextTurn:   nextTurn,
        Timestamp:  s.opts.Now().UTC().Truncate(time.Millisecond),
        Mode:       s.settings.Mode,
        Size:       next.Size(),
        Difficulty: s.settings.Difficulty,
    }
    if err := s.store.Append(ctx, snap); err != nil {
        return err
    }
    s.log.Debug("move applied",
        zap.Stringer("player", s.turn),
        zap.Int("row", r),
        zap.Int("col", c),
        zap.Stringer("outcome", status.Outcome),
    )
    s.bumpLocked()
    s.board = next
    s.turn = nextTurn
    s.status = status
    return nil
}

// bumpLocked invalidates any pending AI move or replay tick.
func (s *Session) bumpLocked() {
    s.gen++
    if s.pending != nil {
        s.pending.Stop()
        s.pending = nil
    }
    s.aiPending = false
    s.aiFailed = false
    s.updated = s.opts.Now()
}

func (s *Session) resetLocked() {
    b, err := domain.NewBoard(s.settings.Size)
    if err != nil {
        // settings are validated before they are stored
        panic(err)
    }
    s.bumpLocked()
    s.board = b
    s.turn = domain.X
    s.status = domain.Status{}
}

func (s *Session) scheduleAILocked() {
    if s.replay.active || s.status.Over() {
        return
    }
    if s.settings.Mode.ControllerFor(s.turn) != domain.AI {
        return
    }
    gen := s.gen
    s.aiPending = true
    s.pending = s.opts.Scheduler.AfterFunc(s.opts.AIDelay, func() { s.fireAI(gen) })
}

func (s *Session) fireAI(gen uint64) {
    s.mu.Lock()
    if gen != s.gen || s.replay.active {
        s.mu.Unlock()
        return
    }
    s.pending = nil
    s.aiPending = false
    m, ok := s.opts.Planner.SelectMove(s.board, s.turn, s.settings.Difficulty)
    if !ok {
        s.mu.Unlock()
        return
    }
    s.log.Debug("ai selected move",
        zap.Stringer("player", s.turn),
        zap.String("difficulty", string(s.settings.Difficulty)),
        zap.Int("row", m.Row),
        zap.Int("col", m.Col),
    )
    if err := s.applyLocked(context.Background(), m.Row, m.Col); err != nil {
        s.log.Warn("ai move not saved, retrying", zap.Duration("delay", s.opts.AIDelay), zap.Error(err))
        s.aiFailed = true
        s.scheduleAILocked()
        s.unlockAndNotify()
        return
    }
    s.scheduleAILocked()
    s.unlockAndNotify()
}

// Reset clears the board, keeping settings and history.
func (s *Session) Reset() {
    s.mu.Lock()
    s.replay = replayState{}
    s.resetLocked()
    s.scheduleAILocked()
    s.unlockAndNotify()
}

// SetSize changes the board size and resets. Invalid sizes keep the old one.
func (s *Session) SetSize(n int) error {
    s.mu.Lock()
    if s.replay.active {
        s.mu.Unlock()
        return ErrReplaying
    }
    if _, err := domain.NewBoard(n); err != nil {
        s.mu.Unlock()
        return err
    }
    s.settings.Size = n
    s.resetLocked()
    s.scheduleAILocked()
    s.unlockAndNotify()
    return nil
}

// SetMode switches controllers and resets. Only allowed on an empty board.
func (s *Session) SetMode(m domain.Mode) error {
    if _, err := domain.ParseMode(string(m)); err != nil {
        return err
    }
    s.mu.Lock()
    if s.replay.active {
        s.mu.Unlock()
        return ErrReplaying
    }
    if !s.board.IsEmpty() {
        s.mu.Unlock()
        return ErrModeLocked
    }
    s.settings.Mode = m
    s.resetLocked()
    s.scheduleAILocked()
    s.unlockAndNotify()
    return nil
}

// SetDifficulty changes AI strength without resetting the game.
func (s *Session) SetDifficulty(d domain.Difficulty) error {
    if _, err := domain.ParseDifficulty(string(d)); err != nil {
        return err
    }
    s.mu.Lock()
    if s.replay.active {
        s.mu.Unlock()
        return ErrReplaying
    }
    s.settings.Difficulty = d
    s.unlockAndNotify()
    return nil
}

// StartReplay resets the board and plays the stored history back one
// snapshot per interval.
func (s *Session) StartReplay() error {
    s.mu.Lock()
    if s.replay.active {
        s.mu.Unlock()
        return ErrReplaying
    }
    entries := s.store.Entries()
    if len(entries) == 0 {
        s.mu.Unlock()
        return ErrEmptyHistory
    }
    s.resetLocked()
    s.replay = replayState{active: true, entries: entries}
    s.scheduleTickLocked()
    s.log.Info("replay started", zap.Int("entries", len(entries)))
    s.unlockAndNotify()
    return nil
}

func (s *Session) scheduleTickLocked() {
    gen := s.gen
    s.pending = s.opts.Scheduler.AfterFunc(s.opts.ReplayInterval, func() { s.fireTick(gen) })
}

func (s *Session) fireTick(gen uint64) {
    s.mu.Lock()
    if gen != s.gen || !s.replay.active {
        s.mu.Unlock()
        return
    }
    s.pending = nil
    if s.replay.next >= len(s.replay.entries) {
        // Finished: the last position stays on the board and play resumes
        // at its size.
        s.replay = replayState{}
        s.settings.Size = s.board.Size()
        s.log.Info("replay finished")
        s.scheduleAILocked()
        s.unlockAndNotify()
        return
    }
    snap := s.replay.entries[s.replay.next]
    s.bumpLocked()
    s.board = snap.Board
    s.turn = snap.NextTurn
    s.status = domain.Evaluate(snap.Board)
    s.replay.shown = s.replay.next
    s.replay.next++
    s.log.Debug("replay tick", zap.Int("index", s.replay.shown))
    s.scheduleTickLocked()
    s.unlockAndNotify()
}

// StopReplay aborts playback and resets the board. No-op when idle.
func (s *Session) StopReplay() {
    s.mu.Lock()
    if !s.replay.active {
        s.mu.Unlock()
        return
    }
    s.replay = replayState{}
    s.resetLocked()
    s.log.Info("replay stopped")
    s.scheduleAILocked()
    s.unlockAndNotify()
}

// ImportHistory replaces the whole history with blob and resets the board.
// A malformed blob leaves history, board and replay untouched.
func (s *Session) ImportHistory(ctx context.Context, blob []byte) error {
    s.mu.Lock()
    if err := s.store.Import(ctx, blob); err != nil {
        s.mu.Unlock()
        return err
    }
    s.replay = replayState{}
    s.resetLocked()
    s.log.Info("history imported", zap.Int("entries", s.store.Len()))
    s.scheduleAILocked()
    s.unlockAndNotify()
    return nil
}

// ExportHistory serializes the history without touching state.
func (s *Session) ExportHistory() ([]byte, error) {
    return s.store.Export()
}

// ClearHistory drops every snapshot. An active replay is stopped.
func (s *Session) ClearHistory(ctx context.Context) error {
    s.mu.Lock()
    if err := s.store.Clear(ctx); err != nil {
        s.mu.Unlock()
        return err
    }
    if s.replay.active {
        s.replay = replayState{}
        s.resetLocked()
        s.scheduleAILocked()
    }
    s.log.Info("history cleared")
    s.unlockAndNotify()
    return nil
}

// Close cancels any pending timer.
func (s *Session) Close() {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.replay = replayState{}
    s.bumpLocked()
}
