package app

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/jaminalder/codex-xo/internal/blobstore"
    "github.com/jaminalder/codex-xo/internal/domain"
    "github.com/jaminalder/codex-xo/internal/history"
    "go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T, blobs history.BlobStore) *Service {
    t.Helper()
    s := NewService(blobs, Config{
        Scheduler: &manualScheduler{},
        Logger:    zaptest.NewLogger(t),
    })
    t.Cleanup(s.Close)
    return s
}

func TestOpenAndGet(t *testing.T) {
    s := newTestService(t, blobstore.NewMemory())
    id := s.NewID()
    if id == "" {
        t.Fatalf("expected non-empty session ID")
    }
    sess, err := s.Open(context.Background(), id)
    if err != nil {
        t.Fatalf("Open error: %v", err)
    }
    st := sess.State()
    if st.Turn != domain.X || st.Board.Size() != 3 || st.Settings != DefaultSettings() {
        t.Fatalf("unexpected fresh state: %+v", st)
    }
    again, _ := s.Open(context.Background(), id)
    if again != sess {
        t.Fatalf("Open should return the existing session")
    }
    got, ok := s.Get(id)
    if !ok || got != sess {
        t.Fatalf("Get should find opened session")
    }
    if _, ok := s.Get("missing"); ok {
        t.Fatalf("Get should not create sessions")
    }
}

func TestOpenLoadsPersistedHistory(t *testing.T) {
    mem := blobstore.NewMemory()
    s := newTestService(t, mem)
    sess, _ := s.Open(context.Background(), "p1")
    if err := sess.Play(context.Background(), 1, 1); err != nil {
        t.Fatalf("play: %v", err)
    }
    if _, ok, _ := mem.Get(context.Background(), s.SlotFor("p1")); !ok {
        t.Fatalf("expected history persisted under %s", s.SlotFor("p1"))
    }

    restarted := newTestService(t, mem)
    sess, err := restarted.Open(context.Background(), "p1")
    if err != nil {
        t.Fatalf("Open error: %v", err)
    }
    st := sess.State()
    if st.HistoryLen != 1 || !st.Board.IsEmpty() {
        t.Fatalf("expected loaded history on a fresh board, got len=%d", st.HistoryLen)
    }
    other, _ := restarted.Open(context.Background(), "p2")
    if other.State().HistoryLen != 0 {
        t.Fatalf("sessions must not share history")
    }
}

func TestOpenDiscardsCorruptHistory(t *testing.T) {
    mem := blobstore.NewMemory()
    s := newTestService(t, mem)
    _ = mem.Put(context.Background(), s.SlotFor("p1"), []byte(`[{"board":7}]`))
    sess, err := s.Open(context.Background(), "p1")
    if err != nil {
        t.Fatalf("corrupt history should not fail Open: %v", err)
    }
    if sess.State().HistoryLen != 0 {
        t.Fatalf("expected empty history")
    }
}

type brokenBlobs struct{ *blobstore.Memory }

func (brokenBlobs) Get(ctx context.Context, key string) ([]byte, bool, error) {
    return nil, false, errors.New("connection refused")
}

func TestOpenFailsOnStorageError(t *testing.T) {
    s := newTestService(t, brokenBlobs{blobstore.NewMemory()})
    if _, err := s.Open(context.Background(), "p1"); err == nil {
        t.Fatalf("expected storage error")
    }
    if _, ok := s.Get("p1"); ok {
        t.Fatalf("failed Open must not register the session")
    }
}

func TestSubscribeAndBroadcast(t *testing.T) {
    s := newTestService(t, blobstore.NewMemory())
    sess, _ := s.Open(context.Background(), "p1")

    ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
    defer cancel()
    ch, unsub := s.Subscribe(ctx, "p1")
    defer unsub()
    other, unsubOther := s.Subscribe(ctx, "p2")
    defer unsubOther()

    if err := sess.Play(context.Background(), 0, 0); err != nil {
        t.Fatalf("play failed: %v", err)
    }

    select {
    case st, ok := <-ch:
        if !ok {
            t.Fatalf("channel closed unexpectedly")
        }
        if st.Board.At(0, 0) != domain.X || st.Turn != domain.O {
            t.Fatalf("unexpected broadcast state: %+v", st)
        }
    case <-ctx.Done():
        t.Fatalf("timed out waiting for broadcast")
    }
    select {
    case st := <-other:
        t.Fatalf("other session's subscriber got %+v", st)
    default:
    }
}

func TestSlowSubscriberGetsLatest(t *testing.T) {
    s := newTestService(t, blobstore.NewMemory())
    sess, _ := s.Open(context.Background(), "p1")
    ch, unsub := s.Subscribe(context.Background(), "p1")
    defer unsub()

    // Never read between updates; only the newest state is kept.
    _ = sess.Play(context.Background(), 0, 0)
    _ = sess.Play(context.Background(), 1, 1)
    _ = sess.Play(context.Background(), 2, 2)

    st := <-ch
    if st.HistoryLen != 3 {
        t.Fatalf("expected latest state, got history=%d", st.HistoryLen)
    }
    select {
    case <-ch:
        t.Fatalf("expected a single buffered state")
    default:
    }
}

func TestBroadcastDropsOlderStates(t *testing.T) {
    s := newTestService(t, blobstore.NewMemory())
    ch, unsub := s.Subscribe(context.Background(), "p1")
    defer unsub()

    // Two notifications racing after unlock may arrive reversed.
    s.broadcast("p1", State{Seq: 2, HistoryLen: 2})
    s.broadcast("p1", State{Seq: 1, HistoryLen: 1})

    st := <-ch
    if st.Seq != 2 || st.HistoryLen != 2 {
        t.Fatalf("expected newest state, got seq=%d", st.Seq)
    }
    select {
    case st := <-ch:
        t.Fatalf("older state delivered: seq=%d", st.Seq)
    default:
    }
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
    s := newTestService(t, blobstore.NewMemory())
    ctx, cancel := context.WithCancel(context.Background())
    ch, _ := s.Subscribe(ctx, "p1")
    cancel()
    select {
    case _, ok := <-ch:
        if ok {
            t.Fatalf("expected closed channel")
        }
    case <-time.After(time.Second * 2):
        t.Fatalf("channel not closed after cancel")
    }
}

func TestCloseClosesSubscribers(t *testing.T) {
    s := NewService(blobstore.NewMemory(), Config{Scheduler: &manualScheduler{}})
    ch, _ := s.Subscribe(context.Background(), "p1")
    s.Close()
    if _, ok := <-ch; ok {
        t.Fatalf("expected closed channel after Close")
    }
    late, _ := s.Subscribe(context.Background(), "p1")
    if _, ok := <-late; ok {
        t.Fatalf("subscribing after Close should yield a closed channel")
    }
}
