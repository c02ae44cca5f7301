package web

import (
    "context"
    "encoding/json"
    "net/http"
    "time"

    "github.com/gorilla/websocket"
    "github.com/jaminalder/codex-xo/internal/app"
    "go.uber.org/zap"
)

const wsIdlePingInterval = 30 * time.Second

type wsMessage struct {
    Type  string    `json:"type"`
    State *stateDTO `json:"state,omitempty"`
    Error string    `json:"error,omitempty"`
}

type wsRequest struct {
    Type string `json:"type"`
    Row  int    `json:"row"`
    Col  int    `json:"col"`
}

func stateMessage(st app.State) wsMessage {
    dto := newStateDTO(st)
    return wsMessage{Type: "state", State: &dto}
}

// ws pushes state changes as JSON and accepts play, reset and
// request_state commands.
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
    pid := h.ensurePlayerCookie(w, r)
    sess, err := h.svc.Open(r.Context(), pid)
    if err != nil {
        h.log.Error("open session", zap.String("player", pid), zap.Error(err))
        http.Error(w, "failed to load session", http.StatusInternalServerError)
        return
    }
    conn, err := h.upgrader.Upgrade(w, r, w.Header())
    if err != nil {
        return
    }
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    states, unsub := h.svc.Subscribe(ctx, pid)
    defer unsub()

    replies := make(chan wsMessage, 16)
    replies <- stateMessage(sess.State())
    done := make(chan struct{})
    go func() {
        defer close(done)
        defer conn.Close()
        if err := writeWSWithHeartbeat(conn, states, replies); err != nil {
            h.log.Debug("websocket write", zap.String("player", pid), zap.Error(err))
        }
    }()

    reply := func(m wsMessage) {
        select {
        case replies <- m:
        case <-done:
        }
    }
    for {
        _, message, err := conn.ReadMessage()
        if err != nil {
            break
        }
        var req wsRequest
        if err := json.Unmarshal(message, &req); err != nil {
            reply(wsMessage{Type: "error", Error: "malformed command"})
            continue
        }
        var opErr error
        switch req.Type {
        case "play":
            opErr = sess.Play(ctx, req.Row, req.Col)
        case "reset":
            sess.Reset()
        case "request_state":
            reply(stateMessage(sess.State()))
        default:
            reply(wsMessage{Type: "error", Error: "unknown command " + req.Type})
        }
        if msg := h.userMessage(opErr); msg != "" {
            reply(wsMessage{Type: "error", Error: msg})
        }
    }
    cancel()
    unsub()
    <-done
}

// writeWSWithHeartbeat is the single writer for conn. It sends a ping
// message when nothing else went out for wsIdlePingInterval.
func writeWSWithHeartbeat(conn *websocket.Conn, states <-chan app.State, replies <-chan wsMessage) error {
    ticker := time.NewTicker(wsIdlePingInterval)
    defer ticker.Stop()
    lastWrite := time.Now()

    for {
        var msg wsMessage
        select {
        case st, ok := <-states:
            if !ok {
                return nil
            }
            msg = stateMessage(st)
        case msg = <-replies:
        case <-ticker.C:
            if time.Since(lastWrite) < wsIdlePingInterval {
                continue
            }
            msg = wsMessage{Type: "ping"}
        }
        if err := conn.WriteJSON(msg); err != nil {
            return err
        }
        lastWrite = time.Now()
    }
}
