package web

import (
    "bytes"
    "fmt"
    "io"
    "net/http"
    "time"
)

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
    pid := h.ensurePlayerCookie(w, r)
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("X-Accel-Buffering", "no")
    // Plain requests only get the headers.
    if r.Header.Get("Accept") != "text/event-stream" {
        w.WriteHeader(http.StatusOK)
        return
    }
    flusher, ok := w.(http.Flusher)
    if !ok {
        w.WriteHeader(http.StatusOK)
        return
    }
    ctx := r.Context()
    sess, err := h.svc.Open(ctx, pid)
    if err != nil {
        http.Error(w, "failed to load session", http.StatusInternalServerError)
        return
    }
    ch, unsub := h.svc.Subscribe(ctx, pid)
    defer unsub()
    ticker := time.NewTicker(heartbeatInterval)
    defer ticker.Stop()

    writeEvent(w, "board", h.renderBoard(sess.State(), ""))
    flusher.Flush()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            _, _ = io.WriteString(w, ": ping\n\n")
            flusher.Flush()
        case st, ok := <-ch:
            if !ok {
                return
            }
            writeEvent(w, "board", h.renderBoard(st, ""))
            flusher.Flush()
        }
    }
}

// writeEvent frames payload as one SSE event, one data line per payload line.
func writeEvent(w io.Writer, event string, payload []byte) {
    _, _ = fmt.Fprintf(w, "event: %s\n", event)
    for _, line := range bytes.Split(bytes.TrimSpace(payload), []byte("\n")) {
        _, _ = fmt.Fprintf(w, "data: %s\n", line)
    }
    _, _ = io.WriteString(w, "\n")
}
