package web

import (
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strconv"
    "strings"

    "github.com/gorilla/websocket"
    "github.com/jaminalder/codex-xo/internal/app"
    "github.com/jaminalder/codex-xo/internal/domain"
    "github.com/jaminalder/codex-xo/internal/history"
    "go.uber.org/zap"
)

const (
    exportFilename = "gameHistory.json"
    maxImportBytes = 1 << 20
)

type handlers struct {
    svc      *app.Service
    tpl      *templates
    log      *zap.Logger
    upgrader websocket.Upgrader
}

// session resolves the caller's session from the player cookie.
func (h *handlers) session(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
    pid := h.ensurePlayerCookie(w, r)
    sess, err := h.svc.Open(r.Context(), pid)
    if err != nil {
        h.log.Error("open session", zap.String("player", pid), zap.Error(err))
        http.Error(w, "failed to load session", http.StatusInternalServerError)
        return nil, false
    }
    return sess, true
}

func (h *handlers) renderBoard(st app.State, errMsg string) []byte {
    return renderTemplate(h.tpl.board, "", newBoardView(st, errMsg))
}

func (h *handlers) writeBoard(w http.ResponseWriter, sess *app.Session, err error) {
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    _, _ = w.Write(h.renderBoard(sess.State(), h.userMessage(err)))
}

// userMessage maps an operation error to what the player sees. Illegal
// moves are dropped without a message.
func (h *handlers) userMessage(err error) string {
    switch {
    case err == nil:
        return ""
    case errors.Is(err, app.ErrIllegalMove),
        errors.Is(err, domain.ErrOutOfBounds),
        errors.Is(err, domain.ErrOccupied):
        return ""
    case errors.Is(err, history.ErrParse):
        return "Could not load history file: " + err.Error()
    case errors.Is(err, app.ErrEmptyHistory):
        return "No history to replay"
    case errors.Is(err, domain.ErrInvalidSize):
        return fmt.Sprintf("Board size must be between %d and %d", domain.MinSize, domain.MaxSize)
    case errors.Is(err, app.ErrReplaying):
        return "Stop the replay before changing settings"
    case errors.Is(err, app.ErrModeLocked):
        return "Game mode can only change before the first move"
    case errors.Is(err, domain.ErrUnknownMode), errors.Is(err, domain.ErrUnknownDifficulty):
        return err.Error()
    }
    h.log.Error("operation failed", zap.Error(err))
    return "Something went wrong, please try again"
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
    sess, ok := h.session(w, r)
    if !ok {
        return
    }
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(renderTemplate(h.tpl.page, "page", newBoardView(sess.State(), "")))
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
    sess, ok := h.session(w, r)
    if !ok {
        return
    }
    writeJSON(w, http.StatusOK, newStateDTO(sess.State()))
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
    sess, ok := h.session(w, r)
    if !ok {
        return
    }
    _ = r.ParseForm()
    ri, errR := strconv.Atoi(r.Form.Get("r"))
    ci, errC := strconv.Atoi(r.Form.Get("c"))
    var err error
    if errR == nil && errC == nil {
        err = sess.Play(r.Context(), ri, ci)
    }
    h.writeBoard(w, sess, err)
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
    sess, ok := h.session(w, r)
    if !ok {
        return
    }
    sess.Reset()
    h.writeBoard(w, sess, nil)
}

// settings applies only the fields that differ from the current settings,
// so a form carrying every selector does not trip the mode lock.
func (h *handlers) settings(w http.ResponseWriter, r *http.Request) {
    sess, ok := h.session(w, r)
    if !ok {
        return
    }
    _ = r.ParseForm()
    cur := sess.State().Settings
    err := func() error {
        if v := r.Form.Get("size"); v != "" {
            n, err := strconv.Atoi(v)
            if err != nil {
                return fmt.Errorf("%w: %q", domain.ErrInvalidSize, v)
            }
            if n != cur.Size {
                if err := sess.SetSize(n); err != nil {
                    return err
                }
            }
        }
        if v := r.Form.Get("mode"); v != "" && v != string(cur.Mode) {
            if err := sess.SetMode(domain.Mode(v)); err != nil {
                return err
            }
        }
        if v := r.Form.Get("difficulty"); v != "" && v != string(cur.Difficulty) {
            if err := sess.SetDifficulty(domain.Difficulty(v)); err != nil {
                return err
            }
        }
        return nil
    }()
    h.writeBoard(w, sess, err)
}

func (h *handlers) replayStart(w http.ResponseWriter, r *http.Request) {
    sess, ok := h.session(w, r)
    if !ok {
        return
    }
    h.writeBoard(w, sess, sess.StartReplay())
}

func (h *handlers) replayStop(w http.ResponseWriter, r *http.Request) {
    sess, ok := h.session(w, r)
    if !ok {
        return
    }
    sess.StopReplay()
    h.writeBoard(w, sess, nil)
}

func (h *handlers) exportHistory(w http.ResponseWriter, r *http.Request) {
    sess, ok := h.session(w, r)
    if !ok {
        return
    }
    blob, err := sess.ExportHistory()
    if err != nil {
        h.log.Error("export history", zap.Error(err))
        http.Error(w, "failed to export history", http.StatusInternalServerError)
        return
    }
    w.Header().Set("Content-Type", "application/json")
    w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
    _, _ = w.Write(blob)
}

// importHistory accepts the blob either as the "file" field of a multipart
// form or as the raw request body.
func (h *handlers) importHistory(w http.ResponseWriter, r *http.Request) {
    sess, ok := h.session(w, r)
    if !ok {
        return
    }
    r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
    var src io.Reader = r.Body
    if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
        f, _, err := r.FormFile("file")
        if err != nil {
            h.writeBoard(w, sess, fmt.Errorf("%w: %v", history.ErrParse, err))
            return
        }
        defer f.Close()
        src = f
    }
    blob, err := io.ReadAll(src)
    if err != nil {
        h.writeBoard(w, sess, fmt.Errorf("%w: %v", history.ErrParse, err))
        return
    }
    h.writeBoard(w, sess, sess.ImportHistory(r.Context(), blob))
}

func (h *handlers) clearHistory(w http.ResponseWriter, r *http.Request) {
    sess, ok := h.session(w, r)
    if !ok {
        return
    }
    h.writeBoard(w, sess, sess.ClearHistory(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(data)
}
