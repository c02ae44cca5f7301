package web

import (
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/jaminalder/codex-xo/internal/app"
    "go.uber.org/zap"
)

// NewServer wires routes and returns an http.Handler.
func NewServer(s *app.Service, logger *zap.Logger) http.Handler {
    if logger == nil {
        logger = zap.NewNop()
    }
    r := chi.NewRouter()
    r.Use(middleware.RequestID)
    r.Use(middleware.RealIP)
    r.Use(requestLogger(logger))
    r.Use(middleware.Recoverer)

    h := &handlers{svc: s, tpl: loadTemplates(), log: logger}
    r.Get("/", h.index)
    r.Get("/state", h.state)
    r.Post("/play", h.play)
    r.Post("/reset", h.reset)
    r.Post("/settings", h.settings)
    r.Route("/replay", func(r chi.Router) {
        r.Post("/start", h.replayStart)
        r.Post("/stop", h.replayStop)
    })
    r.Route("/history", func(r chi.Router) {
        r.Get("/export", h.exportHistory)
        r.Post("/import", h.importHistory)
        r.Post("/clear", h.clearHistory)
    })
    r.Get("/events", h.events)
    r.Get("/ws", h.ws)
    return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
            start := time.Now()
            defer func() {
                log.Info("request",
                    zap.String("method", r.Method),
                    zap.String("path", r.URL.Path),
                    zap.Int("status", ww.Status()),
                    zap.Int("bytes", ww.BytesWritten()),
                    zap.Duration("duration", time.Since(start)),
                    zap.String("request_id", middleware.GetReqID(r.Context())),
                )
            }()
            next.ServeHTTP(ww, r)
        })
    }
}
