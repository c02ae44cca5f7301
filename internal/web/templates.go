package web

import (
    "bytes"
    "html/template"
    "net/http"

    "github.com/jaminalder/codex-xo/internal/app"
    "github.com/jaminalder/codex-xo/internal/domain"
)

const playerCookie = "player_id"

type templates struct {
    page  *template.Template
    board *template.Template
}

func funcs() template.FuncMap {
    return template.FuncMap{
        "plus1": func(i int) int { return i + 1 },
    }
}

func loadTemplates() *templates {
    board := template.Must(template.New("board").Funcs(funcs()).Parse(boardTemplate))
    page := template.Must(template.Must(board.Clone()).New("page").Parse(pageTemplate))
    return &templates{page: page, board: board}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
    var buf bytes.Buffer
    if name == "" {
        _ = t.Execute(&buf, data)
    } else {
        _ = t.ExecuteTemplate(&buf, name, data)
    }
    return buf.Bytes()
}

const pageTemplate = `<!doctype html><html><head>
<meta charset="utf-8"/>
<title>XO</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
</head><body>
<h1>XO</h1>
<div hx-ext="sse" hx-sse="connect:/events">
  <div id="board-stream" hx-sse="swap:board" hx-swap="innerHTML">{{template "board" .}}</div>
</div>
<div class="history">
  <a href="/history/export">Export history</a>
  <form hx-post="/history/import" hx-target="#board" hx-swap="outerHTML" hx-encoding="multipart/form-data">
    <input type="file" name="file" accept="application/json">
    <button type="submit">Import</button>
  </form>
  <form hx-post="/history/clear" hx-target="#board" hx-swap="outerHTML"><button>Clear history</button></form>
</div>
</body></html>`

const boardTemplate = `
<div id="board" data-size="{{.Size}}">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="status">{{.StatusText}}{{if .AIThinking}} <span class="thinking">AI is thinking...</span>{{end}}{{if .AIFailed}} <span class="alert">AI move could not be saved, retrying</span>{{end}}</div>
  <form class="settings" hx-post="/settings" hx-target="#board" hx-swap="outerHTML" hx-trigger="change">
    <label>Size <input type="number" name="size" min="{{.MinSize}}" max="{{.MaxSize}}" value="{{.Size}}"{{if .Replaying}} disabled{{end}}></label>
    <select name="mode"{{if or .Replaying (not .ModeOpen)}} disabled{{end}}>
      {{range .Modes}}<option value="{{.}}"{{if eq . $.Mode}} selected{{end}}>{{.}}</option>{{end}}
    </select>
    <select name="difficulty"{{if .Replaying}} disabled{{end}}>
      {{range .Difficulties}}<option value="{{.}}"{{if eq . $.Difficulty}} selected{{end}}>{{.}}</option>{{end}}
    </select>
  </form>
  {{range .Rows}}
  <div class="row">
    {{range .}}
      <form hx-post="/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="r" value="{{.Row}}">
        <input type="hidden" name="c" value="{{.Col}}">
        <button type="submit"{{if not .Playable}} disabled{{end}}>{{.Symbol}}</button>
      </form>
    {{end}}
  </div>
  {{end}}
  <div class="controls">
    <form hx-post="/reset" hx-target="#board" hx-swap="outerHTML"><button>New game</button></form>
    {{if .Replaying}}
    <span class="replay">Replay {{plus1 .ReplayIndex}}/{{.ReplayTotal}}</span>
    <form hx-post="/replay/stop" hx-target="#board" hx-swap="outerHTML"><button>Stop replay</button></form>
    {{else}}
    <form hx-post="/replay/start" hx-target="#board" hx-swap="outerHTML"><button{{if eq .HistoryLen 0}} disabled{{end}}>Replay ({{.HistoryLen}})</button></form>
    {{end}}
  </div>
</div>
`

type cellView struct {
    Row, Col int
    Symbol   string
    Playable bool
}

type boardView struct {
    Size         int
    MinSize      int
    MaxSize      int
    Rows         [][]cellView
    StatusText   string
    Error        string
    Mode         domain.Mode
    Difficulty   domain.Difficulty
    Modes        []domain.Mode
    Difficulties []domain.Difficulty
    ModeOpen     bool
    Replaying    bool
    ReplayIndex  int
    ReplayTotal  int
    HistoryLen   int
    AIThinking   bool
    AIFailed     bool
}

func newBoardView(st app.State, errMsg string) boardView {
    v := boardView{
        Size:         st.Board.Size(),
        MinSize:      domain.MinSize,
        MaxSize:      domain.MaxSize,
        StatusText:   statusText(st),
        Error:        errMsg,
        Mode:         st.Settings.Mode,
        Difficulty:   st.Settings.Difficulty,
        Modes:        domain.Modes,
        Difficulties: domain.Difficulties,
        ModeOpen:     st.Board.IsEmpty(),
        Replaying:    st.Replaying,
        ReplayIndex:  st.ReplayIndex,
        ReplayTotal:  st.ReplayTotal,
        HistoryLen:   st.HistoryLen,
        AIThinking:   st.AIThinking,
        AIFailed:     st.AIFailed,
    }
    ctrl := st.CurrentController()
    for r, row := range st.Board.Rows() {
        cells := make([]cellView, len(row))
        for c, cell := range row {
            cells[c] = cellView{
                Row:      r,
                Col:      c,
                Symbol:   symbol(cell),
                Playable: domain.IsLegal(st.Board, r, c, st.Status, st.Replaying, ctrl),
            }
        }
        v.Rows = append(v.Rows, cells)
    }
    return v
}

func symbol(c domain.Cell) string {
    if c == domain.Empty {
        return ""
    }
    return c.String()
}

func statusText(st app.State) string {
    switch st.Status.Outcome {
    case domain.Won:
        return "Winner: " + st.Status.Winner.String()
    case domain.Draw:
        return "Draw!"
    }
    return "Next player: " + st.Turn.String()
}

// ensurePlayerCookie returns the caller's player id, issuing one if needed.
func (h *handlers) ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
    if c, err := r.Cookie(playerCookie); err == nil && c.Value != "" {
        return c.Value
    }
    v := h.svc.NewID()
    http.SetCookie(w, &http.Cookie{Name: playerCookie, Value: v, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
    return v
}
