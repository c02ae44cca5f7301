package history

import (
    "encoding/json"
    "errors"
    "fmt"
    "math"
    "time"

    "github.com/jaminalder/codex-xo/internal/domain"
    "github.com/mitchellh/mapstructure"
)

// ErrParse marks a history blob that is not a well-formed list of snapshots.
var ErrParse = errors.New("history parse error")

// TimestampLayout matches the millisecond ISO-8601 form browsers emit.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Snapshot is the state right after one applied move.
type Snapshot struct {
    Board      domain.Board
    Winner     domain.Cell
    NextTurn   domain.Cell
    Timestamp  time.Time
    Mode       domain.Mode
    Size       int
    Difficulty domain.Difficulty
}

// wireSnapshot is the persisted and exported JSON shape.
type wireSnapshot struct {
    Board        [][]*string `json:"board"`
    Winner       *string     `json:"winner"`
    IsXNext      bool        `json:"isXNext"`
    Timestamp    string      `json:"timestamp"`
    GameMode     string      `json:"gameMode"`
    Size         int         `json:"size"`
    AIDifficulty string      `json:"aiDifficulty"`
}

var requiredFields = []string{"board", "winner", "isXNext", "timestamp", "gameMode", "size", "aiDifficulty"}

func cellPtr(c domain.Cell) *string {
    if c == domain.Empty {
        return nil
    }
    s := c.String()
    return &s
}

func toWire(s Snapshot) wireSnapshot {
    rows := s.Board.Rows()
    board := make([][]*string, len(rows))
    for r, row := range rows {
        board[r] = make([]*string, len(row))
        for c, cell := range row {
            board[r][c] = cellPtr(cell)
        }
    }
    return wireSnapshot{
        Board:        board,
        Winner:       cellPtr(s.Winner),
        IsXNext:      s.NextTurn != domain.O,
        Timestamp:    s.Timestamp.UTC().Format(TimestampLayout),
        GameMode:     string(s.Mode),
        Size:         s.Size,
        AIDifficulty: string(s.Difficulty),
    }
}

func parsePlayer(p *string) (domain.Cell, error) {
    if p == nil {
        return domain.Empty, nil
    }
    c, ok := domain.ParseCell(*p)
    if !ok || c == domain.Empty {
        return domain.Empty, fmt.Errorf("invalid symbol %q", *p)
    }
    return c, nil
}

func fromWire(w wireSnapshot) (Snapshot, error) {
    grid := make([][]domain.Cell, len(w.Board))
    for r, row := range w.Board {
        grid[r] = make([]domain.Cell, len(row))
        for c, v := range row {
            cell, err := parsePlayer(v)
            if err != nil {
                return Snapshot{}, fmt.Errorf("board[%d][%d]: %w", r, c, err)
            }
            grid[r][c] = cell
        }
    }
    board, err := domain.BoardFromRows(grid)
    if err != nil {
        return Snapshot{}, fmt.Errorf("board: %w", err)
    }
    if w.Size != board.Size() {
        return Snapshot{}, fmt.Errorf("size %d does not match %dx%d board", w.Size, board.Size(), board.Size())
    }
    winner, err := parsePlayer(w.Winner)
    if err != nil {
        return Snapshot{}, fmt.Errorf("winner: %w", err)
    }
    ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
    if err != nil {
        return Snapshot{}, fmt.Errorf("timestamp: %w", err)
    }
    mode, err := domain.ParseMode(w.GameMode)
    if err != nil {
        return Snapshot{}, err
    }
    diff, err := domain.ParseDifficulty(w.AIDifficulty)
    if err != nil {
        return Snapshot{}, err
    }
    next := domain.O
    if w.IsXNext {
        next = domain.X
    }
    return Snapshot{
        Board:      board,
        Winner:     winner,
        NextTurn:   next,
        Timestamp:  ts,
        Mode:       mode,
        Size:       w.Size,
        Difficulty: diff,
    }, nil
}

// Encode serializes a log compactly for storage.
func Encode(entries []Snapshot) ([]byte, error) {
    return json.Marshal(wireLog(entries))
}

// EncodeIndent serializes a log for export.
func EncodeIndent(entries []Snapshot) ([]byte, error) {
    return json.MarshalIndent(wireLog(entries), "", "  ")
}

func wireLog(entries []Snapshot) []wireSnapshot {
    out := make([]wireSnapshot, len(entries))
    for i, s := range entries {
        out[i] = toWire(s)
    }
    return out
}

// Decode parses a blob into snapshots. Any malformed entry fails the whole
// blob with an error wrapping ErrParse.
func Decode(data []byte) ([]Snapshot, error) {
    var raw any
    if err := json.Unmarshal(data, &raw); err != nil {
        return nil, fmt.Errorf("%w: %v", ErrParse, err)
    }
    list, ok := raw.([]any)
    if !ok {
        return nil, fmt.Errorf("%w: expected a list of snapshots", ErrParse)
    }
    out := make([]Snapshot, 0, len(list))
    for i, item := range list {
        s, err := decodeEntry(item)
        if err != nil {
            return nil, fmt.Errorf("%w: entry %d: %v", ErrParse, i, err)
        }
        out = append(out, s)
    }
    return out, nil
}

func decodeEntry(item any) (Snapshot, error) {
    obj, ok := item.(map[string]any)
    if !ok {
        return Snapshot{}, errors.New("expected an object")
    }
    // mapstructure truncates floats into ints.
    if n, ok := obj["size"].(float64); ok && n != math.Trunc(n) {
        return Snapshot{}, fmt.Errorf("size %v is not an integer", n)
    }
    var w wireSnapshot
    var md mapstructure.Metadata
    dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
        TagName:  "json",
        Metadata: &md,
        Result:   &w,
    })
    if err != nil {
        return Snapshot{}, err
    }
    if err := dec.Decode(item); err != nil {
        return Snapshot{}, err
    }
    for _, field := range requiredFields {
        for _, unset := range md.Unset {
            if unset == field {
                return Snapshot{}, fmt.Errorf("missing field %q", field)
            }
        }
    }
    return fromWire(w)
}
