package web

import (
    "time"

    "github.com/jaminalder/codex-xo/internal/app"
    "github.com/jaminalder/codex-xo/internal/domain"
)

type stateDTO struct {
    Board       [][]*string `json:"board"`
    Turn        string      `json:"turn"`
    Outcome     string      `json:"outcome"`
    Winner      *string     `json:"winner"`
    Size        int         `json:"size"`
    Mode        string      `json:"gameMode"`
    Difficulty  string      `json:"aiDifficulty"`
    Replaying   bool        `json:"replaying"`
    ReplayIndex int         `json:"replayIndex"`
    ReplayTotal int         `json:"replayTotal"`
    HistoryLen  int         `json:"historyLength"`
    AIThinking  bool        `json:"aiThinking"`
    AIFailed    bool        `json:"aiFailed"`
    Updated     time.Time   `json:"updated"`
    Seq         uint64      `json:"seq"`
}

func cellPtr(c domain.Cell) *string {
    if c == domain.Empty {
        return nil
    }
    s := c.String()
    return &s
}

func newStateDTO(st app.State) stateDTO {
    rows := st.Board.Rows()
    board := make([][]*string, len(rows))
    for r, row := range rows {
        board[r] = make([]*string, len(row))
        for c, cell := range row {
            board[r][c] = cellPtr(cell)
        }
    }
    return stateDTO{
        Board:       board,
        Turn:        st.Turn.String(),
        Outcome:     st.Status.Outcome.String(),
        Winner:      cellPtr(st.Status.Winner),
        Size:        st.Board.Size(),
        Mode:        string(st.Settings.Mode),
        Difficulty:  string(st.Settings.Difficulty),
        Replaying:   st.Replaying,
        ReplayIndex: st.ReplayIndex,
        ReplayTotal: st.ReplayTotal,
        HistoryLen:  st.HistoryLen,
        AIThinking:  st.AIThinking,
        AIFailed:    st.AIFailed,
        Updated:     st.Updated,
        Seq:         st.Seq,
    }
}
