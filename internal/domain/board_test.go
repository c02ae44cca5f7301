package domain

import (
    "errors"
    "testing"
)

// helper to apply a sequence of alternating moves starting with X
func playMoves(t *testing.T, b Board, moves [][2]int) (Board, Status) {
    t.Helper()
    turn := X
    st := Evaluate(b)
    for i, m := range moves {
        if st.Over() {
            t.Fatalf("move %d (%v) played after game over", i, m)
        }
        next, err := b.Apply(m[0], m[1], turn)
        if err != nil {
            t.Fatalf("move %d (%v) failed: %v", i, m, err)
        }
        b = next
        st = Evaluate(b)
        turn = turn.Opponent()
    }
    return b, st
}

func mustBoard(t *testing.T, size int) Board {
    t.Helper()
    b, err := NewBoard(size)
    if err != nil {
        t.Fatalf("NewBoard(%d): %v", size, err)
    }
    return b
}

func rowsOf(s ...string) [][]Cell {
    out := make([][]Cell, len(s))
    for r, line := range s {
        out[r] = make([]Cell, len(line))
        for c, ch := range line {
            switch ch {
            case 'X':
                out[r][c] = X
            case 'O':
                out[r][c] = O
            }
        }
    }
    return out
}

func mustRows(t *testing.T, s ...string) Board {
    t.Helper()
    b, err := BoardFromRows(rowsOf(s...))
    if err != nil {
        t.Fatalf("BoardFromRows: %v", err)
    }
    return b
}

func TestNewBoardInitialState(t *testing.T) {
    for size := MinSize; size <= MaxSize; size++ {
        b := mustBoard(t, size)
        if b.Size() != size {
            t.Fatalf("expected size %d, got %d", size, b.Size())
        }
        if len(b.EmptyCells()) != size*size {
            t.Fatalf("expected %d empty cells, got %d", size*size, len(b.EmptyCells()))
        }
        if st := Evaluate(b); st.Outcome != InProgress {
            t.Fatalf("expected in-progress on empty board, got %v", st.Outcome)
        }
    }
}

func TestNewBoardInvalidSize(t *testing.T) {
    for _, size := range []int{-1, 0, 1, 2, 11, 100} {
        if _, err := NewBoard(size); !errors.Is(err, ErrInvalidSize) {
            t.Fatalf("expected ErrInvalidSize for %d, got %v", size, err)
        }
    }
}

func TestApplyOutOfBounds(t *testing.T) {
    b := mustBoard(t, 3)
    cases := [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 3}, {5, 5}}
    for _, m := range cases {
        if _, err := b.Apply(m[0], m[1], X); !errors.Is(err, ErrOutOfBounds) {
            t.Fatalf("expected ErrOutOfBounds for %v, got %v", m, err)
        }
    }
}

func TestApplyOccupied(t *testing.T) {
    b := mustBoard(t, 3)
    b, err := b.Apply(0, 0, X)
    if err != nil {
        t.Fatalf("first move failed: %v", err)
    }
    if _, err := b.Apply(0, 0, O); !errors.Is(err, ErrOccupied) {
        t.Fatalf("expected ErrOccupied on same cell, got %v", err)
    }
}

func TestApplyLeavesPriorBoardUntouched(t *testing.T) {
    before := mustBoard(t, 4)
    after, err := before.Apply(2, 3, O)
    if err != nil {
        t.Fatalf("apply: %v", err)
    }
    if before.At(2, 3) != Empty {
        t.Fatalf("prior board mutated: %v", before.At(2, 3))
    }
    if after.At(2, 3) != O {
        t.Fatalf("expected O at (2,3), got %v", after.At(2, 3))
    }
    rows := after.Rows()
    rows[2][3] = X
    if after.At(2, 3) != O {
        t.Fatalf("Rows must return a copy")
    }
}

func TestWinConditionsForX(t *testing.T) {
    winningLines := [][][2]int{
        // rows
        {{0, 0}, {0, 1}, {0, 2}},
        {{1, 0}, {1, 1}, {1, 2}},
        {{2, 0}, {2, 1}, {2, 2}},
        // cols
        {{0, 0}, {1, 0}, {2, 0}},
        {{0, 1}, {1, 1}, {2, 1}},
        {{0, 2}, {1, 2}, {2, 2}},
        // diags
        {{0, 0}, {1, 1}, {2, 2}},
        {{0, 2}, {1, 1}, {2, 0}},
    }
    filler := [][2]int{{1, 2}, {2, 1}, {1, 0}, {2, 0}, {0, 2}, {0, 1}}
    for _, line := range winningLines {
        onLine := func(f [2]int) bool { return f == line[0] || f == line[1] || f == line[2] }
        var fills [][2]int
        for _, f := range filler {
            if !onLine(f) {
                fills = append(fills, f)
            }
        }
        seq := [][2]int{line[0], fills[0], line[1], fills[1], line[2]}
        _, st := playMoves(t, mustBoard(t, 3), seq)
        if st.Outcome != Won || st.Winner != X {
            t.Fatalf("expected X to win on line %v; got %+v", line, st)
        }
    }
}

func TestFullLineWinsOnEverySize(t *testing.T) {
    for n := MinSize; n <= MaxSize; n++ {
        lines := map[string]func(i int) (int, int){
            "row":  func(i int) (int, int) { return n - 1, i },
            "col":  func(i int) (int, int) { return i, 0 },
            "diag": func(i int) (int, int) { return i, i },
            "anti": func(i int) (int, int) { return i, n - 1 - i },
        }
        for name, at := range lines {
            b := mustBoard(t, n)
            var err error
            for i := 0; i < n; i++ {
                r, c := at(i)
                if st := Evaluate(b); st.Outcome != InProgress {
                    t.Fatalf("n=%d %s: premature %+v after %d cells", n, name, st, i)
                }
                if b, err = b.Apply(r, c, O); err != nil {
                    t.Fatalf("n=%d %s: %v", n, name, err)
                }
            }
            if st := Evaluate(b); st.Outcome != Won || st.Winner != O {
                t.Fatalf("n=%d %s: expected O win, got %+v", n, name, st)
            }
        }
    }
}

func TestShortRunDoesNotWinOnLargerBoard(t *testing.T) {
    b := mustRows(t,
        "XXX.",
        "OO..",
        "....",
        "....",
    )
    if st := Evaluate(b); st.Outcome != InProgress {
        t.Fatalf("three in a row must not win on 4x4, got %+v", st)
    }
}

func TestDrawNoWinner(t *testing.T) {
    // Draw pattern (no three in a row)
    seq := [][2]int{
        {0, 0}, {0, 1}, {0, 2},
        {1, 1}, {1, 0}, {1, 2},
        {2, 1}, {2, 0}, {2, 2},
    }
    b, st := playMoves(t, mustBoard(t, 3), seq)
    if st.Outcome != Draw {
        t.Fatalf("expected draw, got %+v", st)
    }
    if st.Winner != Empty {
        t.Fatalf("expected no winner on draw, got %v", st.Winner)
    }
    if !b.IsFull() {
        t.Fatalf("expected full board")
    }
}

func TestDrawOnLargerFullBoards(t *testing.T) {
    // Pairs of columns alternate, and alternate again on every row.
    for n := 4; n <= MaxSize; n++ {
        rows := make([][]Cell, n)
        for r := range rows {
            rows[r] = make([]Cell, n)
            for c := range rows[r] {
                if (c/2+r)%2 == 0 {
                    rows[r][c] = X
                } else {
                    rows[r][c] = O
                }
            }
        }
        b, err := BoardFromRows(rows)
        if err != nil {
            t.Fatalf("n=%d: %v", n, err)
        }
        if st := Evaluate(b); st.Outcome != Draw {
            t.Fatalf("n=%d: expected draw, got %+v", n, st)
        }
    }
}

func TestEvaluateScansRowsBeforeColumns(t *testing.T) {
    // Not reachable in play, but the scan order is fixed.
    b := mustRows(t,
        "XXX",
        "OOO",
        "...",
    )
    if st := Evaluate(b); st.Winner != X {
        t.Fatalf("expected row 0 (X) found first, got %+v", st)
    }
    b = mustRows(t,
        "XO.",
        "XO.",
        "XO.",
    )
    if st := Evaluate(b); st.Winner != X {
        t.Fatalf("expected column 0 (X) found first, got %+v", st)
    }
}

func TestBoardFromRowsRejectsRagged(t *testing.T) {
    if _, err := BoardFromRows(rowsOf("XX.", "..", "...")); !errors.Is(err, ErrInvalidSize) {
        t.Fatalf("expected ErrInvalidSize, got %v", err)
    }
    if _, err := BoardFromRows(rowsOf("X.", "..")); !errors.Is(err, ErrInvalidSize) {
        t.Fatalf("expected ErrInvalidSize for 2x2, got %v", err)
    }
}
