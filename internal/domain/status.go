package domain

// Outcome tags a Status.
type Outcome uint8

const (
    InProgress Outcome = iota
    Won
    Draw
)

func (o Outcome) String() string {
    switch o {
    case Won:
        return "won"
    case Draw:
        return "draw"
    default:
        return "in-progress"
    }
}

// Status is the derived state of a board. Winner is set only when Outcome is Won.
type Status struct {
    Outcome Outcome
    Winner  Cell
}

// Over reports whether no further moves may be played.
func (s Status) Over() bool { return s.Outcome != InProgress }

// Evaluate scans rows, then columns, then the main diagonal, then the
// anti-diagonal for a full line of one symbol. With no winner a full board
// is a draw.
func Evaluate(b Board) Status {
    n := b.size
    if n == 0 {
        return Status{}
    }
    for r := 0; r < n; r++ {
        if w := lineWinner(b, r*n, 1); w != Empty {
            return Status{Outcome: Won, Winner: w}
        }
    }
    for c := 0; c < n; c++ {
        if w := lineWinner(b, c, n); w != Empty {
            return Status{Outcome: Won, Winner: w}
        }
    }
    if w := lineWinner(b, 0, n+1); w != Empty {
        return Status{Outcome: Won, Winner: w}
    }
    if w := lineWinner(b, n-1, n-1); w != Empty {
        return Status{Outcome: Won, Winner: w}
    }
    if b.IsFull() {
        return Status{Outcome: Draw}
    }
    return Status{}
}

// lineWinner walks n cells from start with the given stride.
func lineWinner(b Board, start, stride int) Cell {
    first := b.cells[start]
    if first == Empty {
        return Empty
    }
    for i := 1; i < b.size; i++ {
        if b.cells[start+i*stride] != first {
            return Empty
        }
    }
    return first
}
