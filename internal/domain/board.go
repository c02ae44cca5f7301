package domain

import "errors"

// Cell represents a board cell state.
type Cell uint8

const (
    Empty Cell = iota
    X
    O
)

// Board sizes accepted by NewBoard.
const (
    MinSize = 3
    MaxSize = 10
)

// Errors returned by domain operations.
var (
    ErrInvalidSize = errors.New("invalid board size")
    ErrOutOfBounds = errors.New("out of bounds")
    ErrOccupied    = errors.New("cell occupied")
)

// String returns "X", "O" or "" for Empty.
func (c Cell) String() string {
    switch c {
    case X:
        return "X"
    case O:
        return "O"
    default:
        return ""
    }
}

// Opponent returns the other player. Empty stays Empty.
func (c Cell) Opponent() Cell {
    switch c {
    case X:
        return O
    case O:
        return X
    default:
        return Empty
    }
}

// ParseCell maps "X", "O" and "" back to a Cell.
func ParseCell(s string) (Cell, bool) {
    switch s {
    case "X":
        return X, true
    case "O":
        return O, true
    case "":
        return Empty, true
    }
    return Empty, false
}

// Board is a size x size grid stored row-major. Values are never mutated
// after construction; Apply returns a fresh copy.
type Board struct {
    size  int
    cells []Cell
}

// NewBoard returns an empty board of the given side length.
func NewBoard(size int) (Board, error) {
    if size < MinSize || size > MaxSize {
        return Board{}, ErrInvalidSize
    }
    return Board{size: size, cells: make([]Cell, size*size)}, nil
}

// BoardFromRows builds a board from a square grid.
func BoardFromRows(rows [][]Cell) (Board, error) {
    n := len(rows)
    b, err := NewBoard(n)
    if err != nil {
        return Board{}, err
    }
    for r, row := range rows {
        if len(row) != n {
            return Board{}, ErrInvalidSize
        }
        copy(b.cells[r*n:(r+1)*n], row)
    }
    return b, nil
}

// Size is the side length; zero for the zero Board.
func (b Board) Size() int { return b.size }

// At returns the cell at row r, column c. Out of range reads are Empty.
func (b Board) At(r, c int) Cell {
    if !b.InBounds(r, c) {
        return Empty
    }
    return b.cells[r*b.size+c]
}

// InBounds reports whether (r, c) addresses a cell.
func (b Board) InBounds(r, c int) bool {
    return r >= 0 && r < b.size && c >= 0 && c < b.size
}

// Apply places p at (r, c) and returns the resulting board. b is untouched.
func (b Board) Apply(r, c int, p Cell) (Board, error) {
    if !b.InBounds(r, c) {
        return Board{}, ErrOutOfBounds
    }
    idx := r*b.size + c
    if b.cells[idx] != Empty {
        return Board{}, ErrOccupied
    }
    next := b.Clone()
    next.cells[idx] = p
    return next, nil
}

// Clone returns a deep copy.
func (b Board) Clone() Board {
    cp := Board{size: b.size, cells: make([]Cell, len(b.cells))}
    copy(cp.cells, b.cells)
    return cp
}

// Rows returns a copy of the grid as nested slices.
func (b Board) Rows() [][]Cell {
    rows := make([][]Cell, b.size)
    for r := range rows {
        rows[r] = append([]Cell(nil), b.cells[r*b.size:(r+1)*b.size]...)
    }
    return rows
}

// IsEmpty reports whether no cell has been played.
func (b Board) IsEmpty() bool {
    for _, c := range b.cells {
        if c != Empty {
            return false
        }
    }
    return true
}

// IsFull reports whether every cell has been played.
func (b Board) IsFull() bool {
    for _, c := range b.cells {
        if c == Empty {
            return false
        }
    }
    return true
}

// EmptyCells lists free cells in row-major order.
func (b Board) EmptyCells() []Move {
    out := make([]Move, 0, len(b.cells))
    for i, c := range b.cells {
        if c == Empty {
            out = append(out, Move{Row: i / b.size, Col: i % b.size})
        }
    }
    return out
}

// Equal reports whether two boards have the same size and cells.
func (b Board) Equal(o Board) bool {
    if b.size != o.size {
        return false
    }
    for i := range b.cells {
        if b.cells[i] != o.cells[i] {
            return false
        }
    }
    return true
}

// Move is a cell coordinate.
type Move struct {
    Row int
    Col int
}
