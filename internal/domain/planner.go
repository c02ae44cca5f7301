package domain

import "lukechampine.com/frand"

// Rand is the randomness the planner needs. *math/rand.Rand satisfies it.
type Rand interface {
    Intn(n int) int
    Float64() float64
}

type cryptoRand struct{}

func (cryptoRand) Intn(n int) int    { return frand.Intn(n) }
func (cryptoRand) Float64() float64 { return frand.Float64() }

// mediumRandomShare is the chance a Medium move is played at random.
const mediumRandomShare = 0.5

// corners3 is the fallback order for 3x3 boards.
var corners3 = [4]Move{{0, 0}, {0, 2}, {2, 0}, {2, 2}}

// Planner picks AI moves. It is a greedy one-ply heuristic and can miss forks.
type Planner struct {
    rng Rand
}

// NewPlanner returns a planner using rng, or a crypto-seeded source when nil.
func NewPlanner(rng Rand) *Planner {
    if rng == nil {
        rng = cryptoRand{}
    }
    return &Planner{rng: rng}
}

// SelectMove picks a move for player. ok is false when the board is full.
// Medium re-rolls between the Easy and Hard strategies on every call.
func (p *Planner) SelectMove(b Board, player Cell, d Difficulty) (Move, bool) {
    switch d {
    case Easy:
        return p.RandomMove(b)
    case Hard:
        return p.BestMove(b, player)
    default:
        if p.rng.Float64() < mediumRandomShare {
            return p.RandomMove(b)
        }
        return p.BestMove(b, player)
    }
}

// RandomMove picks uniformly among empty cells.
func (p *Planner) RandomMove(b Board) (Move, bool) {
    free := b.EmptyCells()
    if len(free) == 0 {
        return Move{}, false
    }
    return free[p.rng.Intn(len(free))], true
}

// BestMove tries, in order: the center of an empty board, an immediate win,
// a block of the opponent's immediate win, the 3x3 center then corners, and
// finally a random empty cell.
func (p *Planner) BestMove(b Board, player Cell) (Move, bool) {
    n := b.Size()
    if n == 0 || b.IsFull() {
        return Move{}, false
    }
    if b.IsEmpty() {
        return Move{Row: n / 2, Col: n / 2}, true
    }

    // One scratch grid for every trial placement.
    scratch := b.Clone()
    if m, ok := firstWinningCell(scratch, player); ok {
        return m, true
    }
    if m, ok := firstWinningCell(scratch, player.Opponent()); ok {
        return m, true
    }

    if n == 3 {
        if b.At(1, 1) == Empty {
            return Move{Row: 1, Col: 1}, true
        }
        for _, m := range corners3 {
            if b.At(m.Row, m.Col) == Empty {
                return m, true
            }
        }
    }
    return p.RandomMove(b)
}

// firstWinningCell scans row-major for an empty cell that wins for side.
// scratch is restored before returning.
func firstWinningCell(scratch Board, side Cell) (Move, bool) {
    for i, c := range scratch.cells {
        if c != Empty {
            continue
        }
        scratch.cells[i] = side
        st := Evaluate(scratch)
        scratch.cells[i] = Empty
        if st.Outcome == Won && st.Winner == side {
            return Move{Row: i / scratch.size, Col: i % scratch.size}, true
        }
    }
    return Move{}, false
}
