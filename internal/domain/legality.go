package domain

// IsLegal reports whether a human may play (r, c) now. It never mutates anything.
// Moves are refused while replaying, on occupied or out of range cells, once
// the game is over, and whenever the side to move is AI controlled.
func IsLegal(b Board, r, c int, status Status, replaying bool, current Controller) bool {
    if replaying {
        return false
    }
    if status.Over() {
        return false
    }
    if current == AI {
        return false
    }
    if !b.InBounds(r, c) {
        return false
    }
    return b.At(r, c) == Empty
}
