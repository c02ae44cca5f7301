package domain

import (
    "errors"
    "fmt"
)

var (
    ErrUnknownMode       = errors.New("unknown game mode")
    ErrUnknownDifficulty = errors.New("unknown difficulty")
)

// Controller says who drives a side.
type Controller uint8

const (
    Human Controller = iota
    AI
)

func (c Controller) String() string {
    if c == AI {
        return "ai"
    }
    return "human"
}

// Mode is one of the four selector values.
type Mode string

const (
    HumanVsHuman Mode = "human-vs-human"
    HumanVsAI    Mode = "human-vs-ai"
    AIVsHuman    Mode = "ai-vs-human"
    AIVsAI       Mode = "ai-vs-ai"
)

// Modes lists every mode in selector order.
var Modes = []Mode{HumanVsHuman, HumanVsAI, AIVsHuman, AIVsAI}

// ParseMode validates a selector value.
func ParseMode(s string) (Mode, error) {
    for _, m := range Modes {
        if string(m) == s {
            return m, nil
        }
    }
    return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Controllers returns the (X, O) controller pair.
func (m Mode) Controllers() (x, o Controller) {
    switch m {
    case HumanVsAI:
        return Human, AI
    case AIVsHuman:
        return AI, Human
    case AIVsAI:
        return AI, AI
    default:
        return Human, Human
    }
}

// ControllerFor returns the controller of side p.
func (m Mode) ControllerFor(p Cell) Controller {
    x, o := m.Controllers()
    if p == O {
        return o
    }
    return x
}

// HasAI reports whether either side is AI controlled.
func (m Mode) HasAI() bool {
    x, o := m.Controllers()
    return x == AI || o == AI
}

// Difficulty selects an AIPlanner strategy.
type Difficulty string

const (
    Easy   Difficulty = "easy"
    Medium Difficulty = "medium"
    Hard   Difficulty = "hard"
)

var Difficulties = []Difficulty{Easy, Medium, Hard}

func ParseDifficulty(s string) (Difficulty, error) {
    for _, d := range Difficulties {
        if string(d) == s {
            return d, nil
        }
    }
    return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
}
