package app

import "time"

// Timer cancels a scheduled task. *time.Timer satisfies it.
type Timer interface {
    Stop() bool
}

// Scheduler defers f by d.
type Scheduler interface {
    AfterFunc(d time.Duration, f func()) Timer
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// WallClock schedules on real timers.
var WallClock Scheduler = wallScheduler{}
