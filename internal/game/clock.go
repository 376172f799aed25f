package game

import (
	"fmt"
	"time"

	"github.com/justinabrahms/deskchess/internal/chess"
)

// TimeControl represents the time control settings for a game
type TimeControl struct {
	Initial   time.Duration `json:"initial"`
	Increment time.Duration `json:"increment"` // added after each completed move
}

// Enabled reports whether the game is played on the clock at all.
func (tc TimeControl) Enabled() bool {
	return tc.Initial > 0
}

// Clock tracks the remaining time of both sides. Only the side to move
// spends time.
type Clock struct {
	tc        TimeControl
	remaining [2]time.Duration
	running   chess.Side
	since     time.Time
	stopped   bool
}

// NewClock creates a stopped clock with the initial time on both sides.
func NewClock(tc TimeControl) *Clock {
	return &Clock{
		tc:        tc,
		remaining: [2]time.Duration{tc.Initial, tc.Initial},
		stopped:   true,
	}
}

// Start runs side's clock from now.
func (c *Clock) Start(side chess.Side, now time.Time) {
	c.running = side
	c.since = now
	c.stopped = false
}

// Stop freezes both clocks, charging the running side up to now.
func (c *Clock) Stop(now time.Time) {
	if c.stopped {
		return
	}
	c.remaining[c.running] = c.Remaining(c.running, now)
	c.stopped = true
}

// Switch is called after a completed move: the mover is charged for the
// time spent, receives the increment, and the opponent's clock starts.
func (c *Clock) Switch(now time.Time) {
	mover := c.running
	if !c.stopped {
		c.remaining[mover] = c.Remaining(mover, now) + c.tc.Increment
	}
	c.Start(mover.Other(), now)
}

// Remaining returns the time side has left at now, never negative.
func (c *Clock) Remaining(side chess.Side, now time.Time) time.Duration {
	left := c.remaining[side]
	if !c.stopped && side == c.running {
		left -= now.Sub(c.since)
	}
	if left < 0 {
		return 0
	}
	return left
}

// Running returns the side whose clock is ticking and false when stopped.
func (c *Clock) Running() (chess.Side, bool) {
	return c.running, !c.stopped
}

// Expired returns the side that ran out of time, if any.
func (c *Clock) Expired(now time.Time) (chess.Side, bool) {
	if c.stopped {
		return c.running, false
	}
	return c.running, c.Remaining(c.running, now) == 0
}

// FormatRemaining formats time remaining the way a chess clock shows it
func FormatRemaining(remaining time.Duration) string {
	if remaining <= 0 {
		return "0:00"
	}

	hours := int(remaining.Hours())
	minutes := int(remaining.Minutes()) % 60
	seconds := int(remaining.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	if remaining < 10*time.Second {
		tenths := int(remaining/(100*time.Millisecond)) % 10
		return fmt.Sprintf("0:%02d.%d", seconds, tenths)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
