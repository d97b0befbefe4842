// Per-game countdown clocks
//
// Copyright (c) 2021, 2022  Philip Kaludercic
//
// This file is part of chessd.
//
// chessd is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// chessd is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with chessd. If not, see
// <http://www.gnu.org/licenses/>

package chessd

import "time"

// Clock holds each side's remaining time. A game with no time
// control simply never allocates one; Session treats a nil *Clock
// as "no clock logic applies".
type Clock struct {
	White     time.Duration
	Black     time.Duration
	Increment time.Duration

	// Started is false until the first move of the game is
	// accepted. No side's clock is deducted before that point.
	Started    bool
	RunningFor Color

	lastTick time.Time
}

// NewClock builds a clock with equal time for both sides and the
// given increment. It does not start running until the first move.
func NewClock(initial, increment time.Duration) *Clock {
	return &Clock{White: initial, Black: initial, Increment: increment}
}

func (c *Clock) remaining(side Color) time.Duration {
	if side == White {
		return c.White
	}
	return c.Black
}

func (c *Clock) setRemaining(side Color, d time.Duration) {
	if side == White {
		c.White = d
	} else {
		c.Black = d
	}
}

// OnMoveAccepted is called by the session immediately after mover's
// action is applied. It deducts the elapsed time from mover's clock
// (if the clock was already running), credits the increment, and
// switches the running side to the opponent. The first call in a
// game only starts the opponent's clock; mover is never charged for
// time elapsed before their own first move.
func (c *Clock) OnMoveAccepted(mover Color, now time.Time) {
	if c.Started {
		elapsed := now.Sub(c.lastTick)
		remaining := c.remaining(mover) - elapsed
		if remaining < 0 {
			remaining = 0
		}
		c.setRemaining(mover, remaining+c.Increment)
	} else {
		c.Started = true
	}
	c.RunningFor = mover.Other()
	c.lastTick = now
}

// Tick checks whether the currently running side has run out of
// time. It must be called from the owning session's single-writer
// task, typically in response to a periodic clockTick message
// rather than directly from a scheduler goroutine.
func (c *Clock) Tick(now time.Time) (timedOut bool, loser Color) {
	if !c.Started {
		return false, White
	}
	elapsed := now.Sub(c.lastTick)
	remaining := c.remaining(c.RunningFor) - elapsed
	if remaining <= 0 {
		c.setRemaining(c.RunningFor, 0)
		return true, c.RunningFor
	}
	return false, White
}

// Snapshot returns remaining time for both sides as of now, without
// mutating the clock (used to build outgoing state messages).
func (c *Clock) Snapshot(now time.Time) (white, black time.Duration) {
	white, black = c.White, c.Black
	if c.Started {
		elapsed := now.Sub(c.lastTick)
		r := c.remaining(c.RunningFor) - elapsed
		if r < 0 {
			r = 0
		}
		if c.RunningFor == White {
			white = r
		} else {
			black = r
		}
	}
	return white, black
}
