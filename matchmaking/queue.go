// Matchmaking queue
//
// Copyright (c) 2021, 2022, 2023  Philip Kaludercic
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

// Package matchmaking holds waiting players in FIFO order and, on a
// periodic tick, pairs the two oldest connected and unbound entries
// into a new game.
package matchmaking

import (
	"math/rand"
	"sync"
	"time"

	"chessd"
)

// Registry is the subset of the game registry the queue needs: the
// ability to create a session for a freshly paired couple.
type Registry interface {
	CreateGame(whiteID, blackID string) (gameID string, err error)
}

// Notifier is told about the outcome of a pairing so it can deliver
// MatchFound to both sides. It is implemented by the session
// router.
type Notifier interface {
	GameCreated(gameID string, white, black string)
}

type entry struct {
	playerID   string
	enqueuedAt time.Time
}

// Queue is a FIFO matchmaking queue driven by a single goroutine, so
// the queue slice itself never needs a mutex -- all mutation happens
// through the add/rem channels, the same discipline the teacher's
// scheduler uses for its own queue slice.
type Queue struct {
	add  chan string
	rem  chan string
	shut chan struct{}
	wait sync.WaitGroup

	q []entry

	tick      time.Duration
	registry  Registry
	notifier  Notifier
	connected func(playerID string) bool

	rng *rand.Rand
}

// New builds a matchmaking queue. connected reports whether a
// player id still has a live connection; entries belonging to
// disconnected players are dropped silently on the next tick.
func New(tick time.Duration, registry Registry, notifier Notifier, connected func(string) bool) *Queue {
	return &Queue{
		add:       make(chan string, 64),
		rem:       make(chan string, 64),
		shut:      make(chan struct{}),
		tick:      tick,
		registry:  registry,
		notifier:  notifier,
		connected: connected,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (q *Queue) String() string { return "matchmaking queue" }

// Join enqueues playerID. Safe to call from any goroutine.
func (q *Queue) Join(playerID string) { q.add <- playerID }

// Leave removes playerID from the queue if present. Safe to call
// from any goroutine.
func (q *Queue) Leave(playerID string) { q.rem <- playerID }

// Start runs the queue's goroutine until Shutdown is called.
func (q *Queue) Start() {
	ticker := time.NewTicker(q.tick)
	defer ticker.Stop()

	for {
		select {
		case <-q.shut:
			return
		case id := <-q.add:
			chessd.Debug.Println("matchmaking: enqueue", id)
			q.q = append(q.q, entry{playerID: id, enqueuedAt: time.Now()})
		case id := <-q.rem:
			q.remove(id)
		case <-ticker.C:
			q.runTick()
		}
	}
}

// Shutdown stops the queue goroutine. Any still-queued players are
// simply dropped; the router they came from is responsible for
// telling them matchmaking ended if it cares to.
func (q *Queue) Shutdown() {
	close(q.shut)
}

func (q *Queue) remove(id string) {
	for i, e := range q.q {
		if e.playerID == id {
			q.q = append(q.q[:i], q.q[i+1:]...)
			return
		}
	}
}

// runTick drops stale entries, then pairs off the front of the
// queue two at a time until fewer than two remain.
func (q *Queue) runTick() {
	alive := q.q[:0]
	for _, e := range q.q {
		if q.connected == nil || q.connected(e.playerID) {
			alive = append(alive, e)
		}
	}
	q.q = alive

	for len(q.q) >= 2 {
		a, b := q.q[0], q.q[1]
		q.q = q.q[2:]

		white, black := a.playerID, b.playerID
		if q.rng.Intn(2) == 0 {
			white, black = black, white
		}

		gameID, err := q.registry.CreateGame(white, black)
		if err != nil {
			chessd.Debug.Println("matchmaking: create game failed:", err)
			continue
		}
		q.notifier.GameCreated(gameID, white, black)
	}
}
