// Game registry
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

package table

import (
	"fmt"
	"sync"
	"time"

	"chessd"
	"chessd/proto"

	"github.com/google/uuid"
)

// CompletedMatchRecord is published, fire-and-forget, when a game
// reaches a terminal status. A Store implementation persists it;
// the registry never blocks on that call.
type CompletedMatchRecord struct {
	GameID        string
	WhitePlayerID string
	BlackPlayerID string
	Status        string
	Winner        string
	StartedAt     time.Time
	EndedAt       time.Time
	MoveCount     int
}

// Store receives completed matches. cmd/chessd wires it to
// chessd/store when DATABASE_URL is configured; otherwise Registry
// is built with a nil Store and simply skips the call.
type Store interface {
	Record(rec CompletedMatchRecord)
}

// Registry maps game ids to their Session and keeps a reverse index
// from player id to the game they're currently bound to, satisfying
// the "a player is in at most one game" invariant by construction:
// CreateGame is the only path that adds to byPlayer, and it is only
// called by matchmaking once both players have left the queue.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byPlayer map[string]string

	clockTick      time.Duration
	initialClock   time.Duration
	clockIncrement time.Duration
	store          Store
}

func NewRegistry(clockTick, initialClock, clockIncrement time.Duration, store Store) *Registry {
	return &Registry{
		sessions:       make(map[string]*Session),
		byPlayer:       make(map[string]string),
		clockTick:      clockTick,
		initialClock:   initialClock,
		clockIncrement: clockIncrement,
		store:          store,
	}
}

func (r *Registry) String() string { return "game registry" }
func (r *Registry) Start()         {}
func (r *Registry) Shutdown() {
	// finish calls destroy, which takes r.mu itself, so the sessions
	// are collected first and finished without holding the lock.
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()
	for _, s := range sessions {
		s.finish()
	}
}

// CreateGame implements matchmaking.Registry.
func (r *Registry) CreateGame(whiteID, blackID string) (string, error) {
	id := uuid.NewString()

	var clock *chessd.Clock
	if r.initialClock > 0 {
		clock = chessd.NewClock(r.initialClock, r.clockIncrement)
	}

	sess := newSession(id, whiteID, blackID, clock, r)

	r.mu.Lock()
	r.sessions[id] = sess
	r.byPlayer[whiteID] = id
	r.byPlayer[blackID] = id
	r.mu.Unlock()

	go sess.run(r.clockTick)
	return id, nil
}

func (r *Registry) lookup(gameID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[gameID]
	return s, ok
}

// Attach binds an outbound channel to a color within a game, e.g.
// once a router has resolved which connection owns each paired
// player id.
func (r *Registry) Attach(gameID string, color chessd.Color, playerID string, outbound Outbound) error {
	s, ok := r.lookup(gameID)
	if !ok {
		return fmt.Errorf("no such game %q", gameID)
	}
	s.mailbox <- attachMsg{color: color, playerID: playerID, outbound: outbound}
	return nil
}

// Deliver posts a SubmitAction's action onto its game's mailbox.
func (r *Registry) Deliver(gameID, playerID string, action proto.GameAction) error {
	s, ok := r.lookup(gameID)
	if !ok {
		return fmt.Errorf("no such game %q", gameID)
	}
	s.mailbox <- actionMsg{playerID: playerID, action: action}
	return nil
}

// Leave treats LeaveGame as resignation by playerID.
func (r *Registry) Leave(gameID, playerID string) error {
	s, ok := r.lookup(gameID)
	if !ok {
		return fmt.Errorf("no such game %q", gameID)
	}
	s.mailbox <- actionMsg{playerID: playerID, action: proto.ResignAction{}}
	return nil
}

// RequestState posts a RequestState reply request onto the game's
// mailbox.
func (r *Registry) RequestState(gameID, playerID string) error {
	s, ok := r.lookup(gameID)
	if !ok {
		return fmt.Errorf("no such game %q", gameID)
	}
	s.mailbox <- requestStateMsg{playerID: playerID}
	return nil
}

// Detach looks up which game, if any, playerID is bound to and
// notifies that session the player went absent.
func (r *Registry) Detach(playerID string) {
	r.mu.RLock()
	gameID, ok := r.byPlayer[playerID]
	var s *Session
	if ok {
		s = r.sessions[gameID]
	}
	r.mu.RUnlock()
	if !ok || s == nil {
		return
	}
	select {
	case s.mailbox <- detachMsg{playerID: playerID}:
	case <-s.done:
	}
}

// GameIDFor reports the game a player is currently bound to, if
// any.
func (r *Registry) GameIDFor(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPlayer[playerID]
	return id, ok
}

func (r *Registry) recordCompleted(s *Session) {
	if r.store == nil {
		return
	}
	winner := ""
	if s.status.HasWinner() {
		winner = s.status.Winner.String()
	}
	r.store.Record(CompletedMatchRecord{
		GameID:        s.id,
		WhitePlayerID: s.bindings[chessd.White].playerID,
		BlackPlayerID: s.bindings[chessd.Black].playerID,
		Status:        s.status.Kind.String(),
		Winner:        winner,
		StartedAt:     s.startedAt,
		EndedAt:       time.Now(),
		MoveCount:     s.moveCount,
	})
}

// destroy removes a finished game from the registry so a later
// RequestState for it reports "no such game", per the abrupt
// disconnect scenario.
func (r *Registry) destroy(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[gameID]
	if !ok {
		return
	}
	delete(r.sessions, gameID)
	for _, b := range s.bindings {
		if r.byPlayer[b.playerID] == gameID {
			delete(r.byPlayer, b.playerID)
		}
	}
}
