// SessionRouter: connection registry and message dispatch
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

// Package session implements the SessionRouter: it owns every live
// connection, binds a connection to at most one game, and routes
// decoded client messages to the matchmaking queue or the bound
// game.
package session

import (
	"sync"

	"chessd"
	"chessd/matchmaking"
	"chessd/proto"
	"chessd/table"
)

// Connection is how the router reaches a client's transport. It is
// implemented by chessd/transport's WebSocket wrapper; tests use a
// plain in-memory fake.
type Connection interface {
	Send(msg proto.ServerMessage)
	Close(reason string)
}

type connRecord struct {
	conn      Connection
	boundGame string
	queued    bool
}

// Router is the SessionRouter. Its connection map is the only
// structure shared across games; each game's own state lives behind
// the single-writer Session goroutine in chessd/table.
type Router struct {
	mu    sync.RWMutex
	conns map[string]*connRecord

	queue    *matchmaking.Queue
	registry *table.Registry
}

func NewRouter(queue *matchmaking.Queue, registry *table.Registry) *Router {
	return &Router{
		conns:    make(map[string]*connRecord),
		queue:    queue,
		registry: registry,
	}
}

func (r *Router) String() string { return "session router" }
func (r *Router) Start()         {}
func (r *Router) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conns {
		c.conn.Close("server shutting down")
	}
}

// Attach registers a new connection under playerID. A prior
// connection under the same id is closed with reason "replaced", so
// a player id has at most one live connection.
func (r *Router) Attach(playerID string, conn Connection) {
	r.mu.Lock()
	prev, existed := r.conns[playerID]
	r.conns[playerID] = &connRecord{conn: conn}
	r.mu.Unlock()

	if existed {
		prev.conn.Close("replaced")
	}
}

// Detach forgets playerID's connection (if it still matches conn --
// a connection replaced by Attach must not tear down the new one
// when its own reader goroutine notices the old socket died) and
// tells matchmaking and the registry the player went absent.
func (r *Router) Detach(playerID string, conn Connection) {
	r.mu.Lock()
	cur, ok := r.conns[playerID]
	if ok && cur.conn == conn {
		delete(r.conns, playerID)
	}
	r.mu.Unlock()

	r.queue.Leave(playerID)
	r.registry.Detach(playerID)
}

// connected is passed to the matchmaking queue so it can drop
// entries for players who disconnected while still queued.
func (r *Router) connected(playerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[playerID]
	return ok
}

// Connected exposes connected for wiring in cmd/chessd.
func (r *Router) Connected(playerID string) bool { return r.connected(playerID) }

// Deliver dispatches one decoded client message, per the table in
// component 4.1.
func (r *Router) Deliver(playerID string, msg proto.ClientMessage) {
	switch m := msg.(type) {
	case proto.JoinMatchmaking:
		r.handleJoinMatchmaking(playerID)
	case proto.SubmitAction:
		r.handleSubmitAction(playerID, m)
	case proto.LeaveGame:
		r.handleLeaveGame(playerID, m)
	case proto.RequestState:
		r.handleRequestState(playerID, m)
	default:
		r.reply(playerID, proto.ErrorMessage{Message: "unsupported message"})
	}
}

func (r *Router) handleJoinMatchmaking(playerID string) {
	r.mu.Lock()
	rec, ok := r.conns[playerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if rec.boundGame != "" {
		r.mu.Unlock()
		r.reply(playerID, proto.ErrorMessage{Message: "already in a game"})
		return
	}
	if rec.queued {
		r.mu.Unlock()
		r.reply(playerID, proto.ErrorMessage{Message: "already queued"})
		return
	}
	rec.queued = true
	r.mu.Unlock()

	r.queue.Join(playerID)
	r.reply(playerID, proto.MatchmakingJoined{})
}

func (r *Router) handleSubmitAction(playerID string, m proto.SubmitAction) {
	gameID, ok := r.boundGame(playerID)
	if !ok || gameID != m.GameID {
		r.reply(playerID, proto.ErrorMessage{Message: "not bound to that game"})
		return
	}
	if err := r.registry.Deliver(gameID, playerID, m.Action); err != nil {
		r.reply(playerID, proto.ErrorMessage{Message: err.Error()})
	}
}

func (r *Router) handleLeaveGame(playerID string, m proto.LeaveGame) {
	gameID, ok := r.boundGame(playerID)
	if !ok || gameID != m.GameID {
		r.reply(playerID, proto.ErrorMessage{Message: "not bound to that game"})
		return
	}
	// The binding still names the game, so a lookup failure means the
	// game already ended and was destroyed: leaving it is a no-op.
	if err := r.registry.Leave(gameID, playerID); err != nil {
		chessd.Debug.Println("session: ignoring leave of ended game:", err)
	}
}

func (r *Router) handleRequestState(playerID string, m proto.RequestState) {
	gameID, ok := r.boundGame(playerID)
	if !ok || gameID != m.GameID {
		r.reply(playerID, proto.ErrorMessage{Message: "not bound to that game"})
		return
	}
	if err := r.registry.RequestState(gameID, playerID); err != nil {
		r.reply(playerID, proto.ErrorMessage{Message: err.Error()})
	}
}

func (r *Router) boundGame(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.conns[playerID]
	if !ok || rec.boundGame == "" {
		return "", false
	}
	return rec.boundGame, true
}

func (r *Router) reply(playerID string, msg proto.ServerMessage) {
	r.mu.RLock()
	rec, ok := r.conns[playerID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	rec.conn.Send(msg)
}

// GameCreated implements matchmaking.Notifier: it binds each
// player's connection into the new game's registry entry and sends
// MatchFound, mirroring the component design's requirement that
// matchmaking (not the session) announces pairing.
func (r *Router) GameCreated(gameID string, white, black string) {
	r.bindAndAnnounce(gameID, chessd.White, white, black)
	r.bindAndAnnounce(gameID, chessd.Black, black, white)
}

func (r *Router) bindAndAnnounce(gameID string, color chessd.Color, playerID, opponentID string) {
	r.mu.Lock()
	rec, ok := r.conns[playerID]
	if ok {
		rec.boundGame = gameID
		rec.queued = false
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	// MatchFound goes out before the attach is posted, so it always
	// precedes the session's initial GameStateUpdate.
	rec.conn.Send(proto.MatchFound{
		GameID:     gameID,
		OpponentID: opponentID,
		YourColor:  color.String(),
	})
	r.registry.Attach(gameID, color, playerID, rec.conn)
}
