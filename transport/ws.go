// WebSocket transport
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

// Package transport wraps gorilla/websocket connections as
// session.Connection values: one reader goroutine decoding frames
// into client messages and routing them, one writer goroutine
// draining a bounded outbound channel, the same read/write pump
// split the teacher's wsrwc adapter and client.Handle use, adapted
// from a raw io.ReadWriteCloser to a real WebSocket connection.
package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chessd"
	"chessd/proto"
	"chessd/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// Conn adapts one WebSocket connection to session.Connection.
type Conn struct {
	ws       *websocket.Conn
	playerID string
	router   *session.Router

	send chan proto.ServerMessage

	closeOnce sync.Once
}

// Send implements session.Connection (and, transitively,
// table.Outbound). A full outbound channel means the peer is not
// draining fast enough; the connection is closed rather than
// blocking the session goroutine that called Send.
func (c *Conn) Send(msg proto.ServerMessage) {
	select {
	case c.send <- msg:
	default:
		chessd.Debug.Println("transport: outbound full for", c.playerID, "- closing")
		c.Close("outbound backpressure")
	}
}

// Close implements session.Connection.
func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		chessd.Debug.Println("transport: closing", c.playerID, "-", reason)
		close(c.send)
		c.ws.Close()
	})
}

func (c *Conn) readPump() {
	defer func() {
		c.router.Detach(c.playerID, c)
		c.Close("read pump exited")
	}()
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		msg, err := proto.Decode(raw)
		if err != nil {
			c.Send(proto.ErrorMessage{Message: err.Error()})
			continue
		}
		c.router.Deliver(c.playerID, msg)
	}
}

func (c *Conn) writePump() {
	for msg := range c.send {
		raw, err := proto.Encode(msg)
		if err != nil {
			chessd.Debug.Println("transport: encode failed:", err)
			continue
		}
		c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
	c.ws.Close()
}

// Handler upgrades an incoming request to a WebSocket and runs its
// connection until the client disconnects. The player id is taken
// from the "player_id" query parameter; a production deployment
// would authenticate the player instead, but that is outside the
// session core.
func Handler(router *session.Router, outboundCapacity int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.URL.Query().Get("player_id")
		if playerID == "" {
			http.Error(w, "player_id required", http.StatusBadRequest)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			chessd.Debug.Println("transport: upgrade failed:", err)
			return
		}

		conn := &Conn{
			ws:       ws,
			playerID: playerID,
			router:   router,
			send:     make(chan proto.ServerMessage, outboundCapacity),
		}
		router.Attach(playerID, conn)

		go conn.writePump()
		conn.readPump()
	}
}
