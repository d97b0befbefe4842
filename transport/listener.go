// HTTP/WebSocket listener lifecycle
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

package transport

import (
	"context"
	"fmt"
	"net/http"

	"chessd"
	"chessd/session"
)

// Listener is the conf.Manager wrapping the HTTP server that serves
// /ws, /health and /api/cards, mirroring the lifecycle the protocol
// listener this package replaces used for its own net.Listener.
type Listener struct {
	srv *http.Server
}

// NewListener builds a Listener bound to addr (e.g. ":3000").
func NewListener(addr string, router *session.Router, outboundCapacity int) *Listener {
	return &Listener{
		srv: &http.Server{
			Addr:    addr,
			Handler: NewMux(router, outboundCapacity),
		},
	}
}

func (l *Listener) String() string { return fmt.Sprintf("http listener on %s", l.srv.Addr) }

func (l *Listener) Start() {
	if err := l.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		chessd.Debug.Println("transport: listener stopped:", err)
	}
}

func (l *Listener) Shutdown() {
	if err := l.srv.Shutdown(context.Background()); err != nil {
		chessd.Debug.Println("transport: shutdown:", err)
	}
}
