// Configuration specification and management
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

package conf

import (
	"context"
	"io"
	"log"
	"time"
)

// Conf is the public, process-wide configuration object. Unlike the
// TOML-backed configuration this package's predecessor used, every
// field here is sourced from the environment (see io.go) -- there is
// no on-disk configuration file to dump or reload.
type Conf struct {
	Log   *log.Logger
	Debug *log.Logger

	Ctx  context.Context
	Kill context.CancelFunc

	// Transport configuration
	Port uint // port the WebSocket/HTTP listener binds to

	// Matchmaking and session configuration
	MatchmakingTick   time.Duration
	ClockTick         time.Duration
	OutboundCapacity  int
	MaxConnections    int
	InitialClock      time.Duration
	ClockIncrement    time.Duration

	// Persistence configuration
	DatabaseURL string // empty disables match-record persistence

	// Internal state
	man []Manager
	run bool
}

// Default returns the configuration used when no environment
// variable overrides a setting.
func Default() *Conf {
	ctx, kill := context.WithCancel(context.Background())
	return &Conf{
		Log:   log.Default(),
		Debug: log.New(io.Discard, "[debug] ", log.Ltime|log.Lshortfile|log.Lmicroseconds),

		Ctx:  ctx,
		Kill: kill,

		Port: 3000,

		MatchmakingTick:  500 * time.Millisecond,
		ClockTick:        time.Second,
		OutboundCapacity: 64,
		MaxConnections:   0, // read and dumped only; no connection limit is enforced

		InitialClock:   10 * time.Minute,
		ClockIncrement: 0,
	}
}
