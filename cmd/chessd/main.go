// Entry point
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

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"chessd"
	"chessd/conf"
	"chessd/matchmaking"
	"chessd/session"
	"chessd/store"
	"chessd/table"
	"chessd/transport"
)

func main() {
	dumpConf := flag.Bool("dump-config", false, "Print the effective configuration and exit")
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
		os.Exit(1)
	}

	c := conf.Load()
	chessd.Debug.SetOutput(c.Debug.Writer())
	if *dumpConf {
		conf.Dump(c, os.Stdout)
		fmt.Println()
		os.Exit(0)
	}

	var matchStore *store.SQLite
	if c.DatabaseURL != "" {
		var err error
		matchStore, err = store.Open(c.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		c.Register(matchStore)
	}

	registry := table.NewRegistry(c.ClockTick, c.InitialClock, c.ClockIncrement, asStore(matchStore))
	c.Register(registry)

	var router *session.Router
	queue := matchmaking.New(c.MatchmakingTick, registry, notifierFunc(func(gameID, white, black string) {
		router.GameCreated(gameID, white, black)
	}), func(playerID string) bool { return router.Connected(playerID) })
	c.Register(queue)

	router = session.NewRouter(queue, registry)
	c.Register(router)

	listener := transport.NewListener(fmt.Sprintf(":%d", c.Port), router, c.OutboundCapacity)
	c.Register(listener)

	c.Debug.Printf("listening on port %d", c.Port)
	c.Start()
}

// asStore returns s as a table.Store, reporting a genuine nil
// interface (not a non-nil interface wrapping a nil pointer) when no
// store was configured.
func asStore(s *store.SQLite) table.Store {
	if s == nil {
		return nil
	}
	return s
}

type notifierFunc func(gameID, white, black string)

func (f notifierFunc) GameCreated(gameID, white, black string) { f(gameID, white, black) }
