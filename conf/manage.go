// Manager lifecycle
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
	"fmt"
	"os"
	"os/signal"
)

// Manager is anything with a start/stop lifecycle that Conf.Start
// drives uniformly -- the matchmaking queue, the game registry, the
// protocol listener, and the optional match-record store all
// implement it.
type Manager interface {
	fmt.Stringer
	Start()
	Shutdown()
}

// Register adds m to the set of managers Start/Shutdown drive. It
// must be called before Start.
func (c *Conf) Register(m Manager) {
	if c.run {
		panic(fmt.Sprintf("late register: %#v", m))
	}
	c.man = append(c.man, m)
}

// Start launches every registered manager in its own goroutine,
// then blocks until an interrupt signal or explicit Kill is
// observed, at which point it asks every manager to shut down in
// turn.
func (c *Conf) Start() {
	for _, m := range c.man {
		c.Debug.Printf("starting %s", m)
		go m.Start()
	}
	c.run = true

	intr := make(chan os.Signal, 1)
	signal.Notify(intr, os.Interrupt)
	select {
	case <-intr:
		c.Debug.Println("caught interrupt")
	case <-c.Ctx.Done():
		c.Debug.Println("requested shutdown")
	}

	c.Debug.Println("waiting for managers to shut down")
	for _, m := range c.man {
		c.Debug.Printf("shutting %s down", m)
		m.Shutdown()
	}
	c.Debug.Println("shut down")
}
