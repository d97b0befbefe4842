// Matchmaking queue tests
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

package matchmaking

import (
	"sync"
	"testing"
	"time"
)

type fakeRegistry struct {
	mu      sync.Mutex
	created []string
}

func (f *fakeRegistry) CreateGame(white, black string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := white + "-vs-" + black
	f.created = append(f.created, id)
	return id, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	games  []string
	whites []string
	blacks []string
}

func (f *fakeNotifier) GameCreated(gameID, white, black string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games = append(f.games, gameID)
	f.whites = append(f.whites, white)
	f.blacks = append(f.blacks, black)
}

func TestQueuePairsTwoWaitingPlayers(t *testing.T) {
	reg := &fakeRegistry{}
	not := &fakeNotifier{}
	q := New(10*time.Millisecond, reg, not, func(string) bool { return true })
	go q.Start()
	defer q.Shutdown()

	q.Join("alice")
	q.Join("bob")

	deadline := time.After(time.Second)
	for {
		not.mu.Lock()
		n := len(not.games)
		not.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected one match, got %d after timeout", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	not.mu.Lock()
	defer not.mu.Unlock()
	paired := map[string]bool{not.whites[0]: true, not.blacks[0]: true}
	if !paired["alice"] || !paired["bob"] {
		t.Fatalf("expected alice and bob paired, got white=%s black=%s", not.whites[0], not.blacks[0])
	}
}

func TestQueueDropsDisconnectedEntries(t *testing.T) {
	reg := &fakeRegistry{}
	not := &fakeNotifier{}
	connected := map[string]bool{"alice": false, "bob": true, "carol": true}
	q := New(10*time.Millisecond, reg, not, func(id string) bool { return connected[id] })
	go q.Start()
	defer q.Shutdown()

	q.Join("alice")
	q.Join("bob")
	q.Join("carol")

	deadline := time.After(time.Second)
	for {
		not.mu.Lock()
		n := len(not.games)
		not.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected one match, got %d after timeout", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	not.mu.Lock()
	defer not.mu.Unlock()
	paired := map[string]bool{not.whites[0]: true, not.blacks[0]: true}
	if paired["alice"] {
		t.Fatalf("disconnected player alice should not have been paired")
	}
	if !paired["bob"] || !paired["carol"] {
		t.Fatalf("expected bob and carol paired, got white=%s black=%s", not.whites[0], not.blacks[0])
	}
}
