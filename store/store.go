// Completed-match persistence
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

// Package store persists completed matches. It is optional: the
// core plays perfectly well with no store configured, since match
// persistence is an external collaborator rather than part of the
// game-session core.
package store

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"chessd"
	"chessd/table"
)

const schema = `
CREATE TABLE IF NOT EXISTS completed_matches (
	game_id         TEXT PRIMARY KEY,
	white_player_id TEXT NOT NULL,
	black_player_id TEXT NOT NULL,
	status          TEXT NOT NULL,
	winner          TEXT,
	started_at      DATETIME NOT NULL,
	ended_at        DATETIME NOT NULL,
	move_count      INTEGER NOT NULL
);`

const insertQuery = `
INSERT OR REPLACE INTO completed_matches
	(game_id, white_player_id, black_player_id, status, winner, started_at, ended_at, move_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`

// SQLite is a fire-and-forget completed-match writer backed by a
// single write connection, the same read/write split discipline the
// database manager this package replaces used for its own
// read-heavy query set -- here there is only ever one kind of
// write, so a single *sql.DB drained by one goroutine is enough.
type SQLite struct {
	write *sql.DB
	queue chan table.CompletedMatchRecord
	shut  chan struct{}
}

// Open creates (if necessary) the schema at dsn and returns a store
// ready to Start.
func Open(dsn string) (*SQLite, error) {
	write, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", dsn, err)
	}
	write.SetMaxOpenConns(1)

	if _, err := write.Exec(schema); err != nil {
		write.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &SQLite{
		write: write,
		queue: make(chan table.CompletedMatchRecord, 64),
		shut:  make(chan struct{}),
	}, nil
}

func (s *SQLite) String() string { return "match store" }

// Start drains the record queue until Shutdown is called.
func (s *SQLite) Start() {
	for {
		select {
		case <-s.shut:
			return
		case rec := <-s.queue:
			s.insert(rec)
		}
	}
}

func (s *SQLite) Shutdown() {
	close(s.shut)
	if err := s.write.Close(); err != nil {
		log.Println("store: close:", err)
	}
}

// Record enqueues a completed match for persistence. It never
// blocks the caller (the GameRegistry) on database I/O: if the
// queue is full the record is dropped and logged, since a slow or
// stuck disk must never stall a game's terminal broadcast.
func (s *SQLite) Record(rec table.CompletedMatchRecord) {
	select {
	case s.queue <- rec:
	default:
		chessd.Debug.Println("store: queue full, dropping completed match", rec.GameID)
	}
}

func (s *SQLite) insert(rec table.CompletedMatchRecord) {
	_, err := s.write.Exec(insertQuery,
		rec.GameID, rec.WhitePlayerID, rec.BlackPlayerID, rec.Status, nullableString(rec.Winner),
		rec.StartedAt, rec.EndedAt, rec.MoveCount)
	if err != nil {
		log.Println("store: insert completed match:", err)
	}
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
