// GameSession integration tests
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
	"sync"
	"testing"
	"time"

	"chessd"
	"chessd/proto"
)

type fakeOutbound struct {
	mu       sync.Mutex
	received []proto.ServerMessage
}

func (f *fakeOutbound) Send(msg proto.ServerMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, msg)
}

func (f *fakeOutbound) messages() []proto.ServerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]proto.ServerMessage, len(f.received))
	copy(out, f.received)
	return out
}

func waitForCount(t *testing.T, f *fakeOutbound, n int) []proto.ServerMessage {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if msgs := f.messages(); len(msgs) >= n {
			return msgs
		}
		select {
		case <-deadline:
			t.Fatalf("expected at least %d messages, got %d", n, len(f.messages()))
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func sq(row, col int) proto.Square { return proto.Square{Row: row, Col: col} }

func move(r *Registry, gameID, playerID string, from, to proto.Square) {
	r.Deliver(gameID, playerID, proto.MovePieceAction{From: from, To: to})
}

func setupGame(t *testing.T) (*Registry, string, *fakeOutbound, *fakeOutbound) {
	t.Helper()
	r := NewRegistry(5*time.Millisecond, 0, 0, nil)
	gameID, err := r.CreateGame("white-player", "black-player")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	whiteOut, blackOut := &fakeOutbound{}, &fakeOutbound{}
	if err := r.Attach(gameID, chessd.White, "white-player", whiteOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Attach(gameID, chessd.Black, "black-player", blackOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForCount(t, whiteOut, 1)
	waitForCount(t, blackOut, 1)
	return r, gameID, whiteOut, blackOut
}

func TestSessionInitialStateHasNoLastAction(t *testing.T) {
	_, _, whiteOut, _ := setupGame(t)
	msgs := whiteOut.messages()
	update, ok := msgs[0].(proto.GameStateUpdate)
	if !ok {
		t.Fatalf("got %T, want GameStateUpdate", msgs[0])
	}
	if update.LastAction != nil {
		t.Fatalf("expected no last_action on initial state")
	}
	if len(update.State.BoardState) != 32 {
		t.Fatalf("expected 32 pieces, got %d", len(update.State.BoardState))
	}
}

func TestSessionScholarsMate(t *testing.T) {
	r, gameID, whiteOut, blackOut := setupGame(t)

	move(r, gameID, "white-player", sq(1, 4), sq(3, 4)) // e2-e4
	waitForCount(t, blackOut, 3)
	move(r, gameID, "black-player", sq(6, 4), sq(4, 4)) // e7-e5
	waitForCount(t, whiteOut, 4)
	move(r, gameID, "white-player", sq(0, 5), sq(3, 2)) // Bf1-c4
	waitForCount(t, blackOut, 6)
	move(r, gameID, "black-player", sq(7, 1), sq(5, 2)) // Nb8-c6
	waitForCount(t, whiteOut, 7)
	move(r, gameID, "white-player", sq(0, 3), sq(4, 7)) // Qd1-h5
	waitForCount(t, blackOut, 9)
	move(r, gameID, "black-player", sq(7, 6), sq(5, 5)) // Ng8-f6
	waitForCount(t, whiteOut, 10)
	move(r, gameID, "white-player", sq(4, 7), sq(6, 5)) // Qh5xf7#

	msgs := waitForCount(t, whiteOut, 12)
	var over *proto.GameOver
	for _, m := range msgs {
		if g, ok := m.(proto.GameOver); ok {
			over = &g
		}
	}
	if over == nil {
		t.Fatalf("expected a GameOver message, got %+v", msgs)
	}
	if over.Winner != "white" || over.Reason != "checkmate" {
		t.Fatalf("got %+v, want winner=white reason=checkmate", over)
	}
}

func TestSessionNotYourTurnRejected(t *testing.T) {
	r, gameID, _, blackOut := setupGame(t)

	move(r, gameID, "black-player", sq(6, 4), sq(4, 4))

	msgs := waitForCount(t, blackOut, 2)
	if _, ok := msgs[1].(proto.InvalidAction); !ok {
		t.Fatalf("got %T, want InvalidAction", msgs[1])
	}
}

func TestSessionPromotionChangesPieceID(t *testing.T) {
	r, gameID, whiteOut, _ := setupGame(t)

	sess, ok := r.lookup(gameID)
	if !ok {
		t.Fatalf("expected session to exist")
	}
	// Fast-forward the board directly to a position one move from
	// promotion; driving 20+ legal moves through the mailbox to
	// reach the same position would just re-test move application,
	// already covered above and at the rule-engine level.
	sess.board.remove(20) // clear the black pawn on e7
	// Move the black king off e8 to h6 so the promotion square is empty.
	sess.board.relocate(28, chessd.Position{File: 7, Rank: 5})
	pawnID, _ := sess.board.idAt(chessd.Position{File: 4, Rank: 1})
	sess.board.relocate(pawnID, chessd.Position{File: 4, Rank: 6})

	r.Deliver(gameID, "white-player", proto.MovePieceAction{From: sq(6, 4), To: sq(7, 4), Promotion: "queen"})

	msgs := waitForCount(t, whiteOut, 2)
	update, ok := msgs[1].(proto.GameStateUpdate)
	if !ok {
		t.Fatalf("got %T, want GameStateUpdate", msgs[1])
	}
	if update.LastAction == nil || !update.LastAction.IsPromotion {
		t.Fatalf("expected a promotion action record, got %+v", update.LastAction)
	}
	if update.LastAction.PromotedFromID != pawnID {
		t.Fatalf("got promoted-from id %d, want %d", update.LastAction.PromotedFromID, pawnID)
	}
	if update.LastAction.PromotedToID < 32 {
		t.Fatalf("new piece id %d should be >= 32", update.LastAction.PromotedToID)
	}
}

func TestSessionAbruptDisconnectResignsAndDestroysGame(t *testing.T) {
	r, gameID, whiteOut, blackOut := setupGame(t)

	r.Detach("white-player")

	msgs := waitForCount(t, blackOut, 3)
	var over *proto.GameOver
	for _, m := range msgs {
		if g, ok := m.(proto.GameOver); ok {
			over = &g
		}
	}
	if over == nil {
		t.Fatalf("expected GameOver, got %+v", msgs)
	}
	if over.Winner != "black" || over.Reason != "opponent disconnected" {
		t.Fatalf("got %+v", over)
	}

	time.Sleep(20 * time.Millisecond)
	if err := r.RequestState(gameID, "black-player"); err == nil {
		t.Fatalf("expected destroyed game to report an error on RequestState")
	}
	_ = whiteOut
}
