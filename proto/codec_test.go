// Codec round-trip tests
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

package proto

import (
	"encoding/json"
	"testing"
)

func TestDecodeJoinMatchmaking(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"join_matchmaking","player_id":"alice"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	join, ok := msg.(JoinMatchmaking)
	if !ok {
		t.Fatalf("got %T, want JoinMatchmaking", msg)
	}
	if join.PlayerID != "alice" {
		t.Fatalf("got player_id %q, want alice", join.PlayerID)
	}
}

func TestDecodeSubmitActionMovePiece(t *testing.T) {
	raw := []byte(`{"type":"submit_action","game_id":"g1","action":{"action_type":"move_piece","from":{"row":1,"col":4},"to":{"row":3,"col":4}}}`)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub, ok := msg.(SubmitAction)
	if !ok {
		t.Fatalf("got %T, want SubmitAction", msg)
	}
	move, ok := sub.Action.(MovePieceAction)
	if !ok {
		t.Fatalf("got %T, want MovePieceAction", sub.Action)
	}
	if move.From != (Square{Row: 1, Col: 4}) || move.To != (Square{Row: 3, Col: 4}) {
		t.Fatalf("got move %+v", move)
	}
}

func TestDecodeUnknownTypeErrors(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"does_not_exist"}`)); err == nil {
		t.Fatalf("expected an error for an unknown message type")
	}
}

func TestDecodeMalformedJSONErrors(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}

func TestEncodeGameOverHasTypeDiscriminant(t *testing.T) {
	raw, err := Encode(GameOver{Winner: "white", Reason: "checkmate"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var typ string
	if err := json.Unmarshal(fields["type"], &typ); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != "game_over" {
		t.Fatalf("got type %q, want game_over", typ)
	}
}

func TestEncodeMatchmakingJoinedHasTypeDiscriminant(t *testing.T) {
	raw, err := Encode(MatchmakingJoined{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var typ string
	json.Unmarshal(fields["type"], &typ)
	if typ != "matchmaking_joined" {
		t.Fatalf("got type %q, want matchmaking_joined", typ)
	}
}
