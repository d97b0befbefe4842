// JSON envelope encoding and decoding
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
	"fmt"
)

type envelope struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"-"`
}

// Decode parses one client frame into a concrete ClientMessage. An
// unrecognized type is a decode error -- it is never coerced into a
// best-guess message, matching the rejecting posture of the text
// protocol this package replaces.
func Decode(raw []byte) (ClientMessage, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch head.Type {
	case "join_matchmaking":
		var m JoinMatchmaking
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("malformed join_matchmaking: %w", err)
		}
		return m, nil
	case "submit_action":
		var body struct {
			GameID string          `json:"game_id"`
			Action json.RawMessage `json:"action"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("malformed submit_action: %w", err)
		}
		action, err := decodeAction(body.Action)
		if err != nil {
			return nil, err
		}
		return SubmitAction{GameID: body.GameID, Action: action}, nil
	case "leave_game":
		var m LeaveGame
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("malformed leave_game: %w", err)
		}
		return m, nil
	case "request_state":
		var m RequestState
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("malformed request_state: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported message type %q", head.Type)
	}
}

func decodeAction(raw json.RawMessage) (GameAction, error) {
	var head struct {
		ActionType string `json:"action_type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("malformed action: %w", err)
	}
	switch head.ActionType {
	case "move_piece":
		var a MovePieceAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("malformed move_piece: %w", err)
		}
		return a, nil
	case "resign":
		return ResignAction{}, nil
	case "offer_draw":
		return OfferDrawAction{}, nil
	case "accept_draw":
		return AcceptDrawAction{}, nil
	case "decline_draw":
		return DeclineDrawAction{}, nil
	default:
		return nil, fmt.Errorf("unsupported action_type %q", head.ActionType)
	}
}

// Encode serializes a ServerMessage with its type discriminant. It
// cannot fail for any message this package constructs -- the error
// return exists for interface uniformity with Decode and for
// exotic application-supplied DTOs that do not marshal cleanly.
func Encode(msg ServerMessage) ([]byte, error) {
	typ, ok := serverMessageType(msg)
	if !ok {
		return nil, fmt.Errorf("unknown server message type %T", msg)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	fields["type"] = json.RawMessage(fmt.Sprintf("%q", typ))
	return json.Marshal(fields)
}

func serverMessageType(msg ServerMessage) (string, bool) {
	switch msg.(type) {
	case MatchmakingJoined:
		return "matchmaking_joined", true
	case MatchFound:
		return "match_found", true
	case GameStateUpdate:
		return "game_state_update", true
	case OpponentAction:
		return "opponent_action", true
	case GameOver:
		return "game_over", true
	case InvalidAction:
		return "invalid_action", true
	case ErrorMessage:
		return "error", true
	default:
		return "", false
	}
}
