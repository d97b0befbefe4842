// Wire message types
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

// Package proto implements the JSON wire protocol between a client
// and the session core: a "type" discriminant on the outer envelope
// and an "action_type" discriminant on GameAction, the JSON
// counterpart of the line-oriented text protocol this package is
// modeled on.
package proto

// ClientMessage is anything a client may send.
type ClientMessage interface{ isClientMessage() }

type JoinMatchmaking struct {
	PlayerID string `json:"player_id"`
}

func (JoinMatchmaking) isClientMessage() {}

type SubmitAction struct {
	GameID string     `json:"game_id"`
	Action GameAction `json:"action"`
}

func (SubmitAction) isClientMessage() {}

type LeaveGame struct {
	GameID string `json:"game_id"`
}

func (LeaveGame) isClientMessage() {}

type RequestState struct {
	GameID string `json:"game_id"`
}

func (RequestState) isClientMessage() {}

// GameAction is the action_type-discriminated payload of a
// SubmitAction message.
type GameAction interface{ isGameAction() }

// Square is the wire form of a board square, e.g. {"row":1,"col":4}
// for e2 (row/col are both 0..7, row 0 is White's first rank).
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type MovePieceAction struct {
	From       Square  `json:"from"`
	To         Square  `json:"to"`
	Promotion  string  `json:"promotion,omitempty"`
}

func (MovePieceAction) isGameAction() {}

type ResignAction struct{}

func (ResignAction) isGameAction() {}

type OfferDrawAction struct{}

func (OfferDrawAction) isGameAction() {}

type AcceptDrawAction struct{}

func (AcceptDrawAction) isGameAction() {}

type DeclineDrawAction struct{}

func (DeclineDrawAction) isGameAction() {}

// ServerMessage is anything the server may send.
type ServerMessage interface{ isServerMessage() }

type MatchmakingJoined struct{}

func (MatchmakingJoined) isServerMessage() {}

type MatchFound struct {
	GameID     string `json:"game_id"`
	OpponentID string `json:"opponent_id"`
	YourColor  string `json:"your_color"`
}

func (MatchFound) isServerMessage() {}

// PieceDTO is one piece in a board_state listing.
type PieceDTO struct {
	ID        uint8  `json:"id"`
	Position  string `json:"position"`
	PieceType string `json:"piece_type"`
	Color     string `json:"color"`
}

// ClockDTO reports remaining time, keyed by player id. Omitted
// entirely (both fields zero-value-less) when the game has no
// clock.
type ClockDTO struct {
	WhitePlayerID      string `json:"white_player_id,omitempty"`
	BlackPlayerID      string `json:"black_player_id,omitempty"`
	WhiteRemainingSecs int    `json:"white_remaining_seconds"`
	BlackRemainingSecs int    `json:"black_remaining_seconds"`
}

type StateDTO struct {
	GameID          string     `json:"game_id"`
	NextPlayerID    string     `json:"next_player_id"`
	Status          string     `json:"status"`
	Winner          string     `json:"winner,omitempty"`
	BoardState      []PieceDTO `json:"board_state"`
	Time            *ClockDTO  `json:"time,omitempty"`
	CastlingRights  [4]bool    `json:"castling_rights"` // WK, WQ, BK, BQ
	EnPassantTarget string     `json:"en_passant_target,omitempty"`
}

// ActionDTO is the wire form of an ActionRecord.
type ActionDTO struct {
	Mover               string `json:"mover"`
	From                string `json:"from"`
	To                  string `json:"to"`
	PieceID             uint8  `json:"piece_id"`
	IsCapture           bool   `json:"is_capture,omitempty"`
	CapturedID          uint8  `json:"captured_id,omitempty"`
	IsEnPassant         bool   `json:"is_en_passant,omitempty"`
	EnPassantCapturedID uint8  `json:"en_passant_captured_id,omitempty"`
	IsCastle            bool   `json:"is_castle,omitempty"`
	CastleRookID        uint8  `json:"castle_rook_id,omitempty"`
	CastleRookFrom      string `json:"castle_rook_from,omitempty"`
	CastleRookTo        string `json:"castle_rook_to,omitempty"`
	IsPromotion         bool   `json:"is_promotion,omitempty"`
	PromotedFromID      uint8  `json:"promoted_from_id,omitempty"`
	PromotedToID        uint8  `json:"promoted_to_id,omitempty"`
	PromotedType        string `json:"promoted_type,omitempty"`
}

type GameStateUpdate struct {
	State      StateDTO   `json:"state"`
	LastAction *ActionDTO `json:"last_action,omitempty"`
}

func (GameStateUpdate) isServerMessage() {}

type OpponentAction struct {
	Action ActionDTO `json:"action"`
}

func (OpponentAction) isServerMessage() {}

type GameOver struct {
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason"`
}

func (GameOver) isServerMessage() {}

type InvalidAction struct {
	Reason string `json:"reason"`
}

func (InvalidAction) isServerMessage() {}

type ErrorMessage struct {
	Message string `json:"message"`
}

func (ErrorMessage) isServerMessage() {}
