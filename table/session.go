// Per-game authoritative session
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

// Package table holds the GameRegistry (mapping game ids to
// sessions) and the GameSession itself: the single-writer task that
// owns one authoritative chess game, its clocks, and the two player
// bindings.
package table

import (
	"time"

	"chessd"
	"chessd/proto"
)

// Outbound is how a Session reaches a connected player's transport
// without depending on the session/transport packages directly.
type Outbound interface {
	Send(msg proto.ServerMessage)
}

type binding struct {
	playerID string
	outbound Outbound // nil until attached, nil again once detached
}

// sessionMsg is the closed set of inputs a Session's single goroutine
// drains from its mailbox, generalizing the teacher's separate
// move/death channels into one typed queue so clock ticks and state
// requests serialize the same way actions do.
type sessionMsg interface{ isSessionMsg() }

type attachMsg struct {
	color    chessd.Color
	playerID string
	outbound Outbound
}

func (attachMsg) isSessionMsg() {}

type actionMsg struct {
	playerID string
	action   proto.GameAction
}

func (actionMsg) isSessionMsg() {}

type clockTickMsg struct{ now time.Time }

func (clockTickMsg) isSessionMsg() {}

type detachMsg struct{ playerID string }

func (detachMsg) isSessionMsg() {}

type requestStateMsg struct{ playerID string }

func (requestStateMsg) isSessionMsg() {}

type drawOffer struct {
	active bool
	by     chessd.Color
}

// Session is one authoritative game. All mutation happens on the
// goroutine started by run(); everything else communicates through
// mailbox.
type Session struct {
	id    string
	board *chessd.Board
	clock *chessd.Clock

	bindings [2]binding // indexed by chessd.Color
	status   chessd.GameStatus
	draw     drawOffer

	lastAction *chessd.ActionRecord
	moveCount  int
	startedAt  time.Time
	recorded   bool

	mailbox chan sessionMsg
	done    chan struct{}

	registry *Registry
}

func newSession(id string, white, black string, clock *chessd.Clock, registry *Registry) *Session {
	s := &Session{
		id:        id,
		board:     chessd.NewBoard(),
		clock:     clock,
		mailbox:   make(chan sessionMsg, 32),
		done:      make(chan struct{}),
		registry:  registry,
		startedAt: time.Now(),
	}
	s.bindings[chessd.White] = binding{playerID: white}
	s.bindings[chessd.Black] = binding{playerID: black}
	return s
}

// run is the session's single-writer loop, grounded on the
// teacher's game.go Play() select over move/death/timer channels.
func (s *Session) run(clockTick time.Duration) {
	var ticker *time.Ticker
	var tickC <-chan time.Time
	if s.clock != nil {
		ticker = time.NewTicker(clockTick)
		tickC = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case <-s.done:
			return
		case now := <-tickC:
			s.handle(clockTickMsg{now: now})
		case m := <-s.mailbox:
			s.handle(m)
		}
		select {
		case <-s.done:
			return
		default:
		}
	}
}

func (s *Session) colorOf(playerID string) (chessd.Color, bool) {
	if s.bindings[chessd.White].playerID == playerID {
		return chessd.White, true
	}
	if s.bindings[chessd.Black].playerID == playerID {
		return chessd.Black, true
	}
	return chessd.White, false
}

func (s *Session) handle(m sessionMsg) {
	switch msg := m.(type) {
	case attachMsg:
		s.bindings[msg.color] = binding{playerID: msg.playerID, outbound: msg.outbound}
		if s.bindings[chessd.White].outbound != nil && s.bindings[chessd.Black].outbound != nil && s.lastAction == nil {
			s.broadcastState(nil, false)
		}
	case actionMsg:
		s.applyAction(msg.playerID, msg.action)
	case clockTickMsg:
		s.onClockTick(msg.now)
	case detachMsg:
		s.onPlayerDetached(msg.playerID)
	case requestStateMsg:
		s.replyState(msg.playerID)
	}
}

// applyAction validates preconditions in order -- terminal check,
// turn check, rule/action-specific validation -- and reports only
// the first failure, per the ordering the registry's invariants
// require.
func (s *Session) applyAction(playerID string, action proto.GameAction) {
	color, ok := s.colorOf(playerID)
	if !ok {
		s.sendTo(color, proto.ErrorMessage{Message: "not a player in this game"})
		return
	}

	if s.status.Terminal() {
		s.sendTo(color, proto.InvalidAction{Reason: "game over"})
		return
	}

	switch a := action.(type) {
	case proto.MovePieceAction:
		s.applyMove(color, a)
	case proto.ResignAction:
		s.applyResignation(color)
	case proto.OfferDrawAction:
		s.applyOfferDraw(color)
	case proto.AcceptDrawAction:
		s.applyAcceptDraw(color)
	case proto.DeclineDrawAction:
		s.applyDeclineDraw(color)
	default:
		s.sendTo(color, proto.InvalidAction{Reason: "unsupported action"})
	}
}

func (s *Session) applyMove(color chessd.Color, a proto.MovePieceAction) {
	if color != s.board.SideToMove {
		s.sendTo(color, proto.InvalidAction{Reason: "not your turn"})
		return
	}

	// A move must not be accepted if the mover's clock had already
	// run out before this action was even submitted -- relying on the
	// periodic clockTickMsg alone would let a move through in the same
	// tick window as an expiry.
	if s.checkClockExpiry(time.Now()) {
		return
	}

	from := chessd.Position{File: int8(a.From.Col), Rank: int8(a.From.Row)}
	to := chessd.Position{File: int8(a.To.Col), Rank: int8(a.To.Row)}

	var promotion chessd.PieceType
	hasPromotion := a.Promotion != ""
	if hasPromotion {
		pt, ok := parsePieceType(a.Promotion)
		if !ok {
			s.sendTo(color, proto.InvalidAction{Reason: "unknown promotion piece"})
			return
		}
		promotion = pt
	}

	rec, err := chessd.ApplyMove(s.board, from, to, promotion, hasPromotion)
	if err != nil {
		s.sendTo(color, proto.InvalidAction{Reason: err.Error()})
		return
	}

	s.draw = drawOffer{}
	s.moveCount++
	s.lastAction = rec
	if s.clock != nil {
		s.clock.OnMoveAccepted(color, time.Now())
	}
	s.status = chessd.Status(s.board)
	s.broadcastMove(rec)
	if s.status.Terminal() {
		s.sendGameOver(terminalReason(s.status))
	}
	s.maybeFinishOnTerminal()
}

func terminalReason(status chessd.GameStatus) string {
	switch status.Kind {
	case chessd.Checkmate:
		return "checkmate"
	case chessd.Stalemate:
		return "stalemate"
	case chessd.DrawInsufficientMaterial:
		return "insufficient material"
	default:
		return status.Kind.String()
	}
}

func (s *Session) applyResignation(color chessd.Color) {
	s.status = chessd.GameStatus{Kind: chessd.Resigned, Winner: color.Other()}
	s.lastAction = &chessd.ActionRecord{Mover: color, IsResign: true}
	s.draw = drawOffer{}
	s.broadcastState(s.lastAction, true)
	s.sendGameOver("resigned")
	s.maybeFinishOnTerminal()
}

func (s *Session) applyOfferDraw(color chessd.Color) {
	if s.draw.active && s.draw.by != color {
		s.finishDraw()
		return
	}
	if s.draw.active && s.draw.by == color {
		s.sendTo(color, proto.ErrorMessage{Message: "draw already offered"})
		return
	}
	s.draw = drawOffer{active: true, by: color}
}

func (s *Session) applyAcceptDraw(color chessd.Color) {
	if !s.draw.active || s.draw.by == color {
		s.sendTo(color, proto.InvalidAction{Reason: "no draw offered"})
		return
	}
	s.finishDraw()
}

func (s *Session) applyDeclineDraw(color chessd.Color) {
	if !s.draw.active || s.draw.by == color {
		return
	}
	s.draw = drawOffer{}
}

func (s *Session) finishDraw() {
	s.status = chessd.GameStatus{Kind: chessd.DrawAgreed}
	s.draw = drawOffer{}
	s.lastAction = &chessd.ActionRecord{IsDraw: true}
	s.broadcastState(s.lastAction, true)
	s.sendGameOver("draw agreed")
	s.maybeFinishOnTerminal()
}

func (s *Session) onClockTick(now time.Time) {
	s.checkClockExpiry(now)
}

// checkClockExpiry consults the running side's remaining time and, if
// it has run out, finalizes the game as a timeout. It is called both
// from the periodic clockTickMsg and directly at the point a move is
// submitted, so expiry is never missed by a move arriving between two
// ticks.
func (s *Session) checkClockExpiry(now time.Time) bool {
	if s.clock == nil || s.status.Terminal() {
		return false
	}
	timedOut, loser := s.clock.Tick(now)
	if !timedOut {
		return false
	}
	s.status = chessd.GameStatus{Kind: chessd.Timeout, Winner: loser.Other()}
	s.broadcastState(s.lastAction, s.lastAction != nil)
	s.sendGameOver("timeout")
	s.maybeFinishOnTerminal()
	return true
}

func (s *Session) onPlayerDetached(playerID string) {
	color, ok := s.colorOf(playerID)
	if !ok {
		return
	}
	s.bindings[color] = binding{playerID: s.bindings[color].playerID}

	if s.status.Terminal() {
		s.maybeFinishOnTerminal()
		return
	}
	s.status = chessd.GameStatus{Kind: chessd.Resigned, Winner: color.Other()}
	s.broadcastState(s.lastAction, s.lastAction != nil)
	s.sendGameOver("opponent disconnected")
	s.maybeFinishOnTerminal()
}

func (s *Session) replyState(playerID string) {
	color, ok := s.colorOf(playerID)
	if !ok {
		return
	}
	s.sendTo(color, proto.GameStateUpdate{State: s.stateDTO(), LastAction: nil})
}

// broadcastMove sends, in order: to the mover a GameStateUpdate with
// last_action, then to the opponent OpponentAction followed by its
// own GameStateUpdate.
func (s *Session) broadcastMove(rec *chessd.ActionRecord) {
	mover := rec.Mover
	opponent := mover.Other()
	action := actionDTO(rec)

	s.sendTo(mover, proto.GameStateUpdate{State: s.stateDTO(), LastAction: &action})
	s.sendTo(opponent, proto.OpponentAction{Action: action})
	s.sendTo(opponent, proto.GameStateUpdate{State: s.stateDTO(), LastAction: &action})
}

func (s *Session) broadcastState(rec *chessd.ActionRecord, withLastAction bool) {
	var action *chessd.ActionRecord
	if withLastAction {
		action = rec
	}
	var dto *proto.ActionDTO
	if action != nil {
		a := actionDTO(action)
		dto = &a
	}
	s.sendTo(chessd.White, proto.GameStateUpdate{State: s.stateDTO(), LastAction: dto})
	s.sendTo(chessd.Black, proto.GameStateUpdate{State: s.stateDTO(), LastAction: dto})
}

func (s *Session) sendGameOver(reason string) {
	winner := ""
	if s.status.HasWinner() {
		winner = s.status.Winner.String()
	}
	s.sendTo(chessd.White, proto.GameOver{Winner: winner, Reason: reason})
	s.sendTo(chessd.Black, proto.GameOver{Winner: winner, Reason: reason})
}

func (s *Session) sendTo(color chessd.Color, msg proto.ServerMessage) {
	out := s.bindings[color].outbound
	if out == nil {
		return
	}
	out.Send(msg)
}

// maybeFinishOnTerminal destroys the session as soon as status turns
// terminal, regardless of how many sides are still attached: a
// finished game has nothing further to broadcast, and an abruptly
// disconnected opponent should see the game torn down immediately
// rather than wait for their own side to also detach.
func (s *Session) maybeFinishOnTerminal() {
	if !s.status.Terminal() {
		return
	}
	if !s.recorded {
		s.recorded = true
		if s.registry != nil {
			s.registry.recordCompleted(s)
		}
	}
	s.finish()
}

func (s *Session) finish() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.registry != nil {
		s.registry.destroy(s.id)
	}
}

func (s *Session) stateDTO() proto.StateDTO {
	pieces := make([]proto.PieceDTO, 0, len(s.board.Pieces))
	for id, p := range s.board.Pieces {
		pos := s.board.At[id]
		pieces = append(pieces, proto.PieceDTO{
			ID:        id,
			Position:  pos.String(),
			PieceType: p.Type.String(),
			Color:     p.Color.String(),
		})
	}

	dto := proto.StateDTO{
		GameID:       s.id,
		NextPlayerID: s.bindings[s.board.SideToMove].playerID,
		Status:       s.status.Kind.String(),
		BoardState:   pieces,
		CastlingRights: [4]bool{
			s.board.Castling.WK, s.board.Castling.WQ,
			s.board.Castling.BK, s.board.Castling.BQ,
		},
	}
	if s.status.HasWinner() {
		dto.Winner = s.status.Winner.String()
	}
	if s.board.EnPassant != nil {
		dto.EnPassantTarget = s.board.EnPassant.String()
	}
	if s.clock != nil {
		white, black := s.clock.Snapshot(time.Now())
		dto.Time = &proto.ClockDTO{
			WhitePlayerID:      s.bindings[chessd.White].playerID,
			BlackPlayerID:      s.bindings[chessd.Black].playerID,
			WhiteRemainingSecs: int(white.Seconds()),
			BlackRemainingSecs: int(black.Seconds()),
		}
	}
	return dto
}

func actionDTO(rec *chessd.ActionRecord) proto.ActionDTO {
	dto := proto.ActionDTO{
		Mover:   rec.Mover.String(),
		From:    rec.From.String(),
		To:      rec.To.String(),
		PieceID: rec.PieceID,
	}
	if rec.IsCapture {
		dto.IsCapture = true
		dto.CapturedID = rec.CapturedID
	}
	if rec.IsEnPassant {
		dto.IsEnPassant = true
		dto.EnPassantCapturedID = rec.EnPassantCapturedID
	}
	if rec.IsCastle {
		dto.IsCastle = true
		dto.CastleRookID = rec.CastleRookID
		dto.CastleRookFrom = rec.CastleRookFrom.String()
		dto.CastleRookTo = rec.CastleRookTo.String()
	}
	if rec.IsPromotion {
		dto.IsPromotion = true
		dto.PromotedFromID = rec.PromotedFromID
		dto.PromotedToID = rec.PromotedToID
		dto.PromotedType = rec.PromotedType.String()
	}
	return dto
}

func parsePieceType(s string) (chessd.PieceType, bool) {
	switch s {
	case "queen":
		return chessd.Queen, true
	case "rook":
		return chessd.Rook, true
	case "bishop":
		return chessd.Bishop, true
	case "knight":
		return chessd.Knight, true
	default:
		return 0, false
	}
}
