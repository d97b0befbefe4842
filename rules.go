// Move generation and legality
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

package chessd

// MoveError reports why a proposed action was rejected by the rule
// engine. It is never used for impossible internal states -- those
// panic, per the invariant that a corrupt board must not silently
// propagate.
type MoveError string

func (e MoveError) Error() string { return string(e) }

const (
	ErrGameOver           MoveError = "game over"
	ErrNotYourTurn        MoveError = "not your turn"
	ErrNoPiece            MoveError = "no piece on source square"
	ErrWrongColor         MoveError = "piece does not belong to mover"
	ErrIllegalMove        MoveError = "illegal move"
	ErrPromotionRequired  MoveError = "promotion piece required"
	ErrPromotionForbidden MoveError = "promotion piece not allowed here"
)

var knightOffsets = [8][2]int8{
	{1, 2}, {2, 1}, {2, -1}, {1, -2},
	{-1, -2}, {-2, -1}, {-2, 1}, {-1, 2},
}

var kingOffsets = [8][2]int8{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

var bishopDirs = [4][2]int8{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
var rookDirs = [4][2]int8{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// PseudoLegalMoves enumerates destinations reachable by the piece on
// from, ignoring whether the move would leave the mover's own king
// in check. Castling destinations are included only when rights,
// path, and transit-square safety already hold, since computing
// those requires the same attack test castling legality needs
// anyway.
func PseudoLegalMoves(b *Board, from Position) []Position {
	p, ok := b.PieceAt(from)
	if !ok {
		return nil
	}
	var dests []Position
	switch p.Type {
	case Pawn:
		dests = pawnMoves(b, from, p.Color)
	case Knight:
		dests = steppingMoves(b, from, p.Color, knightOffsets[:])
	case Bishop:
		dests = slidingMoves(b, from, p.Color, bishopDirs[:])
	case Rook:
		dests = slidingMoves(b, from, p.Color, rookDirs[:])
	case Queen:
		dests = append(slidingMoves(b, from, p.Color, bishopDirs[:]), slidingMoves(b, from, p.Color, rookDirs[:])...)
	case King:
		dests = steppingMoves(b, from, p.Color, kingOffsets[:])
		dests = append(dests, castlingMoves(b, from, p.Color)...)
	}
	return dests
}

func pawnMoves(b *Board, from Position, c Color) []Position {
	var dests []Position
	dir := int8(1)
	startRank := int8(1)
	if c == Black {
		dir = -1
		startRank = 6
	}

	one := Position{from.File, from.Rank + dir}
	if one.Valid() {
		if _, occupied := b.PieceAt(one); !occupied {
			dests = append(dests, one)
			two := Position{from.File, from.Rank + 2*dir}
			if from.Rank == startRank {
				if _, occupied := b.PieceAt(two); !occupied {
					dests = append(dests, two)
				}
			}
		}
	}

	for _, df := range []int8{-1, 1} {
		cap := Position{from.File + df, from.Rank + dir}
		if !cap.Valid() {
			continue
		}
		if target, occupied := b.PieceAt(cap); occupied && target.Color != c {
			dests = append(dests, cap)
		} else if b.EnPassant != nil && *b.EnPassant == cap {
			dests = append(dests, cap)
		}
	}
	return dests
}

func steppingMoves(b *Board, from Position, c Color, offsets [][2]int8) []Position {
	var dests []Position
	for _, o := range offsets {
		to := Position{from.File + o[0], from.Rank + o[1]}
		if !to.Valid() {
			continue
		}
		if target, occupied := b.PieceAt(to); occupied && target.Color == c {
			continue
		}
		dests = append(dests, to)
	}
	return dests
}

func slidingMoves(b *Board, from Position, c Color, dirs [][2]int8) []Position {
	var dests []Position
	for _, d := range dirs {
		to := Position{from.File + d[0], from.Rank + d[1]}
		for to.Valid() {
			target, occupied := b.PieceAt(to)
			if !occupied {
				dests = append(dests, to)
				to = Position{to.File + d[0], to.Rank + d[1]}
				continue
			}
			if target.Color != c {
				dests = append(dests, to)
			}
			break
		}
	}
	return dests
}

func castlingMoves(b *Board, from Position, c Color) []Position {
	rank := int8(0)
	if c == Black {
		rank = 7
	}
	if from != (Position{4, rank}) {
		return nil
	}
	if IsSquareAttacked(b, from, c.Other()) {
		return nil
	}

	var dests []Position
	kingside, queenside := b.Castling.WK, b.Castling.WQ
	if c == Black {
		kingside, queenside = b.Castling.BK, b.Castling.BQ
	}

	if kingside {
		transit := []Position{{5, rank}, {6, rank}}
		if castlingPathClear(b, transit) && castlingPathSafe(b, transit, c) {
			dests = append(dests, Position{6, rank})
		}
	}
	if queenside {
		transit := []Position{{3, rank}, {2, rank}}
		clearAlso := Position{1, rank}
		if castlingPathClear(b, append(transit, clearAlso)) && castlingPathSafe(b, transit, c) {
			dests = append(dests, Position{2, rank})
		}
	}
	return dests
}

func castlingPathClear(b *Board, squares []Position) bool {
	for _, s := range squares {
		if _, occupied := b.PieceAt(s); occupied {
			return false
		}
	}
	return true
}

func castlingPathSafe(b *Board, squares []Position, c Color) bool {
	for _, s := range squares {
		if IsSquareAttacked(b, s, c.Other()) {
			return false
		}
	}
	return true
}

// IsSquareAttacked reports whether any piece of color by attacks
// pos, using pseudo-legal generation (own-king safety is irrelevant
// to whether a square is attacked).
func IsSquareAttacked(b *Board, pos Position, by Color) bool {
	for id, p := range b.Pieces {
		if p.Color != by {
			continue
		}
		from := b.At[id]
		for _, d := range pseudoAttacks(b, from, p) {
			if d == pos {
				return true
			}
		}
	}
	return false
}

// pseudoAttacks is like PseudoLegalMoves but excludes castling (a
// king never "attacks" through a castle) and treats pawn forward
// squares as non-attacks, since a pawn cannot capture straight
// ahead.
func pseudoAttacks(b *Board, from Position, p Piece) []Position {
	switch p.Type {
	case Pawn:
		dir := int8(1)
		if p.Color == Black {
			dir = -1
		}
		var out []Position
		for _, df := range []int8{-1, 1} {
			to := Position{from.File + df, from.Rank + dir}
			if to.Valid() {
				out = append(out, to)
			}
		}
		return out
	case Knight:
		return steppingMoves(b, from, p.Color, knightOffsets[:])
	case Bishop:
		return slidingMoves(b, from, p.Color, bishopDirs[:])
	case Rook:
		return slidingMoves(b, from, p.Color, rookDirs[:])
	case Queen:
		return append(slidingMoves(b, from, p.Color, bishopDirs[:]), slidingMoves(b, from, p.Color, rookDirs[:])...)
	case King:
		return steppingMoves(b, from, p.Color, kingOffsets[:])
	}
	return nil
}

// InCheck reports whether c's king is currently attacked.
func InCheck(b *Board, c Color) bool {
	king, ok := b.KingPosition(c)
	if !ok {
		return false
	}
	return IsSquareAttacked(b, king, c.Other())
}

// LegalMoves filters PseudoLegalMoves to those that do not leave the
// mover's own king in check.
func LegalMoves(b *Board, from Position) []Position {
	p, ok := b.PieceAt(from)
	if !ok {
		return nil
	}
	var legal []Position
	for _, to := range PseudoLegalMoves(b, from) {
		sim := b.Clone()
		if _, err := applyOn(sim, from, to, Queen, true); err != nil {
			continue
		}
		if !InCheck(sim, p.Color) {
			legal = append(legal, to)
		}
	}
	return legal
}

// AnyLegalMove reports whether color c has at least one legal move
// anywhere on the board.
func AnyLegalMove(b *Board, c Color) bool {
	for id, p := range b.Pieces {
		if p.Color != c {
			continue
		}
		if len(LegalMoves(b, b.At[id])) > 0 {
			return true
		}
	}
	return false
}

// ActionRecord captures the piece-id level effects of one applied
// action so a client can animate it before reconciling with the
// authoritative state.
type ActionRecord struct {
	Mover Color
	From  Position
	To    Position

	PieceID uint8

	IsCapture  bool
	CapturedID uint8

	IsEnPassant         bool
	EnPassantCapturedID uint8

	IsCastle       bool
	CastleRookID   uint8
	CastleRookFrom Position
	CastleRookTo   Position

	IsPromotion    bool
	PromotedFromID uint8
	PromotedToID   uint8
	PromotedType   PieceType

	IsResign bool
	IsDraw   bool
}

// ApplyMove validates and applies a move for the board's current
// side to move, returning the resulting ActionRecord. The board is
// mutated only when the move is legal; on error it is left
// untouched.
func ApplyMove(b *Board, from, to Position, promotion PieceType, hasPromotion bool) (*ActionRecord, error) {
	mover, ok := b.PieceAt(from)
	if !ok {
		return nil, ErrNoPiece
	}
	if mover.Color != b.SideToMove {
		return nil, ErrWrongColor
	}

	legal := false
	for _, l := range LegalMoves(b, from) {
		if l == to {
			legal = true
			break
		}
	}
	if !legal {
		return nil, ErrIllegalMove
	}

	reachesLastRank := (mover.Color == White && to.Rank == 7) || (mover.Color == Black && to.Rank == 0)
	if mover.Type == Pawn && reachesLastRank {
		if !hasPromotion {
			return nil, ErrPromotionRequired
		}
		switch promotion {
		case Queen, Rook, Bishop, Knight:
		default:
			return nil, ErrPromotionForbidden
		}
	} else if hasPromotion {
		return nil, ErrPromotionForbidden
	}

	return applyOn(b, from, to, promotion, hasPromotion)
}

// applyOn performs the mechanical board mutation for an
// already-legal move. hasPromotion selects whether promotion applies;
// it is also used internally by LegalMoves' check-safety simulation
// with hasPromotion=true and promotion=Queen as a placeholder, since
// the promoted piece type cannot affect king safety.
func applyOn(b *Board, from, to Position, promotion PieceType, hasPromotion bool) (*ActionRecord, error) {
	mover, ok := b.PieceAt(from)
	if !ok {
		return nil, ErrNoPiece
	}
	rec := &ActionRecord{Mover: mover.Color, From: from, To: to, PieceID: mover.Id}

	epTarget := b.EnPassant
	b.EnPassant = nil

	if mover.Type == Pawn && epTarget != nil && to == *epTarget {
		capturedRank := from.Rank
		capturedPos := Position{to.File, capturedRank}
		if capturedID, ok := b.idAt(capturedPos); ok {
			rec.IsEnPassant = true
			rec.EnPassantCapturedID = capturedID
			b.remove(capturedID)
		}
	} else if capturedID, ok := b.idAt(to); ok {
		rec.IsCapture = true
		rec.CapturedID = capturedID
		b.remove(capturedID)
	}

	if mover.Type == King && abs8(to.File-from.File) == 2 {
		rec.IsCastle = true
		rank := from.Rank
		if to.File == 6 {
			rookFrom := Position{7, rank}
			rookTo := Position{5, rank}
			if rookID, ok := b.idAt(rookFrom); ok {
				rec.CastleRookID = rookID
				rec.CastleRookFrom = rookFrom
				rec.CastleRookTo = rookTo
				b.relocate(rookID, rookTo)
			}
		} else {
			rookFrom := Position{0, rank}
			rookTo := Position{3, rank}
			if rookID, ok := b.idAt(rookFrom); ok {
				rec.CastleRookID = rookID
				rec.CastleRookFrom = rookFrom
				rec.CastleRookTo = rookTo
				b.relocate(rookID, rookTo)
			}
		}
	}

	if mover.Type == Pawn && abs8(to.Rank-from.Rank) == 2 {
		mid := Position{from.File, (from.Rank + to.Rank) / 2}
		b.EnPassant = &mid
	}

	b.relocate(mover.Id, to)

	reachesLastRank := (mover.Color == White && to.Rank == 7) || (mover.Color == Black && to.Rank == 0)
	if mover.Type == Pawn && reachesLastRank && hasPromotion {
		newID := b.nextPromotionID
		b.nextPromotionID++
		b.remove(mover.Id)
		b.place(Piece{Id: newID, Type: promotion, Color: mover.Color}, to)
		rec.IsPromotion = true
		rec.PromotedFromID = mover.Id
		rec.PromotedToID = newID
		rec.PromotedType = promotion
	}

	updateCastlingRights(b, mover, from)
	if rec.IsCapture {
		updateCastlingRightsOnCapture(b, to, rec.CapturedID)
	}

	if mover.Type == Pawn || rec.IsCapture || rec.IsEnPassant {
		b.HalfmoveClock = 0
	} else {
		b.HalfmoveClock++
	}
	if mover.Color == Black {
		b.FullmoveNumber++
	}
	b.SideToMove = b.SideToMove.Other()

	return rec, nil
}

func updateCastlingRights(b *Board, mover Piece, from Position) {
	switch {
	case mover.Type == King && mover.Color == White:
		b.Castling.WK, b.Castling.WQ = false, false
	case mover.Type == King && mover.Color == Black:
		b.Castling.BK, b.Castling.BQ = false, false
	case mover.Type == Rook && from == (Position{0, 0}):
		b.Castling.WQ = false
	case mover.Type == Rook && from == (Position{7, 0}):
		b.Castling.WK = false
	case mover.Type == Rook && from == (Position{0, 7}):
		b.Castling.BQ = false
	case mover.Type == Rook && from == (Position{7, 7}):
		b.Castling.BK = false
	}
}

func updateCastlingRightsOnCapture(b *Board, to Position, capturedID uint8) {
	_ = capturedID
	switch to {
	case Position{0, 0}:
		b.Castling.WQ = false
	case Position{7, 0}:
		b.Castling.WK = false
	case Position{0, 7}:
		b.Castling.BQ = false
	case Position{7, 7}:
		b.Castling.BK = false
	}
}

func abs8(v int8) int8 {
	if v < 0 {
		return -v
	}
	return v
}

// Status computes the position-derived status of a board: whether
// the side to move is in check, checkmated, stalemated, or the
// material remaining is insufficient to force mate. It never
// reports Resigned or Timeout -- those are session-level events, not
// board-derived facts.
func Status(b *Board) GameStatus {
	if InsufficientMaterial(b) {
		return GameStatus{Kind: DrawInsufficientMaterial}
	}

	mover := b.SideToMove
	has := AnyLegalMove(b, mover)
	check := InCheck(b, mover)

	switch {
	case !has && check:
		return GameStatus{Kind: Checkmate, Winner: mover.Other()}
	case !has:
		return GameStatus{Kind: Stalemate}
	case check:
		return GameStatus{Kind: Check, Winner: mover}
	default:
		return GameStatus{Kind: Active}
	}
}

// InsufficientMaterial reports K-vs-K, K+minor-vs-K, and
// same-colored-bishop K+B-vs-K+B endings.
func InsufficientMaterial(b *Board) bool {
	var whiteMinor, blackMinor []Piece
	for _, p := range b.Pieces {
		switch p.Type {
		case Pawn, Rook, Queen:
			return false
		case Knight, Bishop:
			if p.Color == White {
				whiteMinor = append(whiteMinor, p)
			} else {
				blackMinor = append(blackMinor, p)
			}
		}
	}
	if len(whiteMinor) == 0 && len(blackMinor) == 0 {
		return true
	}
	if len(whiteMinor) == 1 && len(blackMinor) == 0 {
		return true
	}
	if len(blackMinor) == 1 && len(whiteMinor) == 0 {
		return true
	}
	if len(whiteMinor) == 1 && len(blackMinor) == 1 &&
		whiteMinor[0].Type == Bishop && blackMinor[0].Type == Bishop {
		return bishopSquareColor(b, whiteMinor[0]) == bishopSquareColor(b, blackMinor[0])
	}
	return false
}

func bishopSquareColor(b *Board, p Piece) int {
	pos := b.At[p.Id]
	return int(pos.File+pos.Rank) % 2
}
