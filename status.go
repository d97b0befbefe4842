// Game status
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

// StatusKind enumerates the possible states of a game. DrawAgreed is
// not a position-derived fact like the others -- it records that
// both players consented to end the game, and is set by the session
// layer rather than by Status().
type StatusKind uint8

const (
	Active StatusKind = iota
	Check
	Checkmate
	Stalemate
	DrawInsufficientMaterial
	DrawAgreed
	Timeout
	Resigned
)

func (k StatusKind) String() string {
	switch k {
	case Active:
		return "active"
	case Check:
		return "check"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case DrawInsufficientMaterial:
		return "draw_insufficient_material"
	case DrawAgreed:
		return "draw_agreed"
	case Timeout:
		return "timeout"
	case Resigned:
		return "resigned"
	default:
		return "unknown"
	}
}

// GameStatus is the status of a game. Winner names the winner only
// for Checkmate, Timeout and Resigned. For Check it holds the side in
// check; for draw and active kinds it is the zero Color (White) and
// must not be read.
type GameStatus struct {
	Kind   StatusKind
	Winner Color
}

// Terminal reports whether no further actions may be accepted.
func (s GameStatus) Terminal() bool {
	switch s.Kind {
	case Checkmate, Stalemate, DrawInsufficientMaterial, DrawAgreed, Timeout, Resigned:
		return true
	default:
		return false
	}
}

// HasWinner reports whether Winner is meaningful for this status.
func (s GameStatus) HasWinner() bool {
	switch s.Kind {
	case Checkmate, Timeout, Resigned:
		return true
	default:
		return false
	}
}
