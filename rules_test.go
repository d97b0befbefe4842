// Move generation and legality tests
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

import "testing"

func sq(s string) Position {
	p, err := ParsePosition(s)
	if err != nil {
		panic(err)
	}
	return p
}

func TestOpeningPawnMoves(t *testing.T) {
	b := NewBoard()
	for i, test := range []struct {
		from Position
		want int
	}{
		{from: sq("e2"), want: 2},
		{from: sq("a2"), want: 2},
	} {
		got := LegalMoves(b, test.from)
		if len(got) != test.want {
			t.Fatalf("case %d: from %v got %d moves, want %d (%v)", i, test.from, len(got), test.want, got)
		}
	}
}

func TestNotYourTurn(t *testing.T) {
	b := NewBoard()
	_, err := ApplyMove(b, sq("e7"), sq("e5"), 0, false)
	if err != ErrWrongColor {
		t.Fatalf("got %v, want %v", err, ErrWrongColor)
	}
}

func TestScholarsMate(t *testing.T) {
	b := NewBoard()
	moves := []struct{ from, to string }{
		{"e2", "e4"}, {"e7", "e5"},
		{"f1", "c4"}, {"b8", "c6"},
		{"d1", "h5"}, {"g8", "f6"},
		{"h5", "f7"},
	}
	var rec *ActionRecord
	var err error
	for _, m := range moves {
		rec, err = ApplyMove(b, sq(m.from), sq(m.to), 0, false)
		if err != nil {
			t.Fatalf("move %s-%s rejected: %v", m.from, m.to, err)
		}
	}
	if !rec.IsCapture {
		t.Fatalf("final move should capture the f7 pawn")
	}
	status := Status(b)
	if status.Kind != Checkmate {
		t.Fatalf("got status %v, want checkmate", status.Kind)
	}
	if status.Winner != White {
		t.Fatalf("got winner %v, want white", status.Winner)
	}
}

func TestPromotionChangesPieceID(t *testing.T) {
	b := NewBoard()
	// Clear a path for a white pawn to reach e8.
	b.remove(20) // black pawn on e7
	// Move the black king off e8.
	b.relocate(28, sq("h6"))
	pawnID, ok := b.idAt(sq("e2"))
	if !ok {
		t.Fatalf("expected a white pawn on e2")
	}
	b.relocate(pawnID, sq("e7"))

	rec, err := ApplyMove(b, sq("e7"), sq("e8"), Queen, true)
	if err != nil {
		t.Fatalf("promotion rejected: %v", err)
	}
	if !rec.IsPromotion {
		t.Fatalf("expected IsPromotion")
	}
	if rec.PromotedFromID != pawnID {
		t.Fatalf("got promoted-from id %d, want %d", rec.PromotedFromID, pawnID)
	}
	if rec.PromotedToID < firstPromotionID {
		t.Fatalf("new piece id %d should be >= %d", rec.PromotedToID, firstPromotionID)
	}
	if _, ok := b.Pieces[pawnID]; ok {
		t.Fatalf("old pawn id %d should no longer exist", pawnID)
	}
	newPiece, ok := b.Pieces[rec.PromotedToID]
	if !ok || newPiece.Type != Queen {
		t.Fatalf("new piece missing or wrong type: %+v", newPiece)
	}
}

func TestPromotionWithoutChoiceRejected(t *testing.T) {
	b := NewBoard()
	b.remove(20)
	b.relocate(28, sq("h6"))
	pawnID, _ := b.idAt(sq("e2"))
	b.relocate(pawnID, sq("e7"))

	_, err := ApplyMove(b, sq("e7"), sq("e8"), 0, false)
	if err != ErrPromotionRequired {
		t.Fatalf("got %v, want %v", err, ErrPromotionRequired)
	}
}

func TestInsufficientMaterial(t *testing.T) {
	b := &Board{Pieces: map[uint8]Piece{}, At: map[uint8]Position{}, nextPromotionID: firstPromotionID}
	b.place(Piece{Id: 4, Type: King, Color: White}, sq("e1"))
	b.place(Piece{Id: 20, Type: King, Color: Black}, sq("e8"))
	if !InsufficientMaterial(b) {
		t.Fatalf("bare kings should be insufficient material")
	}
}

func TestCastlingRightsLostAfterKingMove(t *testing.T) {
	b := NewBoard()
	b.remove(5) // f1 bishop
	b.remove(6) // g1 knight
	if _, err := ApplyMove(b, sq("e1"), sq("g1"), 0, false); err != nil {
		t.Fatalf("castle rejected: %v", err)
	}
	if b.Castling.WK || b.Castling.WQ {
		t.Fatalf("white castling rights should be lost after castling")
	}
	rook, ok := b.PieceAt(sq("f1"))
	if !ok || rook.Type != Rook {
		t.Fatalf("rook should have landed on f1")
	}
}
