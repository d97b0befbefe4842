// Board representation tests
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

func TestNewBoardHas32UniquePieces(t *testing.T) {
	b := NewBoard()
	if len(b.Pieces) != 32 {
		t.Fatalf("expected 32 pieces, got %d", len(b.Pieces))
	}
	seen := make(map[uint8]bool)
	for id := range b.Pieces {
		if seen[id] {
			t.Fatalf("duplicate piece id %d", id)
		}
		seen[id] = true
	}
	for id, pos := range b.At {
		occ, ok := b.PieceAt(pos)
		if !ok || occ.Id != id {
			t.Fatalf("At/grid desync for id %d at %v", id, pos)
		}
	}
}

func TestNewBoardIDRanges(t *testing.T) {
	b := NewBoard()
	for id, p := range b.Pieces {
		if p.Color == White && id >= 16 {
			t.Fatalf("white piece %d has id out of white range", id)
		}
		if p.Color == Black && id < 16 {
			t.Fatalf("black piece %d has id out of black range", id)
		}
	}
}

func TestParsePosition(t *testing.T) {
	for i, test := range []struct {
		in      string
		want    Position
		wantErr bool
	}{
		{in: "a1", want: Position{0, 0}},
		{in: "h8", want: Position{7, 7}},
		{in: "e4", want: Position{4, 3}},
		{in: "z9", wantErr: true},
		{in: "a", wantErr: true},
	} {
		got, err := ParsePosition(test.in)
		if test.wantErr {
			if err == nil {
				t.Fatalf("case %d: expected error", i)
			}
			continue
		}
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if got != test.want {
			t.Fatalf("case %d: got %v, want %v", i, got, test.want)
		}
	}
}

func TestPositionString(t *testing.T) {
	p := Position{4, 3}
	if p.String() != "e4" {
		t.Fatalf("got %q, want %q", p.String(), "e4")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewBoard()
	clone := b.Clone()
	clone.remove(0)
	if _, ok := b.Pieces[0]; !ok {
		t.Fatalf("mutating clone affected original board")
	}
}
