package control

import (
	"testing"

	"github.com/rajutkarsh07/chess-analysis-service/internal/chessutil"
)

func TestComputeStartingPositionSymmetry(t *testing.T) {
	pos := chessutil.StartingPosition()
	sc := Compute(pos)

	if sc.Empty() {
		t.Fatal("Compute returned an empty result for a valid position")
	}

	var whiteTotal, blackTotal int
	for i := 0; i < 64; i++ {
		whiteTotal += sc.WhiteAttackers[i]
		blackTotal += sc.BlackAttackers[i]
		if sc.WhiteAttackers[i] < 0 || sc.BlackAttackers[i] < 0 {
			t.Fatalf("negative attacker count at square %d", i)
		}
	}

	if whiteTotal != blackTotal {
		t.Errorf("starting position attacker counts should be mirror-symmetric: white=%d black=%d", whiteTotal, blackTotal)
	}
	if whiteTotal == 0 {
		t.Error("expected a nonzero number of attacked squares from the starting position")
	}

	if len(sc.LegalDestinations) == 0 {
		t.Error("expected legal destinations for the side to move")
	}
}

func TestComputeKnightAttacksCorners(t *testing.T) {
	pos, err := chessutil.FromFEN("8/8/8/8/8/8/8/N7 w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	sc := Compute(pos)

	// a1-knight attacks b3 and c2 only.
	b3 := chessutil.NewSq(1, 2)
	c2 := chessutil.NewSq(2, 1)
	if sc.WhiteAttackers[b3] != 1 {
		t.Errorf("expected knight on a1 to attack b3, got count %d", sc.WhiteAttackers[b3])
	}
	if sc.WhiteAttackers[c2] != 1 {
		t.Errorf("expected knight on a1 to attack c2, got count %d", sc.WhiteAttackers[c2])
	}

	a1 := chessutil.NewSq(0, 0)
	if sc.WhiteAttackers[a1] != 0 {
		t.Errorf("a knight does not attack its own square, got count %d", sc.WhiteAttackers[a1])
	}
}

func TestComputeSlideStopsAtFirstOccupant(t *testing.T) {
	// Rook on a1, blocker on a4: should attack a2, a3, a4 but not a5+.
	pos, err := chessutil.FromFEN("8/8/8/8/p7/8/8/R7 w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	sc := Compute(pos)

	a3 := chessutil.NewSq(0, 2)
	a4 := chessutil.NewSq(0, 3)
	a5 := chessutil.NewSq(0, 4)

	if sc.WhiteAttackers[a3] != 1 {
		t.Errorf("expected rook to attack a3, count=%d", sc.WhiteAttackers[a3])
	}
	if sc.WhiteAttackers[a4] != 1 {
		t.Errorf("expected rook to attack the blocking pawn's square a4, count=%d", sc.WhiteAttackers[a4])
	}
	if sc.WhiteAttackers[a5] != 0 {
		t.Errorf("rook's ray should stop at the first occupant, got attacker at a5 count=%d", sc.WhiteAttackers[a5])
	}
}

func TestAttacksFromPawnDirectionByColor(t *testing.T) {
	pos, err := chessutil.FromFEN("8/8/8/8/8/8/8/8 w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	board := pos.Board()

	whitePawn := chessutil.Piece{Type: chessutil.Pawn, Color: chessutil.White}
	d4 := chessutil.NewSq(3, 3)
	attacks := AttacksFrom(board, d4, whitePawn)
	if len(attacks) != 2 {
		t.Fatalf("expected a white pawn on an open board to have 2 attacked squares, got %d", len(attacks))
	}
	for _, sq := range attacks {
		if sq.Rank() != 4 {
			t.Errorf("white pawn on d4 should attack rank 5 squares, got rank %d", sq.Rank()+1)
		}
	}

	blackPawn := chessutil.Piece{Type: chessutil.Pawn, Color: chessutil.Black}
	attacks = AttacksFrom(board, d4, blackPawn)
	for _, sq := range attacks {
		if sq.Rank() != 2 {
			t.Errorf("black pawn on d4 should attack rank 3 squares, got rank %d", sq.Rank()+1)
		}
	}
}
