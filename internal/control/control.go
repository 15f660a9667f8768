// Package control computes per-square attacker counts and material-weighted
// control for both colors (§4.4). The occupancy truth always comes from
// chessutil (itself backed by github.com/notnil/chess); this package only
// walks the geometry of sliding rays, knight leaps, king steps, and pawn
// captures against that occupancy. It does not reimplement legal-move
// generation — LegalDestinations is populated straight from
// Position.ValidMoves.
package control

import "github.com/rajutkarsh07/chess-analysis-service/internal/chessutil"

// SquareControl is the per-square attacker census for one position.
type SquareControl struct {
	WhiteAttackers [64]int
	BlackAttackers [64]int
	WhiteMaterial  [64]int
	BlackMaterial  [64]int

	// LegalDestinations maps each piece square belonging to the side to
	// move to its list of legal destination squares.
	LegalDestinations map[chessutil.Sq][]chessutil.Sq
}

// Empty reports whether this is the zero-value placeholder returned on
// internal failure.
func (sc SquareControl) Empty() bool {
	return sc.LegalDestinations == nil
}

var knightOffsets = [][2]int{{1, 2}, {2, 1}, {-1, 2}, {-2, 1}, {1, -2}, {2, -1}, {-1, -2}, {-2, -1}}
var kingOffsets = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
var diagonalDirs = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
var orthogonalDirs = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// Compute derives a SquareControl for a position. It is a pure function:
// no caching, no side effects. Any internal failure (panic during the walk)
// is recovered and an empty struct returned, because callers use this
// defensively around engine I/O.
func Compute(pos *chessutil.Position) (result SquareControl) {
	defer func() {
		if recover() != nil {
			result = SquareControl{}
		}
	}()

	board := pos.Board()

	for i := 0; i < 64; i++ {
		sq := chessutil.Sq(i)
		piece := board.Piece(sq)
		if piece == nil {
			continue
		}

		for _, t := range AttacksFrom(board, sq, *piece) {
			if piece.Color == chessutil.White {
				result.WhiteAttackers[t]++
				result.WhiteMaterial[t] += piece.Type.Value()
			} else {
				result.BlackAttackers[t]++
				result.BlackMaterial[t] += piece.Type.Value()
			}
		}
	}

	result.LegalDestinations = make(map[chessutil.Sq][]chessutil.Sq)
	for _, m := range pos.ValidMoves() {
		result.LegalDestinations[m.From] = append(result.LegalDestinations[m.From], m.To)
	}

	return result
}

// AttacksFrom returns every square a piece on sq attacks, independent of
// whether those squares are occupied — "would capture there if an
// opposing piece were there", per §4.4. Exported so the tactics detectors
// can recompute geometry from an arbitrary square (e.g. a piece's square
// before it moved) without a full board recompute.
func AttacksFrom(b *chessutil.Board, sq chessutil.Sq, p chessutil.Piece) []chessutil.Sq {
	switch p.Type {
	case chessutil.Knight:
		return leap(sq, knightOffsets)
	case chessutil.King:
		return leap(sq, kingOffsets)
	case chessutil.Bishop:
		return slide(b, sq, diagonalDirs)
	case chessutil.Rook:
		return slide(b, sq, orthogonalDirs)
	case chessutil.Queen:
		out := slide(b, sq, diagonalDirs)
		return append(out, slide(b, sq, orthogonalDirs)...)
	case chessutil.Pawn:
		return pawnAttacks(sq, p.Color)
	default:
		return nil
	}
}

func leap(sq chessutil.Sq, offsets [][2]int) []chessutil.Sq {
	f, r := sq.File(), sq.Rank()
	out := make([]chessutil.Sq, 0, len(offsets))
	for _, d := range offsets {
		nf, nr := f+d[0], r+d[1]
		if nf < 0 || nf > 7 || nr < 0 || nr > 7 {
			continue
		}
		out = append(out, chessutil.NewSq(nf, nr))
	}
	return out
}

// slide walks each direction until it leaves the board or hits an
// occupied square, which blocks the ray but is itself an attacked square.
func slide(b *chessutil.Board, sq chessutil.Sq, dirs [][2]int) []chessutil.Sq {
	f, r := sq.File(), sq.Rank()
	var out []chessutil.Sq
	for _, d := range dirs {
		nf, nr := f+d[0], r+d[1]
		for nf >= 0 && nf <= 7 && nr >= 0 && nr <= 7 {
			s := chessutil.NewSq(nf, nr)
			out = append(out, s)
			if b.Piece(s) != nil {
				break
			}
			nf += d[0]
			nr += d[1]
		}
	}
	return out
}

func pawnAttacks(sq chessutil.Sq, color chessutil.Color) []chessutil.Sq {
	f, r := sq.File(), sq.Rank()
	dr := 1
	if color == chessutil.Black {
		dr = -1
	}
	out := make([]chessutil.Sq, 0, 2)
	for _, df := range []int{-1, 1} {
		nf, nr := f+df, r+dr
		if nf < 0 || nf > 7 || nr < 0 || nr > 7 {
			continue
		}
		out = append(out, chessutil.NewSq(nf, nr))
	}
	return out
}
