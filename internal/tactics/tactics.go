// Package tactics recognizes fork, pin, skewer, and discovered-check
// motifs on a move, given the boards and square-control maps before and
// after it. Ported from the reference tactics detector, re-expressed
// idiomatically over chessutil/control rather than python-chess.
//
// Every detector is total: an internal failure is recovered and yields no
// motif rather than propagating a panic, per §4.5.
package tactics

import (
	"fmt"

	"github.com/rajutkarsh07/chess-analysis-service/internal/chessutil"
	"github.com/rajutkarsh07/chess-analysis-service/internal/control"
	"go.uber.org/zap"
)

// Kind enumerates the four recognized motifs.
type Kind string

const (
	Fork            Kind = "fork"
	Pin             Kind = "pin"
	Skewer          Kind = "skewer"
	DiscoveredCheck Kind = "discovered_check"
)

// Motif is one detected tactical pattern.
type Motif struct {
	Kind          Kind
	PieceSquare   chessutil.Sq
	PieceType     chessutil.PieceType
	TargetSquares []chessutil.Sq
	Move          string
	Description   string
}

var diagonalDirs = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
var orthogonalDirs = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// Detect runs every detector against one move and returns the motifs that
// fired. Callers are expected to invoke this only for the engine's best
// move at full depth, per §4.5's "no tactics on non-best moves" rule — the
// restriction is enforced by the caller (internal/analyzer), not here.
func Detect(before, after *chessutil.Position, move chessutil.Move, cb, ca control.SquareControl, logger *zap.Logger) []Motif {
	var out []Motif
	for _, detector := range []func(*chessutil.Position, *chessutil.Position, chessutil.Move, control.SquareControl, control.SquareControl) *Motif{
		detectFork, detectPin, detectSkewer, detectDiscoveredCheck,
	} {
		if m := safeDetect(detector, before, after, move, cb, ca, logger); m != nil {
			out = append(out, *m)
		}
	}
	return out
}

func safeDetect(
	detector func(*chessutil.Position, *chessutil.Position, chessutil.Move, control.SquareControl, control.SquareControl) *Motif,
	before, after *chessutil.Position, move chessutil.Move, cb, ca control.SquareControl, logger *zap.Logger,
) (result *Motif) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Warn("tactical detector panicked, reporting no motif", zap.Any("recover", r))
			}
			result = nil
		}
	}()
	return detector(before, after, move, cb, ca)
}

func detectFork(before, after *chessutil.Position, move chessutil.Move, cb, ca control.SquareControl) *Motif {
	boardAfter := after.Board()
	mover := boardAfter.Piece(move.To)
	if mover == nil {
		return nil
	}

	to := move.To
	a, d, aMat, dMat := sideValues(ca, to, mover.Color)
	safe := d == 0 || a > d || (a == d && aMat >= dMat)
	if !safe {
		return nil
	}

	boardBefore := before.Board()
	beforePieceAtFrom := boardBefore.Piece(move.From)
	var attackedFromOld []chessutil.Sq
	if beforePieceAtFrom != nil {
		attackedFromOld = control.AttacksFrom(boardBefore, move.From, *beforePieceAtFrom)
	}
	attackedFromNew := control.AttacksFrom(boardAfter, to, *mover)

	var favorable []chessutil.Sq
	for _, t := range attackedFromNew {
		occ := boardAfter.Piece(t)
		if occ == nil || occ.Color == mover.Color {
			continue
		}
		if containsSq(attackedFromOld, t) {
			continue // not a *new* target
		}
		ac, dc, _, _ := sideValues(ca, t, mover.Color)
		if ac > dc || occ.Type.Value() > mover.Type.Value() {
			favorable = append(favorable, t)
		}
	}

	if len(favorable) < 2 {
		return nil
	}
	return &Motif{
		Kind:          Fork,
		PieceSquare:   to,
		PieceType:     mover.Type,
		TargetSquares: favorable,
		Move:          move.UCI,
		Description:   fmt.Sprintf("%s on %s forks %d pieces", pieceName(mover.Type), to, len(favorable)),
	}
}

func detectPin(before, after *chessutil.Position, move chessutil.Move, cb, ca control.SquareControl) *Motif {
	if move.IsCheck {
		return nil
	}
	boardAfter := after.Board()
	mover := boardAfter.Piece(move.To)
	if mover == nil || !isSlider(mover.Type) {
		return nil
	}

	for _, dir := range raysFor(mover.Type) {
		first, second, ok := firstTwoOccupants(boardAfter, move.To, dir)
		if !ok {
			continue
		}
		firstPiece := boardAfter.Piece(first)
		secondPiece := boardAfter.Piece(second)
		if firstPiece == nil || secondPiece == nil {
			continue
		}
		if firstPiece.Color == mover.Color || secondPiece.Color == mover.Color {
			continue
		}
		if pinValue(secondPiece.Type) <= pinValue(firstPiece.Type) {
			continue
		}

		beforeCount := legalMoveCountIgnoringTurn(before, first, firstPiece.Color)
		afterCount := legalMoveCountIgnoringTurn(after, first, firstPiece.Color)
		if !(afterCount < beforeCount) {
			continue
		}

		afterDests := legalDestsIgnoringTurn(after, first, firstPiece.Color)
		if containsSq(afterDests, move.To) {
			continue // first can recapture the mover: not a pin
		}

		if firstPiece.Type.Value() > mover.Type.Value() {
			continue
		}

		return &Motif{
			Kind:          Pin,
			PieceSquare:   move.To,
			PieceType:     mover.Type,
			TargetSquares: []chessutil.Sq{first, second},
			Move:          move.UCI,
			Description:   fmt.Sprintf("%s on %s pins %s to %s", pieceName(mover.Type), move.To, pieceName(firstPiece.Type), second),
		}
	}
	return nil
}

func detectSkewer(before, after *chessutil.Position, move chessutil.Move, cb, ca control.SquareControl) *Motif {
	if move.IsCheck {
		return nil
	}
	boardAfter := after.Board()
	mover := boardAfter.Piece(move.To)
	if mover == nil || !isSlider(mover.Type) {
		return nil
	}

	for _, dir := range raysFor(mover.Type) {
		first, second, ok := firstTwoOccupants(boardAfter, move.To, dir)
		if !ok {
			continue
		}
		firstPiece := boardAfter.Piece(first)
		secondPiece := boardAfter.Piece(second)
		if firstPiece == nil || secondPiece == nil {
			continue
		}
		if firstPiece.Color == mover.Color || secondPiece.Color == mover.Color {
			continue
		}
		if secondPiece.Type.Value() >= firstPiece.Type.Value() {
			continue
		}

		beforeCount := legalMoveCountIgnoringTurn(before, first, firstPiece.Color)
		afterDests := legalDestsIgnoringTurn(after, first, firstPiece.Color)
		afterCount := len(afterDests)
		if !(afterCount < beforeCount) {
			continue
		}
		if !containsSq(afterDests, move.To) {
			continue // first must be able to recapture the mover
		}

		safeEscapes := 0
		for _, d := range afterDests {
			ac, _, _, _ := sideValues(ca, d, mover.Color)
			if ac == 0 {
				safeEscapes++
			}
		}
		if safeEscapes > beforeCount {
			continue
		}

		if firstPiece.Type.Value() <= mover.Type.Value() {
			continue
		}

		return &Motif{
			Kind:          Skewer,
			PieceSquare:   move.To,
			PieceType:     mover.Type,
			TargetSquares: []chessutil.Sq{first, second},
			Move:          move.UCI,
			Description:   fmt.Sprintf("%s on %s skewers %s in front of %s", pieceName(mover.Type), move.To, pieceName(firstPiece.Type), second),
		}
	}
	return nil
}

func detectDiscoveredCheck(before, after *chessutil.Position, move chessutil.Move, cb, ca control.SquareControl) *Motif {
	if !move.IsCheck {
		return nil
	}
	boardAfter := after.Board()
	mover := boardAfter.Piece(move.To)
	if mover == nil {
		return nil
	}

	king, ok := findKing(boardAfter, mover.Color.Opposite())
	if !ok {
		return nil
	}

	var deltaAfter, deltaBefore int
	if mover.Color == chessutil.White {
		deltaAfter, deltaBefore = ca.WhiteAttackers[king], cb.WhiteAttackers[king]
	} else {
		deltaAfter, deltaBefore = ca.BlackAttackers[king], cb.BlackAttackers[king]
	}
	delta := deltaAfter - deltaBefore

	moverAttacksKing := containsSq(control.AttacksFrom(boardAfter, move.To, *mover), king)
	required := 1
	if moverAttacksKing {
		required = 2
	}
	if delta < required {
		return nil
	}

	for i := 0; i < 64; i++ {
		sq := chessutil.Sq(i)
		if sq == move.To {
			continue
		}
		p := boardAfter.Piece(sq)
		if p == nil || p.Color != mover.Color {
			continue
		}
		if containsSq(control.AttacksFrom(boardAfter, sq, *p), king) {
			return &Motif{
				Kind:          DiscoveredCheck,
				PieceSquare:   sq,
				PieceType:     p.Type,
				TargetSquares: []chessutil.Sq{king},
				Move:          move.UCI,
				Description:   fmt.Sprintf("%s on %s delivers a discovered check", pieceName(p.Type), sq),
			}
		}
	}
	return nil
}

func sideValues(sc control.SquareControl, sq chessutil.Sq, attackerColor chessutil.Color) (attacker, defender, attackerMat, defenderMat int) {
	if attackerColor == chessutil.White {
		return sc.WhiteAttackers[sq], sc.BlackAttackers[sq], sc.WhiteMaterial[sq], sc.BlackMaterial[sq]
	}
	return sc.BlackAttackers[sq], sc.WhiteAttackers[sq], sc.BlackMaterial[sq], sc.WhiteMaterial[sq]
}

// pinValue treats the king as the heaviest piece on the board for the pin
// detector's "second opponent piece of strictly greater material value"
// test (§4.5): King.Value() is 0 for control's material-sum purposes, but
// an absolute pin to the king is the canonical case this detector exists
// to find, so the king cannot be valued at 0 here.
func pinValue(pt chessutil.PieceType) int {
	if pt == chessutil.King {
		return 1000
	}
	return pt.Value()
}

func isSlider(pt chessutil.PieceType) bool {
	return pt == chessutil.Bishop || pt == chessutil.Rook || pt == chessutil.Queen
}

func raysFor(pt chessutil.PieceType) [][2]int {
	switch pt {
	case chessutil.Bishop:
		return diagonalDirs
	case chessutil.Rook:
		return orthogonalDirs
	default:
		both := make([][2]int, 0, 8)
		both = append(both, diagonalDirs...)
		both = append(both, orthogonalDirs...)
		return both
	}
}

// firstTwoOccupants walks one ray from `from` and returns the first two
// occupied squares encountered, in order.
func firstTwoOccupants(b *chessutil.Board, from chessutil.Sq, dir [2]int) (first, second chessutil.Sq, ok bool) {
	f, r := from.File(), from.Rank()
	var found []chessutil.Sq
	nf, nr := f+dir[0], r+dir[1]
	for nf >= 0 && nf <= 7 && nr >= 0 && nr <= 7 {
		s := chessutil.NewSq(nf, nr)
		if b.Piece(s) != nil {
			found = append(found, s)
			if len(found) == 2 {
				return found[0], found[1], true
			}
		}
		nf += dir[0]
		nr += dir[1]
	}
	return 0, 0, false
}

func containsSq(list []chessutil.Sq, target chessutil.Sq) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}

func findKing(b *chessutil.Board, color chessutil.Color) (chessutil.Sq, bool) {
	for i := 0; i < 64; i++ {
		sq := chessutil.Sq(i)
		p := b.Piece(sq)
		if p != nil && p.Type == chessutil.King && p.Color == color {
			return sq, true
		}
	}
	return 0, false
}

// legalMoveCountIgnoringTurn and legalDestsIgnoringTurn count/enumerate the
// legal destinations of the piece on `sq` as if `color` were to move,
// regardless of whose turn the position actually records. This mirrors the
// python-chess idiom of temporarily flipping board.turn to answer "how many
// moves would this piece have if it could move right now" — needed because
// the pin/skewer "legal moves lost" comparison is always about the
// non-side-to-move piece.
func legalDestsIgnoringTurn(pos *chessutil.Position, sq chessutil.Sq, color chessutil.Color) []chessutil.Sq {
	dests, err := pos.LegalDestinationsForSquareAsSideToMove(sq, color)
	if err != nil {
		return nil
	}
	return dests
}

func legalMoveCountIgnoringTurn(pos *chessutil.Position, sq chessutil.Sq, color chessutil.Color) int {
	return len(legalDestsIgnoringTurn(pos, sq, color))
}

func pieceName(pt chessutil.PieceType) string {
	switch pt {
	case chessutil.Pawn:
		return "pawn"
	case chessutil.Knight:
		return "knight"
	case chessutil.Bishop:
		return "bishop"
	case chessutil.Rook:
		return "rook"
	case chessutil.Queen:
		return "queen"
	default:
		return "king"
	}
}
