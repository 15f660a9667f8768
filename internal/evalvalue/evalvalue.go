// Package evalvalue gives perspective-normalized evaluations their own
// type so the white-positive and side-to-move-positive representations
// can never be mixed implicitly.
package evalvalue

// Color is the side to move or the side a value is expressed relative to.
type Color int

const (
	White Color = iota
	Black
)

// Opposite returns the other color.
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// PerspectiveEval carries one evaluation in pawns, tagged with the
// perspective it is expressed in. There is no public numeric field and no
// implicit conversion: callers must go through the named constructors and
// accessors below.
type PerspectiveEval struct {
	pawns       float64
	perspective Color
	isMate      bool
	mateIn      int
}

// FromSideToMoveRelative builds a PerspectiveEval from a side-to-move
// positive pawn value, as returned directly by the engine adapter.
func FromSideToMoveRelative(pawns float64, sideToMove Color) PerspectiveEval {
	return PerspectiveEval{pawns: pawns, perspective: sideToMove}
}

// FromSideToMoveRelativeMate is the mate-score variant.
func FromSideToMoveRelativeMate(mateIn int, sideToMove Color) PerspectiveEval {
	return PerspectiveEval{isMate: true, mateIn: mateIn, perspective: sideToMove}
}

// FromWhitePositive builds a PerspectiveEval already expressed white-positive.
func FromWhitePositive(pawns float64) PerspectiveEval {
	return PerspectiveEval{pawns: pawns, perspective: White}
}

// ToWhitePositive returns the pawn value in white-positive convention,
// negating if the value was stored relative to black.
func (e PerspectiveEval) ToWhitePositive() float64 {
	if e.isMate {
		return e.matePawns(White)
	}
	if e.perspective == Black {
		return -e.pawns
	}
	return e.pawns
}

// ToSideRelative returns the value expressed relative to the given side
// (positive means that side is better).
func (e PerspectiveEval) ToSideRelative(side Color) float64 {
	white := e.ToWhitePositive()
	if side == Black {
		return -white
	}
	return white
}

// matePawns converts a mate score to a large signed pawn sentinel, positive
// when the given perspective is winning.
func (e PerspectiveEval) matePawns(perspective Color) float64 {
	const sentinel = 100.0 // pawns; mirrors the 10000-centipawn wire sentinel
	sign := 1.0
	if e.mateIn < 0 {
		sign = -1.0
	}
	if e.perspective != perspective {
		sign = -sign
	}
	return sign * sentinel
}

// IsMate reports whether this evaluation represents a forced mate.
func (e PerspectiveEval) IsMate() bool {
	return e.isMate
}

// MateIn returns the signed mate distance (valid only if IsMate()).
func (e PerspectiveEval) MateIn() int {
	return e.mateIn
}

// Delta returns after.ToWhitePositive() - before.ToWhitePositive(), always
// in the white-positive convention (the storage convention, per §4.6).
func Delta(before, after PerspectiveEval) float64 {
	return after.ToWhitePositive() - before.ToWhitePositive()
}

// PerspectiveDelta adjusts a white-positive delta for classification:
// positive means the side that moved improved their own position.
func PerspectiveDelta(whitePositiveDelta float64, mover Color) float64 {
	if mover == Black {
		return -whitePositiveDelta
	}
	return whitePositiveDelta
}
