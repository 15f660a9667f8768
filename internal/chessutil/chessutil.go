// Package chessutil adapts github.com/notnil/chess into the small set of
// primitives the rest of this repository needs: FEN/PGN parsing, legal-move
// enumeration, SAN rendering, and a plain board snapshot for the
// square-control calculator to walk. All move generation and legality
// decisions are delegated to the library; nothing here reimplements them.
package chessutil

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// Color mirrors chess.Color without leaking the upstream type into every
// package that needs one.
type Color int

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func colorFromChess(c chess.Color) Color {
	if c == chess.Black {
		return Black
	}
	return White
}

// PieceType enumerates the six piece kinds.
type PieceType int

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

// Value returns the material value used throughout §4.4/§4.5:
// P=1 N=B=3 R=5 Q=9 K=0.
func (pt PieceType) Value() int {
	switch pt {
	case Pawn:
		return 1
	case Knight, Bishop:
		return 3
	case Rook:
		return 5
	case Queen:
		return 9
	default:
		return 0
	}
}

func pieceTypeFromChess(pt chess.PieceType) PieceType {
	switch pt {
	case chess.Pawn:
		return Pawn
	case chess.Knight:
		return Knight
	case chess.Bishop:
		return Bishop
	case chess.Rook:
		return Rook
	case chess.Queen:
		return Queen
	default:
		return King
	}
}

// Piece is a colored piece occupying a square.
type Piece struct {
	Color Color
	Type  PieceType
}

// Sq is a 0..63 square index, a1=0, b1=1, ..., h8=63 (file-major within
// rank, ranks ascending) — independent of the upstream library's own
// internal numbering; only algebraic strings cross the boundary.
type Sq int

// File returns 0..7 for a..h.
func (s Sq) File() int { return int(s) % 8 }

// Rank returns 0..7 for ranks 1..8.
func (s Sq) Rank() int { return int(s) / 8 }

// NewSq builds a Sq from zero-based file and rank.
func NewSq(file, rank int) Sq { return Sq(rank*8 + file) }

// Valid reports whether file/rank stay on the board.
func (s Sq) Valid() bool {
	f, r := s.File(), s.Rank()
	return f >= 0 && f < 8 && r >= 0 && r < 8
}

// String renders algebraic notation, e.g. "e4".
func (s Sq) String() string {
	return fmt.Sprintf("%c%d", 'a'+rune(s.File()), s.Rank()+1)
}

func sqFromAlgebraic(a string) (Sq, error) {
	if len(a) != 2 {
		return 0, fmt.Errorf("invalid square %q", a)
	}
	file := int(a[0] - 'a')
	rank := int(a[1] - '1')
	sq := NewSq(file, rank)
	if !sq.Valid() {
		return 0, fmt.Errorf("invalid square %q", a)
	}
	return sq, nil
}

// Board is a plain 64-square occupancy snapshot, the only view the
// square-control calculator needs. It is derived once from a
// chess.Position and never mutated.
type Board struct {
	squares [64]*Piece
}

// Piece returns the occupant of sq, or nil if empty.
func (b *Board) Piece(sq Sq) *Piece {
	if sq < 0 || sq > 63 {
		return nil
	}
	return b.squares[sq]
}

func snapshotBoard(pos *chess.Position) *Board {
	b := &Board{}
	for sq, piece := range pos.Board().SquareMap() {
		idx, err := sqFromAlgebraic(sq.String())
		if err != nil {
			continue
		}
		p := Piece{Color: colorFromChess(piece.Color()), Type: pieceTypeFromChess(piece.Type())}
		b.squares[idx] = &p
	}
	return b
}

// Move is one legal move, in both long-algebraic and SAN form, with the
// tags the tactics/analyzer packages need.
type Move struct {
	From      Sq
	To        Sq
	Promotion PieceType
	HasPromo  bool
	UCI       string
	SAN       string
	IsCapture bool
	IsCheck   bool

	raw *chess.Move
}

// Position wraps one chess.Position: the board, side to move, and the
// legal-move generator.
type Position struct {
	pos *chess.Position
}

// FromFEN parses a FEN string into a Position.
func FromFEN(fen string) (*Position, error) {
	fn, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse FEN: %w", err)
	}
	g := chess.NewGame(fn)
	return &Position{pos: g.Position()}, nil
}

// FEN renders the position back to a FEN string.
func (p *Position) FEN() string {
	return p.pos.String()
}

// Turn returns the side to move.
func (p *Position) Turn() Color {
	return colorFromChess(p.pos.Turn())
}

// Board returns a plain-occupancy snapshot for geometric computation.
func (p *Position) Board() *Board {
	return snapshotBoard(p.pos)
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.pos.InCheck()
}

// ValidMoves delegates full legal-move generation to the library.
func (p *Position) ValidMoves() []Move {
	raw := p.pos.ValidMoves()
	moves := make([]Move, 0, len(raw))
	for _, m := range raw {
		moves = append(moves, p.wrapMove(m))
	}
	return moves
}

// LegalDestinations returns the set of legal destination squares for the
// piece on `from`, used by the pin/skewer "legal moves lost" comparison.
func (p *Position) LegalDestinations(from Sq) []Sq {
	dests := make([]Sq, 0, 8)
	for _, m := range p.ValidMoves() {
		if m.From == from {
			dests = append(dests, m.To)
		}
	}
	return dests
}

// LegalDestinationsForSquareAsSideToMove returns the legal destinations of
// the piece on sq as if `color` were on move, regardless of the position's
// actual side to move. The pin/skewer "legal moves lost" comparison is
// always about the piece that did not just move, so it must be evaluated
// from a side-to-move flip — mirroring the python-chess idiom of
// temporarily toggling board.turn — rather than the mover's own side.
func (p *Position) LegalDestinationsForSquareAsSideToMove(sq Sq, color Color) ([]Sq, error) {
	fields := strings.Fields(p.FEN())
	if len(fields) < 2 {
		return nil, fmt.Errorf("malformed FEN %q", p.FEN())
	}
	active := "w"
	if color == Black {
		active = "b"
	}
	fields[1] = active

	fn, err := chess.FEN(strings.Join(fields, " "))
	if err != nil {
		return nil, fmt.Errorf("flip side to move: %w", err)
	}
	flipped := &Position{pos: chess.NewGame(fn).Position()}
	return flipped.LegalDestinations(sq), nil
}

// ApplyMove returns the position reached after playing m.
func (p *Position) ApplyMove(m Move) (*Position, error) {
	if m.raw == nil {
		return nil, fmt.Errorf("move %s is not backed by a legal move", m.UCI)
	}
	next := p.pos.Update(m.raw)
	return &Position{pos: next}, nil
}

func (p *Position) wrapMove(m *chess.Move) Move {
	from, _ := sqFromAlgebraic(m.S1().String())
	to, _ := sqFromAlgebraic(m.S2().String())

	wrapped := Move{
		From:      from,
		To:        to,
		UCI:       m.String(),
		IsCapture: m.HasTag(chess.Capture),
		IsCheck:   m.HasTag(chess.Check),
		raw:       m,
	}
	if m.Promo() != chess.NoPieceType {
		wrapped.Promotion = pieceTypeFromChess(m.Promo())
		wrapped.HasPromo = true
	}
	wrapped.SAN = chess.AlgebraicNotation{}.Encode(p.pos, m)
	return wrapped
}

// FindMoveByUCI resolves a long-algebraic move string ("e2e4", "e7e8q")
// against the position's legal moves.
func (p *Position) FindMoveByUCI(uci string) (Move, bool) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	for _, m := range p.ValidMoves() {
		if strings.ToLower(m.UCI) == uci {
			return m, true
		}
	}
	return Move{}, false
}

// DecodedGame is a PGN mainline reduced to its position/move sequence.
// Variations, comments, and NAGs are dropped, matching §6.
type DecodedGame struct {
	Positions []*Position
	Moves     []Move
}

// DecodePGN parses a single PGN game's mainline.
func DecodePGN(pgn string) (*DecodedGame, error) {
	if strings.TrimSpace(pgn) == "" {
		return nil, fmt.Errorf("empty PGN")
	}

	fn, err := chess.PGN(strings.NewReader(pgn))
	if err != nil {
		return nil, fmt.Errorf("parse PGN: %w", err)
	}
	g := chess.NewGame(fn)

	rawPositions := g.Positions()
	rawMoves := g.Moves()

	out := &DecodedGame{
		Positions: make([]*Position, 0, len(rawPositions)),
		Moves:     make([]Move, 0, len(rawMoves)),
	}
	for _, rp := range rawPositions {
		out.Positions = append(out.Positions, &Position{pos: rp})
	}
	for i, rm := range rawMoves {
		var at *Position
		if i < len(out.Positions) {
			at = out.Positions[i]
		} else {
			at = out.Positions[len(out.Positions)-1]
		}
		out.Moves = append(out.Moves, at.wrapMove(rm))
	}
	return out, nil
}

// StartingPosition returns the standard initial position.
func StartingPosition() *Position {
	g := chess.NewGame()
	return &Position{pos: g.Position()}
}
