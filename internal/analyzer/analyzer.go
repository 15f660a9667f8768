// Package analyzer implements the two-phase Game Analyzer of §4.7: a
// critical-position scan followed by a full annotation pass, producing one
// GameAnalysis per PGN. It is the only component in the pipeline that
// performs perspective normalization (see internal/evalvalue) — the engine
// adapter and the tactics detector both stay perspective-agnostic.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rajutkarsh07/chess-analysis-service/internal/apperr"
	"github.com/rajutkarsh07/chess-analysis-service/internal/cache"
	"github.com/rajutkarsh07/chess-analysis-service/internal/chessutil"
	"github.com/rajutkarsh07/chess-analysis-service/internal/control"
	"github.com/rajutkarsh07/chess-analysis-service/internal/engine"
	"github.com/rajutkarsh07/chess-analysis-service/internal/evalvalue"
	"github.com/rajutkarsh07/chess-analysis-service/internal/evaluation"
	"github.com/rajutkarsh07/chess-analysis-service/internal/pool"
	"github.com/rajutkarsh07/chess-analysis-service/internal/tactics"
	"go.uber.org/zap"
)

// Tag is the six-bucket move-quality classification of §4.6.
type Tag string

const (
	TagBlunder     Tag = "blunder"
	TagMistake     Tag = "mistake"
	TagInaccuracy  Tag = "inaccuracy"
	TagGood        Tag = "good"
	TagGreat       Tag = "great"
	TagExcellent   Tag = "excellent"
)

// classify maps a perspective-adjusted evaluation delta (positive = the
// mover improved their own side's evaluation) onto the §4.6 table.
func classify(delta float64) Tag {
	switch {
	case delta < -2.0:
		return TagBlunder
	case delta < -1.0:
		return TagMistake
	case delta < -0.5:
		return TagInaccuracy
	case delta < 0.1:
		return TagGood
	case delta < 0.5:
		return TagGreat
	default:
		return TagExcellent
	}
}

// criticality is Phase 1's per-position tag, per §4.7.
type criticality int

const (
	critStandard criticality = iota
	critImportant
	critCritical
)

// TacticalMotif is the spec's §3 data-model shape for one detected motif,
// rendered from tactics.Motif for presentation (square indices to algebraic
// strings, piece types to names).
type TacticalMotif struct {
	Kind          string
	AttackingPiece string
	PieceSquare   string
	TargetSquares []string
	MoveUCI       string
	Description   string
}

// MoveAnnotation is one move's complete analytical record, per §3.
type MoveAnnotation struct {
	MoveIndex   int // 1-based ply index
	MoveUCI     string
	MoveSAN     string
	Color       string // "white" or "black"
	FENBefore   string
	FENAfter    string

	EvaluationBefore float64 // white-positive pawns
	EvaluationAfter  float64
	EvaluationDelta  float64 // after - before, white-positive

	Classification Tag
	WasBestMove    bool
	BestMoveUCI    string

	TacticalMotifs []TacticalMotif

	SquareControlBefore control.SquareControl
	SquareControlAfter  control.SquareControl

	ImprovementSuggestion string

	// Enrichment (§3 FULL): a second, richer classification derived from
	// the same evaluations, kept distinct from Classification.
	CentipawnLoss int
	AccuracyClass evaluation.MoveClassification

	// IsBookMove is always false (§9, resolved Open Question): opening-book
	// detection needs a book database, which is out of scope per §1's
	// Non-goals. The field is kept so the shape matches the spec's data
	// model; no caller should read true from it.
	IsBookMove bool

	// WinProbabilityBefore/After are white's win probability, the logistic
	// reading of EvaluationBefore/After kept in the same white-positive
	// convention as the rest of this struct (§3 FULL "win-probability"
	// enrichment).
	WinProbabilityBefore float64
	WinProbabilityAfter  float64

	// PositionComplexity is the standard deviation across the engine's
	// searched principal variations before the move, per §3 FULL's
	// position-complexity enrichment. It is 0 whenever MultiPV <= 1, since
	// a single line carries no spread to measure.
	PositionComplexity float64
}

// WeaknessBuckets groups move indices by the kind of weakness a
// mistake/blunder exhibited, per §4.7's weakness tagging rule. A move index
// may appear in more than one bucket (a phase bucket plus a nature bucket).
type WeaknessBuckets struct {
	Tactical   []int
	Positional []int
	Opening    []int
	Endgame    []int
}

// GameAnalysis is the complete output of analyzing one PGN, per §3.
type GameAnalysis struct {
	GameID      string
	MoveCount   int
	Annotations []MoveAnnotation

	Weaknesses        WeaknessBuckets
	CriticalPositions []int

	TransactionSuccessful bool
	Error                 string

	// Enrichment (§3 FULL).
	WhiteMetrics evaluation.PlayerMetrics
	BlackMetrics evaluation.PlayerMetrics
}

// Config holds the analyzer's tunable thresholds, sourced from
// internal/config.
type Config struct {
	ShallowDepth       int
	FullDepth          int
	CriticalSwingPawns float64
	CriticalDeltaPawns float64 // §4.7 critical-position list threshold
	OpeningPlyLimit    int     // move index <= this is "opening"
	EndgamePieceLimit  int     // total pieces <= this is "endgame" (§9, resolved: includes kings)
	AnalysisTimeout    time.Duration
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		ShallowDepth:       10,
		FullDepth:          20,
		CriticalSwingPawns: 0.7,
		CriticalDeltaPawns: 1.5,
		OpeningPlyLimit:    10,
		EndgamePieceLimit:  10,
		AnalysisTimeout:    60 * time.Second,
	}
}

// Analyzer performs the two-phase scan of §4.7. It holds no per-game state;
// Cache and Pool are the only shared resources, both safe for concurrent
// use by multiple Analyzer callers (the Worker Supervisor's workers).
type Analyzer struct {
	pool   *pool.Pool
	cache  *cache.Cache
	logger *zap.Logger
	cfg    Config
}

// New builds an Analyzer over a shared engine pool and evaluation cache.
func New(p *pool.Pool, c *cache.Cache, logger *zap.Logger, cfg Config) *Analyzer {
	return &Analyzer{pool: p, cache: c, logger: logger, cfg: cfg}
}

// AnalyzeGame runs the full two-phase analysis of one PGN. fullDepth <= 0
// falls back to the configured default.
func (a *Analyzer) AnalyzeGame(ctx context.Context, gameID, pgn string, fullDepth int) (*GameAnalysis, error) {
	return a.AnalyzeGameWithProgress(ctx, gameID, pgn, fullDepth, nil)
}

// Phase1Progress summarizes a completed Phase 1 scan, enough for a caller
// observing job status mid-analysis to render a partial view per §4.8's
// "the initial Phase-1 result is stored as soon as it exists" rule.
type Phase1Progress struct {
	GameID       string
	MoveCount    int
	NumCritical  int
	NumImportant int
	NumStandard  int
}

// AnalyzeGameWithProgress is AnalyzeGame with an optional callback invoked
// once Phase 1 (the criticality scan) completes and before Phase 2 begins.
// The Worker Supervisor uses it to persist the job's "initial" progress
// record; cmd/analyze and tests that don't care about partial views pass a
// nil callback via AnalyzeGame.
func (a *Analyzer) AnalyzeGameWithProgress(ctx context.Context, gameID, pgn string, fullDepth int, onPhase1 func(Phase1Progress)) (*GameAnalysis, error) {
	if fullDepth <= 0 {
		fullDepth = a.cfg.FullDepth
	}

	decoded, err := chessutil.DecodePGN(pgn)
	if err != nil {
		return nil, apperr.Input("parse_pgn", err)
	}

	moveCount := len(decoded.Moves)
	analysis := &GameAnalysis{GameID: gameID, MoveCount: moveCount, TransactionSuccessful: true}
	if moveCount == 0 {
		return analysis, nil
	}
	if len(decoded.Positions) < moveCount+1 {
		return nil, apperr.Logic("decode_pgn", fmt.Errorf("position chain shorter than move list"))
	}

	criticalityByPly, err := a.phase1(ctx, decoded)
	if err != nil {
		return nil, err
	}

	if onPhase1 != nil {
		onPhase1(summarizePhase1(gameID, criticalityByPly))
	}

	annotations, err := a.phase2(ctx, decoded, criticalityByPly, fullDepth)
	if err != nil {
		analysis.TransactionSuccessful = false
		analysis.Error = err.Error()
		return analysis, nil
	}
	analysis.Annotations = annotations

	for i := range annotations {
		if i+1 < len(annotations) && annotations[i].FENAfter != annotations[i+1].FENBefore {
			analysis.TransactionSuccessful = false
			analysis.Error = fmt.Sprintf("chain integrity violated at move %d", annotations[i].MoveIndex)
			return analysis, nil
		}
	}

	a.populateWeaknessesAndCritical(analysis)
	a.populateMetrics(analysis)

	return analysis, nil
}

// phase1 walks the mainline once, tagging each position's criticality and
// warming the shallow-depth cache for the position before every move, so
// Phase 2 finds those standard-position results in the cache. The final
// position, which no move starts from, is not evaluated here.
func (a *Analyzer) phase1(ctx context.Context, decoded *chessutil.DecodedGame) ([]criticality, error) {
	out := make([]criticality, len(decoded.Moves))
	var lastStandardWhiteEval *float64

	for i, move := range decoded.Moves {
		before := decoded.Positions[i]

		norm, err := a.evaluate(ctx, before.FEN(), a.cfg.ShallowDepth, i)
		if err != nil {
			a.logger.Warn("phase1 evaluation failed, treating position as standard",
				zap.Int("ply", i), zap.Error(err))
			out[i] = critStandard
			continue
		}
		whiteEval := evalvalue.FromSideToMoveRelative(norm.Pawns, toEvalColor(before.Turn())).ToWhitePositive()

		bigSwing := false
		if lastStandardWhiteEval != nil && math.Abs(whiteEval-*lastStandardWhiteEval) >= a.cfg.CriticalSwingPawns {
			bigSwing = true
		}

		plyIndex := i + 1
		isOpening := plyIndex <= a.cfg.OpeningPlyLimit
		isEndgame := totalPieceCount(before) <= a.cfg.EndgamePieceLimit

		switch {
		case move.IsCapture || move.IsCheck || bigSwing:
			out[i] = critCritical
		case isOpening || isEndgame:
			out[i] = critImportant
		default:
			out[i] = critStandard
			whiteEvalCopy := whiteEval
			lastStandardWhiteEval = &whiteEvalCopy
		}
	}

	return out, nil
}

// phase2 re-walks the mainline, computing the full MoveAnnotation for each
// ply at the depth Phase 1 selected.
func (a *Analyzer) phase2(ctx context.Context, decoded *chessutil.DecodedGame, criticalityByPly []criticality, fullDepth int) ([]MoveAnnotation, error) {
	annotations := make([]MoveAnnotation, 0, len(decoded.Moves))

	for i, move := range decoded.Moves {
		select {
		case <-ctx.Done():
			return nil, apperr.Infrastructure("analyze_game", ctx.Err())
		default:
		}

		before := decoded.Positions[i]
		after := decoded.Positions[i+1]

		depth := a.cfg.ShallowDepth
		if criticalityByPly[i] != critStandard {
			depth = fullDepth
		}

		beforeNorm, beforeErr := a.evaluate(ctx, before.FEN(), depth, i)
		afterNorm, afterErr := a.evaluate(ctx, after.FEN(), depth, i)

		var evalBeforeWhite, evalAfterWhite float64
		var bestMoveUCI string
		if beforeErr != nil || afterErr != nil {
			// §7: a single-move engine failure is a localized fault — record
			// a neutral evaluation and continue rather than aborting the game.
			a.logger.Warn("phase2 evaluation failed, recording neutral evaluation",
				zap.Int("ply", i), zap.Error(beforeErr), zap.Error(afterErr))
		} else {
			evalBeforeWhite = evalvalue.FromSideToMoveRelative(beforeNorm.Pawns, toEvalColor(before.Turn())).ToWhitePositive()
			evalAfterWhite = evalvalue.FromSideToMoveRelative(afterNorm.Pawns, toEvalColor(after.Turn())).ToWhitePositive()
			bestMoveUCI = beforeNorm.BestMove
		}

		delta := evalAfterWhite - evalBeforeWhite
		moverColor := before.Turn()
		perspectiveDelta := evalvalue.PerspectiveDelta(delta, toEvalColor(moverColor))
		tag := classify(perspectiveDelta)

		isBestMove := bestMoveUCI != "" && equalUCI(move.UCI, bestMoveUCI)

		controlBefore := control.Compute(before)
		controlAfter := control.Compute(after)

		var motifs []TacticalMotif
		if isBestMove {
			for _, m := range tactics.Detect(before, after, move, controlBefore, controlAfter, a.logger) {
				motifs = append(motifs, renderMotif(m))
			}
		}

		ann := MoveAnnotation{
			MoveIndex:           i + 1,
			MoveUCI:             move.UCI,
			MoveSAN:             move.SAN,
			Color:               colorName(moverColor),
			FENBefore:           before.FEN(),
			FENAfter:            after.FEN(),
			EvaluationBefore:    evalBeforeWhite,
			EvaluationAfter:     evalAfterWhite,
			EvaluationDelta:     delta,
			Classification:      tag,
			WasBestMove:         isBestMove,
			BestMoveUCI:         bestMoveUCI,
			TacticalMotifs:      motifs,
			SquareControlBefore: controlBefore,
			SquareControlAfter:  controlAfter,
			PositionComplexity:  evaluation.CalculateComplexity(beforeNorm.TopCentipawns),
		}

		a.attachEnrichment(&ann, before, after, move, moverColor, bestMoveUCI, isBestMove, controlAfter, beforeNorm, afterNorm)
		annotations = append(annotations, ann)
	}

	return annotations, nil
}

// attachEnrichment fills the §3 FULL centipawn-loss/accuracy-class pair, the
// win-probability pair, and an optional improvement suggestion, layered on
// top of the required fields without altering them.
func (a *Analyzer) attachEnrichment(ann *MoveAnnotation, before, after *chessutil.Position, move chessutil.Move, mover chessutil.Color, bestMoveUCI string, isBestMove bool, controlAfter control.SquareControl, beforeNorm, afterNorm engine.NormalizedEvaluation) {
	isBlack := mover == chessutil.Black
	beforeCp := mateAwareWhiteCp(ann.EvaluationBefore, beforeNorm, mover)
	afterCp := mateAwareWhiteCp(ann.EvaluationAfter, afterNorm, mover.Opposite())
	ann.CentipawnLoss = evaluation.CalculateCentipawnLoss(beforeCp, afterCp, isBlack)

	sideRelativeBeforeCp, sideRelativeAfterCp := beforeCp, afterCp
	if isBlack {
		sideRelativeBeforeCp, sideRelativeAfterCp = -beforeCp, -afterCp
	}
	materialSacrificed := sacrificedMaterial(after, move, mover, controlAfter)
	if isBestMove && evaluation.IsBrilliantMove(sideRelativeBeforeCp, sideRelativeAfterCp, materialSacrificed) {
		ann.AccuracyClass = evaluation.ClassBrilliant
	} else {
		ann.AccuracyClass = evaluation.ClassifyMove(ann.CentipawnLoss, isBestMove, beforeCp, afterCp, false)
	}

	ann.WinProbabilityBefore = evaluation.EvalToWinProbability(beforeCp)
	ann.WinProbabilityAfter = evaluation.EvalToWinProbability(afterCp)

	if !isBestMove && bestMoveUCI != "" && (ann.Classification == TagMistake || ann.Classification == TagBlunder) {
		if bestMove, ok := before.FindMoveByUCI(bestMoveUCI); ok {
			ann.ImprovementSuggestion = fmt.Sprintf("%s was stronger", bestMove.SAN)
		}
	}
}

// mateAwareWhiteCp renders a position's evaluation in white-positive
// centipawns for the enrichment pass. A plain pawn evaluation is just
// scaled; a forced mate instead goes through evaluation.NormalizeMateScore
// so that a faster mate outweighs a slower one.
func mateAwareWhiteCp(whitePawns float64, norm engine.NormalizedEvaluation, sideToMove chessutil.Color) int {
	if !norm.IsMate || norm.MateIn == nil {
		return int(whitePawns * 100)
	}
	sideCp := evaluation.NormalizeMateScore(*norm.MateIn)
	if sideToMove == chessutil.Black {
		return -sideCp
	}
	return sideCp
}

// sacrificedMaterial estimates, in centipawns, the material the mover risks
// losing for nothing: the moved piece's own value, but only when it lands
// on a square the opponent controls more heavily than the mover defends it
// (§4.4's attacker/defender census already computed for the post-move
// board), since that is the geometric signal that the piece can be
// recaptured without compensation.
func sacrificedMaterial(after *chessutil.Position, move chessutil.Move, mover chessutil.Color, ca control.SquareControl) int {
	piece := after.Board().Piece(move.To)
	if piece == nil {
		return 0
	}
	var attackerCount, defenderCount int
	if mover == chessutil.White {
		attackerCount, defenderCount = ca.BlackAttackers[move.To], ca.WhiteAttackers[move.To]
	} else {
		attackerCount, defenderCount = ca.WhiteAttackers[move.To], ca.BlackAttackers[move.To]
	}
	if attackerCount <= defenderCount {
		return 0
	}
	return piece.Type.Value() * 100
}

// populateWeaknessesAndCritical derives §4.7's weakness buckets and
// critical-position list from the completed annotation list.
func (a *Analyzer) populateWeaknessesAndCritical(analysis *GameAnalysis) {
	for _, ann := range analysis.Annotations {
		if math.Abs(ann.EvaluationDelta) >= a.cfg.CriticalDeltaPawns {
			analysis.CriticalPositions = append(analysis.CriticalPositions, ann.MoveIndex)
		}

		if ann.Classification != TagMistake && ann.Classification != TagBlunder {
			continue
		}

		isOpening := ann.MoveIndex <= a.cfg.OpeningPlyLimit
		isEndgame := pieceCountFromFEN(ann.FENBefore) <= a.cfg.EndgamePieceLimit

		if isOpening {
			analysis.Weaknesses.Opening = append(analysis.Weaknesses.Opening, ann.MoveIndex)
		}
		if isEndgame {
			analysis.Weaknesses.Endgame = append(analysis.Weaknesses.Endgame, ann.MoveIndex)
		}

		if a.missedTactic(ann) {
			analysis.Weaknesses.Tactical = append(analysis.Weaknesses.Tactical, ann.MoveIndex)
		} else {
			analysis.Weaknesses.Positional = append(analysis.Weaknesses.Positional, ann.MoveIndex)
		}
	}
}

// missedTactic reports whether the engine's best move (which the player did
// not play) itself contained a tactical motif — per §4.7, this is what
// distinguishes a "tactical" weakness from a "positional" one.
func (a *Analyzer) missedTactic(ann MoveAnnotation) bool {
	if ann.WasBestMove || ann.BestMoveUCI == "" {
		return len(ann.TacticalMotifs) > 0
	}
	before, err := chessutil.FromFEN(ann.FENBefore)
	if err != nil {
		return false
	}
	bestMove, ok := before.FindMoveByUCI(ann.BestMoveUCI)
	if !ok {
		return false
	}
	afterBest, err := before.ApplyMove(bestMove)
	if err != nil {
		return false
	}
	controlBefore := control.Compute(before)
	controlAfterBest := control.Compute(afterBest)
	return len(tactics.Detect(before, afterBest, bestMove, controlBefore, controlAfterBest, a.logger)) > 0
}

// populateMetrics computes the §3 FULL enrichment aggregates from each
// annotation's CentipawnLoss and evaluations. The classification counts are
// recomputed by evaluation.ClassifyMove; the annotation's AccuracyClass
// (including brilliant) does not feed them.
func (a *Analyzer) populateMetrics(analysis *GameAnalysis) {
	white := make([]evaluation.MoveEvaluation, 0, len(analysis.Annotations))
	black := make([]evaluation.MoveEvaluation, 0, len(analysis.Annotations))
	for _, ann := range analysis.Annotations {
		me := evaluation.MoveEvaluation{
			Ply:           ann.MoveIndex - 1,
			MoveNumber:    (ann.MoveIndex + 1) / 2,
			Color:         ann.Color,
			PlayedMove:    ann.MoveSAN,
			BestMove:      ann.BestMoveUCI,
			EvalBefore:    int(ann.EvaluationBefore * 100),
			EvalAfter:     int(ann.EvaluationAfter * 100),
			CentipawnLoss: ann.CentipawnLoss,
			WasBestMove:   ann.WasBestMove,
		}
		// 100 pawns is evalvalue's mate sentinel (see evalvalue.matePawns).
		if math.Abs(ann.EvaluationAfter) >= evaluation.MateScore/100 {
			me.IsMateScore = true
		}
		if ann.Color == "white" {
			white = append(white, me)
		} else {
			black = append(black, me)
		}
	}
	analysis.WhiteMetrics = evaluation.CalculatePlayerMetrics(white, "white", 1500, evaluation.ResultDraw)
	analysis.BlackMetrics = evaluation.CalculatePlayerMetrics(black, "black", 1500, evaluation.ResultDraw)
}

// evaluate is the single funnel through which the analyzer requests
// evaluations: the cache is consulted first (outside any engine lock, per
// §5), and only a miss reaches the engine pool.
func (a *Analyzer) evaluate(ctx context.Context, fen string, depth int, hint int) (engine.NormalizedEvaluation, error) {
	if cached, ok := a.cache.Get(fen, depth); ok {
		return cached, nil
	}

	evalCtx, cancel := context.WithTimeout(ctx, timeoutForDepth(depth, a.cfg.AnalysisTimeout))
	defer cancel()

	result, err := a.pool.Evaluate(evalCtx, fen, depth, hint)
	if err != nil {
		return engine.NormalizedEvaluation{}, apperr.EngineTransport("evaluate", err)
	}

	norm := result.ToNormalized()
	a.cache.Put(fen, depth, norm)
	return norm, nil
}

// timeoutForDepth scales the base analysis timeout with search depth, per
// §5's "per-call timeout proportional to depth".
func timeoutForDepth(depth int, base time.Duration) time.Duration {
	if depth <= 0 {
		depth = 1
	}
	return base * time.Duration(depth) / 10
}

// summarizePhase1 tallies Phase 1's criticality tags into the counts
// Phase1Progress exposes.
func summarizePhase1(gameID string, criticalityByPly []criticality) Phase1Progress {
	p := Phase1Progress{GameID: gameID, MoveCount: len(criticalityByPly)}
	for _, c := range criticalityByPly {
		switch c {
		case critCritical:
			p.NumCritical++
		case critImportant:
			p.NumImportant++
		default:
			p.NumStandard++
		}
	}
	return p
}

func toEvalColor(c chessutil.Color) evalvalue.Color {
	if c == chessutil.Black {
		return evalvalue.Black
	}
	return evalvalue.White
}

func colorName(c chessutil.Color) string {
	if c == chessutil.Black {
		return "black"
	}
	return "white"
}

func equalUCI(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// totalPieceCount counts every occupied square, both colors and both kings,
// per §9's resolved reading of "≤10 pieces total".
func totalPieceCount(pos *chessutil.Position) int {
	board := pos.Board()
	count := 0
	for i := 0; i < 64; i++ {
		if board.Piece(chessutil.Sq(i)) != nil {
			count++
		}
	}
	return count
}

func pieceCountFromFEN(fen string) int {
	pos, err := chessutil.FromFEN(fen)
	if err != nil {
		return 64
	}
	return totalPieceCount(pos)
}

func renderMotif(m tactics.Motif) TacticalMotif {
	targets := make([]string, 0, len(m.TargetSquares))
	for _, sq := range m.TargetSquares {
		targets = append(targets, sq.String())
	}
	return TacticalMotif{
		Kind:           string(m.Kind),
		AttackingPiece: pieceTypeName(m.PieceType),
		PieceSquare:    m.PieceSquare.String(),
		TargetSquares:  targets,
		MoveUCI:        m.Move,
		Description:    m.Description,
	}
}

func pieceTypeName(pt chessutil.PieceType) string {
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
