package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"case-coach/server/internal/casestore"
	"case-coach/server/internal/metrics"
	"case-coach/server/internal/model"
	"case-coach/server/internal/stage"

	"github.com/google/uuid"
)

var (
	ErrUnknownStage       = errors.New("unknown stage")
	ErrInvalidSubstep     = errors.New("invalid substep for stage")
	ErrMissingCaseContent = errors.New("missing case content")
	ErrInterviewComplete  = errors.New("interview already complete")
)

const (
	clarifyPrompt     = "\n\nDo you have any clarifying questions before we begin?"
	introTransition   = "Let's move into the case."
	defaultTransition = "Proceed."
	closingLine       = "Thanks for your time, that's the end of the interview."
)

// CaseGenerator 案例生成协作者。
type CaseGenerator interface {
	Generate(ctx context.Context, req model.CaseRequest) (*model.Case, error)
}

// TurnGenerator 面试官轮次生成协作者。
type TurnGenerator interface {
	NextTurn(ctx context.Context, req *model.TurnRequest) (*model.TurnResult, error)
}

// Evaluator 阶段评估协作者。
type Evaluator interface {
	Evaluate(ctx context.Context, req *model.EvaluationRequest) (*model.EvaluationResult, error)
}

// ReportCompiler 最终报告编译器。
type ReportCompiler interface {
	Generate(ctx context.Context, s *model.Session, c *model.Case) *model.Report
}

// Deps 构建 Controller 所需的依赖。
type Deps struct {
	Catalog       *stage.Catalog
	Cases         casestore.Store
	CaseGenerator CaseGenerator
	Turns         TurnGenerator
	Evaluator     Evaluator
	Reports       ReportCompiler
	Metrics       *metrics.Recorder
	Now           func() time.Time
	NewID         func() string
	Logger        *slog.Logger
}

// Controller 面试流程状态机。
//
// 职责与契约：
// - 单线程驱动：同一 Session 的调用由调用方串行化，Controller 自身不持有会话状态。
// - 先评估后出题：一次 Step 内评估总在生成轮次之前。
// - 只记一次：每个候选人输入、每个面试官轮次在事件日志中恰好出现一次。
// - 外部生成结果一律视为不可信输入，校验后才写入 Session。
type Controller struct {
	catalog   *stage.Catalog
	cases     casestore.Store
	caseGen   CaseGenerator
	turns     TurnGenerator
	evaluator Evaluator
	reports   ReportCompiler
	metrics   *metrics.Recorder
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
}

func New(d Deps) (*Controller, error) {
	switch {
	case d.Catalog == nil:
		return nil, errors.New("orchestrator: stage catalog required")
	case d.Cases == nil:
		return nil, errors.New("orchestrator: case store required")
	case d.CaseGenerator == nil, d.Turns == nil, d.Evaluator == nil:
		return nil, errors.New("orchestrator: generative collaborators required")
	case d.Reports == nil:
		return nil, errors.New("orchestrator: report compiler required")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Controller{
		catalog:   d.Catalog,
		cases:     d.Cases,
		caseGen:   d.CaseGenerator,
		turns:     d.Turns,
		evaluator: d.Evaluator,
		reports:   d.Reports,
		metrics:   d.Metrics,
		now:       d.Now,
		newID:     d.NewID,
		logger:    d.Logger,
	}, nil
}

// Catalog 返回阶段目录。
func (c *Controller) Catalog() *stage.Catalog { return c.catalog }

// Finished 会话是否已走完全部阶段。
func (c *Controller) Finished(s *model.Session) bool {
	return s.StageIndex >= c.catalog.Len()
}

// Start 生成案例（若需要）并输出确定性的开场白。
// 重复调用返回已记录的开场，不会再次生成或记录。
func (c *Controller) Start(ctx context.Context, s *model.Session) (model.Turn, error) {
	for _, e := range s.Events {
		if e.Role == model.RoleInterviewer {
			return model.Turn{Action: e.Action, Utterance: e.Text, ChartSpec: e.ChartSpec, StageID: e.StageID}, nil
		}
	}
	if err := c.ensureCase(ctx, s); err != nil {
		return model.Turn{}, err
	}
	st, ok := c.catalog.At(s.StageIndex)
	if !ok {
		return model.Turn{}, ErrInterviewComplete
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = c.now()
	}

	var turn model.Turn
	var err error
	if st.Pattern == stage.PatternIntro {
		turn, err = c.opening(ctx, s, st)
	} else {
		turn, err = c.EmitCurrentPrompt(ctx, s)
	}
	if err != nil {
		return model.Turn{}, err
	}

	c.metrics.InterviewStarted()
	c.logger.Info("interview started", "session", s.ID, "case", s.CaseID, "stage", st.ID)
	return turn, nil
}

func (c *Controller) opening(ctx context.Context, s *model.Session, st stage.Stage) (model.Turn, error) {
	sc, err := c.stageContext(ctx, s, st)
	if err != nil {
		return model.Turn{}, err
	}
	readout := strings.TrimSpace(sc.Stage.Readout)
	if readout == "" {
		return model.Turn{}, fmt.Errorf("%w: %s readout", ErrMissingCaseContent, st.ID)
	}

	turn := model.Turn{Action: model.ActionReadCase, Utterance: readout + clarifyPrompt, StageID: st.ID}
	c.appendInterviewer(s, turn)
	s.Substep = model.SubstepPrimaryAsked
	s.UtterancesThisStage = 1
	return turn, nil
}

// Step 处理一次候选人输入：先评估，再决定追问或推进。
func (c *Controller) Step(ctx context.Context, s *model.Session, text string) (model.Turn, error) {
	if c.Finished(s) {
		return model.Turn{}, ErrInterviewComplete
	}
	if err := c.ensureCase(ctx, s); err != nil {
		return model.Turn{}, err
	}
	st, _ := c.catalog.At(s.StageIndex)

	c.appendCandidate(s, st.ID, strings.TrimSpace(text))

	if st.IsTerminal() {
		turns, err := c.deliverFeedback(ctx, s, st)
		if err != nil {
			return model.Turn{}, err
		}
		s.Pending = append(s.Pending, turns[1:]...)
		return turns[0], nil
	}

	eval, err := c.evaluate(ctx, s, st)
	if err != nil {
		return model.Turn{}, err
	}
	if eval.StudentAttemptedAnswer && len(st.Rubric) > 0 {
		c.recordEvaluation(s, st, eval)
	}

	if st.Pattern == stage.PatternIntro {
		return c.stepIntro(ctx, s, st, eval)
	}
	return c.stepStage(ctx, s, st, eval)
}

func (c *Controller) stepIntro(ctx context.Context, s *model.Session, st stage.Stage, eval *model.EvaluationResult) (model.Turn, error) {
	advance := eval.StageShouldAdvance
	if !advance && budgetExhausted(guardInput{stage: st, utterances: s.UtterancesThisStage}) {
		c.logger.Debug("intro budget exhausted", "session", s.ID, "utterances", s.UtterancesThisStage)
		advance = true
	}
	if !advance {
		turn, _, err := c.generateTurn(ctx, s, st, model.ActionAnswerClarify)
		return turn, err
	}

	s.Substep = model.SubstepDone
	if err := c.completeStage(ctx, s, st); err != nil {
		return model.Turn{}, err
	}
	return c.popOr(s, st.ID, introTransition), nil
}

func (c *Controller) stepStage(ctx context.Context, s *model.Session, st stage.Stage, eval *model.EvaluationResult) (model.Turn, error) {
	in := guardInput{
		stage:      st,
		substep:    s.Substep,
		utterances: s.UtterancesThisStage,
		advance:    normalizeAdvance(eval),
	}
	ask, guard := decide(in)
	c.metrics.GuardDecision(guard)
	c.logger.Debug("guard decision", "session", s.ID, "stage", st.ID, "substep", s.Substep,
		"utterances", s.UtterancesThisStage, "guard", guard, "ask", ask)

	var out *model.Turn
	stageDone := false
	if ask {
		turn, done, err := c.generateTurn(ctx, s, st, "")
		if err != nil {
			return model.Turn{}, err
		}
		out, stageDone = &turn, done
	}

	next := st.Next(s.Substep)
	if stageDone || !ask {
		next = model.SubstepDone
	}
	s.Substep = next
	if next != model.SubstepDone {
		return *out, nil
	}

	if err := c.completeStage(ctx, s, st); err != nil {
		return model.Turn{}, err
	}
	// 追问后阶段结束：返回这一轮，下一阶段的开场留在队列里。
	if out != nil {
		return *out, nil
	}
	return c.popOr(s, st.ID, defaultTransition), nil
}

// EmitCurrentPrompt 不调用生成协作者，直接输出当前阶段预置的主问题/追问。
func (c *Controller) EmitCurrentPrompt(ctx context.Context, s *model.Session) (model.Turn, error) {
	if c.Finished(s) {
		return model.Turn{}, ErrInterviewComplete
	}
	if err := c.ensureCase(ctx, s); err != nil {
		return model.Turn{}, err
	}
	st, _ := c.catalog.At(s.StageIndex)

	if st.IsTerminal() {
		turns, err := c.deliverFeedback(ctx, s, st)
		if err != nil {
			return model.Turn{}, err
		}
		s.Pending = append(s.Pending, turns[1:]...)
		return turns[0], nil
	}

	sc, err := c.stageContext(ctx, s, st)
	if err != nil {
		return model.Turn{}, err
	}

	turn := model.Turn{StageID: st.ID}
	switch {
	case st.Pattern == stage.PatternIntro:
		readout := strings.TrimSpace(sc.Stage.Readout)
		if readout == "" {
			return model.Turn{}, fmt.Errorf("%w: %s readout", ErrMissingCaseContent, st.ID)
		}
		turn.Action = model.ActionReadCase
		turn.Utterance = readout + clarifyPrompt
	default:
		primary := s.Substep == model.SubstepStart || s.Substep == model.SubstepPrimaryAsked
		turn.Action, turn.Utterance = model.ActionAsk, sc.Stage.PrimaryQuestion
		if !primary && sc.Stage.ProbeQuestion != "" {
			turn.Action, turn.Utterance = model.ActionProbe, sc.Stage.ProbeQuestion
		}
		if strings.TrimSpace(turn.Utterance) == "" {
			return model.Turn{}, fmt.Errorf("%w: %s question", ErrMissingCaseContent, st.ID)
		}
		if st.NeedsChart {
			turn.Action = model.ActionShowChart
			turn.ChartSpec = sc.Stage.ChartSpec
		}
	}

	c.appendInterviewer(s, turn)
	switch {
	case s.Substep == model.SubstepStart:
		s.Substep = model.SubstepPrimaryAsked
	case s.Substep == model.SubstepPrimaryAsked && st.Pattern == stage.PatternAskProbe:
		s.Substep = model.SubstepProbeAsked
	}
	return turn, nil
}

// DebugSetPosition 调试用：直接跳到指定阶段与位置。
func (c *Controller) DebugSetPosition(ctx context.Context, s *model.Session, stageID string, sub model.Substep) error {
	if err := c.ensureCase(ctx, s); err != nil {
		return err
	}
	idx, ok := c.catalog.Index(stageID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, stageID)
	}
	st, _ := c.catalog.At(idx)
	if sub == model.SubstepDone || !st.Pattern.Reachable(sub) {
		return fmt.Errorf("%w: %s at %q", ErrInvalidSubstep, stageID, sub)
	}

	s.StageIndex = idx
	s.Substep = sub
	s.UtterancesThisStage = 0
	if s.StartedAt.IsZero() {
		s.StartedAt = c.now()
	}
	c.logger.Info("debug position set", "session", s.ID, "stage", stageID, "substep", sub)
	return nil
}

// Flush 取走全部待输出轮次（FIFO）。
func (c *Controller) Flush(s *model.Session) []model.Turn {
	out := s.Pending
	s.Pending = nil
	return out
}

func (c *Controller) popOr(s *model.Session, stageID, text string) model.Turn {
	if len(s.Pending) > 0 {
		t := s.Pending[0]
		s.Pending = s.Pending[1:]
		return t
	}
	return model.Turn{Action: model.ActionMoveOn, Utterance: text, StageID: stageID}
}

// ensureCase 保证案例存在；已生成且仍在存储中时不重复生成。
func (c *Controller) ensureCase(ctx context.Context, s *model.Session) error {
	if s.CaseID == "" {
		s.CaseID = c.newID()
	}
	if s.CaseGenerated {
		_, err := c.cases.Get(ctx, s.CaseID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, casestore.ErrNotFound) {
			return fmt.Errorf("load case: %w", err)
		}
		c.logger.Warn("stored case missing, regenerating", "session", s.ID, "case", s.CaseID)
	}

	var required []string
	for _, st := range c.catalog.Stages() {
		if !st.IsTerminal() {
			required = append(required, st.ID)
		}
	}
	kase, err := c.caseGen.Generate(ctx, model.CaseRequest{Params: s.Params, StagesRequired: required})
	if err != nil {
		c.metrics.CollaboratorFailed("case_generator")
		return fmt.Errorf("generate case: %w", err)
	}
	if kase == nil {
		return fmt.Errorf("generate case: %w: empty case", ErrMissingCaseContent)
	}
	if err := c.cases.Put(ctx, s.CaseID, kase); err != nil {
		return fmt.Errorf("store case: %w", err)
	}
	s.CaseGenerated = true
	c.logger.Info("case generated", "session", s.ID, "case", s.CaseID, "title", kase.Title)
	return nil
}

func (c *Controller) stageContext(ctx context.Context, s *model.Session, st stage.Stage) (*model.StageContext, error) {
	sc, err := c.cases.StageContext(ctx, s.CaseID, st.ID)
	if errors.Is(err, casestore.ErrStageNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrMissingCaseContent, err)
	}
	if err != nil {
		return nil, fmt.Errorf("stage context %s: %w", st.ID, err)
	}
	return sc, nil
}
