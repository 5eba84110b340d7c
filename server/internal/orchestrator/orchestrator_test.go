package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"case-coach/server/internal/casestore"
	"case-coach/server/internal/metrics"
	"case-coach/server/internal/model"
	"case-coach/server/internal/report"
	"case-coach/server/internal/stage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var salesChart = map[string]any{
	"type":    "bar",
	"title":   "Revenue by region",
	"x_label": "Region",
	"y_label": "Revenue ($M)",
	"data":    []any{map[string]any{"label": "North", "value": 40}},
}

func sampleCase() *model.Case {
	return &model.Case{
		Title:      "Coffee chain profitability",
		Type:       "Profitability",
		Industry:   "Retail",
		Background: "A regional coffee chain has seen profits fall 20% in two years.",
		Stages: map[string]map[string]any{
			"case_intro":  {"readout": "Our client is a regional coffee chain whose profits are falling."},
			"structuring": {"primary_question": "How would you structure this problem?", "probe_question": "What about the cost side?"},
			"chart":       {"primary_question": "What does this chart tell you?", "probe_question": "So what for the client?", "chart_spec": salesChart},
			"math":        {"primary_question": "What is the annual revenue of one store?"},
			"creative":    {"primary_question": "How could the client grow revenue?", "probe_question": "Which idea would you prioritize?"},
		},
	}
}

type fakeCaseGen struct {
	kase  *model.Case
	err   error
	calls int
	req   model.CaseRequest
}

func (f *fakeCaseGen) Generate(_ context.Context, req model.CaseRequest) (*model.Case, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.kase
	return &cp, nil
}

// scriptedTurns 按顺序返回预置结果，用完后返回默认追问。
type scriptedTurns struct {
	results []*model.TurnResult
	reqs    []*model.TurnRequest
}

func (f *scriptedTurns) NextTurn(_ context.Context, req *model.TurnRequest) (*model.TurnResult, error) {
	f.reqs = append(f.reqs, req)
	if len(f.results) == 0 {
		return &model.TurnResult{NextAction: model.ActionProbe, NextUtterance: "Can you go one level deeper?"}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

type scriptedEvaluator struct {
	results []*model.EvaluationResult
	err     error
	reqs    []*model.EvaluationRequest
}

func (f *scriptedEvaluator) Evaluate(_ context.Context, req *model.EvaluationRequest) (*model.EvaluationResult, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return &model.EvaluationResult{StudentAttemptedAnswer: true}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func attempted(advance bool, scores map[string]int) *model.EvaluationResult {
	return &model.EvaluationResult{
		StudentAttemptedAnswer: true,
		StageShouldAdvance:     advance,
		Evaluation:             model.StageEvaluation{ShouldEvaluate: scores != nil, RubricScores: scores, NotesInternal: "ok"},
	}
}

// flakyStore 在 Get 上依次返回预置错误，用完后透传给内存存储。
type flakyStore struct {
	*casestore.InMemoryStore
	getErrs []error
}

func (f *flakyStore) Get(ctx context.Context, caseID string) (*model.Case, error) {
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		return nil, err
	}
	return f.InMemoryStore.Get(ctx, caseID)
}

type harness struct {
	ctrl  *Controller
	cases *flakyStore
	gen   *fakeCaseGen
	turns *scriptedTurns
	eval  *scriptedEvaluator
	reg   *prometheus.Registry
	s     *model.Session
}

func newHarness(t *testing.T, catalog *stage.Catalog) *harness {
	t.Helper()
	if catalog == nil {
		catalog = stage.Default()
	}
	h := &harness{
		cases: &flakyStore{InMemoryStore: casestore.NewInMemoryStore()},
		gen:   &fakeCaseGen{kase: sampleCase()},
		turns: &scriptedTurns{},
		eval:  &scriptedEvaluator{},
		reg:   prometheus.NewRegistry(),
		s:     model.NewSession("sess-1", "case-1", model.CaseParams{Theme: "retail", Difficulty: "medium"}),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := metrics.New(h.reg)
	clock := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	ctrl, err := New(Deps{
		Catalog:       catalog,
		Cases:         h.cases,
		CaseGenerator: h.gen,
		Turns:         h.turns,
		Evaluator:     h.eval,
		Reports:       report.NewCompiler(nil, catalog, rec, logger),
		Metrics:       rec,
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
		Logger: logger,
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func (h *harness) step(t *testing.T, text string) model.Turn {
	t.Helper()
	turn, err := h.ctrl.Step(context.Background(), h.s, text)
	require.NoError(t, err)
	return turn
}

func (h *harness) position(t *testing.T, stageID string, sub model.Substep) {
	t.Helper()
	require.NoError(t, h.ctrl.DebugSetPosition(context.Background(), h.s, stageID, sub))
}

func (h *harness) emit(t *testing.T) model.Turn {
	t.Helper()
	turn, err := h.ctrl.EmitCurrentPrompt(context.Background(), h.s)
	require.NoError(t, err)
	return turn
}

func interviewerEvents(s *model.Session, stageID string) []model.Event {
	var out []model.Event
	for _, e := range s.Events {
		if e.Role == model.RoleInterviewer && e.StageID == stageID {
			out = append(out, e)
		}
	}
	return out
}

// TestStartReadsCase 验证开场白 = 案例朗读 + 澄清提问，且重复 Start 不会重新生成案例。
func TestStartReadsCase(t *testing.T) {
	h := newHarness(t, nil)

	turn, err := h.ctrl.Start(context.Background(), h.s)
	require.NoError(t, err)

	assert.Equal(t, model.ActionReadCase, turn.Action)
	assert.Equal(t, "Our client is a regional coffee chain whose profits are falling."+
		"\n\nDo you have any clarifying questions before we begin?", turn.Utterance)
	assert.Equal(t, model.SubstepPrimaryAsked, h.s.Substep)
	assert.Equal(t, 1, h.s.UtterancesThisStage)
	assert.Len(t, h.s.Events, 1)
	assert.False(t, h.s.StartedAt.IsZero())
	assert.True(t, h.s.CaseGenerated)
	assert.Equal(t, 1, h.gen.calls)
	assert.Equal(t, []string{"case_intro", "structuring", "chart", "math", "creative"}, h.gen.req.StagesRequired)

	again, err := h.ctrl.Start(context.Background(), h.s)
	require.NoError(t, err)
	assert.Equal(t, turn, again)
	assert.Len(t, h.s.Events, 1)
	assert.Equal(t, 1, h.gen.calls)
}

func TestStartWithoutReadout(t *testing.T) {
	h := newHarness(t, nil)
	h.gen.kase.Stages = map[string]map[string]any{"case_intro": {"readout": "  "}}

	_, err := h.ctrl.Start(context.Background(), h.s)
	assert.ErrorIs(t, err, ErrMissingCaseContent)
	assert.Empty(t, h.s.Events)
}

func TestStartWithoutIntroStage(t *testing.T) {
	h := newHarness(t, nil)
	delete(h.gen.kase.Stages, "case_intro")

	_, err := h.ctrl.Start(context.Background(), h.s)
	assert.ErrorIs(t, err, ErrMissingCaseContent)
	assert.ErrorIs(t, err, casestore.ErrStageNotFound)
}

func TestStartCaseGenerationFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.gen.err = errors.New("malformed case")

	_, err := h.ctrl.Start(context.Background(), h.s)
	require.Error(t, err)
	assert.False(t, h.s.CaseGenerated)
	assert.Empty(t, h.s.Events)
}

// TestIntroAdvanceEmitsStructuringPrompt 验证开场阶段收到推进信号后进入下一阶段，并直接输出其预置问题。
func TestIntroAdvanceEmitsStructuringPrompt(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.ctrl.Start(context.Background(), h.s)
	require.NoError(t, err)

	h.eval.results = []*model.EvaluationResult{{StageShouldAdvance: true}}
	turn := h.step(t, "No questions, let's go.")

	assert.Equal(t, 1, h.s.StageIndex)
	assert.Equal(t, model.SubstepPrimaryAsked, h.s.Substep)
	assert.Equal(t, 1, h.s.UtterancesThisStage)
	assert.Equal(t, "structuring", turn.StageID)
	assert.Equal(t, model.ActionAsk, turn.Action)
	assert.Equal(t, "How would you structure this problem?", turn.Utterance)
	assert.Empty(t, h.s.Pending)
	assert.Empty(t, h.turns.reqs)
	assert.Len(t, interviewerEvents(h.s, "structuring"), 1)
	assert.Equal(t, 1, h.gen.calls)
}

func TestIntroClarifyForcesAnswerAction(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.ctrl.Start(context.Background(), h.s)
	require.NoError(t, err)

	h.eval.results = []*model.EvaluationResult{{}}
	h.turns.results = []*model.TurnResult{{NextAction: model.ActionProbe, NextUtterance: "Costs grew faster than revenue."}}
	turn := h.step(t, "Is revenue flat?")

	assert.Equal(t, model.ActionAnswerClarify, turn.Action)
	assert.Equal(t, model.ActionAnswerClarify, h.turns.reqs[0].ForcedAction)
	assert.Equal(t, 0, h.s.StageIndex)
	assert.Equal(t, 2, h.s.UtterancesThisStage)
	// 请求中的历史包含开场白与候选人的提问。
	assert.Len(t, h.turns.reqs[0].History, 2)
}

func TestIntroBudgetAdvances(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.ctrl.Start(context.Background(), h.s)
	require.NoError(t, err)

	h.eval.results = []*model.EvaluationResult{{}, {}, {}, {}}
	for i := 0; i < 3; i++ {
		h.step(t, "Another question?")
		assert.Equal(t, 0, h.s.StageIndex)
	}
	assert.Equal(t, 4, h.s.UtterancesThisStage)

	turn := h.step(t, "And one more?")
	assert.Equal(t, 1, h.s.StageIndex)
	assert.Equal(t, "structuring", turn.StageID)
	assert.Len(t, h.turns.reqs, 3)
}

func budgetCatalog(t *testing.T, stageID string, limit int) *stage.Catalog {
	t.Helper()
	stages := stage.Default().Stages()
	for i := range stages {
		if stages[i].ID == stageID {
			stages[i].MaxInterviewerTurns = limit
		}
	}
	c, err := stage.New(stages)
	require.NoError(t, err)
	return c
}

// TestBudgetCompletesAskProbeStage 验证预算为 2 时，两次面试官发言后无论评估结果如何都结束阶段。
func TestBudgetCompletesAskProbeStage(t *testing.T) {
	h := newHarness(t, budgetCatalog(t, "structuring", 2))
	h.position(t, "structuring", model.SubstepStart)
	h.emit(t)

	h.eval.results = []*model.EvaluationResult{attempted(false, nil), attempted(false, nil)}
	probe := h.step(t, "Revenue and costs.")
	assert.Equal(t, model.ActionProbe, probe.Action)
	assert.Equal(t, model.SubstepProbeAsked, h.s.Substep)
	assert.Equal(t, 2, h.s.UtterancesThisStage)

	next := h.step(t, "Costs split into fixed and variable.")
	assert.Len(t, h.turns.reqs, 1, "budget exhausted, no further turn generated")
	assert.Equal(t, 2, h.s.StageIndex)
	assert.Equal(t, "chart", next.StageID)
	assert.Equal(t, model.ActionShowChart, next.Action)
	require.NotNil(t, next.ChartSpec)
	assert.Equal(t, "Revenue by region", next.ChartSpec.Title)
	assert.Len(t, h.eval.reqs, 2)
}

// TestProbeOverridesEvaluatorAdvance 验证追问尚未发出时，评估的推进信号不会跳过追问。
func TestProbeOverridesEvaluatorAdvance(t *testing.T) {
	h := newHarness(t, nil)
	h.position(t, "structuring", model.SubstepStart)
	h.emit(t)

	h.eval.results = []*model.EvaluationResult{attempted(true, map[string]int{"mece_coverage": 4})}
	turn := h.step(t, "Revenue, costs, competition.")

	assert.Equal(t, "structuring", turn.StageID)
	assert.Equal(t, 1, h.s.StageIndex)
	assert.Equal(t, model.SubstepProbeAsked, h.s.Substep)
	require.Len(t, h.s.Evaluations, 1)
	rec := h.s.Evaluations[0]
	assert.Equal(t, model.SubstepPrimaryAsked, rec.Substep)
	assert.Equal(t, "Revenue, costs, competition.", rec.CandidateQuote)
	assert.Equal(t, map[string]int{"mece_coverage": 4}, rec.Scores)

	h.eval.results = []*model.EvaluationResult{attempted(true, map[string]int{"uniqueness": 3})}
	next := h.step(t, "Fixed costs like rent dominate.")
	assert.Len(t, h.turns.reqs, 1)
	assert.Equal(t, "chart", next.StageID)
	assert.Len(t, h.s.Evaluations, 2)
}

// TestUnattemptedAnswerDoesNotAdvance 验证未作答时忽略推进信号，也不记录评分。
func TestUnattemptedAnswerDoesNotAdvance(t *testing.T) {
	h := newHarness(t, nil)
	h.position(t, "structuring", model.SubstepProbeAsked)

	h.eval.results = []*model.EvaluationResult{{StudentAttemptedAnswer: false, StageShouldAdvance: true}}
	h.turns.results = []*model.TurnResult{{NextAction: model.ActionNudge, NextUtterance: "Take a stab at it."}}
	turn := h.step(t, "Could you repeat that?")

	assert.Equal(t, "Take a stab at it.", turn.Utterance)
	assert.Len(t, h.turns.reqs, 1)
	assert.Empty(t, h.s.Evaluations)
	// PROBE_ASKED 之后只剩 DONE，生成的轮次先返回，下一阶段开场进入队列。
	assert.Equal(t, 2, h.s.StageIndex)
	require.Len(t, h.s.Pending, 1)
	assert.Equal(t, "chart", h.s.Pending[0].StageID)
}

func TestGeneratorStageDoneQueuesNextPrompt(t *testing.T) {
	h := newHarness(t, nil)
	h.position(t, "structuring", model.SubstepStart)
	h.emit(t)

	h.turns.results = []*model.TurnResult{{NextAction: model.ActionMoveOn, NextUtterance: "Great, let's look at some data.", StageDone: true}}
	turn := h.step(t, "Revenue and costs.")

	assert.Equal(t, model.ActionMoveOn, turn.Action)
	assert.Equal(t, 2, h.s.StageIndex)
	pending := h.ctrl.Flush(h.s)
	require.Len(t, pending, 1)
	assert.Equal(t, "What does this chart tell you?", pending[0].Utterance)
	assert.Empty(t, h.s.Pending)
	assert.Len(t, interviewerEvents(h.s, "chart"), 1)
}

func TestDisallowedActionSubstituted(t *testing.T) {
	h := newHarness(t, nil)
	h.position(t, "structuring", model.SubstepPrimaryAsked)

	h.turns.results = []*model.TurnResult{{NextAction: model.ActionReadCase, NextUtterance: "Let me reread the case."}}
	turn := h.step(t, "Revenue and costs.")

	st, _ := h.ctrl.Catalog().Get("structuring")
	assert.Equal(t, st.AllowedActions[0], turn.Action)
	last := h.s.Events[len(h.s.Events)-1]
	assert.Equal(t, st.AllowedActions[0], last.Action)
}

func TestChartInjectedWhenMissing(t *testing.T) {
	h := newHarness(t, nil)
	h.position(t, "chart", model.SubstepStart)
	opening := h.emit(t)
	assert.Equal(t, model.ActionShowChart, opening.Action)
	require.NotNil(t, opening.ChartSpec)

	turn := h.step(t, "North is the biggest region.")
	require.NotNil(t, turn.ChartSpec)
	assert.Equal(t, "Revenue by region", turn.ChartSpec.Title)
	assert.Equal(t, "Region", turn.ChartSpec.XLabel)
}

func TestChartDroppedOutsideChartStage(t *testing.T) {
	h := newHarness(t, nil)
	h.position(t, "structuring", model.SubstepPrimaryAsked)

	h.turns.results = []*model.TurnResult{{NextAction: model.ActionProbe, NextUtterance: "Look here.", ChartSpec: &model.ChartSpec{Type: "bar"}}}
	turn := h.step(t, "Revenue and costs.")
	assert.Nil(t, turn.ChartSpec)
}

func TestStageNoteUpserted(t *testing.T) {
	h := newHarness(t, nil)
	h.position(t, "structuring", model.SubstepStart)
	h.emit(t)

	h.turns.results = []*model.TurnResult{
		{NextAction: model.ActionProbe, NextUtterance: "What else?", StageFeedbackNote: "first take"},
	}
	h.step(t, "Revenue.")
	require.Len(t, h.s.Notes, 1)

	h.position(t, "structuring", model.SubstepPrimaryAsked)
	h.turns.results = []*model.TurnResult{
		{NextAction: model.ActionProbe, NextUtterance: "And costs?", StageFeedbackNote: "missed cost side"},
	}
	h.step(t, "Revenue only.")
	require.Len(t, h.s.Notes, 1)
	assert.Equal(t, model.StageNote{StageID: "structuring", Interviewer: "Alex", Note: "missed cost side"}, h.s.Notes[0])
}

// TestDebugPositionThenEmit 验证定位到 math 后输出预置问题：只记一条事件，不调用评估。
func TestDebugPositionThenEmit(t *testing.T) {
	h := newHarness(t, nil)
	h.position(t, "math", model.SubstepStart)
	turn := h.emit(t)

	assert.Equal(t, model.ActionAsk, turn.Action)
	assert.Equal(t, "What is the annual revenue of one store?", turn.Utterance)
	assert.Len(t, h.s.Events, 1)
	assert.Equal(t, "math", h.s.Events[0].StageID)
	assert.Empty(t, h.eval.reqs)
	assert.Equal(t, model.SubstepPrimaryAsked, h.s.Substep)
	assert.Equal(t, 1, h.s.UtterancesThisStage)
	assert.Equal(t, 1, h.gen.calls)
}

func TestDebugPositionRejectsBadTargets(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	err := h.ctrl.DebugSetPosition(ctx, h.s, "negotiation", model.SubstepStart)
	assert.ErrorIs(t, err, ErrUnknownStage)

	err = h.ctrl.DebugSetPosition(ctx, h.s, "math", model.SubstepProbeAsked)
	assert.ErrorIs(t, err, ErrInvalidSubstep)

	err = h.ctrl.DebugSetPosition(ctx, h.s, "case_intro", model.SubstepProbeAsked)
	assert.ErrorIs(t, err, ErrInvalidSubstep)

	err = h.ctrl.DebugSetPosition(ctx, h.s, "structuring", model.SubstepDone)
	assert.ErrorIs(t, err, ErrInvalidSubstep)

	assert.Equal(t, 0, h.s.StageIndex)
}

// TestFeedbackStageFinalizes 验证进入终局阶段时编译报告、记录反馈与结束语，此后拒绝继续推进。
func TestFeedbackStageFinalizes(t *testing.T) {
	h := newHarness(t, nil)
	h.position(t, "creative", model.SubstepStart)
	h.emit(t)

	h.eval.results = []*model.EvaluationResult{
		attempted(true, map[string]int{"differentiated_ideas": 4}),
		attempted(true, map[string]int{"case_relevance": 3}),
	}
	h.step(t, "Loyalty program, drive-thru, catering.")
	turn := h.step(t, "Catering, because offices are nearby.")

	assert.Equal(t, model.ActionDeliverFeedback, turn.Action)
	assert.Equal(t, "end_feedback", turn.StageID)
	require.NotNil(t, h.s.Report)
	assert.Equal(t, turn.Utterance, report.FeedbackText(h.s.Report))
	assert.Equal(t, h.ctrl.Catalog().Len(), h.s.StageIndex)
	assert.Equal(t, model.SubstepDone, h.s.Substep)
	assert.False(t, h.s.CompletedAt.IsZero())
	assert.True(t, h.ctrl.Finished(h.s))

	n := len(h.s.Events)
	assert.Equal(t, model.ActionDeliverFeedback, h.s.Events[n-2].Action)
	assert.Equal(t, model.ActionThankAndClose, h.s.Events[n-1].Action)

	pending := h.ctrl.Flush(h.s)
	require.Len(t, pending, 1)
	assert.Equal(t, "Thanks for your time, that's the end of the interview.", pending[0].Utterance)

	_, err := h.ctrl.Step(context.Background(), h.s, "Thanks!")
	assert.ErrorIs(t, err, ErrInterviewComplete)
	_, err = h.ctrl.EmitCurrentPrompt(context.Background(), h.s)
	assert.ErrorIs(t, err, ErrInterviewComplete)
}

func candidateEvents(s *model.Session) int {
	n := 0
	for _, e := range s.Events {
		if e.Role == model.RoleCandidate {
			n++
		}
	}
	return n
}

// TestStepRegeneratesMissingCase 已生成的案例从存储中丢失时重新生成，流程照常推进。
func TestStepRegeneratesMissingCase(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.ctrl.Start(context.Background(), h.s)
	require.NoError(t, err)
	require.Equal(t, 1, h.gen.calls)

	h.cases.getErrs = []error{casestore.ErrNotFound}
	h.step(t, "Is the decline across all stores?")

	assert.Equal(t, 2, h.gen.calls)
	assert.True(t, h.s.CaseGenerated)
	assert.Equal(t, 1, candidateEvents(h.s))
	kase, err := h.cases.Get(context.Background(), h.s.CaseID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee chain profitability", kase.Title)
}

// TestStepCaseStoreFailure 存储的其他错误直接返回，不重新生成也不记录候选人输入。
func TestStepCaseStoreFailure(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.ctrl.Start(context.Background(), h.s)
	require.NoError(t, err)

	storeErr := errors.New("store unavailable")
	h.cases.getErrs = []error{storeErr}
	_, err = h.ctrl.Step(context.Background(), h.s, "Is the decline across all stores?")

	require.ErrorIs(t, err, storeErr)
	assert.Contains(t, err.Error(), "load case")
	assert.Equal(t, 1, h.gen.calls)
	assert.Zero(t, candidateEvents(h.s))
}

func TestEvaluatorFailureSurfaces(t *testing.T) {
	h := newHarness(t, nil)
	h.position(t, "math", model.SubstepStart)
	h.emit(t)

	h.eval.err = errors.New("upstream timeout")
	_, err := h.ctrl.Step(context.Background(), h.s, "About $1M.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream timeout")
	assert.Empty(t, h.turns.reqs)

	families, err := h.reg.Gather()
	require.NoError(t, err)
	var failures float64
	for _, f := range families {
		if f.GetName() == "casecoach_collaborator_failures_total" {
			for _, m := range f.GetMetric() {
				failures += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, failures)
}

func TestGuardPrecedence(t *testing.T) {
	probeStage, _ := stage.Default().Get("structuring")
	probeStage.MaxInterviewerTurns = 2
	mathStage, _ := stage.Default().Get("math")

	tests := []struct {
		name  string
		in    guardInput
		ask   bool
		guard string
	}{
		{"budget beats probe", guardInput{stage: probeStage, substep: model.SubstepPrimaryAsked, utterances: 2}, false, "turn_budget"},
		{"probe beats advance", guardInput{stage: probeStage, substep: model.SubstepPrimaryAsked, utterances: 1, advance: true}, true, "probe_override"},
		{"advance after probe", guardInput{stage: probeStage, substep: model.SubstepProbeAsked, utterances: 1, advance: true}, false, "evaluator_advance"},
		{"ask_only advance", guardInput{stage: mathStage, substep: model.SubstepPrimaryAsked, utterances: 1, advance: true}, false, "evaluator_advance"},
		{"default ask", guardInput{stage: mathStage, substep: model.SubstepPrimaryAsked, utterances: 1}, true, "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ask, guard := decide(tt.in)
			assert.Equal(t, tt.ask, ask)
			assert.Equal(t, tt.guard, guard)
		})
	}
}
