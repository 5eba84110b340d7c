package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"case-coach/server/internal/model"
	"case-coach/server/internal/report"
	"case-coach/server/internal/stage"
)

var errEmptyUtterance = errors.New("turn generator returned an empty utterance")

// evaluate 对当前阶段历史调用评估协作者。
func (c *Controller) evaluate(ctx context.Context, s *model.Session, st stage.Stage) (*model.EvaluationResult, error) {
	sc, err := c.stageContext(ctx, s, st)
	if err != nil {
		return nil, err
	}
	req := &model.EvaluationRequest{
		StageID:    st.ID,
		StageTitle: st.Title,
		Rubric:     append([]string(nil), st.Rubric...),
		History:    model.Snapshot(s.StageHistory(st.ID)),
		Context:    sc,
		Guidance:   st.Guidance,
	}
	res, err := c.evaluator.Evaluate(ctx, req)
	if err != nil {
		c.metrics.CollaboratorFailed("evaluator")
		return nil, fmt.Errorf("evaluate %s: %w", st.ID, err)
	}
	if res == nil {
		return &model.EvaluationResult{}, nil
	}
	return res, nil
}

// generateTurn 调用轮次生成协作者，并对结果做护栏处理后写入事件日志。
func (c *Controller) generateTurn(ctx context.Context, s *model.Session, st stage.Stage, forced model.Action) (model.Turn, bool, error) {
	sc, err := c.stageContext(ctx, s, st)
	if err != nil {
		return model.Turn{}, false, err
	}
	req := &model.TurnRequest{
		StageID:        st.ID,
		StageTitle:     st.Title,
		AllowedActions: append([]model.Action(nil), st.AllowedActions...),
		Substep:        s.Substep,
		History:        model.Snapshot(s.StageHistory(st.ID)),
		Context:        sc,
		Interviewer:    st.Interviewer(),
		Guidance:       st.Guidance,
		ForcedAction:   forced,
	}
	res, err := c.turns.NextTurn(ctx, req)
	if err == nil && (res == nil || strings.TrimSpace(res.NextUtterance) == "") {
		err = errEmptyUtterance
	}
	if err != nil {
		c.metrics.CollaboratorFailed("turn_generator")
		return model.Turn{}, false, fmt.Errorf("generate turn for %s: %w", st.ID, err)
	}

	turn := c.applyGuardrails(s, st, sc, forced, res)
	c.appendInterviewer(s, turn)
	return turn, res.StageDone, nil
}

// applyGuardrails 修正越界的动作、补齐图表并记录阶段备注。
func (c *Controller) applyGuardrails(s *model.Session, st stage.Stage, sc *model.StageContext, forced model.Action, res *model.TurnResult) model.Turn {
	action := res.NextAction
	switch {
	case forced != "":
		if action != forced {
			c.logger.Debug("forced action applied", "session", s.ID, "stage", st.ID, "got", action, "forced", forced)
		}
		action = forced
	case !st.Allows(action):
		fallback := st.AllowedActions[0]
		c.logger.Warn("action not allowed, substituting", "session", s.ID, "stage", st.ID, "got", action, "fallback", fallback)
		action = fallback
	}

	var chart *model.ChartSpec
	if st.NeedsChart {
		chart = res.ChartSpec
		if chart == nil {
			chart = sc.Stage.ChartSpec
		}
	}

	if note := strings.TrimSpace(res.StageFeedbackNote); note != "" {
		upsertNote(s, model.StageNote{StageID: st.ID, Interviewer: st.InterviewerName, Note: note})
	}

	return model.Turn{
		Action:    action,
		Utterance: strings.TrimSpace(res.NextUtterance),
		ChartSpec: chart,
		StageID:   st.ID,
	}
}

// completeStage 推进到下一阶段，并把下一阶段的开场放进待输出队列。
func (c *Controller) completeStage(ctx context.Context, s *model.Session, done stage.Stage) error {
	c.metrics.StageCompleted(done.ID)
	s.StageIndex++
	if c.Finished(s) {
		s.Substep = model.SubstepDone
		c.logger.Info("stage completed", "session", s.ID, "stage", done.ID, "next", "")
		return c.finish(ctx, s)
	}

	s.Substep = model.SubstepStart
	s.UtterancesThisStage = 0
	next, _ := c.catalog.At(s.StageIndex)
	c.logger.Info("stage completed", "session", s.ID, "stage", done.ID, "next", next.ID)

	if next.IsTerminal() {
		turns, err := c.deliverFeedback(ctx, s, next)
		if err != nil {
			return err
		}
		s.Pending = append(s.Pending, turns...)
		return nil
	}

	turn, err := c.EmitCurrentPrompt(ctx, s)
	if err != nil {
		return err
	}
	s.Pending = append(s.Pending, turn)
	return nil
}

// deliverFeedback 编译报告并输出反馈与结束语，返回这两个轮次。
func (c *Controller) deliverFeedback(ctx context.Context, s *model.Session, st stage.Stage) ([]model.Turn, error) {
	if err := c.finish(ctx, s); err != nil {
		return nil, err
	}
	feedback := model.Turn{Action: model.ActionDeliverFeedback, Utterance: report.FeedbackText(s.Report), StageID: st.ID}
	closing := model.Turn{Action: model.ActionThankAndClose, Utterance: closingLine, StageID: st.ID}
	c.appendInterviewer(s, feedback)
	c.appendInterviewer(s, closing)

	s.StageIndex = c.catalog.Len()
	s.Substep = model.SubstepDone
	return []model.Turn{feedback, closing}, nil
}

// finish 记录结束时间并编译最终报告，重复调用不会重新编译。
func (c *Controller) finish(ctx context.Context, s *model.Session) error {
	if s.Report != nil {
		return nil
	}
	kase, err := c.cases.Get(ctx, s.CaseID)
	if err != nil {
		return fmt.Errorf("load case for report: %w", err)
	}
	if s.CompletedAt.IsZero() {
		s.CompletedAt = c.now()
	}
	rep := c.reports.Generate(ctx, s, kase)
	if rep == nil {
		return errors.New("report compiler returned no report")
	}
	s.Report = rep
	c.metrics.InterviewCompleted()
	c.logger.Info("interview completed", "session", s.ID, "band", s.Report.Overall.Band,
		"evaluations", len(s.Evaluations))
	return nil
}
