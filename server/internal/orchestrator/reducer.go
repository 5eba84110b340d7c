package orchestrator

import (
	"maps"

	"case-coach/server/internal/model"
	"case-coach/server/internal/stage"
)

// 以下函数只做“事实归约”：追加事件、记录评分、更新备注，不触发外部调用。

func (c *Controller) appendCandidate(s *model.Session, stageID, text string) {
	s.Events = append(s.Events, model.Event{
		Role:    model.RoleCandidate,
		StageID: stageID,
		Text:    text,
		TS:      c.now(),
	})
}

// appendInterviewer 记录面试官轮次并计入本阶段发言次数。
func (c *Controller) appendInterviewer(s *model.Session, t model.Turn) {
	s.Events = append(s.Events, model.Event{
		Role:      model.RoleInterviewer,
		StageID:   t.StageID,
		Text:      t.Utterance,
		TS:        c.now(),
		Action:    t.Action,
		ChartSpec: t.ChartSpec,
	})
	s.UtterancesThisStage++
	c.metrics.Turn(t.StageID, string(t.Action))
}

// recordEvaluation 追加评分记录；同一阶段的多次记录全部保留。
// substep 取推进之前的位置。
func (c *Controller) recordEvaluation(s *model.Session, st stage.Stage, eval *model.EvaluationResult) {
	quote, _ := s.LastCandidateUtterance(st.ID)
	s.Evaluations = append(s.Evaluations, model.EvaluationRecord{
		StageID:        st.ID,
		Substep:        s.Substep,
		Scores:         maps.Clone(eval.Evaluation.RubricScores),
		Notes:          eval.Evaluation.NotesInternal,
		CandidateQuote: quote,
	})
	c.metrics.EvaluationRecorded(st.ID)
}

// upsertNote 每个阶段最多保留一条备注，后写覆盖先写。
func upsertNote(s *model.Session, note model.StageNote) {
	for i := range s.Notes {
		if s.Notes[i].StageID == note.StageID {
			s.Notes[i] = note
			return
		}
	}
	s.Notes = append(s.Notes, note)
}
