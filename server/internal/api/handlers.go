package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"case-coach/server/internal/model"
	"case-coach/server/internal/orchestrator"
	"case-coach/server/internal/report"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createSessionRequest struct {
	Theme      string `json:"theme"`
	Difficulty string `json:"difficulty"`
	CaseType   string `json:"case_type"`
	Industry   string `json:"industry"`
	// StartStage/Substep 仅在开启调试时生效：跳过开场直接定位。
	StartStage string `json:"start_stage"`
	Substep    string `json:"substep"`
}

type respondRequest struct {
	Text string `json:"text"`
}

type debugPositionRequest struct {
	StageID string `json:"stage_id"`
	Substep string `json:"substep"`
}

// turnsResponse 一次交互产生的全部面试官轮次，按输出顺序排列。
type turnsResponse struct {
	SessionID string       `json:"session_id"`
	Turns     []model.Turn `json:"turns"`
	StageID   string       `json:"stage_id,omitempty"`
	Substep   string       `json:"substep"`
	Done      bool         `json:"done"`
}

type stateResponse struct {
	SessionID   string                   `json:"session_id"`
	CaseID      string                   `json:"case_id"`
	StageIndex  int                      `json:"stage_index"`
	StageID     string                   `json:"stage_id,omitempty"`
	Substep     string                   `json:"substep"`
	Utterances  int                      `json:"utterances_this_stage"`
	Done        bool                     `json:"done"`
	Events      []model.EventRecord      `json:"events"`
	Evaluations []model.EvaluationRecord `json:"evaluations"`
	Notes       []model.StageNote        `json:"notes"`
}

// handleStages 返回阶段目录。
func (s *Server) handleStages(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Catalog().Stages())
}

// handleCreateSession 创建会话、生成案例并返回开场轮次。
func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	if req.StartStage != "" && !s.config.Interview.EnableDebug {
		c.JSON(http.StatusForbidden, gin.H{"error": "debug positioning disabled"})
		return
	}

	defaults := s.config.Interview
	params := model.CaseParams{
		Theme:      firstNonEmpty(req.Theme, defaults.Theme),
		Difficulty: firstNonEmpty(req.Difficulty, defaults.Difficulty),
		CaseType:   firstNonEmpty(req.CaseType, defaults.CaseType),
		Industry:   firstNonEmpty(req.Industry, defaults.Industry),
	}
	sess := model.NewSession(uuid.NewString(), uuid.NewString(), params)
	ctx := c.Request.Context()

	var turns []model.Turn
	var finished *model.Report
	var err error
	if req.StartStage != "" {
		turns, finished, err = s.position(ctx, sess, req.StartStage, firstNonEmpty(req.Substep, string(model.SubstepStart)))
	} else {
		var opening model.Turn
		opening, err = s.ctrl.Start(ctx, sess)
		turns = append([]model.Turn{opening}, s.ctrl.Flush(sess)...)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Info("session created", "session", sess.ID, "case", sess.CaseID, "theme", params.Theme)
	s.publish(ctx, sess.ID, finished)
	c.JSON(http.StatusCreated, s.turnsResponse(sess, turns))
}

// handleRespond 处理候选人的一次输入。
func (s *Server) handleRespond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	resp, err := s.respond(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

var errEmptyText = errors.New("text required")

// respond 在会话锁内推进流程；流程在本次结束时发布报告，且只发布一次。
func (s *Server) respond(ctx context.Context, id, text string) (turnsResponse, error) {
	if strings.TrimSpace(text) == "" {
		return turnsResponse{}, errEmptyText
	}

	var resp turnsResponse
	var finished *model.Report
	err := s.sessions.With(ctx, id, func(sess *model.Session) error {
		turn, err := s.ctrl.Step(ctx, sess, text)
		if err != nil {
			return err
		}
		turns := append([]model.Turn{turn}, s.ctrl.Flush(sess)...)
		resp = s.turnsResponse(sess, turns)
		if resp.Done {
			finished = sess.Report
		}
		return nil
	})
	if err != nil {
		return turnsResponse{}, err
	}

	s.publish(ctx, id, finished)
	return resp, nil
}

// publish 发布刚完成的报告；r 为 nil 表示本次没有结束面试。
func (s *Server) publish(ctx context.Context, id string, r *model.Report) {
	if r == nil {
		return
	}
	if err := s.publisher.PublishReport(ctx, id, r); err != nil {
		s.logger.Warn("publish report failed", "session", id, "err", err)
	}
}

// handleState 返回当前位置与事件日志快照。
func (s *Server) handleState(c *gin.Context) {
	var resp stateResponse
	err := s.sessions.With(c.Request.Context(), c.Param("id"), func(sess *model.Session) error {
		resp = stateResponse{
			SessionID:   sess.ID,
			CaseID:      sess.CaseID,
			StageIndex:  sess.StageIndex,
			StageID:     s.stageID(sess),
			Substep:     string(sess.Substep),
			Utterances:  sess.UtterancesThisStage,
			Done:        s.ctrl.Finished(sess),
			Events:      model.Snapshot(sess.Events),
			Evaluations: append([]model.EvaluationRecord(nil), sess.Evaluations...),
			Notes:       append([]model.StageNote(nil), sess.Notes...),
		}
		return nil
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleReport 以 json/markdown/html 返回最终报告。
func (s *Server) handleReport(c *gin.Context) {
	var r *model.Report
	err := s.sessions.With(c.Request.Context(), c.Param("id"), func(sess *model.Session) error {
		r = sess.Report
		return nil
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not ready"})
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, r)
	case "markdown", "md":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.Markdown(r)))
	case "html":
		html, err := report.HTML(r)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json, markdown or html"})
	}
}

// handleDebugPosition 调试用：跳到指定阶段并输出该位置的预置问题。
func (s *Server) handleDebugPosition(c *gin.Context) {
	var req debugPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.StageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stage_id required"})
		return
	}
	ctx := c.Request.Context()

	var resp turnsResponse
	var finished *model.Report
	err := s.sessions.With(ctx, c.Param("id"), func(sess *model.Session) error {
		turns, r, err := s.position(ctx, sess, req.StageID, firstNonEmpty(req.Substep, string(model.SubstepStart)))
		if err != nil {
			return err
		}
		resp = s.turnsResponse(sess, turns)
		finished = r
		return nil
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.publish(ctx, resp.SessionID, finished)
	c.JSON(http.StatusOK, resp)
}

// position 定位并输出该位置的预置问题；定位到反馈阶段会结束面试，
// 报告首次编译时一并返回，已有报告的会话不会再次发布。
func (s *Server) position(ctx context.Context, sess *model.Session, stageID, substep string) ([]model.Turn, *model.Report, error) {
	reported := sess.Report != nil
	sub, ok := model.ParseSubstep(substep)
	if !ok {
		return nil, nil, orchestrator.ErrInvalidSubstep
	}
	if err := s.ctrl.DebugSetPosition(ctx, sess, stageID, sub); err != nil {
		return nil, nil, err
	}
	turn, err := s.ctrl.EmitCurrentPrompt(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	turns := append([]model.Turn{turn}, s.ctrl.Flush(sess)...)
	if reported || !s.ctrl.Finished(sess) {
		return turns, nil, nil
	}
	return turns, sess.Report, nil
}

func (s *Server) turnsResponse(sess *model.Session, turns []model.Turn) turnsResponse {
	return turnsResponse{
		SessionID: sess.ID,
		Turns:     turns,
		StageID:   s.stageID(sess),
		Substep:   string(sess.Substep),
		Done:      s.ctrl.Finished(sess),
	}
}

func (s *Server) stageID(sess *model.Session) string {
	st, ok := s.ctrl.Catalog().At(sess.StageIndex)
	if !ok {
		return ""
	}
	return st.ID
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
