package collab

import (
	"encoding/json"
	"fmt"

	"case-coach/server/internal/llm"
)

const caseSystem = `You write realistic consulting case interviews.
Return ONE JSON object with:
- "title", "type", "industry": short strings
- "background": 3-5 sentences describing the client situation
- "stages": an object keyed by every id in stages_required. Each value holds the stage content:
  - case_intro: {"readout": the case prompt read aloud to the candidate}
  - chart: {"primary_question", "probe_question", "chart_spec": {"type": bar|line|scatter|table, "title", "x_label", "y_label", "data"}}
  - any other stage: {"primary_question", "probe_question"}
Numbers must be internally consistent. Do not include answers.`

const turnSystem = `You are the interviewer in a live case interview.
Stay in character as described by "interviewer". Follow "stage_guidance".
Only use an action from "allowed_actions"; if "forced_action" is present you must use it.
Speak in short, natural sentences. Never reveal the model answer or scores.
Set "stage_done" to true only when this stage has nothing left to ask.
"stage_feedback_note" is an optional one-sentence private note about the candidate's performance in this stage.
Return ONE JSON object: {"next_action", "next_utterance", "stage_done", "chart_spec", "stage_feedback_note"}.`

const evaluationSystem = `You assess one stage of a case interview.
Decide whether the candidate attempted a substantive answer ("student_attempted_answer") and whether the
stage has been covered well enough to move on ("stage_should_advance").
When an answer was attempted, score each criterion in "rubric" from 1 (poor) to 5 (excellent) in
"evaluation.rubric_scores" and write a short private note in "evaluation.notes_internal".
Clarifying questions and small talk are not attempted answers.
Return ONE JSON object: {"student_attempted_answer", "stage_should_advance", "evaluation": {"should_evaluate", "rubric_scores", "notes_internal"}}.`

const narrativeSystem = `You write the final feedback report for a case interview.
The band and every score are already computed: copy them exactly, do not recompute them.
For each dimension write 1-3 specific strengths and 1-3 specific improvements grounded in the notes and quotes.
Write a 2-4 sentence executive summary.
Return ONE JSON object: {"case", "overall": {"band", "executiveSummary"}, "rubrics": [{"key", "title", "score", "strengths": [text], "improvements": [text]}]}.`

// buildMessages 组装 system + JSON payload 两条消息。
func buildMessages(system string, payload any) ([]llm.Message, error) {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: string(body)},
	}, nil
}
