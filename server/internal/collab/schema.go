package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"case-coach/server/internal/llm"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const chartDef = `"chart": {
	"type": "object",
	"required": ["type", "title", "data"],
	"properties": {
		"type": {"enum": ["bar", "line", "scatter", "table"]},
		"title": {"type": "string"},
		"x_label": {"type": ["string", "null"]},
		"y_label": {"type": ["string", "null"]},
		"data": {"type": ["object", "array"]}
	}
}`

var caseSchema = mustSchema("case_content", `{
	"type": "object",
	"required": ["background", "stages"],
	"properties": {
		"title": {"type": "string"},
		"type": {"type": "string"},
		"industry": {"type": "string"},
		"background": {"type": "string", "minLength": 1},
		"stages": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"readout": {"type": "string"},
					"primary_question": {"type": "string"},
					"probe_question": {"type": "string"},
					"chart_spec": {"$ref": "#/$defs/chart"}
				}
			}
		}
	},
	"$defs": {`+chartDef+`}
}`)

var turnSchema = mustSchema("interviewer_turn", `{
	"type": "object",
	"required": ["next_action", "next_utterance"],
	"properties": {
		"next_action": {"type": "string"},
		"next_utterance": {"type": "string", "minLength": 1},
		"stage_done": {"type": "boolean"},
		"chart_spec": {"anyOf": [{"type": "null"}, {"$ref": "#/$defs/chart"}]},
		"stage_feedback_note": {"type": ["string", "null"]}
	},
	"$defs": {`+chartDef+`}
}`)

var evaluationSchema = mustSchema("stage_evaluation", `{
	"type": "object",
	"properties": {
		"student_attempted_answer": {"type": "boolean"},
		"stage_should_advance": {"type": "boolean"},
		"evaluation": {
			"type": "object",
			"properties": {
				"should_evaluate": {"type": "boolean"},
				"rubric_scores": {"type": "object", "additionalProperties": {"type": "number"}},
				"notes_internal": {"type": ["string", "null"]}
			}
		}
	}
}`)

var narrativeSchema = mustSchema("interview_report", `{
	"type": "object",
	"required": ["overall", "rubrics"],
	"properties": {
		"case": {"type": "object"},
		"overall": {
			"type": "object",
			"required": ["executiveSummary"],
			"properties": {
				"band": {"type": "string"},
				"executiveSummary": {"type": "string", "minLength": 1}
			}
		},
		"rubrics": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["key"],
				"properties": {
					"key": {"type": "string"},
					"title": {"type": "string"},
					"score": {"type": "number"},
					"strengths": {"type": "array", "items": {"type": "string"}},
					"improvements": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`)

// outputSchema 一份输出契约：发给模型的 schema 与本地编译后的校验器。
type outputSchema struct {
	name     string
	request  *llm.JSONSchema
	compiled *jsonschema.Schema
}

func mustSchema(name, raw string) *outputSchema {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("parse %s schema: %v", name, err))
	}
	compileDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse %s schema: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, compileDoc); err != nil {
		panic(fmt.Sprintf("add %s schema: %v", name, err))
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", name, err))
	}

	return &outputSchema{
		name:     name,
		request:  &llm.JSONSchema{Name: name, Schema: doc},
		compiled: compiled,
	}
}

var errNoJSON = errors.New("no JSON object in output")

// decode 取出 JSON、按 schema 校验，再解码到 v。返回的错误均表示输出不合法。
func (s *outputSchema) decode(content string, v any) error {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return errNoJSON
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	if err := s.compiled.Validate(inst); err != nil {
		return fmt.Errorf("schema %s: %w", s.name, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", s.name, err)
	}
	return nil
}
