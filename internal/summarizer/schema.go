package summarizer

import "encoding/json"

// Notes is the structured summary the model must return. Every field is
// required in every object; fields with no value carry an explicit null.
type Notes struct {
	Summary     string       `json:"summary"`
	KeyInsights []KeyInsight `json:"key_insights"`
	ActionItems []ActionItem `json:"action_items"`
}

type KeyInsight struct {
	Headline string   `json:"headline"`
	Detail   string   `json:"detail"`
	Evidence []string `json:"evidence"`
}

type ActionItem struct {
	Assignee   string   `json:"assignee"`
	Task       string   `json:"task"`
	DueDate    *string  `json:"due_date"`
	Priority   *string  `json:"priority"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// notesSchema is enforced server-side by the model provider in strict mode:
// no extra properties, no omitted fields.
var notesSchema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "summary": { "type": "string" },
    "key_insights": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "headline": { "type": "string" },
          "detail": { "type": "string" },
          "evidence": { "type": "array", "items": { "type": "string" } }
        },
        "required": ["headline", "detail", "evidence"]
      }
    },
    "action_items": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "assignee": { "type": "string" },
          "task": { "type": "string" },
          "due_date": {
            "anyOf": [
              { "type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$" },
              { "type": "null" }
            ]
          },
          "priority": {
            "anyOf": [
              { "type": "string", "enum": ["P0", "P1", "P2"] },
              { "type": "null" }
            ]
          },
          "confidence": { "type": "number", "minimum": 0, "maximum": 1 },
          "evidence": { "type": "array", "items": { "type": "string" } }
        },
        "required": ["assignee", "task", "due_date", "priority", "confidence", "evidence"]
      }
    }
  },
  "required": ["summary", "key_insights", "action_items"]
}`)
