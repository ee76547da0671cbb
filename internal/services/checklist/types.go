package checklist

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/xelth-com/mprgo/internal/models"
)

// QuestionPayload is the full replacement body of a question
type QuestionPayload struct {
	UUID       string `json:"UUID" validate:"omitempty,uuid"`
	ClientType string `json:"clientType" validate:"required,max=64"`
	Text       string `json:"text" validate:"required,max=2000"`
	Section    string `json:"section" validate:"max=128"`
	Active     *bool  `json:"active"`
}

// AnswerEntry is one element of an answer batch
type AnswerEntry struct {
	QuestionUUID string     `json:"questionUUID" validate:"required,uuid"`
	VisitUUID    string     `json:"visitUUID" validate:"required,uuid"`
	Answer1      AnswerText `json:"answer1" validate:"max=4000"`
	Answer2      AnswerText `json:"answer2" validate:"max=4000"`
}

// AnswerText accepts strings, booleans and numbers; the app sends yes/no
// answers as JSON booleans.
type AnswerText string

func (a *AnswerText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = AnswerText(s)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*a = AnswerText(strconv.FormatBool(b))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*a = AnswerText(n.String())
		return nil
	}
	if string(data) == "null" {
		*a = ""
		return nil
	}
	return fmt.Errorf("answer must be a string, boolean or number")
}

// AnswerView is the flattened answer projection; empty answers are omitted
type AnswerView struct {
	UUID         string `json:"UUID"`
	QuestionUUID string `json:"questionUUID"`
	VisitUUID    string `json:"visitUUID"`
	Answer1      string `json:"answer1,omitempty"`
	Answer2      string `json:"answer2,omitempty"`
}

func newAnswerView(a *models.ChecklistAnswer) AnswerView {
	return AnswerView{
		UUID:         a.UUID,
		QuestionUUID: a.QuestionUUID,
		VisitUUID:    a.VisitUUID,
		Answer1:      a.Answer1,
		Answer2:      a.Answer2,
	}
}

// EntryError reports why one batch entry was not stored
type EntryError struct {
	Index        int    `json:"index"`
	VisitUUID    string `json:"visitUUID,omitempty"`
	QuestionUUID string `json:"questionUUID,omitempty"`
	Status       int    `json:"status"`
	Error        string `json:"error"`
}

// SubmitResult is the outcome of an answer batch
type SubmitResult struct {
	Created []AnswerView `json:"created"`
	Failed  []EntryError `json:"failed"`
}

// AnswerQuery filters answers; nil fields do not filter
type AnswerQuery struct {
	Visit    *string
	Client   *string
	Question *string
}
