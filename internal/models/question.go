package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// QuestionOptions is the JSONB list of MCQ choices.
type QuestionOptions []string

// Value implements driver.Valuer.
func (o QuestionOptions) Value() (driver.Value, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(o))
}

// Scan implements sql.Scanner.
func (o *QuestionOptions) Scan(value interface{}) error {
	if value == nil {
		*o = QuestionOptions{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported options type %T", value)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	*o = out
	return nil
}

// Question is a multiple-choice question belonging to a surah.
type Question struct {
	ID            string          `db:"id" json:"id"`
	SurahID       string          `db:"surah_id" json:"surah_id"`
	Text          string          `db:"question_text" json:"question_text"`
	Options       QuestionOptions `db:"options" json:"options"`
	CorrectAnswer int             `db:"correct_answer" json:"correct_answer"`
	Points        int             `db:"points" json:"points"`
	Order         int             `db:"question_order" json:"question_order"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// CorrectOption returns the text of the correct choice.
func (q Question) CorrectOption() (string, bool) {
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return "", false
	}
	return q.Options[q.CorrectAnswer], true
}

// AutoMark awards the question's points when answer equals the correct option text.
func (q Question) AutoMark(answer string) int {
	if correct, ok := q.CorrectOption(); ok && correct == answer {
		return q.Points
	}
	return 0
}

// PublicQuestion hides the correct answer from learners.
type PublicQuestion struct {
	ID      string   `json:"id"`
	SurahID string   `json:"surah_id"`
	Text    string   `json:"question_text"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
	Order   int      `json:"question_order"`
}

// Public strips the answer key.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, SurahID: q.SurahID, Text: q.Text, Options: q.Options, Points: q.Points, Order: q.Order}
}

// QuestionFilter scopes question listings.
type QuestionFilter struct {
	SurahID string
}

// Answer is a learner's submission for a question.
type Answer struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	QuestionID  string     `db:"question_id" json:"question_id"`
	AnswerText  string     `db:"answer_text" json:"answer_text"`
	Marks       *int       `db:"marks" json:"marks,omitempty"`
	Feedback    *string    `db:"feedback" json:"feedback,omitempty"`
	MarkedAt    *time.Time `db:"marked_at" json:"marked_at,omitempty"`
	SubmittedAt time.Time  `db:"submitted_at" json:"submitted_at"`
}

// Submission is an answer joined with its question, surah and learner for grading screens.
type Submission struct {
	Answer
	QuestionText   string  `db:"question_text" json:"question_text"`
	QuestionPoints int     `db:"question_points" json:"question_points"`
	SurahID        string  `db:"surah_id" json:"surah_id"`
	SurahNumber    int     `db:"surah_number" json:"surah_number"`
	SurahName      string  `db:"surah_name" json:"surah_name"`
	LearnerName    *string `db:"learner_name" json:"learner_name,omitempty"`
	LearnerUserID  *string `db:"learner_user_id" json:"learner_user_id,omitempty"`
}

// SubmissionFilter scopes submission listings.
type SubmissionFilter struct {
	SurahID  string
	UserID   string
	Ungraded bool
	Page     int
	PageSize int
}

// QuestionRequest creates or replaces an MCQ question.
type QuestionRequest struct {
	SurahID       string   `json:"surah_id" validate:"required"`
	Text          string   `json:"question_text" validate:"required"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Points        int      `json:"points"`
	Order         int      `json:"question_order" validate:"min=0"`
}

// SubmitAnswerRequest is a learner's answer to one question.
type SubmitAnswerRequest struct {
	AnswerText string `json:"answer_text" validate:"required"`
}

// GradeRequest records an admin's marks and feedback.
type GradeRequest struct {
	Marks    int     `json:"marks" validate:"min=0"`
	Feedback *string `json:"feedback"`
}
