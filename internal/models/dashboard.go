package models

import "math"

// AnswerView is an answer with its question text and surah name resolved.
type AnswerView struct {
	Answer
	QuestionText string `json:"question_text"`
	SurahID      string `json:"surah_id,omitempty"`
	SurahName    string `json:"surah_name,omitempty"`
}

// DashboardStats are the learner's derived progress numbers.
type DashboardStats struct {
	TotalSubmissions  int `json:"total_submissions"`
	TotalMarks        int `json:"total_marks"`
	AnsweredSurahs    int `json:"answered_surahs"`
	TotalSurahs       int `json:"total_surahs"`
	CompletionPercent int `json:"completion_percent"`
}

// LearnerDashboard is the learner home screen.
type LearnerDashboard struct {
	Profile *Profile       `json:"profile"`
	Surahs  []Surah        `json:"surahs"`
	Answers []AnswerView   `json:"answers"`
	Stats   DashboardStats `json:"stats"`
}

// AdminOverview holds the back office counters.
type AdminOverview struct {
	Learners         int `db:"learners" json:"learners"`
	Surahs           int `db:"surahs" json:"surahs"`
	Questions        int `db:"questions" json:"questions"`
	Answers          int `db:"answers" json:"answers"`
	UngradedAnswers  int `db:"ungraded_answers" json:"ungraded_answers"`
	TotalMarks       int `db:"total_marks" json:"total_marks"`
	PendingDonations int `db:"pending_donations" json:"pending_donations"`
	PendingJoins     int `db:"pending_joins" json:"pending_joins"`
}

// CompletionPercent is round(100*answered/total) with halves rounded up, or 0 without surahs.
func CompletionPercent(answered, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(100*float64(answered)/float64(total) + 0.5))
}
