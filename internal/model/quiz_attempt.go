package model

import "time"

// AttemptStatus 单次提交的评分状态
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "PENDING"
	AttemptPassed  AttemptStatus = "PASSED"
	AttemptFailed  AttemptStatus = "FAILED"
)

// QuizAttempt 只追加的评分历史：主测验提交 AssistanceLevel 为空，辅导提交为 1/2/3
// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	QuizID          uint          `gorm:"index:idx_attempt_quiz_user;type:bigint unsigned" json:"quizId"`
	UserID          uint          `gorm:"index:idx_attempt_quiz_user;type:bigint unsigned" json:"userId"`
	AssistanceLevel *int          `json:"assistanceLevel"`
	AttemptIndex    int           `json:"attemptIndex"`
	Status          AttemptStatus `gorm:"size:10;default:'PENDING'" json:"status"`
	Score           int           `json:"score"`
	CorrectAnswers  int           `json:"correctAnswers"`
	TotalQuestions  int           `json:"totalQuestions"`
	RawAnswers      string        `gorm:"type:json" json:"rawAnswers"`
	SubmittedAt     time.Time     `json:"submittedAt"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// IsMain 是否主测验提交
func (a *QuizAttempt) IsMain() bool {
	return a.AssistanceLevel == nil
}
