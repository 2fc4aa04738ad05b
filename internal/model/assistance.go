package model

import "time"

// AssistanceLevel1Def 一级辅导：自动评分的是/否判断题组
// swagger:model AssistanceLevel1Def
type AssistanceLevel1Def struct {
	BaseModel
	CreatorID   uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
}

func (AssistanceLevel1Def) TableName() string {
	return "assistance_level1_defs"
}

// swagger:model AssistanceLevel1Question
type AssistanceLevel1Question struct {
	BaseModel
	DefID         uint   `gorm:"index;type:bigint unsigned" json:"defId"`
	Content       string `gorm:"type:text;not null" json:"content"`
	CorrectAnswer bool   `json:"-"`
	Order         int    `gorm:"column:question_order" json:"order"`
	Explanation   string `gorm:"type:text" json:"explanation"`
}

func (AssistanceLevel1Question) TableName() string {
	return "assistance_level1_questions"
}

// AssistanceLevel2Def 二级辅导：教师批改的问答题组
// swagger:model AssistanceLevel2Def
type AssistanceLevel2Def struct {
	BaseModel
	CreatorID   uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
}

func (AssistanceLevel2Def) TableName() string {
	return "assistance_level2_defs"
}

// swagger:model AssistanceLevel2Question
type AssistanceLevel2Question struct {
	BaseModel
	DefID   uint   `gorm:"index;type:bigint unsigned" json:"defId"`
	Content string `gorm:"type:text;not null" json:"content"`
	Order   int    `gorm:"column:question_order" json:"order"`
}

func (AssistanceLevel2Question) TableName() string {
	return "assistance_level2_questions"
}

// AssistanceLevel3Def 三级辅导：参考资料，学生确认阅读即完成
// swagger:model AssistanceLevel3Def
type AssistanceLevel3Def struct {
	BaseModel
	CreatorID   uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	MaterialURL string `gorm:"size:500" json:"materialUrl"`
	Content     string `gorm:"type:text" json:"content"`
}

func (AssistanceLevel3Def) TableName() string {
	return "assistance_level3_defs"
}

// Level2SubmissionStatus 问答提交的批改状态
type Level2SubmissionStatus string

const (
	Level2Pending Level2SubmissionStatus = "pending"
	Level2Graded  Level2SubmissionStatus = "graded"
)

// AssistanceLevel2Submission 学生的问答作答，等待教师逐题批改
// swagger:model AssistanceLevel2Submission
type AssistanceLevel2Submission struct {
	UUIDBase
	QuizID   uint                   `gorm:"index:idx_l2sub_quiz_user;type:bigint unsigned" json:"quizId"`
	UserID   uint                   `gorm:"index:idx_l2sub_quiz_user;type:bigint unsigned" json:"userId"`
	DefID    uint                   `gorm:"index;type:bigint unsigned" json:"defId"`
	Status   Level2SubmissionStatus `gorm:"size:10;default:'pending'" json:"status"`
	GraderID *uint                  `gorm:"type:bigint unsigned" json:"graderId"`
	GradedAt *time.Time             `json:"gradedAt"`
	Passed   bool                   `gorm:"default:false" json:"passed"`
}

func (AssistanceLevel2Submission) TableName() string {
	return "assistance_level2_submissions"
}

// swagger:model AssistanceLevel2Answer
type AssistanceLevel2Answer struct {
	BaseModel
	SubmissionID string `gorm:"index;type:varchar(36)" json:"submissionId"`
	QuestionID   uint   `gorm:"type:bigint unsigned" json:"questionId"`
	Answer       string `gorm:"type:text" json:"answer"`
	IsCorrect    *bool  `json:"isCorrect"`
	Feedback     string `gorm:"type:text" json:"feedback"`
}

func (AssistanceLevel2Answer) TableName() string {
	return "assistance_level2_answers"
}
