package model

// 主测验：学生最终需要通过的考核
// swagger:model Quiz
type Quiz struct {
	BaseModel
	CreatorID    uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
	Title        string `gorm:"size:200;not null" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	MaxAttempts  int    `gorm:"default:4" json:"maxAttempts"`
	PassingScore int    `gorm:"default:60" json:"passingScore"`
	IsPublished  bool   `gorm:"default:false" json:"isPublished"`

	// 辅导阶段配置：为空表示该级别未配置
	AssistanceLevel1ID *uint `gorm:"type:bigint unsigned" json:"assistanceLevel1Id"`
	AssistanceLevel2ID *uint `gorm:"type:bigint unsigned" json:"assistanceLevel2Id"`
	AssistanceLevel3ID *uint `gorm:"type:bigint unsigned" json:"assistanceLevel3Id"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	QuizID        uint   `gorm:"index;type:bigint unsigned" json:"quizId"`
	Content       string `gorm:"type:text;not null" json:"content"`
	Options       string `gorm:"type:json" json:"options"`
	CorrectAnswer string `gorm:"type:text" json:"-"`
	Order         int    `gorm:"column:question_order" json:"order"`
	Explanation   string `gorm:"type:text" json:"explanation"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
