package model

// FinalStatus 终态标记
type FinalStatus string

const (
	FinalPassed FinalStatus = "PASSED"
	FinalFailed FinalStatus = "FAILED"
)

// AssistanceRequirement 自动流程当前要求的辅导阶段
type AssistanceRequirement string

const (
	AssistanceNone   AssistanceRequirement = "NONE"
	AssistanceLevel1 AssistanceRequirement = "ASSISTANCE_LEVEL1"
	AssistanceLevel2 AssistanceRequirement = "ASSISTANCE_LEVEL2"
	AssistanceLevel3 AssistanceRequirement = "ASSISTANCE_LEVEL3"
)

// Level 返回要求对应的级别序号，NONE 为 0
func (a AssistanceRequirement) Level() int {
	switch a {
	case AssistanceLevel1:
		return 1
	case AssistanceLevel2:
		return 2
	case AssistanceLevel3:
		return 3
	}
	return 0
}

// RequirementForLevel 级别序号到枚举的映射
func RequirementForLevel(level int) AssistanceRequirement {
	switch level {
	case 1:
		return AssistanceLevel1
	case 2:
		return AssistanceLevel2
	case 3:
		return AssistanceLevel3
	}
	return AssistanceNone
}

// 前端消费的下一步提示令牌
const (
	StepTakeMainQuizNow      = "TAKE_MAIN_QUIZ_NOW"
	StepTryMainQuizAgain     = "TRY_MAIN_QUIZ_AGAIN"
	StepCompleteLevel1       = "COMPLETE_ASSISTANCE_LEVEL1"
	StepCompleteLevel2       = "COMPLETE_ASSISTANCE_LEVEL2"
	StepViewLevel3           = "VIEW_ASSISTANCE_LEVEL3"
	StepQuizPassed           = "QUIZ_PASSED"
	StepQuizFailedMaxAttempt = "QUIZ_FAILED_MAX_ATTEMPTS"
)

// StepForLevel 级别对应的"去完成辅导"令牌
func StepForLevel(level int) string {
	switch level {
	case 1:
		return StepCompleteLevel1
	case 2:
		return StepCompleteLevel2
	case 3:
		return StepViewLevel3
	}
	return StepTakeMainQuizNow
}

// QuizProgress 每个 (学生, 测验) 一条进度记录，由进度状态机维护
// swagger:model QuizProgress
type QuizProgress struct {
	BaseModel
	UserID uint `gorm:"uniqueIndex:idx_progress_user_quiz;type:bigint unsigned" json:"userId"`
	QuizID uint `gorm:"uniqueIndex:idx_progress_user_quiz;type:bigint unsigned" json:"quizId"`

	CurrentAttempt    int          `gorm:"default:0" json:"currentAttempt"`
	FailedAttempts    int          `gorm:"default:0" json:"failedAttempts"`
	LastAttemptPassed *bool        `json:"lastAttemptPassed"`
	FinalStatus       *FinalStatus `gorm:"size:10" json:"finalStatus"`

	Level1Completed bool `gorm:"default:false" json:"level1Completed"`
	Level2Completed bool `gorm:"default:false" json:"level2Completed"`
	Level3Completed bool `gorm:"default:false" json:"level3Completed"`

	AssistanceRequired AssistanceRequirement `gorm:"size:20;default:'NONE'" json:"assistanceRequired"`
	NextStep           string                `gorm:"size:40;default:'TAKE_MAIN_QUIZ_NOW'" json:"nextStep"`

	// 教师人工干预
	OverrideSystemFlow    bool                   `gorm:"default:false" json:"overrideSystemFlow"`
	ManuallyAssignedLevel *AssistanceRequirement `gorm:"size:20" json:"manuallyAssignedLevel"`
	Level3AccessGranted   bool                   `gorm:"default:false" json:"level3AccessGranted"`

	// 乐观锁版本号，跨进程写入冲突检测
	Version int64 `gorm:"default:0" json:"-"`
}

func (QuizProgress) TableName() string {
	return "quiz_progresses"
}

// IsTerminal 终态记录不再接受自动流程变更
func (p *QuizProgress) IsTerminal() bool {
	return p.FinalStatus != nil
}

// LevelCompleted 级别完成标记读取
func (p *QuizProgress) LevelCompleted(level int) bool {
	switch level {
	case 1:
		return p.Level1Completed
	case 2:
		return p.Level2Completed
	case 3:
		return p.Level3Completed
	}
	return false
}

// MarkLevelCompleted 级别完成标记写入，仅置 true，不可逆
func (p *QuizProgress) MarkLevelCompleted(level int) {
	switch level {
	case 1:
		p.Level1Completed = true
	case 2:
		p.Level2Completed = true
	case 3:
		p.Level3Completed = true
	}
}
