package service

import (
	"eduquiz_backend/internal/model"
)

// AssistanceLevelStatus 单个辅导级别的配置与完成情况，供前端展示
type AssistanceLevelStatus struct {
	Level      int  `json:"level"`
	Configured bool `json:"configured"`
	Completed  bool `json:"completed"`
}

// StatusView 进度的只读投影：原始字段、按人工干预优先级解析后的
// 有效要求与下一步、以及完整历史
type StatusView struct {
	QuizID uint `json:"quizId"`
	UserID uint `json:"userId"`

	CurrentAttempt    int                `json:"currentAttempt"`
	FailedAttempts    int                `json:"failedAttempts"`
	LastAttemptPassed *bool              `json:"lastAttemptPassed"`
	FinalStatus       *model.FinalStatus `json:"finalStatus"`

	AssistanceRequired model.AssistanceRequirement `json:"assistanceRequired"`
	NextStep           string                      `json:"nextStep"`

	OverrideSystemFlow    bool                         `json:"overrideSystemFlow"`
	ManuallyAssignedLevel *model.AssistanceRequirement `json:"manuallyAssignedLevel"`
	Level3AccessGranted   bool                         `json:"level3AccessGranted"`

	CanTakeQuiz bool `json:"canTakeQuiz"`
	MaxAttempts int  `json:"maxAttempts"`

	Levels  []AssistanceLevelStatus `json:"levels"`
	History []model.QuizAttempt     `json:"history"`
}

// GetStatus 组合进度记录、辅导配置与历史，解析人工干预优先级后
// 输出单一视图；不做任何写入
func (s *ProgressService) GetStatus(quizID, userID uint) (*StatusView, error) {
	p, err := s.Progress.GetOrCreate(userID, quizID)
	if err != nil {
		return nil, err
	}
	av, err := s.Resolver.Resolve(quizID)
	if err != nil {
		return nil, err
	}
	history, err := s.Attempts.ListByUserAndQuiz(userID, quizID)
	if err != nil {
		return nil, err
	}
	pendingMain, err := s.Attempts.HasPendingMain(userID, quizID)
	if err != nil {
		return nil, err
	}

	maxAttempts := av.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.DefaultMaxAttempts
	}

	required, nextStep := effectiveRequirement(p)

	canTake := !p.IsTerminal() &&
		!pendingMain &&
		required == model.AssistanceNone &&
		p.CurrentAttempt < maxAttempts

	view := &StatusView{
		QuizID:                quizID,
		UserID:                userID,
		CurrentAttempt:        p.CurrentAttempt,
		FailedAttempts:        p.FailedAttempts,
		LastAttemptPassed:     p.LastAttemptPassed,
		FinalStatus:           p.FinalStatus,
		AssistanceRequired:    required,
		NextStep:              nextStep,
		OverrideSystemFlow:    p.OverrideSystemFlow,
		ManuallyAssignedLevel: p.ManuallyAssignedLevel,
		Level3AccessGranted:   p.Level3AccessGranted,
		CanTakeQuiz:           canTake,
		MaxAttempts:           maxAttempts,
		Levels: []AssistanceLevelStatus{
			{Level: 1, Configured: av.Level1, Completed: p.Level1Completed},
			{Level: 2, Configured: av.Level2, Completed: p.Level2Completed},
			{Level: 3, Configured: av.Level3, Completed: p.Level3Completed},
		},
		History: history,
	}
	return view, nil
}

// effectiveRequirement 人工干预优先：overrideSystemFlow 时以
// manuallyAssignedLevel 为准，否则沿用自动流程计算的字段
func effectiveRequirement(p *model.QuizProgress) (model.AssistanceRequirement, string) {
	if p.IsTerminal() {
		if *p.FinalStatus == model.FinalPassed {
			return model.AssistanceNone, model.StepQuizPassed
		}
		return model.AssistanceNone, model.StepQuizFailedMaxAttempt
	}

	if p.OverrideSystemFlow && p.ManuallyAssignedLevel != nil {
		lv := *p.ManuallyAssignedLevel
		if lv == model.AssistanceNone {
			// 无条件放行主测验
			return model.AssistanceNone, model.StepTryMainQuizAgain
		}
		if p.LevelCompleted(lv.Level()) {
			return model.AssistanceNone, model.StepTakeMainQuizNow
		}
		return lv, model.StepForLevel(lv.Level())
	}

	return p.AssistanceRequired, p.NextStep
}
