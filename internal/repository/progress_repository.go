package repository

import (
	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/util"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 进度记录存储，每个 (学生, 测验) 一行
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// GetOrCreate 惰性创建进度记录，默认全零值
func (r *ProgressRepository) GetOrCreate(userID, quizID uint) (*model.QuizProgress, error) {
	p := &model.QuizProgress{
		UserID:             userID,
		QuizID:             quizID,
		AssistanceRequired: model.AssistanceNone,
		NextStep:           model.StepTakeMainQuizNow,
	}
	err := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(p).Error
	if err != nil {
		return nil, err
	}
	// 无论是否新建都重新读取，拿到当前版本号
	return r.Find(userID, quizID)
}

func (r *ProgressRepository) Find(userID, quizID uint) (*model.QuizProgress, error) {
	var p model.QuizProgress
	err := r.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateCAS 基于版本号的条件更新：读到的版本已过期则拒绝写入，
// 防止并发提交丢失计数器更新
func (r *ProgressRepository) UpdateCAS(p *model.QuizProgress) error {
	res := r.DB.Model(&model.QuizProgress{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"current_attempt":         p.CurrentAttempt,
			"failed_attempts":         p.FailedAttempts,
			"last_attempt_passed":     p.LastAttemptPassed,
			"final_status":            p.FinalStatus,
			"level1_completed":        p.Level1Completed,
			"level2_completed":        p.Level2Completed,
			"level3_completed":        p.Level3Completed,
			"assistance_required":     p.AssistanceRequired,
			"next_step":               p.NextStep,
			"override_system_flow":    p.OverrideSystemFlow,
			"manually_assigned_level": p.ManuallyAssignedLevel,
			"level3_access_granted":   p.Level3AccessGranted,
			"version":                 gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrVersionConflict
	}
	p.Version++
	return nil
}
