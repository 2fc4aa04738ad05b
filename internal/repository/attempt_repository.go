package repository

import (
	"eduquiz_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

// AttemptRepository 只追加的评分历史存储
type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// Append 追加一条历史记录并分配该 (学生, 测验, 类型) 下单调递增的序号
func (r *AttemptRepository) Append(a *model.QuizAttempt) error {
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now()
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var maxIndex int
		q := tx.Model(&model.QuizAttempt{}).
			Where("quiz_id = ? AND user_id = ?", a.QuizID, a.UserID)
		if a.AssistanceLevel == nil {
			q = q.Where("assistance_level IS NULL")
		} else {
			q = q.Where("assistance_level = ?", *a.AssistanceLevel)
		}
		if err := q.Select("COALESCE(MAX(attempt_index), 0)").Scan(&maxIndex).Error; err != nil {
			return err
		}
		a.AttemptIndex = maxIndex + 1
		return tx.Create(a).Error
	})
}

// ListByUserAndQuiz 按提交时间顺序返回完整历史
func (r *AttemptRepository) ListByUserAndQuiz(userID, quizID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("submitted_at ASC, id ASC").
		Find(&attempts).Error
	return attempts, err
}

// HasPendingMain 是否存在待评分的主测验提交
func (r *AttemptRepository) HasPendingMain(userID, quizID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND assistance_level IS NULL AND status = ?",
			userID, quizID, model.AttemptPending).
		Count(&count).Error
	return count > 0, err
}

// CountMainByUserAndQuiz 主测验提交次数
func (r *AttemptRepository) CountMainByUserAndQuiz(userID, quizID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND assistance_level IS NULL", userID, quizID).
		Count(&count).Error
	return count, err
}

// ListByQuiz 教师端：某测验的全部历史
func (r *AttemptRepository) ListByQuiz(quizID uint, page, limit int) ([]model.QuizAttempt, int64, error) {
	var attempts []model.QuizAttempt
	var total int64
	q := r.DB.Model(&model.QuizAttempt{}).Where("quiz_id = ?", quizID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("submitted_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&attempts).Error
	return attempts, total, err
}
