package repository

import (
	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

type AssistanceRepository struct {
	DB *gorm.DB
}

func NewAssistanceRepository(db *gorm.DB) *AssistanceRepository {
	return &AssistanceRepository{DB: db}
}

func (r *AssistanceRepository) CreateLevel1(def *model.AssistanceLevel1Def, questions []model.AssistanceLevel1Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(def).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].DefID = def.ID
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AssistanceRepository) FindLevel1(id uint) (*model.AssistanceLevel1Def, []model.AssistanceLevel1Question, error) {
	var def model.AssistanceLevel1Def
	err := r.DB.First(&def, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, util.ErrAssistanceNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	var questions []model.AssistanceLevel1Question
	if err := r.DB.Where("def_id = ?", id).Order("question_order ASC").Find(&questions).Error; err != nil {
		return nil, nil, err
	}
	return &def, questions, nil
}

func (r *AssistanceRepository) CreateLevel2(def *model.AssistanceLevel2Def, questions []model.AssistanceLevel2Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(def).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].DefID = def.ID
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AssistanceRepository) FindLevel2(id uint) (*model.AssistanceLevel2Def, []model.AssistanceLevel2Question, error) {
	var def model.AssistanceLevel2Def
	err := r.DB.First(&def, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, util.ErrAssistanceNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	var questions []model.AssistanceLevel2Question
	if err := r.DB.Where("def_id = ?", id).Order("question_order ASC").Find(&questions).Error; err != nil {
		return nil, nil, err
	}
	return &def, questions, nil
}

func (r *AssistanceRepository) CreateLevel3(def *model.AssistanceLevel3Def) error {
	return r.DB.Create(def).Error
}

func (r *AssistanceRepository) FindLevel3(id uint) (*model.AssistanceLevel3Def, error) {
	var def model.AssistanceLevel3Def
	err := r.DB.First(&def, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAssistanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// CreateLevel2Submission 保存问答作答及逐题答案
func (r *AssistanceRepository) CreateLevel2Submission(sub *model.AssistanceLevel2Submission, answers []model.AssistanceLevel2Answer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].SubmissionID = sub.ID
		}
		if len(answers) > 0 {
			if err := tx.Create(&answers).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AssistanceRepository) FindLevel2Submission(id string) (*model.AssistanceLevel2Submission, []model.AssistanceLevel2Answer, error) {
	var sub model.AssistanceLevel2Submission
	err := r.DB.First(&sub, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, util.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	var answers []model.AssistanceLevel2Answer
	if err := r.DB.Where("submission_id = ?", id).Order("id ASC").Find(&answers).Error; err != nil {
		return nil, nil, err
	}
	return &sub, answers, nil
}

func (r *AssistanceRepository) UpdateLevel2Submission(sub *model.AssistanceLevel2Submission) error {
	return r.DB.Save(sub).Error
}

func (r *AssistanceRepository) UpdateLevel2Answers(answers []model.AssistanceLevel2Answer) error {
	for i := range answers {
		if err := r.DB.Save(&answers[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListPendingLevel2Submissions 教师端：待批改列表
func (r *AssistanceRepository) ListPendingLevel2Submissions(quizID uint, page, limit int) ([]model.AssistanceLevel2Submission, int64, error) {
	var subs []model.AssistanceLevel2Submission
	var total int64
	q := r.DB.Model(&model.AssistanceLevel2Submission{}).Where("status = ?", model.Level2Pending)
	if quizID > 0 {
		q = q.Where("quiz_id = ?", quizID)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at ASC").Offset((page - 1) * limit).Limit(limit).Find(&subs).Error
	return subs, total, err
}
