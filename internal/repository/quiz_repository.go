package repository

import (
	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) Update(quiz *model.Quiz) error {
	return r.DB.Save(quiz).Error
}

func (r *QuizRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Quiz{}, id).Error
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.First(&quiz, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) List(page, limit int, publishedOnly bool) ([]model.Quiz, int64, error) {
	var quizzes []model.Quiz
	var total int64
	q := r.DB.Model(&model.Quiz{})
	if publishedOnly {
		q = q.Where("is_published = ?", true)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&quizzes).Error
	return quizzes, total, err
}

func (r *QuizRepository) CreateQuestions(questions []model.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	return r.DB.Create(&questions).Error
}

func (r *QuizRepository) GetQuestions(quizID uint) ([]model.QuizQuestion, error) {
	var questions []model.QuizQuestion
	err := r.DB.Where("quiz_id = ?", quizID).Order("question_order ASC").Find(&questions).Error
	return questions, err
}

func (r *QuizRepository) DeleteQuestionsByQuiz(quizID uint) error {
	return r.DB.Where("quiz_id = ?", quizID).Delete(&model.QuizQuestion{}).Error
}
