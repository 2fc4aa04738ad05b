package service

import (
	"encoding/json"
	"strings"
	"time"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/repository"
	"eduquiz_backend/internal/util"
)

// QuizService 主测验的管理与作答流程
type QuizService struct {
	QuizRepo   *repository.QuizRepository
	Attempts   AttemptStore
	Progress   *ProgressService
	Invalidate func(quizID uint)
}

func NewQuizService(quizRepo *repository.QuizRepository, attempts AttemptStore, progress *ProgressService, invalidate func(quizID uint)) *QuizService {
	return &QuizService{
		QuizRepo:   quizRepo,
		Attempts:   attempts,
		Progress:   progress,
		Invalidate: invalidate,
	}
}

// ---- 管理 ----

type QuizQuestionInput struct {
	Content       string   `json:"content" binding:"required"`
	Options       []string `json:"options" binding:"required,min=2"`
	CorrectAnswer string   `json:"correctAnswer" binding:"required"`
	Explanation   string   `json:"explanation"`
}

type CreateQuizInput struct {
	Title        string              `json:"title" binding:"required"`
	Description  string              `json:"description"`
	MaxAttempts  int                 `json:"maxAttempts"`
	PassingScore int                 `json:"passingScore"`
	Questions    []QuizQuestionInput `json:"questions" binding:"required,min=1"`
}

func (s *QuizService) CreateQuiz(creatorID uint, input CreateQuizInput) (*model.Quiz, error) {
	quiz := &model.Quiz{
		CreatorID:    creatorID,
		Title:        input.Title,
		Description:  input.Description,
		MaxAttempts:  input.MaxAttempts,
		PassingScore: input.PassingScore,
	}
	if quiz.MaxAttempts <= 0 {
		quiz.MaxAttempts = 4
	}
	if quiz.PassingScore <= 0 {
		quiz.PassingScore = 60
	}
	if err := s.QuizRepo.Create(quiz); err != nil {
		return nil, err
	}

	questions := make([]model.QuizQuestion, 0, len(input.Questions))
	for i, q := range input.Questions {
		opts, _ := json.Marshal(q.Options)
		questions = append(questions, model.QuizQuestion{
			QuizID:        quiz.ID,
			Content:       q.Content,
			Options:       string(opts),
			CorrectAnswer: q.CorrectAnswer,
			Order:         i + 1,
			Explanation:   q.Explanation,
		})
	}
	if err := s.QuizRepo.CreateQuestions(questions); err != nil {
		return nil, err
	}
	return quiz, nil
}

type UpdateQuizInput struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	MaxAttempts  *int    `json:"maxAttempts"`
	PassingScore *int    `json:"passingScore"`
	IsPublished  *bool   `json:"isPublished"`
}

func (s *QuizService) UpdateQuiz(quizID, operatorID uint, operatorRole model.UserRole, input UpdateQuizInput) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	if operatorRole != model.Admin && quiz.CreatorID != operatorID {
		return nil, util.ErrPermissionDenied
	}

	if input.Title != nil {
		quiz.Title = *input.Title
	}
	if input.Description != nil {
		quiz.Description = *input.Description
	}
	if input.MaxAttempts != nil && *input.MaxAttempts > 0 {
		quiz.MaxAttempts = *input.MaxAttempts
	}
	if input.PassingScore != nil && *input.PassingScore > 0 {
		quiz.PassingScore = *input.PassingScore
	}
	if input.IsPublished != nil {
		quiz.IsPublished = *input.IsPublished
	}

	if err := s.QuizRepo.Update(quiz); err != nil {
		return nil, err
	}
	if s.Invalidate != nil {
		s.Invalidate(quizID)
	}
	return quiz, nil
}

func (s *QuizService) DeleteQuiz(quizID, operatorID uint, operatorRole model.UserRole) error {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return err
	}
	if operatorRole != model.Admin && quiz.CreatorID != operatorID {
		return util.ErrPermissionDenied
	}
	if err := s.QuizRepo.DeleteQuestionsByQuiz(quizID); err != nil {
		return err
	}
	if err := s.QuizRepo.Delete(quizID); err != nil {
		return err
	}
	if s.Invalidate != nil {
		s.Invalidate(quizID)
	}
	return nil
}

func (s *QuizService) ListQuizzes(page, limit int, publishedOnly bool) ([]model.Quiz, int64, error) {
	return s.QuizRepo.List(page, limit, publishedOnly)
}

func (s *QuizService) GetQuiz(quizID uint) (*model.Quiz, error) {
	return s.QuizRepo.FindByID(quizID)
}

// ---- 作答 ----

// QuizPaper 学生看到的试卷，题目不含答案
type QuizPaper struct {
	Quiz      *model.Quiz          `json:"quiz"`
	Questions []model.QuizQuestion `json:"questions"`
	Progress  *model.QuizProgress  `json:"progress"`
}

// StartAttempt 学生开始作答：递增尝试计数并下发题面
func (s *QuizService) StartAttempt(quizID, userID uint) (*QuizPaper, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsPublished {
		return nil, util.ErrQuizNotPublished
	}

	p, err := s.Progress.IncrementAttempt(quizID, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.QuizRepo.GetQuestions(quizID)
	if err != nil {
		return nil, err
	}
	return &QuizPaper{Quiz: quiz, Questions: questions, Progress: p}, nil
}

type QuizSubmitInput struct {
	Answers map[uint]string `json:"answers" binding:"required"`
}

// QuizResult 主测验评分结果与更新后的进度
type QuizResult struct {
	Passed         bool                `json:"passed"`
	Score          int                 `json:"score"`
	CorrectAnswers int                 `json:"correctAnswers"`
	TotalQuestions int                 `json:"totalQuestions"`
	Attempt        *model.QuizAttempt  `json:"attempt"`
	Progress       *model.QuizProgress `json:"progress"`
}

// gradeQuiz 答案精确匹配（忽略首尾空白与大小写），纯函数便于单测
func gradeQuiz(questions []model.QuizQuestion, answers map[uint]string) (correct int) {
	for _, q := range questions {
		given, ok := answers[q.ID]
		if ok && strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(q.CorrectAnswer)) {
			correct++
		}
	}
	return correct
}

// SubmitQuiz 提交主测验：自动评分，记入历史，结果进入状态机
func (s *QuizService) SubmitQuiz(quizID, userID uint, input QuizSubmitInput) (*QuizResult, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsPublished {
		return nil, util.ErrQuizNotPublished
	}

	questions, err := s.QuizRepo.GetQuestions(quizID)
	if err != nil {
		return nil, err
	}

	correct := gradeQuiz(questions, input.Answers)
	total := len(questions)
	score := percentScore(correct, total)
	passed := total > 0 && score >= quiz.PassingScore

	status := model.AttemptFailed
	if passed {
		status = model.AttemptPassed
	}
	raw, _ := json.Marshal(input.Answers)
	attempt := &model.QuizAttempt{
		QuizID:         quizID,
		UserID:         userID,
		Status:         status,
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
		RawAnswers:     string(raw),
		SubmittedAt:    time.Now(),
	}
	if err := s.Attempts.Append(attempt); err != nil {
		return nil, err
	}

	p, err := s.Progress.ApplyMainQuizGrading(quizID, userID, passed, quiz.MaxAttempts)
	if err != nil {
		return nil, err
	}

	return &QuizResult{
		Passed:         passed,
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
		Attempt:        attempt,
		Progress:       p,
	}, nil
}
