package service

import (
	"encoding/json"
	"time"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/util"
)

// AssistanceStore 辅导定义与问答提交的持久化接口，测试时可替换为内存实现
type AssistanceStore interface {
	CreateLevel1(def *model.AssistanceLevel1Def, questions []model.AssistanceLevel1Question) error
	FindLevel1(id uint) (*model.AssistanceLevel1Def, []model.AssistanceLevel1Question, error)
	CreateLevel2(def *model.AssistanceLevel2Def, questions []model.AssistanceLevel2Question) error
	FindLevel2(id uint) (*model.AssistanceLevel2Def, []model.AssistanceLevel2Question, error)
	CreateLevel3(def *model.AssistanceLevel3Def) error
	FindLevel3(id uint) (*model.AssistanceLevel3Def, error)
	CreateLevel2Submission(sub *model.AssistanceLevel2Submission, answers []model.AssistanceLevel2Answer) error
	FindLevel2Submission(id string) (*model.AssistanceLevel2Submission, []model.AssistanceLevel2Answer, error)
	UpdateLevel2Submission(sub *model.AssistanceLevel2Submission) error
	UpdateLevel2Answers(answers []model.AssistanceLevel2Answer) error
	ListPendingLevel2Submissions(quizID uint, page, limit int) ([]model.AssistanceLevel2Submission, int64, error)
}

// QuizStore 辅导子系统需要的测验配置读写
type QuizStore interface {
	FindByID(id uint) (*model.Quiz, error)
	Update(quiz *model.Quiz) error
}

// AssistanceService 三级辅导：一级自动评分、二级教师批改、三级确认阅读
// 评分通过后驱动进度状态机完成对应阶段
type AssistanceService struct {
	AssistRepo AssistanceStore
	QuizRepo   QuizStore
	Attempts   AttemptStore
	Progress   *ProgressService
	Invalidate func(quizID uint)
}

func NewAssistanceService(assistRepo AssistanceStore, quizRepo QuizStore, attempts AttemptStore, progress *ProgressService, invalidate func(quizID uint)) *AssistanceService {
	return &AssistanceService{
		AssistRepo: assistRepo,
		QuizRepo:   quizRepo,
		Attempts:   attempts,
		Progress:   progress,
		Invalidate: invalidate,
	}
}

// ensureNotFinalized 终态记录拒绝任何辅导提交与批改，
// 写入历史或提交之前必须先通过该检查
func (s *AssistanceService) ensureNotFinalized(quizID, userID uint) error {
	p, err := s.Progress.GetOrCreateProgress(quizID, userID)
	if err != nil {
		return err
	}
	if p.IsTerminal() {
		return util.ErrQuizAlreadyFinalized
	}
	return nil
}

// ---- 创建与挂载 ----

type Level1QuestionInput struct {
	Content       string `json:"content" binding:"required"`
	CorrectAnswer bool   `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
}

type CreateLevel1Input struct {
	Title       string                `json:"title" binding:"required"`
	Description string                `json:"description"`
	Questions   []Level1QuestionInput `json:"questions" binding:"required,min=1"`
}

func (s *AssistanceService) CreateLevel1(creatorID uint, input CreateLevel1Input) (*model.AssistanceLevel1Def, error) {
	def := &model.AssistanceLevel1Def{
		CreatorID:   creatorID,
		Title:       input.Title,
		Description: input.Description,
	}
	questions := make([]model.AssistanceLevel1Question, 0, len(input.Questions))
	for i, q := range input.Questions {
		questions = append(questions, model.AssistanceLevel1Question{
			Content:       q.Content,
			CorrectAnswer: q.CorrectAnswer,
			Order:         i + 1,
			Explanation:   q.Explanation,
		})
	}
	if err := s.AssistRepo.CreateLevel1(def, questions); err != nil {
		return nil, err
	}
	return def, nil
}

type CreateLevel2Input struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Questions   []string `json:"questions" binding:"required,min=1"`
}

func (s *AssistanceService) CreateLevel2(creatorID uint, input CreateLevel2Input) (*model.AssistanceLevel2Def, error) {
	def := &model.AssistanceLevel2Def{
		CreatorID:   creatorID,
		Title:       input.Title,
		Description: input.Description,
	}
	questions := make([]model.AssistanceLevel2Question, 0, len(input.Questions))
	for i, content := range input.Questions {
		questions = append(questions, model.AssistanceLevel2Question{
			Content: content,
			Order:   i + 1,
		})
	}
	if err := s.AssistRepo.CreateLevel2(def, questions); err != nil {
		return nil, err
	}
	return def, nil
}

type CreateLevel3Input struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	MaterialURL string `json:"materialUrl"`
	Content     string `json:"content"`
}

func (s *AssistanceService) CreateLevel3(creatorID uint, input CreateLevel3Input) (*model.AssistanceLevel3Def, error) {
	def := &model.AssistanceLevel3Def{
		CreatorID:   creatorID,
		Title:       input.Title,
		Description: input.Description,
		MaterialURL: input.MaterialURL,
		Content:     input.Content,
	}
	if err := s.AssistRepo.CreateLevel3(def); err != nil {
		return nil, err
	}
	return def, nil
}

// AttachToQuiz 将辅导定义挂到测验的指定级别上，并清除配置缓存
func (s *AssistanceService) AttachToQuiz(quizID uint, level int, defID uint, operatorID uint, operatorRole model.UserRole) error {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return err
	}
	if operatorRole != model.Admin && quiz.CreatorID != operatorID {
		return util.ErrPermissionDenied
	}

	switch level {
	case 1:
		if _, _, err := s.AssistRepo.FindLevel1(defID); err != nil {
			return err
		}
		quiz.AssistanceLevel1ID = &defID
	case 2:
		if _, _, err := s.AssistRepo.FindLevel2(defID); err != nil {
			return err
		}
		quiz.AssistanceLevel2ID = &defID
	case 3:
		if _, err := s.AssistRepo.FindLevel3(defID); err != nil {
			return err
		}
		quiz.AssistanceLevel3ID = &defID
	default:
		return ErrInvalidAssistanceLevel
	}

	if err := s.QuizRepo.Update(quiz); err != nil {
		return err
	}
	if s.Invalidate != nil {
		s.Invalidate(quizID)
	}
	return nil
}

// ---- 学生侧获取 ----

// Level1View 一级辅导题面，不含答案
type Level1View struct {
	Def       *model.AssistanceLevel1Def       `json:"def"`
	Questions []model.AssistanceLevel1Question `json:"questions"`
}

func (s *AssistanceService) GetLevel1ForQuiz(quizID uint) (*Level1View, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	if quiz.AssistanceLevel1ID == nil {
		return nil, util.ErrAssistanceNotFound
	}
	def, questions, err := s.AssistRepo.FindLevel1(*quiz.AssistanceLevel1ID)
	if err != nil {
		return nil, err
	}
	return &Level1View{Def: def, Questions: questions}, nil
}

type Level2View struct {
	Def       *model.AssistanceLevel2Def       `json:"def"`
	Questions []model.AssistanceLevel2Question `json:"questions"`
}

func (s *AssistanceService) GetLevel2ForQuiz(quizID uint) (*Level2View, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	if quiz.AssistanceLevel2ID == nil {
		return nil, util.ErrAssistanceNotFound
	}
	def, questions, err := s.AssistRepo.FindLevel2(*quiz.AssistanceLevel2ID)
	if err != nil {
		return nil, err
	}
	return &Level2View{Def: def, Questions: questions}, nil
}

func (s *AssistanceService) GetLevel3ForQuiz(quizID uint) (*model.AssistanceLevel3Def, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	if quiz.AssistanceLevel3ID == nil {
		return nil, util.ErrAssistanceNotFound
	}
	return s.AssistRepo.FindLevel3(*quiz.AssistanceLevel3ID)
}

// ---- 一级提交：自动评分 ----

type Level1SubmitInput struct {
	Answers map[uint]bool `json:"answers" binding:"required"`
}

// Level1Result 一级辅导评分结果：必须全对才算通过
type Level1Result struct {
	Passed         bool                 `json:"passed"`
	CorrectAnswers int                  `json:"correctAnswers"`
	TotalQuestions int                  `json:"totalQuestions"`
	Progress       *model.QuizProgress  `json:"progress,omitempty"`
	Attempt        *model.QuizAttempt   `json:"attempt"`
	Review         []Level1AnswerReview `json:"review"`
}

type Level1AnswerReview struct {
	QuestionID  uint   `json:"questionId"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// gradeLevel1 纯函数，便于单测
func gradeLevel1(questions []model.AssistanceLevel1Question, answers map[uint]bool) (correct int, review []Level1AnswerReview) {
	review = make([]Level1AnswerReview, 0, len(questions))
	for _, q := range questions {
		given, ok := answers[q.ID]
		isCorrect := ok && given == q.CorrectAnswer
		if isCorrect {
			correct++
		}
		r := Level1AnswerReview{QuestionID: q.ID, Correct: isCorrect}
		if !isCorrect {
			r.Explanation = q.Explanation
		}
		review = append(review, r)
	}
	return correct, review
}

// SubmitLevel1 提交一级辅导作答，全对才通过；次数不限
func (s *AssistanceService) SubmitLevel1(quizID, userID uint, input Level1SubmitInput) (*Level1Result, error) {
	view, err := s.GetLevel1ForQuiz(quizID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotFinalized(quizID, userID); err != nil {
		return nil, err
	}

	correct, review := gradeLevel1(view.Questions, input.Answers)
	total := len(view.Questions)
	passed := total > 0 && correct == total

	level := 1
	status := model.AttemptFailed
	if passed {
		status = model.AttemptPassed
	}
	raw, _ := json.Marshal(input.Answers)
	attempt := &model.QuizAttempt{
		QuizID:          quizID,
		UserID:          userID,
		AssistanceLevel: &level,
		Status:          status,
		Score:           percentScore(correct, total),
		CorrectAnswers:  correct,
		TotalQuestions:  total,
		RawAnswers:      string(raw),
		SubmittedAt:     time.Now(),
	}
	if err := s.Attempts.Append(attempt); err != nil {
		return nil, err
	}

	result := &Level1Result{
		Passed:         passed,
		CorrectAnswers: correct,
		TotalQuestions: total,
		Attempt:        attempt,
		Review:         review,
	}
	if passed {
		p, err := s.Progress.CompleteAssistance(1, quizID, userID)
		if err != nil {
			return nil, err
		}
		result.Progress = p
	}
	return result, nil
}

// ---- 二级提交与批改 ----

type Level2SubmitInput struct {
	Answers map[uint]string `json:"answers" binding:"required"`
}

// SubmitLevel2 学生提交问答作答，进入待批改队列
func (s *AssistanceService) SubmitLevel2(quizID, userID uint, input Level2SubmitInput) (*model.AssistanceLevel2Submission, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	if quiz.AssistanceLevel2ID == nil {
		return nil, util.ErrAssistanceNotFound
	}
	if err := s.ensureNotFinalized(quizID, userID); err != nil {
		return nil, err
	}
	_, questions, err := s.AssistRepo.FindLevel2(*quiz.AssistanceLevel2ID)
	if err != nil {
		return nil, err
	}

	sub := &model.AssistanceLevel2Submission{
		QuizID: quizID,
		UserID: userID,
		DefID:  *quiz.AssistanceLevel2ID,
		Status: model.Level2Pending,
	}
	answers := make([]model.AssistanceLevel2Answer, 0, len(questions))
	for _, q := range questions {
		answers = append(answers, model.AssistanceLevel2Answer{
			QuestionID: q.ID,
			Answer:     input.Answers[q.ID],
		})
	}
	if err := s.AssistRepo.CreateLevel2Submission(sub, answers); err != nil {
		return nil, err
	}

	level := 2
	raw, _ := json.Marshal(input.Answers)
	attempt := &model.QuizAttempt{
		QuizID:          quizID,
		UserID:          userID,
		AssistanceLevel: &level,
		Status:          model.AttemptPending,
		TotalQuestions:  len(questions),
		RawAnswers:      string(raw),
		SubmittedAt:     time.Now(),
	}
	if err := s.Attempts.Append(attempt); err != nil {
		return nil, err
	}
	return sub, nil
}

type Level2AnswerGrade struct {
	AnswerID  uint   `json:"answerId" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
	Feedback  string `json:"feedback"`
}

type GradeLevel2Input struct {
	Grades []Level2AnswerGrade `json:"grades" binding:"required,min=1"`
}

// Level2GradeResult 批改结果：逐题全对才算通过该阶段
type Level2GradeResult struct {
	Submission *model.AssistanceLevel2Submission `json:"submission"`
	Passed     bool                              `json:"passed"`
	Progress   *model.QuizProgress               `json:"progress,omitempty"`
}

// GradeLevel2 教师逐题批改问答提交；全对则完成二级辅导阶段
func (s *AssistanceService) GradeLevel2(submissionID string, graderID uint, input GradeLevel2Input) (*Level2GradeResult, error) {
	sub, answers, err := s.AssistRepo.FindLevel2Submission(submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == model.Level2Graded {
		return nil, util.ErrAlreadyGraded
	}
	// 批改挂起期间教师可能已直接裁定终态，先检查再落盘，
	// 避免留下已批改却无法完成阶段的提交
	if err := s.ensureNotFinalized(sub.QuizID, sub.UserID); err != nil {
		return nil, err
	}

	grades := make(map[uint]Level2AnswerGrade, len(input.Grades))
	for _, g := range input.Grades {
		grades[g.AnswerID] = g
	}

	allCorrect := len(answers) > 0
	correct := 0
	for i := range answers {
		g, ok := grades[answers[i].ID]
		if !ok {
			// 未批改的题按不通过处理
			allCorrect = false
			continue
		}
		isCorrect := g.IsCorrect
		answers[i].IsCorrect = &isCorrect
		answers[i].Feedback = g.Feedback
		if isCorrect {
			correct++
		} else {
			allCorrect = false
		}
	}
	if err := s.AssistRepo.UpdateLevel2Answers(answers); err != nil {
		return nil, err
	}

	now := time.Now()
	sub.Status = model.Level2Graded
	sub.GraderID = &graderID
	sub.GradedAt = &now
	sub.Passed = allCorrect
	if err := s.AssistRepo.UpdateLevel2Submission(sub); err != nil {
		return nil, err
	}

	level := 2
	status := model.AttemptFailed
	if allCorrect {
		status = model.AttemptPassed
	}
	attempt := &model.QuizAttempt{
		QuizID:          sub.QuizID,
		UserID:          sub.UserID,
		AssistanceLevel: &level,
		Status:          status,
		Score:           percentScore(correct, len(answers)),
		CorrectAnswers:  correct,
		TotalQuestions:  len(answers),
		SubmittedAt:     now,
	}
	if err := s.Attempts.Append(attempt); err != nil {
		return nil, err
	}

	result := &Level2GradeResult{Submission: sub, Passed: allCorrect}
	if allCorrect {
		p, err := s.Progress.CompleteAssistance(2, sub.QuizID, sub.UserID)
		if err != nil {
			return nil, err
		}
		result.Progress = p
	}
	return result, nil
}

func (s *AssistanceService) ListPendingLevel2(quizID uint, page, limit int) ([]model.AssistanceLevel2Submission, int64, error) {
	return s.AssistRepo.ListPendingLevel2Submissions(quizID, page, limit)
}

func (s *AssistanceService) GetLevel2Submission(submissionID string) (*model.AssistanceLevel2Submission, []model.AssistanceLevel2Answer, error) {
	return s.AssistRepo.FindLevel2Submission(submissionID)
}

// ---- 三级确认 ----

// AcknowledgeLevel3 学生确认已阅读三级辅导资料，即视为完成
func (s *AssistanceService) AcknowledgeLevel3(quizID, userID uint) (*model.QuizProgress, error) {
	if _, err := s.GetLevel3ForQuiz(quizID); err != nil {
		return nil, err
	}
	if err := s.ensureNotFinalized(quizID, userID); err != nil {
		return nil, err
	}

	level := 3
	attempt := &model.QuizAttempt{
		QuizID:          quizID,
		UserID:          userID,
		AssistanceLevel: &level,
		Status:          model.AttemptPassed,
		SubmittedAt:     time.Now(),
	}
	if err := s.Attempts.Append(attempt); err != nil {
		return nil, err
	}
	return s.Progress.CompleteAssistance(3, quizID, userID)
}

func percentScore(correct, total int) int {
	if total == 0 {
		return 0
	}
	return correct * 100 / total
}
