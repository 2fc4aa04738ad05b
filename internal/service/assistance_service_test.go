package service

import (
	"testing"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- 内存实现 ----

type memAssistanceStore struct {
	level1Def       *model.AssistanceLevel1Def
	level1Questions []model.AssistanceLevel1Question
	level2Def       *model.AssistanceLevel2Def
	level2Questions []model.AssistanceLevel2Question
	level3Def       *model.AssistanceLevel3Def

	submissions  map[string]*model.AssistanceLevel2Submission
	answers      map[string][]model.AssistanceLevel2Answer
	nextAnswerID uint

	answersUpdated    bool
	submissionUpdated bool
}

func (s *memAssistanceStore) CreateLevel1(def *model.AssistanceLevel1Def, questions []model.AssistanceLevel1Question) error {
	def.ID = 1
	s.level1Def = def
	s.level1Questions = questions
	return nil
}

func (s *memAssistanceStore) FindLevel1(id uint) (*model.AssistanceLevel1Def, []model.AssistanceLevel1Question, error) {
	if s.level1Def == nil || s.level1Def.ID != id {
		return nil, nil, util.ErrAssistanceNotFound
	}
	return s.level1Def, s.level1Questions, nil
}

func (s *memAssistanceStore) CreateLevel2(def *model.AssistanceLevel2Def, questions []model.AssistanceLevel2Question) error {
	def.ID = 1
	s.level2Def = def
	s.level2Questions = questions
	return nil
}

func (s *memAssistanceStore) FindLevel2(id uint) (*model.AssistanceLevel2Def, []model.AssistanceLevel2Question, error) {
	if s.level2Def == nil || s.level2Def.ID != id {
		return nil, nil, util.ErrAssistanceNotFound
	}
	return s.level2Def, s.level2Questions, nil
}

func (s *memAssistanceStore) CreateLevel3(def *model.AssistanceLevel3Def) error {
	def.ID = 1
	s.level3Def = def
	return nil
}

func (s *memAssistanceStore) FindLevel3(id uint) (*model.AssistanceLevel3Def, error) {
	if s.level3Def == nil || s.level3Def.ID != id {
		return nil, util.ErrAssistanceNotFound
	}
	return s.level3Def, nil
}

func (s *memAssistanceStore) CreateLevel2Submission(sub *model.AssistanceLevel2Submission, answers []model.AssistanceLevel2Answer) error {
	sub.ID = model.GenerateUUID()
	for i := range answers {
		s.nextAnswerID++
		answers[i].ID = s.nextAnswerID
		answers[i].SubmissionID = sub.ID
	}
	clone := *sub
	s.submissions[sub.ID] = &clone
	s.answers[sub.ID] = answers
	return nil
}

func (s *memAssistanceStore) FindLevel2Submission(id string) (*model.AssistanceLevel2Submission, []model.AssistanceLevel2Answer, error) {
	sub, ok := s.submissions[id]
	if !ok {
		return nil, nil, util.ErrSubmissionNotFound
	}
	clone := *sub
	answers := make([]model.AssistanceLevel2Answer, len(s.answers[id]))
	copy(answers, s.answers[id])
	return &clone, answers, nil
}

func (s *memAssistanceStore) UpdateLevel2Submission(sub *model.AssistanceLevel2Submission) error {
	clone := *sub
	s.submissions[sub.ID] = &clone
	s.submissionUpdated = true
	return nil
}

func (s *memAssistanceStore) UpdateLevel2Answers(answers []model.AssistanceLevel2Answer) error {
	if len(answers) > 0 {
		stored := make([]model.AssistanceLevel2Answer, len(answers))
		copy(stored, answers)
		s.answers[answers[0].SubmissionID] = stored
	}
	s.answersUpdated = true
	return nil
}

func (s *memAssistanceStore) ListPendingLevel2Submissions(quizID uint, page, limit int) ([]model.AssistanceLevel2Submission, int64, error) {
	var out []model.AssistanceLevel2Submission
	for _, sub := range s.submissions {
		if sub.QuizID == quizID && sub.Status == model.Level2Pending {
			out = append(out, *sub)
		}
	}
	return out, int64(len(out)), nil
}

type memQuizStore struct {
	quizzes map[uint]*model.Quiz
}

func (s *memQuizStore) FindByID(id uint) (*model.Quiz, error) {
	quiz, ok := s.quizzes[id]
	if !ok {
		return nil, util.ErrQuizNotFound
	}
	clone := *quiz
	return &clone, nil
}

func (s *memQuizStore) Update(quiz *model.Quiz) error {
	clone := *quiz
	s.quizzes[quiz.ID] = &clone
	return nil
}

// newAssistanceEnv 三个级别都已挂载的测验环境
func newAssistanceEnv() (*AssistanceService, *memAssistanceStore, *memAttemptStore, *ProgressService) {
	progress, _, attempts := newTestService(allLevels())

	assistStore := &memAssistanceStore{
		submissions: make(map[string]*model.AssistanceLevel2Submission),
		answers:     make(map[string][]model.AssistanceLevel2Answer),
	}
	l1 := &model.AssistanceLevel1Def{Title: "判断题辅导"}
	l1.ID = 1
	assistStore.level1Def = l1
	q1 := model.AssistanceLevel1Question{DefID: 1, Content: "q1", CorrectAnswer: true}
	q1.ID = 1
	q2 := model.AssistanceLevel1Question{DefID: 1, Content: "q2", CorrectAnswer: false, Explanation: "见第二章"}
	q2.ID = 2
	assistStore.level1Questions = []model.AssistanceLevel1Question{q1, q2}

	l2 := &model.AssistanceLevel2Def{Title: "问答题辅导"}
	l2.ID = 1
	assistStore.level2Def = l2
	w1 := model.AssistanceLevel2Question{DefID: 1, Content: "w1"}
	w1.ID = 11
	w2 := model.AssistanceLevel2Question{DefID: 1, Content: "w2"}
	w2.ID = 12
	assistStore.level2Questions = []model.AssistanceLevel2Question{w1, w2}

	l3 := &model.AssistanceLevel3Def{Title: "参考资料", Content: "..."}
	l3.ID = 1
	assistStore.level3Def = l3

	defID := uint(1)
	quiz := &model.Quiz{
		Title:              "主测验",
		MaxAttempts:        4,
		PassingScore:       60,
		IsPublished:        true,
		AssistanceLevel1ID: &defID,
		AssistanceLevel2ID: &defID,
		AssistanceLevel3ID: &defID,
	}
	quiz.ID = quizID
	quizStore := &memQuizStore{quizzes: map[uint]*model.Quiz{quizID: quiz}}

	svc := NewAssistanceService(assistStore, quizStore, attempts, progress, nil)
	return svc, assistStore, attempts, progress
}

// ---- 终态拒绝 ----

func TestSubmitLevel1RejectedAfterFinalStatus(t *testing.T) {
	svc, _, attempts, progress := newAssistanceEnv()

	_, err := progress.ApplyMainQuizGrading(quizID, userID, true, 4)
	require.NoError(t, err)

	_, err = svc.SubmitLevel1(quizID, userID, Level1SubmitInput{Answers: map[uint]bool{1: true, 2: false}})
	assert.ErrorIs(t, err, util.ErrQuizAlreadyFinalized)

	// 被拒绝的提交不得写入作答历史
	history, err := attempts.ListByUserAndQuiz(userID, quizID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSubmitLevel2RejectedAfterFinalStatus(t *testing.T) {
	svc, assistStore, attempts, progress := newAssistanceEnv()

	failed := false
	require.NoError(t, progress.ToggleFinalStatus(quizID, userID, &failed))

	_, err := svc.SubmitLevel2(quizID, userID, Level2SubmitInput{Answers: map[uint]string{11: "a", 12: "b"}})
	assert.ErrorIs(t, err, util.ErrQuizAlreadyFinalized)

	assert.Empty(t, assistStore.submissions)
	history, err := attempts.ListByUserAndQuiz(userID, quizID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGradeLevel2RejectedAfterFinalStatus(t *testing.T) {
	svc, assistStore, attempts, progress := newAssistanceEnv()

	sub, err := svc.SubmitLevel2(quizID, userID, Level2SubmitInput{Answers: map[uint]string{11: "a", 12: "b"}})
	require.NoError(t, err)

	// 提交挂起期间教师直接裁定终态
	passed := true
	require.NoError(t, progress.ToggleFinalStatus(quizID, userID, &passed))

	_, answers, err := svc.GetLevel2Submission(sub.ID)
	require.NoError(t, err)
	grades := make([]Level2AnswerGrade, 0, len(answers))
	for _, a := range answers {
		grades = append(grades, Level2AnswerGrade{AnswerID: a.ID, IsCorrect: true})
	}

	before, err := attempts.ListByUserAndQuiz(userID, quizID)
	require.NoError(t, err)

	_, err = svc.GradeLevel2(sub.ID, uint(5), GradeLevel2Input{Grades: grades})
	assert.ErrorIs(t, err, util.ErrQuizAlreadyFinalized)

	// 拒绝必须发生在任何落盘之前：提交仍待批改，可在终态撤销后重新批改
	stored, _, err := svc.GetLevel2Submission(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Level2Pending, stored.Status)
	assert.Nil(t, stored.GraderID)
	assert.False(t, assistStore.answersUpdated)
	assert.False(t, assistStore.submissionUpdated)

	after, err := attempts.ListByUserAndQuiz(userID, quizID)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "被拒绝的批改不得追加历史")
}

func TestAcknowledgeLevel3RejectedAfterFinalStatus(t *testing.T) {
	svc, _, attempts, progress := newAssistanceEnv()

	_, err := progress.ApplyMainQuizGrading(quizID, userID, true, 4)
	require.NoError(t, err)

	_, err = svc.AcknowledgeLevel3(quizID, userID)
	assert.ErrorIs(t, err, util.ErrQuizAlreadyFinalized)

	history, err := attempts.ListByUserAndQuiz(userID, quizID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

// ---- 批改主流程 ----

func TestGradeLevel2AllCorrectCompletesStage(t *testing.T) {
	svc, _, attempts, progress := newAssistanceEnv()

	// 走到需要二级辅导的状态
	_, err := progress.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)
	_, err = progress.CompleteAssistance(1, quizID, userID)
	require.NoError(t, err)
	_, err = progress.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)

	sub, err := svc.SubmitLevel2(quizID, userID, Level2SubmitInput{Answers: map[uint]string{11: "a", 12: "b"}})
	require.NoError(t, err)
	assert.Equal(t, model.Level2Pending, sub.Status)

	_, answers, err := svc.GetLevel2Submission(sub.ID)
	require.NoError(t, err)
	grades := make([]Level2AnswerGrade, 0, len(answers))
	for _, a := range answers {
		grades = append(grades, Level2AnswerGrade{AnswerID: a.ID, IsCorrect: true, Feedback: "ok"})
	}

	result, err := svc.GradeLevel2(sub.ID, uint(5), GradeLevel2Input{Grades: grades})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, model.Level2Graded, result.Submission.Status)
	require.NotNil(t, result.Progress)
	assert.True(t, result.Progress.Level2Completed)

	// 历史中新增一条已通过的二级辅导记录
	history, err := attempts.ListByUserAndQuiz(userID, quizID)
	require.NoError(t, err)
	var graded *model.QuizAttempt
	for i := range history {
		if history[i].AssistanceLevel != nil && *history[i].AssistanceLevel == 2 && history[i].Status == model.AttemptPassed {
			graded = &history[i]
		}
	}
	require.NotNil(t, graded)
	assert.Equal(t, 100, graded.Score)
}

func TestGradeLevel2Twice(t *testing.T) {
	svc, _, _, _ := newAssistanceEnv()

	sub, err := svc.SubmitLevel2(quizID, userID, Level2SubmitInput{Answers: map[uint]string{11: "a", 12: "b"}})
	require.NoError(t, err)

	_, answers, err := svc.GetLevel2Submission(sub.ID)
	require.NoError(t, err)
	grades := make([]Level2AnswerGrade, 0, len(answers))
	for _, a := range answers {
		grades = append(grades, Level2AnswerGrade{AnswerID: a.ID, IsCorrect: false, Feedback: "再想想"})
	}

	_, err = svc.GradeLevel2(sub.ID, uint(5), GradeLevel2Input{Grades: grades})
	require.NoError(t, err)

	_, err = svc.GradeLevel2(sub.ID, uint(5), GradeLevel2Input{Grades: grades})
	assert.ErrorIs(t, err, util.ErrAlreadyGraded)
}
