package service

import (
	"testing"

	"eduquiz_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func level1Questions() []model.AssistanceLevel1Question {
	q1 := model.AssistanceLevel1Question{Content: "q1", CorrectAnswer: true, Explanation: "see notes"}
	q1.ID = 1
	q2 := model.AssistanceLevel1Question{Content: "q2", CorrectAnswer: false}
	q2.ID = 2
	return []model.AssistanceLevel1Question{q1, q2}
}

func TestGradeLevel1AllCorrect(t *testing.T) {
	correct, review := gradeLevel1(level1Questions(), map[uint]bool{1: true, 2: false})
	assert.Equal(t, 2, correct)
	assert.Len(t, review, 2)
	assert.True(t, review[0].Correct)
	assert.Empty(t, review[0].Explanation, "答对的题不下发解析")
}

func TestGradeLevel1PartiallyWrong(t *testing.T) {
	correct, review := gradeLevel1(level1Questions(), map[uint]bool{1: false, 2: false})
	assert.Equal(t, 1, correct)
	assert.False(t, review[0].Correct)
	// 答错的题带上解析（若有）
	assert.Equal(t, "see notes", review[0].Explanation)
	assert.True(t, review[1].Correct)
}

func TestGradeLevel1MissingAnswerCountsWrong(t *testing.T) {
	correct, review := gradeLevel1(level1Questions(), map[uint]bool{1: true})
	assert.Equal(t, 1, correct)
	assert.False(t, review[1].Correct)
}

func quizQuestions() []model.QuizQuestion {
	q1 := model.QuizQuestion{Content: "q1", CorrectAnswer: "var x int"}
	q1.ID = 1
	q2 := model.QuizQuestion{Content: "q2", CorrectAnswer: "42"}
	q2.ID = 2
	return []model.QuizQuestion{q1, q2}
}

func TestGradeQuizExactAndNormalized(t *testing.T) {
	assert.Equal(t, 2, gradeQuiz(quizQuestions(), map[uint]string{1: "var x int", 2: "42"}))
	// 首尾空白与大小写不计
	assert.Equal(t, 2, gradeQuiz(quizQuestions(), map[uint]string{1: "  VAR X INT ", 2: "42"}))
	assert.Equal(t, 1, gradeQuiz(quizQuestions(), map[uint]string{1: "var x int", 2: "43"}))
	assert.Equal(t, 0, gradeQuiz(quizQuestions(), map[uint]string{}))
}

func TestPercentScore(t *testing.T) {
	assert.Equal(t, 0, percentScore(0, 0))
	assert.Equal(t, 50, percentScore(1, 2))
	assert.Equal(t, 100, percentScore(3, 3))
	assert.Equal(t, 66, percentScore(2, 3))
}
