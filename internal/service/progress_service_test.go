package service

import (
	"fmt"
	"sync"
	"testing"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- 内存实现 ----

type memProgressStore struct {
	mu      sync.Mutex
	records map[string]*model.QuizProgress
	nextID  uint
}

func newMemProgressStore() *memProgressStore {
	return &memProgressStore{records: make(map[string]*model.QuizProgress)}
}

func (s *memProgressStore) key(userID, quizID uint) string {
	return fmt.Sprintf("%d:%d", userID, quizID)
}

func (s *memProgressStore) GetOrCreate(userID, quizID uint) (*model.QuizProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.records[s.key(userID, quizID)]; ok {
		clone := *p
		return &clone, nil
	}
	s.nextID++
	p := &model.QuizProgress{
		UserID:             userID,
		QuizID:             quizID,
		AssistanceRequired: model.AssistanceNone,
		NextStep:           model.StepTakeMainQuizNow,
	}
	p.ID = s.nextID
	s.records[s.key(userID, quizID)] = p
	clone := *p
	return &clone, nil
}

func (s *memProgressStore) Find(userID, quizID uint) (*model.QuizProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[s.key(userID, quizID)]
	if !ok {
		return nil, util.ErrProgressNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *memProgressStore) UpdateCAS(p *model.QuizProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[s.key(p.UserID, p.QuizID)]
	if !ok || stored.Version != p.Version {
		return util.ErrVersionConflict
	}
	clone := *p
	clone.Version++
	s.records[s.key(p.UserID, p.QuizID)] = &clone
	p.Version++
	return nil
}

type memAttemptStore struct {
	mu       sync.Mutex
	attempts []model.QuizAttempt
}

func (s *memAttemptStore) Append(a *model.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.AttemptIndex = 0
	for _, existing := range s.attempts {
		sameKind := (existing.AssistanceLevel == nil) == (a.AssistanceLevel == nil)
		if sameKind && existing.AssistanceLevel != nil {
			sameKind = *existing.AssistanceLevel == *a.AssistanceLevel
		}
		if existing.QuizID == a.QuizID && existing.UserID == a.UserID && sameKind {
			if existing.AttemptIndex > a.AttemptIndex {
				a.AttemptIndex = existing.AttemptIndex
			}
		}
	}
	a.AttemptIndex++
	s.attempts = append(s.attempts, *a)
	return nil
}

func (s *memAttemptStore) ListByUserAndQuiz(userID, quizID uint) ([]model.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.QuizAttempt
	for _, a := range s.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memAttemptStore) HasPendingMain(userID, quizID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.UserID == userID && a.QuizID == quizID && a.AssistanceLevel == nil && a.Status == model.AttemptPending {
			return true, nil
		}
	}
	return false, nil
}

type staticResolver struct {
	av Availability
}

func (r staticResolver) Resolve(quizID uint) (Availability, error) {
	return r.av, nil
}

func newTestService(av Availability) (*ProgressService, *memProgressStore, *memAttemptStore) {
	store := newMemProgressStore()
	attempts := &memAttemptStore{}
	svc := NewProgressService(store, attempts, staticResolver{av: av}, 4)
	return svc, store, attempts
}

func allLevels() Availability {
	return Availability{MaxAttempts: 4, Level1: true, Level2: true, Level3: true}
}

const (
	quizID = uint(10)
	userID = uint(77)
)

// ---- 阶段选择 ----

func TestSelectStage(t *testing.T) {
	p := &model.QuizProgress{}
	av := allLevels()

	assert.Equal(t, 1, selectStage(p, av, 1))
	assert.Equal(t, 1, selectStage(p, av, 2), "一级未完成时不能跳到二级")
	assert.Equal(t, 1, selectStage(p, av, 3))
	assert.Equal(t, 0, selectStage(p, av, 4), "第四次失败不再安排辅导")
	assert.Equal(t, 0, selectStage(p, av, 0))

	p.Level1Completed = true
	assert.Equal(t, 0, selectStage(p, av, 1), "首次失败只解锁一级")
	assert.Equal(t, 2, selectStage(p, av, 2))

	p.Level2Completed = true
	assert.Equal(t, 0, selectStage(p, av, 2))
	assert.Equal(t, 3, selectStage(p, av, 3))

	p.Level3Completed = true
	assert.Equal(t, 0, selectStage(p, av, 3))
}

func TestSelectStageSkipsUnconfigured(t *testing.T) {
	p := &model.QuizProgress{}

	// 只配置了二级：首次失败没有可用阶段，第二次失败落到二级
	av := Availability{Level2: true}
	assert.Equal(t, 0, selectStage(p, av, 1))
	assert.Equal(t, 2, selectStage(p, av, 2))
	assert.Equal(t, 2, selectStage(p, av, 3))

	// 什么都没配置
	assert.Equal(t, 0, selectStage(p, Availability{}, 2))
}

// ---- 主流程 ----

func TestFailThenAssistanceLadder(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	// 第一次失败 -> 一级辅导
	p, err := svc.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, p.FailedAttempts)
	assert.Equal(t, model.AssistanceLevel1, p.AssistanceRequired)
	assert.Equal(t, model.StepCompleteLevel1, p.NextStep)
	assert.Nil(t, p.FinalStatus)

	// 完成一级 -> 回到主测验
	p, err = svc.CompleteAssistance(1, quizID, userID)
	require.NoError(t, err)
	assert.True(t, p.Level1Completed)
	assert.Equal(t, model.AssistanceNone, p.AssistanceRequired)
	assert.Equal(t, model.StepTakeMainQuizNow, p.NextStep)

	// 第二次失败 -> 二级辅导
	p, err = svc.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, p.FailedAttempts)
	assert.Equal(t, model.AssistanceLevel2, p.AssistanceRequired)

	p, err = svc.CompleteAssistance(2, quizID, userID)
	require.NoError(t, err)
	assert.True(t, p.Level2Completed)

	// 第三次失败 -> 三级辅导
	p, err = svc.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)
	assert.Equal(t, model.AssistanceLevel3, p.AssistanceRequired)
	assert.Equal(t, model.StepViewLevel3, p.NextStep)

	p, err = svc.CompleteAssistance(3, quizID, userID)
	require.NoError(t, err)
	assert.True(t, p.Level3Completed)

	// 第四次失败 -> 终态 FAILED
	p, err = svc.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)
	require.NotNil(t, p.FinalStatus)
	assert.Equal(t, model.FinalFailed, *p.FinalStatus)
	assert.Equal(t, model.StepQuizFailedMaxAttempt, p.NextStep)
	assert.Equal(t, model.AssistanceNone, p.AssistanceRequired)
}

func TestPassIsTerminal(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	p, err := svc.ApplyMainQuizGrading(quizID, userID, true, 4)
	require.NoError(t, err)
	require.NotNil(t, p.FinalStatus)
	assert.Equal(t, model.FinalPassed, *p.FinalStatus)
	assert.Equal(t, model.StepQuizPassed, p.NextStep)
	require.NotNil(t, p.LastAttemptPassed)
	assert.True(t, *p.LastAttemptPassed)

	// 终态后拒绝后续评分与作答
	_, err = svc.ApplyMainQuizGrading(quizID, userID, false, 4)
	assert.ErrorIs(t, err, util.ErrQuizAlreadyFinalized)

	_, err = svc.IncrementAttempt(quizID, userID)
	assert.ErrorIs(t, err, util.ErrQuizAlreadyFinalized)

	_, err = svc.CompleteAssistance(1, quizID, userID)
	assert.ErrorIs(t, err, util.ErrQuizAlreadyFinalized)
}

func TestFailureWithNoAssistanceConfigured(t *testing.T) {
	svc, _, _ := newTestService(Availability{MaxAttempts: 4})

	p, err := svc.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)
	assert.Equal(t, model.AssistanceNone, p.AssistanceRequired)
	assert.Equal(t, model.StepTakeMainQuizNow, p.NextStep)
	assert.Nil(t, p.FinalStatus)
}

func TestCustomMaxAttempts(t *testing.T) {
	svc, _, _ := newTestService(Availability{MaxAttempts: 2, Level1: true})

	p, err := svc.ApplyMainQuizGrading(quizID, userID, false, 2)
	require.NoError(t, err)
	assert.Nil(t, p.FinalStatus)

	p, err = svc.ApplyMainQuizGrading(quizID, userID, false, 2)
	require.NoError(t, err)
	require.NotNil(t, p.FinalStatus)
	assert.Equal(t, model.FinalFailed, *p.FinalStatus)
}

func TestGradingWithoutStartedAttempt(t *testing.T) {
	svc, store, _ := newTestService(allLevels())

	// 客户端可能跳过开始作答接口直接提交评分，计数仍需自洽
	p, err := svc.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, p.FailedAttempts)
	assert.LessOrEqual(t, p.FailedAttempts, p.CurrentAttempt)

	stored, err := store.Find(userID, quizID)
	require.NoError(t, err)
	assert.LessOrEqual(t, stored.FailedAttempts, stored.CurrentAttempt)

	// 正常路径下已开始的作答不会被重复计数
	_, err = svc.IncrementAttempt(quizID, userID)
	require.NoError(t, err)
	p, err = svc.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, p.FailedAttempts)
	assert.Equal(t, 2, p.CurrentAttempt)
}

func TestIncrementAttempt(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	p, err := svc.IncrementAttempt(quizID, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentAttempt)

	p, err = svc.IncrementAttempt(quizID, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentAttempt)
	assert.Equal(t, 0, p.FailedAttempts, "开始作答不影响失败计数")
}

func TestLevelCompletionIsIrreversible(t *testing.T) {
	svc, store, _ := newTestService(allLevels())

	_, err := svc.CompleteAssistance(1, quizID, userID)
	require.NoError(t, err)

	// 再次完成同一阶段不报错也不回退
	p, err := svc.CompleteAssistance(1, quizID, userID)
	require.NoError(t, err)
	assert.True(t, p.Level1Completed)

	stored, err := store.Find(userID, quizID)
	require.NoError(t, err)
	assert.True(t, stored.Level1Completed)
}

// ---- 人工干预 ----

func TestOverrideAssignsLevel(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	err := svc.SetOverride(quizID, userID, true, model.AssistanceLevel3)
	require.NoError(t, err)

	p, err := svc.GetOrCreateProgress(quizID, userID)
	require.NoError(t, err)
	assert.True(t, p.OverrideSystemFlow)
	require.NotNil(t, p.ManuallyAssignedLevel)
	assert.Equal(t, model.AssistanceLevel3, *p.ManuallyAssignedLevel)
	assert.Equal(t, model.StepViewLevel3, p.NextStep)

	// 指定级别未完成时不能开始主测验
	_, err = svc.IncrementAttempt(quizID, userID)
	assert.ErrorIs(t, err, util.ErrAssistanceIncomplete)

	// 完成指定级别后干预解除，放行重考
	p, err = svc.CompleteAssistance(3, quizID, userID)
	require.NoError(t, err)
	assert.False(t, p.OverrideSystemFlow)
	assert.Nil(t, p.ManuallyAssignedLevel)
	assert.Equal(t, model.StepTryMainQuizAgain, p.NextStep)

	_, err = svc.IncrementAttempt(quizID, userID)
	assert.NoError(t, err)
}

func TestOverrideNoneBypassesAssistance(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	// 自动流程要求一级辅导
	_, err := svc.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)

	// 教师无条件放行
	err = svc.SetOverride(quizID, userID, true, model.AssistanceNone)
	require.NoError(t, err)

	p, err := svc.GetOrCreateProgress(quizID, userID)
	require.NoError(t, err)
	assert.Equal(t, model.StepTryMainQuizAgain, p.NextStep)

	_, err = svc.IncrementAttempt(quizID, userID)
	assert.NoError(t, err)
}

func TestOverrideDisableRestoresAutomaticFlow(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	_, err := svc.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)

	require.NoError(t, svc.SetOverride(quizID, userID, true, model.AssistanceLevel2))
	require.NoError(t, svc.SetOverride(quizID, userID, false, model.AssistanceNone))

	p, err := svc.GetOrCreateProgress(quizID, userID)
	require.NoError(t, err)
	assert.False(t, p.OverrideSystemFlow)
	assert.Equal(t, model.AssistanceLevel1, p.AssistanceRequired)
	assert.Equal(t, model.StepCompleteLevel1, p.NextStep)
}

func TestOverrideRejectedOnTerminal(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	_, err := svc.ApplyMainQuizGrading(quizID, userID, true, 4)
	require.NoError(t, err)

	err = svc.SetOverride(quizID, userID, true, model.AssistanceLevel1)
	assert.ErrorIs(t, err, util.ErrQuizAlreadyFinalized)

	err = svc.GrantLevel3Access(quizID, userID, true)
	assert.ErrorIs(t, err, util.ErrQuizAlreadyFinalized)
}

func TestToggleFinalStatus(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	passed := true
	require.NoError(t, svc.ToggleFinalStatus(quizID, userID, &passed))

	p, err := svc.GetOrCreateProgress(quizID, userID)
	require.NoError(t, err)
	require.NotNil(t, p.FinalStatus)
	assert.Equal(t, model.FinalPassed, *p.FinalStatus)

	// 撤销终态，记录重新开放
	require.NoError(t, svc.ToggleFinalStatus(quizID, userID, nil))
	p, err = svc.GetOrCreateProgress(quizID, userID)
	require.NoError(t, err)
	assert.Nil(t, p.FinalStatus)

	_, err = svc.IncrementAttempt(quizID, userID)
	assert.NoError(t, err)

	failed := false
	require.NoError(t, svc.ToggleFinalStatus(quizID, userID, &failed))
	p, err = svc.GetOrCreateProgress(quizID, userID)
	require.NoError(t, err)
	require.NotNil(t, p.FinalStatus)
	assert.Equal(t, model.FinalFailed, *p.FinalStatus)
	assert.Equal(t, model.StepQuizFailedMaxAttempt, p.NextStep)
}

func TestToggleFinalStatusClearRecomputesNextStep(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	// 走到需要一级辅导的状态再强制通过
	_, err := svc.ApplyMainQuizGrading(quizID, userID, false, 4)
	require.NoError(t, err)
	passed := true
	require.NoError(t, svc.ToggleFinalStatus(quizID, userID, &passed))

	// 撤销后回到辅导要求
	require.NoError(t, svc.ToggleFinalStatus(quizID, userID, nil))
	p, err := svc.GetOrCreateProgress(quizID, userID)
	require.NoError(t, err)
	assert.Equal(t, model.AssistanceLevel1, p.AssistanceRequired)
	assert.Equal(t, model.StepCompleteLevel1, p.NextStep)
}

func TestGrantLevel3Access(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	require.NoError(t, svc.GrantLevel3Access(quizID, userID, true))

	p, err := svc.GetOrCreateProgress(quizID, userID)
	require.NoError(t, err)
	assert.True(t, p.Level3AccessGranted)
	assert.True(t, p.OverrideSystemFlow)
	require.NotNil(t, p.ManuallyAssignedLevel)
	assert.Equal(t, model.AssistanceLevel3, *p.ManuallyAssignedLevel)

	// 撤销授予，干预一并清除
	require.NoError(t, svc.GrantLevel3Access(quizID, userID, false))
	p, err = svc.GetOrCreateProgress(quizID, userID)
	require.NoError(t, err)
	assert.False(t, p.Level3AccessGranted)
	assert.False(t, p.OverrideSystemFlow)
}

func TestResetProgress(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	for i := 0; i < 4; i++ {
		if i > 0 {
			_, err := svc.CompleteAssistance(i, quizID, userID)
			require.NoError(t, err)
		}
		_, err := svc.ApplyMainQuizGrading(quizID, userID, false, 4)
		require.NoError(t, err)
	}

	require.NoError(t, svc.ResetProgress(quizID, userID))

	p, err := svc.GetOrCreateProgress(quizID, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.FailedAttempts)
	assert.Equal(t, 0, p.CurrentAttempt)
	assert.Nil(t, p.FinalStatus)
	assert.False(t, p.Level1Completed)
	assert.False(t, p.Level2Completed)
	assert.False(t, p.Level3Completed)
	assert.Equal(t, model.StepTakeMainQuizNow, p.NextStep)
}

func TestResetProgressMissingRecord(t *testing.T) {
	svc, _, _ := newTestService(allLevels())
	err := svc.ResetProgress(quizID, uint(999))
	assert.ErrorIs(t, err, util.ErrProgressNotFound)
}

// ---- 并发 ----

func TestConcurrentGradingSerialized(t *testing.T) {
	svc, store, _ := newTestService(allLevels())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// 终态后的调用会收到 ErrQuizAlreadyFinalized，这里只关心计数一致性
			svc.ApplyMainQuizGrading(quizID, userID, false, 100)
		}()
	}
	wg.Wait()

	p, err := store.Find(userID, quizID)
	require.NoError(t, err)
	assert.Equal(t, 8, p.FailedAttempts, "并发评分不丢失更新")
}

// ---- 投影 ----

func TestGetStatusEffectiveOverride(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	require.NoError(t, svc.SetOverride(quizID, userID, true, model.AssistanceLevel2))

	view, err := svc.GetStatus(quizID, userID)
	require.NoError(t, err)
	assert.Equal(t, model.AssistanceLevel2, view.AssistanceRequired)
	assert.Equal(t, model.StepCompleteLevel2, view.NextStep)
	assert.False(t, view.CanTakeQuiz)

	// 完成被指定的级别后投影放行
	_, err = svc.CompleteAssistance(2, quizID, userID)
	require.NoError(t, err)

	view, err = svc.GetStatus(quizID, userID)
	require.NoError(t, err)
	assert.Equal(t, model.AssistanceNone, view.AssistanceRequired)
	assert.True(t, view.CanTakeQuiz)
}

func TestGetStatusTerminal(t *testing.T) {
	svc, _, _ := newTestService(allLevels())

	_, err := svc.ApplyMainQuizGrading(quizID, userID, true, 4)
	require.NoError(t, err)

	view, err := svc.GetStatus(quizID, userID)
	require.NoError(t, err)
	assert.Equal(t, model.StepQuizPassed, view.NextStep)
	assert.False(t, view.CanTakeQuiz)
	require.NotNil(t, view.FinalStatus)
	assert.Equal(t, model.FinalPassed, *view.FinalStatus)
}

func TestGetStatusMaxAttemptsBlocksStart(t *testing.T) {
	svc, _, _ := newTestService(Availability{MaxAttempts: 2})

	for i := 0; i < 2; i++ {
		_, err := svc.IncrementAttempt(quizID, userID)
		require.NoError(t, err)
	}

	view, err := svc.GetStatus(quizID, userID)
	require.NoError(t, err)
	assert.False(t, view.CanTakeQuiz)
}

func TestGetStatusLevels(t *testing.T) {
	svc, _, _ := newTestService(Availability{MaxAttempts: 4, Level1: true, Level3: true})

	_, err := svc.CompleteAssistance(1, quizID, userID)
	require.NoError(t, err)

	view, err := svc.GetStatus(quizID, userID)
	require.NoError(t, err)
	require.Len(t, view.Levels, 3)
	assert.True(t, view.Levels[0].Configured)
	assert.True(t, view.Levels[0].Completed)
	assert.False(t, view.Levels[1].Configured)
	assert.True(t, view.Levels[2].Configured)
	assert.False(t, view.Levels[2].Completed)
}
