package service

import (
	"errors"
	"fmt"
	"sync"

	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/util"
	"eduquiz_backend/pkg/monitoring"
)

// ProgressStore 进度记录的持久化接口，状态机通过它读写，
// 测试时可替换为内存实现
type ProgressStore interface {
	GetOrCreate(userID, quizID uint) (*model.QuizProgress, error)
	Find(userID, quizID uint) (*model.QuizProgress, error)
	UpdateCAS(p *model.QuizProgress) error
}

// AttemptStore 只追加的评分历史接口
type AttemptStore interface {
	Append(a *model.QuizAttempt) error
	ListByUserAndQuiz(userID, quizID uint) ([]model.QuizAttempt, error)
	HasPendingMain(userID, quizID uint) (bool, error)
}

var ErrInvalidAssistanceLevel = errors.New("invalid assistance level")

// ProgressService 进度状态机：每次评分或辅导完成后决定学生下一步
// 允许/必须做什么，维护计数器与终态
type ProgressService struct {
	Progress ProgressStore
	Attempts AttemptStore
	Resolver AvailabilityResolver

	DefaultMaxAttempts int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewProgressService(progress ProgressStore, attempts AttemptStore, resolver AvailabilityResolver, defaultMaxAttempts int) *ProgressService {
	if defaultMaxAttempts <= 0 {
		defaultMaxAttempts = 4
	}
	return &ProgressService{
		Progress:           progress,
		Attempts:           attempts,
		Resolver:           resolver,
		DefaultMaxAttempts: defaultMaxAttempts,
		locks:              make(map[string]*sync.Mutex),
	}
}

// lockKey 同一 (学生, 测验) 的变更串行执行，防止双击并发提交丢失更新
func (s *ProgressService) lockKey(userID, quizID uint) func() {
	key := progressKey(userID, quizID)
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func progressKey(userID, quizID uint) string {
	return fmt.Sprintf("%d:%d", userID, quizID)
}

// stageDescriptor 辅导阶段描述符，状态机以固定顺序遍历
type stageDescriptor struct {
	level      int
	configured bool
	completed  bool
}

func stageList(p *model.QuizProgress, av Availability) [3]stageDescriptor {
	return [3]stageDescriptor{
		{1, av.Configured(1), p.Level1Completed},
		{2, av.Configured(2), p.Level2Completed},
		{3, av.Configured(3), p.Level3Completed},
	}
}

// selectStage 第 n 次失败后应要求的辅导级别，0 表示无
// 第 n 次失败最多解锁前 n 个阶段；顺序取第一个已配置且未完成的，
// 学生不能跳过更基础的阶段；n>=4 不再安排辅导
func selectStage(p *model.QuizProgress, av Availability, n int) int {
	if n < 1 || n >= 4 {
		return 0
	}
	unlocked := n
	if unlocked > 3 {
		unlocked = 3
	}
	stages := stageList(p, av)
	for _, st := range stages[:unlocked] {
		if st.configured && !st.completed {
			return st.level
		}
	}
	return 0
}

func clearOverride(p *model.QuizProgress) {
	p.OverrideSystemFlow = false
	p.ManuallyAssignedLevel = nil
}

// GetOrCreateProgress 惰性创建进度记录
func (s *ProgressService) GetOrCreateProgress(quizID, userID uint) (*model.QuizProgress, error) {
	return s.Progress.GetOrCreate(userID, quizID)
}

// IncrementAttempt 学生开始一次新的主测验尝试
// 前置条件：记录非终态；若教师指定了辅导级别，对应阶段必须已完成
func (s *ProgressService) IncrementAttempt(quizID, userID uint) (*model.QuizProgress, error) {
	unlock := s.lockKey(userID, quizID)
	defer unlock()

	p, err := s.Progress.GetOrCreate(userID, quizID)
	if err != nil {
		return nil, err
	}
	if p.IsTerminal() {
		return nil, util.ErrQuizAlreadyFinalized
	}
	if p.ManuallyAssignedLevel != nil && *p.ManuallyAssignedLevel != model.AssistanceNone {
		if !p.LevelCompleted(p.ManuallyAssignedLevel.Level()) {
			return nil, util.ErrAssistanceIncomplete
		}
	}

	// 辅导阶段的活动不计入主测验尝试次数
	p.CurrentAttempt++

	if err := s.Progress.UpdateCAS(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyMainQuizGrading 主测验评分结果进入状态机
// maxAttempts 来自测验配置，<=0 时取默认值
func (s *ProgressService) ApplyMainQuizGrading(quizID, userID uint, passed bool, maxAttempts int) (*model.QuizProgress, error) {
	unlock := s.lockKey(userID, quizID)
	defer unlock()

	p, err := s.Progress.GetOrCreate(userID, quizID)
	if err != nil {
		return nil, err
	}
	if p.IsTerminal() {
		return nil, util.ErrQuizAlreadyFinalized
	}
	if maxAttempts <= 0 {
		maxAttempts = s.DefaultMaxAttempts
	}

	result := passed
	p.LastAttemptPassed = &result

	if passed {
		status := model.FinalPassed
		p.FinalStatus = &status
		p.AssistanceRequired = model.AssistanceNone
		p.NextStep = model.StepQuizPassed
		clearOverride(p)
		monitoring.QuizFinalStatusCounter.WithLabelValues(string(model.FinalPassed)).Inc()
	} else {
		p.FailedAttempts++
		// 评分可能未经过 IncrementAttempt 直达（客户端直接提交），
		// 补齐计数维持 failedAttempts <= currentAttempt
		if p.CurrentAttempt < p.FailedAttempts {
			p.CurrentAttempt = p.FailedAttempts
		}
		n := p.FailedAttempts

		if n >= maxAttempts {
			status := model.FinalFailed
			p.FinalStatus = &status
			p.AssistanceRequired = model.AssistanceNone
			p.NextStep = model.StepQuizFailedMaxAttempt
			clearOverride(p)
			monitoring.QuizFinalStatusCounter.WithLabelValues(string(model.FinalFailed)).Inc()
		} else {
			av, err := s.Resolver.Resolve(quizID)
			if err != nil {
				return nil, err
			}
			if level := selectStage(p, av, n); level > 0 {
				p.AssistanceRequired = model.RequirementForLevel(level)
				p.NextStep = model.StepForLevel(level)
				p.FinalStatus = nil
			} else {
				// 已配置的阶段都完成了，或根本没配置辅导
				p.AssistanceRequired = model.AssistanceNone
				p.NextStep = model.StepTakeMainQuizNow
			}
		}
	}

	if err := s.Progress.UpdateCAS(p); err != nil {
		return nil, err
	}
	return p, nil
}

// CompleteAssistance 学生通过某辅导阶段（1/2 级评分通过，3 级确认阅读）
func (s *ProgressService) CompleteAssistance(level int, quizID, userID uint) (*model.QuizProgress, error) {
	if level < 1 || level > 3 {
		return nil, ErrInvalidAssistanceLevel
	}

	unlock := s.lockKey(userID, quizID)
	defer unlock()

	p, err := s.Progress.GetOrCreate(userID, quizID)
	if err != nil {
		return nil, err
	}
	if p.IsTerminal() {
		return nil, util.ErrQuizAlreadyFinalized
	}

	overrideDriven := p.OverrideSystemFlow &&
		p.ManuallyAssignedLevel != nil &&
		p.ManuallyAssignedLevel.Level() == level

	p.MarkLevelCompleted(level)
	p.AssistanceRequired = model.AssistanceNone
	if overrideDriven {
		p.NextStep = model.StepTryMainQuizAgain
		clearOverride(p)
	} else {
		p.NextStep = model.StepTakeMainQuizNow
	}

	if err := s.Progress.UpdateCAS(p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetOverride 教师人工接管：指定级别替代自动流程作为放行依据
// level 为 NONE 表示无条件放行主测验
func (s *ProgressService) SetOverride(quizID, userID uint, enabled bool, level model.AssistanceRequirement) error {
	unlock := s.lockKey(userID, quizID)
	defer unlock()

	p, err := s.Progress.GetOrCreate(userID, quizID)
	if err != nil {
		return err
	}
	if p.IsTerminal() {
		// 终态记录需要先用 ToggleFinalStatus 重新打开
		return util.ErrQuizAlreadyFinalized
	}

	if enabled {
		lv := level
		p.OverrideSystemFlow = true
		p.ManuallyAssignedLevel = &lv
		if lv == model.AssistanceNone {
			p.NextStep = model.StepTryMainQuizAgain
		} else {
			p.NextStep = model.StepForLevel(lv.Level())
		}
	} else {
		clearOverride(p)
		// 自动流程恢复权威
		if p.AssistanceRequired == model.AssistanceNone {
			p.NextStep = model.StepTakeMainQuizNow
		} else {
			p.NextStep = model.StepForLevel(p.AssistanceRequired.Level())
		}
	}

	return s.Progress.UpdateCAS(p)
}

// ToggleFinalStatus 教师直接裁定最终结果，独立于尝试计数
// isPassed 为 nil 时清除终态，记录回到进行中
func (s *ProgressService) ToggleFinalStatus(quizID, userID uint, isPassed *bool) error {
	unlock := s.lockKey(userID, quizID)
	defer unlock()

	p, err := s.Progress.GetOrCreate(userID, quizID)
	if err != nil {
		return err
	}

	p.LastAttemptPassed = isPassed

	switch {
	case isPassed == nil:
		p.FinalStatus = nil
		if p.AssistanceRequired != model.AssistanceNone {
			p.NextStep = model.StepForLevel(p.AssistanceRequired.Level())
		} else if p.FailedAttempts > 0 {
			p.NextStep = model.StepTryMainQuizAgain
		} else {
			p.NextStep = model.StepTakeMainQuizNow
		}
	case *isPassed:
		status := model.FinalPassed
		p.FinalStatus = &status
		p.AssistanceRequired = model.AssistanceNone
		p.NextStep = model.StepQuizPassed
		clearOverride(p)
		monitoring.QuizFinalStatusCounter.WithLabelValues(string(model.FinalPassed)).Inc()
	default:
		status := model.FinalFailed
		p.FinalStatus = &status
		p.AssistanceRequired = model.AssistanceNone
		p.NextStep = model.StepQuizFailedMaxAttempt
		clearOverride(p)
		monitoring.QuizFinalStatusCounter.WithLabelValues(string(model.FinalFailed)).Inc()
	}

	return s.Progress.UpdateCAS(p)
}

// GrantLevel3Access 教师单独授予三级辅导入口，不要求失败次数达到 3
func (s *ProgressService) GrantLevel3Access(quizID, userID uint, granted bool) error {
	unlock := s.lockKey(userID, quizID)
	defer unlock()

	p, err := s.Progress.GetOrCreate(userID, quizID)
	if err != nil {
		return err
	}
	if p.IsTerminal() {
		return util.ErrQuizAlreadyFinalized
	}

	p.Level3AccessGranted = granted
	if granted {
		lv := model.AssistanceLevel3
		p.OverrideSystemFlow = true
		p.ManuallyAssignedLevel = &lv
		p.NextStep = model.StepViewLevel3
	} else if p.OverrideSystemFlow &&
		p.ManuallyAssignedLevel != nil &&
		*p.ManuallyAssignedLevel == model.AssistanceLevel3 {
		clearOverride(p)
		if p.AssistanceRequired == model.AssistanceNone {
			p.NextStep = model.StepTakeMainQuizNow
		} else {
			p.NextStep = model.StepForLevel(p.AssistanceRequired.Level())
		}
	}

	return s.Progress.UpdateCAS(p)
}

// ResetProgress 管理员重置：清空计数器、完成标记、终态与人工干预
func (s *ProgressService) ResetProgress(quizID, userID uint) error {
	unlock := s.lockKey(userID, quizID)
	defer unlock()

	p, err := s.Progress.Find(userID, quizID)
	if err != nil {
		return err
	}

	p.CurrentAttempt = 0
	p.FailedAttempts = 0
	p.LastAttemptPassed = nil
	p.FinalStatus = nil
	p.Level1Completed = false
	p.Level2Completed = false
	p.Level3Completed = false
	p.AssistanceRequired = model.AssistanceNone
	p.NextStep = model.StepTakeMainQuizNow
	p.Level3AccessGranted = false
	clearOverride(p)

	return s.Progress.UpdateCAS(p)
}
