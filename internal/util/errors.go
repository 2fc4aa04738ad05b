package util

import "errors"

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrPermissionDenied = errors.New("permission denied")

	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuizNotPublished     = errors.New("quiz not published or not accessible")
	ErrProgressNotFound     = errors.New("progress record not found")
	ErrAssistanceNotFound   = errors.New("assistance definition not found")
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrQuizAlreadyFinalized = errors.New("quiz already has a final result")
	ErrAssistanceIncomplete = errors.New("assistance stage not completed")
	ErrAssistanceNotDemand  = errors.New("assistance stage is not currently required")
	ErrAlreadyGraded        = errors.New("submission already graded")
	ErrVersionConflict      = errors.New("progress record was modified concurrently")
)

// IsPrecondition 判断错误是否属于前置条件失败（调用方修正后可重试）
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrQuizAlreadyFinalized) ||
		errors.Is(err, ErrAssistanceIncomplete) ||
		errors.Is(err, ErrAssistanceNotDemand) ||
		errors.Is(err, ErrAlreadyGraded) ||
		errors.Is(err, ErrVersionConflict)
}

// IsNotFound 判断错误是否属于资源不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrProgressNotFound) ||
		errors.Is(err, ErrAssistanceNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrAttemptNotFound)
}
