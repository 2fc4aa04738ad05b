package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eduquiz_backend/internal/repository"

	"github.com/go-redis/redis/v8"
)

// Availability 某测验的辅导阶段配置情况与尝试上限
type Availability struct {
	MaxAttempts int  `json:"maxAttempts"`
	Level1      bool `json:"level1"`
	Level2      bool `json:"level2"`
	Level3      bool `json:"level3"`
}

// Configured 指定级别是否配置了辅导定义
func (a Availability) Configured(level int) bool {
	switch level {
	case 1:
		return a.Level1
	case 2:
		return a.Level2
	case 3:
		return a.Level3
	}
	return false
}

// AvailabilityResolver 供状态机查询辅导阶段配置，只读
type AvailabilityResolver interface {
	Resolve(quizID uint) (Availability, error)
}

// AvailabilityService 基于测验配置的解析实现，结果缓存到 Redis
type AvailabilityService struct {
	QuizRepo *repository.QuizRepository
	Redis    *redis.Client
	TTL      time.Duration
}

func NewAvailabilityService(quizRepo *repository.QuizRepository, rdb *redis.Client, ttl time.Duration) *AvailabilityService {
	return &AvailabilityService{QuizRepo: quizRepo, Redis: rdb, TTL: ttl}
}

func availabilityCacheKey(quizID uint) string {
	return fmt.Sprintf("quiz:availability:%d", quizID)
}

func (s *AvailabilityService) Resolve(quizID uint) (Availability, error) {
	ctx := context.Background()

	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, availabilityCacheKey(quizID)).Result(); err == nil {
			var av Availability
			if json.Unmarshal([]byte(cached), &av) == nil {
				return av, nil
			}
		}
	}

	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return Availability{}, err
	}

	av := Availability{
		MaxAttempts: quiz.MaxAttempts,
		Level1:      quiz.AssistanceLevel1ID != nil,
		Level2:      quiz.AssistanceLevel2ID != nil,
		Level3:      quiz.AssistanceLevel3ID != nil,
	}

	if s.Redis != nil {
		if data, err := json.Marshal(av); err == nil {
			s.Redis.Set(ctx, availabilityCacheKey(quizID), data, s.TTL)
		}
	}

	return av, nil
}

// Invalidate 测验配置变更后清除缓存
func (s *AvailabilityService) Invalidate(quizID uint) {
	if s.Redis != nil {
		s.Redis.Del(context.Background(), availabilityCacheKey(quizID))
	}
}
