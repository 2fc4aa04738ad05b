package service

import (
	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/repository"
	"eduquiz_backend/internal/util"
)

// UserService 用户档案与管理
type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

func (s *UserService) GetProfile(userID uint) (*model.User, error) {
	return s.UserRepo.FindByID(userID)
}

type UpdateProfileInput struct {
	Name     *string `json:"name"`
	Language *string `json:"language"`
	Avatar   *string `json:"avatar"`
}

func (s *UserService) UpdateProfile(userID uint, input UpdateProfileInput) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Language != nil {
		user.Language = *input.Language
	}
	if input.Avatar != nil {
		user.Avatar = *input.Avatar
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetRole 管理员调整用户角色
func (s *UserService) SetRole(userID uint, role model.UserRole) (*model.User, error) {
	switch role {
	case model.Student, model.Teacher, model.Admin:
	default:
		return nil, util.ErrPermissionDenied
	}
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}
