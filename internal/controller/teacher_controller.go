package controller

import (
	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/repository"
	"eduquiz_backend/internal/service"
	"eduquiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TeacherController 教师与管理员对进度的人工干预
type TeacherController struct {
	ProgressService *service.ProgressService
	AttemptRepo     *repository.AttemptRepository
}

func NewTeacherController(progressService *service.ProgressService, attemptRepo *repository.AttemptRepository) *TeacherController {
	return &TeacherController{ProgressService: progressService, AttemptRepo: attemptRepo}
}

type SetOverrideRequest struct {
	Enabled bool                        `json:"enabled"`
	Level   model.AssistanceRequirement `json:"level"`
}

// SetOverride godoc
// @Summary 设置人工辅导指定
// @Description 接管自动流程：指定学生必须完成的辅导级别，NONE 表示无条件放行
// @Tags 教师干预
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   userId path int true "学生ID"
// @Param   body body SetOverrideRequest true "干预内容"
// @Success 200 {object} util.Response "成功"
// @Failure 409 {object} util.Response "已出最终结果"
// @Router /api/teacher/quizzes/{id}/students/{userId}/override [put]
func (c *TeacherController) SetOverride(ctx *gin.Context) {
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	userID, ok := parseUintParam(ctx, "userId")
	if !ok {
		return
	}
	var req SetOverrideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Enabled {
		switch req.Level {
		case model.AssistanceNone, model.AssistanceLevel1, model.AssistanceLevel2, model.AssistanceLevel3:
		default:
			util.BadRequest(ctx, "invalid assistance level")
			return
		}
	}

	if err := c.ProgressService.SetOverride(quizID, userID, req.Enabled, req.Level); err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type ToggleFinalStatusRequest struct {
	// IsPassed 为 null 时清除终态，学生回到进行中
	IsPassed *bool `json:"isPassed"`
}

// ToggleFinalStatus godoc
// @Summary 直接裁定最终结果
// @Description 无视尝试计数直接判定通过/不通过；传 null 撤销终态重新开放
// @Tags 教师干预
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   userId path int true "学生ID"
// @Param   body body ToggleFinalStatusRequest true "裁定结果"
// @Success 200 {object} util.Response "成功"
// @Router /api/teacher/quizzes/{id}/students/{userId}/final-status [put]
func (c *TeacherController) ToggleFinalStatus(ctx *gin.Context) {
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	userID, ok := parseUintParam(ctx, "userId")
	if !ok {
		return
	}
	var req ToggleFinalStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ProgressService.ToggleFinalStatus(quizID, userID, req.IsPassed); err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type GrantLevel3Request struct {
	Granted bool `json:"granted"`
}

// GrantLevel3Access godoc
// @Summary 授予/撤销三级辅导入口
// @Description 不要求失败次数达到 3 即可让学生查看三级辅导资料
// @Tags 教师干预
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   userId path int true "学生ID"
// @Param   body body GrantLevel3Request true "授予与否"
// @Success 200 {object} util.Response "成功"
// @Failure 409 {object} util.Response "已出最终结果"
// @Router /api/teacher/quizzes/{id}/students/{userId}/level3-access [put]
func (c *TeacherController) GrantLevel3Access(ctx *gin.Context) {
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	userID, ok := parseUintParam(ctx, "userId")
	if !ok {
		return
	}
	var req GrantLevel3Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ProgressService.GrantLevel3Access(quizID, userID, req.Granted); err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ResetProgress godoc
// @Summary 重置学生进度
// @Description 管理员操作：清空计数器、完成标记、终态与人工干预，历史记录保留
// @Tags 教师干预
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   userId path int true "学生ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "进度记录不存在"
// @Router /api/admin/quizzes/{id}/students/{userId}/progress [delete]
func (c *TeacherController) ResetProgress(ctx *gin.Context) {
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	userID, ok := parseUintParam(ctx, "userId")
	if !ok {
		return
	}

	if err := c.ProgressService.ResetProgress(quizID, userID); err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListQuizAttempts godoc
// @Summary 某测验的全部作答历史
// @Tags 教师干预
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/teacher/quizzes/{id}/attempts [get]
func (c *TeacherController) ListQuizAttempts(ctx *gin.Context) {
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	page, limit := parsePagination(ctx)

	attempts, total, err := c.AttemptRepo.ListByQuiz(quizID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: attempts, Total: total, Page: page, Limit: limit})
}
