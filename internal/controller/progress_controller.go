package controller

import (
	"eduquiz_backend/internal/service"
	"eduquiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// GetStatus godoc
// @Summary 查询测验进度
// @Description 返回进度投影：有效辅导要求、下一步、可否作答、各级配置与完成情况、完整历史
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=service.StatusView} "成功"
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/quizzes/{id}/status [get]
func (c *ProgressController) GetStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	view, err := c.ProgressService.GetStatus(quizID, claims.UserID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, view)
}

// GetStudentStatus godoc
// @Summary 教师查询某学生的测验进度
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   userId path int true "学生ID"
// @Success 200 {object} util.Response{data=service.StatusView} "成功"
// @Failure 404 {object} util.Response "记录不存在"
// @Router /api/teacher/quizzes/{id}/students/{userId}/status [get]
func (c *ProgressController) GetStudentStatus(ctx *gin.Context) {
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	userID, ok := parseUintParam(ctx, "userId")
	if !ok {
		return
	}

	view, err := c.ProgressService.GetStatus(quizID, userID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, view)
}
