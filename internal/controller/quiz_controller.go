package controller

import (
	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/service"
	"eduquiz_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

func parseUintQuery(v string) (uint, error) {
	parsed, err := strconv.ParseUint(v, 10, 64)
	return uint(parsed), err
}

func parsePagination(ctx *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// CreateQuiz godoc
// @Summary 创建测验
// @Description 教师创建主测验及题目
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateQuizInput true "测验内容"
// @Success 201 {object} util.Response{data=model.Quiz} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/teacher/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	var req service.CreateQuizInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.CreateQuiz(claims.UserID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Created(ctx, quiz)
}

// UpdateQuiz godoc
// @Summary 更新测验
// @Description 修改测验配置，发布/下架
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body service.UpdateQuizInput true "变更字段"
// @Success 200 {object} util.Response{data=model.Quiz} "成功"
// @Failure 403 {object} util.Response "无权限"
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/teacher/quizzes/{id} [put]
func (c *QuizController) UpdateQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateQuizInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.UpdateQuiz(quizID, claims.UserID, claims.Role, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, quiz)
}

// DeleteQuiz godoc
// @Summary 删除测验
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "无权限"
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/teacher/quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.QuizService.DeleteQuiz(quizID, claims.UserID, claims.Role); err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// ListQuizzes godoc
// @Summary 测验列表
// @Description 学生只能看到已发布的测验
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page, limit := parsePagination(ctx)

	publishedOnly := claims == nil || claims.Role == model.Student
	quizzes, total, err := c.QuizService.ListQuizzes(page, limit, publishedOnly)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: quizzes, Total: total, Page: page, Limit: limit})
}

// StartAttempt godoc
// @Summary 开始一次主测验作答
// @Description 递增尝试计数并下发题面；终态或未完成指定辅导时拒绝
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=service.QuizPaper} "成功"
// @Failure 404 {object} util.Response "测验不存在"
// @Failure 409 {object} util.Response "已出最终结果或辅导未完成"
// @Router /api/quizzes/{id}/attempts [post]
func (c *QuizController) StartAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	paper, err := c.QuizService.StartAttempt(quizID, claims.UserID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, paper)
}

// SubmitQuiz godoc
// @Summary 提交主测验答案
// @Description 自动评分并更新进度状态机
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body service.QuizSubmitInput true "作答内容"
// @Success 200 {object} util.Response{data=service.QuizResult} "成功"
// @Failure 404 {object} util.Response "测验不存在"
// @Failure 409 {object} util.Response "已出最终结果"
// @Router /api/quizzes/{id}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.QuizSubmitInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuizService.SubmitQuiz(quizID, claims.UserID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
