package controller

import (
	"eduquiz_backend/internal/service"
	"eduquiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssistanceController struct {
	AssistanceService *service.AssistanceService
}

func NewAssistanceController(assistanceService *service.AssistanceService) *AssistanceController {
	return &AssistanceController{AssistanceService: assistanceService}
}

// ---- 学生侧 ----

// GetLevel1 godoc
// @Summary 获取一级辅导题目
// @Description 是/否判断题，不含答案
// @Tags 辅导
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=service.Level1View} "成功"
// @Failure 404 {object} util.Response "未配置一级辅导"
// @Router /api/quizzes/{id}/assistance/level1 [get]
func (c *AssistanceController) GetLevel1(ctx *gin.Context) {
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	view, err := c.AssistanceService.GetLevel1ForQuiz(quizID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// SubmitLevel1 godoc
// @Summary 提交一级辅导作答
// @Description 自动评分，全部答对才算通过；重做次数不限
// @Tags 辅导
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body service.Level1SubmitInput true "作答"
// @Success 200 {object} util.Response{data=service.Level1Result} "成功"
// @Failure 404 {object} util.Response "未配置一级辅导"
// @Router /api/quizzes/{id}/assistance/level1/submit [post]
func (c *AssistanceController) SubmitLevel1(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.Level1SubmitInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AssistanceService.SubmitLevel1(quizID, claims.UserID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetLevel2 godoc
// @Summary 获取二级辅导题目
// @Tags 辅导
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=service.Level2View} "成功"
// @Failure 404 {object} util.Response "未配置二级辅导"
// @Router /api/quizzes/{id}/assistance/level2 [get]
func (c *AssistanceController) GetLevel2(ctx *gin.Context) {
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	view, err := c.AssistanceService.GetLevel2ForQuiz(quizID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// SubmitLevel2 godoc
// @Summary 提交二级辅导作答
// @Description 问答题进入教师批改队列，批改通过后该阶段完成
// @Tags 辅导
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body service.Level2SubmitInput true "作答"
// @Success 201 {object} util.Response{data=model.AssistanceLevel2Submission} "已提交"
// @Failure 404 {object} util.Response "未配置二级辅导"
// @Router /api/quizzes/{id}/assistance/level2/submit [post]
func (c *AssistanceController) SubmitLevel2(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.Level2SubmitInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.AssistanceService.SubmitLevel2(quizID, claims.UserID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}

// GetLevel3 godoc
// @Summary 获取三级辅导资料
// @Tags 辅导
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.AssistanceLevel3Def} "成功"
// @Failure 404 {object} util.Response "未配置三级辅导"
// @Router /api/quizzes/{id}/assistance/level3 [get]
func (c *AssistanceController) GetLevel3(ctx *gin.Context) {
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	def, err := c.AssistanceService.GetLevel3ForQuiz(quizID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, def)
}

// AcknowledgeLevel3 godoc
// @Summary 确认已阅读三级辅导资料
// @Description 确认即视为完成该阶段
// @Tags 辅导
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.QuizProgress} "成功"
// @Failure 404 {object} util.Response "未配置三级辅导"
// @Failure 409 {object} util.Response "已出最终结果"
// @Router /api/quizzes/{id}/assistance/level3/acknowledge [post]
func (c *AssistanceController) AcknowledgeLevel3(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	p, err := c.AssistanceService.AcknowledgeLevel3(quizID, claims.UserID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// ---- 教师侧 ----

// CreateLevel1 godoc
// @Summary 创建一级辅导定义
// @Tags 辅导管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateLevel1Input true "题组内容"
// @Success 201 {object} util.Response{data=model.AssistanceLevel1Def} "创建成功"
// @Router /api/teacher/assistance/level1 [post]
func (c *AssistanceController) CreateLevel1(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	var req service.CreateLevel1Input
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	def, err := c.AssistanceService.CreateLevel1(claims.UserID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, def)
}

// CreateLevel2 godoc
// @Summary 创建二级辅导定义
// @Tags 辅导管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateLevel2Input true "题组内容"
// @Success 201 {object} util.Response{data=model.AssistanceLevel2Def} "创建成功"
// @Router /api/teacher/assistance/level2 [post]
func (c *AssistanceController) CreateLevel2(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	var req service.CreateLevel2Input
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	def, err := c.AssistanceService.CreateLevel2(claims.UserID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, def)
}

// CreateLevel3 godoc
// @Summary 创建三级辅导资料
// @Tags 辅导管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateLevel3Input true "资料内容"
// @Success 201 {object} util.Response{data=model.AssistanceLevel3Def} "创建成功"
// @Router /api/teacher/assistance/level3 [post]
func (c *AssistanceController) CreateLevel3(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	var req service.CreateLevel3Input
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	def, err := c.AssistanceService.CreateLevel3(claims.UserID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Created(ctx, def)
}

type AttachAssistanceRequest struct {
	Level int  `json:"level" binding:"required,min=1,max=3"`
	DefID uint `json:"defId" binding:"required"`
}

// AttachToQuiz godoc
// @Summary 将辅导定义挂载到测验
// @Description 配置某测验指定级别的辅导内容
// @Tags 辅导管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body AttachAssistanceRequest true "级别与定义ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "无权限"
// @Failure 404 {object} util.Response "测验或定义不存在"
// @Router /api/teacher/quizzes/{id}/assistance [post]
func (c *AssistanceController) AttachToQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req AttachAssistanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AssistanceService.AttachToQuiz(quizID, req.Level, req.DefID, claims.UserID, claims.Role); err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListPendingLevel2 godoc
// @Summary 待批改的二级辅导提交
// @Tags 辅导管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   quizId query int false "按测验过滤"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/teacher/assistance/level2/pending [get]
func (c *AssistanceController) ListPendingLevel2(ctx *gin.Context) {
	page, limit := parsePagination(ctx)
	var quizID uint
	if v := ctx.Query("quizId"); v != "" {
		if parsed, err := parseUintQuery(v); err == nil {
			quizID = parsed
		}
	}

	subs, total, err := c.AssistanceService.ListPendingLevel2(quizID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: subs, Total: total, Page: page, Limit: limit})
}

// GetLevel2Submission godoc
// @Summary 查看二级辅导提交详情
// @Tags 辅导管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   submissionId path string true "提交ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "提交不存在"
// @Router /api/teacher/assistance/level2/submissions/{submissionId} [get]
func (c *AssistanceController) GetLevel2Submission(ctx *gin.Context) {
	sub, answers, err := c.AssistanceService.GetLevel2Submission(ctx.Param("submissionId"))
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"submission": sub, "answers": answers})
}

// GradeLevel2 godoc
// @Summary 批改二级辅导提交
// @Description 逐题判定，全部正确则学生完成该阶段
// @Tags 辅导管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   submissionId path string true "提交ID"
// @Param   body body service.GradeLevel2Input true "批改结果"
// @Success 200 {object} util.Response{data=service.Level2GradeResult} "成功"
// @Failure 404 {object} util.Response "提交不存在"
// @Failure 409 {object} util.Response "已批改过"
// @Router /api/teacher/assistance/level2/submissions/{submissionId}/grade [post]
func (c *AssistanceController) GradeLevel2(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	var req service.GradeLevel2Input
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AssistanceService.GradeLevel2(ctx.Param("submissionId"), claims.UserID, req)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
