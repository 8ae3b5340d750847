package controller

import (
	"strconv"
	"time"

	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Service *service.AttemptService
	Export  *service.ExportService
}

func NewAttemptController(svc *service.AttemptService, export *service.ExportService) *AttemptController {
	return &AttemptController{Service: svc, Export: export}
}

// @Summary 开始答题
// @Tags 答题模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "试卷ID"
// @Success 201 {object} util.Response
// @Router /api/papers/{id}/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.Service.Start(ctx.Request.Context(), user.UserID, user.IsPaid, ctx.Param("id"), util.GetBearerToken(ctx))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, attempt)
}

// @Summary 保存作答
// @Tags 答题模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "答题ID"
// @Param body body service.SaveAnswerReq true "作答内容"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/answers [post]
func (c *AttemptController) SaveAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SaveAnswerReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.Service.SaveAnswer(user.UserID, ctx.Param("id"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, answer)
}

type submitReq struct {
	Expired bool `json:"expired"`
}

// @Summary 提交答卷
// @Tags 答题模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "答题ID"
// @Param body body submitReq false "expired 表示超时提交"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req submitReq
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	attempt, err := c.Service.Submit(user.UserID, ctx.Param("id"), req.Expired)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, attempt)
}

// @Summary 获取答题详情
// @Tags 答题模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "答题ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [get]
func (c *AttemptController) Get(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.Service.Get(user.UserID, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}

// @Summary 历史答题列表
// @Tags 答题模块
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量上限" default(20)
// @Param start query string false "起始时间 RFC3339，免费用户会被钳制"
// @Success 200 {object} util.Response
// @Router /api/attempts [get]
func (c *AttemptController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	var start *time.Time
	if raw := ctx.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			util.BadRequest(ctx, "invalid start timestamp")
			return
		}
		start = &t
	}

	list, err := c.Service.List(user.UserID, user.IsPaid, limit, start)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, list)
}

// @Summary 答卷回顾
// @Tags 答题模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "答题ID"
// @Param includeExplanations query bool false "附带解析（付费特性）"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/review [get]
func (c *AttemptController) Review(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	includeExplanations := ctx.Query("includeExplanations") == "true"

	review, err := c.Service.Review(user.UserID, user.IsPaid, ctx.Param("id"), includeExplanations)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, review)
}

// @Summary 导出历史答题报表
// @Tags 答题模块
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/exports/attempts [post]
func (c *AttemptController) ExportHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	url, err := c.Export.ExportHistory(ctx.Request.Context(), user.UserID, user.IsPaid)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"url": url})
}
