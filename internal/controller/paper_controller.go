package controller

import (
	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PaperController struct {
	Service *service.PaperService
}

func NewPaperController(svc *service.PaperService) *PaperController {
	return &PaperController{Service: svc}
}

// @Summary 创建试卷
// @Tags 试卷模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreatePaperReq true "试卷配置"
// @Success 201 {object} util.Response
// @Router /api/papers [post]
func (c *PaperController) Create(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreatePaperReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	paper, err := c.Service.Create(user.UserID, user.IsPaid, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, paper)
}

// @Summary 获取试卷列表
// @Tags 试卷模块
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/papers [get]
func (c *PaperController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	papers, err := c.Service.List(user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, papers)
}

// @Summary 获取试卷详情
// @Tags 试卷模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/papers/{id} [get]
func (c *PaperController) Get(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	paper, err := c.Service.Get(user.UserID, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, paper)
}

// @Summary 删除试卷
// @Tags 试卷模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/papers/{id} [delete]
func (c *PaperController) Delete(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	paper, err := c.Service.Delete(user.UserID, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, paper)
}
