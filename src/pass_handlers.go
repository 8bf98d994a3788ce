package main

import (
	"net/http"
	"time"

	"vpass/src/config"
	"vpass/src/middlewares"
	"vpass/src/models"
	"vpass/src/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func passID(ctx *gin.Context) (uuid.UUID, bool) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return uuid.Nil, false
	}
	return uuid.MustParse(params.ID), true
}

func passHandlers(g *gin.RouterGroup, s *server) *gin.RouterGroup {
	issuers := middlewares.RequireRole(types.ROLE_EMPLOYEE, types.ROLE_ADMIN)
	approvers := middlewares.RequireRole(types.ROLE_APPROVER, types.ROLE_ADMIN)
	desk := middlewares.RequireRole(types.ROLE_SECURITY, types.ROLE_ADMIN)

	g.
		POST("/passes", issuers, func(ctx *gin.Context) {
			var body types.CreatePassRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			visitAt, err := time.Parse(config.TIME_PARSE_FORMAT, body.VisitDateTime)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			pass, err := s.engine.Create(ctx.Request.Context(), middlewares.Claims(ctx), models.PassDetails{
				VisitorName:   body.VisitorName,
				VisitorEmail:  body.VisitorEmail,
				VisitorPhone:  body.VisitorPhone,
				Purpose:       body.Purpose,
				VisitDateTime: visitAt,
			})
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"pass": pass})
		}).
		GET("/passes", func(ctx *gin.Context) {
			var query types.ListPassesQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			passes, err := s.engine.List(ctx.Request.Context(), middlewares.Claims(ctx), query.Status, query.Page, query.Size)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"passes": passes, "page": query.Page, "size": query.Size})
		}).
		GET("/passes/mine", func(ctx *gin.Context) {
			var query types.PageQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			passes, err := s.engine.ListMine(ctx.Request.Context(), middlewares.Claims(ctx), query.Page, query.Size)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"passes": passes, "page": query.Page, "size": query.Size})
		}).
		GET("/passes/today", desk, func(ctx *gin.Context) {
			var query types.PageQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			today, err := s.engine.Today(ctx.Request.Context(), middlewares.Claims(ctx), query.Page, query.Size)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"today": today, "page": query.Page, "size": query.Size})
		}).
		GET("/passes/code/:code", func(ctx *gin.Context) {
			pass, err := s.engine.FindByCode(ctx.Request.Context(), middlewares.Claims(ctx), ctx.Param("code"))
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"pass": pass})
		}).
		GET("/passes/:id", func(ctx *gin.Context) {
			id, ok := passID(ctx)
			if !ok {
				return
			}
			pass, err := s.engine.Get(ctx.Request.Context(), middlewares.Claims(ctx), id)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"pass": pass})
		}).
		GET("/passes/:id/notifications", func(ctx *gin.Context) {
			id, ok := passID(ctx)
			if !ok {
				return
			}
			if _, err := s.engine.Get(ctx.Request.Context(), middlewares.Claims(ctx), id); err != nil {
				respondError(ctx, err)
				return
			}
			entries, err := s.audit.ListByPass(ctx.Request.Context(), id)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"notifications": entries})
		}).
		POST("/passes/:id/approve", approvers, func(ctx *gin.Context) {
			id, ok := passID(ctx)
			if !ok {
				return
			}
			pass, err := s.engine.Approve(ctx.Request.Context(), middlewares.Claims(ctx), id)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"pass": pass})
		}).
		POST("/passes/:id/reject", approvers, func(ctx *gin.Context) {
			id, ok := passID(ctx)
			if !ok {
				return
			}
			var body types.RejectPassRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			pass, err := s.engine.Reject(ctx.Request.Context(), middlewares.Claims(ctx), id, body.Reason)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"pass": pass})
		}).
		POST("/passes/:id/check-in", desk, func(ctx *gin.Context) {
			id, ok := passID(ctx)
			if !ok {
				return
			}
			pass, err := s.engine.CheckIn(ctx.Request.Context(), middlewares.Claims(ctx), id)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"pass": pass})
		}).
		POST("/passes/:id/check-out", desk, func(ctx *gin.Context) {
			id, ok := passID(ctx)
			if !ok {
				return
			}
			pass, err := s.engine.CheckOut(ctx.Request.Context(), middlewares.Claims(ctx), id)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"pass": pass})
		})
	return g
}
