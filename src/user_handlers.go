package main

import (
	"net/http"

	"vpass/src/middlewares"
	"vpass/src/types"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func publicRoutes(g *gin.Engine, s *server) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	apiv1.
		POST("/auth/password-reset", func(ctx *gin.Context) {
			var body types.PasswordResetRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			status, err := s.accounts.RequestPasswordReset(ctx.Request.Context(), body.Email)
			if err != nil {
				log.Printf("Error on RequestPasswordReset: %s", err.Error())
				ctx.Status(status)
				return
			}
			ctx.Status(status)
		})
	return apiv1
}

func userHandlers(g *gin.RouterGroup, s *server) *gin.RouterGroup {
	g.
		POST("/users", middlewares.RequireRole(types.ROLE_ADMIN), func(ctx *gin.Context) {
			var body types.CreateUserRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			user, status, err := s.accounts.CreateUser(ctx.Request.Context(), middlewares.Claims(ctx), body)
			if err != nil {
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(status, gin.H{"user": user})
		})
	return g
}
