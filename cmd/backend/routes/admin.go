package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/lgulliver/lodestone-backend/internal/backend"
	"github.com/lgulliver/lodestone-backend/pkg/types"
)

// AdminRoutes registers the administrative listing calls
func AdminRoutes(router *gin.Engine, svc *backend.Service) {
	admin := router.Group(adminService)

	admin.POST("/GetUuids", handleSessionCall("GetUuids", svc.GetUuids, types.UuidList{Uuids: []types.GenUuidResult{}}))
	admin.POST("/GetSessions", handleSessionCall("GetSessions", svc.GetSessions, types.SessionList{Sessions: []types.Layer{}}))
}
