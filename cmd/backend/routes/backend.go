package routes

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lgulliver/lodestone-backend/internal/backend"
	"github.com/lgulliver/lodestone-backend/pkg/types"
	"github.com/rs/zerolog/log"
)

const (
	backendService = "/backend.Backend"
	adminService   = "/backend.Admin"
)

// BackendRoutes registers the layer and upload session calls
func BackendRoutes(router *gin.Engine, svc *backend.Service) {
	rpc := router.Group(backendService)

	rpc.POST("/LayerExists", handleLayerExists(svc))
	rpc.POST("/GenUuid", handleSessionCall("GenUuid", svc.GenUuid, types.GenUuidResult{}))
	rpc.POST("/UuidExists", handleSessionCall("UuidExists", svc.UuidExists, types.Result{}))
	rpc.POST("/CancelUpload", handleSessionCall("CancelUpload", svc.CancelUpload, types.Result{}))
	rpc.POST("/DeleteUuid", handleSessionCall("DeleteUuid", svc.DeleteUuid, types.Result{}))
	rpc.POST("/UploadManifest", handleUploadManifest(svc))
}

func handleLayerExists(svc *backend.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.Layer
		if !bind(c, "LayerExists", &req) {
			reply(c, "LayerExists", http.StatusOK, types.LayerExistsResult{})
			return
		}
		reply(c, "LayerExists", http.StatusOK, svc.LayerExists(c.Request.Context(), req))
	}
}

func handleUploadManifest(svc *backend.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.Manifest
		if !bind(c, "UploadManifest", &req) {
			reply(c, "UploadManifest", http.StatusOK, types.Result{})
			return
		}
		reply(c, "UploadManifest", http.StatusOK, svc.UploadManifest(c.Request.Context(), req))
	}
}

// handleSessionCall answers malformed requests with the failure response and
// fails the call loudly when the session registry is unavailable
func handleSessionCall[Req any, Res any](method string, call func(context.Context, Req) (Res, error), failure Res) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if !bind(c, method, &req) {
			reply(c, method, http.StatusOK, failure)
			return
		}

		resp, err := call(c.Request.Context(), req)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("session registry unavailable")
			reply(c, method, http.StatusServiceUnavailable, gin.H{"error": "session registry unavailable"})
			return
		}

		reply(c, method, http.StatusOK, resp)
	}
}

// bind decodes the JSON request body; an empty body decodes to the zero request
func bind(c *gin.Context, method string, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		log.Debug().Err(err).Str("method", method).Msg("malformed request")
		return false
	}
	return true
}

// reply writes the response; send failures are logged and never retried
func reply(c *gin.Context, method string, status int, body interface{}) {
	c.JSON(status, body)
	if err := c.Errors.Last(); err != nil {
		log.Warn().
			Err(err.Err).
			Str("method", method).
			Interface("response", body).
			Msg("failed to reply")
	}
}
