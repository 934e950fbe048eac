package handler

import (
	"net/http"
	"time"

	"reelforge-backend/internal/middleware"
	"reelforge-backend/internal/model"
	"reelforge-backend/internal/svc"
	"reelforge-backend/internal/types"
)

type PublishHandler struct {
	ctx *svc.ServiceContext
}

func NewPublishHandler(ctx *svc.ServiceContext) *PublishHandler {
	return &PublishHandler{ctx: ctx}
}

// CreatePublish 发起一次社交平台发布
func (h *PublishHandler) CreatePublish(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, types.ErrorResponse{Error: "用户未认证"})
		return
	}

	var req types.PublishRequest
	if err := ParseJSON(r, &req); err != nil || req.VideoID == 0 {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "视频ID不能为空"})
		return
	}

	task, err := h.ctx.PublishService.CreateContainer(r.Context(), userID, req.VideoID, req.Caption)
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "发布失败: " + err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, publishResponse(task))
}

// GetPublish 查询发布任务状态
func (h *PublishHandler) GetPublish(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, types.ErrorResponse{Error: "用户未认证"})
		return
	}

	taskID := r.URL.Query().Get("id")
	if taskID == "" {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "任务ID不能为空"})
		return
	}

	task, err := h.ctx.PublishService.GetTask(r.Context(), taskID, userID)
	if err != nil {
		WriteJSON(w, http.StatusNotFound, types.ErrorResponse{Error: "发布任务不存在"})
		return
	}

	WriteJSON(w, http.StatusOK, publishResponse(task))
}

// SaveToken 保存平台令牌（OAuth授权完成后由前端回写）
func (h *PublishHandler) SaveToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, types.ErrorResponse{Error: "用户未认证"})
		return
	}

	var req types.SocialTokenRequest
	if err := ParseJSON(r, &req); err != nil || req.AccessToken == "" {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "访问令牌不能为空"})
		return
	}

	expiresAt := time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
	if err := h.ctx.PublishService.UpsertToken(r.Context(), userID, req.AccessToken, req.RefreshToken, expiresAt, req.PageID); err != nil {
		WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "保存令牌失败: " + err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, types.SuccessResponse{Message: "令牌已保存"})
}

func publishResponse(task *model.PublishTask) types.PublishResponse {
	return types.PublishResponse{
		ID:         task.ID,
		VideoID:    task.VideoID,
		Status:     task.Status,
		MediaURL:   task.MediaURL,
		ErrorMsg:   task.ErrorMsg,
		RetryCount: task.RetryCount,
		CreatedAt:  task.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:  task.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
