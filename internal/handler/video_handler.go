package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"reelforge-backend/internal/middleware"
	"reelforge-backend/internal/model"
	"reelforge-backend/internal/service"
	"reelforge-backend/internal/svc"
	"reelforge-backend/internal/types"
)

type VideoHandler struct {
	ctx *svc.ServiceContext
}

func NewVideoHandler(ctx *svc.ServiceContext) *VideoHandler {
	return &VideoHandler{ctx: ctx}
}

// CreateVideo 创建视频任务。非草稿提交会同步生成脚本，文案生成异步跟进
func (h *VideoHandler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, types.ErrorResponse{Error: "用户未认证"})
		return
	}

	var req types.CreateVideoRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "请求参数错误"})
		return
	}

	video, err := h.ctx.PipelineService.CreateVideo(r.Context(), userID, req)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}

	if !req.Draft {
		if _, err := h.ctx.PipelineService.GenerateScript(r.Context(), video.ID); err != nil {
			WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{
				Error:     "脚本生成失败: " + err.Error(),
				Retryable: service.IsRetryable(err),
			})
			return
		}

		// 文案生成不阻塞响应
		go func(videoID uint) {
			if _, err := h.ctx.PipelineService.GenerateCopies(context.Background(), videoID); err != nil {
				log.Printf("视频 %d 文案生成失败: %v", videoID, err)
			}
		}(video.ID)
	}

	video, err = h.ctx.PipelineService.GetVideoByID(r.Context(), video.ID)
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "读取视频失败: " + err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, videoResponse(video))
}

// GenerateScript 重新生成脚本（手动重试入口）
func (h *VideoHandler) GenerateScript(w http.ResponseWriter, r *http.Request) {
	video, ok := h.ownedVideoFromBody(w, r)
	if !ok {
		return
	}

	script, err := h.ctx.PipelineService.GenerateScript(r.Context(), video.ID)
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{
			Error:     "脚本生成失败: " + err.Error(),
			Retryable: service.IsRetryable(err),
		})
		return
	}

	WriteJSON(w, http.StatusOK, types.GenerateScriptResponse{
		VideoID: video.ID,
		Script:  script,
	})
}

// GenerateCopies 重新生成长短文案，单路失败随成功结果一并返回
func (h *VideoHandler) GenerateCopies(w http.ResponseWriter, r *http.Request) {
	video, ok := h.ownedVideoFromBody(w, r)
	if !ok {
		return
	}

	result, err := h.ctx.PipelineService.GenerateCopies(r.Context(), video.ID)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, types.GenerateCopiesResponse{
		VideoID:   video.ID,
		ShortCopy: result.ShortCopy,
		LongCopy:  result.LongCopy,
		Errors:    result.Errors,
	})
}

// RequestRender 发起数字人渲染（扣积分）
func (h *VideoHandler) RequestRender(w http.ResponseWriter, r *http.Request) {
	video, ok := h.ownedVideoFromBody(w, r)
	if !ok {
		return
	}

	if err := h.ctx.PipelineService.RequestAvatarRender(r.Context(), video.ID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrInsufficientCredits) {
			status = http.StatusPaymentRequired
		}
		WriteJSON(w, status, types.ErrorResponse{
			Error:     "发起渲染失败: " + err.Error(),
			Retryable: service.IsRetryable(err),
		})
		return
	}

	WriteJSON(w, http.StatusOK, types.SuccessResponse{Message: "数字人渲染已发起"})
}

// RequestComposite 发起成片合成
func (h *VideoHandler) RequestComposite(w http.ResponseWriter, r *http.Request) {
	video, ok := h.ownedVideoFromBody(w, r)
	if !ok {
		return
	}

	if err := h.ctx.PipelineService.RequestComposite(r.Context(), video.ID); err != nil {
		WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{
			Error:     "发起合成失败: " + err.Error(),
			Retryable: service.IsRetryable(err),
		})
		return
	}

	WriteJSON(w, http.StatusOK, types.SuccessResponse{Message: "成片合成已发起"})
}

// RefreshAvatarURLs 刷新数字人素材的临时地址
func (h *VideoHandler) RefreshAvatarURLs(w http.ResponseWriter, r *http.Request) {
	video, ok := h.ownedVideoFromBody(w, r)
	if !ok {
		return
	}

	if err := h.ctx.PipelineService.RefreshAvatarURLs(r.Context(), video.ID); err != nil {
		WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "刷新地址失败: " + err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, types.SuccessResponse{Message: "地址已刷新"})
}

// GetVideo 获取视频详情
func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	video, ok := h.ownedVideoFromQuery(w, r)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, videoResponse(video))
}

// ListVideos 获取用户视频列表
func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, types.ErrorResponse{Error: "用户未认证"})
		return
	}

	page := 1
	pageSize := 10

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && ps > 0 && ps <= 100 {
		pageSize = ps
	}

	videos, total, err := h.ctx.PipelineService.GetUserVideos(r.Context(), userID, page, pageSize)
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "获取视频列表失败: " + err.Error()})
		return
	}

	var videoResponses []types.VideoResponse
	for i := range videos {
		videoResponses = append(videoResponses, videoResponse(&videos[i]))
	}

	WriteJSON(w, http.StatusOK, types.VideoListResponse{
		Videos:   videoResponses,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetContent 获取视频的脚本和文案
func (h *VideoHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	video, ok := h.ownedVideoFromQuery(w, r)
	if !ok {
		return
	}

	content, err := h.ctx.PipelineService.GetContent(r.Context(), video.ID)
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "获取文案失败: " + err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, types.ContentResponse{
		VideoID: video.ID,
		Script:  content.Script,
		ShortCopy: types.Copy{
			Platform: content.ShortCopyPlatform,
			Content:  content.ShortCopyContent,
		},
		LongCopy: types.Copy{
			Platform: content.LongCopyPlatform,
			Content:  content.LongCopyContent,
		},
	})
}

// DeleteVideo 删除视频
func (h *VideoHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	video, ok := h.ownedVideoFromQuery(w, r)
	if !ok {
		return
	}

	if err := h.ctx.PipelineService.DeleteVideo(r.Context(), video.ID); err != nil {
		WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "删除视频失败: " + err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, types.SuccessResponse{
		Message: "删除成功",
	})
}

// GetQueueStatus 查看对账队列状态
func (h *VideoHandler) GetQueueStatus(w http.ResponseWriter, r *http.Request) {
	count, jobs, err := h.ctx.ReconcileService.GetQueueStatus(r.Context())
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "查询队列状态失败: " + err.Error()})
		return
	}

	WriteJSON(w, http.StatusOK, types.QueueStatusResponse{
		Pending: count,
		Jobs:    jobs,
	})
}

// ownedVideoFromBody 从请求体取video_id并校验归属
func (h *VideoHandler) ownedVideoFromBody(w http.ResponseWriter, r *http.Request) (*model.Video, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, types.ErrorResponse{Error: "用户未认证"})
		return nil, false
	}

	var req types.VideoIDRequest
	if err := ParseJSON(r, &req); err != nil || req.VideoID == 0 {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "视频ID不能为空"})
		return nil, false
	}

	return h.loadOwnedVideo(w, r, userID, req.VideoID)
}

// ownedVideoFromQuery 从查询参数取id并校验归属
func (h *VideoHandler) ownedVideoFromQuery(w http.ResponseWriter, r *http.Request) (*model.Video, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, types.ErrorResponse{Error: "用户未认证"})
		return nil, false
	}

	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "视频ID不能为空"})
		return nil, false
	}

	videoID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "无效的视频ID"})
		return nil, false
	}

	return h.loadOwnedVideo(w, r, userID, uint(videoID))
}

func (h *VideoHandler) loadOwnedVideo(w http.ResponseWriter, r *http.Request, userID, videoID uint) (*model.Video, bool) {
	video, err := h.ctx.PipelineService.GetVideoByID(r.Context(), videoID)
	if err != nil {
		WriteJSON(w, http.StatusNotFound, types.ErrorResponse{Error: "视频不存在"})
		return nil, false
	}

	if video.UserID != userID {
		WriteJSON(w, http.StatusForbidden, types.ErrorResponse{Error: "无权访问此视频"})
		return nil, false
	}

	return video, true
}

func videoResponse(video *model.Video) types.VideoResponse {
	return types.VideoResponse{
		ID:                 video.ID,
		Title:              video.Title,
		Topic:              video.Topic,
		Duration:           video.Duration,
		Status:             video.Status.String(),
		AvatarStatus:       video.AvatarStatus,
		AvatarVideoURL:     video.AvatarVideoURL,
		AvatarThumbnailURL: video.AvatarThumbnailURL,
		CompositeStatus:    video.CompositeStatus,
		VideoURL:           video.VideoURL,
		ErrorMsg:           video.ErrorMsg,
		CreatedAt:          video.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:          video.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
