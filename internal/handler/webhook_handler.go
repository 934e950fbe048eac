package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"reelforge-backend/internal/service"
	"reelforge-backend/internal/svc"
	"reelforge-backend/internal/types"

	"gorm.io/gorm"
)

type WebhookHandler struct {
	ctx *svc.ServiceContext
}

func NewWebhookHandler(ctx *svc.ServiceContext) *WebhookHandler {
	return &WebhookHandler{ctx: ctx}
}

// CompositorWebhook 合成服务的完成回调。
// 200确认收到，400载荷不合法，404找不到对应视频，500内部错误
func (h *WebhookHandler) CompositorWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "读取请求体失败"})
		return
	}

	event, err := service.ParseCompositorWebhook(body)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.ctx.PipelineService.HandleCompositorEvent(r.Context(), event); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteJSON(w, http.StatusNotFound, types.ErrorResponse{Error: "找不到对应的视频记录"})
			return
		}
		log.Printf("合成事件处理失败，渲染ID %s: %v", event.RenderID, err)
		WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "内部错误"})
		return
	}

	WriteJSON(w, http.StatusOK, types.SuccessResponse{Message: "已接收"})
}

// PaymentWebhook 支付确认回调，按事件ID幂等加分；降级事件只重置套餐
func (h *WebhookHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req types.PaymentWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "请求参数错误"})
		return
	}

	if req.EventID == "" || req.UserID == 0 {
		WriteJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "事件ID和用户ID不能为空"})
		return
	}

	switch req.Status {
	case "cancelled", "downgraded":
		if err := h.ctx.CreditService.Downgrade(r.Context(), req.UserID); err != nil {
			log.Printf("支付事件 %s 降级处理失败: %v", req.EventID, err)
			WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "内部错误"})
			return
		}
	default:
		if err := h.ctx.CreditService.ApplyPaymentEvent(r.Context(), req.EventID, req.UserID, req.Plan); err != nil {
			log.Printf("支付事件 %s 处理失败: %v", req.EventID, err)
			WriteJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "内部错误"})
			return
		}
	}

	WriteJSON(w, http.StatusOK, types.SuccessResponse{Message: "已接收"})
}
