package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelforge-backend/internal/config"
	"reelforge-backend/internal/model"
	"reelforge-backend/internal/service"
	"reelforge-backend/internal/svc"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupWebhookTest() (*gorm.DB, *WebhookHandler) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect to test database")
	}

	db.AutoMigrate(
		&model.User{},
		&model.Video{},
		&model.VideoContent{},
		&model.CreditEvent{},
		&model.Notification{},
	)

	creditService := service.NewCreditService(db, config.CreditConfig{
		RenderCost:  10,
		PlanCredits: map[string]int{"basic": 100, "pro": 500},
	})
	pipelineService := service.NewPipelineService(
		db, nil, nil, nil,
		creditService,
		service.NewNotifyService(db),
		nil,
		config.CompositorConfig{DefaultTemplate: "tmpl_default"},
	)

	ctx := &svc.ServiceContext{
		CreditService:   creditService,
		PipelineService: pipelineService,
	}
	return db, NewWebhookHandler(ctx)
}

func postWebhook(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestCompositorWebhook(t *testing.T) {
	db, handler := setupWebhookTest()

	user := &model.User{Username: "alice", Email: "alice@example.com", Password: "hashed"}
	db.Create(user)

	video := &model.Video{
		UserID:          user.ID,
		Title:           "开场",
		Status:          model.VideoStatusProcessing,
		RenderID:        "r1",
		CompositeStatus: model.CompositeStatusRendering,
	}
	db.Create(video)

	t.Run("载荷不合法返回400", func(t *testing.T) {
		w := postWebhook(handler.CompositorWebhook, "/api/webhooks/compositor", `{"status":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("找不到视频返回404", func(t *testing.T) {
		w := postWebhook(handler.CompositorWebhook, "/api/webhooks/compositor",
			`{"render_id":"unknown","status":"completed","url":"https://x/f.mp4"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("完成事件写入终态", func(t *testing.T) {
		body := fmt.Sprintf(`{"render_id":"r1","status":"completed","url":"https://cdn.example.com/final.mp4","metadata":"%d"}`, video.ID)
		w := postWebhook(handler.CompositorWebhook, "/api/webhooks/compositor", body)
		assert.Equal(t, http.StatusOK, w.Code)

		var updated model.Video
		db.First(&updated, video.ID)
		assert.Equal(t, model.VideoStatusCompleted, updated.Status)
		assert.Equal(t, "https://cdn.example.com/final.mp4", updated.VideoURL)
	})

	t.Run("重复投递仍返回200且状态不变", func(t *testing.T) {
		body := fmt.Sprintf(`{"render_id":"r1","status":"completed","url":"https://cdn.example.com/final.mp4","metadata":"%d"}`, video.ID)
		w := postWebhook(handler.CompositorWebhook, "/api/webhooks/compositor", body)
		assert.Equal(t, http.StatusOK, w.Code)

		var count int64
		db.Model(&model.Notification{}).Where("video_id = ?", video.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})
}

func TestPaymentWebhook(t *testing.T) {
	db, handler := setupWebhookTest()

	user := &model.User{Username: "bob", Email: "bob@example.com", Password: "hashed", PlanTier: model.PlanTierFree}
	db.Create(user)

	t.Run("缺少事件ID返回400", func(t *testing.T) {
		w := postWebhook(handler.PaymentWebhook, "/api/webhooks/payment",
			fmt.Sprintf(`{"user_id":%d,"plan":"basic","status":"paid"}`, user.ID))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("支付确认加分", func(t *testing.T) {
		body := fmt.Sprintf(`{"event_id":"evt-1","user_id":%d,"plan":"basic","status":"paid"}`, user.ID)
		w := postWebhook(handler.PaymentWebhook, "/api/webhooks/payment", body)
		assert.Equal(t, http.StatusOK, w.Code)

		// 重复投递不重复加分
		w = postWebhook(handler.PaymentWebhook, "/api/webhooks/payment", body)
		assert.Equal(t, http.StatusOK, w.Code)

		var u model.User
		db.First(&u, user.ID)
		assert.Equal(t, 100, u.Credits)
		assert.Equal(t, model.PlanTierBasic, u.PlanTier)
	})

	t.Run("降级事件重置套餐保留积分", func(t *testing.T) {
		body := fmt.Sprintf(`{"event_id":"evt-2","user_id":%d,"status":"cancelled"}`, user.ID)
		w := postWebhook(handler.PaymentWebhook, "/api/webhooks/payment", body)
		assert.Equal(t, http.StatusOK, w.Code)

		var u model.User
		db.First(&u, user.ID)
		assert.Equal(t, model.PlanTierFree, u.PlanTier)
		assert.Equal(t, 100, u.Credits)
	})
}
