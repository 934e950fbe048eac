package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reelforge-backend/internal/config"
	"reelforge-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestPublish(db *gorm.DB, baseURL string, sleeps *[]time.Duration) *PublishService {
	service := NewPublishService(db, config.PublisherConfig{
		BaseURL:         baseURL,
		Platform:        "instagram",
		MaxAttempts:     3,
		BackoffBaseMs:   1,
		MaxPollChecks:   30,
		MaxPollAgeHours: 24,
	}, nil)
	// 测试里不真正睡眠，只记录退避间隔
	service.sleep = func(d time.Duration) {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
	}
	return service
}

func seedPublishFixtures(db *gorm.DB, accessToken string) (*model.User, *model.Video) {
	user := &model.User{
		Username: "publisher",
		Email:    "publisher@example.com",
		Password: "hashed",
		Credits:  100,
		PlanTier: model.PlanTierBasic,
	}
	db.Create(user)

	video := &model.Video{
		UserID:   user.ID,
		Title:    "成片",
		Status:   model.VideoStatusCompleted,
		VideoURL: "https://cdn.example.com/final.mp4",
	}
	db.Create(video)

	db.Create(&model.SocialToken{
		UserID:       user.ID,
		Platform:     "instagram",
		AccessToken:  accessToken,
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})

	return user, video
}

func TestPublishService_FullLifecycle(t *testing.T) {
	db := setupPipelineTestDB()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/containers":
			json.NewEncoder(w).Encode(map[string]string{"creation_id": "c1"})
		case r.Method == http.MethodGet && r.URL.Path == "/containers/c1/status":
			json.NewEncoder(w).Encode(map[string]string{"status": "FINISHED"})
		case r.Method == http.MethodPost && r.URL.Path == "/containers/c1/publish":
			json.NewEncoder(w).Encode(map[string]string{"media_url": "https://social.example.com/p/1"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	service := newTestPublish(db, ts.URL, nil)
	ctx := context.Background()
	user, video := seedPublishFixtures(db, "good-token")

	task, err := service.CreateContainer(ctx, user.ID, video.ID, "看看这条视频")
	assert.NoError(t, err)
	assert.Equal(t, "c1", task.CreationID)
	assert.Equal(t, model.PublishStatusPending, task.Status)

	err = service.Reconcile(ctx, task.ID)
	assert.NoError(t, err)

	var updated model.PublishTask
	db.Where("id = ?", task.ID).First(&updated)
	assert.Equal(t, model.PublishStatusPublished, updated.Status)
	assert.Equal(t, "https://social.example.com/p/1", updated.MediaURL)
}

func TestPublishService_CreateContainer_Preconditions(t *testing.T) {
	db := setupPipelineTestDB()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"creation_id": "c1"})
	}))
	defer ts.Close()

	service := newTestPublish(db, ts.URL, nil)
	ctx := context.Background()
	user, video := seedPublishFixtures(db, "good-token")

	t.Run("无成片不能发布", func(t *testing.T) {
		noURL := &model.Video{UserID: user.ID, Title: "未完成", Status: model.VideoStatusProcessing}
		db.Create(noURL)

		_, err := service.CreateContainer(ctx, user.ID, noURL.ID, "")
		assert.Error(t, err)
	})

	t.Run("不能发布别人的视频", func(t *testing.T) {
		other := &model.User{Username: "other", Email: "other@example.com", Password: "hashed"}
		db.Create(other)

		_, err := service.CreateContainer(ctx, other.ID, video.ID, "")
		assert.Error(t, err)
	})
}

func TestPublishService_TokenRefreshOn401(t *testing.T) {
	db := setupPipelineTestDB()

	refreshCalls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/refresh" {
			refreshCalls++
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "fresh-token",
				"expires_in":   3600,
			})
			return
		}
		// 旧令牌一律401，刷新后的令牌放行
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"creation_id": "c1"})
	}))
	defer ts.Close()

	service := newTestPublish(db, ts.URL, nil)
	ctx := context.Background()
	user, video := seedPublishFixtures(db, "expired-token")

	task, err := service.CreateContainer(ctx, user.ID, video.ID, "")
	assert.NoError(t, err)
	assert.Equal(t, model.PublishStatusPending, task.Status)

	// 401只触发一次刷新，刷新后重放原请求
	assert.Equal(t, 1, refreshCalls)

	// 新令牌落库
	var token model.SocialToken
	db.Where("user_id = ? AND platform = ?", user.ID, "instagram").First(&token)
	assert.Equal(t, "fresh-token", token.AccessToken)
}

func TestPublishService_SecondUnauthorizedIsTerminal(t *testing.T) {
	db := setupPipelineTestDB()

	refreshCalls := 0
	containerCalls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/refresh" {
			refreshCalls++
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "still-bad",
				"expires_in":   3600,
			})
			return
		}
		// 刷新后依然401，必须立即终止而不是无限刷新
		containerCalls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	service := newTestPublish(db, ts.URL, nil)
	ctx := context.Background()
	user, video := seedPublishFixtures(db, "bad-token")

	_, err := service.CreateContainer(ctx, user.ID, video.ID, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, 2, containerCalls)

	// 任务收敛为FAILED
	var task model.PublishTask
	db.Where("user_id = ?", user.ID).First(&task)
	assert.Equal(t, model.PublishStatusFailed, task.Status)
}

func TestPublishService_RetryBackoff(t *testing.T) {
	db := setupPipelineTestDB()

	containerCalls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		containerCalls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	var sleeps []time.Duration
	service := newTestPublish(db, ts.URL, &sleeps)
	ctx := context.Background()
	user, video := seedPublishFixtures(db, "good-token")

	_, err := service.CreateContainer(ctx, user.ID, video.ID, "")
	assert.Error(t, err)

	// 3次尝试，2次退避，间隔翻倍
	assert.Equal(t, 3, containerCalls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, sleeps)

	var task model.PublishTask
	db.Where("user_id = ?", user.ID).First(&task)
	assert.Equal(t, model.PublishStatusFailed, task.Status)
}

func TestPublishService_Reconcile_InProgress(t *testing.T) {
	db := setupPipelineTestDB()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "IN_PROGRESS"})
	}))
	defer ts.Close()

	service := newTestPublish(db, ts.URL, nil)
	ctx := context.Background()
	user, video := seedPublishFixtures(db, "good-token")

	task := &model.PublishTask{
		ID:         "task-pending",
		UserID:     user.ID,
		VideoID:    video.ID,
		CreationID: "c1",
		Status:     model.PublishStatusPending,
	}
	db.Create(task)

	err := service.Reconcile(ctx, task.ID)
	assert.NoError(t, err)

	// 远端还在处理，任务转入UPLOADING并累计检查次数
	var updated model.PublishTask
	db.Where("id = ?", task.ID).First(&updated)
	assert.Equal(t, model.PublishStatusUploading, updated.Status)
	assert.Equal(t, 1, updated.RetryCount)
	assert.NotNil(t, updated.LastCheckAt)

	// UPLOADING不是终态，下一轮对账继续推进
	assert.NoError(t, service.Reconcile(ctx, task.ID))
	db.Where("id = ?", task.ID).First(&updated)
	assert.Equal(t, 2, updated.RetryCount)
}

func TestPublishService_Reconcile_BoundedPolling(t *testing.T) {
	db := setupPipelineTestDB()

	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]string{"status": "IN_PROGRESS"})
	}))
	defer ts.Close()

	service := newTestPublish(db, ts.URL, nil)
	ctx := context.Background()
	user, video := seedPublishFixtures(db, "good-token")

	task := &model.PublishTask{
		ID:         "task-exhausted",
		UserID:     user.ID,
		VideoID:    video.ID,
		CreationID: "c1",
		Status:     model.PublishStatusPending,
		RetryCount: 30,
	}
	db.Create(task)

	err := service.Reconcile(ctx, task.ID)
	assert.NoError(t, err)

	// 超过轮询上限后不再请求平台，直接收敛为FAILED
	assert.Equal(t, 0, calls)

	var updated model.PublishTask
	db.Where("id = ?", task.ID).First(&updated)
	assert.Equal(t, model.PublishStatusFailed, updated.Status)
	assert.Equal(t, "超过最大轮询次数或时限", updated.ErrorMsg)
}

func TestPublishService_Reconcile_TerminalIsNoop(t *testing.T) {
	db := setupPipelineTestDB()

	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	service := newTestPublish(db, ts.URL, nil)
	ctx := context.Background()
	user, video := seedPublishFixtures(db, "good-token")

	task := &model.PublishTask{
		ID:         "task-done",
		UserID:     user.ID,
		VideoID:    video.ID,
		CreationID: "c1",
		Status:     model.PublishStatusPublished,
		MediaURL:   "https://social.example.com/p/1",
	}
	db.Create(task)

	assert.NoError(t, service.Reconcile(ctx, task.ID))
	assert.Equal(t, 0, calls)

	var updated model.PublishTask
	db.Where("id = ?", task.ID).First(&updated)
	assert.Equal(t, model.PublishStatusPublished, updated.Status)
}

func TestPublishService_ExpireStale(t *testing.T) {
	db := setupPipelineTestDB()
	service := newTestPublish(db, "http://unused.example.com", nil)
	ctx := context.Background()
	user, video := seedPublishFixtures(db, "good-token")

	stale := &model.PublishTask{
		ID:         "task-stale",
		UserID:     user.ID,
		VideoID:    video.ID,
		CreationID: "c1",
		Status:     model.PublishStatusPending,
		CreatedAt:  time.Now().Add(-48 * time.Hour),
	}
	db.Create(stale)

	fresh := &model.PublishTask{
		ID:         "task-fresh",
		UserID:     user.ID,
		VideoID:    video.ID,
		CreationID: "c2",
		Status:     model.PublishStatusPending,
	}
	db.Create(fresh)

	count, err := service.ExpireStale(ctx, 24*time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var updated model.PublishTask
	db.Where("id = ?", stale.ID).First(&updated)
	assert.Equal(t, model.PublishStatusFailed, updated.Status)

	updated = model.PublishTask{}
	db.Where("id = ?", fresh.ID).First(&updated)
	assert.Equal(t, model.PublishStatusPending, updated.Status)
}

func TestPublishService_UpsertToken(t *testing.T) {
	db := setupPipelineTestDB()
	service := newTestPublish(db, "http://unused.example.com", nil)
	ctx := context.Background()
	user, _ := seedPublishFixtures(db, "good-token")

	expiresAt := time.Now().Add(2 * time.Hour)
	err := service.UpsertToken(ctx, user.ID, "new-token", "new-refresh", expiresAt, "page-1")
	assert.NoError(t, err)

	// 同一用户同一平台只有一行，重复保存是覆盖
	var count int64
	db.Model(&model.SocialToken{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	var token model.SocialToken
	db.Where("user_id = ? AND platform = ?", user.ID, "instagram").First(&token)
	assert.Equal(t, "new-token", token.AccessToken)
	assert.Equal(t, "new-refresh", token.RefreshToken)
	assert.Equal(t, "page-1", token.PageID)
}
