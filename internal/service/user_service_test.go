package service

import (
	"context"
	"testing"

	"reelforge-backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestUserService_Register(t *testing.T) {
	db := setupPipelineTestDB()
	service := NewUserService(db)
	ctx := context.Background()

	t.Run("注册成功", func(t *testing.T) {
		user, err := service.Register(ctx, "alice", "alice@example.com", "password123")

		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "alice@example.com", user.Email)
		// 新用户默认免费套餐，无积分
		assert.Equal(t, model.PlanTierFree, user.PlanTier)
		assert.Equal(t, 0, user.Credits)
		// 密码不能明文存储
		assert.NotEqual(t, "password123", user.Password)
	})

	t.Run("用户名重复", func(t *testing.T) {
		_, err := service.Register(ctx, "alice", "alice2@example.com", "password123")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "用户名已存在")
	})

	t.Run("邮箱重复", func(t *testing.T) {
		_, err := service.Register(ctx, "bob", "alice@example.com", "password123")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "邮箱已存在")
	})
}

func TestUserService_Login(t *testing.T) {
	db := setupPipelineTestDB()
	service := NewUserService(db)
	ctx := context.Background()

	_, err := service.Register(ctx, "alice", "alice@example.com", "password123")
	assert.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{name: "登录成功", username: "alice", password: "password123", wantErr: false},
		{name: "密码错误", username: "alice", password: "wrong", wantErr: true},
		{name: "用户不存在", username: "nobody", password: "password123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := service.Login(ctx, tt.username, tt.password)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.username, user.Username)
			}
		})
	}
}

func TestUserService_GetUserByID(t *testing.T) {
	db := setupPipelineTestDB()
	service := NewUserService(db)
	ctx := context.Background()

	user, _ := service.Register(ctx, "alice", "alice@example.com", "password123")

	found, err := service.GetUserByID(ctx, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, user.Username, found.Username)

	_, err = service.GetUserByID(ctx, 99999)
	assert.Error(t, err)
}

func TestNotifyService_Dedup(t *testing.T) {
	db := setupPipelineTestDB()
	service := NewNotifyService(db)
	ctx := context.Background()

	created, err := service.Notify(ctx, 1, 2, NotifyTypeVideoReady, "你的视频已生成完成", "https://cdn.example.com/f.mp4")
	assert.NoError(t, err)
	assert.True(t, created)

	// 同一(用户,视频,类型)重复通知不再写入
	created, err = service.Notify(ctx, 1, 2, NotifyTypeVideoReady, "重复消息", "")
	assert.NoError(t, err)
	assert.False(t, created)

	// 不同类型是独立的通知
	created, err = service.Notify(ctx, 1, 2, NotifyTypeVideoError, "失败了", "")
	assert.NoError(t, err)
	assert.True(t, created)

	notices, err := service.GetUserNotifications(ctx, 1, 10)
	assert.NoError(t, err)
	assert.Len(t, notices, 2)
}
