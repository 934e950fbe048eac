package service

import (
	"context"
	"testing"

	"reelforge-backend/internal/config"
	"reelforge-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newTestCredits(db *gorm.DB) *CreditService {
	return NewCreditService(db, config.CreditConfig{
		RenderCost: 10,
		PlanCredits: map[string]int{
			"free":  0,
			"basic": 100,
			"pro":   500,
		},
	})
}

func TestCreditService_ApplyPaymentEvent_Idempotent(t *testing.T) {
	db := setupPipelineTestDB()
	service := newTestCredits(db)
	ctx := context.Background()
	user := createTestUser(db, 0, model.PlanTierFree)

	// 同一事件投递两次，只加一次分
	assert.NoError(t, service.ApplyPaymentEvent(ctx, "evt-1", user.ID, model.PlanTierBasic))
	assert.NoError(t, service.ApplyPaymentEvent(ctx, "evt-1", user.ID, model.PlanTierBasic))

	balance, err := service.Balance(ctx, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 100, balance)

	var u model.User
	db.First(&u, user.ID)
	assert.Equal(t, model.PlanTierBasic, u.PlanTier)

	var count int64
	db.Model(&model.CreditEvent{}).Where("event_id = ?", "evt-1").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreditService_ApplyPaymentEvent_Accumulates(t *testing.T) {
	db := setupPipelineTestDB()
	service := newTestCredits(db)
	ctx := context.Background()
	user := createTestUser(db, 0, model.PlanTierFree)

	// 不同事件各自生效，积分累加
	assert.NoError(t, service.ApplyPaymentEvent(ctx, "evt-1", user.ID, model.PlanTierBasic))
	assert.NoError(t, service.ApplyPaymentEvent(ctx, "evt-2", user.ID, model.PlanTierPro))

	balance, _ := service.Balance(ctx, user.ID)
	assert.Equal(t, 600, balance)

	var u model.User
	db.First(&u, user.ID)
	assert.Equal(t, model.PlanTierPro, u.PlanTier)
}

func TestCreditService_Spend(t *testing.T) {
	ctx := context.Background()

	t.Run("余额充足正常扣减", func(t *testing.T) {
		db := setupPipelineTestDB()
		service := newTestCredits(db)
		user := createTestUser(db, 30, model.PlanTierBasic)

		assert.NoError(t, service.Spend(ctx, user.ID, 10))

		balance, _ := service.Balance(ctx, user.ID)
		assert.Equal(t, 20, balance)
	})

	t.Run("余额不足一分不扣", func(t *testing.T) {
		db := setupPipelineTestDB()
		service := newTestCredits(db)
		user := createTestUser(db, 5, model.PlanTierFree)

		err := service.Spend(ctx, user.ID, 10)
		assert.ErrorIs(t, err, ErrInsufficientCredits)

		balance, _ := service.Balance(ctx, user.ID)
		assert.Equal(t, 5, balance)
	})

	t.Run("刚好扣完", func(t *testing.T) {
		db := setupPipelineTestDB()
		service := newTestCredits(db)
		user := createTestUser(db, 10, model.PlanTierFree)

		assert.NoError(t, service.Spend(ctx, user.ID, 10))

		balance, _ := service.Balance(ctx, user.ID)
		assert.Equal(t, 0, balance)
	})
}

func TestCreditService_Refund(t *testing.T) {
	db := setupPipelineTestDB()
	service := newTestCredits(db)
	ctx := context.Background()
	user := createTestUser(db, 20, model.PlanTierBasic)

	assert.NoError(t, service.Spend(ctx, user.ID, 10))
	assert.NoError(t, service.Refund(ctx, user.ID, 10))

	balance, _ := service.Balance(ctx, user.ID)
	assert.Equal(t, 20, balance)
}

func TestCreditService_Downgrade(t *testing.T) {
	db := setupPipelineTestDB()
	service := newTestCredits(db)
	ctx := context.Background()
	user := createTestUser(db, 0, model.PlanTierFree)

	assert.NoError(t, service.ApplyPaymentEvent(ctx, "evt-1", user.ID, model.PlanTierPro))
	assert.NoError(t, service.Downgrade(ctx, user.ID))

	// 降级只重置套餐，已发放积分不回收
	var u model.User
	db.First(&u, user.ID)
	assert.Equal(t, model.PlanTierFree, u.PlanTier)
	assert.Equal(t, 500, u.Credits)
}

func TestCreditService_RenderCost(t *testing.T) {
	db := setupPipelineTestDB()

	assert.Equal(t, 10, newTestCredits(db).RenderCost())
	// 未配置时回落到1
	assert.Equal(t, 1, NewCreditService(db, config.CreditConfig{}).RenderCost())
}
