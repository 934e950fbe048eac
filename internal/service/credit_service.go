package service

import (
	"context"
	"errors"
	"log"
	"time"

	"reelforge-backend/internal/config"
	"reelforge-backend/internal/model"

	"gorm.io/gorm"
)

type CreditService struct {
	db  *gorm.DB
	cfg config.CreditConfig
}

func NewCreditService(db *gorm.DB, cfg config.CreditConfig) *CreditService {
	return &CreditService{db: db, cfg: cfg}
}

// ApplyPaymentEvent 处理支付确认事件，按套餐加分。事件ID已记录过则直接返回，
// 保证重复投递不重复加分
func (s *CreditService) ApplyPaymentEvent(ctx context.Context, eventID string, userID uint, plan string) error {
	// 为数据库操作创建带超时的上下文（30秒超时）
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var existing model.CreditEvent
	err := s.db.WithContext(timeoutCtx).Where("event_id = ?", eventID).First(&existing).Error
	if err == nil {
		log.Printf("支付事件 %s 已处理过，跳过", eventID)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	amount := s.cfg.PlanCredits[plan]

	return s.db.WithContext(timeoutCtx).Transaction(func(tx *gorm.DB) error {
		event := &model.CreditEvent{
			EventID: eventID,
			UserID:  userID,
			Plan:    plan,
			Amount:  amount,
		}
		if err := tx.Create(event).Error; err != nil {
			return err
		}

		return tx.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits + ?", amount),
			"plan_tier":  plan,
			"updated_at": time.Now(),
		}).Error
	})
}

// Downgrade 降级或取消套餐，只重置套餐等级，已发放的积分不回收
func (s *CreditService) Downgrade(ctx context.Context, userID uint) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.db.WithContext(timeoutCtx).Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"plan_tier":  model.PlanTierFree,
		"updated_at": time.Now(),
	}).Error
}

// Balance 查询用户积分余额
func (s *CreditService) Balance(ctx context.Context, userID uint) (int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var user model.User
	if err := s.db.WithContext(timeoutCtx).First(&user, userID).Error; err != nil {
		return 0, err
	}
	return user.Credits, nil
}

// Spend 原子扣减积分，余额不足时一分不扣
func (s *CreditService) Spend(ctx context.Context, userID uint, amount int) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result := s.db.WithContext(timeoutCtx).Model(&model.User{}).
		Where("id = ? AND credits >= ?", userID, amount).
		Update("credits", gorm.Expr("credits - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

// Refund 返还积分，用于扣分后发起阶段失败的场景
func (s *CreditService) Refund(ctx context.Context, userID uint, amount int) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.db.WithContext(timeoutCtx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("credits", gorm.Expr("credits + ?", amount)).Error
}

// RenderCost 发起一次数字人渲染消耗的积分
func (s *CreditService) RenderCost() int {
	if s.cfg.RenderCost > 0 {
		return s.cfg.RenderCost
	}
	return 1
}
