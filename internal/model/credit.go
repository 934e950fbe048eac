package model

import "time"

// CreditEvent 支付事件流水，外部事件ID唯一，保证重复投递不重复加分
type CreditEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	EventID   string    `gorm:"uniqueIndex;size:100;not null" json:"event_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Plan      string    `gorm:"size:20" json:"plan"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func (CreditEvent) TableName() string {
	return "credit_events"
}
