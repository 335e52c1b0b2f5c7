package domain

import "time"

// ChatMessage belongs to exactly one work order and is never edited.
type ChatMessage struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	OrderID   int64     `json:"order_id" gorm:"not null;index:idx_chat_order_created,priority:1"`
	SenderID  int64     `json:"sender_id" gorm:"not null"`
	IsOwner   bool      `json:"is_owner"`
	Text      string    `json:"message" gorm:"column:text;type:text;not null"`
	CreatedAt time.Time `json:"timestamp" gorm:"index:idx_chat_order_created,priority:2"`

	SenderName string `json:"sender_name,omitempty" gorm:"-"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
