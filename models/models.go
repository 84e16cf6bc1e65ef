package models

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;size:255;not null"`
	Password  string `gorm:"size:255;not null"` // note: store bcrypt hash
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run 一次批量补全任务，落库留痕，报表在内存中增量更新
type Run struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RunID     string         `gorm:"uniqueIndex;size:64" json:"run_id"`
	UserID    uint           `gorm:"index" json:"user_id"`
	TableID   string         `gorm:"size:128" json:"table_id"`
	ViewID    string         `gorm:"size:128" json:"view_id"`
	FieldID   string         `gorm:"size:128" json:"field_id"` // 视频ID所在列
	Overwrite bool           `json:"overwrite"`
	Status    RunStatus      `gorm:"size:32;index" json:"status"`
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	ErrorsRaw string         `gorm:"type:text" json:"-"` // recordId -> message, JSON
	ErrorMsg  string         `gorm:"size:1024" json:"error_msg"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Run) SetErrors(errs map[string]string) {
	if len(errs) == 0 {
		r.ErrorsRaw = ""
		return
	}
	buf, err := json.Marshal(errs)
	if err != nil {
		return
	}
	r.ErrorsRaw = string(buf)
}

func (r *Run) Errors() map[string]string {
	out := make(map[string]string)
	if r.ErrorsRaw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(r.ErrorsRaw), &out)
	return out
}

type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// BatchReport 批量任务的增量进度报表
type BatchReport struct {
	RunID          string            `json:"run_id"`
	Total          int               `json:"total"`
	Current        int               `json:"current"`
	Succeeded      int               `json:"succeeded"`
	Failed         int               `json:"failed"`
	Done           bool              `json:"done"`
	ErrorsByRecord map[string]string `json:"errors_by_record"`
}

// Clone 深拷贝，供报表快照对外发布
func (b BatchReport) Clone() BatchReport {
	out := b
	out.ErrorsByRecord = make(map[string]string, len(b.ErrorsByRecord))
	for k, v := range b.ErrorsByRecord {
		out.ErrorsByRecord[k] = v
	}
	return out
}
