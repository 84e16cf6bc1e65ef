package bitable

import "context"

// FieldType 目标列类型
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldURL    FieldType = "url"
	FieldNumber FieldType = "number"
)

// Field 列句柄
type Field struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Segment 富文本或URL单元格中的一段
type Segment struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
	Link string `json:"link,omitempty"`
}

// Store 外部记录存储的边界。单元格取值是弱类型的：
// 字符串、富文本段数组、URL段数组都可能出现，由上层归一。
type Store interface {
	// ListRecords 枚举视图内可见记录，视图为空时返回空切片不报错
	ListRecords(ctx context.Context, tableID, viewID string) ([]string, error)
	// ListAllRecords 整表枚举，视图枚举为空时的兜底
	ListAllRecords(ctx context.Context, tableID string) ([]string, error)
	ListFields(ctx context.Context, tableID string) ([]Field, error)
	CreateField(ctx context.Context, tableID, name string, ft FieldType) (Field, error)
	GetCellValue(ctx context.Context, tableID string, field Field, recordID string) (interface{}, error)
	SetCellValue(ctx context.Context, tableID string, field Field, recordID string, value interface{}) error
	// GetCellString 存储侧的字符串化兜底，解析不了的单元格走这里
	GetCellString(ctx context.Context, tableID string, field Field, recordID string) (string, error)
}

// IsEmptyCell 判断单元格当前值是否为空（nil、空串、空数组），
// 非覆盖模式只往空单元格写
func IsEmptyCell(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []interface{}:
		return len(val) == 0
	case []Segment:
		return len(val) == 0
	}
	return false
}
