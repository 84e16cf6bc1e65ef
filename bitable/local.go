package bitable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 本地网格存储：列和单元格拆成两张表，列可以在运行期创建，
// 和多维表格一样按列名寻址。不接飞书的部署用它落数据。

type GridColumn struct {
	ID      uint   `gorm:"primaryKey"`
	TableID string `gorm:"size:128;uniqueIndex:idx_table_col,priority:1"`
	Name    string `gorm:"size:255;uniqueIndex:idx_table_col,priority:2"`
	Type    string `gorm:"size:32"`
}

type GridRecord struct {
	ID       uint   `gorm:"primaryKey"`
	TableID  string `gorm:"size:128;uniqueIndex:idx_table_rec,priority:1"`
	RecordID string `gorm:"size:128;uniqueIndex:idx_table_rec,priority:2"`
}

type GridCell struct {
	ID       uint   `gorm:"primaryKey"`
	TableID  string `gorm:"size:128;uniqueIndex:idx_cell,priority:1"`
	RecordID string `gorm:"size:128;uniqueIndex:idx_cell,priority:2"`
	ColumnID uint   `gorm:"uniqueIndex:idx_cell,priority:3"`
	Value    string `gorm:"type:text"` // JSON编码，保留弱类型取值
}

type LocalStore struct {
	db *gorm.DB
}

func NewLocalStore(db *gorm.DB) *LocalStore {
	return &LocalStore{db: db}
}

func AutoMigrateGrid(db *gorm.DB) error {
	return db.AutoMigrate(&GridColumn{}, &GridRecord{}, &GridCell{})
}

func (s *LocalStore) ListRecords(ctx context.Context, tableID, viewID string) ([]string, error) {
	// 本地存储没有视图概念，视图枚举等同整表
	return s.ListAllRecords(ctx, tableID)
}

func (s *LocalStore) ListAllRecords(ctx context.Context, tableID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&GridRecord{}).
		Where("table_id = ?", tableID).Order("id").
		Pluck("record_id", &ids).Error
	return ids, err
}

func (s *LocalStore) ListFields(ctx context.Context, tableID string) ([]Field, error) {
	var cols []GridColumn
	if err := s.db.WithContext(ctx).Where("table_id = ?", tableID).Order("id").Find(&cols).Error; err != nil {
		return nil, err
	}
	fields := make([]Field, 0, len(cols))
	for _, col := range cols {
		fields = append(fields, Field{ID: fmt.Sprint(col.ID), Name: col.Name, Type: FieldType(col.Type)})
	}
	return fields, nil
}

func (s *LocalStore) CreateField(ctx context.Context, tableID, name string, ft FieldType) (Field, error) {
	col := GridColumn{TableID: tableID, Name: name, Type: string(ft)}
	if err := s.db.WithContext(ctx).Create(&col).Error; err != nil {
		return Field{}, err
	}
	return Field{ID: fmt.Sprint(col.ID), Name: col.Name, Type: ft}, nil
}

// AddRecord 建行，批量导入和测试数据用
func (s *LocalStore) AddRecord(ctx context.Context, tableID, recordID string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&GridRecord{TableID: tableID, RecordID: recordID}).Error
}

func (s *LocalStore) columnID(field Field) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(field.ID, &id); err != nil {
		return 0, fmt.Errorf("无效的列句柄: %s", field.ID)
	}
	return id, nil
}

func (s *LocalStore) GetCellValue(ctx context.Context, tableID string, field Field, recordID string) (interface{}, error) {
	colID, err := s.columnID(field)
	if err != nil {
		return nil, err
	}
	var cell GridCell
	err = s.db.WithContext(ctx).
		Where("table_id = ? AND record_id = ? AND column_id = ?", tableID, recordID, colID).
		First(&cell).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal([]byte(cell.Value), &v); err != nil {
		return cell.Value, nil
	}
	return v, nil
}

func (s *LocalStore) SetCellValue(ctx context.Context, tableID string, field Field, recordID string, value interface{}) error {
	colID, err := s.columnID(field)
	if err != nil {
		return err
	}
	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}
	cell := GridCell{TableID: tableID, RecordID: recordID, ColumnID: colID, Value: string(buf)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "table_id"}, {Name: "record_id"}, {Name: "column_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&cell).Error
}

func (s *LocalStore) GetCellString(ctx context.Context, tableID string, field Field, recordID string) (string, error) {
	v, err := s.GetCellValue(ctx, tableID, field, recordID)
	if err != nil {
		return "", err
	}
	return StringifyCell(v), nil
}
