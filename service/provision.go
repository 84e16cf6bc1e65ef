package service

import (
	"context"

	"dymeta/bitable"
	"dymeta/log"
)

// ColumnSpec 逻辑字段到目标列的静态映射
type ColumnSpec struct {
	Key  string
	Name string
	Type bitable.FieldType
}

// StatusColumn 处理状态列，每条记录的进度和失败原因写在这里
var StatusColumn = ColumnSpec{Key: "status", Name: "处理状态", Type: bitable.FieldText}

// FieldMapping 17个元数据列，顺序固定保证建列顺序稳定
var FieldMapping = []ColumnSpec{
	{Key: "author", Name: "作者", Type: bitable.FieldText},
	{Key: "sec_uid", Name: "作者sec_uid", Type: bitable.FieldText},
	{Key: "time", Name: "发布时间", Type: bitable.FieldText},
	{Key: "caption", Name: "视频标题", Type: bitable.FieldText},
	{Key: "desc", Name: "视频描述", Type: bitable.FieldText},
	{Key: "duration", Name: "视频时长", Type: bitable.FieldText},
	{Key: "hashtags", Name: "话题标签", Type: bitable.FieldText},
	{Key: "tags", Name: "视频标签", Type: bitable.FieldText},
	{Key: "vediourl", Name: "视频链接", Type: bitable.FieldURL},
	{Key: "cover", Name: "封面图片", Type: bitable.FieldURL},
	{Key: "ocr", Name: "OCR内容", Type: bitable.FieldText},
	{Key: "share", Name: "分享描述", Type: bitable.FieldText},
	{Key: "music", Name: "音乐链接", Type: bitable.FieldURL},
	{Key: "collect_count", Name: "收藏数", Type: bitable.FieldNumber},
	{Key: "comment_count", Name: "评论数", Type: bitable.FieldNumber},
	{Key: "digg_count", Name: "点赞数", Type: bitable.FieldNumber},
	{Key: "share_count", Name: "分享数", Type: bitable.FieldNumber},
}

// ensureFields 保证状态列和全部元数据列存在，按列名精确匹配，
// 缺失才创建。每次批量任务只执行一次，句柄缓存整个运行周期。
// 单列创建失败只记日志，该列在本轮被跳过。
func ensureFields(ctx context.Context, store bitable.Store, tableID string) (*bitable.Field, map[string]bitable.Field) {
	existing := make(map[string]bitable.Field)
	if fields, err := store.ListFields(ctx, tableID); err != nil {
		log.Error("获取字段列表失败: %v", err)
	} else {
		for _, f := range fields {
			existing[f.Name] = f
		}
	}

	ensure := func(spec ColumnSpec) (bitable.Field, bool) {
		if f, ok := existing[spec.Name]; ok {
			return f, true
		}
		f, err := store.CreateField(ctx, tableID, spec.Name, spec.Type)
		if err != nil {
			log.Error("创建字段 %s 失败: %v", spec.Name, err)
			return bitable.Field{}, false
		}
		existing[spec.Name] = f
		return f, true
	}

	var statusField *bitable.Field
	if f, ok := ensure(StatusColumn); ok {
		statusField = &f
	}

	fieldMap := make(map[string]bitable.Field, len(FieldMapping))
	for _, spec := range FieldMapping {
		if f, ok := ensure(spec); ok {
			fieldMap[spec.Key] = f
		}
	}
	return statusField, fieldMap
}
