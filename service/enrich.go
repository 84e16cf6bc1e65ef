package service

import (
	"context"
	"fmt"
	"sync"

	"dymeta/bitable"
	"dymeta/douyin"
	"dymeta/log"
	"dymeta/models"
)

// Fetcher 上游元数据获取，失败以FetchOutcome表达，不抛错
type Fetcher interface {
	Fetch(ctx context.Context, videoID string) models.FetchOutcome
}

// MetadataCache 可选的元数据缓存
type MetadataCache interface {
	Get(ctx context.Context, videoID string) (models.VideoInfo, bool)
	Set(ctx context.Context, videoID string, info models.VideoInfo)
}

// BatchOptions 一次批量任务的目标
type BatchOptions struct {
	RunID     string
	TableID   string
	ViewID    string
	FieldID   string // 视频ID所在列，列ID或列名均可
	Overwrite bool
}

// Enricher 批量补全的编排器。记录严格串行处理，单条失败不影响
// 整批推进；报表加锁保护，运行中可被状态接口和ws读取。
type Enricher struct {
	store   bitable.Store
	fetcher Fetcher
	cache   MetadataCache             // 可为nil
	publish func(models.BatchReport)  // 进度回调，可为nil

	mu     sync.Mutex
	report models.BatchReport
}

func NewEnricher(store bitable.Store, fetcher Fetcher) *Enricher {
	return &Enricher{store: store, fetcher: fetcher}
}

func (e *Enricher) WithCache(cache MetadataCache) *Enricher {
	e.cache = cache
	return e
}

func (e *Enricher) WithPublisher(publish func(models.BatchReport)) *Enricher {
	e.publish = publish
	return e
}

// Snapshot 当前报表快照
func (e *Enricher) Snapshot() models.BatchReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report.Clone()
}

func (e *Enricher) update(mutate func(r *models.BatchReport)) {
	e.mu.Lock()
	mutate(&e.report)
	snapshot := e.report.Clone()
	e.mu.Unlock()
	if e.publish != nil {
		e.publish(snapshot)
	}
}

// listTargetRecords 视图枚举，为空或出错时兜底走整表枚举
func (e *Enricher) listTargetRecords(ctx context.Context, opts BatchOptions) ([]string, error) {
	recordIDs, err := e.store.ListRecords(ctx, opts.TableID, opts.ViewID)
	if err != nil || len(recordIDs) == 0 {
		if err != nil {
			log.Warn("获取记录ID列表失败，尝试整表枚举: %v", err)
		}
		recordIDs, err = e.store.ListAllRecords(ctx, opts.TableID)
		if err != nil {
			return nil, fmt.Errorf("无法获取记录: %w", err)
		}
	}
	return recordIDs, nil
}

func (e *Enricher) findSourceField(ctx context.Context, opts BatchOptions) (bitable.Field, error) {
	fields, err := e.store.ListFields(ctx, opts.TableID)
	if err != nil {
		return bitable.Field{}, fmt.Errorf("获取字段列表失败: %w", err)
	}
	for _, f := range fields {
		if f.ID == opts.FieldID || f.Name == opts.FieldID {
			return f, nil
		}
	}
	return bitable.Field{}, fmt.Errorf("找不到视频ID字段: %s", opts.FieldID)
}

// RunBatch 执行一次批量补全。错误返回值只反映任务级失败
// （无法枚举记录、找不到源列、中途取消），单条记录的失败都
// 收敛在报表里。取消只在记录边界生效，已写入的结果不回滚。
func (e *Enricher) RunBatch(ctx context.Context, opts BatchOptions) (models.BatchReport, error) {
	recordIDs, err := e.listTargetRecords(ctx, opts)
	if err != nil {
		return e.Snapshot(), err
	}
	if len(recordIDs) == 0 {
		return e.Snapshot(), fmt.Errorf("未找到任何记录，请确认表格中有数据")
	}

	sourceField, err := e.findSourceField(ctx, opts)
	if err != nil {
		return e.Snapshot(), err
	}

	statusField, fieldMap := ensureFields(ctx, e.store, opts.TableID)

	e.update(func(r *models.BatchReport) {
		*r = models.BatchReport{
			RunID:          opts.RunID,
			Total:          len(recordIDs),
			ErrorsByRecord: make(map[string]string),
		}
	})
	log.Info("准备处理 %d 条记录", len(recordIDs))

	setStatus := func(recordID, marker string) {
		if statusField == nil {
			return
		}
		if err := e.store.SetCellValue(ctx, opts.TableID, *statusField, recordID, marker); err != nil {
			log.Error("更新记录 %s 状态失败: %v", recordID, err)
		}
	}

	for i, recordID := range recordIDs {
		if ctx.Err() != nil {
			return e.Snapshot(), ctx.Err()
		}

		reason := e.processRecord(ctx, opts, sourceField, fieldMap, recordID, setStatus)
		e.update(func(r *models.BatchReport) {
			r.Current = i + 1
			if reason == "" {
				r.Succeeded++
			} else {
				r.Failed++
				r.ErrorsByRecord[recordID] = reason
			}
		})
	}

	e.update(func(r *models.BatchReport) { r.Done = true })
	final := e.Snapshot()
	log.Info("处理完成！成功: %d, 失败: %d", final.Succeeded, final.Failed)
	return final, nil
}

// processRecord 单条记录的七步流程，返回空串表示成功，
// 否则返回失败原因
func (e *Enricher) processRecord(ctx context.Context, opts BatchOptions, sourceField bitable.Field,
	fieldMap map[string]bitable.Field, recordID string, setStatus func(recordID, marker string)) string {

	setStatus(recordID, "处理中...")

	raw, err := e.store.GetCellValue(ctx, opts.TableID, sourceField, recordID)
	if err != nil {
		reason := fmt.Sprintf("读取单元格失败: %v", err)
		setStatus(recordID, "失败: "+reason)
		return reason
	}

	videoID, err := ResolveVideoID(raw, func() (string, error) {
		return e.store.GetCellString(ctx, opts.TableID, sourceField, recordID)
	})
	if err != nil {
		setStatus(recordID, "失败: "+err.Error())
		return err.Error()
	}
	log.Debug("记录 %s 解析到视频ID: %s", recordID, videoID)

	outcome := e.fetchWithCache(ctx, videoID)
	if !outcome.OK() {
		reason := "获取视频信息失败: " + outcome.Reason
		setStatus(recordID, "失败: "+reason)
		return reason
	}
	info := *outcome.Info

	// 启发式：视频链接和作者同时缺失视为上游结构漂移产出的无效数据。
	// 占位作者等同缺失。可能误伤合法的极简记录，行为沿用原有判定。
	if info.VideoURL == "" && (info.Author == "" || info.Author == douyin.UnknownAuthor) {
		reason := "获取的视频信息不完整，可能是API返回格式变更"
		setStatus(recordID, "失败: "+reason)
		return reason
	}

	e.writeFields(ctx, opts, fieldMap, recordID, info)

	setStatus(recordID, "成功")
	return ""
}

// writeFields 写策略：覆盖模式直接写；非覆盖模式只填空单元格。
// 单列写失败只记日志，不影响记录的成败判定。
func (e *Enricher) writeFields(ctx context.Context, opts BatchOptions,
	fieldMap map[string]bitable.Field, recordID string, info models.VideoInfo) {

	values := info.FieldValues()
	for _, spec := range FieldMapping {
		field, ok := fieldMap[spec.Key]
		if !ok {
			continue
		}
		value := values[spec.Key]

		if !opts.Overwrite {
			current, err := e.store.GetCellValue(ctx, opts.TableID, field, recordID)
			if err != nil {
				log.Error("读取字段 %s 当前值失败: %v", spec.Name, err)
				continue
			}
			if !bitable.IsEmptyCell(current) {
				continue
			}
		}
		if err := e.store.SetCellValue(ctx, opts.TableID, field, recordID, value); err != nil {
			log.Error("设置字段 %s 值失败: %v", spec.Name, err)
		}
	}
}

func (e *Enricher) fetchWithCache(ctx context.Context, videoID string) models.FetchOutcome {
	if e.cache != nil {
		if info, ok := e.cache.Get(ctx, videoID); ok {
			log.Debug("命中元数据缓存: %s", videoID)
			return models.Success(info)
		}
	}
	outcome := e.fetcher.Fetch(ctx, videoID)
	if outcome.OK() && e.cache != nil {
		e.cache.Set(ctx, videoID, *outcome.Info)
	}
	return outcome
}
