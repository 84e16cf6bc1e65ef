package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"dymeta/bitable"
	"dymeta/dao"
	"dymeta/log"
	"dymeta/models"
	"dymeta/utils"
)

// Auth
func CreateUser(email, password string) (*models.User, error) {
	if _, err := dao.GetUserByEmail(email); err == nil {
		return nil, errors.New("email exists")
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	u := &models.User{Email: email, Password: string(hash)}
	if err := dao.CreateUser(u); err != nil {
		return nil, err
	}
	return u, nil
}

func Authenticate(email, password string) (*models.User, error) {
	u, err := dao.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, errors.New("invalid credentials")
	}
	return u, nil
}

// RedisCache 元数据缓存，key取视频ID的md5
type RedisCache struct {
	TTL time.Duration
}

func (c *RedisCache) key(videoID string) string {
	return "dymeta:video:" + utils.GetMd5(videoID)
}

func (c *RedisCache) Get(ctx context.Context, videoID string) (models.VideoInfo, bool) {
	var info models.VideoInfo
	raw, err := dao.CacheGet(ctx, c.key(videoID))
	if err != nil || raw == "" {
		return info, false
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return info, false
	}
	return info, true
}

func (c *RedisCache) Set(ctx context.Context, videoID string, info models.VideoInfo) {
	buf, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := dao.CacheSet(ctx, c.key(videoID), string(buf), c.TTL); err != nil {
		log.Warn("缓存元数据失败: %v", err)
	}
}

// runHandle 活动中的批量任务
type runHandle struct {
	enricher *Enricher
	cancel   context.CancelFunc
}

// RunManager 批量任务的发起、查询和取消。同一张表同一时间
// 只允许一个批量任务（redis锁），任务结果落库。
type RunManager struct {
	store    bitable.Store
	fetcher  Fetcher
	cache    MetadataCache
	publish  func(models.BatchReport)
	lockTTL  time.Duration
	useRedis bool

	mu     sync.Mutex
	active map[string]*runHandle
}

func NewRunManager(store bitable.Store, fetcher Fetcher, useRedis bool) *RunManager {
	return &RunManager{
		store:    store,
		fetcher:  fetcher,
		lockTTL:  time.Hour,
		useRedis: useRedis,
		active:   make(map[string]*runHandle),
	}
}

func (m *RunManager) WithCache(cache MetadataCache) *RunManager {
	m.cache = cache
	return m
}

func (m *RunManager) WithPublisher(publish func(models.BatchReport)) *RunManager {
	m.publish = publish
	return m
}

func lockKey(tableID string) string {
	return "dymeta:enrich:lock:" + tableID
}

// StartBatch 创建运行记录并异步执行，返回落库的Run。
// 表级锁抢不到说明已有任务在跑，直接拒绝。
func (m *RunManager) StartBatch(userID uint, opts BatchOptions) (*models.Run, error) {
	if opts.TableID == "" || opts.FieldID == "" {
		return nil, errors.New("请先选择表格和字段")
	}

	if m.useRedis {
		ok, err := dao.TryLock(context.Background(), lockKey(opts.TableID), m.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("获取任务锁失败: %w", err)
		}
		if !ok {
			return nil, errors.New("该表已有批量任务在执行")
		}
	}

	opts.RunID = uuid.New().String()
	run := &models.Run{
		RunID:     opts.RunID,
		UserID:    userID,
		TableID:   opts.TableID,
		ViewID:    opts.ViewID,
		FieldID:   opts.FieldID,
		Overwrite: opts.Overwrite,
		Status:    models.StatusPending,
	}
	if err := dao.CreateRun(run); err != nil {
		if m.useRedis {
			_ = dao.Unlock(context.Background(), lockKey(opts.TableID))
		}
		return nil, err
	}

	enricher := NewEnricher(m.store, m.fetcher)
	// 覆盖模式要新鲜数据，不走缓存
	if m.cache != nil && !opts.Overwrite {
		enricher.WithCache(m.cache)
	}
	if m.publish != nil {
		enricher.WithPublisher(m.publish)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.active[opts.RunID] = &runHandle{enricher: enricher, cancel: cancel}
	m.mu.Unlock()

	go utils.SafeCall(func() {
		defer cancel()
		defer func() {
			if m.useRedis {
				_ = dao.Unlock(context.Background(), lockKey(opts.TableID))
			}
			m.mu.Lock()
			delete(m.active, opts.RunID)
			m.mu.Unlock()
		}()

		run.Status = models.StatusRunning
		_ = dao.UpdateRun(run)

		report, err := enricher.RunBatch(ctx, opts)

		run.Total = report.Total
		run.Succeeded = report.Succeeded
		run.Failed = report.Failed
		run.SetErrors(report.ErrorsByRecord)
		if err != nil {
			run.Status = models.StatusFailed
			run.ErrorMsg = err.Error()
			log.Error("批量任务 %s 失败: %v", opts.RunID, err)
		} else {
			run.Status = models.StatusCompleted
		}
		_ = dao.UpdateRun(run)
	})

	return run, nil
}

// Report 运行中的任务返回内存快照，结束的任务从库里重建
func (m *RunManager) Report(runID string) (models.BatchReport, error) {
	m.mu.Lock()
	handle, ok := m.active[runID]
	m.mu.Unlock()
	if ok {
		return handle.enricher.Snapshot(), nil
	}

	run, err := dao.GetRunByRunID(runID)
	if err != nil {
		return models.BatchReport{}, err
	}
	return models.BatchReport{
		RunID:          run.RunID,
		Total:          run.Total,
		Current:        run.Succeeded + run.Failed,
		Succeeded:      run.Succeeded,
		Failed:         run.Failed,
		Done:           run.Status == models.StatusCompleted || run.Status == models.StatusFailed,
		ErrorsByRecord: run.Errors(),
	}, nil
}

// Cancel 取消运行中的任务，记录边界生效
func (m *RunManager) Cancel(runID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if handle, ok := m.active[runID]; ok {
		handle.cancel()
		return true
	}
	return false
}

// FetchOne 单个视频ID或链接的即时查询，原测试页的后端形态
func (m *RunManager) FetchOne(ctx context.Context, idOrURL string) (models.FetchOutcome, error) {
	videoID, err := ResolveVideoID(idOrURL, nil)
	if err != nil {
		return models.FetchOutcome{}, err
	}
	enricher := NewEnricher(m.store, m.fetcher)
	if m.cache != nil {
		enricher.WithCache(m.cache)
	}
	return enricher.fetchWithCache(ctx, videoID), nil
}
