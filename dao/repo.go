package dao

import (
	"context"
	"time"

	"dymeta/mdb"
	"dymeta/models"
)

func CreateUser(u *models.User) error {
	return mdb.Mysql.Create(u).Error
}

func GetUserByEmail(email string) (*models.User, error) {
	var u models.User
	if err := mdb.Mysql.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserById(id int64) (*models.User, error) {
	var u models.User
	if err := mdb.Mysql.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func CreateRun(r *models.Run) error {
	return mdb.Mysql.Create(r).Error
}

func GetRunByRunID(runID string) (*models.Run, error) {
	var r models.Run
	if err := mdb.Mysql.Where("run_id = ?", runID).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func ListRunsByUser(userID uint) ([]models.Run, error) {
	var out []models.Run
	if err := mdb.Mysql.Where("user_id = ?", userID).Order("created_at desc").Limit(100).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func UpdateRun(r *models.Run) error {
	r.UpdatedAt = time.Now()
	return mdb.Mysql.Save(r).Error
}

// 元数据缓存，key为视频ID的md5
func CacheSet(ctx context.Context, key string, val string, ttl time.Duration) error {
	return mdb.Redis.Set(ctx, key, val, ttl).Err()
}

func CacheGet(ctx context.Context, key string) (string, error) {
	return mdb.Redis.Get(ctx, key).Result()
}

// TryLock 表级批量任务互斥，SetNX抢锁，到期自动释放
func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return mdb.Redis.SetNX(ctx, key, "1", ttl).Result()
}

func Unlock(ctx context.Context, key string) error {
	return mdb.Redis.Del(ctx, key).Err()
}
