package utils

import (
	"sync"
	"time"
)

var Limiter = &LimiterMap{data: make(map[string]*limitItem)}

type LimiterMap struct {
	sync.Mutex
	data map[string]*limitItem
}

type limitItem struct {
	t     time.Time
	times int64
}

// IsLimited 操作是否被限制：key在duration窗口内最多执行max次。
// 窗口过期时就地重置，不需要后台清理协程。
func (l *LimiterMap) IsLimited(key string, duration time.Duration, max int64) (bool, int64) {
	l.Lock()
	defer l.Unlock()
	v, ok := l.data[key]
	if !ok || time.Now().After(v.t.Add(duration)) {
		l.data[key] = &limitItem{t: time.Now(), times: 1}
		return false, 1
	}
	v.times++
	if v.times > max {
		return true, v.times
	}
	return false, v.times
}

// Del 解除限制
func (l *LimiterMap) Del(key string) {
	l.Lock()
	defer l.Unlock()
	delete(l.data, key)
}
