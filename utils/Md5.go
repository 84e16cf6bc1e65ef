package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// GetMd5 缓存key和请求验签共用
func GetMd5(code string) string {
	hash := md5.Sum([]byte(code))
	return hex.EncodeToString(hash[:])
}
