package douyin

import "encoding/json"

// Get 安全读取嵌套结构，任何一级缺失、非对象或为null时返回默认值，绝不panic
func Get(root interface{}, keys []string, def interface{}) interface{} {
	current := root
	for _, key := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return def
		}
		v, ok := m[key]
		if !ok || v == nil {
			return def
		}
		current = v
	}
	if current == nil {
		return def
	}
	return current
}

// GetString 读取字符串，取不到或类型不符返回默认值
func GetString(root interface{}, keys []string, def string) string {
	if s, ok := Get(root, keys, def).(string); ok {
		return s
	}
	return def
}

// GetList 读取数组，取不到返回nil
func GetList(root interface{}, keys []string) []interface{} {
	if l, ok := Get(root, keys, nil).([]interface{}); ok {
		return l
	}
	return nil
}

// GetNumber 读取数字，兼容 json.Number 与 float64
func GetNumber(root interface{}, keys []string) (float64, bool) {
	switch v := Get(root, keys, nil).(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
