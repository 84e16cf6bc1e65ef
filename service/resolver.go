package service

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// 识别失败的原因，状态列和错误报表直接展示
var (
	ErrEmptyIdentifier        = errors.New("视频ID为空")
	ErrMalformedIdentifier    = errors.New("视频ID为空或格式错误")
	ErrUnresolvableIdentifier = errors.New("无法从链接中提取视频ID")
)

var videoPathRe = regexp.MustCompile(`/video/(\d+)`)

// CellKind 单元格取值的封闭形态集合，入口处一次判型，
// 后续流程不再做类型探测
type CellKind int

const (
	KindPlainText CellKind = iota
	KindRichSegments
	KindURLCell
	KindUnknown
)

// Stringifier 存储侧字符串化兜底，未知形态的单元格走这里
type Stringifier func() (string, error)

// ClassifyCell 判定弱类型单元格的形态
func ClassifyCell(raw interface{}) CellKind {
	switch v := raw.(type) {
	case string:
		return KindPlainText
	case []interface{}:
		if len(v) == 0 {
			return KindUnknown
		}
		first, ok := v[0].(map[string]interface{})
		if !ok {
			return KindUnknown
		}
		if _, ok := first["type"]; ok {
			return KindRichSegments
		}
		if _, ok := first["link"]; ok {
			return KindURLCell
		}
	}
	return KindUnknown
}

// ResolveVideoID 从任意形态的单元格取值解析出规范视频ID。
// 纯ID原样返回；URL先试 /video/<数字>，再退到最后一段路径并去掉查询参数。
func ResolveVideoID(raw interface{}, stringify Stringifier) (string, error) {
	if raw == nil {
		return "", ErrEmptyIdentifier
	}

	var s string
	switch ClassifyCell(raw) {
	case KindPlainText:
		s = raw.(string)
	case KindRichSegments:
		var sb strings.Builder
		for _, seg := range raw.([]interface{}) {
			m, ok := seg.(map[string]interface{})
			if !ok {
				continue
			}
			segType, _ := m["type"].(string)
			text, _ := m["text"].(string)
			if segType == "url" {
				if link, ok := m["link"].(string); ok && link != "" {
					sb.WriteString(link)
					continue
				}
			}
			sb.WriteString(text)
		}
		s = sb.String()
	case KindURLCell:
		first := raw.([]interface{})[0].(map[string]interface{})
		s, _ = first["link"].(string)
	default:
		if stringify != nil {
			if v, err := stringify(); err == nil {
				s = v
			}
		}
		if s == "" {
			buf, err := json.Marshal(raw)
			if err != nil {
				return "", ErrMalformedIdentifier
			}
			s = string(buf)
		}
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrMalformedIdentifier
	}

	videoID := s
	if strings.Contains(videoID, "/") {
		if m := videoPathRe.FindStringSubmatch(videoID); m != nil {
			videoID = m[1]
		} else {
			segments := strings.Split(videoID, "/")
			last := ""
			for i := len(segments) - 1; i >= 0; i-- {
				if segments[i] != "" {
					last = segments[i]
					break
				}
			}
			if idx := strings.Index(last, "?"); idx >= 0 {
				last = last[:idx]
			}
			videoID = last
		}
	}
	if videoID == "" {
		return "", ErrUnresolvableIdentifier
	}
	return videoID, nil
}
