package douyin

import (
	"fmt"
	"strings"
	"time"

	"dymeta/models"
)

const (
	UnknownAuthor = "未知作者"
	UnknownTime   = "未知时间"
	ZeroDuration  = "0:00"
	timeLayout    = "2006-01-02 15:04:05"
)

// Normalize 把上游任意形态的响应拍平成固定结构。
// 上游结构经常变（bit_rate有无、字段改名、data套一层或不套），
// 每个逻辑字段按备选链逐个尝试，全部落空时用文档化的默认值，
// 所以同一份payload归一化结果是确定的，且绝不报错。
// videoID 恒取调用方传入值，不信任payload里解析出来的ID。
func Normalize(payload interface{}, videoID string) models.VideoInfo {
	detail := detectDetail(payload)

	video := Get(detail, []string{"video"}, nil)
	author := Get(detail, []string{"author"}, nil)

	info := models.VideoInfo{
		ID:       videoID,
		Author:   extractAuthor(detail, author),
		SecUID:   GetString(author, []string{"sec_uid"}, ""),
		Time:     extractTime(detail),
		Caption:  GetString(detail, []string{"caption"}, ""),
		Desc:     extractDesc(detail),
		Duration: formatDuration(detail),
		Hashtags: extractHashtags(detail),
		Tags:     extractTags(detail),
		VideoURL: extractVideoURL(detail, video),
		Cover:    extractCoverURL(detail, video),
		OCR:      GetString(detail, []string{"seo_info", "ocr_content"}, ""),
		Share:    GetString(detail, []string{"share_info", "share_link_desc"}, ""),
		Music:    extractMusicURL(detail),
	}
	// 统计数原样透传，数字或空串都可能
	info.CollectCount = Get(detail, []string{"statistics", "collect_count"}, "")
	info.CommentCount = Get(detail, []string{"statistics", "comment_count"}, "")
	info.DiggCount = Get(detail, []string{"statistics", "digg_count"}, "")
	info.ShareCount = Get(detail, []string{"statistics", "share_count"}, "")
	return info
}

// detectDetail 按顺序探测响应结构：data.aweme_detail、data数组首元素、
// data本身、根级aweme_detail，最后整个响应兜底
func detectDetail(payload interface{}) interface{} {
	if data := Get(payload, []string{"data"}, nil); data != nil {
		if d := Get(data, []string{"aweme_detail"}, nil); d != nil {
			return d
		}
		if arr, ok := data.([]interface{}); ok {
			if len(arr) > 0 {
				return arr[0]
			}
		} else {
			return data
		}
	}
	if d := Get(payload, []string{"aweme_detail"}, nil); d != nil {
		return d
	}
	return payload
}

func firstURL(root interface{}, keys []string) string {
	list := GetList(root, keys)
	if len(list) == 0 {
		return ""
	}
	if s, ok := list[0].(string); ok {
		return s
	}
	return ""
}

func extractVideoURL(detail, video interface{}) string {
	if bitRates := GetList(video, []string{"bit_rate"}); len(bitRates) > 0 {
		if u := firstURL(bitRates[0], []string{"play_addr", "url_list"}); u != "" {
			return u
		}
	}
	if u := firstURL(video, []string{"play_addr", "url_list"}); u != "" {
		return u
	}
	if u := firstURL(video, []string{"download_addr", "url_list"}); u != "" {
		return u
	}
	return GetString(detail, []string{"video_url"}, "")
}

func extractCoverURL(detail, video interface{}) string {
	if u := firstURL(video, []string{"cover_original_scale", "url_list"}); u != "" {
		return u
	}
	if u := firstURL(video, []string{"cover", "url_list"}); u != "" {
		return u
	}
	if u := firstURL(video, []string{"dynamic_cover", "url_list"}); u != "" {
		return u
	}
	return GetString(detail, []string{"cover_url"}, "")
}

func extractHashtags(detail interface{}) string {
	names := make([]string, 0, 8)
	for _, te := range GetList(detail, []string{"text_extra"}) {
		if name := GetString(te, []string{"hashtag_name"}, ""); name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		return strings.Join(names, ", ")
	}
	// 备选：扁平的hashtags字符串数组
	for _, h := range GetList(detail, []string{"hashtags"}) {
		if s, ok := h.(string); ok && s != "" {
			names = append(names, s)
		}
	}
	return strings.Join(names, ", ")
}

func extractTags(detail interface{}) string {
	names := make([]string, 0, 4)
	for _, tag := range GetList(detail, []string{"video_tag"}) {
		if name := GetString(tag, []string{"tag_name"}, ""); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func extractTime(detail interface{}) string {
	for _, key := range []string{"create_time", "publish_time"} {
		if sec, ok := GetNumber(detail, []string{key}); ok && sec > 0 {
			return time.Unix(int64(sec), 0).UTC().Format(timeLayout)
		}
	}
	if s := GetString(detail, []string{"create_time_str"}, ""); s != "" {
		return s
	}
	if s := GetString(detail, []string{"publish_time_str"}, ""); s != "" {
		return s
	}
	return UnknownTime
}

func extractMusicURL(detail interface{}) string {
	if u := GetString(detail, []string{"music", "play_url", "uri"}, ""); u != "" {
		return u
	}
	if u := GetString(detail, []string{"music_url"}, ""); u != "" {
		return u
	}
	if u := GetString(detail, []string{"music", "url"}, ""); u != "" {
		return u
	}
	return GetString(detail, []string{"music", "play_url", "url"}, "")
}

func extractAuthor(detail, author interface{}) string {
	if name := GetString(author, []string{"nickname"}, ""); name != "" {
		return name
	}
	for _, key := range []string{"author_name", "author_user_name"} {
		if name := GetString(detail, []string{key}, ""); name != "" {
			return name
		}
	}
	if name := GetString(detail, []string{"author", "name"}, ""); name != "" {
		return name
	}
	return UnknownAuthor
}

func extractDesc(detail interface{}) string {
	for _, key := range []string{"desc", "description", "content", "text"} {
		if s := GetString(detail, []string{key}, ""); s != "" {
			return s
		}
	}
	return ""
}

// formatDuration 毫秒时长转 M:SS，0或缺失为 0:00
func formatDuration(detail interface{}) string {
	ms, ok := GetNumber(detail, []string{"duration"})
	if !ok || ms <= 0 {
		return ZeroDuration
	}
	total := int(ms / 1000)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
