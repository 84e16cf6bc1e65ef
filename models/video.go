package models

// VideoInfo 定义视频信息的结构体，所有字段恒存在，取不到时为空值或占位符
type VideoInfo struct {
	ID       string `json:"id"`
	Author   string `json:"author"`
	SecUID   string `json:"sec_uid"`
	Time     string `json:"time"` // YYYY-MM-DD HH:MM:SS，取不到为占位符
	Caption  string `json:"caption"`
	Desc     string `json:"desc"`
	Duration string `json:"duration"` // M:SS，默认 0:00
	Hashtags string `json:"hashtags"` // 逗号连接
	Tags     string `json:"tags"`     // 逗号连接
	VideoURL string `json:"vediourl"`
	Cover    string `json:"cover"`
	OCR      string `json:"ocr"`
	Share    string `json:"share"`
	Music    string `json:"music"`
	// 统计数原样透传，可能是数字也可能是空串
	CollectCount interface{} `json:"collect_count"`
	CommentCount interface{} `json:"comment_count"`
	DiggCount    interface{} `json:"digg_count"`
	ShareCount   interface{} `json:"share_count"`
}

// FieldValues 按逻辑字段键展开，写列时逐项取用
func (v VideoInfo) FieldValues() map[string]interface{} {
	return map[string]interface{}{
		"author":        v.Author,
		"sec_uid":       v.SecUID,
		"time":          v.Time,
		"caption":       v.Caption,
		"desc":          v.Desc,
		"duration":      v.Duration,
		"hashtags":      v.Hashtags,
		"tags":          v.Tags,
		"vediourl":      v.VideoURL,
		"cover":         v.Cover,
		"ocr":           v.OCR,
		"share":         v.Share,
		"music":         v.Music,
		"collect_count": v.CollectCount,
		"comment_count": v.CommentCount,
		"digg_count":    v.DiggCount,
		"share_count":   v.ShareCount,
	}
}

// FetchOutcome 单个视频ID的一次解析结果，失败也以值返回，不抛错
type FetchOutcome struct {
	Info   *VideoInfo `json:"info,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

func (o FetchOutcome) OK() bool {
	return o.Info != nil && o.Reason == ""
}

func Success(info VideoInfo) FetchOutcome {
	return FetchOutcome{Info: &info}
}

func Failure(reason string) FetchOutcome {
	return FetchOutcome{Reason: reason}
}
