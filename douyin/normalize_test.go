package douyin

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullPayload = `{
  "data": {
    "aweme_detail": {
      "desc": "测试视频",
      "caption": "标题",
      "create_time": 1700000000,
      "duration": 65000,
      "author": {"nickname": "A", "sec_uid": "sec123"},
      "video": {
        "bit_rate": [
          {"play_addr": {"url_list": ["https://cdn.example.com/hq.mp4"]}}
        ],
        "play_addr": {"url_list": ["https://cdn.example.com/play.mp4"]},
        "download_addr": {"url_list": ["https://cdn.example.com/dl.mp4"]},
        "cover_original_scale": {"url_list": ["https://cdn.example.com/cover.jpg"]}
      },
      "text_extra": [
        {"hashtag_name": "旅行"},
        {"hashtag_name": ""},
        {"hashtag_name": "美食"}
      ],
      "video_tag": [{"tag_name": "生活"}],
      "seo_info": {"ocr_content": "字幕"},
      "share_info": {"share_link_desc": "快来看"},
      "music": {"play_url": {"uri": "https://music.example.com/m.mp3"}},
      "statistics": {
        "collect_count": 11,
        "comment_count": 22,
        "digg_count": 9007199254740993,
        "share_count": 44
      }
    }
  }
}`

func TestNormalizeFullPayload(t *testing.T) {
	payload := decode(t, fullPayload)
	info := Normalize(payload, "42")

	assert.Equal(t, "42", info.ID)
	assert.Equal(t, "A", info.Author)
	assert.Equal(t, "sec123", info.SecUID)
	assert.Equal(t, "2023-11-14 22:13:20", info.Time)
	assert.Equal(t, "标题", info.Caption)
	assert.Equal(t, "测试视频", info.Desc)
	assert.Equal(t, "1:05", info.Duration)
	assert.Equal(t, "旅行, 美食", info.Hashtags)
	assert.Equal(t, "生活", info.Tags)
	assert.Equal(t, "https://cdn.example.com/hq.mp4", info.VideoURL)
	assert.Equal(t, "https://cdn.example.com/cover.jpg", info.Cover)
	assert.Equal(t, "字幕", info.OCR)
	assert.Equal(t, "快来看", info.Share)
	assert.Equal(t, "https://music.example.com/m.mp3", info.Music)

	// 大整数统计值原样透传不丢精度
	digg, ok := info.DiggCount.(json.Number)
	require.True(t, ok)
	assert.Equal(t, "9007199254740993", digg.String())
}

func TestNormalizeDeterministic(t *testing.T) {
	payload := decode(t, fullPayload)
	assert.Equal(t, Normalize(payload, "42"), Normalize(payload, "42"))
}

func TestNormalizeEmptyPayload(t *testing.T) {
	info := Normalize(decode(t, `{}`), "7")

	assert.Equal(t, "7", info.ID)
	assert.Equal(t, UnknownAuthor, info.Author)
	assert.Equal(t, UnknownTime, info.Time)
	assert.Equal(t, ZeroDuration, info.Duration)
	assert.Equal(t, "", info.VideoURL)
	assert.Equal(t, "", info.Hashtags)
	assert.Equal(t, "", info.CollectCount)
}

func TestVideoURLFallbackChain(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    string
	}{
		{
			"bit_rate优先",
			`{"video":{"bit_rate":[{"play_addr":{"url_list":["u1"]}}],"play_addr":{"url_list":["u2"]}}}`,
			"u1",
		},
		{
			"bit_rate为空退到play_addr",
			`{"video":{"bit_rate":[],"play_addr":{"url_list":["u2"]}}}`,
			"u2",
		},
		{
			"退到download_addr",
			`{"video":{"download_addr":{"url_list":["u3"]}}}`,
			"u3",
		},
		{
			"退到扁平video_url",
			`{"video_url":"u4"}`,
			"u4",
		},
		{
			"全部落空为空串",
			`{"video":{}}`,
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := Normalize(decode(t, tc.payload), "1")
			assert.Equal(t, tc.want, info.VideoURL)
		})
	}
}

func TestCoverFallbackChain(t *testing.T) {
	info := Normalize(decode(t, `{"video":{"cover":{"url_list":["c2"]}}}`), "1")
	assert.Equal(t, "c2", info.Cover)

	info = Normalize(decode(t, `{"cover_url":"c4"}`), "1")
	assert.Equal(t, "c4", info.Cover)
}

func TestDetectDetailVariants(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"data套aweme_detail", `{"data":{"aweme_detail":{"author":{"nickname":"A"}}}}`},
		{"data数组取首元素", `{"data":[{"author":{"nickname":"A"}}]}`},
		{"data本身是详情", `{"data":{"author":{"nickname":"A"}}}`},
		{"根级aweme_detail", `{"aweme_detail":{"author":{"nickname":"A"}}}`},
		{"整个响应兜底", `{"author":{"nickname":"A"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := Normalize(decode(t, tc.payload), "1")
			assert.Equal(t, "A", info.Author)
		})
	}
}

func TestHashtagsFlatFallback(t *testing.T) {
	info := Normalize(decode(t, `{"hashtags":["a","b"]}`), "1")
	assert.Equal(t, "a, b", info.Hashtags)
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		ms   string
		want string
	}{
		{`0`, "0:00"},
		{`-5`, "0:00"},
		{`999`, "0:00"},
		{`59999`, "0:59"},
		{`65000`, "1:05"},
		{`125000`, "2:05"},
		{`3600000`, "60:00"},
	}
	for _, tc := range cases {
		info := Normalize(decode(t, `{"duration":`+tc.ms+`}`), "1")
		assert.Equal(t, tc.want, info.Duration, "duration=%s", tc.ms)
	}
}

func TestExtractTimeStringFallback(t *testing.T) {
	info := Normalize(decode(t, `{"create_time_str":"2024-01-01 00:00:00"}`), "1")
	assert.Equal(t, "2024-01-01 00:00:00", info.Time)
}
