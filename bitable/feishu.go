package bitable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"dymeta/log"
)

// 飞书多维表格字段类型编号
const (
	feishuTypeText   = 1
	feishuTypeNumber = 2
	feishuTypeURL    = 15
)

const feishuPageSize = 500

// FeishuStore 飞书开放平台多维表格适配。appToken定位一个多维表格应用，
// tableID/recordID由调用方传入。单元格读写走记录级接口，字段名作写入键。
type FeishuStore struct {
	baseURL   string
	appID     string
	appSecret string
	appToken  string
	httpc     *http.Client

	mu          sync.Mutex
	tenantToken string
	tokenExpiry time.Time
}

func NewFeishuStore(baseURL, appID, appSecret, appToken string) *FeishuStore {
	return &FeishuStore{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appID:     appID,
		appSecret: appSecret,
		appToken:  appToken,
		httpc:     &http.Client{Timeout: 15 * time.Second},
	}
}

type feishuResp struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (s *FeishuStore) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tenantToken != "" && time.Now().Before(s.tokenExpiry) {
		return s.tenantToken, nil
	}
	body, _ := json.Marshal(map[string]string{
		"app_id":     s.appID,
		"app_secret": s.appSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/open-apis/auth/v3/tenant_access_token/internal", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("获取tenant token失败: %w", err)
	}
	defer resp.Body.Close()
	var out struct {
		Code        int    `json:"code"`
		Msg         string `json:"msg"`
		TenantToken string `json:"tenant_access_token"`
		Expire      int    `json:"expire"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Code != 0 {
		return "", fmt.Errorf("获取tenant token失败: code=%d msg=%s", out.Code, out.Msg)
	}
	s.tenantToken = out.TenantToken
	// 提前两分钟过期，避免边界失效
	s.tokenExpiry = time.Now().Add(time.Duration(out.Expire-120) * time.Second)
	return s.tenantToken, nil
}

func (s *FeishuStore) call(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out feishuResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("响应解析失败: %w", err)
	}
	if out.Code != 0 {
		return nil, fmt.Errorf("飞书接口错误: code=%d msg=%s", out.Code, out.Msg)
	}
	return out.Data, nil
}

func (s *FeishuStore) tablePath(tableID string) string {
	return fmt.Sprintf("/open-apis/bitable/v1/apps/%s/tables/%s", s.appToken, tableID)
}

type feishuRecord struct {
	RecordID string                 `json:"record_id"`
	Fields   map[string]interface{} `json:"fields"`
}

func (s *FeishuStore) listRecords(ctx context.Context, tableID, viewID string) ([]string, error) {
	ids := make([]string, 0, feishuPageSize)
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("page_size", fmt.Sprint(feishuPageSize))
		if viewID != "" {
			q.Set("view_id", viewID)
		}
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}
		data, err := s.call(ctx, http.MethodGet, s.tablePath(tableID)+"/records?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		var out struct {
			Items     []feishuRecord `json:"items"`
			PageToken string         `json:"page_token"`
			HasMore   bool           `json:"has_more"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			ids = append(ids, item.RecordID)
		}
		if !out.HasMore || out.PageToken == "" {
			return ids, nil
		}
		pageToken = out.PageToken
	}
}

func (s *FeishuStore) ListRecords(ctx context.Context, tableID, viewID string) ([]string, error) {
	return s.listRecords(ctx, tableID, viewID)
}

func (s *FeishuStore) ListAllRecords(ctx context.Context, tableID string) ([]string, error) {
	return s.listRecords(ctx, tableID, "")
}

func (s *FeishuStore) ListFields(ctx context.Context, tableID string) ([]Field, error) {
	fields := make([]Field, 0, 32)
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("page_size", "100")
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}
		data, err := s.call(ctx, http.MethodGet, s.tablePath(tableID)+"/fields?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		var out struct {
			Items []struct {
				FieldID   string `json:"field_id"`
				FieldName string `json:"field_name"`
				Type      int    `json:"type"`
			} `json:"items"`
			PageToken string `json:"page_token"`
			HasMore   bool   `json:"has_more"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			fields = append(fields, Field{
				ID:   item.FieldID,
				Name: item.FieldName,
				Type: fromFeishuType(item.Type),
			})
		}
		if !out.HasMore || out.PageToken == "" {
			return fields, nil
		}
		pageToken = out.PageToken
	}
}

func (s *FeishuStore) CreateField(ctx context.Context, tableID, name string, ft FieldType) (Field, error) {
	data, err := s.call(ctx, http.MethodPost, s.tablePath(tableID)+"/fields", map[string]interface{}{
		"field_name": name,
		"type":       toFeishuType(ft),
	})
	if err != nil {
		return Field{}, err
	}
	var out struct {
		Field struct {
			FieldID   string `json:"field_id"`
			FieldName string `json:"field_name"`
			Type      int    `json:"type"`
		} `json:"field"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return Field{}, err
	}
	log.Info("创建字段 %s (%s)", name, ft)
	return Field{ID: out.Field.FieldID, Name: out.Field.FieldName, Type: fromFeishuType(out.Field.Type)}, nil
}

func (s *FeishuStore) getRecord(ctx context.Context, tableID, recordID string) (map[string]interface{}, error) {
	data, err := s.call(ctx, http.MethodGet, s.tablePath(tableID)+"/records/"+recordID, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Record feishuRecord `json:"record"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out.Record.Fields, nil
}

func (s *FeishuStore) GetCellValue(ctx context.Context, tableID string, field Field, recordID string) (interface{}, error) {
	fields, err := s.getRecord(ctx, tableID, recordID)
	if err != nil {
		return nil, err
	}
	return fields[field.Name], nil
}

func (s *FeishuStore) SetCellValue(ctx context.Context, tableID string, field Field, recordID string, value interface{}) error {
	_, err := s.call(ctx, http.MethodPut, s.tablePath(tableID)+"/records/"+recordID, map[string]interface{}{
		"fields": map[string]interface{}{
			field.Name: encodeCell(field, value),
		},
	})
	return err
}

func (s *FeishuStore) GetCellString(ctx context.Context, tableID string, field Field, recordID string) (string, error) {
	v, err := s.GetCellValue(ctx, tableID, field, recordID)
	if err != nil {
		return "", err
	}
	return StringifyCell(v), nil
}

// encodeCell 按列类型转飞书单元格取值格式：URL列要 {link,text}，数字列要数值
func encodeCell(field Field, value interface{}) interface{} {
	switch field.Type {
	case FieldURL:
		if s, ok := value.(string); ok {
			return map[string]string{"link": s, "text": s}
		}
	case FieldNumber:
		switch n := value.(type) {
		case json.Number:
			// 整数走int64保精度，超过float64安全范围的计数不能变形
			if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
				return i
			}
			if f, err := n.Float64(); err == nil {
				return f
			}
			return nil
		case string:
			if n == "" {
				return nil
			}
		}
	}
	return value
}

// StringifyCell 弱类型单元格兜底转字符串
func StringifyCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []interface{}:
		var sb strings.Builder
		for _, seg := range val {
			m, ok := seg.(map[string]interface{})
			if !ok {
				continue
			}
			if text, ok := m["text"].(string); ok {
				sb.WriteString(text)
			}
		}
		return sb.String()
	case float64:
		return fmt.Sprintf("%v", val)
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(buf)
}

func toFeishuType(ft FieldType) int {
	switch ft {
	case FieldURL:
		return feishuTypeURL
	case FieldNumber:
		return feishuTypeNumber
	}
	return feishuTypeText
}

func fromFeishuType(t int) FieldType {
	switch t {
	case feishuTypeURL:
		return FieldURL
	case feishuTypeNumber:
		return FieldNumber
	}
	return FieldText
}
