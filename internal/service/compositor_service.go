package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelforge-backend/internal/config"
	"reelforge-backend/internal/model"
)

// CompositeRequest 合成渲染请求：模板、修改项和回传给webhook的元数据
type CompositeRequest struct {
	TemplateID    string
	Modifications map[string]interface{}
	Metadata      string
}

// CompositeRenderStatus 合成渲染任务的远端状态
type CompositeRenderStatus struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Error  string `json:"error"`
}

// CompositorEvent 归一化后的合成完成事件。webhook和轮询两条路径
// 都先转换成这个类型再进入业务逻辑
type CompositorEvent struct {
	RenderID string
	Status   string
	URL      string
	Error    string
	Metadata string
}

// CompositorService 视频合成服务的HTTP客户端，创建渲染后由webhook回调，
// 轮询作为兜底
type CompositorService struct {
	baseURL    string
	apiKey     string
	webhookURL string
	httpClient *http.Client
}

func NewCompositorService(cfg config.CompositorConfig) *CompositorService {
	return &CompositorService{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		webhookURL: cfg.WebhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateRender 提交合成渲染任务，返回渲染ID
func (s *CompositorService) CreateRender(ctx context.Context, req CompositeRequest) (string, error) {
	payload := map[string]interface{}{
		"template_id":   req.TemplateID,
		"modifications": req.Modifications,
		"webhook_url":   s.webhookURL,
		"metadata":      req.Metadata,
	}

	var out struct {
		RenderID string `json:"render_id"`
		ID       string `json:"id"`
	}
	if err := s.doRequest(ctx, http.MethodPost, "/v1/renders", payload, &out); err != nil {
		return "", err
	}

	renderID := out.RenderID
	if renderID == "" {
		renderID = out.ID
	}
	if renderID == "" {
		return "", fmt.Errorf("合成服务未返回渲染ID")
	}
	return renderID, nil
}

// PollRender 按渲染ID查询合成状态
func (s *CompositorService) PollRender(ctx context.Context, renderID string) (*CompositeRenderStatus, error) {
	var out CompositeRenderStatus
	if err := s.doRequest(ctx, http.MethodGet, "/v1/renders/"+renderID, nil, &out); err != nil {
		return nil, err
	}
	out.Status = normalizeCompositeStatus(out.Status)
	return &out, nil
}

func (s *CompositorService) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("合成服务请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return NewUpstreamError("compositor", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// ParseCompositorWebhook 解析合成服务的webhook载荷并归一化。
// 渲染ID可能叫render_id也可能叫id，状态写法也不统一，全部在这里收口
func ParseCompositorWebhook(body []byte) (*CompositorEvent, error) {
	var payload struct {
		RenderID string `json:"render_id"`
		ID       string `json:"id"`
		Status   string `json:"status"`
		URL      string `json:"url"`
		Error    string `json:"error"`
		Metadata string `json:"metadata"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("webhook载荷解析失败: %v", err)
	}

	renderID := payload.RenderID
	if renderID == "" {
		renderID = payload.ID
	}
	if renderID == "" {
		return nil, fmt.Errorf("webhook载荷缺少渲染ID")
	}
	if payload.Status == "" {
		return nil, fmt.Errorf("webhook载荷缺少状态")
	}

	return &CompositorEvent{
		RenderID: renderID,
		Status:   normalizeCompositeStatus(payload.Status),
		URL:      payload.URL,
		Error:    payload.Error,
		Metadata: payload.Metadata,
	}, nil
}

// normalizeCompositeStatus 将远端的各种状态写法映射为内部状态
func normalizeCompositeStatus(status string) string {
	switch strings.ToLower(status) {
	case "completed", "succeeded", "success", "done":
		return model.CompositeStatusCompleted
	case "failed", "error":
		return model.CompositeStatusFailed
	default:
		return model.CompositeStatusRendering
	}
}
