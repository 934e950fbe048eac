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
)

// AvatarRenderStatus 数字人渲染任务的远端状态
type AvatarRenderStatus struct {
	Status       string `json:"status"`
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	GifURL       string `json:"gif_url"`
	Duration     string `json:"duration"`
	Error        string `json:"error"`
}

// AvatarService 数字人渲染服务的HTTP客户端，创建任务后通过任务ID轮询
type AvatarService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewAvatarService(cfg config.AvatarConfig) *AvatarService {
	return &AvatarService{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateRender 提交数字人渲染任务，返回任务ID
func (s *AvatarService) CreateRender(ctx context.Context, script, voiceID, avatarID, lookID string) (string, error) {
	payload := map[string]string{
		"script":    script,
		"voice_id":  voiceID,
		"avatar_id": avatarID,
	}
	if lookID != "" {
		payload["look_id"] = lookID
	}

	var out struct {
		TaskID string `json:"task_id"`
	}
	if err := s.doRequest(ctx, http.MethodPost, "/v1/renders", payload, &out); err != nil {
		return "", err
	}

	if out.TaskID == "" {
		return "", fmt.Errorf("数字人服务未返回任务ID")
	}
	return out.TaskID, nil
}

// PollRender 按任务ID查询渲染状态
func (s *AvatarService) PollRender(ctx context.Context, taskID string) (*AvatarRenderStatus, error) {
	var out AvatarRenderStatus
	if err := s.doRequest(ctx, http.MethodGet, "/v1/renders/"+taskID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AvatarService) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
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
	req.Header.Set("X-Api-Key", s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("数字人服务请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return NewUpstreamError("avatar", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
