package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelforge-backend/internal/config"

	"github.com/stretchr/testify/assert"
)

// fakeOpenAIServer 返回固定内容的聊天补全接口
func fakeOpenAIServer(t *testing.T, content string, statusCode int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		if statusCode >= 400 {
			w.WriteHeader(statusCode)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{
					"message": "upstream failure",
					"type":    "server_error",
				},
			})
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

func newTestScriptService(baseURL string) *ScriptService {
	return NewScriptService(config.OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: baseURL + "/v1",
		Model:   "test-model",
	})
}

func TestScriptService_GenerateScript(t *testing.T) {
	ts := fakeOpenAIServer(t, "大家好，今天我们聊聊居家健身。", http.StatusOK)
	defer ts.Close()

	service := newTestScriptService(ts.URL)
	script, err := service.GenerateScript(context.Background(), ScriptInput{
		Title:    "居家健身",
		Topic:    "fitness",
		Tone:     "轻松",
		Duration: "30s",
	})

	assert.NoError(t, err)
	assert.Equal(t, "大家好，今天我们聊聊居家健身。", script)
}

func TestScriptService_StripsCodeFence(t *testing.T) {
	// 模型偶尔会用代码块包装输出，结果必须剥掉包装
	ts := fakeOpenAIServer(t, "```\n这是脚本正文。\n```", http.StatusOK)
	defer ts.Close()

	service := newTestScriptService(ts.URL)
	script, err := service.GenerateScript(context.Background(), ScriptInput{Title: "t", Topic: "x"})

	assert.NoError(t, err)
	assert.Equal(t, "这是脚本正文。", script)
}

func TestScriptService_UpstreamErrorIsRetryable(t *testing.T) {
	ts := fakeOpenAIServer(t, "", http.StatusBadGateway)
	defer ts.Close()

	service := newTestScriptService(ts.URL)
	_, err := service.GenerateScript(context.Background(), ScriptInput{Title: "t", Topic: "x"})

	assert.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestScriptService_GenerateCopies(t *testing.T) {
	ts := fakeOpenAIServer(t, "这是一段发布文案 #健身", http.StatusOK)
	defer ts.Close()

	service := newTestScriptService(ts.URL)
	in := ScriptInput{Topic: "fitness", CallToAction: "关注我"}

	short, err := service.GenerateShortCopy(context.Background(), in, "脚本正文。")
	assert.NoError(t, err)
	assert.Equal(t, "这是一段发布文案 #健身", short)

	long, err := service.GenerateLongCopy(context.Background(), in, "脚本正文。")
	assert.NoError(t, err)
	assert.Equal(t, "这是一段发布文案 #健身", long)
}

func TestCleanGeneratedText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "普通文本原样返回", content: "  正文内容  ", want: "正文内容"},
		{name: "剥掉裸代码块", content: "```\n正文内容\n```", want: "正文内容"},
		{name: "剥掉带语言标记的代码块", content: "```text\n正文内容\n```", want: "正文内容"},
		{name: "只有起始围栏", content: "```正文内容", want: "正文内容"},
		{name: "空内容", content: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanGeneratedText(tt.content))
		})
	}
}
