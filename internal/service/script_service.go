package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reelforge-backend/internal/config"

	"github.com/sashabaranov/go-openai"
)

// ScriptInput 脚本生成的结构化输入，字段来自用户提交的视频表单
type ScriptInput struct {
	Title                string
	Description          string
	Topic                string
	Tone                 string
	Duration             string
	CallToAction         string
	SpecificCallToAction string
}

type ScriptService struct {
	client *openai.Client
	model  string
}

func NewScriptService(cfg config.OpenAIConfig) *ScriptService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		// 确保BaseURL格式正确，移除末尾的斜杠
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	client := openai.NewClientWithConfig(clientConfig)
	return &ScriptService{client: client, model: model}
}

// GenerateScript 根据表单输入生成口播脚本
func (s *ScriptService) GenerateScript(ctx context.Context, in ScriptInput) (string, error) {
	systemPrompt := `你是一个专业的短视频口播脚本作者。根据用户给出的主题信息写一段适合数字人出镜朗读的口播脚本，仅返回脚本正文。

要求：
1. 开头3秒内抛出钩子，抓住观众注意力
2. 语言口语化、句子简短，适合配音朗读
3. 按给定的目标时长控制篇幅
4. 结尾自然带出行动号召
5. 不要包含镜头说明、标题或任何格式标记`

	userPrompt := fmt.Sprintf(`标题：%s
描述：%s
主题：%s
语气：%s
目标时长：%s
行动号召：%s`,
		in.Title, in.Description, in.Topic, in.Tone, in.Duration, in.CallToAction)
	if in.SpecificCallToAction != "" {
		userPrompt += "\n具体行动号召文案：" + in.SpecificCallToAction
	}

	return s.complete(ctx, systemPrompt, userPrompt, 1500)
}

// GenerateShortCopy 根据脚本生成短平台的发布文案
func (s *ScriptService) GenerateShortCopy(ctx context.Context, in ScriptInput, script string) (string, error) {
	systemPrompt := `你是一个短视频运营文案作者。根据视频脚本写一段适合短视频平台的发布文案，仅返回文案正文。

要求：
1. 不超过150字
2. 带2-4个相关话题标签
3. 风格轻快，引导互动`

	userPrompt := fmt.Sprintf("主题：%s\n脚本：\n%s", in.Topic, script)

	return s.complete(ctx, systemPrompt, userPrompt, 500)
}

// GenerateLongCopy 根据脚本生成长平台的发布文案
func (s *ScriptService) GenerateLongCopy(ctx context.Context, in ScriptInput, script string) (string, error) {
	systemPrompt := `你是一个视频平台运营文案作者。根据视频脚本写一段适合长视频平台的描述文案，仅返回文案正文。

要求：
1. 第一段概括视频内容
2. 补充2-3个展开要点
3. 结尾附上行动号召`

	userPrompt := fmt.Sprintf("主题：%s\n行动号召：%s\n脚本：\n%s", in.Topic, in.CallToAction, script)

	return s.complete(ctx, systemPrompt, userPrompt, 800)
}

func (s *ScriptService) complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: userPrompt,
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})

	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("AI服务返回空结果")
	}

	text := cleanGeneratedText(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("AI服务返回空结果")
	}

	return text, nil
}

// classifyOpenAIError 将openai客户端错误映射为上游错误，网关错误标记为可重试
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewUpstreamError("generator", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("AI服务调用失败: %v", err)
}

// cleanGeneratedText 清理生成结果，移除可能的Markdown代码块包装
func cleanGeneratedText(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		// 移除第一行的```及语言标记
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		} else {
			content = strings.TrimPrefix(content, "```")
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	return content
}
