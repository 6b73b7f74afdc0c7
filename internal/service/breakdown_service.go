package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dozyo/internal/config"
)

const (
	defaultBreakdownModel       = "gpt-4o-mini"
	defaultBreakdownTemperature = 0.7
	defaultBreakdownTimeout     = 5 * time.Second

	breakdownSystemPrompt = "You are a helpful assistant that breaks down tasks into simple, " +
		"1-2 minute micro-steps suitable for someone feeling low-energy. " +
		"Return only a JSON array of strings, each representing a micro-step."
)

// StepGenerator 定义微步骤生成能力，便于在业务层注入不同实现。
type StepGenerator interface {
	Generate(ctx context.Context, taskText string) []string
}

// BreakdownService 将任务描述拆解为微步骤。
// 正常路径调用文本生成接口（单次、有界超时）；密钥缺失或调用失败时
// 静默回退到关键词模板，保证返回结果永不为空。
type BreakdownService struct {
	client  *aiChatClient
	timeout time.Duration
}

// NewBreakdownService 构造 BreakdownService，apiKey 为空是合法配置。
func NewBreakdownService(apiKey, baseURL, model string, timeout time.Duration) *BreakdownService {
	if strings.TrimSpace(model) == "" {
		model = defaultBreakdownModel
	}
	if timeout <= 0 {
		timeout = defaultBreakdownTimeout
	}

	return &BreakdownService{
		client:  newAIChatClient(apiKey, baseURL, model, timeout),
		timeout: timeout,
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *BreakdownService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetBaseURL 覆盖默认的接口地址。
func (s *BreakdownService) SetBaseURL(base string) {
	s.client.SetBaseURL(base)
}

// Generate 返回任务的微步骤文本列表，保证非空。
// 上游失败只记录日志，调用方感知不到差别。
func (s *BreakdownService) Generate(ctx context.Context, taskText string) []string {
	steps, err := s.generateRemote(ctx, taskText)
	if err != nil {
		if !errors.Is(err, ErrAIAPIKeyMissing) {
			config.Logger.Warnf("micro-step generation fell back to templates: %v", err)
		}
		return fallbackSteps(taskText)
	}
	return steps
}

func (s *BreakdownService) generateRemote(parent context.Context, taskText string) ([]string, error) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf(
		"Break the task %q into simple, 1-2 minute steps suitable for someone feeling low-energy.",
		taskText,
	)
	logAIExchange("BREAKDOWN", "prompt", userPrompt)

	content, err := s.client.call(ctx, aiChatRequest{
		SystemPrompt: breakdownSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  defaultBreakdownTemperature,
	})
	if err != nil {
		return nil, err
	}
	logAIExchange("BREAKDOWN", "response", content)

	return parseStepArray(content)
}

// parseStepArray 校验模型输出必须是非空字符串数组，其余一律视为失败。
func parseStepArray(content string) ([]string, error) {
	trimmed := strings.TrimSpace(stripCodeFence(content))

	var steps []string
	if err := json.Unmarshal([]byte(trimmed), &steps); err != nil {
		return nil, fmt.Errorf("模型输出不是字符串数组: %w", err)
	}

	cleaned := make([]string, 0, len(steps))
	for _, step := range steps {
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}
		cleaned = append(cleaned, step)
	}

	if len(cleaned) == 0 {
		return nil, errors.New("模型输出为空数组")
	}

	return cleaned, nil
}

// stripCodeFence 去掉模型偶尔包裹的 markdown 代码块标记。
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
