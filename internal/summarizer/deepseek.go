package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joeypan/arxiv-digest/internal/fetcher"
)

// DeepSeekSummarizer calls an OpenAI-compatible chat completions endpoint to
// produce structured Chinese summaries and relevance scores.
type DeepSeekSummarizer struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client

	// Profile describes the reader's research interests. Used by Score to
	// judge how relevant a paper is; an empty profile falls back to a
	// generic description.
	Profile string
}

func NewDeepSeekSummarizer(baseURL, apiKey, model string, maxTokens int, temperature float64, timeout time.Duration) *DeepSeekSummarizer {
	return &DeepSeekSummarizer{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      &http.Client{Timeout: timeout},
	}
}

// OpenAI-compatible request/response types

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const summaryPrompt = `你是一个学术论文总结助手。请用中文总结以下论文，包含：

1. **标题翻译**: 将英文标题翻译成中文
2. **核心贡献**: 用1-2句话概括论文的主要贡献
3. **方法概述**: 简要描述所用方法（3-4句）
4. **关键发现**: 主要实验结果或结论

论文标题: %s

论文摘要:
%s

请用以下JSON格式返回（确保是有效JSON，不要输出任何其他文字）:
{
    "title_zh": "中文标题",
    "contribution": "核心贡献描述",
    "method": "方法概述",
    "finding": "关键发现"
}`

const rankPrompt = `你是一个论文筛选助手。请根据读者的研究兴趣，评估下面这篇论文的相关程度。

读者兴趣: %s

论文标题: %s

论文摘要:
%s

请给出一个 0 到 100 的整数分数，分数越高代表越相关。
请用以下JSON格式返回（确保是有效JSON，不要输出任何其他文字）:
{"score": 分数}`

const defaultProfile = "关注该领域的最新研究进展"

// Scoring wants a deterministic single-number answer, so requests use
// temperature 0 and a small completion budget.
const scoreMaxTokens = 64

func (s *DeepSeekSummarizer) Summarize(ctx context.Context, p fetcher.Paper) (*Summary, error) {
	prompt := fmt.Sprintf(summaryPrompt, p.Title, p.Abstract)

	content, err := s.callAPI(ctx, prompt, s.maxTokens, s.temperature)
	if err != nil {
		return nil, err
	}

	return parseSummary(content)
}

// Score asks the model how relevant the paper is to the configured profile
// and returns an integer in [0, 100].
func (s *DeepSeekSummarizer) Score(ctx context.Context, p fetcher.Paper) (int, error) {
	profile := s.Profile
	if profile == "" {
		profile = defaultProfile
	}
	prompt := fmt.Sprintf(rankPrompt, profile, p.Title, p.Abstract)

	content, err := s.callAPI(ctx, prompt, scoreMaxTokens, 0)
	if err != nil {
		return 0, err
	}

	return parseScore(content)
}

func (s *DeepSeekSummarizer) callAPI(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	reqBody := chatRequest{
		Model:       s.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("deepseek: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("deepseek: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepseek: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("deepseek: status 429: %w", ErrRateLimited)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("deepseek: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepseek: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("deepseek: failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("deepseek: API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("deepseek: empty response")
	}

	return apiResp.Choices[0].Message.Content, nil
}

// extractJSON strips markdown fences and surrounding prose from model
// output, keeping only the first {...} span.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}
	return content
}

func parseSummary(content string) (*Summary, error) {
	content = extractJSON(content)

	var sum Summary
	if err := json.Unmarshal([]byte(content), &sum); err != nil {
		return nil, fmt.Errorf("deepseek: failed to parse summary JSON: %w", err)
	}
	if sum.Contribution == "" && sum.Method == "" && sum.Finding == "" {
		return nil, fmt.Errorf("deepseek: summary JSON has no content")
	}
	return &sum, nil
}

func parseScore(content string) (int, error) {
	var result struct {
		Score *int `json:"score"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		return 0, fmt.Errorf("deepseek: failed to parse score JSON: %w", err)
	}
	if result.Score == nil {
		return 0, fmt.Errorf("deepseek: score JSON has no score field")
	}

	score := *result.Score
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}
	return score, nil
}
