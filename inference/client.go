// inference/client.go
package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// 消息角色，与 OpenAI 兼容接口一致
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

const doneSentinel = "[DONE]"

var ErrEmptyStream = errors.New("completion stream ended without any data")

// Message 是一条带角色标注的对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest 是一次流式补全请求的完整参数
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	TopP        float64   `json:"top_p"`
	Stream      bool      `json:"stream"`
}

// chunk 是流中单个 SSE 事件的数据体
type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Client 通过 OpenAI 兼容的 /chat/completions 接口请求流式补全
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// StreamCompletion 发起一次流式补全请求。每收到一个增量片段就调用
// onDelta（包括空片段），同时在内部累积；返回累积出的完整文本。
// 流以 [DONE] 哨兵结束；非 2xx 状态或流格式异常作为错误返回。
func (c *Client) StreamCompletion(ctx context.Context, req CompletionRequest, onDelta func(string)) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.statusError(resp)
	}

	var full strings.Builder
	sawData := false

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == doneSentinel {
			return full.String(), nil
		}

		var ck chunk
		if err := json.Unmarshal([]byte(payload), &ck); err != nil {
			return "", fmt.Errorf("malformed stream chunk: %w", err)
		}
		sawData = true

		for _, choice := range ck.Choices {
			full.WriteString(choice.Delta.Content)
			if onDelta != nil {
				onDelta(choice.Delta.Content)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("completion stream read failed: %w", err)
	}
	if !sawData {
		return "", ErrEmptyStream
	}

	// Stream ended without the [DONE] sentinel; treat what we have as complete.
	return full.String(), nil
}

func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))

	var ae apiError
	if err := json.Unmarshal(raw, &ae); err == nil && ae.Error.Message != "" {
		return fmt.Errorf("completion gateway returned %d: %s", resp.StatusCode, ae.Error.Message)
	}
	return fmt.Errorf("completion gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
