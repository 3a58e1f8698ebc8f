/*
 * @module service/analysis/provider
 * @description 外部数据分析服务客户端，提交数据集模式摘要获取清洗建议文本
 * @architecture 适配器模式 - 封装OpenAI兼容Chat Completions接口
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 模式摘要构建 -> HTTP提交 -> 响应文本提取 -> 解析器消费
 * @rules 未配置端点时返回nil客户端，流水线跳过分析；分析失败不阻断清洗，调用方记录错误继续
 * @dependencies net/http, encoding/json, service/dataset
 * @refs service/cleaning/llm_parser.go
 */

package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"datacleaner-service/service/dataset"

	"github.com/spf13/cast"
)

const (
	defaultTimeoutSeconds = 60
	previewRows           = 5
)

// Provider 数据集分析服务接口
type Provider interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

// HTTPProvider OpenAI兼容Chat Completions客户端
type HTTPProvider struct {
	endpoint   string
	token      string
	model      string
	httpClient *http.Client
}

// NewFromEnv 从环境变量构建分析客户端
// ANALYSIS_API_URL 未设置时返回nil，表示分析功能关闭
func NewFromEnv() Provider {
	endpoint := strings.TrimSpace(os.Getenv("ANALYSIS_API_URL"))
	if endpoint == "" {
		return nil
	}
	timeout := defaultTimeoutSeconds
	if v := os.Getenv("ANALYSIS_TIMEOUT_SECONDS"); v != "" {
		timeout = cast.ToInt(v)
		if timeout <= 0 {
			timeout = defaultTimeoutSeconds
		}
	}
	model := os.Getenv("ANALYSIS_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &HTTPProvider{
		endpoint: endpoint,
		token:    os.Getenv("ANALYSIS_API_TOKEN"),
		model:    model,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
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
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Analyze 提交分析提示词，返回服务的分析文本
func (p *HTTPProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("序列化分析请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("构建分析请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("分析服务请求失败: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取分析响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("分析服务返回状态 %d: %s", resp.StatusCode, truncate(string(payload), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("解析分析响应失败: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("分析服务错误: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("分析响应不含任何结果")
	}
	return parsed.Choices[0].Message.Content, nil
}

const systemPrompt = `You are a data cleaning analyst. Examine the dataset schema and sample rows, then respond with a single JSON object containing: domain, data_types, units, potential_issues (list of {column, issue}), remove_candidates (list of {column, reason, confidence}), cleaning_priorities.`

// BuildPrompt 构建数据集模式摘要提示词：列类型、缺失率、样本行
func BuildPrompt(d *dataset.Dataset) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dataset: %d rows, %d columns\n\nColumns:\n", d.RowCount(), d.ColumnCount())
	for _, col := range d.Columns() {
		stats, err := dataset.Describe(d, col)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s): %d missing (%.1f%%), %d distinct values\n",
			col, stats.Dtype, stats.Missing, stats.MissingRate*100, stats.Cardinality)
	}

	sb.WriteString("\nSample rows:\n")
	preview, err := json.Marshal(d.Records(previewRows))
	if err == nil {
		sb.Write(preview)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
