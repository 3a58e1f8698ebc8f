/*
 * @module service/analysis/provider_test
 * @description 分析服务客户端的单元测试
 * @architecture 单元测试 - 验证HTTP交互和提示词构建
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 模拟服务启动 -> 客户端请求 -> 响应解析验证
 * @rules 使用httptest模拟服务，不访问真实端点
 * @dependencies testing, net/http/httptest, github.com/stretchr/testify/assert
 * @refs provider.go
 */

package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"datacleaner-service/service/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_DisabledWithoutURL(t *testing.T) {
	t.Setenv("ANALYSIS_API_URL", "")
	assert.Nil(t, NewFromEnv(), "未配置端点时分析功能应关闭")
}

func TestHTTPProvider_Analyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Dataset:")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": `{"domain": "sales"}`}},
			},
		})
	}))
	defer server.Close()

	t.Setenv("ANALYSIS_API_URL", server.URL)
	t.Setenv("ANALYSIS_API_TOKEN", "secret")
	provider := NewFromEnv()
	require.NotNil(t, provider)

	d := dataset.New()
	require.NoError(t, d.AddColumn("Price", []interface{}{"$1", "$2"}))

	text, err := provider.Analyze(context.Background(), BuildPrompt(d))
	require.NoError(t, err)
	assert.Equal(t, `{"domain": "sales"}`, text)
}

func TestHTTPProvider_Analyze_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	t.Setenv("ANALYSIS_API_URL", server.URL)
	provider := NewFromEnv()

	_, err := provider.Analyze(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestHTTPProvider_Analyze_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	t.Setenv("ANALYSIS_API_URL", server.URL)
	provider := NewFromEnv()

	_, err := provider.Analyze(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	d := dataset.New()
	require.NoError(t, d.AddColumn("Price", []interface{}{"$1", nil}))
	require.NoError(t, d.AddColumn("Qty", []interface{}{1.0, 2.0}))

	prompt := BuildPrompt(d)
	assert.Contains(t, prompt, "2 rows, 2 columns")
	assert.Contains(t, prompt, "Price (text)")
	assert.Contains(t, prompt, "Qty (numeric)")
	assert.Contains(t, prompt, "Sample rows:")
}
