/*
 * @module service/cleaning/llm_parser_test
 * @description 分析文本解析器的单元测试
 * @architecture 单元测试 - 验证多形态文本的解析降级链
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 文本构造 -> 解析 -> 结构化结果验证
 * @rules 覆盖纯JSON、代码块、散文内嵌JSON和垃圾输入
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs llm_parser.go
 */

package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAnalysisJSON = `{
	"domain": "sales",
	"data_types": {"Price": "currency", "Region": "categorical"},
	"units": {"Price": "$", "Growth": "%"},
	"potential_issues": [
		{"column": "Price", "issue": "contains dollar signs and commas"},
		{"column": "Year", "issue": "year ranges like 2010-2015"}
	],
	"remove_candidates": [
		{"column": "id", "reason": "identifier column", "confidence": 0.95}
	],
	"cleaning_priorities": ["Price", "Year"]
}`

func TestParseAnalysisText_PureJSON(t *testing.T) {
	result := ParseAnalysisText(sampleAnalysisJSON)
	require.False(t, result.IsEmpty())

	assert.Equal(t, "sales", result.Domain)
	assert.Equal(t, "$", result.Units["Price"])
	assert.Len(t, result.PotentialIssues, 2)
	assert.Equal(t, "Price", result.PotentialIssues[0].Column)
	require.Len(t, result.RemoveCandidates, 1)
	assert.Equal(t, "id", result.RemoveCandidates[0].Column)
	assert.InDelta(t, 0.95, result.RemoveCandidates[0].Confidence, 1e-9)
	assert.Equal(t, []string{"Price", "Year"}, result.CleaningPriorities)
}

func TestParseAnalysisText_FencedBlock(t *testing.T) {
	text := "Here is my analysis of the data:\n\n```json\n" + sampleAnalysisJSON + "\n```\n\nLet me know if you need more."
	result := ParseAnalysisText(text)
	require.False(t, result.IsEmpty())
	assert.Equal(t, "sales", result.Domain)
}

func TestParseAnalysisText_FencedBlockWithoutLanguage(t *testing.T) {
	text := "```\n{\"domain\": \"finance\"}\n```"
	result := ParseAnalysisText(text)
	require.False(t, result.IsEmpty())
	assert.Equal(t, "finance", result.Domain)
}

func TestParseAnalysisText_EmbeddedInProse(t *testing.T) {
	text := `After looking at the file I concluded the following {"domain": "retail", "units": {"Revenue": "$"}} which should guide cleaning.`
	result := ParseAnalysisText(text)
	require.False(t, result.IsEmpty())
	assert.Equal(t, "retail", result.Domain)
	assert.Equal(t, "$", result.Units["Revenue"])
}

func TestParseAnalysisText_Garbage(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"空字符串", ""},
		{"纯散文", "the data looks fine to me"},
		{"残缺JSON", `{"domain": "sales"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseAnalysisText(tt.text)
			assert.True(t, result.IsEmpty())
			assert.Empty(t, ExtractTasks(result), "空结果应产出零任务")
		})
	}
}

func TestParseAnalysisText_TolerantFields(t *testing.T) {
	// description字段别名和非字符串类型不应导致解析失败
	text := `{"potential_issues": [{"column": "A", "description": "has commas"}, "not a map"], "units": "oops"}`
	result := ParseAnalysisText(text)
	require.False(t, result.IsEmpty())
	require.Len(t, result.PotentialIssues, 1)
	assert.Equal(t, "has commas", result.PotentialIssues[0].Issue)
	assert.Empty(t, result.Units)
}
