/*
 * @module service/cleaning/llm_parser
 * @description 分析文本解析器，从非结构化文本中提取结构化分析结果，支持纯JSON、代码块JSON和散文内嵌JSON
 * @architecture 清洗引擎 - 尽力而为解析
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 整体JSON解析 -> 代码块扫描 -> 花括号片段扫描 -> 空结果兜底
 * @rules 解析失败返回空等价结果，绝不向外抛出错误；所有字段容忍缺失
 * @dependencies encoding/json, regexp, github.com/spf13/cast
 * @refs tasks.go
 */

package cleaning

import (
	"encoding/json"
	"regexp"

	"datacleaner-service/service/models"

	"github.com/spf13/cast"
)

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	jsonObjectPattern  = regexp.MustCompile(`(?s)\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// ParseAnalysisText 从自由文本中解析结构化分析结果
// 依次尝试：整体JSON、markdown代码块内JSON、文本中的花括号片段
// 全部失败时返回空等价结果，调用方据此得到零任务
func ParseAnalysisText(text string) *models.AnalysisResult {
	if text == "" {
		return &models.AnalysisResult{}
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(text), &raw); err == nil {
		return buildAnalysisResult(raw)
	}

	for _, match := range fencedBlockPattern.FindAllStringSubmatch(text, -1) {
		if err := json.Unmarshal([]byte(match[1]), &raw); err == nil {
			return buildAnalysisResult(raw)
		}
	}

	for _, match := range jsonObjectPattern.FindAllString(text, -1) {
		if err := json.Unmarshal([]byte(match), &raw); err == nil {
			return buildAnalysisResult(raw)
		}
	}

	return &models.AnalysisResult{}
}

// buildAnalysisResult 从原始map构建分析结果，所有字段容忍缺失和类型偏差
func buildAnalysisResult(raw map[string]interface{}) *models.AnalysisResult {
	result := &models.AnalysisResult{
		Domain: cast.ToString(raw["domain"]),
		Raw:    raw,
	}

	if dt, err := cast.ToStringMapStringE(raw["data_types"]); err == nil && len(dt) > 0 {
		result.DataTypes = dt
	}
	if units, err := cast.ToStringMapStringE(raw["units"]); err == nil && len(units) > 0 {
		result.Units = units
	}
	if priorities, err := cast.ToStringSliceE(raw["cleaning_priorities"]); err == nil && len(priorities) > 0 {
		result.CleaningPriorities = priorities
	}

	for _, entry := range toEntryList(raw["remove_candidates"]) {
		candidate := models.RemoveCandidate{
			Column:     cast.ToString(entry["column"]),
			Reason:     cast.ToString(entry["reason"]),
			Confidence: cast.ToFloat64(entry["confidence"]),
		}
		if candidate.Column != "" {
			result.RemoveCandidates = append(result.RemoveCandidates, candidate)
		}
	}

	for _, entry := range toEntryList(raw["potential_issues"]) {
		issue := models.PotentialIssue{
			Column:   cast.ToString(entry["column"]),
			Issue:    firstNonEmpty(cast.ToString(entry["issue"]), cast.ToString(entry["description"])),
			Severity: cast.ToString(entry["severity"]),
		}
		if issue.Column != "" || issue.Issue != "" {
			result.PotentialIssues = append(result.PotentialIssues, issue)
		}
	}

	return result
}

// toEntryList 将任意值规整为map列表，非列表或非map项被丢弃
func toEntryList(v interface{}) []map[string]interface{} {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	entries := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if entry, isMap := item.(map[string]interface{}); isMap {
			entries = append(entries, entry)
		}
	}
	return entries
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
