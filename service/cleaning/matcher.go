/*
 * @module service/cleaning/matcher
 * @description 模糊列匹配器，将任务中的文本列引用解析到数据集的实际列
 * @architecture 清洗引擎 - 名称归一化匹配
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 引号剥离 -> NFKC折叠 -> 空白归并 -> 精确匹配 -> 大小写不敏感匹配
 * @rules 未匹配的列名记录诊断后丢弃，多列任务中剩余列名继续匹配
 * @dependencies strings, golang.org/x/text/unicode/norm
 * @refs orchestrator.go
 */

package cleaning

import (
	"log/slog"
	"strings"

	"datacleaner-service/service/dataset"

	"golang.org/x/text/unicode/norm"
)

// MatchColumns 将逗号分隔的列引用解析到数据集实际列名
// 返回成功解析的实际列名（保持引用顺序，去重）和未匹配的引用
func MatchColumns(d *dataset.Dataset, reference string) (matched []string, unmatched []string) {
	normalized := make(map[string]string)
	lowered := make(map[string]string)
	for _, col := range d.Columns() {
		key := normalizeColumnName(col)
		if _, exists := normalized[key]; !exists {
			normalized[key] = col
		}
		lowKey := strings.ToLower(key)
		if _, exists := lowered[lowKey]; !exists {
			lowered[lowKey] = col
		}
	}

	seen := make(map[string]struct{})
	for _, ref := range strings.Split(reference, ",") {
		name := normalizeColumnName(ref)
		if name == "" {
			continue
		}
		actual, ok := normalized[name]
		if !ok {
			actual, ok = lowered[strings.ToLower(name)]
		}
		if !ok {
			slog.Debug("列引用无法解析", "reference", ref)
			unmatched = append(unmatched, strings.TrimSpace(ref))
			continue
		}
		if _, dup := seen[actual]; dup {
			continue
		}
		seen[actual] = struct{}{}
		matched = append(matched, actual)
	}
	return matched, unmatched
}

// normalizeColumnName 归一化列名：剥离首尾引号和空白，
// NFKC折叠统一兼容字符（含不间断空格），空白串归并为单个空格
func normalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, `"'`)
	name = norm.NFKC.String(name)
	return strings.Join(strings.Fields(name), " ")
}
