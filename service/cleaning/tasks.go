/*
 * @module service/cleaning/tasks
 * @description 转换任务提取器，将结构化分析结果转换为有序的列级转换任务列表
 * @architecture 清洗引擎 - 规则推断
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 问题字段扫描 -> 引号列名精炼 -> 单位优先分类 -> 关键词回退分类 -> 单位兜底任务合成
 * @rules 单位字段的分类优先于描述关键词；空分析结果优雅退化为零任务
 * @dependencies regexp, strings, github.com/spf13/cast
 * @refs llm_parser.go, orchestrator.go
 */

package cleaning

import (
	"regexp"
	"sort"
	"strings"

	"datacleaner-service/service/models"

	"github.com/spf13/cast"
)

// 问题条目可能出现的字段别名
var issueFieldAliases = []string{"potential_issues", "issues", "problems", "suggestions", "recommendations"}

// 货币单位符号
var currencyUnits = map[string]struct{}{
	"$": {}, "₹": {}, "€": {}, "£": {}, "¥": {},
}

var (
	singleQuotedPattern = regexp.MustCompile(`'([^']+)'`)
	doubleQuotedPattern = regexp.MustCompile(`"([^"]+)"`)
	yearRangePattern    = regexp.MustCompile(`\d{4}[-–]\d{4}`)
)

// ExtractTasks 从分析结果中提取转换任务
// 扫描所有问题字段别名，每个有效条目生成一个任务；
// 单位字段中未被任何任务覆盖的条目额外合成兜底任务，保证显式标注的单位不被遗漏
func ExtractTasks(analysis *models.AnalysisResult) []models.TransformationTask {
	if analysis.IsEmpty() {
		return nil
	}

	var tasks []models.TransformationTask
	for _, alias := range issueFieldAliases {
		for _, entry := range toEntryList(analysis.Raw[alias]) {
			if task, ok := issueToTask(entry, analysis); ok {
				tasks = append(tasks, task)
			}
		}
	}

	tasks = append(tasks, synthesizeUnitTasks(analysis, tasks)...)
	return tasks
}

// issueToTask 将单个问题条目转换为任务
func issueToTask(entry map[string]interface{}, analysis *models.AnalysisResult) (models.TransformationTask, bool) {
	column := cast.ToString(entry["column"])
	description := firstNonEmpty(cast.ToString(entry["issue"]), cast.ToString(entry["description"]))
	if column == "" || description == "" {
		return models.TransformationTask{}, false
	}

	// 描述中的引号列名比条目自身的column字段更可靠，
	// 能处理一条描述指涉多列或列名格式特殊的情况
	if quoted := quotedColumnNames(description); len(quoted) > 0 {
		column = strings.Join(quoted, ", ")
	}

	task := models.TransformationTask{
		Column:      column,
		Description: description,
		Provenance:  models.ProvenanceIssueText,
	}

	// 优先检查单位字段
	if unit, found := unitForColumns(column, analysis.Units); found {
		if taskType, confidence, ok := classifyByUnit(unit); ok {
			task.Type = taskType
			task.Confidence = confidence
			task.UnitDetected = unit
			return task, true
		}
		task.UnitDetected = unit
	}

	task.Type, task.Confidence = classifyByKeywords(description)
	return task, true
}

// quotedColumnNames 提取描述中的引号子串作为列名候选
// 优先单引号；超过100字符的子串视为整句而非列名，被过滤
func quotedColumnNames(description string) []string {
	matches := singleQuotedPattern.FindAllStringSubmatch(description, -1)
	if len(matches) == 0 {
		matches = doubleQuotedPattern.FindAllStringSubmatch(description, -1)
	}
	var names []string
	for _, m := range matches {
		if len(m[1]) < 100 {
			names = append(names, m[1])
		}
	}
	return names
}

// unitForColumns 在单位映射中查找任务指涉的任一列
// 先精确匹配，再大小写不敏感匹配
func unitForColumns(column string, units map[string]string) (string, bool) {
	if len(units) == 0 {
		return "", false
	}
	for _, ref := range strings.Split(column, ",") {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if unit, ok := units[ref]; ok {
			return unit, true
		}
		for unitCol, unit := range units {
			if strings.EqualFold(unitCol, ref) {
				return unit, true
			}
		}
	}
	return "", false
}

// classifyByUnit 按单位符号分类，单位标注来自显式分析，置信度高
func classifyByUnit(unit string) (models.TransformType, float64, bool) {
	if _, ok := currencyUnits[unit]; ok {
		return models.TransformCurrency, 0.9, true
	}
	if unit == "%" || strings.EqualFold(unit, "percent") {
		return models.TransformPercentage, 0.9, true
	}
	return models.TransformUnknown, 0, false
}

// classifyByKeywords 按描述关键词分类，作为无单位标注时的回退
func classifyByKeywords(description string) (models.TransformType, float64) {
	lower := strings.ToLower(description)

	switch {
	case containsAny(lower, "comma", "dollar", "$", "currency", "numeric", "₹", "€", "£", "¥"):
		return models.TransformCurrency, 0.8
	case containsAny(lower, "year", "date", "time", "range"):
		// "range"可能指数值区间而非年份区间，需要四位年份模式或字面"year"佐证
		if yearRangePattern.MatchString(description) || strings.Contains(lower, "year") {
			return models.TransformYear, 0.7
		}
		return models.TransformUnknown, 0.5
	case containsAny(lower, "percent", "%", "percentage"):
		return models.TransformPercentage, 0.8
	case containsAny(lower, "yes/no", "true/false", "boolean", "binary"):
		return models.TransformBoolean, 0.7
	case containsAny(lower, "text", "string", "format", "whitespace", "inconsistent format"):
		return models.TransformText, 0.6
	case containsAny(lower, "type", "dtype", "convert", "cast"):
		return models.TransformConvertType, 0.7
	default:
		return models.TransformUnknown, 0.5
	}
}

// synthesizeUnitTasks 为未被已提取任务覆盖的单位条目合成任务
// 保证分析显式标注了单位的列即使没有文字性问题描述也会被处理
func synthesizeUnitTasks(analysis *models.AnalysisResult, existing []models.TransformationTask) []models.TransformationTask {
	var synthesized []models.TransformationTask
	for _, col := range sortedKeys(analysis.Units) {
		unit := analysis.Units[col]
		taskType, confidence, ok := classifyByUnit(unit)
		if !ok {
			continue
		}
		if taskCovers(existing, col) {
			continue
		}
		synthesized = append(synthesized, models.TransformationTask{
			Column:       col,
			Type:         taskType,
			Description:  "column carries explicit unit " + unit,
			Confidence:   confidence,
			Provenance:   models.ProvenanceUnitsField,
			UnitDetected: unit,
		})
	}
	return synthesized
}

// taskCovers 判断列是否已被某个任务的列引用覆盖（大小写不敏感）
func taskCovers(tasks []models.TransformationTask, column string) bool {
	for _, task := range tasks {
		for _, ref := range strings.Split(task.Column, ",") {
			if strings.EqualFold(strings.TrimSpace(ref), column) {
				return true
			}
		}
	}
	return false
}

// sortedKeys 返回map的升序键列表，保证任务合成顺序确定
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
