/*
 * @module service/cleaning/orchestrator
 * @description 转换编排器：解析分析文本、提取任务、匹配列、置信度门控、逐任务执行并汇总报告
 * @architecture 清洗引擎 - 编排层
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 文本解析 -> 任务提取 -> 列匹配 -> 门控 -> 类型分发执行 -> 列移除 -> 备份清理 -> 报告
 * @rules 单任务失败只记录不中断；置信度低于0.6或类型未知的任务跳过；列移除要求置信度不低于0.7
 * @dependencies log/slog, service/dataset, service/models
 * @refs transformations.go, tasks.go, matcher.go
 */

package cleaning

import (
	"log/slog"

	"datacleaner-service/service/dataset"
	"datacleaner-service/service/models"
)

// 置信度门限
const (
	applyConfidenceGate  = 0.6
	removeConfidenceGate = 0.7
)

// ApplyAnalysisText 解析分析文本并执行其中的转换建议
func ApplyAnalysisText(d *dataset.Dataset, text string) *models.TransformationReport {
	return ApplyAnalysis(d, ParseAnalysisText(text))
}

// ApplyAnalysis 执行结构化分析结果：转换任务、列移除、备份清理
// 空分析结果是合法输入，产出零任务报告
func ApplyAnalysis(d *dataset.Dataset, analysis *models.AnalysisResult) *models.TransformationReport {
	report := &models.TransformationReport{
		Applied:        make([]models.TransformationRecord, 0),
		Skipped:        make([]models.SkippedTask, 0),
		Failed:         make([]models.TransformationRecord, 0),
		RemovedColumns: make([]models.RemovalRecord, 0),
		DroppedBackups: make([]string, 0),
	}

	tasks := ExtractTasks(analysis)
	report.TaskCount = len(tasks)

	for _, task := range tasks {
		runTask(d, task, report)
	}

	removeCandidateColumns(d, analysis, report)
	report.DroppedBackups = d.DropBackups()
	return report
}

// runTask 门控并执行单个任务，每个匹配到的实际列各产生一条记录
func runTask(d *dataset.Dataset, task models.TransformationTask, report *models.TransformationReport) {
	if task.Type == models.TransformUnknown || task.Confidence < applyConfidenceGate {
		report.Skipped = append(report.Skipped, models.SkippedTask{
			Column:     task.Column,
			Type:       string(task.Type),
			Confidence: task.Confidence,
			Reason:     "confidence below threshold or unknown transform type",
		})
		return
	}

	matched, unmatched := MatchColumns(d, task.Column)
	for _, ref := range unmatched {
		report.Skipped = append(report.Skipped, models.SkippedTask{
			Column:     ref,
			Type:       string(task.Type),
			Confidence: task.Confidence,
			Reason:     "column not found in dataset",
		})
	}

	for _, column := range matched {
		record := dispatchTransform(d, column, task.Type)
		if record.Success {
			report.Applied = append(report.Applied, record)
		} else {
			slog.Warn("转换执行失败", "column", column, "type", task.Type, "error", record.Error)
			report.Failed = append(report.Failed, record)
		}
	}
}

// dispatchTransform 按任务类型分发到具体转换实现
func dispatchTransform(d *dataset.Dataset, column string, transformType models.TransformType) models.TransformationRecord {
	switch transformType {
	case models.TransformCurrency:
		return CleanCurrencyColumn(d, column)
	case models.TransformPercentage:
		return CleanPercentageColumn(d, column)
	case models.TransformYear:
		return CleanYearColumn(d, column, YearStrategyStart)
	case models.TransformBoolean:
		return CleanBooleanColumn(d, column)
	case models.TransformText:
		return CleanTextColumn(d, column)
	case models.TransformConvertType:
		return ConvertNumericColumn(d, column)
	default:
		return models.TransformationRecord{
			Column: column,
			Type:   string(transformType),
			Error:  "不支持的转换类型",
		}
	}
}

// removeCandidateColumns 执行达到置信度门限的列移除建议
func removeCandidateColumns(d *dataset.Dataset, analysis *models.AnalysisResult, report *models.TransformationReport) {
	for _, candidate := range analysis.RemoveCandidates {
		if candidate.Confidence < removeConfidenceGate {
			slog.Debug("列移除建议置信度不足", "column", candidate.Column, "confidence", candidate.Confidence)
			continue
		}
		matched, _ := MatchColumns(d, candidate.Column)
		for _, column := range matched {
			d.DropColumn(column)
			report.RemovedColumns = append(report.RemovedColumns, models.RemovalRecord{
				Column:     column,
				Reason:     candidate.Reason,
				Confidence: candidate.Confidence,
			})
		}
	}
}
