/*
 * @module service/cleaning/imputer
 * @description 自适应缺失值填充策略器，按缺失率和列类型选择填充方法并执行，多元方法失败时回退中位数
 * @architecture 清洗引擎 - 决策树选择器
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 统计快照 -> 策略决策 -> 填充执行 -> 失败回退 -> 报告记录
 * @rules 决策按顺序求值首个命中生效；多元方法的失败绝不逃逸出本阶段；只替换目标列的缺失单元格
 * @dependencies gonum.org/v1/gonum/stat, service/dataset
 * @refs knn.go, iterative.go
 */

package cleaning

import (
	"log/slog"

	"datacleaner-service/service/dataset"
	"datacleaner-service/service/models"
)

// 缺失率决策边界
const (
	skipMissingThreshold = 0.70
	categoricalModeBand  = 0.40
	medianFillBand       = 0.05
	knnBandUpper         = 0.30
)

// 填充方法标识
const (
	imputeMethodSkip           = "skip"
	imputeMethodMode           = "mode"
	imputeMethodUnknown        = "unknown_category"
	imputeMethodMedian         = "median"
	imputeMethodKNN            = "knn"
	imputeMethodIterative      = "iterative"
	imputeMethodMedianFallback = "median_fallback"
)

// ImputeMissing 对数据集中所有含缺失值的列选择并执行填充策略
// 每列恰好应用一种策略或被标记跳过；缺失计数无条件记录
func ImputeMissing(d *dataset.Dataset) *models.ImputationReport {
	report := &models.ImputationReport{
		MissingCounts: make(map[string]int),
		Imputed:       make([]models.ImputationRecord, 0),
		Skipped:       make([]models.ImputationRecord, 0),
	}

	for _, col := range d.Columns() {
		stats, err := dataset.Describe(d, col)
		if err != nil {
			continue
		}
		report.MissingCounts[col] = stats.Missing
		if stats.Missing == 0 {
			continue
		}

		record := models.ImputationRecord{
			Column:       col,
			MissingCount: stats.Missing,
			MissingRate:  stats.MissingRate,
		}

		switch {
		case stats.MissingRate > skipMissingThreshold:
			record.Method = imputeMethodSkip
			record.Reason = "too much missing data, consider removal"
			report.Skipped = append(report.Skipped, record)

		case stats.Dtype == dataset.DtypeText:
			if stats.MissingRate < categoricalModeBand {
				report.Imputed = append(report.Imputed, imputeCategorical(d, col, record))
			} else {
				record.Method = imputeMethodSkip
				record.Reason = "high missingness in categorical column"
				report.Skipped = append(report.Skipped, record)
			}

		default:
			report.Imputed = append(report.Imputed, imputeNumeric(d, col, stats, record))
		}
	}

	return report
}

// imputeCategorical 类别列填充：众数优先，无众数时填充"Unknown"哨兵类别
func imputeCategorical(d *dataset.Dataset, col string, record models.ImputationRecord) models.ImputationRecord {
	values, _ := d.Column(col)
	fill, ok := dataset.Mode(values)
	if ok {
		record.Method = imputeMethodMode
	} else {
		fill = "Unknown"
		record.Method = imputeMethodUnknown
		record.Reason = "no mode available, filled sentinel category"
	}
	fillMissing(values, fill)
	return record
}

// imputeNumeric 数值列填充：低缺失中位数、中缺失KNN、高缺失迭代回归
// 多元方法失败时回退中位数并记录触发错误
func imputeNumeric(d *dataset.Dataset, col string, stats *dataset.ColumnStats, record models.ImputationRecord) models.ImputationRecord {
	switch {
	case stats.MissingRate < medianFillBand:
		// 中位数对异常值稳健
		record.Method = imputeMethodMedian
		fillColumnMissing(d, col, stats.Median)

	case stats.MissingRate < knnBandUpper:
		record.Method = imputeMethodKNN
		if err := knnImpute(d, col); err != nil {
			slog.Warn("KNN填充失败，回退中位数", "column", col, "error", err)
			record.Method = imputeMethodMedianFallback
			record.FallbackError = err.Error()
			fillColumnMissing(d, col, stats.Median)
		}

	default:
		record.Method = imputeMethodIterative
		if err := iterativeImpute(d, col); err != nil {
			slog.Warn("迭代填充失败，回退中位数", "column", col, "error", err)
			record.Method = imputeMethodMedianFallback
			record.FallbackError = err.Error()
			fillColumnMissing(d, col, stats.Median)
		}
	}
	return record
}

// fillColumnMissing 用固定值填充列的缺失单元格
func fillColumnMissing(d *dataset.Dataset, col string, fill float64) {
	values, _ := d.Column(col)
	fillMissing(values, fill)
}

func fillMissing(values []interface{}, fill interface{}) {
	for i, v := range values {
		if dataset.IsMissing(v) {
			values[i] = fill
		}
	}
}
