/*
 * @module service/cleaning/outlier
 * @description 多方法共识异常值检测与封顶处理：IQR、z-score和孤立森林三法投票，偏态分布走分位数封顶
 * @architecture 清洗引擎 - 共识检测
 * @dataFlow 偏度判定 -> 偏态分支P1/P99封顶 | 对称分支三法计数 -> 两法共识 -> IQR边界封顶
 * @rules 封顶而非删除，行数不变；封顶是幂等操作；孤立森林失败计数记0不中断其余方法
 * @dependencies math, gonum.org/v1/gonum/stat, service/dataset
 * @refs isolation.go
 */

package cleaning

import (
	"math"
	"sort"

	"datacleaner-service/service/dataset"
	"datacleaner-service/service/models"

	"gonum.org/v1/gonum/stat"
)

const (
	skewnessLimit         = 1.0
	zScoreLimit           = 3.0
	iqrMultiplier         = 1.5
	isolationMinRows      = 20
	outlierMinObserved    = 4
	outlierMaxMissingRate = 0.5
)

// 检测方法与处置标识
const (
	outlierMethodSkewed    = "IQR (skewed)"
	outlierMethodConsensus = "consensus"
	outlierActionCapped    = "capped"
	outlierActionNone      = "none"
)

// DetectOutliers 对所有数值列执行异常值检测并封顶
// 偏度绝对值超过1的列直接按P1/P99封顶；近似对称的列要求
// IQR、z-score、孤立森林中至少两种方法报告异常才动手
func DetectOutliers(d *dataset.Dataset) *models.OutlierReport {
	report := &models.OutlierReport{
		OutliersFound: make(map[string]int),
		Details:       make([]models.OutlierRecord, 0),
	}

	for _, col := range d.Columns() {
		stats, err := dataset.Describe(d, col)
		if err != nil || stats.Dtype != dataset.DtypeNumeric {
			continue
		}
		// 缺失过半的列统计量不可信，留给缺失值环节处理
		if stats.MissingRate > outlierMaxMissingRate {
			continue
		}
		values, indices := d.NumericValues(col)
		if len(values) < outlierMinObserved {
			continue
		}

		record := inspectColumn(d, col, values, indices)
		// 零检出的列不进入发现映射，明细保留供审计
		if record.Total > 0 {
			report.OutliersFound[col] = record.Total
		}
		report.Details = append(report.Details, record)
	}
	return report
}

// inspectColumn 检测单列并按需封顶
func inspectColumn(d *dataset.Dataset, col string, values []float64, indices []int) models.OutlierRecord {
	record := models.OutlierRecord{Column: col}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	// 常数列偏度未定义，按0处理避免NaN进入报告
	if _, std := stat.MeanStdDev(values, nil); std > 0 {
		record.Skewness = stat.Skew(values, nil)
	}

	q1 := dataset.Quantile(sorted, 0.25)
	q3 := dataset.Quantile(sorted, 0.75)
	iqr := q3 - q1
	iqrLower := q1 - iqrMultiplier*iqr
	iqrUpper := q3 + iqrMultiplier*iqr

	record.IQRCount = countOutside(values, iqrLower, iqrUpper)
	record.ZScoreCount = zScoreCount(values)
	if len(values) >= isolationMinRows {
		record.IsolationCount = isolationOutlierCount(values)
	}

	// 重尾分布下z-score会误报，仅当IQR确有发现时退而封顶极端分位
	if math.Abs(record.Skewness) > skewnessLimit {
		record.Method = outlierMethodSkewed
		record.Action = outlierActionNone
		if record.IQRCount == 0 {
			return record
		}
		lower := dataset.Quantile(sorted, 0.01)
		upper := dataset.Quantile(sorted, 0.99)
		record.Total = capColumn(d, col, indices, values, lower, upper)
		if record.Total > 0 {
			record.Action = outlierActionCapped
		}
		return record
	}
	record.Method = outlierMethodConsensus

	agreeing := 0
	sum := 0
	for _, count := range []int{record.IQRCount, record.ZScoreCount, record.IsolationCount} {
		if count > 0 {
			agreeing++
			sum += count
		}
	}
	if agreeing < 2 {
		record.Action = outlierActionNone
		return record
	}

	record.Total = sum / agreeing
	record.Action = outlierActionCapped
	capColumn(d, col, indices, values, iqrLower, iqrUpper)
	return record
}

// capColumn 将观测值截断到[lower, upper]区间并回写数据集，返回被截断的单元格数
func capColumn(d *dataset.Dataset, col string, indices []int, values []float64, lower, upper float64) int {
	column, _ := d.Column(col)
	capped := 0
	for i, v := range values {
		switch {
		case v < lower:
			column[indices[i]] = lower
			capped++
		case v > upper:
			column[indices[i]] = upper
			capped++
		}
	}
	return capped
}

func countOutside(values []float64, lower, upper float64) int {
	count := 0
	for _, v := range values {
		if v < lower || v > upper {
			count++
		}
	}
	return count
}

// zScoreCount 统计标准分绝对值超过3的观测数，零方差列恒为0
func zScoreCount(values []float64) int {
	mean, std := stat.MeanStdDev(values, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	count := 0
	for _, v := range values {
		if math.Abs((v-mean)/std) > zScoreLimit {
			count++
		}
	}
	return count
}
