/*
 * @module service/cleaning/transformations
 * @description 列级语义转换实现：货币、百分比、年份、布尔、文本和通用数值转换，带备份/校验/回滚安全契约
 * @architecture 清洗引擎 - 无状态转换函数
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 创建备份列 -> 执行转换 -> 校验转换率 -> 达标提交/不达标回滚
 * @rules 校验失败时目标列保持逐字节不变并删除备份列，失败的转换是可重复的空操作
 * @dependencies regexp, strconv, strings, github.com/spf13/cast
 * @refs orchestrator.go, service/dataset
 */

package cleaning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"datacleaner-service/service/dataset"
	"datacleaner-service/service/models"

	"github.com/spf13/cast"
)

// 转换率校验阈值
// 百分比和布尔类文本噪声更大，阈值低于货币
const (
	currencyThreshold   = 0.8
	percentageThreshold = 0.7
	yearThreshold       = 0.7
	booleanThreshold    = 0.7
)

// 年份提取策略
const (
	YearStrategyStart = "start_year"
	YearStrategyEnd   = "end_year"
	YearStrategyKeep  = "keep_range"
)

var (
	yearPattern       = regexp.MustCompile(`\d{4}`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	currencySymbols   = strings.NewReplacer("$", "", "₹", "", "€", "", "£", "", "¥", "", ",", "")
	percentWord       = regexp.MustCompile(`(?i)percent`)
)

var booleanTrueValues = map[string]struct{}{
	"yes": {}, "true": {}, "1": {}, "t": {}, "y": {},
}

var booleanFalseValues = map[string]struct{}{
	"no": {}, "false": {}, "0": {}, "f": {}, "n": {},
}

// CleanCurrencyColumn 清洗货币列：剥离货币符号和千分位分隔符后转数值
// 非缺失单元格转换率低于80%时回滚
func CleanCurrencyColumn(d *dataset.Dataset, column string) models.TransformationRecord {
	return applyNumericConversion(d, column, string(models.TransformCurrency), currencyThreshold,
		func(cell string) (interface{}, bool) {
			cleaned := strings.TrimSpace(currencySymbols.Replace(cell))
			if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
				return f, true
			}
			return nil, false
		})
}

// CleanPercentageColumn 清洗百分比列：剥离%和percent后转数值并除以100
// 非缺失单元格转换率低于70%时回滚
func CleanPercentageColumn(d *dataset.Dataset, column string) models.TransformationRecord {
	return applyNumericConversion(d, column, string(models.TransformPercentage), percentageThreshold,
		func(cell string) (interface{}, bool) {
			cleaned := strings.ReplaceAll(cell, "%", "")
			cleaned = percentWord.ReplaceAllString(cleaned, "")
			cleaned = strings.TrimSpace(cleaned)
			if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
				return f / 100, true
			}
			return nil, false
		})
}

// ConvertNumericColumn 通用数值类型转换，用于convert_type任务
// 无符号剥离，直接尝试数值解析，校验契约与货币一致
func ConvertNumericColumn(d *dataset.Dataset, column string) models.TransformationRecord {
	return applyNumericConversion(d, column, string(models.TransformConvertType), currencyThreshold,
		func(cell string) (interface{}, bool) {
			if f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
				return f, true
			}
			return nil, false
		})
}

// CleanYearColumn 清洗年份列：提取四位数字年份
// start_year取首个匹配，end_year取末个匹配，keep_range不做修改
func CleanYearColumn(d *dataset.Dataset, column, strategy string) models.TransformationRecord {
	record := models.TransformationRecord{Column: column, Type: string(models.TransformYear), Strategy: strategy}
	if !d.HasColumn(column) {
		record.Error = fmt.Sprintf("列 %s 不存在", column)
		return record
	}

	backupCol, err := d.Backup(column)
	if err != nil {
		record.Error = err.Error()
		return record
	}

	if strategy == YearStrategyKeep {
		record.Success = true
		record.BackupColumn = backupCol
		return record
	}

	values, _ := d.Column(column)
	transformed := make([]interface{}, len(values))
	converted := 0
	nonMissing := 0
	for i, v := range values {
		if dataset.IsMissing(v) {
			transformed[i] = nil
			continue
		}
		nonMissing++
		matches := yearPattern.FindAllString(cast.ToString(v), -1)
		if len(matches) == 0 {
			transformed[i] = nil
			continue
		}
		picked := matches[0]
		if strategy == YearStrategyEnd {
			picked = matches[len(matches)-1]
		}
		year, _ := strconv.ParseFloat(picked, 64)
		transformed[i] = year
		converted++
	}

	rate := conversionRate(converted, nonMissing)
	if rate < yearThreshold {
		d.DropColumn(backupCol)
		record.ConversionRate = rate
		record.Error = fmt.Sprintf("仅 %.1f%% 的值匹配年份模式，转换中止", rate*100)
		return record
	}

	if err := d.SetColumn(column, transformed); err != nil {
		d.DropColumn(backupCol)
		record.Error = err.Error()
		return record
	}

	record.Success = true
	record.RowsAffected = converted
	record.ConversionRate = rate
	record.BackupColumn = backupCol
	return record
}

// CleanBooleanColumn 清洗布尔列：yes/true/1/t/y与no/false/0/f/n大小写不敏感映射
// 非缺失单元格转换率低于70%时回滚
func CleanBooleanColumn(d *dataset.Dataset, column string) models.TransformationRecord {
	record := models.TransformationRecord{Column: column, Type: string(models.TransformBoolean)}
	if !d.HasColumn(column) {
		record.Error = fmt.Sprintf("列 %s 不存在", column)
		return record
	}

	backupCol, err := d.Backup(column)
	if err != nil {
		record.Error = err.Error()
		return record
	}

	values, _ := d.Column(column)
	transformed := make([]interface{}, len(values))
	converted := 0
	nonMissing := 0
	for i, v := range values {
		if dataset.IsMissing(v) {
			transformed[i] = nil
			continue
		}
		nonMissing++
		cell := strings.ToLower(strings.TrimSpace(cast.ToString(v)))
		if _, ok := booleanTrueValues[cell]; ok {
			transformed[i] = true
			converted++
		} else if _, ok := booleanFalseValues[cell]; ok {
			transformed[i] = false
			converted++
		} else {
			transformed[i] = nil
		}
	}

	rate := conversionRate(converted, nonMissing)
	if rate < booleanThreshold {
		d.DropColumn(backupCol)
		record.ConversionRate = rate
		record.Error = fmt.Sprintf("仅 %.1f%% 的值可转换为布尔值，转换中止", rate*100)
		return record
	}

	if err := d.SetColumn(column, transformed); err != nil {
		d.DropColumn(backupCol)
		record.Error = err.Error()
		return record
	}

	record.Success = true
	record.RowsAffected = converted
	record.ConversionRate = rate
	record.BackupColumn = backupCol
	return record
}

// CleanTextColumn 通用文本清洗：剥离首尾空白并归并内部空白
// 风险最低的转换，始终成功，无校验阈值
func CleanTextColumn(d *dataset.Dataset, column string) models.TransformationRecord {
	record := models.TransformationRecord{Column: column, Type: string(models.TransformText)}
	if !d.HasColumn(column) {
		record.Error = fmt.Sprintf("列 %s 不存在", column)
		return record
	}

	backupCol, err := d.Backup(column)
	if err != nil {
		record.Error = err.Error()
		return record
	}

	values, _ := d.Column(column)
	transformed := make([]interface{}, len(values))
	affected := 0
	for i, v := range values {
		if dataset.IsMissing(v) {
			transformed[i] = nil
			continue
		}
		cell, isString := v.(string)
		if !isString {
			transformed[i] = v
			continue
		}
		cleaned := whitespacePattern.ReplaceAllString(strings.TrimSpace(cell), " ")
		transformed[i] = cleaned
		if cleaned != cell {
			affected++
		}
	}

	if err := d.SetColumn(column, transformed); err != nil {
		d.DropColumn(backupCol)
		record.Error = err.Error()
		return record
	}

	record.Success = true
	record.RowsAffected = affected
	record.ConversionRate = 1
	record.BackupColumn = backupCol
	return record
}

// RollbackTransformation 利用备份列恢复转换前的值并删除备份列
func RollbackTransformation(d *dataset.Dataset, record models.TransformationRecord) error {
	if !record.Success || record.BackupColumn == "" {
		return nil
	}
	return d.Rollback(record.Column)
}

// applyNumericConversion 数值类转换的公共骨架：备份、逐格转换、校验、提交或回滚
func applyNumericConversion(d *dataset.Dataset, column, transformType string, threshold float64,
	convert func(cell string) (interface{}, bool)) models.TransformationRecord {

	record := models.TransformationRecord{Column: column, Type: transformType}
	if !d.HasColumn(column) {
		record.Error = fmt.Sprintf("列 %s 不存在", column)
		return record
	}

	backupCol, err := d.Backup(column)
	if err != nil {
		record.Error = err.Error()
		return record
	}

	values, _ := d.Column(column)
	transformed := make([]interface{}, len(values))
	converted := 0
	nonMissing := 0
	for i, v := range values {
		if dataset.IsMissing(v) {
			transformed[i] = nil
			continue
		}
		nonMissing++
		if result, ok := convert(cast.ToString(v)); ok {
			transformed[i] = result
			converted++
		} else {
			transformed[i] = nil
		}
	}

	rate := conversionRate(converted, nonMissing)
	if rate < threshold {
		d.DropColumn(backupCol)
		record.ConversionRate = rate
		record.Error = fmt.Sprintf("仅 %.1f%% 的值可转换，转换中止以防数据丢失", rate*100)
		return record
	}

	if err := d.SetColumn(column, transformed); err != nil {
		d.DropColumn(backupCol)
		record.Error = err.Error()
		return record
	}

	record.Success = true
	record.RowsAffected = converted
	record.ConversionRate = rate
	record.BackupColumn = backupCol
	return record
}

// conversionRate 按非缺失单元格计算转换率，全缺失列转换率为0
func conversionRate(converted, nonMissing int) float64 {
	if nonMissing == 0 {
		return 0
	}
	return float64(converted) / float64(nonMissing)
}
