/*
 * @module service/dataset/statistics
 * @description 列统计快照计算，包括缺失率、类型归类、基数、分位数、均值、中位数、标准差和偏度
 * @architecture 数据模型层 - 派生只读统计
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 按需计算 -> 驱动清洗决策 -> 随数据变更失效
 * @rules 统计快照只读，数据变更后必须重新计算，禁止跨阶段缓存
 * @dependencies gonum.org/v1/gonum/stat
 * @refs dataset.go
 */

package dataset

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/stat"
)

// 列类型归类
const (
	DtypeNumeric = "numeric"
	DtypeText    = "text"
)

// ColumnStats 单列统计快照
// 数值统计字段仅在 Dtype 为 numeric 且存在非缺失值时有效
type ColumnStats struct {
	Name        string  `json:"name"`
	Dtype       string  `json:"dtype"`
	Rows        int     `json:"rows"`
	Missing     int     `json:"missing"`
	MissingRate float64 `json:"missing_rate"`
	Cardinality int     `json:"cardinality"`
	Mean        float64 `json:"mean,omitempty"`
	Median      float64 `json:"median,omitempty"`
	StdDev      float64 `json:"std_dev,omitempty"`
	Skewness    float64 `json:"skewness,omitempty"`
	Q1          float64 `json:"q1,omitempty"`
	Q3          float64 `json:"q3,omitempty"`
}

// Describe 计算列统计快照
func Describe(d *Dataset, name string) (*ColumnStats, error) {
	values, ok := d.Column(name)
	if !ok {
		return nil, fmt.Errorf("列 %s 不存在", name)
	}

	stats := &ColumnStats{
		Name: name,
		Rows: len(values),
	}

	distinct := make(map[string]struct{})
	numeric := true
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if IsMissing(v) {
			stats.Missing++
			continue
		}
		distinct[cast.ToString(v)] = struct{}{}
		if f, isFloat := v.(float64); isFloat {
			nums = append(nums, f)
		} else {
			numeric = false
		}
	}
	stats.Cardinality = len(distinct)
	if len(values) > 0 {
		stats.MissingRate = float64(stats.Missing) / float64(len(values))
	}

	// 类型归类：所有非缺失单元格均为数值时归为numeric，否则归为text
	if numeric && len(nums) > 0 {
		stats.Dtype = DtypeNumeric
		sort.Float64s(nums)
		stats.Mean = stat.Mean(nums, nil)
		stats.Median = Quantile(nums, 0.5)
		stats.Q1 = Quantile(nums, 0.25)
		stats.Q3 = Quantile(nums, 0.75)
		if len(nums) > 1 {
			stats.StdDev = stat.StdDev(nums, nil)
		}
		if len(nums) > 2 && stats.StdDev > 0 {
			stats.Skewness = stat.Skew(nums, nil)
		}
	} else {
		stats.Dtype = DtypeText
	}

	return stats, nil
}

// Quantile 线性插值分位数，输入必须已升序排序
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// Mode 返回列的众数（出现次数最多的非缺失值）
// 次数相同时取首次出现的值；无非缺失值时ok为false
func Mode(values []interface{}) (interface{}, bool) {
	counts := make(map[string]int)
	first := make(map[string]interface{})
	order := make([]string, 0)
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		key := cast.ToString(v)
		if _, seen := counts[key]; !seen {
			first[key] = v
			order = append(order, key)
		}
		counts[key]++
	}
	if len(order) == 0 {
		return nil, false
	}
	bestKey := order[0]
	for _, key := range order {
		if counts[key] > counts[bestKey] {
			bestKey = key
		}
	}
	return first[bestKey], true
}
