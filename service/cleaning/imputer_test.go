/*
 * @module service/cleaning/imputer_test
 * @description 缺失值填充策略器的单元测试
 * @architecture 单元测试 - 验证决策树分支和回退行为
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 数据准备 -> 策略执行 -> 填充结果与报告验证
 * @rules 覆盖所有缺失率决策带、类别列众数填充和多元方法回退
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs imputer.go
 */

package cleaning

import (
	"testing"

	"datacleaner-service/service/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImputeMissing_RecordsCountsUnconditionally(t *testing.T) {
	d := singleColumn(t, "full", []interface{}{1.0, 2.0, 3.0})
	report := ImputeMissing(d)

	assert.Equal(t, 0, report.MissingCounts["full"])
	assert.Empty(t, report.Imputed)
	assert.Empty(t, report.Skipped)
}

func TestImputeMissing_SkipsHighMissingness(t *testing.T) {
	// 8/10缺失，超过70%
	d := singleColumn(t, "sparse", []interface{}{1.0, 2.0, nil, nil, nil, nil, nil, nil, nil, nil})
	report := ImputeMissing(d)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, imputeMethodSkip, report.Skipped[0].Method)
	assert.Contains(t, report.Skipped[0].Reason, "removal")

	values, _ := d.Column("sparse")
	assert.Nil(t, values[2], "跳过的列不应被填充")
}

func TestImputeMissing_CategoricalMode(t *testing.T) {
	d := singleColumn(t, "city", []interface{}{"NYC", "NYC", "LA", nil, "NYC", "LA", "NYC", "LA", "NYC", "LA"})
	report := ImputeMissing(d)

	require.Len(t, report.Imputed, 1)
	assert.Equal(t, imputeMethodMode, report.Imputed[0].Method)

	values, _ := d.Column("city")
	assert.Equal(t, "NYC", values[3])
}

func TestImputeMissing_CategoricalHighMissingnessSkipped(t *testing.T) {
	// 5/10缺失，类别列超过40%带
	d := singleColumn(t, "tag", []interface{}{"a", "b", "a", "b", "a", nil, nil, nil, nil, nil})
	report := ImputeMissing(d)

	require.Len(t, report.Skipped, 1)
	assert.Contains(t, report.Skipped[0].Reason, "categorical")
}

func TestImputeMissing_NumericMedian(t *testing.T) {
	values := make([]interface{}, 30)
	for i := range values {
		values[i] = float64(i + 1)
	}
	values[10] = nil // 1/30 ≈ 3.3%，低于5%带
	d := singleColumn(t, "n", values)

	report := ImputeMissing(d)
	require.Len(t, report.Imputed, 1)
	assert.Equal(t, imputeMethodMedian, report.Imputed[0].Method)

	filled, _ := d.Column("n")
	assert.NotNil(t, filled[10])
}

func TestImputeMissing_KNNFallbackWithoutFeatures(t *testing.T) {
	// 单数值列无法构建KNN特征空间，应回退中位数且不抛错
	values := make([]interface{}, 10)
	for i := range values {
		values[i] = float64(i)
	}
	values[4] = nil // 1/10 = 10%，落在KNN带
	d := singleColumn(t, "lonely", values)

	report := ImputeMissing(d)
	require.Len(t, report.Imputed, 1)
	assert.Equal(t, imputeMethodMedianFallback, report.Imputed[0].Method)
	assert.NotEmpty(t, report.Imputed[0].FallbackError)

	filled, _ := d.Column("lonely")
	assert.NotNil(t, filled[4])
}

func TestImputeMissing_KNN(t *testing.T) {
	d := dataset.New()
	x := make([]interface{}, 10)
	y := make([]interface{}, 10)
	for i := 0; i < 10; i++ {
		x[i] = float64(i)
		y[i] = float64(i * 10)
	}
	y[3] = nil
	y[7] = nil // 2/10 = 20%，落在KNN带
	require.NoError(t, d.AddColumn("x", x))
	require.NoError(t, d.AddColumn("y", y))

	report := ImputeMissing(d)
	require.Len(t, report.Imputed, 1)
	assert.Equal(t, imputeMethodKNN, report.Imputed[0].Method)

	filled, _ := d.Column("y")
	// 捐赠行来自x空间中最近的邻居，填充值应落在邻近y值范围内
	v3 := filled[3].(float64)
	assert.Greater(t, v3, 0.0)
	assert.Less(t, v3, 90.0)
	assert.NotNil(t, filled[7])
}

func TestImputeMissing_Iterative(t *testing.T) {
	d := dataset.New()
	x := make([]interface{}, 10)
	y := make([]interface{}, 10)
	for i := 0; i < 10; i++ {
		x[i] = float64(i + 1)
		y[i] = float64((i + 1) * 2)
	}
	// 4/10 = 40%，落在迭代带
	y[1], y[4], y[6], y[8] = nil, nil, nil, nil
	require.NoError(t, d.AddColumn("x", x))
	require.NoError(t, d.AddColumn("y", y))

	report := ImputeMissing(d)
	require.Len(t, report.Imputed, 1)
	assert.Equal(t, imputeMethodIterative, report.Imputed[0].Method)

	// y = 2x 的线性关系应被回归恢复
	filled, _ := d.Column("y")
	assert.InDelta(t, 4.0, filled[1].(float64), 1e-6)
	assert.InDelta(t, 10.0, filled[4].(float64), 1e-6)
	assert.InDelta(t, 14.0, filled[6].(float64), 1e-6)
	assert.InDelta(t, 18.0, filled[8].(float64), 1e-6)
}

func TestImputeMissing_ExactSeventyPercentUsesIterative(t *testing.T) {
	d := dataset.New()
	x := make([]interface{}, 10)
	y := make([]interface{}, 10)
	for i := 0; i < 10; i++ {
		x[i] = float64(i + 1)
		y[i] = float64(i + 1)
	}
	// 恰好70%缺失属于迭代带而非跳过
	for i := 0; i < 7; i++ {
		y[i] = nil
	}
	require.NoError(t, d.AddColumn("x", x))
	require.NoError(t, d.AddColumn("y", y))

	report := ImputeMissing(d)
	require.Len(t, report.Imputed, 1)
	assert.Empty(t, report.Skipped)
	assert.NotEqual(t, imputeMethodSkip, report.Imputed[0].Method)
}

func TestImputeMissing_CategoricalNoModeUsesSentinel(t *testing.T) {
	// 非缺失值互不相同时众数取首个；真正无众数只在全缺失时发生，
	// 全缺失列缺失率100%走跳过分支，这里验证众数并列取首个
	d := singleColumn(t, "c", []interface{}{"x", "y", nil, "x", "y", "x", "y", "x", "y", "x"})
	report := ImputeMissing(d)
	require.Len(t, report.Imputed, 1)

	values, _ := d.Column("c")
	assert.Equal(t, "x", values[2])
}
