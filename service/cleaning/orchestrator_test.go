/*
 * @module service/cleaning/orchestrator_test
 * @description 转换编排器的单元测试
 * @architecture 单元测试 - 验证门控、列移除和备份清理
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 分析结果构造 -> 编排执行 -> 报告与数据集验证
 * @rules 覆盖置信度边界、未知类型跳过、列移除门限和端到端货币清洗
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs orchestrator.go
 */

package cleaning

import (
	"testing"

	"datacleaner-service/service/dataset"
	"datacleaner-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTask_ConfidenceBoundary(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		applied    bool
	}{
		{"恰好0.60通过", 0.60, true},
		{"0.59被拦截", 0.59, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := singleColumn(t, "Name", []interface{}{" a ", "b"})
			report := &models.TransformationReport{}
			runTask(d, models.TransformationTask{
				Column:     "Name",
				Type:       models.TransformText,
				Confidence: tt.confidence,
			}, report)

			if tt.applied {
				assert.Len(t, report.Applied, 1)
				assert.Empty(t, report.Skipped)
			} else {
				assert.Empty(t, report.Applied)
				require.Len(t, report.Skipped, 1)
				assert.Contains(t, report.Skipped[0].Reason, "confidence")
			}
		})
	}
}

func TestRunTask_UnknownTypeSkipped(t *testing.T) {
	d := singleColumn(t, "X", []interface{}{"1"})
	report := &models.TransformationReport{}
	runTask(d, models.TransformationTask{
		Column:     "X",
		Type:       models.TransformUnknown,
		Confidence: 0.9,
	}, report)

	assert.Empty(t, report.Applied)
	require.Len(t, report.Skipped, 1)
}

func TestRunTask_UnmatchedColumnRecorded(t *testing.T) {
	d := singleColumn(t, "Real", []interface{}{"$1"})
	report := &models.TransformationReport{}
	runTask(d, models.TransformationTask{
		Column:     "Ghost",
		Type:       models.TransformCurrency,
		Confidence: 0.9,
	}, report)

	assert.Empty(t, report.Applied)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "Ghost", report.Skipped[0].Column)
	assert.Contains(t, report.Skipped[0].Reason, "not found")
}

func TestApplyAnalysis_EndToEndCurrency(t *testing.T) {
	d := dataset.New()
	require.NoError(t, d.AddColumn("Price", []interface{}{"$100", "$200", "$300", "bad", "500"}))
	require.NoError(t, d.AddColumn("Region", []interface{}{"north", "south", "east", "west", "north"}))

	analysis := ParseAnalysisText(`{
		"potential_issues": [
			{"column": "Price", "issue": "contains dollar signs"}
		]
	}`)

	report := ApplyAnalysis(d, analysis)
	assert.Equal(t, 1, report.TaskCount)
	require.Len(t, report.Applied, 1)
	assert.Equal(t, "Price", report.Applied[0].Column)
	assert.InDelta(t, 0.8, report.Applied[0].ConversionRate, 1e-9)

	values, _ := d.Column("Price")
	assert.Equal(t, 100.0, values[0])
	assert.Nil(t, values[3])
	assert.Equal(t, 500.0, values[4])

	// 成功后备份列在收尾时被清除
	assert.Equal(t, []string{"Price_original"}, report.DroppedBackups)
	assert.False(t, d.HasColumn("Price_original"))
}

func TestApplyAnalysis_FuzzyColumnMatch(t *testing.T) {
	d := singleColumn(t, " Revenue ", []interface{}{"$10", "$20"})

	analysis := ParseAnalysisText(`{
		"potential_issues": [
			{"column": "revenue", "issue": "currency symbols present"}
		]
	}`)

	report := ApplyAnalysis(d, analysis)
	require.Len(t, report.Applied, 1)
	assert.Equal(t, " Revenue ", report.Applied[0].Column, "模糊匹配应解析到实际列名")
}

func TestApplyAnalysis_RemoveCandidates(t *testing.T) {
	d := dataset.New()
	require.NoError(t, d.AddColumn("id", []interface{}{1.0, 2.0}))
	require.NoError(t, d.AddColumn("keep", []interface{}{3.0, 4.0}))
	require.NoError(t, d.AddColumn("maybe", []interface{}{5.0, 6.0}))

	analysis := ParseAnalysisText(`{
		"remove_candidates": [
			{"column": "id", "reason": "identifier", "confidence": 0.95},
			{"column": "maybe", "reason": "uncertain", "confidence": 0.5}
		]
	}`)

	report := ApplyAnalysis(d, analysis)
	require.Len(t, report.RemovedColumns, 1)
	assert.Equal(t, "id", report.RemovedColumns[0].Column)
	assert.False(t, d.HasColumn("id"))
	assert.True(t, d.HasColumn("maybe"), "低于0.7置信度的移除建议应被忽略")
}

func TestApplyAnalysis_EmptyAnalysis(t *testing.T) {
	original := []interface{}{"a", "b"}
	d := singleColumn(t, "col", append([]interface{}(nil), original...))

	report := ApplyAnalysis(d, &models.AnalysisResult{})
	assert.Zero(t, report.TaskCount)
	assert.Empty(t, report.Applied)
	assert.Empty(t, report.Failed)

	values, _ := d.Column("col")
	assert.Equal(t, original, values)
}

func TestApplyAnalysis_FailedTransformContinues(t *testing.T) {
	d := dataset.New()
	require.NoError(t, d.AddColumn("messy", []interface{}{"a", "b", "c"}))
	require.NoError(t, d.AddColumn("Price", []interface{}{"$1", "$2", "$3"}))

	analysis := ParseAnalysisText(`{
		"potential_issues": [
			{"column": "messy", "issue": "contains dollar signs"},
			{"column": "Price", "issue": "contains dollar signs"}
		]
	}`)

	report := ApplyAnalysis(d, analysis)
	require.Len(t, report.Failed, 1, "不可转换的列应记录失败")
	require.Len(t, report.Applied, 1, "失败不应中断后续任务")
	assert.Equal(t, "Price", report.Applied[0].Column)
}
