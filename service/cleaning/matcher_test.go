/*
 * @module service/cleaning/matcher_test
 * @description 模糊列匹配器的单元测试
 * @architecture 单元测试 - 验证名称归一化匹配
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 数据集构造 -> 引用解析 -> 匹配结果验证
 * @rules 覆盖空白、大小写、不间断空格、引号剥离和多列引用
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs matcher.go
 */

package cleaning

import (
	"testing"

	"datacleaner-service/service/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datasetWithColumns(t *testing.T, columns ...string) *dataset.Dataset {
	t.Helper()
	d := dataset.New()
	for _, col := range columns {
		require.NoError(t, d.AddColumn(col, []interface{}{1.0}))
	}
	return d
}

func TestMatchColumns(t *testing.T) {
	d := datasetWithColumns(t, " Revenue ", "Cost of Goods", "Profit")

	tests := []struct {
		name      string
		reference string
		matched   []string
		unmatched []string
	}{
		{
			name:      "空白差异",
			reference: "Revenue",
			matched:   []string{" Revenue "},
		},
		{
			name:      "大小写不敏感",
			reference: "profit",
			matched:   []string{"Profit"},
		},
		{
			name:      "内部空白归并",
			reference: "Cost  of   Goods",
			matched:   []string{"Cost of Goods"},
		},
		{
			name:      "引号剥离",
			reference: "'Profit'",
			matched:   []string{"Profit"},
		},
		{
			name:      "多列引用部分匹配",
			reference: "Revenue, Nonexistent, Profit",
			matched:   []string{" Revenue ", "Profit"},
			unmatched: []string{"Nonexistent"},
		},
		{
			name:      "全部未匹配",
			reference: "Foo, Bar",
			unmatched: []string{"Foo", "Bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, unmatched := MatchColumns(d, tt.reference)
			assert.Equal(t, tt.matched, matched)
			assert.Equal(t, tt.unmatched, unmatched)
		})
	}
}

func TestMatchColumns_NonBreakingSpace(t *testing.T) {
	d := datasetWithColumns(t, "Net Income")
	matched, unmatched := MatchColumns(d, "Net Income")
	assert.Equal(t, []string{"Net Income"}, matched, "NFKC应折叠不间断空格")
	assert.Empty(t, unmatched)
}

func TestMatchColumns_Deduplication(t *testing.T) {
	d := datasetWithColumns(t, "Price")
	matched, _ := MatchColumns(d, "Price, price, 'Price'")
	assert.Equal(t, []string{"Price"}, matched, "同一实际列只应出现一次")
}

func TestNormalizeColumnName(t *testing.T) {
	assert.Equal(t, "a b", normalizeColumnName(`  "a   b"  `))
	assert.Equal(t, "", normalizeColumnName("   "))
}
