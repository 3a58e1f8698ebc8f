/*
 * @module service/dataset/dataset_test
 * @description 数据集备份回滚原语和列操作的单元测试
 * @architecture 单元测试 - 验证列式存储不变式
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 数据准备 -> 列操作 -> 结果验证
 * @rules 覆盖备份回滚的逐字节恢复和列长度不变式
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs dataset.go
 */

package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDataset(t *testing.T, columns []string, data map[string][]interface{}) *Dataset {
	t.Helper()
	d := New()
	for _, col := range columns {
		require.NoError(t, d.AddColumn(col, data[col]))
	}
	return d
}

func TestIsMissing(t *testing.T) {
	assert.True(t, IsMissing(nil))
	assert.True(t, IsMissing(math.NaN()))
	assert.False(t, IsMissing(0.0))
	assert.False(t, IsMissing(""))
	assert.False(t, IsMissing(false))
}

func TestDataset_AddColumn_LengthInvariant(t *testing.T) {
	d := New()
	require.NoError(t, d.AddColumn("a", []interface{}{1.0, 2.0}))

	err := d.AddColumn("b", []interface{}{1.0})
	assert.Error(t, err, "长度不一致的列应被拒绝")

	err = d.AddColumn("a", []interface{}{3.0, 4.0})
	assert.Error(t, err, "重复列名应被拒绝")
}

func TestDataset_BackupAndRollback(t *testing.T) {
	original := []interface{}{"$100", nil, "$300"}
	d := buildDataset(t, []string{"price"}, map[string][]interface{}{
		"price": append([]interface{}(nil), original...),
	})

	backupCol, err := d.Backup("price")
	require.NoError(t, err)
	assert.Equal(t, "price_original", backupCol)
	assert.True(t, d.HasColumn(backupCol))

	// 修改原列后回滚应逐项恢复
	require.NoError(t, d.SetColumn("price", []interface{}{100.0, nil, 300.0}))
	require.NoError(t, d.Rollback("price"))

	values, _ := d.Column("price")
	assert.Equal(t, original, values)
	assert.False(t, d.HasColumn(backupCol), "回滚后备份列应被删除")
}

func TestDataset_DropBackups(t *testing.T) {
	d := buildDataset(t, []string{"a", "b"}, map[string][]interface{}{
		"a": {1.0, 2.0},
		"b": {"x", "y"},
	})
	_, err := d.Backup("a")
	require.NoError(t, err)
	_, err = d.Backup("b")
	require.NoError(t, err)

	dropped := d.DropBackups()
	assert.ElementsMatch(t, []string{"a_original", "b_original"}, dropped)
	assert.Equal(t, []string{"a", "b"}, d.Columns())
}

func TestDataset_Copy_Independence(t *testing.T) {
	d := buildDataset(t, []string{"a"}, map[string][]interface{}{
		"a": {1.0, 2.0},
	})
	copied := d.Copy()

	values, _ := copied.Column("a")
	values[0] = 99.0

	originalValues, _ := d.Column("a")
	assert.Equal(t, 1.0, originalValues[0], "拷贝的修改不应影响原数据集")
}

func TestDataset_DropColumn(t *testing.T) {
	d := buildDataset(t, []string{"a", "b"}, map[string][]interface{}{
		"a": {1.0},
		"b": {2.0},
	})
	d.DropColumn("a")
	assert.Equal(t, []string{"b"}, d.Columns())

	// 删除不存在的列静默返回
	d.DropColumn("missing")
	assert.Equal(t, 1, d.ColumnCount())
}

func TestDataset_NumericValues(t *testing.T) {
	d := buildDataset(t, []string{"n"}, map[string][]interface{}{
		"n": {1.0, nil, 3.0, math.NaN(), 5.0},
	})
	values, indices := d.NumericValues("n")
	assert.Equal(t, []float64{1.0, 3.0, 5.0}, values)
	assert.Equal(t, []int{0, 2, 4}, indices)
}

func TestJSONSafe(t *testing.T) {
	assert.Nil(t, JSONSafe(math.NaN()))
	assert.Nil(t, JSONSafe(math.Inf(1)))
	assert.Equal(t, 1.5, JSONSafe(1.5))
	assert.Equal(t, "x", JSONSafe("x"))
	assert.Equal(t, true, JSONSafe(true))
	assert.Equal(t, 3.0, JSONSafe(3))
}
