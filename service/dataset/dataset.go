/*
 * @module service/dataset/dataset
 * @description 内存列式数据集模型，提供列增删、行列访问、拷贝和备份回滚原语
 * @architecture 数据模型层 - 列式存储
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 数据加载 -> 流水线阶段独占处理 -> 序列化输出
 * @rules 所有列等长；缺失值以nil表示；阶段间按值传递，禁止跨任务共享
 * @dependencies github.com/spf13/cast
 * @refs statistics.go, csv.go
 */

package dataset

import (
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// BackupSuffix 备份列后缀，转换前的原始值保存在 <列名>+BackupSuffix 中
const BackupSuffix = "_original"

// Dataset 内存列式数据集
// 列按插入顺序排列，单元格为 float64、string、bool 或 nil（缺失）
type Dataset struct {
	columns []string
	data    map[string][]interface{}
	rows    int
}

// New 创建空数据集
func New() *Dataset {
	return &Dataset{
		columns: make([]string, 0),
		data:    make(map[string][]interface{}),
	}
}

// IsMissing 判断单元格是否缺失
// nil 和 NaN 均视为缺失
func IsMissing(v interface{}) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok {
		return math.IsNaN(f)
	}
	return false
}

// RowCount 行数
func (d *Dataset) RowCount() int {
	return d.rows
}

// ColumnCount 列数
func (d *Dataset) ColumnCount() int {
	return len(d.columns)
}

// Columns 按顺序返回列名
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// HasColumn 判断列是否存在
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.data[name]
	return ok
}

// Column 返回列数据的引用（调用方不应在阶段外保留）
func (d *Dataset) Column(name string) ([]interface{}, bool) {
	values, ok := d.data[name]
	return values, ok
}

// AddColumn 追加新列，长度必须等于当前行数（空数据集除外）
func (d *Dataset) AddColumn(name string, values []interface{}) error {
	if _, exists := d.data[name]; exists {
		return fmt.Errorf("列 %s 已存在", name)
	}
	if len(d.columns) > 0 && len(values) != d.rows {
		return fmt.Errorf("列 %s 长度 %d 与行数 %d 不一致", name, len(values), d.rows)
	}
	if len(d.columns) == 0 {
		d.rows = len(values)
	}
	d.columns = append(d.columns, name)
	d.data[name] = values
	return nil
}

// SetColumn 替换已有列的数据，长度必须与行数一致
func (d *Dataset) SetColumn(name string, values []interface{}) error {
	if _, exists := d.data[name]; !exists {
		return fmt.Errorf("列 %s 不存在", name)
	}
	if len(values) != d.rows {
		return fmt.Errorf("列 %s 长度 %d 与行数 %d 不一致", name, len(values), d.rows)
	}
	d.data[name] = values
	return nil
}

// DropColumn 删除列，列不存在时静默返回
func (d *Dataset) DropColumn(name string) {
	if _, exists := d.data[name]; !exists {
		return
	}
	delete(d.data, name)
	for i, col := range d.columns {
		if col == name {
			d.columns = append(d.columns[:i], d.columns[i+1:]...)
			break
		}
	}
	if len(d.columns) == 0 {
		d.rows = 0
	}
}

// CloneColumn 返回列数据的深拷贝
func (d *Dataset) CloneColumn(name string) ([]interface{}, bool) {
	values, ok := d.data[name]
	if !ok {
		return nil, false
	}
	cloned := make([]interface{}, len(values))
	copy(cloned, values)
	return cloned, true
}

// Copy 返回数据集的深拷贝，供阶段间按值传递
func (d *Dataset) Copy() *Dataset {
	copied := &Dataset{
		columns: make([]string, len(d.columns)),
		data:    make(map[string][]interface{}, len(d.data)),
		rows:    d.rows,
	}
	copy(copied.columns, d.columns)
	for name, values := range d.data {
		cloned := make([]interface{}, len(values))
		copy(cloned, values)
		copied.data[name] = cloned
	}
	return copied
}

// Backup 为列创建备份列（<列名>_original），保存转换前的原始值
func (d *Dataset) Backup(name string) (string, error) {
	values, ok := d.CloneColumn(name)
	if !ok {
		return "", fmt.Errorf("列 %s 不存在", name)
	}
	backupCol := name + BackupSuffix
	// 重复备份时覆盖旧备份
	if d.HasColumn(backupCol) {
		if err := d.SetColumn(backupCol, values); err != nil {
			return "", err
		}
		return backupCol, nil
	}
	if err := d.AddColumn(backupCol, values); err != nil {
		return "", err
	}
	return backupCol, nil
}

// Rollback 从备份列恢复原始值并删除备份列
func (d *Dataset) Rollback(name string) error {
	backupCol := name + BackupSuffix
	values, ok := d.CloneColumn(backupCol)
	if !ok {
		return fmt.Errorf("备份列 %s 不存在", backupCol)
	}
	if err := d.SetColumn(name, values); err != nil {
		return err
	}
	d.DropColumn(backupCol)
	return nil
}

// DropBackups 删除所有备份列，返回被删除的备份列名
func (d *Dataset) DropBackups() []string {
	var dropped []string
	for _, col := range d.Columns() {
		if len(col) > len(BackupSuffix) && col[len(col)-len(BackupSuffix):] == BackupSuffix {
			d.DropColumn(col)
			dropped = append(dropped, col)
		}
	}
	return dropped
}

// NumericValues 返回列的非缺失数值及其行索引
// 仅对数值列有意义，非数值单元格被跳过
func (d *Dataset) NumericValues(name string) ([]float64, []int) {
	values, ok := d.data[name]
	if !ok {
		return nil, nil
	}
	nums := make([]float64, 0, len(values))
	idx := make([]int, 0, len(values))
	for i, v := range values {
		if IsMissing(v) {
			continue
		}
		if f, err := cast.ToFloat64E(v); err == nil {
			nums = append(nums, f)
			idx = append(idx, i)
		}
	}
	return nums, idx
}

// Records 返回前limit行的JSON安全记录，用于预览
func (d *Dataset) Records(limit int) []map[string]interface{} {
	if limit <= 0 || limit > d.rows {
		limit = d.rows
	}
	records := make([]map[string]interface{}, 0, limit)
	for i := 0; i < limit; i++ {
		record := make(map[string]interface{}, len(d.columns))
		for _, col := range d.columns {
			record[col] = JSONSafe(d.data[col][i])
		}
		records = append(records, record)
	}
	return records
}

// JSONSafe 将单元格转换为JSON可序列化的原生类型
// NaN和Inf归一化为nil
func JSONSafe(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToFloat64(val)
	case string, bool:
		return val
	default:
		return cast.ToString(val)
	}
}
