/*
 * @module service/dataset/csv
 * @description CSV编解码，加载时进行单元格类型推断，保存时输出带BOM的UTF-8以兼容Excel
 * @architecture 数据模型层 - 文件编解码
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 文件读取 -> 类型推断 -> 列式装载；列式导出 -> 格式化 -> 文件写出
 * @rules 整列所有非缺失值均可解析为数值时该列为数值列，否则保留原始文本
 * @dependencies encoding/csv, github.com/spf13/cast
 * @refs dataset.go
 */

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// 常见缺失值标记
var missingMarkers = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"null": {},
	"nan":  {},
	"none": {},
}

// LoadCSV 从CSV读取数据集，第一行为列头
// 整列所有非缺失单元格均为数值时该列解析为float64，否则保留字符串
func LoadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSV解析失败: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV内容为空")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	raw := make([][]string, len(header))
	for _, row := range records[1:] {
		for i := range header {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			raw[i] = append(raw[i], cell)
		}
	}

	d := New()
	for i, name := range header {
		d.mustAddColumn(name, inferColumn(raw[i]))
	}
	return d, nil
}

// mustAddColumn 列头重复时追加序号后缀，保证列名唯一
func (d *Dataset) mustAddColumn(name string, values []interface{}) {
	candidate := name
	for n := 1; d.HasColumn(candidate); n++ {
		candidate = fmt.Sprintf("%s.%d", name, n)
	}
	_ = d.AddColumn(candidate, values)
}

// inferColumn 对单列原始文本做类型推断
func inferColumn(cells []string) []interface{} {
	values := make([]interface{}, len(cells))
	numeric := true
	for i, cell := range cells {
		trimmed := strings.TrimSpace(cell)
		if _, missing := missingMarkers[strings.ToLower(trimmed)]; missing {
			values[i] = nil
			continue
		}
		values[i] = trimmed
		if numeric {
			if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
				numeric = false
			}
		}
	}
	if !numeric {
		return values
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		f, _ := strconv.ParseFloat(v.(string), 64)
		values[i] = f
	}
	return values
}

// SaveCSV 将数据集写出为带BOM的UTF-8 CSV
// BOM帮助Excel正确识别编码，避免特殊字符乱码
func SaveCSV(w io.Writer, d *Dataset) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("写入BOM失败: %w", err)
	}

	writer := csv.NewWriter(w)
	columns := d.Columns()
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("写入列头失败: %w", err)
	}

	for i := 0; i < d.RowCount(); i++ {
		row := make([]string, len(columns))
		for j, col := range columns {
			values, _ := d.Column(col)
			row[j] = formatCell(values[i])
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("写入数据行失败: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// formatCell 格式化单元格输出
func formatCell(v interface{}) string {
	if IsMissing(v) {
		return ""
	}
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		if val {
			return "True"
		}
		return "False"
	default:
		return cast.ToString(val)
	}
}
