/*
 * @module service/cleaning/knn
 * @description K近邻缺失值填充，基于NaN感知欧氏距离在数值列空间中寻找捐赠行
 * @architecture 清洗引擎 - 多元填充方法
 * @dataFlow 数值列矩阵 -> 逐缺失行距离计算 -> k个最近捐赠行 -> 捐赠值均值
 * @rules k=min(5, 捐赠行数)；距离按共有维度计算并按维度数缩放；无可用捐赠行或特征不足时返回错误由调用方回退
 * @dependencies math, sort, service/dataset
 * @refs imputer.go
 */

package cleaning

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"datacleaner-service/service/dataset"
)

const knnMaxNeighbors = 5

var errInsufficientFeatures = errors.New("KNN需要至少两个数值列")

// knnImpute 用K近邻均值填充目标数值列的缺失单元格
// 在全部数值列构成的特征空间中按NaN感知欧氏距离选取捐赠行
func knnImpute(d *dataset.Dataset, target string) error {
	matrix, columns, err := numericMatrix(d)
	if err != nil {
		return err
	}
	targetIdx := -1
	for i, col := range columns {
		if col == target {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return fmt.Errorf("列 %s 不是数值列", target)
	}

	// 捐赠行：目标列非缺失的行
	var donors []int
	for i := range matrix {
		if !math.IsNaN(matrix[i][targetIdx]) {
			donors = append(donors, i)
		}
	}
	if len(donors) == 0 {
		return fmt.Errorf("列 %s 没有可用的捐赠行", target)
	}

	k := knnMaxNeighbors
	if len(donors) < k {
		k = len(donors)
	}

	values, _ := d.Column(target)
	for row := range matrix {
		if !math.IsNaN(matrix[row][targetIdx]) {
			continue
		}
		fill, ok := donorMean(matrix, donors, row, targetIdx, k)
		if !ok {
			return fmt.Errorf("行 %d 与所有捐赠行均无共有特征", row)
		}
		values[row] = fill
	}
	return nil
}

// donorMean 计算查询行k个最近捐赠行的目标值均值
func donorMean(matrix [][]float64, donors []int, row, targetIdx, k int) (float64, bool) {
	type neighbor struct {
		index    int
		distance float64
	}
	var neighbors []neighbor
	for _, donor := range donors {
		dist, ok := nanEuclidean(matrix[row], matrix[donor], targetIdx)
		if !ok {
			continue
		}
		neighbors = append(neighbors, neighbor{index: donor, distance: dist})
	}
	if len(neighbors) == 0 {
		return 0, false
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].distance < neighbors[j].distance
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}

	sum := 0.0
	for _, n := range neighbors {
		sum += matrix[n.index][targetIdx]
	}
	return sum / float64(len(neighbors)), true
}

// nanEuclidean NaN感知欧氏距离：只累加双方都存在的维度，
// 再按 总维度数/共有维度数 缩放补偿缺失坐标
func nanEuclidean(a, b []float64, skipIdx int) (float64, bool) {
	total := 0
	present := 0
	sum := 0.0
	for i := range a {
		if i == skipIdx {
			continue
		}
		total++
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		present++
		diff := a[i] - b[i]
		sum += diff * diff
	}
	if present == 0 {
		return 0, false
	}
	return math.Sqrt(sum * float64(total) / float64(present)), true
}

// numericMatrix 提取所有数值列为按行组织的矩阵，缺失单元格编码为NaN
// 少于两个数值列时多元方法退化为单变量，返回错误
func numericMatrix(d *dataset.Dataset) ([][]float64, []string, error) {
	var columns []string
	for _, col := range d.Columns() {
		stats, err := dataset.Describe(d, col)
		if err != nil || stats.Dtype != dataset.DtypeNumeric {
			continue
		}
		columns = append(columns, col)
	}
	if len(columns) < 2 {
		return nil, nil, errInsufficientFeatures
	}

	matrix := make([][]float64, d.RowCount())
	for i := range matrix {
		matrix[i] = make([]float64, len(columns))
	}
	for j, col := range columns {
		values, _ := d.Column(col)
		for i, v := range values {
			if dataset.IsMissing(v) {
				matrix[i][j] = math.NaN()
				continue
			}
			f, ok := v.(float64)
			if !ok {
				matrix[i][j] = math.NaN()
				continue
			}
			matrix[i][j] = f
		}
	}
	return matrix, columns, nil
}
