/*
 * @module service/cleaning/iterative
 * @description 迭代回归缺失值填充，轮转地以其余数值列为特征对含缺失列做最小二乘回归
 * @architecture 清洗引擎 - 多元填充方法
 * @dataFlow 均值初始化 -> 逐列回归预测缺失位 -> 收敛或达到轮次上限 -> 回写目标列
 * @rules 最多10轮；列处理顺序即数据集列顺序，结果确定；回归求解失败返回错误由调用方回退
 * @dependencies gonum.org/v1/gonum/mat, service/dataset
 * @refs imputer.go
 */

package cleaning

import (
	"fmt"
	"math"

	"datacleaner-service/service/dataset"

	"gonum.org/v1/gonum/mat"
)

const (
	iterativeMaxPasses = 10
	iterativeTolerance = 1e-6
)

// iterativeImpute 用迭代回归填充目标数值列的缺失单元格
// 所有数值列的缺失位都参与迭代估计，但只有目标列被回写
func iterativeImpute(d *dataset.Dataset, target string) error {
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

	rows := len(matrix)
	cols := len(columns)

	// 缺失掩码和均值初始化
	missing := make([][]bool, rows)
	for i := range missing {
		missing[i] = make([]bool, cols)
	}
	for j := 0; j < cols; j++ {
		sum, count := 0.0, 0
		for i := 0; i < rows; i++ {
			if math.IsNaN(matrix[i][j]) {
				missing[i][j] = true
				continue
			}
			sum += matrix[i][j]
			count++
		}
		if count == 0 {
			return fmt.Errorf("列 %s 全缺失，无法参与迭代估计", columns[j])
		}
		mean := sum / float64(count)
		for i := 0; i < rows; i++ {
			if missing[i][j] {
				matrix[i][j] = mean
			}
		}
	}

	for pass := 0; pass < iterativeMaxPasses; pass++ {
		maxDelta := 0.0
		for j := 0; j < cols; j++ {
			delta, err := regressColumn(matrix, missing, j)
			if err != nil {
				return err
			}
			if delta > maxDelta {
				maxDelta = delta
			}
		}
		if maxDelta < iterativeTolerance {
			break
		}
	}

	values, _ := d.Column(target)
	for i := 0; i < rows; i++ {
		if missing[i][targetIdx] {
			values[i] = matrix[i][targetIdx]
		}
	}
	return nil
}

// regressColumn 对第j列做一轮回归更新：以观测行拟合，预测值覆盖缺失位
// 返回本轮缺失位估计值的最大变化量
func regressColumn(matrix [][]float64, missing [][]bool, j int) (float64, error) {
	rows := len(matrix)
	cols := len(matrix[0])

	var observed []int
	for i := 0; i < rows; i++ {
		if !missing[i][j] {
			observed = append(observed, i)
		}
	}
	if len(observed) == rows {
		return 0, nil
	}
	// 观测行数不足以约束 截距+特征 个参数时求解病态
	if len(observed) < cols {
		return 0, fmt.Errorf("列索引 %d 的观测行数不足以拟合回归", j)
	}

	design := mat.NewDense(len(observed), cols, nil)
	response := mat.NewVecDense(len(observed), nil)
	for r, i := range observed {
		design.Set(r, 0, 1)
		f := 1
		for c := 0; c < cols; c++ {
			if c == j {
				continue
			}
			design.Set(r, f, matrix[i][c])
			f++
		}
		response.SetVec(r, matrix[i][j])
	}

	var beta mat.VecDense
	if err := beta.SolveVec(design, response); err != nil {
		return 0, fmt.Errorf("最小二乘求解失败: %w", err)
	}

	maxDelta := 0.0
	for i := 0; i < rows; i++ {
		if !missing[i][j] {
			continue
		}
		predicted := beta.AtVec(0)
		f := 1
		for c := 0; c < cols; c++ {
			if c == j {
				continue
			}
			predicted += beta.AtVec(f) * matrix[i][c]
			f++
		}
		if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
			return 0, fmt.Errorf("列索引 %d 的回归预测发散", j)
		}
		delta := math.Abs(predicted - matrix[i][j])
		if delta > maxDelta {
			maxDelta = delta
		}
		matrix[i][j] = predicted
	}
	return maxDelta, nil
}
