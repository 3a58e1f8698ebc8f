/*
 * @module service/cleaning/isolation
 * @description 一维孤立森林异常计数：随机分割隔离样本，路径短者为异常
 * @architecture 清洗引擎 - 共识检测的第三票
 * @dataFlow 固定种子随机源 -> 子采样建树 -> 平均路径长度 -> 异常得分 -> 污染率截取
 * @rules 固定种子保证同输入同输出；污染率10%上限截取；退化数据（常数列）计数为0
 * @dependencies math, math/rand, sort
 * @refs outlier.go
 */

package cleaning

import (
	"math"
	"math/rand"
	"sort"
)

const (
	isolationTrees         = 100
	isolationSubsample     = 256
	isolationContamination = 0.10
	isolationSeed          = 42
)

type isolationNode struct {
	split       float64
	left, right *isolationNode
	size        int
}

// isolationOutlierCount 返回孤立森林判定的异常观测数
// 得分最高的前10%被标记；所有值相同的退化输入不产生异常
func isolationOutlierCount(values []float64) int {
	n := len(values)
	if n < 2 {
		return 0
	}
	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if minV == maxV {
		return 0
	}

	rng := rand.New(rand.NewSource(isolationSeed))
	sample := isolationSubsample
	if n < sample {
		sample = n
	}
	depthLimit := int(math.Ceil(math.Log2(float64(sample))))

	pathSums := make([]float64, n)
	for t := 0; t < isolationTrees; t++ {
		subsample := make([]float64, sample)
		for i := range subsample {
			subsample[i] = values[rng.Intn(n)]
		}
		tree := buildIsolationTree(subsample, 0, depthLimit, rng)
		for i, v := range values {
			pathSums[i] += pathLength(tree, v, 0)
		}
	}

	norm := averagePathLength(sample)
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = math.Pow(2, -(pathSums[i]/float64(isolationTrees))/norm)
	}

	flagged := int(float64(n) * isolationContamination)
	if flagged == 0 {
		return 0
	}
	ranked := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(ranked)))
	threshold := ranked[flagged-1]

	count := 0
	for _, s := range scores {
		if s >= threshold {
			count++
		}
	}
	if count > flagged {
		count = flagged
	}
	return count
}

// buildIsolationTree 在[min,max]间随机取分割点递归建树
func buildIsolationTree(sample []float64, depth, limit int, rng *rand.Rand) *isolationNode {
	if depth >= limit || len(sample) <= 1 {
		return &isolationNode{size: len(sample)}
	}
	minV, maxV := sample[0], sample[0]
	for _, v := range sample[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if minV == maxV {
		return &isolationNode{size: len(sample)}
	}

	split := minV + rng.Float64()*(maxV-minV)
	var left, right []float64
	for _, v := range sample {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	return &isolationNode{
		split: split,
		left:  buildIsolationTree(left, depth+1, limit, rng),
		right: buildIsolationTree(right, depth+1, limit, rng),
	}
}

// pathLength 计算值在树中的隔离路径长度，叶节点按子集规模补偿未展开深度
func pathLength(node *isolationNode, v float64, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + averagePathLength(node.size)
	}
	if v < node.split {
		return pathLength(node.left, v, depth+1)
	}
	return pathLength(node.right, v, depth+1)
}

// averagePathLength 二叉搜索失败查找的平均路径长度c(n)，用于得分归一化
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649015329
	return 2*h - 2*float64(n-1)/float64(n)
}
