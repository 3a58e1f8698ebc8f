/*
 * @module service/pipeline/stages
 * @description 流水线五个标准阶段的实现：模式校验、缺失值填充、异常值处理、语义转换、报告汇总
 * @architecture 管道模式 - 阶段实现
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 见各阶段注释
 * @rules 外部分析失败只记录不中止；报告字段均为JSON安全类型
 * @dependencies service/analysis, service/cleaning, service/dataset
 * @refs pipeline.go
 */

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"datacleaner-service/service/analysis"
	"datacleaner-service/service/cleaning"
	"datacleaner-service/service/dataset"
	"datacleaner-service/service/models"
)

// schemaStage 校验数据集结构、生成模式报告并请求外部分析
// 分析服务未配置或失败时记录原因并继续，后续转换阶段得到零任务
type schemaStage struct {
	provider analysis.Provider
}

func (s *schemaStage) Name() string { return "schema_validator" }

func (s *schemaStage) Run(ctx context.Context, st *State) error {
	d := st.Dataset
	if d.RowCount() == 0 {
		return fmt.Errorf("数据集不含任何数据行")
	}

	report := &models.SchemaReport{
		Columns:     d.Columns(),
		Dtypes:      make(map[string]string),
		RowCount:    d.RowCount(),
		ColumnCount: d.ColumnCount(),
		Issues:      make([]string, 0),
	}
	for _, col := range d.Columns() {
		stats, err := dataset.Describe(d, col)
		if err != nil {
			continue
		}
		report.Dtypes[col] = stats.Dtype
		if stats.Missing == stats.Rows {
			report.Issues = append(report.Issues, fmt.Sprintf("column %s is entirely missing", col))
		}
		if stats.Dtype == dataset.DtypeText && stats.Cardinality == 1 && stats.Missing == 0 {
			report.Issues = append(report.Issues, fmt.Sprintf("column %s is constant", col))
		}
	}
	st.Schema = report

	if s.provider == nil {
		slog.Info("未配置分析服务，跳过外部分析")
		return nil
	}
	text, err := s.provider.Analyze(ctx, analysis.BuildPrompt(d))
	if err != nil {
		slog.Warn("外部分析失败，按零任务继续", "error", err)
		report.AnalysisError = err.Error()
		return nil
	}
	report.AnalysisText = text
	st.AnalysisText = text
	st.Analysis = cleaning.ParseAnalysisText(text)
	return nil
}

// imputeStage 自适应缺失值填充
type imputeStage struct{}

func (s *imputeStage) Name() string { return "imputer" }

func (s *imputeStage) Run(_ context.Context, st *State) error {
	st.Imputation = cleaning.ImputeMissing(st.Dataset)
	return nil
}

// outlierStage 多方法共识异常值检测与封顶
type outlierStage struct{}

func (s *outlierStage) Name() string { return "outlier_detector" }

func (s *outlierStage) Run(_ context.Context, st *State) error {
	st.Outliers = cleaning.DetectOutliers(st.Dataset)
	return nil
}

// transformStage 执行分析建议的语义转换和列移除
type transformStage struct{}

func (s *transformStage) Name() string { return "transformer" }

func (s *transformStage) Run(_ context.Context, st *State) error {
	analysisResult := st.Analysis
	if analysisResult == nil {
		analysisResult = &models.AnalysisResult{}
	}
	st.Transforms = cleaning.ApplyAnalysis(st.Dataset, analysisResult)
	return nil
}

// reportStage 汇总各阶段报告为最终清洗报告
type reportStage struct{}

func (s *reportStage) Name() string { return "reporter" }

func (s *reportStage) Run(_ context.Context, st *State) error {
	st.FinalReport = map[string]interface{}{
		"schema":          st.Schema,
		"imputation":      st.Imputation,
		"outliers":        st.Outliers,
		"transformations": st.Transforms,
		"result": map[string]interface{}{
			"nrows": st.Dataset.RowCount(),
			"ncols": st.Dataset.ColumnCount(),
		},
		"preview": st.Dataset.Records(5),
	}
	return nil
}
