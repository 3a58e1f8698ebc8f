/*
 * @module service/models/cleaning_models
 * @description 清洗引擎相关模型定义，包括分析结果、转换任务和各阶段报告记录
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 分析文本解析 -> 任务提取 -> 转换执行 -> 报告记录
 * @rules 报告字段均为JSON可序列化的原生类型，跨边界不携带NaN/Inf
 * @dependencies 无
 * @refs service/cleaning
 */

package models

// TransformType 转换任务类型
type TransformType string

const (
	TransformCurrency    TransformType = "clean_currency"
	TransformPercentage  TransformType = "clean_percentage"
	TransformYear        TransformType = "clean_year"
	TransformBoolean     TransformType = "clean_boolean"
	TransformText        TransformType = "clean_text"
	TransformConvertType TransformType = "convert_type"
	TransformUnknown     TransformType = "unknown"
)

// 任务来源
const (
	ProvenanceIssueText  = "issue_text"
	ProvenanceUnitsField = "units_field"
)

// AnalysisResult 外部分析文本解析后的结构化结果
// 所有字段均容忍缺失；解析失败时返回空结果而非错误
type AnalysisResult struct {
	Domain             string                 `json:"domain,omitempty"`
	DataTypes          map[string]string      `json:"data_types,omitempty"`
	Units              map[string]string      `json:"units,omitempty"`
	RemoveCandidates   []RemoveCandidate      `json:"remove_candidates,omitempty"`
	PotentialIssues    []PotentialIssue       `json:"potential_issues,omitempty"`
	CleaningPriorities []string               `json:"cleaning_priorities,omitempty"`
	Raw                map[string]interface{} `json:"-"`
}

// IsEmpty 判断分析结果是否为空等价结果
func (a *AnalysisResult) IsEmpty() bool {
	return a == nil || len(a.Raw) == 0
}

// RemoveCandidate 建议移除的列
type RemoveCandidate struct {
	Column     string  `json:"column"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// PotentialIssue 分析发现的列级问题
type PotentialIssue struct {
	Column   string `json:"column"`
	Issue    string `json:"issue"`
	Severity string `json:"severity,omitempty"`
}

// TransformationTask 列级转换任务
// Column 可能为逗号连接的多列引用，由列匹配器解析到实际列
type TransformationTask struct {
	Column       string        `json:"column"`
	Type         TransformType `json:"type"`
	Description  string        `json:"description"`
	Confidence   float64       `json:"confidence"`
	Provenance   string        `json:"provenance"`
	UnitDetected string        `json:"unit_detected,omitempty"`
}

// TransformationRecord 单列转换结果记录
type TransformationRecord struct {
	Column         string  `json:"column"`
	Type           string  `json:"type"`
	Success        bool    `json:"success"`
	RowsAffected   int     `json:"rows_affected,omitempty"`
	ConversionRate float64 `json:"conversion_rate,omitempty"`
	BackupColumn   string  `json:"backup_column,omitempty"`
	Strategy       string  `json:"strategy,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// SkippedTask 被置信度门限或匹配失败跳过的任务
type SkippedTask struct {
	Column     string  `json:"column"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// RemovalRecord 列移除记录
type RemovalRecord struct {
	Column     string  `json:"column"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// TransformationReport 转换阶段报告
type TransformationReport struct {
	Applied        []TransformationRecord `json:"applied"`
	Skipped        []SkippedTask          `json:"skipped"`
	Failed         []TransformationRecord `json:"failed"`
	RemovedColumns []RemovalRecord        `json:"removed_columns"`
	DroppedBackups []string               `json:"dropped_backups"`
	TaskCount      int                    `json:"task_count"`
}

// ImputationRecord 单列缺失值处理记录
type ImputationRecord struct {
	Column        string  `json:"column"`
	Method        string  `json:"method"`
	Reason        string  `json:"reason,omitempty"`
	MissingCount  int     `json:"missing_count"`
	MissingRate   float64 `json:"missing_rate"`
	FallbackError string  `json:"fallback_error,omitempty"`
}

// ImputationReport 缺失值填充阶段报告
type ImputationReport struct {
	MissingCounts map[string]int     `json:"missing_counts"`
	Imputed       []ImputationRecord `json:"imputed_columns"`
	Skipped       []ImputationRecord `json:"skipped_columns"`
}

// OutlierRecord 单列异常值分析记录
type OutlierRecord struct {
	Column         string  `json:"column"`
	IQRCount       int     `json:"iqr_count"`
	ZScoreCount    int     `json:"zscore_count"`
	IsolationCount int     `json:"isolation_count"`
	Skewness       float64 `json:"skewness"`
	Method         string  `json:"method,omitempty"`
	Action         string  `json:"action,omitempty"`
	Total          int     `json:"total"`
}

// OutlierReport 异常值处理阶段报告
type OutlierReport struct {
	OutliersFound map[string]int  `json:"outliers_found"`
	Details       []OutlierRecord `json:"details"`
}

// SchemaReport 模式校验阶段报告
type SchemaReport struct {
	Columns       []string          `json:"columns"`
	Dtypes        map[string]string `json:"dtypes"`
	RowCount      int               `json:"nrows"`
	ColumnCount   int               `json:"ncols"`
	Issues        []string          `json:"issues"`
	AnalysisText  string            `json:"llm_analysis,omitempty"`
	AnalysisError string            `json:"llm_analysis_error,omitempty"`
}
