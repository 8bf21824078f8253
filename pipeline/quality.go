// Package pipeline 训练数据质量检查
package pipeline

import (
	"fmt"
	"math"
	"strings"

	"nutripredict/ml"
)

// 严重程度
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// QualityIssue 质量问题
type QualityIssue struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Row      int    `json:"row"` // 数据行号，从1开始，不含表头
	Dish     string `json:"dish"`
	Message  string `json:"message"`
}

// QualityRule 检查规则，每次检查前调用Reset
type QualityRule interface {
	Name() string
	Reset()
	Check(row int, rec ml.DishRecord) *QualityIssue
}

// QualityStats 检查统计
type QualityStats struct {
	TotalRows int            `json:"total_rows"`
	Flagged   int            `json:"flagged"`
	Issues    map[string]int `json:"issues"`
}

// DataChecker 数据质量检查器，只报告问题，不修改数据
type DataChecker struct {
	rules []QualityRule
}

// NewDataChecker 创建检查器，包含默认规则
func NewDataChecker() *DataChecker {
	return &DataChecker{
		rules: []QualityRule{
			NewNegativeValueRule(),
			NewEnergyConsistencyRule(0.35),
			NewConflictingDuplicateRule(),
		},
	}
}

// AddRule 添加规则
func (dc *DataChecker) AddRule(rule QualityRule) {
	dc.rules = append(dc.rules, rule)
}

// Check 检查整个数据集
func (dc *DataChecker) Check(ds *ml.Dataset) ([]QualityIssue, QualityStats) {
	stats := QualityStats{Issues: make(map[string]int)}
	if ds == nil {
		return nil, stats
	}
	for _, rule := range dc.rules {
		rule.Reset()
	}

	var issues []QualityIssue
	for i, rec := range ds.Records {
		stats.TotalRows++
		flagged := false
		for _, rule := range dc.rules {
			issue := rule.Check(i+1, rec)
			if issue == nil {
				continue
			}
			issue.Rule = rule.Name()
			issue.Row = i + 1
			issue.Dish = rec.Name
			issues = append(issues, *issue)
			stats.Issues[rule.Name()]++
			flagged = true
		}
		if flagged {
			stats.Flagged++
		}
	}
	return issues, stats
}

// NegativeValueRule 营养值不能为负
type NegativeValueRule struct{}

func NewNegativeValueRule() *NegativeValueRule {
	return &NegativeValueRule{}
}

func (r *NegativeValueRule) Name() string { return "negative_value" }

func (r *NegativeValueRule) Reset() {}

func (r *NegativeValueRule) Check(row int, rec ml.DishRecord) *QualityIssue {
	var negative []string
	for _, target := range ml.Targets() {
		if rec.Value(target) < 0 {
			negative = append(negative, string(target))
		}
	}
	if len(negative) == 0 {
		return nil
	}
	return &QualityIssue{
		Severity: SeverityHigh,
		Message:  fmt.Sprintf("negative %s", strings.Join(negative, ", ")),
	}
}

// EnergyConsistencyRule 用4/4/9系数估算热量，与标注热量偏差过大时报告
type EnergyConsistencyRule struct {
	tolerance float64
}

func NewEnergyConsistencyRule(tolerance float64) *EnergyConsistencyRule {
	return &EnergyConsistencyRule{tolerance: tolerance}
}

func (r *EnergyConsistencyRule) Name() string { return "energy_consistency" }

func (r *EnergyConsistencyRule) Reset() {}

func (r *EnergyConsistencyRule) Check(row int, rec ml.DishRecord) *QualityIssue {
	estimated := 4*rec.Carbs + 4*rec.Protein + 9*rec.Fat
	if rec.Calories <= 0 || estimated <= 0 {
		return nil
	}
	deviation := math.Abs(estimated-rec.Calories) / rec.Calories
	if deviation <= r.tolerance {
		return nil
	}
	return &QualityIssue{
		Severity: SeverityLow,
		Message: fmt.Sprintf("calories %.1f kcal but macros give %.1f kcal (%.0f%% off)",
			rec.Calories, estimated, deviation*100),
	}
}

// ConflictingDuplicateRule 同名菜品出现不同营养值，模型会取其平均
type ConflictingDuplicateRule struct {
	seen map[string]ml.DishRecord
}

func NewConflictingDuplicateRule() *ConflictingDuplicateRule {
	return &ConflictingDuplicateRule{seen: make(map[string]ml.DishRecord)}
}

func (r *ConflictingDuplicateRule) Name() string { return "conflicting_duplicate" }

func (r *ConflictingDuplicateRule) Reset() {
	r.seen = make(map[string]ml.DishRecord)
}

func (r *ConflictingDuplicateRule) Check(row int, rec ml.DishRecord) *QualityIssue {
	key := strings.ToLower(strings.TrimSpace(rec.Name))
	first, ok := r.seen[key]
	if !ok {
		r.seen[key] = rec
		return nil
	}
	for _, target := range ml.Targets() {
		if first.Value(target) != rec.Value(target) {
			return &QualityIssue{
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("%s differs from an earlier row (%.1f vs %.1f)", target, rec.Value(target), first.Value(target)),
			}
		}
	}
	return nil
}
