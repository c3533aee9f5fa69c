/*
 * @module service/validation/datetime_validators
 * @description 日期时间验证器：strftime格式匹配、日期先后与区间
 * @architecture 分层架构 - 规则评估层
 * @documentReference dev_docs/validation_requirements.md
 * @stateFlow strftime格式转换为Go布局 -> 逐元素解析判定
 * @dependencies strings, time, github.com/spf13/cast
 * @refs service/validation/registry.go
 */

package validation

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	"dataquality-service/service/models"
)

// strftimeReplacer strftime指令到Go时间布局的映射
var strftimeReplacer = strings.NewReplacer(
	"%Y", "2006",
	"%y", "06",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%M", "04",
	"%S", "05",
	"%f", "000000",
	"%z", "-0700",
	"%Z", "MST",
	"%p", "PM",
	"%I", "03",
)

// strftimeToLayout 将strftime格式串转换为Go时间布局
func strftimeToLayout(format string) string {
	return strftimeReplacer.Replace(format)
}

// parseDateValue 解析动态取值为时间，依次尝试常见布局
func parseDateValue(raw interface{}) (time.Time, bool) {
	if t, ok := raw.(time.Time); ok {
		return t, true
	}
	s, err := cast.ToStringE(raw)
	if err != nil || s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006/01/02",
	}
	for _, layout := range layouts {
		if t, perr := time.Parse(layout, s); perr == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// validateColumnValuesToMatchStrftimeFormat 验证列取值匹配strftime日期格式
func validateColumnValuesToMatchStrftimeFormat(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}
	params, err := ruleParams(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}
	format, ok := paramString(params, "strftime_format", "format")
	if !ok {
		return failDetail(rule, "规则缺少strftime_format参数")
	}
	layout := strftimeToLayout(format)

	d := newDetail(rule)
	d.Expected = format
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if raw == nil {
			unexpected++
			continue
		}
		s := cast.ToString(raw)
		if _, perr := time.Parse(layout, s); perr != nil {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValuesToBeAfter 验证列日期晚于给定日期
func validateColumnValuesToBeAfter(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return dateBoundColumnValues(data, rule, []string{"min_date", "date", "value"}, func(v, bound time.Time) bool {
		return v.After(bound)
	})
}

// validateColumnValuesToBeBefore 验证列日期早于给定日期
func validateColumnValuesToBeBefore(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return dateBoundColumnValues(data, rule, []string{"max_date", "date", "value"}, func(v, bound time.Time) bool {
		return v.Before(bound)
	})
}

// dateBoundColumnValues 按给定时间关系逐元素判定
func dateBoundColumnValues(data []map[string]interface{}, rule *models.ValidationRule, boundKeys []string, ok func(v, bound time.Time) bool) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}

	var boundRaw interface{} = rule.Value
	if params, err := ruleParams(rule); err == nil {
		if s, found := paramString(params, boundKeys...); found {
			boundRaw = s
		}
	}
	bound, parsed := parseDateValue(boundRaw)
	if !parsed {
		return failDetail(rule, "规则日期参数无法解析")
	}

	d := newDetail(rule)
	d.Expected = boundRaw
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		v, vok := parseDateValue(raw)
		if !vok || !ok(v, bound) {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValuesToBeBetweenDates 验证列日期落在[min_date,max_date]区间内
func validateColumnValuesToBeBetweenDates(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}
	params, err := ruleParams(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}
	minRaw, hasMin := paramString(params, "min_date", "start_date")
	maxRaw, hasMax := paramString(params, "max_date", "end_date")
	if !hasMin || !hasMax {
		return failDetail(rule, "规则缺少min_date/max_date参数")
	}
	minDate, okMin := parseDateValue(minRaw)
	maxDate, okMax := parseDateValue(maxRaw)
	if !okMin || !okMax {
		return failDetail(rule, "规则日期参数无法解析")
	}

	d := newDetail(rule)
	d.Expected = rule.Value
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		v, vok := parseDateValue(raw)
		if !vok || v.Before(minDate) || v.After(maxDate) {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}
