/*
 * @module service/validation/string_validators
 * @description 字符串与格式验证器：正则匹配、长度、邮箱、URL、IPv4、信用卡号等
 * @architecture 分层架构 - 规则评估层
 * @documentReference dev_docs/validation_requirements.md
 * @stateFlow 列取值提取 -> 字符串化 -> 格式判定 -> 统计信息生成
 * @rules 空值视为不符合格式要求
 * @dependencies regexp, net, net/url, github.com/spf13/cast
 * @refs service/validation/registry.go
 */

package validation

import (
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"unicode/utf8"

	"github.com/spf13/cast"

	"dataquality-service/service/models"
)

// validateColumnValuesToMatchRegex 验证列取值匹配正则表达式
func validateColumnValuesToMatchRegex(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return regexColumnValues(data, rule, true)
}

// validateColumnValuesToNotMatchRegex 验证列取值不匹配正则表达式
func validateColumnValuesToNotMatchRegex(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return regexColumnValues(data, rule, false)
}

// regexColumnValues 按正则逐元素判定，wantMatch决定匹配或反向匹配
func regexColumnValues(data []map[string]interface{}, rule *models.ValidationRule, wantMatch bool) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}
	params, err := ruleParams(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}
	pattern, ok := paramString(params, "regex", "pattern")
	if !ok {
		return failDetail(rule, "规则缺少regex参数")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return failDetail(rule, "正则表达式无效: %v", err)
	}

	d := newDetail(rule)
	d.Expected = pattern
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if raw == nil {
			unexpected++
			continue
		}
		s := cast.ToString(raw)
		if re.MatchString(s) != wantMatch {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValueLengthsToBeBetween 验证列取值长度落在[min,max]区间内
func validateColumnValueLengthsToBeBetween(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}
	min, max, hasMin, hasMax, err := rangeParams(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}

	d := newDetail(rule)
	d.Expected = rule.Value
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if raw == nil {
			unexpected++
			continue
		}
		length := float64(utf8.RuneCountInString(cast.ToString(raw)))
		if !boundCheck(length, min, max, hasMin, hasMax) {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValueLengthsToEqual 验证列取值长度等于指定值
func validateColumnValueLengthsToEqual(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}

	var expected float64
	if direct, cerr := cast.ToFloat64E(rule.Value); cerr == nil {
		expected = direct
	} else {
		params, perr := ruleParams(rule)
		if perr != nil {
			return failDetail(rule, "%v", perr)
		}
		v, has, err := paramFloat(params, "value", "length")
		if err != nil {
			return failDetail(rule, "%v", err)
		}
		if !has {
			return failDetail(rule, "规则缺少长度参数")
		}
		expected = v
	}

	d := newDetail(rule)
	d.Expected = expected
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if raw == nil {
			unexpected++
			continue
		}
		if float64(utf8.RuneCountInString(cast.ToString(raw))) != expected {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

// validateColumnValuesToBeValidEmail 验证列取值为合法邮箱地址
func validateColumnValuesToBeValidEmail(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return formatColumnValues(data, rule, func(s string) bool {
		_, err := mail.ParseAddress(s)
		return err == nil
	})
}

// validateColumnValuesToBeValidURL 验证列取值为合法URL
func validateColumnValuesToBeValidURL(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return formatColumnValues(data, rule, func(s string) bool {
		u, err := url.Parse(s)
		return err == nil && u.Scheme != "" && u.Host != ""
	})
}

// validateColumnValuesToBeValidIPv4 验证列取值为合法IPv4地址
func validateColumnValuesToBeValidIPv4(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return formatColumnValues(data, rule, func(s string) bool {
		ip := net.ParseIP(s)
		return ip != nil && ip.To4() != nil
	})
}

// validateColumnValuesToBeValidCreditCardNumber 验证列取值为合法信用卡号（Luhn校验）
func validateColumnValuesToBeValidCreditCardNumber(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	return formatColumnValues(data, rule, luhnValid)
}

// formatColumnValues 按格式判定函数逐元素验证
func formatColumnValues(data []map[string]interface{}, rule *models.ValidationRule, valid func(string) bool) *models.ValidationResultDetail {
	if d := requireColumn(data, rule); d != nil {
		return d
	}

	d := newDetail(rule)
	unexpected := 0
	values := columnValues(data, rule.ColumnName)
	for _, raw := range values {
		if raw == nil {
			unexpected++
			continue
		}
		if !valid(cast.ToString(raw)) {
			unexpected++
		}
	}
	applyStats(d, len(values), unexpected)
	return d
}

var nonDigit = regexp.MustCompile(`[\s-]`)

// luhnValid 信用卡号Luhn校验
func luhnValid(s string) bool {
	s = nonDigit.ReplaceAllString(s, "")
	if len(s) < 12 || len(s) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}
