/*
 * @module service/validation/expression
 * @description 自定义表达式验证器，使用yaegi解释执行用户提供的Go表达式，带编译缓存
 * @architecture 解释器模式 - 表达式按哈希缓存，重复规则只编译一次
 * @documentReference dev_docs/validation_requirements.md
 * @stateFlow 解析规则参数 -> 查缓存/编译表达式 -> 逐行求值 -> 汇总统计
 * @rules 表达式通过value变量访问当前单元格值，通过row变量访问整行，必须返回bool
 * @dependencies github.com/traefik/yaegi, crypto/sha1, sync
 * @refs service/validation/registry.go
 */

package validation

import (
	"crypto/sha1"
	"fmt"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"dataquality-service/service/models"
)

// expressionValidator 表达式验证器，带编译缓存
type expressionValidator struct {
	mu    sync.RWMutex
	cache map[string]*compiledExpression
}

// compiledExpression 编译后的表达式，保存可执行函数
type compiledExpression struct {
	fn       func(value interface{}, row map[string]interface{}) (bool, error)
	compiled time.Time
	hash     string
}

// newExpressionValidator 创建表达式验证器
func newExpressionValidator() *expressionValidator {
	return &expressionValidator{
		cache: make(map[string]*compiledExpression),
	}
}

// validate 对列的每个值执行表达式，表达式返回false的值计入不符合数量
func (x *expressionValidator) validate(data []map[string]interface{}, rule *models.ValidationRule) *models.ValidationResultDetail {
	params, err := ruleParams(rule)
	if err != nil {
		return failDetail(rule, "%v", err)
	}
	expr, ok := paramString(params, "expression", "expr")
	if !ok {
		return failDetail(rule, "规则缺少expression参数")
	}

	if pre := requireColumn(data, rule); pre != nil {
		return pre
	}

	compiled, err := x.lookup(expr)
	if err != nil {
		return failDetail(rule, "表达式编译失败: %v", err)
	}

	unexpected := 0
	for i, row := range data {
		pass, err := compiled.fn(row[rule.ColumnName], row)
		if err != nil {
			return failDetail(rule, "第%d行表达式执行失败: %v", i, err)
		}
		if !pass {
			unexpected++
		}
	}

	d := newDetail(rule)
	d.Expected = expr
	applyStats(d, len(data), unexpected)
	return d
}

// lookup 查询缓存，未命中则编译并写入
func (x *expressionValidator) lookup(expr string) (*compiledExpression, error) {
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(expr)))

	x.mu.RLock()
	compiled, ok := x.cache[hash]
	x.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := x.compile(expr, hash)
	if err != nil {
		return nil, err
	}

	x.mu.Lock()
	x.cache[hash] = compiled
	x.mu.Unlock()
	return compiled, nil
}

// compile 将表达式包装为Eval函数并编译
func (x *expressionValidator) compile(expr, hash string) (*compiledExpression, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库失败: %w", err)
	}

	// 包装表达式：value是当前单元格值，row是当前行
	wrapped := fmt.Sprintf(`
package main

import (
	"fmt"
	"strings"
	"strconv"
	"math"
)

func Eval(value interface{}, row map[string]interface{}) (bool, error) {
	_ = fmt.Sprint
	_ = strings.TrimSpace
	_ = strconv.Itoa
	_ = math.Abs
	return %s, nil
}
`, expr)

	if _, err := i.Eval(wrapped); err != nil {
		return nil, fmt.Errorf("表达式编译失败: %w", err)
	}

	v, err := i.Eval("Eval")
	if err != nil {
		return nil, fmt.Errorf("表达式入口函数缺失: %w", err)
	}

	fn, ok := v.Interface().(func(interface{}, map[string]interface{}) (bool, error))
	if !ok {
		return nil, fmt.Errorf("表达式必须返回bool")
	}

	return &compiledExpression{
		fn:       fn,
		compiled: time.Now(),
		hash:     hash,
	}, nil
}

// CacheSize 返回已编译表达式数量
func (x *expressionValidator) CacheSize() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.cache)
}
