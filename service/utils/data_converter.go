/*
 * @module service/utils/data_converter
 * @description 数据转换工具模块，提供动态标量的类型转换和消息体字符编码转换
 * @architecture 工具函数模式，提供无状态转换方法集合
 * @dependencies github.com/spf13/cast, golang.org/x/text/encoding/simplifiedchinese
 * @refs service/validation, service/queue
 */

package utils

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// ToFloat64 将动态标量转换为float64
func ToFloat64(value interface{}) (float64, error) {
	return cast.ToFloat64E(value)
}

// ToString 将动态标量转换为字符串
func ToString(value interface{}) (string, error) {
	return cast.ToStringE(value)
}

// ToStringMap 将规则参数转换为string键的映射
func ToStringMap(value interface{}) (map[string]interface{}, error) {
	if value == nil {
		return nil, fmt.Errorf("参数为空")
	}
	return cast.ToStringMapE(value)
}

// EnsureUTF8 保证字节序列为合法UTF-8
// 消息体非UTF-8时按GBK解码转换（兼容旧系统投递的GBK编码消息）
func EnsureUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}

	decoder := simplifiedchinese.GBK.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, fmt.Errorf("GBK转UTF-8失败: %w", err)
	}
	return result, nil
}
