// Package conv 提供类型转换与脏数据归一化工具，用于在目录加载时一次性完成所有强制转换。
package conv

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToFloat64 将 any 转为 float64。
// 支持 float64、float32、int、int64、int32；bool 视为 1.0/0.0。NaN/Inf 视为失败。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case int32:
		f = float64(val)
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseLooseFloat 解析带修饰的数值字符串，例如 "$1,299.00"、"\"4.5\""。
// 除数字与 '.' 外的字符全部剔除；空串与 "null" 视为失败。
func ParseLooseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "nan") {
		return 0, false
	}
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SanitizeFloat 把任意输入归一化为 float64，无法解析时返回 0.0。
func SanitizeFloat(v any) float64 {
	if s, ok := v.(string); ok {
		f, _ := ParseLooseFloat(s)
		return f
	}
	f, _ := ToFloat64(v)
	return f
}

// ToString 将 any 转为 string。
// string 原样返回；数字格式化为最短表示；nil 返回 ("", false)。
func ToString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	}
	if f, ok := ToFloat64(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// ToStringSlice 接受 []string、[]any 或单个字符串，返回字符串列表。
// 单个字符串按原样作为唯一元素；空串返回 nil。
func ToStringSlice(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), val...)
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		return []string{val}
	case []any:
		return ConvertSlice(val, func(e any) (string, bool) {
			s, ok := ToString(e)
			return s, ok && s != ""
		})
	default:
		return nil
	}
}

// ToFloatSlice 接受 []float64、[]float32、[]any 或 "[a, b, c]" 形式的文本向量。
// 任一元素无法解析时返回 nil，由调用方视为缺失向量。
func ToFloatSlice(v any) []float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case []float64:
		return append([]float64(nil), val...)
	case []float32:
		out := make([]float64, len(val))
		for i, f := range val {
			out[i] = float64(f)
		}
		return out
	case []any:
		out := make([]float64, 0, len(val))
		for _, e := range val {
			f, ok := ToFloat64(e)
			if !ok {
				return nil
			}
			out = append(out, f)
		}
		return out
	case string:
		s := strings.TrimSpace(val)
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
		fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' })
		if len(fields) == 0 {
			return nil
		}
		out := make([]float64, 0, len(fields))
		for _, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil
			}
			out = append(out, x)
		}
		return out
	default:
		return nil
	}
}

// ConvertSlice 将 []T 按 convert 转为 []U，convert 返回 false 的元素被跳过。
func ConvertSlice[T, U any](s []T, convert func(T) (U, bool)) []U {
	if s == nil {
		return nil
	}
	out := make([]U, 0, len(s))
	for _, v := range s {
		if u, ok := convert(v); ok {
			out = append(out, u)
		}
	}
	return out
}

// ConfigGet 从节点配置（YAML/JSON 解析结果）按 key 取 T，缺失或类型不符时返回 def。
func ConfigGet[T any](m map[string]any, key string, def T) T {
	if t, ok := m[key].(T); ok {
		return t
	}
	return def
}

// ConfigGetInt 取整数配置。YAML 解出 int，JSON 解出 float64，两者都接受，bool 不接受。
func ConfigGetInt(m map[string]any, key string, def int) int {
	v := m[key]
	if _, isBool := v.(bool); isBool {
		return def
	}
	if f, ok := ToFloat64(v); ok {
		return int(f)
	}
	return def
}
