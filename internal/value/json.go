package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedType 无法映射到 Value 的 Go 类型
var ErrUnsupportedType = errors.New("value: 不支持的类型")

// Parse 解析 JSON 字节为 Value
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("解析 JSON 失败: %w", err)
	}
	// 只允许一个顶层值
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("解析 JSON 失败: 顶层值之后存在多余内容")
	}
	return FromAny(raw)
}

// FromAny 将 encoding/json 风格的 any 树转换为 Value
func FromAny(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("解析数值 %q 失败: %w", v.String(), err)
		}
		return Number(f), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(float64(v)), nil
	case int:
		return Int(v), nil
	case int64:
		return Number(float64(v)), nil
	case string:
		return String(v), nil
	case []any:
		out := make([]Value, 0, len(v))
		for _, it := range v {
			item, err := FromAny(it)
			if err != nil {
				return Value{}, err
			}
			out = append(out, item)
		}
		return Array(out...), nil
	case map[string]any:
		rec := make(Record, len(v))
		for k, it := range v {
			item, err := FromAny(it)
			if err != nil {
				return Value{}, err
			}
			rec[k] = item
		}
		return Object(rec), nil
	case Value:
		return v.Clone(), nil
	case Record:
		return Object(v.Clone()), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, raw)
	}
}

// Any 转换为 encoding/json 风格的 any 树
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, it := range v.arr {
			out[i] = it.Any()
		}
		return out
	case KindRecord:
		out := make(map[string]any, len(v.rec))
		for k, it := range v.rec {
			out[k] = it.Any()
		}
		return out
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindRecord:
		if v.rec == nil {
			return []byte("{}"), nil
		}
		// map 编码时键有序，导出结果稳定
		return json.Marshal(map[string]Value(v.rec))
	default:
		return nil, fmt.Errorf("value: 未知类型标签 %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Of 将任意可 JSON 编码的 Go 值转换为 Value
func Of(x any) (Value, error) {
	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("编码失败: %w", err)
	}
	return Parse(data)
}

// Decode 将 Value 解码到 out（指针）
func Decode(v Value, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("编码失败: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("解码失败: %w", err)
	}
	return nil
}
