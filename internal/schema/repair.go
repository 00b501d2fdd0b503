package schema

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/yuqie6/mindcare/internal/value"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	valueType = reflect.TypeOf(value.Value{})
)

// Repair 按 Document 的结构逐叶检查合并后的值树，使其一定能被 FromRecord 解码。
// 类型不符的叶子换成 defaults 中同一路径的值；数组元素内没有默认值，直接去掉该字段或元素。
// 整型字段的小数截断，字符串字段的数值/布尔转成文本，时间字段的毫秒数转成 RFC3339。
// 不在结构中的字段原样保留。返回修复后的拷贝和被改动的路径。
func Repair(rec, defaults value.Record) (value.Record, []string) {
	r := &repairer{}
	out := r.record(reflect.TypeOf(Document{}), rec, defaults, "")
	return out, r.paths
}

type repairer struct {
	paths []string
}

func (r *repairer) mark(path string) {
	r.paths = append(r.paths, path)
}

func (r *repairer) record(t reflect.Type, rec, def value.Record, path string) value.Record {
	out := rec.Clone()
	for i := 0; i < t.NumField(); i++ {
		key, ok := jsonName(t.Field(i))
		if !ok {
			continue
		}
		v, present := rec[key]
		if !present {
			continue
		}
		dv, hasDef := def[key]
		fixed, keep := r.fix(t.Field(i).Type, v, dv, hasDef, joinPath(path, key))
		if keep {
			out[key] = fixed
		} else {
			delete(out, key)
		}
	}
	return out
}

// fix 返回修复后的值；第二个返回值为 false 表示应去掉该字段
func (r *repairer) fix(t reflect.Type, v, dv value.Value, hasDef bool, path string) (value.Value, bool) {
	if t == valueType {
		return v, true
	}
	fallback := func() (value.Value, bool) {
		r.mark(path)
		if hasDef {
			return dv.Clone(), true
		}
		return value.Value{}, false
	}

	if t.Kind() == reflect.Pointer {
		if v.IsNull() {
			return v, true
		}
		return r.fix(t.Elem(), v, dv, hasDef, path)
	}
	if v.IsNull() {
		return fallback()
	}

	if t == timeType {
		if s, ok := v.AsString(); ok {
			if _, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return v, true
			}
		}
		if n, ok := v.AsNumber(); ok {
			r.mark(path)
			return value.String(time.UnixMilli(int64(n)).UTC().Format(time.RFC3339Nano)), true
		}
		return fallback()
	}

	switch t.Kind() {
	case reflect.String:
		if _, ok := v.AsString(); ok {
			return v, true
		}
		if n, ok := v.AsNumber(); ok {
			r.mark(path)
			return value.String(strconv.FormatFloat(n, 'f', -1, 64)), true
		}
		if b, ok := v.AsBool(); ok {
			r.mark(path)
			return value.String(strconv.FormatBool(b)), true
		}
		return fallback()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := v.AsNumber()
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return fallback()
		}
		if n != math.Trunc(n) {
			r.mark(path)
			return value.Number(math.Trunc(n)), true
		}
		return v, true

	case reflect.Float32, reflect.Float64:
		if _, ok := v.AsNumber(); ok {
			return v, true
		}
		return fallback()

	case reflect.Bool:
		if _, ok := v.AsBool(); ok {
			return v, true
		}
		return fallback()

	case reflect.Struct:
		rec, ok := v.AsRecord()
		if !ok {
			return fallback()
		}
		defRec, _ := dv.AsRecord()
		return value.Object(r.record(t, rec, defRec, path)), true

	case reflect.Slice:
		items, ok := v.AsArray()
		if !ok {
			return fallback()
		}
		out := make([]value.Value, 0, len(items))
		for i, item := range items {
			fixed, keep := r.fix(t.Elem(), item, value.Value{}, false, path+"["+strconv.Itoa(i)+"]")
			if keep {
				out = append(out, fixed)
			}
		}
		return value.Array(out...), true

	case reflect.Map:
		rec, ok := v.AsRecord()
		if !ok {
			return fallback()
		}
		out := make(value.Record, len(rec))
		for k, item := range rec {
			if fixed, keep := r.fix(t.Elem(), item, value.Value{}, false, joinPath(path, k)); keep {
				out[k] = fixed
			}
		}
		return value.Object(out), true
	}
	return v, true
}

func jsonName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, true
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}
