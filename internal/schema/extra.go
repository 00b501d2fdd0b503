package schema

import (
	"encoding/json"
	"reflect"
	"sync"

	"github.com/yuqie6/mindcare/internal/value"
)

// 数组元素（任务、活动、采样点）除了已知字段外还会携带调用方的任意字段。
// 这些字段解码时收进 Extra，编码时原样写回，已知字段优先。

var knownKeysCache sync.Map // reflect.Type -> map[string]struct{}

func knownKeys(t reflect.Type) map[string]struct{} {
	if cached, ok := knownKeysCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name, ok := jsonName(t.Field(i)); ok {
			keys[name] = struct{}{}
		}
	}
	knownKeysCache.Store(t, keys)
	return keys
}

// stripKnown 返回去掉已知字段后的记录拷贝；known 为结构体值或指针
func stripKnown(rec value.Record, known any) value.Record {
	if len(rec) == 0 {
		return nil
	}
	t := reflect.TypeOf(known)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	keys := knownKeys(t)
	out := make(value.Record, len(rec))
	for k, v := range rec {
		if _, ok := keys[k]; ok {
			continue
		}
		out[k] = v.Clone()
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func decodeWithExtra(data []byte, known any) (value.Record, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}
	var all value.Record
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	return stripKnown(all, known), nil
}

func encodeWithExtra(known any, extra value.Record) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var rec value.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := rec[k]; !ok {
			rec[k] = v
		}
	}
	return json.Marshal(rec)
}
