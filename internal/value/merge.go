package value

// Merge 将存档树 stored 合并到默认树 def 的结构上，返回新树，不修改入参。
//
// 规则（逐键，取两侧键的并集）：
//   - 两侧都是记录：递归合并
//   - 仅 stored 有：原样保留（未知/扩展字段）
//   - 仅 def 有：使用默认值（补齐新字段）
//   - def 是记录而 stored 不是：保留默认记录，结构字段不会被标量覆盖
//   - 其余情况 stored 覆盖 def；数组视为标量，整体替换
//
// 顶层任一侧不是记录时，stored 不是记录则返回 def 的拷贝，否则返回 stored 的拷贝。
func Merge(def, stored Value) Value {
	dr, dok := def.AsRecord()
	sr, sok := stored.AsRecord()
	switch {
	case dok && sok:
		return Object(mergeRecords(dr, sr))
	case dok:
		return def.Clone()
	default:
		return stored.Clone()
	}
}

func mergeRecords(def, stored Record) Record {
	out := make(Record, len(def)+len(stored))
	for k, dv := range def {
		out[k] = dv.Clone()
	}
	for k, sv := range stored {
		dv, inDefault := def[k]
		if !inDefault {
			out[k] = sv.Clone()
			continue
		}
		switch dv.Kind() {
		case KindRecord:
			if sr, ok := sv.AsRecord(); ok {
				out[k] = Object(mergeRecords(dv.rec, sr))
			}
			// stored 不是记录：保留默认记录，而不是让 stored 覆盖。
			// 存档中的嵌套记录（player、streak 等）必须始终存在，标量或 null 会让类型化存档失去该分区。
		default:
			out[k] = sv.Clone()
		}
	}
	return out
}

// Reconcile 与 Merge 相同，但 stored 不是记录时返回 def 的拷贝和 false，
// 调用方据此进入损坏恢复流程。
func Reconcile(def, stored Value) (Value, bool) {
	if !stored.IsRecord() {
		return def.Clone(), false
	}
	return Merge(def, stored), true
}
