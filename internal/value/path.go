package value

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPath  = errors.New("value: 路径不能为空")
	ErrBadSegment = errors.New("value: 路径段不能为空")
	ErrNotARecord = errors.New("value: 路径经过的节点不是记录")
)

// Path 点分路径，仅支持记录键，不支持数组下标
type Path []string

// ParsePath 解析 "player.streak.current"；空串表示根
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadSegment, s)
		}
	}
	return Path(parts), nil
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Lookup 沿路径取值
func (v Value) Lookup(p Path) (Value, bool) {
	cur := v
	for _, seg := range p {
		rec, ok := cur.AsRecord()
		if !ok {
			return Value{}, false
		}
		next, ok := rec[seg]
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// SetPath 在 root 上按路径写入，缺失的中间节点以空记录补齐。
// 中间节点存在但不是记录时返回 ErrNotARecord，root 不被修改。
func SetPath(root Record, p Path, v Value) error {
	if len(p) == 0 {
		return ErrEmptyPath
	}
	if root == nil {
		return fmt.Errorf("%w: 根记录为空", ErrNotARecord)
	}

	// 先校验，保证失败时不留下半截写入
	cur := root
	for i, seg := range p[:len(p)-1] {
		next, ok := cur[seg]
		if !ok {
			break
		}
		rec, ok := next.AsRecord()
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotARecord, p[:i+1].String())
		}
		cur = rec
	}

	cur = root
	for _, seg := range p[:len(p)-1] {
		next, ok := cur[seg]
		if !ok {
			next = Object(Record{})
			cur[seg] = next
		}
		cur = next.rec
	}
	cur[p[len(p)-1]] = v
	return nil
}
