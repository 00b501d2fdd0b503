package service

import (
	"time"

	"github.com/yuqie6/mindcare/internal/schema"
)

// sweep 写入失败后释放空间：截断活动历史，删除过期的统计采样。
// 日期无法解析的采样保留。返回删除的条目数。
func (s *Store) sweep(now time.Time) int {
	removed := 0

	acts := &s.doc.Activities
	if len(acts.History) > s.historyLimit {
		removed += len(acts.History) - s.historyLimit
		acts.History = acts.History[:s.historyLimit]
	}

	cutoff := now.Add(-s.sampleMaxAge)
	for _, name := range []string{schema.SeriesMood, schema.SeriesEnergy, schema.SeriesSleep} {
		series := s.doc.Stats.Series(name)
		kept := (*series)[:0]
		for _, sample := range *series {
			if t, ok := sample.Time(); ok && !t.After(cutoff) {
				removed++
				continue
			}
			kept = append(kept, sample)
		}
		*series = kept
	}
	return removed
}
