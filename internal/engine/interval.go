package engine

import (
	"sort"
	"time"
)

// Interval полуоткрытый интервал времени [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps пересечение полуоткрытых интервалов: касание границами не считается
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// Minutes длительность интервала в минутах
func (iv Interval) Minutes() int {
	return int(iv.End.Sub(iv.Start) / time.Minute)
}

// Merge сливает набор интервалов в минимальный дизъюнктный набор.
// Вход может быть неотсортированным и пересекающимся; вырожденные
// интервалы (End <= Start) отбрасываются. Касание границами считается
// пересечением и сливается. Чистая функция, O(n log n)
func Merge(intervals []Interval) []Interval {
	valid := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End.After(iv.Start) {
			valid = append(valid, iv)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	sort.Slice(valid, func(i, j int) bool {
		return valid[i].Start.Before(valid[j].Start)
	})

	merged := []Interval{valid[0]}
	for _, cur := range valid[1:] {
		last := &merged[len(merged)-1]
		if !cur.Start.After(last.End) {
			if cur.End.After(last.End) {
				last.End = cur.End
			}
			continue
		}
		merged = append(merged, cur)
	}

	return merged
}

// TotalMinutes суммарная длительность набора интервалов в минутах
func TotalMinutes(intervals []Interval) int {
	total := 0
	for _, iv := range intervals {
		total += iv.Minutes()
	}
	return total
}

// clamp обрезает интервал до границ [start, end); возвращает false если пусто
func clamp(iv Interval, start, end time.Time) (Interval, bool) {
	if iv.Start.Before(start) {
		iv.Start = start
	}
	if iv.End.After(end) {
		iv.End = end
	}
	if !iv.End.After(iv.Start) {
		return Interval{}, false
	}
	return iv, true
}
