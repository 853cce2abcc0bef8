// Package timerange 解析命令行里的 --since/--until 日期参数，生成快照搜索用的闭区间。
package timerange

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var timeNow = time.Now

// ParseDate 解析日期字符串，返回该日期的起点，支持：
//   - 时间戳: "2025-01-15T08:30:00Z"（RFC 3339，原样返回）
//   - ISO 日期: "2025-01-15"
//   - 年月: "2025-01" → 2025-01-01
//   - 相对日期: "3d"/"1w"/"2m"/"1y" → 3天前/1周前/2月前/1年前
func ParseDate(s string) (time.Time, error) {
	t, _, err := parse(s)
	return t, err
}

// ParseEnd 与 ParseDate 接受相同的格式，但返回所指时段的最后一秒，
// 这样 --until 2025-01-15 包含当天全部快照。
func ParseEnd(s string) (time.Time, error) {
	t, span, err := parse(s)
	if err != nil {
		return time.Time{}, err
	}
	switch span {
	case spanDay:
		return t.AddDate(0, 0, 1).Add(-time.Second), nil
	case spanMonth:
		return t.AddDate(0, 1, 0).Add(-time.Second), nil
	default:
		return t, nil
	}
}

// Window turns optional --since/--until arguments into search bounds.
// Empty arguments leave the corresponding bound open.
func Window(since, until string) (start, stop *time.Time, err error) {
	if strings.TrimSpace(since) != "" {
		t, parseErr := ParseDate(since)
		if parseErr != nil {
			return nil, nil, fmt.Errorf("parse --since: %w", parseErr)
		}
		start = &t
	}
	if strings.TrimSpace(until) != "" {
		t, parseErr := ParseEnd(until)
		if parseErr != nil {
			return nil, nil, fmt.Errorf("parse --until: %w", parseErr)
		}
		stop = &t
	}
	if start != nil && stop != nil && start.After(*stop) {
		return nil, nil, fmt.Errorf(
			"since must be <= until (since=%s, until=%s)",
			start.Format(time.RFC3339),
			stop.Format(time.RFC3339),
		)
	}
	return start, stop, nil
}

type span int

const (
	spanInstant span = iota
	spanDay
	spanMonth
)

func parse(s string) (time.Time, span, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, spanInstant, fmt.Errorf("date is empty")
	}

	now := timeNow()
	loc := now.Location()

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, spanInstant, nil
	}

	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return beginningOfDay(t, loc), spanDay, nil
	}

	if t, err := time.ParseInLocation("2006-01", s, loc); err == nil {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc), spanMonth, nil
	}

	// <n><unit>，unit 为 d/w/m/y
	if len(s) >= 2 {
		unit := s[len(s)-1]
		n, err := strconv.Atoi(strings.TrimSpace(s[:len(s)-1]))
		if err == nil {
			if n <= 0 {
				return time.Time{}, spanInstant, fmt.Errorf("relative date must be > 0, got %q", s)
			}

			base := beginningOfDay(now, loc)
			switch unit {
			case 'd', 'D':
				return base.AddDate(0, 0, -n), spanDay, nil
			case 'w', 'W':
				return base.AddDate(0, 0, -7*n), spanDay, nil
			case 'm', 'M':
				return base.AddDate(0, -n, 0), spanDay, nil
			case 'y', 'Y':
				return base.AddDate(-n, 0, 0), spanDay, nil
			}
		}
	}

	return time.Time{}, spanInstant, fmt.Errorf("invalid date %q (expected RFC 3339, YYYY-MM-DD, YYYY-MM, or relative like 3d/1w/2m/1y)", s)
}

func beginningOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
