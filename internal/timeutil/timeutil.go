// Package timeutil 提供相对时间展示、时间窗口判断以及秒/毫秒/ISO 字符串之间的换算
package timeutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultWindowHours 默认的新鲜度窗口（小时）
const DefaultWindowHours = 48

// ErrInvalidInstant 无法解析为时间点
var ErrInvalidInstant = errors.New("timeutil: invalid instant")

// Now 返回当前时间，测试中可替换
var Now = time.Now

// 常见的 ISO-8601 形式，按出现频率排序
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// MinusHours 返回当前时间往前推 hours 小时，作为滑动窗口的下界
func MinusHours(hours int) time.Time {
	return MinusHoursAt(Now(), hours)
}

func MinusHoursAt(now time.Time, hours int) time.Time {
	return now.Add(-time.Duration(hours) * time.Hour)
}

// ToEpochSeconds 将时间点、ISO 字符串或数值换算为 Unix 秒（向下取整）
func ToEpochSeconds(input any) (int64, error) {
	t, err := ParseInstant(input)
	if err != nil {
		return 0, err
	}
	return floorSeconds(t), nil
}

func floorSeconds(t time.Time) int64 {
	return int64(math.Floor(float64(t.UnixMilli()) / 1000))
}

// FromEpoch 把整数时间戳换算为时间点。
// 不超过 10 位十进制数字按秒处理，更长的按毫秒处理。
// 极远的过去/未来会被误判。
func FromEpoch(n int64) time.Time {
	if digits(n) <= 10 {
		return time.Unix(n, 0)
	}
	return time.UnixMilli(n)
}

func digits(n int64) int {
	if n < 0 {
		n = -n
	}
	return len(strconv.FormatInt(n, 10))
}

// ParseInstant 接受 time.Time / ISO 字符串 / 数值字符串 / 整数或浮点数
func ParseInstant(input any) (time.Time, error) {
	switch v := input.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, ErrInvalidInstant
		}
		return v, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, ErrInvalidInstant
		}
		return *v, nil
	case string:
		return parseString(v)
	case json.Number:
		return parseString(v.String())
	case int:
		return FromEpoch(int64(v)), nil
	case int32:
		return FromEpoch(int64(v)), nil
	case int64:
		return FromEpoch(v), nil
	case uint32:
		return FromEpoch(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return time.Time{}, ErrInvalidInstant
		}
		return FromEpoch(int64(v)), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}, ErrInvalidInstant
		}
		return FromEpoch(int64(math.Floor(v))), nil
	case float32:
		return ParseInstant(float64(v))
	case nil:
		return time.Time{}, ErrInvalidInstant
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidInstant, input)
	}
}

func parseString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidInstant
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return FromEpoch(n), nil
	}
	// 带小数的时间戳与 float64 入参同样处理
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return ParseInstant(f)
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInstant, s)
}

// ClassifyRelative 返回 "now" / "Xm ago" / "Xh ago" / "Xd ago"；无法解析时返回空串
func ClassifyRelative(input any) string {
	return ClassifyRelativeAt(Now(), input)
}

func ClassifyRelativeAt(now time.Time, input any) string {
	t, err := ParseInstant(input)
	if err != nil {
		return ""
	}
	delta := int64(math.Floor(now.Sub(t).Seconds()))
	switch {
	case delta < 60:
		// 未来时间也归为 now
		return "now"
	case delta < 3600:
		return fmt.Sprintf("%dm ago", delta/60)
	case delta < 86400:
		return fmt.Sprintf("%dh ago", delta/3600)
	default:
		return fmt.Sprintf("%dd ago", delta/86400)
	}
}

// IsWithinWindow 判断时间点是否落在最近 hours 小时内；无法解析时返回 false
func IsWithinWindow(input any, hours int) bool {
	return IsWithinWindowAt(Now(), input, hours)
}

func IsWithinWindowAt(now time.Time, input any, hours int) bool {
	t, err := ParseInstant(input)
	if err != nil {
		return false
	}
	return !t.Before(MinusHoursAt(now, hours))
}
