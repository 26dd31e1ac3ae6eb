package trading

import "time"

// 中国时区
var cst = time.FixedZone("CST", 8*3600)

// TimeRange 时间范围
type TimeRange struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// A股交易时间段
var stockTradingHours = []TimeRange{
	{9, 30, 11, 30}, // 上午 9:30-11:30
	{13, 0, 15, 0},  // 下午 13:00-15:00
}

// IsStockTradingTime 判断当前是否为A股交易时间
func IsStockTradingTime() bool {
	return IsStockTradingTimeAt(time.Now())
}

// IsStockTradingTimeAt 判断指定时间是否为A股交易时间
func IsStockTradingTimeAt(t time.Time) bool {
	t = t.In(cst)
	if !isWeekday(t) {
		return false
	}
	return isInTimeRanges(t, stockTradingHours)
}

// SessionOpen 报告 source 对应市场在 t 时刻是否处于盘中。
// 盘中的当日K线尚未收定，日K同步应等到收盘后。
// yahoo 覆盖加密货币等全天候品种，视为始终可同步。
func SessionOpen(source string, t time.Time) bool {
	switch source {
	case "eastmoney":
		return IsStockTradingTimeAt(t)
	default:
		return false
	}
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// isInTimeRanges 检查时间是否在指定的时间范围内
func isInTimeRanges(t time.Time, ranges []TimeRange) bool {
	currentMinutes := t.Hour()*60 + t.Minute()

	for _, r := range ranges {
		startMinutes := r.StartHour*60 + r.StartMinute
		endMinutes := r.EndHour*60 + r.EndMinute

		if startMinutes <= endMinutes {
			if currentMinutes >= startMinutes && currentMinutes <= endMinutes {
				return true
			}
		} else if currentMinutes >= startMinutes || currentMinutes <= endMinutes {
			// 跨午夜
			return true
		}
	}
	return false
}
