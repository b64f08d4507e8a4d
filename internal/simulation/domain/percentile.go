package domain

// Percentile 可查询的百分位档位，封闭枚举
type Percentile int

const (
	PercentileMin    Percentile = 0
	Percentile25     Percentile = 25
	PercentileMedian Percentile = 50
	Percentile75     Percentile = 75
	PercentileMax    Percentile = 100
)

// Percentiles 所有支持的档位，按升序
func Percentiles() []Percentile {
	return []Percentile{PercentileMin, Percentile25, PercentileMedian, Percentile75, PercentileMax}
}

// archiveIndex 将档位映射到已排序档案的下标
// p=100 固定取 size-1，其余取 floor(size·p/100)；不支持的档位返回 false
func (p Percentile) archiveIndex(size int) (int, bool) {
	switch p {
	case PercentileMin:
		return 0, true
	case Percentile25, PercentileMedian, Percentile75:
		return size * int(p) / 100, true
	case PercentileMax:
		return size - 1, true
	default:
		return 0, false
	}
}
