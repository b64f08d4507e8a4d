package domain

// PricePath 一条模拟价格轨迹 S_0 … S_N 的只读视图
// 底层数据归引擎的路径档案所有，在所属引擎下一次 Initialize 之前有效；
// 档案在排序之后不再修改。需要持有数据时调用 Values 获取副本。
type PricePath struct {
	prices []float64
	final  float64
}

func newPricePath(prices []float64) PricePath {
	return PricePath{prices: prices, final: prices[len(prices)-1]}
}

// Len 轨迹点数 (N+1)
func (p PricePath) Len() int {
	return len(p.prices)
}

// At 第 i 个时间点的价格
func (p PricePath) At(i int) float64 {
	return p.prices[i]
}

// Final 到期价格 S_N
func (p PricePath) Final() float64 {
	return p.final
}

// Values 返回轨迹的副本
func (p PricePath) Values() []float64 {
	out := make([]float64, len(p.prices))
	copy(out, p.prices)
	return out
}
