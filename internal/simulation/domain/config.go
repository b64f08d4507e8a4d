package domain

import "math"

// SimulationConfig Heston 模型与欧式看涨期权参数，设置后不可变
type SimulationConfig struct {
	S0    float64 `json:"s0"`    // 初始标的价格
	V0    float64 `json:"v0"`    // 初始方差
	R     float64 `json:"r"`     // 无风险利率
	Theta float64 `json:"theta"` // 长期方差
	Kappa float64 `json:"kappa"` // 均值回归速度
	Xi    float64 `json:"xi"`    // 方差的波动率
	Rho   float64 `json:"rho"`   // 价格与方差驱动的相关系数
	T     float64 `json:"t"`     // 到期时间 (年)
	K     float64 `json:"k"`     // 执行价格
	N     int     `json:"n"`     // 时间步数
}

// Validate 校验结构性约束：有限值、正的规模参数、rho ∈ [-1,1]、N ≥ 1
// 业务上的范围 (例如 N ≥ 100) 由调用方负责。
func (c SimulationConfig) Validate() error {
	finite := []struct {
		name string
		v    float64
	}{
		{"s0", c.S0}, {"v0", c.V0}, {"r", c.R}, {"theta", c.Theta}, {"kappa", c.Kappa},
		{"xi", c.Xi}, {"rho", c.Rho}, {"t", c.T}, {"k", c.K},
	}
	for _, f := range finite {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ConfigurationError{Field: f.name, Value: f.v, Reason: "must be finite"}
		}
	}

	positive := []struct {
		name string
		v    float64
	}{
		{"s0", c.S0}, {"k", c.K}, {"t", c.T}, {"v0", c.V0}, {"theta", c.Theta}, {"kappa", c.Kappa}, {"xi", c.Xi},
	}
	for _, f := range positive {
		if f.v <= 0 {
			return &ConfigurationError{Field: f.name, Value: f.v, Reason: "must be positive"}
		}
	}

	if c.Rho < -1 || c.Rho > 1 {
		return &ConfigurationError{Field: "rho", Value: c.Rho, Reason: "must be within [-1, 1]"}
	}
	if c.N < 1 {
		return &ConfigurationError{Field: "n", Value: float64(c.N), Reason: "must be at least 1"}
	}
	return nil
}

// Dt 单步时间间隔
func (c SimulationConfig) Dt() float64 {
	return c.T / float64(c.N)
}

// DiscountFactor 贴现因子 exp(-rT)
func (c SimulationConfig) DiscountFactor() float64 {
	return math.Exp(-c.R * c.T)
}

// Payoff 欧式看涨期权到期收益
func (c SimulationConfig) Payoff(finalPrice float64) float64 {
	return math.Max(finalPrice-c.K, 0)
}
