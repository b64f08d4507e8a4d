package domain

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesCall 欧式看涨期权的 Black-Scholes 闭式价格
// sigma 为 0 时返回 0，不是零波动率下的极限值 max(S0-K·e^{-rT}, 0)。
func BlackScholesCall(s0, k, r, t, sigma float64) float64 {
	if sigma == 0 {
		return 0
	}
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s0/k) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	return s0*normCdf(d1) - k*math.Exp(-r*t)*normCdf(d2)
}

// normCdf 标准正态分布累积分布函数
func normCdf(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}
