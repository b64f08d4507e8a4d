package domain

import (
	"math"
	"math/rand/v2"
)

// UniformSource 均匀分布随机数流，返回 [0,1) 区间的值
type UniformSource interface {
	Uniform() float64
}

// PCGSource 基于 PCG 的可复现均匀随机数流
type PCGSource struct {
	r *rand.Rand
}

// NewPCGSource 使用给定种子创建 PCG 随机数流
func NewPCGSource(seed uint64) *PCGSource {
	return &PCGSource{r: rand.New(rand.NewPCG(seed, 0))}
}

// Uniform 返回 [0,1) 的均匀随机数
func (s *PCGSource) Uniform() float64 {
	return s.r.Float64()
}

const (
	lcgMultiplier = 1103515245
	lcgIncrement  = 12345
	lcgMask       = 0x7fffffff
)

// LCGSource 31 位线性同余发生器，相同种子产生与 C 语言 rand 风格实现一致的序列
type LCGSource struct {
	state uint64
}

// NewLCGSource 创建线性同余随机数流
func NewLCGSource(seed uint64) *LCGSource {
	return &LCGSource{state: seed}
}

// Uniform 推进一步并返回 state/0x7fffffff
// 当 state 恰好等于掩码时结果为 1，此处折回 0 以保持 [0,1) 的约定
func (s *LCGSource) Uniform() float64 {
	s.state = (s.state*lcgMultiplier + lcgIncrement) & lcgMask
	if s.state == lcgMask {
		return 0
	}
	return float64(s.state) / lcgMask
}

// RandomSource 标准正态随机数发生器 (Box-Muller，带备用值缓存)
// 每消耗两个均匀随机数产生两个独立的正态值，第二个缓存到下一次调用返回。
// 非并发安全，只能由单个引擎驱动。
type RandomSource struct {
	uniform  UniformSource
	hasSpare bool
	spare    float64
}

// NewRandomSource 基于均匀随机数流创建正态随机数发生器
func NewRandomSource(uniform UniformSource) *RandomSource {
	return &RandomSource{uniform: uniform}
}

// Uniform 直接返回底层均匀随机数
func (rs *RandomSource) Uniform() float64 {
	return rs.uniform.Uniform()
}

// StandardNormal 返回一个标准正态随机数
func (rs *RandomSource) StandardNormal() float64 {
	if rs.hasSpare {
		rs.hasSpare = false
		return rs.spare
	}

	// u 为 0 时重新抽取
	u := rs.uniform.Uniform()
	for u == 0 {
		u = rs.uniform.Uniform()
	}
	v := rs.uniform.Uniform()
	mag := math.Sqrt(-2.0 * math.Log(u))
	rs.spare = mag * math.Cos(2.0*math.Pi*v)
	rs.hasSpare = true
	return mag * math.Sin(2.0*math.Pi*v)
}

// Reset 清空备用值缓存
func (rs *RandomSource) Reset() {
	rs.hasSpare = false
	rs.spare = 0
}
