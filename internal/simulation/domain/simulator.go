package domain

import "math"

// NormalSampler 标准正态随机数来源
type NormalSampler interface {
	StandardNormal() float64
}

// PathSimulator 按 Milstein 型离散格式推进 Heston 价格/方差路径
type PathSimulator struct {
	rng NormalSampler
}

// NewPathSimulator 创建路径模拟器
func NewPathSimulator(rng NormalSampler) *PathSimulator {
	return &PathSimulator{rng: rng}
}

// stepCoefficients 单条路径内不变的系数
type stepCoefficients struct {
	dt        float64
	rhoBar    float64 // sqrt(1-rho²)
	xiQuarter float64 // xi²/4
}

func newStepCoefficients(cfg SimulationConfig) stepCoefficients {
	return stepCoefficients{
		dt:        cfg.Dt(),
		rhoBar:    math.Sqrt(1 - cfg.Rho*cfg.Rho),
		xiQuarter: cfg.Xi * cfg.Xi / 4.0,
	}
}

// step 推进一步，返回新的价格与方差
// 方差只在漂移项和平方根中截断为非负，存储的是未截断值；价格使用更新前的方差。
func (ps *PathSimulator) step(cfg SimulationConfig, c stepCoefficients, s, v float64) (float64, float64) {
	zS := ps.rng.StandardNormal()
	zV := cfg.Rho*zS + c.rhoBar*ps.rng.StandardNormal()

	vPos := math.Max(v, 0)
	nextV := v + cfg.Kappa*(cfg.Theta-vPos)*c.dt +
		zV*cfg.Xi*math.Sqrt(vPos*c.dt) +
		c.xiQuarter*((zV*zV-1.0)*c.dt)

	nextS := s * math.Exp((cfg.R-v/2.0)*c.dt+zS*math.Sqrt(vPos*c.dt))
	return nextS, nextV
}

// walk 执行 N 步递推，visit 非空时在每步后收到 (i, S_i)，返回 S_N
func (ps *PathSimulator) walk(cfg SimulationConfig, visit func(i int, s float64)) float64 {
	c := newStepCoefficients(cfg)
	s, v := cfg.S0, cfg.V0
	for i := 1; i <= cfg.N; i++ {
		s, v = ps.step(cfg, c, s, v)
		if visit != nil {
			visit(i, s)
		}
	}
	return s
}

// SimulateFullPath 模拟并保留完整价格序列 S_0 … S_N
func (ps *PathSimulator) SimulateFullPath(cfg SimulationConfig) PricePath {
	prices := make([]float64, cfg.N+1)
	prices[0] = cfg.S0
	ps.walk(cfg, func(i int, s float64) {
		prices[i] = s
	})
	return newPricePath(prices)
}

// SimulateFinalPriceOnly 与 SimulateFullPath 相同的递推，仅返回到期价格，O(1) 内存
func (ps *PathSimulator) SimulateFinalPriceOnly(cfg SimulationConfig) float64 {
	return ps.walk(cfg, nil)
}
