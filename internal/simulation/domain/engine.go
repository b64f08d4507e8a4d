package domain

import (
	"math"
	"sort"
)

// TrackingLimit 保留完整轨迹的模拟条数上限
const TrackingLimit = 1000

// Phase 引擎状态
type Phase string

const (
	PhaseTracking     Phase = "TRACKING"     // 保留完整路径
	PhaseAccumulating Phase = "ACCUMULATING" // 仅累计收益
)

// Engine Heston 蒙特卡洛定价引擎
// 拥有配置、运行状态及路径档案。非并发安全：同一实例同一时刻只能有一个调用在执行。
type Engine struct {
	rng       *RandomSource
	simulator *PathSimulator

	cfg         SimulationConfig
	initialized bool

	simulationCount int
	tracking        bool
	archive         []PricePath
	totalPayoffs    float64
	totalSquares    float64
	optionPrice     float64
	bsPrice         float64
	batches         int
}

// NewEngine 基于均匀随机数流创建引擎
func NewEngine(uniform UniformSource) *Engine {
	rng := NewRandomSource(uniform)
	return &Engine{
		rng:       rng,
		simulator: NewPathSimulator(rng),
		tracking:  true,
	}
}

// Initialize 设置配置并重置全部派生状态
// 配置非法时返回 ConfigurationError，引擎保持原状态。
func (e *Engine) Initialize(cfg SimulationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.cfg = cfg
	e.initialized = true
	e.simulationCount = 0
	e.tracking = true
	e.archive = make([]PricePath, 0, TrackingLimit)
	e.totalPayoffs = 0
	e.totalSquares = 0
	e.optionPrice = 0
	e.batches = 0
	e.bsPrice = BlackScholesCall(cfg.S0, cfg.K, cfg.R, cfg.T, math.Sqrt(cfg.V0))
	e.rng.Reset()
	return nil
}

// RunBatch 连续模拟 batchSize 条路径并更新期权价格估计
func (e *Engine) RunBatch(batchSize int) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if batchSize <= 0 {
		return ErrInvalidBatchSize
	}

	for i := 0; i < batchSize; i++ {
		var final float64
		if e.tracking {
			path := e.simulator.SimulateFullPath(e.cfg)
			if len(e.archive) < TrackingLimit {
				e.archive = append(e.archive, path)
			}
			final = path.Final()
		} else {
			final = e.simulator.SimulateFinalPriceOnly(e.cfg)
		}

		payoff := e.cfg.Payoff(final)
		e.totalPayoffs += payoff
		e.totalSquares += payoff * payoff
		e.simulationCount++

		if e.tracking && e.simulationCount == TrackingLimit {
			e.tracking = false
			sort.SliceStable(e.archive, func(a, b int) bool {
				return e.archive[a].Final() < e.archive[b].Final()
			})
		}
	}

	e.batches++
	e.optionPrice = e.cfg.DiscountFactor() * e.totalPayoffs / float64(e.simulationCount)
	return nil
}

// SimulationCount 已模拟的路径总数
func (e *Engine) SimulationCount() int {
	return e.simulationCount
}

// OptionPrice 当前蒙特卡洛价格估计，首个批次之前为 0
func (e *Engine) OptionPrice() float64 {
	return e.optionPrice
}

// BlackScholesPrice 初始化时以 sqrt(v0) 计算的 Black-Scholes 基准价
func (e *Engine) BlackScholesPrice() float64 {
	return e.bsPrice
}

// StandardError 贴现后价格估计的蒙特卡洛标准误差，不足两条路径时为 0
func (e *Engine) StandardError() float64 {
	n := float64(e.simulationCount)
	if e.simulationCount < 2 {
		return 0
	}
	mean := e.totalPayoffs / n
	variance := (e.totalSquares/n - mean*mean) * n / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return e.cfg.DiscountFactor() * math.Sqrt(variance/n)
}

// TimeSteps 配置中的时间步数
func (e *Engine) TimeSteps() int {
	return e.cfg.N
}

// IsTrackingPhase 是否仍处于保留完整路径的阶段
func (e *Engine) IsTrackingPhase() bool {
	return e.tracking
}

// Phase 当前状态
func (e *Engine) Phase() Phase {
	if e.tracking {
		return PhaseTracking
	}
	return PhaseAccumulating
}

// Batches 已完成的批次数
func (e *Engine) Batches() int {
	return e.batches
}

// ArchiveSize 档案中保存的路径数
func (e *Engine) ArchiveSize() int {
	return len(e.archive)
}

// Config 当前配置
func (e *Engine) Config() SimulationConfig {
	return e.cfg
}

// Initialized 是否已成功初始化
func (e *Engine) Initialized() bool {
	return e.initialized
}

// PercentilePath 按到期价格排名返回档案中的一条路径
// 仅在累计阶段且档案非空时可用；其他情况或不支持的档位返回 false。
func (e *Engine) PercentilePath(p int) (PricePath, bool) {
	if e.tracking || len(e.archive) == 0 {
		return PricePath{}, false
	}
	idx, ok := Percentile(p).archiveIndex(len(e.archive))
	if !ok {
		return PricePath{}, false
	}
	return e.archive[idx], true
}
