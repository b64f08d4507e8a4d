package application

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/heston/internal/simulation/domain"
)

// 价格类字段保留的小数位
const priceScale = 6

const (
	GeneratorPCG = "pcg"
	GeneratorLCG = "lcg"
)

// SimulationParams Heston 模型与期权参数
type SimulationParams struct {
	S0    float64 `json:"s0"`
	V0    float64 `json:"v0"`
	R     float64 `json:"r"`
	Theta float64 `json:"theta"`
	Kappa float64 `json:"kappa"`
	Xi    float64 `json:"xi"`
	Rho   float64 `json:"rho"`
	T     float64 `json:"t"`
	K     float64 `json:"k"`
	N     int     `json:"n"`
}

// ToDomain 转换为领域配置
func (p SimulationParams) ToDomain() domain.SimulationConfig {
	return domain.SimulationConfig{
		S0: p.S0, V0: p.V0, R: p.R, Theta: p.Theta, Kappa: p.Kappa,
		Xi: p.Xi, Rho: p.Rho, T: p.T, K: p.K, N: p.N,
	}
}

func paramsFromDomain(c domain.SimulationConfig) SimulationParams {
	return SimulationParams{
		S0: c.S0, V0: c.V0, R: c.R, Theta: c.Theta, Kappa: c.Kappa,
		Xi: c.Xi, Rho: c.Rho, T: c.T, K: c.K, N: c.N,
	}
}

// CreateSimulationCommand 创建模拟会话命令
type CreateSimulationCommand struct {
	SimulationParams
	// 随机种子，0 表示按当前时间生成
	Seed uint64 `json:"seed"`
	// 均匀随机数生成器：pcg (默认) 或 lcg
	Generator string `json:"generator"`
}

// ReinitializeCommand 替换会话配置，随机数流延续
type ReinitializeCommand struct {
	ID string `json:"-"`
	SimulationParams
}

// RunBatchCommand 执行单个批次
type RunBatchCommand struct {
	ID string `json:"-"`
	// 0 表示使用默认批次大小
	BatchSize int `json:"batch_size"`
}

// RunUntilCommand 循环执行批次直到路径总数达到 Target
type RunUntilCommand struct {
	ID        string `json:"-"`
	Target    int    `json:"target"`
	BatchSize int    `json:"batch_size"`
}

// SimulationDTO 会话对外视图
type SimulationDTO struct {
	ID                string           `json:"id"`
	Generator         string           `json:"generator"`
	Seed              uint64           `json:"seed"`
	Config            SimulationParams `json:"config"`
	Initialized       bool             `json:"initialized"`
	Phase             string           `json:"phase"`
	SimulationCount   int              `json:"simulation_count"`
	Batches           int              `json:"batches"`
	ArchiveSize       int              `json:"archive_size"`
	OptionPrice       decimal.Decimal  `json:"option_price"`
	StandardError     decimal.Decimal  `json:"standard_error"`
	BlackScholesPrice decimal.Decimal  `json:"black_scholes_price"`
	// 蒙特卡洛价格与 Black-Scholes 基准之差
	PriceDifference decimal.Decimal `json:"price_difference"`
	// 标量中存在 NaN/Inf，对应字段已置零
	NonFinite bool      `json:"non_finite,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PercentilePathDTO 百分位路径
type PercentilePathDTO struct {
	Percentile int             `json:"percentile"`
	Final      decimal.Decimal `json:"final"`
	Prices     []float64       `json:"prices"`
	// 路径中存在 NaN/Inf，对应点已置零
	NonFinite bool `json:"non_finite,omitempty"`
}

func toDecimal(v float64) (decimal.Decimal, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v).Round(priceScale), true
}

func toSimulationDTO(s *session) *SimulationDTO {
	e := s.engine
	dto := &SimulationDTO{
		ID:              s.id,
		Generator:       s.generator,
		Seed:            s.seed,
		Config:          paramsFromDomain(e.Config()),
		Initialized:     e.Initialized(),
		Phase:           string(e.Phase()),
		SimulationCount: e.SimulationCount(),
		Batches:         e.Batches(),
		ArchiveSize:     e.ArchiveSize(),
		CreatedAt:       s.createdAt,
		UpdatedAt:       s.updatedAt,
	}

	finite := true
	set := func(dst *decimal.Decimal, v float64) {
		d, ok := toDecimal(v)
		*dst = d
		finite = finite && ok
	}
	set(&dto.OptionPrice, e.OptionPrice())
	set(&dto.StandardError, e.StandardError())
	set(&dto.BlackScholesPrice, e.BlackScholesPrice())
	set(&dto.PriceDifference, e.OptionPrice()-e.BlackScholesPrice())
	dto.NonFinite = !finite
	return dto
}

func toPercentilePathDTO(p domain.Percentile, path domain.PricePath) *PercentilePathDTO {
	final, finite := toDecimal(path.Final())
	values := path.Values()
	prices := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			finite = false
			continue
		}
		prices[i] = v
	}
	return &PercentilePathDTO{
		Percentile: int(p),
		Final:      final,
		Prices:     prices,
		NonFinite:  !finite,
	}
}
