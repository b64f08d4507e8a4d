package domain

import "time"

const (
	SimulationInitializedEventType       = "SimulationInitialized"
	SimulationBatchCompletedEventType    = "SimulationBatchCompleted"
	SimulationTrackingCompletedEventType = "SimulationTrackingCompleted"
	SimulationDeletedEventType           = "SimulationDeleted"
)

// SimulationInitializedEvent 模拟初始化 (或重新初始化) 事件
type SimulationInitializedEvent struct {
	SimulationID      string           `json:"simulation_id"`
	Config            SimulationConfig `json:"config"`
	BlackScholesPrice float64          `json:"black_scholes_price"`
	OccurredOn        time.Time        `json:"occurred_on"`
}

// SimulationBatchCompletedEvent 批次完成事件
type SimulationBatchCompletedEvent struct {
	SimulationID    string    `json:"simulation_id"`
	BatchSize       int       `json:"batch_size"`
	SimulationCount int       `json:"simulation_count"`
	OptionPrice     float64   `json:"option_price"`
	StandardError   float64   `json:"standard_error"`
	Phase           Phase     `json:"phase"`
	DurationMs      int64     `json:"duration_ms"`
	OccurredOn      time.Time `json:"occurred_on"`
}

// SimulationTrackingCompletedEvent 跟踪阶段结束、百分位路径可用事件
type SimulationTrackingCompletedEvent struct {
	SimulationID string    `json:"simulation_id"`
	ArchiveSize  int       `json:"archive_size"`
	MinFinal     float64   `json:"min_final"`
	MedianFinal  float64   `json:"median_final"`
	MaxFinal     float64   `json:"max_final"`
	OccurredOn   time.Time `json:"occurred_on"`
}

// SimulationDeletedEvent 模拟会话删除事件
type SimulationDeletedEvent struct {
	SimulationID    string    `json:"simulation_id"`
	SimulationCount int       `json:"simulation_count"`
	OccurredOn      time.Time `json:"occurred_on"`
}
