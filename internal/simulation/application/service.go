package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wyfcoding/heston/internal/simulation/domain"
	"github.com/wyfcoding/heston/pkg/config"
	"github.com/wyfcoding/heston/pkg/logger"
	"github.com/wyfcoding/heston/pkg/metrics"
)

var tracer = otel.Tracer("github.com/wyfcoding/heston/internal/simulation/application")

// session 一个独立的定价引擎及其元数据
// mu 保证同一引擎同一时刻只有一个调用在执行。
type session struct {
	mu        sync.Mutex
	id        string
	engine    *domain.Engine
	generator string
	seed      uint64
	createdAt time.Time
	updatedAt time.Time
}

// SimulationService 模拟会话应用服务
type SimulationService struct {
	cfg       config.SimulationConfig
	publisher domain.EventPublisher
	metrics   *metrics.Metrics

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewSimulationService 创建模拟会话服务，publisher 与 m 可以为 nil
func NewSimulationService(cfg config.SimulationConfig, publisher domain.EventPublisher, m *metrics.Metrics) *SimulationService {
	return &SimulationService{
		cfg:       cfg,
		publisher: publisher,
		metrics:   m,
		sessions:  make(map[string]*session),
	}
}

// DefaultBatchSize 未指定批次大小时使用的值
func (s *SimulationService) DefaultBatchSize() int {
	if s.cfg.DefaultBatchSize > 0 {
		return s.cfg.DefaultBatchSize
	}
	return domain.TrackingLimit
}

// CreateSimulation 创建会话并以给定参数初始化引擎
func (s *SimulationService) CreateSimulation(ctx context.Context, cmd CreateSimulationCommand) (*SimulationDTO, error) {
	cfg := cmd.ToDomain()
	if err := s.checkTimeSteps(cfg); err != nil {
		return nil, err
	}

	generator := strings.ToLower(cmd.Generator)
	if generator == "" {
		generator = GeneratorPCG
	}
	seed := cmd.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	uniform, err := newUniformSource(generator, seed)
	if err != nil {
		return nil, err
	}

	engine := domain.NewEngine(uniform)
	if err := engine.Initialize(cfg); err != nil {
		s.metrics.RejectConfig()
		return nil, fmt.Errorf("create simulation: %w", err)
	}

	now := time.Now()
	sess := &session{
		id:        uuid.NewString(),
		engine:    engine,
		generator: generator,
		seed:      seed,
		createdAt: now,
		updatedAt: now,
	}

	s.mu.Lock()
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: limit %d", ErrTooManySessions, s.cfg.MaxSessions)
	}
	s.sessions[sess.id] = sess
	count := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetSessions(count)

	logger.Info(ctx, "simulation created", "simulation_id", sess.id, "generator", generator, "seed", seed, "n", cfg.N)
	s.publish(ctx, domain.SimulationInitializedEventType, sess.id, domain.SimulationInitializedEvent{
		SimulationID:      sess.id,
		Config:            cfg,
		BlackScholesPrice: engine.BlackScholesPrice(),
		OccurredOn:        now,
	})
	return toSimulationDTO(sess), nil
}

// Reinitialize 替换会话配置并重置状态；配置非法时会话保持不变
// 均匀随机数流按会话种子重新开始，相同种子与配置总能重放出相同结果。
func (s *SimulationService) Reinitialize(ctx context.Context, cmd ReinitializeCommand) (*SimulationDTO, error) {
	sess, err := s.get(cmd.ID)
	if err != nil {
		return nil, err
	}
	cfg := cmd.ToDomain()
	if err := s.checkTimeSteps(cfg); err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	uniform, err := newUniformSource(sess.generator, sess.seed)
	if err != nil {
		return nil, err
	}
	engine := domain.NewEngine(uniform)
	if err := engine.Initialize(cfg); err != nil {
		s.metrics.RejectConfig()
		return nil, fmt.Errorf("reinitialize simulation %s: %w", sess.id, err)
	}
	sess.engine = engine
	sess.updatedAt = time.Now()

	logger.Info(ctx, "simulation reinitialized", "simulation_id", sess.id, "n", cfg.N)
	s.publish(ctx, domain.SimulationInitializedEventType, sess.id, domain.SimulationInitializedEvent{
		SimulationID:      sess.id,
		Config:            cfg,
		BlackScholesPrice: sess.engine.BlackScholesPrice(),
		OccurredOn:        sess.updatedAt,
	})
	return toSimulationDTO(sess), nil
}

// RunBatch 在会话上执行一个批次
func (s *SimulationService) RunBatch(ctx context.Context, cmd RunBatchCommand) (*SimulationDTO, error) {
	sess, err := s.get(cmd.ID)
	if err != nil {
		return nil, err
	}
	batchSize, err := s.resolveBatchSize(cmd.BatchSize)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.runBatchLocked(ctx, sess, batchSize)
}

// RunUntil 循环执行批次直到路径总数达到目标或 ctx 被取消
// 取消时返回取消前最后一个批次的状态以及 ctx 的错误。
func (s *SimulationService) RunUntil(ctx context.Context, cmd RunUntilCommand, progress ProgressFunc) (*SimulationDTO, error) {
	if cmd.Target <= 0 {
		return nil, ErrInvalidTarget
	}
	sess, err := s.get(cmd.ID)
	if err != nil {
		return nil, err
	}
	batchSize, err := s.resolveBatchSize(cmd.BatchSize)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	current := sess.engine.SimulationCount()
	sess.mu.Unlock()

	runner := NewRunner(time.Duration(s.cfg.FrameIntervalMs)*time.Millisecond, batchSize)
	last, err := runner.Run(ctx, current, cmd.Target, func(ctx context.Context, n int) (*SimulationDTO, error) {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		// 其他调用者可能在批次之间推进了同一会话
		n = min(n, cmd.Target-sess.engine.SimulationCount())
		if n <= 0 {
			return toSimulationDTO(sess), nil
		}
		return s.runBatchLocked(ctx, sess, n)
	}, progress)
	if last == nil && err == nil {
		return s.GetSimulation(ctx, cmd.ID)
	}
	return last, err
}

func (s *SimulationService) runBatchLocked(ctx context.Context, sess *session, batchSize int) (*SimulationDTO, error) {
	engine := sess.engine
	phase := engine.Phase()

	ctx, span := tracer.Start(ctx, "simulation.RunBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("simulation.id", sess.id),
		attribute.Int("simulation.batch_size", batchSize),
		attribute.String("simulation.phase", string(phase)),
	)

	start := time.Now()
	if err := engine.RunBatch(batchSize); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("run batch on simulation %s: %w", sess.id, err)
	}
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("simulation.count", engine.SimulationCount()))
	sess.updatedAt = time.Now()
	s.metrics.ObserveBatch(string(phase), batchSize, elapsed.Seconds())

	logger.Debug(ctx, "simulation batch completed",
		"simulation_id", sess.id,
		"batch_size", batchSize,
		"simulation_count", engine.SimulationCount(),
		"option_price", engine.OptionPrice(),
		"duration", elapsed,
	)
	s.publish(ctx, domain.SimulationBatchCompletedEventType, sess.id, domain.SimulationBatchCompletedEvent{
		SimulationID:    sess.id,
		BatchSize:       batchSize,
		SimulationCount: engine.SimulationCount(),
		OptionPrice:     engine.OptionPrice(),
		StandardError:   engine.StandardError(),
		Phase:           engine.Phase(),
		DurationMs:      elapsed.Milliseconds(),
		OccurredOn:      sess.updatedAt,
	})

	if phase == domain.PhaseTracking && !engine.IsTrackingPhase() {
		minPath, _ := engine.PercentilePath(int(domain.PercentileMin))
		medianPath, _ := engine.PercentilePath(int(domain.PercentileMedian))
		maxPath, _ := engine.PercentilePath(int(domain.PercentileMax))
		logger.Info(ctx, "simulation tracking completed", "simulation_id", sess.id, "archive_size", engine.ArchiveSize())
		s.publish(ctx, domain.SimulationTrackingCompletedEventType, sess.id, domain.SimulationTrackingCompletedEvent{
			SimulationID: sess.id,
			ArchiveSize:  engine.ArchiveSize(),
			MinFinal:     minPath.Final(),
			MedianFinal:  medianPath.Final(),
			MaxFinal:     maxPath.Final(),
			OccurredOn:   sess.updatedAt,
		})
	}
	return toSimulationDTO(sess), nil
}

// GetSimulation 查询会话状态
func (s *SimulationService) GetSimulation(_ context.Context, id string) (*SimulationDTO, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return toSimulationDTO(sess), nil
}

// GetPercentilePath 查询单个百分位路径
func (s *SimulationService) GetPercentilePath(_ context.Context, id string, p int) (*PercentilePathDTO, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	path, ok := sess.engine.PercentilePath(p)
	if !ok {
		return nil, fmt.Errorf("%w: percentile %d", ErrPercentileUnavailable, p)
	}
	return toPercentilePathDTO(domain.Percentile(p), path), nil
}

// ListPercentilePaths 查询全部百分位路径，跟踪阶段返回空列表
func (s *SimulationService) ListPercentilePaths(_ context.Context, id string) ([]*PercentilePathDTO, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	out := make([]*PercentilePathDTO, 0, len(domain.Percentiles()))
	for _, p := range domain.Percentiles() {
		if path, ok := sess.engine.PercentilePath(int(p)); ok {
			out = append(out, toPercentilePathDTO(p, path))
		}
	}
	return out, nil
}

// ListSimulations 按创建时间列出全部会话
func (s *SimulationService) ListSimulations(_ context.Context) ([]*SimulationDTO, error) {
	s.mu.RLock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	slices.SortFunc(sessions, func(a, b *session) int {
		if c := a.createdAt.Compare(b.createdAt); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})

	out := make([]*SimulationDTO, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		out = append(out, toSimulationDTO(sess))
		sess.mu.Unlock()
	}
	return out, nil
}

// DeleteSimulation 删除会话
func (s *SimulationService) DeleteSimulation(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSimulationNotFound, id)
	}
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetSessions(count)

	sess.mu.Lock()
	simulated := sess.engine.SimulationCount()
	sess.mu.Unlock()

	logger.Info(ctx, "simulation deleted", "simulation_id", id, "simulation_count", simulated)
	s.publish(ctx, domain.SimulationDeletedEventType, id, domain.SimulationDeletedEvent{
		SimulationID:    id,
		SimulationCount: simulated,
		OccurredOn:      time.Now(),
	})
	return nil
}

func (s *SimulationService) get(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSimulationNotFound, id)
	}
	return sess, nil
}

func (s *SimulationService) checkTimeSteps(cfg domain.SimulationConfig) error {
	if s.cfg.MinTimeSteps > 0 && cfg.N < s.cfg.MinTimeSteps {
		return fmt.Errorf("%w: n=%d, minimum %d", ErrTimeStepsTooFew, cfg.N, s.cfg.MinTimeSteps)
	}
	return nil
}

func (s *SimulationService) resolveBatchSize(n int) (int, error) {
	if n == 0 {
		n = s.DefaultBatchSize()
	}
	if n < 0 {
		return 0, domain.ErrInvalidBatchSize
	}
	if s.cfg.MaxBatchSize > 0 && n > s.cfg.MaxBatchSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, n, s.cfg.MaxBatchSize)
	}
	return n, nil
}

func (s *SimulationService) publish(ctx context.Context, eventType, key string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, key, event); err != nil {
		logger.Warn(ctx, "failed to publish simulation event", "event_type", eventType, "simulation_id", key, "error", err)
	}
}

func newUniformSource(generator string, seed uint64) (domain.UniformSource, error) {
	switch generator {
	case GeneratorPCG:
		return domain.NewPCGSource(seed), nil
	case GeneratorLCG:
		return domain.NewLCGSource(seed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, generator)
	}
}

// IsClientError 判断错误是否由请求参数引起
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidConfig) ||
		errors.Is(err, domain.ErrInvalidBatchSize) ||
		errors.Is(err, ErrBatchTooLarge) ||
		errors.Is(err, ErrTimeStepsTooFew) ||
		errors.Is(err, ErrInvalidTarget) ||
		errors.Is(err, ErrUnknownGenerator)
}
