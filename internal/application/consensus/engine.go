package consensus

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-consensus-api/internal/config"
	"z-consensus-api/internal/domain/entity"
	"z-consensus-api/internal/infrastructure/provider"
	"z-consensus-api/pkg/errors"
	"z-consensus-api/pkg/logger"
	"z-consensus-api/pkg/metrics"
)

var tracer = otel.Tracer("consensus")

// 阶段名，用于日志与指标标签
const (
	phaseResponses  = "responses"
	phaseRankings   = "rankings"
	phaseSynthesize = "synthesize"
)

// AdapterFactory 由参与者配置构造适配器，测试中可替换
type AdapterFactory func(cfg entity.ParticipantConfig) (provider.Adapter, error)

// Engine 共识编排器
// 一次运行依次经过响应、排名、合成三个阶段，结果槽位按参与者序号寻址，
// 运行之间不共享任何状态
type Engine struct {
	factory     AdapterFactory
	participant Policy
	chairman    Policy
	runTimeout  time.Duration
}

// NewEngine 构造编排器，factory 为 nil 时使用共享连接池的默认工厂
func NewEngine(cfg config.ConsensusConfig, factory AdapterFactory) *Engine {
	if factory == nil {
		factory = defaultFactory(cfg.CallTimeout)
	}
	return &Engine{
		factory:     factory,
		participant: NewPolicy(cfg.ParticipantRetry),
		chairman:    NewPolicy(cfg.ChairmanRetry),
		runTimeout:  cfg.RunTimeout,
	}
}

// defaultFactory 所有适配器复用同一 HTTP 客户端的连接池
func defaultFactory(callTimeout time.Duration) AdapterFactory {
	client := &http.Client{}
	if callTimeout > 0 {
		client.Timeout = callTimeout
	}
	return func(cfg entity.ParticipantConfig) (provider.Adapter, error) {
		return provider.New(cfg, provider.WithHTTPClient(client))
	}
}

// Run 执行一次完整的共识流程
//
// 失败时返回的结果仍携带已收集的响应与排名，错误说明失败类别。
// 取消或运行超时通过 ctx 传播，进行中的调用以超时类错误落入对应槽位
func (e *Engine) Run(ctx context.Context, req *entity.ConsensusRequest) (*entity.ConsensusResult, error) {
	if e.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}

	runID := uuid.New().String()
	ctx = logger.WithContext(ctx, logger.RunIDKey, runID)

	ctx, span := tracer.Start(ctx, "consensus.run", trace.WithAttributes(
		attribute.String("run.id", runID),
	))
	defer span.End()

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()
	start := time.Now()

	logger.Info(ctx, "consensus run started",
		"prompt_chars", len(req.Prompt),
		"has_attachment", req.Attachment != nil,
	)

	result := entity.NewConsensusResult(req.Prompt)

	// 参与者适配器在入口一次性构造，构造失败视为该参与者的致命错误
	adapters := make([]provider.Adapter, len(req.Participants))
	factoryErrs := make([]error, len(req.Participants))
	for i, pc := range req.Participants {
		adapters[i], factoryErrs[i] = e.factory(pc)
	}

	// 1) 并发收集各参与者的响应
	e.dispatchResponses(ctx, adapters, factoryErrs, req, result)

	succeeded := result.SuccessCount()
	if succeeded == 0 {
		result.Fail("no participant produced a response")
		finishRun(ctx, span, result, start)
		return result, errors.ErrNoResponses
	}

	// 2) 成功响应不足两个时排名无意义，整个阶段跳过，排名集合保持为空
	if succeeded >= 2 {
		e.dispatchRankings(ctx, adapters, result)
	}

	// 3) 主席在扩展重试预算下合成最终答案，失败对整个运行是终态
	if err := e.synthesize(ctx, req, result); err != nil {
		result.Fail(fmt.Sprintf("chairman synthesis failed: %v", err))
		finishRun(ctx, span, result, start)
		return result, errors.Wrap(err, errors.CodeChairmanFailed, "chairman synthesis failed")
	}

	finishRun(ctx, span, result, start)
	return result, nil
}

// dispatchResponses 响应阶段，结果写入与参与者同序的槽位
func (e *Engine) dispatchResponses(ctx context.Context, adapters []provider.Adapter, factoryErrs []error, req *entity.ConsensusRequest, result *entity.ConsensusResult) {
	ctx = logger.WithContext(ctx, logger.PhaseKey, phaseResponses)
	ctx, span := tracer.Start(ctx, "consensus.responses")
	defer span.End()
	start := time.Now()

	n := len(req.Participants)
	records := make([]entity.ResponseRecord, n)
	for i := range records {
		records[i].Participant = i
	}

	calls := make([]Call, 0, n)
	slots := make([]int, 0, n)
	for i := range adapters {
		if factoryErrs[i] != nil {
			records[i].ErrorKind = string(provider.KindBadRequest)
			records[i].ErrorDetail = factoryErrs[i].Error()
			metrics.ConsensusParticipantFailures.WithLabelValues(phaseResponses, records[i].ErrorKind).Inc()
			continue
		}
		calls = append(calls, Call{Adapter: adapters[i], Prompt: req.Prompt, Attachment: req.Attachment})
		slots = append(slots, i)
	}

	outcomes := dispatch(ctx, e.participant, calls)
	for j, out := range outcomes {
		i := slots[j]
		if out.Err != nil {
			kind := errorKindOf(out.Err)
			records[i].ErrorKind = kind
			records[i].ErrorDetail = out.Err.Error()
			metrics.ConsensusParticipantFailures.WithLabelValues(phaseResponses, kind).Inc()
			logger.Error(ctx, "participant call failed", out.Err, "participant", i)
			continue
		}
		records[i].Text = out.Text
		logger.Debug(ctx, "participant responded", "participant", i, "chars", len(out.Text))
	}
	result.Responses = records

	metrics.ConsensusPhaseDuration.WithLabelValues(phaseResponses).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("responses.succeeded", result.SuccessCount()))
	logger.Info(ctx, "responses collected", "succeeded", result.SuccessCount(), "total", n)
}

// dispatchRankings 排名阶段
// 只有响应阶段成功的参与者参与排名；被排除的参与者保留空槽位。
// 排名是尽力而为的，任何失败都不会使运行失败
func (e *Engine) dispatchRankings(ctx context.Context, adapters []provider.Adapter, result *entity.ConsensusResult) {
	ctx = logger.WithContext(ctx, logger.PhaseKey, phaseRankings)
	ctx, span := tracer.Start(ctx, "consensus.rankings")
	defer span.End()
	start := time.Now()

	n := len(result.Responses)
	records := make([]entity.RankingRecord, n)
	for i := range records {
		records[i].Participant = i
	}

	prompt := buildRankingPrompt(result.Prompt, result.Responses)
	labels := rankingLabels(result.Responses)

	calls := make([]Call, 0, n)
	slots := make([]int, 0, n)
	for i := range result.Responses {
		if result.Responses[i].Failed() {
			continue
		}
		calls = append(calls, Call{Adapter: adapters[i], Prompt: prompt})
		slots = append(slots, i)
	}

	outcomes := dispatch(ctx, e.participant, calls)
	parsed := 0
	for j, out := range outcomes {
		i := slots[j]
		if out.Err != nil {
			kind := errorKindOf(out.Err)
			records[i].ErrorKind = kind
			metrics.ConsensusParticipantFailures.WithLabelValues(phaseRankings, kind).Inc()
			logger.Warn(ctx, "ranking call failed", "participant", i, "kind", kind)
			continue
		}
		records[i].Raw = out.Text
		records[i].ParsedOrder = parseRanking(out.Text, labels)
		if records[i].ParsedOrder != nil {
			parsed++
		}
	}
	result.Rankings = records

	metrics.ConsensusPhaseDuration.WithLabelValues(phaseRankings).Observe(time.Since(start).Seconds())
	logger.Info(ctx, "rankings collected", "requested", len(calls), "parsed", parsed)
}

// synthesize 合成阶段，主席适配器走扩展重试预算
func (e *Engine) synthesize(ctx context.Context, req *entity.ConsensusRequest, result *entity.ConsensusResult) error {
	ctx = logger.WithContext(ctx, logger.PhaseKey, phaseSynthesize)
	ctx, span := tracer.Start(ctx, "consensus.synthesize")
	defer span.End()
	start := time.Now()
	defer func() {
		metrics.ConsensusPhaseDuration.WithLabelValues(phaseSynthesize).Observe(time.Since(start).Seconds())
	}()

	prompt, err := buildChairmanPrompt(result.Prompt, result.Responses, result.Rankings)
	if err != nil {
		return err
	}

	ad, err := e.factory(req.Chairman)
	if err != nil {
		return err
	}

	out, err := e.chairman.Call(ctx, ad, &provider.GenerateRequest{Prompt: prompt})
	if err != nil {
		span.RecordError(err)
		logger.Error(ctx, "chairman synthesis failed", err,
			"provider", string(ad.Type()),
			"model", ad.Model(),
		)
		return err
	}

	result.Complete(out)
	logger.Info(ctx, "consensus synthesized", "chars", len(out))
	return nil
}

// errorKindOf 任意错误到记录类别的映射，未分类错误按不可用处理
func errorKindOf(err error) string {
	if kind := provider.KindOf(err); kind != "" {
		return string(kind)
	}
	return string(provider.KindUnavailable)
}

// finishRun 记录运行级指标与终态日志
func finishRun(ctx context.Context, span trace.Span, result *entity.ConsensusResult, start time.Time) {
	status := string(result.Status)
	metrics.ConsensusRunsTotal.WithLabelValues(status).Inc()
	metrics.ConsensusRunDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("run.status", status))

	if result.Status == entity.ConsensusFailed {
		logger.Warn(ctx, "consensus run failed",
			"reason", result.FailureReason,
			"duration", time.Since(start).String(),
		)
		return
	}
	logger.Info(ctx, "consensus run completed",
		"succeeded", result.SuccessCount(),
		"duration", time.Since(start).String(),
	)
}
