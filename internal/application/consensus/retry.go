// Package consensus 实现多模型共识编排
package consensus

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"z-consensus-api/internal/config"
	"z-consensus-api/internal/infrastructure/provider"
	"z-consensus-api/pkg/logger"
	"z-consensus-api/pkg/metrics"
)

// Policy 单次适配器调用的重试策略
// 可重试性由错误类别决定，致命错误立即中止，不消耗剩余预算
type Policy struct {
	MaxAttempts int
	Backoff     config.BackoffConfig

	// sleep 等待实现，测试中可替换，默认响应取消
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPolicy 由配置构造重试策略
func NewPolicy(cfg config.RetryConfig) Policy {
	p := Policy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.Backoff,
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	return p
}

// Call 在策略约束下执行一次生成调用
// 耗尽预算时返回最后一次观察到的错误
func (p Policy) Call(ctx context.Context, ad provider.Adapter, req *provider.GenerateRequest) (string, error) {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for attempt := 0; ; attempt++ {
		start := time.Now()
		text, err := ad.Generate(ctx, req)
		metrics.ProviderCallDuration.WithLabelValues(string(ad.Type()), ad.Model()).Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.ProviderCallTotal.WithLabelValues(string(ad.Type()), ad.Model(), "success").Inc()
			return text, nil
		}

		kind := provider.KindOf(err)
		metrics.ProviderCallTotal.WithLabelValues(string(ad.Type()), ad.Model(), string(kind)).Inc()

		var pe *provider.Error
		retryable := errors.As(err, &pe) && pe.Retryable()
		if !retryable || attempt >= p.MaxAttempts-1 {
			return "", err
		}

		delay := p.delay(attempt)
		logger.Warn(ctx, "provider call failed, retrying",
			"provider", string(ad.Type()),
			"model", ad.Model(),
			"kind", string(kind),
			"attempt", attempt+1,
			"max_attempts", p.MaxAttempts,
			"delay", delay.String(),
		)
		metrics.ProviderRetriesTotal.WithLabelValues(string(ad.Type()), string(kind)).Inc()

		if werr := sleep(ctx, delay); werr != nil {
			return "", &provider.Error{
				Kind:     provider.KindTimeout,
				Provider: ad.Type(),
				Model:    ad.Model(),
				Message:  "retry wait interrupted",
				Err:      werr,
			}
		}
	}
}

// delay 第 attempt 次失败后的等待时间，指数退避并封顶
func (p Policy) delay(attempt int) time.Duration {
	b := p.Backoff
	if b.Initial <= 0 {
		b.Initial = time.Second
	}
	if b.Max <= 0 {
		b.Max = time.Minute
	}
	if b.Multiplier < 1 {
		b.Multiplier = 2
	}

	backoff := b.Initial
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * b.Multiplier)
		if backoff >= b.Max {
			backoff = b.Max
			break
		}
	}

	// 抖动系数限制在 [0,1]
	jitter := b.Jitter
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	if jitter > 0 {
		backoff += time.Duration(rand.Float64() * jitter * float64(backoff))
	}
	if backoff > b.Max {
		backoff = b.Max
	}
	return backoff
}

// sleepCtx 可取消的等待
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
