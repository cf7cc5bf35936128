package consensus

import (
	"context"

	"golang.org/x/sync/errgroup"

	"z-consensus-api/internal/domain/entity"
	"z-consensus-api/internal/infrastructure/provider"
)

// Call 一次待派发的生成调用
type Call struct {
	Adapter    provider.Adapter
	Prompt     string
	Attachment *entity.Attachment
}

// Outcome 单个调用的结果，下标与输入一致
type Outcome struct {
	Text string
	Err  error
}

// dispatch 并发执行一组调用，全部结束后才返回
//
// 所有调用先于任何等待启动。单个调用的失败作为该槽位的结果记录，
// 不取消也不延迟其他调用，因此这里不使用带取消传播的组
func dispatch(ctx context.Context, policy Policy, calls []Call) []Outcome {
	outcomes := make([]Outcome, len(calls))

	var g errgroup.Group
	for i, c := range calls {
		g.Go(func() error {
			text, err := policy.Call(ctx, c.Adapter, &provider.GenerateRequest{
				Prompt:     c.Prompt,
				Attachment: c.Attachment,
			})
			outcomes[i] = Outcome{Text: text, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
