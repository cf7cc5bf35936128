package entity

import (
	"fmt"
	"strings"
)

// ParticipantCount 每次共识运行固定的参与者数量
const ParticipantCount = 3

// ConsensusStatus 共识运行的终态
type ConsensusStatus string

const (
	ConsensusDone   ConsensusStatus = "done"
	ConsensusFailed ConsensusStatus = "failed"
)

// ConsensusRequest 一次共识运行的完整输入，处理期间不可变
type ConsensusRequest struct {
	Prompt       string              `json:"prompt"`
	Participants []ParticipantConfig `json:"participants"`
	Chairman     ParticipantConfig   `json:"chairman"`
	Attachment   *Attachment         `json:"attachment,omitempty"`
}

// Validate 校验共识请求
func (r *ConsensusRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt is required")
	}
	if len(r.Participants) != ParticipantCount {
		return fmt.Errorf("exactly %d participants required, got %d", ParticipantCount, len(r.Participants))
	}
	for i, p := range r.Participants {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("participant %d: %w", i, err)
		}
	}
	if err := r.Chairman.Validate(); err != nil {
		return fmt.Errorf("chairman: %w", err)
	}
	if a := r.Attachment; a != nil {
		switch a.Kind {
		case AttachmentText, AttachmentImage, AttachmentBinary:
		default:
			return fmt.Errorf("attachment: unknown kind %q", a.Kind)
		}
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("attachment: name is required")
		}
	}
	return nil
}

// ResponseRecord 第一阶段的响应记录
// 槽位按参与者序号排列，失败的参与者保留槽位并带错误标记
type ResponseRecord struct {
	Participant int    `json:"participant"`
	Text        string `json:"text,omitempty"`
	ErrorKind   string `json:"error,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// Failed 该参与者的响应阶段是否以终态错误结束
func (r ResponseRecord) Failed() bool {
	return r.ErrorKind != ""
}

// RankingRecord 第二阶段的排名记录，槽位规则与 ResponseRecord 相同
type RankingRecord struct {
	Participant int    `json:"participant"`
	Raw         string `json:"ranking,omitempty"`
	ParsedOrder []int  `json:"parsed_order,omitempty"`
	ErrorKind   string `json:"error,omitempty"`
}

// Absent 该槽位是否没有可用的排名文本
func (r RankingRecord) Absent() bool {
	return r.Raw == ""
}

// ConsensusResult 一次共识运行的产出
type ConsensusResult struct {
	Prompt        string           `json:"prompt"`
	Responses     []ResponseRecord `json:"responses"`
	Rankings      []RankingRecord  `json:"rankings"`
	FinalOutput   string           `json:"final_output,omitempty"`
	Status        ConsensusStatus  `json:"status"`
	FailureReason string           `json:"failure_reason,omitempty"`
}

// NewConsensusResult 创建空结果，槽位由各阶段填充
func NewConsensusResult(prompt string) *ConsensusResult {
	return &ConsensusResult{
		Prompt:    prompt,
		Responses: make([]ResponseRecord, 0, ParticipantCount),
		Rankings:  make([]RankingRecord, 0, ParticipantCount),
	}
}

// Complete 标记运行成功
func (r *ConsensusResult) Complete(finalOutput string) {
	r.Status = ConsensusDone
	r.FinalOutput = finalOutput
}

// Fail 标记运行失败，已收集的部分结果保留
func (r *ConsensusResult) Fail(reason string) {
	r.Status = ConsensusFailed
	r.FailureReason = reason
}

// SuccessCount 第一阶段成功的参与者数量
func (r *ConsensusResult) SuccessCount() int {
	n := 0
	for _, rec := range r.Responses {
		if !rec.Failed() {
			n++
		}
	}
	return n
}
