package consensus

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"z-consensus-api/internal/domain/entity"
)

// labelFor 参与者序号到展示标签的固定映射，同一次运行内稳定
func labelFor(participant int) string {
	return string(rune('A' + participant))
}

// successfulRecords 过滤出第一阶段成功的响应，保持槽位顺序
func successfulRecords(responses []entity.ResponseRecord) []entity.ResponseRecord {
	oks := make([]entity.ResponseRecord, 0, len(responses))
	for _, r := range responses {
		if !r.Failed() {
			oks = append(oks, r)
		}
	}
	return oks
}

// rankingLabels 成功槽位的标签到参与者序号的映射
func rankingLabels(responses []entity.ResponseRecord) map[string]int {
	labels := make(map[string]int, len(responses))
	for _, r := range responses {
		if !r.Failed() {
			labels[labelFor(r.Participant)] = r.Participant
		}
	}
	return labels
}

// buildRankingPrompt 构造排名提示词
// 只呈现成功的响应，失败槽位的标签不出现，因此标签可能不连续
func buildRankingPrompt(prompt string, responses []entity.ResponseRecord) string {
	oks := successfulRecords(responses)

	var b strings.Builder
	b.WriteString("Original prompt: ")
	b.WriteString(prompt)
	b.WriteString("\n\nHere are ")
	b.WriteString(strconv.Itoa(len(oks)))
	b.WriteString(" responses from different AI models:\n\n")
	for _, r := range oks {
		b.WriteString("Response ")
		b.WriteString(labelFor(r.Participant))
		b.WriteString(": ")
		b.WriteString(r.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("Rank these responses from best to worst (1=best, ")
	b.WriteString(strconv.Itoa(len(oks)))
	b.WriteString("=worst) based on accuracy, helpfulness, and clarity.\n")
	b.WriteString("Respond ONLY with a JSON object in this exact format:\n")
	b.WriteString(rankingExample(oks))
	return b.String()
}

// rankingExample 期望输出格式的示例 JSON，标签与提示词中的一致
func rankingExample(oks []entity.ResponseRecord) string {
	var b strings.Builder
	b.WriteString(`{"rankings": {`)
	for i, r := range oks {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(`"`)
		b.WriteString(labelFor(r.Participant))
		b.WriteString(`": `)
		b.WriteString(strconv.Itoa(i + 1))
	}
	b.WriteString(`}, "reasoning": "brief explanation"}`)
	return b.String()
}

// rankingJSON 排名响应的期望结构
type rankingJSON struct {
	Rankings map[string]float64 `json:"rankings"`
}

// parseRanking 尽力从排名文本解析出参与者序号的优先序（最优在前）
// 先尝试 JSON 形式，再尝试枚举列表形式，都失败时返回 nil，
// 原始文本由调用方保留
func parseRanking(raw string, labelToParticipant map[string]int) []int {
	if order := parseRankingJSON(raw, labelToParticipant); order != nil {
		return order
	}
	return parseRankingList(raw, labelToParticipant)
}

func parseRankingJSON(raw string, labelToParticipant map[string]int) []int {
	var out rankingJSON
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &out); err != nil || len(out.Rankings) == 0 {
		return nil
	}

	type entry struct {
		label string
		rank  float64
	}
	entries := make([]entry, 0, len(out.Rankings))
	for label, rank := range out.Rankings {
		if _, ok := labelToParticipant[label]; ok {
			entries = append(entries, entry{label: label, rank: rank})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].rank != entries[j].rank {
			return entries[i].rank < entries[j].rank
		}
		return entries[i].label < entries[j].label
	})

	order := make([]int, 0, len(entries))
	for _, e := range entries {
		order = append(order, labelToParticipant[e.label])
	}
	return order
}

// rankingListPattern 形如 "1. A 2. B 3. C" 或 "1) Response B" 的枚举列表
var rankingListPattern = regexp.MustCompile(`(\d+)[.):]?\s*(?:Response\s+)?([A-Z])\b`)

func parseRankingList(raw string, labelToParticipant map[string]int) []int {
	type entry struct {
		label string
		rank  int
	}
	seen := make(map[string]bool)
	var entries []entry
	for _, m := range rankingListPattern.FindAllStringSubmatch(raw, -1) {
		label := m[2]
		if _, ok := labelToParticipant[label]; !ok || seen[label] {
			continue
		}
		rank, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seen[label] = true
		entries = append(entries, entry{label: label, rank: rank})
	}
	if len(entries) == 0 {
		return nil
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].rank < entries[j].rank })

	order := make([]int, 0, len(entries))
	for _, e := range entries {
		order = append(order, labelToParticipant[e.label])
	}
	return order
}

// extractJSONObject 从模型输出中截取第一个完整 JSON 对象
// 模型可能在 JSON 前后夹杂多余文本
func extractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
