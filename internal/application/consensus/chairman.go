package consensus

import (
	"bytes"
	"fmt"
	"text/template"

	"z-consensus-api/internal/domain/entity"
)

// unavailableText 失败槽位在合成提示词中的占位文本
const unavailableText = "[unavailable]"

const chairmanPromptTemplate = `You are the chairman reviewing a consensus process.

Original prompt: {{.Prompt}}

Three AI models provided these responses:
{{range .Responses}}Response {{.Label}}: {{.Text}}
{{end}}
{{if .Rankings}}Each model ranked all responses:
{{range .Rankings}}Participant {{.Number}} rankings: {{.Text}}
{{end}}
{{end}}Based on the responses and rankings, create a consolidated final answer that represents the best consensus.
Include a brief explanation of how you synthesized the responses.`

var chairmanTmpl = template.Must(template.New("chairman").Parse(chairmanPromptTemplate))

type chairmanResponse struct {
	Label string
	Text  string
}

type chairmanRanking struct {
	Number int
	Text   string
}

type chairmanPromptData struct {
	Prompt    string
	Responses []chairmanResponse
	Rankings  []chairmanRanking
}

// buildChairmanPrompt 构造合成提示词
// 全部槽位固定呈现，失败槽位标记为不可用；排名只嵌入有文本的槽位，
// 排名阶段被跳过时整个排名段落省略
func buildChairmanPrompt(prompt string, responses []entity.ResponseRecord, rankings []entity.RankingRecord) (string, error) {
	data := chairmanPromptData{Prompt: prompt}
	for _, r := range responses {
		text := r.Text
		if r.Failed() {
			text = unavailableText
		}
		data.Responses = append(data.Responses, chairmanResponse{
			Label: labelFor(r.Participant),
			Text:  text,
		})
	}
	for _, r := range rankings {
		if r.Absent() {
			continue
		}
		data.Rankings = append(data.Rankings, chairmanRanking{
			Number: r.Participant + 1,
			Text:   r.Raw,
		})
	}

	var buf bytes.Buffer
	if err := chairmanTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing chairman template: %w", err)
	}
	return buf.String(), nil
}
