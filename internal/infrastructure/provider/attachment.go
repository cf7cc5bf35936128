package provider

import (
	"fmt"
	"strings"

	"z-consensus-api/internal/domain/entity"
)

// imagePayload 待按提供商格式嵌入消息的图像
type imagePayload struct {
	mimeType string
	data     string // base64，无 data-URL 前缀
}

// applyAttachment 按附件类别与模型能力改写提示词
// 返回改写后的提示词与待嵌入图像（无图像时为 nil）
// 模型不支持图像时降级为文字占位，附件从不被静默丢弃
func applyAttachment(prompt string, att *entity.Attachment, visionOK bool) (string, *imagePayload) {
	if att == nil {
		return prompt, nil
	}
	switch att.Kind {
	case entity.AttachmentText:
		return prompt + "\n\n" + textAttachmentBlock(att), nil
	case entity.AttachmentImage:
		if visionOK {
			return prompt, &imagePayload{mimeType: att.MimeType, data: att.Payload}
		}
		return prompt + "\n\n" + imagePlaceholder(att), nil
	default:
		// 二进制附件只传元数据，载荷永不上行
		return prompt + "\n\n" + binaryAttachmentNote(att), nil
	}
}

// textAttachmentBlock 文本附件全文并入提示词
func textAttachmentBlock(att *entity.Attachment) string {
	var b strings.Builder
	b.WriteString("Attached file \"")
	b.WriteString(strings.TrimSpace(att.Name))
	b.WriteString("\" (")
	b.WriteString(att.MimeType)
	b.WriteString("):\n")
	b.WriteString(att.Payload)
	return b.String()
}

// imagePlaceholder 不支持视觉的模型收到的占位说明
func imagePlaceholder(att *entity.Attachment) string {
	return fmt.Sprintf("[Image attachment %q (%s, %d bytes) omitted: this model does not accept image input]",
		att.Name, att.MimeType, att.DecodedSize())
}

// binaryAttachmentNote 二进制附件的元数据说明
func binaryAttachmentNote(att *entity.Attachment) string {
	return fmt.Sprintf("[Binary attachment %q (%s) not included]", att.Name, att.MimeType)
}
