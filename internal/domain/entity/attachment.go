package entity

import (
	"strings"
)

// AttachmentKind 附件类别
type AttachmentKind string

const (
	AttachmentText   AttachmentKind = "text"
	AttachmentImage  AttachmentKind = "image"
	AttachmentBinary AttachmentKind = "binary"
)

// Attachment 随请求附带的单个文件
// Payload 约定：text 为原始文本，image/binary 为 base64 编码
type Attachment struct {
	Name     string         `json:"name"`
	MimeType string         `json:"mime_type"`
	Kind     AttachmentKind `json:"kind"`
	Payload  string         `json:"payload"`
}

// textualMimeTypes 除 text/* 外仍按文本处理的 MIME 类型
var textualMimeTypes = map[string]bool{
	"application/json":         true,
	"application/xml":          true,
	"application/x-yaml":       true,
	"application/yaml":         true,
	"application/toml":         true,
	"application/javascript":   true,
	"application/x-sh":         true,
	"application/sql":          true,
	"application/x-httpd-php":  true,
	"application/csv":          true,
	"application/x-ndjson":     true,
	"application/vnd.api+json": true,
}

// KindForMime 根据 MIME 类型划分附件类别
func KindForMime(mime string) AttachmentKind {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case strings.HasPrefix(mime, "text/"):
		return AttachmentText
	case strings.HasPrefix(mime, "image/"):
		return AttachmentImage
	case textualMimeTypes[mime]:
		return AttachmentText
	default:
		return AttachmentBinary
	}
}

// DecodedSize 返回 base64 载荷解码后的字节数，text 类附件返回原文长度
func (a *Attachment) DecodedSize() int {
	if a.Kind == AttachmentText {
		return len(a.Payload)
	}
	n := len(a.Payload)
	if n == 0 {
		return 0
	}
	size := n / 4 * 3
	if strings.HasSuffix(a.Payload, "==") {
		size -= 2
	} else if strings.HasSuffix(a.Payload, "=") {
		size--
	}
	return size
}
