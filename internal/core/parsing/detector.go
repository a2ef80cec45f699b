package parsing

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// ContentTypeDetector はファイル名と内容からMIMEタイプを推定する。
// リクエストで content-type が省略された場合のみ使用する。
type ContentTypeDetector struct{}

// NewContentTypeDetector は ContentTypeDetector を生成する。
func NewContentTypeDetector() *ContentTypeDetector {
	return &ContentTypeDetector{}
}

// DetectContentType はファイル名と内容からMIMEタイプを判定する。
func (d *ContentTypeDetector) DetectContentType(fileName string, content []byte) string {
	filename := filepath.Base(fileName)

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return stripParams(byExt)
	}

	if !enry.IsBinary(content) {
		language := enry.GetLanguage(filename, content)
		if mt := languageToMimeType(language); mt != "" {
			return mt
		}
	}

	if len(content) > 0 {
		return stripParams(http.DetectContentType(content))
	}

	return "application/octet-stream"
}

// Resolve は宣言されたコンテンツタイプが空の場合に推定値で補完した payload を返す
func (d *ContentTypeDetector) Resolve(p UploadPayload) UploadPayload {
	if strings.TrimSpace(p.ContentType()) != "" {
		return p
	}
	return p.WithContentType(d.DetectContentType(p.FileName(), p.content))
}

func stripParams(mt string) string {
	if idx := strings.Index(mt, ";"); idx != -1 {
		mt = mt[:idx]
	}
	return strings.TrimSpace(mt)
}

func languageToMimeType(language string) string {
	mapping := map[string]string{
		"Markdown": "text/markdown",
		"HTML":     "text/html",
		"JSON":     "application/json",
		"YAML":     "text/x-yaml",
		"XML":      "text/xml",
		"CSV":      "text/csv",
		"TSV":      "text/tab-separated-values",
		"TeX":      "application/x-tex",
		"Text":     "text/plain",
		"RTF":      "application/rtf",
	}
	if mt, ok := mapping[language]; ok {
		return mt
	}
	return ""
}
