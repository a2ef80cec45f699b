package parsing

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// UploadPayload は受信リクエストから構築されるアップロード内容。
// 構築後は変更しない。
type UploadPayload struct {
	fileName    string
	content     []byte
	contentType string
}

// NewUploadPayload はバイナリ内容から UploadPayload を作成する。
// contentType は検証せずにそのまま保持する。
func NewUploadPayload(fileName string, content []byte, contentType string) (UploadPayload, error) {
	if strings.TrimSpace(fileName) == "" {
		return UploadPayload{}, ErrEmptyFileName
	}
	if len(content) == 0 {
		return UploadPayload{}, ErrEmptyContent
	}

	buf := make([]byte, len(content))
	copy(buf, content)

	return UploadPayload{
		fileName:    fileName,
		content:     buf,
		contentType: contentType,
	}, nil
}

// DecodeUploadPayload は base64 文字列をデコードして UploadPayload を作成する
func DecodeUploadPayload(fileName, encoded, contentType string) (UploadPayload, error) {
	content, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return UploadPayload{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return NewUploadPayload(fileName, content, contentType)
}

// FileName はファイル名を返す
func (p UploadPayload) FileName() string {
	return p.fileName
}

// Content は内容のコピーを返す
func (p UploadPayload) Content() []byte {
	buf := make([]byte, len(p.content))
	copy(buf, p.content)
	return buf
}

// ContentType は宣言されたコンテンツタイプを返す
func (p UploadPayload) ContentType() string {
	return p.contentType
}

// Size はバイト数を返す
func (p UploadPayload) Size() int {
	return len(p.content)
}

// EncodeContent は内容を base64 でエンコードする
func (p UploadPayload) EncodeContent() string {
	return base64.StdEncoding.EncodeToString(p.content)
}

// WithContentType はコンテンツタイプのみ差し替えた新しい UploadPayload を返す
func (p UploadPayload) WithContentType(contentType string) UploadPayload {
	return UploadPayload{
		fileName:    p.fileName,
		content:     p.content,
		contentType: contentType,
	}
}
