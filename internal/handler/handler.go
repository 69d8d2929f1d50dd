// Package handler 提供 HTTP 处理器
// record_handler.go 和 note_handler.go 提供 JSON 接口，page_handler.go 提供页面
package handler

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/javanotes/internal/errors"
	"github.com/weiwangfds/javanotes/internal/service/ingest"
	"github.com/weiwangfds/javanotes/internal/service/record"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoadTemplates 解析内置的页面模板
func LoadTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// uploadField 上传表单中文件字段的名称
const uploadField = "files"

// MaxMultipartMemory 解析上传表单时放在内存中的最大字节数，超出部分写临时文件
const MaxMultipartMemory = 8 << 20

// uploadInputs 从 multipart 表单中取出待入库的文件
func uploadInputs(c *gin.Context) ([]ingest.Input, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, apperrors.New(apperrors.ErrNoFiles)
		}
		return nil, apperrors.Wrap(apperrors.ErrInvalidParams, err)
	}

	headers := form.File[uploadField]
	inputs := make([]ingest.Input, 0, len(headers))
	for _, fh := range headers {
		inputs = append(inputs, ingest.Input{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return inputs, nil
}

// writeAttachment 以附件形式返回记录内容
func writeAttachment(c *gin.Context, r *record.FileRecord) {
	name, contentType, body := record.Export(r)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, contentType+"; charset=utf-8", body)
}
