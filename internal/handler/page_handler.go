package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/javanotes/internal/errors"
	"github.com/weiwangfds/javanotes/internal/highlight"
	"github.com/weiwangfds/javanotes/internal/i18n"
	"github.com/weiwangfds/javanotes/internal/logger"
	"github.com/weiwangfds/javanotes/internal/response"
	"github.com/weiwangfds/javanotes/internal/service/ingest"
	"github.com/weiwangfds/javanotes/internal/service/notes"
	"github.com/weiwangfds/javanotes/internal/service/record"
)

// 提示消息的类型
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

const pageTitle = "Java File Manager"

const (
	// flashCookie 保存下一次页面请求要显示的提示消息
	flashCookie   = "flash"
	// maxFlashBytes 提示消息的最大长度，cookie 总大小不能超过 4KB
	maxFlashBytes = 1500
)

// flash 页面顶部的提示消息
type flash struct {
	Message string `json:"m"`
	Kind    string `json:"k"`
}

// PageHandler 页面处理器
type PageHandler struct {
	store       *record.Store
	ingestor    ingest.Ingestor
	noteService notes.NoteService
	extension   string
}

// NewPageHandler 创建页面处理器实例
func NewPageHandler(store *record.Store, ingestor ingest.Ingestor, noteService notes.NoteService, extension string) *PageHandler {
	if extension == "" {
		extension = ingest.DefaultExtension
	}
	return &PageHandler{
		store:       store,
		ingestor:    ingestor,
		noteService: noteService,
		extension:   extension,
	}
}

// popFlash 读取并清除服务端设置的提示消息
// 消息只来自 cookie，链接里的参数无法伪造提示
func popFlash(c *gin.Context) *flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)

	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var f flash
	if err := json.Unmarshal(data, &f); err != nil || f.Message == "" {
		return nil
	}
	switch f.Kind {
	case FlashSuccess, FlashError, FlashWarning, FlashInfo:
	default:
		f.Kind = FlashInfo
	}
	return &f
}

// redirectWithFlash 把提示消息写入 cookie 后重定向到 path
func redirectWithFlash(c *gin.Context, path, message, kind string) {
	if len(message) > maxFlashBytes {
		cut := maxFlashBytes
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut] + "..."
	}
	data, err := json.Marshal(flash{Message: message, Kind: kind})
	if err == nil {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(flashCookie, base64.RawURLEncoding.EncodeToString(data), 60, "/", "", false, true)
	}
	c.Redirect(http.StatusSeeOther, path)
}

func (h *PageHandler) translate(c *gin.Context, key string) string {
	return i18n.GetInstance().Translate(key, response.Lang(c))
}

func (h *PageHandler) errorPage(c *gin.Context, status int, code apperrors.ErrorCode) {
	c.HTML(status, "error.html", gin.H{
		"Title":   http.StatusText(status),
		"Message": apperrors.GetErrorMessageWithLang(code, response.Lang(c)),
	})
}

// Index 文件列表页
func (h *PageHandler) Index(c *gin.Context) {
	query := c.Query("q")
	lang := response.Lang(c)
	categories := h.ingestor.Categories()
	if len(categories) == 0 && h.ingestor.DefaultCategory() != "" {
		categories = []string{h.ingestor.DefaultCategory()}
	}

	emptyKey := "no_match"
	if query == "" {
		emptyKey = "no_files_yet"
	}
	total := h.store.Len()

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":           pageTitle,
		"Flash":           popFlash(c),
		"Records":         h.store.Filter(query),
		"Total":           total,
		"FileCount":       i18n.GetInstance().Plural("file_count", lang, total),
		"Query":           query,
		"Categories":      categories,
		"DefaultCategory": h.ingestor.DefaultCategory(),
		"Extension":       h.extension,
		"EmptyMessage":    h.translate(c, emptyKey),
	})
}

// Upload 表单上传，完成后重定向回列表页
func (h *PageHandler) Upload(c *gin.Context) {
	inputs, err := uploadInputs(c)
	if err == nil {
		var res *ingest.Result
		res, err = h.ingestor.Ingest(c.Request.Context(), c.PostForm("category"), inputs)
		if err == nil {
			message, kind := h.summarize(c, res)
			redirectWithFlash(c, "/", message, kind)
			return
		}
	}

	code := apperrors.ErrInternalServer
	if appErr, ok := apperrors.GetAppError(err); ok {
		code = appErr.Code
	}
	logger.Warnf("form upload failed: %v", err)
	redirectWithFlash(c, "/", apperrors.GetErrorMessageWithLang(code, response.Lang(c)), FlashError)
}

// summarize 把入库结果汇总成一条提示
func (h *PageHandler) summarize(c *gin.Context, res *ingest.Result) (string, string) {
	lang := response.Lang(c)
	var parts []string
	kind := FlashSuccess

	if len(res.Added) > 0 {
		parts = append(parts, h.translate(c, "upload_success"))
	}
	if len(res.Skipped) > 0 {
		names := make([]string, 0, len(res.Skipped))
		for _, s := range res.Skipped {
			names = append(names, fmt.Sprintf("%s (%s)", s.Name, s.Reason))
		}
		parts = append(parts, h.translate(c, "skipped")+" "+strings.Join(names, ", "))
		kind = FlashWarning
	}
	if len(res.Errors) > 0 {
		parts = append(parts, apperrors.GetErrorMessageWithLang(apperrors.ErrPersistFailed, lang))
		kind = FlashError
	}
	if len(res.Added) == 0 {
		kind = FlashError
	}
	return strings.Join(parts, " "), kind
}

// View 查看文件内容
func (h *PageHandler) View(c *gin.Context) {
	r, ok := h.store.FindByID(c.Param("id"))
	if !ok {
		h.errorPage(c, http.StatusNotFound, apperrors.ErrRecordNotFound)
		return
	}
	c.HTML(http.StatusOK, "view.html", gin.H{
		"Title":  r.Name,
		"Record": r,
		"Code":   highlight.HTML(r.Content),
	})
}

// Download 下载文件
func (h *PageHandler) Download(c *gin.Context) {
	r, ok := h.store.FindByID(c.Param("id"))
	if !ok {
		h.errorPage(c, http.StatusNotFound, apperrors.ErrRecordNotFound)
		return
	}
	writeAttachment(c, r)
}

// Delete 删除文件后重定向回列表页
func (h *PageHandler) Delete(c *gin.Context) {
	removed, err := h.store.DeleteByID(c.Param("id"))
	switch {
	case err != nil:
		redirectWithFlash(c, "/", apperrors.GetErrorMessageWithLang(apperrors.ErrPersistFailed, response.Lang(c)), FlashError)
	case !removed:
		redirectWithFlash(c, "/", apperrors.GetErrorMessageWithLang(apperrors.ErrRecordNotFound, response.Lang(c)), FlashError)
	default:
		redirectWithFlash(c, "/", h.translate(c, "delete_success"), FlashSuccess)
	}
}

// Notes 笔记目录页，q 不为空时显示搜索结果
func (h *PageHandler) Notes(c *gin.Context) {
	query := c.Query("q")
	c.HTML(http.StatusOK, "notes.html", gin.H{
		"Title":     notes.DefaultTitle,
		"Notes":     h.noteService.List(),
		"Query":     query,
		"Results":   h.noteService.Search(query),
		"CurrentID": "",
		"NoteTitle": notes.DefaultTitle,
	})
}

// Note 查看单篇笔记
func (h *PageHandler) Note(c *gin.Context) {
	n, body, err := h.noteService.Render(c.Param("id"))
	if err != nil {
		h.errorPage(c, http.StatusNotFound, apperrors.ErrNoteNotFound)
		return
	}
	c.HTML(http.StatusOK, "notes.html", gin.H{
		"Title":     n.Title,
		"Notes":     h.noteService.List(),
		"Query":     "",
		"CurrentID": n.ID,
		"NoteTitle": n.Title,
		"Body":      body,
	})
}
