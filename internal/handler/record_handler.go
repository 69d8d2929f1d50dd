package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/javanotes/internal/errors"
	"github.com/weiwangfds/javanotes/internal/i18n"
	"github.com/weiwangfds/javanotes/internal/response"
	"github.com/weiwangfds/javanotes/internal/service/ingest"
	"github.com/weiwangfds/javanotes/internal/service/record"
)

// RecordHandler 文件记录处理器
// @Description 文件记录相关的JSON接口
type RecordHandler struct {
	store    *record.Store
	ingestor ingest.Ingestor
}

// NewRecordHandler 创建文件记录处理器实例
func NewRecordHandler(store *record.Store, ingestor ingest.Ingestor) *RecordHandler {
	return &RecordHandler{
		store:    store,
		ingestor: ingestor,
	}
}

// uploadResult 上传接口的返回数据
type uploadResult struct {
	Added         []*record.FileRecord `json:"added"`
	Skipped       []ingest.Skipped     `json:"skipped"`
	PersistErrors []string             `json:"persist_errors,omitempty"`
}

// Upload 上传文件
// @Summary 上传文件
// @Description 上传一个或多个 .java 文件，其他扩展名的文件会被跳过
// @Tags 文件记录
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "要上传的文件，可重复"
// @Param category formData string false "分类"
// @Success 200 {object} response.Response "上传结果"
// @Failure 400 {object} response.Response "没有文件或分类无效"
// @Failure 500 {object} response.Response "记录已保存在内存中但写入存储失败"
// @Router /api/v1/records/upload [post]
func (h *RecordHandler) Upload(c *gin.Context) {
	inputs, err := uploadInputs(c)
	if err != nil {
		response.FromError(c, err)
		return
	}

	res, err := h.ingestor.Ingest(c.Request.Context(), c.PostForm("category"), inputs)
	if err != nil {
		response.FromError(c, err)
		return
	}

	data := uploadResult{Added: res.Added, Skipped: res.Skipped}
	if data.Added == nil {
		data.Added = []*record.FileRecord{}
	}
	if data.Skipped == nil {
		data.Skipped = []ingest.Skipped{}
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			data.PersistErrors = append(data.PersistErrors, e.Error())
		}
		response.ErrorWithData(c, http.StatusInternalServerError, apperrors.ErrPersistFailed, "", data)
		return
	}

	message := i18n.GetInstance().Translate("upload_success", response.Lang(c))
	if len(res.Added) == 0 {
		message = apperrors.GetErrorMessageWithLang(apperrors.ErrFileTypeNotAllowed, response.Lang(c))
	}
	response.SuccessWithMessage(c, message, data)
}

// List 获取文件列表
// @Summary 获取文件列表
// @Description 按插入顺序返回全部文件，q 不为空时按文件名或分类过滤（不区分大小写）
// @Tags 文件记录
// @Produce json
// @Param q query string false "搜索关键词"
// @Success 200 {object} response.Response "文件列表"
// @Router /api/v1/records [get]
func (h *RecordHandler) List(c *gin.Context) {
	records := h.store.Filter(c.Query("q"))
	response.Success(c, gin.H{
		"list":  records,
		"total": h.store.Len(),
		"count": len(records),
	})
}

// Get 获取文件详情
// @Summary 获取文件详情
// @Tags 文件记录
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response "文件记录"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/records/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	r, ok := h.store.FindByID(c.Param("id"))
	if !ok {
		response.NotFound(c, apperrors.ErrRecordNotFound)
		return
	}
	response.Success(c, r)
}

// Download 下载文件
// @Summary 下载文件
// @Tags 文件记录
// @Produce text/x-java-source
// @Param id path string true "文件ID"
// @Success 200 {file} file "文件内容"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/records/{id}/download [get]
func (h *RecordHandler) Download(c *gin.Context) {
	r, ok := h.store.FindByID(c.Param("id"))
	if !ok {
		response.NotFound(c, apperrors.ErrRecordNotFound)
		return
	}
	writeAttachment(c, r)
}

// Delete 删除文件
// @Summary 删除文件
// @Description ID 不存在时返回 removed=false
// @Tags 文件记录
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response "删除结果"
// @Failure 500 {object} response.Response "已从内存删除但写入存储失败"
// @Router /api/v1/records/{id} [delete]
func (h *RecordHandler) Delete(c *gin.Context) {
	removed, err := h.store.DeleteByID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	message := i18n.GetInstance().Translate("delete_success", response.Lang(c))
	if !removed {
		message = apperrors.GetErrorMessageWithLang(apperrors.ErrRecordNotFound, response.Lang(c))
	}
	response.SuccessWithMessage(c, message, gin.H{"removed": removed})
}

// Flush 重试写入
// @Summary 重试写入
// @Description 上一次写入存储失败时重新写入当前文件列表
// @Tags 文件记录
// @Produce json
// @Success 200 {object} response.Response "写入成功或无需写入"
// @Failure 500 {object} response.Response "写入仍然失败"
// @Router /api/v1/records/flush [post]
func (h *RecordHandler) Flush(c *gin.Context) {
	if err := h.store.Flush(); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"dirty": h.store.Dirty(), "total": h.store.Len()})
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} response.Response "服务状态"
// @Router /health [get]
func (h *RecordHandler) Health(c *gin.Context) {
	warnings := h.store.Warnings()
	if warnings == nil {
		warnings = []string{}
	}
	response.Success(c, gin.H{
		"status":   "ok",
		"records":  h.store.Len(),
		"dirty":    h.store.Dirty(),
		"warnings": warnings,
	})
}
