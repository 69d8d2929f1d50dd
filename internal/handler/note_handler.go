package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/javanotes/internal/response"
	"github.com/weiwangfds/javanotes/internal/service/notes"
)

// NoteHandler 笔记处理器
// @Description 参考笔记相关的JSON接口
type NoteHandler struct {
	noteService notes.NoteService
}

// NewNoteHandler 创建笔记处理器实例
func NewNoteHandler(noteService notes.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// noteSummary 列表中的笔记，不含正文
type noteSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Builtin bool   `json:"builtin"`
}

func summarize(list []*notes.Note) []noteSummary {
	out := make([]noteSummary, 0, len(list))
	for _, n := range list {
		out = append(out, noteSummary{ID: n.ID, Title: n.Title, Builtin: n.Builtin})
	}
	return out
}

// List 获取笔记目录
// @Summary 获取笔记目录
// @Tags 笔记
// @Produce json
// @Success 200 {object} response.Response "笔记列表"
// @Router /api/v1/notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	response.Success(c, summarize(h.noteService.List()))
}

// Search 搜索笔记
// @Summary 搜索笔记
// @Description 在笔记正文中做不区分大小写的子串匹配，q 为空时返回空列表
// @Tags 笔记
// @Produce json
// @Param q query string false "搜索关键词"
// @Success 200 {object} response.Response "匹配的笔记"
// @Router /api/v1/notes/search [get]
func (h *NoteHandler) Search(c *gin.Context) {
	response.Success(c, summarize(h.noteService.Search(c.Query("q"))))
}

// Get 获取笔记
// @Summary 获取笔记
// @Description 返回笔记原文和渲染后的 HTML
// @Tags 笔记
// @Produce json
// @Param id path string true "笔记ID"
// @Success 200 {object} response.Response "笔记"
// @Failure 404 {object} response.Response "笔记不存在"
// @Router /api/v1/notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	n, html, err := h.noteService.Render(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{
		"id":      n.ID,
		"title":   n.Title,
		"builtin": n.Builtin,
		"source":  n.Source,
		"html":    string(html),
	})
}
