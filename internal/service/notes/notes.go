// Package notes 提供 Java 参考笔记的查询、搜索和渲染
// 笔记分为编译进程序的内置笔记和 notes.dir 目录中的 markdown 文件两部分
// 目录中的文件会覆盖同名的内置笔记
package notes

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/weiwangfds/javanotes/internal/errors"
	"github.com/weiwangfds/javanotes/internal/logger"
)

//go:embed content/*.md
var builtin embed.FS

// DefaultTitle 笔记没有标题时使用的标题
const DefaultTitle = "Java Notes"

const noteExt = ".md"

// Note 一篇笔记
type Note struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Source  string `json:"source,omitempty"`
	Builtin bool   `json:"builtin"`
}

// NoteService 笔记服务接口
type NoteService interface {
	// List 返回按ID排序的全部笔记
	List() []*Note

	// Get 根据ID获取笔记
	// 返回:
	//   *Note - 笔记
	//   error - 不存在时返回 ErrNoteNotFound
	Get(id string) (*Note, error)

	// Search 返回内容包含 query 的笔记（不区分大小写），空查询匹配全部笔记
	Search(query string) []*Note

	// Render 把笔记渲染为 HTML 片段
	Render(id string) (*Note, template.HTML, error)

	// Reload 重新读取笔记目录
	Reload() error

	// Dir 笔记目录，为空表示只有内置笔记
	Dir() string
}

// noteService 笔记服务实现
type noteService struct {
	mu    sync.RWMutex
	dir   string
	notes map[string]*Note
	ids   []string
}

// NewNoteService 创建笔记服务实例并加载笔记
// 参数:
//   - dir: 笔记目录，为空时只使用内置笔记
func NewNoteService(dir string) (NoteService, error) {
	s := &noteService{dir: dir}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir 返回创建时传入的笔记目录
func (s *noteService) Dir() string {
	return s.dir
}

// Reload 重新加载内置笔记和目录中的笔记
// 目录不存在时只记录警告
func (s *noteService) Reload() error {
	notes := make(map[string]*Note)

	if err := loadFS(builtin, "content", true, notes); err != nil {
		return fmt.Errorf("failed to load built-in notes: %w", err)
	}

	if s.dir != "" {
		err := loadFS(os.DirFS(s.dir), ".", false, notes)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warnf("notes directory %s does not exist, using built-in notes only", s.dir)
		case err != nil:
			return fmt.Errorf("failed to load notes from %s: %w", s.dir, err)
		}
	}

	ids := make([]string, 0, len(notes))
	for id := range notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	s.mu.Lock()
	s.notes = notes
	s.ids = ids
	s.mu.Unlock()

	logger.Infof("loaded %d notes", len(ids))
	return nil
}

func loadFS(fsys fs.FS, root string, isBuiltin bool, into map[string]*Note) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != noteExt {
			continue
		}
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(root, e.Name())))
		if err != nil {
			return err
		}

		id := strings.TrimSuffix(e.Name(), noteExt)
		src := string(data)
		into[id] = &Note{ID: id, Title: Title(src), Source: src, Builtin: isBuiltin}
	}
	return nil
}

// Title 取第一个一级标题作为笔记标题
func Title(src string) string {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "# ") {
			if t := strings.TrimSpace(line[2:]); t != "" {
				return t
			}
		}
	}
	return DefaultTitle
}

func (s *noteService) List() []*Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Note, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.notes[id])
	}
	return out
}

func (s *noteService) Get(id string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, apperrors.NewWithDetails(apperrors.ErrNoteNotFound, id)
	}
	return n, nil
}

func (s *noteService) Search(query string) []*Note {
	q := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Note
	for _, id := range s.ids {
		if strings.Contains(strings.ToLower(s.notes[id].Source), q) {
			out = append(out, s.notes[id])
		}
	}
	return out
}

func (s *noteService) Render(id string) (*Note, template.HTML, error) {
	n, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}
	return n, Markdown(n.Source), nil
}
