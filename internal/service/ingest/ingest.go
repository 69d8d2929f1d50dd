// Package ingest 把上传的一批文件转换成文件记录
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/weiwangfds/javanotes/config"
	apperrors "github.com/weiwangfds/javanotes/internal/errors"
	"github.com/weiwangfds/javanotes/internal/logger"
	"github.com/weiwangfds/javanotes/internal/service/record"
	"golang.org/x/sync/errgroup"
)

// DefaultExtension 默认只接受的文件扩展名
const DefaultExtension = ".java"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Input 一个待入库的文件
type Input struct {
	Name string
	// Open 打开文件内容，由调用方负责提供，读完后会被关闭
	Open func() (io.ReadCloser, error)
}

// Skipped 被跳过的文件及原因
type Skipped struct {
	Name   string              `json:"name"`
	Reason string              `json:"reason"`
	Code   apperrors.ErrorCode `json:"code"`
}

// Result 一批文件的入库结果
type Result struct {
	Added   []*record.FileRecord `json:"added"`
	Skipped []Skipped            `json:"skipped"`
	// Errors 记录已加入内存但写入存储失败时的错误
	Errors []error `json:"-"`
}

// Ingestor 入库服务接口
type Ingestor interface {
	// Accept 判断文件名是否允许入库
	Accept(name string) bool

	// Ingest 入库一批文件
	Ingest(ctx context.Context, category string, inputs []Input) (*Result, error)

	// Categories 允许的分类，为空表示不限制
	Categories() []string

	// DefaultCategory 分类为空时使用的分类
	DefaultCategory() string
}

// ingestor 入库服务实现
type ingestor struct {
	store *record.Store
	cfg   config.IngestConfig
}

// NewIngestor 创建入库服务实例
func NewIngestor(store *record.Store, cfg config.IngestConfig) Ingestor {
	if cfg.Extension == "" {
		cfg.Extension = DefaultExtension
	}
	if cfg.ReadWorkers < 1 {
		cfg.ReadWorkers = 1
	}
	return &ingestor{store: store, cfg: cfg}
}

// Accept 文件名以 .java 结尾（区分大小写）时返回 true
func Accept(name string) bool {
	return strings.HasSuffix(name, DefaultExtension)
}

func (s *ingestor) Accept(name string) bool {
	return strings.HasSuffix(name, s.cfg.Extension)
}

func (s *ingestor) Categories() []string {
	return append([]string(nil), s.cfg.Categories...)
}

func (s *ingestor) DefaultCategory() string {
	return s.cfg.DefaultCategory
}

func (s *ingestor) resolveCategory(category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = s.cfg.DefaultCategory
	}
	if len(s.cfg.Categories) == 0 {
		return category, nil
	}
	for _, c := range s.cfg.Categories {
		if c == category {
			return category, nil
		}
	}
	return "", apperrors.NewWithDetails(apperrors.ErrInvalidCategory, category)
}

// readResult 单个文件的读取结果
type readResult struct {
	content string
	size    int64
	skip    *Skipped
}

// Ingest 入库一批文件
// 参数:
//   - ctx: 取消时停止尚未开始的读取
//   - category: 本批文件的分类，为空时使用默认分类
//   - inputs: 待入库的文件
//
// 返回:
//   - *Result: 新增的记录、被跳过的文件以及写入存储失败的错误
//   - error: 批次为空、分类无效或 ctx 被取消
//
// 文件内容并发读取，但按输入顺序依次写入记录存储
func (s *ingestor) Ingest(ctx context.Context, category string, inputs []Input) (*Result, error) {
	if len(inputs) == 0 {
		return nil, apperrors.New(apperrors.ErrNoFiles)
	}

	category, err := s.resolveCategory(category)
	if err != nil {
		logger.Warnf("ingest rejected: %v", err)
		return nil, err
	}

	results := make([]readResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ReadWorkers)

	for i, in := range inputs {
		if !s.Accept(in.Name) {
			results[i].skip = &Skipped{
				Name:   in.Name,
				Reason: fmt.Sprintf("Only %s files allowed", s.cfg.Extension),
				Code:   apperrors.ErrFileTypeNotAllowed,
			}
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.read(in)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	for i, in := range inputs {
		rr := results[i]
		if rr.skip != nil {
			logger.Warnf("skipped %q: %s", rr.skip.Name, rr.skip.Reason)
			result.Skipped = append(result.Skipped, *rr.skip)
			continue
		}

		rec, err := s.store.Add(in.Name, rr.content, category, rr.size)
		result.Added = append(result.Added, rec)
		if err != nil {
			result.Errors = append(result.Errors, err)
		}
	}

	logger.Infof("ingested batch: %d added, %d skipped, %d persistence errors",
		len(result.Added), len(result.Skipped), len(result.Errors))
	return result, nil
}

// read 读取单个文件，失败时返回 skip
func (s *ingestor) read(in Input) readResult {
	skip := func(code apperrors.ErrorCode, reason string) readResult {
		return readResult{skip: &Skipped{Name: in.Name, Reason: reason, Code: code}}
	}

	if in.Open == nil {
		return skip(apperrors.ErrFileReadFailed, apperrors.GetErrorMessage(apperrors.ErrFileReadFailed))
	}
	rc, err := in.Open()
	if err != nil {
		logger.Errorf("failed to open %q: %v", in.Name, err)
		return skip(apperrors.ErrFileReadFailed, err.Error())
	}
	defer rc.Close()

	var r io.Reader = rc
	if s.cfg.MaxFileSize > 0 {
		r = io.LimitReader(rc, s.cfg.MaxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		logger.Errorf("failed to read %q: %v", in.Name, err)
		return skip(apperrors.ErrFileReadFailed, err.Error())
	}
	if s.cfg.MaxFileSize > 0 && int64(len(data)) > s.cfg.MaxFileSize {
		return skip(apperrors.ErrFileSizeTooLarge,
			fmt.Sprintf("larger than %s", record.FormatSize(s.cfg.MaxFileSize)))
	}

	size := int64(len(data))
	return readResult{content: decodeText(data), size: size}
}

// decodeText 按 UTF-8 解码，去掉 BOM，非法字节替换为 U+FFFD
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	return strings.ToValidUTF8(string(data), "\uFFFD")
}
