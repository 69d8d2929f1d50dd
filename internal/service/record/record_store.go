package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/weiwangfds/javanotes/internal/errors"
	"github.com/weiwangfds/javanotes/internal/kv"
	"github.com/weiwangfds/javanotes/internal/logger"
)

// DefaultKey 记录列表在键值存储中的默认键名
const DefaultKey = "javaFiles"

// corruptSuffix 无法解析的旧数据会被另存到 <key><corruptSuffix>
const corruptSuffix = ".corrupt"

// Store 文件记录存储
// 进程内唯一持有记录列表和持久化后端，所有修改都经过这里
type Store struct {
	mu       sync.RWMutex
	backend  kv.Store
	key      string
	records  []*FileRecord
	dirty    bool // 最近一次写入失败，内存与持久化数据不一致
	warnings []string

	now   func() time.Time
	newID func() string
}

// Option 存储选项
type Option func(*Store)

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator 替换ID生成器
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore 创建存储并加载已保存的记录
// 参数:
//   - backend: 键值存储后端
//   - key: 记录列表的键名，为空时使用 DefaultKey
//
// 返回:
//   - *Store: 加载完成的存储
//   - error: 后端无法读取时返回 ErrStorageUnavailable
//
// 键不存在时从空列表开始；数据无法解析时同样从空列表开始，
// 记录一条警告并把原始数据另存，避免下一次写入把它覆盖掉
func NewStore(backend kv.Store, key string, opts ...Option) (*Store, error) {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{
		backend: backend,
		key:     key,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := s.backend.Get(s.key)
	if err != nil {
		if errors.Is(err, kv.ErrNotExist) {
			logger.Infof("no stored file list under %q, starting empty", s.key)
			return nil
		}
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, err)
	}

	var records []*FileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.warn(fmt.Sprintf("stored file list under %q is malformed, starting empty: %v", s.key, err))
		backupKey := s.key + corruptSuffix
		if err := s.backend.Set(backupKey, data); err != nil {
			logger.Errorf("failed to back up malformed file list to %q: %v", backupKey, err)
		} else {
			logger.Warnf("malformed file list copied to %q", backupKey)
		}
		return nil
	}

	seen := make(map[string]bool, len(records))
	for i, r := range records {
		switch {
		case r == nil:
			s.warn(fmt.Sprintf("dropping empty entry at index %d", i))
			continue
		case r.ID == "":
			s.warn(fmt.Sprintf("dropping entry %q at index %d: missing id", r.Name, i))
			continue
		case seen[r.ID]:
			s.warn(fmt.Sprintf("dropping entry %q at index %d: duplicate id %s", r.Name, i, r.ID))
			continue
		}
		seen[r.ID] = true
		s.records = append(s.records, r)
	}

	logger.Infof("loaded %d file records from %q", len(s.records), s.key)
	return nil
}

func (s *Store) warn(msg string) {
	s.warnings = append(s.warnings, msg)
	logger.Warnf("%s", msg)
}

// persistLocked 把整个列表写入后端，调用方需持有写锁
func (s *Store) persistLocked() error {
	records := s.records
	if records == nil {
		records = []*FileRecord{}
	}

	data, err := json.Marshal(records)
	if err == nil {
		err = s.backend.Set(s.key, data)
	}
	if err != nil {
		s.dirty = true
		logger.Errorf("failed to persist %d file records: %v", len(records), err)
		return apperrors.Wrap(apperrors.ErrPersistFailed, err)
	}

	s.dirty = false
	return nil
}

// Add 新增一条记录并立即持久化
// 持久化失败时记录仍然保留在内存中，同时返回 ErrPersistFailed，
// 之后任意一次成功写入或 Flush 都会把它补写进去
func (s *Store) Add(name, content, category string, rawByteLength int64) (*FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for s.indexLocked(id) >= 0 {
		id = s.newID()
	}

	rec := newFileRecord(id, name, content, category, rawByteLength, s.now())
	s.records = append(s.records, rec)
	logger.Infof("added file record %s (%s, %s, %s)", rec.ID, rec.Name, rec.Category, rec.Size)

	return rec, s.persistLocked()
}

// List 返回全部记录的副本，顺序与插入顺序一致
// 记录本身是共享的，调用方不能修改
func (s *Store) List() []*FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*FileRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len 记录数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FindByID 按ID查找，找不到时返回 false
func (s *Store) FindByID(id string) (*FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.records[i], true
	}
	return nil, false
}

func (s *Store) indexLocked(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// DeleteByID 删除记录并立即持久化
// ID 不存在时什么也不做，返回 false 且不写存储
func (s *Store) DeleteByID(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		logger.Debugf("delete: file record %s not found", id)
		return false, nil
	}

	name := s.records[i].Name
	s.records = append(s.records[:i:i], s.records[i+1:]...)
	logger.Infof("deleted file record %s (%s)", id, name)

	return true, s.persistLocked()
}

// Filter 按文件名或分类做不区分大小写的子串匹配
// 保持原有顺序，空查询返回全部记录
func (s *Store) Filter(query string) []*FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	out := make([]*FileRecord, 0, len(s.records))
	for _, r := range s.records {
		if strings.Contains(strings.ToLower(r.Name), q) || strings.Contains(strings.ToLower(r.Category), q) {
			out = append(out, r)
		}
	}
	return out
}

// Flush 上一次写入失败时重新持久化当前列表
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	logger.Infof("retrying persistence of %d file records", len(s.records))
	return s.persistLocked()
}

// Dirty 内存中的列表是否还没有写入成功
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Warnings 加载时产生的警告
func (s *Store) Warnings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.warnings...)
}
