// Package i18n 提供国际化支持
// 负责管理错误消息和界面提示的多语言文本
package i18n

import (
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/weiwangfds/javanotes/internal/logger"
)

// 支持的语言
const (
	LangEnUS = "en-US"
	LangZhCN = "zh-CN"
)

var (
	instance *I18n
	once     sync.Once

	// 语言包存储
	translations = map[string]map[string]string{
		LangEnUS: {
			"success":               "Success",
			"internal_server_error": "Internal Server Error",
			"invalid_params":        "Invalid Parameters",
			"not_found":             "Resource Not Found",

			"record_not_found":      "File not found",
			"file_type_not_allowed": "Only .java files allowed",
			"no_files":              "Please select at least one file",
			"invalid_category":      "Unknown category",
			"file_read_failed":      "File Read Failed",
			"file_size_too_large":   "File Size Too Large",

			"persist_failed":      "Failed to save files to storage",
			"state_corrupted":     "Stored file list was unreadable and has been reset",
			"storage_unavailable": "Storage Unavailable",

			"note_not_found": "Note not found",

			"upload_success": "Files uploaded successfully!",
			"delete_success": "File deleted successfully!",
			"no_match":       "No files match your search criteria.",
			"no_files_yet":   "No files uploaded yet.",
			"skipped":        "Skipped:",

			"unknown_error": "Unknown Error",
		},
		LangZhCN: {
			"success":               "成功",
			"internal_server_error": "服务器内部错误",
			"invalid_params":        "参数错误",
			"not_found":             "资源未找到",

			"record_not_found":      "文件未找到",
			"file_type_not_allowed": "只允许上传 .java 文件",
			"no_files":              "请至少选择一个文件",
			"invalid_category":      "未知分类",
			"file_read_failed":      "文件读取失败",
			"file_size_too_large":   "文件大小超限",

			"persist_failed":      "文件列表保存失败",
			"state_corrupted":     "已保存的文件列表无法解析，已重置为空",
			"storage_unavailable": "存储不可用",

			"note_not_found": "笔记未找到",

			"upload_success": "文件上传成功！",
			"delete_success": "文件删除成功！",
			"no_match":       "没有符合搜索条件的文件。",
			"no_files_yet":   "还没有上传任何文件。",
			"skipped":        "已跳过：",

			"unknown_error": "未知错误",
		},
	}

	// 带数量的文本，{0} 为数量
	cardinals = map[string]map[string]map[locales.PluralRule]string{
		LangEnUS: {
			"file_count": {
				locales.PluralRuleOne:   "({0} file)",
				locales.PluralRuleOther: "({0} files)",
			},
		},
		LangZhCN: {
			"file_count": {
				locales.PluralRuleOther: "（{0} 个文件）",
			},
		},
	}
)

// I18n 国际化管理器
type I18n struct {
	translators map[string]ut.Translator
	defaultLang string
}

// GetInstance 获取I18n单例
func GetInstance() *I18n {
	once.Do(func() {
		instance = &I18n{
			translators: make(map[string]ut.Translator),
			defaultLang: LangEnUS,
		}
		instance.initTranslators()
	})
	return instance
}

// initTranslators 初始化翻译器并注册语言包
func (i *I18n) initTranslators() {
	enUS := en_US.New()
	zhCN := zh.New()
	uni := ut.New(enUS, enUS, zhCN)

	langMappings := map[string]string{
		LangEnUS: "en_US",
		LangZhCN: "zh",
	}

	for ourLang, localeLang := range langMappings {
		trans, found := uni.GetTranslator(localeLang)
		if !found {
			logger.Errorf("translator not found for %s (locale %s)", ourLang, localeLang)
			continue
		}
		for key, text := range translations[ourLang] {
			if err := trans.Add(key, text, false); err != nil {
				logger.Errorf("registering translation %s (%s): %v", key, ourLang, err)
			}
		}
		for key, rules := range cardinals[ourLang] {
			for rule, text := range rules {
				if err := trans.AddCardinal(key, text, rule, false); err != nil {
					logger.Errorf("registering plural %s (%s): %v", key, ourLang, err)
				}
			}
		}
		i.translators[ourLang] = trans
	}
}

// translator 返回语言对应的翻译器，不支持时使用默认语言
func (i *I18n) translator(lang string) (ut.Translator, string) {
	if trans, ok := i.translators[lang]; ok {
		return trans, lang
	}
	return i.translators[i.defaultLang], i.defaultLang
}

// Translate 根据键和语言获取翻译
// 语言不支持时回退到默认语言，键不存在时返回键本身
func (i *I18n) Translate(key, lang string) string {
	trans, lang := i.translator(lang)
	if text, err := trans.T(key); err == nil {
		return text
	}
	if lang != i.defaultLang {
		if text, err := i.translators[i.defaultLang].T(key); err == nil {
			return text
		}
	}

	logger.Warnf("missing translation: %s (%s)", key, lang)
	return key
}

// Plural 按语言的复数规则翻译带数量的文本，例如 "(1 file)"、"(2 files)"
func (i *I18n) Plural(key, lang string, n int) string {
	trans, lang := i.translator(lang)
	text, err := trans.C(key, float64(n), 0, strconv.Itoa(n))
	if err != nil {
		logger.Warnf("missing plural translation: %s (%s): %v", key, lang, err)
		return key
	}
	return text
}

// FromAcceptLanguage 从 Accept-Language 头中挑选支持的语言
func (i *I18n) FromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch {
		case strings.EqualFold(tag, LangEnUS), strings.EqualFold(tag, "en"):
			return LangEnUS
		case strings.EqualFold(tag, LangZhCN), strings.EqualFold(tag, "zh"):
			return LangZhCN
		}
	}
	return i.defaultLang
}

// GetDefaultLanguage 获取默认语言
func (i *I18n) GetDefaultLanguage() string {
	return i.defaultLang
}
