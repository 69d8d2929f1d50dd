// Package record 管理上传的 .java 文件记录
// 记录列表按插入顺序保存，每次变更后整体写入键值存储
package record

import (
	"math"
	"strconv"
	"time"
)

// 日期格式
const (
	// DisplayDateLayout 列表中展示的日期，只有日期部分
	DisplayDateLayout = "1/2/2006"
	// UploadDateLayout 机器可读的上传时间，UTC 毫秒精度
	UploadDateLayout = "2006-01-02T15:04:05.000Z"
	// ContentType 下载时使用的内容类型
	ContentType = "text/x-java-source"
)

// FileRecord 一个已保存的文件
// 创建后所有字段都不再修改
type FileRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Content      string `json:"content"`
	Category     string `json:"category"`
	Size         string `json:"size"`
	LastModified string `json:"lastModified"`
	UploadDate   string `json:"uploadDate"`
}

// newFileRecord 根据上传内容构造记录，派生字段在这里一次性计算
func newFileRecord(id, name, content, category string, rawByteLength int64, now time.Time) *FileRecord {
	return &FileRecord{
		ID:           id,
		Name:         name,
		Content:      content,
		Category:     category,
		Size:         FormatSize(rawByteLength),
		LastModified: now.Local().Format(DisplayDateLayout),
		UploadDate:   now.UTC().Format(UploadDateLayout),
	}
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize 把字节数格式化为 1024 进制的可读字符串
// 保留两位小数并去掉末尾的 0，例如 1024 -> "1 KB"，1536 -> "1.5 KB"
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	i := 0
	for i < len(sizeUnits)-1 && float64(bytes) >= math.Pow(1024, float64(i+1)) {
		i++
	}

	value := float64(bytes) / math.Pow(1024, float64(i))
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(value, 'f', 2, 64), 64)
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[i]
}

// Export 返回下载所需的文件名、内容类型和内容
func Export(r *FileRecord) (name, contentType string, body []byte) {
	return r.Name, ContentType, []byte(r.Content)
}
