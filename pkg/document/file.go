package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
)

// Format 文档格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatDOT  Format = "dot"
)

// ParseFormat 解析格式名称
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "dot", "gv":
		return FormatDOT, nil
	}
	return "", fmt.Errorf("unsupported document format %q", s)
}

// FormatFromPath 根据扩展名推断格式
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// FileSystem 文档读写使用的文件系统
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
}

// OSFileSystem 基于 os 包的默认实现
type OSFileSystem struct{}

// ReadFile 实现 FileSystem
func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// WriteFile 实现 FileSystem，先写临时文件再重命名
func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, name)
}

// Encode 按格式写出文档
func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatYAML:
		return EncodeYAML(w, doc)
	case FormatDOT:
		return WriteDOT(w, doc, DOTOptions{})
	}
	return fmt.Errorf("unsupported document format %q", format)
}

// LoadDocument 读取并解析 YAML 文档
func LoadDocument(fsys FileSystem, path string) (*Document, error) {
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	if format, err := FormatFromPath(path); err == nil && format != FormatYAML {
		return nil, &ImportError{Path: path, Err: fmt.Errorf("%s documents cannot be imported", format)}
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, &ImportError{Path: path, Err: err}
	}
	doc, err := DecodeYAML(bytes.NewReader(data))
	if err != nil {
		return nil, &ImportError{Path: path, Err: err}
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// Load 读取文档并构建状态机
func Load(fsys FileSystem, path string, opts ...statemachine.Option) (*statemachine.Machine, error) {
	doc, err := LoadDocument(fsys, path)
	if err != nil {
		return nil, err
	}

	b := statemachine.NewBuilder(opts...)
	if err := Apply(doc, b); err != nil {
		return nil, &ImportError{Path: path, Err: err}
	}
	m, err := b.Build()
	if err != nil {
		return nil, &ImportError{Path: path, Err: err}
	}
	return m, nil
}

// Save 按格式保存状态机
func Save(fsys FileSystem, path string, m *statemachine.Machine, format Format) error {
	return SaveDocument(fsys, path, FromMachine(m), format)
}

// SaveDocument 按格式保存文档
func SaveDocument(fsys FileSystem, path string, doc *Document, format Format) error {
	if fsys == nil {
		fsys = OSFileSystem{}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, doc, format); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}
