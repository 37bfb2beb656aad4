package document

import (
	"errors"
	"fmt"
)

// ParseError 文档内容错误，带有出错位置
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ImportError 读取或解析文档失败
type ImportError struct {
	Path string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Path, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// ExportError 写出文档失败
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// IsImportError 判断是否为导入错误
func IsImportError(err error) bool {
	var e *ImportError
	return errors.As(err, &e)
}

// IsExportError 判断是否为导出错误
func IsExportError(err error) bool {
	var e *ExportError
	return errors.As(err, &e)
}

// IsParseError 判断是否为文档内容错误
func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}
