package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v2"
)

// Serializer 引擎配置文件的编解码格式
// 解码是严格的：未知配置项和无法转换的值都会报错
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
	GetFileExt() string // 保存和按默认路径查找时使用的扩展名
	GetName() string
}

// formats 已知格式，按默认查找顺序排列
var formats = []struct {
	name    string
	aliases []string
	exts    []string
	create  func() Serializer
}{
	{"yaml", []string{"yml"}, []string{".yml", ".yaml"}, func() Serializer { return &YAMLSerializer{} }},
	{"json", nil, []string{".json"}, func() Serializer { return &JSONSerializer{} }},
	{"ini", []string{"conf"}, []string{".ini", ".conf"}, func() Serializer { return &INISerializer{} }},
}

// SerializerByName 按格式名称或别名返回序列化器
func SerializerByName(name string) (Serializer, error) {
	name = strings.ToLower(name)
	for _, f := range formats {
		if f.name == name || slices.Contains(f.aliases, name) {
			return f.create(), nil
		}
	}
	return nil, fmt.Errorf("unsupported config format %q", name)
}

// matchesExt 扩展名是否属于该格式
func matchesExt(s Serializer, ext string) bool {
	ext = strings.ToLower(ext)
	if s.GetFileExt() == ext {
		return true
	}
	for _, f := range formats {
		if f.name == s.GetName() {
			return slices.Contains(f.exts, ext)
		}
	}
	return false
}

// YAMLSerializer 默认格式，未知字段报错
type YAMLSerializer struct{}

func (*YAMLSerializer) Marshal(v interface{}) ([]byte, error) { return yaml.Marshal(v) }

func (*YAMLSerializer) Unmarshal(data []byte, v interface{}) error {
	return yaml.UnmarshalStrict(data, v)
}

func (*YAMLSerializer) GetFileExt() string { return ".yml" }
func (*YAMLSerializer) GetName() string    { return "yaml" }

// JSONSerializer 缩进输出，未知字段报错
type JSONSerializer struct{}

func (*JSONSerializer) Marshal(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (*JSONSerializer) Unmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (*JSONSerializer) GetFileExt() string { return ".json" }
func (*JSONSerializer) GetName() string    { return "json" }

// INISerializer 每个配置段（log/machine/document）对应一个分区
type INISerializer struct{}

func (*INISerializer) Marshal(v interface{}) ([]byte, error) {
	f := ini.Empty()
	if err := f.ReflectFrom(v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (*INISerializer) Unmarshal(data []byte, v interface{}) error {
	f, err := ini.Load(data)
	if err != nil {
		return err
	}
	// StrictMapTo 在值无法转换时报错，而不是留下零值
	return f.StrictMapTo(v)
}

func (*INISerializer) GetFileExt() string { return ".ini" }
func (*INISerializer) GetName() string    { return "ini" }
