package statemachine

import (
	"fmt"

	"github.com/google/uuid"
)

// Properties 按插入顺序保存的字符串属性
type Properties struct {
	keys   []string
	values map[string]string
}

// NewProperties 创建属性集合，参数为 key, value 交替
func NewProperties(kv ...string) *Properties {
	p := &Properties{values: make(map[string]string)}
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

// Set 设置属性，已存在的键保留原有位置
func (p *Properties) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get 读取属性
func (p *Properties) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.values[key]
	return v, ok
}

// Delete 删除属性
func (p *Properties) Delete(key string) {
	if p == nil {
		return
	}
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys 返回按插入顺序排列的键
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Len 返回属性数量
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Each 按插入顺序遍历
func (p *Properties) Each(fn func(key, value string)) {
	if p == nil {
		return
	}
	for _, k := range p.keys {
		fn(k, p.values[k])
	}
}

// Clone 深拷贝
func (p *Properties) Clone() *Properties {
	c := NewProperties()
	p.Each(c.Set)
	return c
}

// StateOption 状态构造选项
type StateOption func(*BasicState)

// AsFinal 标记为终止状态
func AsFinal() StateOption {
	return func(s *BasicState) {
		s.final = true
	}
}

// WithProperty 设置单个属性
func WithProperty(key, value string) StateOption {
	return func(s *BasicState) {
		s.props.Set(key, value)
	}
}

// WithProperties 批量设置属性
func WithProperties(props *Properties) StateOption {
	return func(s *BasicState) {
		props.Each(s.props.Set)
	}
}

// BasicState State 的默认实现
type BasicState struct {
	id    uuid.UUID
	name  string
	final bool
	props *Properties
}

// NewState 创建状态
func NewState(name string, opts ...StateOption) *BasicState {
	s := &BasicState{
		id:    uuid.New(),
		name:  name,
		props: NewProperties(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID 返回唯一标识
func (s *BasicState) ID() uuid.UUID { return s.id }

// Name 返回状态名称
func (s *BasicState) Name() string { return s.name }

// IsFinal 是否为终止状态
func (s *BasicState) IsFinal() bool { return s.final }

// SetFinal 修改终止标记
func (s *BasicState) SetFinal(final bool) { s.final = final }

// Properties 返回属性集合
func (s *BasicState) Properties() *Properties { return s.props }

// Merge 合并另一份同名声明
func (s *BasicState) Merge(other State) {
	if isNilNode(other) {
		return
	}
	s.final = s.final || other.IsFinal()
	other.Properties().Each(s.props.Set)
}

func (s *BasicState) String() string {
	if s.final {
		return fmt.Sprintf("%s(final)", s.name)
	}
	return s.name
}
