package statemachine

import (
	"fmt"
	"slices"

	"github.com/junbin-yang/go-fsmkit/pkg/logger"
)

// Edge 一条出边
type Edge struct {
	Message Message
	Target  State
}

// AdjacencyEntry 一个顶点及其全部出边
type AdjacencyEntry struct {
	State State
	Edges []Edge
}

// IndexOption 转换索引配置选项
type IndexOption func(*TransitionIndex)

// WithIndexValidator 设置校验器
func WithIndexValidator(v Validator) IndexOption {
	return func(idx *TransitionIndex) {
		if v != nil {
			idx.validator = v
		}
	}
}

// WithIndexLogger 设置日志
func WithIndexLogger(l logger.Logger) IndexOption {
	return func(idx *TransitionIndex) {
		if l != nil {
			idx.log = l
		}
	}
}

// TransitionIndex 转换图存储：State -> (Message -> State)，保持插入顺序
// 非并发安全，由调用方串行化访问
type TransitionIndex struct {
	validator Validator
	log       logger.Logger

	order  []string            // 顶点插入顺序
	states map[string]State    // 名称 -> 规范实例
	edges  map[string]*edgeSet // 名称 -> 出边
}

// NewTransitionIndex 创建转换索引
func NewTransitionIndex(opts ...IndexOption) *TransitionIndex {
	idx := &TransitionIndex{
		validator: NewDefaultValidator(PolicyThrow),
		log:       logger.Default(),
		states:    make(map[string]State),
		edges:     make(map[string]*edgeSet),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Validator 返回当前校验器
func (idx *TransitionIndex) Validator() Validator { return idx.validator }

// Add 添加转换，同一 (origin, message) 重复添加时后者覆盖
// 被覆盖的旧目标成为孤立顶点时随之移除
func (idx *TransitionIndex) Add(t Transition) error {
	return idx.AddKeep(t)
}

// AddKeep 同 Add，keep 中的顶点即使被覆盖成孤立顶点也保留
func (idx *TransitionIndex) AddKeep(t Transition, keep ...string) error {
	if err := t.Validate(); err != nil {
		return err
	}
	// 终止标记以图中的规范顶点为准，不受校验器策略影响
	if existing, ok := idx.states[t.Origin.Name()]; ok && existing.IsFinal() {
		return fmt.Errorf("%w: %s", ErrFinalOrigin, t)
	}

	if res := idx.validator.Validate(t, idx, OpAdd); !res.Valid {
		if apply, err := idx.applyPolicy(t, OpAdd, res); !apply {
			return err
		}
	}

	origin := idx.ensure(t.Origin)
	target := idx.ensure(t.Target)
	es := idx.edges[origin.Name()]
	previous, replaced := es.get(t.Message)
	es.put(t.Message, target.Name())

	// 被覆盖的旧目标不再被引用时一并移除
	if replaced && previous != target.Name() && !slices.Contains(keep, previous) && idx.isOrphan(previous) {
		idx.deleteVertex(previous)
		idx.log.Debug("displaced target removed", logger.String("state", previous))
	}

	idx.log.Debug("transition added", logger.String("transition", t.String()))
	return nil
}

// AddAll 依次添加，遇到第一个错误即返回
func (idx *TransitionIndex) AddAll(ts ...Transition) error {
	for i, t := range ts {
		if err := idx.Add(t); err != nil {
			return fmt.Errorf("add transition[%d]: %w", i, err)
		}
	}
	return nil
}

// AddState 添加孤立顶点，同名顶点已存在时合并声明
func (idx *TransitionIndex) AddState(s State) error {
	if isNilNode(s) {
		return ErrNilState
	}
	if existing, ok := idx.states[s.Name()]; ok {
		if existing != s {
			existing.Merge(s)
		}
		return nil
	}
	idx.ensure(s)
	return nil
}

// ReplaceState 用同名的新实例替换规范顶点（例如追加过滤器）
func (idx *TransitionIndex) ReplaceState(s State) error {
	if isNilNode(s) {
		return ErrNilState
	}
	if _, ok := idx.states[s.Name()]; !ok {
		return fmt.Errorf("%w: %s", ErrStateNotFound, s.Name())
	}
	idx.states[s.Name()] = s
	return nil
}

// Remove 删除一条精确的映射，顶点保留
func (idx *TransitionIndex) Remove(t Transition) error {
	if isNilNode(t.Origin) {
		return fmt.Errorf("%w: %s", ErrNilOrigin, t)
	}
	if !t.Message.IsValid() {
		return fmt.Errorf("%w: %s", ErrNilMessage, t)
	}
	if isNilNode(t.Target) {
		return fmt.Errorf("%w: %s", ErrNilTarget, t)
	}

	// 不存在的映射总是报错，与校验器结果无关
	if !idx.Contains(t) {
		return fmt.Errorf("%w: %s", ErrTransitionNotFound, t)
	}

	if res := idx.validator.Validate(t, idx, OpRemove); !res.Valid {
		if apply, err := idx.applyPolicy(t, OpRemove, res); !apply {
			return err
		}
	}

	idx.edges[t.Origin.Name()].del(t.Message)
	idx.log.Debug("transition removed", logger.String("transition", t.String()))
	return nil
}

// RemoveState 删除顶点，并删除所有指向它的边
func (idx *TransitionIndex) RemoveState(name string) error {
	if _, ok := idx.states[name]; !ok {
		return fmt.Errorf("%w: %s", ErrStateNotFound, name)
	}
	idx.deleteVertex(name)
	idx.log.Debug("state removed", logger.String("state", name))
	return nil
}

// Find 按名称查找顶点
func (idx *TransitionIndex) Find(name string) (State, bool) {
	s, ok := idx.states[name]
	return s, ok
}

// First 返回最先插入的顶点
func (idx *TransitionIndex) First() (State, bool) {
	if len(idx.order) == 0 {
		return nil, false
	}
	return idx.states[idx.order[0]], true
}

// Size 返回顶点数量
func (idx *TransitionIndex) Size() int {
	return len(idx.order)
}

// Contains 检查精确映射 (origin, message) -> target 是否存在
func (idx *TransitionIndex) Contains(t Transition) bool {
	if isNilNode(t.Origin) || isNilNode(t.Target) {
		return false
	}
	es, ok := idx.edges[t.Origin.Name()]
	if !ok {
		return false
	}
	target, ok := es.get(t.Message)
	return ok && target == t.Target.Name()
}

// Lookup 只做精确匹配，不回退到 Any
func (idx *TransitionIndex) Lookup(origin string, msg Message) (State, bool) {
	es, ok := idx.edges[origin]
	if !ok {
		return nil, false
	}
	target, ok := es.get(msg)
	if !ok {
		return nil, false
	}
	s, ok := idx.states[target]
	return s, ok
}

// Transitions 返回某个顶点的全部出边
func (idx *TransitionIndex) Transitions(name string) []Transition {
	origin, ok := idx.states[name]
	if !ok {
		return nil
	}
	es := idx.edges[name]
	out := make([]Transition, 0, es.len())
	es.each(func(msg Message, target string) {
		out = append(out, Transition{Origin: origin, Message: msg, Target: idx.states[target]})
	})
	return out
}

// AllTransitions 按顶点插入顺序返回全部转换
func (idx *TransitionIndex) AllTransitions() []Transition {
	var out []Transition
	for _, name := range idx.order {
		out = append(out, idx.Transitions(name)...)
	}
	return out
}

// States 按插入顺序返回全部顶点
func (idx *TransitionIndex) States() []State {
	out := make([]State, 0, len(idx.order))
	for _, name := range idx.order {
		out = append(out, idx.states[name])
	}
	return out
}

// Adjacency 返回有序的邻接表视图
func (idx *TransitionIndex) Adjacency() []AdjacencyEntry {
	out := make([]AdjacencyEntry, 0, len(idx.order))
	for _, name := range idx.order {
		entry := AdjacencyEntry{State: idx.states[name]}
		idx.edges[name].each(func(msg Message, target string) {
			entry.Edges = append(entry.Edges, Edge{Message: msg, Target: idx.states[target]})
		})
		out = append(out, entry)
	}
	return out
}

// Prune 反复移除孤立顶点（无出边且没有其他顶点指向它），直到不再变化
// keep 中的名称不会被移除
func (idx *TransitionIndex) Prune(keep ...string) []State {
	kept := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		kept[name] = struct{}{}
	}

	var removed []State
	for {
		incoming := make(map[string]struct{}, len(idx.order))
		for origin, es := range idx.edges {
			es.each(func(_ Message, target string) {
				if target != origin {
					incoming[target] = struct{}{}
				}
			})
		}

		var orphans []string
		for _, name := range idx.order {
			if _, ok := kept[name]; ok {
				continue
			}
			if _, ok := incoming[name]; ok {
				continue
			}
			if idx.edges[name].len() == 0 {
				orphans = append(orphans, name)
			}
		}
		if len(orphans) == 0 {
			break
		}

		for _, name := range orphans {
			removed = append(removed, idx.states[name])
			idx.deleteVertex(name)
		}
	}

	if len(removed) > 0 {
		idx.log.Debug("pruned orphan states", logger.Int("count", len(removed)))
	}
	return removed
}

/* ------------------------------ 内部方法 ------------------------------ */

// applyPolicy 根据校验器策略决定是否继续修改
func (idx *TransitionIndex) applyPolicy(t Transition, op Operation, res ValidationResult) (bool, error) {
	policy := idx.validator.FailurePolicy()
	switch policy {
	case PolicyProceed:
		idx.log.Warn("validation failed, proceeding by policy",
			logger.String("op", op.String()),
			logger.String("transition", t.String()),
			logger.String("reason", res.Description),
		)
		return true, nil
	case PolicyIgnore:
		idx.log.Debug("validation failed, ignored by policy",
			logger.String("op", op.String()),
			logger.String("transition", t.String()),
			logger.String("reason", res.Description),
		)
		return false, nil
	default:
		return false, &ValidationError{
			Transition:  t,
			Operation:   op,
			Description: res.Description,
			Err:         res.Err,
		}
	}
}

// isOrphan 没有出边，也没有其他顶点指向它
func (idx *TransitionIndex) isOrphan(name string) bool {
	if idx.edges[name].len() > 0 {
		return false
	}
	for origin, es := range idx.edges {
		if origin == name {
			continue
		}
		referenced := false
		es.each(func(_ Message, target string) {
			if target == name {
				referenced = true
			}
		})
		if referenced {
			return false
		}
	}
	return true
}

// ensure 确保顶点存在，返回规范实例
func (idx *TransitionIndex) ensure(s State) State {
	if existing, ok := idx.states[s.Name()]; ok {
		return existing
	}
	idx.order = append(idx.order, s.Name())
	idx.states[s.Name()] = s
	idx.edges[s.Name()] = newEdgeSet()
	return s
}

// deleteVertex 删除顶点及所有入边
func (idx *TransitionIndex) deleteVertex(name string) {
	delete(idx.states, name)
	delete(idx.edges, name)
	for i, n := range idx.order {
		if n == name {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			break
		}
	}
	for _, es := range idx.edges {
		es.removeTarget(name)
	}
}

// edgeSet 保持插入顺序的 Message -> 目标名称 映射
type edgeSet struct {
	keys    []messageID
	msgs    map[messageID]Message
	targets map[messageID]string
}

func newEdgeSet() *edgeSet {
	return &edgeSet{
		msgs:    make(map[messageID]Message),
		targets: make(map[messageID]string),
	}
}

func (es *edgeSet) put(msg Message, target string) {
	id := msg.id()
	if _, ok := es.targets[id]; !ok {
		es.keys = append(es.keys, id)
	}
	es.msgs[id] = msg
	es.targets[id] = target
}

func (es *edgeSet) get(msg Message) (string, bool) {
	target, ok := es.targets[msg.id()]
	return target, ok
}

func (es *edgeSet) del(msg Message) bool {
	id := msg.id()
	if _, ok := es.targets[id]; !ok {
		return false
	}
	delete(es.targets, id)
	delete(es.msgs, id)
	for i, k := range es.keys {
		if k == id {
			es.keys = append(es.keys[:i], es.keys[i+1:]...)
			break
		}
	}
	return true
}

func (es *edgeSet) removeTarget(name string) {
	kept := es.keys[:0]
	for _, id := range es.keys {
		if es.targets[id] == name {
			delete(es.targets, id)
			delete(es.msgs, id)
			continue
		}
		kept = append(kept, id)
	}
	es.keys = kept
}

func (es *edgeSet) len() int {
	if es == nil {
		return 0
	}
	return len(es.keys)
}

func (es *edgeSet) each(fn func(msg Message, target string)) {
	if es == nil {
		return
	}
	for _, id := range es.keys {
		fn(es.msgs[id], es.targets[id])
	}
}
