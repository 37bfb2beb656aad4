package document

import (
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
	"gopkg.in/yaml.v3"
)

/* ------------------------------ 编码 ------------------------------ */

// EncodeYAML 以 YAML 写出文档，状态属性保持插入顺序
func EncodeYAML(w io.Writer, doc *Document) error {
	root := mapping()
	if doc.Name != "" {
		appendPair(root, "name", scalar(doc.Name))
	}

	states := &yaml.Node{Kind: yaml.SequenceNode}
	for _, sd := range doc.States {
		n := mapping()
		appendPair(n, "name", scalar(sd.Name))
		if sd.Final {
			appendPair(n, "final", boolean(true))
		}
		if sd.Current {
			appendPair(n, "current", boolean(true))
		}
		if sd.Properties.Len() > 0 {
			props := mapping()
			sd.Properties.Each(func(k, v string) {
				appendPair(props, k, scalar(v))
			})
			appendPair(n, "properties", props)
		}
		states.Content = append(states.Content, n)
	}
	appendPair(root, "states", states)

	transitions := &yaml.Node{Kind: yaml.SequenceNode}
	for _, td := range doc.Transitions {
		n := mapping()
		appendPair(n, "source", scalar(td.Source))
		appendPair(n, "target", scalar(td.Target))
		switch {
		case td.Any:
			appendPair(n, "any", boolean(true))
		case td.Sentinel != "":
			appendPair(n, "sentinel", scalar(td.Sentinel))
		case td.Message != nil:
			appendPair(n, "message", scalar(*td.Message))
		}
		transitions.Content = append(transitions.Content, n)
	}
	appendPair(root, "transitions", transitions)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return err
	}
	return enc.Close()
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode}
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func boolean(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
}

func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalar(key), value)
}

/* ------------------------------ 解码 ------------------------------ */

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

// DecodeYAML 解析 YAML 文档
func DecodeYAML(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, syntaxError(err)
	}
	if root.Kind == 0 {
		return nil, &ParseError{Line: 1, Column: 1, Msg: "document is empty"}
	}

	top := &root
	if top.Kind == yaml.DocumentNode && len(top.Content) > 0 {
		top = top.Content[0]
	}
	if top.Kind != yaml.MappingNode {
		return nil, nodeError(top, "top level must be a mapping")
	}

	doc := &Document{}
	err = eachPair(top, func(key string, value *yaml.Node) error {
		switch key {
		case "name":
			return decodeScalar(value, &doc.Name)
		case "states":
			return eachItem(value, func(n *yaml.Node) error {
				sd, err := decodeState(n)
				if err != nil {
					return err
				}
				doc.States = append(doc.States, sd)
				return nil
			})
		case "transitions":
			return eachItem(value, func(n *yaml.Node) error {
				td, err := decodeTransition(n)
				if err != nil {
					return err
				}
				doc.Transitions = append(doc.Transitions, td)
				return nil
			})
		}
		return nodeError(value, fmt.Sprintf("unknown field %q", key))
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeState(n *yaml.Node) (StateDoc, error) {
	if n.Kind != yaml.MappingNode {
		return StateDoc{}, nodeError(n, "state must be a mapping")
	}

	sd := StateDoc{Properties: statemachine.NewProperties()}
	err := eachPair(n, func(key string, value *yaml.Node) error {
		switch key {
		case "name":
			return decodeScalar(value, &sd.Name)
		case "final":
			return decodeScalar(value, &sd.Final)
		case "current":
			return decodeScalar(value, &sd.Current)
		case "properties":
			if value.Kind != yaml.MappingNode {
				return nodeError(value, "properties must be a mapping")
			}
			return eachPair(value, func(k string, v *yaml.Node) error {
				var s string
				if err := decodeScalar(v, &s); err != nil {
					return err
				}
				sd.Properties.Set(k, s)
				return nil
			})
		}
		return nodeError(value, fmt.Sprintf("unknown state field %q", key))
	})
	if err != nil {
		return StateDoc{}, err
	}
	if sd.Name == "" {
		return StateDoc{}, nodeError(n, "state has no name")
	}
	return sd, nil
}

func decodeTransition(n *yaml.Node) (TransitionDoc, error) {
	if n.Kind != yaml.MappingNode {
		return TransitionDoc{}, nodeError(n, "transition must be a mapping")
	}

	var td TransitionDoc
	err := eachPair(n, func(key string, value *yaml.Node) error {
		switch key {
		case "source":
			return decodeScalar(value, &td.Source)
		case "target":
			return decodeScalar(value, &td.Target)
		case "message":
			td.Message = new(string)
			return decodeScalar(value, td.Message)
		case "any":
			return decodeScalar(value, &td.Any)
		case "sentinel":
			return decodeScalar(value, &td.Sentinel)
		}
		return nodeError(value, fmt.Sprintf("unknown transition field %q", key))
	})
	if err != nil {
		return TransitionDoc{}, err
	}

	if td.Source == "" || td.Target == "" {
		return TransitionDoc{}, nodeError(n, "transition requires source and target")
	}
	if _, err := td.MessageOf(); err != nil {
		return TransitionDoc{}, nodeError(n, err.Error())
	}
	return td, nil
}

func eachPair(m *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if err := fn(m.Content[i].Value, m.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func eachItem(seq *yaml.Node, fn func(n *yaml.Node) error) error {
	if seq.Kind != yaml.SequenceNode {
		return nodeError(seq, "expected a list")
	}
	for _, item := range seq.Content {
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

func decodeScalar(n *yaml.Node, dst any) error {
	if n.Kind != yaml.ScalarNode {
		return nodeError(n, "expected a scalar value")
	}
	if err := n.Decode(dst); err != nil {
		return nodeError(n, err.Error())
	}
	return nil
}

func nodeError(n *yaml.Node, msg string) *ParseError {
	return &ParseError{Line: n.Line, Column: n.Column, Msg: msg}
}

// syntaxError 从 yaml 库的错误信息中提取行号
func syntaxError(err error) *ParseError {
	pe := &ParseError{Msg: err.Error()}
	if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
	}
	return pe
}
