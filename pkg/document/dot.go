package document

import (
	"bytes"
	"io"
	"strconv"
)

// DOTOptions Graphviz 输出选项
type DOTOptions struct {
	RankDir        string // 默认 LR
	ShowProperties bool   // 在节点标签中显示属性
}

// WriteDOT 以 Graphviz DOT 格式输出文档
// 终止状态为双圈，当前状态填充，边上标注消息
func WriteDOT(w io.Writer, doc *Document, opts DOTOptions) error {
	rankdir := opts.RankDir
	if rankdir == "" {
		rankdir = "LR"
	}
	name := doc.Name
	if name == "" {
		name = "fsm"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph ")
	buf.WriteString(strconv.Quote(name))
	buf.WriteString(" {\n")
	buf.WriteString("\trankdir=" + rankdir + ";\n")
	buf.WriteString("\tnode [shape=circle];\n")

	for _, sd := range doc.States {
		buf.WriteByte('\t')
		buf.WriteString(strconv.Quote(sd.Name))

		var attrs []string
		if sd.Final {
			attrs = append(attrs, "shape=doublecircle")
		}
		if sd.Current {
			attrs = append(attrs, "style=filled")
		}
		if opts.ShowProperties && sd.Properties.Len() > 0 {
			label := sd.Name
			sd.Properties.Each(func(k, v string) {
				label += "\n" + k + "=" + v
			})
			attrs = append(attrs, "label="+strconv.Quote(label))
		}
		writeAttrs(&buf, attrs)
		buf.WriteString(";\n")
	}

	for _, td := range doc.Transitions {
		buf.WriteByte('\t')
		buf.WriteString(strconv.Quote(td.Source))
		buf.WriteString(" -> ")
		buf.WriteString(strconv.Quote(td.Target))
		writeAttrs(&buf, []string{"label=" + strconv.Quote(td.Label())})
		buf.WriteString(";\n")
	}
	buf.WriteString("}\n")

	_, err := w.Write(buf.Bytes())
	return err
}

func writeAttrs(buf *bytes.Buffer, attrs []string) {
	if len(attrs) == 0 {
		return
	}
	buf.WriteString(" [")
	for i, a := range attrs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(a)
	}
	buf.WriteByte(']')
}
