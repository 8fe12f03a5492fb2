package listitem

import (
	"github.com/oakwood-commons/vmscope/internal/formatter"
	"github.com/oakwood-commons/vmscope/internal/props"
)

// Row is the view-model of one rendered line.
type Row struct {
	Key               string   `json:"key" yaml:"key"`
	Kind              string   `json:"kind" yaml:"kind"`
	Depth             int      `json:"depth" yaml:"depth"`
	Label             string   `json:"label" yaml:"label"`
	Meta              string   `json:"meta,omitempty" yaml:"meta,omitempty"`
	Value             string   `json:"value,omitempty" yaml:"value,omitempty"`
	Type              string   `json:"type,omitempty" yaml:"type,omitempty"`
	Fitted            bool     `json:"fitted" yaml:"fitted"`
	Expandable        bool     `json:"expandable" yaml:"expandable"`
	Expanded          bool     `json:"expanded" yaml:"expanded"`
	Copiable          bool     `json:"copiable,omitempty" yaml:"copiable,omitempty"`
	MatchedProperties []string `json:"matchedProperties,omitempty" yaml:"matchedProperties,omitempty"`
	ExtraContent      string   `json:"extraContent,omitempty" yaml:"extraContent,omitempty"`
	Closing           bool     `json:"closing,omitempty" yaml:"closing,omitempty"`
}

// Row builds the view-model of the node.
func (it *Item) Row() Row {
	r := Row{
		Key:   it.key,
		Kind:  it.kind.String(),
		Depth: it.Depth(),
		Label: it.Name(),
	}
	switch it.kind {
	case KindClosing:
		r.Closing = true
		r.Fitted = !it.tree.search.Active()
		return r
	case KindInstance:
		r.Meta = it.inst.ID()
		r.Type = string(props.TypeInstance)
	case KindExtras:
		r.Type = string(props.TypeInstance)
	case KindProperty:
		t := it.Type()
		r.Type = string(t)
		r.Meta = string(t)
		if err := it.Err(); err != nil {
			r.Value = formatter.Plain(err)
		} else if t == props.TypePrimitive || t == props.TypeFunction {
			r.Value = it.Stringified()
		} else {
			r.Value = formatter.Summary(it.Data(), t)
		}
		r.Copiable = it.Copiable()
		r.ExtraContent = it.ExtraContent()
	}
	r.Expandable = it.Expandable()
	r.Expanded = it.DisplayExpanded()
	r.Fitted = it.Fitted()
	r.MatchedProperties = it.MatchedProperties()
	return r
}

// Line converts a row for the text formatters.
func (r Row) Line() formatter.Line {
	return formatter.Line{
		Depth:   r.Depth,
		Label:   r.Label,
		Meta:    rowMeta(r),
		Value:   r.Value,
		Fitted:  r.Fitted && !r.Closing,
		Closing: r.Closing,
	}
}

func rowMeta(r Row) string {
	if r.Kind == KindInstance.String() {
		return r.Meta
	}
	return ""
}
