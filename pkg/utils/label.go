package utils

import "strings"

// Label 挂在 Item 或 RecommendContext 上，记录召回来源、match_type 与降级原因。
// Source 是写入 Label 的阶段：recall、rank、filter、rerank、recommend。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

const (
	valueSep  = "|"
	sourceSep = ","
)

// MergeLabel 合并同名 Label：Value 以 '|' 累积，Source 以 ',' 累积，已有的值不重复追加。
// 同一个物品被 semantic 召回两次时 recall_source 仍只有一个 semantic。
func MergeLabel(existing, incoming Label) Label {
	return Label{
		Value:  appendUnique(existing.Value, incoming.Value, valueSep),
		Source: appendUnique(existing.Source, incoming.Source, sourceSep),
	}
}

func appendUnique(acc, v, sep string) string {
	switch {
	case v == "":
		return acc
	case acc == "":
		return v
	}
	for _, s := range strings.Split(acc, sep) {
		if s == v {
			return acc
		}
	}
	return acc + sep + v
}

// Values 拆分累积后的 Value。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	return strings.Split(l.Value, valueSep)
}

// Has 判断累积 Value 中是否包含 v。
func (l Label) Has(v string) bool {
	for _, s := range l.Values() {
		if s == v {
			return true
		}
	}
	return false
}
