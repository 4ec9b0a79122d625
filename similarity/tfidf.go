package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/giftrec/core"
)

// ErrEmptyVocabulary 表示语料中没有任何有效词。
var ErrEmptyVocabulary = core.NewComputationError(core.ModuleSimilarity, "empty vocabulary", nil)

var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// 常见英文停用词。
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all am an and any are as at be because been
		before being below between both but by can did do does doing down during each few for from further had has
		have having he her here hers herself him himself his how if in into is it its itself just me more most my
		myself no nor not now of off on once only or other our ours ourselves out over own same she should so some
		such than that the their theirs them themselves then there these they this those through to too under until
		up very was we were what when where which while who whom why will with you your yours yourself yourselves`) {
		stopWords[w] = struct{}{}
	}
}

// Tokenize 小写化并切分为长度不少于 2 的词。
func Tokenize(text string, dropStopWords bool) []string {
	tokens := tokenRegex.FindAllString(strings.ToLower(text), -1)
	if !dropStopWords {
		return tokens
	}
	out := tokens[:0]
	for _, t := range tokens {
		if _, stop := stopWords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

// Vectorizer 是 TF-IDF 向量化器：平滑 idf = ln((1+n)/(1+df)) + 1，输出 L2 归一化。
type Vectorizer struct {
	// MaxFeatures 限制词表大小，按语料总词频保留，0 表示不限制
	MaxFeatures int
	// StopWords 是否去除英文停用词
	StopWords bool

	vocab map[string]int
	idf   []float64
}

// Fit 在语料上建立词表与 idf。
func (v *Vectorizer) Fit(docs []string) error {
	df := make(map[string]int)
	total := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, t := range Tokenize(doc, v.StopWords) {
			total[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				df[t]++
			}
		}
	}
	if len(df) == 0 {
		v.vocab, v.idf = nil, nil
		return ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, t := range terms {
		v.vocab[t] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return nil
}

// Len 返回词表大小。
func (v *Vectorizer) Len() int { return len(v.idf) }

// Transform 把文本映射为词表维度的 TF-IDF 向量。未 Fit 时返回 ErrEmptyVocabulary。
func (v *Vectorizer) Transform(doc string) ([]float64, error) {
	if len(v.idf) == 0 {
		return nil, ErrEmptyVocabulary
	}
	vec := make([]float64, len(v.idf))
	for _, t := range Tokenize(doc, v.StopWords) {
		if i, ok := v.vocab[t]; ok {
			vec[i]++
		}
	}
	floats.Mul(vec, v.idf)
	if norm := floats.Norm(vec, 2); norm > 0 {
		floats.Scale(1/norm, vec)
	}
	return vec, nil
}

// FitTransform 先 Fit 再逐篇 Transform。
func (v *Vectorizer) FitTransform(docs []string) ([][]float64, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	out := make([][]float64, len(docs))
	for i, d := range docs {
		vec, err := v.Transform(d)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
