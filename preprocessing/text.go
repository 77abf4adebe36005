// Package preprocessing はテキストを数値特徴量に変換する前処理を提供する。
package preprocessing

import (
	"math"
	"sort"
	"strings"
	"unicode"

	porterstemmer "github.com/kiteco/go-porterstemmer"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sentiml/core/parallel"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// transformParallelThreshold 以下の文書数では逐次処理する
const transformParallelThreshold = 256

// Tokenize はテキストを小文字化し、英数字以外の文字で分割する
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Stem は各トークンを Porter ステミングで語幹に置き換える
func Stem(tokens []string) []string {
	for i, t := range tokens {
		tokens[i] = porterstemmer.StemString(t)
	}
	return tokens
}

// Bigrams は隣接するトークンの組を空白で連結した列を返す
func Bigrams(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	out := make([]string, 0, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// Weighting は語の重み付け方式
type Weighting int

const (
	// WeightCount は出現回数をそのまま使う
	WeightCount Weighting = iota
	// WeightTFIDF は出現回数に平滑化済み IDF を掛ける
	WeightTFIDF
)

// String は重み付け方式の名前を返す
func (w Weighting) String() string {
	if w == WeightTFIDF {
		return "tfidf"
	}
	return "count"
}

// TextVectorizer は文書集合から語彙を学習し、文書を語の重みベクトルに変換する
//
// フィールドはすべて公開されており、encoding/gob でそのまま保存・復元できる。
type TextVectorizer struct {
	Stemming    bool
	Bigrams     bool
	Weighting   Weighting
	MaxFeatures int // 0 は無制限
	L2Normalize bool
	Workers     int // 0 は GOMAXPROCS

	Vocabulary map[string]int
	IDF        []float64
}

// VectorizerOption は TextVectorizer の設定を変更する
type VectorizerOption func(*TextVectorizer)

// WithStemming は Porter ステミングの有無を設定する
func WithStemming(on bool) VectorizerOption {
	return func(v *TextVectorizer) { v.Stemming = on }
}

// WithBigrams はバイグラム特徴量の有無を設定する
func WithBigrams(on bool) VectorizerOption {
	return func(v *TextVectorizer) { v.Bigrams = on }
}

// WithWeighting は重み付け方式を設定する
func WithWeighting(w Weighting) VectorizerOption {
	return func(v *TextVectorizer) { v.Weighting = w }
}

// WithMaxFeatures は語彙の上限を設定する（文書頻度の高い順に残す）
func WithMaxFeatures(n int) VectorizerOption {
	return func(v *TextVectorizer) { v.MaxFeatures = n }
}

// WithL2Normalize は行ベクトルの L2 正規化の有無を設定する
func WithL2Normalize(on bool) VectorizerOption {
	return func(v *TextVectorizer) { v.L2Normalize = on }
}

// WithWorkers は Transform の並列数を設定する
func WithWorkers(n int) VectorizerOption {
	return func(v *TextVectorizer) { v.Workers = n }
}

// NewTextVectorizer は TextVectorizer を作成する
// デフォルトは出現回数、ユニグラムのみ、ステミングなし、L2 正規化あり。
func NewTextVectorizer(opts ...VectorizerOption) *TextVectorizer {
	v := &TextVectorizer{L2Normalize: true}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Name は設定を表す短い名前を返す（例: "tfidf+bigram+stem"）
func (v *TextVectorizer) Name() string {
	parts := []string{v.Weighting.String()}
	if v.Bigrams {
		parts = append(parts, "bigram")
	}
	if v.Stemming {
		parts = append(parts, "stem")
	}
	return strings.Join(parts, "+")
}

// Analyze は1文書を特徴量の語の列に変換する
func (v *TextVectorizer) Analyze(doc string) []string {
	tokens := Tokenize(doc)
	if v.Stemming {
		tokens = Stem(tokens)
	}
	if v.Bigrams {
		tokens = append(tokens, Bigrams(tokens)...)
	}
	return tokens
}

// IsFitted は語彙が学習済みかどうかを返す
func (v *TextVectorizer) IsFitted() bool {
	return len(v.Vocabulary) > 0
}

// NFeatures は特徴量の次元数を返す
func (v *TextVectorizer) NFeatures() int {
	return len(v.Vocabulary)
}

// Fit は文書集合から語彙と IDF を学習する
func (v *TextVectorizer) Fit(docs []string) error {
	if len(docs) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "TextVectorizer.Fit")
	}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range v.Analyze(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return errors.NewValueError("TextVectorizer.Fit", "empty vocabulary; documents contain no tokens")
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if df[terms[i]] != df[terms[j]] {
				return df[terms[i]] > df[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	v.Vocabulary = make(map[string]int, len(terms))
	v.IDF = make([]float64, len(terms))
	n := float64(len(docs))
	for i, term := range terms {
		v.Vocabulary[term] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return nil
}

// Transform は文書集合を (文書数 × 語彙数) の行列に変換する
// 語彙にない語は無視する。
func (v *TextVectorizer) Transform(docs []string) (*mat.Dense, error) {
	if !v.IsFitted() {
		return nil, errors.NewNotFittedError("TextVectorizer", "Transform")
	}
	if len(docs) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "TextVectorizer.Transform")
	}

	X := mat.NewDense(len(docs), len(v.Vocabulary), nil)
	parallel.ParallelizeWithThreshold(len(docs), transformParallelThreshold, v.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			v.fillRow(X.RawRowView(i), docs[i])
		}
	})
	return X, nil
}

// FitTransform は Fit と Transform を続けて行う
func (v *TextVectorizer) FitTransform(docs []string) (*mat.Dense, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs)
}

// fillRow は1文書分の重みを row に書き込む
func (v *TextVectorizer) fillRow(row []float64, doc string) {
	for _, term := range v.Analyze(doc) {
		if j, ok := v.Vocabulary[term]; ok {
			row[j]++
		}
	}
	if v.Weighting == WeightTFIDF {
		for j := range row {
			row[j] *= v.IDF[j]
		}
	}
	if v.L2Normalize {
		var sq float64
		for _, x := range row {
			sq += x * x
		}
		norm := math.Sqrt(sq)
		for j := range row {
			row[j] = errors.SafeDivide(row[j], norm)
		}
	}
}
