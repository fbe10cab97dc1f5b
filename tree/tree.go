// Package tree はMSE基準のCART回帰木を提供する。
// ランダムフォレストの弱学習器として使われる。
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/fermpredict/core/model"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// Node は平坦化された木のノード
// Left/Right が -1 のノードは葉
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	NSamples  int
}

// IsLeaf は葉ノードかどうかを返す
func (n *Node) IsLeaf() bool {
	return n.Left == -1 && n.Right == -1
}

// DecisionTreeRegressor はCART回帰木
type DecisionTreeRegressor struct {
	model.BaseEstimator

	// MaxDepth は木の最大深さ。0は無制限
	MaxDepth int
	// MinSamplesSplit は分割に必要な最小サンプル数
	MinSamplesSplit int
	// MinSamplesLeaf は葉に残す最小サンプル数
	MinSamplesLeaf int
	// MaxFeatures は各分割で候補にする特徴量の数。0は全特徴量
	MaxFeatures int
	// Seed は特徴量サンプリングの乱数シード
	Seed uint64

	Nodes     []Node
	NFeatures int
}

// Option はDecisionTreeRegressorの設定関数
type Option func(*DecisionTreeRegressor)

// WithMaxDepth は最大深さを設定する
func WithMaxDepth(depth int) Option {
	return func(t *DecisionTreeRegressor) { t.MaxDepth = depth }
}

// WithMinSamplesSplit は分割に必要な最小サンプル数を設定する
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf は葉の最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}

// WithMaxFeatures は分割ごとの候補特徴量数を設定する
func WithMaxFeatures(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MaxFeatures = n }
}

// WithSeed は乱数シードを設定する
func WithSeed(seed uint64) Option {
	return func(t *DecisionTreeRegressor) { t.Seed = seed }
}

// NewDecisionTreeRegressor は新しい回帰木を作成する
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Clone は同じハイパーパラメータの未学習の木を返す
func (t *DecisionTreeRegressor) Clone() model.Regressor {
	return &DecisionTreeRegressor{
		MaxDepth:        t.MaxDepth,
		MinSamplesSplit: t.MinSamplesSplit,
		MinSamplesLeaf:  t.MinSamplesLeaf,
		MaxFeatures:     t.MaxFeatures,
		Seed:            t.Seed,
	}
}

// Fit は全サンプルで木を学習させる
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	r, _ := X.Dims()
	idx := make([]int, r)
	for i := range idx {
		idx[i] = i
	}
	ry, cy := y.Dims()
	if ry != r {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("DecisionTreeRegressor.Fit", "y must be a column vector")
	}
	return t.FitSample(X, model.Column(y), idx)
}

// FitSample は idx で指定した行（重複可）だけで木を学習させる
// ブートストラップ標本を行列にコピーせずに渡すために使う
func (t *DecisionTreeRegressor) FitSample(X mat.Matrix, y []float64, idx []int) error {
	r, c := X.Dims()
	if r == 0 || c == 0 || len(idx) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", r, len(y), 0)
	}

	b := &builder{
		tree:  t,
		X:     X,
		y:     y,
		nFeat: c,
		rng:   rand.New(rand.NewPCG(t.Seed, t.Seed^0x9e3779b97f4a7c15)),
	}
	t.Nodes = t.Nodes[:0]
	t.NFeatures = c
	b.build(append([]int(nil), idx...), 0)
	t.SetFitted()
	return nil
}

// Predict は各行の予測値を返す
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	r, c := X.Dims()
	if c != t.NFeatures {
		return nil, errors.NewDimensionError("DecisionTreeRegressor.Predict", t.NFeatures, c, 1)
	}
	out := mat.NewDense(r, 1, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, t.PredictRow(row))
	}
	return out, nil
}

// PredictRow は1サンプルの予測値を返す。学習済みであることが前提
func (t *DecisionTreeRegressor) PredictRow(x []float64) float64 {
	id := 0
	for {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			id = n.Left
		} else {
			id = n.Right
		}
	}
}

// Depth は学習済みの木の深さを返す
func (t *DecisionTreeRegressor) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(id int) int
	walk = func(id int) int {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

type builder struct {
	tree  *DecisionTreeRegressor
	X     mat.Matrix
	y     []float64
	nFeat int
	rng   *rand.Rand
}

type split struct {
	feature   int
	threshold float64
	pos       int // 左の子に入るサンプル数
	score     float64
}

// build はノードを追加して、そのインデックスを返す
func (b *builder) build(idx []int, depth int) int {
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))

	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Value:    sum / n,
		NSamples: len(idx),
	})

	t := b.tree
	if len(idx) < max(t.MinSamplesSplit, 2) || len(idx) < 2*max(t.MinSamplesLeaf, 1) {
		return id
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return id
	}
	// 純粋なノードはそれ以上分割しない
	if sumSq-sum*sum/n <= 1e-12*math.Max(1, sumSq) {
		return id
	}

	best, ok := b.bestSplit(idx, sum*sum/n)
	if !ok {
		return id
	}

	sortByFeature(idx, b.X, best.feature)
	left := append([]int(nil), idx[:best.pos]...)
	right := append([]int(nil), idx[best.pos:]...)

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	node := &b.tree.Nodes[id]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = l
	node.Right = r
	return id
}

// bestSplit は二乗誤差の減少が最大となる分割を探す
// score は sumL²/nL + sumR²/nR で、親の sum²/n を上回る必要がある
func (b *builder) bestSplit(idx []int, parentScore float64) (split, bool) {
	minLeaf := max(b.tree.MinSamplesLeaf, 1)
	best := split{score: parentScore + 1e-12*math.Abs(parentScore)}
	found := false

	total := 0.0
	for _, i := range idx {
		total += b.y[i]
	}
	n := len(idx)
	work := append([]int(nil), idx...)

	for _, f := range b.candidateFeatures() {
		sortByFeature(work, b.X, f)
		sumL := 0.0
		for pos := 1; pos < n; pos++ {
			sumL += b.y[work[pos-1]]
			if pos < minLeaf || n-pos < minLeaf {
				continue
			}
			lo := b.X.At(work[pos-1], f)
			hi := b.X.At(work[pos], f)
			if hi <= lo {
				continue // 同じ値の間では切れない
			}
			sumR := total - sumL
			score := sumL*sumL/float64(pos) + sumR*sumR/float64(n-pos)
			if score > best.score {
				threshold := lo + (hi-lo)/2
				// 中点が丸めで hi に一致する場合は lo を使う
				if threshold >= hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, pos: pos, score: score}
				found = true
			}
		}
	}
	return best, found
}

func (b *builder) candidateFeatures() []int {
	feats := make([]int, b.nFeat)
	for i := range feats {
		feats[i] = i
	}
	k := b.tree.MaxFeatures
	if k <= 0 || k >= b.nFeat {
		return feats
	}
	b.rng.Shuffle(len(feats), func(i, j int) { feats[i], feats[j] = feats[j], feats[i] })
	feats = feats[:k]
	sort.Ints(feats)
	return feats
}

// sortByFeature は特徴量の値で安定ソートする
// 同値はインデックス順になるので結果は決定的
func sortByFeature(idx []int, X mat.Matrix, f int) {
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := X.At(idx[a], f), X.At(idx[b], f)
		if va != vb {
			return va < vb
		}
		return idx[a] < idx[b]
	})
}
