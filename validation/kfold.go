// Package validation はモデルの適合度と交差検証誤差を計算し、
// バリアントを順位付けする。
package validation

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// Fold は交差検証の1分割
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold はk分割交差検証の分割器
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    uint64
}

// NewKFold は新しい分割器を作る。nSplits < 2 の場合は5分割
func NewKFold(nSplits int, shuffle bool, seed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5 // Default to 5-fold
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, Seed: seed}
}

// Split は nSamples 個のサンプルを分割する
// 先頭の nSamples%NSplits 個のフォールドが1つ多くのテストサンプルを持つ
func (kf *KFold) Split(nSamples int) ([]Fold, error) {
	if nSamples < kf.NSplits {
		return nil, errors.NewValidationError("n_splits",
			"cannot be greater than the number of samples", kf.NSplits)
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.Seed, kf.Seed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		test := append([]int(nil), indices[current:current+testSize]...)
		train := make([]int, 0, nSamples-testSize)
		train = append(train, indices[:current]...)
		train = append(train, indices[current+testSize:]...)

		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		current += testSize
	}
	return folds, nil
}
