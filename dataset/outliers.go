package dataset

import (
	"math"
	"sort"
)

// IQRMultiplier は外れ値の境界に使う四分位範囲の倍率
const IQRMultiplier = 1.5

// Quantile は順序統計量の線形補間による p 分位点を返す
// (h = (n-1)p, Hyndman-Fan type 7)。x は並べ替えない
func Quantile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	return quantileSorted(sorted, p)
}

func quantileSorted(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// IQRBounds は [Q1 − 1.5·IQR, Q3 + 1.5·IQR] を返す
func IQRBounds(x []float64) (lower, upper float64) {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	q1 := quantileSorted(sorted, 0.25)
	q3 := quantileSorted(sorted, 0.75)
	iqr := q3 - q1
	return q1 - IQRMultiplier*iqr, q3 + IQRMultiplier*iqr
}

// RemoveOutliers は所要時間が IQR の境界外のサンプルを除く
//
// 除去するものがなくなるまで繰り返すので、結果に再適用しても何も除かれない。
// 境界値ちょうどのサンプルは残す。順序は保つ。
func RemoveOutliers(samples []Sample) (kept []Sample, removed int) {
	kept = append([]Sample(nil), samples...)
	for len(kept) > 0 {
		durs := make([]float64, len(kept))
		for i, s := range kept {
			durs[i] = s.Duration
		}
		lower, upper := IQRBounds(durs)

		next := kept[:0:0]
		for _, s := range kept {
			if s.Duration >= lower && s.Duration <= upper {
				next = append(next, s)
			}
		}
		if len(next) == len(kept) {
			break
		}
		removed += len(kept) - len(next)
		kept = next
	}
	return kept, removed
}
