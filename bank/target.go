package bank

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// Target は予測対象の物理量
type Target int

const (
	// Duration は発酵時間 [hours]
	Duration Target = iota
	// Temperature は温度 [Celsius]
	Temperature
	// Concentration は酵母濃度 [percent]
	Concentration
)

// Targets は学習・検証を行う順序
var Targets = []Target{Duration, Temperature, Concentration}

func (t Target) String() string {
	switch t {
	case Duration:
		return "duration"
	case Temperature:
		return "temperature"
	case Concentration:
		return "concentration"
	default:
		return "unknown"
	}
}

// Unit は予測値の単位を返す
func (t Target) Unit() string {
	switch t {
	case Duration:
		return "hours"
	case Temperature:
		return "Celsius"
	case Concentration:
		return "percent"
	default:
		return ""
	}
}

// FeatureNames は特徴量の列名を学習時と同じ順序で返す
//
//	duration      ← [temperature, concentration]
//	temperature   ← [duration, concentration]
//	concentration ← [duration, temperature]
func (t Target) FeatureNames() [2]string {
	switch t {
	case Temperature:
		return [2]string{"duration", "concentration"}
	case Concentration:
		return [2]string{"duration", "temperature"}
	default:
		return [2]string{"temperature", "concentration"}
	}
}

// ParseTarget は文字列から Target を得る。"time" と "yeast" も受け付ける
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "duration", "time":
		return Duration, nil
	case "temperature", "temp":
		return Temperature, nil
	case "concentration", "yeast":
		return Concentration, nil
	default:
		return Duration, errors.NewValidationError("target", "must be one of duration, temperature, concentration", s)
	}
}

// MarshalText は JSON のマップキーなどで名前を使うためのもの
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Target) UnmarshalText(text []byte) error {
	v, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// FeatureRow は1サンプルを Target の特徴量順に並べる
func (t Target) FeatureRow(temp, conc, dur float64) []float64 {
	switch t {
	case Temperature:
		return []float64{dur, conc}
	case Concentration:
		return []float64{dur, temp}
	default:
		return []float64{temp, conc}
	}
}

// Label は1サンプルの目的変数を返す
func (t Target) Label(temp, conc, dur float64) float64 {
	switch t {
	case Temperature:
		return temp
	case Concentration:
		return conc
	default:
		return dur
	}
}

// Features は3本の系列から Target 用の X (N×2) と y (N×1) を作る
func Features(t Target, temps, concs, durs []float64) (*mat.Dense, *mat.Dense, error) {
	n := len(temps)
	if n == 0 {
		return nil, nil, errors.NewModelError("bank.Features", "empty data", errors.ErrEmptyData)
	}
	if len(concs) != n {
		return nil, nil, errors.NewDimensionError("bank.Features", n, len(concs), 0)
	}
	if len(durs) != n {
		return nil, nil, errors.NewDimensionError("bank.Features", n, len(durs), 0)
	}
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.SetRow(i, t.FeatureRow(temps[i], concs[i], durs[i]))
		y.Set(i, 0, t.Label(temps[i], concs[i], durs[i]))
	}
	return X, y, nil
}
