package predictor

import (
	"math"

	"github.com/YuminosukeSato/fermpredict/bank"
	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// Query は3つの量のうち2つを与える問い合わせ。nil が予測対象になる
type Query struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	Concentration *float64 `json:"concentration,omitempty"`
	Duration      *float64 `json:"duration,omitempty"`
}

// Given は Query のフィールド用に値のポインタを返す
func Given(v float64) *float64 { return &v }

// target は未指定の量を返す。ちょうど2つが指定されていなければ InvalidArgumentError
func (q Query) target() (bank.Target, error) {
	provided := 0
	for _, v := range []*float64{q.Temperature, q.Concentration, q.Duration} {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return bank.Duration, errors.NewInvalidArgumentError("Predictor.Predict", "inputs must be finite")
		}
		provided++
	}
	if provided != 2 {
		return bank.Duration, errors.NewInvalidArgumentError("Predictor.Predict",
			"exactly 2 of temperature, concentration and duration must be provided")
	}
	switch {
	case q.Temperature == nil:
		return bank.Temperature, nil
	case q.Concentration == nil:
		return bank.Concentration, nil
	default:
		return bank.Duration, nil
	}
}

func (q Query) values() (temp, conc, dur float64) {
	if q.Temperature != nil {
		temp = *q.Temperature
	}
	if q.Concentration != nil {
		conc = *q.Concentration
	}
	if q.Duration != nil {
		dur = *q.Duration
	}
	return temp, conc, dur
}

// 入力値の典型的な範囲。範囲外でも予測は行う
const (
	MinTemperature   = 0.0
	MaxTemperature   = 50.0
	MaxConcentration = 1.0
	MaxDuration      = 1000.0
)

// rangeWarnings は範囲外の入力ごとに RangeWarning を返す
func (q Query) rangeWarnings() []*errors.RangeWarning {
	var ws []*errors.RangeWarning
	if v := q.Temperature; v != nil && (*v < MinTemperature || *v > MaxTemperature) {
		ws = append(ws, errors.NewRangeWarning("temperature", *v, MinTemperature, MaxTemperature, "°C", false))
	}
	if v := q.Concentration; v != nil && (*v <= 0 || *v > MaxConcentration) {
		ws = append(ws, errors.NewRangeWarning("concentration", *v, 0, MaxConcentration, "%", true))
	}
	if v := q.Duration; v != nil && (*v <= 0 || *v > MaxDuration) {
		ws = append(ws, errors.NewRangeWarning("duration", *v, 0, MaxDuration, "h", true))
	}
	return ws
}

// Interval は予測値の幅
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Prediction は1件の予測結果
type Prediction struct {
	Target             string             `json:"target"`
	Value              float64            `json:"value"`
	Unit               string             `json:"unit"`
	ConfidenceInterval Interval           `json:"confidence_interval"`
	Inputs             map[string]float64 `json:"inputs"`
	ModelUsed          string             `json:"model_used"`
	Warnings           []string           `json:"warnings,omitempty"`
}

// uncertaintyFactor は予測値に対する幅の割合
// 経験的に決めた値で、統計的な信頼区間ではない
func uncertaintyFactor(t bank.Target) float64 {
	switch t {
	case bank.Temperature:
		return 0.05
	case bank.Concentration:
		return 0.15
	default:
		return 0.10
	}
}

// Band は max(|v|·factor, span·0.01) の幅を v の両側に取る
func Band(t bank.Target, v, span float64) Interval {
	u := math.Max(math.Abs(v)*uncertaintyFactor(t), span*0.01)
	return Interval{Lower: v - u, Upper: v + u}
}
