// Package report は学習済みモデルの診断図を描く。
package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/validation"
)

var (
	pointColor = color.RGBA{R: 20, G: 80, B: 200, A: 200}
	refColor   = color.RGBA{R: 200, G: 30, B: 30, A: 255}
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// PredictedVsActual は観測値と予測値の散布図に y = x の参照線を重ねる
func PredictedVsActual(title string, r *validation.ResidualAnalysis) (*plot.Plot, error) {
	if r == nil || len(r.Actual) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "predicted vs actual")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "observed"
	p.Y.Label.Text = "predicted"

	xys := make(plotter.XYs, len(r.Actual))
	for i := range r.Actual {
		xys[i] = plotter.XY{X: r.Actual[i], Y: r.Predictions[i]}
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = pointColor
	sc.GlyphStyle.Radius = vg.Points(2.5)

	lo, hi := bounds(r.Actual, r.Predictions)
	ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, err
	}
	ref.Color = refColor
	ref.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}

	p.Add(plotter.NewGrid(), sc, ref)
	p.Legend.Add("samples", sc)
	p.Legend.Add("y = x", ref)
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// ResidualPlot は予測値に対する残差 (観測 − 予測) を描く
func ResidualPlot(title string, r *validation.ResidualAnalysis) (*plot.Plot, error) {
	if r == nil || len(r.Residuals) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "residual plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "predicted"
	p.Y.Label.Text = "residual"

	xys := make(plotter.XYs, len(r.Residuals))
	for i := range r.Residuals {
		xys[i] = plotter.XY{X: r.Predictions[i], Y: r.Residuals[i]}
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = pointColor
	sc.GlyphStyle.Radius = vg.Points(2.5)

	lo, hi := bounds(r.Predictions)
	zero, err := plotter.NewLine(plotter.XYs{{X: lo, Y: 0}, {X: hi, Y: 0}})
	if err != nil {
		return nil, err
	}
	zero.Color = refColor

	p.Add(plotter.NewGrid(), sc, zero)
	return p, nil
}

// Files は SaveDiagnostics が書き出したファイル
type Files struct {
	PredictedVsActual string
	Residuals         string
}

// SaveDiagnostics は name を接頭辞に2枚の図を dir に保存する
// 拡張子 ext (".png", ".svg", ".pdf") で形式が決まる
func SaveDiagnostics(dir, name, title string, r *validation.ResidualAnalysis, ext string) (Files, error) {
	if ext == "" {
		ext = ".png"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, errors.Wrapf(err, "create %s", dir)
	}

	pva, err := PredictedVsActual(title, r)
	if err != nil {
		return Files{}, err
	}
	res, err := ResidualPlot(fmt.Sprintf("%s: residuals", title), r)
	if err != nil {
		return Files{}, err
	}

	files := Files{
		PredictedVsActual: filepath.Join(dir, name+"_predicted_vs_actual"+ext),
		Residuals:         filepath.Join(dir, name+"_residuals"+ext),
	}
	if err := pva.Save(plotWidth, plotHeight, files.PredictedVsActual); err != nil {
		return Files{}, errors.Wrapf(err, "save %s", files.PredictedVsActual)
	}
	if err := res.Save(plotWidth, plotHeight, files.Residuals); err != nil {
		return Files{}, errors.Wrapf(err, "save %s", files.Residuals)
	}
	return files, nil
}

// bounds は全系列の最小値と最大値を返す
func bounds(series ...[]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}
