package dataset

import (
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
	"github.com/YuminosukeSato/fermpredict/pkg/log"
)

// Sample は (温度 °C, 濃度 %, 所要時間 h) の1組
type Sample struct {
	Temperature   float64 `json:"temperature"`
	Concentration float64 `json:"concentration"`
	Duration      float64 `json:"duration"`
}

// Dataset は整形済みのサンプル列
type Dataset struct {
	samples         []Sample
	stats           ReshapeStats
	outliersRemoved int
}

// New はサンプル列から外れ値を除いた Dataset を作る
func New(samples []Sample) *Dataset {
	kept, removed := RemoveOutliers(samples)
	return &Dataset{samples: kept, outliersRemoved: removed}
}

// FromMatrix はワイド形式の表を整形する
func FromMatrix(m *Matrix) *Dataset {
	samples, stats := Reshape(m)
	ds := New(samples)
	ds.stats = stats
	return ds
}

// Load はCSVを読み込み、整形し、外れ値を除く
func Load(path string) (*Dataset, error) {
	logger := log.GetLoggerWithName("dataset")

	m, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}
	ds := FromMatrix(m)
	if ds.Len() == 0 {
		return nil, errors.NewDataSourceError(path, errors.Wrap(errors.ErrEmptyData, "no usable samples"))
	}

	logger.Info("loaded dataset",
		log.PathKey, path,
		log.SamplesKey, ds.Len(),
		log.SkippedKey, ds.stats.SkippedCells,
		log.OutliersKey, ds.outliersRemoved,
	)
	return ds, nil
}

// Len はサンプル数を返す
func (d *Dataset) Len() int { return len(d.samples) }

// Samples はサンプル列のコピーを返す
func (d *Dataset) Samples() []Sample {
	return append([]Sample(nil), d.samples...)
}

// FeatureMatrices は温度・濃度・時間の並行な3系列を返す
func (d *Dataset) FeatureMatrices() (temps, concs, durs []float64) {
	temps = make([]float64, len(d.samples))
	concs = make([]float64, len(d.samples))
	durs = make([]float64, len(d.samples))
	for i, s := range d.samples {
		temps[i] = s.Temperature
		concs[i] = s.Concentration
		durs[i] = s.Duration
	}
	return temps, concs, durs
}

// Range は最小値と最大値
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span は Max − Min を返す
func (r Range) Span() float64 { return r.Max - r.Min }

func rangeOf(x []float64) Range {
	if len(x) == 0 {
		return Range{}
	}
	return Range{Min: floats.Min(x), Max: floats.Max(x)}
}

// Summary はデータセットの統計
type Summary struct {
	TotalSamples       int            `json:"total_samples"`
	TemperatureRange   Range          `json:"temperature_range"`
	ConcentrationRange Range          `json:"concentration_range"`
	DurationRange      Range          `json:"duration_range"`
	MissingValues      map[string]int `json:"missing_values"`
	SkippedCells       int            `json:"skipped_cells"`
	OutliersRemoved    int            `json:"outliers_removed"`
}

// Summary はデータセットを変更せずに統計を返す
// 整形済みのサンプルは欠損を持たないので MissingValues は常に0
func (d *Dataset) Summary() Summary {
	temps, concs, durs := d.FeatureMatrices()
	return Summary{
		TotalSamples:       d.Len(),
		TemperatureRange:   rangeOf(temps),
		ConcentrationRange: rangeOf(concs),
		DurationRange:      rangeOf(durs),
		MissingValues: map[string]int{
			"temperature":   0,
			"concentration": 0,
			"duration":      0,
		},
		SkippedCells:    d.stats.SkippedCells,
		OutliersRemoved: d.outliersRemoved,
	}
}
