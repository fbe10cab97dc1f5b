package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     []float64
		yPred     []float64
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			yPred:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			want:      0.0,
			tolerance: 1e-10,
		},
		{
			name:      "simple case",
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0},
			yPred:     []float64{1.5, 2.5, 2.5, 3.5},
			want:      0.25,
			tolerance: 1e-10,
		},
		{
			name:      "larger errors",
			yTrue:     []float64{10.0, 20.0, 30.0},
			yPred:     []float64{12.0, 18.0, 33.0},
			want:      17.0 / 3.0, // (4 + 4 + 9) / 3
			tolerance: 1e-10,
		},
		{
			name:    "dimension mismatch",
			yTrue:   []float64{1.0, 2.0, 3.0},
			yPred:   []float64{1.0, 2.0},
			wantErr: true,
		},
		{
			name:    "empty vectors",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("MSE() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("MSE() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRMSEAndMAE(t *testing.T) {
	yTrue := []float64{10.0, 20.0, 30.0}
	yPred := []float64{12.0, 18.0, 33.0}

	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rmse-math.Sqrt(17.0/3.0)) > 1e-10 {
		t.Errorf("RMSE() = %v", rmse)
	}

	mae, err := MAE(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(mae-7.0/3.0) > 1e-10 {
		t.Errorf("MAE() = %v, want %v", mae, 7.0/3.0)
	}

	if _, err := MAE([]float64{1}, nil); err == nil {
		t.Error("MAE() expected dimension error")
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     []float64
		yPred     []float64
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			yPred:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			want:      1.0,
			tolerance: 1e-10,
		},
		{
			name:      "no variance in yTrue",
			yTrue:     []float64{3.0, 3.0, 3.0, 3.0, 3.0},
			yPred:     []float64{2.0, 3.0, 4.0, 3.0, 3.0},
			want:      0.0,
			tolerance: 1e-10,
		},
		{
			name:      "no variance, exact",
			yTrue:     []float64{3.0, 3.0},
			yPred:     []float64{3.0, 3.0},
			want:      1.0,
			tolerance: 1e-10,
		},
		{
			name:      "worse than mean baseline",
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0},
			yPred:     []float64{4.0, 3.0, 2.0, 1.0},
			want:      -3.0,
			tolerance: 0.01,
		},
		{
			name:    "dimension mismatch",
			yTrue:   []float64{1.0, 2.0, 3.0},
			yPred:   []float64{1.0, 2.0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("R2Score() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMAPE(t *testing.T) {
	got, err := MAPE([]float64{100, 0, 50}, []float64{110, 5, 40})
	if err != nil {
		t.Fatal(err)
	}
	// (0.1 + 0.2) / 2 * 100
	if math.Abs(got-15) > 1e-10 {
		t.Errorf("MAPE() = %v, want 15", got)
	}
	if _, err := MAPE([]float64{0, 0}, []float64{1, 1}); err == nil {
		t.Error("MAPE() expected error when all yTrue are zero")
	}
}

func TestEvaluateMatrix(t *testing.T) {
	yTrue := mat.NewDense(4, 1, []float64{1.0, 2.0, 3.0, 4.0})
	yPred := mat.NewDense(4, 1, []float64{1.5, 2.5, 2.5, 3.5})

	s, err := EvaluateMatrix(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.MSE-0.25) > 1e-10 || math.Abs(s.RMSE-0.5) > 1e-10 || math.Abs(s.MAE-0.5) > 1e-10 {
		t.Errorf("EvaluateMatrix() = %+v", s)
	}
	if math.Abs(s.R2-0.8) > 1e-10 {
		t.Errorf("R2 = %v, want 0.8", s.R2)
	}

	wide := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if _, err := EvaluateMatrix(wide, wide); err == nil {
		t.Error("EvaluateMatrix() expected error for multi-column input")
	}
}

func BenchmarkMSE(b *testing.B) {
	size := 10000
	yTrue := make([]float64, size)
	yPred := make([]float64, size)
	for i := 0; i < size; i++ {
		yTrue[i] = float64(i)
		yPred[i] = float64(i) + 0.1*float64(i%10)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = MSE(yTrue, yPred)
	}
}
