package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`-?\d+\.?\d*`)

// ParseTemperature は "1.7", "1.7°C", "Â°C 1.7" のような温度ラベルを解釈する
func ParseTemperature(label string) (float64, bool) {
	s := strings.ReplaceAll(label, "Â°C", "")
	s = strings.ReplaceAll(s, "°C", "")
	match := numberPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	return parseFinite(match)
}

// ParseConcentration は "0.004%" のような濃度ラベルを解釈する
// '%' を含まないラベルは不正
func ParseConcentration(label string) (float64, bool) {
	if !strings.Contains(label, "%") {
		return 0, false
	}
	return parseFinite(strings.TrimSpace(strings.ReplaceAll(label, "%", "")))
}

// parseDuration は正の数値セルだけを受け付ける
func parseDuration(cell string) (float64, bool) {
	v, ok := parseFinite(strings.TrimSpace(cell))
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ReshapeStats は Reshape で捨てたものの数
type ReshapeStats struct {
	SkippedRows    int `json:"skipped_rows"`    // 温度ラベルが読めない行
	SkippedColumns int `json:"skipped_columns"` // 濃度ラベルが読めない列
	SkippedCells   int `json:"skipped_cells"`   // サンプルにならなかったセル (上記を含む)
}

// Reshape はワイド形式をサンプル列に変換する
//
// 行優先・列順でサンプルを並べる。空、非数値、0以下、範囲外のセルは
// エラーにせず読み飛ばす。
func Reshape(m *Matrix) ([]Sample, ReshapeStats) {
	var stats ReshapeStats

	concs := make([]float64, len(m.Header))
	valid := make([]bool, len(m.Header))
	for j, label := range m.Header {
		concs[j], valid[j] = ParseConcentration(label)
		if !valid[j] {
			stats.SkippedColumns++
		}
	}

	var samples []Sample
	for i, label := range m.RowLabels {
		temp, ok := ParseTemperature(label)
		if !ok {
			stats.SkippedRows++
		}
		for j := range m.Header {
			if !ok || !valid[j] {
				stats.SkippedCells++
				continue
			}
			cell, inBounds := m.Cell(i, j)
			if !inBounds {
				stats.SkippedCells++
				continue
			}
			dur, isNum := parseDuration(cell)
			if !isNum {
				stats.SkippedCells++
				continue
			}
			samples = append(samples, Sample{Temperature: temp, Concentration: concs[j], Duration: dur})
		}
	}
	return samples, stats
}
