// Package dataset は発酵表 (温度 × 濃度 → 時間) の読み込み、
// ロング形式への変換、外れ値除去を行う。
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// Matrix はワイド形式の表
//
// 1列目は温度ラベル、ヘッダー行の2列目以降は濃度ラベル、
// それ以外のセルは所要時間。行の長さは揃っていなくてよい。
type Matrix struct {
	Header    []string   // 濃度ラベル (1列目を除く)
	RowLabels []string   // 温度ラベル
	Cells     [][]string // Cells[i][j] は RowLabels[i] × Header[j]
}

// ReadCSV はCSVファイルを読み込む
// ファイルが無い、または読めない場合は DataSourceError を返す
func ReadCSV(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataSourceError(path, err)
	}
	defer f.Close()

	m, err := ParseCSV(f)
	if err != nil {
		return nil, errors.NewDataSourceError(path, err)
	}
	return m, nil
}

// ParseCSV はCSVを Matrix に変換する
func ParseCSV(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no header row")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	m := &Matrix{}
	if len(header) > 1 {
		m.Header = append([]string(nil), header[1:]...)
	}
	for _, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}
		m.RowLabels = append(m.RowLabels, rec[0])
		m.Cells = append(m.Cells, append([]string(nil), rec[1:]...))
	}
	return m, nil
}

// Cell は (i, j) のセルを返す。範囲外なら ok=false
func (m *Matrix) Cell(i, j int) (string, bool) {
	if i < 0 || i >= len(m.Cells) || j < 0 || j >= len(m.Cells[i]) {
		return "", false
	}
	return m.Cells[i][j], true
}
