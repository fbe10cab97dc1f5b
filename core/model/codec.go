package model

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// Codec はアーティファクトのペイロード圧縮方式
type Codec string

const (
	// CodecGob は無圧縮のgob
	CodecGob Codec = "gob"
	// CodecZstd はzstdで圧縮したgob
	CodecZstd Codec = "zstd"
	// CodecLZ4 はlz4フレームで圧縮したgob
	CodecLZ4 Codec = "lz4"
)

// ParseCodec は設定値からCodecを得る。空文字はgob
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gob", "none":
		return CodecGob, nil
	case "zstd", "zst":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return CodecGob, errors.NewValidationError("models.codec", "must be one of gob, zstd, lz4", s)
	}
}

// Extension はファイル拡張子を返す
func (c Codec) Extension() string {
	switch c {
	case CodecZstd:
		return ".gob.zst"
	case CodecLZ4:
		return ".gob.lz4"
	default:
		return ".gob"
	}
}

// SplitArtifactPath はファイル名から拡張子を外した名前とCodecを返す
// アーティファクトでないファイルは ok=false
func SplitArtifactPath(path string) (stem string, codec Codec, ok bool) {
	base := filepath.Base(path)
	// 長い拡張子から順に判定する
	for _, c := range []Codec{CodecZstd, CodecLZ4, CodecGob} {
		ext := c.Extension()
		if strings.HasSuffix(base, ext) && len(base) > len(ext) {
			return strings.TrimSuffix(base, ext), c, true
		}
	}
	return "", CodecGob, false
}

// compress はペイロードを圧縮する
func (c Codec) compress(data []byte) ([]byte, error) {
	switch c {
	case CodecZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, errors.Wrap(err, "create zstd encoder")
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case CodecLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, errors.Wrap(err, "lz4 compression failed")
		}
		if err := zw.Close(); err != nil {
			return nil, errors.Wrap(err, "lz4 compression failed")
		}
		return buf.Bytes(), nil
	default:
		return data, nil
	}
}

// decompress は圧縮されたペイロードを元に戻す
func (c Codec) decompress(data []byte) ([]byte, error) {
	switch c {
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(err, "create zstd decoder")
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.Wrap(err, "zstd decompression failed")
		}
		return out, nil
	case CodecLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, errors.Wrap(err, "lz4 decompression failed")
		}
		return out, nil
	default:
		return data, nil
	}
}
