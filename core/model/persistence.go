package model

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/YuminosukeSato/fermpredict/pkg/errors"
)

// ArtifactVersion は現在のアーティファクト形式のバージョン
const ArtifactVersion = 1

// Artifact は1つの学習済みモデルを包むエンベロープ
//
// Payload はモデル本体をgobでエンコードし、Codecで圧縮したもの。
// Checksum は圧縮前のgobバイト列のxxhash64。
// 学習データは含まれない。
type Artifact struct {
	Version  int
	Kind     string
	Name     string
	Codec    Codec
	Checksum uint64
	Payload  []byte
}

// NewArtifact はモデルを gob エンコードしてエンベロープを作る
func NewArtifact(kind, name string, codec Codec, model interface{}) (*Artifact, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(model); err != nil {
		return nil, errors.Wrapf(err, "failed to encode model %s", name)
	}
	payload, err := codec.compress(raw.Bytes())
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Version:  ArtifactVersion,
		Kind:     kind,
		Name:     name,
		Codec:    codec,
		Checksum: xxhash.Sum64(raw.Bytes()),
		Payload:  payload,
	}, nil
}

// Decode はペイロードを展開し、チェックサムを検証してから model に読み込む
func (a *Artifact) Decode(model interface{}) error {
	if a.Version != ArtifactVersion {
		return errors.Newf("unsupported artifact version %d for %s", a.Version, a.Name)
	}
	raw, err := a.Codec.decompress(a.Payload)
	if err != nil {
		return err
	}
	if xxhash.Sum64(raw) != a.Checksum {
		return errors.Wrapf(errors.ErrChecksumMismatch, "artifact %s", a.Name)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(model); err != nil {
		return errors.Wrapf(err, "failed to decode model %s", a.Name)
	}
	return nil
}

// SaveModel はモデルをアーティファクトとしてファイルに保存する
// 既存のファイルは上書きされる
//
// 使用例:
//
//	err := model.SaveModel("models/duration_Linear.gob", "Linear", "duration_Linear", model.CodecGob, reg)
func SaveModel(filename, kind, name string, codec Codec, m interface{}) error {
	art, err := NewArtifact(kind, name, codec, m)
	if err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if err := SaveModelToWriter(art, file); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "failed to close file")
}

// LoadArtifact はファイルからエンベロープを読み込む
// モデル本体の復元は呼び出し側が Kind を見て Decode する
func LoadArtifact(filename string) (*Artifact, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	var art Artifact
	if err := LoadModelFromReader(&art, file); err != nil {
		return nil, err
	}
	return &art, nil
}

// SaveModelToWriter は値をgobでio.Writerに書き出す
func SaveModelToWriter(v interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからgobで値を読み込む
func LoadModelFromReader(v interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
