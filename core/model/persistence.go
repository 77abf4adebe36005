package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// SaveModel はモデルをファイルに保存する
//
// 一時ファイルに書き込んでから rename するため、既存のファイルは
// 書き込みが完了した時点でのみ置き換えられる。
//
// パラメータ:
//   - model: 保存する値（gobでエンコード可能な構造体）
//   - filename: 保存先のファイルパス
//
// 戻り値:
//   - error: 保存に失敗した場合のエラー（IOError）
func SaveModel(model interface{}, filename string) (err error) {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return errors.NewIOError("create", filename, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = SaveModelToWriter(model, tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return errors.NewIOError("sync", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return errors.NewIOError("close", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return errors.NewIOError("rename", filename, err)
	}
	return nil
}

// LoadModel はファイルからモデルを読み込む
//
// パラメータ:
//   - model: 読み込み先（ポインタ）
//   - filename: 読み込み元のファイルパス
//
// 戻り値:
//   - error: ファイルが開けない場合はIOError、デコードに失敗した場合はModelError
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.NewIOError("open", filename, err)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.NewModelError("SaveModelToWriter", "failed to encode model", err)
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return errors.NewModelError("LoadModelFromReader", "failed to decode model", err)
	}
	return nil
}
