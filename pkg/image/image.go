// Package image stores linked programs as object files.
package image

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"rvm/pkg/compiler"
)

const (
	Magic   = "RVM1"
	Version = 1
)

var ErrFormat = errors.New("not an rvm object file")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Image is the on-disk form of a compiled program.
type Image struct {
	Magic    string            `cbor:"1,keyasint"`
	Version  uint              `cbor:"2,keyasint"`
	Code     []byte            `cbor:"3,keyasint"`
	CodeSize uint32            `cbor:"4,keyasint"`
	Symbols  map[string]uint32 `cbor:"5,keyasint,omitempty"`
}

// FromProgram captures a linked program.
func FromProgram(p *compiler.Program) *Image {
	symbols := make(map[string]uint32, len(p.Symbols))
	for name, off := range p.Symbols {
		symbols[name] = uint32(off)
	}
	return &Image{
		Magic:    Magic,
		Version:  Version,
		Code:     p.Code,
		CodeSize: uint32(p.CodeSize),
		Symbols:  symbols,
	}
}

func Encode(img *Image) ([]byte, error) {
	data, err := encMode.Marshal(img)
	if err != nil {
		return nil, errors.Wrap(err, "encode image")
	}
	return data, nil
}

// Decode parses an object file and checks its header.
func Decode(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, errors.Wrapf(ErrFormat, "decode: %v", err)
	}
	if img.Magic != Magic {
		return nil, errors.Wrapf(ErrFormat, "bad magic %q", img.Magic)
	}
	if img.Version != Version {
		return nil, errors.Errorf("unsupported object file version %d", img.Version)
	}
	if int(img.CodeSize) > len(img.Code) {
		return nil, errors.Wrapf(ErrFormat, "code size %d exceeds image of %d bytes", img.CodeSize, len(img.Code))
	}
	return &img, nil
}

func WriteFile(fs afero.Fs, path string, img *Image) error {
	data, err := Encode(img)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func ReadFile(fs afero.Fs, path string) (*Image, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return img, nil
}
