package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/x448/float16"

	"github.com/Faultbox/densitybaker/pkg/volume"
)

// DVOL format errors.
var (
	ErrInvalidDVOLMagic       = errors.New("invalid DVOL magic: expected 'DVOL'")
	ErrUnsupportedDVOLVersion = errors.New("unsupported DVOL version")
	ErrTruncatedDVOLData      = errors.New("truncated DVOL data")
)

// DVOLMagic opens every density volume asset.
const DVOLMagic = "DVOL"

// DVOLCurrentVersion is the version NewDVOL stamps and Encode falls back to
// for a zero Version.
var DVOLCurrentVersion = DVOLVersion{Major: 1, Minor: 0}

// dvolHeaderSize is the fixed part of the header: magic, version,
// resolution, encoding, wrap, filter, flags, payload size, name length.
const dvolHeaderSize = 4 + 2 + 4 + 1 + 1 + 1 + 1 + 4 + 2

const (
	dvolFlagZstd = 1 << 0
)

// DVOLVersion represents the DVOL file version.
type DVOLVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v DVOLVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Encoding is the per-voxel storage format of the payload.
type Encoding uint8

// Payload encodings.
const (
	EncodingAlpha8 Encoding = 1 // one byte per voxel, value*255 rounded
	EncodingHalf   Encoding = 2 // IEEE 754 binary16
	EncodingFloat  Encoding = 3 // IEEE 754 binary32
)

// String returns the encoding name used in configuration.
func (e Encoding) String() string {
	switch e {
	case EncodingAlpha8:
		return "alpha8"
	case EncodingHalf:
		return "half"
	case EncodingFloat:
		return "float"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// BytesPerVoxel returns the stored size of one voxel, or 0 if unknown.
func (e Encoding) BytesPerVoxel() int {
	switch e {
	case EncodingAlpha8:
		return 1
	case EncodingHalf:
		return 2
	case EncodingFloat:
		return 4
	default:
		return 0
	}
}

// ParseEncoding parses an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "alpha8", "":
		return EncodingAlpha8, nil
	case "half":
		return EncodingHalf, nil
	case "float":
		return EncodingFloat, nil
	}
	return 0, fmt.Errorf("unknown DVOL encoding %q", s)
}

// WrapMode is the sampler wrap mode the renderer should use.
type WrapMode uint8

// Wrap modes.
const (
	WrapClamp  WrapMode = 0
	WrapRepeat WrapMode = 1
)

// FilterMode is the sampler filter the renderer should use.
type FilterMode uint8

// Filter modes.
const (
	FilterPoint    FilterMode = 0
	FilterBilinear FilterMode = 1
)

// DVOL is a baked density volume asset: a packed R×R×R grid plus the
// sampler settings it was baked for.
type DVOL struct {
	Version    DVOLVersion
	Name       string
	Resolution uint32
	Encoding   Encoding
	Wrap       WrapMode
	Filter     FilterMode
	Compressed bool
	Values     []float32 // x + y*R + z*R*R
}

// NewDVOL wraps a packed grid for writing. The grid is clamped and bilinear
// filtered, the settings volumetric renderers sample density masks with.
func NewDVOL(name string, g *volume.PackedGrid, enc Encoding, compress bool) *DVOL {
	return &DVOL{
		Version:    DVOLCurrentVersion,
		Name:       name,
		Resolution: uint32(g.R),
		Encoding:   enc,
		Wrap:       WrapClamp,
		Filter:     FilterBilinear,
		Compressed: compress,
		Values:     g.Values,
	}
}

// Grid returns the values as a packed grid.
func (d *DVOL) Grid() *volume.PackedGrid {
	return &volume.PackedGrid{R: int(d.Resolution), Values: d.Values}
}

// VoxelCount returns R³.
func (d *DVOL) VoxelCount() int {
	r := int(d.Resolution)
	return r * r * r
}

// Encode writes the asset to w under d.Version. Any minor revision of the
// current major version can be written.
func (d *DVOL) Encode(w io.Writer) error {
	version := d.Version
	if version == (DVOLVersion{}) {
		version = DVOLCurrentVersion
	}
	if version.Major != DVOLCurrentVersion.Major {
		return fmt.Errorf("%w: %s", ErrUnsupportedDVOLVersion, version)
	}
	if d.Resolution == 0 || d.Resolution > volume.MaxResolution {
		return fmt.Errorf("invalid DVOL resolution: %d", d.Resolution)
	}
	if len(d.Values) != d.VoxelCount() {
		return fmt.Errorf("DVOL has %d values, want %d", len(d.Values), d.VoxelCount())
	}
	if len(d.Name) > math.MaxUint16 {
		return fmt.Errorf("DVOL name too long: %d bytes", len(d.Name))
	}

	payload, err := encodeVoxels(d.Values, d.Encoding)
	if err != nil {
		return err
	}
	var flags uint8
	if d.Compressed {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		payload = enc.EncodeAll(payload, nil)
		enc.Close()
		flags |= dvolFlagZstd
	}

	buf := new(bytes.Buffer)
	buf.Grow(dvolHeaderSize + len(d.Name) + len(payload))

	buf.WriteString(DVOLMagic)
	// Version is stored as [minor, major]
	buf.WriteByte(version.Minor)
	buf.WriteByte(version.Major)
	binary.Write(buf, binary.LittleEndian, d.Resolution)
	buf.WriteByte(byte(d.Encoding))
	buf.WriteByte(byte(d.Wrap))
	buf.WriteByte(byte(d.Filter))
	buf.WriteByte(flags)
	binary.Write(buf, binary.LittleEndian, uint32(len(payload)))
	binary.Write(buf, binary.LittleEndian, uint16(len(d.Name)))
	buf.WriteString(d.Name)
	buf.Write(payload)

	_, err = w.Write(buf.Bytes())
	return err
}

// MarshalBinary encodes the asset.
func (d *DVOL) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeVoxels(values []float32, enc Encoding) ([]byte, error) {
	n := enc.BytesPerVoxel()
	if n == 0 {
		return nil, fmt.Errorf("unknown DVOL encoding %d", enc)
	}
	out := make([]byte, len(values)*n)
	for i, v := range values {
		switch enc {
		case EncodingAlpha8:
			out[i] = quantize8(v)
		case EncodingHalf:
			binary.LittleEndian.PutUint16(out[i*2:], float16.Fromfloat32(v).Bits())
		case EncodingFloat:
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
	}
	return out, nil
}

func quantize8(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// ParseDVOL parses a DVOL asset from raw bytes.
func ParseDVOL(data []byte) (*DVOL, error) {
	if len(data) < dvolHeaderSize {
		return nil, ErrTruncatedDVOLData
	}

	if string(data[0:4]) != DVOLMagic {
		return nil, ErrInvalidDVOLMagic
	}

	version := DVOLVersion{
		Major: data[5],
		Minor: data[4],
	}
	if version.Major != DVOLCurrentVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDVOLVersion, version)
	}

	r := bytes.NewReader(data[6:])

	var hdr struct {
		Resolution  uint32
		Encoding    Encoding
		Wrap        WrapMode
		Filter      FilterMode
		Flags       uint8
		PayloadSize uint32
		NameLen     uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedDVOLData)
	}

	if hdr.Resolution == 0 || hdr.Resolution > volume.MaxResolution {
		return nil, fmt.Errorf("invalid DVOL resolution: %d", hdr.Resolution)
	}
	if hdr.Encoding.BytesPerVoxel() == 0 {
		return nil, fmt.Errorf("unknown DVOL encoding %d", hdr.Encoding)
	}

	name := make([]byte, hdr.NameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, fmt.Errorf("%w: reading name", ErrTruncatedDVOLData)
	}
	if int64(hdr.PayloadSize) > int64(r.Len()) {
		return nil, fmt.Errorf("%w: payload has %d bytes, header says %d", ErrTruncatedDVOLData, r.Len(), hdr.PayloadSize)
	}
	payload := make([]byte, hdr.PayloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: reading payload", ErrTruncatedDVOLData)
	}

	d := &DVOL{
		Version:    version,
		Name:       string(name),
		Resolution: hdr.Resolution,
		Encoding:   hdr.Encoding,
		Wrap:       hdr.Wrap,
		Filter:     hdr.Filter,
		Compressed: hdr.Flags&dvolFlagZstd != 0,
	}

	want := d.VoxelCount() * d.Encoding.BytesPerVoxel()
	if d.Compressed {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(want)+1<<16))
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		payload, err = dec.DecodeAll(payload, make([]byte, 0, want))
		if err != nil {
			return nil, fmt.Errorf("decompressing payload: %w", err)
		}
	}
	if len(payload) != want {
		return nil, fmt.Errorf("%w: voxel data has %d bytes, want %d", ErrTruncatedDVOLData, len(payload), want)
	}

	d.Values = decodeVoxels(payload, d.Encoding, d.VoxelCount())
	return d, nil
}

func decodeVoxels(payload []byte, enc Encoding, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		switch enc {
		case EncodingAlpha8:
			out[i] = float32(payload[i]) / 255
		case EncodingHalf:
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(payload[i*2:])).Float32()
		case EncodingFloat:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
		}
	}
	return out
}

// ParseDVOLFile parses a DVOL asset from disk.
func ParseDVOLFile(path string) (*DVOL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DVOL file: %w", err)
	}
	return ParseDVOL(data)
}

// Layer returns the R×R values of depth z, aliasing Values.
func (d *DVOL) Layer(z int) []float32 {
	r := int(d.Resolution)
	if z < 0 || z >= r {
		return nil
	}
	return d.Values[z*r*r : (z+1)*r*r]
}

// ValueRange returns the minimum and maximum voxel value.
func (d *DVOL) ValueRange() (min, max float32) {
	if len(d.Values) == 0 {
		return 0, 0
	}
	min, max = d.Values[0], d.Values[0]
	for _, v := range d.Values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
