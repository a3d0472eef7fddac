package store

import (
	"bytes"
	"encoding/binary"
)

// encodeFloat32SliceToBlob packs a float32 slice into the little-endian
// byte layout sqlite-vec expects for float[] columns.
func encodeFloat32SliceToBlob(vec []float32) []byte {
	buf := new(bytes.Buffer)
	for _, v := range vec {
		binary.Write(buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

// decodeFloat32SliceFromBlob unpacks a blob written by
// encodeFloat32SliceToBlob. Malformed blobs decode to nil.
func decodeFloat32SliceFromBlob(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(blob)/4)
	reader := bytes.NewReader(blob)
	if err := binary.Read(reader, binary.LittleEndian, &vec); err != nil {
		return nil
	}
	return vec
}
