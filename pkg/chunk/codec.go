// pkg/chunk/codec.go

package chunk

import (
	"encoding/binary"
)

// DecodeVoxels converts big-endian voxels in src into host order in dst.
// src must hold exactly 2*len(dst) bytes.
func DecodeVoxels(dst []uint16, src []byte) {
	if len(dst) == 0 {
		return
	}
	_ = src[2*len(dst)-1]
	for i := range dst {
		dst[i] = binary.BigEndian.Uint16(src[2*i:])
	}
}

// EncodeVoxels stores src into dst as big-endian voxels.
func EncodeVoxels(dst []byte, src []uint16) {
	if len(src) == 0 {
		return
	}
	_ = dst[2*len(src)-1]
	for i, v := range src {
		binary.BigEndian.PutUint16(dst[2*i:], v)
	}
}

// AppendVoxels appends src to dst as big-endian voxels.
func AppendVoxels(dst []byte, src []uint16) []byte {
	for _, v := range src {
		dst = binary.BigEndian.AppendUint16(dst, v)
	}
	return dst
}
