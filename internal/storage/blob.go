package storage

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Scan payloads are stored zstd-compressed. Processed scans are mostly
// repeated method signatures, which compress extremely well.

var (
	blobEncoder *zstd.Encoder
	blobDecoder *zstd.Decoder
)

func init() {
	var err error
	blobEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("storage: zstd encoder: %v", err))
	}
	blobDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("storage: zstd decoder: %v", err))
	}
}

// compressBlob compresses a scan payload for storage.
func compressBlob(data []byte) []byte {
	return blobEncoder.EncodeAll(data, make([]byte, 0, len(data)/4))
}

// decompressBlob restores a scan payload read from storage.
func decompressBlob(blob []byte) ([]byte, error) {
	data, err := blobDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress scan data: %w", err)
	}
	return data, nil
}
