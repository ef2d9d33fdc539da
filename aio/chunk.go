package aio

import "unicode/utf8"

// Iterencode yields fixed-size byte chunks from data: zero-copy slices
// of the input. All but the last chunk have length chunkSize; the last
// has length in [1, chunkSize]. Empty input yields zero chunks.
func Iterencode(data []byte, chunkSize int) [][]byte {
	if chunkSize <= 0 {
		panic("aio: chunkSize must be positive")
	}

	var chunks [][]byte
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end])
	}
	return chunks
}

// IterencodeString walks data's UTF-8 encoding rune by rune through an
// internal byte buffer, yielding exactly chunkSize chunks except the
// final (possibly shorter) one. It avoids the single contiguous
// []byte(data) allocation a whole-string conversion would need, at the
// cost of one small per-rune copy; the returned [][]byte still retains
// every chunk for the caller, so total memory is still O(len(data)).
func IterencodeString(data string, chunkSize int) [][]byte {
	if chunkSize <= 0 {
		panic("aio: chunkSize must be positive")
	}

	var chunks [][]byte
	var buf []byte

	var tmp [utf8.UTFMax]byte
	for _, r := range data {
		n := utf8.EncodeRune(tmp[:], r)
		buf = append(buf, tmp[:n]...)

		for len(buf) >= chunkSize {
			chunk := make([]byte, chunkSize)
			copy(chunk, buf[:chunkSize])
			chunks = append(chunks, chunk)
			buf = buf[chunkSize:]
		}
	}

	if len(buf) > 0 {
		chunk := make([]byte, len(buf))
		copy(chunk, buf)
		chunks = append(chunks, chunk)
	}

	return chunks
}
