// Package bridge defines the wire messages and helpers that carry
// decoded Game Boy Printer packets from the RP2040 front end (or a
// direct Linux GPIO edge driver) to a host process.
package bridge

import (
	"hash"
	"hash/adler32"
)

// ChunkCompressor wraps payload chunks and raw-dump captures in a
// stored-block (uncompressed) zlib stream before they go out over the
// bridge link. The bridge runs at 250000 baud, so even "no compression"
// framing earns its keep: it lets the host side run standard zlib
// decompression tooling over a capture file unmodified.
type ChunkCompressor struct {
	scratch []byte
}

// NewChunkCompressor returns a compressor whose internal scratch buffer
// is pre-sized for bufferSize-byte inputs, so WriteBlock never
// allocates mid-stream.
func NewChunkCompressor(bufferSize int) *ChunkCompressor {
	return &ChunkCompressor{scratch: make([]byte, 0, bufferSize+11)}
}

// NewStream starts a streaming session that can span multiple
// WriteBlock calls — one per decoded payload chunk — ending in a single
// final Adler-32 checksum over everything written.
func (c *ChunkCompressor) NewStream() *ChunkStream {
	return &ChunkStream{compressor: c, adler: adler32.New()}
}

// ChunkStream accumulates stored DEFLATE blocks for one print job's
// worth of payload chunks.
type ChunkStream struct {
	compressor *ChunkCompressor
	adler      hash.Hash32
	totalOut   int
}

// WriteBlock appends one stored (uncompressed) DEFLATE block for input.
// Set isFinal on the last chunk of the job to close out the zlib stream
// with its trailing Adler-32 checksum.
func (s *ChunkStream) WriteBlock(input []byte, isFinal bool) []byte {
	if len(input) == 0 && !isFinal {
		return nil
	}

	s.adler.Write(input)

	size := len(input) + 5 // block header + len + nlen
	if s.totalOut == 0 {
		size += 2 // zlib header on the first block
	}
	if isFinal {
		size += 4 // trailing checksum
	}

	buf := s.compressor.scratch
	if cap(buf) < size {
		buf = make([]byte, 0, size)
	}
	buf = buf[:size]

	pos := 0
	if s.totalOut == 0 {
		buf[pos], buf[pos+1] = 0x78, 0x9C
		pos += 2
	}

	if isFinal {
		buf[pos] = 0x01
	} else {
		buf[pos] = 0x00
	}
	pos++

	length := uint16(len(input))
	buf[pos], buf[pos+1] = byte(length), byte(length>>8)
	pos += 2
	nlength := ^length
	buf[pos], buf[pos+1] = byte(nlength), byte(nlength>>8)
	pos += 2

	copy(buf[pos:], input)
	pos += len(input)

	if isFinal {
		checksum := s.adler.Sum32()
		buf[pos] = byte(checksum >> 24)
		buf[pos+1] = byte(checksum >> 16)
		buf[pos+2] = byte(checksum >> 8)
		buf[pos+3] = byte(checksum)
		pos += 4
	}

	s.totalOut += pos
	s.compressor.scratch = buf
	return buf[:pos]
}

// Reset rearms the stream for a new print job, reusing its Adler-32
// state.
func (s *ChunkStream) Reset() {
	s.adler.Reset()
	s.totalOut = 0
}

// Decompress reverses a single stored-block zlib stream produced by a
// one-block ChunkStream (one WriteBlock with isFinal set). It reports the
// decoded bytes, or nil if the framing or checksum does not validate.
func Decompress(compressed []byte, out []byte) ([]byte, bool) {
	if len(compressed) < 11 || compressed[0] != 0x78 {
		return nil, false
	}
	dataLength := int(compressed[3]) | int(compressed[4])<<8
	dataStart := 7
	if dataStart+dataLength+4 > len(compressed) {
		return nil, false
	}
	if dataLength > len(out) {
		dataLength = len(out)
	}
	copy(out, compressed[dataStart:dataStart+dataLength])

	checksumStart := dataStart + dataLength
	expected := uint32(compressed[checksumStart])<<24 |
		uint32(compressed[checksumStart+1])<<16 |
		uint32(compressed[checksumStart+2])<<8 |
		uint32(compressed[checksumStart+3])
	if adler32.Checksum(out[:dataLength]) != expected {
		return nil, false
	}
	return out[:dataLength], true
}
