package protocol

import "sync/atomic"

const (
	FrameHeaderLen         = 2
	FrameTrailerLen        = 3
	FrameLenMin            = FrameHeaderLen + FrameTrailerLen
	FrameLenMax            = 64
	framePosLen            = 0
	framePosSeq            = 1
	frameTrailerCRCOffset  = 3
	frameTrailerSyncOffset = 1
	frameSyncByte          = 0x7E
	// frameSeqBand marks the high nibble of every sequence byte the
	// firmware originates; the host's own replies echo it back so a
	// stream of frames from either side is unambiguous on the wire.
	frameSeqBand = 0x10
)

// CommandHandler decodes one dispatched command's ID and remaining
// frame bytes.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the firmware-side half of the framed link: it
// resynchronises on a lost sync byte, tracks the host's sequence
// number to detect a host-side reset, and answers every accepted
// frame with an ACK (or, on a sequence mismatch, an implicit NAK
// carrying the sequence it actually expects).
type Transport struct {
	isSynchronized uint32 // atomic bool (0 = false, 1 = true)
	nextSequence   uint32 // atomic uint8 stored as uint32, frameSeqBand|low nibble

	output        OutputBuffer
	handler       CommandHandler
	resetCallback func() // called when a host reset is detected
	flushCallback func() // called to push a just-encoded ACK out immediately
}

// NewTransport constructs a Transport that calls handler for each
// decoded command and writes frames (including ACKs) to output.
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		isSynchronized: 1,
		nextSequence:   frameSeqBand,
		output:         output,
		handler:        handler,
	}
}

// Receive feeds newly-arrived bytes through the frame parser,
// resynchronising on the sync byte if the stream is currently
// unsynchronised, and consumes whatever prefix of input it parsed.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.getSynchronized() {
			// Look for sync byte to resynchronize
			syncPos := -1
			for i, b := range data {
				if b == frameSyncByte {
					syncPos = i
					break
				}
			}

			if syncPos >= 0 {
				// Found sync byte - skip garbage before it and resync
				data = data[syncPos+1:]
				t.setSynchronized(true)
				t.encodeAckNak()
				// Continue processing in synchronized mode
			} else {
				// No sync byte found - discard all data
				data = nil
			}
		} else {
			// Skip leading sync bytes
			if data[0] == frameSyncByte {
				data = data[1:]
				continue
			}

			// Need at least minimum message length
			if len(data) < FrameLenMin {
				break
			}

			// Extract message length
			msgLen := int(data[framePosLen])
			if msgLen < FrameLenMin || msgLen > FrameLenMax {
				t.setSynchronized(false)
				continue
			}

			// Check sequence/destination byte
			seq := data[framePosSeq]
			if seq&^frameSeqMask != frameSeqBand {
				t.setSynchronized(false)
				continue
			}

			// Wait for full message
			if len(data) < msgLen {
				break
			}

			// Verify trailing sync byte
			if data[msgLen-frameTrailerSyncOffset] != frameSyncByte {
				t.setSynchronized(false)
				continue
			}

			// Verify CRC
			frameCRC := uint16(data[msgLen-frameTrailerCRCOffset])<<8 |
				uint16(data[msgLen-frameTrailerCRCOffset+1])
			actualCRC := CRC16(data[:msgLen-FrameTrailerLen])

			if frameCRC != actualCRC {
				t.setSynchronized(false)
				continue
			}

			// Extract frame data (between header and trailer)
			frame := data[FrameHeaderLen : msgLen-FrameTrailerLen]
			data = data[msgLen:]

			// A sequence reset back to the base band means the host
			// restarted without us noticing; resync to it.
			expectedSeq := uint8(atomic.LoadUint32(&t.nextSequence))
			if seq == frameSeqBand && expectedSeq != frameSeqBand {
				atomic.StoreUint32(&t.nextSequence, frameSeqBand)
				expectedSeq = frameSeqBand
				if t.resetCallback != nil {
					t.resetCallback()
				}
			}

			if seq == expectedSeq {
				nextSeq := ((seq + 1) & frameSeqMask) | frameSeqBand
				atomic.StoreUint32(&t.nextSequence, uint32(nextSeq))
				_ = t.parseFrame(frame)
			}
			// An ACK is sent whether or not the frame matched the
			// expected sequence; a mismatch leaves nextSequence
			// unchanged, so the ACK doubles as a NAK telling the host
			// which sequence it should have sent.
			t.encodeAckNak()
		}
	}

	// Remove consumed bytes from input
	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// parseFrame extracts and dispatches commands from a frame
func (t *Transport) parseFrame(frame []byte) (err error) {
	// Recover from any panics in command handlers to prevent firmware crash
	defer func() {
		if r := recover(); r != nil {
			// Panic occurred - set synchronized to false to trigger resync
			t.setSynchronized(false)
		}
	}()

	for len(frame) > 0 {
		// Decode command ID
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			// Malformed VLQ - desync and return
			t.setSynchronized(false)
			return err
		}

		// Call command handler
		if t.handler != nil {
			if err := t.handler(uint16(cmdID), &frame); err != nil {
				// Handler error - log but continue processing
				// Don't desync on handler errors
				return err
			}
		}
	}
	return nil
}

// encodeAckNak writes and immediately flushes an ACK/NAK frame. It
// must go out ahead of any response the command handler queues, so a
// confused host never sees a response before the ACK that covers it.
func (t *Transport) encodeAckNak() {
	ns := uint8(atomic.LoadUint32(&t.nextSequence))
	crc := CRC16([]byte{5, ns})

	ackMsg := []byte{
		5,
		ns,
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		frameSyncByte,
	}

	t.output.Output(ackMsg)

	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame encodes and sends a frame with the given data
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := t.output.CurPosition()

	// Header: length placeholder and sequence. ACKs and responses
	// carry the next sequence the transport expects, so a response to
	// a 0x10 frame carries frameSeqBand|0x01, never a bare low-nibble
	// value.
	seq := uint8(atomic.LoadUint32(&t.nextSequence))
	t.output.Output([]byte{0, seq})

	// Write frame contents
	frameData(t.output)

	// Update length field
	changed := len(t.output.DataSince(cursor))
	t.output.Update(cursor, uint8(changed+FrameTrailerLen))

	// Calculate and write CRC
	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		frameSyncByte,
	})

	// Don't increment sequence - nextSequence is already correct
	// Multiple responses can be sent with the same sequence number
}

// SendCommand sends a command with arguments
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset resets the transport state (useful after USB disconnect/reconnect)
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.isSynchronized, 1)
	atomic.StoreUint32(&t.nextSequence, frameSeqBand)

	// Call reset callback if set
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback sets a callback to be called when host reset is detected
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets a callback that pushes a just-written ACK out
// to the transport's underlying link immediately, rather than waiting
// for the caller's normal output flush.
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

// Helper methods for atomic operations
func (t *Transport) getSynchronized() bool {
	return atomic.LoadUint32(&t.isSynchronized) != 0
}

func (t *Transport) setSynchronized(val bool) {
	if val {
		atomic.StoreUint32(&t.isSynchronized, 1)
	} else {
		atomic.StoreUint32(&t.isSynchronized, 0)
	}
}
