package bridge

import "gbprinter/protocol"

// Message IDs carried over the protocol.Transport frame, in place of
// the stepper-firmware command set the transport was originally built
// for. The framing (sync byte, length, sequence, CRC16) is unchanged;
// only what rides inside a frame's VLQ-encoded body differs.
const (
	MsgPacketCompleted  uint16 = 1 // one engine packet finished: command, length, checksum-ok
	MsgStatusWord       uint16 = 2 // the engine's eight status bits plus three countdowns
	MsgPayloadChunk     uint16 = 3 // a run of committed DATA payload bytes, possibly zlib-wrapped
	MsgPrintInstruction uint16 = 4 // a PRINT packet's four-byte instruction
	MsgReset            uint16 = 5 // the engine reset, with a cause code
)

// Reset cause codes carried in a MsgReset body.
const (
	ResetCauseInit    uint8 = 0
	ResetCauseBreak   uint8 = 1
	ResetCauseTimeout uint8 = 2
)

// EncodePacketCompleted writes a MsgPacketCompleted body: command,
// compression flag, payload length, and whether its checksum verified.
func EncodePacketCompleted(output protocol.OutputBuffer, command, compression uint8, length uint16, checksumOK bool) {
	output.Output([]byte{command, compression})
	protocol.EncodeVLQUint(output, uint32(length))
	ok := uint8(0)
	if checksumOK {
		ok = 1
	}
	output.Output([]byte{ok})
}

// DecodePacketCompleted reverses EncodePacketCompleted.
func DecodePacketCompleted(data *[]byte) (command, compression uint8, length uint16, checksumOK bool, err error) {
	if len(*data) < 2 {
		return 0, 0, 0, false, protocol.ErrBufferTooSmall
	}
	command, compression = (*data)[0], (*data)[1]
	*data = (*data)[2:]
	l, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return 0, 0, 0, false, err
	}
	if len(*data) < 1 {
		return 0, 0, 0, false, protocol.ErrBufferTooSmall
	}
	checksumOK = (*data)[0] != 0
	*data = (*data)[1:]
	return command, compression, uint16(l), checksumOK, nil
}

// EncodeStatusWord writes a MsgStatusWord body.
func EncodeStatusWord(output protocol.OutputBuffer, status uint8, dataPacketsRemaining, untransmittedRemaining, busyRemaining uint16) {
	output.Output([]byte{status})
	protocol.EncodeVLQUint(output, uint32(dataPacketsRemaining))
	protocol.EncodeVLQUint(output, uint32(untransmittedRemaining))
	protocol.EncodeVLQUint(output, uint32(busyRemaining))
}

// DecodeStatusWord reverses EncodeStatusWord.
func DecodeStatusWord(data *[]byte) (status uint8, dataPacketsRemaining, untransmittedRemaining, busyRemaining uint16, err error) {
	if len(*data) < 1 {
		return 0, 0, 0, 0, protocol.ErrBufferTooSmall
	}
	status = (*data)[0]
	*data = (*data)[1:]
	d, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	u, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	b, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return status, uint16(d), uint16(u), uint16(b), nil
}

// EncodePayloadChunk writes a MsgPayloadChunk body: a length-prefixed
// byte run, optionally already zlib-wrapped by a ChunkStream.
func EncodePayloadChunk(output protocol.OutputBuffer, chunk []byte) {
	protocol.EncodeVLQBytes(output, chunk)
}

// DecodePayloadChunk reverses EncodePayloadChunk.
func DecodePayloadChunk(data *[]byte) ([]byte, error) {
	return protocol.DecodeVLQBytes(data)
}

// EncodePrintInstruction writes a MsgPrintInstruction body.
func EncodePrintInstruction(output protocol.OutputBuffer, numSheets, margins, palette, density uint8) {
	output.Output([]byte{numSheets, margins, palette, density})
}

// DecodePrintInstruction reverses EncodePrintInstruction.
func DecodePrintInstruction(data *[]byte) (numSheets, margins, palette, density uint8, err error) {
	if len(*data) < 4 {
		return 0, 0, 0, 0, protocol.ErrBufferTooSmall
	}
	numSheets, margins, palette, density = (*data)[0], (*data)[1], (*data)[2], (*data)[3]
	*data = (*data)[4:]
	return numSheets, margins, palette, density, nil
}

// EncodeReset writes a MsgReset body.
func EncodeReset(output protocol.OutputBuffer, cause uint8) {
	output.Output([]byte{cause})
}

// DecodeReset reverses EncodeReset.
func DecodeReset(data *[]byte) (cause uint8, err error) {
	if len(*data) < 1 {
		return 0, protocol.ErrBufferTooSmall
	}
	cause = (*data)[0]
	*data = (*data)[1:]
	return cause, nil
}
