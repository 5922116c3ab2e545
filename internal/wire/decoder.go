package wire

// ControlDecoder incrementally reassembles control messages from a byte
// stream that may be delivered in arbitrarily small fragments (as QUIC
// stream reads commonly are). Feed it bytes with Push; it invokes the
// supplied handler once per complete message, synchronously, before Push
// returns.
//
// Framing is [type:varint][length:varint][body], matching WriteMessage.
type ControlDecoder struct {
	buf []byte

	haveHeader  bool
	pendingType uint64
	headerLen   int
	bodyLen     uint64
}

// NewControlDecoder returns a decoder ready to receive bytes.
func NewControlDecoder() *ControlDecoder {
	return &ControlDecoder{}
}

// Push appends p to the internal buffer and parses as many complete
// messages as are now available, invoking onMessage for each in order. A
// short read simply returns nil once the buffer runs dry; the caller feeds
// more bytes on the next Push. Returns ErrUnknownMessageType if onMessage
// rejects a type, or whatever error onMessage itself returns; once Push
// returns a non-nil error the decoder must not be reused.
func (d *ControlDecoder) Push(p []byte, onMessage func(msgType uint64, body []byte) error) error {
	d.buf = append(d.buf, p...)

	for {
		if !d.haveHeader {
			typ, n1, err := DecodeVarInt(d.buf)
			if err != nil {
				return nil
			}
			length, n2, err := DecodeVarInt(d.buf[n1:])
			if err != nil {
				return nil
			}
			d.pendingType = typ
			d.headerLen = n1 + n2
			d.bodyLen = length
			d.haveHeader = true
		}

		total := d.headerLen + int(d.bodyLen)
		if len(d.buf) < total {
			return nil
		}

		body := d.buf[d.headerLen:total]
		if err := onMessage(d.pendingType, body); err != nil {
			return err
		}

		rest := len(d.buf) - total
		copy(d.buf, d.buf[total:])
		d.buf = d.buf[:rest]
		d.haveHeader = false
	}
}

// DataStreamDecoder incrementally reassembles SUBGROUP-flavored data-stream
// frames: one leading StreamSubgroup type tag and SubgroupHeader, followed
// by a sequence of SubgroupObject records for the remainder of the stream's
// life. Datagram and FETCH flavors are framed as single self-contained
// reads at the transport layer and do not need incremental reassembly.
type DataStreamDecoder struct {
	buf []byte

	gotKind bool
	kind    uint64
	gotHdr  bool
	header  SubgroupHeader
}

// NewDataStreamDecoder returns a decoder ready to receive bytes from a
// freshly opened data stream.
func NewDataStreamDecoder() *DataStreamDecoder {
	return &DataStreamDecoder{}
}

// Push appends p to the internal buffer and, once the stream-type tag and
// SubgroupHeader have been read, invokes onHeader exactly once, followed by
// onObject for each complete SubgroupObject that becomes available.
// Non-SUBGROUP stream kinds are reported via onHeader with a zero
// SubgroupHeader and the caller should stop feeding this decoder and
// handle the kind itself (datagram/fetch framing lives at the call site).
func (d *DataStreamDecoder) Push(p []byte, onHeader func(kind uint64, h SubgroupHeader) error, onObject func(SubgroupObject) error) error {
	d.buf = append(d.buf, p...)

	if !d.gotKind {
		c := NewCursor(d.buf)
		kind, err := c.VarInt()
		if err != nil {
			return nil
		}
		d.kind = kind
		d.gotKind = true
		d.buf = c.Remaining()

		if kind != StreamSubgroup {
			return onHeader(kind, SubgroupHeader{})
		}
	}

	if d.kind != StreamSubgroup {
		return nil
	}

	if !d.gotHdr {
		c := NewCursor(d.buf)
		h, err := ParseSubgroupHeader(c)
		if err != nil {
			return nil
		}
		d.header = h
		d.gotHdr = true
		d.buf = c.Remaining()
		if err := onHeader(d.kind, h); err != nil {
			return err
		}
	}

	for {
		c := NewCursor(d.buf)
		obj, err := ParseSubgroupObject(c)
		if err != nil {
			return nil
		}
		d.buf = c.Remaining()
		if err := onObject(obj); err != nil {
			return err
		}
	}
}
