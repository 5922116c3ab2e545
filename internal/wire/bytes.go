package wire

// Cursor is a sequential reader over an in-memory byte slice, used to parse
// control-message bodies and per-field data-stream records. It never
// allocates until asked to copy out a blob.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor returns a Cursor positioned at the start of data.
func NewCursor(data []byte) *Cursor { return &Cursor{data: data} }

// Remaining returns the bytes not yet consumed.
func (c *Cursor) Remaining() []byte { return c.data[c.pos:] }

// Len returns the number of unconsumed bytes.
func (c *Cursor) Len() int { return len(c.data) - c.pos }

// VarInt reads one varint, advancing the cursor.
func (c *Cursor) VarInt() (uint64, error) {
	v, n, err := DecodeVarInt(c.data[c.pos:])
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

// Uint8 reads one fixed-width byte, advancing the cursor.
func (c *Cursor) Uint8() (uint8, error) {
	v, n, err := DecodeUint8(c.data[c.pos:])
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

// Blob reads a varint-length-prefixed byte string, advancing the cursor.
// The returned slice aliases the cursor's backing array.
func (c *Cursor) Blob() ([]byte, error) {
	n, err := c.VarInt()
	if err != nil {
		return nil, err
	}
	if uint64(c.Len()) < n {
		return nil, ErrNeedMoreData
	}
	b := c.data[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return b, nil
}

// Raw reads exactly n bytes, advancing the cursor. The returned slice
// aliases the cursor's backing array.
func (c *Cursor) Raw(n int) ([]byte, error) {
	if c.Len() < n {
		return nil, ErrNeedMoreData
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// String reads a varint-length-prefixed UTF-8 string, advancing the cursor.
func (c *Cursor) String() (string, error) {
	b, err := c.Blob()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Tuple reads a varint count followed by that many blobs, returning them as
// strings (used for namespace tuples).
func (c *Cursor) Tuple() ([]string, error) {
	n, err := c.VarInt()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		s, err := c.String()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// AppendBlob appends a varint-length-prefixed byte string to dst.
func AppendBlob(dst []byte, b []byte) []byte {
	dst = AppendVarInt(dst, uint64(len(b)))
	return append(dst, b...)
}

// AppendString appends a varint-length-prefixed string to dst.
func AppendString(dst []byte, s string) []byte {
	return AppendBlob(dst, []byte(s))
}

// AppendTuple appends a varint count followed by each element as a blob.
func AppendTuple(dst []byte, parts []string) []byte {
	dst = AppendVarInt(dst, uint64(len(parts)))
	for _, p := range parts {
		dst = AppendString(dst, p)
	}
	return dst
}
