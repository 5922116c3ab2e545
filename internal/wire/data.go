package wire

// Data-stream header kinds. A freshly opened unidirectional QUIC stream
// begins with one of these varints, identifying how the remaining bytes on
// that stream are framed.
const (
	StreamObjectDatagram uint64 = 0x01
	StreamSubgroup       uint64 = 0x04
	StreamFetch          uint64 = 0x05
)

// SubgroupHeader precedes every object on a SUBGROUP-flavored data stream.
// It is written once per stream; every object that follows belongs to the
// (TrackAlias, GroupID, SubgroupID) it names.
type SubgroupHeader struct {
	TrackAlias  uint64
	GroupID     uint64
	SubgroupID  uint64
	Priority    uint8
}

// AppendSubgroupHeader appends the SUBGROUP stream-type byte and header
// fields to dst.
func AppendSubgroupHeader(dst []byte, h SubgroupHeader) []byte {
	dst = AppendVarInt(dst, StreamSubgroup)
	dst = AppendVarInt(dst, h.TrackAlias)
	dst = AppendVarInt(dst, h.GroupID)
	dst = AppendVarInt(dst, h.SubgroupID)
	dst = AppendUint8(dst, h.Priority)
	return dst
}

// ParseSubgroupHeader reads a SubgroupHeader's fields from c. The caller
// must already have consumed the leading stream-type varint.
func ParseSubgroupHeader(c *Cursor) (SubgroupHeader, error) {
	var h SubgroupHeader
	var err error
	if h.TrackAlias, err = c.VarInt(); err != nil {
		return h, &ParseError{"track_alias", err}
	}
	if h.GroupID, err = c.VarInt(); err != nil {
		return h, &ParseError{"group_id", err}
	}
	if h.SubgroupID, err = c.VarInt(); err != nil {
		return h, &ParseError{"subgroup_id", err}
	}
	if h.Priority, err = c.Uint8(); err != nil {
		return h, &ParseError{"priority", err}
	}
	return h, nil
}

// SubgroupObject is one object record within a SUBGROUP stream, framed as
// object-id, payload-length, payload. A zero-length payload with a nonzero
// status code marks an out-of-band status (e.g. end-of-group) rather than
// real media bytes; ObjectStatusNormal is implicit for any payload present.
type SubgroupObject struct {
	ObjectID uint64
	Status   ObjectStatus
	Payload  []byte
}

// ObjectStatus distinguishes a normal object from an end-of-stream marker.
type ObjectStatus uint64

const (
	ObjectStatusNormal        ObjectStatus = 0
	ObjectStatusDoesNotExist  ObjectStatus = 1
	ObjectStatusEndOfGroup    ObjectStatus = 3
	ObjectStatusEndOfTrack    ObjectStatus = 4
)

// AppendSubgroupObject appends one object record to dst.
func AppendSubgroupObject(dst []byte, o SubgroupObject) []byte {
	dst = AppendVarInt(dst, o.ObjectID)
	dst = AppendVarInt(dst, uint64(len(o.Payload)))
	if len(o.Payload) == 0 {
		dst = AppendVarInt(dst, uint64(o.Status))
	}
	dst = append(dst, o.Payload...)
	return dst
}

// ParseSubgroupObject reads one SubgroupObject from c.
func ParseSubgroupObject(c *Cursor) (SubgroupObject, error) {
	var o SubgroupObject
	var err error
	if o.ObjectID, err = c.VarInt(); err != nil {
		return o, &ParseError{"object_id", err}
	}
	n, err := c.VarInt()
	if err != nil {
		return o, &ParseError{"payload_length", err}
	}
	if n == 0 {
		status, err := c.VarInt()
		if err != nil {
			return o, &ParseError{"object_status", err}
		}
		o.Status = ObjectStatus(status)
		return o, nil
	}
	if uint64(c.Len()) < n {
		return o, ErrNeedMoreData
	}
	payload, err := c.Raw(int(n))
	if err != nil {
		return o, &ParseError{"payload", err}
	}
	o.Payload = payload
	o.Status = ObjectStatusNormal
	return o, nil
}
