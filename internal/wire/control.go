package wire

import (
	"fmt"
	"io"
)

// Control message type codes. Only the subset named in the core
// specification is implemented; every other MoQT message type is
// unrecognized and yields ErrUnknownMessageType.
const (
	MsgClientSetup         uint64 = 0x40
	MsgServerSetup         uint64 = 0x41
	MsgSubscribe           uint64 = 0x03
	MsgSubscribeError      uint64 = 0x05
	MsgSubscribeUpdate     uint64 = 0x02
	MsgUnsubscribe         uint64 = 0x0a
	MsgTrackStatusRequest  uint64 = 0x0d
	MsgBatchSubscribe      uint64 = 0x11
)

// ParamDeliveryTimeout is the only standardized parameter in this codec: a
// varint millisecond delivery-timeout hint attached to a SUBSCRIBE or
// SUBSCRIBE_UPDATE.
const ParamDeliveryTimeout uint64 = 0x02

// FilterType selects which objects a SUBSCRIBE addresses.
type FilterType uint64

const (
	FilterLatestGroup         FilterType = 1
	FilterLatestObject        FilterType = 2
	FilterAbsoluteStart       FilterType = 3
	FilterAbsoluteRange       FilterType = 4
	FilterLatestPerGroupTrack FilterType = 5
)

// GroupObject is a (group, object) pair used for SUBSCRIBE start/end bounds.
type GroupObject struct {
	Group  uint64
	Object uint64
}

// Parameter is a type-tagged, blob-valued message parameter. Only
// ParamDeliveryTimeout has standardized meaning here; unrecognized
// parameter types round-trip as opaque bytes.
type Parameter struct {
	Type  uint64
	Value []byte
}

// DeliveryTimeoutMS returns the decoded millisecond value and true if params
// contains a delivery-timeout parameter, else (0, false).
func DeliveryTimeoutMS(params []Parameter) (uint64, bool) {
	for _, p := range params {
		if p.Type == ParamDeliveryTimeout {
			if v, _, err := DecodeVarInt(p.Value); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

// Message is implemented by every control message type. It is the tagged
// union's common interface: the deserializer produces a Message and callers
// type-switch on the concrete type to dispatch.
type Message interface {
	MessageType() uint64
	marshalBody() []byte
}

// ClientSetup is the first message a client sends on the control stream.
type ClientSetup struct {
	Versions []uint64
	Params   []Parameter
}

func (ClientSetup) MessageType() uint64 { return MsgClientSetup }

func (m ClientSetup) marshalBody() []byte {
	var b []byte
	b = AppendVarInt(b, uint64(len(m.Versions)))
	for _, v := range m.Versions {
		b = AppendVarInt(b, v)
	}
	b = appendParams(b, m.Params)
	return b
}

// ServerSetup is the server's reply to CLIENT_SETUP.
type ServerSetup struct {
	SelectedVersion uint64
	Params          []Parameter
}

func (ServerSetup) MessageType() uint64 { return MsgServerSetup }

func (m ServerSetup) marshalBody() []byte {
	var b []byte
	b = AppendVarInt(b, m.SelectedVersion)
	b = appendParams(b, m.Params)
	return b
}

// Subscribe requests delivery of a track, optionally bounded by a filter.
type Subscribe struct {
	SubscribeID uint64
	TrackAlias  uint64
	Namespace   []string
	TrackName   string
	SubPriority uint8
	GroupOrder  uint8
	FilterType  FilterType
	Start       *GroupObject // AbsoluteStart, AbsoluteRange
	End         *GroupObject // AbsoluteRange only
	Params      []Parameter
}

func (Subscribe) MessageType() uint64 { return MsgSubscribe }

func (m Subscribe) marshalBody() []byte {
	var b []byte
	b = appendSubscribeBody(b, m)
	return b
}

func appendSubscribeBody(b []byte, m Subscribe) []byte {
	b = AppendVarInt(b, m.SubscribeID)
	b = AppendVarInt(b, m.TrackAlias)
	b = AppendTuple(b, m.Namespace)
	b = AppendString(b, m.TrackName)
	b = AppendUint8(b, m.SubPriority)
	b = AppendUint8(b, m.GroupOrder)
	b = AppendVarInt(b, uint64(m.FilterType))
	switch m.FilterType {
	case FilterAbsoluteStart:
		b = AppendVarInt(b, m.Start.Group)
		b = AppendVarInt(b, m.Start.Object)
	case FilterAbsoluteRange:
		b = AppendVarInt(b, m.Start.Group)
		b = AppendVarInt(b, m.Start.Object)
		b = AppendVarInt(b, m.End.Group)
		b = AppendVarInt(b, m.End.Object)
	}
	b = appendParams(b, m.Params)
	return b
}

func parseSubscribeBody(c *Cursor) (Subscribe, error) {
	var s Subscribe
	var err error

	if s.SubscribeID, err = c.VarInt(); err != nil {
		return s, &ParseError{"subscribe_id", err}
	}
	if s.TrackAlias, err = c.VarInt(); err != nil {
		return s, &ParseError{"track_alias", err}
	}
	if s.Namespace, err = c.Tuple(); err != nil {
		return s, &ParseError{"namespace", err}
	}
	if s.TrackName, err = c.String(); err != nil {
		return s, &ParseError{"track_name", err}
	}
	if s.SubPriority, err = c.Uint8(); err != nil {
		return s, &ParseError{"sub_priority", err}
	}
	if s.GroupOrder, err = c.Uint8(); err != nil {
		return s, &ParseError{"group_order", err}
	}
	filter, err := c.VarInt()
	if err != nil {
		return s, &ParseError{"filter_type", err}
	}
	s.FilterType = FilterType(filter)

	switch s.FilterType {
	case FilterAbsoluteStart:
		start, err := parseGroupObject(c)
		if err != nil {
			return s, &ParseError{"start", err}
		}
		s.Start = &start
	case FilterAbsoluteRange:
		start, err := parseGroupObject(c)
		if err != nil {
			return s, &ParseError{"start", err}
		}
		end, err := parseGroupObject(c)
		if err != nil {
			return s, &ParseError{"end", err}
		}
		s.Start, s.End = &start, &end
	}

	if s.Params, err = parseParams(c); err != nil {
		return s, &ParseError{"params", err}
	}
	return s, nil
}

func parseGroupObject(c *Cursor) (GroupObject, error) {
	g, err := c.VarInt()
	if err != nil {
		return GroupObject{}, err
	}
	o, err := c.VarInt()
	if err != nil {
		return GroupObject{}, err
	}
	return GroupObject{Group: g, Object: o}, nil
}

// SubscribeError rejects a subscription.
type SubscribeError struct {
	SubscribeID  uint64
	ErrorCode    uint64
	ReasonPhrase string
	TrackAlias   uint64
}

func (SubscribeError) MessageType() uint64 { return MsgSubscribeError }

func (m SubscribeError) marshalBody() []byte {
	var b []byte
	b = AppendVarInt(b, m.SubscribeID)
	b = AppendVarInt(b, m.ErrorCode)
	b = AppendString(b, m.ReasonPhrase)
	b = AppendVarInt(b, m.TrackAlias)
	return b
}

// SubscribeUpdate narrows or widens an existing subscription's range.
type SubscribeUpdate struct {
	SubscribeID uint64
	StartGroup  uint64
	StartObj    uint64
	EndGroup    uint64
	SubPriority uint8
	Forward     uint8
	Params      []Parameter
}

func (SubscribeUpdate) MessageType() uint64 { return MsgSubscribeUpdate }

func (m SubscribeUpdate) marshalBody() []byte {
	var b []byte
	b = AppendVarInt(b, m.SubscribeID)
	b = AppendVarInt(b, m.StartGroup)
	b = AppendVarInt(b, m.StartObj)
	b = AppendVarInt(b, m.EndGroup)
	b = AppendUint8(b, m.SubPriority)
	b = AppendUint8(b, m.Forward)
	b = appendParams(b, m.Params)
	return b
}

// Unsubscribe cancels a previously accepted subscription.
type Unsubscribe struct {
	SubscribeID uint64
}

func (Unsubscribe) MessageType() uint64 { return MsgUnsubscribe }

func (m Unsubscribe) marshalBody() []byte {
	return AppendVarInt(nil, m.SubscribeID)
}

// TrackStatusRequest asks the publisher endpoint for a track's status.
type TrackStatusRequest struct {
	Namespace []string
	TrackName string
}

func (TrackStatusRequest) MessageType() uint64 { return MsgTrackStatusRequest }

func (m TrackStatusRequest) marshalBody() []byte {
	var b []byte
	b = AppendTuple(b, m.Namespace)
	b = AppendString(b, m.TrackName)
	return b
}

// BatchSubscribe bundles N subscribes that share a namespace prefix into a
// single message.
type BatchSubscribe struct {
	NamespacePrefix []string
	Subscribes      []Subscribe
}

func (BatchSubscribe) MessageType() uint64 { return MsgBatchSubscribe }

func (m BatchSubscribe) marshalBody() []byte {
	var b []byte
	b = AppendTuple(b, m.NamespacePrefix)
	b = AppendVarInt(b, uint64(len(m.Subscribes)))
	for _, s := range m.Subscribes {
		b = appendSubscribeBody(b, s)
	}
	return b
}

func appendParams(b []byte, params []Parameter) []byte {
	b = AppendVarInt(b, uint64(len(params)))
	for _, p := range params {
		b = AppendVarInt(b, p.Type)
		b = AppendBlob(b, p.Value)
	}
	return b
}

func parseParams(c *Cursor) ([]Parameter, error) {
	n, err := c.VarInt()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]Parameter, n)
	for i := range out {
		t, err := c.VarInt()
		if err != nil {
			return nil, err
		}
		v, err := c.Blob()
		if err != nil {
			return nil, err
		}
		out[i] = Parameter{Type: t, Value: append([]byte(nil), v...)}
	}
	return out, nil
}

// Decode dispatches on msgType and parses body into the corresponding
// concrete Message. It returns ErrUnknownMessageType for any code not in
// the table above.
func Decode(msgType uint64, body []byte) (Message, error) {
	c := NewCursor(body)
	switch msgType {
	case MsgClientSetup:
		n, err := c.VarInt()
		if err != nil {
			return nil, &ParseError{"num_versions", err}
		}
		versions := make([]uint64, n)
		for i := range versions {
			v, err := c.VarInt()
			if err != nil {
				return nil, &ParseError{"version", err}
			}
			versions[i] = v
		}
		params, err := parseParams(c)
		if err != nil {
			return nil, &ParseError{"params", err}
		}
		return ClientSetup{Versions: versions, Params: params}, nil

	case MsgServerSetup:
		v, err := c.VarInt()
		if err != nil {
			return nil, &ParseError{"selected_version", err}
		}
		params, err := parseParams(c)
		if err != nil {
			return nil, &ParseError{"params", err}
		}
		return ServerSetup{SelectedVersion: v, Params: params}, nil

	case MsgSubscribe:
		return parseSubscribeBody(c)

	case MsgSubscribeError:
		var s SubscribeError
		var err error
		if s.SubscribeID, err = c.VarInt(); err != nil {
			return nil, &ParseError{"subscribe_id", err}
		}
		if s.ErrorCode, err = c.VarInt(); err != nil {
			return nil, &ParseError{"error_code", err}
		}
		if s.ReasonPhrase, err = c.String(); err != nil {
			return nil, &ParseError{"reason_phrase", err}
		}
		if s.TrackAlias, err = c.VarInt(); err != nil {
			return nil, &ParseError{"track_alias", err}
		}
		return s, nil

	case MsgSubscribeUpdate:
		var s SubscribeUpdate
		var err error
		if s.SubscribeID, err = c.VarInt(); err != nil {
			return nil, &ParseError{"subscribe_id", err}
		}
		if s.StartGroup, err = c.VarInt(); err != nil {
			return nil, &ParseError{"start_group", err}
		}
		if s.StartObj, err = c.VarInt(); err != nil {
			return nil, &ParseError{"start_obj", err}
		}
		if s.EndGroup, err = c.VarInt(); err != nil {
			return nil, &ParseError{"end_group", err}
		}
		if s.SubPriority, err = c.Uint8(); err != nil {
			return nil, &ParseError{"sub_priority", err}
		}
		if s.Forward, err = c.Uint8(); err != nil {
			return nil, &ParseError{"forward", err}
		}
		if s.Params, err = parseParams(c); err != nil {
			return nil, &ParseError{"params", err}
		}
		return s, nil

	case MsgUnsubscribe:
		id, err := c.VarInt()
		if err != nil {
			return nil, &ParseError{"subscribe_id", err}
		}
		return Unsubscribe{SubscribeID: id}, nil

	case MsgTrackStatusRequest:
		var t TrackStatusRequest
		var err error
		if t.Namespace, err = c.Tuple(); err != nil {
			return nil, &ParseError{"namespace", err}
		}
		if t.TrackName, err = c.String(); err != nil {
			return nil, &ParseError{"track_name", err}
		}
		return t, nil

	case MsgBatchSubscribe:
		var batch BatchSubscribe
		var err error
		if batch.NamespacePrefix, err = c.Tuple(); err != nil {
			return nil, &ParseError{"namespace_prefix", err}
		}
		n, err := c.VarInt()
		if err != nil {
			return nil, &ParseError{"num_subscribes", err}
		}
		batch.Subscribes = make([]Subscribe, n)
		for i := range batch.Subscribes {
			s, err := parseSubscribeBody(c)
			if err != nil {
				return nil, err
			}
			batch.Subscribes[i] = s
		}
		return batch, nil

	default:
		return nil, fmt.Errorf("%w: 0x%x", ErrUnknownMessageType, msgType)
	}
}

// WriteMessage frames m as [type:varint][length:varint][body] and writes it
// to w in a single Write call, so concurrent writers on the same stream
// cannot interleave a partial message.
func WriteMessage(w io.Writer, m Message) error {
	body := m.marshalBody()
	var hdr []byte
	hdr = AppendVarInt(hdr, m.MessageType())
	hdr = AppendVarInt(hdr, uint64(len(body)))
	buf := make([]byte, 0, len(hdr)+len(body))
	buf = append(buf, hdr...)
	buf = append(buf, body...)
	_, err := w.Write(buf)
	return err
}

// EncodeMessage returns m framed as [type][length][body], without writing
// it anywhere. Used by the incremental deserializer's round-trip tests and
// by callers that need the bytes before choosing a destination stream.
func EncodeMessage(m Message) []byte {
	body := m.marshalBody()
	var buf []byte
	buf = AppendVarInt(buf, m.MessageType())
	buf = AppendVarInt(buf, uint64(len(body)))
	buf = append(buf, body...)
	return buf
}
