package wire

import (
	"bytes"
	"reflect"
	"testing"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	buf := EncodeMessage(m)
	typ, n1, err := DecodeVarInt(buf)
	if err != nil {
		t.Fatalf("type: %v", err)
	}
	length, n2, err := DecodeVarInt(buf[n1:])
	if err != nil {
		t.Fatalf("length: %v", err)
	}
	body := buf[n1+n2 : n1+n2+int(length)]
	got, err := Decode(typ, body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestSubscribeRoundTrip(t *testing.T) {
	t.Parallel()
	start := GroupObject{Group: 1, Object: 0}
	end := GroupObject{Group: 5, Object: 2}
	s := Subscribe{
		SubscribeID: 7,
		TrackAlias:  3,
		Namespace:   []string{"live", "camera1"},
		TrackName:   "video",
		SubPriority: 128,
		GroupOrder:  1,
		FilterType:  FilterAbsoluteRange,
		Start:       &start,
		End:         &end,
		Params:      []Parameter{{Type: ParamDeliveryTimeout, Value: AppendVarInt(nil, 250)}},
	}
	got := roundTrip(t, s)
	if !reflect.DeepEqual(got, s) {
		t.Fatalf("got %+v, want %+v", got, s)
	}
	ms, ok := DeliveryTimeoutMS(got.(Subscribe).Params)
	if !ok || ms != 250 {
		t.Fatalf("DeliveryTimeoutMS: got (%d, %v)", ms, ok)
	}
}

func TestSubscribeLatestGroupNoBounds(t *testing.T) {
	t.Parallel()
	s := Subscribe{
		SubscribeID: 1,
		TrackAlias:  1,
		Namespace:   []string{"ns"},
		TrackName:   "t",
		FilterType:  FilterLatestGroup,
	}
	got := roundTrip(t, s).(Subscribe)
	if got.Start != nil || got.End != nil {
		t.Fatalf("expected nil bounds for LatestGroup filter, got %+v / %+v", got.Start, got.End)
	}
}

func TestClientServerSetupRoundTrip(t *testing.T) {
	t.Parallel()
	cs := ClientSetup{Versions: []uint64{0xff000001, 0xff000002}}
	if got := roundTrip(t, cs); !reflect.DeepEqual(got, cs) {
		t.Fatalf("got %+v, want %+v", got, cs)
	}
	ss := ServerSetup{SelectedVersion: 0xff000002}
	if got := roundTrip(t, ss); !reflect.DeepEqual(got, ss) {
		t.Fatalf("got %+v, want %+v", got, ss)
	}
}

func TestUnsubscribeRoundTrip(t *testing.T) {
	t.Parallel()
	u := Unsubscribe{SubscribeID: 42}
	if got := roundTrip(t, u); got != u {
		t.Fatalf("got %+v, want %+v", got, u)
	}
}

func TestBatchSubscribeRoundTrip(t *testing.T) {
	t.Parallel()
	b := BatchSubscribe{
		NamespacePrefix: []string{"live"},
		Subscribes: []Subscribe{
			{SubscribeID: 1, TrackAlias: 1, Namespace: []string{"live", "a"}, TrackName: "video", FilterType: FilterLatestObject},
			{SubscribeID: 2, TrackAlias: 2, Namespace: []string{"live", "b"}, TrackName: "audio", FilterType: FilterLatestObject},
		},
	}
	got := roundTrip(t, b)
	if !reflect.DeepEqual(got, b) {
		t.Fatalf("got %+v, want %+v", got, b)
	}
}

func TestUnknownMessageType(t *testing.T) {
	t.Parallel()
	if _, err := Decode(0x7f, nil); err == nil {
		t.Fatal("expected error for unknown message type")
	}
}

func TestWriteMessageSingleWrite(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	m := Unsubscribe{SubscribeID: 9}
	if err := WriteMessage(&buf, m); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), EncodeMessage(m)) {
		t.Fatal("WriteMessage output does not match EncodeMessage")
	}
}
