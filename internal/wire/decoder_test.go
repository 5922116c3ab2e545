package wire

import (
	"reflect"
	"testing"
)

// splitAt feeds buf to push in chunks of the given sizes, used to verify
// the decoder tolerates arbitrary fragmentation.
func splitAt(buf []byte, sizes []int) [][]byte {
	var chunks [][]byte
	i := 0
	for _, n := range sizes {
		if i >= len(buf) {
			break
		}
		end := i + n
		if end > len(buf) {
			end = len(buf)
		}
		chunks = append(chunks, buf[i:end])
		i = end
	}
	if i < len(buf) {
		chunks = append(chunks, buf[i:])
	}
	return chunks
}

func TestControlDecoderByteAtATime(t *testing.T) {
	t.Parallel()
	m := Unsubscribe{SubscribeID: 1234}
	buf := EncodeMessage(m)

	d := NewControlDecoder()
	var got []Message
	for i := 0; i < len(buf); i++ {
		err := d.Push(buf[i:i+1], func(typ uint64, body []byte) error {
			msg, err := Decode(typ, body)
			if err != nil {
				return err
			}
			got = append(got, msg)
			return nil
		})
		if err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	if !reflect.DeepEqual(got[0], m) {
		t.Fatalf("got %+v, want %+v", got[0], m)
	}
}

func TestControlDecoderArbitraryFragmentation(t *testing.T) {
	t.Parallel()
	msgs := []Message{
		Unsubscribe{SubscribeID: 1},
		ClientSetup{Versions: []uint64{1}},
		Subscribe{SubscribeID: 2, TrackAlias: 2, Namespace: []string{"a"}, TrackName: "b", FilterType: FilterLatestObject},
	}
	var buf []byte
	for _, m := range msgs {
		buf = append(buf, EncodeMessage(m)...)
	}

	for _, sizes := range [][]int{{1}, {3, 1, 7}, {len(buf)}, {2, 2, 2, 2, 2}} {
		d := NewControlDecoder()
		var got []Message
		for _, chunk := range splitAt(buf, sizes) {
			err := d.Push(chunk, func(typ uint64, body []byte) error {
				msg, err := Decode(typ, body)
				if err != nil {
					return err
				}
				got = append(got, msg)
				return nil
			})
			if err != nil {
				t.Fatalf("Push: %v", err)
			}
		}
		if len(got) != len(msgs) {
			t.Fatalf("sizes %v: got %d messages, want %d", sizes, len(got), len(msgs))
		}
		for i := range msgs {
			if !reflect.DeepEqual(got[i], msgs[i]) {
				t.Fatalf("sizes %v: message %d: got %+v, want %+v", sizes, i, got[i], msgs[i])
			}
		}
	}
}

func TestDataStreamDecoderByteAtATime(t *testing.T) {
	t.Parallel()
	h := SubgroupHeader{TrackAlias: 1, GroupID: 2, SubgroupID: 3, Priority: 10}
	objs := []SubgroupObject{
		{ObjectID: 0, Status: ObjectStatusNormal, Payload: []byte("abc")},
		{ObjectID: 1, Status: ObjectStatusNormal, Payload: []byte("de")},
		{ObjectID: 2, Status: ObjectStatusEndOfGroup},
	}
	var buf []byte
	buf = AppendSubgroupHeader(buf, h)
	for _, o := range objs {
		buf = AppendSubgroupObject(buf, o)
	}

	d := NewDataStreamDecoder()
	var gotHeader SubgroupHeader
	var gotObjs []SubgroupObject
	for i := 0; i < len(buf); i++ {
		err := d.Push(buf[i:i+1],
			func(kind uint64, h SubgroupHeader) error {
				gotHeader = h
				return nil
			},
			func(o SubgroupObject) error {
				gotObjs = append(gotObjs, o)
				return nil
			},
		)
		if err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if gotHeader != h {
		t.Fatalf("got header %+v, want %+v", gotHeader, h)
	}
	if len(gotObjs) != len(objs) {
		t.Fatalf("got %d objects, want %d", len(gotObjs), len(objs))
	}
}
