package proto

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	require.ErrorIs(t, err, ErrInvalidJSON)
}

func TestDecodeEnvelopeShapes(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "complete", raw: `{"type":"CHAT","payload":{"text":"hi"}}`},
		{name: "empty payload object", raw: `{"type":"ROOM_LEAVE","payload":{}}`},
		{name: "missing payload", raw: `{"type":"CHAT"}`, wantErr: true},
		{name: "null payload", raw: `{"type":"CHAT","payload":null}`, wantErr: true},
		{name: "string payload", raw: `{"type":"CHAT","payload":"hi"}`, wantErr: true},
		{name: "missing type", raw: `{"payload":{}}`, wantErr: true},
		{name: "numeric type", raw: `{"type":7,"payload":{}}`, wantErr: true},
		{name: "top-level array", raw: `[1,2]`, wantErr: true},
		{name: "top-level string", raw: `"CHAT"`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := Decode([]byte(tc.raw))
			require.NoError(t, err)
			if tc.wantErr {
				require.ErrorIs(t, in.Validate(), ErrMissingEnvelope)
			} else {
				require.NoError(t, in.Validate())
			}
		})
	}
}

func TestParseVariants(t *testing.T) {
	parse := func(raw string) Message {
		t.Helper()
		in, err := Decode([]byte(raw))
		require.NoError(t, err)
		require.NoError(t, in.Validate())
		msg, err := Parse(in)
		require.NoError(t, err)
		return msg
	}

	require.Equal(t, Chat{Text: "hi"}, parse(`{"type":"CHAT","payload":{"text":"hi"}}`))
	require.Equal(t, PrivateChat{To: 3, HasTo: true, Text: "psst"}, parse(`{"type":"PRIVATE_CHAT","payload":{"to":3,"text":"psst"}}`))
	require.Equal(t, SetUsername{}, parse(`{"type":"SET_USERNAME","payload":{"username":42}}`))
	require.Equal(t, Typing{Stop: true, Room: "lobby"}, parse(`{"type":"TYPING_STOP","payload":{"room":"lobby"}}`))
	require.Equal(t, TypeTypingStart, parse(`{"type":"TYPING_START","payload":{}}`).MessageType())
	require.Equal(t, RoomLeave{}, parse(`{"type":"ROOM_LEAVE","payload":{"ignored":true}}`))
}

func TestParsePrivateChatRecipient(t *testing.T) {
	cases := []struct {
		to    string
		want  int64
		hasTo bool
	}{
		{`2`, 2, true},
		{`2.0`, 2, true},
		{`2.5`, 0, true},
		{`-1`, 0, true},
		{`"2"`, 0, true},
		{`true`, 0, true},
		{`{}`, 0, true},
		{`0`, 0, false},
		{`""`, 0, false},
		{`false`, 0, false},
		{`null`, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.to, func(t *testing.T) {
			in, err := Decode([]byte(`{"type":"PRIVATE_CHAT","payload":{"to":` + tc.to + `,"text":"psst"}}`))
			require.NoError(t, err)
			msg, err := Parse(in)
			require.NoError(t, err)
			require.Equal(t, PrivateChat{To: tc.want, HasTo: tc.hasTo, Text: "psst"}, msg)
		})
	}

	in, err := Decode([]byte(`{"type":"PRIVATE_CHAT","payload":{"text":"psst"}}`))
	require.NoError(t, err)
	msg, err := Parse(in)
	require.NoError(t, err)
	require.Equal(t, PrivateChat{Text: "psst"}, msg)
}

func TestParseUnknownType(t *testing.T) {
	in, err := Decode([]byte(`{"type":"DANCE","payload":{}}`))
	require.NoError(t, err)

	_, err = Parse(in)
	var unknown *UnknownTypeError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "Unknown message type: DANCE", err.Error())
}

func TestTimestampFormat(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 891_000_000, time.FixedZone("X", 3600))
	require.Equal(t, "2025-03-04T04:06:07.891Z", Timestamp(ts))
}
