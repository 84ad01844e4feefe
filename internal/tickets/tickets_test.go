package tickets

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.NotContains(t, seen, id)
		seen[id] = struct{}{}
	}
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Payload
		wantErr bool
	}{
		{
			name: "full payload",
			raw:  "TICKET:TKT-ABC|EVENT:7|PARTICIPANT:9",
			want: Payload{TicketID: "TKT-ABC", EventID: 7, ParticipantID: 9},
		},
		{
			name: "bare ticket id",
			raw:  "  TKT-ABC  ",
			want: Payload{TicketID: "TKT-ABC"},
		},
		{
			name: "ticket only segment",
			raw:  "TICKET:TKT-ABC",
			want: Payload{TicketID: "TKT-ABC"},
		},
		{name: "empty", raw: "", wantErr: true},
		{name: "bad event id", raw: "TICKET:TKT-ABC|EVENT:x", wantErr: true},
		{name: "missing ticket", raw: "TICKET:|EVENT:1", wantErr: true},
		{name: "garbage with delimiters", raw: "foo|bar", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePayload(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	p := Payload{TicketID: NewID(), EventID: 3, ParticipantID: 11}

	got, err := ParsePayload(p.Encode())
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestRenderPNG(t *testing.T) {
	png, err := RenderPNG(Payload{TicketID: "TKT-1", EventID: 1, ParticipantID: 2})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
