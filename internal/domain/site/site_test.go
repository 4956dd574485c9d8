package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQR(t *testing.T) {
	tests := []struct {
		payload string
		want    string
		wantErr bool
	}{
		{payload: `{"client_id":"c-42"}`, want: "c-42"},
		{payload: "liftkeeper://client/c-42", want: "c-42"},
		{payload: "https://app.example.com/clients/c-42?src=qr", want: "c-42"},
		{payload: "  c-42 ", want: "c-42"},
		{payload: "", wantErr: true},
		{payload: `{"name":"x"}`, wantErr: true},
		{payload: "{broken", wantErr: true},
		{payload: "https://example.com", wantErr: true},
		{payload: "two words", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, err := ParseQR(tt.payload)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQR)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
