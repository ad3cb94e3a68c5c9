package chain

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-01-01T00:00:00Z", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2024-01-01T12:30:45.123456Z", want: time.Date(2024, 1, 1, 12, 30, 45, 123456000, time.UTC)},
		{in: "2024-01-01T12:30:45", want: time.Date(2024, 1, 1, 12, 30, 45, 0, time.UTC)},
		{in: "2024-01-01T02:00:00+02:00", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: "", wantErr: true},
		{in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp() = %v, want %v", got, tt.want)
			}
		})
	}
}
