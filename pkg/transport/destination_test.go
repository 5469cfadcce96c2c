package transport

import "testing"

func TestParseDestination(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Destination
		wantErr bool
	}{
		{
			name: "http host port",
			raw:  "http://localhost:8126",
			want: Destination{Network: "tcp", BaseURL: "http://localhost:8126"},
		},
		{
			name: "https trailing slash trimmed",
			raw:  "https://collector.example.com:443/",
			want: Destination{Network: "tcp", BaseURL: "https://collector.example.com:443"},
		},
		{
			name: "unix scheme",
			raw:  "unix:///var/run/collector.sock",
			want: Destination{Network: "unix", BaseURL: "http://localhost", Socket: "/var/run/collector.sock"},
		},
		{
			name: "bare socket path",
			raw:  "/var/run/collector.sock",
			want: Destination{Network: "unix", BaseURL: "http://localhost", Socket: "/var/run/collector.sock"},
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			raw:     "ftp://example.com",
			wantErr: true,
		},
		{
			name:    "missing host",
			raw:     "http://",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDestination(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDestination(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParseDestination(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}
