package main

import "testing"

func TestCheck(t *testing.T) {
	status := []byte(`{"history_size":500,"valid_points":0,"framer":{"decoded":12,"rejected":3},"channels":[{"locked":true},{"locked":false}]}`)

	tests := []struct {
		cond    string
		want    bool
		wantErr bool
	}{
		{"$.history_size > 0", true, false},
		{"$.valid_points > 0", false, false},
		{"$.framer.decoded > $.framer.rejected", true, false},
		{"$.channels[0].locked", true, false},
		{"$.history_size", false, true},
		{"$.history_size >", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			got, err := check(status, tt.cond)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCheck_InvalidJSON(t *testing.T) {
	if _, err := check([]byte("not json"), "$.x > 0"); err == nil {
		t.Error("expected error")
	}
}
