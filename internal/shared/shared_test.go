package shared

import "testing"

func TestMaskSecret(t *testing.T) {
	tc := []struct {
		name   string
		secret string
		want   string
	}{
		{
			name:   "long secret keeps edges",
			secret: "sk_1234567890abcdef",
			want:   "sk_12345...cdef",
		},
		{
			name:   "short secret fully masked",
			secret: "short",
			want:   "***",
		},
		{
			name:   "boundary length fully masked",
			secret: "123456789012",
			want:   "***",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskSecret(tt.secret)
			if got != tt.want {
				t.Errorf("MaskSecret() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == "" || b == "" {
		t.Fatal("expected non-empty IDs")
	}
	if a == b {
		t.Error("expected unique IDs")
	}
}

func TestMarshalJSON(t *testing.T) {
	v := map[string]int{"count": 3}

	compact, err := MarshalJSON(v, false)
	if err != nil {
		t.Fatalf("compact marshal failed: %v", err)
	}
	if string(compact) != `{"count":3}` {
		t.Errorf("unexpected compact output: %s", compact)
	}

	pretty, err := MarshalJSON(v, true)
	if err != nil {
		t.Fatalf("pretty marshal failed: %v", err)
	}
	if len(pretty) <= len(compact) {
		t.Error("expected pretty output to be longer than compact")
	}
}
