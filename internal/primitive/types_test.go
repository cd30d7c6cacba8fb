package primitive

import (
	"encoding/json"
	"math"
	"testing"
)

func TestKindNamesRoundTrip(t *testing.T) {
	for _, k := range All() {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if len(All()) != Count {
		t.Fatalf("expected %d kinds, got %d", Count, len(All()))
	}
}

func TestParseKindUnknown(t *testing.T) {
	if _, err := ParseKind("melatonin"); err == nil {
		t.Fatal("expected error for unknown primitive")
	}
}

func TestKindAsMapKey(t *testing.T) {
	data, err := json.Marshal(map[Kind]float64{Cortisol: 0.4})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"cortisol":0.4}` {
		t.Fatalf("unexpected JSON: %s", data)
	}
	var back map[Kind]float64
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[Cortisol] != 0.4 {
		t.Fatalf("expected 0.4, got %v", back[Cortisol])
	}
}

func TestVectorOps(t *testing.T) {
	var a, b Vector
	a[Dopamine] = 0.2
	b[Dopamine] = 0.1
	b[Glucose] = -0.3

	sum := a.Add(b)
	if math.Abs(sum[Dopamine]-0.3) > 1e-12 || sum[Glucose] != -0.3 {
		t.Errorf("unexpected sum: %v", sum)
	}
	if got := sum.Scale(2)[Glucose]; got != -0.6 {
		t.Errorf("expected -0.6, got %v", got)
	}
	if (Vector{}).IsZero() != true || sum.IsZero() {
		t.Error("IsZero mismatch")
	}
	m := sum.Map()
	if len(m) != 2 {
		t.Errorf("expected 2 non-zero entries, got %v", m)
	}
}

func TestVectorFinite(t *testing.T) {
	var v Vector
	if !v.Finite() {
		t.Fatal("zero vector should be finite")
	}
	v[Cortisol] = math.Inf(1)
	if v.Finite() {
		t.Fatal("expected non-finite")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1.0, 1.0},
		{1.5, 1.0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := Unit(tt.in); got != tt.want {
			t.Errorf("Unit(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := Clamp(0.9, 0.3, 0.7); got != 0.7 {
		t.Errorf("Clamp upper = %v", got)
	}
}
