package randx

import "testing"

func TestAdmissionCode(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		code, err := AdmissionCode()
		if err != nil {
			t.Fatalf("AdmissionCode failed: %v", err)
		}

		if !IsValidAdmissionCode(code) {
			t.Errorf("Generated code %q fails its own validation", code)
		}

		if _, dup := seen[code]; dup {
			t.Errorf("Duplicate admission code generated: %q", code)
		}
		seen[code] = struct{}{}
	}
}

func TestIsValidAdmissionCode(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"A1b2C3d4", true},
		{"00000000", true},
		{"short", false},
		{"toolongcode", false},
		{"A1b2C3d!", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := IsValidAdmissionCode(tc.code); got != tc.want {
			t.Errorf("IsValidAdmissionCode(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestMessageIDUniqueness(t *testing.T) {
	a := MessageID()
	b := MessageID()

	if a == "" || b == "" {
		t.Fatal("MessageID returned empty string")
	}
	if a == b {
		t.Errorf("Two message ids collided: %q", a)
	}
}
