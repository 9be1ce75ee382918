package util

import "testing"

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"+380501112233", "+380501112233"},
		{"380501112233", "+380501112233"},
		{"0501112233", "+380501112233"},
		{"00380501112233", "+380501112233"},
		{" 050 111-22-33 ", "+380501112233"},
		{"(050) 111 22 33", "+380501112233"},
		{"", ""},
	}

	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidPhone(t *testing.T) {
	t.Parallel()

	valid := []string{"+380501112233", "+380671234567"}
	for _, s := range valid {
		if !ValidPhone(s) {
			t.Errorf("ValidPhone(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "+380", "050111", "not-a-number", "+3805011122334455"}
	for _, s := range invalid {
		if ValidPhone(s) {
			t.Errorf("ValidPhone(%q) = true, want false", s)
		}
	}
}
