package manager

import "testing"

func TestSameHost(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Build.Example.com.", "build.example.com", true},
		{"[2001:DB8:0::1]", "2001:db8::1", true},
		{" 10.0.0.5 ", "10.0.0.5", true},
		{"", "", true},
		{"10.0.0.5", "10.0.0.6", false},
		{"", "host", false},
	}
	for _, tc := range cases {
		if got := SameHost(tc.a, tc.b); got != tc.want {
			t.Errorf("SameHost(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
