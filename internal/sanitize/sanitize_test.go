package sanitize

import "testing"

func TestPlain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Editors", "Editors"},
		{"  padded  ", "padded"},
		{"<script>alert(1)</script>name", "name"},
		{"<b>bold</b> name", "bold name"},
		{`<a href="javascript:evil()">click</a>`, "click"},
		{"Tom & Jerry", "Tom & Jerry"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Plain(tc.in); got != tc.want {
			t.Errorf("Plain(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
