package prop

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRoundTrip(t *testing.T) {
	p := New()
	p.Set("account", "acct1")
	p.Set("device", "dev1")
	p.Set("cmdtype", "send")
	p.Set("cmdname", "reboot")
	p.Set("arg0", "x y")
	p.Set("arg1", "z")

	line := p.String()
	got := Parse(line)

	for _, key := range p.Keys() {
		if got.Get(key, "<missing>") != p.Get(key, "") {
			t.Errorf("Parse(%q).Get(%q) = %q, want %q", line, key, got.Get(key, ""), p.Get(key, ""))
		}
	}
	if diff := cmp.Diff(p.Keys(), got.Keys()); diff != "" {
		t.Errorf("key order not preserved; diff:\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want map[string]string
	}{
		{
			name: "simple pairs",
			line: "server=acme result=OK000 message=Successful",
			want: map[string]string{"server": "acme", "result": "OK000", "message": "Successful"},
		},
		{
			name: "quoted value with spaces",
			line: `server=acme message="command sent ok"`,
			want: map[string]string{"server": "acme", "message": "command sent ok"},
		},
		{
			name: "bare key",
			line: "server=acme ack",
			want: map[string]string{"server": "acme", "ack": ""},
		},
		{
			name: "empty value",
			line: "result= message=done",
			want: map[string]string{"result": "", "message": "done"},
		},
		{
			name: "leading and trailing whitespace",
			line: "   a=1 b=2  \n",
			want: map[string]string{"a": "1", "b": "2"},
		},
		{
			name: "empty line",
			line: "",
			want: map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tt.line)
			if p.Len() != len(tt.want) {
				t.Errorf("Parse(%q) returned %d pairs, want %d", tt.line, p.Len(), len(tt.want))
			}
			for k, v := range tt.want {
				if !p.Has(k) {
					t.Errorf("Parse(%q) missing key %q", tt.line, k)
					continue
				}
				if got := p.Get(k, ""); got != v {
					t.Errorf("Parse(%q).Get(%q) = %q, want %q", tt.line, k, got, v)
				}
			}
		})
	}
}

func TestGetDefault(t *testing.T) {
	p := Parse("server=acme")
	if got := p.Get("result", "fallback"); got != "fallback" {
		t.Errorf("Get() on absent key = %q, want fallback", got)
	}
}
