package query

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		q      string
		target string
		want   bool
	}{
		{"", "anything", true},
		{"", "", true},
		{"foo", "a foo b", true},
		{"foo", "bar", false},
		{"FOO", "foo", true},
		{"foo", "FOO", true},
		{"foo AND bar", "foobar", true},
		{"foo AND bar", "foo", false},
		{"foo OR bar", "bar", true},
		{"foo OR bar", "baz", false},
		{"NOT foo", "bar", true},
		{"NOT foo", "foo", false},
		{"(foo OR bar) AND baz", "foobaz", true},
		{"(foo OR bar) AND baz", "foo", false},
		{"foo.bar", "foobar test", true},
		{"foo.bar", "foo test", false},
		{"foo NOT bar", "foo baz", true},
		{"foo NOT bar", "foo bar", false},
		{"Linux.ISO NOT beta", "debian-linux-12.iso", true},
		{"Linux.ISO NOT beta", "debian-linux-13-beta.iso", false},
		{"((a", "xa", true},
		{"OR foo", "foo", true},
		{"linux NOT beta NOT rc", "linux-12.iso", true},
		{"linux NOT beta NOT rc", "linux-12-rc1.iso", false},
		{"linux NOT (beta OR rc)", "linux-beta.iso", true},
		{"NOT (beta) linux", "beta.iso", true},
		{"NOT (beta) linux", "linux-beta.iso", false},
	}
	for _, tt := range tests {
		t.Run(tt.q+"|"+tt.target, func(t *testing.T) {
			if got := Match(tt.q, tt.target); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.q, tt.target, got, tt.want)
			}
		})
	}
}

func TestMatch_OperatorRebindingPrecedence(t *testing.T) {
	flat := Parse("a AND b OR c")
	grouped := Parse("(a AND b) OR c")
	rightAssoc := Parse("a AND (b OR c)")
	for _, target := range []string{"", "a", "b", "c", "ab", "ac", "bc", "abc"} {
		if Matches(flat, target) != Matches(grouped, target) {
			t.Errorf("target %q: %q and %q disagree", target, "a AND b OR c", "(a AND b) OR c")
		}
	}
	// "c" alone separates the two readings.
	if !Matches(flat, "c") || Matches(rightAssoc, "c") {
		t.Error("a AND b OR c must bind as (a AND b) OR c")
	}
}

func TestMatches_NotIsNand(t *testing.T) {
	n := not(Term("a"), Term("b"))
	tests := []struct {
		target string
		want   bool
	}{
		{"x", true},
		{"a", true},
		{"b", true},
		{"ab", false},
	}
	for _, tt := range tests {
		if got := Matches(n, tt.target); got != tt.want {
			t.Errorf("NOT(a, b) on %q = %v, want %v", tt.target, got, tt.want)
		}
	}
}

func TestMatches_EmptyGroups(t *testing.T) {
	for _, op := range []Operator{And, Or, Not} {
		g := &Group{Op: op}
		got := Matches(g, "x")
		// OR over nothing has no satisfied child; NOT over nothing negates a vacuous AND.
		want := op == And
		if got != want {
			t.Errorf("empty %s group = %v, want %v", op, got, want)
		}
	}
	if !Matches(&Group{Op: "XOR"}, "x") {
		t.Error("unknown operator should fall through to true")
	}
}

func TestCompile(t *testing.T) {
	q := Compile("(foo OR bar) NOT baz")
	if q.Raw() != "(foo OR bar) NOT baz" {
		t.Errorf("Raw() = %q", q.Raw())
	}
	if !q.Match("xfoox") || q.Match("foo baz") {
		t.Error("compiled query matched incorrectly")
	}
	if got, want := q.Terms(), []string{"foo", "bar", "baz"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
	if got := q.String(); got != "(foo OR bar) AND NOT baz" {
		t.Errorf("String() = %q", got)
	}
}

func TestFilter(t *testing.T) {
	names := []string{"ubuntu.iso", "debian.iso", "ubuntu.txt", "fedora.iso"}
	got := Filter(Compile("iso NOT debian"), names)
	want := []string{"ubuntu.iso", "fedora.iso"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter = %v, want %v", got, want)
	}
	if got := Filter(Compile(""), nil); len(got) != 0 {
		t.Errorf("Filter on nil candidates = %v", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		q    string
		want string
	}{
		{"", ""},
		{"foo", "foo"},
		{"foo.bar", "foo AND bar"},
		{"NOT foo", "NOT foo"},
		{"a AND b OR c", "(a AND b) OR c"},
		{"foo OR bar baz", "(foo OR bar) AND baz"},
	}
	for _, tt := range tests {
		if got := Format(Parse(tt.q)); got != tt.want {
			t.Errorf("Format(Parse(%q)) = %q, want %q", tt.q, got, tt.want)
		}
	}
	if got := Format(not(Term("a"), Term("b"))); got != "NOT (a AND b)" {
		t.Errorf("multi-child NOT = %q", got)
	}
}

func TestGroupJSON(t *testing.T) {
	b, err := json.Marshal(Parse("foo NOT bar"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"AND","nodes":["foo",{"type":"NOT","nodes":["bar"]}]}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
	b, _ = json.Marshal(Parse(""))
	if string(b) != `{"type":"AND","nodes":[]}` {
		t.Errorf("empty json = %s", b)
	}
}
