package pgstore

import "testing"

func TestPgIdent(t *testing.T) {
	cases := map[string]string{
		"tenant":       `"tenant"`,
		`weird"quote`:  `"weird""quote"`,
		"":             `""`,
	}
	for in, want := range cases {
		if got := pgIdent(in); got != want {
			t.Fatalf("pgIdent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPgFQN(t *testing.T) {
	if got, want := pgFQN("raw.metrics"), `"raw"."metrics"`; got != want {
		t.Fatalf("pgFQN() = %q, want %q", got, want)
	}
	if got, want := pgFQN("metrics"), `"metrics"`; got != want {
		t.Fatalf("pgFQN() = %q, want %q", got, want)
	}
}

func TestMapIdent(t *testing.T) {
	got := mapIdent([]string{"a", "b"})
	want := []string{`"a"`, `"b"`}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("mapIdent() = %v, want %v", got, want)
	}
}
