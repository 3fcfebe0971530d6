package download

import "testing"

func TestParsePercent(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"45.3", 45.3},
		{"45.3%", 45.3},
		{"\x1b[0;94m 12.5%\x1b[0m", 12.5},
		{"100%", 100},
		{"150%", 100},
		{"", 0},
		{"garbage", 0},
		{"N/A", 0},
	}
	for _, c := range cases {
		if got := ParsePercent(c.in); got != c.want {
			t.Fatalf("ParsePercent(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseProgressLine(t *testing.T) {
	p, ok := parseProgressLine("[download]  45.3% of 10.55MiB at 1.23MiB/s ETA 00:05")
	if !ok {
		t.Fatal("expected progress line to parse")
	}
	if p.Percent != 45.3 {
		t.Fatalf("percent = %v, want 45.3", p.Percent)
	}
	if p.Speed != "1.23MiB/s" {
		t.Fatalf("speed = %q", p.Speed)
	}
	if p.ETA != "00:05" {
		t.Fatalf("eta = %q", p.ETA)
	}
}

func TestParseProgressLineDestination(t *testing.T) {
	p, ok := parseProgressLine("[download] Destination: videos/My Clip [abc123].mp4")
	if !ok {
		t.Fatal("expected destination line to parse")
	}
	if p.Filename != "videos/My Clip [abc123].mp4" {
		t.Fatalf("filename = %q", p.Filename)
	}
}

func TestParseProgressLineNonProgress(t *testing.T) {
	for _, line := range []string{
		"[youtube] abc123: Downloading webpage",
		"random output",
		"",
	} {
		if _, ok := parseProgressLine(line); ok {
			t.Fatalf("line %q should not parse as progress", line)
		}
	}
}

func TestParseProgressLineStripsANSI(t *testing.T) {
	p, ok := parseProgressLine("\x1b[1m[download]  80.0% of 5.00MiB at 2.00MiB/s ETA 00:01\x1b[0m\r")
	if !ok {
		t.Fatal("expected ANSI-wrapped progress line to parse")
	}
	if p.Percent != 80.0 {
		t.Fatalf("percent = %v, want 80", p.Percent)
	}
}
