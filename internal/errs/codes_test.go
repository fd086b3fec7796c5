package errs

import "testing"

func TestRegistryCoversAllCodes(t *testing.T) {
	codes := []string{
		SPC001, SPC002, SPC003, SPC004, SPC005, SPC006, SPC007, SPC008, SPC009, SPC010,
		BLD001, BLD002, BLD003, BLD004, BLD005, BLD006,
		ITP001, ITP002, ITP003,
		AVI001,
		DEC001, DEC002,
		SYN001, SYN002, SYN003,
	}
	seen := make(map[string]bool)
	for _, c := range codes {
		if seen[c] {
			t.Fatalf("duplicate code constant: %s", c)
		}
		seen[c] = true
		if _, ok := Registry[c]; !ok {
			t.Fatalf("code %s missing from Registry", c)
		}
	}
	if len(Registry) != len(codes) {
		t.Fatalf("Registry has %d entries, expected %d", len(Registry), len(codes))
	}
}

func TestReportRoundTrip(t *testing.T) {
	err := New(BLD001, "argument count mismatch", map[string]any{"expected": 2, "got": 1})
	rep, ok := AsReport(err)
	if !ok {
		t.Fatal("expected AsReport to find the wrapped report")
	}
	if rep.Code != BLD001 {
		t.Fatalf("got code %s, want %s", rep.Code, BLD001)
	}
	if rep.Phase != "builder" {
		t.Fatalf("got phase %s, want builder", rep.Phase)
	}
	js, jerr := rep.ToJSON(true)
	if jerr != nil {
		t.Fatalf("ToJSON failed: %v", jerr)
	}
	if js == "" {
		t.Fatal("expected non-empty JSON")
	}
}
