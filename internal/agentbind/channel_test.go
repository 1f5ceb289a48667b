package agentbind

import "testing"

func TestNormalizeChannelMainMasterMapToGeneral(t *testing.T) {
	for _, in := range []string{"main", "master", "MAIN", "Master"} {
		if got := NormalizeChannel(in); got != "general" {
			t.Errorf("NormalizeChannel(%q) = %q, want general", in, got)
		}
	}
}

func TestNormalizeChannelCollapsesAndTruncates(t *testing.T) {
	got := NormalizeChannel("Feature/Some Very Long Branch Name Here")
	if len(got) > 20 {
		t.Errorf("expected truncated to 20 chars, got %q (len %d)", got, len(got))
	}
	if got != "feature-some-very-lo" {
		t.Errorf("unexpected normalized channel: %q", got)
	}
}

func TestNormalizeChannelIsFixedPoint(t *testing.T) {
	inputs := []string{"main", "Feature/XYZ_123!!", "  weird   spaces  ", "", "---leading-trailing---"}
	for _, in := range inputs {
		once := NormalizeChannel(in)
		twice := NormalizeChannel(once)
		if once != twice {
			t.Errorf("NormalizeChannel not a fixed point for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestNormalizeChannelEmptyYieldsGeneral(t *testing.T) {
	if got := NormalizeChannel(""); got != "general" {
		t.Errorf("expected empty input to map to general, got %q", got)
	}
}

func TestDeriveChannelFromBranchPrefersBranchThenName(t *testing.T) {
	if got := DeriveChannelFromBranch("feature/x", "ignored"); got != "feature-x" {
		t.Errorf("expected branch preferred, got %q", got)
	}
	if got := DeriveChannelFromBranch("", "my session name"); got != "my-session-name" {
		t.Errorf("expected name fallback, got %q", got)
	}
	if got := DeriveChannelFromBranch("", ""); got != "general" {
		t.Errorf("expected general fallback, got %q", got)
	}
}
