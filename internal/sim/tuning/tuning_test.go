package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	d := Defaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if d.CurrencyID != "Silver" {
		t.Fatalf("currency = %q", d.CurrencyID)
	}
	if !d.StagedTransition || d.StagingSceneID == "" {
		t.Fatalf("staging defaults: %+v", d)
	}
	if d.RefundOnFailedArrival {
		t.Fatal("refund policy must default off")
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	body := `
default_price: 250
currency_id: "Gold"
staged_transition: false
load_timeout_ms: 5000
resolve:
  player_name_prefixes: ["Hero"]
`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tn, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tn.DefaultPrice != 250 || tn.CurrencyID != "Gold" || tn.StagedTransition {
		t.Fatalf("tuning = %+v", tn)
	}
	if tn.LoadTimeout() != 5*time.Second {
		t.Fatalf("timeout = %v", tn.LoadTimeout())
	}
	// Unset knobs fall back to defaults.
	if tn.LoadPoll() != 50*time.Millisecond {
		t.Fatalf("poll = %v", tn.LoadPoll())
	}
	if len(tn.Resolve.PlayerNamePrefixes) != 1 || tn.Resolve.PlayerNamePrefixes[0] != "Hero" {
		t.Fatalf("prefixes = %v", tn.Resolve.PlayerNamePrefixes)
	}
	if tn.Resolve.PlayerKeyword != "player" || len(tn.Resolve.HolderComponents) == 0 {
		t.Fatalf("resolve defaults missing: %+v", tn.Resolve)
	}
}

func TestValidateRejections(t *testing.T) {
	bad := Defaults()
	bad.DefaultPrice = -1
	if err := bad.Validate(); err == nil {
		t.Error("negative price accepted")
	}

	bad = Defaults()
	bad.StagingSceneID = ""
	if err := bad.Validate(); err == nil {
		t.Error("staged transition without staging scene accepted")
	}

	bad = Defaults()
	bad.LoadPollMs = bad.LoadTimeoutMs + 1
	if err := bad.Validate(); err == nil {
		t.Error("poll slower than timeout accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}
