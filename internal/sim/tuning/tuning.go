package tuning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	// Travel economy.
	DefaultPrice int64  `yaml:"default_price"`
	CurrencyID   string `yaml:"currency_id"`

	// Scene transition.
	StagedTransition bool   `yaml:"staged_transition"`
	StagingSceneID   string `yaml:"staging_scene_id"`
	LoadTimeoutMs    int    `yaml:"load_timeout_ms"`
	LoadPollMs       int    `yaml:"load_poll_ms"`

	// Whether a charge is returned when travel fails after funds were
	// committed (load timeout, post-load entity loss). Off by default;
	// the discrepancy is always logged either way.
	RefundOnFailedArrival bool `yaml:"refund_on_failed_arrival"`

	Resolve ResolveTuning `yaml:"resolve"`
}

// ResolveTuning drives the player entity resolution heuristics.
type ResolveTuning struct {
	PlayerNamePrefixes []string `yaml:"player_name_prefixes"`
	PlayerKeyword      string   `yaml:"player_keyword"`
	PlayerTag          string   `yaml:"player_tag"`
	PlayerComponents   []string `yaml:"player_components"`
	HolderComponents   []string `yaml:"holder_components"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:  "1.0",
		DefaultPrice:     100,
		CurrencyID:       "Silver",
		StagedTransition: true,
		StagingSceneID:   "lowmem_staging",
		LoadTimeoutMs:    30000,
		LoadPollMs:       50,
		Resolve: ResolveTuning{
			PlayerNamePrefixes: []string{"Player", "PC_"},
			PlayerKeyword:      "player",
			PlayerTag:          "Player",
			PlayerComponents:   []string{"PlayerMovement", "PlayerController", "CharacterMotor", "PlayerInput"},
			HolderComponents:   []string{"Inventory", "PlayerInventory", "Wallet"},
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	t.CurrencyID = strings.TrimSpace(t.CurrencyID)
	t.StagingSceneID = strings.TrimSpace(t.StagingSceneID)
	if t.CurrencyID == "" {
		t.CurrencyID = Defaults().CurrencyID
	}
	if t.LoadTimeoutMs <= 0 {
		t.LoadTimeoutMs = Defaults().LoadTimeoutMs
	}
	if t.LoadPollMs <= 0 {
		t.LoadPollMs = Defaults().LoadPollMs
	}
	d := Defaults().Resolve
	if len(t.Resolve.PlayerNamePrefixes) == 0 {
		t.Resolve.PlayerNamePrefixes = d.PlayerNamePrefixes
	}
	if strings.TrimSpace(t.Resolve.PlayerKeyword) == "" {
		t.Resolve.PlayerKeyword = d.PlayerKeyword
	}
	if strings.TrimSpace(t.Resolve.PlayerTag) == "" {
		t.Resolve.PlayerTag = d.PlayerTag
	}
	if len(t.Resolve.PlayerComponents) == 0 {
		t.Resolve.PlayerComponents = d.PlayerComponents
	}
	if len(t.Resolve.HolderComponents) == 0 {
		t.Resolve.HolderComponents = d.HolderComponents
	}
}

func (t Tuning) Validate() error {
	if t.DefaultPrice < 0 {
		return fmt.Errorf("default_price must be >= 0, got %d", t.DefaultPrice)
	}
	if t.StagedTransition && t.StagingSceneID == "" {
		return fmt.Errorf("staged_transition requires staging_scene_id")
	}
	if t.LoadPollMs > t.LoadTimeoutMs {
		return fmt.Errorf("load_poll_ms %d exceeds load_timeout_ms %d", t.LoadPollMs, t.LoadTimeoutMs)
	}
	return nil
}

func (t Tuning) LoadTimeout() time.Duration { return time.Duration(t.LoadTimeoutMs) * time.Millisecond }
func (t Tuning) LoadPoll() time.Duration    { return time.Duration(t.LoadPollMs) * time.Millisecond }
