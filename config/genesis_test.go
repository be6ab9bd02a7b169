package config

import "testing"

func TestGenesis_FillDefaults_FillsZeroFields(t *testing.T) {
	g := Genesis{}
	g.FillDefaults()

	if g.GasLimit != DefaultGasLimit {
		t.Errorf("gas limit = %d, want %d", g.GasLimit, DefaultGasLimit)
	}
	if g.Difficulty != DefaultDifficulty {
		t.Errorf("difficulty = %d, want %d", g.Difficulty, DefaultDifficulty)
	}
	if g.Timestamp != DefaultTimestamp {
		t.Errorf("timestamp = %d, want %d", g.Timestamp, DefaultTimestamp)
	}
	if g.ExtraData != DefaultExtraData {
		t.Errorf("extra data = %q, want %q", g.ExtraData, DefaultExtraData)
	}
}

func TestGenesis_FillDefaults_PreservesExplicitFields(t *testing.T) {
	g := Genesis{GasLimit: 1, Difficulty: 2, Timestamp: 3, ExtraData: "custom"}
	g.FillDefaults()

	if g.GasLimit != 1 || g.Difficulty != 2 || g.Timestamp != 3 || g.ExtraData != "custom" {
		t.Errorf("explicit fields were overwritten: %+v", g)
	}
}

func TestGenesis_Validate_ValidAlloc(t *testing.T) {
	g := Genesis{Alloc: map[string]uint64{
		"0x00000000000000000000000000000000000000aa": 1000,
	}}
	if err := g.Validate(); err != nil {
		t.Errorf("expected valid genesis, got: %v", err)
	}
}

func TestGenesis_Validate_InvalidAllocAddress(t *testing.T) {
	g := Genesis{Alloc: map[string]uint64{"not-an-address": 1000}}
	if err := g.Validate(); err == nil {
		t.Error("expected error for malformed alloc address")
	}
}

func TestGenesis_Hash_DeterministicForSameContent(t *testing.T) {
	g1 := Genesis{Number: 0, Timestamp: DefaultTimestamp, ExtraData: DefaultExtraData}
	g2 := Genesis{Number: 0, Timestamp: DefaultTimestamp, ExtraData: DefaultExtraData}

	h1, err := g1.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := g2.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 != h2 {
		t.Error("identical genesis declarations should hash identically")
	}
}

func TestGenesis_Hash_DiffersOnExtraData(t *testing.T) {
	g1 := Genesis{ExtraData: "a"}
	g2 := Genesis{ExtraData: "b"}

	h1, _ := g1.Hash()
	h2, _ := g2.Hash()
	if h1 == h2 {
		t.Error("genesis declarations differing in extra data should hash differently")
	}
}

func TestDefaultGenesisHeaderFields_MatchesConstants(t *testing.T) {
	g := DefaultGenesisHeaderFields()
	if g.GasLimit != DefaultGasLimit || g.Difficulty != DefaultDifficulty ||
		g.Timestamp != DefaultTimestamp || g.ExtraData != DefaultExtraData {
		t.Errorf("DefaultGenesisHeaderFields mismatch: %+v", g)
	}
}
