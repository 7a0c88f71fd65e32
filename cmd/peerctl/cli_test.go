package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const testDataDoc = `{
  "students": {
    "alice": {"name": "Alice", "email": "alice@example.edu", "answers": {"Q1": {"text": "a1", "word_count": 10, "char_count": 40, "is_empty": false}}},
    "bob":   {"name": "Bob",   "email": "bob@example.edu",   "answers": {"Q1": {"text": "b1", "word_count": 12, "char_count": 44, "is_empty": false}}},
    "carol": {"name": "Carol", "email": "carol@example.edu", "answers": {"Q1": {"text": "c1", "word_count": 9,  "char_count": 38, "is_empty": false}}},
    "dave":  {"name": "Dave",  "email": "dave@example.edu",  "answers": {"Q1": {"text": "d1", "word_count": 11, "char_count": 41, "is_empty": false}}}
  },
  "questions": {
    "Q1": {"content": "Explain X", "max_score": 20}
  }
}`

// TestCLIPipelineRoundTrip exercises ingest -> assign -> mint -> consensus
// end to end against a throwaway sqlite file, the same sequence
// documented as the batch alternative to "peerctl serve".
func TestCLIPipelineRoundTrip(t *testing.T) {
	dir := t.TempDir()

	dataPath := filepath.Join(dir, "data.json")
	if err := os.WriteFile(dataPath, []byte(testDataDoc), 0644); err != nil {
		t.Fatalf("write data doc: %v", err)
	}

	dbPath := filepath.Join(dir, "peereval.db")
	cfgPath := filepath.Join(dir, "config.toml")
	cfgContent := "[system]\ndb_path = \"" + dbPath + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	configPath = cfgPath
	t.Cleanup(func() { configPath = "" })

	ingestCmd := newIngestCmd()
	ingestCmd.SetArgs([]string{"--data", dataPath})
	if err := ingestCmd.Execute(); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	assignOut := filepath.Join(dir, "assignment.json")
	assignCmd := newAssignCmd()
	assignCmd.SetArgs([]string{"--data", dataPath, "--out", assignOut})
	if err := assignCmd.Execute(); err != nil {
		t.Fatalf("assign: %v", err)
	}

	assignBytes, err := os.ReadFile(assignOut)
	if err != nil {
		t.Fatalf("read assignment output: %v", err)
	}
	var set struct {
		Pairs []interface{} `json:"pairs"`
	}
	if err := json.Unmarshal(assignBytes, &set); err != nil {
		t.Fatalf("decode assignment output: %v", err)
	}
	if len(set.Pairs) != 8 {
		t.Fatalf("expected 8 assignment pairs (4 students * 2 assignments_per_student), got %d", len(set.Pairs))
	}

	mintCmd := newMintCmd()
	mintCmd.SetArgs([]string{"--assignment", assignOut})
	if err := mintCmd.Execute(); err != nil {
		t.Fatalf("mint: %v", err)
	}

	consensusCmd := newConsensusCmd()
	if err := consensusCmd.Execute(); err != nil {
		t.Fatalf("consensus: %v", err)
	}
}

func TestSubcommandNames(t *testing.T) {
	wantUse := map[string]string{
		"ingest":    newIngestCmd().Use,
		"assign":    newAssignCmd().Use,
		"mint":      newMintCmd().Use,
		"consensus": newConsensusCmd().Use,
		"serve":     newServeCmd().Use,
	}
	for name, use := range wantUse {
		if use != name {
			t.Errorf("expected %q subcommand's Use to be %q, got %q", name, name, use)
		}
	}
}
