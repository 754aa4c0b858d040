package questionbank

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultBankQAEngineerHasTwelveQuestions(t *testing.T) {
	qs, ok := Default().Questions("QA Engineer")
	if !ok {
		t.Fatal("QA Engineer missing from default bank")
	}
	if len(qs) != 12 {
		t.Errorf("QA Engineer questions: got %d, want 12", len(qs))
	}
}

func TestBackendKeywordsIncludeScenarioTerms(t *testing.T) {
	kws := Default().Keywords("Backend Engineer")
	want := map[string]bool{"sql": false, "caching": false, "latency": false}
	for _, k := range kws {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("keyword %q missing from Backend Engineer", k)
		}
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	if _, ok := Default().Questions("backend engineer"); !ok {
		t.Error("case-insensitive lookup failed")
	}
}

func TestUnknownRole(t *testing.T) {
	b := Default()
	if _, ok := b.Questions("Astronaut"); ok {
		t.Error("unknown role reported as present")
	}
	if kws := b.Keywords("Astronaut"); len(kws) != 0 {
		t.Errorf("unknown role keywords: got %v, want empty", kws)
	}
	qs := b.QuestionsOrDefault("Astronaut")
	if len(qs) != 1 || qs[0] != DefaultQuestion {
		t.Errorf("QuestionsOrDefault: got %v, want [%q]", qs, DefaultQuestion)
	}
}

func TestQuestionsReturnsCopy(t *testing.T) {
	b := Default()
	qs, _ := b.Questions("QA Engineer")
	qs[0] = "mutated"
	again, _ := b.Questions("QA Engineer")
	if again[0] == "mutated" {
		t.Error("Questions leaked internal slice")
	}
}

func TestLoadMergesOverBuiltins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bank.yaml")
	content := `roles:
  - name: Site Reliability Engineer
    questions:
      - "What is an error budget?"
    keywords: [slo, sli]
  - name: QA Engineer
    questions:
      - "Only one question now."
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing bank: %v", err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if qs, ok := b.Questions("Site Reliability Engineer"); !ok || len(qs) != 1 {
		t.Errorf("new role: got %v, %v", qs, ok)
	}
	if qs, _ := b.Questions("QA Engineer"); len(qs) != 1 {
		t.Errorf("overridden role: got %d questions, want 1", len(qs))
	}
	if _, ok := b.Questions("Backend Engineer"); !ok {
		t.Error("builtin role lost after merge")
	}
}

func TestLoadRejectsNamelessRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	if err := os.WriteFile(path, []byte("roles:\n  - questions: [x]\n"), 0644); err != nil {
		t.Fatalf("writing bank: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for nameless role")
	}
}
