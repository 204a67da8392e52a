package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testManifest = `id: test-catalog
version: "1.0"
locale: vi-VN
subjects:
  - id: math
    name: Toán
    topics: ["Hàm số bậc nhất", "Hệ phương trình"]
  - id: physics
    name: Vật lý
    topics: ["Định luật Ôm"]
palettes:
  - id: default
    name: Mặc định
    colors: ["#FCA5A5", "#fff"]
    description: Màu pastel
abbreviations:
  - key: pt
    expansions: ["phương trình"]
`

func setupRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry(dir)
	if err := reg.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return reg, dir
}

func TestRegistryLoad(t *testing.T) {
	reg, _ := setupRegistry(t)

	info := reg.Info()
	if info.ID != "test-catalog" {
		t.Errorf("ID = %q, want test-catalog", info.ID)
	}
	if info.Subjects != 2 || info.Topics != 3 || info.Palettes != 1 {
		t.Errorf("Info = %+v, want 2 subjects, 3 topics, 1 palette", info)
	}

	c := reg.Current()
	if s, ok := c.Subject("math"); !ok || s.Name != "Toán" {
		t.Errorf("Subject(math) = %v, %v", s, ok)
	}
	if s, ok := c.SubjectByName("Vật lý"); !ok || s.ID != "physics" {
		t.Errorf("SubjectByName(Vật lý) = %v, %v", s, ok)
	}
	if p, ok := c.PaletteByName("Mặc định"); !ok || p.ID != "default" {
		t.Errorf("PaletteByName = %v, %v", p, ok)
	}
	got, err := c.Search("math", "pt")
	if err != nil || len(got) != 1 || got[0] != "Hệ phương trình" {
		t.Errorf("Search(math, pt) = %v, %v", got, err)
	}
}

func TestRegistryDefault(t *testing.T) {
	reg := NewRegistry("")
	if err := reg.Load(); err != nil {
		t.Fatalf("Load default: %v", err)
	}
	info := reg.Info()
	if info.Subjects != 13 {
		t.Errorf("Subjects = %d, want 13", info.Subjects)
	}
	if info.Palettes != 5 {
		t.Errorf("Palettes = %d, want 5", info.Palettes)
	}
	c := reg.Current()
	if first := c.Subjects()[0]; first.ID != "math" {
		t.Errorf("first subject = %q, want math (catalog order)", first.ID)
	}
	if first := c.Palettes()[0]; first.ID != "default" {
		t.Errorf("first palette = %q, want default", first.ID)
	}
	if got := c.Abbreviations()["hpt"]; len(got) != 1 || got[0] != "hệ phương trình" {
		t.Errorf("abbreviation hpt = %v", got)
	}
}

func TestReload(t *testing.T) {
	reg, dir := setupRegistry(t)
	before := reg.Current()

	updated := strings.Replace(testManifest, `topics: ["Định luật Ôm"]`, `topics: ["Định luật Ôm", "Điện trở"]`, 1)
	if err := os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if reg.Info().Topics != 4 {
		t.Errorf("after reload: %d topics, want 4", reg.Info().Topics)
	}
	s, _ := before.Subject("physics")
	if len(s.Topics) != 1 {
		t.Errorf("published catalog changed on reload: %v", s.Topics)
	}
}

func TestReload_KeepsCatalogOnError(t *testing.T) {
	reg, dir := setupRegistry(t)
	if err := os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte("id: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := reg.Reload(); err == nil {
		t.Fatal("Reload of broken manifest returned no error")
	}
	if reg.Info().ID != "test-catalog" {
		t.Errorf("catalog replaced after failed reload: %+v", reg.Info())
	}
}

func TestLoad_MissingManifest(t *testing.T) {
	reg := NewRegistry(t.TempDir())
	if err := reg.Load(); err == nil {
		t.Fatal("Load without catalog.yaml returned no error")
	}
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing id", "subjects: []", "missing id"},
		{"duplicate subject", "id: x\nsubjects:\n  - {id: a, name: A, topics: [t]}\n  - {id: a, name: B, topics: [u]}", "duplicate id"},
		{"empty topics", "id: x\nsubjects:\n  - {id: a, name: A, topics: []}", "no topics"},
		{"duplicate palette", "id: x\npalettes:\n  - {id: p, colors: []}\n  - {id: p, colors: []}", "duplicate id"},
		{"bad color", "id: x\npalettes:\n  - {id: p, colors: [red]}", "invalid color"},
		{"empty expansion", "id: x\nabbreviations:\n  - {key: pt, expansions: [\"\"]}", "empty expansion"},
		{"no expansions", "id: x\nabbreviations:\n  - {key: pt}", "no expansions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseManifest error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCatalogSearch_UnknownSubject(t *testing.T) {
	reg, _ := setupRegistry(t)
	_, err := reg.Current().Search("chemistry", "")
	if !errors.Is(err, ErrUnknownSubject) {
		t.Errorf("err = %v, want ErrUnknownSubject", err)
	}
}
