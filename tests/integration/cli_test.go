package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestList(t *testing.T) {
	siteDir := setupTestSite(t)

	output, code := runMidel(t, siteDir, "list")
	if code != 0 {
		t.Fatalf("list exited %d", code)
	}
	var result struct {
		Total    int `json:"total"`
		Visible  int `json:"visible"`
		Sections []struct {
			Heading string `json:"heading"`
			Items   []struct {
				ID     string `json:"id"`
				Active bool   `json:"active"`
			} `json:"items"`
		} `json:"sections"`
	}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if result.Total != 3 || result.Visible != 3 {
		t.Errorf("total/visible = %d/%d, want 3/3", result.Total, result.Visible)
	}
	if len(result.Sections) != 2 || result.Sections[0].Heading != "2024" || result.Sections[1].Heading != "Older" {
		t.Fatalf("unexpected sections: %+v", result.Sections)
	}
	if result.Sections[0].Items[1].Active {
		t.Error("in-process entry should not be active")
	}

	output, code = runMidel(t, siteDir, "list", "--status", "in_process")
	if code != 0 {
		t.Fatalf("filtered list exited %d", code)
	}
	if !strings.Contains(output, "2024_jones_segmentation") || strings.Contains(output, "2019_lee_radiomics") {
		t.Errorf("status filter not applied:\n%s", output)
	}

	if _, code := runMidel(t, siteDir, "list", "--status", "retracted"); code != 1 {
		t.Errorf("invalid status exit = %d, want 1", code)
	}
}

func TestMissingCatalog(t *testing.T) {
	siteDir := setupTestSite(t)
	if err := os.Remove(filepath.Join(siteDir, "assets", "html", "publications.json")); err != nil {
		t.Fatal(err)
	}
	if _, code := runMidel(t, siteDir, "list"); code != 3 {
		t.Errorf("list exit = %d, want 3", code)
	}
}

func TestCheck(t *testing.T) {
	siteDir := setupTestSite(t)

	output, code := runMidel(t, siteDir, "check", "--strict")
	if code != 0 {
		t.Fatalf("check on a clean catalog exited %d: %s", code, output)
	}

	broken := `[{"year": 2024, "publications": [
		{"id": "x", "title": "Same", "url": "https://a", "type": "journal", "status": "published"},
		{"id": "x", "title": "same", "url": "https://b", "type": "journal", "status": "published"}
	]}]`
	path := filepath.Join(siteDir, "assets", "html", "publications.json")
	if err := os.WriteFile(path, []byte(broken), 0644); err != nil {
		t.Fatal(err)
	}

	output, code = runMidel(t, siteDir, "check", "--strict")
	if code != 3 {
		t.Errorf("strict check exit = %d, want 3", code)
	}
	if !strings.Contains(output, `"duplicate_id"`) || !strings.Contains(output, `"duplicate_title"`) {
		t.Errorf("expected duplicate findings:\n%s", output)
	}
}

func TestExportBibTeX(t *testing.T) {
	siteDir := setupTestSite(t)

	output, code := runMidel(t, siteDir, "export", "--format", "bibtex")
	if code != 0 {
		t.Fatalf("export exited %d", code)
	}
	if !strings.Contains(output, "@misc{2024_smith_deep_learning_for_ct,") {
		t.Errorf("missing active entry:\n%s", output)
	}
	if !strings.Contains(output, `title = {Radiomics \& Friends}`) || !strings.Contains(output, "year = {various}") {
		t.Errorf("older entry not exported as expected:\n%s", output)
	}
	if strings.Contains(output, "2024_jones_segmentation") {
		t.Error("in-process entry must not be exported")
	}
}

func TestLoginAndSubmit(t *testing.T) {
	siteDir := setupTestSite(t)
	submit := []string{"submit",
		"--title", "A New Paper on MRI",
		"--author", "Doe",
		"--year", "2025",
		"--url", "https://example.org/mri",
	}

	if _, code := runMidel(t, siteDir, submit...); code != 4 {
		t.Errorf("submit without login exit = %d, want 4", code)
	}
	if _, code := runMidel(t, siteDir, "login", "unknown-user"); code != 4 {
		t.Errorf("unknown user login exit = %d, want 4", code)
	}

	output, code := runMidel(t, siteDir, "login", "SlowVak")
	if code != 0 {
		t.Fatalf("login exited %d: %s", code, output)
	}

	output, code = runMidel(t, siteDir, submit...)
	if code != 0 {
		t.Fatalf("submit exited %d: %s", code, output)
	}
	var result struct {
		Status string `json:"status"`
		URL    string `json:"url"`
		Body   string `json:"body"`
		Year   string `json:"year_group"`
	}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if !strings.HasPrefix(result.URL, "https://github.com/slowvak/MIDeL/issues/new?") {
		t.Errorf("url = %q", result.URL)
	}
	if result.Year != "2025" || !strings.Contains(result.Body, "@SlowVak") {
		t.Errorf("unexpected issue: %+v", result)
	}

	dup := []string{"submit", "--title", "  deep learning for ct ", "--author", "Smith", "--year", "2024", "--url", "https://example.org/ct"}
	if _, code := runMidel(t, siteDir, dup...); code != 3 {
		t.Errorf("duplicate submit exit = %d, want 3", code)
	}
	if _, code := runMidel(t, siteDir, append(dup, "--confirm-duplicate")...); code != 0 {
		t.Errorf("confirmed duplicate exit = %d, want 0", code)
	}

	if _, code := runMidel(t, siteDir, "logout"); code != 0 {
		t.Fatalf("logout exited %d", code)
	}
	output, _ = runMidel(t, siteDir, "whoami")
	if !strings.Contains(output, `"logged_out"`) {
		t.Errorf("whoami after logout: %s", output)
	}
}

func TestSubmitShortDuplicateTitle(t *testing.T) {
	siteDir := setupTestSite(t)
	catalog := `[{"year": 2023, "publications": [
		{"id": "2023_ng_ai", "title": "AI", "url": "https://example.org/ai", "type": "journal", "status": "published"}
	]}]`
	path := filepath.Join(siteDir, "assets", "html", "publications.json")
	if err := os.WriteFile(path, []byte(catalog), 0644); err != nil {
		t.Fatal(err)
	}
	if _, code := runMidel(t, siteDir, "login", "SlowVak"); code != 0 {
		t.Fatalf("login exited %d", code)
	}

	submit := []string{"submit", "--title", "ai", "--author", "Ng", "--year", "2023", "--url", "https://example.org/ai2"}
	if _, code := runMidel(t, siteDir, submit...); code != 3 {
		t.Errorf("short duplicate submit exit = %d, want 3", code)
	}

	output, code := runMidel(t, siteDir, append(submit, "--confirm-duplicate")...)
	if code != 0 {
		t.Fatalf("confirmed submit exited %d: %s", code, output)
	}
	var result struct {
		Body      string `json:"body"`
		Duplicate bool   `json:"duplicate_override"`
	}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if !result.Duplicate || !strings.Contains(result.Body, "already listed") {
		t.Errorf("override not recorded: %+v", result)
	}
}

func TestImportDryRun(t *testing.T) {
	siteDir := setupTestSite(t)
	csvPath := filepath.Join(siteDir, "new.csv")
	csv := "Title,First Author,Publication Year,DOI\n" +
		"Brand New Study,Garcia,2023,10.1234/new\n" +
		"Deep Learning for CT,Smith,2024,10.1234/dup\n" +
		"No DOI Here,Kim,2021,\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}
	catalogPath := filepath.Join(siteDir, "assets", "html", "publications.json")
	before, err := os.ReadFile(catalogPath)
	if err != nil {
		t.Fatal(err)
	}

	output, code := runMidel(t, siteDir, "import", csvPath, "--dry-run")
	if code != 0 {
		t.Fatalf("import exited %d: %s", code, output)
	}
	var result struct {
		Added   []json.RawMessage `json:"added"`
		Skipped []struct {
			Reason string `json:"reason"`
		} `json:"skipped"`
		Saved bool `json:"saved"`
	}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if len(result.Added) != 1 || len(result.Skipped) != 2 || result.Saved {
		t.Errorf("unexpected import result: %s", output)
	}

	after, err := os.ReadFile(catalogPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("dry run must not modify the catalog")
	}
}

func TestSearch(t *testing.T) {
	siteDir := setupTestSite(t)

	output, code := runMidel(t, siteDir, "search", "RADIOMICS")
	if code != 0 {
		t.Fatalf("search exited %d", code)
	}
	var hits []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(output), &hits); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if len(hits) != 1 || hits[0].ID != "2019_lee_radiomics" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestRenderStatic(t *testing.T) {
	siteDir := setupTestSite(t)
	out := filepath.Join(siteDir, "publications.html")

	if _, code := runMidel(t, siteDir, "render", "-o", out); code != 0 {
		t.Fatalf("render exited %d", code)
	}
	html, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	page := string(html)
	if !strings.Contains(page, "Radiomics &amp; Friends") {
		t.Error("titles should be escaped")
	}
	if strings.Contains(page, `id="filters"`) {
		t.Error("static page should not have filter controls")
	}
}

func TestConfigSetGet(t *testing.T) {
	siteDir := setupTestSite(t)

	if _, code := runMidel(t, siteDir, "config", "issue-repo", "myorg/papers"); code != 0 {
		t.Fatalf("config set exited %d", code)
	}
	output, code := runMidel(t, siteDir, "config", "issue_repo")
	if code != 0 {
		t.Fatalf("config get exited %d", code)
	}
	if !strings.Contains(output, "myorg/papers") {
		t.Errorf("config get = %s", output)
	}
	if _, code := runMidel(t, siteDir, "config", "nope"); code != 2 {
		t.Errorf("unknown key exit = %d, want 2", code)
	}
}
