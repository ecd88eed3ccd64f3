package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/slowvak/midel/internal/publication"
)

func TestAudit(t *testing.T) {
	c, warnings, err := publication.Parse([]byte(`[
		{"year": 2024, "publications": [
			{"id": "x", "title": "Same Title", "url": "https://a", "type": "journal", "status": "published"},
			{"id": "x", "title": " same title ", "url": "https://b", "type": "poster", "status": "published"}
		]},
		{"year": 2024, "publications": [
			{"id": "y", "url": "https://c", "type": "journal", "status": "retracted"}
		]}
	]`))
	if err != nil {
		t.Fatal(err)
	}

	var kinds []string
	for _, f := range Audit(c, warnings) {
		kinds = append(kinds, f.Kind)
	}
	want := []string{
		FindingMissingField,
		FindingDuplicateYear,
		FindingDuplicateID,
		FindingDuplicateTitle,
		FindingUnknownType,
		FindingUnknownStatus,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("finding kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestAudit_Clean(t *testing.T) {
	if got := Audit(twoGroups(t), nil); len(got) != 0 {
		t.Errorf("Audit() = %+v, want no findings", got)
	}
}

func TestAudit_DuplicateIDsListed(t *testing.T) {
	c := publication.Catalog{
		{Year: publication.CalendarYear(2023), Publications: []publication.Record{
			{ID: "dup", Title: "One"},
			{ID: "dup", Title: "Two"},
		}},
	}
	got := Audit(c, nil)
	if len(got) != 1 {
		t.Fatalf("Audit() = %+v, want one finding", got)
	}
	if diff := cmp.Diff([]string{"dup", "dup"}, got[0].IDs); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}
