package review

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestSpecPatch_IsEmpty(t *testing.T) {
	title := "New"
	if !(SpecPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	if (SpecPatch{Title: &title}).IsEmpty() {
		t.Error("patch with title should not be empty")
	}
	if (SpecPatch{ClearArchivedAt: true}).IsEmpty() {
		t.Error("clearing archivedAt is a change")
	}
}

func TestSpecPatch_Apply(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	orig := Specification{
		ID:             "s1",
		Title:          "Old",
		Owner:          "ana",
		ArchivedAt:     &at,
		PendingTasks:   1,
		ChangeRequests: []ChangeRequest{{ID: "cr1", Status: ChangeRequestOpen}},
	}

	title := "New"
	pending := 0
	url := "https://example.com/spec"
	got := SpecPatch{Title: &title, PendingTasks: &pending, ClearArchivedAt: true, DocURL: &url}.Apply(orig)

	if got.Title != "New" || got.PendingTasks != 0 || got.ArchivedAt != nil || got.Links.DocURL != url {
		t.Errorf("unexpected result: %+v", got)
	}
	if got.Owner != "ana" {
		t.Errorf("untouched field changed: %q", got.Owner)
	}
	if orig.Title != "Old" || orig.ArchivedAt == nil {
		t.Error("Apply modified its input")
	}

	got.ChangeRequests[0].Status = ChangeRequestAddressed
	if orig.ChangeRequests[0].Status != ChangeRequestOpen {
		t.Error("Apply shared change request storage with its input")
	}
}

func TestSpecPatch_Fields(t *testing.T) {
	owner := "bo"
	got := SpecPatch{Owner: &owner, ClearArchivedAt: true}.Fields()
	if !reflect.DeepEqual(got, []string{"owner", "archivedAt"}) {
		t.Errorf("Fields() = %v", got)
	}
}

func TestSpecPatch_MarshalJSON(t *testing.T) {
	var none []ChangeRequest
	data, err := json.Marshal(SpecPatch{ChangeRequests: &none})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"changeRequests":[]`) {
		t.Errorf("expected empty change request list, got %s", data)
	}

	title := "New"
	data, err = json.Marshal(SpecPatch{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"title":"New"}` {
		t.Errorf("unset fields should be omitted, got %s", data)
	}
}
