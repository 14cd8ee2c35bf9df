package repo

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestUpdateSetSQL(t *testing.T) {
	var set UpdateSet
	set.Set("name", "Recife")
	set.Set("state", "PE")
	set.Set("name", "Olinda")
	set.Set("description", nil)

	id := uuid.New()
	query, args := set.SQL("cities", id, true, "id")

	if !strings.Contains(query, "SET name = $1, state = $2, description = $3, updated_at = now()") {
		t.Fatalf("unexpected set clause: %s", query)
	}
	if !strings.Contains(query, "WHERE id = $4") {
		t.Fatalf("unexpected where clause: %s", query)
	}
	if len(args) != 4 || args[0] != "Olinda" || args[2] != nil || args[3] != id {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestUpdateSetWithoutTouch(t *testing.T) {
	var set UpdateSet
	set.Set("is_stalled", true)
	query, _ := set.SQL("patient_progress", uuid.New(), false, "id")
	if strings.Contains(query, "updated_at") {
		t.Fatalf("did not expect updated_at in %s", query)
	}
}

func TestClassificationOrdering(t *testing.T) {
	order := []Classification{ClassificationBronze, ClassificationSilver, ClassificationGold, ClassificationDiamond}
	for i := 1; i < len(order); i++ {
		if CompareClassification(order[i-1], order[i]) != -1 {
			t.Fatalf("expected %s < %s", order[i-1], order[i])
		}
		if CompareClassification(order[i], order[i-1]) != 1 {
			t.Fatalf("expected %s > %s", order[i], order[i-1])
		}
	}
	if CompareClassification(ClassificationGold, ClassificationGold) != 0 {
		t.Fatalf("expected gold == gold")
	}
	if Classification("platina").Valid() {
		t.Fatalf("unexpected valid classification")
	}
}

func TestParseCompletionTypeAlias(t *testing.T) {
	got, ok := ParseCompletionType("procedure_closed")
	if !ok || got != CompletionClosedProcedure {
		t.Fatalf("expected alias to map to closed_procedure, got %q", got)
	}
	if _, ok := ParseCompletionType("cancelado"); ok {
		t.Fatalf("expected unknown type to be rejected")
	}
}
