package integrity

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestPlanOrphanedProduct(t *testing.T) {
	planner := NewActionPlanner(DefaultOptions())

	id := uuid.New()
	actions := planner.Plan([]LineResult{{
		Line: BundleLineSnapshot{ProductID: id, Name: "Gone"},
		Result: ValidationResult{
			ProductID: id,
			Issues: []Issue{{
				Type:      IssueNotFound,
				Severity:  SeverityError,
				ProductID: id,
			}},
		},
	}})

	var remove, notify, recalc bool
	for _, a := range actions {
		switch a.Type {
		case ActionRemoveOrphan:
			remove = true
			if a.Priority != PriorityHigh || !a.AutoExecutable {
				t.Fatalf("remove_orphan = %+v, want high auto", a)
			}
			if a.ProductID != id {
				t.Fatalf("remove_orphan product = %s, want %s", a.ProductID, id)
			}
		case ActionNotify:
			notify = true
			if !strings.Contains(a.Description, "1 critical") {
				t.Fatalf("notify description = %q, want critical count", a.Description)
			}
		case ActionRecalcTotal:
			recalc = true
		}
	}
	if !remove || !notify || !recalc {
		t.Fatalf("actions = %+v, want remove_orphan, notify and recalc_total", actions)
	}
}

func TestPlanNotifyCountsAffectedProducts(t *testing.T) {
	planner := NewActionPlanner(DefaultOptions())

	first := uuid.New()
	second := uuid.New()
	actions := planner.Plan([]LineResult{
		{
			Result: ValidationResult{
				ProductID: first,
				Issues: []Issue{
					{Type: IssueNotFound, Severity: SeverityError, ProductID: first},
					{Type: IssueInactive, Severity: SeverityError, ProductID: first},
				},
			},
		},
		{
			Result: ValidationResult{
				ProductID: second,
				Issues:    []Issue{{Type: IssueInactive, Severity: SeverityError, ProductID: second}},
			},
		},
	})

	var notify *Action
	for i := range actions {
		if actions[i].Type == ActionNotify {
			notify = &actions[i]
		}
	}
	if notify == nil {
		t.Fatalf("actions = %+v, want notify", actions)
	}
	// Two products are affected even though three error issues exist.
	if !strings.Contains(notify.Description, "2 critical product reference issue(s)") {
		t.Fatalf("notify description = %q, want per-product count", notify.Description)
	}
}

func TestPlanInactiveIsManual(t *testing.T) {
	planner := NewActionPlanner(DefaultOptions())

	id := uuid.New()
	actions := planner.Plan([]LineResult{{
		Result: ValidationResult{
			ProductID: id,
			Issues:    []Issue{{Type: IssueInactive, Severity: SeverityError, ProductID: id}},
		},
	}})

	var found bool
	for _, a := range actions {
		if a.Type == ActionReactivate {
			found = true
			if a.Priority != PriorityMedium || a.AutoExecutable {
				t.Fatalf("reactivate = %+v, want medium manual", a)
			}
		}
	}
	if !found {
		t.Fatalf("actions = %+v, want reactivate", actions)
	}
}

func TestPlanAutoCorrectFlags(t *testing.T) {
	id := uuid.New()
	results := []LineResult{{
		Line: BundleLineSnapshot{ProductID: id, Name: "Tee", BasePriceCents: 1000},
		Result: ValidationResult{
			IsValid:   true,
			ProductID: id,
			Exists:    true,
			IsActive:  true,
			Snapshot:  &ProductSnapshot{ID: id, Name: "Premium Tee", PriceCents: 1200, Active: true},
			Issues: []Issue{
				{Type: IssuePriceMismatch, Severity: SeverityWarning, ProductID: id},
				{Type: IssueNameChanged, Severity: SeverityInfo, ProductID: id},
			},
		},
	}}

	auto := DefaultOptions()
	actions := NewActionPlanner(auto).Plan(results)
	assertAutoExecutable(t, actions, ActionUpdatePrice, true)
	assertAutoExecutable(t, actions, ActionUpdateName, true)

	manual := DefaultOptions()
	manual.AutoCorrectPrices = false
	manual.AutoCorrectNames = false
	actions = NewActionPlanner(manual).Plan(results)
	assertAutoExecutable(t, actions, ActionUpdatePrice, false)
	assertAutoExecutable(t, actions, ActionUpdateName, false)
}

func assertAutoExecutable(t *testing.T, actions []Action, typ ActionType, want bool) {
	t.Helper()
	for _, a := range actions {
		if a.Type == typ {
			if a.AutoExecutable != want {
				t.Fatalf("%s autoExecutable = %v, want %v", typ, a.AutoExecutable, want)
			}
			return
		}
	}
	t.Fatalf("actions = %+v, missing %s", actions, typ)
}

func TestPlanNoIssuesNoActions(t *testing.T) {
	planner := NewActionPlanner(DefaultOptions())

	actions := planner.Plan([]LineResult{{
		Result: ValidationResult{IsValid: true, Exists: true, IsActive: true},
	}})
	if len(actions) != 0 {
		t.Fatalf("actions = %+v, want none", actions)
	}
}

func TestPrioritizeStableOrder(t *testing.T) {
	planner := NewActionPlanner(DefaultOptions())

	first := uuid.New()
	second := uuid.New()
	actions := []Action{
		{Type: ActionUpdateName, ProductID: first, Priority: PriorityLow},
		{Type: ActionUpdatePrice, ProductID: first, Priority: PriorityMedium},
		{Type: ActionRemoveOrphan, ProductID: first, Priority: PriorityHigh},
		{Type: ActionUpdatePrice, ProductID: second, Priority: PriorityMedium},
		{Type: ActionNotify, Priority: PriorityHigh},
	}

	sorted := planner.Prioritize(actions)

	lastRank := -1
	for _, a := range sorted {
		rank := priorityRank(a.Priority)
		if rank < lastRank {
			t.Fatalf("priority order violated: %+v", sorted)
		}
		lastRank = rank
	}

	// Equal priorities keep their input order.
	if sorted[0].Type != ActionRemoveOrphan || sorted[1].Type != ActionNotify {
		t.Fatalf("high actions reordered: %+v", sorted[:2])
	}
	if sorted[2].ProductID != first || sorted[3].ProductID != second {
		t.Fatalf("medium actions reordered: %+v", sorted[2:4])
	}

	// Input slice is untouched.
	if actions[0].Type != ActionUpdateName {
		t.Fatalf("Prioritize mutated its input")
	}
}
