package integrity

import (
	"fmt"
	"sort"
)

// LineResult pairs a bundle line with its validation outcome; the planner
// needs the line to describe a correction (old price vs new price and so on).
type LineResult struct {
	Line   BundleLineSnapshot
	Result ValidationResult
}

// ActionPlanner turns validation issues into an ordered remediation plan.
// The issue-to-action mapping is fixed; configuration only decides whether a
// correction may run unattended.
type ActionPlanner struct {
	opts Options
}

func NewActionPlanner(opts Options) *ActionPlanner {
	return &ActionPlanner{opts: opts}
}

// Plan maps each issue in the batch onto its remediation action. When any
// error-severity issue is present, one notify action is appended summarizing
// how many products are critically affected; notify is always surfaced,
// never silently applied.
func (p *ActionPlanner) Plan(results []LineResult) []Action {
	var actions []Action
	var criticalProducts int
	needsRecalc := false

	for _, lr := range results {
		lineCritical := false
		for _, issue := range lr.Result.Issues {
			if issue.Severity == SeverityError {
				lineCritical = true
			}

			switch issue.Type {
			case IssueNotFound:
				actions = append(actions, Action{
					Type:           ActionRemoveOrphan,
					ProductID:      issue.ProductID,
					ProductName:    productName(issue, lr.Line),
					Description:    "remove orphaned product reference from the bundle",
					Priority:       PriorityHigh,
					AutoExecutable: true,
				})
				needsRecalc = true
			case IssueInactive:
				actions = append(actions, Action{
					Type:           ActionReactivate,
					ProductID:      issue.ProductID,
					ProductName:    productName(issue, lr.Line),
					Description:    "reactivate the product or remove it from the bundle",
					Priority:       PriorityMedium,
					AutoExecutable: false,
				})
			case IssuePriceMismatch:
				newPrice := lr.Line.BasePriceCents
				if lr.Result.Snapshot != nil {
					newPrice = lr.Result.Snapshot.PriceCents
				}
				actions = append(actions, Action{
					Type:        ActionUpdatePrice,
					ProductID:   issue.ProductID,
					ProductName: productName(issue, lr.Line),
					Description: fmt.Sprintf("update line price from %d to %d cents",
						lr.Line.BasePriceCents, newPrice),
					Priority:       PriorityMedium,
					AutoExecutable: p.opts.AutoCorrectPrices,
				})
				needsRecalc = true
			case IssueNameChanged:
				newName := lr.Line.Name
				if lr.Result.Snapshot != nil {
					newName = lr.Result.Snapshot.Name
				}
				actions = append(actions, Action{
					Type:           ActionUpdateName,
					ProductID:      issue.ProductID,
					ProductName:    productName(issue, lr.Line),
					Description:    fmt.Sprintf("update line name to %q", newName),
					Priority:       PriorityLow,
					AutoExecutable: p.opts.AutoCorrectNames,
				})
			case IssueStaleTotal:
				needsRecalc = true
			}
		}
		if lineCritical {
			criticalProducts++
		}
	}

	if needsRecalc {
		actions = append(actions, Action{
			Type:           ActionRecalcTotal,
			Description:    "recalculate the bundle total",
			Priority:       PriorityMedium,
			AutoExecutable: true,
		})
	}

	if criticalProducts > 0 {
		actions = append(actions, Action{
			Type:           ActionNotify,
			Description:    fmt.Sprintf("bundle has %d critical product reference issue(s)", criticalProducts),
			Priority:       PriorityHigh,
			AutoExecutable: true,
		})
	}

	return actions
}

// Prioritize orders actions high, medium, low. The sort is stable so actions
// of equal priority keep their planning order.
func (p *ActionPlanner) Prioritize(actions []Action) []Action {
	sorted := make([]Action, len(actions))
	copy(sorted, actions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priorityRank(sorted[i].Priority) < priorityRank(sorted[j].Priority)
	})
	return sorted
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

func productName(issue Issue, line BundleLineSnapshot) string {
	if issue.ProductName != "" {
		return issue.ProductName
	}
	return line.Name
}
