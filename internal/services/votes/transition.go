package votes

import "github.com/ivankudzin/dealboard/internal/domain/model"

type voteOp int

const (
	opInsert voteOp = iota + 1
	opDelete
	opUpdate
)

type votePlan struct {
	op            voteOp
	applied       int
	upDelta       int
	downDelta     int
	weightedDelta float64
}

// planVote decides the ledger mutation and the matching counter deltas. A
// removed or replaced vote gives back exactly the weight it was stored with.
func planVote(existing *model.Vote, value int, weight float64) votePlan {
	if existing == nil {
		plan := votePlan{op: opInsert, applied: value, weightedDelta: float64(value) * weight}
		bump(&plan, value, 1)
		return plan
	}

	if existing.Value == value {
		plan := votePlan{op: opDelete, applied: 0, weightedDelta: -float64(existing.Value) * existing.Weight}
		bump(&plan, existing.Value, -1)
		return plan
	}

	plan := votePlan{
		op:            opUpdate,
		applied:       value,
		weightedDelta: float64(value)*weight - float64(existing.Value)*existing.Weight,
	}
	bump(&plan, existing.Value, -1)
	bump(&plan, value, 1)
	return plan
}

func bump(plan *votePlan, value, delta int) {
	if value > 0 {
		plan.upDelta += delta
		return
	}
	plan.downDelta += delta
}
