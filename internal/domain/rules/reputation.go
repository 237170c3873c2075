package rules

import "github.com/ivankudzin/dealboard/internal/domain/model"

const (
	PointsApprovedOffer   = 10
	PointsRejectedOffer   = -15
	PointsApprovedComment = 2
	PointsRejectedComment = -5
	PointsLikeReceived    = 1
)

const (
	MinLevel = 1
	MaxLevel = 4

	LevelAutoApproveComments = 2
	LevelAutoApproveOffers   = 3
	LevelTrustedVoter        = 4
)

// levelFloors[i] is the lowest score of level i+1.
var levelFloors = [MaxLevel]int{0, 50, 200, 500}

// ReputationScore reduces a full history to a score. It never goes below zero.
func ReputationScore(h model.ReputationHistory) int {
	score := h.ApprovedOffers*PointsApprovedOffer +
		h.RejectedOffers*PointsRejectedOffer +
		h.ApprovedComments*PointsApprovedComment +
		h.RejectedComments*PointsRejectedComment +
		h.LikesReceived*PointsLikeReceived
	if score < 0 {
		return 0
	}
	return score
}

func ReputationLevel(score int) int {
	level := MinLevel
	for i, floor := range levelFloors {
		if score >= floor {
			level = i + 1
		}
	}
	return level
}

func CanAutoApproveComment(level int) bool {
	return level >= LevelAutoApproveComments
}

func CanAutoApproveOffer(level int) bool {
	return level >= LevelAutoApproveOffers
}

func VoteWeight(level int, trustedWeight float64) float64 {
	if level >= LevelTrustedVoter && trustedWeight > 0 {
		return trustedWeight
	}
	return 1
}
