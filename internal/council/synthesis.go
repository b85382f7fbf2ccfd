package council

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pricelens/backend/internal/models"
)

// recommendationScore maps the enum to its ordinal weight.
func recommendationScore(rec string) int {
	switch rec {
	case models.RecStronglySupport:
		return 2
	case models.RecSupport:
		return 1
	case models.RecOppose:
		return -1
	case models.RecStronglyOppose:
		return -2
	default:
		return 0
	}
}

// Synthesize folds the four views into one verdict. Total and pure: the same
// views always produce the same consensus.
//
// strong:   all four agree in sign, at least two at full strength
// moderate: all four agree in sign
// weak:     a strict 3-of-4 majority agrees in sign
// divided:  anything else (neutral views carry no sign)
func Synthesize(views []models.AgentView) models.CouncilRecommendation {
	var positive, negative, strongMagnitude int
	for _, v := range views {
		score := recommendationScore(v.Recommendation)
		if score > 0 {
			positive++
		}
		if score < 0 {
			negative++
		}
		if score == 2 || score == -2 {
			strongMagnitude++
		}
	}

	consensus := models.ConsensusDivided
	switch {
	case (positive == len(views) || negative == len(views)) && strongMagnitude >= 2:
		consensus = models.ConsensusStrong
	case positive == len(views) || negative == len(views):
		consensus = models.ConsensusModerate
	case positive == 3 || negative == 3:
		consensus = models.ConsensusWeak
	}

	return models.CouncilRecommendation{
		Consensus:      consensus,
		ReasoningChain: reasoningChain(views),
		TradeOffs:      tradeOffs(views),
		Summary:        summarize(consensus, positive, negative, len(views)),
	}
}

func reasoningChain(views []models.AgentView) []string {
	chain := make([]string, 0, len(views))
	for _, v := range views {
		chain = append(chain, fmt.Sprintf("%s (%s): %s", v.Perspective, v.Recommendation, v.Reasoning))
	}
	return chain
}

// tradeOffs collects cost-flavored key points once at least one view
// supports: a supported option whose own council names churn or complexity
// costs carries those as explicit trade-offs, not a numeric conflict score.
func tradeOffs(views []models.AgentView) []string {
	anySupport := false
	for _, v := range views {
		if recommendationScore(v.Recommendation) > 0 {
			anySupport = true
			break
		}
	}
	if !anySupport {
		return nil
	}

	var out []string
	seen := map[string]bool{}
	for _, v := range views {
		for _, point := range v.KeyPoints {
			lower := strings.ToLower(point)
			if !strings.Contains(lower, "churn") && !strings.Contains(lower, "complexity") {
				continue
			}
			if seen[point] {
				continue
			}
			seen[point] = true
			out = append(out, point)
		}
	}
	return out
}

func summarize(consensus string, positive, negative, total int) string {
	switch consensus {
	case models.ConsensusStrong, models.ConsensusModerate:
		direction := "for"
		if negative == total {
			direction = "against"
		}
		return fmt.Sprintf("Council is unanimous %s with %s conviction.", direction, consensus)
	case models.ConsensusWeak:
		return fmt.Sprintf("A %d-%d majority carries the council.", max(positive, negative), total-max(positive, negative))
	default:
		return "Council is divided; no clear mandate."
	}
}

var consensusRank = map[string]int{
	models.ConsensusStrong:   3,
	models.ConsensusModerate: 2,
	models.ConsensusWeak:     1,
	models.ConsensusDivided:  0,
}

// RankOptions orders options by consensus level, ties broken by expected ARR
// change descending, and returns the ordered option ids. Input order never
// affects the result.
func RankOptions(options []models.PricingOption, evaluations []models.CouncilEvaluation) []string {
	evalByOption := map[string]models.CouncilEvaluation{}
	for _, e := range evaluations {
		evalByOption[e.OptionID] = e
	}

	ranked := make([]models.PricingOption, len(options))
	copy(ranked, options)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri := consensusRank[evalByOption[ranked[i].ID].Recommendation.Consensus]
		rj := consensusRank[evalByOption[ranked[j].ID].Recommendation.Consensus]
		if ri != rj {
			return ri > rj
		}
		if ranked[i].Impact.ExpectedARRChange != ranked[j].Impact.ExpectedARRChange {
			return ranked[i].Impact.ExpectedARRChange > ranked[j].Impact.ExpectedARRChange
		}
		return ranked[i].ID < ranked[j].ID
	})

	ids := make([]string, 0, len(ranked))
	for _, opt := range ranked {
		ids = append(ids, opt.ID)
	}
	return ids
}
