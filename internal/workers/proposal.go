package workers

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
	"github.com/kestrel-aero/charterdesk/internal/rfp"
)

// ProposalType is the proposal analysis worker's pipeline tag.
const ProposalType = "proposal-analysis"

// ProposalRequest pairs the quotes with the request they answer.
type ProposalRequest struct {
	Request rfp.Data `json:"request"`
	Quotes  []Quote  `json:"quotes"`
}

// RankedQuote is one scored offer.
type RankedQuote struct {
	Quote Quote   `json:"quote"`
	Score float64 `json:"score"`
	Notes string  `json:"notes,omitempty"`
}

// ProposalResult is the ranked shortlist plus a one-line recommendation.
type ProposalResult struct {
	Ranked         []RankedQuote `json:"ranked"`
	Recommendation string        `json:"recommendation"`
}

// Proposal ranks marketplace quotes against the request. Scoring is
// deterministic so the same quotes always rank the same way.
type Proposal struct {
	*agent.Base
	logger *zap.Logger
}

func NewProposal(logger *zap.Logger) *Proposal {
	return &Proposal{Base: agent.NewBase(ProposalType, logger), logger: logger}
}

// Execute scores and ranks the quotes in the payload.
func (w *Proposal) Execute(ctx context.Context, tc *agent.TaskContext) *agent.Result {
	return w.Run(ctx, tc, func(ctx context.Context, tc *agent.TaskContext) (any, error) {
		var req ProposalRequest
		if err := decodePayload(tc, &req); err != nil {
			return nil, err
		}
		if len(req.Quotes) == 0 {
			return nil, &agent.TaskError{
				Message: "no quotes to analyze",
				Code:    "validation",
				Source:  ProposalType,
			}
		}
		return Rank(req.Request, req.Quotes), nil
	})
}

// Rank scores quotes on aircraft fit, price, and budget adherence.
// Exposed as a plain function so the scoring is testable without a
// worker harness.
func Rank(request rfp.Data, quotes []Quote) ProposalResult {
	rec := rfp.RecommendAircraft(request.Passengers)

	cheapest := quotes[0].Price
	for _, q := range quotes[1:] {
		if q.Price < cheapest {
			cheapest = q.Price
		}
	}

	ranked := make([]RankedQuote, 0, len(quotes))
	for _, q := range quotes {
		fit, notes := fitScore(rec, q, request.Passengers)
		price := priceScore(q.Price, cheapest)
		score := 0.6*fit + 0.4*price
		if request.Budget > 0 && q.Price > request.Budget {
			score *= 0.5
			notes = appendNote(notes, fmt.Sprintf("exceeds the $%.0f budget", request.Budget))
		}
		ranked = append(ranked, RankedQuote{Quote: q, Score: round2(score), Notes: notes})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Quote.Price < ranked[j].Quote.Price
	})

	best := ranked[0].Quote
	return ProposalResult{
		Ranked: ranked,
		Recommendation: fmt.Sprintf("%s from %s at $%.0f is the strongest match for %d passengers.",
			best.Aircraft, best.Operator, best.Price, request.Passengers),
	}
}

// fitScore grades how well the quote's category matches the inferred
// recommendation.
func fitScore(rec rfp.Recommendation, q Quote, passengers int) (float64, string) {
	if q.Seats < passengers {
		return 0.1, fmt.Sprintf("only seats %d of %d passengers", q.Seats, passengers)
	}
	if q.Category == rec.Category {
		return 1.0, ""
	}
	for _, alt := range rec.Alternatives {
		if q.Category == alt {
			return 0.8, ""
		}
	}
	if rfp.CanAccommodate(q.Category, passengers) {
		return 0.6, ""
	}
	return 0.3, "category is oversized for the group"
}

// priceScore rewards quotes close to the cheapest offer.
func priceScore(price, cheapest float64) float64 {
	if price <= cheapest {
		return 1.0
	}
	s := cheapest / price
	if s < 0.2 {
		s = 0.2
	}
	return s
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
