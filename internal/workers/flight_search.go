package workers

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
	"github.com/kestrel-aero/charterdesk/internal/rfp"
)

// FlightSearchType is the flight search worker's pipeline tag.
const FlightSearchType = "flight-search"

// Quote is one marketplace offer for a trip.
type Quote struct {
	ID       string       `json:"id"`
	Operator string       `json:"operator"`
	Aircraft string       `json:"aircraft"`
	Category rfp.Category `json:"category"`
	Seats    int          `json:"seats"`
	Price    float64      `json:"price"`
}

// Marketplace searches operators for quotes matching a request.
type Marketplace interface {
	Search(ctx context.Context, data rfp.Data) ([]Quote, error)
}

// FlightSearchResult carries the quotes plus the category guidance the
// search was run against.
type FlightSearchResult struct {
	Quotes         []Quote            `json:"quotes"`
	Recommendation rfp.Recommendation `json:"recommendation"`
}

// FlightSearch queries the charter marketplace for a completed request.
type FlightSearch struct {
	*agent.Base
	marketplace Marketplace
	logger      *zap.Logger
}

// NewFlightSearch creates the worker. A nil marketplace gets the
// built-in mock.
func NewFlightSearch(marketplace Marketplace, logger *zap.Logger) *FlightSearch {
	if marketplace == nil {
		marketplace = NewMockMarketplace()
	}
	return &FlightSearch{
		Base:        agent.NewBase(FlightSearchType, logger),
		marketplace: marketplace,
		logger:      logger,
	}
}

// Execute searches the marketplace for the request in the payload.
func (w *FlightSearch) Execute(ctx context.Context, tc *agent.TaskContext) *agent.Result {
	return w.Run(ctx, tc, func(ctx context.Context, tc *agent.TaskContext) (any, error) {
		var data rfp.Data
		if err := decodePayload(tc, &data); err != nil {
			return nil, err
		}
		if data.Departure == "" || data.Arrival == "" || data.Passengers < 1 {
			return nil, &agent.TaskError{
				Message: "flight search requires a route and passenger count",
				Code:    "validation",
				Source:  FlightSearchType,
			}
		}

		quotes, err := w.marketplace.Search(ctx, data)
		if err != nil {
			return nil, err
		}
		w.logger.Info("marketplace search complete",
			zap.String("departure", data.Departure),
			zap.String("arrival", data.Arrival),
			zap.Int("quotes", len(quotes)))
		return FlightSearchResult{
			Quotes:         quotes,
			Recommendation: rfp.RecommendAircraft(data.Passengers),
		}, nil
	})
}

// MockMarketplace generates deterministic quotes from the request so
// the pipeline runs end to end without marketplace credentials. The
// same request always yields the same quotes.
type MockMarketplace struct{}

func NewMockMarketplace() *MockMarketplace { return &MockMarketplace{} }

var mockOperators = []string{"Meridian Air Charter", "Skyline Jets", "NorthStar Aviation", "Pinnacle Air"}

var mockModels = map[rfp.Category][]string{
	rfp.CategoryVeryLight:      {"Phenom 100", "Citation M2"},
	rfp.CategoryTurboprop:      {"King Air 350", "Pilatus PC-12"},
	rfp.CategoryLight:          {"Citation CJ3", "Phenom 300", "Learjet 75"},
	rfp.CategoryMidsize:        {"Citation XLS", "Hawker 800XP", "Learjet 60"},
	rfp.CategorySuperMidsize:   {"Challenger 350", "Citation X", "Praetor 600"},
	rfp.CategoryHeavy:          {"Gulfstream G450", "Falcon 900", "Challenger 650"},
	rfp.CategoryUltraLongRange: {"Gulfstream G650", "Global 7500", "Falcon 8X"},
}

func (m *MockMarketplace) Search(_ context.Context, data rfp.Data) ([]Quote, error) {
	rec := rfp.RecommendAircraft(data.Passengers)
	categories := append([]rfp.Category{rec.Category}, rec.Alternatives...)

	seed := routeSeed(data.Departure, data.Arrival)
	var quotes []Quote
	for i, cat := range categories {
		models := mockModels[cat]
		if len(models) == 0 {
			continue
		}
		model := models[int(seed>>uint(i))%len(models)]
		operator := mockOperators[(int(seed)+i)%len(mockOperators)]
		quotes = append(quotes, Quote{
			ID:       fmt.Sprintf("Q-%06X-%d", seed&0xFFFFFF, i+1),
			Operator: operator,
			Aircraft: model,
			Category: cat,
			Seats:    seatsFor(cat),
			Price:    basePrice(cat) + float64(seed%4000),
		})
	}
	return quotes, nil
}

func routeSeed(departure, arrival string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(departure) + "|" + strings.ToLower(arrival)))
	return h.Sum32()
}

func seatsFor(c rfp.Category) int {
	for _, b := range rfp.Bands {
		if b.Category == c {
			return b.MaxPax
		}
	}
	return 0
}

// basePrice is a rough per-category charter floor, not a real tariff.
func basePrice(c rfp.Category) float64 {
	switch c {
	case rfp.CategoryVeryLight:
		return 9000
	case rfp.CategoryTurboprop:
		return 8000
	case rfp.CategoryLight:
		return 14000
	case rfp.CategoryMidsize:
		return 21000
	case rfp.CategorySuperMidsize:
		return 28000
	case rfp.CategoryHeavy:
		return 42000
	default:
		return 65000
	}
}
