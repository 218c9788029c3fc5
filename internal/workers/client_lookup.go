// Package workers holds the concrete downstream pipeline workers. Each
// one is a thin control layer over an injectable transport so the
// external systems (client directory, flight marketplace, delivery
// channels) can be swapped or mocked.
package workers

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
)

// ClientLookupType is the client lookup worker's pipeline tag.
const ClientLookupType = "client-lookup"

// ClientRecord is one entry in the client directory.
type ClientRecord struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Company           string `json:"company,omitempty"`
	PreferredAircraft string `json:"preferred_aircraft,omitempty"`
	VIP               bool   `json:"vip"`
	PastBookings      int    `json:"past_bookings"`
}

// Directory resolves a client name to their record. A nil record with a
// nil error means the client is unknown, which is a normal outcome.
type Directory interface {
	Lookup(ctx context.Context, name string) (*ClientRecord, error)
}

// ClientLookupRequest is the task payload.
type ClientLookupRequest struct {
	ClientName string `json:"client_name"`
}

// ClientLookupResult is returned whether or not the client was found,
// so downstream workers can branch on Known without a second lookup.
type ClientLookupResult struct {
	Known  bool          `json:"known"`
	Client *ClientRecord `json:"client,omitempty"`
}

// ClientLookup resolves requester names against the client directory.
type ClientLookup struct {
	*agent.Base
	directory Directory
	logger    *zap.Logger
}

// NewClientLookup creates the worker. A nil directory gets the built-in
// static one.
func NewClientLookup(directory Directory, logger *zap.Logger) *ClientLookup {
	if directory == nil {
		directory = NewStaticDirectory()
	}
	return &ClientLookup{
		Base:      agent.NewBase(ClientLookupType, logger),
		directory: directory,
		logger:    logger,
	}
}

// Execute looks the requester up in the directory.
func (w *ClientLookup) Execute(ctx context.Context, tc *agent.TaskContext) *agent.Result {
	return w.Run(ctx, tc, func(ctx context.Context, tc *agent.TaskContext) (any, error) {
		var req ClientLookupRequest
		if err := decodePayload(tc, &req); err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.ClientName) == "" {
			return nil, &agent.TaskError{
				Message: "client_name is required",
				Code:    "validation",
				Source:  ClientLookupType,
			}
		}

		record, err := w.directory.Lookup(ctx, req.ClientName)
		if err != nil {
			return nil, err
		}
		if record == nil {
			w.logger.Info("client not in directory",
				zap.String("client", req.ClientName))
			return ClientLookupResult{Known: false}, nil
		}
		return ClientLookupResult{Known: true, Client: record}, nil
	})
}

// StaticDirectory is the in-memory stand-in for the client spreadsheet.
type StaticDirectory struct {
	records map[string]ClientRecord
}

// NewStaticDirectory seeds a handful of representative clients.
func NewStaticDirectory() *StaticDirectory {
	records := []ClientRecord{
		{Name: "Alexandra Reeves", Email: "a.reeves@reevescapital.com", Company: "Reeves Capital", PreferredAircraft: "midsize", VIP: true, PastBookings: 14},
		{Name: "Marcus Webb", Email: "mwebb@webbindustries.io", Company: "Webb Industries", PastBookings: 3},
		{Name: "Priya Natarajan", Email: "priya@natarajan.ventures", PreferredAircraft: "super_midsize", VIP: true, PastBookings: 22},
		{Name: "Daniel Osei", Email: "daniel.osei@oseigroup.com", Company: "Osei Group", PastBookings: 1},
	}
	byName := make(map[string]ClientRecord, len(records))
	for _, r := range records {
		byName[strings.ToLower(r.Name)] = r
	}
	return &StaticDirectory{records: byName}
}

func (d *StaticDirectory) Lookup(_ context.Context, name string) (*ClientRecord, error) {
	if r, ok := d.records[strings.ToLower(strings.TrimSpace(name))]; ok {
		return &r, nil
	}
	return nil, nil
}
