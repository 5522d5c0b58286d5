// Package feed publishes refreshed station records to NATS so downstream
// services can follow dataset updates without polling the database.
package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"fcc_stations/internal/station"
)

// SubjectPrefix is the root of the per-service subjects, e.g. "stations.fm".
const SubjectPrefix = "stations"

// Publisher writes station records to a NATS connection.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials the NATS server at url.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("fcc_stations"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	_ = p.nc.Flush()
	p.nc.Close()
}

// Publish sends one station as JSON to its per-service subject.
func (p *Publisher) Publish(st *station.Station) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal station: %w", err)
	}

	subject := SubjectPrefix + "." + strings.ToLower(string(st.Service))
	if err := p.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", st.CallSign, err)
	}
	return nil
}

// PublishAll sends a batch, counting per-record failures instead of
// aborting, mirroring the parser's line isolation.
func (p *Publisher) PublishAll(stations []station.Station) (published, failed int) {
	for i := range stations {
		if err := p.Publish(&stations[i]); err != nil {
			failed++
			continue
		}
		published++
	}
	return published, failed
}
