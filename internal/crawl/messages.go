package crawl

import (
	"encoding/json"
	"fmt"
)

// WorkMessage is the body of one work queue message.
type WorkMessage struct {
	URL            string `json:"url"`
	Depth          int    `json:"depth"`
	DepthLimit     int    `json:"depth_limit"`
	RestrictDomain bool   `json:"restrict_domain"`
}

// ResultMessage is the terminal report a crawl worker publishes after
// finishing an item. Links feed back into the frontier at depth+1.
type ResultMessage struct {
	URL            string   `json:"url"`
	Depth          int      `json:"depth"`
	DepthLimit     int      `json:"depth_limit"`
	RestrictDomain bool     `json:"restrict_domain"`
	Title          string   `json:"title"`
	Text           string   `json:"text"`
	Links          []string `json:"links"`
}

// HeartbeatMessage is the periodic liveness + counters report from a worker.
// Crawler beats carry worker_id and the crawl counters; indexer beats carry
// indexer_id and the indexed counter.
type HeartbeatMessage struct {
	WorkerID  string `json:"worker_id,omitempty"`
	IndexerID string `json:"indexer_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Status    string `json:"status"`
	Crawled   int64  `json:"crawled,omitempty"`
	Uploaded  int64  `json:"uploaded,omitempty"`
	Failed    int64  `json:"failed,omitempty"`
	Indexed   int64  `json:"indexed,omitempty"`
}

// ID returns whichever worker identifier the heartbeat carries.
func (h HeartbeatMessage) ID() string {
	if h.WorkerID != "" {
		return h.WorkerID
	}
	return h.IndexerID
}

// EncodeJSON marshals a message body for the queue.
func EncodeJSON(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return body, nil
}

// DecodeJSON unmarshals a queue message body.
func DecodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
