package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const (
	// JobSubject is the NATS subject for ingestion job requests.
	JobSubject = "catalog.ingest"
	// DLQSubject is the dead letter queue for jobs that keep failing.
	DLQSubject = "catalog.ingest.dlq"
	// MaxJobRetries before a job lands on the DLQ.
	MaxJobRetries = 3
)

// Job asks for one collection to be ingested.
type Job struct {
	CollectionURL string `json:"collection_url"`
	Limit         int    `json:"limit"`
}

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Job     Job    `json:"job"`
	Error   string `json:"error"`
	Retries int    `json:"retries"`
}

// StartConsumer subscribes the controller to ingestion jobs. Jobs whose
// enumeration fails are re-published with an incremented retry count and
// end up on the DLQ after MaxJobRetries. Per-item failures inside a run are
// not retried; they are already isolated in the run report.
func StartConsumer(nc *nats.Conn, c *Controller, log *slog.Logger) (*nats.Subscription, error) {
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(JobSubject, func(msg *nats.Msg) {
		var job Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			log.Error("ingest: job unmarshal failed", "error", err)
			return
		}

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		report, err := c.Run(context.Background(), job.CollectionURL, job.Limit)
		if err == nil {
			log.Info("ingest: job done",
				"collection_url", job.CollectionURL,
				"persisted", report.Persisted,
				"failures", len(report.Failures),
			)
			return
		}

		retries++
		log.Error("ingest: job failed",
			"collection_url", job.CollectionURL,
			"error", err,
			"retry", retries,
		)

		if retries >= MaxJobRetries {
			dlq := dlqMessage{Job: job, Error: err.Error(), Retries: retries}
			data, _ := json.Marshal(dlq)
			if err := nc.Publish(DLQSubject, data); err != nil {
				log.Error("ingest: DLQ publish failed", "error", err)
			}
			return
		}

		retryMsg := nats.NewMsg(JobSubject)
		retryMsg.Data = msg.Data
		retryMsg.Header = nats.Header{}
		retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
		if err := nc.PublishMsg(retryMsg); err != nil {
			log.Error("ingest: retry publish failed", "error", err)
		}
	})
}
