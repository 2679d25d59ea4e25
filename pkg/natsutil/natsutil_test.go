package natsutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

type job struct {
	CollectionURL string `json:"collection_url"`
	Limit         int    `json:"limit"`
}

func TestPublishRoundTrip(t *testing.T) {
	nc := startTestNATS(t)

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("catalog.test", ch)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	err = Publish(context.Background(), nc, "catalog.test", job{CollectionURL: "https://shop.example/collections/all", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-ch:
		var j job
		if err := json.Unmarshal(msg.Data, &j); err != nil {
			t.Fatal(err)
		}
		if j.CollectionURL != "https://shop.example/collections/all" || j.Limit != 10 {
			t.Fatalf("unexpected job: %+v", j)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSubscribeTyped(t *testing.T) {
	nc := startTestNATS(t)

	ch := make(chan job, 1)
	sub, err := Subscribe(nc, "catalog.typed", func(_ context.Context, j job) {
		ch <- j
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	if err := Publish(context.Background(), nc, "catalog.typed", job{Limit: 42}); err != nil {
		t.Fatal(err)
	}

	select {
	case j := <-ch:
		if j.Limit != 42 {
			t.Fatalf("unexpected: %+v", j)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout")
	}
}

func TestSubscribeDropsMalformed(t *testing.T) {
	nc := startTestNATS(t)

	called := make(chan struct{}, 1)
	sub, err := Subscribe(nc, "catalog.malformed", func(context.Context, job) {
		called <- struct{}{}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	nc.Publish("catalog.malformed", []byte("{bad"))
	nc.Flush()

	select {
	case <-called:
		t.Fatal("handler must not run for malformed data")
	case <-time.After(100 * time.Millisecond):
	}
}
