// Command exampleapi demonstrates embedding a Queue behind an HTTP
// façade: POST to enqueue, GET to read back state counts.
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/SirClappington/enq/internal/exampleapp/config"
	"github.com/SirClappington/enq/internal/exampleapp/httpapi"
	"github.com/SirClappington/enq/pool"
	"github.com/SirClappington/enq/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	q, err := queue.Create(ctx, cfg.QueueName, pool.Config{
		DSN:            cfg.PostgresDSN,
		MaxConns:       cfg.PoolMaxConns,
		MinConns:       cfg.PoolMinConns,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		log.Fatalf("queue: %v", err)
	}
	defer q.Close(ctx)

	log.Printf("exampleapi listening on %s", cfg.APIAddr)
	if err := http.ListenAndServe(cfg.APIAddr, httpapi.NewRouter(q)); err != nil {
		log.Fatal(err)
	}
}
