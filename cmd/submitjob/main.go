// Command submitjob is a development utility that inserts a single job
// against a running store, by way of engine.Submitter. It is not a
// production-grade client for the inbound interface, just a way to kick off
// the bundled bakery workflow without writing SQL by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rezkam/taskengine/internal/bakery"
	"github.com/rezkam/taskengine/internal/config"
	"github.com/rezkam/taskengine/internal/domain"
	"github.com/rezkam/taskengine/internal/engine"
	"github.com/rezkam/taskengine/internal/postgres"
	"github.com/rezkam/taskengine/internal/registry"
)

func main() {
	envDSN, _ := config.GetEnv[string]("TASKENGINE_DB_DSN")
	cakeID := flag.String("cake-id", "", "identifier for the cake order (required)")
	priority := flag.Int("priority", domain.DefaultPriority, "priority 1..10, 1 is highest")
	dsn := flag.String("dsn", envDSN, "PostgreSQL connection string")
	flag.Parse()

	if *cakeID == "" {
		fmt.Println("Error: -cake-id is required")
		flag.Usage()
		os.Exit(1)
	}
	if *dsn == "" {
		fmt.Println("Error: PostgreSQL DSN must be provided via -dsn or TASKENGINE_DB_DSN")
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := postgres.NewStore(ctx, postgres.PoolConfig{DSN: *dsn})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	reg := registry.NewBuilder()
	for _, t := range bakery.Tasks() {
		reg.Register(t)
	}

	sub := engine.NewSubmitter(store, reg.Build(), nil)

	in, err := domain.NewResultContext(
		domain.StatusInProgress,
		bakery.NewOrderPayload(*cakeID),
		bakery.PreheatOven,
		time.Now().UTC(),
		false,
		priority,
	)
	if err != nil {
		log.Fatalf("failed to build execution context: %v", err)
	}

	job, err := sub.Submit(ctx, in)
	if err != nil {
		log.Fatalf("failed to submit job: %v", err)
	}

	fmt.Printf("submitted job %s (task=%s, priority=%d)\n", job.ID, job.AssignedTaskName, job.Priority)
}
