package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	employees "github.com/st-keller/employee-client"
	"github.com/st-keller/employee-client/hal"
	"github.com/st-keller/employee-client/logging"
	"github.com/st-keller/employee-client/pager"
)

func main() {
	logger := logging.MustNewLogger("text", "info")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Defaults point at a local payroll server on :8080
	client, err := employees.New(employees.DefaultConfig(),
		employees.WithLogger(logger),
		employees.WithNotifier(func(msg string) { log.Println(msg) }),
	)
	if err != nil {
		log.Fatalf("failed to create employee client: %v", err)
	}

	// Every committed page is printed
	cancel := client.Holder().Subscribe(func(s *pager.State) {
		log.Printf("page %d of %d (generation %d)", s.Page.Number+1, s.Page.TotalPages, s.Generation)
		for _, e := range s.Employees {
			log.Printf("  %s %s: %s", e.Get("firstName"), e.Get("lastName"), e.Get("description"))
		}
	})
	defer cancel()

	// Loads the first page and subscribes to server events
	if err := client.Start(ctx); err != nil {
		log.Fatalf("failed to start employee client: %v", err)
	}
	defer client.Stop()

	// Example 1: paging
	if err := client.Navigate(ctx, hal.RelLast); err != nil && !errors.Is(err, hal.ErrLinkNotFound) {
		log.Printf("navigate: %v", err)
	}

	// Example 2: an update guarded by the record's ETag
	if s := client.State(); s != nil && len(s.Employees) > 0 {
		err := client.Update(ctx, s.Employees[0], map[string]string{"description": "reviewed"})
		if employees.IsConflict(err) {
			log.Println("someone else changed the record first")
		} else if err != nil {
			log.Printf("update: %v", err)
		}
	}

	// Example 3: call statistics
	for _, h := range client.Tracker().Snapshot() {
		log.Printf("%s: %s, %d calls, p95 %s", h.Host, h.Status, h.TotalCalls, h.P95)
	}

	log.Println("watching for changes, press Ctrl+C to stop")
	<-ctx.Done()
}
