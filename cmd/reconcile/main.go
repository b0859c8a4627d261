package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/homecook/storefront/internal/backend"
	"github.com/homecook/storefront/internal/config"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/payment"
	"github.com/homecook/storefront/internal/reconcile"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// CLI flags
	list := flag.Bool("list", false, "List unresolved reconciliations")
	all := flag.Bool("all", false, "With -list, include resolved reconciliations")
	retry := flag.String("retry", "", "Retry one reconciliation by ID")
	drain := flag.Bool("drain", false, "Retry every unresolved reconciliation once")
	token := flag.String("token", "", "Backend bearer token (defaults to BACKEND_SERVICE_TOKEN)")
	limit := flag.Int("limit", 100, "Maximum rows to list")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()
	if *token == "" {
		*token = cfg.BackendServiceToken
	}

	if !*list && *retry == "" && !*drain {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	store := reconcile.NewStore(pool)

	if *list {
		rows, err := listRows(ctx, store, *all, *limit)
		if err != nil {
			log.Fatalf("Failed to list reconciliations: %v", err)
		}
		printRows(rows)
		return
	}

	// Retries only touch the backend; the processor is never called.
	engine := lifecycle.NewEngine(lifecycle.DefaultCapabilities())
	gate := payment.NewGate(backend.New(cfg.BackendURL, cfg.BackendTimeout), nil, store, engine)
	ctx = backend.ContextWithToken(ctx, *token)

	if *drain {
		n := reconcile.NewPoller(store, gate, cfg.ReconcileInterval).RunOnce(ctx)
		log.Printf("Resolved %d reconciliation(s)", n)
		return
	}

	id, err := uuid.Parse(*retry)
	if err != nil {
		log.Fatalf("Invalid reconciliation ID %q: %v", *retry, err)
	}
	p, err := store.Get(ctx, id)
	if err != nil {
		log.Fatalf("Failed to load reconciliation: %v", err)
	}
	if p.Done() {
		log.Printf("Reconciliation %s already resolved", p.ID)
		return
	}

	rerr := gate.Resume(ctx, &p)
	if err := store.Update(ctx, p); err != nil {
		log.Fatalf("Failed to save reconciliation %s: %v", p.ID, err)
	}
	if rerr != nil {
		log.Fatalf("Retry of %s failed at stage %s: %v", p.ID, p.Stage, rerr)
	}
	log.Printf("Reconciliation %s resolved: order %s marked paid", p.ID, p.Payment.OrderID)
}

func listRows(ctx context.Context, store *reconcile.Store, all bool, limit int) ([]payment.Pending, error) {
	if all {
		return store.ListAll(ctx, limit)
	}
	return store.ListUnresolved(ctx, limit)
}

func printRows(rows []payment.Pending) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tORDER\tTRANSACTION\tAMOUNT\tSTAGE\tATTEMPTS\tCREATED\tLAST ERROR")
	for _, p := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			p.ID, p.Payment.OrderID, p.Payment.TransactionID, p.Payment.Amount.StringFixed(2),
			p.Stage, p.Attempts, p.CreatedAt.Format(time.RFC3339), p.LastError)
	}
	w.Flush()
}
