// Command savecontext-server runs the tool-call RPC surface over stdio,
// per spec.md §6's wire contract. It wires the storage engine, domain
// services, the embedding pipeline (with startup dimension reconciliation
// and background backfill), the offline sync queue, and an optional HTTP
// read/write API for the dashboard, then serves forever.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/savecontext/savecontext/internal/agentbind"
	"github.com/savecontext/savecontext/internal/config"
	"github.com/savecontext/savecontext/internal/embedding"
	"github.com/savecontext/savecontext/internal/httpapi"
	"github.com/savecontext/savecontext/internal/rpc"
	"github.com/savecontext/savecontext/internal/search"
	"github.com/savecontext/savecontext/internal/statuscache"
	"github.com/savecontext/savecontext/internal/store"
	"github.com/savecontext/savecontext/internal/syncqueue"
	"github.com/savecontext/savecontext/internal/transport"
)

func main() {
	httpAddr := flag.String("http", "", "optional address to also serve the dashboard read/write API on, e.g. :8787")
	flag.Parse()

	dataDir, err := config.Dir()
	if err != nil {
		log.Fatalf("savecontext-server: %v", err)
	}
	dataDir = filepath.Join(dataDir, "data")

	s, err := store.Open(dataDir)
	if err != nil {
		log.Fatalf("savecontext-server: open store: %v", err)
	}
	defer s.Close()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("savecontext-server: config load failed, using defaults: %v", err)
		cfg = &config.Config{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := detectConfiguredProvider(ctx, cfg)
	recreated, err := embedding.Reconcile(ctx, s, provider)
	if err != nil {
		log.Printf("savecontext-server: embedding reconcile failed: %v", err)
	} else if recreated {
		log.Printf("savecontext-server: vector table recreated for provider %s (dim=%d); backfilling", provider.Name(), provider.Dimensions())
	}

	pool := embedding.NewPool(s, provider, 4, 200)
	defer pool.Close()

	go func() {
		if err := embedding.Backfill(ctx, s, provider); err != nil && ctx.Err() == nil {
			log.Printf("savecontext-server: background backfill stopped: %v", err)
		}
	}()

	searchSvc := search.New(s, provider)
	binder := agentbind.New(s)
	statusCache := statuscache.New(filepath.Dir(dataDir))

	var queue *syncqueue.Queue
	if endpoint := os.Getenv("SAVECONTEXT_SYNC_ENDPOINT"); endpoint != "" {
		qPath := filepath.Join(filepath.Dir(dataDir), "sync-queue.json")
		queue, err = syncqueue.Open(qPath, newHTTPUploader(endpoint))
		if err != nil {
			log.Printf("savecontext-server: sync queue open failed, sync disabled: %v", err)
			queue = nil
		} else {
			queue.OnAuthFailure(func(itemID string) {
				log.Printf("savecontext-server: sync item %s dropped; remote credentials need refreshing", itemID)
			})
			queue.Start()
			defer queue.Close()
		}
	}

	rpcSrv := rpc.NewServer(s, binder, pool, searchSvc, queue, statusCache, cfg)

	if *httpAddr != "" {
		apiSrv := httpapi.New(rpcSrv, s)
		go func() {
			log.Printf("savecontext-server: dashboard API listening on %s", *httpAddr)
			if err := http.ListenAndServe(*httpAddr, apiSrv); err != nil {
				log.Printf("savecontext-server: dashboard API stopped: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	transportSrv := &transport.Server{RPC: rpcSrv, Logger: log.Default()}
	if err := transportSrv.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Fatalf("savecontext-server: %v", err)
	}
}

// detectConfiguredProvider auto-detects among candidate providers built
// from the persisted config, falling back to the always-available local
// provider per spec.md §4.4 step 1.
func detectConfiguredProvider(ctx context.Context, cfg *config.Config) embedding.Provider {
	var candidates []embedding.Provider
	switch cfg.Embedding.Provider {
	case "lmstudio":
		candidates = append(candidates, embedding.NewLMStudioProvider(orDefault(cfg.Embedding.Endpoint, "http://localhost:1234/v1"), orDefault(cfg.Embedding.Model, "nomic-embed-text")))
	case "remote":
		candidates = append(candidates, embedding.NewRemoteProvider(cfg.Embedding.Endpoint, cfg.Embedding.Model, cfg.Embedding.Token, 1536))
	case "":
		candidates = append(candidates,
			embedding.NewLMStudioProvider("http://localhost:1234/v1", "nomic-embed-text"))
	}
	return embedding.Detect(ctx, candidates...)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// httpUploader is the out-of-scope remote session-sync collaborator;
// failures are classified per spec.md §4.6 so the queue can decide
// retry/drop/auth behavior.
type httpUploader struct {
	endpoint string
	client   *http.Client
}

func newHTTPUploader(endpoint string) *httpUploader {
	return &httpUploader{endpoint: endpoint, client: &http.Client{Timeout: 20 * time.Second}}
}

func (u *httpUploader) Upload(item syncqueue.Item) error {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(item.Payload))
	if err != nil {
		return &syncqueue.ClassifiedError{Kind: syncqueue.FailureDropNonAuth, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return &syncqueue.ClassifiedError{Kind: syncqueue.FailureRetryable, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &syncqueue.ClassifiedError{Kind: syncqueue.FailureDropAuth, Err: fmt.Errorf("sync upload unauthorized: %s", resp.Status)}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &syncqueue.ClassifiedError{Kind: syncqueue.FailureDropNonAuth, Err: fmt.Errorf("sync upload rejected: %s", resp.Status)}
	default:
		return &syncqueue.ClassifiedError{Kind: syncqueue.FailureRetryable, Err: fmt.Errorf("sync upload failed: %s", resp.Status)}
	}
}
