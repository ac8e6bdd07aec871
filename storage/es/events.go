package es

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"

	"dunning/types"
)

// CaseEventIndexer writes case notifications into an ES index for audit and
// downstream search. Publishing is fire-and-forget from the engine's point
// of view; a failed write is logged by the caller and never blocks a cycle.
type CaseEventIndexer struct {
	client *elasticsearch.Client
	index  string
}

func NewCaseEventIndexer(addresses []string, indexName string) (*CaseEventIndexer, error) {
	cfg := elasticsearch.Config{
		Addresses: addresses,
	}
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating the client: %s", err)
	}

	indexer := &CaseEventIndexer{client: es, index: indexName}

	if err := indexer.initMapping(context.Background()); err != nil {
		return nil, err
	}

	return indexer, nil
}

func (e *CaseEventIndexer) initMapping(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index})
	if err != nil {
		return err
	}
	if res.StatusCode == 200 {
		return nil
	}

	mapping := `
	{
	  "settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	  },
	  "mappings": {
		"properties": {
		  "kind":      { "type": "keyword" },
		  "tenant_id": { "type": "keyword" },
		  "case_id":   { "type": "keyword" },
		  "detail":    { "type": "text" },
		  "at":        { "type": "date" }
		}
	  }
	}`

	log.Printf(">>> [ES] Creating index %s...", e.index)
	res, err = e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index error: %v", err)
	}
	if res.IsError() {
		return fmt.Errorf("create index response error: %s", res.String())
	}
	return nil
}

// Publish indexes one notification document.
func (e *CaseEventIndexer) Publish(ctx context.Context, n types.Notification) error {
	res, err := e.client.Index(
		e.index,
		esutil.NewJSONReader(n),
		e.client.Index.WithDocumentID(uuid.New().String()),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index event error: %v", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index event response error: %s", res.String())
	}
	return nil
}

// PublishBatch indexes a slice of notifications through the bulk indexer.
// The cycle driver delivers each case's events through this path, since one
// transition can emit several at once.
func (e *CaseEventIndexer) PublishBatch(ctx context.Context, ns []types.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:  e.index,
		Client: e.client,
	})
	if err != nil {
		return err
	}
	for _, n := range ns {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: uuid.New().String(),
			Body:       strings.NewReader(string(data)),
		})
		if err != nil {
			return err
		}
	}
	if err := bi.Close(ctx); err != nil {
		return err
	}
	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return fmt.Errorf("bulk index: %d events failed", stats.NumFailed)
	}
	return nil
}
