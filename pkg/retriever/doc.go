// Package retriever is the public facade over the hybrid retrieval engine:
// a versioned BM25 + dense index pair, RRF fusion, a TTL/LRU query cache,
// and a metadata-enrichment step, wired together behind one type.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                          Retriever                             │
//	│  ┌──────────────┐   ┌────────────────┐   ┌──────────────────┐ │
//	│  │  indexmgr.Manager │  search.Orchestrator │  cache.Cache[CacheEntry]│
//	│  │  (BM25 + dense)│   │ (cache, fuse,  │   │  (TTL/LRU query   │ │
//	│  │  build/load/   │──▶│  enrich,       │◀──│   response cache) │ │
//	│  │  activate      │   │  filter)       │   │                  │ │
//	│  └──────────────┘   └────────────────┘   └──────────────────┘ │
//	│          │                                                     │
//	│          ▼                                                     │
//	│  metadata.Store (chunk/document records; caller-supplied)       │
//	└───────────────────────────────────────────────────────────────┘
//
// # Usage
//
//	store, _ := metadata.OpenSQLiteStore("./data/metadata.db")
//	r, err := retriever.New(
//	    retriever.WithIndexDir("./data/indexes"),
//	    retriever.WithMetadataStore(store),
//	    retriever.WithEmbedder(embedder.EmbedBatch, "nomic-embed-text", 768),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	if _, err := r.BuildIndex(ctx, false); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := r.Search(ctx, search.Request{Query: "CrashLoopBackOff", TopK: 10})
//
// # BM25-only mode
//
// Omitting WithEmbedder keeps the dense index unbuilt; BuildIndex then
// produces a BM25-only version, and Search automatically degrades to
// search.ModeBM25Only.
//
// # Thread safety
//
// A *Retriever is safe for concurrent use: BuildIndex, Search, and Status
// may all be called from multiple goroutines.
package retriever
