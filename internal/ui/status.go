package ui

import (
	"encoding/json"
	"fmt"
	"io"
)

// StatusInfo is the readiness snapshot surfaced by `retrieverctl status`,
// combining the index manager's readiness with the query cache's
// hit-rate counters.
type StatusInfo struct {
	CurrentVersion string `json:"current_version"`

	BM25Ready  bool `json:"bm25_ready"`
	BM25Chunks int  `json:"bm25_chunks"`

	VectorReady  bool `json:"vector_ready"`
	VectorChunks int  `json:"vector_chunks"`

	CacheSize    int     `json:"cache_size"`
	CacheMaxSize int     `json:"cache_max_size"`
	CacheHits    int64   `json:"cache_hits"`
	CacheMisses  int64   `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`
}

// Mode reports the retrieval mode a fully-ready manager would serve.
func (s StatusInfo) Mode() string {
	switch {
	case s.BM25Ready && s.VectorReady:
		return "hybrid"
	case s.BM25Ready:
		return "bm25_only"
	case s.VectorReady:
		return "vector_only"
	default:
		return "not_ready"
	}
}

// StatusRenderer prints a StatusInfo snapshot as plain text or JSON.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer. noColor strips styling,
// for piped/CI output.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints a human-readable status report.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Retriever Status"))

	_, _ = fmt.Fprintf(r.out, "  Mode:    %s\n", r.renderMode(info.Mode()))
	if info.CurrentVersion != "" {
		_, _ = fmt.Fprintf(r.out, "  Version: %s\n", info.CurrentVersion)
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  BM25 index:")
	_, _ = fmt.Fprintf(r.out, "    Ready:  %s\n", r.renderBool(info.BM25Ready))
	_, _ = fmt.Fprintf(r.out, "    Chunks: %d\n", info.BM25Chunks)
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Dense index:")
	_, _ = fmt.Fprintf(r.out, "    Ready:  %s\n", r.renderBool(info.VectorReady))
	_, _ = fmt.Fprintf(r.out, "    Chunks: %d\n", info.VectorChunks)
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Query cache:")
	_, _ = fmt.Fprintf(r.out, "    Size:     %d / %d\n", info.CacheSize, info.CacheMaxSize)
	_, _ = fmt.Fprintf(r.out, "    Hit rate: %.1f%% (%d hits, %d misses)\n",
		info.CacheHitRate*100, info.CacheHits, info.CacheMisses)

	return nil
}

// RenderJSON prints the status snapshot as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func (r *StatusRenderer) renderBool(ready bool) string {
	if ready {
		return r.styles.Success.Render("ready")
	}
	return r.styles.Warning.Render("not ready")
}

func (r *StatusRenderer) renderMode(mode string) string {
	if mode == "not_ready" {
		return r.styles.Error.Render(mode)
	}
	return r.styles.Success.Render(mode)
}
