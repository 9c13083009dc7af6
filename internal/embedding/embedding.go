package embedding

import "context"

// Embedder produces Encoders over a corpus. Corpus-dependent
// implementations (TF-IDF) derive their vocabulary from the corpus on
// every Fit; stateless implementations (remote embedding APIs) ignore
// the corpus and return a shared encoder.
type Embedder interface {
	Name() string

	// Incremental reports whether vectors produced by earlier Fit calls
	// stay valid when chunks are added. When false, the index must
	// re-encode the whole corpus on every change.
	Incremental() bool

	// Fit prepares an encoder for the given corpus. The returned encoder
	// is immutable: snapshots hold on to it and keep encoding queries
	// while newer encoders are being fitted.
	Fit(ctx context.Context, corpus []string) (Encoder, error)
}

// Encoder converts free text into a numeric vector representation.
type Encoder interface {
	Dimension() int
	Encode(ctx context.Context, text string) ([]float64, error)
}
