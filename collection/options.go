package collection

// WriteOption configures a single insert.
type WriteOption func(*writeOptions)

type writeOptions struct {
	compress bool
	verify   bool
}

// WithCompression overrides the collection's default compression for the
// written documents.
func WithCompression(enabled bool) WriteOption {
	return func(o *writeOptions) {
		o.compress = enabled
	}
}

// WithVerify checks every field of each document against the schema, not
// only the indexed ones.
func WithVerify(enabled bool) WriteOption {
	return func(o *writeOptions) {
		o.verify = enabled
	}
}
