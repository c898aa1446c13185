package imagegen

import "context"

// Image is a raw image payload together with its MIME type.
type Image struct {
	Data []byte
	MIME string
}

// ImageOptions controls a single upstream generation.
type ImageOptions struct {
	Width  int
	Height int
	Model  string
	Seed   int
}

// Requester fetches generated pixels for a prompt.
type Requester interface {
	RequestImage(ctx context.Context, prompt string, opts ImageOptions) (Image, error)
}

// PostProcessor transforms the raw vendor image before it is returned.
type PostProcessor interface {
	Process(ctx context.Context, img Image, expectedWidth, expectedHeight int) (Image, error)
}
