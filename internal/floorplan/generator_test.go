package floorplan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorplan/internal/domain"
	"floorplan/internal/imagegen"
)

type stubRequester struct {
	mu      sync.Mutex
	img     imagegen.Image
	err     error
	calls   int
	prompt  string
	opts    imagegen.ImageOptions
	release chan struct{}
	started chan struct{}
}

func (s *stubRequester) RequestImage(ctx context.Context, prompt string, opts imagegen.ImageOptions) (imagegen.Image, error) {
	s.mu.Lock()
	s.calls++
	s.prompt = prompt
	s.opts = opts
	s.mu.Unlock()
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return imagegen.Image{}, ctx.Err()
		}
	}
	return s.img, s.err
}

func (s *stubRequester) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubProcessor struct {
	err    error
	called bool
	w, h   int
}

func (p *stubProcessor) Process(_ context.Context, img imagegen.Image, w, h int) (imagegen.Image, error) {
	p.called = true
	p.w, p.h = w, h
	if p.err != nil {
		return imagegen.Image{}, p.err
	}
	return imagegen.Image{Data: append([]byte("cropped:"), img.Data...), MIME: "image/jpeg"}, nil
}

type stubRecorder struct {
	events []domain.GenerationEvent
	err    error
}

func (r *stubRecorder) Record(_ context.Context, event domain.GenerationEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func okRequester() *stubRequester {
	return &stubRequester{img: imagegen.Image{Data: []byte("pixels"), MIME: "image/png"}}
}

func TestGeneratePromptOnly(t *testing.T) {
	req := okRequester()
	gen := NewGenerator(req, Options{Seeds: FixedSeed(7)})

	res, err := gen.Generate(context.Background(), domain.GenerationRequest{Prompt: "a lakeside cabin"})
	require.NoError(t, err)

	assert.Equal(t, "a lakeside cabin", req.prompt)
	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, imagegen.DataURL(imagegen.Image{Data: []byte("pixels"), MIME: "image/png"}), res.Image)
	require.NotNil(t, res.LayoutBreakdown)
	assert.Empty(t, res.LayoutBreakdown)

	body, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"layout_breakdown":[]`)
}

func TestGenerateRejectsEmptyRequest(t *testing.T) {
	req := okRequester()
	gen := NewGenerator(req, Options{})

	for _, in := range []domain.GenerationRequest{{}, {Prompt: "   \n"}} {
		_, err := gen.Generate(context.Background(), in)
		require.Error(t, err)
		assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))
	}
	assert.Zero(t, req.callCount())
}

func TestGenerateRejectsInvalidDetails(t *testing.T) {
	req := okRequester()
	gen := NewGenerator(req, Options{})

	details := &domain.HouseSpec{SqFeet: 0, Bedrooms: 2, Bathrooms: -1, LayoutType: domain.LayoutStudio, ArchStyle: "Loft"}
	_, err := gen.Generate(context.Background(), domain.GenerationRequest{Details: details})
	require.Error(t, err)

	genErr, ok := domain.AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindBadRequest, genErr.Kind)
	assert.Contains(t, genErr.Message, "sqFeet must be greater than 0")
	assert.Contains(t, genErr.Message, "bathrooms must be at least 0")
	assert.Zero(t, req.callCount())
}

func TestGenerateWithDetails(t *testing.T) {
	req := okRequester()
	post := &stubProcessor{}
	gen := NewGenerator(req, Options{Seeds: FixedSeed(424242), PostProcessor: post})

	details := &domain.HouseSpec{
		SqFeet:     1000,
		Bedrooms:   3,
		Bathrooms:  2,
		LayoutType: domain.LayoutOpenConcept,
		ArchStyle:  domain.DefaultArchStyle,
		Features:   []string{"kitchen", "living room"},
	}
	res, err := gen.Generate(context.Background(), domain.GenerationRequest{Details: details, Prompt: "unused"})
	require.NoError(t, err)

	assert.Equal(t, imagegen.ImageOptions{Width: DefaultWidth, Height: DefaultHeight, Model: DefaultModel, Seed: 424242}, req.opts)
	assert.Equal(t, imagegen.BuildInstruction(details, ""), req.prompt)
	assert.True(t, post.called)
	assert.Equal(t, DefaultWidth, post.w)
	assert.Equal(t, DefaultHeight, post.h)
	assert.True(t, strings.HasPrefix(res.Image, "data:image/jpeg;base64,"))
	require.Len(t, res.LayoutBreakdown, 7)
	assert.Equal(t, domain.RoomRecord{Name: "Master Bedroom", Area: 150, Dimensions: "12' x 12'"}, res.LayoutBreakdown[0])
	assert.Equal(t, "Living Room", res.LayoutBreakdown[6].Name)
}

func TestGenerateFillsHouseSpecDefaults(t *testing.T) {
	req := okRequester()
	gen := NewGenerator(req, Options{Seeds: FixedSeed(1)})

	details := &domain.HouseSpec{
		SqFeet:    1000,
		Bedrooms:  3,
		Bathrooms: 2,
		Features:  []string{"kitchen", "living room"},
	}
	res, err := gen.Generate(context.Background(), domain.GenerationRequest{Details: details})
	require.NoError(t, err)

	assert.Contains(t, req.prompt, "Architectural style: "+domain.DefaultArchStyle+".")
	assert.Contains(t, req.prompt, "1000 sqft, 3 bedrooms, 2 bathrooms, "+string(domain.DefaultLayout)+".")
	require.Len(t, res.LayoutBreakdown, 7)
	assert.Equal(t, domain.RoomRecord{Name: "Kitchen", Area: 120, Dimensions: "10' x 12'"}, res.LayoutBreakdown[5])
	assert.Equal(t, domain.RoomRecord{Name: "Living Room", Area: 180, Dimensions: "13' x 13'"}, res.LayoutBreakdown[6])

	// the caller's value is left alone
	assert.Empty(t, details.ArchStyle)
	assert.Empty(t, details.LayoutType)
}

func TestGenerateCustomOptions(t *testing.T) {
	req := okRequester()
	gen := NewGenerator(req, Options{Width: 640, Height: 480, Model: "turbo", Seeds: FixedSeed(1)})

	_, err := gen.Generate(context.Background(), domain.GenerationRequest{Prompt: "plan"})
	require.NoError(t, err)
	assert.Equal(t, imagegen.ImageOptions{Width: 640, Height: 480, Model: "turbo", Seed: 1}, req.opts)
}

func TestGeneratePropagatesUpstreamKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{name: "loading", err: domain.NewError(domain.KindUpstreamLoading, "warming up"), want: domain.KindUpstreamLoading},
		{name: "timeout", err: domain.NewError(domain.KindUpstreamTimeout, "too slow"), want: domain.KindUpstreamTimeout},
		{name: "unclassified", err: errors.New("socket closed"), want: domain.KindUpstreamFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			post := &stubProcessor{}
			gen := NewGenerator(&stubRequester{err: tc.err}, Options{PostProcessor: post})
			_, err := gen.Generate(context.Background(), domain.GenerationRequest{Prompt: "plan"})
			assert.Equal(t, tc.want, domain.KindOf(err))
			assert.False(t, post.called, "post-processor must not run after a failed request")
		})
	}
}

func TestGenerateVendorLoadingEndToEnd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
	}))
	defer ts.Close()

	client := imagegen.NewPollinationsClient(imagegen.PollinationsOptions{BaseURL: ts.URL})
	gen := NewGenerator(client, Options{})

	_, err := gen.Generate(context.Background(), domain.GenerationRequest{Prompt: "plan"})
	require.Error(t, err)
	kind := domain.KindOf(err)
	assert.Equal(t, domain.KindUpstreamLoading, kind)
	assert.Equal(t, http.StatusServiceUnavailable, kind.HTTPStatus())
}

func TestGeneratePostProcessFailure(t *testing.T) {
	gen := NewGenerator(okRequester(), Options{PostProcessor: &stubProcessor{err: errors.New("bad pixels")}})
	_, err := gen.Generate(context.Background(), domain.GenerationRequest{Prompt: "plan"})
	assert.Equal(t, domain.KindInternalFailure, domain.KindOf(err))

	gen = NewGenerator(okRequester(), Options{PostProcessor: imagegen.WatermarkCropper{}})
	_, err = gen.Generate(context.Background(), domain.GenerationRequest{Prompt: "plan"})
	assert.Equal(t, domain.KindInternalFailure, domain.KindOf(err))
}

func TestGenerateRecordsEvents(t *testing.T) {
	rec := &stubRecorder{err: errors.New("db down")}
	gen := NewGenerator(okRequester(), Options{Recorder: rec})

	_, err := gen.Generate(context.Background(), domain.GenerationRequest{Prompt: "plan", RequestID: "req-1", Country: "ID"})
	require.NoError(t, err, "recorder errors must not fail the generation")
	_, err = gen.Generate(context.Background(), domain.GenerationRequest{RequestID: "req-2"})
	require.Error(t, err)

	require.Len(t, rec.events, 2)
	assert.Equal(t, "req-1", rec.events[0].RequestID)
	assert.Equal(t, "ID", rec.events[0].Country)
	assert.True(t, rec.events[0].Succeeded())
	assert.Equal(t, domain.KindBadRequest, rec.events[1].Kind)
}

func TestGenerateLogsStagesInOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	gen := NewGenerator(okRequester(), Options{Logger: &logger})

	_, err := gen.Generate(context.Background(), domain.GenerationRequest{Prompt: "plan", RequestID: "req-9"})
	require.NoError(t, err)

	var stages []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "req-9", entry["request_id"])
		if stage, ok := entry["stage"].(string); ok {
			stages = append(stages, stage)
		}
	}
	assert.Equal(t, []string{"validating", "prompting", "requesting", "post_processing", "allocating", "done"}, stages)
}

func TestGenerateConcurrencyLimit(t *testing.T) {
	req := okRequester()
	req.release = make(chan struct{})
	req.started = make(chan struct{}, 1)
	gen := NewGenerator(req, Options{MaxConcurrent: 1})

	firstDone := make(chan error, 1)
	go func() {
		_, err := gen.Generate(context.Background(), domain.GenerationRequest{Prompt: "first"})
		firstDone <- err
	}()
	<-req.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := gen.Generate(ctx, domain.GenerationRequest{Prompt: "second"})
	assert.Equal(t, domain.KindUpstreamTimeout, domain.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	_, err = gen.Generate(cancelled, domain.GenerationRequest{Prompt: "third"})
	assert.Equal(t, domain.KindUpstreamFailure, domain.KindOf(err))

	close(req.release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, req.callCount())
}

func TestRandomSeedsRange(t *testing.T) {
	seeds := RandomSeeds()
	for i := 0; i < 1000; i++ {
		s := seeds.Seed()
		require.GreaterOrEqual(t, s, 0)
		require.Less(t, s, maxSeed)
	}
}
