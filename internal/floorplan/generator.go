// Package floorplan runs the generation pipeline: validate the request, build
// the prompt, fetch the image, post-process it and attach the room breakdown.
package floorplan

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"floorplan/internal/domain"
	"floorplan/internal/imagegen"
	"floorplan/internal/layout"
	"floorplan/pkg/metrics"
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 720
	DefaultModel  = "flux"

	maxSeed       = 1_000_000
	recordTimeout = 5 * time.Second
)

// Stage names the pipeline step being executed.
type Stage string

const (
	StageValidating     Stage = "validating"
	StagePrompting      Stage = "prompting"
	StageRequesting     Stage = "requesting"
	StagePostProcessing Stage = "post_processing"
	StageAllocating     Stage = "allocating"
	StageDone           Stage = "done"
)

// SeedSource supplies the upstream seed for each generation.
type SeedSource interface {
	Seed() int
}

// SeedFunc adapts a function to SeedSource.
type SeedFunc func() int

func (f SeedFunc) Seed() int { return f() }

// RandomSeeds draws seeds uniformly from [0, 1_000_000).
func RandomSeeds() SeedSource {
	return SeedFunc(func() int { return rand.Intn(maxSeed) })
}

// FixedSeed always returns seed.
func FixedSeed(seed int) SeedSource {
	return SeedFunc(func() int { return seed })
}

// Recorder receives one event per Generate call.
type Recorder interface {
	Record(ctx context.Context, event domain.GenerationEvent) error
}

type Options struct {
	Width  int
	Height int
	Model  string
	// MaxConcurrent caps simultaneous upstream requests; 0 means unlimited.
	MaxConcurrent int64

	PostProcessor imagegen.PostProcessor
	Seeds         SeedSource
	Recorder      Recorder
	Logger        *zerolog.Logger
}

type Generator struct {
	requester imagegen.Requester
	post      imagegen.PostProcessor
	seeds     SeedSource
	recorder  Recorder
	sem       *semaphore.Weighted
	validate  *validator.Validate
	logger    zerolog.Logger

	width  int
	height int
	model  string
}

func NewGenerator(requester imagegen.Requester, opts Options) *Generator {
	g := &Generator{
		requester: requester,
		post:      opts.PostProcessor,
		seeds:     opts.Seeds,
		recorder:  opts.Recorder,
		validate:  newValidator(),
		logger:    zerolog.Nop(),
		width:     opts.Width,
		height:    opts.Height,
		model:     strings.TrimSpace(opts.Model),
	}
	if g.post == nil {
		g.post = imagegen.Passthrough{}
	}
	if g.seeds == nil {
		g.seeds = RandomSeeds()
	}
	if opts.Logger != nil {
		g.logger = *opts.Logger
	}
	if g.width <= 0 {
		g.width = DefaultWidth
	}
	if g.height <= 0 {
		g.height = DefaultHeight
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if opts.MaxConcurrent > 0 {
		g.sem = semaphore.NewWeighted(opts.MaxConcurrent)
	}
	return g
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Generate runs every stage at most once. Errors are *domain.GenerationError.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if g == nil || g.requester == nil {
		return nil, domain.NewError(domain.KindInternalFailure, "generator not configured")
	}
	logger := g.logger.With().Str("request_id", req.RequestID).Logger()

	start := time.Now()
	result, err := g.run(ctx, &logger, req)
	elapsed := time.Since(start)

	kind := domain.KindOf(err)
	outcome := "success"
	if err != nil {
		outcome = string(kind)
		logger.Debug().Err(err).Str("stage", "failed").Str("kind", outcome).Msg("generation stage")
	}
	metrics.GenerationTotal.WithLabelValues(outcome).Inc()
	metrics.GenerationDuration.Observe(elapsed.Seconds())

	g.record(ctx, &logger, domain.GenerationEvent{
		RequestID:  req.RequestID,
		Kind:       kind,
		Duration:   elapsed,
		Country:    req.Country,
		OccurredAt: start.UTC(),
	})
	return result, err
}

func (g *Generator) run(ctx context.Context, logger *zerolog.Logger, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	done := enter(logger, StageValidating)
	if req.Details != nil {
		details := req.Details.WithDefaults()
		req.Details = &details
	}
	err := g.validateRequest(req)
	done()
	if err != nil {
		return nil, err
	}
	if req.Details != nil && !req.Details.LayoutType.Known() {
		logger.Debug().Str("layout_type", string(req.Details.LayoutType)).Msg("unrecognised layout type kept verbatim")
	}

	done = enter(logger, StagePrompting)
	prompt := imagegen.BuildInstruction(req.Details, req.Prompt)
	done()

	done = enter(logger, StageRequesting)
	img, err := g.requestImage(ctx, logger, prompt)
	done()
	if err != nil {
		return nil, err
	}

	done = enter(logger, StagePostProcessing)
	processed, err := g.post.Process(ctx, img, g.width, g.height)
	done()
	if err != nil {
		if _, ok := domain.AsGenerationError(err); !ok {
			err = domain.WrapError(domain.KindInternalFailure, "post-process image", err)
		}
		return nil, err
	}

	done = enter(logger, StageAllocating)
	rooms := []domain.RoomRecord{}
	if req.Details != nil {
		plan := layout.Plan(*req.Details)
		rooms = plan.Rooms
		logger.Debug().
			Int("rooms", len(rooms)).
			Int("remaining_interior", plan.RemainingInterior).
			Msg("rooms allocated")
	}
	done()

	logger.Debug().Str("stage", string(StageDone)).Msg("generation stage")
	return &domain.GenerationResult{
		Image:           imagegen.DataURL(processed),
		LayoutBreakdown: rooms,
		Status:          domain.StatusSuccess,
	}, nil
}

func (g *Generator) validateRequest(req domain.GenerationRequest) error {
	if strings.TrimSpace(req.Prompt) == "" && req.Details == nil {
		return domain.NewError(domain.KindBadRequest, "prompt or details are required")
	}
	if req.Details == nil {
		return nil
	}
	if err := g.validate.Struct(req.Details); err != nil {
		return domain.WrapError(domain.KindBadRequest, describeValidation(err), err)
	}
	return nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "invalid details"
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return "invalid details: " + strings.Join(msgs, "; ")
}

func (g *Generator) requestImage(ctx context.Context, logger *zerolog.Logger, prompt string) (imagegen.Image, error) {
	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return imagegen.Image{}, domain.WrapError(domain.KindUpstreamTimeout, "timed out waiting for generation capacity", err)
			}
			return imagegen.Image{}, domain.WrapError(domain.KindUpstreamFailure, "generation cancelled while waiting for capacity", err)
		}
		defer g.sem.Release(1)
	}

	metrics.UpstreamInFlight.Inc()
	defer metrics.UpstreamInFlight.Dec()

	opts := imagegen.ImageOptions{
		Width:  g.width,
		Height: g.height,
		Model:  g.model,
		Seed:   g.seeds.Seed(),
	}
	logger.Debug().Int("seed", opts.Seed).Str("model", opts.Model).Int("prompt_len", len(prompt)).Msg("requesting image")

	img, err := g.requester.RequestImage(ctx, prompt, opts)
	if err != nil {
		if _, ok := domain.AsGenerationError(err); !ok {
			err = domain.WrapError(domain.KindUpstreamFailure, "image request failed", err)
		}
		return imagegen.Image{}, err
	}
	return img, nil
}

func (g *Generator) record(ctx context.Context, logger *zerolog.Logger, event domain.GenerationEvent) {
	if g.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := g.recorder.Record(ctx, event); err != nil {
		metrics.AnalyticsErrorsTotal.Inc()
		logger.Error().Err(err).Msg("record generation event")
	}
}

func enter(logger *zerolog.Logger, stage Stage) func() {
	logger.Debug().Str("stage", string(stage)).Msg("generation stage")
	start := time.Now()
	return func() {
		metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	}
}
