package summarize

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"studyrag-be/internal/pkg/logger"
	"studyrag-be/pkg/llm"
	"studyrag-be/pkg/rag"
	"studyrag-be/pkg/tokens"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const logModule = "rag.summarize"

var tracer = otel.Tracer("studyrag/rag/summarize")

const (
	PathEmpty     = "empty"
	PathStuff     = "stuff"
	PathMapReduce = "map_reduce"
)

// Step stages reported to an Observer.
const (
	StageMap      = "map"
	StageCollect  = "collect"
	StageCollapse = "collapse"
	StageFinalize = "finalize"
	StageDone     = "done"
)

// Step is one state transition of a mode run.
type Step struct {
	Mode   Mode
	Stage  string
	Round  int
	Units  int
	Tokens int
}

type Observer func(Step)

type Config struct {
	MapModel        string  `yaml:"map_model"`
	ReduceModel     string  `yaml:"reduce_model"`
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	StuffThreshold  int     `yaml:"stuff_threshold_tokens"`
	StuffBy         string  `yaml:"stuff_by"`
	StuffTokenLimit int     `yaml:"stuff_token_limit"`
	MaxMapCalls     int     `yaml:"max_map_calls"`
	RecursionLimit  int     `yaml:"recursion_limit"`
	SampleFirstK    int     `yaml:"sample_first_k"`
	Concurrency     int     `yaml:"concurrency"`
}

func DefaultConfig() Config {
	return Config{
		Temperature:     0.2,
		MaxOutputTokens: 800,
		StuffThreshold:  128000,
		StuffBy:         "document_id",
		StuffTokenLimit: 10000,
		MaxMapCalls:     24,
		RecursionLimit:  12,
		Concurrency:     4,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StuffThreshold <= 0 {
		c.StuffThreshold = d.StuffThreshold
	}
	if c.StuffBy == "" {
		c.StuffBy = d.StuffBy
	}
	if c.StuffTokenLimit <= 0 {
		c.StuffTokenLimit = d.StuffTokenLimit
	}
	if c.MaxMapCalls <= 0 {
		c.MaxMapCalls = d.MaxMapCalls
	}
	if c.RecursionLimit <= 0 {
		c.RecursionLimit = d.RecursionLimit
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = d.MaxOutputTokens
	}
	return c
}

// Preferences are per-request overrides. Zero values keep the engine config.
type Preferences struct {
	MapModel        string   `json:"map_model"`
	ReduceModel     string   `json:"reduce_model"`
	Temperature     *float64 `json:"temperature"`
	MaxOutputTokens int      `json:"max_output_tokens"`
	StuffThreshold  int      `json:"stuff_threshold_tokens"`
	StuffBy         string   `json:"stuff_by"`
	StuffTokenLimit int      `json:"stuff_token_limit"`
	MaxMapCalls     int      `json:"max_map_calls"`
	SampleFirstK    int      `json:"sample_first_k"`
}

func (c Config) merge(p Preferences) Config {
	if p.MapModel != "" {
		c.MapModel = p.MapModel
	}
	if p.ReduceModel != "" {
		c.ReduceModel = p.ReduceModel
	}
	if p.Temperature != nil {
		c.Temperature = *p.Temperature
	}
	if p.MaxOutputTokens > 0 {
		c.MaxOutputTokens = p.MaxOutputTokens
	}
	if p.StuffThreshold > 0 {
		c.StuffThreshold = p.StuffThreshold
	}
	if p.StuffBy != "" {
		c.StuffBy = p.StuffBy
	}
	if p.StuffTokenLimit > 0 {
		c.StuffTokenLimit = p.StuffTokenLimit
	}
	if p.MaxMapCalls > 0 {
		c.MaxMapCalls = p.MaxMapCalls
	}
	if p.SampleFirstK > 0 {
		c.SampleFirstK = p.SampleFirstK
	}
	return c
}

// Stats describe how a run went.
type Stats struct {
	Path            string
	InputTokens     int
	Groups          int
	DroppedGroups   int
	MapCalls        map[Mode]int
	CollapseRounds  map[Mode]int
	GenerationCalls int
}

type Result struct {
	Short       string
	Long        string
	KeyConcepts string
	Stats       Stats
}

func (r Result) Get(m Mode) string {
	switch m {
	case ModeShort:
		return r.Short
	case ModeLong:
		return r.Long
	case ModeKeyConcepts:
		return r.KeyConcepts
	}
	return ""
}

func (r *Result) set(m Mode, text string) {
	switch m {
	case ModeShort:
		r.Short = text
	case ModeLong:
		r.Long = text
	case ModeKeyConcepts:
		r.KeyConcepts = text
	}
}

type EngineOption func(*Engine)

func WithObserver(o Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

func WithEstimator(est tokens.Estimator) EngineOption {
	return func(e *Engine) { e.est = est }
}

// Engine produces short, long and key-concept summaries of a chunk list.
type Engine struct {
	llm      llm.LLMProvider
	est      tokens.Estimator
	cfg      Config
	logger   logger.ILogger
	observer Observer
}

func NewEngine(provider llm.LLMProvider, cfg Config, log logger.ILogger, opts ...EngineOption) *Engine {
	e := &Engine{
		llm:    provider,
		est:    tokens.Approx{},
		cfg:    cfg.withDefaults(),
		logger: log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run holds the per-request state shared by the three modes.
type run struct {
	e        *Engine
	cfg      Config
	calls    atomic.Int64
	mu       sync.Mutex
	mapCalls map[Mode]int
	rounds   map[Mode]int
}

func (r *run) emit(s Step) {
	if r.e.observer != nil {
		r.e.observer(s)
	}
}

func (r *run) generate(ctx context.Context, prompt, model string) (string, error) {
	opts := []llm.Option{llm.WithTemperature(r.cfg.Temperature), llm.WithMaxTokens(r.cfg.MaxOutputTokens)}
	if model != "" {
		opts = append(opts, llm.WithModel(model))
	}
	return rag.Generate(ctx, countingProvider{LLMProvider: r.e.llm, n: &r.calls}, prompt, rag.PlainTextRetry, opts...)
}

// countingProvider counts every model invocation, retries included.
type countingProvider struct {
	llm.LLMProvider
	n *atomic.Int64
}

func (c countingProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	c.n.Add(1)
	return c.LLMProvider.Generate(ctx, prompt, opts...)
}

// Summarize produces all three summaries. Empty input yields empty strings
// without any generation call.
func (e *Engine) Summarize(ctx context.Context, chunks []Chunk, prefs Preferences) (Result, error) {
	cfg := e.cfg.merge(prefs)

	docs := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) != "" {
			docs = append(docs, c)
		}
	}
	if cfg.SampleFirstK > 0 && len(docs) > cfg.SampleFirstK {
		docs = docs[:cfg.SampleFirstK]
	}

	r := &run{e: e, cfg: cfg, mapCalls: map[Mode]int{}, rounds: map[Mode]int{}}
	result := Result{Stats: Stats{Path: PathEmpty, MapCalls: r.mapCalls, CollapseRounds: r.rounds}}
	if len(docs) == 0 {
		return result, nil
	}

	ctx, span := tracer.Start(ctx, "summarize")
	defer span.End()

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	result.Stats.InputTokens = tokens.JoinCount(e.est, texts, "\n\n")
	span.SetAttributes(attribute.Int("rag.chunks", len(docs)), attribute.Int("rag.input_tokens", result.Stats.InputTokens))

	outputs := make([]string, len(Modes))
	g, gctx := errgroup.WithContext(ctx)

	if result.Stats.InputTokens <= cfg.StuffThreshold {
		result.Stats.Path = PathStuff
		full := strings.Join(texts, "\n\n")
		for i, mode := range Modes {
			g.Go(func() error {
				out, err := r.generate(gctx, mode.Spec().MapPrompt(full), cfg.ReduceModel)
				if err != nil {
					return fmt.Errorf("%s summary: %w", mode, err)
				}
				outputs[i] = strings.TrimSpace(out)
				r.emit(Step{Mode: mode, Stage: StageDone})
				return nil
			})
		}
	} else {
		result.Stats.Path = PathMapReduce
		groups := GroupAndStuff(docs, cfg.StuffBy, cfg.StuffTokenLimit, e.est)
		if len(groups) > cfg.MaxMapCalls {
			result.Stats.DroppedGroups = len(groups) - cfg.MaxMapCalls
			e.logger.Warn(logModule, "Too many map groups, dropping tail", map[string]interface{}{
				"groups":  len(groups),
				"limit":   cfg.MaxMapCalls,
				"dropped": result.Stats.DroppedGroups,
			})
			groups = groups[:cfg.MaxMapCalls]
		}
		result.Stats.Groups = len(groups)

		contents := make([]string, len(groups))
		for i, grp := range groups {
			contents[i] = grp.Text
		}
		for i, mode := range Modes {
			g.Go(func() error {
				out, err := r.runMode(gctx, mode, contents)
				if err != nil {
					return err
				}
				outputs[i] = out
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		e.logger.Error(logModule, "Summarization failed", map[string]interface{}{"error": err.Error(), "path": result.Stats.Path})
		result.Stats.GenerationCalls = int(r.calls.Load())
		return result, err
	}

	for i, mode := range Modes {
		result.set(mode, outputs[i])
	}
	result.Stats.GenerationCalls = int(r.calls.Load())

	e.logger.Info(logModule, "Summaries generated", map[string]interface{}{
		"path":         result.Stats.Path,
		"input_tokens": result.Stats.InputTokens,
		"groups":       result.Stats.Groups,
		"calls":        result.Stats.GenerationCalls,
	})
	return result, nil
}

// collapseSep joins the summaries handed to one reduce call.
const collapseSep = "\n\n"

// runMode drives MAP -> COLLECT -> {COLLAPSE loop | FINALIZE} for one mode.
func (r *run) runMode(ctx context.Context, mode Mode, contents []string) (string, error) {
	spec := mode.Spec()
	ctx, span := tracer.Start(ctx, "summarize.mode")
	defer span.End()
	span.SetAttributes(attribute.String("rag.mode", string(mode)))

	// MAP: one call per group, barrier before COLLECT
	r.emit(Step{Mode: mode, Stage: StageMap, Units: len(contents)})
	summaries, err := r.fanOut(ctx, contents, func(c string) string { return spec.MapPrompt(c) }, r.cfg.MapModel)
	if err != nil {
		return "", fmt.Errorf("%s map: %w", mode, err)
	}
	r.mu.Lock()
	r.mapCalls[mode] = len(contents)
	r.mu.Unlock()

	// COLLECT
	state := rag.CollapseState{Mode: string(mode), Pending: summaries}
	state.Tokens = tokens.JoinCount(r.e.est, state.Pending, " ")
	r.emit(Step{Mode: mode, Stage: StageCollect, Units: len(state.Pending), Tokens: state.Tokens})

	// COLLAPSE until the pending units fit the ceiling
	for state.Tokens > spec.TokenCeiling {
		if state.Round >= r.cfg.RecursionLimit {
			span.SetAttributes(attribute.Int("rag.collapse_rounds", state.Round))
			return "", &rag.CollapseLimitError{State: state, Limit: r.cfg.RecursionLimit}
		}
		parts, err := SplitForCollapse(state.Pending, collapseSep, spec.TokenCeiling, r.e.est)
		if err != nil {
			return "", fmt.Errorf("%s collapse: %w: %w", mode, rag.ErrUnitExceedsCeiling, err)
		}
		joined := make([]string, len(parts))
		for i, p := range parts {
			joined[i] = strings.Join(p, collapseSep)
		}
		collapsed, err := r.fanOut(ctx, joined, spec.ReducePrompt, r.cfg.ReduceModel)
		if err != nil {
			return "", fmt.Errorf("%s collapse: %w", mode, err)
		}

		state.Round++
		state.Pending = collapsed
		state.Tokens = tokens.JoinCount(r.e.est, state.Pending, " ")
		r.emit(Step{Mode: mode, Stage: StageCollapse, Round: state.Round, Units: len(state.Pending), Tokens: state.Tokens})
		r.e.logger.Debug(logModule, "Collapse round complete", map[string]interface{}{
			"mode":   mode,
			"round":  state.Round,
			"units":  len(state.Pending),
			"tokens": state.Tokens,
		})
	}
	r.mu.Lock()
	r.rounds[mode] = state.Round
	r.mu.Unlock()
	span.SetAttributes(attribute.Int("rag.collapse_rounds", state.Round))

	// FINALIZE
	r.emit(Step{Mode: mode, Stage: StageFinalize, Round: state.Round, Units: len(state.Pending), Tokens: state.Tokens})
	final, err := r.generate(ctx, spec.ReducePrompt(strings.Join(state.Pending, "\n")), r.cfg.ReduceModel)
	if err != nil {
		return "", fmt.Errorf("%s finalize: %w", mode, err)
	}
	r.emit(Step{Mode: mode, Stage: StageDone, Round: state.Round})
	return strings.TrimSpace(final), nil
}

// fanOut runs one generation per input with bounded parallelism. Outputs keep
// input order; the first failure cancels the rest.
func (r *run) fanOut(ctx context.Context, inputs []string, prompt func(string) string, model string) ([]string, error) {
	outputs := make([]string, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			out, err := r.generate(gctx, prompt(in), model)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
