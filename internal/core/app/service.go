package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"strata/internal/analysis/deps"
	"strata/internal/analysis/diff"
	"strata/internal/analysis/impact"
	"strata/internal/analysis/scope"
	"strata/internal/analysis/shape"
	"strata/internal/analysis/usage"
	"strata/internal/core/config"
	"strata/internal/core/errors"
	"strata/internal/core/ports"
	"strata/internal/parser"
	"strata/internal/project"
	"strata/internal/shared/observability"

	"log/slog"
)

const Version = "0.3.0"

type osFileReader struct{}

func (osFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Service implements the analysis driving port. Every request
// re-parses from scratch; there is no cache to go stale.
type Service struct {
	cfg       *config.Config
	parser    *parser.Parser
	extractor *shape.Extractor
	mapper    *shape.Mapper
	differ    *diff.Differ
	locator   *usage.Locator
	scopes    *scope.Resolver
	deps      *deps.Resolver
	reader    ports.FileReader
	revisions ports.RevisionProvider
	logger    *slog.Logger
	started   time.Time
}

var _ ports.AnalysisService = (*Service)(nil)

func New(cfg *config.Config, revisions ports.RevisionProvider, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	overrides := make(map[string]parser.LanguageOverride, len(cfg.Languages))
	for name, lang := range cfg.Languages {
		overrides[name] = parser.LanguageOverride{
			Enabled:    lang.Enabled,
			Extensions: lang.Extensions,
			Filenames:  lang.Filenames,
		}
	}
	registry, err := parser.BuildLanguageRegistry(overrides)
	if err != nil {
		return nil, fmt.Errorf("build language registry: %w", err)
	}
	loader, err := parser.NewGrammarLoaderWithRegistry(registry)
	if err != nil {
		return nil, fmt.Errorf("load grammars: %w", err)
	}
	p := parser.NewParser(loader)
	extractor := shape.NewExtractor(p)

	var excludes []string
	excludes = append(excludes, cfg.Exclude.Files...)
	for _, dir := range cfg.Exclude.Dirs {
		excludes = append(excludes, dir+"/**")
	}
	locator, err := usage.NewLocator(p, excludes, logger)
	if err != nil {
		return nil, fmt.Errorf("compile exclude patterns: %w", err)
	}
	mapper, err := shape.NewMapper(extractor, excludes, logger)
	if err != nil {
		return nil, fmt.Errorf("compile exclude patterns: %w", err)
	}

	return &Service{
		cfg:       cfg,
		parser:    p,
		extractor: extractor,
		mapper:    mapper,
		differ:    diff.NewDiffer(extractor),
		locator:   locator,
		scopes:    scope.NewResolver(p),
		deps:      deps.NewResolver(extractor, logger),
		reader:    osFileReader{},
		revisions: revisions,
		logger:    logger,
		started:   time.Now(),
	}, nil
}

// SetFileReader replaces the source reader, used by tests.
func (s *Service) SetFileReader(reader ports.FileReader) {
	s.reader = reader
}

// Parser exposes the grammar-backed parser for supporting components
// such as watch mode.
func (s *Service) Parser() *parser.Parser {
	return s.parser
}

// Differ exposes the structural differ for supporting components.
func (s *Service) Differ() *diff.Differ {
	return s.differ
}

func (s *Service) root(path string) string {
	if s.cfg.Paths.ProjectRoot != "" {
		return s.cfg.Paths.ProjectRoot
	}
	return project.RootFor(path)
}

func (s *Service) ExtractShape(ctx context.Context, req ports.ShapeRequest) (*shape.FileShape, error) {
	ctx, span := observability.Tracer.Start(ctx, "Service.ExtractShape",
		trace.WithAttributes(attribute.String("path", req.Path)))
	defer span.End()
	defer s.observe("shape.extract", time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := s.reader.ReadFile(req.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "cannot read source file").
			WithContext(errors.CtxPath, req.Path)
	}

	language := s.parser.DetectLanguage(req.Path)
	if language == "" || !s.parser.ShapeReady(language) {
		return nil, errors.New(errors.CodeUnsupportedLanguage, "no extraction table for this file").
			WithContext(errors.CtxPath, req.Path).
			WithContext(errors.CtxLanguage, language)
	}

	parseStart := time.Now()
	fileShape, err := s.extractor.Extract(req.Path, language, content, shape.Options{IncludeBody: req.IncludeBody})
	observability.ParsingDuration.WithLabelValues(language).Observe(time.Since(parseStart).Seconds())
	if err != nil {
		return nil, err
	}

	root := s.root(req.Path)
	fileShape.Path = project.RelPath(root, req.Path)
	observability.ShapesExtractedTotal.WithLabelValues(language).Inc()
	observability.SymbolsExtractedTotal.Add(float64(len(fileShape.Symbols)))

	if req.IncludeDependencies {
		fileShape.Dependencies = s.deps.Resolve(fileShape, req.Path, root)
	}
	return fileShape, nil
}

func (s *Service) MapShapes(ctx context.Context, req ports.MapRequest) ([]*shape.FileShape, error) {
	_, span := observability.Tracer.Start(ctx, "Service.MapShapes",
		trace.WithAttributes(attribute.String("path", req.Root)))
	defer span.End()
	defer s.observe("shape.map", time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shapes, err := s.mapper.Map(req.Root, s.root(req.Root), req.Pattern, req.IncludeBody)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CodeNotFound, "cannot read map root").
				WithContext(errors.CtxPath, req.Root)
		}
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid file pattern").
			WithContext(errors.CtxPath, req.Root)
	}
	return shapes, nil
}

func (s *Service) DiffStructural(ctx context.Context, req ports.DiffRequest) (ports.DiffResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "Service.DiffStructural",
		trace.WithAttributes(
			attribute.String("path", req.Path),
			attribute.String("revision", req.Revision),
		))
	defer span.End()
	defer s.observe("diff.structural", time.Now())

	if err := ctx.Err(); err != nil {
		return ports.DiffResult{}, err
	}
	if s.revisions == nil {
		return ports.DiffResult{}, errors.New(errors.CodeDiffUnavailable, "no revision provider configured")
	}

	current, err := s.reader.ReadFile(req.Path)
	if err != nil {
		return ports.DiffResult{}, errors.Wrap(err, errors.CodeNotFound, "cannot read source file").
			WithContext(errors.CtxPath, req.Path)
	}

	language := s.parser.DetectLanguage(req.Path)
	if language == "" || !s.parser.ShapeReady(language) {
		return ports.DiffResult{}, errors.New(errors.CodeUnsupportedLanguage, "no extraction table for this file").
			WithContext(errors.CtxPath, req.Path).
			WithContext(errors.CtxLanguage, language)
	}

	before, err := s.revisions.ReadAt(ctx, req.Path, req.Revision)
	if err != nil {
		// a file absent from a valid revision is an added file, not a
		// failed comparison
		if errors.IsCode(err, errors.CodeNotFound) {
			before = nil
		} else {
			return ports.DiffResult{}, err
		}
	}

	changes, err := s.differ.Diff(req.Path, before, current, language)
	if err != nil {
		return ports.DiffResult{}, err
	}
	observability.DiffsComputedTotal.Inc()
	return ports.DiffResult{Changes: changes, NoChange: len(changes) == 0}, nil
}

func (s *Service) FindUsages(ctx context.Context, req ports.UsageRequest) ([]usage.Usage, error) {
	ctx, span := observability.Tracer.Start(ctx, "Service.FindUsages",
		trace.WithAttributes(attribute.String("symbol", req.Symbol)))
	defer span.End()
	defer s.observe("usage.find", time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Symbol == "" {
		return nil, errors.New(errors.CodeValidationError, "symbol must not be empty")
	}

	radius := req.ContextRadius
	if radius > s.cfg.Budget.MaxContextLines {
		radius = s.cfg.Budget.MaxContextLines
	}

	usages, err := s.locator.Find(req.Symbol, req.SearchRoot, radius)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "search root unavailable").
			WithContext(errors.CtxPath, req.SearchRoot).
			WithContext(errors.CtxSymbol, req.Symbol)
	}
	observability.UsagesLocatedTotal.Add(float64(len(usages)))
	return usages, nil
}

func (s *Service) AffectedBy(ctx context.Context, req ports.ImpactRequest) ([]impact.AffectedUsage, error) {
	ctx, span := observability.Tracer.Start(ctx, "Service.AffectedBy",
		trace.WithAttributes(
			attribute.String("path", req.Path),
			attribute.String("revision", req.Revision),
		))
	defer span.End()
	defer s.observe("impact.affected", time.Now())

	result, err := s.DiffStructural(ctx, ports.DiffRequest{Path: req.Path, Revision: req.Revision})
	if err != nil {
		return nil, err
	}
	if result.NoChange {
		return nil, nil
	}

	searchRoot := req.SearchRoot
	if searchRoot == "" {
		searchRoot = s.root(req.Path)
	}

	var affected []impact.AffectedUsage
	for _, symbol := range changedSymbolNames(result.Changes) {
		usages, err := s.locator.Find(symbol, searchRoot, 0)
		if err != nil {
			s.logger.Warn("usage search failed for changed symbol",
				"symbol", symbol, "root", searchRoot, "error", err)
			continue
		}
		affected = append(affected, impact.Classify(result.Changes, usages, symbol)...)
	}
	return affected, nil
}

func (s *Service) ScopeAt(ctx context.Context, req ports.ScopeRequest) ([]shape.Symbol, error) {
	_, span := observability.Tracer.Start(ctx, "Service.ScopeAt",
		trace.WithAttributes(attribute.String("path", req.Path)))
	defer span.End()
	defer s.observe("scope.at_position", time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := s.reader.ReadFile(req.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "cannot read source file").
			WithContext(errors.CtxPath, req.Path)
	}
	language := s.parser.DetectLanguage(req.Path)
	if language == "" {
		return nil, errors.New(errors.CodeUnsupportedLanguage, "no grammar for this file").
			WithContext(errors.CtxPath, req.Path)
	}

	root := s.root(req.Path)
	return s.scopes.At(project.RelPath(root, req.Path), language, content, req.Line, req.Column)
}

func (s *Service) Languages() []string {
	return s.parser.Languages()
}

func (s *Service) Health(ctx context.Context) ports.HealthStatus {
	return ports.HealthStatus{
		Status:    "up",
		Version:   Version,
		Languages: s.parser.Languages(),
		Uptime:    time.Since(s.started),
	}
}

func (s *Service) observe(operation string, start time.Time) {
	observability.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func changedSymbolNames(changes []diff.ChangeRecord) []string {
	seen := make(map[string]bool, len(changes))
	var names []string
	for _, change := range changes {
		if !seen[change.Name] {
			seen[change.Name] = true
			names = append(names, change.Name)
		}
	}
	return names
}
