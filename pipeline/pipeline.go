package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"property-pipeline/config"
	"property-pipeline/models"
	"property-pipeline/observability"
	"property-pipeline/services"
	"property-pipeline/storage"
	"property-pipeline/utils"
)

// Sources are the three input tables of a run.
type Sources struct {
	Locations  storage.TableSource
	Prices     storage.TableSource
	Facilities storage.TableSource
}

// Result is everything a successful run produced.
type Result struct {
	Report   *models.RunReport
	Rows     []models.PropertyYear
	Table    *models.Table
	Metadata *models.Table
	Shapes   *models.Table
	Metrics  *observability.Metrics
}

// Pipeline turns the location, price-paid and facility tables into one row
// per property per year.
type Pipeline struct {
	cfg      *config.Config
	logger   *utils.Logger
	sources  *Sources
	insights *services.InsightService
}

// New creates a Pipeline that opens its sources from cfg.
func New(cfg *config.Config, logger *utils.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger, insights: services.NewInsightService(logger)}
}

// WithSources makes the pipeline read from s instead of the configured
// backends. The caller keeps ownership of s.
func (p *Pipeline) WithSources(s Sources) *Pipeline {
	p.sources = &s
	return p
}

// run holds the values handed from one stage to the next. Every stage
// replaces the fields it produces and never edits earlier ones in place.
type run struct {
	cfg      *config.Config
	logger   *utils.Logger
	metrics  *observability.Metrics
	cleaner  *services.Cleaner
	insights *services.InsightService
	report   *models.RunReport
	sources  Sources

	names        sourceNames
	shapes       []models.FileShape
	priceColumns []string

	locations    []models.Location
	transactions []models.Transaction
	facilities   []models.Facility

	merged     []models.SaleRecord
	identified []models.SaleRecord
	properties []models.Property
	series     []models.YearPrice
	observed   map[string]map[int]bool
	rows       []models.PropertyYear

	result *Result
}

// Run executes every stage in order. Any stage error aborts the run before
// anything is written.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.WithField("run_id", runID)
	started := time.Now()

	logger.Info("[pipeline] Run starting (radius %.0fm, workers %d, strict %t)",
		p.cfg.StoreRadiusMeters, p.cfg.Workers, p.cfg.Strict)

	sources, closeSources, err := p.openSources(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageLoadSources, err)
	}
	defer closeSources()

	r := &run{
		cfg:      p.cfg,
		logger:   logger,
		metrics:  observability.NewMetrics(),
		cleaner:  services.NewCleaner(logger, p.cfg.Strict),
		insights: p.insights,
		sources:  sources,
		report: &models.RunReport{
			RunID:      runID,
			StartedAt:  started,
			OutputPath: p.cfg.Output.Table,
		},
	}

	for _, stage := range Stages() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", stage, err)
		}

		log := logger.WithField("stage", stage.String())
		start := time.Now()
		err := r.step(stage)(ctx, log)
		elapsed := time.Since(start)
		r.metrics.RecordStage(stage.String(), elapsed.Seconds(), err)

		if err != nil {
			log.WithError(err).Error("[pipeline] Stage failed after %v", elapsed.Round(time.Millisecond))
			return nil, fmt.Errorf("%s: %w", stage, err)
		}
		log.Info("[pipeline] Stage finished in %v", elapsed.Round(time.Millisecond))
	}

	r.report.Duration = time.Since(started)
	if path := p.cfg.Output.Metrics; path != "" {
		if err := r.metrics.WriteTextfile(path); err != nil {
			logger.WithError(err).Warn("[pipeline] Could not write metrics")
		}
	}

	logger.Info("[pipeline] Run complete: %d rows for %d properties in %v",
		r.report.OutputRows, r.report.Properties, r.report.Duration.Round(time.Millisecond))
	return r.result, nil
}

func (p *Pipeline) openSources(ctx context.Context, logger *utils.Logger) (Sources, func(), error) {
	if p.sources != nil {
		return *p.sources, func() {}, nil
	}

	var opened []storage.TableSource
	closeAll := func() {
		for _, s := range opened {
			_ = s.Close()
		}
	}

	var s Sources
	for _, target := range []struct {
		dst *storage.TableSource
		cfg config.SourceConfig
	}{
		{&s.Locations, p.cfg.Sources.Locations},
		{&s.Prices, p.cfg.Sources.Prices},
		{&s.Facilities, p.cfg.Sources.Facilities},
	} {
		src, err := storage.OpenSource(ctx, p.cfg, target.cfg, logger)
		if err != nil {
			closeAll()
			return Sources{}, nil, err
		}
		opened = append(opened, src)
		*target.dst = src
	}
	return s, closeAll, nil
}

type stageFunc func(ctx context.Context, log *utils.Logger) error

func (r *run) step(s Stage) stageFunc {
	switch s {
	case StageLoadSources:
		return r.loadSources
	case StageMergeBase:
		return r.mergeBase
	case StageBuildIdentity:
		return r.buildIdentity
	case StageDerivePostcodeAndType:
		return r.derivePostcodeAndType
	case StageBuildPriceSeries:
		return r.buildPriceSeries
	case StageMergeSeries:
		return r.mergeSeries
	case StageMatchFacilities:
		return r.matchFacilities
	case StageEmit:
		return r.emit
	}
	return func(context.Context, *utils.Logger) error {
		return fmt.Errorf("unknown stage %d", s)
	}
}

func (r *run) loadSources(ctx context.Context, log *utils.Logger) error {
	locT, err := r.load(ctx, log, r.sources.Locations, r.cfg.Sources.Locations)
	if err != nil {
		return err
	}
	priceT, err := r.load(ctx, log, r.sources.Prices, r.cfg.Sources.Prices)
	if err != nil {
		return err
	}
	facT, err := r.load(ctx, log, r.sources.Facilities, r.cfg.Sources.Facilities)
	if err != nil {
		return err
	}

	r.names = sourceNames{Locations: locT.Name, Prices: priceT.Name, Facilities: facT.Name}
	r.priceColumns = priceT.Columns

	r.locations = r.cleaner.CleanLocations(locT)
	r.transactions, err = r.cleaner.CleanTransactions(services.RawTransactions(priceT))
	if err != nil {
		return err
	}
	all := r.cleaner.CleanFacilities(facT)
	r.facilities = services.FilterFacilities(all, r.cfg.FacilityCounties)

	r.report.Locations = len(r.locations)
	r.report.Transactions = len(r.transactions)
	r.report.Facilities = len(r.facilities)

	log.Info("[pipeline] Loaded %d locations, %d transactions, %d facilities (%d before county filter)",
		len(r.locations), len(r.transactions), len(r.facilities), len(all))
	return nil
}

// load reads one source and checks it carries every configured column.
func (r *run) load(ctx context.Context, log *utils.Logger, src storage.TableSource, sc config.SourceConfig) (*models.Table, error) {
	t, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Describe(), err)
	}
	if missing := t.Missing(storage.CleanColumns(sc.Columns)); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s is missing columns: %s",
			services.ErrInput, src.Describe(), strings.Join(missing, ", "))
	}

	r.shapes = append(r.shapes, services.Shape(t))
	r.metrics.RowsLoaded.WithLabelValues(t.Name).Set(float64(len(t.Rows)))
	log.Debug("[pipeline] Read %d rows × %d columns from %s", len(t.Rows), len(t.Columns), src.Describe())
	return t, nil
}

func (r *run) mergeBase(_ context.Context, log *utils.Logger) error {
	merged, unmatched, err := mergeBase(r.transactions, r.locations, r.cfg.JoinTolerance)
	if err != nil {
		return err
	}

	for _, i := range unmatched {
		tx := r.transactions[i]
		r.cleaner.Warn(services.WarnUnmatchedPostcode, "transaction %s postcode %q has no location", tx.RecordID, tx.Postcode)
	}
	r.report.UnmatchedPostcodes = len(unmatched)
	r.merged = merged

	log.Info("[pipeline] Merged %d transactions onto locations (%d unmatched)", len(merged), len(unmatched))
	return nil
}

func (r *run) buildIdentity(_ context.Context, log *utils.Logger) error {
	hasher, err := services.NewIdentityHasher(r.priceColumns)
	if err != nil {
		return err
	}
	r.identified = hasher.Assign(r.merged)

	log.Debug("[pipeline] Assigned identities to %d records", len(r.identified))
	return nil
}

func (r *run) derivePostcodeAndType(_ context.Context, log *utils.Logger) error {
	props := latestSales(r.identified)
	r.properties = describeProperties(props, services.NewClassifier(nil))

	log.Info("[pipeline] %d distinct properties from %d records", len(r.properties), len(r.identified))
	return nil
}

func (r *run) buildPriceSeries(_ context.Context, log *utils.Logger) error {
	points := pricePoints(r.identified)
	series, err := services.Interpolate(points)
	if err != nil {
		return err
	}
	r.series = series
	r.observed = services.ObservedYears(points)

	log.Info("[pipeline] Built %d property-years from %d price points", len(series), len(points))
	return nil
}

func (r *run) mergeSeries(_ context.Context, log *utils.Logger) error {
	rows, err := mergeSeries(r.properties, r.series, r.observed, r.cfg.JoinTolerance)
	if err != nil {
		return err
	}
	r.rows = rows

	log.Debug("[pipeline] Joined %d yearly prices onto properties", len(rows))
	return nil
}

func (r *run) matchFacilities(_ context.Context, log *utils.Logger) error {
	matcher, err := services.NewFacilityMatcher(r.facilities, services.MatcherOptions{
		RadiusMeters: r.cfg.StoreRadiusMeters,
		Workers:      r.cfg.Workers,
		ChunkSize:    r.cfg.ChunkSize,
	}, log)
	if err != nil {
		return err
	}

	matched, err := matcher.Match(r.properties)
	if err != nil {
		return err
	}
	r.properties = matched
	r.rows = rejoin(r.rows, matched)

	log.Info("[pipeline] Matched %d properties against %d facilities", len(matched), len(r.facilities))
	return nil
}

func (r *run) emit(_ context.Context, log *utils.Logger) error {
	rows := append([]models.PropertyYear(nil), r.rows...)
	sortRows(rows)

	table, defs := encodeRows(baseName(r.cfg.Output.Table), outputSchema(r.names), rows)
	metadata := services.SummaryTable(services.Summarise(table, defs))
	shapes := append(append([]models.FileShape(nil), r.shapes...), services.Shape(table))
	shapeTable := services.ShapeTable(shapes)

	if err := storage.WriteAll(
		storage.Output{Path: r.cfg.Output.Table, Table: table},
		storage.Output{Path: r.cfg.Output.Metadata, Table: metadata},
		storage.Output{Path: r.cfg.Output.Shape, Table: shapeTable},
	); err != nil {
		return err
	}

	r.metrics.RowsWritten.WithLabelValues(table.Name).Set(float64(len(table.Rows)))
	r.metrics.RowsWritten.WithLabelValues(metadata.Name).Set(float64(len(metadata.Rows)))
	r.metrics.Properties.Set(float64(len(r.properties)))

	r.report.Warnings = r.cleaner.Warnings()
	r.metrics.RecordWarnings(r.report.Warnings)
	r.insights.Generate(r.report, rows)

	r.result = &Result{
		Report:   r.report,
		Rows:     rows,
		Table:    table,
		Metadata: metadata,
		Shapes:   shapeTable,
		Metrics:  r.metrics,
	}

	log.Info("[pipeline] Wrote %d rows × %d columns to %s", len(table.Rows), len(table.Columns), r.cfg.Output.Table)
	return nil
}

// DescribeTable recomputes the metadata summary of an existing output table,
// attributing columns to the sources named in cfg.
func DescribeTable(t *models.Table, cfg *config.Config) *models.Table {
	names := sourceNames{
		Locations:  sourceName(cfg.Sources.Locations),
		Prices:     sourceName(cfg.Sources.Prices),
		Facilities: sourceName(cfg.Sources.Facilities),
	}
	_, defs := encodeRows(t.Name, outputSchema(names), nil)
	return services.SummaryTable(services.Summarise(t, defs))
}

func sourceName(sc config.SourceConfig) string {
	if sc.FromPostgres() {
		if i := strings.LastIndex(sc.Table, "."); i >= 0 {
			return sc.Table[i+1:]
		}
		return sc.Table
	}
	return baseName(sc.Path)
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
