package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/cra-planner/internal/cache"
	"github.com/andresuchdata/cra-planner/internal/config"
	"github.com/andresuchdata/cra-planner/internal/domain"
	"github.com/andresuchdata/cra-planner/internal/drive"
	"github.com/andresuchdata/cra-planner/internal/feed"
	"github.com/andresuchdata/cra-planner/internal/metrics"
	"github.com/andresuchdata/cra-planner/internal/pipeline"
	"github.com/andresuchdata/cra-planner/internal/planning"
	"github.com/andresuchdata/cra-planner/internal/report"
	"github.com/andresuchdata/cra-planner/internal/repository"
	"github.com/andresuchdata/cra-planner/internal/storage"
)

var (
	// ErrWarehouseNotFound means the requested warehouse has no rows in the
	// inventory snapshot.
	ErrWarehouseNotFound = errors.New("warehouse not found in inventory")
	// ErrArchiveDisabled is returned by archive lookups when no object storage
	// is configured.
	ErrArchiveDisabled = errors.New("report archive not configured")
)

// folderResolver is implemented by stores that can look folders up by path.
type folderResolver interface {
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

// Deps are the collaborators of a PlanningService. Store is required; the
// rest fall back to in-process defaults when nil.
type Deps struct {
	Store    drive.DocumentStore
	Cache    cache.InventoryCache
	Runs     repository.RunRepository
	Renderer report.Renderer
	Archive  storage.ObjectStorage
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

type PlanningService struct {
	cfg        *config.Config
	store      drive.DocumentStore
	downloader *drive.Downloader
	cache      cache.InventoryCache
	runs       repository.RunRepository
	renderer   report.Renderer
	archive    storage.ObjectStorage
	metrics    *metrics.Metrics
	rules      planning.SupportRules
	now        func() time.Time
}

func NewPlanningService(cfg *config.Config, deps Deps) *PlanningService {
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopInventoryCache()
	}
	if deps.Runs == nil {
		deps.Runs = repository.NewMemoryRunRepository(0)
	}
	if deps.Renderer == nil {
		deps.Renderer = report.NewXLSXRenderer()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &PlanningService{
		cfg:        cfg,
		store:      deps.Store,
		downloader: drive.NewDownloader(deps.Store),
		cache:      deps.Cache,
		runs:       deps.Runs,
		renderer:   deps.Renderer,
		archive:    deps.Archive,
		metrics:    deps.Metrics,
		rules:      SupportRules(cfg.Planning.Support),
		now:        deps.Now,
	}
}

// SupportRules converts the configured rule table.
func SupportRules(cfg config.SupportConfig) planning.SupportRules {
	special := make([]planning.SpecialRule, 0, len(cfg.SpecialRules))
	for _, r := range cfg.SpecialRules {
		special = append(special, planning.SpecialRule{Token: r.Token, Branch: r.Branch})
	}
	return planning.SupportRules{
		PrimaryA:      cfg.PrimaryBranchA,
		PrimaryB:      cfg.PrimaryBranchB,
		Special:       special,
		GeneralToken:  cfg.GeneralToken,
		GeneralFormat: cfg.GeneralWarehouseFormat,
	}
}

// LoadInventory returns the master inventory snapshot, from cache when fresh.
func (s *PlanningService) LoadInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	if records, ok, err := s.cache.Get(ctx); err == nil && ok {
		s.metrics.InventoryLoads.WithLabelValues("cache").Inc()
		return records, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("inventory: cache get failed")
	}

	folder, token := s.cfg.Drive.InventoryFolderID, s.cfg.Drive.InventoryToken
	doc, ok, err := s.downloader.First(ctx, folder, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", feed.ErrInventoryUnavailable, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no file matching %q", feed.ErrInventoryUnavailable, token)
	}

	records, err := feed.ParseInventory(doc.Name, doc.Data)
	if err != nil {
		return nil, err
	}
	s.metrics.InventoryLoads.WithLabelValues("store").Inc()
	log.Info().Str("file", doc.Name).Int("rows", len(records)).Msg("inventory loaded")

	if err := s.cache.Set(ctx, records); err != nil {
		log.Warn().Err(err).Msg("inventory: cache set failed")
	}

	return records, nil
}

// RefreshInventory drops the cached snapshot so the next load reads the
// document store again.
func (s *PlanningService) RefreshInventory(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}

// ListWarehouses returns the warehouses of the snapshot sorted by name. The
// branch of a warehouse is the one on its first inventory row.
func (s *PlanningService) ListWarehouses(ctx context.Context) ([]domain.WarehouseOption, error) {
	records, err := s.LoadInventory(ctx)
	if err != nil {
		return nil, err
	}
	return warehouseCatalogue(records), nil
}

func warehouseCatalogue(records []domain.InventoryRecord) []domain.WarehouseOption {
	byName := make(map[string]*domain.WarehouseOption)
	parts := make(map[string]map[string]struct{})

	for _, r := range records {
		name := strings.TrimSpace(r.Warehouse)
		if name == "" {
			continue
		}
		opt, ok := byName[name]
		if !ok {
			opt = &domain.WarehouseOption{Warehouse: name, Branch: strings.TrimSpace(r.Branch)}
			byName[name] = opt
			parts[name] = make(map[string]struct{})
		}
		if np := domain.NormalizeNP(r.NP); np != "" {
			parts[name][np] = struct{}{}
		}
	}

	options := make([]domain.WarehouseOption, 0, len(byName))
	for name, opt := range byName {
		opt.Parts = len(parts[name])
		options = append(options, *opt)
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Warehouse < options[j].Warehouse })
	return options
}

// findWarehouse locates a warehouse by exact name, then case-insensitively.
func findWarehouse(records []domain.InventoryRecord, name string) (domain.WarehouseRef, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.WarehouseRef{}, false
	}

	var fallback *domain.InventoryRecord
	for i := range records {
		w := strings.TrimSpace(records[i].Warehouse)
		if w == name {
			return domain.WarehouseRef{Warehouse: w, Branch: strings.TrimSpace(records[i].Branch)}, true
		}
		if fallback == nil && strings.EqualFold(w, name) {
			fallback = &records[i]
		}
	}
	if fallback != nil {
		return domain.WarehouseRef{
			Warehouse: strings.TrimSpace(fallback.Warehouse),
			Branch:    strings.TrimSpace(fallback.Branch),
		}, true
	}
	return domain.WarehouseRef{}, false
}

// reconcileSupport maps the resolved support warehouse onto the spelling used
// in the snapshot. When the exact name is absent, the branch warehouse whose
// name carries the general token is used instead.
func (s *PlanningService) reconcileSupport(records []domain.InventoryRecord, resolved domain.WarehouseRef) domain.WarehouseRef {
	if ref, ok := findWarehouse(records, resolved.Warehouse); ok {
		return ref
	}

	token := strings.ToUpper(s.rules.GeneralToken)
	if token == "" {
		token = "GENERAL"
	}
	for _, r := range records {
		w := strings.TrimSpace(r.Warehouse)
		if strings.EqualFold(strings.TrimSpace(r.Branch), resolved.Branch) &&
			strings.Contains(strings.ToUpper(w), token) {
			return domain.WarehouseRef{Warehouse: w, Branch: strings.TrimSpace(r.Branch)}
		}
	}

	log.Warn().Str("warehouse", resolved.Warehouse).Str("branch", resolved.Branch).
		Msg("support warehouse not present in inventory")
	return resolved
}

// GenerateReport runs the whole planning pipeline for one warehouse and
// returns the rendered report. Every run that gets past warehouse lookup is
// recorded.
func (s *PlanningService) GenerateReport(ctx context.Context, req domain.ReportRequest) (*domain.ReportResult, error) {
	start := s.now()

	coverage := req.Coverage
	if coverage == 0 {
		coverage = s.cfg.Planning.DefaultCoverage
	}
	calc, err := planning.NewCalculator(coverage)
	if err != nil {
		return nil, err
	}

	records, err := s.LoadInventory(ctx)
	if err != nil {
		return nil, err
	}

	local, ok := findWarehouse(records, req.Warehouse)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrWarehouseNotFound, req.Warehouse)
	}

	run := &domain.ReportRun{
		ID:        uuid.NewString(),
		Warehouse: local.Warehouse,
		Branch:    local.Branch,
		Coverage:  coverage,
		Status:    domain.RunStatusProcessing,
		StartedAt: start,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		log.Warn().Err(err).Str("run", run.ID).Msg("failed to record run")
	}

	result, err := s.generate(ctx, run, local, records, calc, req)
	s.finishRun(ctx, run, start, err)
	if err != nil {
		return nil, err
	}

	result.Run = *run
	return result, nil
}

func (s *PlanningService) generate(
	ctx context.Context,
	run *domain.ReportRun,
	local domain.WarehouseRef,
	records []domain.InventoryRecord,
	calc *planning.Calculator,
	req domain.ReportRequest,
) (*domain.ReportResult, error) {
	resolved := planning.ResolveSupport(s.rules, local)
	support := s.reconcileSupport(records, resolved)
	run.SupportWarehouse, run.SupportBranch = support.Warehouse, support.Branch

	log.Info().
		Str("warehouse", local.Warehouse).
		Str("branch", local.Branch).
		Str("support", support.Warehouse).
		Str("rule", planning.SupportRuleName(s.rules, local)).
		Float64("coverage", calc.Coverage()).
		Msg("generating report")

	windows := planning.NewWindows(run.StartedAt)
	localStock := planning.CollapseStock(records, local.Warehouse)
	supportStock := planning.CollapseStock(records, support.Warehouse)

	sales := newSalesSource(s, windows)
	var localMetrics, supportMetrics []domain.MovementMetrics

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.movement(gctx, sales, windows, local, localStock)
		localMetrics = m
		return err
	})
	g.Go(func() error {
		m, err := s.movement(gctx, sales, windows, support, supportStock)
		supportMetrics = m
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	transit, err := feed.ParseTransit(req.TransitFileName, req.TransitFile)
	if err != nil {
		return nil, fmt.Errorf("invalid transit file: %w", err)
	}
	transfers, err := feed.ParseTransfers(req.TransferFileName, req.TransferFile, req.TransferTag)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer file: %w", err)
	}

	table := planning.Assemble(planning.AssemblyInput{
		Local:               local,
		Support:             support,
		LocalMetrics:        localMetrics,
		LocalStock:          localStock,
		SupportMetrics:      supportMetrics,
		SupportStock:        supportStock,
		InTransit:           transit,
		TransfersInProgress: transfers,
		Calculator:          calc,
	})

	content, err := s.renderer.Render(table)
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	fileName := report.FileName(local.Warehouse, run.StartedAt)
	s.archiveReport(ctx, local, fileName, content, run.StartedAt)

	run.Parts = len(table.Rows)
	run.FileName = fileName
	run.Summary = table.Summary

	return &domain.ReportResult{
		Local:    local,
		Support:  support,
		Summary:  table.Summary,
		FileName: fileName,
		Content:  content,
	}, nil
}

// movement aggregates the sales of one warehouse over the trailing windows.
func (s *PlanningService) movement(
	ctx context.Context,
	sales *salesSource,
	windows planning.Windows,
	ref domain.WarehouseRef,
	stock planning.StockTable,
) ([]domain.MovementMetrics, error) {
	events, err := sales.events(ctx, ref.Branch)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		log.Warn().Str("warehouse", ref.Warehouse).Str("branch", ref.Branch).
			Msg("no sales events found, metrics are zero")
	}

	return planning.NewAggregator(windows).Aggregate(events, ref.Warehouse, stock.Order), nil
}

// salesSource loads the sales history of each branch at most once per run.
type salesSource struct {
	svc     *PlanningService
	windows planning.Windows

	mu       sync.Mutex
	branches map[string]*branchSales
}

type branchSales struct {
	once   sync.Once
	events []domain.SalesEvent
	err    error
}

func newSalesSource(svc *PlanningService, windows planning.Windows) *salesSource {
	return &salesSource{svc: svc, windows: windows, branches: make(map[string]*branchSales)}
}

func (src *salesSource) events(ctx context.Context, branch string) ([]domain.SalesEvent, error) {
	branch = strings.ToUpper(strings.TrimSpace(branch))

	src.mu.Lock()
	b, ok := src.branches[branch]
	if !ok {
		b = &branchSales{}
		src.branches[branch] = b
	}
	src.mu.Unlock()

	b.once.Do(func() {
		b.events, b.err = src.svc.loadSales(ctx, branch, src.windows.Years())
	})
	return b.events, b.err
}

// loadSales downloads and parses the master sales documents of a branch for
// the given years. Unreadable documents are skipped.
func (s *PlanningService) loadSales(ctx context.Context, branch string, years []int) ([]domain.SalesEvent, error) {
	tokenSets := make([][]string, 0, len(years))
	for _, y := range years {
		tokenSets = append(tokenSets, []string{branch, strconv.Itoa(y), s.cfg.Drive.SalesToken})
	}

	docs, err := s.downloader.DownloadEach(ctx, s.cfg.Drive.SalesFolderID, tokenSets, func(f drive.File, err error) {
		s.metrics.SalesDocsSkipped.WithLabelValues("download").Inc()
		log.Warn().Err(err).Str("file", f.Name).Str("branch", branch).Msg("skipping sales document")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales documents of %s: %w", branch, err)
	}
	if len(docs) == 0 {
		log.Warn().Str("branch", branch).Ints("years", years).Msg("no sales documents found")
	}

	parsed, err := pipeline.Process(ctx, s.cfg.Planning.ParseWorkers, docs,
		func(_ context.Context, doc drive.Document) ([]domain.SalesEvent, error) {
			return feed.ParseSales(doc.Name, doc.Data)
		})
	if err != nil {
		return nil, err
	}

	var events []domain.SalesEvent
	for i, res := range parsed {
		if res.Err != nil {
			s.metrics.SalesDocsSkipped.WithLabelValues("parse").Inc()
			log.Warn().Err(res.Err).Str("file", docs[i].Name).Str("branch", branch).Msg("skipping sales document")
			continue
		}
		log.Debug().Str("file", docs[i].Name).Int("rows", len(res.Output)).Msg("sales document loaded")
		events = append(events, res.Output...)
	}

	return events, nil
}

// archiveReport writes the report to every configured sink. Sink failures are
// logged and do not fail the run.
func (s *PlanningService) archiveReport(ctx context.Context, local domain.WarehouseRef, fileName string, content []byte, at time.Time) {
	if dir := s.cfg.Planning.OutputDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to create output dir")
		} else if err := os.WriteFile(filepath.Join(dir, fileName), content, 0o644); err != nil {
			log.Warn().Err(err).Str("file", fileName).Msg("failed to write report")
		}
	}

	if folderID := s.reportFolder(ctx); folderID != "" {
		if _, err := s.store.Upload(ctx, folderID, fileName, drive.XLSXMimeType, content); err != nil {
			log.Warn().Err(err).Str("file", fileName).Msg("failed to upload report to drive")
		}
	}

	if s.archive != nil {
		key := storage.ReportKey(s.cfg.Storage.Prefix, local.Branch, fileName, at)
		if err := s.archive.UploadObject(ctx, key, content, drive.XLSXMimeType); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to archive report")
		}
	}
}

func (s *PlanningService) reportFolder(ctx context.Context) string {
	if id := s.cfg.Drive.ReportFolderID; id != "" {
		return id
	}
	path := s.cfg.Drive.ReportFolderPath
	if path == "" {
		return ""
	}
	resolver, ok := s.store.(folderResolver)
	if !ok {
		return ""
	}
	id, err := resolver.FindFolderByPath(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("report folder not found")
		return ""
	}
	return id
}

func (s *PlanningService) finishRun(ctx context.Context, run *domain.ReportRun, start time.Time, runErr error) {
	end := s.now()
	run.CompletedAt = &end

	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = runErr.Error()
		log.Error().Err(runErr).Str("run", run.ID).Str("warehouse", run.Warehouse).Msg("report failed")
	} else {
		run.Status = domain.RunStatusCompleted
		s.metrics.ReportParts.Observe(float64(run.Parts))
		log.Info().Str("run", run.ID).Str("warehouse", run.Warehouse).Int("parts", run.Parts).
			Str("file", run.FileName).Msg("report completed")
	}

	s.metrics.ReportRuns.WithLabelValues(string(run.Status)).Inc()
	s.metrics.ReportDuration.Observe(end.Sub(start).Seconds())

	if err := s.runs.Update(context.WithoutCancel(ctx), run); err != nil {
		log.Warn().Err(err).Str("run", run.ID).Msg("failed to update run")
	}
}

func (s *PlanningService) ListRuns(ctx context.Context, warehouse string, limit int) ([]domain.ReportRun, error) {
	return s.runs.ListRecent(ctx, strings.TrimSpace(warehouse), limit)
}

func (s *PlanningService) GetRun(ctx context.Context, id string) (*domain.ReportRun, error) {
	return s.runs.Get(ctx, id)
}

// ListArchive lists archived reports, optionally limited to one branch.
func (s *PlanningService) ListArchive(ctx context.Context, branch string) ([]storage.ObjectInfo, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	prefix := strings.Trim(s.cfg.Storage.Prefix, "/")
	if branch != "" {
		prefix = storage.BranchPrefix(prefix, branch)
	}
	return s.archive.ListObjects(ctx, prefix)
}

// GetArchived fetches one archived report by key.
func (s *PlanningService) GetArchived(ctx context.Context, key string) ([]byte, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.GetObject(ctx, key)
}
