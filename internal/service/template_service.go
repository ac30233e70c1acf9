package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/Notifuse/mailblocks/internal/domain"
	"github.com/Notifuse/mailblocks/pkg/blocks"
	"github.com/Notifuse/mailblocks/pkg/logger"
	"github.com/Notifuse/mailblocks/pkg/mailer"
	"github.com/Notifuse/mailblocks/pkg/ratelimiter"
	"github.com/Notifuse/mailblocks/pkg/tracing"
)

// CompileFunc turns MJML markup into HTML
type CompileFunc func(ctx context.Context, mjml string) (string, error)

// CompileCache is satisfied by *cache.InMemoryCache[string]
type CompileCache interface {
	Get(key string) (string, bool)
	Set(key string, value string, ttl time.Duration)
}

// Limiter is satisfied by *ratelimiter.RateLimiter
type Limiter interface {
	Allow(namespace, key string) bool
	RetryAfter(namespace, key string) time.Duration
}

type TemplateServiceConfig struct {
	Repository     domain.TemplateRepository
	AuthService    domain.AuthService
	Exporter       *blocks.Exporter
	Mailer         mailer.Mailer
	Logger         logger.Logger
	Tracer         tracing.Tracer
	ExportDefaults blocks.ExportOptions
	// MaxConcurrentCompiles bounds MJML compilations across requests
	MaxConcurrentCompiles int64
	CompileTimeout        time.Duration
	// Compile defaults to blocks.CompileMJML
	Compile CompileFunc
	// Limiter throttles test sends and compilations per user; nil disables it
	Limiter Limiter
	// CompileCache holds compiled HTML keyed by MJML digest; nil disables it
	CompileCache    CompileCache
	CompileCacheTTL time.Duration
}

type TemplateService struct {
	repo           domain.TemplateRepository
	authService    domain.AuthService
	exporter       *blocks.Exporter
	mailer         mailer.Mailer
	logger         logger.Logger
	tracer         tracing.Tracer
	exportDefaults blocks.ExportOptions
	compileSem     *semaphore.Weighted
	compileTimeout time.Duration
	compile        CompileFunc
	limiter        Limiter
	compileCache   CompileCache
	compileTTL     time.Duration
}

func NewTemplateService(cfg TemplateServiceConfig) *TemplateService {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = tracing.GetTracer()
	}
	maxCompiles := cfg.MaxConcurrentCompiles
	if maxCompiles < 1 {
		maxCompiles = 1
	}
	compile := cfg.Compile
	if compile == nil {
		compile = blocks.CompileMJML
	}

	return &TemplateService{
		repo:           cfg.Repository,
		authService:    cfg.AuthService,
		exporter:       cfg.Exporter,
		mailer:         cfg.Mailer,
		logger:         cfg.Logger,
		tracer:         tracer,
		exportDefaults: cfg.ExportDefaults,
		compileSem:     semaphore.NewWeighted(maxCompiles),
		compileTimeout: cfg.CompileTimeout,
		compile:        compile,
		limiter:        cfg.Limiter,
		compileCache:   cfg.CompileCache,
		compileTTL:     cfg.CompileCacheTTL,
	}
}

func (s *TemplateService) SaveTemplate(ctx context.Context, template *domain.Template) (*domain.Template, error) {
	ctx, span := s.tracer.StartServiceSpan(ctx, "TemplateService", "SaveTemplate")
	defer span.End()

	user, err := s.authService.AuthenticateUser(ctx)
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}

	template.UserID = user.ID
	template.Content = blocks.MigrateBlocks(template.Content)

	if err := template.Validate(); err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return nil, domain.NewValidationError(err.Error())
	}

	if template.ID == "" {
		template.ID = uuid.NewString()
		s.tracer.AddAttribute(ctx, "template.id", template.ID)
		if err := s.repo.CreateTemplate(ctx, template); err != nil {
			s.logger.WithField("template_id", template.ID).Error(fmt.Sprintf("Failed to create template: %v", err))
			s.tracer.MarkSpanError(ctx, err)
			return nil, fmt.Errorf("failed to create template: %w", err)
		}
		return template, nil
	}

	s.tracer.AddAttribute(ctx, "template.id", template.ID)
	if err := s.repo.UpdateTemplate(ctx, template); err != nil {
		var notFound *domain.ErrTemplateNotFound
		if errors.As(err, &notFound) {
			// the row exists only for another owner, or not at all
			return nil, s.ownershipError(ctx, template.ID, err)
		}
		s.logger.WithField("template_id", template.ID).Error(fmt.Sprintf("Failed to update template: %v", err))
		s.tracer.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return template, nil
}

// ownershipError distinguishes a missing template from one owned by someone else
func (s *TemplateService) ownershipError(ctx context.Context, id string, notFound error) error {
	existing, err := s.repo.GetTemplateByID(ctx, id)
	if err != nil || existing == nil {
		return notFound
	}
	return domain.NewPermissionError("template belongs to another user")
}

func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	ctx, span := s.tracer.StartServiceSpan(ctx, "TemplateService", "GetTemplate")
	defer span.End()
	s.tracer.AddAttribute(ctx, "template.id", id)

	user, err := s.authService.AuthenticateUser(ctx)
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}

	template, err := s.visibleTemplate(ctx, user, id)
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return nil, err
	}
	return template, nil
}

// visibleTemplate loads a template the user owns or that is public, with its
// content migrated. Other users' private templates are reported as missing.
func (s *TemplateService) visibleTemplate(ctx context.Context, user *domain.User, id string) (*domain.Template, error) {
	template, err := s.repo.GetTemplateByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if template.UserID != user.ID && !template.IsPublic {
		return nil, &domain.ErrTemplateNotFound{Message: "template not found"}
	}

	template.Content = blocks.MigrateBlocks(template.Content)
	return template, nil
}

func (s *TemplateService) LoadTemplate(ctx context.Context, id string) ([]blocks.Block, error) {
	template, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	return template.Content, nil
}

func (s *TemplateService) ListTemplates(ctx context.Context, includePublic bool) ([]*domain.Template, error) {
	ctx, span := s.tracer.StartServiceSpan(ctx, "TemplateService", "ListTemplates")
	defer span.End()

	user, err := s.authService.AuthenticateUser(ctx)
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}

	templates, err := s.repo.ListTemplates(ctx, user.ID, includePublic)
	if err != nil {
		s.logger.WithField("user_id", user.ID).Error(fmt.Sprintf("Failed to list templates: %v", err))
		s.tracer.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (s *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	ctx, span := s.tracer.StartServiceSpan(ctx, "TemplateService", "DeleteTemplate")
	defer span.End()
	s.tracer.AddAttribute(ctx, "template.id", id)

	user, err := s.authService.AuthenticateUser(ctx)
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return fmt.Errorf("failed to authenticate user: %w", err)
	}

	if err := s.repo.DeleteTemplate(ctx, user.ID, id); err != nil {
		var notFound *domain.ErrTemplateNotFound
		if errors.As(err, &notFound) {
			return s.ownershipError(ctx, id, err)
		}
		s.logger.WithField("template_id", id).Error(fmt.Sprintf("Failed to delete template: %v", err))
		s.tracer.MarkSpanError(ctx, err)
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// resolveSource returns the blocks named by a request, loading saved templates
// through the same migration path as LoadTemplate
func (s *TemplateService) resolveSource(ctx context.Context, user *domain.User, source domain.TemplateSource, inline []blocks.Block) ([]blocks.Block, string, error) {
	if source.TemplateID == "" {
		return blocks.MigrateBlocks(inline), "", nil
	}
	template, err := s.visibleTemplate(ctx, user, source.TemplateID)
	if err != nil {
		return nil, "", err
	}
	return template.Content, template.Name, nil
}

// throttle consumes one attempt of namespace for the user
func (s *TemplateService) throttle(namespace string, user *domain.User) error {
	if s.limiter == nil || s.limiter.Allow(namespace, user.ID) {
		return nil
	}
	return &domain.RateLimitError{
		Message:    "too many requests",
		RetryAfter: s.limiter.RetryAfter(namespace, user.ID),
	}
}

func (s *TemplateService) exportOptions(in *domain.ExportOptionsInput) (blocks.ExportOptions, error) {
	opts := in.Apply(s.exportDefaults)
	compat := s.exporter.Compatibility()
	for _, client := range opts.EmailClients {
		if !compat.HasClient(client) {
			return opts, domain.NewValidationError(fmt.Sprintf("unknown email client %q", client))
		}
	}
	return opts, nil
}

func (s *TemplateService) ExportTemplate(ctx context.Context, req domain.ExportTemplateRequest) (*domain.ExportResult, error) {
	ctx, span := s.tracer.StartServiceSpan(ctx, "TemplateService", "ExportTemplate")
	defer span.End()

	user, err := s.authService.AuthenticateUser(ctx)
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}

	inline, err := req.Validate()
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	opts, err := s.exportOptions(req.Options)
	if err != nil {
		return nil, err
	}

	content, name, err := s.resolveSource(ctx, user, req.TemplateSource, inline)
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return nil, err
	}
	if opts.Title == "" {
		opts.Title = name
	}

	html := s.exporter.ExportToHTML(ctx, content, opts)
	tracing.RecordExport(ctx, len(blocks.FlattenBlocks(content)))
	s.tracer.AddAttribute(ctx, "export.bytes", len(html))

	text, err := blocks.PlainText(html)
	if err != nil {
		// the HTML part is still usable without its text alternative
		s.logger.WithField("error", err.Error()).Warn("Failed to derive plain text from export")
	}

	return &domain.ExportResult{HTML: html, Text: text}, nil
}

func (s *TemplateService) CompileTemplate(ctx context.Context, req domain.CompileTemplateRequest) (*domain.CompileTemplateResponse, error) {
	ctx, span := s.tracer.StartServiceSpan(ctx, "TemplateService", "CompileTemplate")
	defer span.End()

	user, err := s.authService.AuthenticateUser(ctx)
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}

	inline, err := req.Validate()
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	opts, err := s.exportOptions(req.Options)
	if err != nil {
		return nil, err
	}

	content, name, err := s.resolveSource(ctx, user, req.TemplateSource, inline)
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return nil, err
	}
	if opts.Title == "" {
		opts.Title = name
	}

	if err := s.throttle(ratelimiter.NamespaceCompile, user); err != nil {
		return nil, err
	}

	mjml := blocks.ConvertToMJML(content, opts)

	var cacheKey string
	if s.compileCache != nil {
		sum := sha256.Sum256([]byte(mjml))
		cacheKey = hex.EncodeToString(sum[:])
		if html, ok := s.compileCache.Get(cacheKey); ok {
			s.tracer.AddAttribute(ctx, "compile.cache_hit", true)
			return &domain.CompileTemplateResponse{MJML: mjml, HTML: html}, nil
		}
	}

	if err := s.compileSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire compile slot: %w", err)
	}
	defer s.compileSem.Release(1)

	compileCtx := ctx
	if s.compileTimeout > 0 {
		var cancel context.CancelFunc
		compileCtx, cancel = context.WithTimeout(ctx, s.compileTimeout)
		defer cancel()
	}

	start := time.Now()
	html, err := s.compile(compileCtx, mjml)
	tracing.RecordCompile(ctx, time.Since(start), err)
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to compile MJML")
		s.tracer.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to compile template: %w", err)
	}

	if s.compileCache != nil {
		s.compileCache.Set(cacheKey, html, s.compileTTL)
	}

	return &domain.CompileTemplateResponse{MJML: mjml, HTML: html}, nil
}

func (s *TemplateService) SendTestEmail(ctx context.Context, req domain.SendTestEmailRequest) error {
	ctx, span := s.tracer.StartServiceSpan(ctx, "TemplateService", "SendTestEmail")
	defer span.End()

	if err := req.Validate(); err != nil {
		return domain.NewValidationError(err.Error())
	}

	user, err := s.authService.AuthenticateUser(ctx)
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return fmt.Errorf("failed to authenticate user: %w", err)
	}

	template, err := s.visibleTemplate(ctx, user, req.TemplateID)
	if err != nil {
		s.tracer.MarkSpanError(ctx, err)
		return err
	}

	if err := s.throttle(ratelimiter.NamespaceSendTest, user); err != nil {
		return err
	}

	opts := s.exportDefaults
	opts.Title = template.Name
	opts.TemplateData = req.TemplateData
	html := s.exporter.ExportToHTML(ctx, template.Content, opts)

	text, err := blocks.PlainText(html)
	if err != nil {
		s.logger.WithField("template_id", template.ID).Warn(fmt.Sprintf("Failed to derive plain text: %v", err))
	}

	subject := req.Subject
	if subject == "" {
		subject = "[Test] " + template.Name
	}

	if err := s.mailer.Send(ctx, mailer.Message{
		To:      req.Email,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}); err != nil {
		s.logger.WithField("template_id", template.ID).Error(fmt.Sprintf("Failed to send test email: %v", err))
		s.tracer.MarkSpanError(ctx, err)
		return fmt.Errorf("failed to send test email: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"template_id": template.ID,
		"recipient":   req.Email,
	}).Info("Test email sent")
	return nil
}
