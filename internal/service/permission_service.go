package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
)

const (
	orgRolesCachePrefix     = "rbac:org:"
	defaultRolesCachePrefix = "rbac:default:"
)

// placeholderPattern matches one {param} segment in a path template.
var placeholderPattern = regexp.MustCompile(`\{[^/{}]*\}`)

type roleStore interface {
	FindOrgRoles(ctx context.Context, org string) ([]models.RolePermissionDocument, error)
	FindDefaultRoles(ctx context.Context, names []string) ([]models.RolePermissionDocument, error)
}

type roleCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Invalidate(ctx context.Context, pattern string) error
}

// PermissionServiceConfig tunes role and pattern caching.
type PermissionServiceConfig struct {
	RoleCacheTTL     time.Duration
	PatternCacheSize int
	PatternCacheTTL  time.Duration
}

// Permission sources reported in a Decision.
const (
	PermissionSourceOrg     = "org"
	PermissionSourceDefault = "default"
)

// Decision explains which rule granted a request.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Source  string `json:"source,omitempty"`
	Role    string `json:"role,omitempty"`
	Method  string `json:"method,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// PermissionService matches requests against org and default role permissions.
type PermissionService struct {
	roles    roleStore
	cache    roleCache
	patterns *lru.LRU[string, *regexp.Regexp]
	loads    singleflight.Group
	logger   *zap.Logger
	metrics  *MetricsService
	cfg      PermissionServiceConfig
}

// NewPermissionService constructs the matcher.
func NewPermissionService(roles roleStore, cache roleCache, logger *zap.Logger, cfg PermissionServiceConfig) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PatternCacheSize <= 0 {
		cfg.PatternCacheSize = 1024
	}
	if cfg.PatternCacheTTL <= 0 {
		cfg.PatternCacheTTL = time.Hour
	}
	if cfg.RoleCacheTTL <= 0 {
		cfg.RoleCacheTTL = 5 * time.Minute
	}
	return &PermissionService{
		roles:    roles,
		cache:    cache,
		patterns: lru.NewLRU[string, *regexp.Regexp](cfg.PatternCacheSize, nil, cfg.PatternCacheTTL),
		logger:   logger,
		cfg:      cfg,
	}
}

// WithMetrics records role store query timings on metrics.
func (s *PermissionService) WithMetrics(metrics *MetricsService) *PermissionService {
	s.metrics = metrics
	return s
}

// Authorize grants method on path when any of the caller's roles permits it and returns ErrForbidden otherwise.
// Org roles are consulted before default roles; the first matching rule wins.
func (s *PermissionService) Authorize(ctx context.Context, method, path string, roles []string, org string) (*Decision, error) {
	held := normaliseRoles(roles)
	if len(held) == 0 {
		return &Decision{}, appErrors.Clone(appErrors.ErrForbidden, "no roles assigned")
	}
	holds := make(map[string]struct{}, len(held))
	for _, role := range held {
		holds[role] = struct{}{}
	}

	if org = strings.TrimSpace(org); org != "" {
		docs, err := s.orgRoles(ctx, org)
		if err != nil {
			return &Decision{}, err
		}
		if decision := s.match(docs, holds, method, path, PermissionSourceOrg); decision.Allowed {
			return decision, nil
		}
	}

	docs, err := s.defaultRoles(ctx, held)
	if err != nil {
		return &Decision{}, err
	}
	if decision := s.match(docs, holds, method, path, PermissionSourceDefault); decision.Allowed {
		return decision, nil
	}

	return &Decision{}, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s %s is not permitted", strings.ToUpper(method), path))
}

// InvalidateOrg drops cached roles for org.
func (s *PermissionService) InvalidateOrg(ctx context.Context, org string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, orgRolesCachePrefix+org); err != nil {
		s.logger.Warn("failed to invalidate org roles", zap.String("org", org), zap.Error(err))
	}
}

// InvalidateDefaults drops every cached default role lookup.
func (s *PermissionService) InvalidateDefaults(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, defaultRolesCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate default roles", zap.Error(err))
	}
}

func (s *PermissionService) match(docs []models.RolePermissionDocument, holds map[string]struct{}, method, path, source string) *Decision {
	for _, doc := range docs {
		if _, ok := holds[doc.RoleName]; !ok {
			continue
		}
		for _, perm := range doc.APIPermissions {
			if !strings.EqualFold(strings.TrimSpace(perm.Method), method) {
				continue
			}
			re, err := s.compile(perm.URLPattern)
			if err != nil {
				s.logger.Warn("skipping invalid permission pattern", zap.String("role", doc.RoleName), zap.String("pattern", perm.URLPattern), zap.Error(err))
				continue
			}
			if re.MatchString(path) {
				return &Decision{Allowed: true, Source: source, Role: doc.RoleName, Method: strings.ToUpper(method), Pattern: perm.URLPattern}
			}
		}
	}
	return &Decision{}
}

func (s *PermissionService) compile(template string) (*regexp.Regexp, error) {
	if re, ok := s.patterns.Get(template); ok {
		return re, nil
	}
	re, err := CompilePathTemplate(template)
	if err != nil {
		return nil, err
	}
	s.patterns.Add(template, re)
	return re, nil
}

// CompilePathTemplate turns /files/{id} into ^/files/[^/]+$. Each placeholder
// matches exactly one path segment; literal text is matched verbatim.
func CompilePathTemplate(template string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range placeholderPattern.FindAllStringIndex(template, -1) {
		b.WriteString(regexp.QuoteMeta(template[last:loc[0]]))
		b.WriteString("[^/]+")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(template[last:]))
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func (s *PermissionService) orgRoles(ctx context.Context, org string) ([]models.RolePermissionDocument, error) {
	return s.cached(ctx, orgRolesCachePrefix+org, "rbac_org_roles", func() ([]models.RolePermissionDocument, error) {
		docs, err := s.roles.FindOrgRoles(ctx, org)
		if err != nil {
			return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to load org roles")
		}
		return docs, nil
	})
}

func (s *PermissionService) defaultRoles(ctx context.Context, names []string) ([]models.RolePermissionDocument, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return s.cached(ctx, defaultRolesCachePrefix+strings.Join(sorted, ","), "rbac_default_roles", func() ([]models.RolePermissionDocument, error) {
		docs, err := s.roles.FindDefaultRoles(ctx, names)
		if err != nil {
			return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to load default roles")
		}
		return docs, nil
	})
}

// cached reads key from the role cache, loading it at most once across
// concurrent callers on a miss.
func (s *PermissionService) cached(ctx context.Context, key, label string, load func() ([]models.RolePermissionDocument, error)) ([]models.RolePermissionDocument, error) {
	var docs []models.RolePermissionDocument
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, key, &docs); err == nil && hit {
			return docs, nil
		}
	}
	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		start := time.Now()
		loaded, err := load()
		if s.metrics != nil {
			s.metrics.ObserveDBQuery(label, time.Since(start))
		}
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.RolePermissionDocument), nil
}

func (s *PermissionService) store(ctx context.Context, key string, docs []models.RolePermissionDocument) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, docs, s.cfg.RoleCacheTTL); err != nil {
		s.logger.Debug("role cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func normaliseRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
