package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eknojore-quran-api/internal/models"
	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

type settingRepository interface {
	All(ctx context.Context) ([]models.Setting, error)
	ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Update(ctx context.Context, key, value string) (int64, error)
	Insert(ctx context.Context, key, value string) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

var settingDefinitions = []models.SettingDefinition{
	{Key: models.SettingSiteName, Type: models.SettingTypeString, Description: "Site name shown in the navigation bar", Default: "এক নজরে কুরআন"},
	{Key: models.SettingLogoURL, Type: models.SettingTypeURL, Description: "Logo image shown in the manager badge"},
	{Key: models.SettingHeroBannerURL, Type: models.SettingTypeURL, Description: "Hero banner image"},
	{Key: models.SettingHeroBismillah, Type: models.SettingTypeString, Description: "Line above the hero title", Default: "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ"},
	{Key: models.SettingHeroTitle, Type: models.SettingTypeString, Description: "Hero title", Default: "এক নজরে কুরআন"},
	{Key: models.SettingHeroSubtitle, Type: models.SettingTypeString, Description: "Hero subtitle", Default: "কুরআনের শেষ ১৯টি সূরা সহজভাবে বুঝুন। নিয়মিত পড়ার অভ্যাস তৈরি করুন। আমলমুখী জীবন গড়ুন।"},
	{Key: models.SettingManagerName, Type: models.SettingTypeString, Description: "Course manager name", Default: "—"},
	{Key: models.SettingFeaturesTitle, Type: models.SettingTypeString, Description: "Features section title", Default: "কেন এই কোর্স?"},
	{Key: models.SettingFeaturesSubtitle, Type: models.SettingTypeString, Description: "Features section subtitle", Default: "এই কোর্সটি আপনাকে কুরআনের শেষ ১৯টি সূরা সহজে বুঝতে সাহায্য করবে"},
	{Key: models.FeatureTitleKey(1), Type: models.SettingTypeString, Description: "First feature card title", Default: "সূরা ভিত্তিক পাঠ"},
	{Key: models.FeatureDescKey(1), Type: models.SettingTypeString, Description: "First feature card text", Default: "সূরা আলাক্ব থেকে সূরা নাস পর্যন্ত প্রতিটি সূরার ব্যাখ্যা, মূল শিক্ষা এবং গুরুত্বপূর্ণ আয়াত"},
	{Key: models.FeatureTitleKey(2), Type: models.SettingTypeString, Description: "Second feature card title", Default: "প্রশ্নোত্তর পদ্ধতি"},
	{Key: models.FeatureDescKey(2), Type: models.SettingTypeString, Description: "Second feature card text", Default: "প্রতিটি সূরার শেষে প্রশ্নের উত্তর দিন এবং আপনার বোঝাপড়া যাচাই করুন"},
	{Key: models.FeatureTitleKey(3), Type: models.SettingTypeString, Description: "Third feature card title", Default: "অগ্রগতি ট্র্যাকিং"},
	{Key: models.FeatureDescKey(3), Type: models.SettingTypeString, Description: "Third feature card text", Default: "আপনার শেখার অগ্রগতি দেখুন এবং শিক্ষকের ফিডব্যাক পান"},
	{Key: models.SettingCourseTitle, Type: models.SettingTypeString, Description: "Course section title", Default: "কোর্সের বিষয়বস্তু"},
	{Key: models.SettingCourseSubtitle, Type: models.SettingTypeString, Description: "Course section subtitle", Default: "সূরা আলাক্ব (৯৬) থেকে সূরা নাস (১১৪)"},
	{Key: models.SettingCTATitle, Type: models.SettingTypeString, Description: "Call to action title", Default: "আজই শুরু করুন"},
	{Key: models.SettingCTADesc, Type: models.SettingTypeString, Description: "Call to action text", Default: "কুরআনের জ্ঞান অর্জনের এই সুযোগ হাতছাড়া করবেন না। এখনই রেজিস্ট্রেশন করুন এবং আপনার শেখার যাত্রা শুরু করুন।"},
	{Key: models.SettingCTAButtonText, Type: models.SettingTypeString, Description: "Call to action button", Default: "যোগ দিন"},
	{Key: models.SettingWhatsAppTitle, Type: models.SettingTypeString, Description: "WhatsApp section title", Default: "WhatsApp গ্রুপে যোগ দিন"},
	{Key: models.SettingWhatsAppDesc, Type: models.SettingTypeString, Description: "WhatsApp section text", Default: "কুরআন শিক্ষার আপডেট ও আলোচনায় অংশ নিতে আমাদের WhatsApp গ্রুপে যোগ দিন।"},
	{Key: models.SettingWhatsAppButton, Type: models.SettingTypeString, Description: "WhatsApp section button", Default: "WhatsApp যোগ দিন"},
	{Key: models.SettingWhatsAppLink, Type: models.SettingTypeURL, Description: "Group invite link handed out for free joins"},
	{Key: models.SettingMCQTimeLimit, Type: models.SettingTypeInteger, Description: "Minutes allowed per MCQ exam", Default: "10"},
	{Key: models.SettingAutoMarking, Type: models.SettingTypeBoolean, Description: "Mark option answers automatically on submission", Default: "false"},
	{Key: models.SettingBkashNumber, Type: models.SettingTypeString, Description: "bKash number for hadiya"},
	{Key: models.SettingNagadNumber, Type: models.SettingTypeString, Description: "Nagad number for hadiya"},
	{Key: models.SettingHadiyaDescription, Type: models.SettingTypeString, Description: "Text shown on the hadiya page"},
	{Key: models.SettingBkashQRURL, Type: models.SettingTypeURL, Description: "bKash QR image"},
	{Key: models.SettingNagadQRURL, Type: models.SettingTypeURL, Description: "Nagad QR image"},
	{Key: models.SettingGoogleFormLink, Type: models.SettingTypeURL, Description: "Exam form used when a surah has no link of its own"},
	{Key: models.SettingSectionOrder, Type: models.SettingTypeJSON, Description: "Homepage section order"},
	{Key: models.SettingCustomSections, Type: models.SettingTypeJSON, Description: "Admin-defined homepage sections", Default: "[]"},
}

var settingDefinitionIndex = func() map[string]models.SettingDefinition {
	index := make(map[string]models.SettingDefinition, len(settingDefinitions))
	for _, def := range settingDefinitions {
		index[def.Key] = def
	}
	return index
}()

// SettingDefault returns the public-site default for key, or "".
func SettingDefault(key string) string {
	return settingDefinitionIndex[key].Default
}

// Lookup returns values[key] when it is non-empty and fallback otherwise.
func Lookup(values map[string]string, key, fallback string) string {
	if v, ok := values[key]; ok && v != "" {
		return v
	}
	return fallback
}

// SettingsServiceConfig tunes caching.
type SettingsServiceConfig struct {
	CacheTTL time.Duration
}

// SettingsService reads and writes the key/value settings register.
type SettingsService struct {
	repo      settingRepository
	cache     *CacheService
	audit     auditWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	ttl       time.Duration
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingRepository, cache *CacheService, audit auditWriter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SettingsServiceConfig) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		repo:      repo,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		ttl:       cfg.CacheTTL,
	}
}

// Definitions lists the keys accepted by the admin API.
func (s *SettingsService) Definitions() []models.SettingDefinition {
	out := make([]models.SettingDefinition, len(settingDefinitions))
	copy(out, settingDefinitions)
	return out
}

// Map returns every stored setting as a flat key/value map.
func (s *SettingsService) Map(ctx context.Context) (map[string]string, error) {
	values := map[string]string{}
	_, err := s.cache.Fetch(ctx, CacheKeySettings, &values, s.ttl, func(ctx context.Context) (interface{}, error) {
		rows, err := s.repo.All(ctx)
		if err != nil {
			return nil, err
		}
		m := make(map[string]string, len(rows))
		for _, row := range rows {
			m[row.Key] = row.Value
		}
		return m, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return values, nil
}

// Get returns the stored value for key, or fallback when unset or empty.
func (s *SettingsService) Get(ctx context.Context, key, fallback string) (string, error) {
	values, err := s.Map(ctx)
	if err != nil {
		return fallback, err
	}
	return Lookup(values, key, fallback), nil
}

// List returns every known key with its stored value or default.
func (s *SettingsService) List(ctx context.Context) ([]models.SettingItem, error) {
	rows, err := s.repo.All(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	stored := make(map[string]models.Setting, len(rows))
	for _, row := range rows {
		stored[row.Key] = row
	}
	items := make([]models.SettingItem, 0, len(settingDefinitions))
	for _, def := range settingDefinitions {
		items = append(items, settingItem(def, stored[def.Key], hasKey(stored, def.Key)))
	}
	return items, nil
}

// Item returns one known key.
func (s *SettingsService) Item(ctx context.Context, key string) (*models.SettingItem, error) {
	def, err := requireSettingKey(key)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			item := settingItem(def, models.Setting{}, false)
			return &item, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get setting")
	}
	item := settingItem(def, *row, true)
	return &item, nil
}

// Update validates an admin bulk edit against the known keys and saves it.
func (s *SettingsService) Update(ctx context.Context, req models.UpdateSettingsRequest, actor *models.JWTClaims) ([]models.SettingItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	details := map[string]string{}
	entries := make([]models.Setting, 0, len(req.Values))
	for _, def := range settingDefinitions {
		raw, ok := req.Values[def.Key]
		if !ok {
			continue
		}
		value, err := s.validateValue(def, raw)
		if err != nil {
			details[def.Key] = err.Error()
			continue
		}
		entries = append(entries, models.Setting{Key: def.Key, Value: value})
	}
	for key := range req.Values {
		if _, ok := settingDefinitionIndex[key]; !ok {
			details[key] = "unsupported setting key"
		}
	}
	if len(details) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid settings payload", details)
	}

	if err := s.Save(ctx, entries, actor); err != nil {
		return nil, err
	}
	items := make([]models.SettingItem, 0, len(entries))
	now := time.Now().UTC()
	for _, e := range entries {
		def := settingDefinitionIndex[e.Key]
		e.UpdatedAt = now
		items = append(items, settingItem(def, e, true))
	}
	return items, nil
}

// Save writes entries in order. Each key is updated, and inserted when the update
// matched no row. Writes are independent: the first failure stops the run and is
// returned, earlier writes stay. The cache is invalidated whatever the outcome.
func (s *SettingsService) Save(ctx context.Context, entries []models.Setting, actor *models.JWTClaims) error {
	if len(entries) == 0 {
		return nil
	}
	defer func() {
		_ = s.cache.Invalidate(context.WithoutCancel(ctx), CacheKeySettings, CacheKeyHomepage)
	}()

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	previous := s.previousValues(ctx, keys)
	written := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := s.saveOne(ctx, e.Key, e.Value); err != nil {
			s.logger.Error("setting write failed",
				zap.String("key", e.Key),
				zap.Strings("written", written),
				zap.Error(err))
			appErr := appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to save setting %s", e.Key))
			appErr.Details = map[string]string{"failed_key": e.Key}
			if len(written) > 0 {
				appErr.Details["written_keys"] = strings.Join(written, ",")
			}
			return appErr
		}
		written = append(written, e.Key)
		if old, ok := previous[e.Key]; !ok || old != e.Value {
			s.emitAudit(ctx, actor, e.Key, old, e.Value)
		}
	}
	return nil
}

// WrittenSettingKeys lists the keys a failed Save had already written.
func WrittenSettingKeys(err error) []string {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) || appErr.Details["written_keys"] == "" {
		return nil
	}
	return strings.Split(appErr.Details["written_keys"], ",")
}

func (s *SettingsService) saveOne(ctx context.Context, key, value string) error {
	affected, err := s.repo.Update(ctx, key, value)
	s.metrics.RecordSettingWrite("update", err)
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	err = s.repo.Insert(ctx, key, value)
	s.metrics.RecordSettingWrite("insert", err)
	return err
}

func (s *SettingsService) previousValues(ctx context.Context, keys []string) map[string]string {
	if s.audit == nil {
		return nil
	}
	rows, err := s.repo.ListByKeys(ctx, keys)
	if err != nil {
		s.logger.Warn("failed to load settings for audit", zap.Error(err))
		return nil
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out
}

func (s *SettingsService) validateValue(def models.SettingDefinition, value string) (string, error) {
	switch def.Type {
	case models.SettingTypeBoolean:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		}
		return "", fmt.Errorf("%s expects boolean value", def.Key)
	case models.SettingTypeInteger:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return "", fmt.Errorf("%s expects a non-negative integer", def.Key)
		}
		return strconv.Itoa(n), nil
	case models.SettingTypeURL:
		value = strings.TrimSpace(value)
		if value == "" || strings.HasPrefix(value, "/") {
			return value, nil
		}
		if err := s.validator.Var(value, "url"); err != nil {
			return "", fmt.Errorf("%s expects a URL", def.Key)
		}
		return value, nil
	case models.SettingTypeJSON:
		return validateJSONSetting(def.Key, value)
	default:
		return value, nil
	}
}

func validateJSONSetting(key, value string) (string, error) {
	switch key {
	case models.SettingSectionOrder:
		var order []string
		if err := json.Unmarshal([]byte(value), &order); err != nil || len(order) == 0 {
			return "", fmt.Errorf("%s expects a non-empty array of section keys", key)
		}
	case models.SettingCustomSections:
		var customs []models.CustomSection
		if err := json.Unmarshal([]byte(value), &customs); err != nil {
			return "", fmt.Errorf("%s expects an array of sections", key)
		}
	default:
		if !json.Valid([]byte(value)) {
			return "", fmt.Errorf("%s expects JSON", key)
		}
	}
	return value, nil
}

func (s *SettingsService) emitAudit(ctx context.Context, actor *models.JWTClaims, key, oldValue, newValue string) {
	if s.audit == nil {
		return
	}
	oldBytes, _ := json.Marshal(map[string]string{"key": key, "value": oldValue})
	newBytes, _ := json.Marshal(map[string]string{"key": key, "value": newValue})
	log := &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionSettingUpdate,
		Resource:   "setting",
		ResourceID: strPtr(key),
		OldValues:  oldBytes,
		NewValues:  newBytes,
		IPAddress:  "system",
		UserAgent:  "settings-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record setting audit", zap.String("key", key), zap.Error(err))
	}
}

func requireSettingKey(key string) (models.SettingDefinition, error) {
	def, ok := settingDefinitionIndex[key]
	if !ok {
		return models.SettingDefinition{}, appErrors.Clone(appErrors.ErrValidation, "unsupported setting key")
	}
	return def, nil
}

func settingItem(def models.SettingDefinition, row models.Setting, stored bool) models.SettingItem {
	item := models.SettingItem{
		Key:         def.Key,
		Value:       def.Default,
		Type:        def.Type,
		Description: def.Description,
	}
	if stored {
		item.Value = row.Value
		item.Stored = true
		if !row.UpdatedAt.IsZero() {
			ts := row.UpdatedAt
			item.UpdatedAt = &ts
		}
	}
	return item
}

func hasKey(m map[string]models.Setting, key string) bool {
	_, ok := m[key]
	return ok
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	return &actor.UserID
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}
