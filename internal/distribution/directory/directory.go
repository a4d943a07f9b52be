// Package directory reads organizational reference data from the backend.
// Reference lists are cached in Redis; per-person lookups are not.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"application-distribution/internal/common/database"
	apperrors "application-distribution/internal/common/errors"
	"application-distribution/internal/common/logger"
	"application-distribution/internal/common/metrics"
	"application-distribution/internal/distribution/models"
)

// CacheKeyPrefix namespaces directory entries in Redis.
const CacheKeyPrefix = "distribution:dir:"

// Transport is the backend GET used by the directory.
type Transport interface {
	GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error
}

// Cache stores reference lists. database.RedisClient implements it.
type Cache interface {
	GetJSON(ctx context.Context, key string, out interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type Options struct {
	CacheTTL time.Duration
	// IssuedToTypeIDs maps a recipient kind to the audit table type id.
	IssuedToTypeIDs map[models.RecipientKind]int
}

type Directory struct {
	transport Transport
	cache     Cache
	opts      Options
	logger    logger.Logger
}

// New builds a Directory. cache may be nil to disable caching.
func New(transport Transport, cache Cache, opts Options, log logger.Logger) *Directory {
	return &Directory{
		transport: transport,
		cache:     cache,
		opts:      opts,
		logger:    log.WithFields(map[string]interface{}{"component": "directory"}),
	}
}

// Options returns the option list of slot for a kind's form given the ids
// already selected.
func (d *Directory) Options(ctx context.Context, kind models.RecipientKind, slot models.Slot, sel models.SelectionContext, category string) ([]models.OrganizationalEntity, error) {
	r, path, query, err := resolve(kind, slot, sel, category)
	if err != nil {
		return nil, apperrors.NewDirectoryLookupFailedError(string(slot), err)
	}

	if r.kind == models.EntityFee {
		var amounts []int
		if err := d.cached(ctx, path, query, &amounts); err != nil {
			return nil, apperrors.NewDirectoryLookupFailedError(path, err)
		}
		return feeEntities(amounts), nil
	}

	var out []models.OrganizationalEntity
	if err := d.cached(ctx, path, query, &out); err != nil {
		return nil, apperrors.NewDirectoryLookupFailedError(path, err)
	}
	for i := range out {
		out[i].Kind = r.kind
	}
	return out, nil
}

// MobileNumber returns the employee's mobile number. The backend answers with
// a bare JSON string, a number, or an object carrying mobileNo.
func (d *Directory) MobileNumber(ctx context.Context, empID int) (string, error) {
	path := fmt.Sprintf(pathMobileNo, empID)
	var raw json.RawMessage
	if err := d.transport.GetJSON(ctx, path, nil, &raw); err != nil {
		return "", apperrors.NewDirectoryLookupFailedError(path, err)
	}
	mobile, err := decodeMobile(raw)
	if err != nil {
		return "", apperrors.NewDirectoryLookupFailedError(path, err)
	}
	return mobile, nil
}

// DistributionHistory reads the audit table of past allocations made by empID
// to recipients of kind.
func (d *Directory) DistributionHistory(ctx context.Context, empID int, kind models.RecipientKind) ([]models.DistributionRecord, error) {
	typeID, ok := d.opts.IssuedToTypeIDs[kind]
	if !ok {
		return nil, apperrors.NewUnknownFormTypeError(string(kind))
	}
	path := fmt.Sprintf(pathHistory, empID, typeID)
	var out []models.DistributionRecord
	if err := d.transport.GetJSON(ctx, path, nil, &out); err != nil {
		return nil, apperrors.NewDirectoryLookupFailedError(path, err)
	}
	return out, nil
}

func (d *Directory) cached(ctx context.Context, path string, query url.Values, out interface{}) error {
	if d.cache == nil || d.opts.CacheTTL <= 0 {
		return d.transport.GetJSON(ctx, path, query, out)
	}

	key := CacheKeyPrefix + path
	if len(query) > 0 {
		key += "?" + query.Encode()
	}

	err := d.cache.GetJSON(ctx, key, out)
	switch {
	case err == nil:
		metrics.DirectoryCacheHits.WithLabelValues("hit").Inc()
		return nil
	case isMiss(err):
		metrics.DirectoryCacheHits.WithLabelValues("miss").Inc()
	default:
		metrics.DirectoryCacheHits.WithLabelValues("error").Inc()
		d.logger.Warn("directory cache read failed", map[string]interface{}{"key": key, "error": err})
	}

	if err := d.transport.GetJSON(ctx, path, query, out); err != nil {
		return err
	}
	if err := d.cache.SetJSON(ctx, key, out, d.opts.CacheTTL); err != nil {
		d.logger.Warn("directory cache write failed", map[string]interface{}{"key": key, "error": err})
	}
	return nil
}

func isMiss(err error) bool {
	return errors.Is(err, database.ErrCacheMiss)
}

func decodeMobile(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", errors.New("empty mobile number response")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("unrecognized mobile number response: %s", trimmed)
	}
	for _, k := range []string{"mobileNo", "mobileNumber", "mobile"} {
		switch v := obj[k].(type) {
		case string:
			return strings.TrimSpace(v), nil
		case float64:
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return "", fmt.Errorf("mobile number missing from response: %s", trimmed)
}
