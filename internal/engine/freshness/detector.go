// Package freshness detects upstream changes to cached device records.
package freshness

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
	"go.trai.ch/zerr"
)

// Baseline is the stored snapshot of the fields a device is compared on.
type Baseline struct {
	Fingerprint string            `json:"fingerprint"`
	Fields      map[string]string `json:"fields"`
	CheckedAt   time.Time         `json:"checked_at"`
}

// Detector compares current registry data with stored baselines and
// invalidates only the changed device's data.
type Detector struct {
	registry ports.Registry
	cache    ports.CacheStore
	graph    ports.GraphStore
	logger   ports.Logger
	now      func() time.Time
}

// New creates a Detector.
func New(registry ports.Registry, cache ports.CacheStore, graph ports.GraphStore, logger ports.Logger) *Detector {
	return &Detector{
		registry: registry,
		cache:    cache,
		graph:    graph,
		logger:   logger,
		now:      time.Now,
	}
}

// TrackedFields returns the fields of rec that downstream decisions depend on.
func TrackedFields(rec *domain.DeviceRecord) map[string]string {
	decided := ""
	if !rec.DecisionDate.IsZero() {
		decided = rec.DecisionDate.Format(time.DateOnly)
	}
	return map[string]string{
		"applicant":     rec.Applicant,
		"decision_code": rec.DecisionCode,
		"decision_date": decided,
		"product_code":  rec.ProductCode,
		"recall_count":  strconv.Itoa(rec.RecallCount),
	}
}

// Fingerprint hashes fields in name order.
func Fingerprint(fields map[string]string) string {
	h := xxhash.New()
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		_, _ = h.WriteString(k + "=" + fields[k] + "\x00")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Check revalidates id against the registry.
//
// The first check of a device stores its baseline and reports it unchanged.
// An update drops the device's cached data and stored record so the next
// access refetches it. A removal also drops the device from the graph.
func (d *Detector) Check(ctx context.Context, id string) (domain.ChangeStatus, error) {
	id, err := domain.ParseDeviceID(id)
	if err != nil {
		return domain.ChangeStatus{}, err
	}

	current, err := d.registry.RevalidateDevice(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return d.removed(id)
	}
	if err != nil {
		return domain.ChangeStatus{}, err
	}

	fields := TrackedFields(current)
	fp := Fingerprint(fields)

	baseline, err := d.loadBaseline(id)
	if err != nil {
		return domain.ChangeStatus{}, err
	}
	if baseline == nil {
		if err := d.storeBaseline(id, fp, fields); err != nil {
			return domain.ChangeStatus{}, err
		}
		return domain.ChangeStatus{ID: id, Kind: domain.ChangeUnchanged}, nil
	}
	if baseline.Fingerprint == fp {
		return domain.ChangeStatus{ID: id, Kind: domain.ChangeUnchanged}, nil
	}

	if err := d.cache.Delete(domain.DeviceKeys(id)); err != nil {
		return domain.ChangeStatus{}, err
	}
	if err := d.graph.DeleteRecord(id); err != nil {
		return domain.ChangeStatus{}, err
	}
	if err := d.storeBaseline(id, fp, fields); err != nil {
		return domain.ChangeStatus{}, err
	}

	return domain.ChangeStatus{ID: id, Kind: domain.ChangeUpdated, Diff: diff(baseline.Fields, fields)}, nil
}

func (d *Detector) removed(id string) (domain.ChangeStatus, error) {
	keys := append(domain.DeviceKeys(id), domain.FingerprintKey(id))
	if err := d.cache.Delete(keys); err != nil {
		return domain.ChangeStatus{}, err
	}
	if err := d.graph.DeleteNode(id); err != nil {
		return domain.ChangeStatus{}, err
	}
	return domain.ChangeStatus{ID: id, Kind: domain.ChangeRemoved}, nil
}

// loadBaseline returns nil when no usable baseline exists. A corrupted
// baseline has already been quarantined by the store and is replaced.
func (d *Detector) loadBaseline(id string) (*Baseline, error) {
	entry, err := d.cache.Get(domain.FingerprintKey(id))
	if errors.Is(err, domain.ErrEntryCorrupted) {
		d.logger.Warn("freshness baseline for " + id + " was corrupted, recording a new one")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	var b Baseline
	if err := json.Unmarshal(entry.Payload, &b); err != nil {
		d.logger.Warn("freshness baseline for " + id + " is unreadable, recording a new one")
		return nil, nil
	}
	return &b, nil
}

func (d *Detector) storeBaseline(id, fp string, fields map[string]string) error {
	data, err := json.Marshal(Baseline{Fingerprint: fp, Fields: fields, CheckedAt: d.now().UTC()})
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to encode freshness baseline"), "id", id)
	}
	// Baselines never expire; they are replaced on change.
	return d.cache.Put(domain.FingerprintKey(id), data, 0)
}

func diff(old, current map[string]string) []domain.FieldChange {
	var changes []domain.FieldChange
	for _, k := range slices.Sorted(maps.Keys(current)) {
		if old[k] != current[k] {
			changes = append(changes, domain.FieldChange{Field: k, Old: old[k], New: current[k]})
		}
	}
	return changes
}
