package s3store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/epigrid/epigridgo/internal/ctxlog"
)

// dateLayout is the partition encoding used in object keys, e.g.
// processed/oxford_all/2026-08-29/national.
const dateLayout = "2006-01-02"

// probeDays is how far back LatestPartition searches before giving up.
const probeDays = 10

// DateKey builds a date-partitioned object key.
func DateKey(folder string, date time.Time, name string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(folder, "/"), date.Format(dateLayout), name)
}

// VariantKey builds the key for a per-state lineage file, e.g.
// interim/variants/2026-08-29/B.1.1.7/USA/B.1.1.7_lineage_data.csv.
func VariantKey(folder string, date time.Time, lineage, alpha3 string, country bool) string {
	base := fmt.Sprintf("%s/%s/%s/%s", strings.TrimSuffix(folder, "/"), date.Format(dateLayout), lineage, alpha3)
	if country {
		return fmt.Sprintf("%s/%s_lineage_data_country.csv", base, lineage)
	}
	return fmt.Sprintf("%s/%s_lineage_data.csv", base, lineage)
}

// FlattenKey turns an object key into a flat local file name by joining its
// last two path segments with an underscore.
func FlattenKey(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) < 2 {
		return key
	}
	return strings.Join(parts[len(parts)-2:], "_")
}

// LatestPartition probes backwards from today for the most recent date
// partition under folder that contains objects, looking back up to ten days.
// It returns the keys found and the partition date.
func (s *Store) LatestPartition(ctx context.Context, folder string) ([]string, time.Time, error) {
	return s.latestPartitionFrom(ctx, folder, time.Now().UTC())
}

func (s *Store) latestPartitionFrom(ctx context.Context, folder string, from time.Time) ([]string, time.Time, error) {
	logger := ctxlog.FromContext(ctx)

	for daysBack := 0; daysBack < probeDays; daysBack++ {
		date := from.AddDate(0, 0, -daysBack)
		prefix := fmt.Sprintf("%s/%s", strings.TrimSuffix(folder, "/"), date.Format(dateLayout))

		keys, err := s.List(ctx, prefix)
		if err != nil {
			return nil, time.Time{}, err
		}
		if len(keys) > 0 {
			logger.Debug("Found latest partition.", "prefix", prefix, "objects", len(keys))
			return keys, date, nil
		}
		logger.Debug("Partition empty, probing previous day.", "prefix", prefix)
	}

	return nil, time.Time{}, fmt.Errorf("no objects found under %q in the last %d days", folder, probeDays)
}
