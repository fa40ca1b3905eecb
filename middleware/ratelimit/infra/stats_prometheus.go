package infra

import (
	"context"

	"go.uber.org/multierr"

	"pipeline-guard/internal/metrics"
	"pipeline-guard/middleware/ratelimit/domain"
)

// PrometheusStatsStore conta decisões no contador pipeline_ratelimit_decisions_total,
// rotulado pelo nome do limiter. Não guarda key nem path (cardinalidade).
type PrometheusStatsStore struct {
	Name string
}

func NewPrometheusStatsStore(name string) PrometheusStatsStore {
	return PrometheusStatsStore{Name: name}
}

func (s PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	if ev.Outcome != "" {
		metrics.RecordRateDecision(s.Name, ev.Outcome)
	}
	return nil
}

// MultiStatsStore repassa cada evento a todos os stores, mesmo se algum falhar.
type MultiStatsStore []domain.StatsStore

func (m MultiStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	var err error
	for _, s := range m {
		if s == nil {
			continue
		}
		err = multierr.Append(err, s.Record(ctx, ev))
	}
	return err
}
