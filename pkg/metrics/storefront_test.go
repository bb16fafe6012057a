package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStorefrontMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefront(reg)

	m.IncCartMutation("add", "applied")
	m.IncCartMutation("add", "applied")
	m.IncCartMutation("add", "rejected")
	m.ObserveSubmission("stock_conflict", 120*time.Millisecond)
	m.IncTaskFailure("order_confirmation_email")
	m.ObserveTask("order_confirmation_email", 5*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "storefront_cart_mutations_total", map[string]string{"op": "add", "result": "applied"}); err != nil {
		t.Fatalf("fetch cart mutations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected applied=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "storefront_order_submissions_total", map[string]string{"outcome": "stock_conflict"}); err != nil {
		t.Fatalf("fetch submissions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected stock_conflict=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "storefront_background_task_failures_total", map[string]string{"task": "order_confirmation_email"}); err != nil {
		t.Fatalf("fetch task failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected task failure=1, got %f", got)
	}
	if mf := findMetricFamily(mfs, "storefront_order_submission_duration_seconds"); mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatal("expected submission duration to be observed")
	}
}

func TestStorefrontMetricsNilSafe(t *testing.T) {
	var m *Storefront
	m.IncCartMutation("add", "applied")
	m.ObserveSubmission("success", time.Second)
	m.IncTaskFailure("x")
	m.ObserveTask("x", time.Second)

	unregistered := NewStorefront(nil)
	unregistered.IncCartMutation("", "")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
