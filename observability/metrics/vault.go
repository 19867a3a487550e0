package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type VaultMetrics struct {
	deposits         prometheus.Counter
	withdrawals      prometheus.Counter
	penaltyConverted prometheus.Counter
	harvestedTotal   prometheus.Counter
	dustTotal        prometheus.Counter
	lastEpoch        prometheus.Gauge
	lastHarvest      prometheus.Gauge
	lastDust         prometheus.Gauge
	harvestFailures  *prometheus.CounterVec
	activeProtocols  prometheus.Gauge
	totalBalance     prometheus.Gauge
	optimizerSwitch  prometheus.Counter
}

var (
	vaultOnce     sync.Once
	vaultRegistry *VaultMetrics
)

func Vault() *VaultMetrics {
	vaultOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			deposits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_deposits_total",
				Help: "Count of accepted deposits.",
			}),
			withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_withdrawals_total",
				Help: "Count of completed withdrawals.",
			}),
			penaltyConverted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_penalty_converted_total",
				Help: "Cumulative early-withdrawal penalty folded back into yield.",
			}),
			harvestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_harvested_total",
				Help: "Cumulative yield harvested across all processed epochs.",
			}),
			dustTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_rounding_dust_total",
				Help: "Cumulative undistributed rounding remainder.",
			}),
			lastEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vault_last_harvested_epoch",
				Help: "Number of the most recently processed epoch.",
			}),
			lastHarvest: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vault_last_harvest",
				Help: "Yield harvested in the most recent epoch.",
			}),
			lastDust: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vault_last_rounding_dust",
				Help: "Rounding remainder recorded in the most recent epoch.",
			}),
			harvestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vault_harvest_failures_total",
				Help: "Connector harvest failures skipped during epoch transitions.",
			}, []string{"protocol"}),
			activeProtocols: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vault_active_protocols",
				Help: "Number of protocols in the routing set.",
			}),
			totalBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vault_total_user_balance",
				Help: "Sum of all participant principal balances.",
			}),
			optimizerSwitch: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_optimizer_switches_total",
				Help: "Count of active-protocol switches executed by the optimizer.",
			}),
		}
		prometheus.MustRegister(
			vaultRegistry.deposits,
			vaultRegistry.withdrawals,
			vaultRegistry.penaltyConverted,
			vaultRegistry.harvestedTotal,
			vaultRegistry.dustTotal,
			vaultRegistry.lastEpoch,
			vaultRegistry.lastHarvest,
			vaultRegistry.lastDust,
			vaultRegistry.harvestFailures,
			vaultRegistry.activeProtocols,
			vaultRegistry.totalBalance,
			vaultRegistry.optimizerSwitch,
		)
	})
	return vaultRegistry
}

func (m *VaultMetrics) RecordDeposit() {
	if m == nil {
		return
	}
	m.deposits.Inc()
}

func (m *VaultMetrics) RecordWithdrawal(penalty float64) {
	if m == nil {
		return
	}
	m.withdrawals.Inc()
	if penalty > 0 {
		m.penaltyConverted.Add(penalty)
	}
}

func (m *VaultMetrics) RecordHarvest(epoch uint64, harvested, dust float64) {
	if m == nil {
		return
	}
	m.harvestedTotal.Add(harvested)
	m.dustTotal.Add(dust)
	m.lastEpoch.Set(float64(epoch))
	m.lastHarvest.Set(harvested)
	m.lastDust.Set(dust)
}

func (m *VaultMetrics) RecordHarvestFailure(protocol string) {
	if m == nil {
		return
	}
	m.harvestFailures.WithLabelValues(protocol).Inc()
}

func (m *VaultMetrics) SetActiveProtocols(n int) {
	if m == nil {
		return
	}
	m.activeProtocols.Set(float64(n))
}

func (m *VaultMetrics) SetTotalBalance(v float64) {
	if m == nil {
		return
	}
	m.totalBalance.Set(v)
}

func (m *VaultMetrics) RecordOptimizerSwitch() {
	if m == nil {
		return
	}
	m.optimizerSwitch.Inc()
}
