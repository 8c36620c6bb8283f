// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package certify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type engineMetrics struct {
	issued           *prometheus.CounterVec
	confirmed        prometheus.Counter
	revoked          prometheus.Counter
	timeouts         prometheus.Counter
	rewardsPaid      prometheus.Counter
	rewardFailures   prometheus.Counter
	depthRegressions prometheus.Counter
	activeTrackers   prometheus.Gauge
}

func newEngineMetrics(promRegistry prometheus.Registerer) *engineMetrics {
	promautoMetrics := promauto.With(promRegistry)
	return &engineMetrics{
		issued: promautoMetrics.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_certificates_issued_total",
			Help: "total certificates issued, by content category",
		}, []string{"category"}),
		confirmed: promautoMetrics.NewCounter(prometheus.CounterOpts{
			Name: "sigil_certificates_confirmed_total",
			Help: "total certificates that reached the settlement threshold",
		}),
		revoked: promautoMetrics.NewCounter(prometheus.CounterOpts{
			Name: "sigil_certificates_revoked_total",
			Help: "total certificates revoked",
		}),
		timeouts: promautoMetrics.NewCounter(prometheus.CounterOpts{
			Name: "sigil_confirmation_timeouts_total",
			Help: "total confirmation trackers that exhausted their attempt ceiling",
		}),
		rewardsPaid: promautoMetrics.NewCounter(prometheus.CounterOpts{
			Name: "sigil_rewards_paid_total",
			Help: "total reward payouts completed",
		}),
		rewardFailures: promautoMetrics.NewCounter(prometheus.CounterOpts{
			Name: "sigil_reward_failures_total",
			Help: "total reward payouts that failed",
		}),
		depthRegressions: promautoMetrics.NewCounter(prometheus.CounterOpts{
			Name: "sigil_depth_regressions_discarded_total",
			Help: "total regressed confirmation depth reads discarded by trackers",
		}),
		activeTrackers: promautoMetrics.NewGauge(prometheus.GaugeOpts{
			Name: "sigil_confirmation_trackers_active",
			Help: "number of confirmation trackers currently polling",
		}),
	}
}
