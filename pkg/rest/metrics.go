// Copyright 2025 Tom Barlow
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

package rest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataimport_rest_classifications_total",
			Help: "Total classified outbound responses by outcome and failure kind",
		},
		[]string{"outcome", "kind"},
	)
)

// recordClassification increments the classification counter.
func recordClassification(r Result) {
	classifications.WithLabelValues(r.Outcome.String(), r.Kind.String()).Inc()
}
