// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// zeusNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	zeusNamespace = "zeus"

	serdeSubsystem = "serde"

	// 以下为当前使用的通用标签名。
	strategyLabelName = "strategy"
	statusLabelName   = "status"
	reasonLabelName   = "reason"
)

var (
	// sizeBuckets 为数据大小的桶划分，单位为字节。
	sizeBuckets = []float64{256, 4096, 65536, 1048576, 16777216, 134217728, 1073741824, 4294967296}

	SerializeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: zeusNamespace,
			Subsystem: serdeSubsystem,
			Name:      "serialize_total",
			Help:      "number of serialize calls by strategy and status",
		}, []string{strategyLabelName, statusLabelName})

	DeserializeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: zeusNamespace,
			Subsystem: serdeSubsystem,
			Name:      "deserialize_total",
			Help:      "number of deserialize calls by strategy and status",
		}, []string{strategyLabelName, statusLabelName})

	EnvelopeBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: zeusNamespace,
			Subsystem: serdeSubsystem,
			Name:      "envelope_bytes",
			Help:      "total byte size of produced envelopes",
			Buckets:   sizeBuckets,
		})

	EnvelopeRawBuffers = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: zeusNamespace,
			Subsystem: serdeSubsystem,
			Name:      "envelope_raw_buffers",
			Help:      "number of raw payload buffers per envelope",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		})

	SerdeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: zeusNamespace,
			Subsystem: serdeSubsystem,
			Name:      "errors_total",
			Help:      "serialize/deserialize failures by reason",
		}, []string{reasonLabelName})

	metricRegisterer prometheus.Registerer
)

// 标签取值常量，避免调用方散落字符串字面量。
const (
	StrategyOpaque  = "opaque"
	StrategyCustom  = "custom"
	StrategyGeneric = "generic"
	StrategyValue   = "value"

	StatusSuccess = "success"
	StatusFail    = "fail"
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标。
// 通常应在 init 函数中调用。
func Register(r prometheus.Registerer) {
	r.MustRegister(SerializeTotal)
	r.MustRegister(DeserializeTotal)
	r.MustRegister(EnvelopeBytes)
	r.MustRegister(EnvelopeRawBuffers)
	r.MustRegister(SerdeErrors)
	metricRegisterer = r
}
