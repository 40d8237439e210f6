// metrics.go — Prometheus метрики списков.
// Регистрирует метрики: agro_list_fetch_total, agro_list_mutation_total,
// agro_list_stale_responses_total.
package liststate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения лейбла result.
const (
	resultSuccess = "success"
	resultError   = "error"
	resultAborted = "aborted"
)

var (
	// fetchTotal — загрузки страниц списка.
	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agro_list_fetch_total",
			Help: "Количество загрузок страниц списка",
		},
		[]string{"entity", "result"},
	)

	// mutationTotal — мутации записей (create/update/delete/archive/restore).
	mutationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agro_list_mutation_total",
			Help: "Количество мутаций записей списка",
		},
		[]string{"entity", "op", "result"},
	)

	// staleResponsesTotal — ответы, отброшенные как устаревшие.
	staleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agro_list_stale_responses_total",
			Help: "Количество ответов на загрузку списка, отброшенных из-за более нового запроса",
		},
		[]string{"entity"},
	)
)
