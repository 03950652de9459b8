package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

func registerDBMetrics(db *gorm.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "unmatched_credit_transactions",
			Help: "Credit bank transactions without a linked payment",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM bank_transactions WHERE matched_payment_id IS NULL AND amount > 0")
		},
	))
}

func queryCount(db *gorm.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.Raw(query).Scan(&count).Error; err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
