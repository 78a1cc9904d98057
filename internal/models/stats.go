package models

import "time"

// StatusCount pairs a status value with its number of records.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

// DateCount pairs a calendar date with its number of records.
type DateCount struct {
	Date  time.Time `db:"date" json:"date"`
	Count int       `db:"count" json:"count"`
}

// DashboardStats is the aggregate payload behind the admin dashboard.
type DashboardStats struct {
	AppointmentsByStatus map[string]int `json:"appointments_by_status"`
	AppointmentsToday    int            `json:"appointments_today"`
	UpcomingLoad         []DateCount    `json:"upcoming_load"`
	ProceduresByStatus   map[string]int `json:"procedures_by_status"`
	NewContactMessages   int            `json:"new_contact_messages"`
	CreatedLast7Days     int            `json:"created_last_7_days"`
	GeneratedAt          time.Time      `json:"generated_at"`
}

// SystemMetrics is a lightweight runtime snapshot served alongside the
// dashboard aggregates.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
