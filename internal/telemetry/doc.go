// Package telemetry records reminder outcomes (firings and
// suppressions) to InfluxDB for dashboards and trend analysis. It is
// optional; when disabled the relay runs without it.
package telemetry
