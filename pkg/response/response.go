package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorBody is the machine-readable part of a failed response.
type ErrorBody struct {
	Kind    string      `json:"kind"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// Amount renders money as a JSON number with exactly two decimals.
type Amount decimal.Decimal

func Money(d decimal.Decimal) Amount {
	return Amount(d)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).StringFixed(2)), nil
}

func write(w http.ResponseWriter, statusCode int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("error encoding JSON response", "error", err)
	}
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Response{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Success sends a successful JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created sends a created JSON response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, statusCode int, kind, code, message string, details interface{}) {
	write(w, statusCode, Response{
		Success:   false,
		Message:   message,
		Error:     &ErrorBody{Kind: kind, Code: code, Details: details},
		Timestamp: time.Now().UTC(),
	})
}

// RetryAfter sets the Retry-After header in seconds
func RetryAfter(w http.ResponseWriter, seconds int) {
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
}

// MetricsResponseWriter records the status and size of a response
type MetricsResponseWriter struct {
	http.ResponseWriter
	StatusCode    int
	BytesCount    int
	headerWritten bool
}

func NewMetricsResponseWriter(w http.ResponseWriter) *MetricsResponseWriter {
	return &MetricsResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (mw *MetricsResponseWriter) WriteHeader(statusCode int) {
	if !mw.headerWritten {
		mw.StatusCode = statusCode
		mw.headerWritten = true
	}
	mw.ResponseWriter.WriteHeader(statusCode)
}

func (mw *MetricsResponseWriter) Write(b []byte) (int, error) {
	mw.headerWritten = true
	n, err := mw.ResponseWriter.Write(b)
	mw.BytesCount += n
	return n, err
}

func (mw *MetricsResponseWriter) Unwrap() http.ResponseWriter {
	return mw.ResponseWriter
}
