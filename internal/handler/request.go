package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/response"
)

const maxBodyBytes = 1 << 20

// NewValidator returns a validator that understands decimal amounts and
// reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates it.
func decodeJSON(r *http.Request, v *validator.Validate, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return customError.WrapInvalidInput(fmt.Sprintf("malformed JSON body: %v", err))
	}
	if err := v.Struct(dst); err != nil {
		return customError.WrapInvalidRequest(err)
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, customError.WrapInvalidInput(name + " must be a valid UUID")
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, customError.WrapInvalidInput(name + " must be an integer")
	}
	return n, nil
}

type contextKey string

const identityContextKey = contextKey("identity")

func contextSetIdentity(r *http.Request, identity domain.Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityContextKey, identity))
}

func contextGetIdentity(r *http.Request) (domain.Identity, bool) {
	identity, ok := r.Context().Value(identityContextKey).(domain.Identity)
	return identity, ok
}

func statusFor(be *customError.BusinessError) int {
	switch be.Kind {
	case customError.KindValidation:
		if be.Code == customError.ErrCodeInvalidRequest {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case customError.KindAuthentication:
		return http.StatusUnauthorized
	case customError.KindAuthorization:
		return http.StatusForbidden
	case customError.KindNotFound:
		return http.StatusNotFound
	case customError.KindInvalidState:
		return http.StatusConflict
	case customError.KindInsufficient, customError.KindOverpayment:
		return http.StatusUnprocessableEntity
	case customError.KindRetryable:
		if be.Code == customError.ErrCodeRateLimited {
			return http.StatusTooManyRequests
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}

// writeError translates err into the JSON error envelope. Internal causes
// are logged and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var be *customError.BusinessError
	if !errors.As(err, &be) {
		be = customError.WrapDatabaseError(err)
	}

	status := statusFor(be)
	switch status {
	case http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "url", r.URL.String(), "code", be.Code, "error", err)
		response.Error(w, status, string(customError.KindInternal), "INTERNAL_ERROR",
			"the server encountered a problem and could not process your request", nil)
		return
	case http.StatusServiceUnavailable:
		logger.WarnContext(r.Context(), "transient store failure", "url", r.URL.String(), "error", err)
		if w.Header().Get("Retry-After") == "" {
			response.RetryAfter(w, 1)
		}
	}

	var details interface{}
	if be.Code == customError.ErrCodeInvalidRequest {
		if fe := fieldErrors(be.Err); fe != nil {
			details = fe
		}
	}
	response.Error(w, status, string(be.Kind), be.Code, be.Message, details)
}
