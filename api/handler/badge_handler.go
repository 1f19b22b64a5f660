package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"badgeauth/internal/dto"
	"badgeauth/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type BadgeAuthHandler struct {
	Service  *service.BadgeAuthService
	Validate *validator.Validate
}

func NewBadgeAuthHandler(svc *service.BadgeAuthService, validate *validator.Validate) *BadgeAuthHandler {
	return &BadgeAuthHandler{Service: svc, Validate: validate}
}

// Handle is the single badge auth endpoint; the action field dispatches to
// the individual operations.
func (h *BadgeAuthHandler) Handle(c echo.Context) error {
	var req dto.ActionRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "bad_request", err.Error())
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, "validation_error", err.Error())
	}

	ctx := c.Request().Context()
	switch req.Action {
	case "lookup":
		result, err := h.Service.Lookup(ctx, req.BadgeNumber)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, dto.LookupResponse{
			Exists:                  result.Exists,
			HasAccount:              result.HasAccount,
			EmployeeName:            result.EmployeeName,
			MaskedSupervisorContact: result.MaskedSupervisorContact,
			RequiresPINChange:       result.RequiresPINChange,
		})

	case "quick-signup":
		if req.PIN == "" {
			return writeError(c, http.StatusBadRequest, "validation_error", "pin is required")
		}
		result, err := h.Service.QuickSignup(ctx, req.BadgeNumber, req.PIN)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, sessionResponse(result))

	case "change-pin":
		if req.PIN == "" || req.NewPIN == "" {
			return writeError(c, http.StatusBadRequest, "validation_error", "pin and new_pin are required")
		}
		if err := h.Service.ChangePIN(ctx, req.BadgeNumber, req.PIN, req.NewPIN); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, dto.MessageResponse{Message: "pin updated"})

	case "signup-request":
		result, err := h.Service.SignupRequest(ctx, req.BadgeNumber)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, dto.CodeRequestResponse{MaskedSupervisorContact: result.MaskedSupervisorContact})

	case "signup-verify":
		if req.OTP == "" || req.PIN == "" {
			return writeError(c, http.StatusBadRequest, "validation_error", "otp and pin are required")
		}
		result, err := h.Service.SignupVerify(ctx, req.BadgeNumber, req.OTP, req.PIN)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, sessionResponse(result))

	case "login":
		if req.PIN == "" {
			return writeError(c, http.StatusBadRequest, "validation_error", "pin is required")
		}
		result, err := h.Service.Login(ctx, req.BadgeNumber, req.PIN)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, sessionResponse(result))

	case "reset-request":
		result, err := h.Service.ResetRequest(ctx, req.BadgeNumber)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, dto.CodeRequestResponse{MaskedSupervisorContact: result.MaskedSupervisorContact})

	case "reset-verify":
		if req.OTP == "" || req.PIN == "" {
			return writeError(c, http.StatusBadRequest, "validation_error", "otp and pin are required")
		}
		if err := h.Service.ResetVerify(ctx, req.BadgeNumber, req.OTP, req.PIN); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, dto.MessageResponse{Message: "pin reset"})
	}

	return writeError(c, http.StatusBadRequest, "bad_request", "unknown action")
}

func (h *BadgeAuthHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func sessionResponse(result *service.SessionResult) dto.SessionResponse {
	return dto.SessionResponse{
		ExchangeToken:     result.ExchangeToken,
		EmployeeName:      result.EmployeeName,
		RequiresPINChange: result.RequiresPINChange,
	}
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeError(c echo.Context, status int, code string, message string) error {
	return c.JSON(status, dto.ErrorResponse{Error: code, Message: message})
}

func writeServiceError(c echo.Context, err error) error {
	var mismatch *service.PINMismatchError
	if errors.As(err, &mismatch) {
		attemptsLeft := mismatch.AttemptsLeft
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:        "unauthorized",
			Message:      err.Error(),
			AttemptsLeft: &attemptsLeft,
		})
	}

	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrPINValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, service.ErrBadgeNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrAccountExists), errors.Is(err, service.ErrNoAccount):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrInvalidCode):
		status, code = http.StatusUnauthorized, "invalid_code"
	case errors.Is(err, service.ErrLocked):
		status, code = http.StatusLocked, "locked"
	case errors.Is(err, service.ErrCodeExpired):
		status, code = http.StatusGone, "expired"
	case errors.Is(err, service.ErrNoSupervisor):
		status, code = http.StatusFailedDependency, "no_supervisor"
	case errors.Is(err, service.ErrUpstream):
		status, code = http.StatusBadGateway, "upstream"
	}
	return writeError(c, status, code, err.Error())
}
