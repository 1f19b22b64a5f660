package dto

// ActionRequest is the single discriminated request body for the badge auth
// endpoint. Action selects the operation; the other fields are required per
// action and checked by the handler.
type ActionRequest struct {
	Action      string `json:"action" validate:"required,oneof=lookup quick-signup change-pin signup-request signup-verify login reset-request reset-verify"`
	BadgeNumber string `json:"badge_number" validate:"required"`
	PIN         string `json:"pin" validate:"omitempty,max=64"`
	NewPIN      string `json:"new_pin" validate:"omitempty,max=64"`
	OTP         string `json:"otp" validate:"omitempty,max=16"`
}

type LookupResponse struct {
	Exists                  bool   `json:"exists"`
	HasAccount              bool   `json:"has_account"`
	EmployeeName            string `json:"employee_name"`
	MaskedSupervisorContact string `json:"masked_supervisor_contact,omitempty"`
	RequiresPINChange       bool   `json:"requires_pin_change,omitempty"`
}

type SessionResponse struct {
	ExchangeToken     string `json:"exchange_token"`
	EmployeeName      string `json:"employee_name,omitempty"`
	RequiresPINChange bool   `json:"requires_pin_change"`
}

type CodeRequestResponse struct {
	MaskedSupervisorContact string `json:"masked_supervisor_contact"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	AttemptsLeft *int   `json:"attempts_left,omitempty"`
}
