package tripauth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// PhoneVerificationRequestMessage asks for a verification code to be issued
// and delivered to the given phone number.
type PhoneVerificationRequestMessage struct {
	PhoneNumber string `json:"phone_number" example:"010-1234-5678" doc:"Phone number requesting a verification code"`
	OnResponse  func(r *PhoneVerificationRequestResponse)
}

func (m PhoneVerificationRequestMessage) Type() string { return "phone.verification_request" }

// PhoneVerificationRequestResponse reports the issued challenge.
type PhoneVerificationRequestResponse struct {
	PhoneNumber      string `json:"phone_number" example:"+821012345678" doc:"Normalized phone number the code was issued for"`
	Code             string `json:"code,omitempty" example:"042917" doc:"Issued code, surfaced only in debug flows"`
	ExpiresInSeconds int    `json:"expires_in_seconds" example:"180" doc:"Seconds until the code expires"`
}

// PhoneVerificationRequestHandler issues the code through the Verifier and
// dispatches it through the Messenger. Generation and storage stay in the
// Verifier; this handler owns delivery.
type PhoneVerificationRequestHandler struct {
	verifier  *Verifier
	messenger Messenger
	logger    Logger
}

func NewPhoneVerificationRequestHandler(verifier *Verifier) *PhoneVerificationRequestHandler {
	return &PhoneVerificationRequestHandler{
		verifier:  verifier,
		messenger: noopMessenger{},
		logger:    defLogger{},
	}
}

func (h *PhoneVerificationRequestHandler) WithMessenger(m Messenger) *PhoneVerificationRequestHandler {
	if m != nil {
		h.messenger = m
	}
	return h
}

func (h *PhoneVerificationRequestHandler) WithLogger(logger Logger) *PhoneVerificationRequestHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *PhoneVerificationRequestHandler) Execute(ctx context.Context, event PhoneVerificationRequestMessage) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled during phone verification request")
	default:
		return h.execute(ctx, event)
	}
}

func (h *PhoneVerificationRequestHandler) execute(ctx context.Context, event PhoneVerificationRequestMessage) error {
	challenge, err := h.verifier.Request(ctx, event.PhoneNumber)
	if err != nil {
		return err
	}

	if err := h.messenger.SendCode(ctx, challenge.PhoneNumber, challenge.Code); err != nil {
		// The challenge stays valid; delivery is retryable out of band.
		h.logger.Error("verification code delivery failed", "phone", challenge.PhoneNumber, "error", err)
	}

	if event.OnResponse != nil {
		event.OnResponse(&PhoneVerificationRequestResponse{
			PhoneNumber:      challenge.PhoneNumber,
			Code:             challenge.Code,
			ExpiresInSeconds: challenge.ExpiresInSeconds,
		})
	}

	return nil
}

type noopMessenger struct{}

func (noopMessenger) SendCode(ctx context.Context, phoneNumber, code string) error {
	return nil
}
