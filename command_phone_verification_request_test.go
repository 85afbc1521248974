package tripauth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tourgether/tripauth"
)

func TestPhoneVerificationRequestHandlerDispatchesCode(t *testing.T) {
	store := newMemStore()
	messenger := &MockMessenger{}
	messenger.On("SendCode", mock.Anything, "+821012345678", mock.MatchedBy(func(code string) bool {
		return len(code) == 6
	})).Return(nil).Once()

	handler := tripauth.NewPhoneVerificationRequestHandler(tripauth.NewVerifier(store)).
		WithMessenger(messenger)

	var resp *tripauth.PhoneVerificationRequestResponse
	err := handler.Execute(context.Background(), tripauth.PhoneVerificationRequestMessage{
		PhoneNumber: "010-1234-5678",
		OnResponse: func(r *tripauth.PhoneVerificationRequestResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "+821012345678", resp.PhoneNumber)
	assert.Regexp(t, `^\d{6}$`, resp.Code)
	assert.Equal(t, 180, resp.ExpiresInSeconds)
	messenger.AssertExpectations(t)
}

func TestPhoneVerificationRequestHandlerDeliveryFailureKeepsChallenge(t *testing.T) {
	store := newMemStore()
	messenger := &MockMessenger{}
	messenger.On("SendCode", mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError).Once()

	verifier := tripauth.NewVerifier(store)
	handler := tripauth.NewPhoneVerificationRequestHandler(verifier).
		WithMessenger(messenger)

	var resp *tripauth.PhoneVerificationRequestResponse
	err := handler.Execute(context.Background(), tripauth.PhoneVerificationRequestMessage{
		PhoneNumber: "010-1234-5678",
		OnResponse: func(r *tripauth.PhoneVerificationRequestResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	ok, err := verifier.Check(context.Background(), "010-1234-5678", resp.Code)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPhoneVerificationRequestHandlerRateLimited(t *testing.T) {
	store := newMemStore()
	messenger := &MockMessenger{}
	messenger.On("SendCode", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	handler := tripauth.NewPhoneVerificationRequestHandler(tripauth.NewVerifier(store)).
		WithMessenger(messenger)

	err := handler.Execute(context.Background(), tripauth.PhoneVerificationRequestMessage{
		PhoneNumber: "010-1234-5678",
	})
	require.NoError(t, err)

	// The second request loses the SetNX race; nothing is dispatched for it.
	err = handler.Execute(context.Background(), tripauth.PhoneVerificationRequestMessage{
		PhoneNumber: "010-1234-5678",
		OnResponse: func(r *tripauth.PhoneVerificationRequestResponse) {
			t.Fatal("rate-limited request must not produce a response")
		},
	})
	require.Error(t, err)
	assert.True(t, tripauth.RetryAfterSeconds(err) > 0)
	messenger.AssertExpectations(t)
}

func TestPhoneVerificationRequestHandlerCancelledContext(t *testing.T) {
	handler := tripauth.NewPhoneVerificationRequestHandler(tripauth.NewVerifier(newMemStore()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, tripauth.PhoneVerificationRequestMessage{
		PhoneNumber: "010-1234-5678",
	})
	require.Error(t, err)
}
