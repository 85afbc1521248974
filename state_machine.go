package tripauth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_ACCOUNT_STATE"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from the deleted status.
var ErrTerminalState = goerrors.New("account state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor   ActorRef
	Account *Account
	From    AccountStatus
	To      AccountStatus
	Reason  string
}

// TransitionHook is executed before or after a transition persists.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.reason = reason
	}
}

// WithForceTransition bypasses validation rules (use sparingly).
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// WithBeforeTransitionHook adds a hook executed before the status update.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the status update succeeds.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// StatusWriter persists a status change. The Accounts repository satisfies it.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, account *Account, status AccountStatus) (*Account, error)
}

// AccountStateMachine defines lifecycle operations for accounts.
type AccountStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error)
	Activate(ctx context.Context, actor ActorRef, account *Account, profile *Profile) (*Account, error)
	CurrentStatus(account *Account) AccountStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineLogger overrides the logger.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewAccountStateMachine returns the default implementation backed by the
// provided status writer.
func NewAccountStateMachine(store StatusWriter, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		store: store,
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			AccountStatusPending: {
				AccountStatusActive:  {},
				AccountStatusDeleted: {},
			},
			AccountStatusActive: {
				AccountStatusSuspended: {},
				AccountStatusInactive:  {},
				AccountStatusDeleted:   {},
			},
			AccountStatusSuspended: {
				AccountStatusActive:  {},
				AccountStatusDeleted: {},
			},
			AccountStatusInactive: {
				AccountStatusActive:  {},
				AccountStatusDeleted: {},
			},
		},
		now:    time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	store       StatusWriter
	transitions map[AccountStatus]map[AccountStatus]struct{}
	now         func() time.Time
	logger      Logger
}

type transitionOptions struct {
	reason      string
	force       bool
	beforeHooks []TransitionHook
	afterHooks  []TransitionHook
}

func (sm *accountStateMachine) Transition(ctx context.Context, actor ActorRef, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error) {
	if account == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "account is nil",
		})
	}

	account.EnsureStatus()
	from := account.Status

	if target == "" {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	if from == target {
		return account, nil
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if from == AccountStatusDeleted && !options.force {
		return nil, ErrTerminalState.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	if !options.force {
		if allowed, ok := sm.transitions[from]; !ok {
			return nil, ErrInvalidTransition.WithMetadata(map[string]any{"from": from, "to": target})
		} else if _, ok := allowed[target]; !ok {
			return nil, ErrInvalidTransition.WithMetadata(map[string]any{"from": from, "to": target})
		}
	}

	tc := TransitionContext{
		Actor:   actor,
		Account: account,
		From:    from,
		To:      target,
		Reason:  options.reason,
	}

	for _, hook := range options.beforeHooks {
		if err := hook(ctx, tc); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "before-transition hook failed")
		}
	}

	updated, err := sm.store.UpdateStatus(ctx, account, target)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist status transition")
	}

	for _, hook := range options.afterHooks {
		if err := hook(ctx, tc); err != nil {
			sm.logger.Warn("after-transition hook error: %v", err)
		}
	}

	sm.logger.Info("account status transition",
		"account", updated.ID, "from", from, "to", target, "actor", actor.ID)

	return updated, nil
}

// Activate fires the pending-to-active transition once phone verification has
// succeeded AND the profile completeness predicate holds. When either side is
// still missing, the account is returned unchanged without error so callers
// can retry from every profile mutation. Calling it on an already active
// account is a no-op.
func (sm *accountStateMachine) Activate(ctx context.Context, actor ActorRef, account *Account, profile *Profile) (*Account, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}

	account.EnsureStatus()
	if account.Status == AccountStatusActive {
		return account, nil
	}

	if account.Status != AccountStatusPending {
		return account, nil
	}

	if !account.PhoneVerified || !profile.Complete() {
		return account, nil
	}

	return sm.Transition(ctx, actor, account, AccountStatusActive,
		WithTransitionReason("phone verified and profile complete"))
}

func (sm *accountStateMachine) CurrentStatus(account *Account) AccountStatus {
	if account == nil {
		return ""
	}
	account.EnsureStatus()
	return account.Status
}
