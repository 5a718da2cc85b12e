package service

import "errors"

var (
	// ErrFlowNotFound is returned when a flow id is unknown or has expired.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrSubmissionInFlight is returned when a request is already outstanding for the flow.
	ErrSubmissionInFlight = errors.New("a submission is already in progress")

	// ErrInvalidTransition is returned when an action is not allowed in the current state.
	ErrInvalidTransition = errors.New("action not allowed in current state")

	// ErrStaleResponse is returned when a response arrives after the user left the step that issued it.
	ErrStaleResponse = errors.New("response discarded: flow has moved on")

	// ErrPollingDisabled is returned when settlement polling is switched off.
	ErrPollingDisabled = errors.New("settlement polling is disabled")

	// ErrPollInProgress is returned when a settlement poll is already running for the flow.
	ErrPollInProgress = errors.New("settlement poll already running")

	// ErrNotSettled is returned when a receipt is requested before settlement.
	ErrNotSettled = errors.New("flow is not settled")

	// ErrUnknownServiceType is returned for a service type with no descriptor.
	ErrUnknownServiceType = errors.New("unknown service type")

	// ErrMissingDeviceID is returned when a flow is started without a device id.
	ErrMissingDeviceID = errors.New("device id is required")
)
